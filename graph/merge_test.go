package graph

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMergeDisjoint(t *testing.T) {
	r := require.New(t)
	left := sampleDB(t)
	right := newTestDB(t)
	addNodes(t, right,
		NewTableNode("table:sales.invoices", "invoices", "sales", TableMetadata{}),
		NewColumnNode("column:sales.invoices.id", "id", "sales", ColumnMetadata{Table: "invoices"}),
	)
	addEdges(t, right, NewTableColumnEdge("table_column:column:sales.invoices.id",
		"table:sales.invoices", "column:sales.invoices.id"))

	nodesBefore, edgesBefore := left.NodeCount(), left.EdgeCount()
	report, err := left.Merge(right)
	r.NoError(err)
	r.Equal(2, report.NodesAdded)
	r.Equal(1, report.EdgesAdded)
	r.Empty(report.Conflicts)

	r.Equal(nodesBefore+2, left.NodeCount())
	r.Equal(edgesBefore+1, left.EdgeCount())
	r.Equal([]string{"table_column:column:sales.invoices.id"},
		left.GetNode("table:sales.invoices").OutgoingEdgeIDs())
	r.Len(left.GetNodesByType(NodeTypeTable), 3)

	// исходная база не меняется
	r.Equal(2, right.NodeCount())
	r.Equal(1, right.EdgeCount())
}

func TestMergeConflicts(t *testing.T) {
	r := require.New(t)
	left := newTestDB(t)
	addNodes(t, left, NewTableNode("a", "original", "", TableMetadata{}))

	right := newTestDB(t)
	addNodes(t, right,
		NewTableNode("a", "replacement", "", TableMetadata{}),
		NewColumnNode("b", "b", "", ColumnMetadata{}),
	)
	addEdges(t, right, NewTableColumnEdge("ab", "a", "b"))

	report, err := left.Merge(right)
	r.NoError(err)
	r.Equal(1, report.NodesAdded)
	r.Equal(1, report.EdgesAdded)
	r.Equal([]Conflict{{ID: "a", Kind: ConflictNode}}, report.Conflicts)
	r.Equal("original", left.GetNode("a").Name)
	r.Equal([]string{"ab"}, left.GetNode("a").OutgoingEdgeIDs())

	// повторное слияние добавляет только конфликты
	report, err = left.Merge(right)
	r.NoError(err)
	r.Zero(report.NodesAdded)
	r.Zero(report.EdgesAdded)
	r.Equal([]Conflict{
		{ID: "a", Kind: ConflictNode},
		{ID: "b", Kind: ConflictNode},
		{ID: "ab", Kind: ConflictEdge},
	}, report.Conflicts)
}

func TestMergeCapacity(t *testing.T) {
	r := require.New(t)
	left := New(nil, Config{MaxNodes: 3, EnableIndexing: true})
	addNodes(t, left,
		NewTableNode("a", "a", "", TableMetadata{}),
		NewTableNode("b", "b", "", TableMetadata{}),
	)
	right := newTestDB(t)
	addNodes(t, right,
		NewTableNode("a", "a", "", TableMetadata{}),
		NewTableNode("c", "c", "", TableMetadata{}),
		NewTableNode("d", "d", "", TableMetadata{}),
	)
	version := left.Version()

	report, err := left.Merge(right)
	r.ErrorIs(err, ErrCapacityExceeded)
	r.Nil(report)
	r.Equal(2, left.NodeCount())
	r.Equal(version, left.Version())

	// конфликтующие вершины места не занимают
	r.NoError(right.RemoveNode("d"))
	report, err = left.Merge(right)
	r.NoError(err)
	r.Equal(1, report.NodesAdded)
	r.Equal(3, left.NodeCount())
}

func TestMergeNil(t *testing.T) {
	db := sampleDB(t)
	count := db.NodeCount()

	report, err := db.Merge(nil)
	require.NoError(t, err)
	require.Zero(t, report.NodesAdded)
	require.Empty(t, report.Conflicts)
	require.Equal(t, count, db.NodeCount())
}

func TestMergeSelf(t *testing.T) {
	r := require.New(t)
	db := sampleDB(t)
	nodes, edges := db.NodeCount(), db.EdgeCount()
	version := db.Version()

	report, err := db.Merge(db)
	r.NoError(err)
	r.Zero(report.NodesAdded)
	r.Zero(report.EdgesAdded)
	r.Len(report.Conflicts, nodes+edges)
	r.Equal(Conflict{ID: "table:public.customers", Kind: ConflictNode}, report.Conflicts[0])
	r.Equal(Conflict{ID: "fk", Kind: ConflictEdge}, report.Conflicts[len(report.Conflicts)-1])

	r.Equal(nodes, db.NodeCount())
	r.Equal(edges, db.EdgeCount())
	r.Equal(version, db.Version())
}
