package graph

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// chain строит граф a -> b -> c -> d и отдельную вершину x.
func chain(t *testing.T, cfg Config) *Database {
	t.Helper()
	db := New(nil, cfg)
	addNodes(t, db,
		NewTableNode("a", "a", "", TableMetadata{}),
		NewColumnNode("b", "b", "", ColumnMetadata{}),
		NewColumnNode("c", "c", "", ColumnMetadata{}),
		NewColumnNode("d", "d", "", ColumnMetadata{}),
		NewTableNode("x", "x", "", TableMetadata{}),
	)
	addEdges(t, db,
		NewTableColumnEdge("ab", "a", "b"),
		NewForeignKeyEdge("bc", "b", "c", ForeignKeyMetadata{ReferencedTable: "t", ReferencedColumn: "c"}),
		NewForeignKeyEdge("cd", "c", "d", ForeignKeyMetadata{ReferencedTable: "t", ReferencedColumn: "d"}),
	)
	return db
}

func nodeIDs(nodes []*Node) []string {
	ids := make([]string, 0, len(nodes))
	for _, n := range nodes {
		ids = append(ids, n.ID)
	}
	return ids
}

func edgeIDs(edges []*Edge) []string {
	ids := make([]string, 0, len(edges))
	for _, e := range edges {
		ids = append(ids, e.ID)
	}
	return ids
}

func TestQueryRelationships(t *testing.T) {
	db := chain(t, DefaultConfig())

	tests := []struct {
		name      string
		query     RelationshipQuery
		wantNodes []string
		wantEdges []string
	}{
		{
			name:      "default depth",
			query:     RelationshipQuery{SourceNodeID: "a"},
			wantNodes: []string{"a", "b", "c", "d"},
			wantEdges: []string{"ab", "bc", "cd"},
		},
		{
			name:      "depth one",
			query:     RelationshipQuery{SourceNodeID: "a", MaxDepth: 1},
			wantNodes: []string{"a", "b"},
			wantEdges: []string{"ab"},
		},
		{
			name:      "incoming",
			query:     RelationshipQuery{SourceNodeID: "c", Direction: DirectionIncoming},
			wantNodes: []string{"c", "b", "a"},
			wantEdges: []string{"bc", "ab"},
		},
		{
			name:      "bidirectional",
			query:     RelationshipQuery{SourceNodeID: "c", Direction: DirectionBidirectional, MaxDepth: 1},
			wantNodes: []string{"c", "b", "d"},
			wantEdges: []string{"bc", "cd"},
		},
		{
			name: "edge type filter",
			query: RelationshipQuery{
				SourceNodeID: "b",
				Direction:    DirectionBidirectional,
				EdgeTypes:    []EdgeType{EdgeTypeTableColumn},
			},
			wantNodes: []string{"b", "a"},
			wantEdges: []string{"ab"},
		},
		{
			name:      "isolated",
			query:     RelationshipQuery{SourceNodeID: "x"},
			wantNodes: []string{"x"},
			wantEdges: []string{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := require.New(t)
			res, err := db.QueryRelationships(tt.query)
			r.NoError(err)
			r.Equal(tt.wantNodes, nodeIDs(res.Nodes))
			r.Equal(tt.wantEdges, edgeIDs(res.Edges))
		})
	}
}

func TestQueryRelationshipsErrors(t *testing.T) {
	db := chain(t, DefaultConfig())

	_, err := db.QueryRelationships(RelationshipQuery{SourceNodeID: "missing"})
	require.ErrorIs(t, err, ErrNotFound)

	_, err = db.QueryRelationships(RelationshipQuery{SourceNodeID: "a", Direction: "SIDEWAYS"})
	require.ErrorIs(t, err, ErrValidation)
}

func TestQueryRelationshipsCycle(t *testing.T) {
	db := chain(t, DefaultConfig())
	addEdges(t, db, NewForeignKeyEdge("db", "d", "b", ForeignKeyMetadata{ReferencedTable: "t", ReferencedColumn: "b"}))

	res, err := db.QueryRelationships(RelationshipQuery{SourceNodeID: "b", MaxDepth: 10})
	require.NoError(t, err)
	require.Equal(t, []string{"b", "c", "d"}, nodeIDs(res.Nodes))
	require.Equal(t, []string{"bc", "cd", "db"}, edgeIDs(res.Edges))
}

func TestFindPath(t *testing.T) {
	db := chain(t, DefaultConfig())

	tests := []struct {
		name      string
		from, to  string
		opts      PathOptions
		wantNodes []string
		wantErr   error
	}{
		{
			name:      "outgoing",
			from:      "a",
			to:        "d",
			wantNodes: []string{"a", "b", "c", "d"},
		},
		{
			name:    "too deep",
			from:    "a",
			to:      "d",
			opts:    PathOptions{MaxDepth: 2},
			wantErr: ErrNotReachable,
		},
		{
			name:    "wrong direction",
			from:    "d",
			to:      "a",
			wantErr: ErrNotReachable,
		},
		{
			name:      "incoming",
			from:      "d",
			to:        "a",
			opts:      PathOptions{Direction: DirectionIncoming},
			wantNodes: []string{"d", "c", "b", "a"},
		},
		{
			name:    "filtered",
			from:    "a",
			to:      "c",
			opts:    PathOptions{EdgeTypes: []EdgeType{EdgeTypeForeignKey}},
			wantErr: ErrNotReachable,
		},
		{
			name:      "same node",
			from:      "b",
			to:        "b",
			wantNodes: []string{"b"},
		},
		{
			name:    "isolated",
			from:    "a",
			to:      "x",
			opts:    PathOptions{Direction: DirectionBidirectional},
			wantErr: ErrNotReachable,
		},
		{
			name:    "missing source",
			from:    "missing",
			to:      "a",
			wantErr: ErrNotFound,
		},
		{
			name:    "missing target",
			from:    "a",
			to:      "missing",
			wantErr: ErrNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := require.New(t)
			path, err := db.FindPath(tt.from, tt.to, tt.opts)
			if tt.wantErr != nil {
				r.ErrorIs(err, tt.wantErr)
				r.Nil(path)
				return
			}
			r.NoError(err)
			r.Equal(tt.wantNodes, nodeIDs(path.Nodes))
			r.Len(path.Edges, len(path.Nodes)-1)
		})
	}
}

func TestFindPathBidirectionalSymmetry(t *testing.T) {
	r := require.New(t)
	db := chain(t, DefaultConfig())
	opts := PathOptions{Direction: DirectionBidirectional}

	forward, err := db.FindPath("a", "d", opts)
	r.NoError(err)
	backward, err := db.FindPath("d", "a", opts)
	r.NoError(err)

	r.Equal(forward.Len(), backward.Len())
	ids := nodeIDs(backward.Nodes)
	reverse(ids)
	r.Equal(nodeIDs(forward.Nodes), ids)
}

func TestFindPathShortest(t *testing.T) {
	db := chain(t, DefaultConfig())
	addEdges(t, db, NewTableColumnEdge("ad", "a", "d"))

	path, err := db.FindPath("a", "d", PathOptions{})
	require.NoError(t, err)
	require.Equal(t, []string{"a", "d"}, nodeIDs(path.Nodes))
	require.Equal(t, []string{"ad"}, edgeIDs(path.Edges))
}

func TestPathCache(t *testing.T) {
	r := require.New(t)
	db := chain(t, DefaultConfig())

	_, err := db.FindPath("a", "d", PathOptions{})
	r.NoError(err)
	stats := db.Statistics().CacheStats
	r.Equal(uint64(0), stats.Hits)
	r.Equal(uint64(1), stats.Misses)

	_, err = db.FindPath("a", "d", PathOptions{})
	r.NoError(err)
	r.Equal(uint64(1), db.Statistics().CacheStats.Hits)

	// порядок типов рёбер не влияет на ключ
	types := []EdgeType{EdgeTypeForeignKey, EdgeTypeTableColumn}
	_, err = db.FindPath("a", "d", PathOptions{EdgeTypes: types})
	r.NoError(err)
	_, err = db.FindPath("a", "d", PathOptions{EdgeTypes: []EdgeType{types[1], types[0], types[1]}})
	r.NoError(err)
	r.Equal(uint64(2), db.Statistics().CacheStats.Hits)

	// после изменения графа запись устарела
	addNodes(t, db, NewTableNode("y", "y", "", TableMetadata{}))
	_, err = db.FindPath("a", "d", PathOptions{})
	r.NoError(err)
	stats = db.Statistics().CacheStats
	r.Equal(uint64(2), stats.Hits)
	r.Equal(uint64(3), stats.Misses)
}

func TestPathCacheReflectsRemoval(t *testing.T) {
	r := require.New(t)
	db := chain(t, DefaultConfig())

	_, err := db.FindPath("a", "d", PathOptions{})
	r.NoError(err)
	r.NoError(db.RemoveEdge("bc"))

	_, err = db.FindPath("a", "d", PathOptions{})
	r.ErrorIs(err, ErrNotReachable)

	// отсутствие пути тоже кэшируется
	_, err = db.FindPath("a", "d", PathOptions{})
	r.ErrorIs(err, ErrNotReachable)
	r.Equal(uint64(1), db.Statistics().CacheStats.Hits)
}

func TestPathCacheDisabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.EnablePathCaching = false
	db := chain(t, cfg)

	for i := 0; i < 3; i++ {
		_, err := db.FindPath("a", "d", PathOptions{})
		require.NoError(t, err)
	}
	stats := db.Statistics().CacheStats
	require.False(t, stats.Enabled)
	require.Zero(t, stats.Hits)
	require.Equal(t, uint64(3), stats.Misses)
	require.Zero(t, stats.Size)
}

func TestPathCacheEviction(t *testing.T) {
	c := newPathCache(2, true)
	k1 := newPathKey("a", "b", nil, DirectionOutgoing, 3)
	k2 := newPathKey("a", "c", nil, DirectionOutgoing, 3)
	k3 := newPathKey("a", "d", nil, DirectionOutgoing, 3)

	c.put(k1, 1, &Path{})
	c.put(k2, 1, &Path{})
	_, ok := c.get(k1, 1)
	require.True(t, ok)
	c.put(k3, 1, &Path{})

	_, ok = c.get(k2, 1)
	require.False(t, ok)
	_, ok = c.get(k1, 1)
	require.True(t, ok)
	require.Equal(t, 2, c.stats().Size)
}

func TestReturnedPathIsCopy(t *testing.T) {
	db := chain(t, DefaultConfig())
	path, err := db.FindPath("a", "b", PathOptions{})
	require.NoError(t, err)
	path.Nodes[0].Name = "changed"

	again, err := db.FindPath("a", "b", PathOptions{})
	require.NoError(t, err)
	require.Equal(t, "a", again.Nodes[0].Name)
	require.Equal(t, "a", db.GetNode("a").Name)
}
