package graph

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDB(t *testing.T) *Database {
	t.Helper()
	db := newTestDB(t)
	addNodes(t, db,
		NewTableNode("table:public.customers", "customers", "public", TableMetadata{Comment: "clients"}),
		NewColumnNode("column:public.customers.id", "id", "public", ColumnMetadata{
			Table:    "customers",
			DataType: "integer",
			Position: 0,
		}),
		NewTableNode("table:public.orders", "orders", "public", TableMetadata{}),
		NewColumnNode("column:public.orders.customer_id", "customer_id", "public", ColumnMetadata{
			Table:    "orders",
			DataType: "integer",
			Nullable: true,
			Position: 1,
		}),
		NewIndexNode("index:public.orders.idx", "idx", "public", IndexMetadata{
			Table:   "orders",
			Columns: []string{"customer_id"},
		}),
	)
	addEdges(t, db,
		NewTableColumnEdge("table_column:column:public.customers.id", "table:public.customers", "column:public.customers.id"),
		NewPrimaryKeyEdge("primary_key:column:public.customers.id", "table:public.customers", "column:public.customers.id"),
		NewTableColumnEdge("table_column:column:public.orders.customer_id", "table:public.orders", "column:public.orders.customer_id"),
		NewTableIndexEdge("table_index:index:public.orders.idx", "table:public.orders", "index:public.orders.idx"),
		NewIndexColumnEdge("index_column:index:public.orders.idx:customer_id",
			"index:public.orders.idx", "column:public.orders.customer_id", 0),
		NewForeignKeyEdge("fk", "column:public.orders.customer_id", "column:public.customers.id", ForeignKeyMetadata{
			ReferencedTable:  "customers",
			ReferencedColumn: "id",
			OnDelete:         "CASCADE",
		}),
	)
	return db
}

func TestJSONRoundTrip(t *testing.T) {
	r := require.New(t)
	db := sampleDB(t)

	data, err := db.ToJSON()
	r.NoError(err)

	restored, err := FromJSON(nil, data, DefaultConfig())
	r.NoError(err)
	r.Equal(nodeIDs(db.Nodes()), nodeIDs(restored.Nodes()))
	r.Equal(edgeIDs(db.Edges()), edgeIDs(restored.Edges()))

	for _, n := range db.Nodes() {
		got := restored.GetNode(n.ID)
		r.NotNil(got)
		r.Equal(n.Type, got.Type)
		r.Equal(n.Name, got.Name)
		r.Equal(n.Schema, got.Schema)
		r.Equal(n.Metadata, got.Metadata, n.ID)
		r.Equal(n.OutgoingEdgeIDs(), got.OutgoingEdgeIDs())
		r.Equal(n.IncomingEdgeIDs(), got.IncomingEdgeIDs())
	}
	for _, e := range db.Edges() {
		got := restored.GetEdge(e.ID)
		r.NotNil(got)
		r.Equal(e.Metadata, got.Metadata, e.ID)
	}
	r.Len(restored.GetNodesByType(NodeTypeTable), 2)
	r.Len(restored.GetEdgesByType(EdgeTypeForeignKey), 1)

	again, err := restored.ToJSON()
	r.NoError(err)
	r.JSONEq(string(data), string(again))

	fk := restored.GetEdge("fk")
	r.Equal("customers", fk.Metadata.String(MetaReferencedTable))
	r.Equal("CASCADE", fk.Metadata.String(MetaOnDelete))
	col := restored.GetNode("column:public.orders.customer_id")
	r.Equal(1, col.Metadata.Int(MetaPosition))
	r.True(col.Metadata.Bool(MetaNullable))
	r.Equal([]string{"customer_id"}, restored.GetNode("index:public.orders.idx").Metadata.Strings(MetaColumns))
}

func TestSnapshotFormat(t *testing.T) {
	data, err := sampleDB(t).ToJSON()
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Len(t, doc["nodes"], 5)
	assert.Len(t, doc["edges"], 6)
	assert.Equal(t, map[string]any{"nodeCount": 5.0, "edgeCount": 6.0}, doc["metadata"])

	edge := doc["edges"].([]any)[0].(map[string]any)
	assert.Equal(t, "TABLE_COLUMN", edge["type"])
	assert.Equal(t, "table:public.customers", edge["sourceId"])
	assert.Equal(t, "column:public.customers.id", edge["targetId"])

	empty, err := newTestDB(t).ToJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `{"nodes":[],"edges":[],"metadata":{"nodeCount":0,"edgeCount":0}}`, string(empty))
}

func TestMsgpackRoundTrip(t *testing.T) {
	r := require.New(t)
	db := sampleDB(t)

	data, err := db.ToMsgpack()
	r.NoError(err)
	restored, err := FromMsgpack(nil, data, DefaultConfig())
	r.NoError(err)

	r.Equal(nodeIDs(db.Nodes()), nodeIDs(restored.Nodes()))
	r.Equal(edgeIDs(db.Edges()), edgeIDs(restored.Edges()))
	for _, n := range db.Nodes() {
		r.Equal(n.Metadata, restored.GetNode(n.ID).Metadata, n.ID)
	}
	for _, e := range db.Edges() {
		r.Equal(e.Metadata, restored.GetEdge(e.ID).Metadata, e.ID)
	}

	want, err := db.ToJSON()
	r.NoError(err)
	got, err := restored.ToJSON()
	r.NoError(err)
	r.JSONEq(string(want), string(got))
}

func TestFromJSONMetadataTypes(t *testing.T) {
	r := require.New(t)
	data := []byte(`{
		"nodes": [{"id": "n", "type": "COLUMN", "name": "n", "metadata": {
			"position": 3,
			"ratio": 0.5,
			"columns": ["a", "b"],
			"empty": [],
			"mixed": ["a", 1],
			"nested": {"size": 2}
		}}],
		"edges": []
	}`)

	db, err := FromJSON(nil, data, DefaultConfig())
	r.NoError(err)
	r.Equal(Metadata{
		"position": 3,
		"ratio":    0.5,
		"columns":  []string{"a", "b"},
		"empty":    []string{},
		"mixed":    []any{"a", 1},
		"nested":   map[string]any{"size": 2},
	}, db.GetNode("n").Metadata)
}

func TestFromJSONRejects(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"null", "null"},
		{"not json", "{nodes"},
		{"not an object", `[1, 2]`},
		{"nodes not array", `{"nodes": {}, "edges": []}`},
		{"edges missing", `{"nodes": []}`},
		{"edges null", `{"nodes": [], "edges": null}`},
		{"unknown node type", `{"nodes": [{"id": "a", "type": "TRIGGER", "name": "a"}], "edges": []}`},
		{"empty node id", `{"nodes": [{"id": "", "type": "TABLE", "name": "a"}], "edges": []}`},
		{"duplicate node", `{"nodes": [
			{"id": "a", "type": "TABLE", "name": "a"},
			{"id": "a", "type": "TABLE", "name": "b"}
		], "edges": []}`},
		{"dangling edge", `{"nodes": [{"id": "a", "type": "TABLE", "name": "a"}], "edges": [
			{"id": "e", "type": "TABLE_COLUMN", "sourceId": "a", "targetId": "b"}
		]}`},
		{"unknown edge type", `{"nodes": [{"id": "a", "type": "TABLE", "name": "a"}], "edges": [
			{"id": "e", "type": "REFERENCES", "sourceId": "a", "targetId": "a"}
		]}`},
		{"foreign key without reference", `{"nodes": [{"id": "a", "type": "COLUMN", "name": "a"}], "edges": [
			{"id": "e", "type": "FOREIGN_KEY", "sourceId": "a", "targetId": "a", "metadata": {}}
		]}`},
		{"count mismatch", `{"nodes": [{"id": "a", "type": "TABLE", "name": "a"}], "edges": [],
			"metadata": {"nodeCount": 2, "edgeCount": 0}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, err := FromJSON(nil, []byte(tt.input), DefaultConfig())
			require.ErrorIs(t, err, ErrValidation)
			require.Nil(t, db)
		})
	}
}

func TestFromJSONCollectsAllErrors(t *testing.T) {
	input := `{"nodes": [
		{"id": "a", "type": "TRIGGER", "name": "a"},
		{"id": "b", "type": "TABLE", "name": "b"}
	], "edges": [
		{"id": "e", "type": "TABLE_COLUMN", "sourceId": "b", "targetId": "missing"}
	]}`
	_, err := FromJSON(nil, []byte(input), DefaultConfig())
	require.ErrorIs(t, err, ErrValidation)
	require.ErrorContains(t, err, "unknown node type TRIGGER")
	require.ErrorContains(t, err, "edge target missing not found")
}

func TestFromJSONCapacity(t *testing.T) {
	data, err := sampleDB(t).ToJSON()
	require.NoError(t, err)

	_, err = FromJSON(nil, data, Config{MaxNodes: 2})
	require.ErrorIs(t, err, ErrValidation)
	require.ErrorContains(t, err, "node capacity")
}
