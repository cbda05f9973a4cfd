package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	"github.com/Feresey/schemagraph/analyzer"
	"github.com/Feresey/schemagraph/graph"
	"github.com/Feresey/schemagraph/schema"
)

const shopInput = "testdata/shop.yaml"

type runResult struct {
	out   string
	codes []int
	err   error
}

func runApp(t *testing.T, args ...string) runResult {
	t.Helper()

	var res runResult
	exiter := cli.OsExiter
	cli.OsExiter = func(code int) { res.codes = append(res.codes, code) }
	t.Cleanup(func() { cli.OsExiter = exiter })

	var out, errOut bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = &errOut
	app.Reader = strings.NewReader("")

	res.err = app.Run(append([]string{"schemagraph"}, args...))
	res.out = out.String()
	return res
}

func TestTablesCommand(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"all", []string{"tables", "-i", shopInput}, "customers\norder_items\norders\nproducts\n"},
		{"pattern", []string{"tables", "-i", shopInput, "order*"}, "order_items\norders\n"},
		{"schema", []string{"tables", "-i", shopInput, "-s", "billing"}, "invoices\n"},
		{"json", []string{"tables", "-i", shopInput, "-f", "json", "*ers"}, "[\n  \"customers\",\n  \"orders\"\n]\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := runApp(t, tt.args...)
			require.NoError(t, res.err)
			assert.Equal(t, tt.want, res.out)
		})
	}
}

func TestTableCommand(t *testing.T) {
	r := require.New(t)

	res := runApp(t, "table", "-i", shopInput, "-f", "json", "orders")
	r.NoError(res.err)
	var info analyzer.TableInfo
	r.NoError(json.Unmarshal([]byte(res.out), &info))
	r.Equal("orders", info.Name)
	r.Equal([]string{"id"}, info.PrimaryKey)
	r.True(info.Column("customer_id").IsForeignKey)

	res = runApp(t, "table", "-i", shopInput, "customers")
	r.NoError(res.err)
	r.Contains(res.out, "public.customers -- shop clients")
	r.Contains(res.out, "PK")

	res = runApp(t, "table", "-i", shopInput, "-f", "yaml", "orders")
	r.NoError(res.err)
	r.Contains(res.out, "primaryKey:\n  - id")
	r.Contains(res.out, "referencedTable: customers")
}

func TestQueryCommands(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		contains []string
	}{
		{
			name:     "columns",
			args:     []string{"columns", "-i", shopInput, "order_id"},
			contains: []string{"billing.invoices.order_id", "public.order_items.order_id"},
		},
		{
			name:     "relations",
			args:     []string{"relations", "-i", shopInput, "orders"},
			contains: []string{"parent public.customers: customer_id -> id", "child public.order_items: order_id -> id"},
		},
		{
			name:     "join",
			args:     []string{"join", "-i", shopInput, "customers", "orders"},
			contains: []string{"FROM customers\nJOIN orders ON customers.id = orders.customer_id"},
		},
		{
			name:     "order",
			args:     []string{"order", "-i", shopInput},
			contains: []string{"customers\nproducts\norders\norder_items\n"},
		},
		{
			name:     "stats",
			args:     []string{"stats", "-i", shopInput, "-f", "yaml"},
			contains: []string{"tables: 4", "foreignKeys: 3", "nodeCount:"},
		},
		{
			name:     "dump sql",
			args:     []string{"dump", "-i", shopInput, "-k", "sql"},
			contains: []string{"CREATE TABLE public.orders ("},
		},
		{
			name:     "dump puml",
			args:     []string{"dump", "-i", shopInput, "-k", "puml", "-s", "billing"},
			contains: []string{"@startuml billing"},
		},
		{
			name:     "parse to stdout",
			args:     []string{"parse", "-i", shopInput},
			contains: []string{`"tableName": "order_items"`},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := runApp(t, tt.args...)
			require.NoError(t, res.err)
			for _, s := range tt.contains {
				assert.Contains(t, res.out, s)
			}
		})
	}
}

func TestParseCommandFile(t *testing.T) {
	r := require.New(t)
	output := filepath.Join(t.TempDir(), "shop.json")

	res := runApp(t, "parse", "-i", shopInput, "-o", output)
	r.NoError(res.err)

	file, err := os.Open(output)
	r.NoError(err)
	defer file.Close()
	def, err := schema.ReadDefinition(file, schema.FormatJSON)
	r.NoError(err)
	r.Len(def.Tables, 5)
	r.Equal("billing", def.Tables[4].Schema)
}

func TestDumpAndMergeSnapshots(t *testing.T) {
	r := require.New(t)
	dir := t.TempDir()
	snapshot := filepath.Join(dir, "shop.json")
	binary := filepath.Join(dir, "shop.msgpack")

	r.NoError(runApp(t, "dump", "-i", shopInput, "-o", snapshot).err)
	r.NoError(runApp(t, "dump", "-i", shopInput, "-o", binary).err)

	merged := filepath.Join(dir, "merged.json")
	res := runApp(t, "merge", "-o", merged, "-f", "json", snapshot, binary)
	r.NoError(res.err)

	var report graph.MergeReport
	r.NoError(json.Unmarshal([]byte(res.out), &report))
	r.Zero(report.NodesAdded)
	r.Zero(report.EdgesAdded)
	r.NotEmpty(report.Conflicts)

	data, err := os.ReadFile(merged)
	r.NoError(err)
	db, err := graph.FromJSON(nil, data, graph.DefaultConfig())
	r.NoError(err)
	r.True(db.HasNode(schema.TableID("billing", "invoices")))
}

func TestScriptCommand(t *testing.T) {
	script := writeFile(t, "check.lua", `
local sg = require("schemagraph")
assert(#sg.tables() == 4)
assert(schema.schemas.billing.tables.invoices.fk[1].reference == "orders")
`)
	res := runApp(t, "script", "-i", shopInput, script)
	require.NoError(t, res.err)

	failing := writeFile(t, "fail.lua", `assert(false, "boom")`)
	res = runApp(t, "script", "-i", shopInput, failing)
	require.Error(t, res.err)
	require.NotEmpty(t, res.codes)
	assert.Equal(t, exitCodeError, res.codes[0])
}

func TestCommandErrors(t *testing.T) {
	conf := writeFile(t, "conf.yml", "dbconn: postgres://127.0.0.1:1/shop?sslmode=disable\nconnect_timeout: 2s\n")

	tests := []struct {
		name string
		args []string
		code int
	}{
		{"missing table", []string{"table", "-i", shopInput, "missing"}, exitCodeError},
		{"no arguments", []string{"join", "-i", shopInput, "orders"}, exitCodeError},
		{"no join path", []string{"join", "-i", shopInput, "customers", "products"}, exitCodeError},
		{"missing config", []string{"tables", "-c", filepath.Join(t.TempDir(), "none.yml")}, exitCodeError},
		{"database unavailable", []string{"tables", "-c", conf}, exitCodeConnect},
		{"bad dump kind", []string{"dump", "-i", shopInput, "-k", "png"}, exitCodeError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := runApp(t, tt.args...)
			require.Error(t, res.err)
			require.NotEmpty(t, res.codes)
			assert.Equal(t, tt.code, res.codes[0])
		})
	}

	t.Run("missing input file", func(t *testing.T) {
		res := runApp(t, "tables", "-i", filepath.Join(t.TempDir(), "none.yaml"))
		require.Error(t, res.err)
	})
}

func TestDumpKind(t *testing.T) {
	tests := []struct {
		kind, path, want string
	}{
		{"", "graph.puml", dumpKindPUML},
		{"", "schema.SQL", dumpKindSQL},
		{"", "snapshot.mp", dumpKindMsgpack},
		{"", "", dumpKindJSON},
		{"sql", "out.json", dumpKindSQL},
	}
	for _, tt := range tests {
		got, err := dumpKind(tt.kind, tt.path)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "%q %q", tt.kind, tt.path)
	}

	_, err := dumpKind("png", "")
	require.Error(t, err)
}

func TestWriteYAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeYAML(&buf, analyzer.IndexInfo{
		Name:    "orders_customer_idx",
		Columns: []string{"customer_id", "created_at"},
		Unique:  true,
	}))
	assert.Equal(t, "name: orders_customer_idx\ncolumns:\n  - customer_id\n  - created_at\nunique: true\n", buf.String())
}
