package queries

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errStop = errors.New("stop")

// recordExecutor запоминает запрос и не выполняет его.
type recordExecutor struct {
	query string
	args  []any
}

func (e *recordExecutor) Query(_ context.Context, query string, args ...any) (pgx.Rows, error) {
	e.query = query
	e.args = args
	return nil, errStop
}

func TestTablesPatterns(t *testing.T) {
	tests := []struct {
		name     string
		patterns []TablesPattern
		contains []string
		args     []any
	}{
		{
			name:     "all user schemas",
			contains: []string{"ns.nspname NOT IN ('pg_catalog', 'information_schema')"},
		},
		{
			name:     "schema only",
			patterns: []TablesPattern{{Schema: "public"}},
			contains: []string{"AND (ns.nspname LIKE $1)"},
			args:     []any{"public"},
		},
		{
			name:     "schema and tables",
			patterns: []TablesPattern{{Schema: "public", Tables: "order%"}, {Schema: "billing"}},
			contains: []string{"AND (ns.nspname LIKE $1 AND c.relname LIKE $2 OR ns.nspname LIKE $3)"},
			args:     []any{"public", "order%", "billing"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var exec recordExecutor
			_, err := Queries{}.Tables(context.Background(), &exec, tt.patterns)
			require.ErrorIs(t, err, errStop)

			var qErr Error
			require.ErrorAs(t, err, &qErr)
			assert.Equal(t, exec.query, qErr.Query)
			assert.Contains(t, qErr.Pretty(), "query:")

			for _, s := range tt.contains {
				assert.Contains(t, exec.query, s)
			}
			assert.Contains(t, exec.query, "ORDER BY c.oid ASC")
			assert.Equal(t, tt.args, exec.args)
		})
	}
}

func TestCatalogQueriesArgs(t *testing.T) {
	oids := []int{1, 2}
	calls := map[string]func(exec Executor) error{
		"columns": func(exec Executor) error {
			_, err := Queries{}.Columns(context.Background(), exec, oids)
			return err
		},
		"constraints": func(exec Executor) error {
			_, err := Queries{}.Constraints(context.Background(), exec, oids)
			return err
		},
		"indexes": func(exec Executor) error {
			_, err := Queries{}.Indexes(context.Background(), exec, oids)
			return err
		},
	}
	for name, call := range calls {
		t.Run(name, func(t *testing.T) {
			var exec recordExecutor
			require.ErrorIs(t, call(&exec), errStop)
			assert.Contains(t, exec.query, "= ANY($1::INT[])")
			assert.Equal(t, []any{oids}, exec.args)
		})
	}
}

func TestColumnsScan(t *testing.T) {
	r := require.New(t)
	ctx := context.Background()

	conn, err := pgxmock.NewConn()
	r.NoError(err)
	defer conn.Close(ctx)

	rows := pgxmock.NewRows([]string{"table_oid", "column_num", "column_name", "type_name", "is_nullable", "default_expr"}).
		AddRow(1, 1, "id", "integer", false, sql.NullString{}).
		AddRow(1, 2, "email", "text", true, sql.NullString{String: "''::text", Valid: true})
	conn.ExpectQuery(regexp.QuoteMeta("-- list columns")).
		WithArgs([]int{1}).
		WillReturnRows(rows)

	columns, err := Queries{}.Columns(ctx, conn, []int{1})
	r.NoError(err)
	r.Equal([]Column{
		{TableOID: 1, ColumnNum: 1, ColumnName: "id", TypeName: "integer"},
		{TableOID: 1, ColumnNum: 2, ColumnName: "email", TypeName: "text", IsNullable: true, DefaultExpr: sql.NullString{String: "''::text", Valid: true}},
	}, columns)
	r.NoError(conn.ExpectationsWereMet())
}

func TestConstraintsScan(t *testing.T) {
	r := require.New(t)
	ctx := context.Background()

	conn, err := pgxmock.NewConn()
	r.NoError(err)
	defer conn.Close(ctx)

	rows := pgxmock.NewRows([]string{
		"table_oid", "constraint_name", "constraint_type", "columns",
		"foreign_schema_name", "foreign_table_name", "foreign_columns", "on_delete", "on_update",
	}).AddRow(
		2, "orders_customer_fk", "f", []string{"customer_id"},
		sql.NullString{String: "public", Valid: true}, sql.NullString{String: "customers", Valid: true},
		[]string{"id"}, "c", "a",
	)
	conn.ExpectQuery(regexp.QuoteMeta("-- list primary and foreign keys")).
		WithArgs([]int{2}).
		WillReturnRows(rows)

	constraints, err := Queries{}.Constraints(ctx, conn, []int{2})
	r.NoError(err)
	r.Len(constraints, 1)
	r.Equal([]string{"customer_id"}, constraints[0].Columns)
	r.Equal("customers", constraints[0].ForeignTableName.String)
	r.Equal("c", constraints[0].OnDelete)
	r.NoError(conn.ExpectationsWereMet())
}

func TestQueryAllErrors(t *testing.T) {
	ctx := context.Background()
	errBroken := errors.New("broken")

	t.Run("query", func(t *testing.T) {
		conn, err := pgxmock.NewConn()
		require.NoError(t, err)
		defer conn.Close(ctx)

		conn.ExpectQuery(regexp.QuoteMeta("-- list indexes")).WithArgs([]int{1}).WillReturnError(errBroken)

		_, err = Queries{}.Indexes(ctx, conn, []int{1})
		var qErr Error
		require.ErrorAs(t, err, &qErr)
		require.ErrorIs(t, err, errBroken)
		assert.Equal(t, "query", qErr.Message)
	})

	t.Run("rows", func(t *testing.T) {
		conn, err := pgxmock.NewConn()
		require.NoError(t, err)
		defer conn.Close(ctx)

		rows := pgxmock.NewRows([]string{"table_oid", "index_name", "is_unique", "is_primary", "columns"}).
			AddRow(1, "orders_pkey", true, true, []string{"id"}).
			AddRow(1, "orders_customer_idx", false, false, []string{"customer_id"}).
			RowError(1, errBroken)
		conn.ExpectQuery(regexp.QuoteMeta("-- list indexes")).WithArgs([]int{1}).WillReturnRows(rows)

		_, err = Queries{}.Indexes(ctx, conn, []int{1})
		var qErr Error
		require.ErrorAs(t, err, &qErr)
		require.ErrorIs(t, err, errBroken)
		assert.Equal(t, "rows", qErr.Message)
	})
}
