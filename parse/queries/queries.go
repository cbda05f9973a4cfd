package queries

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
)

// Queries - запросы к pg_catalog.
type Queries struct{}

type Table struct {
	OID     int
	Schema  string
	Table   string
	Comment sql.NullString
}

type TablesPattern struct {
	Schema string
	Tables string
}

type queryBuiler struct {
	queries []string
	argnum  int
	args    []any
}

func (q *queryBuiler) NextArgNum() int {
	q.argnum++
	return q.argnum
}

func (q *queryBuiler) Append(query string, args ...any) {
	q.queries = append(q.queries, query)
	q.args = append(q.args, args...)
}

const queryTablesSQL = `-- list tables
SELECT
	c.oid::INT AS table_oid,
	ns.nspname AS schema_name,
	c.relname AS table_name,
	obj_description(c.oid, 'pg_class') AS table_comment
FROM
	pg_class c
	JOIN pg_namespace ns ON ns.oid = c.relnamespace
WHERE
	c.relkind IN ('r', 'p')`

// Tables возвращает таблицы, подходящие хотя бы под один из шаблонов (LIKE).
func (Queries) Tables(ctx context.Context, exec Executor, p []TablesPattern) ([]Table, error) {
	var qb queryBuiler

	for _, pattern := range p {
		args := []any{pattern.Schema}
		paramIndex := qb.NextArgNum()
		schema := fmt.Sprintf("ns.nspname LIKE $%d", paramIndex)
		if pattern.Tables != "" {
			args = append(args, pattern.Tables)
			paramIndex := qb.NextArgNum()
			schema = fmt.Sprintf("%s AND c.relname LIKE $%d", schema, paramIndex)
		}

		qb.Append(schema, args...)
	}

	query := queryTablesSQL
	if len(qb.queries) != 0 {
		query = fmt.Sprintf("%s AND (%s)", query, strings.Join(qb.queries, " OR "))
	} else {
		query += " AND ns.nspname NOT IN ('pg_catalog', 'information_schema') AND ns.nspname NOT LIKE 'pg_toast%'"
	}

	return QueryAll(
		ctx, exec,
		func(scan pgx.Rows, v *Table) error {
			return scan.Scan(
				&v.OID,
				&v.Schema,
				&v.Table,
				&v.Comment,
			)
		},
		query+" ORDER BY c.oid ASC",
		qb.args...)
}

const queryColumnsSQL = `-- list columns
SELECT
	a.attrelid::INT AS table_oid,
	a.attnum::INT AS column_num,
	a.attname AS column_name,
	format_type(a.atttypid, a.atttypmod) AS type_name,
	NOT a.attnotnull AS is_nullable,
	pg_get_expr(d.adbin, d.adrelid) AS default_expr
FROM
	pg_attribute a
	LEFT JOIN pg_attrdef d ON d.adrelid = a.attrelid AND d.adnum = a.attnum
WHERE
	a.attrelid::INT = ANY($1::INT[])
	AND a.attnum > 0
	AND NOT a.attisdropped
ORDER BY a.attrelid, a.attnum`

type Column struct {
	TableOID    int
	ColumnNum   int
	ColumnName  string
	TypeName    string
	IsNullable  bool
	DefaultExpr sql.NullString
}

func (Queries) Columns(ctx context.Context, exec Executor, tableOIDs []int) ([]Column, error) {
	return QueryAll(
		ctx, exec,
		func(scan pgx.Rows, v *Column) error {
			return scan.Scan(
				&v.TableOID,
				&v.ColumnNum,
				&v.ColumnName,
				&v.TypeName,
				&v.IsNullable,
				&v.DefaultExpr,
			)
		},
		queryColumnsSQL, tableOIDs)
}

const queryConstraintsSQL = `-- list primary and foreign keys
SELECT
	c.conrelid::INT AS table_oid,
	c.conname AS constraint_name,
	c.contype::TEXT AS constraint_type,
	ARRAY(
		SELECT a.attname
		FROM unnest(c.conkey) WITH ORDINALITY AS k(attnum, n)
			JOIN pg_attribute a ON a.attrelid = c.conrelid AND a.attnum = k.attnum
		ORDER BY k.n
	)::TEXT[] AS columns,
	fns.nspname AS foreign_schema_name,
	fc.relname AS foreign_table_name,
	ARRAY(
		SELECT a.attname
		FROM unnest(c.confkey) WITH ORDINALITY AS k(attnum, n)
			JOIN pg_attribute a ON a.attrelid = c.confrelid AND a.attnum = k.attnum
		ORDER BY k.n
	)::TEXT[] AS foreign_columns,
	c.confdeltype::TEXT AS on_delete,
	c.confupdtype::TEXT AS on_update
FROM
	pg_constraint c
	LEFT JOIN pg_class fc ON fc.oid = c.confrelid
	LEFT JOIN pg_namespace fns ON fns.oid = fc.relnamespace
WHERE
	c.conrelid::INT = ANY($1::INT[])
	AND c.contype IN ('p', 'f')
ORDER BY c.conrelid, c.conname`

type Constraint struct {
	TableOID       int
	ConstraintName string
	// p - PRIMARY KEY, f - FOREIGN KEY
	ConstraintType string
	Columns        []string

	ForeignSchemaName sql.NullString
	ForeignTableName  sql.NullString
	ForeignColumns    []string

	// Значения pg_constraint.confdeltype и confupdtype
	OnDelete string
	OnUpdate string
}

func (Queries) Constraints(ctx context.Context, exec Executor, tableOIDs []int) ([]Constraint, error) {
	return QueryAll(
		ctx, exec,
		func(scan pgx.Rows, v *Constraint) error {
			return scan.Scan(
				&v.TableOID,
				&v.ConstraintName,
				&v.ConstraintType,
				&v.Columns,

				&v.ForeignSchemaName,
				&v.ForeignTableName,
				&v.ForeignColumns,

				&v.OnDelete,
				&v.OnUpdate,
			)
		},
		queryConstraintsSQL, tableOIDs)
}

const queryIndexesSQL = `-- list indexes
SELECT
	i.indrelid::INT AS table_oid,
	ic.relname AS index_name,
	i.indisunique AS is_unique,
	i.indisprimary AS is_primary,
	ARRAY(
		SELECT a.attname
		FROM unnest(i.indkey::SMALLINT[]) WITH ORDINALITY AS k(attnum, n)
			JOIN pg_attribute a ON a.attrelid = i.indrelid AND a.attnum = k.attnum
		ORDER BY k.n
	)::TEXT[] AS columns
FROM
	pg_index i
	JOIN pg_class ic ON ic.oid = i.indexrelid
WHERE
	i.indrelid::INT = ANY($1::INT[])
ORDER BY i.indrelid, ic.relname`

type Index struct {
	TableOID  int
	IndexName string
	IsUnique  bool
	IsPrimary bool
	// Пустой для индексов по выражениям
	Columns []string
}

func (Queries) Indexes(ctx context.Context, exec Executor, tableOIDs []int) ([]Index, error) {
	return QueryAll(
		ctx, exec,
		func(scan pgx.Rows, v *Index) error {
			return scan.Scan(
				&v.TableOID,
				&v.IndexName,
				&v.IsUnique,
				&v.IsPrimary,
				&v.Columns,
			)
		},
		queryIndexesSQL, tableOIDs)
}
