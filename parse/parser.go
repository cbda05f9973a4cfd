// Package parse читает описание схемы из каталога PostgreSQL.
package parse

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
	"golang.org/x/xerrors"

	"github.com/Feresey/schemagraph/parse/queries"
	"github.com/Feresey/schemagraph/schema"
)

type Config struct {
	Patterns []Pattern
}

type Pattern struct {
	Schema string
	Tables string
}

type Parser struct {
	conn queries.Executor
	log  *zap.Logger
	q    Queries
}

type Queries interface {
	Tables(context.Context, queries.Executor, []queries.TablesPattern) ([]queries.Table, error)
	Columns(context.Context, queries.Executor, []int) ([]queries.Column, error)
	Constraints(context.Context, queries.Executor, []int) ([]queries.Constraint, error)
	Indexes(context.Context, queries.Executor, []int) ([]queries.Index, error)
}

func NewParser(
	conn queries.Executor,
	log *zap.Logger,
) *Parser {
	if log == nil {
		log = zap.NewNop()
	}
	return &Parser{
		log:  log.Named("parser"),
		conn: conn,
		q:    queries.Queries{},
	}
}

// parseState - таблицы в процессе сборки, по oid.
type parseState struct {
	tables map[int]*schema.TableDefinition
	// oid таблицы -> имя колонки -> индекс в Columns
	columns map[int]map[string]int
}

func (s *parseState) column(oid int, name string) *schema.ColumnDefinition {
	table, ok := s.tables[oid]
	if !ok {
		return nil
	}
	idx, ok := s.columns[oid][name]
	if !ok {
		return nil
	}
	return &table.Columns[idx]
}

// LoadSchema собирает описание таблиц, подходящих под шаблоны.
// Внешние ключи на таблицы вне шаблонов остаются в описании как есть.
func (p *Parser) LoadSchema(ctx context.Context, conf Config) (*schema.Definition, error) {
	s := &parseState{
		tables:  make(map[int]*schema.TableDefinition),
		columns: make(map[int]map[string]int),
	}

	patterns := make([]queries.TablesPattern, 0, len(conf.Patterns))
	for _, p := range conf.Patterns {
		patterns = append(patterns, queries.TablesPattern(p))
	}

	if err := p.loadTables(ctx, s, patterns); err != nil {
		return nil, xerrors.Errorf("load tables: %w", err)
	}
	tableOIDs := mapKeys(s.tables)
	if len(tableOIDs) == 0 {
		p.log.Warn("no tables found", zap.Any("patterns", conf.Patterns))
		return &schema.Definition{}, nil
	}
	if err := p.loadTablesColumns(ctx, s, tableOIDs); err != nil {
		return nil, xerrors.Errorf("load tables columns: %w", err)
	}
	if err := p.loadConstraints(ctx, s, tableOIDs); err != nil {
		return nil, xerrors.Errorf("load constraints: %w", err)
	}
	if err := p.loadIndexes(ctx, s, tableOIDs); err != nil {
		return nil, xerrors.Errorf("load indexes: %w", err)
	}

	def := &schema.Definition{Tables: make([]schema.TableDefinition, 0, len(tableOIDs))}
	for _, oid := range tableOIDs {
		def.Tables = append(def.Tables, *s.tables[oid])
	}
	return def, nil
}

// loadTables получает имена таблиц, найденных в схемах.
func (p *Parser) loadTables(
	ctx context.Context,
	s *parseState,
	patterns []queries.TablesPattern,
) error {
	tables, err := p.q.Tables(ctx, p.conn, patterns)
	if err != nil {
		p.log.Error("failed to query tables", zap.Error(err))
		return err
	}
	p.log.Debug("loaded tables", zap.Int("n", len(tables)))

	for _, dbtable := range tables {
		s.tables[dbtable.OID] = &schema.TableDefinition{
			TableName: dbtable.Table,
			Schema:    dbtable.Schema,
			Comment:   dbtable.Comment.String,
		}
		s.columns[dbtable.OID] = make(map[string]int)
	}
	return nil
}

// loadTablesColumns загружает колонки таблиц в порядке attnum.
func (p *Parser) loadTablesColumns(
	ctx context.Context,
	s *parseState,
	tableOIDs []int,
) error {
	columns, err := p.q.Columns(ctx, p.conn, tableOIDs)
	if err != nil {
		p.log.Error("failed to query tables columns", zap.Error(err))
		return err
	}
	p.log.Debug("columns loaded", zap.Int("n", len(columns)))

	slices.SortStableFunc(columns, func(a, b queries.Column) bool {
		if a.TableOID != b.TableOID {
			return a.TableOID < b.TableOID
		}
		return a.ColumnNum < b.ColumnNum
	})

	for _, dbcolumn := range columns {
		table, ok := s.tables[dbcolumn.TableOID]
		if !ok {
			return xerrors.Errorf("column %q: table with oid %d not found", dbcolumn.ColumnName, dbcolumn.TableOID)
		}
		s.columns[dbcolumn.TableOID][dbcolumn.ColumnName] = len(table.Columns)
		table.Columns = append(table.Columns, schema.ColumnDefinition{
			Name:     dbcolumn.ColumnName,
			DataType: dbcolumn.TypeName,
			Nullable: dbcolumn.IsNullable,
			Default:  dbcolumn.DefaultExpr.String,
		})
	}
	return nil
}

// loadConstraints отмечает колонки первичных ключей и собирает внешние ключи.
func (p *Parser) loadConstraints(
	ctx context.Context,
	s *parseState,
	tableOIDs []int,
) error {
	constraints, err := p.q.Constraints(ctx, p.conn, tableOIDs)
	if err != nil {
		p.log.Error("failed to query constraints", zap.Error(err))
		return err
	}
	p.log.Debug("constraints loaded", zap.Int("n", len(constraints)))

	for _, c := range constraints {
		table, ok := s.tables[c.TableOID]
		if !ok {
			return xerrors.Errorf("constraint %q: table with oid %d not found", c.ConstraintName, c.TableOID)
		}

		switch c.ConstraintType {
		case "p":
			for _, name := range c.Columns {
				col := s.column(c.TableOID, name)
				if col == nil {
					return xerrors.Errorf("primary key %q: column %q not found", c.ConstraintName, name)
				}
				col.PrimaryKey = true
			}
		case "f":
			fks, err := foreignKeys(c)
			if err != nil {
				return err
			}
			table.ForeignKeys = append(table.ForeignKeys, fks...)
		default:
			p.log.Debug("skip constraint",
				zap.String("name", c.ConstraintName),
				zap.String("type", c.ConstraintType))
		}
	}
	return nil
}

// foreignKeys раскладывает составной ключ на пары колонок.
// Имя каждой пары кроме первой получает суффикс с именем колонки.
func foreignKeys(c queries.Constraint) ([]schema.ForeignKeyDefinition, error) {
	if len(c.Columns) == 0 || len(c.Columns) != len(c.ForeignColumns) {
		return nil, xerrors.Errorf("foreign key %q: columns mismatch: %v -> %v",
			c.ConstraintName, c.Columns, c.ForeignColumns)
	}
	if !c.ForeignTableName.Valid {
		return nil, xerrors.Errorf("foreign key %q: referenced table is unknown", c.ConstraintName)
	}

	fks := make([]schema.ForeignKeyDefinition, 0, len(c.Columns))
	for i, column := range c.Columns {
		name := c.ConstraintName
		if i > 0 {
			name = fmt.Sprintf("%s_%s", c.ConstraintName, column)
		}
		fks = append(fks, schema.ForeignKeyDefinition{
			Name:             name,
			Column:           column,
			ReferencedSchema: c.ForeignSchemaName.String,
			ReferencedTable:  c.ForeignTableName.String,
			ReferencedColumn: c.ForeignColumns[i],
			OnDelete:         referentialAction(c.OnDelete),
			OnUpdate:         referentialAction(c.OnUpdate),
		})
	}
	return fks, nil
}

// referentialAction переводит код pg_constraint в текст SQL.
// NO ACTION поведение по умолчанию, поэтому не записывается.
func referentialAction(code string) string {
	switch strings.TrimSpace(code) {
	case "r":
		return "RESTRICT"
	case "c":
		return "CASCADE"
	case "n":
		return "SET NULL"
	case "d":
		return "SET DEFAULT"
	default:
		return ""
	}
}

// loadIndexes загружает индексы. Индекс первичного ключа и индексы по выражениям пропускаются.
func (p *Parser) loadIndexes(
	ctx context.Context,
	s *parseState,
	tableOIDs []int,
) error {
	indexes, err := p.q.Indexes(ctx, p.conn, tableOIDs)
	if err != nil {
		p.log.Error("failed to query indexes", zap.Error(err))
		return err
	}
	p.log.Debug("indexes loaded", zap.Int("n", len(indexes)))

	for _, idx := range indexes {
		table, ok := s.tables[idx.TableOID]
		if !ok {
			return xerrors.Errorf("index %q: table with oid %d not found", idx.IndexName, idx.TableOID)
		}
		if idx.IsPrimary {
			continue
		}
		if len(idx.Columns) == 0 {
			p.log.Debug("skip expression index", zap.String("name", idx.IndexName))
			continue
		}
		table.Indexes = append(table.Indexes, schema.IndexDefinition{
			Name:    idx.IndexName,
			Columns: slices.Clone(idx.Columns),
			Unique:  idx.IsUnique,
		})
	}
	return nil
}

func mapKeys[V any](m map[int]V) []int {
	keys := maps.Keys(m)
	slices.Sort(keys)
	return keys
}
