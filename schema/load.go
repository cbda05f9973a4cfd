package schema

import (
	"bytes"
	"errors"

	mapset "github.com/deckarep/golang-set/v2"
	"go.uber.org/zap"
	"golang.org/x/xerrors"

	"github.com/Feresey/schemagraph/graph"
)

// Load строит новую базу по описанию схемы.
// Сначала добавляются вершины всех таблиц, затем рёбра таблиц и в конце рёбра внешних ключей.
// Внешний ключ, колонку которого не удалось найти, пропускается с предупреждением.
func Load(log *zap.Logger, def *Definition, cfg graph.Config) (*graph.Database, error) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("schema")
	if def == nil {
		return nil, xerrors.Errorf("definition is nil: %w", ErrInvalidDefinition)
	}

	tables := make([]*TableSchema, 0, len(def.Tables))
	ids := mapset.NewThreadUnsafeSet[string]()
	for _, td := range def.Tables {
		ts, err := CreateTableSchema(td)
		if err != nil {
			return nil, err
		}
		if !ids.Add(ts.Table.ID) {
			return nil, xerrors.Errorf("duplicate table %s: %w", &ts.Definition, ErrInvalidDefinition)
		}
		tables = append(tables, ts)
	}

	db := graph.New(log, cfg)
	for _, ts := range tables {
		for _, n := range ts.Nodes {
			if _, err := db.AddNode(n); err != nil {
				return nil, xerrors.Errorf("add node of table %s: %w", &ts.Definition, err)
			}
		}
	}
	for _, ts := range tables {
		for _, e := range ts.Edges {
			if _, err := db.AddEdge(e); err != nil {
				return nil, xerrors.Errorf("add edge of table %s: %w", &ts.Definition, err)
			}
		}
	}

	var skipped int
	for _, ts := range tables {
		n, err := addForeignKeys(log, db, ts)
		if err != nil {
			return nil, err
		}
		skipped += n
	}

	log.Debug("schema loaded",
		zap.Int("tables", len(tables)),
		zap.Int("nodes", db.NodeCount()),
		zap.Int("edges", db.EdgeCount()),
		zap.Int("skipped_foreign_keys", skipped))
	return db, nil
}

func addForeignKeys(log *zap.Logger, db *graph.Database, ts *TableSchema) (skipped int, err error) {
	def := &ts.Definition
	schemaName := def.SchemaName()
	for _, fk := range def.ForeignKeys {
		refSchema := fk.ReferencedSchemaName(schemaName)
		source := ColumnID(schemaName, def.TableName, fk.Column)
		target := ColumnID(refSchema, fk.ReferencedTable, fk.ReferencedColumn)
		if !db.HasNode(target) {
			log.Warn("foreign key reference not found",
				zap.Stringer("table", def),
				zap.String("constraint", fk.Name),
				zap.String("column", fk.Column),
				zap.String("referenced", refSchema+"."+fk.ReferencedTable+"."+fk.ReferencedColumn))
			skipped++
			continue
		}

		_, err := db.AddEdge(graph.NewForeignKeyEdge(ForeignKeyEdgeID(source, target), source, target, graph.ForeignKeyMetadata{
			ReferencedTable:  fk.ReferencedTable,
			ReferencedColumn: fk.ReferencedColumn,
			ReferencedSchema: refSchema,
			Constraint:       fk.Name,
			OnDelete:         fk.OnDelete,
			OnUpdate:         fk.OnUpdate,
		}))
		switch {
		case errors.Is(err, graph.ErrDuplicateID):
			// та же пара колонок уже связана другим ограничением
			log.Debug("duplicate foreign key edge",
				zap.Stringer("table", def),
				zap.String("constraint", fk.Name))
			skipped++
		case err != nil:
			return skipped, xerrors.Errorf("add foreign key %s of table %s: %w", fk.Name, def, err)
		}
	}
	return skipped, nil
}

// LoadFromJSON разбирает описание схемы вида {"tables": [...]} и строит по нему базу.
func LoadFromJSON(log *zap.Logger, data []byte, cfg graph.Config) (*graph.Database, error) {
	def, err := ReadDefinition(bytes.NewReader(data), FormatJSON)
	if err != nil {
		return nil, xerrors.Errorf("%v: %w", err, ErrInvalidDefinition)
	}
	return Load(log, def, cfg)
}
