package schema

import (
	"fmt"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
	"golang.org/x/xerrors"

	"github.com/Feresey/schemagraph/graph"
)

// TableSchema - вершины и рёбра одной таблицы, ещё не добавленные в базу.
type TableSchema struct {
	Definition TableDefinition
	Table      *graph.Node
	Nodes      []*graph.Node
	Edges      []*graph.Edge
}

// CreateTableSchema строит вершины и рёбра таблицы без обращения к базе.
// Рёбра внешних ключей не создаются: колонка, на которую ссылается ключ,
// может принадлежать другой таблице. Для каждого внешнего ключа создаётся вершина CONSTRAINT.
func CreateTableSchema(def TableDefinition) (*TableSchema, error) {
	name := strings.TrimSpace(def.TableName)
	if name == "" {
		return nil, xerrors.Errorf("table name is empty: %w", ErrInvalidDefinition)
	}
	def.TableName = name
	// имена ключей дописываются в копию
	def.ForeignKeys = append([]ForeignKeyDefinition(nil), def.ForeignKeys...)
	schemaName := def.SchemaName()
	tableID := TableID(schemaName, name)

	ts := &TableSchema{
		Definition: def,
		Table:      graph.NewTableNode(tableID, name, schemaName, graph.TableMetadata{Comment: def.Comment}),
	}
	ts.Nodes = append(ts.Nodes, ts.Table)

	columns := mapset.NewThreadUnsafeSet[string]()
	for i, col := range def.Columns {
		if col.Name == "" {
			return nil, xerrors.Errorf("table %s: column #%d has no name: %w", &def, i+1, ErrInvalidDefinition)
		}
		if !columns.Add(col.Name) {
			return nil, xerrors.Errorf("table %s: duplicate column %q: %w", &def, col.Name, ErrInvalidDefinition)
		}
		colID := ColumnID(schemaName, name, col.Name)
		ts.Nodes = append(ts.Nodes, graph.NewColumnNode(colID, col.Name, schemaName, graph.ColumnMetadata{
			Table:    name,
			DataType: col.DataType,
			Nullable: col.Nullable,
			Default:  col.Default,
			Position: i + 1,
		}))
		ts.Edges = append(ts.Edges, graph.NewTableColumnEdge(tableColumnEdgeID(colID), tableID, colID))
		if col.PrimaryKey {
			ts.Edges = append(ts.Edges, graph.NewPrimaryKeyEdge(primaryKeyEdgeID(colID), tableID, colID))
		}
	}

	if err := ts.addIndexes(columns); err != nil {
		return nil, err
	}
	if err := ts.addForeignKeyConstraints(columns); err != nil {
		return nil, err
	}
	return ts, nil
}

func (ts *TableSchema) addIndexes(columns mapset.Set[string]) error {
	def := &ts.Definition
	schemaName := def.SchemaName()
	names := mapset.NewThreadUnsafeSet[string]()

	for _, idx := range def.Indexes {
		if len(idx.Columns) == 0 {
			return xerrors.Errorf("table %s: index %q has no columns: %w", def, idx.Name, ErrInvalidDefinition)
		}
		for _, col := range idx.Columns {
			if !columns.Contains(col) {
				return xerrors.Errorf("table %s: index %q: unknown column %q: %w", def, idx.Name, col, ErrInvalidDefinition)
			}
		}
		name := idx.Name
		if name == "" {
			name = generatedName("idx", ts.Table.ID, idx.Columns...)
		}
		if !names.Add(name) {
			return xerrors.Errorf("table %s: duplicate index %q: %w", def, name, ErrInvalidDefinition)
		}

		indexID := IndexID(schemaName, def.TableName, name)
		ts.Nodes = append(ts.Nodes, graph.NewIndexNode(indexID, name, schemaName, graph.IndexMetadata{
			Table:   def.TableName,
			Unique:  idx.Unique,
			Columns: idx.Columns,
		}))
		ts.Edges = append(ts.Edges, graph.NewTableIndexEdge(tableIndexEdgeID(indexID), ts.Table.ID, indexID))
		for pos, col := range idx.Columns {
			ts.Edges = append(ts.Edges, graph.NewIndexColumnEdge(
				indexColumnEdgeID(indexID, col),
				indexID,
				ColumnID(schemaName, def.TableName, col),
				pos,
			))
		}
	}
	return nil
}

func (ts *TableSchema) addForeignKeyConstraints(columns mapset.Set[string]) error {
	def := &ts.Definition
	schemaName := def.SchemaName()
	names := mapset.NewThreadUnsafeSet[string]()

	for i := range def.ForeignKeys {
		fk := &def.ForeignKeys[i]
		if !columns.Contains(fk.Column) {
			return xerrors.Errorf("table %s: foreign key on unknown column %q: %w", def, fk.Column, ErrInvalidDefinition)
		}
		if fk.ReferencedTable == "" || fk.ReferencedColumn == "" {
			return xerrors.Errorf("table %s: foreign key on %q has no reference: %w", def, fk.Column, ErrInvalidDefinition)
		}
		if fk.Name == "" {
			fk.Name = generatedName("fk", ts.Table.ID, fk.Column, fk.ReferencedSchema, fk.ReferencedTable, fk.ReferencedColumn)
		}
		if !names.Add(fk.Name) {
			return xerrors.Errorf("table %s: duplicate constraint %q: %w", def, fk.Name, ErrInvalidDefinition)
		}

		constraintID := ConstraintID(schemaName, def.TableName, fk.Name)
		ts.Nodes = append(ts.Nodes, graph.NewConstraintNode(constraintID, fk.Name, schemaName, graph.ConstraintMetadata{
			Table:      def.TableName,
			Kind:       graph.ConstraintKindForeignKey,
			Definition: fk.definition(schemaName),
		}))
		ts.Edges = append(ts.Edges, graph.NewTableConstraintEdge(tableConstraintEdgeID(constraintID), ts.Table.ID, constraintID))
	}
	return nil
}

// ReferencedSchemaName - схема таблицы, на которую ссылается ключ.
func (fk *ForeignKeyDefinition) ReferencedSchemaName(tableSchema string) string {
	if fk.ReferencedSchema == "" {
		return tableSchema
	}
	return fk.ReferencedSchema
}

func (fk *ForeignKeyDefinition) definition(tableSchema string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "FOREIGN KEY (%s) REFERENCES %s.%s(%s)",
		fk.Column, fk.ReferencedSchemaName(tableSchema), fk.ReferencedTable, fk.ReferencedColumn)
	if fk.OnDelete != "" {
		sb.WriteString(" ON DELETE " + fk.OnDelete)
	}
	if fk.OnUpdate != "" {
		sb.WriteString(" ON UPDATE " + fk.OnUpdate)
	}
	return sb.String()
}
