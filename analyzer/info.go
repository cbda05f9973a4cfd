package analyzer

import (
	mapset "github.com/deckarep/golang-set/v2"
	"golang.org/x/exp/slices"

	"github.com/Feresey/schemagraph/graph"
)

type ColumnInfo struct {
	Name         string `json:"name"`
	DataType     string `json:"dataType"`
	Nullable     bool   `json:"nullable"`
	Default      string `json:"defaultValue,omitempty"`
	Position     int    `json:"position"`
	IsPrimaryKey bool   `json:"isPrimaryKey"`
	IsForeignKey bool   `json:"isForeignKey"`
}

// ForeignKeyInfo описывает ссылку колонки Column таблицы на колонку другой таблицы.
type ForeignKeyInfo struct {
	Constraint       string `json:"constraint,omitempty"`
	Column           string `json:"column"`
	ReferencedSchema string `json:"referencedSchema"`
	ReferencedTable  string `json:"referencedTable"`
	ReferencedColumn string `json:"referencedColumn"`
	OnDelete         string `json:"onDelete,omitempty"`
	OnUpdate         string `json:"onUpdate,omitempty"`
}

type IndexInfo struct {
	Name    string   `json:"name"`
	Columns []string `json:"columns"`
	Unique  bool     `json:"unique"`
}

type TableInfo struct {
	Name    string `json:"name"`
	Schema  string `json:"schema"`
	Comment string `json:"comment,omitempty"`
	// Колонки в порядке объявления
	Columns     []ColumnInfo     `json:"columns"`
	PrimaryKey  []string         `json:"primaryKey"`
	ForeignKeys []ForeignKeyInfo `json:"foreignKeys"`
	Indexes     []IndexInfo      `json:"indexes"`
}

func (t *TableInfo) String() string { return t.Schema + "." + t.Name }

// Column возвращает колонку по имени или nil.
func (t *TableInfo) Column(name string) *ColumnInfo {
	for i := range t.Columns {
		if t.Columns[i].Name == name {
			return &t.Columns[i]
		}
	}
	return nil
}

// GetTableInfo собирает описание таблицы по графу. Если таблицы нет, возвращает nil.
func (a *Analyzer) GetTableInfo(name, schemaName string) *TableInfo {
	table := a.table(name, schemaName)
	if table == nil {
		return nil
	}
	return a.tableInfo(table)
}

func (a *Analyzer) tableInfo(table *graph.Node) *TableInfo {
	info := &TableInfo{
		Name:        table.Name,
		Schema:      table.Schema,
		Comment:     graph.TableMetadataOf(table.Metadata).Comment,
		Columns:     []ColumnInfo{},
		PrimaryKey:  []string{},
		ForeignKeys: []ForeignKeyInfo{},
		Indexes:     []IndexInfo{},
	}

	var (
		columns []*graph.Node
		pk      = mapset.NewThreadUnsafeSet[string]()
		indexes []*graph.Node
	)
	for _, e := range a.db.OutgoingEdges(table.ID) {
		switch e.Type {
		case graph.EdgeTypeTableColumn:
			if col := a.db.GetNode(e.TargetID); col != nil {
				columns = append(columns, col)
			}
		case graph.EdgeTypePrimaryKey:
			pk.Add(e.TargetID)
		case graph.EdgeTypeTableIndex:
			if idx := a.db.GetNode(e.TargetID); idx != nil {
				indexes = append(indexes, idx)
			}
		case graph.EdgeTypeForeignKey,
			graph.EdgeTypeIndexColumn,
			graph.EdgeTypeTableConstraint:
		}
	}
	sortColumns(columns)

	for _, col := range columns {
		meta := graph.ColumnMetadataOf(col.Metadata)
		ci := ColumnInfo{
			Name:         col.Name,
			DataType:     meta.DataType,
			Nullable:     meta.Nullable,
			Default:      meta.Default,
			Position:     meta.Position,
			IsPrimaryKey: pk.Contains(col.ID),
		}
		for _, fk := range a.foreignKeys(col) {
			ci.IsForeignKey = true
			info.ForeignKeys = append(info.ForeignKeys, fk)
		}
		if ci.IsPrimaryKey {
			info.PrimaryKey = append(info.PrimaryKey, col.Name)
		}
		info.Columns = append(info.Columns, ci)
	}

	for _, idx := range indexes {
		meta := graph.IndexMetadataOf(idx.Metadata)
		info.Indexes = append(info.Indexes, IndexInfo{
			Name:    idx.Name,
			Columns: meta.Columns,
			Unique:  meta.Unique,
		})
	}
	slices.SortFunc(info.Indexes, func(a, b IndexInfo) bool { return a.Name < b.Name })
	return info
}

// foreignKeys возвращает внешние ключи, исходящие из колонки.
func (a *Analyzer) foreignKeys(col *graph.Node) []ForeignKeyInfo {
	var res []ForeignKeyInfo
	for _, e := range a.db.OutgoingEdges(col.ID) {
		if e.Type != graph.EdgeTypeForeignKey {
			continue
		}
		res = append(res, a.foreignKeyInfo(e, col))
	}
	return res
}

// foreignKeyInfo описывает ребро внешнего ключа. Если вершина, на которую ссылается ребро,
// есть в графе, таблица и схема берутся из неё, иначе из метаданных ребра.
func (a *Analyzer) foreignKeyInfo(e *graph.Edge, source *graph.Node) ForeignKeyInfo {
	meta := graph.ForeignKeyMetadataOf(e.Metadata)
	fk := ForeignKeyInfo{
		Constraint:       meta.Constraint,
		Column:           source.Name,
		ReferencedSchema: meta.ReferencedSchema,
		ReferencedTable:  meta.ReferencedTable,
		ReferencedColumn: meta.ReferencedColumn,
		OnDelete:         meta.OnDelete,
		OnUpdate:         meta.OnUpdate,
	}
	if target := a.db.GetNode(e.TargetID); target != nil {
		fk.ReferencedSchema = target.Schema
		fk.ReferencedTable = graph.ColumnMetadataOf(target.Metadata).Table
		fk.ReferencedColumn = target.Name
	}
	if fk.ReferencedSchema == "" {
		fk.ReferencedSchema = source.Schema
	}
	return fk
}

func sortColumns(columns []*graph.Node) {
	slices.SortStableFunc(columns, func(a, b *graph.Node) bool {
		pa, pb := graph.ColumnMetadataOf(a.Metadata).Position, graph.ColumnMetadataOf(b.Metadata).Position
		if pa != pb {
			return pa < pb
		}
		return a.Name < b.Name
	})
}
