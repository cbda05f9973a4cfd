package analyzer

import "github.com/Feresey/schemagraph/graph"

type RelationshipType string

const (
	// таблица ссылается на другую
	RelationshipParent RelationshipType = "parent"
	// другая таблица ссылается на эту
	RelationshipChild RelationshipType = "child"
)

type Relationship struct {
	Table            string           `json:"table"`
	Schema           string           `json:"schema"`
	RelationshipType RelationshipType `json:"relationshipType"`
	ForeignKeys      []ForeignKeyInfo `json:"foreignKeys"`
}

type RelationshipAnalysis struct {
	Table  string `json:"table"`
	Schema string `json:"schema"`
	// Таблицы, на которые ссылаются внешние ключи таблицы
	DirectRelationships []Relationship `json:"directRelationships"`
	// Таблицы, внешние ключи которых ссылаются на таблицу
	ReferencedBy []Relationship `json:"referencedBy"`
}

// AnalyzeTableRelationships группирует внешние ключи таблицы по таблицам, на которые они ссылаются.
// Используются только рёбра FOREIGN_KEY колонок самой таблицы, без обхода графа.
func (a *Analyzer) AnalyzeTableRelationships(name, schemaName string) *RelationshipAnalysis {
	table := a.table(name, schemaName)
	if table == nil {
		return nil
	}
	res := &RelationshipAnalysis{
		Table:               table.Name,
		Schema:              table.Schema,
		DirectRelationships: []Relationship{},
		ReferencedBy:        []Relationship{},
	}

	parents := newRelationshipGroups(RelationshipParent)
	children := newRelationshipGroups(RelationshipChild)
	for _, col := range a.columns(table) {
		for _, e := range a.db.OutgoingEdges(col.ID) {
			if e.Type != graph.EdgeTypeForeignKey {
				continue
			}
			fk := a.foreignKeyInfo(e, col)
			parents.add(fk.ReferencedSchema, fk.ReferencedTable, fk)
		}
		for _, e := range a.db.IncomingEdges(col.ID) {
			if e.Type != graph.EdgeTypeForeignKey {
				continue
			}
			source := a.db.GetNode(e.SourceID)
			if source == nil {
				continue
			}
			fk := a.foreignKeyInfo(e, source)
			children.add(source.Schema, graph.ColumnMetadataOf(source.Metadata).Table, fk)
		}
	}
	res.DirectRelationships = append(res.DirectRelationships, parents.list...)
	res.ReferencedBy = append(res.ReferencedBy, children.list...)
	return res
}

// columns возвращает колонки таблицы в порядке объявления.
func (a *Analyzer) columns(table *graph.Node) []*graph.Node {
	var res []*graph.Node
	for _, e := range a.db.OutgoingEdges(table.ID) {
		if e.Type != graph.EdgeTypeTableColumn {
			continue
		}
		if col := a.db.GetNode(e.TargetID); col != nil {
			res = append(res, col)
		}
	}
	sortColumns(res)
	return res
}

type relationshipGroups struct {
	typ   RelationshipType
	list  []Relationship
	index map[[2]string]int
}

func newRelationshipGroups(typ RelationshipType) *relationshipGroups {
	return &relationshipGroups{
		typ:   typ,
		index: make(map[[2]string]int),
	}
}

func (g *relationshipGroups) add(schemaName, table string, fk ForeignKeyInfo) {
	key := [2]string{schemaName, table}
	i, ok := g.index[key]
	if !ok {
		i = len(g.list)
		g.index[key] = i
		g.list = append(g.list, Relationship{
			Table:            table,
			Schema:           schemaName,
			RelationshipType: g.typ,
		})
	}
	g.list[i].ForeignKeys = append(g.list[i].ForeignKeys, fk)
}
