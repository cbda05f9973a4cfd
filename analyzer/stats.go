package analyzer

import "github.com/Feresey/schemagraph/graph"

type SchemaStatistics struct {
	Schema            string `json:"schema"`
	Tables            int    `json:"tables"`
	Columns           int    `json:"columns"`
	Indexes           int    `json:"indexes"`
	Constraints       int    `json:"constraints"`
	ForeignKeys       int    `json:"foreignKeys"`
	PrimaryKeyColumns int    `json:"primaryKeyColumns"`
}

// GetSchemaStatistics считает элементы одной схемы.
// Внешний ключ относится к схеме колонки, из которой он исходит.
func (a *Analyzer) GetSchemaStatistics(schemaName string) SchemaStatistics {
	schemaName = schemaOrDefault(schemaName)
	st := SchemaStatistics{Schema: schemaName}

	counters := map[graph.NodeType]*int{
		graph.NodeTypeTable:      &st.Tables,
		graph.NodeTypeColumn:     &st.Columns,
		graph.NodeTypeIndex:      &st.Indexes,
		graph.NodeTypeConstraint: &st.Constraints,
	}
	for typ, counter := range counters {
		for _, n := range a.db.GetNodesByType(typ) {
			if n.Schema == schemaName {
				*counter++
			}
		}
	}

	inSchema := func(id string) bool {
		n := a.db.GetNode(id)
		return n != nil && n.Schema == schemaName
	}
	for _, e := range a.db.GetEdgesByType(graph.EdgeTypeForeignKey) {
		if inSchema(e.SourceID) {
			st.ForeignKeys++
		}
	}
	for _, e := range a.db.GetEdgesByType(graph.EdgeTypePrimaryKey) {
		if inSchema(e.SourceID) {
			st.PrimaryKeyColumns++
		}
	}
	return st
}
