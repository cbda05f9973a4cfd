package analyzer

import (
	"strings"

	"go.uber.org/zap"

	"github.com/Feresey/schemagraph/graph"
	"github.com/Feresey/schemagraph/schema"
)

// JoinStep - соединение двух таблиц по внешнему ключу.
type JoinStep struct {
	FromSchema string `json:"fromSchema"`
	FromTable  string `json:"fromTable"`
	FromColumn string `json:"fromColumn"`
	ToSchema   string `json:"toSchema"`
	ToTable    string `json:"toTable"`
	ToColumn   string `json:"toColumn"`
}

type JoinPath struct {
	From   string     `json:"from"`
	To     string     `json:"to"`
	Schema string     `json:"schema"`
	Steps  []JoinStep `json:"steps"`
	// Готовый фрагмент FROM ... JOIN ... ON ...
	SQL string `json:"sql"`
}

var joinEdgeTypes = []graph.EdgeType{graph.EdgeTypeTableColumn, graph.EdgeTypeForeignKey}

// FindJoinPath подбирает цепочку внешних ключей, соединяющую две таблицы схемы.
// Поиск ограничен глубиной Config.JoinMaxDepth, поэтому nil означает
// "подсказки нет", а не "таблицы не связаны".
func (a *Analyzer) FindJoinPath(from, to, schemaName string) *JoinPath {
	schemaName = schemaOrDefault(schemaName)
	src, dst := a.table(from, schemaName), a.table(to, schemaName)
	if src == nil || dst == nil || src.ID == dst.ID {
		return nil
	}

	path, err := a.db.FindPath(src.ID, dst.ID, graph.PathOptions{
		MaxDepth:  a.cfg.JoinMaxDepth,
		EdgeTypes: joinEdgeTypes,
		Direction: graph.DirectionBidirectional,
	})
	if err != nil {
		a.log.Debug("join path not found",
			zap.String("from", from),
			zap.String("to", to),
			zap.String("schema", schemaName),
			zap.Error(err))
		return nil
	}

	jp := &JoinPath{
		From:   from,
		To:     to,
		Schema: schemaName,
		Steps:  []JoinStep{},
	}
	for i, e := range path.Edges {
		if e.Type != graph.EdgeTypeForeignKey {
			continue
		}
		left, right := path.Nodes[i], path.Nodes[i+1]
		jp.Steps = append(jp.Steps, JoinStep{
			FromSchema: left.Schema,
			FromTable:  graph.ColumnMetadataOf(left.Metadata).Table,
			FromColumn: left.Name,
			ToSchema:   right.Schema,
			ToTable:    graph.ColumnMetadataOf(right.Metadata).Table,
			ToColumn:   right.Name,
		})
	}
	jp.SQL = joinSQL(src, jp.Steps)
	return jp
}

// FindMultiTableJoinPaths ищет пути для каждой пары таблиц. Пары без пути пропускаются.
func (a *Analyzer) FindMultiTableJoinPaths(tables []string, schemaName string) []*JoinPath {
	res := []*JoinPath{}
	for i := 0; i < len(tables); i++ {
		for j := i + 1; j < len(tables); j++ {
			if jp := a.FindJoinPath(tables[i], tables[j], schemaName); jp != nil {
				res = append(res, jp)
			}
		}
	}
	return res
}

func qualifiedName(schemaName, name string) string {
	if schemaName == schema.DefaultSchema {
		return name
	}
	return schemaName + "." + name
}

func joinSQL(from *graph.Node, steps []JoinStep) string {
	var sb strings.Builder
	sb.WriteString("FROM " + qualifiedName(from.Schema, from.Name))
	for _, s := range steps {
		left := qualifiedName(s.FromSchema, s.FromTable)
		right := qualifiedName(s.ToSchema, s.ToTable)
		sb.WriteString("\nJOIN " + right + " ON " + left + "." + s.FromColumn + " = " + right + "." + s.ToColumn)
	}
	return sb.String()
}
