package analyzer

import (
	"errors"

	mapset "github.com/deckarep/golang-set/v2"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
	"golang.org/x/xerrors"

	"github.com/Feresey/schemagraph/graph"
)

var ErrCycle = errors.New("the graph contains a cycle")

type dependencyGraph struct {
	// map[таблица][таблицы_которые_ссылаются_на_неё]
	graph map[string][]string
}

// TableOrder возвращает таблицы схемы в порядке, в котором их можно заполнять:
// таблица идёт после всех таблиц, на которые она ссылается.
// Ссылки таблицы на саму себя и на таблицы других схем не учитываются.
func (a *Analyzer) TableOrder(schemaName string) ([]string, error) {
	schemaName = schemaOrDefault(schemaName)
	refs := make(map[string]mapset.Set[string])
	for _, t := range a.tables(schemaName) {
		refs[t.Name] = mapset.NewThreadUnsafeSet[string]()
	}

	for _, e := range a.db.GetEdgesByType(graph.EdgeTypeForeignKey) {
		child, parent := a.db.GetNode(e.SourceID), a.db.GetNode(e.TargetID)
		if child == nil || parent == nil ||
			child.Schema != schemaName || parent.Schema != schemaName {
			continue
		}
		childTable := graph.ColumnMetadataOf(child.Metadata).Table
		parentTable := graph.ColumnMetadataOf(parent.Metadata).Table
		if set, ok := refs[parentTable]; ok {
			if _, ok := refs[childTable]; ok {
				set.Add(childTable)
			}
		}
	}

	g := &dependencyGraph{graph: make(map[string][]string, len(refs))}
	for table, children := range refs {
		g.graph[table] = children.ToSlice()
	}
	order, err := g.topologicalSort()
	if err != nil {
		return nil, xerrors.Errorf("schema %q: %w", schemaName, err)
	}
	return order, nil
}

func (g *dependencyGraph) inDegrees() map[string]int {
	inDegrees := make(map[string]int)
	for parent, neighbors := range g.graph {
		for _, neighbor := range neighbors {
			if parent == neighbor {
				// ссылка сама на себя не считается циклом
				continue
			}
			inDegrees[neighbor]++
		}
	}
	return inDegrees
}

func (g *dependencyGraph) topologicalSort() ([]string, error) {
	if len(g.graph) == 0 {
		return nil, nil
	}
	result := make([]string, 0, len(g.graph))
	inDegrees := g.inDegrees()

	// sorted order
	keys := maps.Keys(g.graph)
	slices.Sort(keys)

	queue := make([]string, 0, len(g.graph))
	for _, node := range keys {
		if inDegrees[node] == 0 {
			queue = append(queue, node)
		}
	}

	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		result = append(result, node)

		var enqueue []string
		for _, neighbor := range g.graph[node] {
			if neighbor == node {
				continue
			}
			inDegrees[neighbor]--
			if inDegrees[neighbor] == 0 {
				enqueue = append(enqueue, neighbor)
			}
		}
		// sorted order
		slices.Sort(enqueue)
		queue = append(queue, enqueue...)
	}

	if len(result) != len(g.graph) {
		return nil, ErrCycle
	}
	return result, nil
}
