package graph

import (
	mapset "github.com/deckarep/golang-set/v2"
	"golang.org/x/exp/slices"
)

const DefaultMaxDepth = 3

// Direction - направление обхода рёбер.
type Direction string

const (
	DirectionOutgoing      Direction = "OUTGOING"
	DirectionIncoming      Direction = "INCOMING"
	DirectionBidirectional Direction = "BIDIRECTIONAL"
)

func (d Direction) normalize() (Direction, error) {
	switch d {
	case "":
		return DirectionOutgoing, nil
	case DirectionOutgoing, DirectionIncoming, DirectionBidirectional:
		return d, nil
	default:
		return "", newError(ErrValidation, string(d), "unknown direction")
	}
}

type RelationshipQuery struct {
	SourceNodeID string
	Direction    Direction
	// Максимальное число шагов от исходной вершины, DefaultMaxDepth если не задано.
	MaxDepth int
	// Типы рёбер, по которым разрешён переход. Пустой список - любые.
	EdgeTypes []EdgeType
}

// Subgraph - вершины и рёбра, посещённые при обходе.
type Subgraph struct {
	Nodes []*Node
	Edges []*Edge
}

// QueryRelationships обходит граф в ширину от вершины SourceNodeID,
// не дальше MaxDepth шагов, посещая каждую вершину один раз.
func (db *Database) QueryRelationships(q RelationshipQuery) (*Subgraph, error) {
	dir, err := q.Direction.normalize()
	if err != nil {
		return nil, err
	}
	src, ok := db.nodes[q.SourceNodeID]
	if !ok {
		return nil, newError(ErrNotFound, q.SourceNodeID, "source node")
	}
	depth := q.MaxDepth
	if depth <= 0 {
		depth = DefaultMaxDepth
	}
	allowed := edgeTypeFilter(q.EdgeTypes)

	res := &Subgraph{Nodes: []*Node{src.Clone()}}
	visited := mapset.NewThreadUnsafeSet(src.ID)
	seenEdges := mapset.NewThreadUnsafeSet[string]()

	frontier := []string{src.ID}
	for level := 0; level < depth && len(frontier) != 0; level++ {
		var next []string
		for _, nodeID := range frontier {
			db.eachNeighbour(db.nodes[nodeID], dir, allowed, func(e *Edge, other string) {
				if seenEdges.Add(e.ID) {
					res.Edges = append(res.Edges, e.Clone())
				}
				if visited.Add(other) {
					res.Nodes = append(res.Nodes, db.nodes[other].Clone())
					next = append(next, other)
				}
			})
		}
		frontier = next
	}
	return res, nil
}

type PathOptions struct {
	MaxDepth  int
	EdgeTypes []EdgeType
	Direction Direction
}

// Path - последовательность вершин и рёбер от начальной вершины до конечной включительно.
// len(Edges) == len(Nodes)-1.
type Path struct {
	Nodes []*Node
	Edges []*Edge
}

func (p *Path) Len() int { return len(p.Edges) }

func (p *Path) clone() *Path {
	c := &Path{
		Nodes: make([]*Node, 0, len(p.Nodes)),
		Edges: make([]*Edge, 0, len(p.Edges)),
	}
	for _, n := range p.Nodes {
		c.Nodes = append(c.Nodes, n.Clone())
	}
	for _, e := range p.Edges {
		c.Edges = append(c.Edges, e.Clone())
	}
	return c
}

// FindPath ищет кратчайший (по числу рёбер) путь между вершинами.
// Результат, в том числе отсутствие пути, кэшируется до следующего изменения графа.
func (db *Database) FindPath(fromID, toID string, opts PathOptions) (*Path, error) {
	dir, err := opts.Direction.normalize()
	if err != nil {
		return nil, err
	}
	if _, ok := db.nodes[fromID]; !ok {
		return nil, newError(ErrNotFound, fromID, "path source")
	}
	if _, ok := db.nodes[toID]; !ok {
		return nil, newError(ErrNotFound, toID, "path target")
	}
	depth := opts.MaxDepth
	if depth <= 0 {
		depth = DefaultMaxDepth
	}

	key := newPathKey(fromID, toID, opts.EdgeTypes, dir, depth)
	if path, found := db.cache.get(key, db.version); found {
		if path == nil {
			return nil, newError(ErrNotReachable, toID, "no path from "+fromID)
		}
		return path.clone(), nil
	}

	path := db.shortestPath(fromID, toID, dir, depth, edgeTypeFilter(opts.EdgeTypes))
	db.cache.put(key, db.version, path)
	if path == nil {
		return nil, newError(ErrNotReachable, toID, "no path from "+fromID)
	}
	return path.clone(), nil
}

type hop struct {
	prev string
	edge string
}

func (db *Database) shortestPath(
	fromID, toID string,
	dir Direction,
	depth int,
	allowed mapset.Set[EdgeType],
) *Path {
	if fromID == toID {
		return &Path{Nodes: []*Node{db.nodes[fromID]}}
	}

	// откуда пришли в вершину
	parents := map[string]hop{fromID: {}}
	frontier := []string{fromID}
	found := false
	for level := 0; level < depth && len(frontier) != 0 && !found; level++ {
		var next []string
		for _, nodeID := range frontier {
			db.eachNeighbour(db.nodes[nodeID], dir, allowed, func(e *Edge, other string) {
				if found {
					return
				}
				if _, ok := parents[other]; ok {
					return
				}
				parents[other] = hop{prev: nodeID, edge: e.ID}
				if other == toID {
					found = true
					return
				}
				next = append(next, other)
			})
			if found {
				break
			}
		}
		frontier = next
	}
	if !found {
		return nil
	}

	var (
		nodes []*Node
		edges []*Edge
	)
	for cur := toID; cur != fromID; {
		h := parents[cur]
		nodes = append(nodes, db.nodes[cur])
		edges = append(edges, db.edges[h.edge])
		cur = h.prev
	}
	nodes = append(nodes, db.nodes[fromID])
	reverse(nodes)
	reverse(edges)
	return &Path{Nodes: nodes, Edges: edges}
}

// eachNeighbour перебирает разрешённые рёбра вершины в порядке идентификаторов.
func (db *Database) eachNeighbour(
	n *Node,
	dir Direction,
	allowed mapset.Set[EdgeType],
	f func(e *Edge, other string),
) {
	ids := db.incident(n, dir).ToSlice()
	slices.Sort(ids)
	for _, edgeID := range ids {
		e := db.edges[edgeID]
		if allowed != nil && !allowed.Contains(e.Type) {
			continue
		}
		f(e, e.Other(n.ID))
	}
}

func edgeTypeFilter(types []EdgeType) mapset.Set[EdgeType] {
	if len(types) == 0 {
		return nil
	}
	return mapset.NewThreadUnsafeSet(types...)
}

func reverse[T any](s []T) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}
