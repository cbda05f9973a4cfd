// Package graph реализует хранимый в памяти типизированный граф,
// которым описывается структура реляционной схемы: таблицы, колонки, индексы,
// ограничения и внешние ключи.
//
// Database не потокобезопасна для изменений: операции чтения можно вызывать
// параллельно друг с другом, но не параллельно с AddNode, RemoveNode, AddEdge,
// RemoveEdge, Merge и Clear.
package graph

import (
	"sync/atomic"

	mapset "github.com/deckarep/golang-set/v2"
	"go.uber.org/zap"
)

const (
	DefaultMaxNodes      = 100_000
	DefaultMaxEdges      = 500_000
	DefaultPathCacheSize = 1000
)

type Config struct {
	MaxNodes int
	MaxEdges int
	// Поддерживать индексы по типу и имени. Без индексов поиск идёт перебором.
	EnableIndexing bool
	// Кэшировать результаты FindPath.
	EnablePathCaching bool
	PathCacheSize     int
}

func DefaultConfig() Config {
	return Config{
		MaxNodes:          DefaultMaxNodes,
		MaxEdges:          DefaultMaxEdges,
		EnableIndexing:    true,
		EnablePathCaching: true,
		PathCacheSize:     DefaultPathCacheSize,
	}
}

func (c Config) withDefaults() Config {
	if c.MaxNodes <= 0 {
		c.MaxNodes = DefaultMaxNodes
	}
	if c.MaxEdges <= 0 {
		c.MaxEdges = DefaultMaxEdges
	}
	if c.PathCacheSize <= 0 {
		c.PathCacheSize = DefaultPathCacheSize
	}
	return c
}

// Database - хранилище вершин и рёбер с индексами по типу и имени.
type Database struct {
	log *zap.Logger
	cfg Config

	nodes     map[string]*Node
	edges     map[string]*Edge
	nodeOrder *orderedSet
	edgeOrder *orderedSet

	nodesByType index[NodeType]
	nodesByName index[string]
	edgesByType index[EdgeType]

	// Версия топологии. Увеличивается при каждом изменении графа,
	// записи кэша путей с другой версией считаются устаревшими.
	version uint64
	cache   *pathCache

	indexLookups atomic.Uint64
	indexScans   atomic.Uint64
}

func New(log *zap.Logger, cfg Config) *Database {
	if log == nil {
		log = zap.NewNop()
	}
	cfg = cfg.withDefaults()
	db := &Database{
		log:   log.Named("graph"),
		cfg:   cfg,
		cache: newPathCache(cfg.PathCacheSize, cfg.EnablePathCaching),
	}
	db.reset()
	return db
}

func (db *Database) reset() {
	db.nodes = make(map[string]*Node)
	db.edges = make(map[string]*Edge)
	db.nodeOrder = newOrderedSet()
	db.edgeOrder = newOrderedSet()
	db.nodesByType = make(index[NodeType])
	db.nodesByName = make(index[string])
	db.edgesByType = make(index[EdgeType])
}

func (db *Database) Config() Config { return db.cfg }

func (db *Database) NodeCount() int { return len(db.nodes) }
func (db *Database) EdgeCount() int { return len(db.edges) }

// Version возвращает текущую версию топологии.
func (db *Database) Version() uint64 { return db.version }

type mutationKind int

const (
	mutationInsertNode mutationKind = iota + 1
	mutationDeleteNode
	mutationInsertEdge
	mutationDeleteEdge
	mutationClear
)

type mutation struct {
	kind mutationKind
	node *Node
	edge *Edge
}

// apply - единственное место, где меняются основные хранилища, индексы и списки рёбер вершин.
// Проверки выполняются до вызова.
func (db *Database) apply(m mutation) {
	switch m.kind {
	case mutationInsertNode:
		n := m.node
		db.nodes[n.ID] = n
		db.nodeOrder.Add(n.ID)
		if db.cfg.EnableIndexing {
			db.nodesByType.add(n.Type, n.ID)
			db.nodesByName.add(n.Name, n.ID)
		}
	case mutationDeleteNode:
		n := m.node
		delete(db.nodes, n.ID)
		db.nodeOrder.Remove(n.ID)
		if db.cfg.EnableIndexing {
			db.nodesByType.remove(n.Type, n.ID)
			db.nodesByName.remove(n.Name, n.ID)
		}
	case mutationInsertEdge:
		e := m.edge
		db.edges[e.ID] = e
		db.edgeOrder.Add(e.ID)
		if db.cfg.EnableIndexing {
			db.edgesByType.add(e.Type, e.ID)
		}
		db.nodes[e.SourceID].outgoing.Add(e.ID)
		db.nodes[e.TargetID].incoming.Add(e.ID)
	case mutationDeleteEdge:
		e := m.edge
		delete(db.edges, e.ID)
		db.edgeOrder.Remove(e.ID)
		if db.cfg.EnableIndexing {
			db.edgesByType.remove(e.Type, e.ID)
		}
		if src, ok := db.nodes[e.SourceID]; ok {
			src.outgoing.Remove(e.ID)
		}
		if dst, ok := db.nodes[e.TargetID]; ok {
			dst.incoming.Remove(e.ID)
		}
	case mutationClear:
		db.reset()
	default:
		panic("graph: unknown mutation kind")
	}
	db.version++
}

// AddNode добавляет копию вершины и возвращает её идентификатор.
func (db *Database) AddNode(n *Node) (string, error) {
	if err := db.checkNode(n); err != nil {
		return "", err
	}
	if _, ok := db.nodes[n.ID]; ok {
		return "", newError(ErrDuplicateID, n.ID, "node")
	}
	if len(db.nodes) >= db.cfg.MaxNodes {
		db.log.Debug("node capacity exceeded",
			zap.String("id", n.ID),
			zap.Int("max_nodes", db.cfg.MaxNodes))
		return "", newError(ErrCapacityExceeded, n.ID, "node")
	}
	db.apply(mutation{kind: mutationInsertNode, node: n.detached()})
	return n.ID, nil
}

func (db *Database) checkNode(n *Node) error {
	if n == nil {
		return newError(ErrValidation, "", "node is nil")
	}
	if n.ID == "" {
		return newError(ErrValidation, "", "node id is empty")
	}
	if !n.Type.Valid() {
		return newError(ErrValidation, n.ID, "unknown node type "+string(n.Type))
	}
	return nil
}

// GetNode возвращает копию вершины или nil.
func (db *Database) GetNode(id string) *Node {
	n, ok := db.nodes[id]
	if !ok {
		return nil
	}
	return n.Clone()
}

// HasNode проверяет наличие вершины без копирования.
func (db *Database) HasNode(id string) bool {
	_, ok := db.nodes[id]
	return ok
}

// RemoveNode удаляет вершину вместе со всеми инцидентными рёбрами.
func (db *Database) RemoveNode(id string) error {
	n, ok := db.nodes[id]
	if !ok {
		return newError(ErrNotFound, id, "node")
	}
	incident := n.outgoing.Union(n.incoming).ToSlice()
	for _, edgeID := range incident {
		db.apply(mutation{kind: mutationDeleteEdge, edge: db.edges[edgeID]})
	}
	db.apply(mutation{kind: mutationDeleteNode, node: n})
	return nil
}

func (db *Database) GetNodesByType(t NodeType) []*Node {
	if db.cfg.EnableIndexing {
		db.indexLookups.Add(1)
		return db.cloneNodes(db.nodesByType.get(t))
	}
	return db.scanNodes(func(n *Node) bool { return n.Type == t })
}

// GetNodesByName возвращает все вершины с таким именем, имя не уникально.
func (db *Database) GetNodesByName(name string) []*Node {
	if db.cfg.EnableIndexing {
		db.indexLookups.Add(1)
		return db.cloneNodes(db.nodesByName.get(name))
	}
	return db.scanNodes(func(n *Node) bool { return n.Name == name })
}

// Nodes возвращает все вершины в порядке добавления.
func (db *Database) Nodes() []*Node {
	return db.cloneNodes(db.nodeOrder.Slice())
}

func (db *Database) cloneNodes(ids []string) []*Node {
	res := make([]*Node, 0, len(ids))
	for _, id := range ids {
		res = append(res, db.nodes[id].Clone())
	}
	return res
}

func (db *Database) scanNodes(match func(n *Node) bool) []*Node {
	db.indexScans.Add(1)
	var res []*Node
	db.nodeOrder.Each(func(id string) bool {
		if n := db.nodes[id]; match(n) {
			res = append(res, n.Clone())
		}
		return true
	})
	return res
}

// AddEdge добавляет копию ребра. Обе вершины должны уже существовать.
func (db *Database) AddEdge(e *Edge) (string, error) {
	if e == nil {
		return "", newError(ErrValidation, "", "edge is nil")
	}
	if e.ID == "" {
		return "", newError(ErrValidation, "", "edge id is empty")
	}
	if err := e.validate(); err != nil {
		return "", err
	}
	if _, ok := db.nodes[e.SourceID]; !ok {
		return "", newError(ErrSourceNotFound, e.SourceID, "edge "+e.ID)
	}
	if _, ok := db.nodes[e.TargetID]; !ok {
		return "", newError(ErrTargetNotFound, e.TargetID, "edge "+e.ID)
	}
	if _, ok := db.edges[e.ID]; ok {
		return "", newError(ErrDuplicateID, e.ID, "edge")
	}
	if len(db.edges) >= db.cfg.MaxEdges {
		db.log.Debug("edge capacity exceeded",
			zap.String("id", e.ID),
			zap.Int("max_edges", db.cfg.MaxEdges))
		return "", newError(ErrCapacityExceeded, e.ID, "edge")
	}
	db.apply(mutation{kind: mutationInsertEdge, edge: e.Clone()})
	return e.ID, nil
}

func (db *Database) GetEdge(id string) *Edge {
	e, ok := db.edges[id]
	if !ok {
		return nil
	}
	return e.Clone()
}

func (db *Database) RemoveEdge(id string) error {
	e, ok := db.edges[id]
	if !ok {
		return newError(ErrNotFound, id, "edge")
	}
	db.apply(mutation{kind: mutationDeleteEdge, edge: e})
	return nil
}

func (db *Database) GetEdgesByType(t EdgeType) []*Edge {
	if db.cfg.EnableIndexing {
		db.indexLookups.Add(1)
		return db.cloneEdges(db.edgesByType.get(t))
	}
	db.indexScans.Add(1)
	var res []*Edge
	db.edgeOrder.Each(func(id string) bool {
		if e := db.edges[id]; e.Type == t {
			res = append(res, e.Clone())
		}
		return true
	})
	return res
}

// Edges возвращает все рёбра в порядке добавления.
func (db *Database) Edges() []*Edge {
	return db.cloneEdges(db.edgeOrder.Slice())
}

func (db *Database) OutgoingEdges(nodeID string) []*Edge {
	n, ok := db.nodes[nodeID]
	if !ok {
		return nil
	}
	return db.cloneEdges(sortedSet(n.outgoing))
}

func (db *Database) IncomingEdges(nodeID string) []*Edge {
	n, ok := db.nodes[nodeID]
	if !ok {
		return nil
	}
	return db.cloneEdges(sortedSet(n.incoming))
}

func (db *Database) cloneEdges(ids []string) []*Edge {
	res := make([]*Edge, 0, len(ids))
	for _, id := range ids {
		res = append(res, db.edges[id].Clone())
	}
	return res
}

// Clear удаляет все вершины и рёбра. Конфигурация и статистика кэша сохраняются.
func (db *Database) Clear() {
	db.apply(mutation{kind: mutationClear})
	db.log.Debug("graph cleared")
}

// incident возвращает рёбра вершины без копирования.
func (db *Database) incident(n *Node, dir Direction) mapset.Set[string] {
	switch dir {
	case DirectionIncoming:
		return n.incoming
	case DirectionBidirectional:
		return n.outgoing.Union(n.incoming)
	default:
		return n.outgoing
	}
}
