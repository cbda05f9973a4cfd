package graph

import (
	mapset "github.com/deckarep/golang-set/v2"
	"golang.org/x/exp/slices"
)

// NodeType описывает тип вершины графа.
type NodeType string

const (
	NodeTypeTable      NodeType = "TABLE"
	NodeTypeColumn     NodeType = "COLUMN"
	NodeTypeIndex      NodeType = "INDEX"
	NodeTypeConstraint NodeType = "CONSTRAINT"
	NodeTypeView       NodeType = "VIEW"
)

// NodeTypes перечисляет все известные типы вершин.
var NodeTypes = []NodeType{
	NodeTypeTable,
	NodeTypeColumn,
	NodeTypeIndex,
	NodeTypeConstraint,
	NodeTypeView,
}

func (t NodeType) String() string { return string(t) }

func (t NodeType) Valid() bool {
	switch t {
	case NodeTypeTable, NodeTypeColumn, NodeTypeIndex, NodeTypeConstraint, NodeTypeView:
		return true
	default:
		return false
	}
}

func ParseNodeType(s string) (NodeType, error) {
	t := NodeType(s)
	if !t.Valid() {
		return "", newError(ErrValidation, s, "unknown node type")
	}
	return t, nil
}

// Node описывает вершину графа: таблицу, колонку, индекс или ограничение.
type Node struct {
	ID   string
	Type NodeType
	Name string
	// Пространство имён (схема базы данных), может быть пустым
	Schema   string
	Metadata Metadata

	// Обратные ссылки на рёбра. Сами рёбра принадлежат Database.
	outgoing mapset.Set[string]
	incoming mapset.Set[string]
}

func NewNode(id string, typ NodeType, name, schema string, meta Metadata) *Node {
	return &Node{
		ID:       id,
		Type:     typ,
		Name:     name,
		Schema:   schema,
		Metadata: meta,
	}
}

func NewTableNode(id, name, schema string, meta TableMetadata) *Node {
	return NewNode(id, NodeTypeTable, name, schema, meta.Metadata())
}

func NewColumnNode(id, name, schema string, meta ColumnMetadata) *Node {
	return NewNode(id, NodeTypeColumn, name, schema, meta.Metadata())
}

func NewIndexNode(id, name, schema string, meta IndexMetadata) *Node {
	return NewNode(id, NodeTypeIndex, name, schema, meta.Metadata())
}

func NewConstraintNode(id, name, schema string, meta ConstraintMetadata) *Node {
	return NewNode(id, NodeTypeConstraint, name, schema, meta.Metadata())
}

// OutgoingEdgeIDs возвращает отсортированные идентификаторы рёбер, выходящих из вершины.
func (n *Node) OutgoingEdgeIDs() []string { return sortedSet(n.outgoing) }

// IncomingEdgeIDs возвращает отсортированные идентификаторы рёбер, входящих в вершину.
func (n *Node) IncomingEdgeIDs() []string { return sortedSet(n.incoming) }

func (n *Node) String() string {
	if n.Schema == "" {
		return n.Name
	}
	return n.Schema + "." + n.Name
}

// Clone копирует вершину вместе с метаданными и списками рёбер.
func (n *Node) Clone() *Node {
	c := &Node{
		ID:       n.ID,
		Type:     n.Type,
		Name:     n.Name,
		Schema:   n.Schema,
		Metadata: n.Metadata.Clone(),
	}
	if n.outgoing != nil {
		c.outgoing = n.outgoing.Clone()
	}
	if n.incoming != nil {
		c.incoming = n.incoming.Clone()
	}
	return c
}

// detached копирует вершину без рёбер, для вставки в другую базу.
func (n *Node) detached() *Node {
	c := n.Clone()
	c.outgoing = mapset.NewThreadUnsafeSet[string]()
	c.incoming = mapset.NewThreadUnsafeSet[string]()
	return c
}

func sortedSet(s mapset.Set[string]) []string {
	if s == nil {
		return nil
	}
	ids := s.ToSlice()
	slices.Sort(ids)
	return ids
}
