package graph

import "go.uber.org/zap"

type ConflictKind string

const (
	ConflictNode ConflictKind = "node"
	ConflictEdge ConflictKind = "edge"
)

// Conflict - идентификатор, который уже был в базе при слиянии.
type Conflict struct {
	ID   string       `json:"id"`
	Kind ConflictKind `json:"kind"`
}

type MergeReport struct {
	NodesAdded int        `json:"nodesAdded"`
	EdgesAdded int        `json:"edgesAdded"`
	Conflicts  []Conflict `json:"conflicts"`
}

// Merge копирует в базу все вершины и рёбра other, other не изменяется.
// Существующие сущности никогда не перезаписываются: совпавший идентификатор
// записывается в отчёт как конфликт. Если добавляемое не помещается в
// ограничения, база не меняется и возвращается ErrCapacityExceeded.
// Слияние с самой собой ничего не добавляет и отмечает конфликтом каждый идентификатор.
func (db *Database) Merge(other *Database) (*MergeReport, error) {
	report := &MergeReport{Conflicts: []Conflict{}}
	if other == nil {
		return report, nil
	}

	var newNodes, newEdges int
	other.nodeOrder.Each(func(id string) bool {
		if _, ok := db.nodes[id]; !ok {
			newNodes++
		}
		return true
	})
	other.edgeOrder.Each(func(id string) bool {
		if _, ok := db.edges[id]; !ok {
			newEdges++
		}
		return true
	})
	if len(db.nodes)+newNodes > db.cfg.MaxNodes {
		return nil, newError(ErrCapacityExceeded, "", "merge nodes")
	}
	if len(db.edges)+newEdges > db.cfg.MaxEdges {
		return nil, newError(ErrCapacityExceeded, "", "merge edges")
	}

	other.nodeOrder.Each(func(id string) bool {
		if _, ok := db.nodes[id]; ok {
			report.Conflicts = append(report.Conflicts, Conflict{ID: id, Kind: ConflictNode})
			return true
		}
		db.apply(mutation{kind: mutationInsertNode, node: other.nodes[id].detached()})
		report.NodesAdded++
		return true
	})
	// концы ребра есть в other, значит после копирования вершин они есть и здесь
	other.edgeOrder.Each(func(id string) bool {
		if _, ok := db.edges[id]; ok {
			report.Conflicts = append(report.Conflicts, Conflict{ID: id, Kind: ConflictEdge})
			return true
		}
		db.apply(mutation{kind: mutationInsertEdge, edge: other.edges[id].Clone()})
		report.EdgesAdded++
		return true
	})

	db.log.Debug("graph merged",
		zap.Int("nodes_added", report.NodesAdded),
		zap.Int("edges_added", report.EdgesAdded),
		zap.Int("conflicts", len(report.Conflicts)))
	return report, nil
}
