package graph

import (
	"bytes"
	"encoding/json"
	"errors"

	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"
	"golang.org/x/xerrors"
)

type NodeRecord struct {
	ID       string   `json:"id" msgpack:"id"`
	Type     NodeType `json:"type" msgpack:"type"`
	Name     string   `json:"name" msgpack:"name"`
	Schema   string   `json:"schema,omitempty" msgpack:"schema,omitempty"`
	Metadata Metadata `json:"metadata" msgpack:"metadata"`
}

type EdgeRecord struct {
	ID       string   `json:"id" msgpack:"id"`
	Type     EdgeType `json:"type" msgpack:"type"`
	SourceID string   `json:"sourceId" msgpack:"sourceId"`
	TargetID string   `json:"targetId" msgpack:"targetId"`
	Metadata Metadata `json:"metadata" msgpack:"metadata"`
}

type SnapshotMetadata struct {
	NodeCount int `json:"nodeCount" msgpack:"nodeCount"`
	EdgeCount int `json:"edgeCount" msgpack:"edgeCount"`
}

// Snapshot - полный слепок графа в формате обмена.
type Snapshot struct {
	Nodes    []NodeRecord     `json:"nodes" msgpack:"nodes"`
	Edges    []EdgeRecord     `json:"edges" msgpack:"edges"`
	Metadata SnapshotMetadata `json:"metadata" msgpack:"metadata"`
}

// Snapshot копирует граф в порядке добавления вершин и рёбер.
func (db *Database) Snapshot() *Snapshot {
	s := &Snapshot{
		Nodes: make([]NodeRecord, 0, len(db.nodes)),
		Edges: make([]EdgeRecord, 0, len(db.edges)),
		Metadata: SnapshotMetadata{
			NodeCount: len(db.nodes),
			EdgeCount: len(db.edges),
		},
	}
	db.nodeOrder.Each(func(id string) bool {
		n := db.nodes[id]
		s.Nodes = append(s.Nodes, NodeRecord{
			ID:       n.ID,
			Type:     n.Type,
			Name:     n.Name,
			Schema:   n.Schema,
			Metadata: n.Metadata.Clone(),
		})
		return true
	})
	db.edgeOrder.Each(func(id string) bool {
		e := db.edges[id]
		s.Edges = append(s.Edges, EdgeRecord{
			ID:       e.ID,
			Type:     e.Type,
			SourceID: e.SourceID,
			TargetID: e.TargetID,
			Metadata: e.Metadata.Clone(),
		})
		return true
	})
	return s
}

func (db *Database) ToJSON() ([]byte, error) {
	data, err := json.Marshal(db.Snapshot())
	if err != nil {
		return nil, xerrors.Errorf("marshal graph snapshot: %w", err)
	}
	return data, nil
}

func (db *Database) ToMsgpack() ([]byte, error) {
	data, err := msgpack.Marshal(db.Snapshot())
	if err != nil {
		return nil, xerrors.Errorf("marshal graph snapshot: %w", err)
	}
	return data, nil
}

type rawSnapshot struct {
	Nodes    json.RawMessage   `json:"nodes"`
	Edges    json.RawMessage   `json:"edges"`
	Metadata *SnapshotMetadata `json:"metadata"`
}

// FromJSON строит новую базу из слепка. Слепок целиком проверяется до создания базы.
func FromJSON(log *zap.Logger, data []byte, cfg Config) (*Database, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, newError(ErrValidation, "", "snapshot is empty")
	}
	var raw rawSnapshot
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, newError(ErrValidation, "", "decode snapshot: "+err.Error())
	}
	if !isJSONArray(raw.Nodes) {
		return nil, newError(ErrValidation, "", "snapshot nodes must be an array")
	}
	if !isJSONArray(raw.Edges) {
		return nil, newError(ErrValidation, "", "snapshot edges must be an array")
	}

	var s Snapshot
	if err := decodeJSON(raw.Nodes, &s.Nodes); err != nil {
		return nil, newError(ErrValidation, "", "decode snapshot nodes: "+err.Error())
	}
	if err := decodeJSON(raw.Edges, &s.Edges); err != nil {
		return nil, newError(ErrValidation, "", "decode snapshot edges: "+err.Error())
	}
	if raw.Metadata != nil {
		s.Metadata = *raw.Metadata
	}
	return FromSnapshot(log, &s, cfg)
}

// decodeJSON сохраняет числа как json.Number, чтобы целые не превращались в float64.
func decodeJSON(raw json.RawMessage, v any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	return dec.Decode(v)
}

func isJSONArray(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) != 0 && raw[0] == '['
}

func FromMsgpack(log *zap.Logger, data []byte, cfg Config) (*Database, error) {
	if len(data) == 0 {
		return nil, newError(ErrValidation, "", "snapshot is empty")
	}
	var s *Snapshot
	if err := msgpack.Unmarshal(data, &s); err != nil {
		return nil, newError(ErrValidation, "", "decode snapshot: "+err.Error())
	}
	return FromSnapshot(log, s, cfg)
}

// FromSnapshot проверяет слепок и строит по нему новую базу с пересчитанными индексами.
func FromSnapshot(log *zap.Logger, s *Snapshot, cfg Config) (*Database, error) {
	if s == nil {
		return nil, newError(ErrValidation, "", "snapshot is nil")
	}
	if err := validateSnapshot(s, cfg.withDefaults()); err != nil {
		return nil, err
	}

	db := New(log, cfg)
	for i := range s.Nodes {
		r := &s.Nodes[i]
		db.apply(mutation{
			kind: mutationInsertNode,
			node: NewNode(r.ID, r.Type, r.Name, r.Schema, r.Metadata.normalized()).detached(),
		})
	}
	for i := range s.Edges {
		r := &s.Edges[i]
		db.apply(mutation{
			kind: mutationInsertEdge,
			edge: NewEdge(r.ID, r.Type, r.SourceID, r.TargetID, r.Metadata.normalized()),
		})
	}
	db.log.Debug("graph loaded from snapshot",
		zap.Int("nodes", db.NodeCount()),
		zap.Int("edges", db.EdgeCount()))
	return db, nil
}

func validateSnapshot(s *Snapshot, cfg Config) error {
	var errs []error
	fail := func(id, msg string) {
		errs = append(errs, newError(ErrValidation, id, msg))
	}

	if len(s.Nodes) > cfg.MaxNodes {
		fail("", "snapshot exceeds node capacity")
	}
	if len(s.Edges) > cfg.MaxEdges {
		fail("", "snapshot exceeds edge capacity")
	}
	if s.Metadata != (SnapshotMetadata{}) {
		if s.Metadata.NodeCount != len(s.Nodes) {
			fail("", "metadata nodeCount does not match nodes")
		}
		if s.Metadata.EdgeCount != len(s.Edges) {
			fail("", "metadata edgeCount does not match edges")
		}
	}

	nodeIDs := make(map[string]struct{}, len(s.Nodes))
	for i := range s.Nodes {
		r := &s.Nodes[i]
		switch {
		case r.ID == "":
			fail("", "node id is empty")
			continue
		case !r.Type.Valid():
			fail(r.ID, "unknown node type "+string(r.Type))
		}
		if _, ok := nodeIDs[r.ID]; ok {
			fail(r.ID, "duplicate node id")
		}
		nodeIDs[r.ID] = struct{}{}
	}

	edgeIDs := make(map[string]struct{}, len(s.Edges))
	for i := range s.Edges {
		r := &s.Edges[i]
		if r.ID == "" {
			fail("", "edge id is empty")
			continue
		}
		e := Edge{ID: r.ID, Type: r.Type, Metadata: r.Metadata}
		if err := e.validate(); err != nil {
			errs = append(errs, err)
		}
		if _, ok := edgeIDs[r.ID]; ok {
			fail(r.ID, "duplicate edge id")
		}
		edgeIDs[r.ID] = struct{}{}
		if _, ok := nodeIDs[r.SourceID]; !ok {
			fail(r.ID, "edge source "+r.SourceID+" not found")
		}
		if _, ok := nodeIDs[r.TargetID]; !ok {
			fail(r.ID, "edge target "+r.TargetID+" not found")
		}
	}
	return errors.Join(errs...)
}
