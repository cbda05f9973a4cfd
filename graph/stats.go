package graph

// Оценка памяти: фиксированная стоимость сущности плюс длины строк и размер метаданных.
// Значение монотонно растёт с числом сущностей и объёмом метаданных, но не равно реальному числу байт.
const (
	nodeBaseCost = 128
	edgeBaseCost = 96
)

type IndexStats struct {
	Enabled bool `json:"enabled"`
	// Запросы, обслуженные индексом
	Lookups uint64 `json:"lookups"`
	// Запросы, выполненные перебором
	Scans uint64 `json:"scans"`
}

type Stats struct {
	NodeCount       int              `json:"nodeCount"`
	EdgeCount       int              `json:"edgeCount"`
	NodesByType     map[NodeType]int `json:"nodesByType"`
	EdgesByType     map[EdgeType]int `json:"edgesByType"`
	MemoryFootprint int64            `json:"memoryFootprint"`
	CacheStats      CacheStats       `json:"cacheStats"`
	IndexStats      IndexStats       `json:"indexStats"`
	Version         uint64           `json:"version"`
}

func (db *Database) Statistics() Stats {
	s := Stats{
		NodeCount:   len(db.nodes),
		EdgeCount:   len(db.edges),
		NodesByType: make(map[NodeType]int, len(NodeTypes)),
		EdgesByType: make(map[EdgeType]int, len(EdgeTypes)),
		CacheStats:  db.cache.stats(),
		IndexStats: IndexStats{
			Enabled: db.cfg.EnableIndexing,
			Lookups: db.indexLookups.Load(),
			Scans:   db.indexScans.Load(),
		},
		Version: db.version,
	}

	for _, n := range db.nodes {
		s.NodesByType[n.Type]++
		s.MemoryFootprint += nodeBaseCost +
			int64(len(n.ID)+len(n.Name)+len(n.Schema)) +
			n.Metadata.size()
	}
	for _, e := range db.edges {
		s.EdgesByType[e.Type]++
		s.MemoryFootprint += edgeBaseCost +
			int64(len(e.ID)+len(e.SourceID)+len(e.TargetID)) +
			e.Metadata.size()
	}
	return s
}
