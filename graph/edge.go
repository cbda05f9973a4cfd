package graph

// EdgeType описывает тип ребра графа.
type EdgeType string

const (
	// колонка -> колонка, на которую ссылается внешний ключ
	EdgeTypeForeignKey EdgeType = "FOREIGN_KEY"
	// таблица -> колонка
	EdgeTypeTableColumn EdgeType = "TABLE_COLUMN"
	// таблица -> колонка, входящая в PRIMARY KEY
	EdgeTypePrimaryKey EdgeType = "PRIMARY_KEY"
	// таблица -> индекс
	EdgeTypeTableIndex EdgeType = "TABLE_INDEX"
	// индекс -> колонка
	EdgeTypeIndexColumn EdgeType = "INDEX_COLUMN"
	// таблица -> ограничение
	EdgeTypeTableConstraint EdgeType = "TABLE_CONSTRAINT"
)

// EdgeTypes перечисляет все известные типы рёбер.
var EdgeTypes = []EdgeType{
	EdgeTypeForeignKey,
	EdgeTypeTableColumn,
	EdgeTypePrimaryKey,
	EdgeTypeTableIndex,
	EdgeTypeIndexColumn,
	EdgeTypeTableConstraint,
}

func (t EdgeType) String() string { return string(t) }

func (t EdgeType) Valid() bool {
	switch t {
	case EdgeTypeForeignKey,
		EdgeTypeTableColumn,
		EdgeTypePrimaryKey,
		EdgeTypeTableIndex,
		EdgeTypeIndexColumn,
		EdgeTypeTableConstraint:
		return true
	default:
		return false
	}
}

func ParseEdgeType(s string) (EdgeType, error) {
	t := EdgeType(s)
	if !t.Valid() {
		return "", newError(ErrValidation, s, "unknown edge type")
	}
	return t, nil
}

// Edge описывает направленное типизированное ребро между двумя вершинами.
type Edge struct {
	ID       string
	Type     EdgeType
	SourceID string
	TargetID string
	Metadata Metadata
}

func NewEdge(id string, typ EdgeType, sourceID, targetID string, meta Metadata) *Edge {
	if meta == nil {
		meta = Metadata{}
	}
	return &Edge{
		ID:       id,
		Type:     typ,
		SourceID: sourceID,
		TargetID: targetID,
		Metadata: meta,
	}
}

// NewForeignKeyEdge создаёт ребро внешнего ключа от колонки sourceID к колонке targetID.
func NewForeignKeyEdge(id, sourceID, targetID string, meta ForeignKeyMetadata) *Edge {
	return NewEdge(id, EdgeTypeForeignKey, sourceID, targetID, meta.Metadata())
}

func NewTableColumnEdge(id, tableID, columnID string) *Edge {
	return NewEdge(id, EdgeTypeTableColumn, tableID, columnID, nil)
}

func NewPrimaryKeyEdge(id, tableID, columnID string) *Edge {
	return NewEdge(id, EdgeTypePrimaryKey, tableID, columnID, nil)
}

func NewTableIndexEdge(id, tableID, indexID string) *Edge {
	return NewEdge(id, EdgeTypeTableIndex, tableID, indexID, nil)
}

// NewIndexColumnEdge связывает индекс с колонкой, position - номер колонки в индексе.
func NewIndexColumnEdge(id, indexID, columnID string, position int) *Edge {
	return NewEdge(id, EdgeTypeIndexColumn, indexID, columnID, Metadata{MetaPosition: position})
}

func NewTableConstraintEdge(id, tableID, constraintID string) *Edge {
	return NewEdge(id, EdgeTypeTableConstraint, tableID, constraintID, nil)
}

// Other возвращает противоположный конец ребра.
func (e *Edge) Other(id string) string {
	if e.SourceID == id {
		return e.TargetID
	}
	return e.SourceID
}

func (e *Edge) Clone() *Edge {
	c := *e
	c.Metadata = e.Metadata.Clone()
	return &c
}

// validate проверяет форму метаданных, которая требуется типом ребра.
func (e *Edge) validate() error {
	switch e.Type {
	case EdgeTypeForeignKey:
		for _, key := range []string{MetaReferencedTable, MetaReferencedColumn} {
			if e.Metadata.String(key) == "" {
				return newError(ErrValidation, e.ID, "foreign key edge requires metadata "+key)
			}
		}
	case EdgeTypeTableColumn,
		EdgeTypePrimaryKey,
		EdgeTypeTableIndex,
		EdgeTypeIndexColumn,
		EdgeTypeTableConstraint:
	default:
		return newError(ErrValidation, e.ID, "unknown edge type "+string(e.Type))
	}
	return nil
}
