package graph

import (
	"encoding/json"

	"golang.org/x/exp/slices"
)

// Ключи метаданных вершин и рёбер.
const (
	MetaComment          = "comment"
	MetaTable            = "table"
	MetaDataType         = "dataType"
	MetaNullable         = "nullable"
	MetaDefault          = "defaultValue"
	MetaPosition         = "position"
	MetaUnique           = "unique"
	MetaColumns          = "columns"
	MetaKind             = "kind"
	MetaDefinition       = "definition"
	MetaReferencedTable  = "referencedTable"
	MetaReferencedColumn = "referencedColumn"
	MetaReferencedSchema = "referencedSchema"
	MetaConstraint       = "constraint"
	MetaOnDelete         = "onDelete"
	MetaOnUpdate         = "onUpdate"
)

// Metadata - открытый набор атрибутов, форма которого зависит от типа вершины или ребра.
type Metadata map[string]any

func (m Metadata) String(key string) string {
	s, _ := m[key].(string)
	return s
}

func (m Metadata) Bool(key string) bool {
	b, _ := m[key].(bool)
	return b
}

// Int читает целое значение любого числового типа.
func (m Metadata) Int(key string) int {
	switch v := m[key].(type) {
	case int:
		return v
	case int8:
		return int(v)
	case int16:
		return int(v)
	case int32:
		return int(v)
	case int64:
		return int(v)
	case uint8:
		return int(v)
	case uint16:
		return int(v)
	case uint32:
		return int(v)
	case uint64:
		return int(v)
	case float32:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}

func (m Metadata) Strings(key string) []string {
	switch v := m[key].(type) {
	case []string:
		return append([]string(nil), v...)
	case []any:
		res := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				res = append(res, s)
			}
		}
		return res
	default:
		return nil
	}
}

// Clone глубоко копирует вложенные map и slice.
func (m Metadata) Clone() Metadata {
	if m == nil {
		return Metadata{}
	}
	res := make(Metadata, len(m))
	for k, v := range m {
		res[k] = cloneValue(v)
	}
	return res
}

func cloneValue(v any) any {
	switch tv := v.(type) {
	case Metadata:
		return tv.Clone()
	case map[string]any:
		return map[string]any(Metadata(tv).Clone())
	case []any:
		res := make([]any, len(tv))
		for i, item := range tv {
			res[i] = cloneValue(item)
		}
		return res
	case []string:
		return slices.Clone(tv)
	default:
		return v
	}
}

// normalized возвращает копию метаданных, прочитанных из слепка, с теми же типами,
// что дают конструкторы: целые числа становятся int, списки строк - []string.
// Пустой список считается списком строк.
func (m Metadata) normalized() Metadata {
	res := make(Metadata, len(m))
	for k, v := range m {
		res[k] = normalizeValue(v)
	}
	return res
}

func normalizeValue(v any) any {
	switch tv := v.(type) {
	case json.Number:
		if i, err := tv.Int64(); err == nil {
			return int(i)
		}
		f, err := tv.Float64()
		if err != nil {
			return tv.String()
		}
		return f
	case int8:
		return int(tv)
	case int16:
		return int(tv)
	case int32:
		return int(tv)
	case int64:
		return int(tv)
	case uint8:
		return int(tv)
	case uint16:
		return int(tv)
	case uint32:
		return int(tv)
	case uint64:
		return int(tv)
	case Metadata:
		return tv.normalized()
	case map[string]any:
		return map[string]any(Metadata(tv).normalized())
	case []string:
		return slices.Clone(tv)
	case []any:
		strs := make([]string, 0, len(tv))
		for _, item := range tv {
			s, ok := item.(string)
			if !ok {
				break
			}
			strs = append(strs, s)
		}
		if len(strs) == len(tv) {
			return strs
		}
		res := make([]any, len(tv))
		for i, item := range tv {
			res[i] = normalizeValue(item)
		}
		return res
	default:
		return v
	}
}

// size - оценка занимаемой памяти, используется в статистике.
func (m Metadata) size() int64 {
	var total int64
	for k, v := range m {
		total += int64(len(k)) + valueSize(v)
	}
	return total
}

func valueSize(v any) int64 {
	switch tv := v.(type) {
	case nil:
		return 0
	case string:
		return int64(len(tv))
	case bool, int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64, float32, float64:
		return 8
	case Metadata:
		return tv.size()
	case map[string]any:
		return Metadata(tv).size()
	case []string:
		var total int64
		for _, s := range tv {
			total += int64(len(s))
		}
		return total
	case []any:
		var total int64
		for _, item := range tv {
			total += valueSize(item)
		}
		return total
	default:
		return 16
	}
}

type TableMetadata struct {
	Comment string
}

func (t TableMetadata) Metadata() Metadata {
	m := Metadata{}
	if t.Comment != "" {
		m[MetaComment] = t.Comment
	}
	return m
}

func TableMetadataOf(m Metadata) TableMetadata {
	return TableMetadata{Comment: m.String(MetaComment)}
}

type ColumnMetadata struct {
	// Таблица, которой принадлежит колонка
	Table    string
	DataType string
	Nullable bool
	Default  string
	// Порядковый номер колонки в таблице, начиная с 1
	Position int
}

func (c ColumnMetadata) Metadata() Metadata {
	m := Metadata{
		MetaTable:    c.Table,
		MetaDataType: c.DataType,
		MetaNullable: c.Nullable,
		MetaPosition: c.Position,
	}
	if c.Default != "" {
		m[MetaDefault] = c.Default
	}
	return m
}

func ColumnMetadataOf(m Metadata) ColumnMetadata {
	return ColumnMetadata{
		Table:    m.String(MetaTable),
		DataType: m.String(MetaDataType),
		Nullable: m.Bool(MetaNullable),
		Default:  m.String(MetaDefault),
		Position: m.Int(MetaPosition),
	}
}

type IndexMetadata struct {
	Table   string
	Unique  bool
	Columns []string
}

func (i IndexMetadata) Metadata() Metadata {
	return Metadata{
		MetaTable:   i.Table,
		MetaUnique:  i.Unique,
		MetaColumns: append([]string{}, i.Columns...),
	}
}

func IndexMetadataOf(m Metadata) IndexMetadata {
	return IndexMetadata{
		Table:   m.String(MetaTable),
		Unique:  m.Bool(MetaUnique),
		Columns: m.Strings(MetaColumns),
	}
}

// ConstraintKind - вид ограничения таблицы.
type ConstraintKind string

const (
	ConstraintKindPrimaryKey ConstraintKind = "PRIMARY_KEY"
	ConstraintKindForeignKey ConstraintKind = "FOREIGN_KEY"
	ConstraintKindUnique     ConstraintKind = "UNIQUE"
	ConstraintKindCheck      ConstraintKind = "CHECK"
)

type ConstraintMetadata struct {
	Table      string
	Kind       ConstraintKind
	Definition string
}

func (c ConstraintMetadata) Metadata() Metadata {
	m := Metadata{
		MetaTable: c.Table,
		MetaKind:  string(c.Kind),
	}
	if c.Definition != "" {
		m[MetaDefinition] = c.Definition
	}
	return m
}

func ConstraintMetadataOf(m Metadata) ConstraintMetadata {
	return ConstraintMetadata{
		Table:      m.String(MetaTable),
		Kind:       ConstraintKind(m.String(MetaKind)),
		Definition: m.String(MetaDefinition),
	}
}

type ForeignKeyMetadata struct {
	ReferencedTable  string
	ReferencedColumn string
	ReferencedSchema string
	// Имя ограничения FOREIGN KEY
	Constraint string
	OnDelete   string
	OnUpdate   string
}

func (f ForeignKeyMetadata) Metadata() Metadata {
	m := Metadata{
		MetaReferencedTable:  f.ReferencedTable,
		MetaReferencedColumn: f.ReferencedColumn,
	}
	for key, value := range map[string]string{
		MetaReferencedSchema: f.ReferencedSchema,
		MetaConstraint:       f.Constraint,
		MetaOnDelete:         f.OnDelete,
		MetaOnUpdate:         f.OnUpdate,
	} {
		if value != "" {
			m[key] = value
		}
	}
	return m
}

func ForeignKeyMetadataOf(m Metadata) ForeignKeyMetadata {
	return ForeignKeyMetadata{
		ReferencedTable:  m.String(MetaReferencedTable),
		ReferencedColumn: m.String(MetaReferencedColumn),
		ReferencedSchema: m.String(MetaReferencedSchema),
		Constraint:       m.String(MetaConstraint),
		OnDelete:         m.String(MetaOnDelete),
		OnUpdate:         m.String(MetaOnUpdate),
	}
}
