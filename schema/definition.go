// Package schema строит граф по описанию реляционной схемы.
package schema

import (
	"encoding/json"
	"errors"
	"io"
	"path/filepath"
	"strings"

	"golang.org/x/xerrors"
	"gopkg.in/yaml.v3"
)

// DefaultSchema подставляется, если у таблицы не указана схема.
const DefaultSchema = "public"

var ErrInvalidDefinition = errors.New("invalid schema definition")

// Definition - снимок схемы базы данных: набор таблиц.
type Definition struct {
	Tables []TableDefinition `json:"tables" yaml:"tables"`
}

// TableDefinition описывает одну таблицу.
type TableDefinition struct {
	TableName   string                 `json:"tableName" yaml:"tableName"`
	Schema      string                 `json:"schema,omitempty" yaml:"schema,omitempty"`
	Comment     string                 `json:"comment,omitempty" yaml:"comment,omitempty"`
	Columns     []ColumnDefinition     `json:"columns" yaml:"columns"`
	ForeignKeys []ForeignKeyDefinition `json:"foreignKeys,omitempty" yaml:"foreignKeys,omitempty"`
	Indexes     []IndexDefinition      `json:"indexes,omitempty" yaml:"indexes,omitempty"`
}

// SchemaName возвращает схему таблицы с учётом значения по умолчанию.
func (t *TableDefinition) SchemaName() string {
	if t.Schema == "" {
		return DefaultSchema
	}
	return t.Schema
}

func (t *TableDefinition) String() string { return t.SchemaName() + "." + t.TableName }

type ColumnDefinition struct {
	Name       string `json:"name" yaml:"name"`
	DataType   string `json:"dataType" yaml:"dataType"`
	Nullable   bool   `json:"nullable,omitempty" yaml:"nullable,omitempty"`
	PrimaryKey bool   `json:"primaryKey,omitempty" yaml:"primaryKey,omitempty"`
	Default    string `json:"defaultValue,omitempty" yaml:"defaultValue,omitempty"`
}

// ForeignKeyDefinition описывает ссылку колонки таблицы на колонку другой (или той же) таблицы.
type ForeignKeyDefinition struct {
	// Имя ограничения, генерируется если не задано
	Name             string `json:"name,omitempty" yaml:"name,omitempty"`
	Column           string `json:"column" yaml:"column"`
	ReferencedTable  string `json:"referencedTable" yaml:"referencedTable"`
	ReferencedColumn string `json:"referencedColumn" yaml:"referencedColumn"`
	// Схема таблицы, на которую ссылаются. По умолчанию схема текущей таблицы.
	ReferencedSchema string `json:"referencedSchema,omitempty" yaml:"referencedSchema,omitempty"`
	OnDelete         string `json:"onDelete,omitempty" yaml:"onDelete,omitempty"`
	OnUpdate         string `json:"onUpdate,omitempty" yaml:"onUpdate,omitempty"`
}

type IndexDefinition struct {
	Name    string   `json:"name,omitempty" yaml:"name,omitempty"`
	Columns []string `json:"columns" yaml:"columns"`
	Unique  bool     `json:"unique,omitempty" yaml:"unique,omitempty"`
}

// Format - формат файла с описанием схемы.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFromPath определяет формат по расширению файла, по умолчанию JSON.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yml", ".yaml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

func ReadDefinition(r io.Reader, format Format) (*Definition, error) {
	var def Definition
	switch format {
	case FormatJSON:
		if err := json.NewDecoder(r).Decode(&def); err != nil {
			return nil, xerrors.Errorf("decode json definition: %w", err)
		}
	case FormatYAML:
		if err := yaml.NewDecoder(r).Decode(&def); err != nil {
			return nil, xerrors.Errorf("decode yaml definition: %w", err)
		}
	default:
		return nil, xerrors.Errorf("unknown definition format %q", format)
	}
	return &def, nil
}

func WriteDefinition(w io.Writer, def *Definition, format Format) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(def); err != nil {
			return xerrors.Errorf("encode json definition: %w", err)
		}
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(def); err != nil {
			return xerrors.Errorf("encode yaml definition: %w", err)
		}
		return enc.Close()
	default:
		return xerrors.Errorf("unknown definition format %q", format)
	}
	return nil
}
