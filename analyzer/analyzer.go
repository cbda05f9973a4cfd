// Package analyzer отвечает на вопросы о схеме базы данных по её графу:
// поиск таблиц и колонок, связи между таблицами, подсказки для JOIN.
//
// Отсутствие таблицы или пути - ожидаемый результат, а не ошибка:
// методы возвращают nil или пустой список.
package analyzer

import (
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/gobwas/glob"
	"go.uber.org/zap"
	"golang.org/x/exp/slices"

	"github.com/Feresey/schemagraph/graph"
	"github.com/Feresey/schemagraph/schema"
)

// DefaultJoinMaxDepth - глубина поиска пути между таблицами.
// TABLE -> COLUMN -> COLUMN -> TABLE это три шага, то есть два внешних ключа.
const DefaultJoinMaxDepth = 6

type Config struct {
	JoinMaxDepth int
}

type Analyzer struct {
	log *zap.Logger
	db  *graph.Database
	cfg Config
}

func New(log *zap.Logger, db *graph.Database, cfg Config) *Analyzer {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.JoinMaxDepth <= 0 {
		cfg.JoinMaxDepth = DefaultJoinMaxDepth
	}
	return &Analyzer{
		log: log.Named("analyzer"),
		db:  db,
		cfg: cfg,
	}
}

func (a *Analyzer) Database() *graph.Database { return a.db }

func schemaOrDefault(s string) string {
	if s == "" {
		return schema.DefaultSchema
	}
	return s
}

// table ищет вершину таблицы по имени и схеме.
func (a *Analyzer) table(name, schemaName string) *graph.Node {
	schemaName = schemaOrDefault(schemaName)
	for _, n := range a.db.GetNodesByName(name) {
		if n.Type == graph.NodeTypeTable && n.Schema == schemaName {
			return n
		}
	}
	return nil
}

// tables возвращает таблицы схемы в порядке добавления.
func (a *Analyzer) tables(schemaName string) []*graph.Node {
	schemaName = schemaOrDefault(schemaName)
	var res []*graph.Node
	for _, n := range a.db.GetNodesByType(graph.NodeTypeTable) {
		if n.Schema == schemaName {
			res = append(res, n)
		}
	}
	return res
}

// GetAllTables возвращает отсортированные имена таблиц схемы.
func (a *Analyzer) GetAllTables(schemaName string) []string {
	tables := a.tables(schemaName)
	names := make([]string, 0, len(tables))
	for _, n := range tables {
		names = append(names, n.Name)
	}
	slices.Sort(names)
	return names
}

// GetAllSchemas возвращает отсортированные имена схем, в которых есть таблицы.
func (a *Analyzer) GetAllSchemas() []string {
	schemas := mapset.NewThreadUnsafeSet[string]()
	for _, n := range a.db.GetNodesByType(graph.NodeTypeTable) {
		schemas.Add(n.Schema)
	}
	res := schemas.ToSlice()
	slices.Sort(res)
	return res
}

// FindTables ищет таблицы схемы по шаблону, где * означает любую последовательность символов.
// Сравнение чувствительно к регистру и охватывает имя целиком.
func (a *Analyzer) FindTables(pattern, schemaName string) []string {
	g := compileGlob(pattern)
	var res []string
	for _, name := range a.GetAllTables(schemaName) {
		if g.Match(name) {
			res = append(res, name)
		}
	}
	return res
}

// ColumnMatch - колонка, найденная FindColumns.
type ColumnMatch struct {
	Schema   string `json:"schema"`
	Table    string `json:"table"`
	Column   string `json:"column"`
	DataType string `json:"dataType"`
}

// FindColumns ищет колонки всех таблиц по шаблону имени.
func (a *Analyzer) FindColumns(pattern string) []ColumnMatch {
	g := compileGlob(pattern)
	var res []ColumnMatch
	for _, n := range a.db.GetNodesByType(graph.NodeTypeColumn) {
		if !g.Match(n.Name) {
			continue
		}
		meta := graph.ColumnMetadataOf(n.Metadata)
		res = append(res, ColumnMatch{
			Schema:   n.Schema,
			Table:    meta.Table,
			Column:   n.Name,
			DataType: meta.DataType,
		})
	}
	return res
}

// compileGlob оставляет в шаблоне только *, остальные символы сравниваются как есть.
func compileGlob(pattern string) glob.Glob {
	parts := strings.Split(pattern, "*")
	for i, part := range parts {
		parts[i] = glob.QuoteMeta(part)
	}
	return glob.MustCompile(strings.Join(parts, "*"))
}
