package schema

import (
	"strings"

	"github.com/google/uuid"
)

// Идентификаторы вершин и рёбер детерминированы: одна и та же схема всегда даёт один и тот же граф.
// Части имени разделяются точкой, разделители и обратные слеши внутри имён экранируются.

var idEscaper = strings.NewReplacer(`\`, `\\`, ".", `\.`, ":", `\:`)

func qualifiedID(prefix string, names ...string) string {
	escaped := make([]string, len(names))
	for i, name := range names {
		escaped[i] = idEscaper.Replace(name)
	}
	return prefix + ":" + strings.Join(escaped, ".")
}

func TableID(schema, table string) string {
	return qualifiedID("table", schema, table)
}

func ColumnID(schema, table, column string) string {
	return qualifiedID("column", schema, table, column)
}

func IndexID(schema, table, index string) string {
	return qualifiedID("index", schema, table, index)
}

func ConstraintID(schema, table, constraint string) string {
	return qualifiedID("constraint", schema, table, constraint)
}

func tableColumnEdgeID(columnID string) string { return "table_column:" + columnID }
func primaryKeyEdgeID(columnID string) string  { return "primary_key:" + columnID }
func tableIndexEdgeID(indexID string) string   { return "table_index:" + indexID }

func indexColumnEdgeID(indexID, column string) string {
	return "index_column:" + indexID + ":" + idEscaper.Replace(column)
}

func tableConstraintEdgeID(constraintID string) string {
	return "table_constraint:" + constraintID
}

func ForeignKeyEdgeID(sourceColumnID, targetColumnID string) string {
	return "foreign_key:" + sourceColumnID + "->" + targetColumnID
}

// generatedName выдаёт стабильное имя безымянному индексу или ограничению.
func generatedName(prefix, tableID string, parts ...string) string {
	key := tableID + "/" + prefix + "/" + strings.Join(parts, ",")
	return prefix + "_" + uuid.NewSHA1(uuid.NameSpaceOID, []byte(key)).String()
}
