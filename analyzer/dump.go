package analyzer

import (
	"embed"
	"io"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"golang.org/x/xerrors"
)

//go:embed templates/*.tpl
var dumptpl embed.FS

type TemplateName string

const (
	DumpSchemaTemplate TemplateName = "schema.sql.tpl"
	DumpGraphTemplate  TemplateName = "graph.puml.tpl"
)

type dumpData struct {
	Schema string
	// Таблицы в порядке TableOrder, если в схеме нет циклов
	Tables    []*TableInfo
	Relations []dumpRelation
}

type dumpRelation struct {
	From, To string
	Column   string
}

// Dump выводит таблицы схемы по шаблону.
func (a *Analyzer) Dump(w io.Writer, tplName TemplateName, schemaName string) error {
	schemaName = schemaOrDefault(schemaName)
	switch tplName {
	case DumpSchemaTemplate, DumpGraphTemplate:
	default:
		return xerrors.Errorf("undefined template name: %s", tplName)
	}

	names, err := a.TableOrder(schemaName)
	if err != nil {
		names = a.GetAllTables(schemaName)
	}
	data := dumpData{Schema: schemaName}
	for _, name := range names {
		info := a.GetTableInfo(name, schemaName)
		if info == nil {
			continue
		}
		data.Tables = append(data.Tables, info)
		for _, fk := range info.ForeignKeys {
			data.Relations = append(data.Relations, dumpRelation{
				From:   info.String(),
				To:     fk.ReferencedSchema + "." + fk.ReferencedTable,
				Column: fk.Column,
			})
		}
	}
	return dump(w, tplName, data)
}

func dump(w io.Writer, tplName TemplateName, data any) error {
	t := template.New("").
		Funcs(sprig.TxtFuncMap()).
		Funcs(template.FuncMap{
			"columnNames": func(cols []ColumnInfo) string {
				names := make([]string, 0, len(cols))
				for _, col := range cols {
					names = append(names, col.Name)
				}
				return strings.Join(names, ", ")
			},
			"space": func(namelen int, maxlen int) string {
				if namelen >= maxlen {
					return " "
				}
				return strings.Repeat(" ", maxlen-namelen)
			},
			"maxColumnName": func(cols []ColumnInfo) int {
				var res int
				for _, col := range cols {
					if len(col.Name) > res {
						res = len(col.Name)
					}
				}
				return res + 1
			},
		})
	tpl, err := t.ParseFS(dumptpl, "templates/*.tpl")
	if err != nil {
		return xerrors.Errorf("parse templates: %w", err)
	}

	if err := tpl.ExecuteTemplate(w, string(tplName), data); err != nil {
		return xerrors.Errorf("execute template %s: %w", tplName, err)
	}
	return nil
}
