package analyzer

import (
	"io"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
	"golang.org/x/xerrors"
)

const luaModuleName = "schemagraph"

// ToLua возвращает таблицу {schemas = {<схема> = {tables = {<таблица> = ...}}}}.
func (a *Analyzer) ToLua(l *lua.LState) *lua.LTable {
	root := l.NewTable()

	schemas := l.NewTable()
	root.RawSetString("schemas", schemas)
	for _, schemaName := range a.GetAllSchemas() {
		ls := l.NewTable()
		tables := l.NewTable()
		ls.RawSetString("tables", tables)
		for _, name := range a.GetAllTables(schemaName) {
			if info := a.GetTableInfo(name, schemaName); info != nil {
				tables.RawSetString(name, info.ToLua(l))
			}
		}
		schemas.RawSetString(schemaName, ls)
	}

	return root
}

func (t *TableInfo) ToLua(l *lua.LState) *lua.LTable {
	table := l.NewTable()
	table.RawSetString("name", lua.LString(t.Name))
	table.RawSetString("schema", lua.LString(t.Schema))
	if t.Comment != "" {
		table.RawSetString("comment", lua.LString(t.Comment))
	}
	table.RawSetString("pk", luaStrings(l, t.PrimaryKey))

	cols := l.NewTable()
	table.RawSetString("columns", cols)
	for _, col := range t.Columns {
		cols.Append(col.ToLua(l))
	}

	fks := l.NewTable()
	table.RawSetString("fk", fks)
	for _, fk := range t.ForeignKeys {
		fks.Append(fk.ToLua(l))
	}

	indexes := l.NewTable()
	table.RawSetString("indexes", indexes)
	for _, index := range t.Indexes {
		indexes.RawSetString(index.Name, index.ToLua(l))
	}

	return table
}

func (c *ColumnInfo) ToLua(l *lua.LState) *lua.LTable {
	lc := l.NewTable()
	lc.RawSetString("name", lua.LString(c.Name))
	lc.RawSetString("type", lua.LString(c.DataType))
	lc.RawSetString("nullable", lua.LBool(c.Nullable))
	if c.Default != "" {
		lc.RawSetString("default", lua.LString(c.Default))
	}
	lc.RawSetString("position", lua.LNumber(c.Position))
	lc.RawSetString("is_pk", lua.LBool(c.IsPrimaryKey))
	lc.RawSetString("is_fk", lua.LBool(c.IsForeignKey))
	return lc
}

func (fk *ForeignKeyInfo) ToLua(l *lua.LState) *lua.LTable {
	lf := l.NewTable()
	if fk.Constraint != "" {
		lf.RawSetString("constraint", lua.LString(fk.Constraint))
	}
	lf.RawSetString("column", lua.LString(fk.Column))
	lf.RawSetString("reference_schema", lua.LString(fk.ReferencedSchema))
	lf.RawSetString("reference", lua.LString(fk.ReferencedTable))
	lf.RawSetString("reference_column", lua.LString(fk.ReferencedColumn))
	return lf
}

func (i *IndexInfo) ToLua(l *lua.LState) *lua.LTable {
	li := l.NewTable()
	li.RawSetString("is_unique", lua.LBool(i.Unique))
	li.RawSetString("columns", luaStrings(l, i.Columns))
	return li
}

func (j *JoinPath) ToLua(l *lua.LState) *lua.LTable {
	lj := l.NewTable()
	lj.RawSetString("from", lua.LString(j.From))
	lj.RawSetString("to", lua.LString(j.To))
	lj.RawSetString("sql", lua.LString(j.SQL))
	steps := l.NewTable()
	for _, s := range j.Steps {
		ls := l.NewTable()
		ls.RawSetString("from_table", lua.LString(s.FromTable))
		ls.RawSetString("from_column", lua.LString(s.FromColumn))
		ls.RawSetString("to_table", lua.LString(s.ToTable))
		ls.RawSetString("to_column", lua.LString(s.ToColumn))
		steps.Append(ls)
	}
	lj.RawSetString("steps", steps)
	return lj
}

func luaStrings(l *lua.LState, values []string) *lua.LTable {
	lv := l.NewTable()
	for _, v := range values {
		lv.Append(lua.LString(v))
	}
	return lv
}

// RegisterModule делает анализатор доступным скриптам через require("schemagraph").
func (a *Analyzer) RegisterModule(l *lua.LState) {
	l.PreloadModule(luaModuleName, func(l *lua.LState) int {
		mod := l.SetFuncs(l.NewTable(), map[string]lua.LGFunction{
			"schemas": func(l *lua.LState) int {
				l.Push(luaStrings(l, a.GetAllSchemas()))
				return 1
			},
			"tables": func(l *lua.LState) int {
				l.Push(luaStrings(l, a.GetAllTables(l.OptString(1, ""))))
				return 1
			},
			"find_tables": func(l *lua.LState) int {
				l.Push(luaStrings(l, a.FindTables(l.CheckString(1), l.OptString(2, ""))))
				return 1
			},
			"table": func(l *lua.LState) int {
				info := a.GetTableInfo(l.CheckString(1), l.OptString(2, ""))
				if info == nil {
					l.Push(lua.LNil)
					return 1
				}
				l.Push(info.ToLua(l))
				return 1
			},
			"join": func(l *lua.LState) int {
				jp := a.FindJoinPath(l.CheckString(1), l.CheckString(2), l.OptString(3, ""))
				if jp == nil {
					l.Push(lua.LNil)
					return 1
				}
				l.Push(jp.ToLua(l))
				return 1
			},
			"order": func(l *lua.LState) int {
				order, err := a.TableOrder(l.OptString(1, ""))
				if err != nil {
					l.Push(lua.LNil)
					l.Push(lua.LString(err.Error()))
					return 2
				}
				l.Push(luaStrings(l, order))
				return 1
			},
		})
		l.Push(mod)
		return 1
	})
}

// RunScript выполняет Lua скрипт. Глобальная переменная schema содержит результат ToLua,
// модуль schemagraph подключается через require.
func (a *Analyzer) RunScript(source io.Reader, name string) error {
	l := lua.NewState()
	defer l.Close()

	a.RegisterModule(l)
	l.SetGlobal("schema", a.ToLua(l))

	compiled, err := l.Load(source, name)
	if err != nil {
		return xerrors.Errorf("lua source failed to compile: %w", err)
	}
	l.Push(compiled)
	if err := l.PCall(0, 0, nil); err != nil {
		return xerrors.Errorf("run lua script %s: %w", name, err)
	}
	a.log.Debug("lua script finished", zap.String("name", name))
	return nil
}
