package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/urfave/cli/v2"
	"golang.org/x/xerrors"

	"github.com/Feresey/schemagraph/analyzer"
	"github.com/Feresey/schemagraph/graph"
)

// queryCommand - команда, печатающая результат запроса к анализатору.
type queryCommand struct {
	schemaCommand
	format     *cli.StringFlag
	schemaName *cli.StringFlag
}

func newQueryCommand(f flags) queryCommand {
	return queryCommand{
		schemaCommand: newSchemaCommand(f),
		format:        newFormatFlag(),
		schemaName:    newSchemaNameFlag(),
	}
}

func (q *queryCommand) newCommand(
	name, usage, args string,
	run func(ctx *cli.Context, a *analyzer.Analyzer) error,
) *cli.Command {
	cmd := q.command(name, usage, func(ctx *cli.Context) error {
		a, err := q.analyzer(ctx)
		if err != nil {
			return err
		}
		return run(ctx, a)
	}, q.format, q.schemaName)
	cmd.ArgsUsage = args
	return cmd
}

func (q *queryCommand) write(ctx *cli.Context, v any, text func(w io.Writer) error) error {
	return writeOutput(ctx.App.Writer, q.format.Get(ctx), v, text)
}

func writeLines(lines []string) func(w io.Writer) error {
	return func(w io.Writer) error {
		for _, line := range lines {
			if _, err := fmt.Fprintln(w, line); err != nil {
				return err
			}
		}
		return nil
	}
}

func requireArgs(ctx *cli.Context, n int) error {
	if ctx.NArg() < n {
		return xerrors.Errorf("expected at least %d arguments, got %d", n, ctx.NArg())
	}
	return nil
}

type TablesCommand struct{ queryCommand }

func NewTablesCommand(f flags) *TablesCommand {
	return &TablesCommand{newQueryCommand(f)}
}

func (c *TablesCommand) Command() *cli.Command {
	return c.newCommand("tables", "list tables of a schema", "[pattern]", c.run)
}

func (c *TablesCommand) run(ctx *cli.Context, a *analyzer.Analyzer) error {
	schemaName := c.schemaName.Get(ctx)
	var tables []string
	if pattern := ctx.Args().First(); pattern != "" {
		tables = a.FindTables(pattern, schemaName)
	} else {
		tables = a.GetAllTables(schemaName)
	}
	return c.write(ctx, tables, writeLines(tables))
}

type TableCommand struct{ queryCommand }

func NewTableCommand(f flags) *TableCommand {
	return &TableCommand{newQueryCommand(f)}
}

func (c *TableCommand) Command() *cli.Command {
	return c.newCommand("table", "describe a table", "<table>", c.run)
}

func (c *TableCommand) run(ctx *cli.Context, a *analyzer.Analyzer) error {
	if err := requireArgs(ctx, 1); err != nil {
		return err
	}
	info := a.GetTableInfo(ctx.Args().First(), c.schemaName.Get(ctx))
	if info == nil {
		return xerrors.Errorf("table %q not found", ctx.Args().First())
	}
	return c.write(ctx, info, func(w io.Writer) error { return writeTableInfo(w, info) })
}

func writeTableInfo(w io.Writer, info *analyzer.TableInfo) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "%s", info)
	if info.Comment != "" {
		fmt.Fprintf(tw, " -- %s", info.Comment)
	}
	fmt.Fprintln(tw)

	for _, col := range info.Columns {
		var attrs []string
		if !col.Nullable {
			attrs = append(attrs, "NOT NULL")
		}
		if col.Default != "" {
			attrs = append(attrs, "DEFAULT "+col.Default)
		}
		if col.IsPrimaryKey {
			attrs = append(attrs, "PK")
		}
		if col.IsForeignKey {
			attrs = append(attrs, "FK")
		}
		fmt.Fprintf(tw, "  %s\t%s\t%s\n", col.Name, col.DataType, strings.Join(attrs, " "))
	}
	for _, fk := range info.ForeignKeys {
		fmt.Fprintf(tw, "FK %s\t%s -> %s.%s(%s)\n",
			fk.Constraint, fk.Column, fk.ReferencedSchema, fk.ReferencedTable, fk.ReferencedColumn)
	}
	for _, idx := range info.Indexes {
		unique := ""
		if idx.Unique {
			unique = " UNIQUE"
		}
		fmt.Fprintf(tw, "INDEX %s\t(%s)%s\n", idx.Name, strings.Join(idx.Columns, ", "), unique)
	}
	return tw.Flush()
}

type ColumnsCommand struct{ queryCommand }

func NewColumnsCommand(f flags) *ColumnsCommand {
	return &ColumnsCommand{newQueryCommand(f)}
}

func (c *ColumnsCommand) Command() *cli.Command {
	return c.newCommand("columns", "find columns by name pattern in all schemas", "<pattern>", c.run)
}

func (c *ColumnsCommand) run(ctx *cli.Context, a *analyzer.Analyzer) error {
	if err := requireArgs(ctx, 1); err != nil {
		return err
	}
	columns := a.FindColumns(ctx.Args().First())
	return c.write(ctx, columns, func(w io.Writer) error {
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		for _, col := range columns {
			fmt.Fprintf(tw, "%s.%s.%s\t%s\n", col.Schema, col.Table, col.Column, col.DataType)
		}
		return tw.Flush()
	})
}

type RelationsCommand struct{ queryCommand }

func NewRelationsCommand(f flags) *RelationsCommand {
	return &RelationsCommand{newQueryCommand(f)}
}

func (c *RelationsCommand) Command() *cli.Command {
	return c.newCommand("relations", "show tables referenced by and referencing a table", "<table>", c.run)
}

func (c *RelationsCommand) run(ctx *cli.Context, a *analyzer.Analyzer) error {
	if err := requireArgs(ctx, 1); err != nil {
		return err
	}
	rel := a.AnalyzeTableRelationships(ctx.Args().First(), c.schemaName.Get(ctx))
	if rel == nil {
		return xerrors.Errorf("table %q not found", ctx.Args().First())
	}
	return c.write(ctx, rel, func(w io.Writer) error {
		for _, group := range [][]analyzer.Relationship{rel.DirectRelationships, rel.ReferencedBy} {
			for _, r := range group {
				for _, fk := range r.ForeignKeys {
					fmt.Fprintf(w, "%s %s.%s: %s -> %s\n", r.RelationshipType, r.Schema, r.Table, fk.Column, fk.ReferencedColumn)
				}
			}
		}
		return nil
	})
}

type JoinCommand struct{ queryCommand }

func NewJoinCommand(f flags) *JoinCommand {
	return &JoinCommand{newQueryCommand(f)}
}

func (c *JoinCommand) Command() *cli.Command {
	return c.newCommand("join", "suggest joins between tables", "<table> <table> [table...]", c.run)
}

func (c *JoinCommand) run(ctx *cli.Context, a *analyzer.Analyzer) error {
	if err := requireArgs(ctx, 2); err != nil {
		return err
	}
	paths := a.FindMultiTableJoinPaths(ctx.Args().Slice(), c.schemaName.Get(ctx))
	if len(paths) == 0 {
		return xerrors.Errorf("no join path found between %v", ctx.Args().Slice())
	}
	return c.write(ctx, paths, func(w io.Writer) error {
		for i, p := range paths {
			if i > 0 {
				fmt.Fprintln(w)
			}
			fmt.Fprintf(w, "-- %s -> %s\n%s\n", p.From, p.To, p.SQL)
		}
		return nil
	})
}

type OrderCommand struct{ queryCommand }

func NewOrderCommand(f flags) *OrderCommand {
	return &OrderCommand{newQueryCommand(f)}
}

func (c *OrderCommand) Command() *cli.Command {
	return c.newCommand("order", "print tables in foreign key dependency order", "", c.run)
}

func (c *OrderCommand) run(ctx *cli.Context, a *analyzer.Analyzer) error {
	order, err := a.TableOrder(c.schemaName.Get(ctx))
	if err != nil {
		return xerrors.Errorf("try to determine tables order: %w", err)
	}
	return c.write(ctx, order, writeLines(order))
}

type StatsCommand struct{ queryCommand }

func NewStatsCommand(f flags) *StatsCommand {
	return &StatsCommand{newQueryCommand(f)}
}

func (c *StatsCommand) Command() *cli.Command {
	return c.newCommand("stats", "print schema and graph statistics", "", c.run)
}

type statsOutput struct {
	Schema analyzer.SchemaStatistics `json:"schema"`
	Graph  graph.Stats               `json:"graph"`
}

func (c *StatsCommand) run(ctx *cli.Context, a *analyzer.Analyzer) error {
	st := statsOutput{
		Schema: a.GetSchemaStatistics(c.schemaName.Get(ctx)),
		Graph:  a.Database().Statistics(),
	}
	return c.write(ctx, st, func(w io.Writer) error {
		tw := tabwriter.NewWriter(w, 0, 4, 1, ' ', 0)
		s := st.Schema
		fmt.Fprintf(tw, "schema:\t%s\n", s.Schema)
		fmt.Fprintf(tw, "tables:\t%d\n", s.Tables)
		fmt.Fprintf(tw, "columns:\t%d\n", s.Columns)
		fmt.Fprintf(tw, "primary key columns:\t%d\n", s.PrimaryKeyColumns)
		fmt.Fprintf(tw, "foreign keys:\t%d\n", s.ForeignKeys)
		fmt.Fprintf(tw, "indexes:\t%d\n", s.Indexes)
		fmt.Fprintf(tw, "constraints:\t%d\n", s.Constraints)
		fmt.Fprintf(tw, "graph nodes:\t%d\n", st.Graph.NodeCount)
		fmt.Fprintf(tw, "graph edges:\t%d\n", st.Graph.EdgeCount)
		fmt.Fprintf(tw, "memory footprint:\t%d\n", st.Graph.MemoryFootprint)
		return tw.Flush()
	})
}
