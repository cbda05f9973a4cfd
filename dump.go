package main

import (
	"io"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"golang.org/x/xerrors"

	"github.com/Feresey/schemagraph/analyzer"
	"github.com/Feresey/schemagraph/graph"
)

const (
	dumpKindPUML    = "puml"
	dumpKindSQL     = "sql"
	dumpKindJSON    = "json"
	dumpKindMsgpack = "msgpack"
)

type DumpCommand struct {
	schemaCommand
	kind       *cli.StringFlag
	outputPath *cli.StringFlag
	schemaName *cli.StringFlag
}

func NewDumpCommand(f flags) *DumpCommand {
	return &DumpCommand{
		schemaCommand: newSchemaCommand(f),
		kind: &cli.StringFlag{
			Name:    "kind",
			Aliases: []string{"k"},
			Usage:   "puml, sql, json or msgpack; guessed from --output extension if empty",
		},
		outputPath: &cli.StringFlag{
			Name:        "output",
			Aliases:     []string{"o"},
			DefaultText: "stdout",
			TakesFile:   true,
		},
		schemaName: newSchemaNameFlag(),
	}
}

func (c *DumpCommand) Command() *cli.Command {
	cmd := c.command("dump", "render the schema as a diagram, DDL or graph snapshot", c.run,
		c.kind, c.outputPath, c.schemaName)
	cmd.Description = "puml and sql render one schema, json and msgpack write the whole graph snapshot"
	return cmd
}

// dumpKind определяет формат по флагу или расширению файла.
func dumpKind(kind, outputPath string) (string, error) {
	if kind == "" {
		switch strings.ToLower(filepath.Ext(outputPath)) {
		case ".puml":
			kind = dumpKindPUML
		case ".sql":
			kind = dumpKindSQL
		case ".msgpack", ".mp":
			kind = dumpKindMsgpack
		default:
			kind = dumpKindJSON
		}
	}
	switch kind {
	case dumpKindPUML, dumpKindSQL, dumpKindJSON, dumpKindMsgpack:
		return kind, nil
	default:
		return "", xerrors.Errorf("unknown dump kind %q", kind)
	}
}

func (c *DumpCommand) run(ctx *cli.Context) error {
	outputPath := c.outputPath.Get(ctx)
	kind, err := dumpKind(c.kind.Get(ctx), outputPath)
	if err != nil {
		return err
	}
	a, err := c.analyzer(ctx)
	if err != nil {
		return err
	}

	write := func(w io.Writer) error { return dumpAnalyzer(w, a, kind, c.schemaName.Get(ctx)) }
	if outputPath == "" || outputPath == stdinFileName {
		return write(ctx.App.Writer)
	}
	c.loader.log.Info("dump schema", zap.String("kind", kind), zap.String("path", outputPath))
	return dumpToFile(outputPath, write)
}

func dumpAnalyzer(w io.Writer, a *analyzer.Analyzer, kind, schemaName string) error {
	switch kind {
	case dumpKindPUML:
		return a.Dump(w, analyzer.DumpGraphTemplate, schemaName)
	case dumpKindSQL:
		return a.Dump(w, analyzer.DumpSchemaTemplate, schemaName)
	default:
		return writeSnapshot(w, a.Database(), kind)
	}
}

func writeSnapshot(w io.Writer, db *graph.Database, kind string) error {
	var (
		data []byte
		err  error
	)
	if kind == dumpKindMsgpack {
		data, err = db.ToMsgpack()
	} else {
		data, err = db.ToJSON()
	}
	if err != nil {
		return xerrors.Errorf("serialize graph: %w", err)
	}
	_, err = w.Write(data)
	return err
}
