package main

import (
	"errors"
	"io"
	"os"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"golang.org/x/xerrors"

	"github.com/Feresey/schemagraph/schema"
)

type parseCommand struct {
	schemaCommand
	outputPath *cli.StringFlag
}

func NewParseCommand(f flags) *parseCommand {
	return &parseCommand{
		schemaCommand: newSchemaCommand(f),
		outputPath: &cli.StringFlag{
			Name:        "output",
			Aliases:     []string{"o"},
			Usage:       "definition file, format is chosen by extension (.json, .yml)",
			DefaultText: "stdout",
			TakesFile:   true,
		},
	}
}

func (p *parseCommand) Command() *cli.Command {
	cmd := p.command("parse", "write the schema definition to a file", p.run, p.outputPath)
	cmd.Description = "reads the schema from the database (or converts --input) and writes its definition"
	return cmd
}

func (p *parseCommand) run(ctx *cli.Context) error {
	def, err := p.loader.GetDefinition(ctx, p.schema)
	if err != nil {
		return err
	}
	// определение должно собираться в граф
	if _, err := schema.Load(p.loader.log, def, p.loader.cnf.Graph); err != nil {
		return xerrors.Errorf("check schema definition: %w", err)
	}

	outputPath := p.outputPath.Get(ctx)
	if outputPath == "" || outputPath == stdinFileName {
		return schema.WriteDefinition(ctx.App.Writer, def, schema.FormatJSON)
	}
	p.loader.log.Info("write definition", zap.String("path", outputPath), zap.Int("tables", len(def.Tables)))
	return dumpToFile(outputPath, func(w io.Writer) error {
		return schema.WriteDefinition(w, def, schema.FormatFromPath(outputPath))
	})
}

func dumpToFile(fileName string, f func(w io.Writer) error) (err error) {
	file, err := os.Create(fileName)
	if err != nil {
		return xerrors.Errorf("create output file for dump: %w", err)
	}
	defer func() {
		err = errors.Join(err, file.Close())
	}()

	return f(file)
}
