package main

import (
	"os"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"golang.org/x/xerrors"
)

type ScriptCommand struct {
	schemaCommand
}

func NewScriptCommand(f flags) *ScriptCommand {
	return &ScriptCommand{newSchemaCommand(f)}
}

func (c *ScriptCommand) Command() *cli.Command {
	cmd := c.command("script", "run a lua script against the schema", c.run)
	cmd.ArgsUsage = "<script.lua>"
	cmd.Description = `the script gets the global "schema" table and the "schemagraph" module`
	return cmd
}

func (c *ScriptCommand) run(ctx *cli.Context) error {
	if err := requireArgs(ctx, 1); err != nil {
		return err
	}
	path := ctx.Args().First()
	file, err := os.Open(path)
	if err != nil {
		return xerrors.Errorf("open script: %w", err)
	}
	defer file.Close()

	a, err := c.analyzer(ctx)
	if err != nil {
		return err
	}
	c.loader.log.Debug("run script", zap.String("path", path))
	if err := a.RunScript(file, path); err != nil {
		return xerrors.Errorf("run script %q: %w", path, err)
	}
	return nil
}
