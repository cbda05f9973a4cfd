package main

import (
	"errors"
	"io"
	"os"

	"github.com/jackc/pgx/v5"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"golang.org/x/xerrors"

	"github.com/Feresey/schemagraph/analyzer"
	"github.com/Feresey/schemagraph/graph"
	"github.com/Feresey/schemagraph/parse"
	"github.com/Feresey/schemagraph/parse/queries"
	"github.com/Feresey/schemagraph/schema"
)

const stdinFileName = "-"

type SchemaLoaderFlags struct {
	dumpPath *cli.StringFlag
}

func NewSchemaLoaderFlags() SchemaLoaderFlags {
	return SchemaLoaderFlags{
		dumpPath: &cli.StringFlag{
			Name:      "input",
			Aliases:   []string{"i"},
			Usage:     "schema definition (json or yaml, - for stdin); the database is parsed if empty",
			TakesFile: true,
			Action: func(ctx *cli.Context, fpath string) error {
				if fpath == stdinFileName {
					return nil
				}
				fileInfo, err := os.Stat(fpath)
				if os.IsNotExist(err) {
					return xerrors.Errorf("definition file %q does not exist", fpath)
				}
				if err != nil {
					return xerrors.Errorf("stat %q: %w", fpath, err)
				}
				if fileInfo.IsDir() {
					return xerrors.Errorf("%q is a directory, expected file", fpath)
				}
				return nil
			},
		},
	}
}

// SchemaLoader получает описание схемы из файла или из базы данных.
type SchemaLoader struct {
	BaseCommand

	conn *pgx.Conn
}

func (p *SchemaLoader) Init(ctx *cli.Context, flags flags, sflags SchemaLoaderFlags) error {
	fromFile := sflags.dumpPath.Get(ctx) != ""
	base, err := NewBase(ctx, flags, fromFile)
	if err != nil {
		return cli.Exit(err, exitCodeError)
	}
	p.BaseCommand = base

	if !fromFile {
		conn, err := p.connectDB(ctx, flags.debug.Get(ctx))
		if err != nil {
			return cli.Exit(err, exitCodeConnect)
		}
		p.conn = conn
	}
	return nil
}

func (p *SchemaLoader) Cleanup(ctx *cli.Context) error {
	if p.conn == nil {
		return nil
	}
	if err := p.conn.Close(ctx.Context); err != nil {
		return xerrors.Errorf("close pgx conn: %w", err)
	}
	return nil
}

func (p *SchemaLoader) GetDefinition(
	ctx *cli.Context,
	sflags SchemaLoaderFlags,
) (*schema.Definition, error) {
	if filename := sflags.dumpPath.Get(ctx); filename != "" {
		return p.getDefinitionFromFile(ctx.App.Reader, filename)
	}
	p.log.Info("schema definition path is not specified")
	return p.parseDB(ctx)
}

func (p *SchemaLoader) getDefinitionFromFile(stdin io.Reader, filename string) (def *schema.Definition, err error) {
	p.log.Debug("load schema from file", zap.String("filename", filename))
	defer func() { p.log.Info("schema loaded", zap.Error(err), zap.String("filename", filename)) }()

	in := stdin
	if filename != stdinFileName {
		file, err := os.Open(filename)
		if err != nil {
			return nil, xerrors.Errorf("open schema definition file: %w", err)
		}
		defer file.Close()
		in = file
	}
	def, err = schema.ReadDefinition(in, schema.FormatFromPath(filename))
	if err != nil {
		return nil, xerrors.Errorf("read schema definition: %w", err)
	}
	return def, nil
}

func (p *SchemaLoader) parseDB(ctx *cli.Context) (def *schema.Definition, err error) {
	if p.conn == nil {
		return nil, xerrors.New("database connection is not established")
	}
	p.log.Debug("parse schema")
	defer func() { p.log.Info("schema parsed", zap.Error(err)) }()

	parser := parse.NewParser(p.conn, p.log)
	def, err = parser.LoadSchema(ctx.Context, p.cnf.Parser)
	if err != nil {
		var qErr queries.Error
		if errors.As(err, &qErr) {
			p.log.Error(qErr.Pretty())
		}
		return nil, xerrors.Errorf("parse schema: %w", err)
	}
	return def, nil
}

// LoadGraph строит граф схемы.
func (p *SchemaLoader) LoadGraph(ctx *cli.Context, sflags SchemaLoaderFlags) (*graph.Database, error) {
	def, err := p.GetDefinition(ctx, sflags)
	if err != nil {
		return nil, err
	}
	db, err := schema.Load(p.log, def, p.cnf.Graph)
	if err != nil {
		return nil, xerrors.Errorf("load schema graph: %w", err)
	}
	return db, nil
}

func (p *SchemaLoader) Analyzer(ctx *cli.Context, sflags SchemaLoaderFlags) (*analyzer.Analyzer, error) {
	db, err := p.LoadGraph(ctx, sflags)
	if err != nil {
		return nil, err
	}
	return analyzer.New(p.log, db, p.cnf.Analyzer), nil
}

// schemaCommand - общая часть команд, которым нужна схема.
type schemaCommand struct {
	flags  flags
	schema SchemaLoaderFlags

	loader SchemaLoader
}

func newSchemaCommand(f flags) schemaCommand {
	return schemaCommand{
		flags:  f,
		schema: NewSchemaLoaderFlags(),
	}
}

func (c *schemaCommand) Set(extra ...cli.Flag) []cli.Flag {
	return append(append(c.flags.Set(), c.schema.dumpPath), extra...)
}

func (c *schemaCommand) init(ctx *cli.Context) error {
	return c.loader.Init(ctx, c.flags, c.schema)
}

func (c *schemaCommand) cleanup(ctx *cli.Context) error {
	return c.loader.Cleanup(ctx)
}

func (c *schemaCommand) analyzer(ctx *cli.Context) (*analyzer.Analyzer, error) {
	return c.loader.Analyzer(ctx, c.schema)
}

func (c *schemaCommand) command(name, usage string, action cli.ActionFunc, extra ...cli.Flag) *cli.Command {
	return &cli.Command{
		Name:   name,
		Usage:  usage,
		Flags:  c.Set(extra...),
		Before: c.init,
		Action: action,
		After:  c.cleanup,
	}
}
