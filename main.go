package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/xerrors"

	"github.com/Feresey/schemagraph/db"
)

const (
	exitCodeError   = 1
	exitCodeConnect = 3
)

func newLogger(debug bool) (*zap.Logger, error) {
	lc := zap.NewDevelopmentConfig()
	lc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	lc.DisableStacktrace = true
	if debug {
		lc.Level.SetLevel(zap.DebugLevel)
	} else {
		lc.Level.SetLevel(zap.InfoLevel)
	}
	return lc.Build()
}

type flags struct {
	configPath *cli.StringFlag
	debug      *cli.BoolFlag
}

func (f *flags) Set() []cli.Flag {
	return []cli.Flag{
		f.configPath,
		f.debug,
	}
}

func newFlags() flags {
	return flags{
		configPath: &cli.StringFlag{
			Name:      "config",
			Value:     "schemagraph.yml",
			Usage:     "config file path",
			TakesFile: true,
			Aliases:   []string{"c"},
		},
		debug: &cli.BoolFlag{
			Name:  "debug",
			Value: false,
			Usage: "show debug information",
		},
	}
}

func newApp() *cli.App {
	f := newFlags()

	return &cli.App{
		Name:        "schemagraph",
		Usage:       "relational schema graph analyzer",
		Description: "loads a schema from a definition file or a PostgreSQL catalog and answers questions about it",
		Flags:       f.Set(),
		Commands: []*cli.Command{
			NewParseCommand(f).Command(),
			NewTablesCommand(f).Command(),
			NewTableCommand(f).Command(),
			NewColumnsCommand(f).Command(),
			NewRelationsCommand(f).Command(),
			NewJoinCommand(f).Command(),
			NewOrderCommand(f).Command(),
			NewStatsCommand(f).Command(),
			NewDumpCommand(f).Command(),
			NewMergeCommand(f).Command(),
			NewScriptCommand(f).Command(),
		},
		ExitErrHandler: func(ctx *cli.Context, err error) {
			if err == nil {
				return
			}
			if f.debug.Get(ctx) {
				fmt.Fprintf(ctx.App.ErrWriter, "%+v\n", err)
			} else {
				fmt.Fprintf(ctx.App.ErrWriter, "%v\n", err)
			}
			cli.OsExiter(exitCode(err))
		},
		EnableBashCompletion: true,
	}
}

func exitCode(err error) int {
	var ec cli.ExitCoder
	if errors.As(err, &ec) && ec.ExitCode() != 0 {
		return ec.ExitCode()
	}
	return exitCodeError
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		os.Exit(exitCode(err))
	}
}

type BaseCommand struct {
	log *zap.Logger
	cnf *AppConfig
}

// NewBase создаёт логгер и читает конфиг.
// Без конфига можно работать только с файлом схемы.
func NewBase(ctx *cli.Context, f flags, configOptional bool) (BaseCommand, error) {
	var empty BaseCommand
	log, err := newLogger(f.debug.Get(ctx))
	if err != nil {
		return empty, xerrors.Errorf("create logger: %w", err)
	}
	zap.ReplaceGlobals(log)
	cnf, err := ReadConfig(f.configPath.Get(ctx), configOptional)
	if err != nil {
		return empty, xerrors.Errorf("get config: %w", err)
	}
	log.Debug("config readed")

	return BaseCommand{
		log: log,
		cnf: cnf,
	}, nil
}

func (b *BaseCommand) connectDB(ctx *cli.Context, debug bool) (*pgx.Conn, error) {
	if debug {
		b.cnf.DB.Debug = true
	}
	conn, err := db.NewDB(ctx.Context, b.log, b.cnf.DB)
	if err != nil {
		return nil, xerrors.Errorf("create database connection: %w", err)
	}
	b.log.Debug("connected to database")

	return conn, nil
}
