// Package db открывает соединение с PostgreSQL для чтения каталога.
package db

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/tracelog"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/xerrors"
)

const applicationName = "schemagraph"

type Config struct {
	Conn           string
	ConnectTimeout time.Duration
	// Debug включает логирование запросов
	Debug bool
}

func NewDB(
	ctx context.Context,
	logger *zap.Logger,
	cfg Config,
) (*pgx.Conn, error) {
	if cfg.Conn == "" {
		return nil, xerrors.New("connection string is empty")
	}
	cnf, err := pgx.ParseConfig(cfg.Conn)
	if err != nil {
		return nil, xerrors.Errorf("parse config: %w", err)
	}
	if _, ok := cnf.RuntimeParams["application_name"]; !ok {
		cnf.RuntimeParams["application_name"] = applicationName
	}
	if cfg.ConnectTimeout > 0 {
		cnf.ConnectTimeout = cfg.ConnectTimeout
	}

	if cfg.Debug {
		cnf.Tracer = &tracelog.TraceLog{
			Logger:   tracelog.LoggerFunc(traceLogger(logger.Named("pgx"))),
			LogLevel: tracelog.LogLevelInfo,
		}
	}

	c, err := pgx.ConnectConfig(ctx, cnf)
	if err != nil {
		return nil, xerrors.Errorf("connect to database: %w", err)
	}
	return c, nil
}

func traceLogger(log *zap.Logger) func(
	ctx context.Context,
	level tracelog.LogLevel,
	msg string,
	data map[string]any,
) {
	return func(ctx context.Context, level tracelog.LogLevel, msg string, data map[string]any) {
		if msg == "Prepare" {
			return
		}
		var rawSQL *string
		fields := make([]zapcore.Field, 0, len(data))
		for k, v := range data {
			f := zap.Any(k, v)
			if f.Key == "sql" && f.Type == zapcore.StringType {
				rawSQL = &f.String
				continue
			}
			fields = append(fields, f)
		}

		if rawSQL != nil {
			msg = msg + "\n" + *rawSQL
		}
		if ce := log.Check(zapLevel(level), msg); ce != nil {
			ce.Write(fields...)
		}
	}
}

func zapLevel(level tracelog.LogLevel) zapcore.Level {
	switch level {
	case tracelog.LogLevelInfo:
		return zapcore.InfoLevel
	case tracelog.LogLevelWarn:
		return zapcore.WarnLevel
	case tracelog.LogLevelError:
		return zapcore.ErrorLevel
	default:
		return zapcore.DebugLevel
	}
}
