package main

import (
	"errors"
	"io/fs"
	"os"
	"strings"
	"time"

	"golang.org/x/xerrors"
	"gopkg.in/yaml.v3"

	"github.com/Feresey/schemagraph/analyzer"
	"github.com/Feresey/schemagraph/db"
	"github.com/Feresey/schemagraph/graph"
	"github.com/Feresey/schemagraph/parse"
)

type FileConfig struct {
	DBConn         string        `yaml:"dbconn"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
	Patterns       []string      `yaml:"parser"`

	Graph    GraphFileConfig    `yaml:"graph"`
	Analyzer AnalyzerFileConfig `yaml:"analyzer"`
}

// GraphFileConfig - ограничения графа. Пустые значения заменяются значениями по умолчанию.
type GraphFileConfig struct {
	MaxNodes      int   `yaml:"max_nodes"`
	MaxEdges      int   `yaml:"max_edges"`
	Indexing      *bool `yaml:"indexing"`
	PathCaching   *bool `yaml:"path_caching"`
	PathCacheSize int   `yaml:"path_cache_size"`
}

type AnalyzerFileConfig struct {
	JoinMaxDepth int `yaml:"join_max_depth"`
}

type AppConfig struct {
	DB       db.Config
	Parser   parse.Config
	Graph    graph.Config
	Analyzer analyzer.Config
}

func (fc FileConfig) Build() (*AppConfig, error) {
	patterns, err := fc.parsePatterns(fc.Patterns)
	if err != nil {
		return nil, xerrors.Errorf("parse patterns failed: %w", err)
	}
	if fc.Graph.MaxNodes < 0 || fc.Graph.MaxEdges < 0 || fc.Graph.PathCacheSize < 0 {
		return nil, xerrors.New("graph limits must not be negative")
	}
	if fc.Analyzer.JoinMaxDepth < 0 {
		return nil, xerrors.New("join_max_depth must not be negative")
	}

	gc := graph.DefaultConfig()
	if fc.Graph.MaxNodes != 0 {
		gc.MaxNodes = fc.Graph.MaxNodes
	}
	if fc.Graph.MaxEdges != 0 {
		gc.MaxEdges = fc.Graph.MaxEdges
	}
	if fc.Graph.Indexing != nil {
		gc.EnableIndexing = *fc.Graph.Indexing
	}
	if fc.Graph.PathCaching != nil {
		gc.EnablePathCaching = *fc.Graph.PathCaching
	}
	if fc.Graph.PathCacheSize != 0 {
		gc.PathCacheSize = fc.Graph.PathCacheSize
	}

	return &AppConfig{
		DB: db.Config{
			Conn:           fc.DBConn,
			ConnectTimeout: fc.ConnectTimeout,
		},
		Parser: parse.Config{
			Patterns: patterns,
		},
		Graph: gc,
		Analyzer: analyzer.Config{
			JoinMaxDepth: fc.Analyzer.JoinMaxDepth,
		},
	}, nil
}

// ReadConfig читает конфиг. Если optional, отсутствующий файл означает конфиг по умолчанию.
func ReadConfig(confPath string, optional bool) (*AppConfig, error) {
	var fc FileConfig
	file, err := os.ReadFile(confPath)
	switch {
	case err == nil:
	case optional && errors.Is(err, fs.ErrNotExist):
		return fc.Build()
	default:
		return nil, xerrors.Errorf("read config file: %w", err)
	}

	if err := yaml.Unmarshal(file, &fc); err != nil {
		return nil, xerrors.Errorf("parse config: %w", err)
	}

	c, err := fc.Build()
	if err != nil {
		return nil, xerrors.Errorf("process config data: %w", err)
	}
	return c, nil
}

func (fc FileConfig) parsePatterns(
	patterns []string,
) ([]parse.Pattern, error) {
	res := make([]parse.Pattern, 0, len(patterns))
	for _, pattern := range patterns {
		parts := strings.Split(strings.TrimSpace(pattern), ".")

		var p parse.Pattern
		switch {
		case len(parts) == 1 && parts[0] != "":
			p.Schema = parts[0]
		case len(parts) == 2 && parts[0] != "" && parts[1] != "":
			p.Schema = parts[0]
			p.Tables = parts[1]
		default:
			return nil, xerrors.Errorf("wrong pattern: %q", pattern)
		}
		res = append(res, p)
	}

	return res, nil
}
