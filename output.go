package main

import (
	"encoding/json"
	"io"

	"github.com/urfave/cli/v2"
	"golang.org/x/xerrors"
	"gopkg.in/yaml.v3"
)

const (
	outputText = "text"
	outputJSON = "json"
	outputYAML = "yaml"
)

func newFormatFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Value:   outputText,
		Usage:   "output format: text, json or yaml",
		Action: func(ctx *cli.Context, format string) error {
			switch format {
			case outputText, outputJSON, outputYAML:
				return nil
			default:
				return xerrors.Errorf("unknown output format %q", format)
			}
		},
	}
}

func newSchemaNameFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "schema",
		Aliases: []string{"s"},
		Value:   "public",
		Usage:   "schema name",
	}
}

// writeOutput пишет v в формате format, для text вызывается text.
func writeOutput(w io.Writer, format string, v any, text func(w io.Writer) error) error {
	switch format {
	case outputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case outputYAML:
		return writeYAML(w, v)
	default:
		return text(w)
	}
}

// writeYAML кодирует v через json, чтобы ключи совпадали с json тегами.
func writeYAML(w io.Writer, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return xerrors.Errorf("marshal: %w", err)
	}
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return xerrors.Errorf("convert to yaml: %w", err)
	}
	blockStyle(&node)

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&node); err != nil {
		return xerrors.Errorf("encode yaml: %w", err)
	}
	return enc.Close()
}

func blockStyle(n *yaml.Node) {
	n.Style &^= yaml.FlowStyle | yaml.DoubleQuotedStyle
	for _, c := range n.Content {
		blockStyle(c)
	}
}
