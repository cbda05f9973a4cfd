package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/xerrors"

	"github.com/Feresey/schemagraph/graph"
)

type MergeCommand struct {
	flags      flags
	outputPath *cli.StringFlag
	format     *cli.StringFlag

	BaseCommand
}

func NewMergeCommand(f flags) *MergeCommand {
	return &MergeCommand{
		flags: f,
		outputPath: &cli.StringFlag{
			Name:      "output",
			Aliases:   []string{"o"},
			Usage:     "merged snapshot, msgpack if the extension is .msgpack, json otherwise",
			Required:  true,
			TakesFile: true,
		},
		format: newFormatFlag(),
	}
}

func (c *MergeCommand) Command() *cli.Command {
	return &cli.Command{
		Name:      "merge",
		Usage:     "merge graph snapshots",
		ArgsUsage: "<snapshot> <snapshot> [snapshot...]",
		Flags:     append(c.flags.Set(), c.outputPath, c.format),
		Before:    c.init,
		Action:    c.run,
	}
}

func (c *MergeCommand) init(ctx *cli.Context) error {
	base, err := NewBase(ctx, c.flags, true)
	if err != nil {
		return cli.Exit(err, exitCodeError)
	}
	c.BaseCommand = base
	return nil
}

func (c *MergeCommand) run(ctx *cli.Context) error {
	if err := requireArgs(ctx, 2); err != nil {
		return err
	}
	paths := ctx.Args().Slice()

	snapshots, err := c.readSnapshots(ctx.Context, paths)
	if err != nil {
		return err
	}
	db := snapshots[0]
	total := &graph.MergeReport{Conflicts: []graph.Conflict{}}
	for i, other := range snapshots[1:] {
		path := paths[i+1]
		report, err := db.Merge(other)
		if err != nil {
			return xerrors.Errorf("merge %q: %w", path, err)
		}
		c.log.Info("snapshot merged",
			zap.String("path", path),
			zap.Int("nodes", report.NodesAdded),
			zap.Int("edges", report.EdgesAdded),
			zap.Int("conflicts", len(report.Conflicts)))
		total.NodesAdded += report.NodesAdded
		total.EdgesAdded += report.EdgesAdded
		total.Conflicts = append(total.Conflicts, report.Conflicts...)
	}

	outputPath := c.outputPath.Get(ctx)
	kind, err := dumpKind("", outputPath)
	if err != nil {
		return err
	}
	if kind != dumpKindMsgpack {
		kind = dumpKindJSON
	}
	if err := dumpToFile(outputPath, func(w io.Writer) error { return writeSnapshot(w, db, kind) }); err != nil {
		return err
	}

	return writeOutput(ctx.App.Writer, c.format.Get(ctx), total, func(w io.Writer) error {
		fmt.Fprintf(w, "nodes added: %d\nedges added: %d\n", total.NodesAdded, total.EdgesAdded)
		for _, conflict := range total.Conflicts {
			fmt.Fprintf(w, "conflict %s: %s\n", conflict.Kind, conflict.ID)
		}
		return nil
	})
}

// readSnapshots загружает снимки параллельно, порядок совпадает с paths.
func (c *MergeCommand) readSnapshots(ctx context.Context, paths []string) ([]*graph.Database, error) {
	snapshots := make([]*graph.Database, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			db, err := c.readSnapshot(path)
			if err != nil {
				return err
			}
			snapshots[i] = db
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return snapshots, nil
}

func (c *MergeCommand) readSnapshot(path string) (*graph.Database, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, xerrors.Errorf("read snapshot: %w", err)
	}
	kind, err := dumpKind("", path)
	if err != nil {
		return nil, err
	}
	var db *graph.Database
	if kind == dumpKindMsgpack {
		db, err = graph.FromMsgpack(c.log, data, c.cnf.Graph)
	} else {
		db, err = graph.FromJSON(c.log, data, c.cnf.Graph)
	}
	if err != nil {
		return nil, xerrors.Errorf("load snapshot %q: %w", path, err)
	}
	return db, nil
}
