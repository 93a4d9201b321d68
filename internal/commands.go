package internal

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/starford/liblearn/internal/batch"
	"github.com/starford/liblearn/internal/introspect/gopkg"
	"github.com/starford/liblearn/internal/introspect/metafile"
	"github.com/starford/liblearn/internal/logging"
	"github.com/starford/liblearn/internal/mcpserver"
	"github.com/starford/liblearn/internal/present"
	"github.com/starford/liblearn/internal/report"
	"github.com/starford/liblearn/internal/storage"
)

// Learn builds the deck for path and runs an interactive session over it.
func (a *App) Learn(ctx context.Context, path string) error {
	cfg := a.config.Deck
	res, err := a.service.Build(ctx, path, cfg.Options())
	if err != nil {
		return err
	}
	a.logger.Info("deck ready",
		slog.String("path", path),
		slog.Int("cards", res.Deck.Len()),
		slog.Float64("quality", res.Quality))

	var names *present.Cycler
	if cfg.Cycle {
		names = present.NewCycler(res.Deck.Keys(), cfg.Shuffle, a.child())
	} else {
		names = present.Once(res.Deck.Keys())
	}

	return present.NewSession(res.Deck, names, a.stdin, a.stdout, logging.Named(a.logger, "present")).Run(ctx)
}

// ReferencePaths lists the targets a batch covers when none are given:
// the standard library for the go and python sources, every metadata file
// for the meta source.
func (a *App) ReferencePaths(ctx context.Context) ([]string, error) {
	switch p := a.provider.(type) {
	case *gopkg.Provider:
		return p.Packages(ctx, "std")
	case *metafile.Provider:
		return p.Modules()
	default:
		return batch.PythonStdlib, nil
	}
}

// Batch scores every path, or the reference list when paths is empty, and
// logs the ranking.
func (a *App) Batch(ctx context.Context, paths []string, ascending, record bool) (*report.Run, error) {
	if len(paths) == 0 {
		ref, err := a.ReferencePaths(ctx)
		if err != nil {
			return nil, fmt.Errorf("reference list: %w", err)
		}
		paths = ref
	}
	opts := a.config.Deck.Options()
	opts.Shuffle = false

	run, err := a.service.RunBatch(ctx, paths, opts, ascending, record)
	if err != nil {
		return nil, err
	}
	a.logger.Info("batch finished",
		slog.Int("total", run.Total),
		slog.Int("failures", run.Failures),
		slog.Float64("mean", run.Mean),
		slog.Int64("run_id", run.ID))
	return run, nil
}

// History writes the most recent recorded runs as a table.
func (a *App) History(ctx context.Context, limit int) error {
	runs, err := a.service.Runs(ctx, limit)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTARTED\tSOURCE\tOPTIONS\tTOTAL\tFAILURES\tMEAN")
	for _, r := range runs {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\t%d\t%.2f\n",
			r.ID, r.StartedAt.Local().Format(time.DateTime), r.Source, r.Options, r.Total, r.Failures, r.Mean)
	}
	return tw.Flush()
}

// Dump writes the entity at path as a metadata file under dir, creating dir
// when needed. An empty dir selects the configured metadata directory.
func (a *App) Dump(ctx context.Context, path, dir string) (string, error) {
	if dir == "" {
		dir = a.config.Source.MetaDir
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create metadata dir: %w", err)
	}
	store, err := storage.NewFS(dir)
	if err != nil {
		return "", err
	}
	name, err := a.service.Dump(ctx, path, store)
	if err != nil {
		return "", err
	}
	a.logger.Info("metadata written", slog.String("path", path), slog.String("file", name))
	return name, nil
}

// ServeMCP serves the MCP tools on stdin/stdout until the client disconnects.
func (a *App) ServeMCP() error {
	return mcpserver.New(a.service, a.config.Deck.Options(), Version).ServeStdio()
}
