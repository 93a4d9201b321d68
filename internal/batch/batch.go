// Package batch scores deck quality over many targets. A failing target
// never aborts the batch: it is recorded with the sentinel quality.
package batch

import (
	"bufio"
	"cmp"
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"

	slogctx "github.com/veqryn/slog-context"
	"golang.org/x/sync/errgroup"

	"github.com/starford/liblearn/internal/deck"
	"github.com/starford/liblearn/internal/report"
)

// Sentinel is the quality recorded for a target whose deck could not be
// built.
const Sentinel = -100.0

// Runner builds one deck per target with a bounded number of workers.
type Runner struct {
	builder *deck.Builder
	logger  *slog.Logger
	workers int
}

// NewRunner creates a runner. workers below 1 means sequential.
func NewRunner(b *deck.Builder, workers int, logger *slog.Logger) *Runner {
	if workers < 1 {
		workers = 1
	}
	return &Runner{builder: b, logger: logger, workers: workers}
}

// Run builds a deck for every path and returns one result per path in the
// input order. Only cancellation of ctx is reported as an error.
func (r *Runner) Run(ctx context.Context, paths []string, opts deck.Options) ([]report.Result, error) {
	results := make([]report.Result, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for i, path := range paths {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			results[i] = r.one(gctx, path, opts)
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

func (r *Runner) one(ctx context.Context, path string, opts deck.Options) report.Result {
	ctx = slogctx.Append(ctx, slog.String("target", path))
	res, err := r.builder.BuildPath(ctx, path, opts)
	if err != nil {
		r.logger.ErrorContext(ctx, "batch: build failed", slog.String("error", err.Error()))
		return report.Result{Path: path, Quality: Sentinel, Error: err.Error()}
	}
	deck.LogDeck(r.logger, path, res.Deck)
	return report.Result{
		Path:     path,
		Quality:  res.Quality,
		Eligible: res.Eligible,
		Cards:    res.Deck.Len(),
	}
}

// Rank sorts results by quality, highest first unless ascending, breaking
// ties by path, and assigns ranks starting at 1.
func Rank(results []report.Result, ascending bool) {
	slices.SortStableFunc(results, func(a, b report.Result) int {
		c := cmp.Compare(a.Quality, b.Quality)
		if !ascending {
			c = -c
		}
		if c != 0 {
			return c
		}
		return strings.Compare(a.Path, b.Path)
	})
	for i := range results {
		results[i].Rank = i + 1
	}
}

// LogRanking logs one "path: quality" line per result.
func LogRanking(logger *slog.Logger, results []report.Result) {
	logger.Info("Results")
	logger.Info("-------")
	for _, r := range results {
		logger.Info(FormatResult(r))
	}
}

// FormatResult renders a result as "path: quality" with two decimals.
func FormatResult(r report.Result) string {
	return fmt.Sprintf("%s: %.2f", r.Path, r.Quality)
}

// ReadPaths reads newline-delimited targets, skipping blank lines and
// lines starting with '#'.
func ReadPaths(rd io.Reader) ([]string, error) {
	var out []string
	scanner := bufio.NewScanner(rd)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("batch: read paths: %w", err)
	}
	return out, nil
}
