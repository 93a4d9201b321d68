// Package deckservice coordinates deck building, caching and batch reports
// for the HTTP and MCP surfaces.
package deckservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/starford/liblearn/internal/apperr"
	"github.com/starford/liblearn/internal/batch"
	"github.com/starford/liblearn/internal/deck"
	"github.com/starford/liblearn/internal/introspect"
	"github.com/starford/liblearn/internal/introspect/metafile"
	"github.com/starford/liblearn/internal/present"
	"github.com/starford/liblearn/internal/report"
	"github.com/starford/liblearn/internal/storage"
)

// ErrNoReports is returned by report operations when no report database is
// configured.
var ErrNoReports = errors.New("report database not configured")

// DeckDetail is the full representation of a built deck.
type DeckDetail struct {
	Path        string      `json:"path"`
	Quality     float64     `json:"quality"`
	Eligible    int         `json:"eligible"`
	Fingerprint string      `json:"fingerprint"`
	Cards       []deck.Card `json:"cards"`
}

// QualityDetail is the quality summary of a deck without its cards.
type QualityDetail struct {
	Path     string  `json:"path"`
	Quality  float64 `json:"quality"`
	Eligible int     `json:"eligible"`
	Cards    int     `json:"cards"`
}

type invalidator interface {
	Invalidate()
}

type cacheKey struct {
	path string
	opts deck.Options
}

// Service builds decks on demand. Unshuffled decks are cached until
// Invalidate is called.
type Service struct {
	builder *deck.Builder
	runner  *batch.Runner
	db      *report.DB
	source  string
	logger  *slog.Logger

	mu    sync.Mutex
	rng   *rand.Rand
	cache map[cacheKey]*deck.Result
}

// NewService creates a new deck service. db may be nil, in which case report
// operations fail with ErrNoReports.
func NewService(builder *deck.Builder, runner *batch.Runner, db *report.DB, source string, rng *rand.Rand, logger *slog.Logger) *Service {
	return &Service{
		builder: builder,
		runner:  runner,
		db:      db,
		source:  source,
		logger:  logger,
		rng:     rng,
		cache:   make(map[cacheKey]*deck.Result),
	}
}

// Source returns the provider kind the service resolves against.
func (s *Service) Source() string { return s.source }

// Build returns the deck for path, from the cache when possible.
func (s *Service) Build(ctx context.Context, path string, opts deck.Options) (*deck.Result, error) {
	if !introspect.ValidPath(path) {
		return nil, fmt.Errorf("%w: invalid path %q", apperr.ErrResolution, path)
	}
	key := cacheKey{path: path, opts: opts}
	if !opts.Shuffle {
		s.mu.Lock()
		res, ok := s.cache[key]
		s.mu.Unlock()
		if ok {
			return res, nil
		}
	}

	res, err := s.builder.BuildPath(ctx, path, opts)
	if err != nil {
		return nil, err
	}
	deck.LogDeck(s.logger, path, res.Deck)

	if !opts.Shuffle {
		s.mu.Lock()
		s.cache[key] = res
		s.mu.Unlock()
	}
	return res, nil
}

// GetDeck builds the deck for path and returns its detail.
func (s *Service) GetDeck(ctx context.Context, path string, opts deck.Options) (*DeckDetail, error) {
	res, err := s.Build(ctx, path, opts)
	if err != nil {
		return nil, err
	}
	return &DeckDetail{
		Path:        res.Path,
		Quality:     res.Quality,
		Eligible:    res.Eligible,
		Fingerprint: res.Deck.Fingerprint(),
		Cards:       nonNilSlice(res.Deck.Cards()),
	}, nil
}

// Quality builds the deck for path and returns its quality summary.
func (s *Service) Quality(ctx context.Context, path string, opts deck.Options) (*QualityDetail, error) {
	res, err := s.Build(ctx, path, opts)
	if err != nil {
		return nil, err
	}
	return &QualityDetail{
		Path:     res.Path,
		Quality:  res.Quality,
		Eligible: res.Eligible,
		Cards:    res.Deck.Len(),
	}, nil
}

// Draw returns the first n prompts of a cycling presentation of the deck for
// path. When reshuffle is set the prompt order is permuted before every
// repeated pass. n below 1 draws a single pass.
func (s *Service) Draw(ctx context.Context, path string, opts deck.Options, n int, reshuffle bool) ([]string, error) {
	res, err := s.Build(ctx, path, opts)
	if err != nil {
		return nil, err
	}
	if n < 1 {
		n = res.Deck.Len()
	}
	c := present.NewCycler(res.Deck.Keys(), reshuffle, s.childRand())
	defer c.Stop()
	return nonNilSlice(c.Take(n)), nil
}

func (s *Service) childRand() *rand.Rand {
	s.mu.Lock()
	defer s.mu.Unlock()
	return rand.New(rand.NewPCG(s.rng.Uint64(), s.rng.Uint64()))
}

// RunBatch scores every path, ranks the results and, when record is set,
// stores the run in the report database.
func (s *Service) RunBatch(ctx context.Context, paths []string, opts deck.Options, ascending, record bool) (*report.Run, error) {
	if record && s.db == nil {
		return nil, ErrNoReports
	}
	started := time.Now().UTC()
	results, err := s.runner.Run(ctx, paths, opts)
	if err != nil {
		return nil, err
	}
	batch.Rank(results, ascending)
	batch.LogRanking(s.logger, results)

	run := report.Run{
		StartedAt: started,
		Source:    s.source,
		Options:   DescribeOptions(opts),
		Results:   results,
	}
	if !record {
		run.Total, run.Failures, run.Mean = report.Summarize(results)
		return &run, nil
	}
	id, err := s.db.SaveRun(ctx, run)
	if err != nil {
		return nil, fmt.Errorf("save run: %w", err)
	}
	return s.db.GetRun(ctx, id)
}

// Runs returns the most recent recorded batch runs.
func (s *Service) Runs(ctx context.Context, limit int) ([]report.Run, error) {
	if s.db == nil {
		return nil, ErrNoReports
	}
	return s.db.ListRuns(ctx, limit)
}

// Run returns one recorded batch run with its results.
func (s *Service) Run(ctx context.Context, id int64) (*report.Run, error) {
	if s.db == nil {
		return nil, ErrNoReports
	}
	return s.db.GetRun(ctx, id)
}

// History returns the recorded results of a single path, newest first.
func (s *Service) History(ctx context.Context, path string, limit int) ([]report.PathResult, error) {
	if s.db == nil {
		return nil, ErrNoReports
	}
	return s.db.PathHistory(ctx, path, limit)
}

// Dump resolves path and writes it to store as a metadata file. It returns
// the name of the written file.
func (s *Service) Dump(ctx context.Context, path string, store storage.Provider) (string, error) {
	p := s.builder.Provider()
	e, err := p.Resolve(ctx, path)
	if err != nil {
		return "", err
	}
	return metafile.Save(store, metafile.Encode(p, e))
}

// Invalidate drops every cached deck and the provider's own caches.
func (s *Service) Invalidate() {
	s.mu.Lock()
	n := len(s.cache)
	clear(s.cache)
	s.mu.Unlock()

	if inv, ok := s.builder.Provider().(invalidator); ok {
		inv.Invalidate()
	}
	s.logger.Debug("deckservice: cache invalidated", slog.Int("decks", n))
}

// DescribeOptions renders opts as a short human readable string.
func DescribeOptions(opts deck.Options) string {
	var parts []string
	if opts.Short {
		parts = append(parts, "short")
	} else {
		parts = append(parts, "full")
	}
	if opts.Shuffle {
		parts = append(parts, "shuffle")
	}
	if opts.AllowPrivate {
		parts = append(parts, "private")
	}
	if opts.AllowSpecial {
		parts = append(parts, "special")
	}
	parts = append(parts, "unresolved="+opts.Unresolved.String())
	return strings.Join(parts, ",")
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
