package deck

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"

	"github.com/starford/liblearn/internal/apperr"
	"github.com/starford/liblearn/internal/introspect"
)

// Options control a single build.
type Options struct {
	AllowSpecial bool
	AllowPrivate bool
	// Short keeps only the synopsis of each answer.
	Short bool
	// Shuffle permutes the eligible routines before cards are made.
	Shuffle     bool
	Unresolved  Unresolved
	Placeholder string
}

// Filter returns the routine filter implied by o.
func (o Options) Filter() Filter {
	return Filter{AllowSpecial: o.AllowSpecial, AllowPrivate: o.AllowPrivate}
}

// Builder turns entities resolved by a provider into decks.
type Builder struct {
	provider introspect.Provider
	logger   *slog.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

// NewBuilder creates a builder. rng is used only for shuffled builds.
func NewBuilder(p introspect.Provider, rng *rand.Rand, logger *slog.Logger) *Builder {
	return &Builder{provider: p, rng: rng, logger: logger}
}

// Provider returns the provider the builder resolves against.
func (b *Builder) Provider() introspect.Provider { return b.provider }

// BuildPath resolves path and builds its deck.
func (b *Builder) BuildPath(ctx context.Context, path string, opts Options) (*Result, error) {
	b.logger.Debug("deck: looking for documentation", slog.String("path", path))
	e, err := b.provider.Resolve(ctx, path)
	if err != nil {
		return nil, err
	}
	return b.Build(ctx, e, opts)
}

type candidate struct {
	routine introspect.Routine
	doc     string
}

// Build makes one card per eligible routine of e that has both a signature
// and documentation. It fails with apperr.ErrEmptyEntity when no routine is
// eligible.
func (b *Builder) Build(ctx context.Context, e *introspect.Entity, opts Options) (*Result, error) {
	filter := opts.Filter()
	conv := b.provider.Conventions(e)

	var eligible []candidate
	for _, r := range b.provider.ListMembers(e) {
		doc := b.provider.Documentation(r)
		if !filter.Eligible(conv, r.Name, doc) {
			continue
		}
		eligible = append(eligible, candidate{routine: r, doc: doc})
	}
	if len(eligible) == 0 {
		return nil, fmt.Errorf("%w: %s", apperr.ErrEmptyEntity, e.Path)
	}
	if opts.Shuffle {
		b.mu.Lock()
		b.rng.Shuffle(len(eligible), func(i, j int) { eligible[i], eligible[j] = eligible[j], eligible[i] })
		b.mu.Unlock()
	}

	placeholder := opts.Placeholder
	if placeholder == "" {
		placeholder = DefaultPlaceholder
	}

	d := newDeck()
	for _, c := range eligible {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		card, ok := b.card(e, c, opts, placeholder)
		if !ok {
			continue
		}
		if !d.add(card) {
			b.logger.Debug("deck: duplicate prompt", slog.String("prompt", card.Prompt))
		}
	}

	b.logger.Debug("deck: finished looking for documentation",
		slog.String("path", e.Path),
		slog.Int("cards", d.Len()),
		slog.Int("eligible", len(eligible)),
	)
	return &Result{
		Path:     e.Path,
		Deck:     d,
		Eligible: len(eligible),
		Quality:  float64(d.Len()) / float64(len(eligible)) * 100,
	}, nil
}

func (b *Builder) card(e *introspect.Entity, c candidate, opts Options, placeholder string) (Card, bool) {
	qualified := e.Path + "." + c.routine.Name
	ex := ExtractSignature(b.provider, c.routine, c.doc)
	switch ex.Source {
	case SourceFallback:
		b.logger.Debug("deck: found signature using fallback", slog.String("routine", qualified))
	case SourceUnresolved:
		b.logger.Debug("deck: could not find signature", slog.String("routine", qualified))
		if opts.Unresolved != UnresolvedPlaceholder {
			return Card{}, false
		}
		ex.Signature = placeholder
	}

	answer := processDoc(ex, opts.Short)
	if answer == "" {
		b.logger.Debug("deck: could not find docstring", slog.String("routine", qualified))
		return Card{}, false
	}
	return Card{Prompt: qualified + ex.Signature, Answer: answer}, true
}

// LogDeck writes the deck as JSON at debug level.
func LogDeck(logger *slog.Logger, path string, d *Deck) {
	data, err := d.MarshalJSON()
	if err != nil {
		logger.Error("deck: encode", slog.String("path", path), slog.String("error", err.Error()))
		return
	}
	logger.Debug("deck: built",
		slog.String("path", path),
		slog.Int("length", d.Len()),
		slog.String("cards", string(data)),
	)
}
