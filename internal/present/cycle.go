// Package present drives the interactive drill over a built deck: the order
// and repetition of prompts, and the prompt/acknowledge exchange itself.
package present

import (
	"iter"
	"math/rand/v2"
	"slices"
)

type state int

const (
	firstPass state = iota
	repeat
	done
)

// Cycler yields prompt names. During the first pass it emits names from
// its source and keeps a snapshot of them; when cycling, it then replays
// the snapshot forever, reshuffled before each replay when requested.
// A Cycler is not safe for concurrent use.
type Cycler struct {
	next func() (string, bool)
	stop func()

	cycle     bool
	reshuffle bool
	rng       *rand.Rand

	state state
	saved []string
	pos   int
}

// NewCycler returns a cycler that repeats source indefinitely. An empty
// source ends immediately.
func NewCycler(source iter.Seq[string], reshuffle bool, rng *rand.Rand) *Cycler {
	c := newCycler(source)
	c.cycle = true
	c.reshuffle = reshuffle
	c.rng = rng
	return c
}

// Once returns a cycler that emits source a single time.
func Once(source iter.Seq[string]) *Cycler {
	return newCycler(source)
}

func newCycler(source iter.Seq[string]) *Cycler {
	next, stop := iter.Pull(source)
	return &Cycler{next: next, stop: stop}
}

// Next returns the next name, or false once the sequence has ended.
func (c *Cycler) Next() (string, bool) {
	switch c.state {
	case firstPass:
		if name, ok := c.next(); ok {
			if c.cycle {
				c.saved = append(c.saved, name)
			}
			return name, true
		}
		c.stop()
		if !c.cycle || len(c.saved) == 0 {
			c.state = done
			return "", false
		}
		c.state = repeat
		c.pos = len(c.saved)
		return c.Next()
	case repeat:
		if c.pos == len(c.saved) {
			if c.reshuffle {
				c.rng.Shuffle(len(c.saved), func(i, j int) { c.saved[i], c.saved[j] = c.saved[j], c.saved[i] })
			}
			c.pos = 0
		}
		name := c.saved[c.pos]
		c.pos++
		return name, true
	default:
		return "", false
	}
}

// Stop ends the sequence and releases the source.
func (c *Cycler) Stop() {
	if c.state == firstPass {
		c.stop()
	}
	c.state = done
}

// Take returns up to n names.
func (c *Cycler) Take(n int) []string {
	out := make([]string, 0, n)
	for len(out) < n {
		name, ok := c.Next()
		if !ok {
			break
		}
		out = append(out, name)
	}
	return out
}

// All adapts the cycler to a range-over-func sequence. Breaking out of the
// loop stops the cycler.
func (c *Cycler) All() iter.Seq[string] {
	return func(yield func(string) bool) {
		defer c.Stop()
		for {
			name, ok := c.Next()
			if !ok || !yield(name) {
				return
			}
		}
	}
}

// Snapshot returns a copy of the names captured so far.
func (c *Cycler) Snapshot() []string { return slices.Clone(c.saved) }
