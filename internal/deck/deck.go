// Package deck builds flashcard decks from the routines of a resolved
// entity. A card's prompt is the routine's qualified name followed by its
// signature; the answer is its documentation.
package deck

import (
	"bytes"
	"encoding/json"
	"iter"
	"slices"

	"github.com/starford/liblearn/internal/checksum"
)

// Card is one prompt/answer pair.
type Card struct {
	Prompt string `json:"prompt"`
	Answer string `json:"answer"`
}

// Deck is an ordered prompt to answer mapping. It is read-only once built.
type Deck struct {
	cards []Card
	index map[string]int
}

func newDeck() *Deck {
	return &Deck{index: make(map[string]int)}
}

// add appends c unless its prompt is already present. It reports whether
// the card was added.
func (d *Deck) add(c Card) bool {
	if _, ok := d.index[c.Prompt]; ok {
		return false
	}
	d.index[c.Prompt] = len(d.cards)
	d.cards = append(d.cards, c)
	return true
}

// Len returns the number of cards.
func (d *Deck) Len() int { return len(d.cards) }

// Cards returns a copy of the cards in deck order.
func (d *Deck) Cards() []Card { return slices.Clone(d.cards) }

// Keys yields the prompts in deck order.
func (d *Deck) Keys() iter.Seq[string] {
	return func(yield func(string) bool) {
		for _, c := range d.cards {
			if !yield(c.Prompt) {
				return
			}
		}
	}
}

// All yields prompt/answer pairs in deck order.
func (d *Deck) All() iter.Seq2[string, string] {
	return func(yield func(string, string) bool) {
		for _, c := range d.cards {
			if !yield(c.Prompt, c.Answer) {
				return
			}
		}
	}
}

// Answer returns the answer for prompt.
func (d *Deck) Answer(prompt string) (string, bool) {
	i, ok := d.index[prompt]
	if !ok {
		return "", false
	}
	return d.cards[i].Answer, true
}

// Fingerprint is a content hash over the ordered cards.
func (d *Deck) Fingerprint() string {
	parts := make([]string, 0, 2*len(d.cards))
	for _, c := range d.cards {
		parts = append(parts, c.Prompt, c.Answer)
	}
	return checksum.SumStrings(parts...)
}

// MarshalJSON encodes the deck as a JSON object whose keys keep deck order.
func (d *Deck) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, c := range d.cards {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(c.Prompt)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(c.Answer)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Result is a built deck together with its quality score.
type Result struct {
	Path     string
	Deck     *Deck
	Eligible int
	// Quality is the percentage of eligible routines that produced a card.
	Quality float64
}
