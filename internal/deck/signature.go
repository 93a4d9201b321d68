package deck

import (
	"fmt"
	"strings"

	"github.com/starford/liblearn/internal/docstring"
	"github.com/starford/liblearn/internal/introspect"
)

// Source tells where a routine's signature came from.
type Source int

const (
	// SourceDirect: the provider introspected the parameter list.
	SourceDirect Source = iota
	// SourceFallback: the signature was recovered from the synopsis line.
	SourceFallback
	// SourceUnresolved: no signature could be found.
	SourceUnresolved
)

func (s Source) String() string {
	switch s {
	case SourceDirect:
		return "direct"
	case SourceFallback:
		return "fallback"
	default:
		return "unresolved"
	}
}

// Unresolved selects what happens to a routine whose signature cannot be
// found.
type Unresolved int

const (
	// UnresolvedDrop counts the routine as eligible but produces no card.
	UnresolvedDrop Unresolved = iota
	// UnresolvedPlaceholder produces a card with a placeholder signature.
	UnresolvedPlaceholder
)

// DefaultPlaceholder is the signature text used by UnresolvedPlaceholder.
const DefaultPlaceholder = "(...)"

func (u Unresolved) String() string {
	if u == UnresolvedPlaceholder {
		return "placeholder"
	}
	return "drop"
}

// ParseUnresolved is the inverse of Unresolved.String. The empty string
// selects UnresolvedDrop.
func ParseUnresolved(s string) (Unresolved, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "drop":
		return UnresolvedDrop, nil
	case "placeholder":
		return UnresolvedPlaceholder, nil
	default:
		return 0, fmt.Errorf("deck: unknown unresolved policy %q", s)
	}
}

// Extracted is the result of signature extraction for one routine.
type Extracted struct {
	// Signature is the rendered signature, "" when unresolved.
	Signature string
	// Doc is the documentation left for the answer: the whole block for
	// direct and unresolved signatures, the text after the signature line
	// for fallback signatures.
	Doc    string
	Source Source
}

// ExtractSignature finds the signature of r. Direct introspection wins;
// otherwise the first line of doc is matched against a name(args) call
// form. For routines of a class the instance parameter is prepended to
// recovered arguments that lack it.
func ExtractSignature(p introspect.Provider, r introspect.Routine, doc string) Extracted {
	if sig, ok := p.TrySignature(r); ok {
		return Extracted{Signature: sig.String(), Doc: doc, Source: SourceDirect}
	}

	line, remainder, _ := strings.Cut(doc, "\n")
	_, args, ok := docstring.MatchSignature(line)
	if !ok {
		return Extracted{Doc: doc, Source: SourceUnresolved}
	}
	if r.Owner != nil && r.Owner.IsClass() {
		self := p.Conventions(r.Owner).InstanceParam()
		switch {
		case args == "":
			args = self
		case !strings.HasPrefix(args, self):
			args = self + ", " + args
		}
	}
	sig := introspect.Signature{Raw: "(" + args + ")"}
	remainder = strings.TrimRight(strings.TrimLeft(remainder, " \t\r\n"), " \t\r\n")
	return Extracted{Signature: sig.String(), Doc: remainder, Source: SourceFallback}
}

// processDoc turns the documentation left by extraction into a card
// answer. Short mode keeps only the first paragraph.
func processDoc(ex Extracted, short bool) string {
	if short {
		return docstring.Synopsis(ex.Doc)
	}
	return ex.Doc
}
