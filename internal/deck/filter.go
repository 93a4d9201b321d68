package deck

import (
	"github.com/starford/liblearn/internal/docstring"
	"github.com/starford/liblearn/internal/introspect"
)

// Filter decides which routines are eligible for a card. Deprecated
// routines are always excluded.
type Filter struct {
	AllowSpecial bool
	AllowPrivate bool
}

// Eligible reports whether a routine named name with documentation doc
// passes the filter under the given naming conventions.
func (f Filter) Eligible(conv introspect.Conventions, name, doc string) bool {
	switch {
	case !f.AllowSpecial && conv.IsSpecial(name):
		return false
	case !f.AllowPrivate && conv.IsPrivate(name):
		return false
	case docstring.IsDeprecated(doc):
		return false
	}
	return true
}
