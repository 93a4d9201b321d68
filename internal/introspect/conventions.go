package introspect

import (
	"go/token"
	"strings"
)

// Conventions classifies routine names for filtering and supplies the
// instance parameter used when a signature is synthesized for a method.
type Conventions interface {
	Name() string
	IsSpecial(name string) bool
	IsPrivate(name string) bool
	InstanceParam() string
}

// Python follows the dunder / leading-underscore naming rules.
var Python Conventions = pythonConventions{}

// Go treats protocol hook methods as special and unexported names as private.
var Go Conventions = goConventions{}

// ConventionsByName returns the named convention set, defaulting to Python.
func ConventionsByName(name string) Conventions {
	if strings.EqualFold(name, "go") {
		return Go
	}
	return Python
}

type pythonConventions struct{}

func (pythonConventions) Name() string { return "python" }

func (pythonConventions) IsSpecial(name string) bool {
	return len(name) > 4 && strings.HasPrefix(name, "__") && strings.HasSuffix(name, "__")
}

func (c pythonConventions) IsPrivate(name string) bool {
	return strings.HasPrefix(name, "_") && !c.IsSpecial(name)
}

func (pythonConventions) InstanceParam() string { return "self" }

type goConventions struct{}

func (goConventions) Name() string { return "go" }

// goHooks are method names the standard library calls implicitly.
var goHooks = map[string]struct{}{
	"String":        {},
	"GoString":      {},
	"Error":         {},
	"Format":        {},
	"Unwrap":        {},
	"MarshalJSON":   {},
	"UnmarshalJSON": {},
	"MarshalText":   {},
	"UnmarshalText": {},
	"MarshalBinary": {},
	"ServeHTTP":     {},
}

func (goConventions) IsSpecial(name string) bool {
	_, ok := goHooks[name]
	return ok
}

func (goConventions) IsPrivate(name string) bool {
	return !token.IsExported(name)
}

func (goConventions) InstanceParam() string { return "recv" }
