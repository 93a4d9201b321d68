package pysrc

import (
	"context"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"

	"github.com/starford/liblearn/internal/introspect"
)

// scope is the extracted content of a module or class body.
type scope struct {
	funcs   []*function
	classes []*class
}

type class struct {
	name string
	doc  string
	scope
}

type function struct {
	name    string
	doc     string
	params  []introspect.Param
	returns string
}

// parseModule parses Python source into its top-level scope. The syntax
// tree is released before returning.
func parseModule(ctx context.Context, src []byte) (*scope, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(python.GetLanguage())
	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("pysrc: parse: %w", err)
	}
	defer tree.Close()

	s := &scope{}
	collect(tree.RootNode(), src, s)
	return s, nil
}

func collect(node *sitter.Node, src []byte, s *scope) {
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		var decorators []string
		if child.Type() == "decorated_definition" {
			for j := 0; j < int(child.NamedChildCount()); j++ {
				if d := child.NamedChild(j); d.Type() == "decorator" {
					decorators = append(decorators, strings.TrimPrefix(d.Content(src), "@"))
				}
			}
			child = child.ChildByFieldName("definition")
			if child == nil {
				continue
			}
		}
		switch child.Type() {
		case "class_definition":
			c := &class{name: fieldText(child, "name", src)}
			if body := child.ChildByFieldName("body"); body != nil {
				c.doc = docOf(body, src)
				collect(body, src, &c.scope)
			}
			s.classes = append(s.classes, c)
		case "function_definition":
			if isAccessor(decorators) {
				continue
			}
			fn := &function{
				name:   fieldText(child, "name", src),
				params: paramsOf(child.ChildByFieldName("parameters"), src),
			}
			if ret := child.ChildByFieldName("return_type"); ret != nil {
				fn.returns = "-> " + ret.Content(src)
			}
			if body := child.ChildByFieldName("body"); body != nil {
				fn.doc = docOf(body, src)
			}
			s.funcs = append(s.funcs, fn)
		}
	}
}

// isAccessor reports whether decorators turn a function into a property,
// which is an attribute rather than a routine.
func isAccessor(decorators []string) bool {
	for _, d := range decorators {
		if d == "property" || d == "functools.cached_property" || d == "cached_property" ||
			strings.HasSuffix(d, ".setter") || strings.HasSuffix(d, ".getter") || strings.HasSuffix(d, ".deleter") {
			return true
		}
	}
	return false
}

func fieldText(node *sitter.Node, field string, src []byte) string {
	if n := node.ChildByFieldName(field); n != nil {
		return n.Content(src)
	}
	return ""
}

func paramsOf(node *sitter.Node, src []byte) []introspect.Param {
	if node == nil {
		return nil
	}
	params := make([]introspect.Param, 0, node.NamedChildCount())
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		if child.Type() == "comment" {
			continue
		}
		text := strings.Join(strings.Fields(child.Content(src)), " ")
		params = append(params, introspect.Param{Name: paramName(child, src), Text: text})
	}
	return params
}

func paramName(node *sitter.Node, src []byte) string {
	switch node.Type() {
	case "identifier":
		return node.Content(src)
	case "default_parameter", "typed_default_parameter":
		return fieldText(node, "name", src)
	case "typed_parameter", "list_splat_pattern", "dictionary_splat_pattern":
		for i := 0; i < int(node.NamedChildCount()); i++ {
			switch c := node.NamedChild(i); c.Type() {
			case "identifier":
				return c.Content(src)
			case "list_splat_pattern", "dictionary_splat_pattern":
				return paramName(c, src)
			}
		}
	}
	return ""
}

// docOf returns the docstring of a block: a string literal that is the
// first statement.
func docOf(body *sitter.Node, src []byte) string {
	if body.NamedChildCount() == 0 {
		return ""
	}
	first := body.NamedChild(0)
	if first.Type() != "expression_statement" || first.NamedChildCount() != 1 {
		return ""
	}
	lit := first.NamedChild(0)
	if lit.Type() != "string" {
		return ""
	}
	return unquote(lit.Content(src))
}

var escapes = strings.NewReplacer(
	`\\`, `\`,
	"\\\n", "",
	`\n`, "\n",
	`\t`, "\t",
	`\"`, `"`,
	`\'`, `'`,
)

// unquote strips the prefix and quotes of a Python string literal and
// resolves the common escape sequences unless the literal is raw.
func unquote(lit string) string {
	i := strings.IndexAny(lit, `"'`)
	if i < 0 {
		return lit
	}
	prefix, body := strings.ToLower(lit[:i]), lit[i:]
	for _, q := range []string{`"""`, `'''`, `"`, `'`} {
		if len(body) >= 2*len(q) && strings.HasPrefix(body, q) && strings.HasSuffix(body, q) {
			body = body[len(q) : len(body)-len(q)]
			break
		}
	}
	if strings.Contains(prefix, "r") {
		return body
	}
	return escapes.Replace(body)
}
