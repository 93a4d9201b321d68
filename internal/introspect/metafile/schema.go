// Package metafile provides routines from pre-extracted metadata files, for
// targets that cannot be introspected live. Each file describes one module
// (or one class, with kind: class) and is named after its dotted path:
//
//	module: calc
//	conventions: python
//	routines:
//	  - name: add
//	    params: [a, b]
//	    doc: Adds two numbers.
//	classes:
//	  - name: Calculator
//	    routines:
//	      - name: clear
//	        doc: |
//	          clear()
//
//	          Resets the accumulator.
//
// A routine without a params key is treated as not introspectable; its
// signature is then recovered from the documentation's synopsis line.
package metafile

import (
	"strings"
)

// Extensions are the file extensions recognized as metadata files, in
// lookup order.
var Extensions = []string{".yaml", ".yml", ".json"}

// File is the top-level document of a metadata file.
type File struct {
	Module      string        `yaml:"module"`
	Kind        string        `yaml:"kind,omitempty"`
	Conventions string        `yaml:"conventions,omitempty"`
	Doc         string        `yaml:"doc,omitempty"`
	Routines    []RoutineSpec `yaml:"routines,omitempty"`
	Classes     []ClassSpec   `yaml:"classes,omitempty"`
}

// ClassSpec describes a class nested in a module or another class.
type ClassSpec struct {
	Name     string        `yaml:"name"`
	Doc      string        `yaml:"doc,omitempty"`
	Routines []RoutineSpec `yaml:"routines,omitempty"`
	Classes  []ClassSpec   `yaml:"classes,omitempty"`
}

// RoutineSpec describes one routine. Params is nil when the parameter list
// is unknown, and points to an empty slice for a routine without parameters.
type RoutineSpec struct {
	Name    string    `yaml:"name"`
	Doc     string    `yaml:"doc,omitempty"`
	Params  *[]string `yaml:"params,omitempty"`
	Results string    `yaml:"results,omitempty"`
}

// paramName extracts the bare parameter name from a descriptor such as
// "*args", "b: int = 2" or "s string".
func paramName(text string) string {
	name := strings.TrimLeft(strings.TrimSpace(text), "*")
	if i := strings.IndexAny(name, ":= "); i >= 0 {
		name = name[:i]
	}
	return name
}
