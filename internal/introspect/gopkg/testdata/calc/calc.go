// Package calc is a fixture for the gopkg provider tests.
package calc

import "io"

// Add returns the sum of a and b.
//
// It never overflows in tests.
func Add(a, b int) int { return a + b }

// Sum adds every value.
func Sum(values ...int) (total int) {
	for _, v := range values {
		total += v
	}
	return total
}

// Deprecated: use Add.
func Plus(a, b int) int { return a + b }

func undocumented() {}

// copyTo writes the accumulator to w.
func copyTo(w io.Writer, c *Calculator) (int, error) { return 0, nil }

// Pi is not a routine.
const Pi = 3.14

// Calculator accumulates values.
type Calculator struct {
	acc int
}

// Push adds v to the accumulator.
func (c *Calculator) Push(v int) { c.acc += v }

// Value returns the accumulated total.
func (c Calculator) Value() int { return c.acc }

// String renders the accumulator.
func (c Calculator) String() string { return "" }

// Store persists values.
type Store interface {
	// Load reads the value for key.
	Load(key string) (int, bool)
	// Save writes v under key.
	Save(key string, v int) error
}

// Celsius is a named basic type without methods.
type Celsius float64
