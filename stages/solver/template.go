package solver

import (
	"fmt"

	geffe "github.com/BackendStack21/geffe-go"
)

// BuildTemplate derives the selector template for one (x, y) pair.
//
// Where x and y differ the keystream bit names the selected register, so the
// selector is forced. Where they agree the selector is free if z agrees too,
// and the pair is impossible otherwise. ok is false for an impossible pair.
func BuildTemplate(x, y, z geffe.Sequence) (t geffe.Template, ok bool, err error) {
	if len(x) != len(z) || len(y) != len(z) {
		return nil, false, fmt.Errorf("%w: sequence lengths %d, %d and %d differ",
			geffe.ErrInvalidConfiguration, len(x), len(y), len(z))
	}
	t = make(geffe.Template, len(z))
	for i, b := range z {
		switch {
		case x[i] != y[i] && b == x[i]:
			t[i] = geffe.SelectorOne
		case x[i] != y[i]:
			t[i] = geffe.SelectorZero
		case b == x[i]:
			t[i] = geffe.SelectorFree
		default:
			return nil, false, nil
		}
	}
	return t, true, nil
}

// Completions enumerates every way of filling the free positions of a
// template, in lexicographic order of the free bits: the first free position
// is the most significant and 0 comes before 1.
//
// The count is never materialised, so templates with more than 64 free
// positions are fine.
type Completions struct {
	seq   geffe.Sequence
	free  []int
	count int
	done  bool
}

// NewCompletions starts an enumeration over the first n positions of t.
// n larger than the template is clamped.
func NewCompletions(t geffe.Template, n int) *Completions {
	if n > len(t) || n < 0 {
		n = len(t)
	}
	c := &Completions{seq: make(geffe.Sequence, n)}
	for i := 0; i < n; i++ {
		switch t[i] {
		case geffe.SelectorOne:
			c.seq[i] = 1
		case geffe.SelectorFree:
			c.free = append(c.free, i)
		}
	}
	return c
}

// Free returns the number of free positions being enumerated.
func (c *Completions) Free() int { return len(c.free) }

// Next advances to the next completion. The first call yields the all-zero
// assignment.
func (c *Completions) Next() bool {
	if c.done {
		return false
	}
	if c.count == 0 {
		c.count = 1
		return true
	}
	for k := len(c.free) - 1; k >= 0; k-- {
		p := c.free[k]
		if c.seq[p] == 0 {
			c.seq[p] = 1
			c.count++
			return true
		}
		c.seq[p] = 0
	}
	c.done = true
	return false
}

// Sequence returns the current completion. It is overwritten by Next.
func (c *Completions) Sequence() geffe.Sequence { return c.seq }

// Count returns how many completions have been yielded.
func (c *Completions) Count() int { return c.count }
