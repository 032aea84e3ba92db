// Package combiner implements the Geffe/Gifford combination rule that merges
// the three register outputs into the keystream.
package combiner

import (
	"fmt"

	geffe "github.com/BackendStack21/geffe-go"
	"github.com/BackendStack21/geffe-go/lfsr"
)

// Combine returns x when s is 1 and y when s is 0.
func Combine(x, y, s geffe.Bit) geffe.Bit {
	return (s & x) ^ ((1 ^ s) & y)
}

// Apply combines three equal-length sequences position by position.
func Apply(x, y, s geffe.Sequence) (geffe.Sequence, error) {
	if len(x) != len(y) || len(x) != len(s) {
		return nil, fmt.Errorf("%w: combiner inputs have lengths %d, %d, %d", geffe.ErrInvalidConfiguration, len(x), len(y), len(s))
	}
	out := make(geffe.Sequence, len(x))
	for i := range out {
		out[i] = Combine(x[i], y[i], s[i])
	}
	return out, nil
}

// Matches reports whether combining x, y and s reproduces z exactly. It
// stops at the first differing position.
func Matches(x, y, s, z geffe.Sequence) bool {
	if len(x) != len(z) || len(y) != len(z) || len(s) != len(z) {
		return false
	}
	for i := range z {
		if Combine(x[i], y[i], s[i]) != z[i] {
			return false
		}
	}
	return true
}

// Generator produces keystream from the three registers of a parameter set.
type Generator struct {
	l1, l2, l3 *lfsr.Register
}

// NewGenerator validates the register configuration in params.
func NewGenerator(params geffe.AttackParams) (*Generator, error) {
	l1, err := lfsr.FromParams(params.L1)
	if err != nil {
		return nil, err
	}
	l2, err := lfsr.FromParams(params.L2)
	if err != nil {
		return nil, err
	}
	l3, err := lfsr.FromParams(params.L3)
	if err != nil {
		return nil, err
	}
	return &Generator{l1: l1, l2: l2, l3: l3}, nil
}

// Keystream returns length bits generated from the given initial states.
func (g *Generator) Keystream(s1, s2, s3 geffe.Sequence, length int) (geffe.Sequence, error) {
	x, err := g.l1.Extend(s1, length)
	if err != nil {
		return nil, err
	}
	y, err := g.l2.Extend(s2, length)
	if err != nil {
		return nil, err
	}
	s, err := g.l3.Extend(s3, length)
	if err != nil {
		return nil, err
	}
	return Apply(x, y, s)
}

// Generate is a convenience wrapper around NewGenerator and Keystream.
func Generate(params geffe.AttackParams, s1, s2, s3 geffe.Sequence, length int) (geffe.Sequence, error) {
	g, err := NewGenerator(params)
	if err != nil {
		return nil, err
	}
	return g.Keystream(s1, s2, s3, length)
}
