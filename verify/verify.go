// Package verify checks recovered register states against a keystream.
package verify

import (
	"fmt"

	geffe "github.com/BackendStack21/geffe-go"
	"github.com/BackendStack21/geffe-go/combiner"
	"github.com/BackendStack21/geffe-go/keystream"
	"github.com/BackendStack21/geffe-go/lfsr"
)

// Report describes how a regenerated keystream compares to the observed one.
type Report struct {
	Length int `json:"length"`
	// Mismatches counts differing positions.
	Mismatches int `json:"mismatches"`
	// FirstMismatch is the first differing position, or -1.
	FirstMismatch int    `json:"first_mismatch"`
	Expected      string `json:"expected_fingerprint"`
	Actual        string `json:"actual_fingerprint"`
}

// OK reports whether the regenerated keystream matched exactly.
func (r *Report) OK() bool { return r.Mismatches == 0 }

// Keystream regenerates len(z) bits from the three states and compares them
// with z.
func Keystream(params geffe.AttackParams, l1, l2, l3, z geffe.Sequence) (*Report, error) {
	got, err := combiner.Generate(params, l1, l2, l3, len(z))
	if err != nil {
		return nil, err
	}
	return compare(got, z), nil
}

// Recovery verifies an attack result.
func Recovery(params geffe.AttackParams, rec *geffe.Recovery, z geffe.Sequence) (*Report, error) {
	if rec == nil {
		return nil, fmt.Errorf("%w: nil recovery", geffe.ErrInvalidConfiguration)
	}
	return Keystream(params, rec.L1, rec.L2, rec.L3, z)
}

// Selector reports whether selector is the output of the L3 register
// started from l3.
func Selector(params geffe.AttackParams, l3, selector geffe.Sequence) (bool, error) {
	r, err := lfsr.FromParams(params.L3)
	if err != nil {
		return false, err
	}
	regen, err := r.Extend(l3, len(selector))
	if err != nil {
		return false, err
	}
	return regen.Equal(selector), nil
}

func compare(got, want geffe.Sequence) *Report {
	r := &Report{
		Length:        len(want),
		FirstMismatch: -1,
		Expected:      keystream.Fingerprint(want),
		Actual:        keystream.Fingerprint(got),
	}
	for i := range want {
		if got[i] != want[i] {
			if r.FirstMismatch < 0 {
				r.FirstMismatch = i
			}
			r.Mismatches++
		}
	}
	return r
}
