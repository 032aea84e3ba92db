// Package lfsr implements the binary linear-feedback shift registers used by
// the generator.
//
// A register state is a Sequence of Degree bits, oldest first. Each tap t
// names the bit t positions from the end of the state; the feedback bit is
// the XOR of all tapped bits and is appended while the oldest bit is dropped.
package lfsr

import (
	"fmt"
	"math/bits"

	geffe "github.com/BackendStack21/geffe-go"
	"github.com/BackendStack21/geffe-go/utils"
)

// ValidateTaps checks that degree is usable and every tap lies in 1..degree.
func ValidateTaps(degree int, taps []int) error {
	if degree <= 0 {
		return fmt.Errorf("%w: register length must be positive, got %d", geffe.ErrInvalidConfiguration, degree)
	}
	if degree > utils.MaxDegree {
		return fmt.Errorf("%w: register length %d exceeds %d", geffe.ErrInvalidConfiguration, degree, utils.MaxDegree)
	}
	if len(taps) == 0 {
		return fmt.Errorf("%w: register has no taps", geffe.ErrInvalidConfiguration)
	}
	for _, t := range taps {
		if t < 1 || t > degree {
			return fmt.Errorf("%w: tap %d outside 1..%d", geffe.ErrInvalidConfiguration, t, degree)
		}
	}
	return nil
}

// Advance returns the feedback bit for state: the XOR of state[len-t] over
// all taps.
func Advance(state geffe.Sequence, taps []int) (geffe.Bit, error) {
	if err := ValidateTaps(len(state), taps); err != nil {
		return 0, err
	}
	return advance(state, taps), nil
}

func advance(state geffe.Sequence, taps []int) geffe.Bit {
	var b geffe.Bit
	n := len(state)
	for _, t := range taps {
		b ^= state[n-t]
	}
	return b
}

// Extend returns state followed by generated bits until the result holds
// length bits. The input is not modified. If length <= len(state) the first
// length bits of state are returned.
func Extend(state geffe.Sequence, taps []int, length int) (geffe.Sequence, error) {
	if err := ValidateTaps(len(state), taps); err != nil {
		return nil, err
	}
	if err := utils.CheckLength(length, utils.MaxKeystreamLength); err != nil {
		return nil, fmt.Errorf("%w: sequence length %d: %v", geffe.ErrInvalidConfiguration, length, err)
	}
	return extend(state, taps, length), nil
}

func extend(state geffe.Sequence, taps []int, length int) geffe.Sequence {
	if length <= len(state) {
		return state[:length].Clone()
	}
	out := make(geffe.Sequence, len(state), length)
	copy(out, state)
	for len(out) < length {
		out = append(out, advance(out, taps))
	}
	return out
}

// CanonicalSeed returns the all-zero state with a final 1 bit.
func CanonicalSeed(degree int) geffe.Sequence {
	if degree <= 0 {
		return nil
	}
	seed := make(geffe.Sequence, degree)
	seed[degree-1] = 1
	return seed
}

// Register is a validated register configuration. Besides Sequence based
// generation it steps states packed into a uint64, the most significant used
// bit holding the oldest state bit.
type Register struct {
	name    string
	degree  int
	taps    []int
	tapMask uint64
	mask    uint64
}

// New validates degree and taps and returns a Register.
func New(degree int, taps []int) (*Register, error) {
	if err := ValidateTaps(degree, taps); err != nil {
		return nil, err
	}
	r := &Register{
		degree: degree,
		taps:   append([]int(nil), taps...),
		mask:   uint64(1)<<uint(degree) - 1,
	}
	for _, t := range taps {
		// state[degree-t] sits at bit t-1 of the packed word.
		r.tapMask ^= uint64(1) << uint(t-1)
	}
	return r, nil
}

// FromParams builds a Register from its configuration.
func FromParams(p geffe.RegisterParams) (*Register, error) {
	r, err := New(p.Degree, p.Taps)
	if err != nil {
		if p.Name != "" {
			return nil, fmt.Errorf("register %s: %w", p.Name, err)
		}
		return nil, err
	}
	r.name = p.Name
	return r, nil
}

// Name returns the register's configured name, possibly empty.
func (r *Register) Name() string { return r.name }

// Degree returns the register length.
func (r *Register) Degree() int { return r.degree }

// Taps returns a copy of the tap offsets.
func (r *Register) Taps() []int { return append([]int(nil), r.taps...) }

// Extend generates length bits starting from state, which must hold exactly
// Degree bits and must not be all zero.
func (r *Register) Extend(state geffe.Sequence, length int) (geffe.Sequence, error) {
	if err := r.checkState(state); err != nil {
		return nil, err
	}
	if err := utils.CheckLength(length, utils.MaxKeystreamLength); err != nil {
		return nil, fmt.Errorf("%w: sequence length %d: %v", geffe.ErrInvalidConfiguration, length, err)
	}
	return extend(state, r.taps, length), nil
}

func (r *Register) checkState(state geffe.Sequence) error {
	if len(state) != r.degree {
		return fmt.Errorf("%w: state has %d bits, register %q has %d", geffe.ErrInvalidConfiguration, len(state), r.name, r.degree)
	}
	if state.IsZero() {
		return fmt.Errorf("%w: all-zero state for register %q", geffe.ErrInvalidConfiguration, r.name)
	}
	return nil
}

// Pack converts a Degree-bit state to its packed form.
func (r *Register) Pack(state geffe.Sequence) uint64 {
	var s uint64
	for _, b := range state {
		s = s<<1 | uint64(b&1)
	}
	return s & r.mask
}

// Unpack converts a packed state back to a Sequence.
func (r *Register) Unpack(s uint64) geffe.Sequence {
	out := make(geffe.Sequence, r.degree)
	for i := r.degree - 1; i >= 0; i-- {
		out[i] = geffe.Bit(s & 1)
		s >>= 1
	}
	return out
}

// Step advances a packed state by one clock.
func (r *Register) Step(s uint64) uint64 {
	fb := uint64(bits.OnesCount64(s&r.tapMask) & 1)
	return (s<<1)&r.mask | fb
}

// Seed returns the packed canonical seed.
func (r *Register) Seed() uint64 { return 1 }
