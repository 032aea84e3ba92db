package lfsr

import (
	"fmt"

	geffe "github.com/BackendStack21/geffe-go"
)

// Window is a fixed-length view of a register's output that slides one
// position per clock. It is a ring buffer: sliding overwrites the oldest bit
// with the next output bit instead of reallocating.
//
// The first Degree bits of the window are always the register state that
// generated it, and the window always equals Extend(state, Len()).
type Window struct {
	buf  geffe.Sequence
	head int
	taps []int
}

// NewWindow copies seq into a window that feeds back through taps.
// seq must be at least as long as the largest tap.
func NewWindow(seq geffe.Sequence, taps []int) (*Window, error) {
	if err := ValidateTaps(len(seq), taps); err != nil {
		return nil, err
	}
	return &Window{buf: seq.Clone(), taps: taps}, nil
}

// Window returns a window of length bits starting at state.
func (r *Register) Window(state geffe.Sequence, length int) (*Window, error) {
	if length < r.degree {
		return nil, fmt.Errorf("%w: window of %d bits is shorter than register %q (%d)", geffe.ErrInvalidConfiguration, length, r.name, r.degree)
	}
	seq, err := r.Extend(state, length)
	if err != nil {
		return nil, err
	}
	return &Window{buf: seq, taps: r.taps}, nil
}

// Len returns the window length.
func (w *Window) Len() int { return len(w.buf) }

// At returns the i-th oldest bit of the window.
func (w *Window) At(i int) geffe.Bit {
	j := w.head + i
	if j >= len(w.buf) {
		j -= len(w.buf)
	}
	return w.buf[j]
}

// Slide drops the oldest bit and appends the next output bit, which it
// returns.
func (w *Window) Slide() geffe.Bit {
	n := len(w.buf)
	var b geffe.Bit
	for _, t := range w.taps {
		b ^= w.At(n - t)
	}
	w.buf[w.head] = b
	w.head++
	if w.head == n {
		w.head = 0
	}
	return b
}

// Head copies the oldest n bits out of the window.
func (w *Window) Head(n int) geffe.Sequence {
	out := make(geffe.Sequence, n)
	for i := range out {
		out[i] = w.At(i)
	}
	return out
}

// Sequence copies the whole window, oldest first.
func (w *Window) Sequence() geffe.Sequence {
	return w.Head(len(w.buf))
}

// Agreement counts positions where the window equals z. Only the first
// min(Len, len(z)) positions are compared.
func (w *Window) Agreement(z geffe.Sequence) int {
	n := len(w.buf)
	if len(z) < n {
		n = len(z)
	}
	count := 0
	// buf[head:] holds the oldest bits, buf[:head] the newest.
	first := len(w.buf) - w.head
	if first > n {
		first = n
	}
	older := w.buf[w.head : w.head+first]
	for i, b := range older {
		if b == z[i] {
			count++
		}
	}
	rest := z[first:n]
	for i, b := range rest {
		if w.buf[i] == b {
			count++
		}
	}
	return count
}
