package geffe

import (
	"fmt"
	"strings"
)

// Preset names a built-in register configuration.
type Preset string

const (
	// PresetLab4 is the 25/26/27-bit configuration.
	PresetLab4 Preset = "lab4"
	// PresetToy uses 9/10/11-bit registers so the whole attack runs in milliseconds.
	PresetToy Preset = "toy"
)

// VerificationMode selects how the solver confirms a selector completion.
type VerificationMode string

const (
	// VerifyRegister regenerates the selector from its first L3.Degree bits
	// with the L3 taps before comparing against the keystream. Unlike
	// VerifyTemplate it does not search the full template completion space:
	// only free positions within the first L3.Degree bits are enumerated,
	// which assumes the selector is an L3 output sequence.
	VerifyRegister VerificationMode = "register"
	// VerifyTemplate combines the completed template directly. The recovered
	// L3 is only the truncated template and may not generate the selector.
	VerifyTemplate VerificationMode = "template"
)

// =============================================================================
// Bits
// =============================================================================

// Bit is a single binary digit stored as 0 or 1.
type Bit = uint8

// Sequence is an ordered run of bits, oldest first.
type Sequence []Bit

// String renders the sequence as '0'/'1' characters.
func (s Sequence) String() string {
	var b strings.Builder
	b.Grow(len(s))
	for _, bit := range s {
		b.WriteByte('0' + bit&1)
	}
	return b.String()
}

// MarshalText renders the sequence as '0'/'1' characters so JSON and YAML
// output stays readable.
func (s Sequence) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses '0'/'1' characters.
func (s *Sequence) UnmarshalText(text []byte) error {
	out := make(Sequence, len(text))
	for i, c := range text {
		switch c {
		case '0':
		case '1':
			out[i] = 1
		default:
			return fmt.Errorf("%w: invalid bit %q at offset %d", ErrInvalidConfiguration, c, i)
		}
	}
	*s = out
	return nil
}

// Clone returns an independent copy of s.
func (s Sequence) Clone() Sequence {
	if s == nil {
		return nil
	}
	out := make(Sequence, len(s))
	copy(out, s)
	return out
}

// Equal reports whether s and o hold the same bits.
func (s Sequence) Equal(o Sequence) bool {
	if len(s) != len(o) {
		return false
	}
	for i := range s {
		if s[i] != o[i] {
			return false
		}
	}
	return true
}

// IsZero reports whether every bit of s is 0.
func (s Sequence) IsZero() bool {
	for _, bit := range s {
		if bit != 0 {
			return false
		}
	}
	return true
}

// =============================================================================
// Parameter Types
// =============================================================================

// RegisterParams describes one LFSR of the generator.
type RegisterParams struct {
	Name      string `json:"name" yaml:"name" validate:"required"`
	Degree    int    `json:"degree" yaml:"degree" validate:"min=1,max=63"`  // Register length in bits
	Taps      []int  `json:"taps" yaml:"taps" validate:"min=1,dive,min=1"`  // Offsets counted from the end of the register
	CycleHint int    `json:"cycle_hint" yaml:"cycle_hint" validate:"min=0"` // Advisory cycle length (N); never used as a bound
	Threshold int    `json:"threshold" yaml:"threshold" validate:"min=0"`   // Correlation threshold (C), strict
}

// AttackParams contains the complete configuration for one attack.
type AttackParams struct {
	Preset            Preset           `json:"preset" yaml:"preset"`
	L1                RegisterParams   `json:"l1" yaml:"l1"`
	L2                RegisterParams   `json:"l2" yaml:"l2"`
	L3                RegisterParams   `json:"l3" yaml:"l3"`
	PrefixLength      int              `json:"prefix_length" yaml:"prefix_length" validate:"min=1"`
	CorrelationWindow int              `json:"correlation_window" yaml:"correlation_window" validate:"min=0"` // 0 means the whole keystream
	Workers           int              `json:"workers" yaml:"workers" validate:"min=0"`
	Verification      VerificationMode `json:"verification" yaml:"verification" validate:"oneof=register template"`
	MaxCandidates     int              `json:"max_candidates" yaml:"max_candidates" validate:"min=0"` // 0 means utils.MaxCandidates
}

// =============================================================================
// Search Results
// =============================================================================

// Candidate is a register state whose output agrees with the keystream
// above the register's threshold.
type Candidate struct {
	State     Sequence `json:"state"`
	Agreement int      `json:"agreement"`
	Step      int      `json:"step"` // Position along the cycle from the canonical seed
}

// Pair is an (L1, L2) combination that has not been disproved yet.
type Pair struct {
	Index int      `json:"index"`
	L1    Sequence `json:"l1"`
	L2    Sequence `json:"l2"`
}

// =============================================================================
// Selector Template
// =============================================================================

// Selector is one position of a partially known selector sequence.
type Selector uint8

const (
	// SelectorZero forces the selector bit to 0.
	SelectorZero Selector = iota
	// SelectorOne forces the selector bit to 1.
	SelectorOne
	// SelectorFree leaves the bit open; both values reproduce the keystream.
	SelectorFree
)

// String returns "0", "1" or "_".
func (s Selector) String() string {
	switch s {
	case SelectorZero:
		return "0"
	case SelectorOne:
		return "1"
	default:
		return "_"
	}
}

// Template is a selector sequence with unresolved positions.
type Template []Selector

// Free returns the indices of unresolved positions in ascending order.
func (t Template) Free() []int {
	var idx []int
	for i, s := range t {
		if s == SelectorFree {
			idx = append(idx, i)
		}
	}
	return idx
}

// String renders the template, using '_' for free positions.
func (t Template) String() string {
	var b strings.Builder
	b.Grow(len(t))
	for _, s := range t {
		b.WriteString(s.String())
	}
	return b.String()
}

// =============================================================================
// Recovery
// =============================================================================

// Stats records how much each stage kept.
type Stats struct {
	L1Candidates  int `json:"l1_candidates"`
	L2Candidates  int `json:"l2_candidates"`
	PrefixPairs   int `json:"prefix_pairs"`
	FullPairs     int `json:"full_pairs"`
	FreePositions int `json:"free_positions"`
	Completions   int `json:"completions"` // Completions tried for the winning pair
}

// Recovery is the outcome of a successful attack.
type Recovery struct {
	RunID     string   `json:"run_id,omitempty"`
	L1        Sequence `json:"l1"`
	L2        Sequence `json:"l2"`
	L3        Sequence `json:"l3"`
	PairIndex int      `json:"pair_index"`
	// SelectorConsistent reports whether L3, run through the L3 register,
	// reproduces the selector the solver matched. Always true in
	// VerifyRegister mode.
	SelectorConsistent bool             `json:"selector_consistent"`
	Verification       VerificationMode `json:"verification"`
	Fingerprint        string           `json:"keystream_fingerprint,omitempty"`
	Stats              Stats            `json:"stats"`
}
