package lfsr

import (
	"context"
	"errors"
	"testing"

	geffe "github.com/BackendStack21/geffe-go"
	"github.com/BackendStack21/geffe-go/utils"
)

var maximal = []struct {
	degree int
	taps   []int
}{
	{4, []int{4, 3}},
	{5, []int{5, 3}},
	{6, []int{6, 5}},
	{7, []int{7, 6}},
	{8, []int{8, 6, 5, 4}},
	{9, []int{9, 5}},
	{10, []int{10, 7}},
	{11, []int{11, 9}},
}

func bitsOf(s string) geffe.Sequence {
	out := make(geffe.Sequence, len(s))
	for i := range s {
		out[i] = s[i] - '0'
	}
	return out
}

func TestExtend_PrefixIdentity(t *testing.T) {
	cases := []struct {
		state string
		taps  []int
	}{
		{"0101110001110001110001001", []int{25, 22}},
		{"01000101011001011001011001", []int{26, 25, 24, 20}},
		{"010010000010010110100100001", []int{27, 26, 25, 22}},
		{"1001", []int{4, 3}},
	}
	for _, c := range cases {
		state := bitsOf(c.state)
		seq, err := Extend(state, c.taps, 300)
		if err != nil {
			t.Fatalf("Extend failed: %v", err)
		}
		if len(seq) != 300 {
			t.Fatalf("Extend length = %d, want 300", len(seq))
		}
		if !seq[:len(state)].Equal(state) {
			t.Errorf("Extend(%s) does not start with its state", c.state)
		}
		if state.String() != c.state {
			t.Errorf("Extend modified its input")
		}
	}
}

func TestExtend_KnownOutput(t *testing.T) {
	state := bitsOf("0101110001110001110001001")
	seq, err := Extend(state, []int{25, 22}, 60)
	if err != nil {
		t.Fatal(err)
	}
	want := "010111000111000111000100110111111111111111110001000100000000"
	if seq.String() != want {
		t.Errorf("Extend output\n got %s\nwant %s", seq, want)
	}
}

func TestExtend_Truncates(t *testing.T) {
	state := bitsOf("10110")
	seq, err := Extend(state, []int{5, 3}, 3)
	if err != nil {
		t.Fatal(err)
	}
	if seq.String() != "101" {
		t.Errorf("Extend(…, 3) = %s, want 101", seq)
	}
}

func TestValidateTaps(t *testing.T) {
	bad := []struct {
		degree int
		taps   []int
	}{
		{0, []int{1}},
		{-3, []int{1}},
		{utils.MaxDegree + 1, []int{1}},
		{5, nil},
		{5, []int{0}},
		{5, []int{6}},
		{5, []int{5, -1}},
	}
	for _, c := range bad {
		if err := ValidateTaps(c.degree, c.taps); !errors.Is(err, geffe.ErrInvalidConfiguration) {
			t.Errorf("ValidateTaps(%d, %v) = %v, want ErrInvalidConfiguration", c.degree, c.taps, err)
		}
	}
	if err := ValidateTaps(25, []int{25, 22}); err != nil {
		t.Errorf("ValidateTaps rejected valid taps: %v", err)
	}
	if _, err := Extend(bitsOf("101"), []int{4}, 10); err == nil {
		t.Error("Extend should reject a tap longer than the state")
	}
}

func TestAdvance(t *testing.T) {
	// state[-4] ^ state[-3] for 1,0,1,1 is 1 ^ 0.
	if got, err := Advance(bitsOf("1011"), []int{4, 3}); err != nil || got != 1 {
		t.Errorf("Advance = %d, %v, want 1", got, err)
	}
	if got, err := Advance(bitsOf("1111"), []int{4, 3}); err != nil || got != 0 {
		t.Errorf("Advance = %d, %v, want 0", got, err)
	}
}

func TestAdvance_InvalidTaps(t *testing.T) {
	cases := []struct {
		state string
		taps  []int
	}{
		{"101", []int{4}},
		{"101", []int{0}},
		{"101", []int{-1}},
		{"101", nil},
		{"", []int{1}},
	}
	for _, c := range cases {
		if _, err := Advance(bitsOf(c.state), c.taps); !errors.Is(err, geffe.ErrInvalidConfiguration) {
			t.Errorf("Advance(%q, %v) error = %v, want ErrInvalidConfiguration", c.state, c.taps, err)
		}
	}
}

func TestRegister_PeriodMaximal(t *testing.T) {
	ctx := context.Background()
	for _, c := range maximal {
		r, err := New(c.degree, c.taps)
		if err != nil {
			t.Fatal(err)
		}
		want := 1<<c.degree - 1
		period, err := r.Period(ctx, CanonicalSeed(c.degree))
		if err != nil {
			t.Fatalf("Period(%d) failed: %v", c.degree, err)
		}
		if period != want {
			t.Errorf("degree %d period = %d, want %d", c.degree, period, want)
		}

		// Any non-zero seed lies on the same cycle.
		state := utils.DeriveState([]byte{byte(c.degree)}, c.degree)
		s := r.Pack(state)
		for i := 0; i < want; i++ {
			s = r.Step(s)
		}
		if !r.Unpack(s).Equal(state) {
			t.Errorf("degree %d: %d clocks from %s did not return", c.degree, want, geffe.Sequence(state))
		}
	}
}

func TestRegister_StepMatchesAdvance(t *testing.T) {
	r, err := New(25, []int{25, 22})
	if err != nil {
		t.Fatal(err)
	}
	state := bitsOf("0101110001110001110001001")
	seq, _ := Extend(state, []int{25, 22}, 25+200)
	s := r.Pack(state)
	for i := 1; i <= 200; i++ {
		s = r.Step(s)
		if !r.Unpack(s).Equal(seq[i : i+25]) {
			t.Fatalf("packed state diverged from Extend after %d clocks", i)
		}
	}
}

func TestRegister_PackRoundTrip(t *testing.T) {
	r, _ := New(27, []int{27, 26, 25, 22})
	state := bitsOf("010010000010010110100100001")
	if got := r.Unpack(r.Pack(state)); !got.Equal(state) {
		t.Errorf("Unpack(Pack(x)) = %s, want %s", got, state)
	}
	if r.Pack(CanonicalSeed(27)) != r.Seed() {
		t.Error("packed canonical seed mismatch")
	}
}

func TestRegister_ExtendRejectsBadState(t *testing.T) {
	r, _ := New(5, []int{5, 3})
	if _, err := r.Extend(bitsOf("0000"), 10); !errors.Is(err, geffe.ErrInvalidConfiguration) {
		t.Errorf("short state: got %v", err)
	}
	if _, err := r.Extend(bitsOf("00000"), 10); !errors.Is(err, geffe.ErrInvalidConfiguration) {
		t.Errorf("zero state: got %v", err)
	}
	if _, err := r.Extend(bitsOf("00001"), -1); !errors.Is(err, geffe.ErrInvalidConfiguration) {
		t.Errorf("negative length: got %v", err)
	}
}

func TestFromParams(t *testing.T) {
	r, err := FromParams(geffe.RegisterParams{Name: "L1", Degree: 25, Taps: []int{25, 22}})
	if err != nil {
		t.Fatal(err)
	}
	if r.Name() != "L1" || r.Degree() != 25 {
		t.Errorf("unexpected register %q/%d", r.Name(), r.Degree())
	}
	taps := r.Taps()
	taps[0] = 1
	if r.Taps()[0] != 25 {
		t.Error("Taps should return a copy")
	}
	if _, err := FromParams(geffe.RegisterParams{Name: "L9", Degree: 4, Taps: []int{5}}); err == nil {
		t.Error("FromParams should reject an out-of-range tap")
	}
}
