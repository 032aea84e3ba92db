package correlation

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	geffe "github.com/BackendStack21/geffe-go"
	"github.com/BackendStack21/geffe-go/core"
	"github.com/BackendStack21/geffe-go/internal/testvec"
	"github.com/BackendStack21/geffe-go/utils"
)

func toyRegisters(t *testing.T) (geffe.RegisterParams, geffe.RegisterParams) {
	t.Helper()
	params, err := core.GetParams(geffe.PresetToy)
	require.NoError(t, err)
	return params.L1, params.L2
}

func quiet() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestAgreement(t *testing.T) {
	assert.Equal(t, 3, Agreement(geffe.Sequence{1, 0, 1, 1}, geffe.Sequence{1, 1, 1, 1}))
	assert.Equal(t, 2, Agreement(geffe.Sequence{1, 0}, geffe.Sequence{1, 0, 0, 0}))
	assert.Equal(t, 0, Agreement(nil, geffe.Sequence{1}))
}

func TestSearch_ToyRecoversTrueStates(t *testing.T) {
	l1, l2 := toyRegisters(t)
	z := testvec.Toy()

	got, err := Search(context.Background(), l1, z, Options{Logger: quiet()})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, testvec.ToyL1, got[0].State.String())
	assert.Equal(t, testvec.ToyL1Agreement, got[0].Agreement)
	assert.Equal(t, testvec.ToyL1Step, got[0].Step)

	got, err = Search(context.Background(), l2, z, Options{Logger: quiet()})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, testvec.ToyL2, got[0].State.String())
	assert.Equal(t, testvec.ToyL2Agreement, got[0].Agreement)
	assert.Equal(t, testvec.ToyL2Step, got[0].Step)
}

// The threshold is strict: a state is kept only when its agreement exceeds C.
func TestSearch_ThresholdIsStrict(t *testing.T) {
	l1, _ := toyRegisters(t)
	z := testvec.Toy()

	l1.Threshold = testvec.ToyL1Agreement - 1
	got, err := Search(context.Background(), l1, z, Options{Logger: quiet()})
	require.NoError(t, err)
	require.Len(t, got, 1)

	l1.Threshold = testvec.ToyL1Agreement
	_, err = Search(context.Background(), l1, z, Options{Logger: quiet()})
	assert.ErrorIs(t, err, geffe.ErrNoCandidateFound)
}

func TestSearch_CycleOrder(t *testing.T) {
	l1, _ := toyRegisters(t)
	l1.Threshold = 140
	got, err := Search(context.Background(), l1, testvec.Toy(), Options{Logger: quiet()})
	require.NoError(t, err)
	require.Len(t, got, 23)

	assert.Equal(t, "000000001", got[0].State.String())
	assert.Equal(t, 0, got[0].Step)
	for i := 1; i < len(got); i++ {
		assert.Less(t, got[i-1].Step, got[i].Step, "candidates out of cycle order")
	}
	for _, c := range got {
		assert.Greater(t, c.Agreement, 140)
		assert.False(t, c.State.IsZero())
	}
}

func TestSearch_ParallelMatchesSequential(t *testing.T) {
	old := minChunk
	minChunk = 16
	defer func() { minChunk = old }()

	l1, l2 := toyRegisters(t)
	z := testvec.Toy()
	for _, reg := range []geffe.RegisterParams{l1, l2} {
		reg.Threshold = 140
		seq, err := Search(context.Background(), reg, z, Options{Logger: quiet()})
		require.NoError(t, err)
		for _, workers := range []int{2, 3, 8} {
			par, err := Search(context.Background(), reg, z, Options{Workers: workers, Logger: quiet()})
			require.NoError(t, err)
			assert.Equal(t, seq, par, "register %s with %d workers", reg.Name, workers)
		}
	}
}

func TestSearch_Window(t *testing.T) {
	l1, _ := toyRegisters(t)
	l1.Threshold = 90
	got, err := Search(context.Background(), l1, testvec.Toy(), Options{Window: 128, Logger: quiet()})
	require.NoError(t, err)

	found := false
	for _, c := range got {
		if c.State.String() == testvec.ToyL1 {
			found = true
			assert.Equal(t, 96, c.Agreement)
			assert.Equal(t, testvec.ToyL1Step, c.Step)
		}
	}
	assert.True(t, found, "true L1 state missing from windowed search")
}

func TestSearch_MaxCandidates(t *testing.T) {
	l1, _ := toyRegisters(t)
	l1.Threshold = 140
	for _, workers := range []int{1, 4} {
		_, err := Search(context.Background(), l1, testvec.Toy(), Options{MaxCandidates: 5, Workers: workers, Logger: quiet()})
		assert.ErrorIs(t, err, utils.ErrExceedsLimit)
		assert.ErrorIs(t, err, geffe.ErrInvalidConfiguration, "a threshold that keeps too many states is a configuration error")
		assert.ErrorContains(t, err, "AutoThreshold")
	}
}

func TestSearch_CycleHintMismatchIsLogged(t *testing.T) {
	l1, _ := toyRegisters(t)
	l1.CycleHint = 222

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	got, err := Search(context.Background(), l1, testvec.Toy(), Options{Logger: logger})
	require.NoError(t, err)
	require.Len(t, got, 1, "the hint must not bound the walk")
	assert.Contains(t, buf.String(), "cycle length differs from configured hint")
	assert.Contains(t, buf.String(), `"period":511`)
}

func TestSearch_Errors(t *testing.T) {
	l1, _ := toyRegisters(t)

	_, err := Search(context.Background(), l1, testvec.Toy()[:5], Options{Logger: quiet()})
	assert.ErrorIs(t, err, geffe.ErrInvalidConfiguration)

	bad := l1
	bad.Taps = []int{12}
	_, err = Search(context.Background(), bad, testvec.Toy(), Options{Logger: quiet()})
	assert.ErrorIs(t, err, geffe.ErrInvalidConfiguration)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Search(ctx, l1, testvec.Toy(), Options{Logger: quiet()})
	assert.True(t, errors.Is(err, context.Canceled), "got %v", err)
}

func BenchmarkSearch_Toy(b *testing.B) {
	params, _ := core.GetParams(geffe.PresetToy)
	z := testvec.Toy()
	logger := quiet()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := Search(context.Background(), params.L2, z, Options{Logger: logger}); err != nil {
			b.Fatal(err)
		}
	}
}
