// Package correlation implements the correlation search that recovers each
// data register of the generator independently.
//
// Every state on the register's cycle is scored by how many of its output
// bits agree with the keystream. The true state agrees about 75% of the time
// while unrelated states hover around 50%, so a threshold separates them.
package correlation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	geffe "github.com/BackendStack21/geffe-go"
	"github.com/BackendStack21/geffe-go/lfsr"
	"github.com/BackendStack21/geffe-go/utils"
)

// minChunk is the smallest number of states handed to one worker.
var minChunk = 1 << 12

// ctxCheckInterval is how many states are scored between context checks.
const ctxCheckInterval = 1 << 14

// Options tunes a search. The zero value runs sequentially over the whole
// keystream.
type Options struct {
	// Workers splits the cycle into chunks scored concurrently. <= 1 is sequential.
	Workers int
	// Window limits the comparison to the first Window keystream bits. 0 compares all.
	Window int
	// MaxCandidates aborts a search that keeps too many states. 0 means utils.MaxCandidates.
	MaxCandidates int
	// Logger receives progress records. nil means slog.Default().
	Logger *slog.Logger
}

// Agreement counts positions where a and b hold the same bit, over the
// shorter of the two.
func Agreement(a, b geffe.Sequence) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	count := 0
	for i := 0; i < n; i++ {
		if a[i] == b[i] {
			count++
		}
	}
	return count
}

// Search walks the cycle of reg from the canonical seed until the state
// returns to it and keeps every state whose output agrees with z in more
// than reg.Threshold positions. Candidates are returned in cycle order.
func Search(ctx context.Context, reg geffe.RegisterParams, z geffe.Sequence, opts Options) ([]geffe.Candidate, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	r, err := lfsr.FromParams(reg)
	if err != nil {
		return nil, err
	}

	length := len(z)
	if opts.Window > 0 && opts.Window < length {
		length = opts.Window
	}
	if length < r.Degree() {
		return nil, fmt.Errorf("%w: register %s needs at least %d keystream bits, have %d",
			geffe.ErrInvalidConfiguration, reg.Name, r.Degree(), length)
	}
	zp := z[:length]

	limit := opts.MaxCandidates
	if limit <= 0 {
		limit = utils.MaxCandidates
	}

	bound, err := utils.CycleBound(r.Degree())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", geffe.ErrInvalidConfiguration, err)
	}
	stride := bound
	if opts.Workers > 1 {
		stride = bound / (opts.Workers * 4)
		if stride < minChunk {
			stride = minChunk
		}
	}

	tr, err := r.Trace(ctx, r.Seed(), stride)
	if err != nil {
		return nil, err
	}
	if reg.CycleHint > 0 && reg.CycleHint != tr.Period {
		logger.Warn("cycle length differs from configured hint",
			slog.String("register", reg.Name),
			slog.Int("period", tr.Period),
			slog.Int("cycle_hint", reg.CycleHint))
	}

	s := &scanner{reg: r, z: zp, threshold: reg.Threshold, limit: limit}
	results := make([][]geffe.Candidate, len(tr.Checkpoints))

	g, gCtx := errgroup.WithContext(ctx)
	if opts.Workers > 1 {
		g.SetLimit(opts.Workers)
	} else {
		g.SetLimit(1)
	}
	for i, start := range tr.Checkpoints {
		first := i * tr.Stride
		count := tr.Stride
		if first+count > tr.Period {
			count = tr.Period - first
		}
		g.Go(func() error {
			found, err := s.scan(gCtx, start, first, count)
			results[i] = found
			return err
		})
	}
	if err := g.Wait(); err != nil {
		if errors.Is(err, utils.ErrExceedsLimit) {
			return nil, tooManyCandidates(reg, limit)
		}
		return nil, fmt.Errorf("register %s: %w", reg.Name, err)
	}

	total := 0
	for _, part := range results {
		total += len(part)
	}
	if total > limit {
		return nil, tooManyCandidates(reg, limit)
	}
	candidates := make([]geffe.Candidate, 0, total)
	for _, part := range results {
		candidates = append(candidates, part...)
	}

	logger.Info("correlation search finished",
		slog.String("register", reg.Name),
		slog.Int("period", tr.Period),
		slog.Int("window", length),
		slog.Int("threshold", reg.Threshold),
		slog.Int("candidates", len(candidates)))

	if len(candidates) == 0 {
		return nil, fmt.Errorf("register %s with threshold %d: %w", reg.Name, reg.Threshold, geffe.ErrNoCandidateFound)
	}
	return candidates, nil
}

// tooManyCandidates reports a threshold too low for the keystream length.
func tooManyCandidates(reg geffe.RegisterParams, limit int) error {
	return fmt.Errorf("%w: register %s keeps more than %d states above threshold %d, raise it or derive one with core.AutoThreshold: %w",
		geffe.ErrInvalidConfiguration, reg.Name, limit, reg.Threshold, utils.ErrExceedsLimit)
}

// scanner scores a contiguous run of states along a cycle.
type scanner struct {
	reg       *lfsr.Register
	z         geffe.Sequence
	threshold int
	limit     int
}

func (s *scanner) scan(ctx context.Context, start uint64, first, count int) ([]geffe.Candidate, error) {
	w, err := s.reg.Window(s.reg.Unpack(start), len(s.z))
	if err != nil {
		return nil, err
	}
	var found []geffe.Candidate
	for i := 0; i < count; i++ {
		if i%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		if a := w.Agreement(s.z); a > s.threshold {
			found = append(found, geffe.Candidate{
				State:     w.Head(s.reg.Degree()),
				Agreement: a,
				Step:      first + i,
			})
			if len(found) > s.limit {
				return nil, fmt.Errorf("more than %d states above threshold %d: %w", s.limit, s.threshold, utils.ErrExceedsLimit)
			}
		}
		w.Slide()
	}
	return found, nil
}
