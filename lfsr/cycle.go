package lfsr

import (
	"context"
	"fmt"

	geffe "github.com/BackendStack21/geffe-go"
	"github.com/BackendStack21/geffe-go/utils"
)

// ctxCheckInterval is how many clocks run between context checks.
const ctxCheckInterval = 1 << 16

// Trace records a register's cycle through a packed seed.
type Trace struct {
	// Period is the number of clocks until the state returned to the seed.
	Period int
	// Stride is the distance in clocks between consecutive checkpoints.
	Stride int
	// Checkpoints[i] is the state after i*Stride clocks.
	Checkpoints []uint64
}

// Trace walks the cycle starting at seed until the state returns to it,
// keeping a checkpoint every stride clocks. A register whose feedback is not
// invertible may never return; the walk gives up after 2^Degree - 1 clocks.
func (r *Register) Trace(ctx context.Context, seed uint64, stride int) (*Trace, error) {
	if stride <= 0 {
		return nil, fmt.Errorf("%w: checkpoint stride must be positive", geffe.ErrInvalidConfiguration)
	}
	seed &= r.mask
	if seed == 0 {
		return nil, fmt.Errorf("%w: all-zero seed for register %q", geffe.ErrInvalidConfiguration, r.name)
	}
	bound, err := utils.CycleBound(r.degree)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", geffe.ErrInvalidConfiguration, err)
	}

	tr := &Trace{Stride: stride}
	s := seed
	for steps := 0; ; {
		if steps%stride == 0 {
			tr.Checkpoints = append(tr.Checkpoints, s)
		}
		s = r.Step(s)
		steps++
		if s == seed {
			tr.Period = steps
			return tr, nil
		}
		if steps >= bound {
			return nil, fmt.Errorf("%w: register %q did not return to its seed within %d clocks", geffe.ErrInvalidConfiguration, r.name, bound)
		}
		if steps%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
	}
}

// Period returns the cycle length through state.
func (r *Register) Period(ctx context.Context, state geffe.Sequence) (int, error) {
	if err := r.checkState(state); err != nil {
		return 0, err
	}
	bound, err := utils.CycleBound(r.degree)
	if err != nil {
		return 0, err
	}
	tr, err := r.Trace(ctx, r.Pack(state), bound)
	if err != nil {
		return 0, err
	}
	return tr.Period, nil
}
