// Package solver recovers the selector register for the surviving (L1, L2)
// pairs.
//
// Each pair fixes most selector bits through the combination rule. The
// remaining free bits are enumerated and every completion is checked by
// regenerating the keystream.
package solver

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	geffe "github.com/BackendStack21/geffe-go"
	"github.com/BackendStack21/geffe-go/combiner"
	"github.com/BackendStack21/geffe-go/lfsr"
)

// ctxCheckInterval is how many completions are tried between context checks.
const ctxCheckInterval = 1 << 12

// Options tunes the solver.
type Options struct {
	// Mode selects how completions are verified. Empty means geffe.VerifyRegister.
	Mode geffe.VerificationMode
	// Workers solves pairs concurrently. <= 1 is sequential.
	Workers int
	// Logger receives per-pair records. nil means slog.Default().
	Logger *slog.Logger
}

// Solution is the first (pair, completion) that reproduces the keystream.
type Solution struct {
	Pair geffe.Pair
	// Position is the pair's index in the slice handed to Solve.
	Position int
	L3       geffe.Sequence
	// Selector is the full selector sequence that matched.
	Selector geffe.Sequence
	// SelectorConsistent reports whether L3 run through the L3 register
	// generates Selector.
	SelectorConsistent bool
	FreePositions      int
	Completions        int
}

// Solve tries pairs in order and returns the first match. With several
// workers the result is the same as sequential: the lowest position wins.
func Solve(ctx context.Context, params geffe.AttackParams, pairs []geffe.Pair, z geffe.Sequence, opts Options) (*Solution, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	mode := opts.Mode
	if mode == "" {
		mode = geffe.VerifyRegister
	}
	if mode != geffe.VerifyRegister && mode != geffe.VerifyTemplate {
		return nil, fmt.Errorf("%w: unknown verification mode %q", geffe.ErrInvalidConfiguration, mode)
	}

	s, err := newPairSolver(params, z, mode)
	if err != nil {
		return nil, err
	}

	// best holds the lowest position solved so far; higher positions stop early.
	var best atomic.Int64
	best.Store(math.MaxInt64)
	results := make([]*Solution, len(pairs))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(max(opts.Workers, 1))
	for i, p := range pairs {
		if int64(i) > best.Load() {
			break
		}
		g.Go(func() error {
			if int64(i) > best.Load() {
				return nil
			}
			sol, err := s.solve(gCtx, p, &best, int64(i))
			if err != nil {
				return err
			}
			if sol == nil {
				logger.Debug("pair exhausted", slog.Int("pair", p.Index))
				return nil
			}
			sol.Position = i
			results[i] = sol
			for {
				cur := best.Load()
				if int64(i) >= cur || best.CompareAndSwap(cur, int64(i)) {
					return nil
				}
			}
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, sol := range results {
		if sol == nil {
			continue
		}
		logger.Info("selector recovered",
			slog.Int("pair", sol.Pair.Index),
			slog.String("mode", string(mode)),
			slog.Int("free_positions", sol.FreePositions),
			slog.Int("completions", sol.Completions),
			slog.Bool("selector_consistent", sol.SelectorConsistent))
		if !sol.SelectorConsistent {
			logger.Warn("recovered L3 does not generate the matched selector",
				slog.String("l3", sol.L3.String()))
		}
		return sol, nil
	}
	return nil, fmt.Errorf("%d pairs tried: %w", len(pairs), geffe.ErrNoSolution)
}

type pairSolver struct {
	r1, r2, r3 *lfsr.Register
	z          geffe.Sequence
	mode       geffe.VerificationMode
}

func newPairSolver(params geffe.AttackParams, z geffe.Sequence, mode geffe.VerificationMode) (*pairSolver, error) {
	r1, err := lfsr.FromParams(params.L1)
	if err != nil {
		return nil, err
	}
	r2, err := lfsr.FromParams(params.L2)
	if err != nil {
		return nil, err
	}
	r3, err := lfsr.FromParams(params.L3)
	if err != nil {
		return nil, err
	}
	if len(z) < r3.Degree() {
		return nil, fmt.Errorf("%w: keystream of %d bits is shorter than register %s (%d)",
			geffe.ErrInvalidConfiguration, len(z), params.L3.Name, r3.Degree())
	}
	return &pairSolver{r1: r1, r2: r2, r3: r3, z: z, mode: mode}, nil
}

// solve returns nil without error when no completion of the pair matches.
// It gives up early once best drops below pos.
func (s *pairSolver) solve(ctx context.Context, p geffe.Pair, best *atomic.Int64, pos int64) (*Solution, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	x, err := s.r1.Extend(p.L1, len(s.z))
	if err != nil {
		return nil, err
	}
	y, err := s.r2.Extend(p.L2, len(s.z))
	if err != nil {
		return nil, err
	}
	tmpl, ok, err := BuildTemplate(x, y, s.z)
	if err != nil || !ok {
		return nil, err
	}
	free := len(tmpl.Free())

	deg := s.r3.Degree()
	span := len(tmpl)
	if s.mode == geffe.VerifyRegister {
		span = deg
	}
	it := NewCompletions(tmpl, span)
	for it.Next() {
		if it.Count()%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if best.Load() < pos {
				return nil, nil
			}
		}
		cand := it.Sequence()

		var sel geffe.Sequence
		if s.mode == geffe.VerifyRegister {
			if cand.IsZero() {
				continue
			}
			if sel, err = s.r3.Extend(cand, len(s.z)); err != nil {
				return nil, err
			}
		} else {
			sel = cand
		}
		if !combiner.Matches(x, y, sel, s.z) {
			continue
		}

		l3 := sel[:deg].Clone()
		consistent := true
		if s.mode == geffe.VerifyTemplate {
			regen, err := s.r3.Extend(l3, len(s.z))
			consistent = err == nil && regen.Equal(sel)
		}
		return &Solution{
			Pair:               p,
			L3:                 l3,
			Selector:           sel.Clone(),
			SelectorConsistent: consistent,
			FreePositions:      free,
			Completions:        it.Count(),
		}, nil
	}
	return nil, nil
}
