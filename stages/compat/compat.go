// Package compat prunes (L1, L2) candidate pairs that cannot have produced
// the keystream.
//
// Whatever the selector does, the keystream bit is one of x or y. A position
// with x = y = 0 and z = 1, or x = y = 1 and z = 0, disproves the pair. The
// filter checks a short prefix across the whole product first and re-checks
// the survivors over the full keystream.
package compat

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	geffe "github.com/BackendStack21/geffe-go"
	"github.com/BackendStack21/geffe-go/core"
	"github.com/BackendStack21/geffe-go/lfsr"
	"github.com/BackendStack21/geffe-go/utils"
)

// Options tunes the filter.
type Options struct {
	// PrefixLength is the number of keystream bits checked by the first
	// stage. 0 means core.DefaultPrefixLength.
	PrefixLength int
	// Workers checks rows of the product concurrently. <= 1 is sequential.
	Workers int
	// Logger receives stage summaries. nil means slog.Default().
	Logger *slog.Logger
}

func (o Options) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.Default()
	}
	return o.Logger
}

func (o Options) prefix(n int) int {
	p := o.PrefixLength
	if p <= 0 {
		p = core.DefaultPrefixLength
	}
	if p > n {
		p = n
	}
	return p
}

// Compatible reports whether x and y could have been combined into z by
// some selector. All three must have the same length.
func Compatible(x, y, z geffe.Sequence) (bool, error) {
	if len(x) != len(z) || len(y) != len(z) {
		return false, fmt.Errorf("%w: sequence lengths %d, %d and %d differ",
			geffe.ErrInvalidConfiguration, len(x), len(y), len(z))
	}
	return compatible(x, y, z), nil
}

func compatible(x, y, z geffe.Sequence) bool {
	for i, b := range z {
		if x[i] == y[i] && x[i] != b {
			return false
		}
	}
	return true
}

// Filter runs both stages and returns the surviving pairs in L1-major
// product order. It fails with geffe.ErrNoCompatiblePair when nothing
// survives.
func Filter(ctx context.Context, params geffe.AttackParams, l1, l2 []geffe.Candidate, z geffe.Sequence, opts Options) ([]geffe.Pair, *Result, error) {
	res := &Result{}
	pairs, err := FilterPrefix(ctx, params.L1, params.L2, l1, l2, z, opts)
	if err != nil {
		return nil, res, err
	}
	res.PrefixPairs = len(pairs)
	if len(pairs) == 0 {
		return nil, res, fmt.Errorf("after %d-bit prefix stage: %w", opts.prefix(len(z)), geffe.ErrNoCompatiblePair)
	}

	pairs, err = FilterFull(ctx, params.L1, params.L2, pairs, z, opts)
	if err != nil {
		return nil, res, err
	}
	res.FullPairs = len(pairs)
	if len(pairs) == 0 {
		return nil, res, fmt.Errorf("after full keystream stage: %w", geffe.ErrNoCompatiblePair)
	}
	return pairs, res, nil
}

// Result counts the pairs each stage kept.
type Result struct {
	PrefixPairs int
	FullPairs   int
}

// FilterPrefix checks every (l1[i], l2[j]) against the keystream prefix.
// Pair.Index is i*len(l2)+j.
func FilterPrefix(ctx context.Context, reg1, reg2 geffe.RegisterParams, l1, l2 []geffe.Candidate, z geffe.Sequence, opts Options) ([]geffe.Pair, error) {
	total, err := utils.SafeMultiply(len(l1), len(l2))
	if err != nil || int64(total) > utils.MaxPairs {
		return nil, fmt.Errorf("%w: %d x %d candidate pairs: %w", geffe.ErrInvalidConfiguration, len(l1), len(l2), utils.ErrExceedsLimit)
	}
	n := opts.prefix(len(z))
	zp := z[:n]

	xs, err := extendAll(reg1, l1, n)
	if err != nil {
		return nil, err
	}
	ys, err := extendAll(reg2, l2, n)
	if err != nil {
		return nil, err
	}

	rows := make([][]geffe.Pair, len(l1))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(max(opts.Workers, 1))
	for i := range l1 {
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			for j := range l2 {
				if compatible(xs[i], ys[j], zp) {
					rows[i] = append(rows[i], geffe.Pair{
						Index: i*len(l2) + j,
						L1:    l1[i].State,
						L2:    l2[j].State,
					})
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var pairs []geffe.Pair
	for _, row := range rows {
		pairs = append(pairs, row...)
	}
	opts.logger().Info("prefix compatibility stage finished",
		slog.Int("prefix", n),
		slog.Int("product", total),
		slog.Int("kept", len(pairs)))
	return pairs, nil
}

// FilterFull re-checks pairs against the whole keystream, keeping order.
func FilterFull(ctx context.Context, reg1, reg2 geffe.RegisterParams, pairs []geffe.Pair, z geffe.Sequence, opts Options) ([]geffe.Pair, error) {
	r1, err := lfsr.FromParams(reg1)
	if err != nil {
		return nil, err
	}
	r2, err := lfsr.FromParams(reg2)
	if err != nil {
		return nil, err
	}

	keep := make([]bool, len(pairs))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(max(opts.Workers, 1))
	for i, p := range pairs {
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			x, err := r1.Extend(p.L1, len(z))
			if err != nil {
				return err
			}
			y, err := r2.Extend(p.L2, len(z))
			if err != nil {
				return err
			}
			keep[i] = compatible(x, y, z)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []geffe.Pair
	for i, p := range pairs {
		if keep[i] {
			out = append(out, p)
		}
	}
	opts.logger().Info("full compatibility stage finished",
		slog.Int("length", len(z)),
		slog.Int("checked", len(pairs)),
		slog.Int("kept", len(out)))
	return out, nil
}

func extendAll(reg geffe.RegisterParams, cands []geffe.Candidate, n int) ([]geffe.Sequence, error) {
	r, err := lfsr.FromParams(reg)
	if err != nil {
		return nil, err
	}
	out := make([]geffe.Sequence, len(cands))
	for i, c := range cands {
		seq, err := r.Extend(c.State, n)
		if err != nil {
			return nil, fmt.Errorf("register %s candidate %d: %w", reg.Name, i, err)
		}
		out[i] = seq
	}
	return out, nil
}
