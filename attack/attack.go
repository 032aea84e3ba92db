// Package attack runs the full correlation attack: correlation search for
// L1 and L2, the two-stage compatibility filter, and selector recovery.
package attack

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	geffe "github.com/BackendStack21/geffe-go"
	"github.com/BackendStack21/geffe-go/core"
	"github.com/BackendStack21/geffe-go/keystream"
	"github.com/BackendStack21/geffe-go/stages/compat"
	"github.com/BackendStack21/geffe-go/stages/correlation"
	"github.com/BackendStack21/geffe-go/stages/solver"
	"github.com/BackendStack21/geffe-go/store"
	"github.com/BackendStack21/geffe-go/utils"
)

// Options carries collaborators that are not part of the attack parameters.
type Options struct {
	// Logger receives stage records. nil means slog.Default().
	Logger *slog.Logger
	// Cache, if set, stores and reuses correlation search results.
	Cache *store.Cache
	// RunID labels logs and the result. Empty generates a UUID.
	RunID string
}

// Run recovers (L1, L2, L3) from keystream z.
//
// Description:
//
//	Validates params, searches the L1 and L2 cycles for correlated states,
//	prunes the candidate product and enumerates selector completions for the
//	survivors. The first pair and completion that reproduce z win.
//
// Outputs:
//
//	*geffe.Recovery - the recovered states and per-stage counts.
//	error - wraps geffe.ErrNoCandidateFound, geffe.ErrNoCompatiblePair or
//	        geffe.ErrNoSolution when a stage leaves nothing, or
//	        geffe.ErrInvalidConfiguration for bad input.
func Run(ctx context.Context, params geffe.AttackParams, z geffe.Sequence, opts Options) (rec *geffe.Recovery, err error) {
	runID := opts.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("run_id", runID))

	ctx, span := tracer.Start(ctx, "attack.Run",
		trace.WithAttributes(
			attribute.String("run_id", runID),
			attribute.String("preset", string(params.Preset)),
			attribute.Int("keystream_bits", len(z)),
		),
	)
	defer span.End()
	defer func() {
		result := "success"
		if err != nil {
			result = outcome(err)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}
		runsTotal.WithLabelValues(result).Inc()
	}()

	if err := core.ValidateParams(params); err != nil {
		return nil, err
	}
	if err := checkKeystream(z); err != nil {
		return nil, err
	}

	rec = &geffe.Recovery{
		RunID:        runID,
		Verification: params.Verification,
		Fingerprint:  keystream.Fingerprint(z),
	}
	logger.Info("attack started",
		slog.String("preset", string(params.Preset)),
		slog.Int("keystream_bits", len(z)),
		slog.String("keystream_fingerprint", rec.Fingerprint))

	search := correlation.Options{
		Workers:       params.Workers,
		Window:        params.CorrelationWindow,
		MaxCandidates: params.MaxCandidates,
		Logger:        logger,
	}
	l1, err := searchRegister(ctx, params.L1, z, search, opts.Cache, logger)
	if err != nil {
		return nil, err
	}
	rec.Stats.L1Candidates = len(l1)
	l2, err := searchRegister(ctx, params.L2, z, search, opts.Cache, logger)
	if err != nil {
		return nil, err
	}
	rec.Stats.L2Candidates = len(l2)

	var pairs []geffe.Pair
	err = stage(ctx, "compat", func(ctx context.Context) error {
		var (
			res  *compat.Result
			ferr error
		)
		pairs, res, ferr = compat.Filter(ctx, params, l1, l2, z, compat.Options{
			PrefixLength: params.PrefixLength,
			Workers:      params.Workers,
			Logger:       logger,
		})
		if res != nil {
			rec.Stats.PrefixPairs = res.PrefixPairs
			rec.Stats.FullPairs = res.FullPairs
			survivors.WithLabelValues("prefix").Observe(float64(res.PrefixPairs))
			survivors.WithLabelValues("full").Observe(float64(res.FullPairs))
		}
		return ferr
	})
	if err != nil {
		return nil, err
	}

	var sol *solver.Solution
	err = stage(ctx, "solver", func(ctx context.Context) error {
		var serr error
		sol, serr = solver.Solve(ctx, params, pairs, z, solver.Options{
			Mode:    params.Verification,
			Workers: params.Workers,
			Logger:  logger,
		})
		return serr
	})
	if err != nil {
		return nil, err
	}

	rec.L1 = sol.Pair.L1.Clone()
	rec.L2 = sol.Pair.L2.Clone()
	rec.L3 = sol.L3.Clone()
	rec.PairIndex = sol.Pair.Index
	rec.SelectorConsistent = sol.SelectorConsistent
	rec.Stats.FreePositions = sol.FreePositions
	rec.Stats.Completions = sol.Completions

	span.SetAttributes(
		attribute.Int("l1_candidates", rec.Stats.L1Candidates),
		attribute.Int("l2_candidates", rec.Stats.L2Candidates),
		attribute.Int("pairs", rec.Stats.FullPairs),
		attribute.Bool("selector_consistent", rec.SelectorConsistent),
	)
	logger.Info("attack finished",
		slog.String("l1", rec.L1.String()),
		slog.String("l2", rec.L2.String()),
		slog.String("l3", rec.L3.String()),
		slog.Bool("selector_consistent", rec.SelectorConsistent))
	return rec, nil
}

// searchRegister runs one correlation search, going through the cache when
// one is configured.
func searchRegister(ctx context.Context, reg geffe.RegisterParams, z geffe.Sequence, opts correlation.Options, cache *store.Cache, logger *slog.Logger) ([]geffe.Candidate, error) {
	window := z
	if opts.Window > 0 && opts.Window < len(z) {
		window = z[:opts.Window]
	}
	var key string
	if cache != nil {
		key = store.Key(reg, window)
		cands, ok, err := cache.Get(key)
		if err != nil {
			// A broken entry is recomputed and overwritten.
			logger.Warn("candidate cache read failed", slog.String("register", reg.Name), slog.Any("error", err))
		}
		if ok {
			cacheLookups.WithLabelValues("hit").Inc()
			logger.Info("correlation candidates loaded from cache",
				slog.String("register", reg.Name),
				slog.Int("candidates", len(cands)))
			if len(cands) == 0 {
				return nil, fmt.Errorf("register %s with threshold %d: %w", reg.Name, reg.Threshold, geffe.ErrNoCandidateFound)
			}
			return cands, nil
		}
		cacheLookups.WithLabelValues("miss").Inc()
	}

	var cands []geffe.Candidate
	err := stage(ctx, "correlation_"+reg.Name, func(ctx context.Context) error {
		var err error
		cands, err = correlation.Search(ctx, reg, z, opts)
		return err
	})
	if err != nil {
		return nil, err
	}
	survivors.WithLabelValues("correlation").Observe(float64(len(cands)))

	if cache != nil {
		if err := cache.Put(key, cands); err != nil {
			logger.Warn("candidate cache write failed", slog.String("register", reg.Name), slog.Any("error", err))
		}
	}
	return cands, nil
}

// stage runs fn inside a span and records its duration.
func stage(ctx context.Context, name string, fn func(context.Context) error) error {
	ctx, span := tracer.Start(ctx, "attack."+name)
	defer span.End()

	start := time.Now()
	err := fn(ctx)
	stageDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	span.SetStatus(codes.Ok, "")
	return nil
}

func checkKeystream(z geffe.Sequence) error {
	if len(z) == 0 {
		return fmt.Errorf("%w: empty keystream", geffe.ErrInvalidConfiguration)
	}
	if err := utils.CheckLength(len(z), utils.MaxKeystreamLength); err != nil {
		return fmt.Errorf("%w: keystream of %d bits: %v", geffe.ErrInvalidConfiguration, len(z), err)
	}
	for i, b := range z {
		if b > 1 {
			return fmt.Errorf("%w: keystream position %d holds %d", geffe.ErrInvalidConfiguration, i, b)
		}
	}
	return nil
}

func outcome(err error) string {
	switch {
	case errors.Is(err, geffe.ErrNoCandidateFound):
		return "no_candidate"
	case errors.Is(err, geffe.ErrNoCompatiblePair):
		return "no_pair"
	case errors.Is(err, geffe.ErrNoSolution):
		return "no_solution"
	case errors.Is(err, geffe.ErrInvalidConfiguration):
		return "invalid"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "error"
	}
}
