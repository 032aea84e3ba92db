// Package geffe implements a known-plaintext correlation attack against a
// Geffe/Gifford combination generator built from three linear-feedback shift
// registers.
//
// Two data registers (L1, L2) are recovered independently by correlation
// search, surviving candidate pairs are pruned with the combiner's
// impossibility condition, and the selector register (L3) is reconstructed
// from a partial selector template.
package geffe

// Version of the geffe-go implementation.
const Version = "1.0.0"

// API summary:
//
// Register engine:
//   - lfsr.Extend(state, taps, length) - Generate a sequence from a state
//   - lfsr.NewWindow(seq, taps) - Sliding window over a register's output
//
// Attack stages:
//   - correlation.Search(ctx, reg, z, opts) - Correlated states of one register
//   - compat.Filter(ctx, params, c1, c2, z, opts) - Two-stage pair pruning
//   - solver.Solve(ctx, params, pairs, z, opts) - Selector reconstruction
//
// Pipeline:
//   - attack.Run(ctx, params, z, opts) - Full recovery of (L1, L2, L3)
//
// Parameters:
//   - core.GetParams(preset) - Get parameters for a named preset
//   - PresetLab4 - 25/26/27-bit registers
//   - PresetToy - 9/10/11-bit registers for fast experiments
