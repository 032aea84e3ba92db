package geffe

import "errors"

var (
	// ErrInvalidConfiguration indicates a bad tap offset, register length or
	// mismatched sequence lengths.
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrNoCandidateFound indicates a correlation search kept no states.
	// Usually the threshold is too high for the keystream length.
	ErrNoCandidateFound = errors.New("no candidate found")

	// ErrNoCompatiblePair indicates every (L1, L2) pair was eliminated.
	ErrNoCompatiblePair = errors.New("no compatible pair")

	// ErrNoSolution indicates the solver exhausted all pairs and completions.
	ErrNoSolution = errors.New("no solution")
)
