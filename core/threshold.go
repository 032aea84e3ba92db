package core

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	geffe "github.com/BackendStack21/geffe-go"
)

// DataCorrelation is the probability that a data register's bit equals the
// keystream bit: the selector picks it half the time, and otherwise the
// other register matches by chance half the time.
const DataCorrelation = 0.75

// Threshold picks a correlation threshold C for a keystream of length bits.
//
// The agreement count of the true register state is Binomial(length, p),
// approximated by a normal distribution. C is chosen so that the true state
// falls at or below it (and is lost) with probability missRate.
func Threshold(length int, p, missRate float64) (int, error) {
	if length <= 0 {
		return 0, fmt.Errorf("%w: keystream length must be positive", geffe.ErrInvalidConfiguration)
	}
	if p <= 0 || p >= 1 {
		return 0, fmt.Errorf("%w: correlation %v outside (0, 1)", geffe.ErrInvalidConfiguration, p)
	}
	if missRate <= 0 || missRate >= 1 {
		return 0, fmt.Errorf("%w: miss rate %v outside (0, 1)", geffe.ErrInvalidConfiguration, missRate)
	}
	n := float64(length)
	agreement := distuv.Normal{Mu: n * p, Sigma: math.Sqrt(n * p * (1 - p))}
	c := math.Floor(agreement.Quantile(missRate))
	if c < 0 {
		c = 0
	}
	return int(c), nil
}

// DefaultMissRate is the chance of losing a true state that AutoThreshold
// accepts.
const DefaultMissRate = 1e-3

// AutoThreshold replaces the L1 and L2 thresholds with Threshold values for
// a keystream of length bits, honouring params.CorrelationWindow.
func AutoThreshold(params *geffe.AttackParams, length int, missRate float64) error {
	if params.CorrelationWindow > 0 && params.CorrelationWindow < length {
		length = params.CorrelationWindow
	}
	c, err := Threshold(length, DataCorrelation, missRate)
	if err != nil {
		return err
	}
	params.L1.Threshold = c
	params.L2.Threshold = c
	return nil
}

// FalseAlarmRate is the chance that an unrelated state, whose agreement is
// Binomial(length, 1/2), scores above threshold.
func FalseAlarmRate(length, threshold int) float64 {
	if length <= 0 {
		return 0
	}
	unrelated := distuv.Binomial{N: float64(length), P: 0.5}
	return unrelated.Survival(float64(threshold))
}

// ExpectedCandidates estimates how many wrong states of a register survive
// a threshold, assuming a full-period register.
func ExpectedCandidates(reg geffe.RegisterParams, length int) float64 {
	if reg.Degree <= 0 || reg.Degree > 63 {
		return 0
	}
	period := math.Ldexp(1, reg.Degree) - 1
	return period * FalseAlarmRate(length, reg.Threshold)
}
