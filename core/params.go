// Package core provides parameter sets and validation for geffe-go.
package core

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	geffe "github.com/BackendStack21/geffe-go"
	"github.com/BackendStack21/geffe-go/lfsr"
)

// DefaultPrefixLength is the keystream prefix used by the first
// compatibility stage.
const DefaultPrefixLength = 200

// Lab4Params is the 25/26/27-bit configuration.
var Lab4Params = geffe.AttackParams{
	Preset: geffe.PresetLab4,
	L1: geffe.RegisterParams{
		Name:      "L1",
		Degree:    25,
		Taps:      []int{25, 22},
		CycleHint: 222,
		Threshold: 71,
	},
	L2: geffe.RegisterParams{
		Name:      "L2",
		Degree:    26,
		Taps:      []int{26, 25, 24, 20},
		CycleHint: 119,
		Threshold: 74,
	},
	L3: geffe.RegisterParams{
		Name:   "L3",
		Degree: 27,
		Taps:   []int{27, 26, 25, 22},
	},
	PrefixLength: DefaultPrefixLength,
	Verification: geffe.VerifyRegister,
}

// ToyParams uses small maximal registers. Thresholds are
// Threshold(256, DataCorrelation, 1e-3) for a 256-bit keystream.
var ToyParams = geffe.AttackParams{
	Preset: geffe.PresetToy,
	L1: geffe.RegisterParams{
		Name:      "L1",
		Degree:    9,
		Taps:      []int{9, 5},
		CycleHint: 511,
		Threshold: 170,
	},
	L2: geffe.RegisterParams{
		Name:      "L2",
		Degree:    10,
		Taps:      []int{10, 7},
		CycleHint: 1023,
		Threshold: 170,
	},
	L3: geffe.RegisterParams{
		Name:   "L3",
		Degree: 11,
		Taps:   []int{11, 9},
	},
	PrefixLength: DefaultPrefixLength,
	Verification: geffe.VerifyRegister,
}

var validate = validator.New()

// GetParams returns a copy of the parameter set for the given preset.
func GetParams(preset geffe.Preset) (geffe.AttackParams, error) {
	switch preset {
	case geffe.PresetLab4:
		return CloneParams(Lab4Params), nil
	case geffe.PresetToy:
		return CloneParams(ToyParams), nil
	default:
		return geffe.AttackParams{}, fmt.Errorf("%w: unknown preset: %s", geffe.ErrInvalidConfiguration, preset)
	}
}

// CloneParams returns a deep copy of p.
func CloneParams(p geffe.AttackParams) geffe.AttackParams {
	p.L1.Taps = append([]int(nil), p.L1.Taps...)
	p.L2.Taps = append([]int(nil), p.L2.Taps...)
	p.L3.Taps = append([]int(nil), p.L3.Taps...)
	return p
}

// ValidateParams validates the parameter set for consistency.
func ValidateParams(params geffe.AttackParams) error {
	if err := validate.Struct(params); err != nil {
		return fmt.Errorf("%w: %s", geffe.ErrInvalidConfiguration, describe(err))
	}
	for _, reg := range []geffe.RegisterParams{params.L1, params.L2, params.L3} {
		if err := lfsr.ValidateTaps(reg.Degree, reg.Taps); err != nil {
			return fmt.Errorf("register %s: %w", reg.Name, err)
		}
	}
	return nil
}

// describe flattens validator errors into one line.
func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s must satisfy %s=%s", fe.Namespace(), fe.Tag(), fe.Param()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s must satisfy %s", fe.Namespace(), fe.Tag()))
		}
	}
	return strings.Join(msgs, "; ")
}
