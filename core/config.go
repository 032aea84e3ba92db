package core

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	geffe "github.com/BackendStack21/geffe-go"
)

// LoadParams loads configuration with priority: env > file > preset.
//
// configPath may be empty. A file may be YAML or JSON and only needs to set
// the fields it overrides. Environment variables use the GEFFE_ prefix, see
// loadParamsFromEnv.
func LoadParams(preset geffe.Preset, configPath string) (geffe.AttackParams, error) {
	params, err := GetParams(preset)
	if err != nil {
		return params, err
	}

	if configPath != "" {
		if err := loadParamsFile(configPath, &params); err != nil {
			return params, fmt.Errorf("load config file: %w", err)
		}
	}

	if err := loadParamsFromEnv(&params); err != nil {
		return params, fmt.Errorf("load config from env: %w", err)
	}

	if err := ValidateParams(params); err != nil {
		return params, fmt.Errorf("invalid config: %w", err)
	}
	return params, nil
}

func loadParamsFile(path string, params *geffe.AttackParams) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	// Try YAML first, then JSON
	if err := yaml.Unmarshal(data, params); err != nil {
		if jsonErr := json.Unmarshal(data, params); jsonErr != nil {
			return fmt.Errorf("parse config (tried YAML and JSON): YAML error: %v, JSON error: %w", err, jsonErr)
		}
	}
	return nil
}

// MarshalParams renders params as YAML, suitable as a starting config file.
func MarshalParams(params geffe.AttackParams) ([]byte, error) {
	return yaml.Marshal(params)
}

func loadParamsFromEnv(params *geffe.AttackParams) error {
	ints := []struct {
		key string
		dst *int
	}{
		{"GEFFE_WORKERS", &params.Workers},
		{"GEFFE_PREFIX_LENGTH", &params.PrefixLength},
		{"GEFFE_CORRELATION_WINDOW", &params.CorrelationWindow},
		{"GEFFE_MAX_CANDIDATES", &params.MaxCandidates},
		{"GEFFE_L1_THRESHOLD", &params.L1.Threshold},
		{"GEFFE_L2_THRESHOLD", &params.L2.Threshold},
	}
	for _, e := range ints {
		v := os.Getenv(e.key)
		if v == "" {
			continue
		}
		i, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s: %w", e.key, err)
		}
		*e.dst = i
	}
	if v := os.Getenv("GEFFE_VERIFICATION"); v != "" {
		params.Verification = geffe.VerificationMode(strings.ToLower(strings.TrimSpace(v)))
	}
	return nil
}
