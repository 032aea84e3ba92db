// Package main provides the geffe-cli command line interface for the
// Geffe generator correlation attack.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	geffe "github.com/BackendStack21/geffe-go"
)

const (
	version = "1.0.0"
	appName = "geffe-cli"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// globalFlags are shared by every command.
type globalFlags struct {
	logLevel  string
	logFormat string
	preset    string
	config    string
}

func (g *globalFlags) presetValue() geffe.Preset {
	return geffe.Preset(strings.ToLower(g.preset))
}

// newLogger builds the slog logger selected by --log-level and --log-format.
func newLogger(w io.Writer, level, format string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q", level)
	}
	opts := &slog.HandlerOptions{Level: lvl}
	switch strings.ToLower(format) {
	case "text", "":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("invalid log format %q (want text or json)", format)
	}
}
