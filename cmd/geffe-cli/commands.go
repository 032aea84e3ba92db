package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	geffe "github.com/BackendStack21/geffe-go"
	"github.com/BackendStack21/geffe-go/attack"
	"github.com/BackendStack21/geffe-go/combiner"
	"github.com/BackendStack21/geffe-go/core"
	"github.com/BackendStack21/geffe-go/keystream"
	"github.com/BackendStack21/geffe-go/store"
	"github.com/BackendStack21/geffe-go/verify"
)

func newRootCmd() *cobra.Command {
	g := &globalFlags{}
	var logger *slog.Logger

	root := &cobra.Command{
		Use:   appName,
		Short: "Known-plaintext correlation attack on a Geffe/Gifford generator",
		Long: `geffe-cli recovers the three LFSR initial states of a Geffe/Gifford
combination generator from a known keystream. L1 and L2 are found by
correlation search, candidate pairs are pruned by compatibility, and L3 is
solved from the selector bits the surviving pair forces.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			logger, err = newLogger(cmd.ErrOrStderr(), g.logLevel, g.logFormat)
			return err
		},
	}
	pf := root.PersistentFlags()
	pf.StringVar(&g.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	pf.StringVar(&g.logFormat, "log-format", "text", "log format (text or json)")
	pf.StringVarP(&g.preset, "preset", "p", string(geffe.PresetLab4), "register preset (lab4 or toy)")
	pf.StringVarP(&g.config, "config", "c", "", "YAML or JSON file overriding the preset")

	log := func() *slog.Logger { return logger }
	root.AddCommand(
		newAttackCmd(g, log),
		newGenerateCmd(g),
		newVerifyCmd(g),
		newThresholdCmd(g),
		newConfigCmd(g),
		newVersionCmd(),
	)
	return root
}

func loadParams(g *globalFlags) (geffe.AttackParams, error) {
	return core.LoadParams(g.presetValue(), g.config)
}

func newAttackCmd(g *globalFlags, log func() *slog.Logger) *cobra.Command {
	var (
		keystreamPath string
		workers       int
		verification  string
		autoThreshold bool
		missRate      float64
		cacheDir      string
		output        string
	)
	cmd := &cobra.Command{
		Use:   "attack",
		Short: "Recover L1, L2 and L3 from a keystream file",
		Example: `  geffe-cli attack -k keystream.txt --auto-threshold --workers 8
  geffe-cli attack -p toy -k toy.txt -o json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := loadParams(g)
			if err != nil {
				return err
			}
			z, err := keystream.Load(keystreamPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("workers") {
				params.Workers = workers
			}
			if verification != "" {
				params.Verification = geffe.VerificationMode(verification)
			}
			if autoThreshold {
				if err := core.AutoThreshold(&params, len(z), missRate); err != nil {
					return err
				}
			}

			opts := attack.Options{Logger: log()}
			if cacheDir != "" {
				cache, err := store.Open(store.Config{Path: cacheDir, SyncWrites: true, Logger: log()})
				if err != nil {
					return err
				}
				defer cache.Close()
				opts.Cache = cache
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			rec, err := attack.Run(ctx, params, z, opts)
			if err != nil {
				return err
			}
			return writeRecovery(cmd.OutOrStdout(), rec, output)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&keystreamPath, "keystream", "k", "", "file holding the keystream as 0/1 text")
	f.IntVarP(&workers, "workers", "w", 0, "parallel workers per stage (0 or 1 runs sequentially)")
	f.StringVar(&verification, "verification", "", "selector verification: register or template")
	f.BoolVar(&autoThreshold, "auto-threshold", false, "derive L1/L2 thresholds from the keystream length")
	f.Float64Var(&missRate, "miss-rate", core.DefaultMissRate, "chance of losing a true state with --auto-threshold")
	f.StringVar(&cacheDir, "cache", "", "directory for the correlation candidate cache")
	f.StringVarP(&output, "output", "o", "text", "output format (text or json)")
	_ = cmd.MarkFlagRequired("keystream")
	return cmd
}

type stateFlags struct {
	l1, l2, l3 string
}

func (s *stateFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&s.l1, "l1", "", "L1 initial state as 0/1 text")
	cmd.Flags().StringVar(&s.l2, "l2", "", "L2 initial state as 0/1 text")
	cmd.Flags().StringVar(&s.l3, "l3", "", "L3 initial state as 0/1 text")
	_ = cmd.MarkFlagRequired("l1")
	_ = cmd.MarkFlagRequired("l2")
	_ = cmd.MarkFlagRequired("l3")
}

func (s *stateFlags) parse() (l1, l2, l3 geffe.Sequence, err error) {
	if l1, err = keystream.Parse(s.l1); err != nil {
		return nil, nil, nil, fmt.Errorf("--l1: %w", err)
	}
	if l2, err = keystream.Parse(s.l2); err != nil {
		return nil, nil, nil, fmt.Errorf("--l2: %w", err)
	}
	if l3, err = keystream.Parse(s.l3); err != nil {
		return nil, nil, nil, fmt.Errorf("--l3: %w", err)
	}
	return l1, l2, l3, nil
}

func newGenerateCmd(g *globalFlags) *cobra.Command {
	var (
		states stateFlags
		length int
		out    string
	)
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate keystream from known initial states",
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := loadParams(g)
			if err != nil {
				return err
			}
			l1, l2, l3, err := states.parse()
			if err != nil {
				return err
			}
			z, err := combiner.Generate(params, l1, l2, l3, length)
			if err != nil {
				return err
			}
			if out == "" {
				return keystream.Write(cmd.OutOrStdout(), z)
			}
			f, err := os.Create(out)
			if err != nil {
				return err
			}
			if err := keystream.Write(f, z); err != nil {
				f.Close()
				return err
			}
			return f.Close()
		},
	}
	states.register(cmd)
	cmd.Flags().IntVarP(&length, "length", "n", 400, "number of keystream bits")
	cmd.Flags().StringVar(&out, "out", "", "write the keystream to this file instead of stdout")
	return cmd
}

func newVerifyCmd(g *globalFlags) *cobra.Command {
	var (
		states        stateFlags
		keystreamPath string
	)
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check that initial states reproduce a keystream",
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := loadParams(g)
			if err != nil {
				return err
			}
			l1, l2, l3, err := states.parse()
			if err != nil {
				return err
			}
			z, err := keystream.Load(keystreamPath)
			if err != nil {
				return err
			}
			report, err := verify.Keystream(params, l1, l2, l3, z)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if !report.OK() {
				fmt.Fprintf(w, "MISMATCH: %d of %d bits differ, first at %d\n",
					report.Mismatches, report.Length, report.FirstMismatch)
				return fmt.Errorf("keystream mismatch")
			}
			fmt.Fprintf(w, "OK: %d bits match (sha3 %s)\n", report.Length, report.Expected)
			return nil
		},
	}
	states.register(cmd)
	cmd.Flags().StringVarP(&keystreamPath, "keystream", "k", "", "file holding the keystream as 0/1 text")
	_ = cmd.MarkFlagRequired("keystream")
	return cmd
}

func newThresholdCmd(g *globalFlags) *cobra.Command {
	var (
		length   int
		missRate float64
	)
	cmd := &cobra.Command{
		Use:   "threshold",
		Short: "Compute a correlation threshold for a keystream length",
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := loadParams(g)
			if err != nil {
				return err
			}
			if err := core.AutoThreshold(&params, length, missRate); err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "threshold: %d (length %d, miss rate %g)\n", params.L1.Threshold, length, missRate)
			for _, reg := range []geffe.RegisterParams{params.L1, params.L2} {
				fmt.Fprintf(w, "%s: expected false candidates %.3g\n",
					reg.Name, core.ExpectedCandidates(reg, effectiveLength(params, length)))
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&length, "length", "n", 400, "keystream length in bits")
	cmd.Flags().Float64Var(&missRate, "miss-rate", core.DefaultMissRate, "acceptable chance of losing the true state")
	return cmd
}

func effectiveLength(params geffe.AttackParams, length int) int {
	if params.CorrelationWindow > 0 && params.CorrelationWindow < length {
		return params.CorrelationWindow
	}
	return length
}

func newConfigCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := loadParams(g)
			if err != nil {
				return err
			}
			data, err := core.MarshalParams(params)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s version %s\n", appName, version)
			fmt.Fprintf(cmd.OutOrStdout(), "geffe library version %s\n", geffe.Version)
		},
	}
}

func writeRecovery(w io.Writer, rec *geffe.Recovery, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rec)
	case "text", "":
		fmt.Fprintf(w, "L1: %s\n", rec.L1)
		fmt.Fprintf(w, "L2: %s\n", rec.L2)
		fmt.Fprintf(w, "L3: %s\n", rec.L3)
		if !rec.SelectorConsistent {
			fmt.Fprintln(w, "warning: L3 does not regenerate the matched selector")
		}
		return nil
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}
