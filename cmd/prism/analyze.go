package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"prism/internal/cache"
	"prism/internal/config"
	"prism/internal/diagfmt"
	"prism/internal/driver"
	"prism/internal/fixture"
	"prism/internal/observ"
	"prism/internal/prof"
	"prism/internal/rules"
	"prism/internal/trace"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [flags] <fixture.json>",
	Short: "Run analyzers over a compilation fixture",
	Long:  `Run the registered analyzers over a JSON compilation fixture and report the diagnostics`,
	Args:  cobra.ExactArgs(1),
	RunE:  runAnalyze,
}

func init() {
	analyzeCmd.Flags().String("format", "pretty", "output format (pretty|json)")
	analyzeCmd.Flags().StringSlice("rules", nil, "rules to run (default: config, or all)")
	analyzeCmd.Flags().Int("jobs", 0, "max parallel workers (0=auto)")
	analyzeCmd.Flags().Bool("with-notes", false, "include diagnostic notes in output")
	analyzeCmd.Flags().Bool("with-source", false, "include source lines with caret underlines")
	analyzeCmd.Flags().Bool("disk-cache", false, "enable the persistent result cache")
	analyzeCmd.Flags().Bool("categorized", false, "drain diagnostics by locality category")
	analyzeCmd.Flags().Bool("metrics", false, "print scheduler metrics to stderr")
	analyzeCmd.Flags().Bool("basename", false, "emit bare file names instead of paths")
	analyzeCmd.Flags().Bool("trace", false, "stream scheduling trace events to stderr")
	analyzeCmd.Flags().String("cpuprofile", "", "write a CPU profile to the given path")
	analyzeCmd.Flags().String("memprofile", "", "write a heap profile to the given path")
	analyzeCmd.Flags().String("exectrace", "", "write a runtime execution trace to the given path")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	fixturePath := args[0]

	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return fmt.Errorf("failed to get format flag: %w", err)
	}
	if format != "pretty" && format != "json" {
		return fmt.Errorf("unsupported format %q (must be pretty or json)", format)
	}
	ruleNames, err := cmd.Flags().GetStringSlice("rules")
	if err != nil {
		return fmt.Errorf("failed to get rules flag: %w", err)
	}
	jobs, err := cmd.Flags().GetInt("jobs")
	if err != nil {
		return fmt.Errorf("failed to get jobs flag: %w", err)
	}
	withNotes, err := cmd.Flags().GetBool("with-notes")
	if err != nil {
		return fmt.Errorf("failed to get with-notes flag: %w", err)
	}
	withSource, err := cmd.Flags().GetBool("with-source")
	if err != nil {
		return fmt.Errorf("failed to get with-source flag: %w", err)
	}
	diskCache, err := cmd.Flags().GetBool("disk-cache")
	if err != nil {
		return fmt.Errorf("failed to get disk-cache flag: %w", err)
	}
	categorized, err := cmd.Flags().GetBool("categorized")
	if err != nil {
		return fmt.Errorf("failed to get categorized flag: %w", err)
	}
	showMetrics, err := cmd.Flags().GetBool("metrics")
	if err != nil {
		return fmt.Errorf("failed to get metrics flag: %w", err)
	}
	basename, err := cmd.Flags().GetBool("basename")
	if err != nil {
		return fmt.Errorf("failed to get basename flag: %w", err)
	}
	withTrace, err := cmd.Flags().GetBool("trace")
	if err != nil {
		return fmt.Errorf("failed to get trace flag: %w", err)
	}
	maxDiagnostics, err := cmd.Root().PersistentFlags().GetInt("max-diagnostics")
	if err != nil {
		return fmt.Errorf("failed to get max-diagnostics flag: %w", err)
	}
	showTimings, err := cmd.Root().PersistentFlags().GetBool("timings")
	if err != nil {
		return fmt.Errorf("failed to get timings flag: %w", err)
	}
	colorMode, err := cmd.Root().PersistentFlags().GetString("color")
	if err != nil {
		return fmt.Errorf("failed to get color flag: %w", err)
	}
	cpuProfile, err := cmd.Flags().GetString("cpuprofile")
	if err != nil {
		return fmt.Errorf("failed to get cpuprofile flag: %w", err)
	}
	memProfile, err := cmd.Flags().GetString("memprofile")
	if err != nil {
		return fmt.Errorf("failed to get memprofile flag: %w", err)
	}
	execTrace, err := cmd.Flags().GetString("exectrace")
	if err != nil {
		return fmt.Errorf("failed to get exectrace flag: %w", err)
	}

	if cpuProfile != "" {
		stop, err := prof.StartCPU(cpuProfile)
		if err != nil {
			return fmt.Errorf("failed to start CPU profile: %w", err)
		}
		defer stop()
	}
	if execTrace != "" {
		stop, err := prof.StartTrace(execTrace)
		if err != nil {
			return fmt.Errorf("failed to start execution trace: %w", err)
		}
		defer stop()
	}
	if memProfile != "" {
		defer func() {
			if err := prof.WriteMem(memProfile); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "failed to write heap profile: %v\n", err)
			}
		}()
	}

	cfg, err := config.Discover(filepath.Dir(fixturePath))
	if err != nil {
		return err
	}
	// Flags win over the manifest.
	if len(ruleNames) == 0 {
		ruleNames = cfg.Analysis.Rules
	}
	if jobs == 0 {
		jobs = cfg.Analysis.Jobs
	}
	if maxDiagnostics == 0 {
		maxDiagnostics = cfg.Analysis.MaxDiagnostics
	}
	categorized = categorized || cfg.Analysis.Categorized
	overrides, err := cfg.Overrides()
	if err != nil {
		return err
	}

	comp, err := fixture.Load(fixturePath)
	if err != nil {
		return err
	}
	analyzers, err := rules.Enabled(ruleNames)
	if err != nil {
		return err
	}

	opts := driver.Options{
		Jobs:           jobs,
		MaxDiagnostics: maxDiagnostics,
		Categorized:    categorized,
	}
	if diskCache || cfg.Cache.Enabled {
		c, err := cache.Open(cfg.Cache.Dir)
		if err != nil {
			return fmt.Errorf("failed to open result cache: %w", err)
		}
		opts.Cache = c
	}
	if withTrace {
		opts.Tracer = trace.NewStream(cmd.ErrOrStderr())
	}
	timer := observ.NewTimer()
	if showTimings {
		opts.Timer = timer
	}

	res, err := driver.New(comp, analyzers, opts).Run(cmd.Context())
	if err != nil {
		return err
	}

	bag := res.Bag
	if len(overrides) > 0 {
		items := bag.Items()
		for i := range items {
			if sev, ok := overrides[items[i].Analyzer]; ok {
				items[i].Severity = sev
			}
		}
		bag.Sort()
	}

	pathMode := diagfmt.PathModeAuto
	if basename {
		pathMode = diagfmt.PathModeBasename
	}
	switch format {
	case "json":
		err = diagfmt.JSON(cmd.OutOrStdout(), bag, comp.Files, diagfmt.JSONOpts{
			IncludePositions: true,
			IncludeNotes:     withNotes,
			PathMode:         pathMode,
		})
		if err != nil {
			return err
		}
	default:
		diagfmt.Pretty(cmd.OutOrStdout(), bag, comp.Files, diagfmt.PrettyOpts{
			Color:      colorEnabled(colorMode, os.Stdout),
			PathMode:   pathMode,
			ShowNotes:  withNotes,
			ShowSource: withSource,
		})
	}

	if showTimings {
		fmt.Fprint(cmd.ErrOrStderr(), timer.Summary())
	}
	if showMetrics {
		fmt.Fprintf(cmd.ErrOrStderr(), "metrics: %+v (from cache: %v)\n", res.Metrics, res.FromCache)
	}
	if bag.HasErrors() {
		return fmt.Errorf("analysis reported errors")
	}
	return nil
}
