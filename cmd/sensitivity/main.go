// Command sensitivity computes optical loading, noise and mapping speed for
// the bands of an experiment configuration and writes them as tables,
// figures and an HTML report.
package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/banshee-data/sensitivity.report/internal/config"
	"github.com/banshee-data/sensitivity.report/internal/monitoring"
	"github.com/banshee-data/sensitivity.report/internal/report"
	"github.com/banshee-data/sensitivity.report/internal/sensitivity"
	"github.com/banshee-data/sensitivity.report/internal/timeutil"
	"github.com/banshee-data/sensitivity.report/internal/units"
	"github.com/banshee-data/sensitivity.report/internal/version"
)

// cli holds the flags and per-invocation state shared by the subcommands.
type cli struct {
	configPath string
	outDir     string
	verbose    bool
	stdout     bool

	clock  timeutil.Clock
	logger *zap.Logger
	runID  string
	start  time.Time
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	c := &cli{clock: timeutil.RealClock{}}
	root := &cobra.Command{
		Use:   "sensitivity",
		Short: "Millimetre-wave instrument sensitivity calculator",
		Long: `sensitivity evaluates the optical chain and detectors of each band in an
experiment configuration and reports optical power, NEP, NET, array NET,
mapping speed and survey depth.

Configuration is JSON or YAML, selected by file extension.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logger, err := monitoring.NewZapLogger(c.verbose)
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			c.logger = logger
			monitoring.UseZap(logger)
			c.runID = uuid.NewString()
			c.start = c.clock.Now()
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if c.logger != nil {
				c.logger.Debug("run finished",
					zap.String("run", c.runID),
					zap.String("command", cmd.Name()),
					zap.Duration("elapsed", c.clock.Since(c.start)))
				_ = c.logger.Sync()
			}
		},
	}

	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", config.DefaultConfigPath, "experiment configuration (.json, .yaml)")
	root.PersistentFlags().StringVarP(&c.outDir, "out", "o", "output", "directory for report files")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "debug logging")

	tableCmd := &cobra.Command{
		Use:   "table",
		Short: "Write the per-band sensitivity table",
		Args:  cobra.NoArgs,
		RunE:  c.runTable,
	}
	tableCmd.Flags().BoolVar(&c.stdout, "stdout", false, "print to stdout instead of writing a file")

	opticsCmd := &cobra.Command{
		Use:   "optics",
		Short: "Write the per-element optical power table",
		Args:  cobra.NoArgs,
		RunE:  c.runOptics,
	}
	opticsCmd.Flags().BoolVar(&c.stdout, "stdout", false, "print to stdout instead of writing a file")

	root.AddCommand(
		tableCmd,
		opticsCmd,
		&cobra.Command{
			Use:   "plot",
			Short: "Write the NET and mapping speed figure (PNG)",
			Args:  cobra.NoArgs,
			RunE:  c.runPlot,
		},
		&cobra.Command{
			Use:   "report",
			Short: "Write every output: tables, figure and HTML report",
			Args:  cobra.NoArgs,
			RunE:  c.runReport,
		},
		&cobra.Command{
			Use:   "estimate",
			Short: "Print the closed-form single-chain estimate of each band",
			Args:  cobra.NoArgs,
			RunE:  c.runEstimate,
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Args:  cobra.NoArgs,
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintln(cmd.OutOrStdout(), version.String())
			},
		},
	)
	return root
}

// load reads the configuration and builds the calculator and experiment.
func (c *cli) load() (*config.ExperimentConfig, *sensitivity.Calculator, sensitivity.Experiment, error) {
	cfg, err := config.LoadExperimentConfig(c.configPath)
	if err != nil {
		return nil, nil, sensitivity.Experiment{}, err
	}
	calc := sensitivity.NewDefault(cfg.CalculatorOptions())
	exp := cfg.Experiment(c.runID)
	if c.logger != nil {
		c.logger.Info("loaded experiment",
			zap.String("run", c.runID),
			zap.String("config", c.configPath),
			zap.String("experiment", exp.Name),
			zap.Int("bands", len(exp.Bands)))
	}
	return cfg, calc, exp, nil
}

func (c *cli) writer(name string) *report.Writer {
	w := report.NewWriter(c.outDir, name)
	w.Clock = c.clock
	return w
}

func (c *cli) printPath(cmd *cobra.Command, path string) {
	fmt.Fprintln(cmd.OutOrStdout(), path)
}

func (c *cli) runTable(cmd *cobra.Command, args []string) error {
	_, calc, exp, err := c.load()
	if err != nil {
		return err
	}
	results := calc.Run(exp)
	if c.stdout {
		return report.WriteTable(cmd.OutOrStdout(), results)
	}
	path, err := c.writer(exp.Name).Table(results)
	if err != nil {
		return err
	}
	c.printPath(cmd, path)
	return nil
}

func (c *cli) runOptics(cmd *cobra.Command, args []string) error {
	_, calc, exp, err := c.load()
	if err != nil {
		return err
	}
	bands := report.CollectOptics(calc, exp.Bands)
	if c.stdout {
		return report.WriteOpticsTable(cmd.OutOrStdout(), bands)
	}
	path, err := c.writer(exp.Name).Optics(bands)
	if err != nil {
		return err
	}
	c.printPath(cmd, path)
	return nil
}

func (c *cli) runPlot(cmd *cobra.Command, args []string) error {
	_, calc, exp, err := c.load()
	if err != nil {
		return err
	}
	path, err := c.writer(exp.Name).Plot(calc.Run(exp))
	if err != nil {
		return err
	}
	c.printPath(cmd, path)
	return nil
}

func (c *cli) runReport(cmd *cobra.Command, args []string) error {
	_, calc, exp, err := c.load()
	if err != nil {
		return err
	}
	results := calc.Run(exp)
	paths, err := c.writer(exp.Name).All(c.runID, results, report.CollectOptics(calc, exp.Bands))
	for _, p := range paths {
		c.printPath(cmd, p)
	}
	return err
}

func (c *cli) runEstimate(cmd *cobra.Command, args []string) error {
	cfg, calc, exp, err := c.load()
	if err != nil {
		return err
	}
	survey := cfg.SurveyParameters()
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "%-10s %11s %15s %13s %13s %15s %13s %7s\n", "Band",
		"Popt["+units.LabelPW+"]", "NEP["+units.LabelAWRtHz+"]", "NET["+units.LabelUKRtS+"]",
		"NETarr["+units.LabelUKRtS+"]", "MS[(uK^2s)^-1]", "Sens["+units.LabelUKArcmin+"]", "ETF")
	for _, b := range exp.Bands {
		est, err := calc.Estimate(b, survey)
		if err != nil {
			monitoring.Logf("run %s: band %s skipped: %v", c.runID, b.Name, err)
			writeEstimateNA(w, b.Name)
			continue
		}
		fmt.Fprintf(w, "%-10s %11s %15s %13s %13s %15s %13s %7s\n", est.Band,
			report.FormatValue(est.Popt, units.PW, 3),
			report.FormatValue(est.NEP, units.AWRtHz, 2),
			report.FormatValue(est.NET, units.UKRtS, 1),
			report.FormatValue(est.NETArray, units.UKRtS, 2),
			report.FormatValue(est.MappingSpeed, units.InvUK2S, 4),
			report.FormatValue(est.Sensitivity, units.UKArcmin, 2),
			report.FormatValue(est.ETF, 1, 2))
	}
	return nil
}

func writeEstimateNA(w io.Writer, band string) {
	na := report.NA
	fmt.Fprintf(w, "%-10s %11s %15s %13s %13s %15s %13s %7s\n", band, na, na, na, na, na, na, na)
}
