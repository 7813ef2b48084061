// Command cv inspects CMMN case instances on a Flowable-style admin server:
// it renders their diagrams, changes plan item state and migrates instances
// to new case definitions.
package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/vanderheijden86/caseview/pkg/config"
	"github.com/vanderheijden86/caseview/pkg/metrics"
)

// app carries the state shared by all subcommands.
type app struct {
	verbose     bool
	configPath  string
	serverName  string
	envFile     string
	showMetrics bool

	cfg    config.Config
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{logger: zap.NewNop()}

	root := &cobra.Command{
		Use:   "cv",
		Short: "Inspect and change the state of CMMN case instances",
		Long: `cv fetches case and process diagrams from a Flowable admin REST API,
renders them to SVG or PNG, and sends change-state and migration documents
for the plan items you select.

Server settings come from ~/.config/caseview/config.yaml, overridden by
CASEVIEW_BASE_URL, CASEVIEW_USERNAME and CASEVIEW_PASSWORD (a .env file in
the working directory is read first).`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.showMetrics {
				printMetrics(cmd.ErrOrStderr())
			}
			_ = a.logger.Sync()
		},
	}

	pf := root.PersistentFlags()
	pf.BoolVarP(&a.verbose, "verbose", "v", false, "Enable verbose logging")
	pf.StringVar(&a.configPath, "config", "", "Config file (default: "+config.ConfigPath()+")")
	pf.StringVarP(&a.serverName, "server", "s", "", "Named server from the config file")
	pf.StringVar(&a.envFile, "env-file", ".env", "Read environment overrides from this file")
	pf.BoolVar(&a.showMetrics, "metrics", false, "Print timing metrics on exit")

	root.AddCommand(
		newRenderCmd(a),
		newShowCmd(a),
		newChangeStateCmd(a),
		newMigrateCmd(a),
		newTUICmd(a),
		newHistoryCmd(a),
		newVersionCmd(),
	)
	return root
}

func (a *app) init() error {
	if err := config.LoadEnv(a.envFile); err != nil {
		return err
	}

	var err error
	if a.configPath != "" {
		a.cfg, err = config.LoadFrom(a.configPath)
	} else {
		a.cfg, err = config.Load()
	}
	if err != nil {
		return err
	}

	zc := zap.NewProductionConfig()
	zc.Encoding = "console"
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zc.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	if a.verbose {
		zc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	logger, err := zc.Build()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	a.logger = logger
	return nil
}

func printMetrics(w io.Writer) {
	stats := metrics.AllTimingStats()
	if len(stats) == 0 {
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "METRIC\tCOUNT\tAVG ms\tMAX ms")
	for _, s := range stats {
		fmt.Fprintf(tw, "%s\t%d\t%.1f\t%.1f\n", s.Name, s.Count, ms(s.Avg), ms(s.Max))
	}
	tw.Flush()
}

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
