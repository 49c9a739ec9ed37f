package main

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rohankatakam/graphbridge/internal/config"
	gberrors "github.com/rohankatakam/graphbridge/internal/errors"
	"github.com/rohankatakam/graphbridge/internal/logging"
	"github.com/rohankatakam/graphbridge/internal/metrics"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	// Version information (set by build flags)
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"

	cfgFile     string
	verbose     bool
	metricsAddr string
	logger      *logrus.Logger
	cfg         *config.Config
	collector   *metrics.PrometheusCollector
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprint(os.Stderr, formatError(err, verbose || logging.IsDebugEnabled()))
		os.Exit(exitCode(err))
	}
}

// formatError renders err for the terminal. Detailed output adds the severity,
// type and context of the innermost typed error.
func formatError(err error, detailed bool) string {
	var e *gberrors.Error
	if detailed && errors.As(err, &e) {
		return fmt.Sprintf("Error: %v\n%s", err, e.DetailedString())
	}
	return fmt.Sprintf("Error: %v\n", err)
}

// exitCode is 2 for configuration errors, 3 for non-critical typed errors such as a
// failed graph batch that can be retried, and 1 otherwise
func exitCode(err error) int {
	var e *gberrors.Error
	switch {
	case gberrors.GetType(err) == gberrors.ErrorTypeConfig:
		return 2
	case errors.As(err, &e) && !gberrors.IsFatal(err):
		return 3
	}
	return 1
}

var rootCmd = &cobra.Command{
	Use:   "graphbridge",
	Short: "graphbridge - mirror indexed graph output into Neo4j and read it back",
	Long: `graphbridge writes the entity and relationship tables of an index into Neo4j
and resolves output tables across one or many indexes, reconciled against the graph.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to load config, using defaults: %v\n", err)
			cfg = config.Default()
		}

		initLogging()

		collector = metrics.NewPrometheusCollector()
		if metricsAddr != "" {
			serveMetrics(metricsAddr)
		}
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Close()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: .graphbridge/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address (e.g. :9090)")

	rootCmd.SetVersionTemplate(`graphbridge {{.Version}}
Build time: ` + BuildTime + `
Git commit: ` + GitCommit + `
`)

	rootCmd.AddCommand(materializeCmd)
	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(healthCmd)
}

// initLogging installs the global slog logger and derives the logrus logger
// handed to storage, resolver and workflow
func initLogging() {
	logCfg := logging.DefaultConfig(verbose, cfg.Logging.LogDir)
	if !verbose {
		logCfg.Level = logging.ParseLevel(cfg.Logging.Level)
		logCfg.JSONFormat = cfg.Logging.JSON
	}

	if err := logging.Initialize(logCfg); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}

	if global := logging.Global(); global != nil {
		logger = global.Logrus()
		return
	}

	logger = logrus.New()
	if verbose || strings.EqualFold(cfg.Logging.Level, "debug") {
		logger.SetLevel(logrus.DebugLevel)
	}
}

func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(collector.Registry(), promhttp.HandlerOpts{}))

	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Warn("metrics server stopped")
		}
	}()
	logger.WithField("addr", addr).Info("serving metrics")
}
