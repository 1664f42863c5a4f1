// Package main provides kinquery, a command line front end for running
// genealogy filters and relationship queries against a kincore store.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"kincore/internal/core"
	"kincore/internal/filterstore"
	"kincore/pkg/domain"
)

func main() {
	if err := newRootCmd(os.Stdout, os.Stderr).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// app holds everything a subcommand needs. It is built once per invocation
// in the root command's PersistentPreRunE.
type app struct {
	cfg      Config
	store    domain.PersistentStore
	filters  filterstore.Store
	svc      *core.Service
	tracer   *core.JSONTraceTracer
	registry *prometheus.Registry
	format   string
	out      io.Writer
}

type globalFlags struct {
	configPath string
	logLevel   string
	format     string
	trace      bool
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	var (
		flags globalFlags
		a     = &app{out: stdout}
	)

	cmd := &cobra.Command{
		Use:           "kinquery",
		Short:         "Query a family tree with filters and relationship walks",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.open(cmd.Context(), flags, stderr)
		},
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	cmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "Config file path (YAML)")
	cmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "Log level (debug, info, warn, error); overrides the config file")
	cmd.PersistentFlags().StringVarP(&flags.format, "output", "o", "text", "Output format (text, json)")
	cmd.PersistentFlags().BoolVar(&flags.trace, "trace", false, "Write one JSON trace line per query to stderr")

	cmd.AddCommand(
		newImportCmd(a),
		newFilterCmd(a),
		newAncestorsCmd(a),
		newDescendantsCmd(a),
		newPathCmd(a),
		newCommonCmd(a),
		newCheckCmd(a),
	)
	closeAfter(a, cmd.Commands())
	return cmd
}

// closeAfter wraps every leaf command so the app is also closed after a
// failed run.
func closeAfter(a *app, cmds []*cobra.Command) {
	for _, c := range cmds {
		if run := c.RunE; run != nil {
			c.RunE = func(cmd *cobra.Command, args []string) (err error) {
				defer func() {
					if cerr := a.close(); err == nil {
						err = cerr
					}
				}()
				return run(cmd, args)
			}
		}
		closeAfter(a, c.Commands())
	}
}

func (a *app) open(ctx context.Context, flags globalFlags, stderr io.Writer) (err error) {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := loadConfig(flags.configPath)
	if err != nil {
		return err
	}
	if flags.logLevel != "" {
		cfg.LogLevel = flags.logLevel
	}
	level, err := parseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	switch flags.format {
	case "text", "json":
	default:
		return fmt.Errorf("unknown output format %q", flags.format)
	}
	a.cfg = cfg
	a.format = flags.format

	logger := core.NewSlogLogger(slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level})))
	core.SetLogger(logger)

	store, err := core.OpenStorage(core.StorageDriver(cfg.Storage.Driver), cfg.Storage.Path, cfg.Storage.DSN, core.NewDefaultCheckEngine())
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	a.store = store
	defer func() {
		if err != nil {
			_ = a.close()
		}
	}()

	filters, err := cfg.openFilterStore(ctx)
	if err != nil {
		return fmt.Errorf("open filter store: %w", err)
	}
	a.filters = filters
	lib, err := core.OpenLibrary(ctx, filters, cfg.Filters.Library, nil)
	if err != nil {
		return err
	}

	opts := []core.Option{core.WithLogger(logger), core.WithFilterLibrary(lib)}
	if flags.trace {
		a.tracer = core.NewJSONTracer(stderr)
		opts = append(opts, core.WithTracer(a.tracer))
	}
	switch {
	case cfg.Metrics.Textfile != "":
		a.registry = prometheus.NewRegistry()
		rec, err := core.NewPrometheusMetricsRecorder(a.registry)
		if err != nil {
			return err
		}
		opts = append(opts, core.WithMetricsRecorder(rec))
	case cfg.Metrics.Expvar:
		opts = append(opts, core.WithMetricsRecorder(core.NewExpvarMetricsRecorder("")))
	}
	a.svc = core.NewService(store, opts...)
	return nil
}

func (a *app) close() error {
	if a.store == nil {
		return nil
	}
	var err error
	if a.registry != nil {
		if werr := prometheus.WriteToTextfile(a.cfg.Metrics.Textfile, a.registry); werr != nil {
			err = fmt.Errorf("write metrics: %w", werr)
		}
	}
	if c, ok := a.store.(io.Closer); ok {
		if cerr := c.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	a.store = nil
	return err
}
