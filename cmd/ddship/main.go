package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"github.com/bft-labs/ddship/internal/adapters/fs"
	logAdapter "github.com/bft-labs/ddship/internal/adapters/log"
	"github.com/bft-labs/ddship/internal/cliconfig"
	"github.com/bft-labs/ddship/internal/domain"
	"github.com/bft-labs/ddship/internal/ports"
	"github.com/bft-labs/ddship/internal/tail"
	"github.com/bft-labs/ddship/pkg/ddlog"
)

const helpDescription = `
Ship log lines to the Datadog logs intake without blocking the producer.

Reads stdin when no files are given, otherwise each file in turn. With
--follow, keeps reading appended data and remembers offsets in --state-dir
so a restart resumes where it stopped.

Highlights:
  - Batches by size and time; retries 429, 5xx and network errors with backoff.
  - Bounded in-memory queue; overflow is dropped and reported, never blocks.
  - Configure via $HOME/.ddship/config.toml, DD_* environment variables, or flags.
`

var exampleUsage = strings.TrimSpace(`
  myapp 2>&1 | ddship --service myapp --env prod
  ddship --json --follow --state-dir /var/lib/ddship /var/log/myapp/*.log
  ddship --config $HOME/.ddship/config.toml --metrics-addr :9102 app.log
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func main() {
	cfg := cliconfig.DefaultConfig()
	var cfgPath, envFile string

	log := cliconfig.Logger()

	root := &cobra.Command{
		Use:     "ddship [flags] [file...]",
		Short:   "Ship log lines to the Datadog logs intake",
		Long:    strings.TrimSpace(helpDescription),
		Example: exampleUsage,
		Version: fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgFile := cfgPath
			if cfgFile == "" {
				cfgFile = cliconfig.DefaultConfigPath()
			}

			// Build set of changed flags
			changed := map[string]bool{}
			cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

			if err := cliconfig.LoadDotEnv(envFile); err != nil {
				return err
			}

			if cfgFile != "" && cliconfig.FileExists(cfgFile) {
				fc, err := cliconfig.LoadFileConfig(cfgFile)
				if err != nil {
					return fmt.Errorf("load config: %w", err)
				}
				if err := cliconfig.ApplyFileConfig(&cfg, fc, changed); err != nil {
					return err
				}
			}

			// Environment overrides the file, flags override both
			if err := cliconfig.ApplyEnvConfig(&cfg, changed); err != nil {
				return err
			}

			if err := cliconfig.LoadHostInfo(&cfg); err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			if cfg.Follow && len(args) == 0 {
				return errors.New("--follow needs at least one file")
			}

			if cfg.Verbose {
				log = log.Level(zerolog.DebugLevel)
			} else {
				log = log.Level(zerolog.InfoLevel)
			}
			log.Info().Interface("config", cfg.Masked()).Msg("configuration")

			return run(cmd.Context(), cfg, args, log)
		},
	}

	root.Flags().StringVar(&cfgPath, "config", "", "path to config file (default: $HOME/.ddship/config.toml)")
	root.Flags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading DD_* variables")

	root.Flags().StringVar(&cfg.APIKey, "api-key", cfg.APIKey, "Datadog API key (DD_API_KEY)")
	root.Flags().StringVar(&cfg.Site, "site", cfg.Site, "Datadog site, e.g. datadoghq.eu")
	root.Flags().StringVar(&cfg.EndpointURL, "endpoint-url", cfg.EndpointURL, "intake URL override (testing and proxies)")
	if err := root.Flags().MarkHidden("endpoint-url"); err != nil {
		log.Info().Err(err).Msg("failed to hide endpoint-url flag")
	}

	root.Flags().StringVar(&cfg.Service, "service", cfg.Service, "service name")
	root.Flags().StringVar(&cfg.Environment, "env", cfg.Environment, "environment, sent as the env: tag")
	root.Flags().StringVar(&cfg.Version, "service-version", cfg.Version, "service version, sent as the version: tag")
	root.Flags().StringVar(&cfg.Source, "source", cfg.Source, "ddsource value")
	root.Flags().StringVar(&cfg.Hostname, "hostname", cfg.Hostname, "hostname (defaults to this host)")
	root.Flags().StringSliceVar(&cfg.Tags, "tags", cfg.Tags, "extra key:value tags")
	root.Flags().StringVar(&cfg.LoggerName, "logger", cfg.LoggerName, "logger name attached to every record")
	root.Flags().StringVar(&cfg.Level, "level", cfg.Level, "level of plain lines (debug, info, warn, error, critical)")

	root.Flags().IntVar(&cfg.BatchSize, "batch-size", cfg.BatchSize, "records per request")
	root.Flags().DurationVar(&cfg.FlushInterval, "flush-interval", cfg.FlushInterval, "maximum time a record waits before sending")
	root.Flags().IntVar(&cfg.MaxRetries, "max-retries", cfg.MaxRetries, "attempts per batch, including the first")
	root.Flags().DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "HTTP timeout per attempt")
	root.Flags().IntVar(&cfg.QueueCapacity, "queue-capacity", cfg.QueueCapacity, "maximum queued records")
	root.Flags().StringVar(&cfg.OverflowPolicy, "overflow-policy", cfg.OverflowPolicy, "drop_newest or drop_oldest")
	root.Flags().DurationVar(&cfg.ShutdownTimeout, "shutdown-timeout", cfg.ShutdownTimeout, "maximum drain time on exit")
	root.Flags().BoolVar(&cfg.Compress, "compress", cfg.Compress, "gzip request bodies")

	root.Flags().DurationVar(&cfg.BackoffBase, "backoff-base", cfg.BackoffBase, "first retry delay")
	root.Flags().Float64Var(&cfg.BackoffMultiplier, "backoff-multiplier", cfg.BackoffMultiplier, "retry delay growth factor")
	root.Flags().DurationVar(&cfg.BackoffMax, "backoff-max", cfg.BackoffMax, "maximum retry delay")

	root.Flags().BoolVarP(&cfg.Follow, "follow", "f", cfg.Follow, "keep reading appended data")
	root.Flags().BoolVar(&cfg.JSON, "json", cfg.JSON, "parse each line as a JSON object")
	root.Flags().StringVar(&cfg.StateDir, "state-dir", cfg.StateDir, "directory for read offsets (positions.json)")
	root.Flags().StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "serve Prometheus metrics on this address")
	root.Flags().BoolVarP(&cfg.Verbose, "verbose", "v", cfg.Verbose, "debug logging")

	if err := root.Execute(); err != nil {
		log.Error().Err(err).Msg("ddship")
		os.Exit(1)
	}
}

func run(parent context.Context, cfg cliconfig.Config, args []string, log zerolog.Logger) error {
	if parent == nil {
		parent = context.Background()
	}
	policy, _ := ddlog.ParseOverflowPolicy(cfg.OverflowPolicy)

	libCfg := ddlog.Config{
		APIKey:            cfg.APIKey,
		Site:              cfg.Site,
		EndpointURL:       cfg.EndpointURL,
		Service:           cfg.Service,
		Environment:       cfg.Environment,
		Version:           cfg.Version,
		Source:            cfg.Source,
		Hostname:          cfg.Hostname,
		Tags:              cfg.Tags,
		LoggerName:        cfg.LoggerName,
		BatchSize:         cfg.BatchSize,
		FlushInterval:     cfg.FlushInterval,
		MaxRetries:        cfg.MaxRetries,
		Timeout:           cfg.Timeout,
		QueueCapacity:     cfg.QueueCapacity,
		OverflowPolicy:    policy,
		ShutdownTimeout:   cfg.ShutdownTimeout,
		BackoffBase:       cfg.BackoffBase,
		BackoffMultiplier: cfg.BackoffMultiplier,
		BackoffMax:        cfg.BackoffMax,
		Compress:          cfg.Compress,
	}

	adapter := logAdapter.NewZerologAdapterWithLogger(log)
	opts := []ddlog.Option{
		ddlog.WithLogger(adapter),
		ddlog.WithDiagnostics(log),
	}

	if cfg.MetricsAddr != "" {
		opts = append(opts, ddlog.WithMetrics(prometheus.DefaultRegisterer))
		srv := serveMetrics(cfg.MetricsAddr, log)
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(ctx)
		}()
	}

	h, err := ddlog.New(libCfg, opts...)
	if err != nil {
		return fmt.Errorf("create handler: %w", err)
	}

	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	parser := tail.NewParser(cfg.JSON, domain.ParseLevel(cfg.Level), cfg.LoggerName)
	emit := func(rec domain.LogRecord) bool {
		return h.Enqueue(h.Prepare(rec))
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- ship(ctx, cfg, args, parser, emit, adapter)
	}()

	var runErr error
	select {
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("received signal, stopping...")
		cancel()
		// Files stop at the next event; a blocked stdin read is left behind
		if len(args) > 0 {
			runErr = <-errCh
		}
	case runErr = <-errCh:
	}

	if !h.Close() {
		log.Warn().Msg("some records were not delivered before exit")
	}
	return runErr
}

// ship reads stdin when no files are given, otherwise the files.
func ship(ctx context.Context, cfg cliconfig.Config, paths []string, parser *tail.Parser, emit tail.Emit, logger ports.Logger) error {
	if len(paths) == 0 {
		return tail.ReadLines(ctx, os.Stdin, parser, emit)
	}

	var positions ports.PositionRepository
	if cfg.StateDir != "" {
		positions = fs.NewPositionFileRepository(cfg.StateDir)
	}

	f := tail.NewFollower(tail.Config{
		Paths:     paths,
		Follow:    cfg.Follow,
		Positions: positions,
		Logger:    logger,
	}, parser, emit)

	err := f.Run(ctx)
	emitted, dropped := f.Stats()
	logger.Info("input finished",
		ports.Int64("emitted", emitted),
		ports.Int64("dropped", dropped),
	)
	return err
}

func serveMetrics(addr string, log zerolog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Str("addr", addr).Msg("metrics server stopped")
		}
	}()
	log.Info().Str("addr", addr).Msg("serving metrics")
	return srv
}
