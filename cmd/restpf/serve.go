package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/guxiaodai/restpf/config"
	"github.com/guxiaodai/restpf/i18n"
	"github.com/guxiaodai/restpf/internal/logging"
	"github.com/guxiaodai/restpf/internal/telemetry"
	"github.com/guxiaodai/restpf/pipeline"
	"github.com/guxiaodai/restpf/resource"
	"github.com/guxiaodai/restpf/web"
)

var (
	serveFixtures string
	serveWatch    bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the configured resources over HTTP",
	Long: `Serve loads restpf.yaml (or --config), registers every configured
resource and serves it until interrupted.

With --fixtures, GET requests answer from a JSON file of records:

  {"article": {"1": {"attributes": {"title": "x"}}}}

Environment variables:
  RESTPF_SERVER_ADDR     - listen address (default: :8080)
  RESTPF_SERVER_LANGUAGE - issue message language (en, ja)
  RESTPF_LOG_LEVEL       - debug, info, warn, error
  RESTPF_METRICS_ENABLED - serve Prometheus metrics
  RESTPF_TRACING_EXPORTER - none or stdout

With --watch, logging.level and server.language are reloaded when the
config file changes or on SIGHUP.

Examples:
  restpf serve
  restpf serve --config /etc/restpf/restpf.yaml --fixtures data.json
  restpf serve --watch`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveFixtures, "fixtures", "", "JSON file with records answered by GET")
	serveCmd.Flags().BoolVar(&serveWatch, "watch", false, "reload logging and language settings on change")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	// The logger passes everything; the global level filters so reloads
	// can raise verbosity.
	log := logging.New("trace", cfg.Logging.Format, cmd.ErrOrStderr())
	applyReloadable(cfg)

	shutdownTracing, err := telemetry.Init(telemetry.Config{
		ServiceName: cfg.Tracing.ServiceName,
		Exporter:    cfg.Tracing.Exporter,
		Writer:      cmd.ErrOrStderr(),
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			log.Error().Err(err).Msg("tracing shutdown")
		}
	}()

	if serveWatch {
		h, err := config.NewHolder(cfgFile, log)
		if err != nil {
			return err
		}
		defer h.Stop()
		h.OnChange(applyReloadable)
		if err := h.WatchFile(); err != nil {
			return err
		}
		h.WatchSignals()
	}

	var fx fixtures
	if serveFixtures != "" {
		if fx, err = loadFixtures(serveFixtures); err != nil {
			return err
		}
	}

	handler, err := buildHandler(cfg, fx, log)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout.Std(),
		WriteTimeout: cfg.Server.WriteTimeout.Std(),
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Server.Addr).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// applyReloadable applies the settings that take effect without a restart.
func applyReloadable(cfg *config.Config) {
	zerolog.SetGlobalLevel(logging.ParseLevel(cfg.Logging.Level))
	i18n.SetLanguage(cfg.Server.Language)
}

// loadConfig reads the config file when it exists and falls back to
// defaults plus environment overrides otherwise.
func loadConfig() (*config.Config, error) {
	if _, err := os.Stat(cfgFile); err == nil {
		return config.Load(cfgFile)
	}
	return config.Default()
}

// buildHandler registers every configured resource on a new driver.
func buildHandler(cfg *config.Config, fx fixtures, log zerolog.Logger) (http.Handler, error) {
	popts := []pipeline.Option{
		pipeline.WithCallbackTimeout(cfg.Pipeline.CallbackTimeout.Std()),
		pipeline.WithMaxConcurrency(cfg.Pipeline.MaxConcurrency),
	}
	dopts := []web.Option{
		web.WithLogger(log),
		web.WithBasePath(cfg.Server.BasePath),
		web.WithMaxBodyBytes(cfg.Server.MaxBodyBytes),
	}
	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		m, err := pipeline.NewMetrics(reg, "")
		if err != nil {
			return nil, fmt.Errorf("metrics: %w", err)
		}
		popts = append(popts, pipeline.WithMetrics(m))
		dopts = append(dopts, web.WithMetrics(cfg.Metrics.Path, reg))
	}
	dopts = append(dopts, web.WithPipelineOptions(popts...))

	d, err := web.NewDriver(dopts...)
	if err != nil {
		return nil, err
	}
	for _, rc := range cfg.Resources {
		res, err := resource.LoadYAML(rc.Schema)
		if err != nil {
			return nil, err
		}
		if rc.Name != "" && rc.Name != res.Name {
			return nil, fmt.Errorf("resource %s: definition %s declares %q", rc.Name, rc.Schema, res.Name)
		}
		if records, ok := fx[res.Name]; ok {
			if err := serveRecords(res, records); err != nil {
				return nil, err
			}
		}
		if err := d.Register(res); err != nil {
			return nil, err
		}
	}
	return d.Handler(), nil
}
