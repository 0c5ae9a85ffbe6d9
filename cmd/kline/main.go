package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"kline/internal/engine"
	"kline/internal/obs"
	"kline/internal/ops"
)

func main() {
	configPath := flag.String("config", "config/kline.yaml", "Path to YAML config")
	envFile := flag.String("env", ".env", "Env file loaded before the config is expanded")
	flag.Parse()

	loaded, err := ops.Load(*configPath, *envFile)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	runID := uuid.NewString()
	logger := obs.NewLogger(loaded.LogLevel, "run="+runID[:8])

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, loaded, runID, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Errorf("run failed: %+v", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, loaded ops.Loaded, runID string, logger obs.Logger) error {
	stopProfiler, err := obs.StartProfiler(loaded.Profiling, logger)
	if err != nil {
		return err
	}
	defer stopProfiler()

	scheduler, err := loaded.Scheduler()
	if err != nil {
		return err
	}

	tees, err := openTees(ctx, loaded, logger)
	if err != nil {
		return err
	}
	defer tees.close(logger)

	opt := loaded.EngineOptions(scheduler)
	opt.Metrics = obs.NewMetrics()
	opt.Sinks = tees.sinks
	eng, err := engine.New(opt, logger)
	if err != nil {
		return err
	}

	if loaded.MetricsAddr != "" {
		shutdown := serveMetrics(loaded.MetricsAddr, obs.NewCollector(eng.Metrics(), runID), logger)
		defer shutdown()
	}

	for _, spec := range loaded.Sources {
		src, err := buildSource(spec, loaded, tees, logger)
		if err != nil {
			return err
		}
		if err := eng.AddSource(src); err != nil {
			return err
		}
		logger.Infof("source %s registered: type=%s kind=%s policy=%s", spec.Name, spec.Type, src.Kind(), src.Policy())
	}

	strategies := buildStrategies(loaded.Strategies, logger)
	for _, s := range strategies.all {
		if err := eng.AddStrategy(s); err != nil {
			return err
		}
	}

	started := time.Now()
	runErr := eng.Start(ctx)

	for _, c := range strategies.collectors {
		for _, s := range c.Summaries() {
			logger.Infof("%s %s: bars=%d o=%s h=%s l=%s c=%s v=%d",
				c.Name(), s.Symbol, s.Bars, s.Open, s.High, s.Low, s.Close, s.Volume)
		}
	}
	stats := eng.Stats()
	logger.Infof("run finished in %s: published=%v dispatched=%v dropped=%d sink_errors=%d",
		time.Since(started).Round(time.Millisecond), stats.Published, stats.Dispatched, stats.QueueDrops, stats.SinkErrors)
	return runErr
}

func serveMetrics(addr string, collector prometheus.Collector, logger obs.Logger) func() {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collector)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		logger.Infof("metrics listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("metrics server: %+v", err)
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}
