// Command micronetd hosts the protocol engine as a Linux daemon: it
// loads a TOML configuration, opens one raw-socket MAC driver per
// configured controller, and drives the stack's cooperative main cycle
// on a rate-limited poll loop while exporting Prometheus metrics.
package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/embednet/micronet/stack"
)

func main() {
	configPath := flag.String("config", "/etc/micronetd/micronetd.toml", "path to the TOML configuration file")
	metricsAddr := flag.String("metrics-addr", ":9130", "address to serve Prometheus metrics on")
	flag.Parse()

	log := slog.New(slog.NewJSONHandler(os.Stderr, nil))

	if err := run(*configPath, *metricsAddr, log); err != nil {
		log.Error("micronetd exiting", "error", err)
		os.Exit(1)
	}
}

func run(configPath, metricsAddr string, log *slog.Logger) error {
	fc, err := loadFileConfig(configPath)
	if err != nil {
		return err
	}

	tel := newTelemetry(log)
	cfg, drivers, err := buildStackConfig(fc, tel.notify)
	if err != nil {
		return err
	}
	defer func() {
		for _, d := range drivers {
			d.Close()
		}
	}()

	arena := make([]byte, arenaSize(cfg))
	st, err := stack.New(cfg, arena)
	if err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: metricsAddr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("metrics server stopped", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("micronetd started", "controllers", st.ControllerCount(), "ports", st.PortCount())
	pollLoop(ctx, st, fc.PollHz, log)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// pollLoop drives Stack.RunCycle at a rate capped by pollHz. The rate
// limiter only throttles how often this loop wakes up; every cooldown
// and decay decision inside the engine is still timed off the injected
// monotonic clock, never off this loop's cadence.
func pollLoop(ctx context.Context, st *stack.Stack, pollHz float64, log *slog.Logger) {
	limiter := rate.NewLimiter(rate.Limit(pollHz), 1)
	for {
		if err := limiter.Wait(ctx); err != nil {
			log.Info("poll loop stopping", "reason", err)
			return
		}
		st.RunCycle()
	}
}
