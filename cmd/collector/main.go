// Package main provides the standalone metrics collector, the env-driven
// companion to cmd/server. It cycles through the campus AP list and posts
// readings to the monitoring API until stopped.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"wifi-monitor/collector"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if os.Getenv("ENV") == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	serverURL := envStr("WIFIMON_SERVER_URL", "http://localhost:8080")
	interval := envDuration("WIFIMON_COLLECT_INTERVAL", 60*time.Second)

	synthetic := collector.NewSyntheticProbe(time.Now().UnixNano())
	var probe collector.Probe = synthetic
	if target := os.Getenv("WIFIMON_LATENCY_TARGET"); target != "" {
		probe = collector.NewLatencyProbe(target, synthetic)
	}

	runner := collector.NewRunner(
		collector.NewClient(serverURL),
		probe,
		collector.CampusPlacements(),
		interval,
		log.Logger,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info().
		Str("server", serverURL).
		Dur("interval", interval).
		Msg("Starting collector")

	if err := runner.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal().Err(err).Msg("Collector failed")
	}
	log.Info().Msg("Collector stopped")
}

func envStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	return def
}
