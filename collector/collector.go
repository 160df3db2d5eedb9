// Package collector gathers access-point telemetry and submits it to the
// monitoring API. Readings come either from a synthetic campus simulation
// or from a live network probe; either way the collector owns all retry and
// timing concerns so the scoring core never has to.
package collector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"wifi-monitor/model"
)

// Submission is the POST /api/performance-metrics payload.
type Submission struct {
	Name      string   `json:"ap_name"`
	Building  string   `json:"building,omitempty"`
	Floor     int      `json:"floor,omitempty"`
	Room      string   `json:"room_number,omitempty"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
	model.Metrics
}

// Probe produces one metrics reading for an access point.
type Probe interface {
	Measure(ctx context.Context, ap Placement) (model.Metrics, error)
}

// Client submits readings to the monitoring API.
type Client struct {
	serverURL  string
	httpClient *http.Client
	maxRetries int
}

// NewClient creates a submission client for the given API base URL
// (e.g. "http://localhost:8080").
func NewClient(serverURL string) *Client {
	return &Client{
		serverURL:  serverURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		maxRetries: 3,
	}
}

// Submit posts one reading, retrying transient failures with backoff.
func (c *Client) Submit(ctx context.Context, sub Submission) error {
	body, err := json.Marshal(sub)
	if err != nil {
		return fmt.Errorf("failed to encode submission: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt) * time.Second):
			}
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost,
			c.serverURL+"/api/performance-metrics", bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("failed to build request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		resp.Body.Close()
		if resp.StatusCode == http.StatusCreated {
			return nil
		}
		lastErr = fmt.Errorf("server returned %s", resp.Status)
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			// Client errors won't improve on retry.
			break
		}
	}
	return fmt.Errorf("failed to submit metrics for %s: %w", sub.Name, lastErr)
}

// Runner cycles through a set of AP placements, measuring and submitting on
// an interval until the context is canceled.
type Runner struct {
	client     *Client
	probe      Probe
	placements []Placement
	interval   time.Duration
	log        zerolog.Logger
}

// NewRunner creates a collection loop over the given placements.
func NewRunner(client *Client, probe Probe, placements []Placement, interval time.Duration, log zerolog.Logger) *Runner {
	if interval <= 0 {
		interval = 60 * time.Second
	}
	return &Runner{
		client:     client,
		probe:      probe,
		placements: placements,
		interval:   interval,
		log:        log,
	}
}

// Run executes collection cycles until ctx is canceled.
func (r *Runner) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		r.collectOnce(ctx)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (r *Runner) collectOnce(ctx context.Context) {
	for _, ap := range r.placements {
		if ctx.Err() != nil {
			return
		}
		metrics, err := r.probe.Measure(ctx, ap)
		if err != nil {
			r.log.Warn().Err(err).Str("ap", ap.Name).Msg("Measurement failed")
			continue
		}
		sub := Submission{
			Name:      ap.Name,
			Building:  ap.Building,
			Floor:     ap.Floor,
			Room:      ap.Room,
			Latitude:  ap.Latitude,
			Longitude: ap.Longitude,
			Metrics:   metrics,
		}
		if err := r.client.Submit(ctx, sub); err != nil {
			r.log.Warn().Err(err).Str("ap", ap.Name).Msg("Submission failed")
			continue
		}
		r.log.Debug().
			Str("ap", ap.Name).
			Float64("download", metrics.DownloadSpeed).
			Float64("latency", metrics.Latency).
			Int("users", metrics.ConnectedUsers).
			Msg("Metrics submitted")
	}
}

// LatencyProbe measures real round-trip latency with a TCP connect to a
// reference host and fills the remaining metrics from a synthetic source.
// A full throughput test from inside the collector would itself load the
// network under measurement, so speeds stay synthetic here.
type LatencyProbe struct {
	Target    string // host:port, e.g. "8.8.8.8:53"
	Timeout   time.Duration
	Synthetic *SyntheticProbe
}

// NewLatencyProbe creates a probe against the given host:port.
func NewLatencyProbe(target string, synthetic *SyntheticProbe) *LatencyProbe {
	return &LatencyProbe{
		Target:    target,
		Timeout:   3 * time.Second,
		Synthetic: synthetic,
	}
}

// Measure dials the target and reports the connect time as latency.
func (p *LatencyProbe) Measure(ctx context.Context, ap Placement) (model.Metrics, error) {
	metrics, err := p.Synthetic.Measure(ctx, ap)
	if err != nil {
		return model.Metrics{}, err
	}

	dialer := net.Dialer{Timeout: p.Timeout}
	start := time.Now()
	conn, err := dialer.DialContext(ctx, "tcp", p.Target)
	if err != nil {
		return model.Metrics{}, fmt.Errorf("latency probe to %s failed: %w", p.Target, err)
	}
	conn.Close()
	metrics.Latency = float64(time.Since(start).Microseconds()) / 1000.0
	return metrics, nil
}
