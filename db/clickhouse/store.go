// Package clickhouse persists performance-metric samples in ClickHouse.
// Telemetry is append-only and read mostly as latest-per-AP or as a trend
// window, which maps well onto a MergeTree table with argMax reads.
package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/google/uuid"

	"wifi-monitor/db/storage"
	"wifi-monitor/model"
)

// Config holds ClickHouse connection configuration.
type Config struct {
	Host     string
	Port     int
	Database string
	Username string
	Password string
	Debug    bool
}

// DefaultConfig returns default development configuration.
func DefaultConfig() *Config {
	return &Config{
		Host:     "localhost",
		Port:     9000,
		Database: "wifimon",
		Username: "default",
		Password: "",
	}
}

// Store implements storage.TelemetryStore on ClickHouse.
type Store struct {
	conn clickhouse.Conn
	cfg  *Config
}

var _ storage.TelemetryStore = (*Store)(nil)

// NewStore connects to ClickHouse and returns a telemetry store.
func NewStore(cfg *Config) (*Store, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		Debug: cfg.Debug,
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}
	return &Store{conn: conn, cfg: cfg}, nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.conn.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

// EnsureSchema creates the metrics table if it does not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS performance_metrics (
			id              UUID,
			ap_id           String,
			download_speed  Float64,
			upload_speed    Float64,
			latency         Float64,
			packet_loss     Float64,
			connected_users Int32,
			signal_strength Float64,
			bandwidth_usage Float64,
			ts              DateTime64(3, 'UTC')
		)
		ENGINE = MergeTree
		PARTITION BY toYYYYMM(ts)
		ORDER BY (ap_id, ts)
		TTL toDateTime(ts) + INTERVAL 90 DAY
	`
	if err := s.conn.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create performance_metrics table: %w", err)
	}
	return nil
}

// InsertSample appends one metrics reading.
func (s *Store) InsertSample(ctx context.Context, sample model.MetricSample) error {
	if sample.ID == uuid.Nil {
		sample.ID = uuid.New()
	}
	if sample.Timestamp.IsZero() {
		sample.Timestamp = time.Now().UTC()
	}
	query := `
		INSERT INTO performance_metrics (
			id, ap_id, download_speed, upload_speed, latency, packet_loss,
			connected_users, signal_strength, bandwidth_usage, ts
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	err := s.conn.Exec(ctx, query,
		sample.ID,
		sample.APID,
		sample.Metrics.DownloadSpeed,
		sample.Metrics.UploadSpeed,
		sample.Metrics.Latency,
		sample.Metrics.PacketLoss,
		int32(sample.Metrics.ConnectedUsers),
		sample.Metrics.SignalStrength,
		sample.Metrics.BandwidthUsage,
		sample.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to insert metric sample: %w", err)
	}
	return nil
}

// InsertBatch appends many readings in one prepared batch.
func (s *Store) InsertBatch(ctx context.Context, samples []model.MetricSample) error {
	if len(samples) == 0 {
		return nil
	}
	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO performance_metrics (
			id, ap_id, download_speed, upload_speed, latency, packet_loss,
			connected_users, signal_strength, bandwidth_usage, ts
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare metrics batch: %w", err)
	}
	for _, sample := range samples {
		if sample.ID == uuid.Nil {
			sample.ID = uuid.New()
		}
		if sample.Timestamp.IsZero() {
			sample.Timestamp = time.Now().UTC()
		}
		err := batch.Append(
			sample.ID,
			sample.APID,
			sample.Metrics.DownloadSpeed,
			sample.Metrics.UploadSpeed,
			sample.Metrics.Latency,
			sample.Metrics.PacketLoss,
			int32(sample.Metrics.ConnectedUsers),
			sample.Metrics.SignalStrength,
			sample.Metrics.BandwidthUsage,
			sample.Timestamp,
		)
		if err != nil {
			return fmt.Errorf("failed to append to metrics batch: %w", err)
		}
	}
	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to send metrics batch: %w", err)
	}
	return nil
}

// LatestSamples returns the most recent sample per AP.
func (s *Store) LatestSamples(ctx context.Context) (map[string]model.MetricSample, error) {
	query := `
		SELECT
			ap_id,
			argMax(id, ts),
			argMax(download_speed, ts),
			argMax(upload_speed, ts),
			argMax(latency, ts),
			argMax(packet_loss, ts),
			argMax(connected_users, ts),
			argMax(signal_strength, ts),
			argMax(bandwidth_usage, ts),
			max(ts)
		FROM performance_metrics
		GROUP BY ap_id
	`
	rows, err := s.conn.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query latest samples: %w", err)
	}
	defer rows.Close()

	latest := make(map[string]model.MetricSample)
	for rows.Next() {
		var sample model.MetricSample
		var users int32
		err := rows.Scan(
			&sample.APID,
			&sample.ID,
			&sample.Metrics.DownloadSpeed,
			&sample.Metrics.UploadSpeed,
			&sample.Metrics.Latency,
			&sample.Metrics.PacketLoss,
			&users,
			&sample.Metrics.SignalStrength,
			&sample.Metrics.BandwidthUsage,
			&sample.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan latest sample: %w", err)
		}
		sample.Metrics.ConnectedUsers = int(users)
		latest[sample.APID] = sample
	}
	return latest, rows.Err()
}

// TrendWindow returns samples for one AP since the given time, oldest first.
func (s *Store) TrendWindow(ctx context.Context, apID string, since time.Time) ([]model.MetricSample, error) {
	query := `
		SELECT id, ap_id, download_speed, upload_speed, latency, packet_loss,
			   connected_users, signal_strength, bandwidth_usage, ts
		FROM performance_metrics
		WHERE ap_id = ? AND ts >= ?
		ORDER BY ts ASC
	`
	rows, err := s.conn.Query(ctx, query, apID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query trend window: %w", err)
	}
	defer rows.Close()

	var window []model.MetricSample
	for rows.Next() {
		var sample model.MetricSample
		var users int32
		err := rows.Scan(
			&sample.ID,
			&sample.APID,
			&sample.Metrics.DownloadSpeed,
			&sample.Metrics.UploadSpeed,
			&sample.Metrics.Latency,
			&sample.Metrics.PacketLoss,
			&users,
			&sample.Metrics.SignalStrength,
			&sample.Metrics.BandwidthUsage,
			&sample.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trend sample: %w", err)
		}
		sample.Metrics.ConnectedUsers = int(users)
		window = append(window, sample)
	}
	return window, rows.Err()
}
