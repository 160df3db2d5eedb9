// Package storage defines the persistence interfaces the API layer depends
// on, plus in-memory implementations used by tests and single-node demo
// deployments.
package storage

import (
	"context"
	"time"

	"wifi-monitor/model"
)

// RegistryStore persists access-point metadata.
type RegistryStore interface {
	// UpsertAccessPoint registers an AP by name, updating display metadata
	// and coordinates on conflict. Returns the AP id.
	UpsertAccessPoint(ctx context.Context, info model.AccessPointInfo) (string, error)

	// GetAccessPoint returns the AP with the given id, or nil when unknown.
	GetAccessPoint(ctx context.Context, id string) (*model.AccessPointInfo, error)

	// ListAccessPoints returns every registered AP ordered by name.
	ListAccessPoints(ctx context.Context) ([]model.AccessPointInfo, error)

	Ping(ctx context.Context) error
}

// TelemetryStore persists performance metric samples.
type TelemetryStore interface {
	// InsertSample appends one metrics reading.
	InsertSample(ctx context.Context, sample model.MetricSample) error

	// LatestSamples returns the most recent sample per AP id.
	LatestSamples(ctx context.Context) (map[string]model.MetricSample, error)

	// TrendWindow returns samples for one AP since the given time, oldest
	// first.
	TrendWindow(ctx context.Context, apID string, since time.Time) ([]model.MetricSample, error)

	Ping(ctx context.Context) error
}
