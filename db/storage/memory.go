package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"wifi-monitor/model"
)

// MemoryRegistry is an in-memory RegistryStore. Safe for concurrent use.
type MemoryRegistry struct {
	mu     sync.RWMutex
	byID   map[string]model.AccessPointInfo
	byName map[string]string // ap_name -> id
}

// NewMemoryRegistry creates an empty in-memory registry.
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{
		byID:   make(map[string]model.AccessPointInfo),
		byName: make(map[string]string),
	}
}

func (m *MemoryRegistry) UpsertAccessPoint(_ context.Context, info model.AccessPointInfo) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id, exists := m.byName[info.Name]
	if !exists {
		id = uuid.NewString()
		info.CreatedAt = time.Now().UTC()
	} else {
		info.CreatedAt = m.byID[id].CreatedAt
	}
	info.ID = id
	m.byID[id] = info
	m.byName[info.Name] = id
	return id, nil
}

func (m *MemoryRegistry) GetAccessPoint(_ context.Context, id string) (*model.AccessPointInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	info, ok := m.byID[id]
	if !ok {
		return nil, nil
	}
	return &info, nil
}

func (m *MemoryRegistry) ListAccessPoints(_ context.Context) ([]model.AccessPointInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	infos := make([]model.AccessPointInfo, 0, len(m.byID))
	for _, info := range m.byID {
		infos = append(infos, info)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos, nil
}

func (m *MemoryRegistry) Ping(context.Context) error { return nil }

// MemoryTelemetry is an in-memory TelemetryStore. Samples are kept per AP in
// insertion order.
type MemoryTelemetry struct {
	mu      sync.RWMutex
	samples map[string][]model.MetricSample
}

// NewMemoryTelemetry creates an empty in-memory telemetry store.
func NewMemoryTelemetry() *MemoryTelemetry {
	return &MemoryTelemetry{samples: make(map[string][]model.MetricSample)}
}

func (m *MemoryTelemetry) InsertSample(_ context.Context, sample model.MetricSample) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if sample.ID == uuid.Nil {
		sample.ID = uuid.New()
	}
	if sample.Timestamp.IsZero() {
		sample.Timestamp = time.Now().UTC()
	}
	m.samples[sample.APID] = append(m.samples[sample.APID], sample)
	return nil
}

func (m *MemoryTelemetry) LatestSamples(context.Context) (map[string]model.MetricSample, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	latest := make(map[string]model.MetricSample, len(m.samples))
	for apID, rows := range m.samples {
		best := rows[0]
		for _, s := range rows[1:] {
			if s.Timestamp.After(best.Timestamp) {
				best = s
			}
		}
		latest[apID] = best
	}
	return latest, nil
}

func (m *MemoryTelemetry) TrendWindow(_ context.Context, apID string, since time.Time) ([]model.MetricSample, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var window []model.MetricSample
	for _, s := range m.samples[apID] {
		if !s.Timestamp.Before(since) {
			window = append(window, s)
		}
	}
	sort.Slice(window, func(i, j int) bool { return window[i].Timestamp.Before(window[j].Timestamp) })
	return window, nil
}

func (m *MemoryTelemetry) Ping(context.Context) error { return nil }
