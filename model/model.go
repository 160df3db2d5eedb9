// Package model defines the data types shared between the telemetry stores,
// the scoring and recommendation engines, and the HTTP API.
package model

import (
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Status is the coarse quality tier derived from a quality score.
type Status string

const (
	StatusExcellent Status = "excellent"
	StatusGood      Status = "good"
	StatusMedium    Status = "medium"
	StatusPoor      Status = "poor"
)

// AccessPointInfo is the registry record for an access point. Latitude and
// longitude are pointers: an AP without surveyed coordinates is still valid,
// it just cannot take part in distance-based recommendations.
type AccessPointInfo struct {
	ID        string     `json:"id"`
	Name      string     `json:"ap_name"`
	Building  string     `json:"building,omitempty"`
	Floor     int        `json:"floor,omitempty"`
	Room      string     `json:"room_number,omitempty"`
	Latitude  *float64   `json:"latitude,omitempty"`
	Longitude *float64   `json:"longitude,omitempty"`
	CreatedAt time.Time  `json:"created_at,omitempty"`
}

// HasLocation reports whether both coordinates are present.
func (a AccessPointInfo) HasLocation() bool {
	return a.Latitude != nil && a.Longitude != nil
}

// DisplayBuilding returns the building name or "N/A" when absent.
func (a AccessPointInfo) DisplayBuilding() string {
	if a.Building == "" {
		return "N/A"
	}
	return a.Building
}

// DisplayFloor returns the floor as text or "N/A" when unset.
func (a AccessPointInfo) DisplayFloor() string {
	if a.Floor == 0 {
		return "N/A"
	}
	return strconv.Itoa(a.Floor)
}

// Metrics is one set of raw performance readings. A zero value means the
// metric was not reported; scoring treats absent and zero identically.
type Metrics struct {
	DownloadSpeed  float64 `json:"download_speed"`  // Mbps
	UploadSpeed    float64 `json:"upload_speed"`    // Mbps
	Latency        float64 `json:"latency"`         // ms
	PacketLoss     float64 `json:"packet_loss"`     // %
	ConnectedUsers int     `json:"connected_users"`
	SignalStrength float64 `json:"signal_strength"` // dBm
	BandwidthUsage float64 `json:"bandwidth_usage"` // %
}

// MetricSample is a stored telemetry row: one Metrics reading for one AP.
type MetricSample struct {
	ID        uuid.UUID `json:"id"`
	APID      string    `json:"ap_id"`
	Metrics   Metrics   `json:"metrics"`
	Timestamp time.Time `json:"timestamp"`
}

// AccessPointSnapshot is the scoring input: registry metadata combined with
// the most recent metrics. Built fresh per request, never stored.
type AccessPointSnapshot struct {
	AccessPointInfo
	Metrics
	SampledAt time.Time `json:"timestamp,omitempty"`
}

// Snapshot joins a registry record with a metric sample. A nil sample yields
// a snapshot with all-zero metrics, which scores as a dead AP rather than
// failing.
func Snapshot(info AccessPointInfo, sample *MetricSample) AccessPointSnapshot {
	snap := AccessPointSnapshot{AccessPointInfo: info}
	if sample != nil {
		snap.Metrics = sample.Metrics
		snap.SampledAt = sample.Timestamp
	}
	return snap
}

// ScoredAccessPoint is a snapshot with its derived quality score and status.
type ScoredAccessPoint struct {
	AccessPointSnapshot
	QualityScore float64 `json:"quality_score"`
	Status       Status  `json:"status"`
}

// RankedAccessPoint is one recommendation entry. DistanceMeters is set only
// in location-aware mode.
type RankedAccessPoint struct {
	ScoredAccessPoint
	DistanceMeters *float64 `json:"distance,omitempty"`
}

// Aggregate holds dashboard statistics computed over every scored AP, not
// just the ranked subset. Averages are rounded to one decimal place.
type Aggregate struct {
	TotalCount  int     `json:"total_count"`
	ActiveCount int     `json:"active_count"`
	AvgQuality  float64 `json:"avg_quality"`
	AvgDownload float64 `json:"avg_download"`
	AvgUpload   float64 `json:"avg_upload"`
	AvgLatency  float64 `json:"avg_latency"`
}

// CongestionAlert identifies one overloaded AP.
type CongestionAlert struct {
	APID           string `json:"ap_id"`
	Name           string `json:"ap_name"`
	ConnectedUsers int    `json:"connected_users"`
}

// AlertSummary lists the first few congested APs with a rollup count for the
// rest. AllClear is true when nothing is congested.
type AlertSummary struct {
	AllClear        bool              `json:"all_clear"`
	Alerts          []CongestionAlert `json:"alerts,omitempty"`
	AdditionalCount int               `json:"additional_count,omitempty"`
}

// RecommendationResult is the full ranker output.
type RecommendationResult struct {
	Ranked    []RankedAccessPoint `json:"recommendations"`
	Congested []string            `json:"congested"`
	Alerts    AlertSummary        `json:"alerts"`
	Aggregate Aggregate           `json:"aggregate"`
}
