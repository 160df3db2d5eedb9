// Package scoring converts raw access-point metrics into a bounded quality
// score and a status tier. The classifier is a pure function of its input
// and configuration: no I/O, no shared state, safe for concurrent use.
package scoring

import (
	"math"

	"wifi-monitor/model"
	"wifi-monitor/pkg/apierrors"
)

// Config holds the weights and reference ceilings of the composite score.
// Operators recalibrate by passing a different Config; nothing is read from
// ambient process state.
type Config struct {
	DownloadWeight   float64 `json:"download_weight"`
	UploadWeight     float64 `json:"upload_weight"`
	LatencyWeight    float64 `json:"latency_weight"`
	CongestionWeight float64 `json:"congestion_weight"`

	// Reference ceilings for normalization. A download at the ceiling (or
	// above) scores 100; latency/users at their ceiling score 0.
	DownloadCeilingMbps  float64 `json:"download_ceiling_mbps"`
	UploadCeilingMbps    float64 `json:"upload_ceiling_mbps"`
	LatencyCeilingMs     float64 `json:"latency_ceiling_ms"`
	CapacityCeilingUsers float64 `json:"capacity_ceiling_users"`
}

// DefaultConfig returns the standard campus calibration.
func DefaultConfig() Config {
	return Config{
		DownloadWeight:       0.40,
		UploadWeight:         0.20,
		LatencyWeight:        0.20,
		CongestionWeight:     0.20,
		DownloadCeilingMbps:  100,
		UploadCeilingMbps:    50,
		LatencyCeilingMs:     150,
		CapacityCeilingUsers: 50,
	}
}

// Validate rejects configurations that would make normalization divide by
// zero or produce unbounded scores. Called once at setup, never per request.
func (c Config) Validate() error {
	if c.DownloadCeilingMbps <= 0 {
		return apierrors.Configf("download ceiling must be positive, got %v", c.DownloadCeilingMbps)
	}
	if c.UploadCeilingMbps <= 0 {
		return apierrors.Configf("upload ceiling must be positive, got %v", c.UploadCeilingMbps)
	}
	if c.LatencyCeilingMs <= 0 {
		return apierrors.Configf("latency ceiling must be positive, got %v", c.LatencyCeilingMs)
	}
	if c.CapacityCeilingUsers <= 0 {
		return apierrors.Configf("capacity ceiling must be positive, got %v", c.CapacityCeilingUsers)
	}
	for _, w := range []float64{c.DownloadWeight, c.UploadWeight, c.LatencyWeight, c.CongestionWeight} {
		if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
			return apierrors.Configf("weights must be finite and non-negative, got %v", w)
		}
	}
	if c.DownloadWeight+c.UploadWeight+c.LatencyWeight+c.CongestionWeight == 0 {
		return apierrors.Configf("at least one weight must be positive")
	}
	return nil
}

// Classifier maps raw metrics to a quality score and status tier.
type Classifier struct {
	cfg Config
}

// NewClassifier validates the configuration and returns a classifier.
func NewClassifier(cfg Config) (*Classifier, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Classifier{cfg: cfg}, nil
}

// Score computes the weighted composite quality score for one snapshot.
// Missing metrics are zero; negative and non-finite values are clamped to
// zero before normalization, so any input produces a valid score.
func (c *Classifier) Score(snap model.AccessPointSnapshot) model.ScoredAccessPoint {
	download := sanitize(snap.DownloadSpeed)
	upload := sanitize(snap.UploadSpeed)
	latency := sanitize(snap.Latency)
	users := sanitize(float64(snap.ConnectedUsers))

	normDownload := clamp100(download / c.cfg.DownloadCeilingMbps * 100)
	normUpload := clamp100(upload / c.cfg.UploadCeilingMbps * 100)
	// Inverse: 0 ms scores 100, the ceiling scores 0.
	normLatency := clamp100((1 - latency/c.cfg.LatencyCeilingMs) * 100)
	// Inverse: an empty AP scores 100, one at capacity scores 0.
	normUsers := clamp100((1 - users/c.cfg.CapacityCeilingUsers) * 100)

	score := c.cfg.DownloadWeight*normDownload +
		c.cfg.UploadWeight*normUpload +
		c.cfg.LatencyWeight*normLatency +
		c.cfg.CongestionWeight*normUsers
	score = clamp100(math.Round(score))

	return model.ScoredAccessPoint{
		AccessPointSnapshot: snap,
		QualityScore:        score,
		Status:              StatusForScore(score),
	}
}

// ScoreAll scores a batch of snapshots, preserving input order.
func (c *Classifier) ScoreAll(snaps []model.AccessPointSnapshot) []model.ScoredAccessPoint {
	scored := make([]model.ScoredAccessPoint, len(snaps))
	for i, snap := range snaps {
		scored[i] = c.Score(snap)
	}
	return scored
}

// StatusForScore maps a quality score to its tier. Bands are boundary
// inclusive on the lower edge: 80 is excellent, 60 is good, 40 is medium.
func StatusForScore(score float64) model.Status {
	switch {
	case score >= 80:
		return model.StatusExcellent
	case score >= 60:
		return model.StatusGood
	case score >= 40:
		return model.StatusMedium
	default:
		return model.StatusPoor
	}
}

func sanitize(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}

func clamp100(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
