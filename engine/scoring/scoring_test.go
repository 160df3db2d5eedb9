package scoring

import (
	"math"
	"testing"

	"wifi-monitor/model"
)

func mustClassifier(t *testing.T) *Classifier {
	t.Helper()
	c, err := NewClassifier(DefaultConfig())
	if err != nil {
		t.Fatalf("NewClassifier: %v", err)
	}
	return c
}

func snapWith(m model.Metrics) model.AccessPointSnapshot {
	return model.AccessPointSnapshot{
		AccessPointInfo: model.AccessPointInfo{ID: "ap-1", Name: "LIBRARY_AP_01"},
		Metrics:         m,
	}
}

func TestScoreBoundsHoldForExtremeInputs(t *testing.T) {
	c := mustClassifier(t)

	inputs := []model.Metrics{
		{},
		{DownloadSpeed: 10000, UploadSpeed: 10000, Latency: 0, ConnectedUsers: 0},
		{DownloadSpeed: -50, UploadSpeed: -10, Latency: -5, ConnectedUsers: -3},
		{DownloadSpeed: math.NaN(), UploadSpeed: math.Inf(1), Latency: math.Inf(-1)},
		{DownloadSpeed: 0.001, Latency: 99999, ConnectedUsers: 99999},
	}
	for i, m := range inputs {
		got := c.Score(snapWith(m))
		if got.QualityScore < 0 || got.QualityScore > 100 {
			t.Errorf("input %d: score %v outside [0,100]", i, got.QualityScore)
		}
		if got.QualityScore != math.Round(got.QualityScore) {
			t.Errorf("input %d: score %v not integral", i, got.QualityScore)
		}
	}
}

func TestScoreWeightedComposite(t *testing.T) {
	c := mustClassifier(t)

	// All components at their best: 100 Mbps down, 50 Mbps up, 0 ms, 0 users.
	best := c.Score(snapWith(model.Metrics{DownloadSpeed: 100, UploadSpeed: 50}))
	if best.QualityScore != 100 {
		t.Errorf("best-case score = %v, want 100", best.QualityScore)
	}
	if best.Status != model.StatusExcellent {
		t.Errorf("best-case status = %q, want excellent", best.Status)
	}

	// Half of every ceiling: 0.4*50 + 0.2*50 + 0.2*50 + 0.2*50 = 50.
	mid := c.Score(snapWith(model.Metrics{
		DownloadSpeed:  50,
		UploadSpeed:    25,
		Latency:        75,
		ConnectedUsers: 25,
	}))
	if mid.QualityScore != 50 {
		t.Errorf("mid-case score = %v, want 50", mid.QualityScore)
	}
	if mid.Status != model.StatusMedium {
		t.Errorf("mid-case status = %q, want medium", mid.Status)
	}

	// Links faster than the ceiling clamp at 100 points per component.
	fast := c.Score(snapWith(model.Metrics{DownloadSpeed: 400, UploadSpeed: 200}))
	if fast.QualityScore != best.QualityScore {
		t.Errorf("over-ceiling score = %v, want %v", fast.QualityScore, best.QualityScore)
	}
}

func TestStatusBands(t *testing.T) {
	cases := []struct {
		score float64
		want  model.Status
	}{
		{100, model.StatusExcellent},
		{80, model.StatusExcellent},
		{79, model.StatusGood},
		{60, model.StatusGood},
		{59, model.StatusMedium},
		{40, model.StatusMedium},
		{39, model.StatusPoor},
		{0, model.StatusPoor},
	}
	for _, tc := range cases {
		if got := StatusForScore(tc.score); got != tc.want {
			t.Errorf("StatusForScore(%v) = %q, want %q", tc.score, got, tc.want)
		}
	}
}

func TestMissingMetricsEqualZeroMetrics(t *testing.T) {
	c := mustClassifier(t)

	missing := c.Score(snapWith(model.Metrics{}))
	explicit := c.Score(snapWith(model.Metrics{
		DownloadSpeed:  0,
		UploadSpeed:    0,
		Latency:        0,
		ConnectedUsers: 0,
		SignalStrength: 0,
	}))
	if missing.QualityScore != explicit.QualityScore {
		t.Errorf("missing metrics scored %v, explicit zeros scored %v",
			missing.QualityScore, explicit.QualityScore)
	}
	if missing.Status != explicit.Status {
		t.Errorf("missing metrics status %q, explicit zeros status %q",
			missing.Status, explicit.Status)
	}
}

func TestNegativeMetricsClampToZero(t *testing.T) {
	c := mustClassifier(t)

	neg := c.Score(snapWith(model.Metrics{
		DownloadSpeed:  -100,
		UploadSpeed:    -50,
		Latency:        -10,
		ConnectedUsers: -5,
	}))
	zero := c.Score(snapWith(model.Metrics{}))
	if neg.QualityScore != zero.QualityScore {
		t.Errorf("negative metrics scored %v, zeros scored %v", neg.QualityScore, zero.QualityScore)
	}
}

func TestScoreIdempotent(t *testing.T) {
	c := mustClassifier(t)

	snap := snapWith(model.Metrics{DownloadSpeed: 73.4, UploadSpeed: 21.9, Latency: 37, ConnectedUsers: 12})
	first := c.Score(snap)
	second := c.Score(snap)
	if first.QualityScore != second.QualityScore || first.Status != second.Status {
		t.Errorf("scoring is not idempotent: %v/%q vs %v/%q",
			first.QualityScore, first.Status, second.QualityScore, second.Status)
	}
}

func TestScoreAllPreservesOrder(t *testing.T) {
	c := mustClassifier(t)

	snaps := []model.AccessPointSnapshot{
		{AccessPointInfo: model.AccessPointInfo{ID: "b"}, Metrics: model.Metrics{DownloadSpeed: 10}},
		{AccessPointInfo: model.AccessPointInfo{ID: "a"}, Metrics: model.Metrics{DownloadSpeed: 90}},
	}
	scored := c.ScoreAll(snaps)
	if len(scored) != 2 || scored[0].ID != "b" || scored[1].ID != "a" {
		t.Fatalf("ScoreAll reordered input: %+v", scored)
	}
}

func TestRecalibratedCeilings(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DownloadCeilingMbps = 200
	c, err := NewClassifier(cfg)
	if err != nil {
		t.Fatalf("NewClassifier: %v", err)
	}

	// 100 Mbps against a 200 Mbps ceiling is only half the download points.
	got := c.Score(snapWith(model.Metrics{DownloadSpeed: 100, UploadSpeed: 50}))
	want := math.Round(0.4*50 + 0.2*100 + 0.2*100 + 0.2*100)
	if got.QualityScore != want {
		t.Errorf("score with 200 Mbps ceiling = %v, want %v", got.QualityScore, want)
	}
}

func TestConfigValidation(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero download ceiling", func(c *Config) { c.DownloadCeilingMbps = 0 }},
		{"negative upload ceiling", func(c *Config) { c.UploadCeilingMbps = -1 }},
		{"zero latency ceiling", func(c *Config) { c.LatencyCeilingMs = 0 }},
		{"zero capacity ceiling", func(c *Config) { c.CapacityCeilingUsers = 0 }},
		{"negative weight", func(c *Config) { c.DownloadWeight = -0.1 }},
		{"NaN weight", func(c *Config) { c.LatencyWeight = math.NaN() }},
		{"all-zero weights", func(c *Config) {
			c.DownloadWeight, c.UploadWeight, c.LatencyWeight, c.CongestionWeight = 0, 0, 0, 0
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			if _, err := NewClassifier(cfg); err == nil {
				t.Error("expected configuration error, got nil")
			}
		})
	}

	if err := DefaultConfig().Validate(); err != nil {
		t.Errorf("default config rejected: %v", err)
	}
}
