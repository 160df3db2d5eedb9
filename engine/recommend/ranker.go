// Package recommend ranks already-scored access points for a requester. It
// produces the top-K recommendation list (location-aware with a global
// fallback), dashboard aggregates, and congestion alerts. Like the scoring
// classifier it is a pure function of its inputs.
package recommend

import (
	"math"
	"sort"

	"github.com/shopspring/decimal"

	"wifi-monitor/model"
	"wifi-monitor/pkg/apierrors"
)

// EarthRadiusMeters is the mean spherical-Earth radius used by the
// haversine distance calculation.
const EarthRadiusMeters = 6371000.0

// Config holds the tunable parameters of the ranker.
type Config struct {
	// TopK is the number of recommendations returned.
	TopK int `json:"top_k"`
	// NearestPoolSize is the size of the proximity pool considered in
	// location-aware mode before re-ranking by quality. The pool keeps
	// recommendations reachable: a nearby good AP beats a distant great one.
	NearestPoolSize int `json:"nearest_pool_size"`
	// CongestionThreshold is the connected-user count above which an AP is
	// flagged congested, regardless of its quality score.
	CongestionThreshold int `json:"congestion_threshold"`
	// MaxAlerts is how many congested APs are enumerated before the rollup.
	MaxAlerts int `json:"max_alerts"`
	// MaxRadiusMeters optionally caps the search radius in location-aware
	// mode. Zero disables the cap.
	MaxRadiusMeters float64 `json:"max_radius_meters"`
}

// DefaultConfig returns the standard parameters.
func DefaultConfig() Config {
	return Config{
		TopK:                3,
		NearestPoolSize:     10,
		CongestionThreshold: 30,
		MaxAlerts:           3,
	}
}

// Validate rejects parameter sets the ranker cannot operate with.
func (c Config) Validate() error {
	if c.TopK <= 0 {
		return apierrors.Configf("top K must be positive, got %d", c.TopK)
	}
	if c.NearestPoolSize <= 0 {
		return apierrors.Configf("nearest pool size must be positive, got %d", c.NearestPoolSize)
	}
	if c.CongestionThreshold < 0 {
		return apierrors.Configf("congestion threshold must be non-negative, got %d", c.CongestionThreshold)
	}
	if c.MaxAlerts <= 0 {
		return apierrors.Configf("max alerts must be positive, got %d", c.MaxAlerts)
	}
	if c.MaxRadiusMeters < 0 || math.IsNaN(c.MaxRadiusMeters) {
		return apierrors.Configf("max radius must be non-negative, got %v", c.MaxRadiusMeters)
	}
	return nil
}

// Location is a requester coordinate pair.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Ranker produces recommendation results from scored access points.
type Ranker struct {
	cfg Config
}

// NewRanker validates the configuration and returns a ranker.
func NewRanker(cfg Config) (*Ranker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Ranker{cfg: cfg}, nil
}

// Recommend builds the full result for one evaluation cycle. A nil location
// selects global fallback mode. Empty input yields an empty ranked list and
// zero aggregates, never an error.
func (r *Ranker) Recommend(scored []model.ScoredAccessPoint, loc *Location) model.RecommendationResult {
	return r.RecommendK(scored, loc, r.cfg.TopK)
}

// RecommendK is Recommend with a per-call K override. Non-positive k falls
// back to the configured TopK.
func (r *Ranker) RecommendK(scored []model.ScoredAccessPoint, loc *Location, k int) model.RecommendationResult {
	if k <= 0 {
		k = r.cfg.TopK
	}
	result := model.RecommendationResult{
		Ranked:    []model.RankedAccessPoint{},
		Congested: []string{},
		Aggregate: r.aggregate(scored),
	}
	result.Congested, result.Alerts = r.congestion(scored)

	if loc != nil {
		if ranked := r.rankByProximity(scored, *loc, k); len(ranked) > 0 {
			result.Ranked = ranked
			return result
		}
		// Zero APs in range: fall through to the global ranking.
	}
	result.Ranked = r.rankGlobal(scored, k)
	return result
}

// rankByProximity implements the two-stage location-aware ranking: take the
// NearestPoolSize closest candidates, then the best K of that pool.
func (r *Ranker) rankByProximity(scored []model.ScoredAccessPoint, loc Location, k int) []model.RankedAccessPoint {
	pool := make([]model.RankedAccessPoint, 0, len(scored))
	for _, ap := range scored {
		if !ap.HasLocation() || ap.QualityScore <= 0 {
			continue
		}
		d := Haversine(loc.Latitude, loc.Longitude, *ap.Latitude, *ap.Longitude)
		if r.cfg.MaxRadiusMeters > 0 && d > r.cfg.MaxRadiusMeters {
			continue
		}
		d = math.Round(d*100) / 100
		dist := d
		pool = append(pool, model.RankedAccessPoint{ScoredAccessPoint: ap, DistanceMeters: &dist})
	}
	if len(pool) == 0 {
		return nil
	}

	// Stage 1: nearest pool, ties broken by id for determinism.
	sort.SliceStable(pool, func(i, j int) bool {
		if *pool[i].DistanceMeters != *pool[j].DistanceMeters {
			return *pool[i].DistanceMeters < *pool[j].DistanceMeters
		}
		return pool[i].ID < pool[j].ID
	})
	if len(pool) > r.cfg.NearestPoolSize {
		pool = pool[:r.cfg.NearestPoolSize]
	}

	// Stage 2: best quality within the pool, ties by distance then id.
	sort.SliceStable(pool, func(i, j int) bool {
		if pool[i].QualityScore != pool[j].QualityScore {
			return pool[i].QualityScore > pool[j].QualityScore
		}
		if *pool[i].DistanceMeters != *pool[j].DistanceMeters {
			return *pool[i].DistanceMeters < *pool[j].DistanceMeters
		}
		return pool[i].ID < pool[j].ID
	})
	if len(pool) > k {
		pool = pool[:k]
	}
	return pool
}

// rankGlobal is the fallback: best K by quality score across all active APs,
// with no distances attached.
func (r *Ranker) rankGlobal(scored []model.ScoredAccessPoint, k int) []model.RankedAccessPoint {
	candidates := make([]model.RankedAccessPoint, 0, len(scored))
	for _, ap := range scored {
		if ap.QualityScore <= 0 {
			continue
		}
		candidates = append(candidates, model.RankedAccessPoint{ScoredAccessPoint: ap})
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].QualityScore != candidates[j].QualityScore {
			return candidates[i].QualityScore > candidates[j].QualityScore
		}
		return candidates[i].ID < candidates[j].ID
	})
	if len(candidates) > k {
		candidates = candidates[:k]
	}
	return candidates
}

// aggregate computes dashboard statistics over every input AP.
func (r *Ranker) aggregate(scored []model.ScoredAccessPoint) model.Aggregate {
	agg := model.Aggregate{TotalCount: len(scored)}
	if len(scored) == 0 {
		return agg
	}
	var quality, download, upload, latency float64
	for _, ap := range scored {
		if ap.QualityScore > 0 {
			agg.ActiveCount++
		}
		quality += ap.QualityScore
		download += ap.DownloadSpeed
		upload += ap.UploadSpeed
		latency += ap.Latency
	}
	n := float64(len(scored))
	agg.AvgQuality = roundOne(quality / n)
	agg.AvgDownload = roundOne(download / n)
	agg.AvgUpload = roundOne(upload / n)
	agg.AvgLatency = roundOne(latency / n)
	return agg
}

// congestion flags overloaded APs in discovery order. The flag is
// independent of quality: a fast but packed AP still surfaces here.
func (r *Ranker) congestion(scored []model.ScoredAccessPoint) ([]string, model.AlertSummary) {
	congested := []string{}
	summary := model.AlertSummary{AllClear: true}
	for _, ap := range scored {
		if ap.ConnectedUsers <= r.cfg.CongestionThreshold {
			continue
		}
		congested = append(congested, ap.ID)
		summary.AllClear = false
		if len(summary.Alerts) < r.cfg.MaxAlerts {
			summary.Alerts = append(summary.Alerts, model.CongestionAlert{
				APID:           ap.ID,
				Name:           ap.Name,
				ConnectedUsers: ap.ConnectedUsers,
			})
		} else {
			summary.AdditionalCount++
		}
	}
	return congested, summary
}

// NearestWithin returns the closest active AP within radius meters of the
// requester, or nil. Used to detect the AP the requester is likely on.
func NearestWithin(scored []model.ScoredAccessPoint, loc Location, radius float64) *model.RankedAccessPoint {
	var best *model.RankedAccessPoint
	bestDist := math.Inf(1)
	for _, ap := range scored {
		if !ap.HasLocation() {
			continue
		}
		d := Haversine(loc.Latitude, loc.Longitude, *ap.Latitude, *ap.Longitude)
		if d > radius {
			continue
		}
		if best == nil || d < bestDist || (d == bestDist && ap.ID < best.ID) {
			dist := math.Round(d*100) / 100
			best = &model.RankedAccessPoint{ScoredAccessPoint: ap, DistanceMeters: &dist}
			bestDist = d
		}
	}
	return best
}

// Haversine computes the great-circle distance in meters between two
// latitude/longitude points on a spherical Earth.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	rlat1 := lat1 * math.Pi / 180
	rlat2 := lat2 * math.Pi / 180
	dlat := (lat2 - lat1) * math.Pi / 180
	dlon := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dlat/2)*math.Sin(dlat/2) +
		math.Cos(rlat1)*math.Cos(rlat2)*math.Sin(dlon/2)*math.Sin(dlon/2)
	c := 2 * math.Asin(math.Sqrt(a))
	return c * EarthRadiusMeters
}

func roundOne(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(1).Float64()
	return f
}
