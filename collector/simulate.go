package collector

import (
	"context"
	"math/rand"
	"sync"

	"wifi-monitor/model"
)

// Placement is a surveyed AP location fed to the collector.
type Placement struct {
	Name      string
	Building  string
	Floor     int
	Room      string
	Latitude  *float64
	Longitude *float64
}

func placed(name, building string, floor int, room string, lat, lng float64) Placement {
	return Placement{
		Name:     name,
		Building: building,
		Floor:    floor,
		Room:     room,
		Latitude: &lat, Longitude: &lng,
	}
}

// CampusPlacements returns the surveyed campus AP list used in simulation
// mode.
func CampusPlacements() []Placement {
	return []Placement{
		placed("CENTRAL_BLOCK_01", "Central Block", 1, "Main Lobby", 40.7125, -74.0070),
		placed("CENTRAL_BLOCK_02", "Central Block", 2, "Meeting Room", 40.7126, -74.0071),
		placed("ADMIN_BLOCK_01", "Administration Block", 1, "Reception", 40.7115, -74.0060),
		placed("FOOD_STREET_01", "Food Street", 1, "Main Area", 40.7140, -74.0090),
		placed("FOOD_STREET_02", "Food Street", 1, "North Side", 40.7141, -74.0089),
		placed("ROCK_PLAZA_01", "Rock Plaza", 1, "Main Plaza", 40.7150, -74.0075),
		placed("HOSTEL_MH1_01", "Hostel MH1", 1, "Common Area", 40.7090, -74.0080),
		placed("HOSTEL_MH2_01", "Hostel MH2", 1, "Common Area", 40.7095, -74.0080),
		placed("LH1_01", "Ladies Hostel 1", 1, "Common Area", 40.7130, -74.0060),
		placed("LIBRARY_AP_01", "Library", 1, "Main Hall", 40.7120, -74.0080),
		placed("LIBRARY_AP_02", "Library", 2, "Study Room", 40.7122, -74.0082),
		placed("ENGINEERING_AP_01", "Engineering", 1, "Lab A", 40.7130, -74.0070),
		placed("CAFETERIA_AP_01", "Cafeteria", 1, "Main Area", 40.7140, -74.0090),
	}
}

// SyntheticProbe generates plausible readings for demo and test runs. Each
// AP keeps a stable baseline so consecutive cycles drift rather than jump.
type SyntheticProbe struct {
	mu        sync.Mutex
	rng       *rand.Rand
	baselines map[string]model.Metrics
}

// NewSyntheticProbe creates a probe seeded for reproducibility.
func NewSyntheticProbe(seed int64) *SyntheticProbe {
	return &SyntheticProbe{
		rng:       rand.New(rand.NewSource(seed)),
		baselines: make(map[string]model.Metrics),
	}
}

// Measure returns the AP's baseline with a small random walk applied.
func (p *SyntheticProbe) Measure(_ context.Context, ap Placement) (model.Metrics, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	base, ok := p.baselines[ap.Name]
	if !ok {
		base = model.Metrics{
			DownloadSpeed:  20 + p.rng.Float64()*80,  // 20..100 Mbps
			UploadSpeed:    10 + p.rng.Float64()*40,  // 10..50 Mbps
			Latency:        10 + p.rng.Float64()*90,  // 10..100 ms
			PacketLoss:     p.rng.Float64() * 2,      // 0..2 %
			ConnectedUsers: p.rng.Intn(45),           // 0..44
			SignalStrength: -30 - p.rng.Float64()*60, // -30..-90 dBm
			BandwidthUsage: 20 + p.rng.Float64()*60,  // 20..80 %
		}
	}

	reading := model.Metrics{
		DownloadSpeed:  drift(p.rng, base.DownloadSpeed, 5, 0, 150),
		UploadSpeed:    drift(p.rng, base.UploadSpeed, 3, 0, 80),
		Latency:        drift(p.rng, base.Latency, 8, 1, 300),
		PacketLoss:     drift(p.rng, base.PacketLoss, 0.5, 0, 10),
		ConnectedUsers: int(drift(p.rng, float64(base.ConnectedUsers), 4, 0, 60)),
		SignalStrength: drift(p.rng, base.SignalStrength, 3, -95, -25),
		BandwidthUsage: drift(p.rng, base.BandwidthUsage, 5, 0, 100),
	}
	p.baselines[ap.Name] = reading
	return reading, nil
}

func drift(rng *rand.Rand, v, step, min, max float64) float64 {
	v += (rng.Float64()*2 - 1) * step
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
