// Package analytics builds the periodic network-quality report: best and
// worst performers, per-building rollups, peak-hour usage, and congestion
// levels. It works on already-scored access points and never touches
// storage itself.
package analytics

import (
	"fmt"
	"io"
	"sort"

	"github.com/shopspring/decimal"

	"wifi-monitor/model"
)

// Congestion level bin edges, in connected users.
const (
	lowUsersMax    = 5
	mediumUsersMax = 15
	highUsersMax   = 30
)

// BuildingStats summarizes the latest readings of one building.
type BuildingStats struct {
	Building    string  `json:"building"`
	Count       int     `json:"count"`
	AvgQuality  float64 `json:"avg_quality"`
	AvgDownload float64 `json:"avg_download"`
	AvgUpload   float64 `json:"avg_upload"`
	AvgLatency  float64 `json:"avg_latency"`
}

// HourStats summarizes one hour of day across the history window.
type HourStats struct {
	Hour        int     `json:"hour"`
	Samples     int     `json:"samples"`
	AvgQuality  float64 `json:"avg_quality"`
	AvgUsers    float64 `json:"avg_users"`
	AvgDownload float64 `json:"avg_download"`
}

// OverallStats summarizes the whole network from the latest readings.
type OverallStats struct {
	AvgQuality  float64 `json:"avg_quality_score"`
	AvgDownload float64 `json:"avg_download_speed"`
	AvgUpload   float64 `json:"avg_upload_speed"`
	AvgLatency  float64 `json:"avg_latency"`
}

// Report is the full analysis output.
type Report struct {
	TotalRecords     int                       `json:"total_records"`
	TopPerformers    []model.ScoredAccessPoint `json:"top_performers"`
	WorstPerformers  []model.ScoredAccessPoint `json:"worst_performers"`
	Buildings        []BuildingStats           `json:"building_analysis"`
	PeakHours        []HourStats               `json:"peak_hours"`
	CongestionLevels map[string]int            `json:"congestion_analysis"`
	Overall          OverallStats              `json:"overall_stats"`
}

// Build assembles a report. latest holds the current scored reading per AP;
// history holds scored samples over the analysis window (SampledAt set) and
// feeds the peak-hour analysis. topN bounds the performer lists.
func Build(latest []model.ScoredAccessPoint, history []model.ScoredAccessPoint, topN int) *Report {
	if topN <= 0 {
		topN = 5
	}
	report := &Report{
		TotalRecords:     len(latest) + len(history),
		CongestionLevels: map[string]int{},
	}
	if len(latest) == 0 {
		return report
	}

	report.TopPerformers, report.WorstPerformers = performers(latest, topN)
	report.Buildings = buildingStats(latest)
	report.PeakHours = peakHours(history)
	report.CongestionLevels = congestionLevels(latest)
	report.Overall = overallStats(latest)
	return report
}

func performers(latest []model.ScoredAccessPoint, n int) (top, worst []model.ScoredAccessPoint) {
	ranked := make([]model.ScoredAccessPoint, len(latest))
	copy(ranked, latest)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].QualityScore != ranked[j].QualityScore {
			return ranked[i].QualityScore > ranked[j].QualityScore
		}
		return ranked[i].ID < ranked[j].ID
	})

	if len(ranked) < n {
		n = len(ranked)
	}
	top = append(top, ranked[:n]...)
	worst = append(worst, ranked[len(ranked)-n:]...)
	// Worst list reads worst-first.
	for i, j := 0, len(worst)-1; i < j; i, j = i+1, j-1 {
		worst[i], worst[j] = worst[j], worst[i]
	}
	return top, worst
}

func buildingStats(latest []model.ScoredAccessPoint) []BuildingStats {
	type acc struct {
		count                               int
		quality, download, upload, latency float64
	}
	byBuilding := map[string]*acc{}
	for _, ap := range latest {
		building := ap.DisplayBuilding()
		a, ok := byBuilding[building]
		if !ok {
			a = &acc{}
			byBuilding[building] = a
		}
		a.count++
		a.quality += ap.QualityScore
		a.download += ap.DownloadSpeed
		a.upload += ap.UploadSpeed
		a.latency += ap.Latency
	}

	stats := make([]BuildingStats, 0, len(byBuilding))
	for building, a := range byBuilding {
		n := float64(a.count)
		stats = append(stats, BuildingStats{
			Building:    building,
			Count:       a.count,
			AvgQuality:  roundTwo(a.quality / n),
			AvgDownload: roundTwo(a.download / n),
			AvgUpload:   roundTwo(a.upload / n),
			AvgLatency:  roundTwo(a.latency / n),
		})
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].AvgQuality > stats[j].AvgQuality })
	return stats
}

func peakHours(history []model.ScoredAccessPoint) []HourStats {
	type acc struct {
		count                    int
		quality, users, download float64
	}
	byHour := map[int]*acc{}
	for _, ap := range history {
		if ap.SampledAt.IsZero() {
			continue
		}
		hour := ap.SampledAt.Hour()
		a, ok := byHour[hour]
		if !ok {
			a = &acc{}
			byHour[hour] = a
		}
		a.count++
		a.quality += ap.QualityScore
		a.users += float64(ap.ConnectedUsers)
		a.download += ap.DownloadSpeed
	}

	stats := make([]HourStats, 0, len(byHour))
	for hour, a := range byHour {
		n := float64(a.count)
		stats = append(stats, HourStats{
			Hour:        hour,
			Samples:     a.count,
			AvgQuality:  roundTwo(a.quality / n),
			AvgUsers:    roundTwo(a.users / n),
			AvgDownload: roundTwo(a.download / n),
		})
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].Hour < stats[j].Hour })
	return stats
}

func congestionLevels(latest []model.ScoredAccessPoint) map[string]int {
	levels := map[string]int{}
	for _, ap := range latest {
		switch users := ap.ConnectedUsers; {
		case users <= lowUsersMax:
			levels["Low"]++
		case users <= mediumUsersMax:
			levels["Medium"]++
		case users <= highUsersMax:
			levels["High"]++
		default:
			levels["Severe"]++
		}
	}
	return levels
}

func overallStats(latest []model.ScoredAccessPoint) OverallStats {
	var quality, download, upload, latency float64
	for _, ap := range latest {
		quality += ap.QualityScore
		download += ap.DownloadSpeed
		upload += ap.UploadSpeed
		latency += ap.Latency
	}
	n := float64(len(latest))
	return OverallStats{
		AvgQuality:  roundTwo(quality / n),
		AvgDownload: roundTwo(download / n),
		AvgUpload:   roundTwo(upload / n),
		AvgLatency:  roundTwo(latency / n),
	}
}

// Render writes the report as console text, fixed to two decimals.
func (r *Report) Render(w io.Writer) {
	fmt.Fprintf(w, "WiFi Quality Analysis Report\n")
	fmt.Fprintf(w, "Total records analyzed: %d\n\n", r.TotalRecords)

	fmt.Fprintf(w, "TOP %d PERFORMING ACCESS POINTS:\n", len(r.TopPerformers))
	for _, ap := range r.TopPerformers {
		fmt.Fprintf(w, "  %-24s score %s  %s down %s Mbps  users %d\n",
			ap.Name, fixed(ap.QualityScore), ap.Status, fixed(ap.DownloadSpeed), ap.ConnectedUsers)
	}

	fmt.Fprintf(w, "\nBOTTOM %d PERFORMING ACCESS POINTS:\n", len(r.WorstPerformers))
	for _, ap := range r.WorstPerformers {
		fmt.Fprintf(w, "  %-24s score %s  %s down %s Mbps  users %d\n",
			ap.Name, fixed(ap.QualityScore), ap.Status, fixed(ap.DownloadSpeed), ap.ConnectedUsers)
	}

	fmt.Fprintf(w, "\nBUILDING PERFORMANCE:\n")
	for _, b := range r.Buildings {
		fmt.Fprintf(w, "  %-24s %d APs  avg quality %s  avg down %s Mbps\n",
			b.Building, b.Count, fixed(b.AvgQuality), fixed(b.AvgDownload))
	}

	if len(r.PeakHours) > 0 {
		fmt.Fprintf(w, "\nPEAK USAGE HOURS:\n")
		for _, h := range r.PeakHours {
			fmt.Fprintf(w, "  %02d:00  avg quality %s  avg users %s\n",
				h.Hour, fixed(h.AvgQuality), fixed(h.AvgUsers))
		}
	}

	fmt.Fprintf(w, "\nCONGESTION LEVELS:\n")
	for _, level := range []string{"Low", "Medium", "High", "Severe"} {
		if count, ok := r.CongestionLevels[level]; ok {
			fmt.Fprintf(w, "  %-8s %d access points\n", level, count)
		}
	}

	fmt.Fprintf(w, "\nOVERALL NETWORK STATISTICS:\n")
	fmt.Fprintf(w, "  Average quality score:  %s/100\n", fixed(r.Overall.AvgQuality))
	fmt.Fprintf(w, "  Average download speed: %s Mbps\n", fixed(r.Overall.AvgDownload))
	fmt.Fprintf(w, "  Average upload speed:   %s Mbps\n", fixed(r.Overall.AvgUpload))
	fmt.Fprintf(w, "  Average latency:        %s ms\n", fixed(r.Overall.AvgLatency))
}

func roundTwo(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return f
}

func fixed(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}
