package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"wifi-monitor/db/storage"
	"wifi-monitor/engine/recommend"
	"wifi-monitor/engine/scoring"
	"wifi-monitor/model"
)

func newTestServer(t *testing.T) (*Server, *storage.MemoryRegistry, *storage.MemoryTelemetry) {
	t.Helper()
	classifier, err := scoring.NewClassifier(scoring.DefaultConfig())
	if err != nil {
		t.Fatalf("NewClassifier: %v", err)
	}
	ranker, err := recommend.NewRanker(recommend.DefaultConfig())
	if err != nil {
		t.Fatalf("NewRanker: %v", err)
	}
	registry := storage.NewMemoryRegistry()
	telemetry := storage.NewMemoryTelemetry()
	srv := NewServer(registry, telemetry, classifier, ranker, nil, zerolog.Nop())
	return srv, registry, telemetry
}

func submitBody(name string, lat, lng float64, download float64, users int) []byte {
	payload := map[string]interface{}{
		"ap_name":         name,
		"building":        "Library",
		"floor":           1,
		"latitude":        lat,
		"longitude":       lng,
		"download_speed":  download,
		"upload_speed":    download / 2,
		"latency":         20.0,
		"connected_users": users,
	}
	b, _ := json.Marshal(payload)
	return b
}

func doJSON(t *testing.T, h http.Handler, method, path string, body []byte, out interface{}) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if out != nil && rec.Code < 300 {
		if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
			t.Fatalf("decode %s %s response: %v\n%s", method, path, err, rec.Body.String())
		}
	}
	return rec
}

func TestSubmitMetricsCreatesAPAndSample(t *testing.T) {
	srv, _, telemetry := newTestServer(t)
	router := srv.Router()

	var resp map[string]string
	rec := doJSON(t, router, http.MethodPost, "/api/performance-metrics",
		submitBody("LIBRARY_AP_01", 40.7120, -74.0080, 80, 5), &resp)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body.String())
	}
	apID := resp["ap_id"]
	if apID == "" {
		t.Fatal("response missing ap_id")
	}

	latest, err := telemetry.LatestSamples(context.Background())
	if err != nil {
		t.Fatalf("LatestSamples: %v", err)
	}
	sample, ok := latest[apID]
	if !ok {
		t.Fatalf("no sample stored for %s", apID)
	}
	if sample.Metrics.DownloadSpeed != 80 {
		t.Errorf("stored download = %v, want 80", sample.Metrics.DownloadSpeed)
	}
}

func TestSubmitMetricsUpsertsByName(t *testing.T) {
	srv, registry, _ := newTestServer(t)
	router := srv.Router()

	var first, second map[string]string
	doJSON(t, router, http.MethodPost, "/api/performance-metrics",
		submitBody("ENGINEERING_AP_01", 40.7130, -74.0070, 50, 10), &first)
	doJSON(t, router, http.MethodPost, "/api/performance-metrics",
		submitBody("ENGINEERING_AP_01", 40.7130, -74.0070, 60, 12), &second)

	if first["ap_id"] != second["ap_id"] {
		t.Errorf("resubmission created new AP: %s vs %s", first["ap_id"], second["ap_id"])
	}
	infos, _ := registry.ListAccessPoints(context.Background())
	if len(infos) != 1 {
		t.Errorf("registry holds %d APs, want 1", len(infos))
	}
}

func TestSubmitMetricsRejectsMissingName(t *testing.T) {
	srv, _, _ := newTestServer(t)
	rec := doJSON(t, srv.Router(), http.MethodPost, "/api/performance-metrics",
		[]byte(`{"download_speed": 10}`), nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestListAccessPointsReturnsScored(t *testing.T) {
	srv, _, _ := newTestServer(t)
	router := srv.Router()
	doJSON(t, router, http.MethodPost, "/api/performance-metrics",
		submitBody("LIBRARY_AP_01", 40.7120, -74.0080, 100, 0), nil)

	var scored []model.ScoredAccessPoint
	rec := doJSON(t, router, http.MethodGet, "/api/access-points", nil, &scored)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if len(scored) != 1 {
		t.Fatalf("got %d APs, want 1", len(scored))
	}
	ap := scored[0]
	// 100 Mbps down, 50 up, 20 ms, 0 users: 40 + 20 + 17.33.. + 20 rounds to 97.
	if ap.QualityScore != 97 || ap.Status != model.StatusExcellent {
		t.Errorf("score = %v status = %s", ap.QualityScore, ap.Status)
	}
}

func TestGetAccessPointNotFound(t *testing.T) {
	srv, _, _ := newTestServer(t)
	rec := doJSON(t, srv.Router(), http.MethodGet, "/api/access-points/nope", nil, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestGetAccessPointWithoutMetricsScoresZero(t *testing.T) {
	srv, registry, _ := newTestServer(t)
	id, err := registry.UpsertAccessPoint(context.Background(),
		model.AccessPointInfo{Name: "SILENT_AP"})
	if err != nil {
		t.Fatalf("UpsertAccessPoint: %v", err)
	}

	var ap model.ScoredAccessPoint
	rec := doJSON(t, srv.Router(), http.MethodGet, "/api/access-points/"+id, nil, &ap)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ap.QualityScore != 40 || ap.Status != model.StatusMedium {
		t.Errorf("unsampled AP scored %v/%s, want 40/medium", ap.QualityScore, ap.Status)
	}
}

func TestRecommendationsWithLocation(t *testing.T) {
	srv, _, _ := newTestServer(t)
	router := srv.Router()

	// Near AP becomes current (within 50 m), the others are candidates.
	doJSON(t, router, http.MethodPost, "/api/performance-metrics",
		submitBody("NEAR_AP", 40.71200, -74.00800, 60, 5), nil)
	doJSON(t, router, http.MethodPost, "/api/performance-metrics",
		submitBody("MID_AP", 40.71300, -74.00800, 90, 5), nil)
	doJSON(t, router, http.MethodPost, "/api/performance-metrics",
		submitBody("FAR_AP", 40.72000, -74.00800, 95, 5), nil)

	var resp recommendationsResponse
	rec := doJSON(t, router, http.MethodGet,
		"/api/recommendations?latitude=40.71200&longitude=-74.00800", nil, &resp)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	if resp.CurrentAP == nil || resp.CurrentAP.Name != "NEAR_AP" {
		t.Fatalf("current AP = %+v, want NEAR_AP", resp.CurrentAP)
	}
	for _, r := range resp.Recommendations {
		if r.Name == "NEAR_AP" {
			t.Error("current AP should be excluded from recommendations")
		}
		if r.DistanceMeters == nil {
			t.Errorf("%s missing distance in location mode", r.Name)
		}
	}
	if len(resp.Recommendations) != 2 {
		t.Errorf("got %d recommendations, want 2", len(resp.Recommendations))
	}
	if resp.Message == "" {
		t.Error("advice message missing")
	}
}

func TestRecommendationsGlobalMode(t *testing.T) {
	srv, _, _ := newTestServer(t)
	router := srv.Router()
	doJSON(t, router, http.MethodPost, "/api/performance-metrics",
		submitBody("A", 40.71, -74.00, 40, 5), nil)
	doJSON(t, router, http.MethodPost, "/api/performance-metrics",
		submitBody("B", 40.72, -74.00, 90, 5), nil)

	var resp recommendationsResponse
	doJSON(t, router, http.MethodGet, "/api/recommendations", nil, &resp)

	if resp.CurrentAP != nil {
		t.Errorf("current AP set without user location: %+v", resp.CurrentAP)
	}
	if len(resp.Recommendations) != 2 || resp.Recommendations[0].Name != "B" {
		t.Errorf("global ranking = %+v", resp.Recommendations)
	}
	if resp.Aggregate.TotalCount != 2 {
		t.Errorf("aggregate total = %d, want 2", resp.Aggregate.TotalCount)
	}
}

func TestRecommendationsKParam(t *testing.T) {
	srv, _, _ := newTestServer(t)
	router := srv.Router()
	for i := 0; i < 6; i++ {
		doJSON(t, router, http.MethodPost, "/api/performance-metrics",
			submitBody(fmt.Sprintf("AP_%d", i), 40.71, -74.00, 50+float64(i), 5), nil)
	}

	var resp recommendationsResponse
	doJSON(t, router, http.MethodGet, "/api/recommendations?k=5", nil, &resp)
	if len(resp.Recommendations) != 5 {
		t.Errorf("k=5 returned %d recommendations", len(resp.Recommendations))
	}
}

func TestRecommendationsRejectsPartialLocation(t *testing.T) {
	srv, _, _ := newTestServer(t)
	rec := doJSON(t, srv.Router(), http.MethodGet, "/api/recommendations?latitude=40.7", nil, nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestRecommendationsRejectsOutOfRangeCoords(t *testing.T) {
	srv, _, _ := newTestServer(t)
	rec := doJSON(t, srv.Router(), http.MethodGet,
		"/api/recommendations?latitude=91&longitude=0", nil, nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestStatsEndpoint(t *testing.T) {
	srv, _, _ := newTestServer(t)
	router := srv.Router()

	var created map[string]string
	doJSON(t, router, http.MethodPost, "/api/performance-metrics",
		submitBody("A", 40.71, -74.00, 50, 40), &created)

	var resp statsResponse
	rec := doJSON(t, router, http.MethodGet, "/api/stats", nil, &resp)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if resp.Aggregate.TotalCount != 1 || resp.Aggregate.ActiveCount != 1 {
		t.Errorf("aggregate = %+v", resp.Aggregate)
	}
	// The congested set carries AP ids, not names.
	if len(resp.Congested) != 1 || resp.Congested[0] != created["ap_id"] {
		t.Errorf("congested = %v, want [%s]", resp.Congested, created["ap_id"])
	}
	if resp.Alerts.AllClear {
		t.Error("alerts should not be all clear with 40 users")
	}
}

func TestRecommendationsCongestionIncludesCurrentAP(t *testing.T) {
	srv, _, _ := newTestServer(t)
	router := srv.Router()

	// The requester stands on a congested AP; it must still surface in the
	// congested set and alerts even though it is excluded from the ranking.
	var near map[string]string
	doJSON(t, router, http.MethodPost, "/api/performance-metrics",
		submitBody("NEAR_AP", 40.71200, -74.00800, 60, 45), &near)
	doJSON(t, router, http.MethodPost, "/api/performance-metrics",
		submitBody("MID_AP", 40.71300, -74.00800, 90, 5), nil)

	var resp recommendationsResponse
	rec := doJSON(t, router, http.MethodGet,
		"/api/recommendations?latitude=40.71200&longitude=-74.00800", nil, &resp)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	if resp.CurrentAP == nil || resp.CurrentAP.Name != "NEAR_AP" {
		t.Fatalf("current AP = %+v, want NEAR_AP", resp.CurrentAP)
	}
	for _, r := range resp.Recommendations {
		if r.Name == "NEAR_AP" {
			t.Error("current AP should be excluded from recommendations")
		}
	}
	if len(resp.Congested) != 1 || resp.Congested[0] != near["ap_id"] {
		t.Errorf("congested = %v, want [%s]", resp.Congested, near["ap_id"])
	}
	if resp.Alerts.AllClear || len(resp.Alerts.Alerts) != 1 || resp.Alerts.Alerts[0].Name != "NEAR_AP" {
		t.Errorf("alerts = %+v", resp.Alerts)
	}
	if resp.Aggregate.TotalCount != 2 {
		t.Errorf("aggregate total = %d, want 2", resp.Aggregate.TotalCount)
	}
}

func TestTrendsEndpoint(t *testing.T) {
	srv, _, _ := newTestServer(t)
	router := srv.Router()

	var created map[string]string
	doJSON(t, router, http.MethodPost, "/api/performance-metrics",
		submitBody("A", 40.71, -74.00, 50, 5), &created)
	doJSON(t, router, http.MethodPost, "/api/performance-metrics",
		submitBody("A", 40.71, -74.00, 70, 8), nil)

	var trend []model.ScoredAccessPoint
	rec := doJSON(t, router, http.MethodGet,
		"/api/access-points/"+created["ap_id"]+"/trends?hours=24", nil, &trend)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if len(trend) != 2 {
		t.Fatalf("trend has %d points, want 2", len(trend))
	}
	if trend[0].DownloadSpeed != 50 || trend[1].DownloadSpeed != 70 {
		t.Errorf("trend not oldest-first: %v then %v",
			trend[0].DownloadSpeed, trend[1].DownloadSpeed)
	}

	rec = doJSON(t, router, http.MethodGet,
		"/api/access-points/"+created["ap_id"]+"/trends?hours=0", nil, nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("hours=0 status = %d, want 400", rec.Code)
	}
}

func TestHealthEndpoints(t *testing.T) {
	srv, _, _ := newTestServer(t)
	router := srv.Router()

	if rec := doJSON(t, router, http.MethodGet, "/health", nil, nil); rec.Code != http.StatusOK {
		t.Errorf("/health status = %d", rec.Code)
	}
	if rec := doJSON(t, router, http.MethodGet, "/ready", nil, nil); rec.Code != http.StatusOK {
		t.Errorf("/ready status = %d", rec.Code)
	}
}
