package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"lifepulse/internal/repository"
	"lifepulse/internal/types"
)

// mockHistory implements repository.SyncHistoryRepository for handler tests
type mockHistory struct {
	records   []types.SyncRecord
	stats     types.SyncStats
	listErr   error
	statsErr  error
	listCalls int
	lastLimit int
}

func (m *mockHistory) Add(ctx context.Context, record types.SyncRecord) error { return nil }

func (m *mockHistory) List(ctx context.Context, limit int) ([]types.SyncRecord, error) {
	m.listCalls++
	m.lastLimit = limit
	return m.records, m.listErr
}

func (m *mockHistory) Latest(ctx context.Context) (*types.SyncRecord, error) {
	if len(m.records) == 0 {
		return nil, errors.New("empty history")
	}
	return &m.records[0], nil
}

func (m *mockHistory) Stats(ctx context.Context) (types.SyncStats, error) {
	return m.stats, m.statsErr
}

func (m *mockHistory) Count(ctx context.Context) (int, error) { return len(m.records), nil }

// mockMarker implements repository.SyncMarkerStore
type mockMarker struct {
	date      string
	timestamp string
}

func (m *mockMarker) SetLastSync(ctx context.Context, date, timestamp string) error {
	m.date, m.timestamp = date, timestamp
	return nil
}

func (m *mockMarker) LastSync(ctx context.Context) (string, string, error) {
	return m.date, m.timestamp, nil
}

type mockHealth struct {
	err error
}

func (m *mockHealth) Health(ctx context.Context) error { return m.err }

type mockFetcher struct {
	records  []types.HourlyUsageRecord
	err      error
	lastDate string
}

func (m *mockFetcher) FetchHourlyUsage(ctx context.Context, date string) ([]types.HourlyUsageRecord, error) {
	m.lastDate = date
	return m.records, m.err
}

func newTestServer(history *mockHistory, marker *mockMarker, health *mockHealth,
	fetcher *mockFetcher, trigger func()) *Server {
	var h HealthChecker
	if health != nil {
		h = health
	}
	var f UsageFetcher
	if fetcher != nil {
		f = fetcher
	}
	var m repository.SyncMarkerStore
	if marker != nil {
		m = marker
	}
	return New("127.0.0.1:0", history, m, h, f, trigger, nil)
}

func doRequest(t *testing.T, s *Server, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	s := newTestServer(&mockHistory{}, nil, &mockHealth{}, nil, nil)
	rec := doRequest(t, s, http.MethodGet, "/healthz")

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}

	var body map[string]string
	json.Unmarshal(rec.Body.Bytes(), &body)
	if body["status"] != "up" {
		t.Errorf("body = %v", body)
	}
}

func TestHealthzDown(t *testing.T) {
	s := newTestServer(&mockHistory{}, nil, &mockHealth{err: errors.New("database not connected")}, nil, nil)
	rec := doRequest(t, s, http.MethodGet, "/healthz")

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}

	var body map[string]string
	json.Unmarshal(rec.Body.Bytes(), &body)
	if body["status"] != "down" {
		t.Errorf("body = %v", body)
	}
}

func TestSyncHistory(t *testing.T) {
	history := &mockHistory{
		records: []types.SyncRecord{
			{ID: 2, Timestamp: time.Now(), Success: true, RecordCount: 5},
			{ID: 1, Timestamp: time.Now().Add(-time.Hour), Success: false, RecordCount: 3, ErrorMessage: "timeout"},
		},
	}
	s := newTestServer(history, nil, nil, nil, nil)
	rec := doRequest(t, s, http.MethodGet, "/api/sync-history?limit=10")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if history.lastLimit != 10 {
		t.Errorf("limit passed to repository = %d, want 10", history.lastLimit)
	}

	var body struct {
		Records []types.SyncRecord `json:"records"`
	}
	json.Unmarshal(rec.Body.Bytes(), &body)
	if len(body.Records) != 2 {
		t.Errorf("got %d records, want 2", len(body.Records))
	}
}

func TestSyncHistoryBadLimit(t *testing.T) {
	s := newTestServer(&mockHistory{}, nil, nil, nil, nil)
	for _, limit := range []string{"abc", "-5", "0"} {
		rec := doRequest(t, s, http.MethodGet, "/api/sync-history?limit="+limit)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("limit=%q: status = %d, want 400", limit, rec.Code)
		}
	}
}

func TestSyncHistoryRepositoryError(t *testing.T) {
	s := newTestServer(&mockHistory{listErr: errors.New("db closed")}, nil, nil, nil, nil)
	rec := doRequest(t, s, http.MethodGet, "/api/sync-history")
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestSyncStats(t *testing.T) {
	history := &mockHistory{stats: types.SyncStats{SuccessCount: 7, FailureCount: 2}}
	marker := &mockMarker{date: "2025-04-01", timestamp: "2025-04-01T10:00:00Z"}
	s := newTestServer(history, marker, nil, nil, nil)
	rec := doRequest(t, s, http.MethodGet, "/api/sync-stats")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body map[string]interface{}
	json.Unmarshal(rec.Body.Bytes(), &body)
	if body["success_count"] != float64(7) || body["failure_count"] != float64(2) {
		t.Errorf("counts = %v", body)
	}
	if body["last_sync_date"] != "2025-04-01" {
		t.Errorf("last_sync_date = %v", body["last_sync_date"])
	}
}

func TestSyncStatsOmitsMarkerWhenNeverSynced(t *testing.T) {
	s := newTestServer(&mockHistory{}, &mockMarker{}, nil, nil, nil)
	rec := doRequest(t, s, http.MethodGet, "/api/sync-stats")

	var body map[string]interface{}
	json.Unmarshal(rec.Body.Bytes(), &body)
	if _, present := body["last_sync_date"]; present {
		t.Error("last_sync_date should be omitted before the first successful sync")
	}
}

func TestManualSync(t *testing.T) {
	triggered := false
	s := newTestServer(&mockHistory{}, nil, nil, nil, func() { triggered = true })
	rec := doRequest(t, s, http.MethodPost, "/api/sync")

	if rec.Code != http.StatusAccepted {
		t.Errorf("status = %d, want 202", rec.Code)
	}
	if !triggered {
		t.Error("POST /api/sync did not invoke the trigger")
	}
}

func TestManualSyncNotConfigured(t *testing.T) {
	s := newTestServer(&mockHistory{}, nil, nil, nil, nil)
	rec := doRequest(t, s, http.MethodPost, "/api/sync")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestDailySummary(t *testing.T) {
	fetcher := &mockFetcher{
		records: []types.HourlyUsageRecord{
			{
				Date: "2025-04-01", Hour: 0,
				AppUsage:          []types.AppUsageItem{{AppName: "chrome", UsageMinutes: 10, OpenCount: 1}},
				TotalUsageMinutes: 10, ScreenUnlocks: 4,
			},
			{
				Date: "2025-04-01", Hour: 9,
				AppUsage:          []types.AppUsageItem{{AppName: "chrome", UsageMinutes: 20, OpenCount: 2}},
				TotalUsageMinutes: 20,
			},
		},
	}
	s := newTestServer(&mockHistory{}, nil, nil, fetcher, nil)
	rec := doRequest(t, s, http.MethodGet, "/api/daily-summary?date=2025-04-01")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if fetcher.lastDate != "2025-04-01" {
		t.Errorf("fetched date = %q", fetcher.lastDate)
	}

	var summary types.DailySummary
	json.Unmarshal(rec.Body.Bytes(), &summary)
	if summary.TotalUsageMinutes != 30 || summary.ScreenUnlocks != 4 {
		t.Errorf("summary = %+v", summary)
	}
	if len(summary.AppUsage) != 1 || summary.AppUsage[0].UsageMinutes != 30 {
		t.Errorf("app usage = %+v", summary.AppUsage)
	}
}

func TestDailySummaryValidation(t *testing.T) {
	s := newTestServer(&mockHistory{}, nil, nil, &mockFetcher{}, nil)

	for _, date := range []string{"", "04-01-2025", "2025/04/01", "not-a-date"} {
		rec := doRequest(t, s, http.MethodGet, fmt.Sprintf("/api/daily-summary?date=%s", date))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("date=%q: status = %d, want 400", date, rec.Code)
		}
	}
}

func TestDailySummaryNoData(t *testing.T) {
	s := newTestServer(&mockHistory{}, nil, nil, &mockFetcher{}, nil)
	rec := doRequest(t, s, http.MethodGet, "/api/daily-summary?date=2025-04-01")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestDailySummaryFetchError(t *testing.T) {
	s := newTestServer(&mockHistory{}, nil, nil, &mockFetcher{err: errors.New("api down")}, nil)
	rec := doRequest(t, s, http.MethodGet, "/api/daily-summary?date=2025-04-01")
	if rec.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", rec.Code)
	}
}
