package server

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/verte-zerg/tuisleep/internal/analysis"
	"github.com/verte-zerg/tuisleep/internal/dataset"
	"github.com/verte-zerg/tuisleep/internal/model"
	"github.com/verte-zerg/tuisleep/internal/predictor"
	"github.com/verte-zerg/tuisleep/internal/store"
)

func newTestServer(t *testing.T, withStore bool) *httptest.Server {
	t.Helper()
	m, err := predictor.Decode(predictor.StarterArtifact(), predictor.FormatYAML)
	if err != nil {
		t.Fatalf("decode starter model: %v", err)
	}
	var opts []analysis.Option
	var history History
	if withStore {
		st, err := store.Open(filepath.Join(t.TempDir(), "history.db"))
		if err != nil {
			t.Fatalf("open store: %v", err)
		}
		t.Cleanup(func() {
			_ = st.Close()
		})
		opts = append(opts, analysis.WithRecorder(st))
		history = st
	}
	srv := httptest.NewServer(New(analysis.NewEngine(m, opts...), history, nil).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer func() {
		_ = resp.Body.Close()
	}()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, false)
	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	body := decode[map[string]string](t, resp)
	if body["status"] != "ok" {
		t.Fatalf("unexpected body %v", body)
	}
}

func checkDefaultReport(t *testing.T, got ReportResponse) {
	t.Helper()
	want := Score{
		Label:      analysis.ScoreLabel,
		Value:      76,
		Mood:       "neutral",
		Emoji:      "😐",
		Suggestion: "Your sleep is decent. Aim for more deep and REM sleep.",
	}
	if diff := cmp.Diff(want, got.Score); diff != "" {
		t.Fatalf("score mismatch (-want +got):\n%s", diff)
	}
	if len(got.Trend.Points) != 7 || got.Trend.Points[0] != (TrendPoint{Date: "2025-06-02", Hours: 7.2}) {
		t.Fatalf("unexpected trend %+v", got.Trend)
	}
	if got.Breakdown.Title != "Sleep Stages on 2025-06-08" || len(got.Breakdown.Slices) != 4 {
		t.Fatalf("unexpected breakdown %+v", got.Breakdown)
	}
	var share float64
	for _, s := range got.Breakdown.Slices {
		share += s.Share
	}
	if share < 0.999 || share > 1.001 {
		t.Fatalf("expected shares to sum to 1, got %f", share)
	}
	if len(got.Days) != 7 {
		t.Fatalf("expected 7 days, got %d", len(got.Days))
	}
}

func TestAnalyzeDefault(t *testing.T) {
	srv := newTestServer(t, false)
	resp, err := http.Get(srv.URL + "/api/v1/analyze/default")
	if err != nil {
		t.Fatalf("GET default: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	got := decode[ReportResponse](t, resp)
	if got.Source != dataset.DefaultSource {
		t.Fatalf("expected default source, got %q", got.Source)
	}
	checkDefaultReport(t, got)
}

func TestAnalyzeRawBody(t *testing.T) {
	srv := newTestServer(t, false)
	resp, err := http.Post(srv.URL+"/api/v1/analyze", "text/csv", bytes.NewReader(dataset.DefaultCSV()))
	if err != nil {
		t.Fatalf("POST analyze: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	got := decode[ReportResponse](t, resp)
	if got.Source != "upload" {
		t.Fatalf("expected upload source, got %q", got.Source)
	}
	checkDefaultReport(t, got)
}

func TestAnalyzeEmptyBodyFallsBackToDefault(t *testing.T) {
	srv := newTestServer(t, false)
	resp, err := http.Post(srv.URL+"/api/v1/analyze", "text/csv", strings.NewReader("  \n"))
	if err != nil {
		t.Fatalf("POST analyze: %v", err)
	}
	got := decode[ReportResponse](t, resp)
	if got.Source != dataset.DefaultSource {
		t.Fatalf("expected default source, got %q", got.Source)
	}
}

func TestAnalyzeMultipart(t *testing.T) {
	srv := newTestServer(t, false)
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "week.csv")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := fw.Write(dataset.DefaultCSV()); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}
	resp, err := http.Post(srv.URL+"/api/v1/analyze", mw.FormDataContentType(), &body)
	if err != nil {
		t.Fatalf("POST analyze: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	got := decode[ReportResponse](t, resp)
	if got.Source != "week.csv" {
		t.Fatalf("expected file name as source, got %q", got.Source)
	}
	checkDefaultReport(t, got)
}

func TestAnalyzeRejectsSixRows(t *testing.T) {
	srv := newTestServer(t, true)
	lines := strings.Split(strings.TrimSpace(string(dataset.DefaultCSV())), "\n")
	sixRows := strings.Join(lines[:7], "\n") + "\n"
	resp, err := http.Post(srv.URL+"/api/v1/analyze", "text/csv", strings.NewReader(sixRows))
	if err != nil {
		t.Fatalf("POST analyze: %v", err)
	}
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", resp.StatusCode)
	}
	got := decode[ErrorResponse](t, resp)
	if got.Kind != string(dataset.KindRowCount) || !strings.Contains(got.Error, "exactly 7 days") {
		t.Fatalf("unexpected error body %+v", got)
	}

	hist, err := http.Get(srv.URL + "/api/v1/history")
	if err != nil {
		t.Fatalf("GET history: %v", err)
	}
	if h := decode[HistoryResponse](t, hist); len(h.Analyses) != 0 {
		t.Fatalf("rejected datasets must not be recorded, got %d", len(h.Analyses))
	}
}

func TestAnalyzeRejectsMissingColumn(t *testing.T) {
	srv := newTestServer(t, false)
	resp, err := http.Post(srv.URL+"/api/v1/analyze", "text/csv", strings.NewReader("date,total_sleep_hrs\n2025-06-02,7\n"))
	if err != nil {
		t.Fatalf("POST analyze: %v", err)
	}
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", resp.StatusCode)
	}
	if got := decode[ErrorResponse](t, resp); got.Kind != string(dataset.KindMissingColumn) {
		t.Fatalf("unexpected error body %+v", got)
	}
}

func TestAnalyzeBrokenMultipart(t *testing.T) {
	srv := newTestServer(t, false)
	resp, err := http.Post(srv.URL+"/api/v1/analyze", "multipart/form-data; boundary=xyz", strings.NewReader("not multipart"))
	if err != nil {
		t.Fatalf("POST analyze: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	if got := decode[ErrorResponse](t, resp); got.Kind != "upload" {
		t.Fatalf("unexpected error body %+v", got)
	}
}

func TestHistoryRecordsAnalyses(t *testing.T) {
	srv := newTestServer(t, true)
	for i := 0; i < 3; i++ {
		resp, err := http.Get(srv.URL + "/api/v1/analyze/default")
		if err != nil {
			t.Fatalf("GET default: %v", err)
		}
		if got := decode[ReportResponse](t, resp); got.ID == "" {
			t.Fatalf("expected recorded analysis id")
		}
	}

	resp, err := http.Get(srv.URL + "/api/v1/history?last=2")
	if err != nil {
		t.Fatalf("GET history: %v", err)
	}
	hist := decode[HistoryResponse](t, resp)
	if len(hist.Analyses) != 2 {
		t.Fatalf("expected 2 analyses, got %d", len(hist.Analyses))
	}
	first := hist.Analyses[0]
	if first.Score != 76 || first.Emoji != "😐" || first.FirstDate != "2025-06-02" || first.LastDate != "2025-06-08" {
		t.Fatalf("unexpected summary %+v", first)
	}

	one, err := http.Get(srv.URL + "/api/v1/history/" + first.ID)
	if err != nil {
		t.Fatalf("GET history item: %v", err)
	}
	item := decode[AnalysisSummary](t, one)
	if item.ID != first.ID || len(item.Days) != 7 {
		t.Fatalf("unexpected history item %+v", item)
	}
}

func TestHistoryErrors(t *testing.T) {
	srv := newTestServer(t, true)
	cases := map[string]int{
		"/api/v1/history?last=abc":         http.StatusBadRequest,
		"/api/v1/history?since=junk":       http.StatusBadRequest,
		"/api/v1/history/unknown-id":       http.StatusNotFound,
		"/api/v1/history?since=2025-01-01": http.StatusOK,
	}
	for path, want := range cases {
		resp, err := http.Get(srv.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		_ = resp.Body.Close()
		if resp.StatusCode != want {
			t.Fatalf("GET %s: expected %d, got %d", path, want, resp.StatusCode)
		}
	}
}

func TestHistoryWithoutStore(t *testing.T) {
	srv := newTestServer(t, false)
	resp, err := http.Get(srv.URL + "/api/v1/history")
	if err != nil {
		t.Fatalf("GET history: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", resp.StatusCode)
	}
}

func TestListenAndServeStopsOnCancel(t *testing.T) {
	m, err := predictor.Decode(predictor.StarterArtifact(), predictor.FormatYAML)
	if err != nil {
		t.Fatalf("decode starter model: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- New(analysis.NewEngine(m), nil, nil).ListenAndServe(ctx, "127.0.0.1:0")
	}()
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("expected clean shutdown, got %v", err)
	}
}

func TestHistorySinceIsLocalDate(t *testing.T) {
	srv := newTestServer(t, true)
	now := time.Now()
	today := now.Format(model.DateLayout)
	tomorrow := now.AddDate(0, 0, 1).Format(model.DateLayout)
	resp, err := http.Get(srv.URL + "/api/v1/analyze/default")
	if err != nil {
		t.Fatalf("GET default: %v", err)
	}
	_ = resp.Body.Close()

	for since, want := range map[string]int{today: 1, tomorrow: 0} {
		resp, err := http.Get(srv.URL + "/api/v1/history?since=" + since)
		if err != nil {
			t.Fatalf("GET history: %v", err)
		}
		if got := decode[HistoryResponse](t, resp); len(got.Analyses) != want {
			t.Fatalf("since=%s: expected %d analyses, got %d", since, want, len(got.Analyses))
		}
	}
}
