package frontend

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/mikey/phishguard/internal/adapters/cache"
	"github.com/mikey/phishguard/internal/core"
	"github.com/mikey/phishguard/internal/features"
	"github.com/mikey/phishguard/internal/status"
)

type apiResponse struct {
	Success bool            `json:"success"`
	Result  json.RawMessage `json:"result"`
	Error   string          `json:"error"`
}

func newTestService(t *testing.T) *core.ScanService {
	t.Helper()
	logger := zaptest.NewLogger(t)
	vc := core.NewVerdictCache(cache.NewMemoryCache(logger, cache.Options{}), logger, 0)
	t.Cleanup(vc.Stop)
	return core.NewScanService(nil, vc, nil, features.NewExtractor(logger), nil, logger, core.ScanOptions{})
}

func newTestServer(t *testing.T) (*httptest.Server, *core.ScanService, *status.Feed) {
	t.Helper()
	svc := newTestService(t)
	feed := status.NewFeed(zaptest.NewLogger(t))
	svc.Subscribe(feed)

	f := NewHTTPFrontend(svc, feed, zaptest.NewLogger(t), "")
	server := httptest.NewServer(f.Handler())
	t.Cleanup(server.Close)
	return server, svc, feed
}

func call(t *testing.T, method, target, body string) (int, apiResponse) {
	t.Helper()
	req, err := http.NewRequest(method, target, strings.NewReader(body))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out apiResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func TestScanAndQuery(t *testing.T) {
	server, _, _ := newTestServer(t)

	code, resp := call(t, http.MethodPost, server.URL+"/api/scan", `{"url":"http://192.168.0.1/login"}`)
	require.Equal(t, http.StatusOK, code)
	require.True(t, resp.Success)

	var verdict core.Verdict
	require.NoError(t, json.Unmarshal(resp.Result, &verdict))
	assert.True(t, verdict.IsThreat)
	assert.Equal(t, core.SourceFallback, verdict.Source)

	q := url.QueryEscape("http://192.168.0.1/login")

	code, resp = call(t, http.MethodGet, server.URL+"/api/status?url="+q, "")
	require.Equal(t, http.StatusOK, code)
	var st statusResponse
	require.NoError(t, json.Unmarshal(resp.Result, &st))
	assert.Equal(t, status.Danger, st.Status)

	code, _ = call(t, http.MethodGet, server.URL+"/api/verdict?url="+q, "")
	assert.Equal(t, http.StatusOK, code)

	code, resp = call(t, http.MethodGet, server.URL+"/api/threats", "")
	require.Equal(t, http.StatusOK, code)
	var threats []core.Verdict
	require.NoError(t, json.Unmarshal(resp.Result, &threats))
	assert.Len(t, threats, 1)

	code, resp = call(t, http.MethodGet, server.URL+"/api/stats", "")
	require.Equal(t, http.StatusOK, code)
	var stats core.Stats
	require.NoError(t, json.Unmarshal(resp.Result, &stats))
	assert.Equal(t, int64(1), stats.ThreatCount)

	code, _ = call(t, http.MethodDelete, server.URL+"/api/cache", "")
	require.Equal(t, http.StatusOK, code)

	code, resp = call(t, http.MethodGet, server.URL+"/api/verdict?url="+q, "")
	assert.Equal(t, http.StatusNotFound, code)
	assert.False(t, resp.Success)

	code, resp = call(t, http.MethodGet, server.URL+"/api/status?url="+q, "")
	require.Equal(t, http.StatusOK, code)
	require.NoError(t, json.Unmarshal(resp.Result, &st))
	assert.Equal(t, status.Unknown, st.Status)
}

func TestSafeList(t *testing.T) {
	server, _, _ := newTestServer(t)

	code, _ := call(t, http.MethodPost, server.URL+"/api/scan", `{"url":"https://example.com"}`)
	require.Equal(t, http.StatusOK, code)

	code, resp := call(t, http.MethodGet, server.URL+"/api/safe", "")
	require.Equal(t, http.StatusOK, code)
	var safe []string
	require.NoError(t, json.Unmarshal(resp.Result, &safe))
	assert.Equal(t, []string{"https://example.com"}, safe)
}

func TestBadRequests(t *testing.T) {
	server, _, _ := newTestServer(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		code   int
	}{
		{"invalid json", http.MethodPost, "/api/scan", `{`, http.StatusBadRequest},
		{"missing url", http.MethodPost, "/api/scan", `{}`, http.StatusBadRequest},
		{"blank url", http.MethodPost, "/api/rescan", `{"url":"   "}`, http.StatusBadRequest},
		{"status without url", http.MethodGet, "/api/status", "", http.StatusBadRequest},
		{"verdict without url", http.MethodGet, "/api/verdict", "", http.StatusBadRequest},
		{"oversized url", http.MethodPost, "/api/explain", `{"url":"http://a.example/` + strings.Repeat("a", 8200) + `"}`, http.StatusBadRequest},
		{"feedback without verdict flag", http.MethodPost, "/api/feedback", `{"url":"https://example.com"}`, http.StatusBadRequest},
		{"feedback for unscanned address", http.MethodPost, "/api/feedback", `{"url":"https://unseen.example","isCorrect":true}`, http.StatusNotFound},
		{"feedback list without url", http.MethodGet, "/api/feedback", "", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, resp := call(t, tt.method, server.URL+tt.path, tt.body)
			assert.Equal(t, tt.code, code)
			assert.False(t, resp.Success)
			assert.NotEmpty(t, resp.Error)
		})
	}
}

func TestValidationMessages(t *testing.T) {
	server, _, _ := newTestServer(t)

	code, resp := call(t, http.MethodPost, server.URL+"/api/scan", `{"content":{"hasPasswordField":true}}`)
	require.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "url: is required", resp.Error)

	code, resp = call(t, http.MethodPost, server.URL+"/api/feedback", `{"url":"https://example.com","comments":"`+strings.Repeat("x", 2001)+`"}`)
	require.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, resp.Error, "isCorrect: is required")
	assert.Contains(t, resp.Error, "comments: must be at most 2000")
}

func TestFeedback(t *testing.T) {
	server, _, _ := newTestServer(t)

	code, _ := call(t, http.MethodPost, server.URL+"/api/scan", `{"url":"http://192.168.0.1/login"}`)
	require.Equal(t, http.StatusOK, code)

	code, resp := call(t, http.MethodPost, server.URL+"/api/feedback",
		`{"url":"http://192.168.0.1/login","isCorrect":false,"comments":"my router"}`)
	require.Equal(t, http.StatusCreated, code)
	var fb core.Feedback
	require.NoError(t, json.Unmarshal(resp.Result, &fb))
	assert.NotEmpty(t, fb.ID)
	assert.True(t, fb.WasThreat)
	assert.False(t, fb.IsCorrect)
	assert.Equal(t, "my router", fb.Comments)

	code, _ = call(t, http.MethodPost, server.URL+"/api/feedback/submit",
		`{"url":"http://192.168.0.1/login","isCorrect":true}`)
	require.Equal(t, http.StatusCreated, code)

	code, resp = call(t, http.MethodGet, server.URL+"/api/feedback?url="+url.QueryEscape("http://192.168.0.1/login"), "")
	require.Equal(t, http.StatusOK, code)
	var entries []core.Feedback
	require.NoError(t, json.Unmarshal(resp.Result, &entries))
	require.Len(t, entries, 2)
	assert.Equal(t, fb.ID, entries[0].ID)
}

func TestInfo(t *testing.T) {
	server, _, _ := newTestServer(t)

	code, resp := call(t, http.MethodGet, server.URL+"/api/info", "")
	require.Equal(t, http.StatusOK, code)
	var info infoResponse
	require.NoError(t, json.Unmarshal(resp.Result, &info))
	assert.Equal(t, "phishguard", info.Name)
	assert.Equal(t, features.Version, info.FeatureVersion)
	assert.Equal(t, features.All(), info.Features)
	assert.Contains(t, info.Endpoints, "POST /api/feedback")
	assert.Contains(t, info.Endpoints, "GET /api/status/stream")
}

func TestExplainAndDetect(t *testing.T) {
	server, svc, _ := newTestServer(t)
	body := `{"url":"http://192.168.0.1/login","content":{"hasPasswordField":true,"formActionAddress":"https://collector.example.net/"}}`

	code, resp := call(t, http.MethodPost, server.URL+"/api/explain", body)
	require.Equal(t, http.StatusOK, code)
	var report core.LocalReport
	require.NoError(t, json.Unmarshal(resp.Result, &report))
	assert.Equal(t, 1.0, report.Features[features.MismatchedFormAction])
	assert.NotEmpty(t, report.Highlights)

	code, resp = call(t, http.MethodPost, server.URL+"/api/detect/content", body)
	require.Equal(t, http.StatusOK, code)
	var detect detectResult
	require.NoError(t, json.Unmarshal(resp.Result, &detect))
	assert.Equal(t, string(report.Assessment.RiskLevel), detect.ThreatLevel)
	assert.InDelta(t, report.Assessment.Score, detect.Score, 1e-9)
	assert.Len(t, detect.Explanations, len(report.Explanations))

	_, found, err := svc.Lookup(context.Background(), "http://192.168.0.1/login")
	require.NoError(t, err)
	assert.False(t, found, "local assessment must not populate the cache")
}

func TestHealthAndMetrics(t *testing.T) {
	server, _, _ := newTestServer(t)

	resp, err := http.Get(server.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	_, _ = call(t, http.MethodGet, server.URL+"/api/stats", "")

	resp, err = http.Get(server.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "phishguard_api_http_requests_total")
}

func TestStatusStream(t *testing.T) {
	server, _, _ := newTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		server.URL+"/api/status/stream?url="+url.QueryEscape("https://example.com"), nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	// Headers are flushed only after the subscription exists
	code, _ := call(t, http.MethodPost, server.URL+"/api/scan", `{"url":"https://other.example"}`)
	require.Equal(t, http.StatusOK, code)
	code, _ = call(t, http.MethodPost, server.URL+"/api/scan", `{"url":"https://example.com"}`)
	require.Equal(t, http.StatusOK, code)

	var updates []status.Update
	reader := bufio.NewReader(resp.Body)
	for len(updates) < 2 {
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		data, ok := strings.CutPrefix(strings.TrimSpace(line), "data: ")
		if !ok {
			continue
		}
		var u status.Update
		require.NoError(t, json.Unmarshal([]byte(data), &u))
		updates = append(updates, u)
	}

	assert.Equal(t, "https://example.com", updates[0].Address)
	assert.Equal(t, status.Scanning, updates[0].Status)
	assert.Equal(t, status.Safe, updates[1].Status)
}
