package frontend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/mikey/phishguard/internal/core"
	"github.com/mikey/phishguard/internal/features"
	"github.com/mikey/phishguard/internal/metrics"
	"github.com/mikey/phishguard/internal/status"
	"github.com/mikey/phishguard/internal/validation"
)

const (
	// maxRequestBody caps API request bodies
	maxRequestBody = 64 * 1024
	streamBuffer   = 32
	serviceName    = "phishguard"
)

type addressRequest struct {
	URL     string                   `json:"url" validate:"required,max=8192"`
	Content *features.ContentSignals `json:"content,omitempty"`
}

type feedbackRequest struct {
	URL       string `json:"url" validate:"required,max=8192"`
	IsCorrect *bool  `json:"isCorrect" validate:"required"`
	Comments  string `json:"comments" validate:"max=2000"`
}

type infoResponse struct {
	Name           string             `json:"name"`
	FeatureVersion string             `json:"featureVersion"`
	Features       []features.Feature `json:"features"`
	Endpoints      []string           `json:"endpoints"`
}

type envelope struct {
	Success bool        `json:"success"`
	Result  interface{} `json:"result,omitempty"`
	Error   string      `json:"error,omitempty"`
}

type statusResponse struct {
	Address string        `json:"address"`
	Status  status.Status `json:"status"`
	Verdict *core.Verdict `json:"verdict,omitempty"`
}

// detectResult mirrors the remote scoring service result so one instance can
// serve as the remote scorer of another
type detectResult struct {
	IsPhishing   bool     `json:"isPhishing"`
	Score        float64  `json:"score"`
	Confidence   float64  `json:"confidence"`
	ThreatLevel  string   `json:"threatLevel"`
	Explanations []string `json:"explanations"`
}

// HTTPFrontend exposes the scan service over a JSON HTTP API
type HTTPFrontend struct {
	service    *core.ScanService
	feed       *status.Feed
	logger     *zap.Logger
	listenAddr string
	server     *http.Server
}

// NewHTTPFrontend creates a new HTTP front end. The status stream endpoint is
// only served when feed is non-nil.
func NewHTTPFrontend(service *core.ScanService, feed *status.Feed, logger *zap.Logger, listenAddr string) *HTTPFrontend {
	return &HTTPFrontend{
		service:    service,
		feed:       feed,
		logger:     logger,
		listenAddr: listenAddr,
	}
}

// Handler returns the API routes
func (f *HTTPFrontend) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.Handle("POST /api/scan", f.instrument("scan", f.handleScan(false)))
	mux.Handle("POST /api/rescan", f.instrument("rescan", f.handleScan(true)))
	mux.Handle("GET /api/status", f.instrument("status", http.HandlerFunc(f.handleStatus)))
	mux.Handle("GET /api/verdict", f.instrument("verdict", http.HandlerFunc(f.handleVerdict)))
	mux.Handle("GET /api/stats", f.instrument("stats", http.HandlerFunc(f.handleStats)))
	mux.Handle("GET /api/safe", f.instrument("safe", http.HandlerFunc(f.handleSafe)))
	mux.Handle("GET /api/threats", f.instrument("threats", http.HandlerFunc(f.handleThreats)))
	mux.Handle("DELETE /api/cache", f.instrument("clear", http.HandlerFunc(f.handleClear)))
	mux.Handle("POST /api/explain", f.instrument("explain", http.HandlerFunc(f.handleExplain)))
	mux.Handle("POST /api/detect/url", f.instrument("detect_url", http.HandlerFunc(f.handleDetect)))
	mux.Handle("POST /api/detect/content", f.instrument("detect_content", http.HandlerFunc(f.handleDetect)))
	mux.Handle("POST /api/feedback", f.instrument("feedback", http.HandlerFunc(f.handleFeedback)))
	mux.Handle("POST /api/feedback/submit", f.instrument("feedback", http.HandlerFunc(f.handleFeedback)))
	mux.Handle("GET /api/feedback", f.instrument("feedback_list", http.HandlerFunc(f.handleFeedbackList)))
	mux.Handle("GET /api/info", f.instrument("info", http.HandlerFunc(f.handleInfo)))
	if f.feed != nil {
		mux.HandleFunc("GET /api/status/stream", f.handleStatusStream)
	}
	mux.HandleFunc("GET /health", f.handleHealth)
	mux.Handle("GET /metrics", metrics.Handler())

	return mux
}

// Start starts serving the API
func (f *HTTPFrontend) Start() error {
	f.server = &http.Server{
		Addr:              f.listenAddr,
		Handler:           f.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	f.logger.Info("HTTP front end starting", zap.String("address", f.listenAddr))

	go func() {
		if err := f.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			f.logger.Error("HTTP server error", zap.Error(err))
		}
	}()

	return nil
}

// Stop shuts the API down, letting in-flight requests finish
func (f *HTTPFrontend) Stop() error {
	if f.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return f.server.Shutdown(ctx)
}

func (f *HTTPFrontend) handleScan(rescan bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, ok := f.decodeAddress(w, r)
		if !ok {
			return
		}

		scan := f.service.Scan
		if rescan {
			scan = f.service.Rescan
		}

		verdict, err := scan(r.Context(), req.URL)
		if err != nil {
			f.writeServiceError(w, err)
			return
		}
		f.writeResult(w, http.StatusOK, verdict)
	}
}

func (f *HTTPFrontend) handleStatus(w http.ResponseWriter, r *http.Request) {
	address := r.URL.Query().Get("url")
	if address == "" {
		f.writeError(w, http.StatusBadRequest, "url query parameter is required")
		return
	}

	st, verdict, err := status.Current(r.Context(), f.service, address)
	if err != nil {
		f.writeServiceError(w, err)
		return
	}
	f.writeResult(w, http.StatusOK, statusResponse{Address: address, Status: st, Verdict: verdict})
}

// handleStatusStream pushes status updates as server-sent events. Updates are
// dropped for clients that fall behind.
func (f *HTTPFrontend) handleStatusStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		f.writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}
	filter := r.URL.Query().Get("url")
	if filter != "" {
		if key, err := features.Normalize(filter); err == nil {
			filter = key
		}
	}

	updates := make(chan status.Update, streamBuffer)
	unsubscribe := f.feed.Subscribe(func(u status.Update) {
		if filter != "" && u.Address != filter {
			return
		}
		select {
		case updates <- u:
		default:
		}
	})
	defer unsubscribe()

	// Streams outlive the server write timeout
	if err := http.NewResponseController(w).SetWriteDeadline(time.Time{}); err != nil {
		f.logger.Debug("Could not clear write deadline", zap.Error(err))
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case u := <-updates:
			data, err := json.Marshal(u)
			if err != nil {
				f.logger.Error("Failed to encode status update", zap.Error(err))
				continue
			}
			if _, err := fmt.Fprintf(w, "event: status\ndata: %s\n\n", data); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func (f *HTTPFrontend) handleVerdict(w http.ResponseWriter, r *http.Request) {
	address := r.URL.Query().Get("url")
	if address == "" {
		f.writeError(w, http.StatusBadRequest, "url query parameter is required")
		return
	}

	verdict, found, err := f.service.Lookup(r.Context(), address)
	if err != nil {
		f.writeServiceError(w, err)
		return
	}
	if !found {
		f.writeError(w, http.StatusNotFound, "no verdict cached for address")
		return
	}
	f.writeResult(w, http.StatusOK, verdict)
}

func (f *HTTPFrontend) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := f.service.Stats(r.Context())
	if err != nil {
		f.writeServiceError(w, err)
		return
	}
	f.writeResult(w, http.StatusOK, stats)
}

func (f *HTTPFrontend) handleSafe(w http.ResponseWriter, r *http.Request) {
	addresses, err := f.service.SafeAddresses(r.Context())
	if err != nil {
		f.writeServiceError(w, err)
		return
	}
	f.writeResult(w, http.StatusOK, addresses)
}

func (f *HTTPFrontend) handleThreats(w http.ResponseWriter, r *http.Request) {
	verdicts, err := f.service.ThreatVerdicts(r.Context())
	if err != nil {
		f.writeServiceError(w, err)
		return
	}
	f.writeResult(w, http.StatusOK, verdicts)
}

func (f *HTTPFrontend) handleClear(w http.ResponseWriter, r *http.Request) {
	if err := f.service.Clear(r.Context()); err != nil {
		f.writeServiceError(w, err)
		return
	}
	f.writeResult(w, http.StatusOK, map[string]bool{"cleared": true})
}

func (f *HTTPFrontend) handleExplain(w http.ResponseWriter, r *http.Request) {
	req, ok := f.decodeAddress(w, r)
	if !ok {
		return
	}
	f.writeResult(w, http.StatusOK, f.service.Assess(req.URL, req.Content))
}

// handleDetect scores with the local weighted model only
func (f *HTTPFrontend) handleDetect(w http.ResponseWriter, r *http.Request) {
	req, ok := f.decodeAddress(w, r)
	if !ok {
		return
	}

	report := f.service.Assess(req.URL, req.Content)
	explanations := make([]string, 0, len(report.Explanations))
	for _, a := range report.Explanations {
		explanations = append(explanations, a.Description)
	}

	f.writeResult(w, http.StatusOK, detectResult{
		IsPhishing:   report.Assessment.IsPhishing,
		Score:        report.Assessment.Score,
		Confidence:   report.Assessment.Confidence,
		ThreatLevel:  string(report.Assessment.RiskLevel),
		Explanations: explanations,
	})
}

func (f *HTTPFrontend) handleFeedback(w http.ResponseWriter, r *http.Request) {
	var req feedbackRequest
	if !f.decode(w, r, &req) {
		return
	}

	fb, err := f.service.SubmitFeedback(r.Context(), req.URL, *req.IsCorrect, req.Comments)
	if err != nil {
		f.writeServiceError(w, err)
		return
	}
	f.writeResult(w, http.StatusCreated, fb)
}

func (f *HTTPFrontend) handleFeedbackList(w http.ResponseWriter, r *http.Request) {
	address := r.URL.Query().Get("url")
	if address == "" {
		f.writeError(w, http.StatusBadRequest, "url query parameter is required")
		return
	}

	entries, err := f.service.Feedback(r.Context(), address)
	if err != nil {
		f.writeServiceError(w, err)
		return
	}
	f.writeResult(w, http.StatusOK, entries)
}

func (f *HTTPFrontend) handleInfo(w http.ResponseWriter, _ *http.Request) {
	endpoints := []string{
		"POST /api/scan", "POST /api/rescan", "GET /api/status", "GET /api/verdict",
		"GET /api/stats", "GET /api/safe", "GET /api/threats", "DELETE /api/cache",
		"POST /api/explain", "POST /api/detect/url", "POST /api/detect/content",
		"POST /api/feedback", "GET /api/feedback", "GET /api/info",
	}
	if f.feed != nil {
		endpoints = append(endpoints, "GET /api/status/stream")
	}
	f.writeResult(w, http.StatusOK, infoResponse{
		Name:           serviceName,
		FeatureVersion: features.Version,
		Features:       features.All(),
		Endpoints:      endpoints,
	})
}

func (f *HTTPFrontend) handleHealth(w http.ResponseWriter, _ *http.Request) {
	f.writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (f *HTTPFrontend) decodeAddress(w http.ResponseWriter, r *http.Request) (*addressRequest, bool) {
	var req addressRequest
	if !f.decode(w, r, &req) {
		return nil, false
	}
	return &req, true
}

// decode reads a JSON body into v and checks its validate tags, answering 400
// on failure
func (f *HTTPFrontend) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(v); err != nil {
		f.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return false
	}
	if err := validation.Struct(v); err != nil {
		f.writeError(w, http.StatusBadRequest, validation.Describe(err))
		return false
	}
	return true
}

func (f *HTTPFrontend) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, core.ErrMalformedAddress):
		f.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, core.ErrNoVerdict):
		f.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, core.ErrCacheClosed):
		f.writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		f.logger.Error("Request failed", zap.Error(err))
		f.writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func (f *HTTPFrontend) writeResult(w http.ResponseWriter, status int, result interface{}) {
	f.writeJSON(w, status, envelope{Success: true, Result: result})
}

func (f *HTTPFrontend) writeError(w http.ResponseWriter, status int, message string) {
	f.writeJSON(w, status, envelope{Success: false, Error: message})
}

func (f *HTTPFrontend) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		f.logger.Error("Failed to encode response", zap.Error(err))
	}
}

// statusRecorder captures the response status for metrics
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (f *HTTPFrontend) instrument(name string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		next.ServeHTTP(rec, r)

		metrics.ObserveHTTPRequest(r.Method, name, strconv.Itoa(rec.status))
		f.logger.Debug("Handled request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)))
	})
}
