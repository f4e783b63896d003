package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/mikey/phishguard/internal/explain"
	"github.com/mikey/phishguard/internal/features"
	"github.com/mikey/phishguard/internal/metrics"
	"github.com/mikey/phishguard/internal/scoring"
	"github.com/mikey/phishguard/internal/whitelist"
)

// maxReasons caps the locally generated reasons attached to a verdict
const maxReasons = 5

// ScanOptions tunes the scan pipeline
type ScanOptions struct {
	Weights           scoring.WeightTable
	NotificationLevel NotificationLevel
	// HighRiskOnly narrows notifications to High risk threats
	HighRiskOnly   bool
	RemoteTimeout  time.Duration
	ContentTimeout time.Duration
	// RemoteRateLimit is the sustained remote calls per second; zero disables limiting
	RemoteRateLimit float64
	RemoteBurst     int
	// Whitelist short-circuits trusted hosts to a safe verdict
	Whitelist *whitelist.Checker
}

// LocalReport is a local-only assessment of an address
type LocalReport struct {
	Address      string                `json:"address"`
	Features     features.Vector       `json:"features"`
	Assessment   scoring.Assessment    `json:"assessment"`
	Explanations []explain.Attribution `json:"explanations"`
	Highlights   []explain.Highlight   `json:"highlights"`
}

// ScanService drives the per-address scan pipeline
type ScanService struct {
	remote         RemoteScorer
	cache          *VerdictCache
	fetcher        ContentFetcher
	extractor      *features.Extractor
	notifier       Notifier
	logger         *zap.Logger
	weights        scoring.WeightTable
	notifyLevel    NotificationLevel
	highRiskOnly   bool
	remoteTimeout  time.Duration
	contentTimeout time.Duration
	limiter        *rate.Limiter
	whitelist      *whitelist.Checker

	inflight singleflight.Group

	mu     sync.RWMutex
	states map[string]ScanState
	sinks  []EventSink
}

// NewScanService creates a new scan service. remote, fetcher and notifier may
// be nil: without a remote scorer every scan uses the local fallback.
func NewScanService(
	remote RemoteScorer,
	cache *VerdictCache,
	fetcher ContentFetcher,
	extractor *features.Extractor,
	notifier Notifier,
	logger *zap.Logger,
	opts ScanOptions,
) *ScanService {
	weights := opts.Weights
	if weights == nil {
		weights = scoring.DefaultWeights()
	}
	level := opts.NotificationLevel
	if level == "" {
		level = NotifyAll
	}

	var limiter *rate.Limiter
	if opts.RemoteRateLimit > 0 {
		burst := opts.RemoteBurst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RemoteRateLimit), burst)
	}

	return &ScanService{
		remote:         remote,
		cache:          cache,
		fetcher:        fetcher,
		extractor:      extractor,
		notifier:       notifier,
		logger:         logger,
		weights:        weights,
		notifyLevel:    level,
		highRiskOnly:   opts.HighRiskOnly,
		remoteTimeout:  opts.RemoteTimeout,
		contentTimeout: opts.ContentTimeout,
		limiter:        limiter,
		whitelist:      opts.Whitelist,
		states:         make(map[string]ScanState),
	}
}

// Subscribe registers a sink for scan events
func (s *ScanService) Subscribe(sink EventSink) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sinks = append(s.sinks, sink)
}

// Scan returns the cached verdict for an address, scanning it first when
// nothing is cached. Safe and Threat are terminal until Rescan or Clear.
func (s *ScanService) Scan(ctx context.Context, address string) (*Verdict, error) {
	key, err := s.key(address)
	if err != nil {
		return nil, err
	}

	verdict, found, err := s.cache.Lookup(ctx, key)
	if err != nil {
		s.logger.Warn("Cache lookup failed, scanning anyway",
			zap.String("address", key),
			zap.Error(err))
	}
	metrics.ObserveCacheLookup(found)
	if found {
		s.logger.Debug("Cache hit for address", zap.String("address", key))
		return verdict, nil
	}

	return s.scan(ctx, key)
}

// Rescan re-executes the full pipeline for an address and overwrites the
// cached verdict.
func (s *ScanService) Rescan(ctx context.Context, address string) (*Verdict, error) {
	key, err := s.key(address)
	if err != nil {
		return nil, err
	}
	return s.scan(ctx, key)
}

// scan runs the pipeline once per address at a time. Callers arriving while
// the address is Scanning join the in-flight scan and share its verdict.
func (s *ScanService) scan(ctx context.Context, key string) (*Verdict, error) {
	// The pipeline is not cancelled when a caller goes away
	detached := context.WithoutCancel(ctx)

	result, _, shared := s.inflight.Do(key, func() (interface{}, error) {
		return s.runPipeline(detached, key), nil
	})
	if shared {
		metrics.ObserveJoinedScan()
		s.logger.Debug("Joined in-flight scan", zap.String("address", key))
	}

	verdict, ok := result.(*Verdict)
	if !ok || verdict == nil {
		return nil, fmt.Errorf("scan of %s produced no verdict", key)
	}
	return verdict, nil
}

func (s *ScanService) runPipeline(ctx context.Context, key string) *Verdict {
	scanID := uuid.NewString()
	start := time.Now()
	logger := s.logger.With(zap.String("address", key), zap.String("scan_id", scanID))

	s.transition(ctx, ScanEvent{Address: key, State: StateScanning})

	var verdict *Verdict
	var vector features.Vector
	if s.whitelist.IsWhitelisted(features.Host(key)) {
		vector = s.extractor.Extract(key, nil)
		verdict = &Verdict{
			Address:    key,
			RiskLevel:  scoring.RiskLow,
			Confidence: scoring.Confidence(0),
			Source:     SourceWhitelist,
		}
	} else {
		signals := s.fetchSignals(ctx, key, logger)
		vector = s.extractor.Extract(key, signals)

		var err error
		verdict, err = s.scoreRemote(ctx, key, signals)
		if err != nil {
			logger.Warn("Remote scoring failed, using local fallback", zap.Error(err))
			metrics.ObserveRemoteFailure(failureReason(err))
			verdict = s.fallbackVerdict(key, vector)
		}
	}
	attributions := explain.Explain(vector, s.weights)
	local := scoring.Evaluate(vector, s.weights)

	verdict.ScanID = scanID
	verdict.ScannedAt = time.Now().UTC()
	verdict.ModelScore = local.Score
	verdict.Features = vector
	verdict.Explanations = attributions
	verdict.Highlights = explain.Highlights(attributions)
	if len(verdict.Reasons) == 0 {
		verdict.Reasons = explain.TopReasons(attributions, maxReasons)
	}

	if err := s.cache.Upsert(ctx, verdict); err != nil {
		logger.Error("Failed to update cache", zap.Error(err))
	}
	if err := s.cache.RecordScan(ctx, verdict.IsThreat); err != nil {
		logger.Error("Failed to record scan", zap.Error(err))
	}

	state := StateSafe
	if verdict.IsThreat {
		state = StateThreat
	}
	s.transition(ctx, ScanEvent{Address: key, State: state, Verdict: verdict})

	if s.notifier != nil && s.shouldNotify(verdict) {
		err := s.notifier.NotifyThreat(ctx, verdict)
		metrics.ObserveNotification(err)
		if err != nil {
			logger.Error("Failed to send threat notification", zap.Error(err))
		}
	}

	duration := time.Since(start)
	metrics.ObserveScan(verdict.Source, verdict.IsThreat, duration)
	logger.Info("Scan completed",
		zap.Bool("is_threat", verdict.IsThreat),
		zap.String("risk_level", string(verdict.RiskLevel)),
		zap.Float64("score", verdict.Score),
		zap.String("source", verdict.Source),
		zap.Duration("duration", duration))

	return verdict
}

func (s *ScanService) shouldNotify(verdict *Verdict) bool {
	if !s.notifyLevel.Permits(verdict) {
		return false
	}
	return !s.highRiskOnly || verdict.RiskLevel == scoring.RiskHigh
}

// fetchSignals never fails; missing content just means address-only features
func (s *ScanService) fetchSignals(ctx context.Context, key string, logger *zap.Logger) *features.ContentSignals {
	if s.fetcher == nil {
		return nil
	}

	fctx := ctx
	if s.contentTimeout > 0 {
		var cancel context.CancelFunc
		fctx, cancel = context.WithTimeout(ctx, s.contentTimeout)
		defer cancel()
	}

	signals, err := s.fetcher.FetchSignals(fctx, key)
	if err != nil {
		metrics.ObserveContentUnavailable()
		logger.Info("Content signals unavailable, using address features only", zap.Error(err))
		return nil
	}
	return signals
}

func (s *ScanService) scoreRemote(ctx context.Context, key string, signals *features.ContentSignals) (*Verdict, error) {
	if s.remote == nil {
		return nil, fmt.Errorf("%w: no remote scorer configured", ErrTransport)
	}
	if s.limiter != nil && !s.limiter.Allow() {
		return nil, ErrRateLimited
	}

	rctx := ctx
	if s.remoteTimeout > 0 {
		var cancel context.CancelFunc
		rctx, cancel = context.WithTimeout(ctx, s.remoteTimeout)
		defer cancel()
	}

	var result *RemoteResult
	var err error
	if signals != nil {
		result, err = s.remote.ScoreContent(rctx, key, signals)
	} else {
		result, err = s.remote.ScoreAddress(rctx, key)
	}
	if err != nil {
		return nil, err
	}
	if err := validateRemoteResult(result); err != nil {
		return nil, err
	}

	confidence := result.Confidence
	if confidence <= 0 {
		confidence = scoring.Confidence(result.Score)
	}

	return &Verdict{
		Address:    key,
		IsThreat:   result.IsPhishing,
		RiskLevel:  result.ThreatLevel,
		Score:      result.Score,
		Confidence: confidence,
		Source:     SourceRemote,
		Reasons:    result.Explanations,
	}, nil
}

func validateRemoteResult(result *RemoteResult) error {
	if result == nil {
		return fmt.Errorf("%w: empty result", ErrInvalidResponse)
	}
	if result.Score < 0 || result.Score > 1 {
		return fmt.Errorf("%w: score %v out of range", ErrInvalidResponse, result.Score)
	}
	if _, ok := scoring.ParseRiskLevel(string(result.ThreatLevel)); !ok {
		return fmt.Errorf("%w: unknown threat level %q", ErrInvalidResponse, result.ThreatLevel)
	}
	return nil
}

func (s *ScanService) fallbackVerdict(key string, vector features.Vector) *Verdict {
	a := EvaluateFallback(key, vector)
	return &Verdict{
		Address:    key,
		IsThreat:   a.IsThreat,
		RiskLevel:  a.RiskLevel,
		Score:      a.Probability,
		Confidence: scoring.Confidence(a.Probability),
		Source:     SourceFallback,
	}
}

// Assess scores an address locally with the weighted model without touching
// the cache or the remote scorer.
func (s *ScanService) Assess(address string, signals *features.ContentSignals) *LocalReport {
	key, err := features.Normalize(address)
	if err != nil {
		key = strings.TrimSpace(address)
	}
	vector := s.extractor.Extract(key, signals)
	return AssessVector(key, vector, s.weights)
}

// AssessVector scores an already extracted vector
func AssessVector(address string, vector features.Vector, weights scoring.WeightTable) *LocalReport {
	attributions := explain.Explain(vector, weights)
	return &LocalReport{
		Address:      address,
		Features:     vector,
		Assessment:   scoring.Evaluate(vector, weights),
		Explanations: attributions,
		Highlights:   explain.Highlights(attributions),
	}
}

// Weights returns the weight table in use
func (s *ScanService) Weights() scoring.WeightTable {
	return s.weights
}

// State returns the pipeline state of an address. Addresses that were never
// scanned by this process are Unknown.
func (s *ScanService) State(address string) ScanState {
	key, err := s.key(address)
	if err != nil {
		return StateUnknown
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if state, ok := s.states[key]; ok {
		return state
	}
	return StateUnknown
}

// Lookup returns the cached verdict for an address
func (s *ScanService) Lookup(ctx context.Context, address string) (*Verdict, bool, error) {
	key, err := s.key(address)
	if err != nil {
		return nil, false, err
	}
	return s.cache.Lookup(ctx, key)
}

// Stats returns the aggregate scan counters
func (s *ScanService) Stats(ctx context.Context) (Stats, error) {
	return s.cache.Stats(ctx)
}

// SafeAddresses returns the addresses currently cached as safe
func (s *ScanService) SafeAddresses(ctx context.Context) ([]string, error) {
	return s.cache.SafeAddresses(ctx)
}

// ThreatVerdicts returns the cached threat verdicts
func (s *ScanService) ThreatVerdicts(ctx context.Context) ([]*Verdict, error) {
	return s.cache.ThreatVerdicts(ctx)
}

// Clear empties the cache, zeroes the stats and forgets pipeline states
func (s *ScanService) Clear(ctx context.Context) error {
	if err := s.cache.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear verdict cache: %w", err)
	}
	s.mu.Lock()
	s.states = make(map[string]ScanState)
	s.mu.Unlock()

	s.logger.Info("Verdict cache cleared")
	return nil
}

// SubmitFeedback records a user's judgement of the cached verdict for an
// address. It fails with ErrNoVerdict when nothing is cached.
func (s *ScanService) SubmitFeedback(ctx context.Context, address string, isCorrect bool, comments string) (*Feedback, error) {
	key, err := s.key(address)
	if err != nil {
		return nil, err
	}

	verdict, found, err := s.cache.Lookup(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to look up verdict: %w", err)
	}
	if !found {
		return nil, fmt.Errorf("%w: %s", ErrNoVerdict, key)
	}

	feedback := &Feedback{
		ID:        uuid.NewString(),
		Address:   key,
		ScanID:    verdict.ScanID,
		WasThreat: verdict.IsThreat,
		IsCorrect: isCorrect,
		Comments:  strings.TrimSpace(comments),
		CreatedAt: time.Now().UTC(),
	}
	if err := s.cache.SaveFeedback(ctx, feedback); err != nil {
		return nil, fmt.Errorf("failed to save feedback: %w", err)
	}

	s.logger.Info("Feedback recorded",
		zap.String("address", key),
		zap.String("feedback_id", feedback.ID),
		zap.Bool("was_threat", feedback.WasThreat),
		zap.Bool("is_correct", isCorrect))
	return feedback, nil
}

// Feedback returns the judgements recorded for an address
func (s *ScanService) Feedback(ctx context.Context, address string) ([]*Feedback, error) {
	key, err := s.key(address)
	if err != nil {
		return nil, err
	}
	return s.cache.Feedback(ctx, key)
}

func (s *ScanService) transition(ctx context.Context, event ScanEvent) {
	s.mu.Lock()
	s.states[event.Address] = event.State
	sinks := make([]EventSink, len(s.sinks))
	copy(sinks, s.sinks)
	s.mu.Unlock()

	for _, sink := range sinks {
		sink.Publish(ctx, event)
	}
}

// key normalizes an address into its cache key. Unparseable addresses are
// still scanned under their trimmed form so they resolve to a verdict.
func (s *ScanService) key(address string) (string, error) {
	key, err := features.Normalize(address)
	if err == nil {
		return key, nil
	}
	trimmed := strings.TrimSpace(address)
	if trimmed == "" {
		return "", err
	}
	return trimmed, nil
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, ErrInvalidResponse):
		return "invalid_response"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "transport"
	}
}
