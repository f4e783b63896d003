package cache

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/mikey/phishguard/internal/core"
)

// Options bound the size and lifetime of cached verdicts
type Options struct {
	// TTL is how long a verdict stays live; zero keeps verdicts until cleared
	TTL time.Duration
	// MaxEntries caps the number of cached verdicts; zero means unbounded
	MaxEntries int
}

func (o Options) expiresAt(now time.Time) int64 {
	if o.TTL <= 0 {
		return 0
	}
	return now.Add(o.TTL).UnixNano()
}

func encodeVerdict(v *core.Verdict) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode verdict: %w", err)
	}
	return data, nil
}

func encodeFeedback(f *core.Feedback) ([]byte, error) {
	data, err := json.Marshal(f)
	if err != nil {
		return nil, fmt.Errorf("failed to encode feedback: %w", err)
	}
	return data, nil
}

func decodeFeedback(data []byte) (*core.Feedback, error) {
	var f core.Feedback
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to decode feedback: %w", err)
	}
	return &f, nil
}

func decodeVerdict(data []byte) (*core.Verdict, error) {
	var v core.Verdict
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("failed to decode verdict: %w", err)
	}
	return &v, nil
}
