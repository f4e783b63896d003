package status

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/mikey/phishguard/internal/core"
)

type fakeSource struct {
	state   core.ScanState
	verdict *core.Verdict
	err     error
	lookups int
}

func (s *fakeSource) State(string) core.ScanState {
	return s.state
}

func (s *fakeSource) Lookup(context.Context, string) (*core.Verdict, bool, error) {
	s.lookups++
	return s.verdict, s.verdict != nil, s.err
}

func TestResolve(t *testing.T) {
	threat := &core.Verdict{IsThreat: true}
	safe := &core.Verdict{}

	tests := []struct {
		name    string
		verdict *core.Verdict
		found   bool
		state   core.ScanState
		want    Status
	}{
		{"nothing known", nil, false, core.StateUnknown, Unknown},
		{"scanning wins over cache", threat, true, core.StateScanning, Scanning},
		{"cached threat", threat, true, core.StateUnknown, Danger},
		{"cached safe", safe, true, core.StateUnknown, Safe},
		{"cache wins over stale state", safe, true, core.StateThreat, Safe},
		{"state only threat", nil, false, core.StateThreat, Danger},
		{"state only safe", nil, false, core.StateSafe, Safe},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Resolve(tt.verdict, tt.found, tt.state))
		})
	}
}

func TestCurrent(t *testing.T) {
	ctx := context.Background()

	scanning := &fakeSource{state: core.StateScanning}
	st, v, err := Current(ctx, scanning, "https://a.example")
	require.NoError(t, err)
	assert.Equal(t, Scanning, st)
	assert.Nil(t, v)
	assert.Zero(t, scanning.lookups)

	cached := &fakeSource{verdict: &core.Verdict{Address: "https://a.example", IsThreat: true}}
	st, v, err = Current(ctx, cached, "https://a.example")
	require.NoError(t, err)
	assert.Equal(t, Danger, st)
	assert.Equal(t, "https://a.example", v.Address)

	failing := &fakeSource{err: errors.New("cache down")}
	st, _, err = Current(ctx, failing, "https://a.example")
	assert.Error(t, err)
	assert.Equal(t, Unknown, st)
}

func TestFeed(t *testing.T) {
	feed := NewFeed(zaptest.NewLogger(t))

	var mu sync.Mutex
	var got []Update
	unsubscribe := feed.Subscribe(func(u Update) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, u)
	})

	verdict := &core.Verdict{Address: "https://a.example", IsThreat: true}
	feed.Publish(context.Background(), core.ScanEvent{Address: "https://a.example", State: core.StateScanning})
	feed.Publish(context.Background(), core.ScanEvent{Address: "https://a.example", State: core.StateThreat, Verdict: verdict})

	unsubscribe()
	feed.Publish(context.Background(), core.ScanEvent{Address: "https://b.example", State: core.StateSafe})

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, got, 2)
	assert.Equal(t, Scanning, got[0].Status)
	assert.Equal(t, Danger, got[1].Status)
	assert.Same(t, verdict, got[1].Verdict)
}
