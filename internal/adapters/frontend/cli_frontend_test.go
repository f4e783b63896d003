package frontend

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/mikey/phishguard/internal/core"
	"github.com/mikey/phishguard/internal/features"
	"github.com/mikey/phishguard/internal/status"
)

func TestCLIScanText(t *testing.T) {
	var out bytes.Buffer
	cli := NewCLIFrontend(newTestService(t), zaptest.NewLogger(t), &out, true, false)

	v, err := cli.Scan(context.Background(), "http://paypal.com-secure-login.xyz", false)
	require.NoError(t, err)
	assert.True(t, v.IsThreat)

	text := out.String()
	assert.Contains(t, text, "Threat: true")
	assert.Contains(t, text, "Risk level: High")
	assert.Contains(t, text, "Source: fallback")
	assert.Contains(t, text, "=== Attribution ===")
	assert.Contains(t, text, "Suspicious top-level domain")
}

func TestCLIScanJSON(t *testing.T) {
	var out bytes.Buffer
	cli := NewCLIFrontend(newTestService(t), zaptest.NewLogger(t), &out, false, true)

	_, err := cli.Scan(context.Background(), "https://example.com", false)
	require.NoError(t, err)

	var v core.Verdict
	require.NoError(t, json.Unmarshal(out.Bytes(), &v))
	assert.Equal(t, "https://example.com", v.Address)
	assert.False(t, v.IsThreat)
}

func TestCLIExplain(t *testing.T) {
	var out bytes.Buffer
	cli := NewCLIFrontend(newTestService(t), zaptest.NewLogger(t), &out, true, false)

	report, err := cli.Explain("https://example.com", nil)
	require.NoError(t, err)
	assert.Empty(t, report.Explanations)
	assert.Contains(t, out.String(), "No contributing features")
	assert.Contains(t, out.String(), string(features.HasIPAddress))
}

func TestCLIStatusListClear(t *testing.T) {
	var out bytes.Buffer
	svc := newTestService(t)
	cli := NewCLIFrontend(svc, zaptest.NewLogger(t), &out, false, false)
	ctx := context.Background()

	st, err := cli.Status(ctx, "http://192.168.0.1/login")
	require.NoError(t, err)
	assert.Equal(t, status.Unknown, st)

	_, err = cli.Scan(ctx, "http://192.168.0.1/login", false)
	require.NoError(t, err)
	_, err = cli.Scan(ctx, "https://example.com", false)
	require.NoError(t, err)

	st, err = cli.Status(ctx, "http://192.168.0.1/login")
	require.NoError(t, err)
	assert.Equal(t, status.Danger, st)

	out.Reset()
	require.NoError(t, cli.List(ctx))
	assert.Contains(t, out.String(), "=== Threats (1) ===")
	assert.Contains(t, out.String(), "=== Safe (1) ===")

	stats, err := cli.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.TotalScans)

	require.NoError(t, cli.Clear(ctx))
	stats, err = svc.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.TotalScans)
}

func TestCLIFeedback(t *testing.T) {
	var out bytes.Buffer
	svc := newTestService(t)
	cli := NewCLIFrontend(svc, zaptest.NewLogger(t), &out, false, false)
	ctx := context.Background()

	_, err := cli.Feedback(ctx, "https://example.com", true, "")
	require.ErrorIs(t, err, core.ErrNoVerdict)

	_, err = svc.Scan(ctx, "https://example.com")
	require.NoError(t, err)

	fb, err := cli.Feedback(ctx, "https://example.com", false, "missed it")
	require.NoError(t, err)
	assert.False(t, fb.WasThreat)
	assert.Contains(t, out.String(), "Feedback "+fb.ID+" recorded for https://example.com (verdict correct: false)")
}
