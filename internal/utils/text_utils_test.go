package utils

import (
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"
)

func TestTruncateText(t *testing.T) {
	tp := NewTextProcessor(zaptest.NewLogger(t))

	assert.Equal(t, "short", tp.TruncateText("short", 10))
	assert.Equal(t, "anything", tp.TruncateText("anything", 0))

	out := tp.TruncateText("héllo wörld", 2)
	assert.True(t, utf8.ValidString(out))
	assert.Equal(t, "h…[truncated]", out)
}

func TestShortenAddress(t *testing.T) {
	tp := NewTextProcessor(zaptest.NewLogger(t))

	long := "http://paypal.com-secure-login.xyz/account/verify/session/1234567890"
	short := tp.ShortenAddress(long, 50)
	assert.Equal(t, 50, utf8.RuneCountInString(short))
	assert.Equal(t, long[:47]+"...", short)

	assert.Equal(t, "http://a.io", tp.ShortenAddress("http://a.io", 50))
}

func TestSanitizeUTF8(t *testing.T) {
	tp := NewTextProcessor(zaptest.NewLogger(t))

	assert.Equal(t, "ok", tp.SanitizeUTF8("ok"))
	assert.Equal(t, "ab", tp.SanitizeUTF8("a\xffb"))
	assert.Equal(t, "ab", tp.ProcessText("a\xffb", 10))
}

func TestFold(t *testing.T) {
	tp := NewTextProcessor(zaptest.NewLogger(t))

	assert.Equal(t, "password", tp.Fold("PASSWORD"))
	// full-width letters collapse under NFKC
	assert.Equal(t, "login", tp.Fold("ＬＯＧＩＮ"))
	assert.Equal(t, "strasse", tp.Fold("STRASSE"))
}
