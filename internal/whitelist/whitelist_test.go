package whitelist

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"
)

func TestIsWhitelisted(t *testing.T) {
	c := NewChecker([]string{" Example.com ", "paypal.com.", ""}, zaptest.NewLogger(t))

	tests := []struct {
		host string
		want bool
	}{
		{"example.com", true},
		{"www.example.com", true},
		{"EXAMPLE.COM.", true},
		{"notexample.com", false},
		{"example.com.evil.xyz", false},
		{"paypal.com", true},
		{"paypal.com-secure-login.xyz", false},
		{"", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, c.IsWhitelisted(tt.host), tt.host)
	}
}

func TestEmptyChecker(t *testing.T) {
	var nilChecker *Checker
	assert.False(t, nilChecker.IsWhitelisted("example.com"))
	assert.False(t, NewChecker(nil, nil).IsWhitelisted("example.com"))
}
