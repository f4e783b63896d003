package core

import (
	"errors"

	"github.com/mikey/phishguard/internal/features"
)

var (
	// ErrCacheMiss is returned when no verdict is cached for an address
	ErrCacheMiss = errors.New("cache entry not found")
	// ErrTransport is returned when the remote scorer cannot be reached or answers non-2xx
	ErrTransport = errors.New("remote scorer transport failure")
	// ErrInvalidResponse is returned when the remote payload is missing required fields
	ErrInvalidResponse = errors.New("invalid remote scorer response")
	// ErrRateLimited is returned when the remote call budget is exhausted
	ErrRateLimited = errors.New("remote scorer rate limited")
	// ErrContentUnavailable is returned when page signals cannot be retrieved
	ErrContentUnavailable = errors.New("content unavailable")
	// ErrNoVerdict is returned when feedback targets an address without a cached verdict
	ErrNoVerdict = errors.New("no verdict recorded for address")
	// ErrCacheClosed is returned when the cache service has been stopped
	ErrCacheClosed = errors.New("verdict cache closed")
	// ErrMalformedAddress is returned for addresses that cannot be parsed
	ErrMalformedAddress = features.ErrMalformedAddress
)
