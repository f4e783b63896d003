package utils

import (
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// truncationMarker is appended to text cut by TruncateText
const truncationMarker = "…[truncated]"

// TextProcessor normalizes untrusted page and address text before it reaches
// a prompt, a notification or a keyword matcher
type TextProcessor struct {
	logger *zap.Logger
	folder cases.Caser
}

// NewTextProcessor creates a new TextProcessor
func NewTextProcessor(logger *zap.Logger) *TextProcessor {
	return &TextProcessor{
		logger: logger,
		folder: cases.Fold(),
	}
}

// TruncateText cuts text to at most maxBytes bytes on a rune boundary and
// marks the cut. A non-positive maxBytes disables the limit.
func (tp *TextProcessor) TruncateText(text string, maxBytes int) string {
	if maxBytes <= 0 || len(text) <= maxBytes {
		return text
	}

	cut := maxBytes
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}

	tp.logger.Debug("Truncated oversized text",
		zap.Int("size", len(text)),
		zap.Int("limit", maxBytes))

	return text[:cut] + truncationMarker
}

// ShortenAddress truncates an address for display to at most maxChars runes,
// marking the cut with an ellipsis
func (tp *TextProcessor) ShortenAddress(address string, maxChars int) string {
	if maxChars <= 0 || utf8.RuneCountInString(address) <= maxChars {
		return address
	}
	if maxChars <= 3 {
		return string([]rune(address)[:maxChars])
	}
	return string([]rune(address)[:maxChars-3]) + "..."
}

// SanitizeUTF8 drops invalid UTF-8 sequences
func (tp *TextProcessor) SanitizeUTF8(text string) string {
	if utf8.ValidString(text) {
		return text
	}
	clean := strings.ToValidUTF8(text, "")
	tp.logger.Debug("Dropped invalid UTF-8",
		zap.Int("size", len(text)),
		zap.Int("clean_size", len(clean)))
	return clean
}

// Fold normalizes text for keyword matching: NFKC compatibility forms (so
// full-width and ligature look-alikes collapse) followed by case folding
func (tp *TextProcessor) Fold(text string) string {
	return tp.folder.String(norm.NFKC.String(tp.SanitizeUTF8(text)))
}

// ProcessText sanitizes and bounds text in one step
func (tp *TextProcessor) ProcessText(text string, maxBytes int) string {
	return tp.TruncateText(tp.SanitizeUTF8(text), maxBytes)
}
