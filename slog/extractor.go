package slog

import (
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/fwojciec/docindex"
)

// Ensure LoggingExtractor implements docindex.Extractor.
var _ docindex.Extractor = (*LoggingExtractor)(nil)

// LoggingExtractor wraps an Extractor with debug logging.
type LoggingExtractor struct {
	next   docindex.Extractor
	kind   docindex.ContentType
	logger *slog.Logger
}

// NewLoggingExtractor creates a new LoggingExtractor for extractors of
// content type kind.
func NewLoggingExtractor(next docindex.Extractor, kind docindex.ContentType, logger *slog.Logger) *LoggingExtractor {
	return &LoggingExtractor{next: next, kind: kind, logger: logger}
}

// Extract delegates to the wrapped extractor and logs the operation.
func (e *LoggingExtractor) Extract(raw []byte) (result *docindex.ExtractResult, err error) {
	defer func(begin time.Time) {
		var chars int
		if result != nil {
			chars = utf8.RuneCountInString(result.Text)
		}
		e.logger.Debug("extract",
			"type", e.kind,
			"bytes", len(raw),
			"chars", chars,
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return e.next.Extract(raw)
}

// LoggingExtractors wraps every extractor in extractors.
func LoggingExtractors(extractors docindex.Extractors, logger *slog.Logger) docindex.Extractors {
	out := make(docindex.Extractors, len(extractors))
	for kind, ex := range extractors {
		out[kind] = NewLoggingExtractor(ex, kind, logger)
	}
	return out
}
