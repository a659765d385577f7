package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnsupportedFormat     = errors.New("unsupported format")
	ErrExtractionFailed      = errors.New("extraction failed")
	ErrEnrichmentUnavailable = errors.New("enrichment unavailable")
)

// StrategyAttempt records why one extraction strategy was rejected.
type StrategyAttempt struct {
	Strategy string
	Err      error
}

// ExtractionFailure is returned when no strategy produced usable text.
type ExtractionFailure struct {
	Filename string
	Attempts []StrategyAttempt
}

func (e *ExtractionFailure) Error() string {
	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		parts = append(parts, fmt.Sprintf("%s: %v", a.Strategy, a.Err))
	}
	return fmt.Sprintf("%v for %s (attempted %s)", ErrExtractionFailed, e.Filename, strings.Join(parts, "; "))
}

func (e *ExtractionFailure) Is(target error) bool {
	return target == ErrExtractionFailed
}

// Strategies returns the attempted strategy names in order.
func (e *ExtractionFailure) Strategies() []string {
	out := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		out = append(out, a.Strategy)
	}
	return out
}
