// Package acquisition downloads genome assemblies from NCBI in batches with
// adaptive retries, a success-rate circuit breaker and resumable state.
package acquisition

import (
	"math"
	"strings"
	"time"
)

// ErrorType classifies a failed batch.
type ErrorType string

const (
	ErrAPILimit    ErrorType = "API_LIMIT"
	ErrStream      ErrorType = "STREAM_ERROR"
	ErrUnknown     ErrorType = "UNKNOWN"
	ErrMaxRetries  ErrorType = "MAX_RETRIES"
	ErrExtraction  ErrorType = "EXTRACTION_ERROR"
	ErrToolMissing ErrorType = "TOOL_UNAVAILABLE"
)

// Classify maps tool stderr onto an ErrorType.
func Classify(stderr string) ErrorType {
	switch {
	case strings.Contains(stderr, "giving up after"), strings.Contains(strings.ToLower(stderr), "gateway"):
		return ErrAPILimit
	case strings.Contains(stderr, "INTERNAL_ERROR"), strings.Contains(stderr, "stream error"):
		return ErrStream
	default:
		return ErrUnknown
	}
}

// RetryPolicy holds the backoff and breaker parameters.
type RetryPolicy struct {
	MaxAttempts   int
	BaseWait      time.Duration
	LinearPenalty time.Duration
	// SuccessFloor is the minimum extracted/processed ratio.
	SuccessFloor float64
	// MinBatches is how many batches must pass before the breaker may trip.
	MinBatches int
}

// DefaultRetryPolicy matches the datasets rate limits observed in practice.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:   5,
		BaseWait:      60 * time.Second,
		LinearPenalty: 10 * time.Second,
		SuccessFloor:  0.95,
		MinBatches:    10,
	}
}

// Multiplier is the exponential base for an error type.
func Multiplier(t ErrorType) float64 {
	if t == ErrAPILimit {
		return 2
	}
	return 1.5
}

// Wait returns the pause before retrying after the zero-based attempt
// failed with t: BaseWait × mult^attempt + attempt × LinearPenalty,
// truncated to whole seconds.
func (p RetryPolicy) Wait(attempt int, t ErrorType) time.Duration {
	exp := float64(p.BaseWait) * math.Pow(Multiplier(t), float64(attempt))
	d := time.Duration(exp) + time.Duration(attempt)*p.LinearPenalty
	return d.Truncate(time.Second)
}

// Trips reports whether the breaker stops the run after a failure in
// batchNum, given extracted of processed genomes.
func (p RetryPolicy) Trips(batchNum, extracted, processed int) bool {
	if batchNum <= p.MinBatches {
		return false
	}
	return SuccessRate(extracted, processed) < p.SuccessFloor
}

// SuccessRate is extracted/processed, zero when nothing was processed.
func SuccessRate(extracted, processed int) float64 {
	if processed <= 0 {
		return 0
	}
	return float64(extracted) / float64(processed)
}
