package engine

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"
)

// Category classifies a capability failure for retry decisions and
// escalation records.
type Category string

const (
	CategoryNetwork        Category = "network"
	CategoryTimeout        Category = "timeout"
	CategoryAuthentication Category = "authentication"
	CategoryPermission     Category = "permission"
	CategoryValidation     Category = "validation"
	CategoryAPI            Category = "api"
	CategoryUnknown        Category = "unknown"
)

// Retryable reports whether failures in this category are worth
// retrying. Permission and validation failures are deterministic: the
// same call will fail the same way, so they propagate immediately.
func (c Category) Retryable() bool {
	return c != CategoryPermission && c != CategoryValidation
}

// categoryMarkers maps each category to the error-text fragments that
// identify it. Evaluated in classifyOrder so the more specific
// categories claim their fragments first ("connection timed out" is a
// timeout, not a network failure; "invalid credentials" is
// authentication, not validation).
var categoryMarkers = map[Category][]string{
	CategoryTimeout:        {"timeout", "timed out", "deadline exceeded"},
	CategoryAuthentication: {"unauthorized", "authentication", "invalid credentials", "token expired", "401"},
	CategoryPermission:     {"permission", "forbidden", "access denied", "403"},
	CategoryValidation:     {"validation", "invalid", "malformed", "bad request", "400"},
	CategoryNetwork:        {"connection", "network", "dns", "refused", "reset", "unreachable", "broken pipe"},
	CategoryAPI:            {"api", "rate limit", "too many requests", "unavailable", "429", "500", "502", "503"},
}

var classifyOrder = []Category{
	CategoryTimeout,
	CategoryAuthentication,
	CategoryPermission,
	CategoryValidation,
	CategoryNetwork,
	CategoryAPI,
}

// Classify maps an error to its failure category by inspecting the
// error text. Capability clients are black boxes, so text matching is
// the only signal available at this boundary.
func Classify(err error) Category {
	if err == nil {
		return CategoryUnknown
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return CategoryTimeout
	}

	msg := strings.ToLower(err.Error())
	for _, cat := range classifyOrder {
		for _, marker := range categoryMarkers[cat] {
			if strings.Contains(msg, marker) {
				return cat
			}
		}
	}
	return CategoryUnknown
}

// RetryConfig tunes the exponential-backoff retry loop.
// Configuration, not persisted state.
type RetryConfig struct {
	// MaxRetries is the number of retries after the first attempt, so an
	// operation runs at most MaxRetries+1 times.
	MaxRetries int

	// InitialDelay is the wait before the first retry.
	InitialDelay time.Duration

	// BackoffFactor multiplies the delay after each retry.
	BackoffFactor float64

	// MaxDelay caps the per-retry delay.
	MaxDelay time.Duration
}

// DefaultRetryConfig matches the engine's production defaults.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:    3,
		InitialDelay:  time.Second,
		BackoffFactor: 2,
		MaxDelay:      30 * time.Second,
	}
}

// withRetry runs op with exponential-backoff retries.
//
// Fails only after MaxRetries+1 total attempts, or immediately when the
// failure classifies as non-retryable, or when ctx is cancelled during
// backoff. The last error is returned along with its category.
func withRetry(ctx context.Context, cfg RetryConfig, label string, logger *slog.Logger, op func(context.Context) (ActionResult, error)) (ActionResult, Category, error) {
	delay := cfg.InitialDelay
	var lastErr error
	var lastCat Category

	for attempt := 1; attempt <= cfg.MaxRetries+1; attempt++ {
		result, err := op(ctx)
		if err == nil {
			return result, "", nil
		}

		lastErr = err
		lastCat = Classify(err)

		if !lastCat.Retryable() {
			logger.Debug("action failed, not retryable",
				"label", label,
				"category", string(lastCat),
				"error", err)
			return ActionResult{}, lastCat, err
		}
		if attempt == cfg.MaxRetries+1 {
			break
		}

		logger.Debug("action failed, retrying",
			"label", label,
			"attempt", attempt,
			"category", string(lastCat),
			"delay", delay,
			"error", err)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ActionResult{}, lastCat, ctx.Err()
		}

		delay = time.Duration(float64(delay) * cfg.BackoffFactor)
		if delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}
	}

	logger.Debug("action failed, retries exhausted",
		"label", label,
		"attempts", cfg.MaxRetries+1,
		"category", string(lastCat),
		"error", lastErr)
	return ActionResult{}, lastCat, lastErr
}
