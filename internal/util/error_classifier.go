package util

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/url"
	"strings"

	"github.com/jackc/pgx/v5"

	"replyflow/internal/model"
)

// IsRetryableError determines whether an error is worth retrying.
// Returns (isRetryable, errorType).
func IsRetryableError(err error) (bool, string) {
	if err == nil {
		return false, ""
	}

	errStr := err.Error()

	// malformed data never becomes well-formed on retry
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return false, "json_decode_error"
	}
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return false, "json_decode_error"
	}
	if strings.Contains(errStr, "json:") {
		return false, "json_decode_error"
	}

	if model.IsValidation(err) {
		return false, "validation_error"
	}

	// database errors
	if errors.Is(err, pgx.ErrNoRows) || errors.Is(err, model.ErrNotFound) {
		return false, "not_found"
	}
	if strings.Contains(errStr, "duplicate key") || strings.Contains(errStr, "UNIQUE constraint") {
		return false, "duplicate_key"
	}
	if strings.Contains(errStr, "connection") || strings.Contains(errStr, "timeout") {
		return true, "db_connection_error"
	}

	// network errors
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return true, "network_timeout"
		}
		return true, "network_error"
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		if urlErr.Timeout() {
			return true, "network_timeout"
		}
		return true, "network_error"
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true, "timeout"
	}
	if errors.Is(err, context.Canceled) {
		return false, "context_canceled"
	}

	// provider HTTP errors, classified by the client
	if strings.Contains(errStr, "provider returned 5xx") {
		return true, "provider_error"
	}
	if strings.Contains(errStr, "provider returned 429") {
		return true, "provider_rate_limited"
	}
	if strings.Contains(errStr, "provider returned 4xx") {
		return false, "provider_rejected"
	}
	if strings.Contains(errStr, "failed to call provider") {
		return true, "provider_unavailable"
	}

	// unknown errors are handled conservatively: no retry
	return false, "unknown_error"
}

// ShouldRetry checks whether an error should be retried given the retry
// budget already consumed.
func ShouldRetry(retryCount int64, maxRetries int64, isRetryable bool) bool {
	if !isRetryable {
		return false
	}
	return retryCount <= maxRetries
}
