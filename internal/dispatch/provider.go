package dispatch

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"replyflow/config"
	"replyflow/internal/model"
	"replyflow/internal/util"
	"replyflow/pkg/circuitbreaker"
	"replyflow/pkg/metrics"
)

const (
	maxAttempts    = 3
	initialBackoff = 500 * time.Millisecond
)

// ProviderDispatcher executes actions against the mail provider's HTTP
// API. Every request carries the client timeout; retryable failures are
// retried with bounded exponential backoff behind a circuit breaker.
type ProviderDispatcher struct {
	baseURL    string
	token      string
	from       string
	httpClient *http.Client
	breaker    *circuitbreaker.CircuitBreaker
	logger     *zap.Logger
}

func NewProviderDispatcher(cfg config.ProviderConfig, from string, logger *zap.Logger) *ProviderDispatcher {
	return &ProviderDispatcher{
		baseURL: cfg.BaseURL,
		token:   cfg.Token,
		from:    from,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		breaker: circuitbreaker.NewCircuitBreaker(circuitbreaker.DefaultConfig()),
		logger:  logger,
	}
}

// Execute performs the action's side effect. The returned Outcome carries
// the content actually sent for reply actions, or a human-readable error
// message on failure. The tone on a reply action is forwarded as a hint
// and never changes matching semantics.
func (d *ProviderDispatcher) Execute(ctx context.Context, action model.RuleAction, email *model.Email) Outcome {
	start := time.Now()
	outcome := d.execute(ctx, action, email)

	status := "success"
	if !outcome.Success {
		status = "failed"
	}
	metrics.RecordDispatchLatency(string(action.Type()), status, time.Since(start))

	return outcome
}

func (d *ProviderDispatcher) execute(ctx context.Context, action model.RuleAction, email *model.Email) Outcome {
	switch a := action.(type) {
	case model.ReplyAction:
		raw, err := BuildReplyMessage(d.from, email, a.Template)
		if err != nil {
			return Outcome{Error: fmt.Sprintf("failed to build reply: %v", err)}
		}
		payload := map[string]any{
			"threadId": email.ThreadID,
			"raw":      base64.StdEncoding.EncodeToString(raw),
		}
		if a.Tone != "" {
			payload["tone"] = string(a.Tone)
		}
		if err := d.post(ctx, "/messages/send", payload); err != nil {
			return Outcome{Error: err.Error()}
		}
		return Outcome{Success: true, SentContent: a.Template}

	case model.ForwardAction:
		payload := map[string]any{
			"messageId": email.ID,
			"to":        a.ForwardTo,
		}
		if err := d.post(ctx, "/messages/forward", payload); err != nil {
			return Outcome{Error: err.Error()}
		}
		return Outcome{Success: true}

	case model.LabelAction:
		payload := map[string]any{
			"messageId": email.ID,
			"label":     a.Label,
		}
		if err := d.post(ctx, "/messages/label", payload); err != nil {
			return Outcome{Error: err.Error()}
		}
		return Outcome{Success: true}

	case model.ArchiveAction:
		payload := map[string]any{
			"messageId": email.ID,
		}
		if err := d.post(ctx, "/messages/archive", payload); err != nil {
			return Outcome{Error: err.Error()}
		}
		return Outcome{Success: true}

	default:
		return Outcome{Error: fmt.Sprintf("unknown action type %q", action.Type())}
	}
}

// post sends one JSON request, retrying retryable failures with
// exponential backoff up to maxAttempts.
func (d *ProviderDispatcher) post(ctx context.Context, path string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	backoff := initialBackoff
	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		lastErr = d.breaker.Execute(func() error {
			return d.doPost(ctx, path, body)
		})
		if lastErr == nil {
			return nil
		}

		retryable, errType := util.IsRetryableError(lastErr)
		if !retryable || attempt == maxAttempts {
			d.logger.Warn("Provider call failed",
				zap.String("path", path),
				zap.String("error_type", errType),
				zap.Int("attempt", attempt),
				zap.Error(lastErr),
			)
			return lastErr
		}

		d.logger.Debug("Retrying provider call",
			zap.String("path", path),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", backoff),
		)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}

	return lastErr
}

func (d *ProviderDispatcher) doPost(ctx context.Context, path string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+d.token)

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call provider: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 500:
		return fmt.Errorf("provider returned 5xx: %d", resp.StatusCode)
	case resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("provider returned 429: rate limited")
	case resp.StatusCode >= 400:
		return fmt.Errorf("provider returned 4xx: %d", resp.StatusCode)
	}

	return nil
}
