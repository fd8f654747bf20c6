package dispatch

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"replyflow/config"
	"replyflow/internal/model"
)

func newTestDispatcher(t *testing.T, handler http.HandlerFunc) (*ProviderDispatcher, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	d := NewProviderDispatcher(config.ProviderConfig{
		BaseURL: srv.URL,
		Token:   "test-token",
		Timeout: 2 * time.Second,
	}, "me@example.com", zap.NewNop())
	return d, srv
}

func testEmail() *model.Email {
	return &model.Email{
		ID:       "email123",
		ThreadID: "thread123",
		From:     "john@example.com",
		To:       "me@example.com",
		Subject:  "Q3 Invoice",
		Body:     "Please find the invoice attached.",
	}
}

func TestExecuteReplySuccess(t *testing.T) {
	var gotPath string
	var gotAuth string
	var payload map[string]any

	d, _ := newTestDispatcher(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&payload)
		w.WriteHeader(http.StatusOK)
	})

	action := model.ReplyAction{Template: "I am out of the office.", Tone: model.ToneProfessional}
	outcome := d.Execute(context.Background(), action, testEmail())

	require.True(t, outcome.Success, "outcome error: %s", outcome.Error)
	assert.Equal(t, "I am out of the office.", outcome.SentContent)
	assert.Equal(t, "/messages/send", gotPath)
	assert.Equal(t, "Bearer test-token", gotAuth)
	assert.Equal(t, "thread123", payload["threadId"])
	assert.Equal(t, "professional", payload["tone"])
	assert.NotEmpty(t, payload["raw"])
}

func TestExecuteForward(t *testing.T) {
	var payload map[string]any
	d, _ := newTestDispatcher(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&payload)
		w.WriteHeader(http.StatusOK)
	})

	outcome := d.Execute(context.Background(), model.ForwardAction{ForwardTo: "accounting@example.com"}, testEmail())

	require.True(t, outcome.Success)
	assert.Empty(t, outcome.SentContent, "forward carries no sent content")
	assert.Equal(t, "email123", payload["messageId"])
	assert.Equal(t, "accounting@example.com", payload["to"])
}

func TestExecuteProviderRejection(t *testing.T) {
	var calls atomic.Int32
	d, _ := newTestDispatcher(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	})

	outcome := d.Execute(context.Background(), model.ArchiveAction{}, testEmail())

	assert.False(t, outcome.Success)
	assert.Contains(t, outcome.Error, "4xx")
	assert.Equal(t, int32(1), calls.Load(), "4xx must not be retried")
}

func TestExecuteRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	d, _ := newTestDispatcher(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	outcome := d.Execute(context.Background(), model.LabelAction{Label: "newsletter"}, testEmail())

	assert.True(t, outcome.Success, "outcome error: %s", outcome.Error)
	assert.Equal(t, int32(3), calls.Load(), "5xx should be retried until success")
}

func TestExecuteExhaustsRetryBudget(t *testing.T) {
	var calls atomic.Int32
	d, _ := newTestDispatcher(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	})

	outcome := d.Execute(context.Background(), model.ArchiveAction{}, testEmail())

	assert.False(t, outcome.Success)
	assert.Contains(t, outcome.Error, "429")
	assert.Equal(t, int32(maxAttempts), calls.Load())
}

func TestBuildReplyMessage(t *testing.T) {
	raw, err := BuildReplyMessage("me@example.com", testEmail(), "Thanks, I'll reply soon.")
	require.NoError(t, err)

	msg := string(raw)
	assert.Contains(t, msg, "To: <john@example.com>")
	assert.Contains(t, msg, "Subject: Re: Q3 Invoice")
	assert.Contains(t, msg, "In-Reply-To:")
	assert.Contains(t, msg, "Thanks, I'll reply soon.")
}

func TestBuildReplyMessageKeepsExistingRePrefix(t *testing.T) {
	email := testEmail()
	email.Subject = "Re: Q3 Invoice"
	raw, err := BuildReplyMessage("me@example.com", email, "ok")
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "Re: Re:")
}
