package mq

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestInvokeHandlerCarriesDeadline(t *testing.T) {
	c := &Consumer{handlerTimeout: time.Second, logger: zap.NewNop()}
	c.SetHandler(func(ctx context.Context, data json.RawMessage) error {
		if _, ok := ctx.Deadline(); !ok {
			t.Error("handler context has no deadline")
		}
		return nil
	})

	if err := c.invokeHandler([]byte(`{}`)); err != nil {
		t.Fatalf("invokeHandler: %v", err)
	}
}

func TestInvokeHandlerCancelsSlowHandler(t *testing.T) {
	c := &Consumer{handlerTimeout: 10 * time.Millisecond, logger: zap.NewNop()}
	c.SetHandler(func(ctx context.Context, data json.RawMessage) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(5 * time.Second):
			return nil
		}
	})

	err := c.invokeHandler([]byte(`{}`))
	if err != context.DeadlineExceeded {
		t.Fatalf("err = %v, want context.DeadlineExceeded", err)
	}
}
