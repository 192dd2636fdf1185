package nats

import (
	"context"
	"testing"
	"time"
)

func TestDispatchBatchRunsHandler(t *testing.T) {
	var got string
	dispatchBatch(context.Background(), func(_ context.Context, batchID string) error {
		got = batchID
		return nil
	}, []byte("batch-1"))

	if got != "batch-1" {
		t.Fatalf("expected handler to receive the batch id, got %q", got)
	}
}

func TestDispatchBatchSkipsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	dispatchBatch(ctx, func(context.Context, string) error {
		t.Fatal("handler must not run after cancellation")
		return nil
	}, []byte("batch-1"))
}

func TestDispatchBatchSkipsExpiredDeadline(t *testing.T) {
	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()

	dispatchBatch(ctx, func(context.Context, string) error {
		t.Fatal("handler must not run after the deadline")
		return nil
	}, []byte("batch-1"))
}
