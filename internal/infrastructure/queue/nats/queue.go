package nats

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/convolveai/yojana-drishti/internal/infrastructure/resilience"
)

const (
	connName   = "yojana-drishti"
	queueGroup = "ingest-workers"

	defaultConnectTimeout = 2 * time.Second
	defaultReconnectWait  = 2 * time.Second
	defaultMaxReconnects  = 60
)

// Queue carries catalog reingest events from the API to the worker.
type Queue struct {
	conn     *nats.Conn
	subject  string
	executor *resilience.Executor
}

type Options struct {
	ConnectTimeout       time.Duration
	ReconnectWait        time.Duration
	MaxReconnects        int
	RetryOnFailedConnect *bool
	ResilienceExecutor   *resilience.Executor
}

func (o Options) connectOptions() []nats.Option {
	connectTimeout := o.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = defaultConnectTimeout
	}
	reconnectWait := o.ReconnectWait
	if reconnectWait <= 0 {
		reconnectWait = defaultReconnectWait
	}
	maxReconnects := o.MaxReconnects
	if maxReconnects <= 0 {
		maxReconnects = defaultMaxReconnects
	}
	retryOnFailedConnect := true
	if o.RetryOnFailedConnect != nil {
		retryOnFailedConnect = *o.RetryOnFailedConnect
	}

	return []nats.Option{
		nats.Name(connName),
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(reconnectWait),
		nats.MaxReconnects(maxReconnects),
		nats.RetryOnFailedConnect(retryOnFailedConnect),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			slog.Warn("nats_disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			slog.Info("nats_reconnected", "url", nc.ConnectedUrl())
		}),
	}
}

func New(url, subject string) (*Queue, error) {
	return NewWithOptions(url, subject, Options{})
}

func NewWithOptions(url, subject string, options Options) (*Queue, error) {
	conn, err := nats.Connect(url, options.connectOptions()...)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &Queue{
		conn:     conn,
		subject:  subject,
		executor: options.ResilienceExecutor,
	}, nil
}

func (q *Queue) Close() {
	if q.conn != nil {
		q.conn.Close()
	}
}

func (q *Queue) PublishCatalogIngest(ctx context.Context, batchID string) error {
	call := func(_ context.Context) error {
		if err := q.conn.Publish(q.subject, []byte(batchID)); err != nil {
			return fmt.Errorf("nats publish: %w", err)
		}
		return nil
	}

	var err error
	if q.executor != nil {
		err = q.executor.Execute(ctx, "nats.publish", call, classifyNATSError)
	} else {
		err = call(ctx)
	}
	return wrapTemporaryIfNeeded(err)
}

// SubscribeCatalogIngest blocks until the context is cancelled, then drains
// the subscription so in-flight batches finish.
func (q *Queue) SubscribeCatalogIngest(ctx context.Context, handler func(context.Context, string) error) error {
	sub, err := q.conn.QueueSubscribe(q.subject, queueGroup, func(msg *nats.Msg) {
		dispatchBatch(ctx, handler, msg.Data)
	})
	if err != nil {
		return fmt.Errorf("nats subscribe: %w", err)
	}
	if err := q.conn.Flush(); err != nil {
		return fmt.Errorf("nats flush: %w", err)
	}

	<-ctx.Done()
	if err := sub.Drain(); err != nil {
		return fmt.Errorf("nats drain subscription: %w", err)
	}
	if err := q.conn.FlushTimeout(5 * time.Second); err != nil {
		return fmt.Errorf("nats flush after drain: %w", err)
	}
	return nil
}

// dispatchBatch runs the handler for one delivered batch unless the
// subscription context is already dead, cancelled or deadline-expired alike.
func dispatchBatch(ctx context.Context, handler func(context.Context, string) error, data []byte) {
	if ctx.Err() != nil {
		return
	}

	batchCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	if err := handler(batchCtx, string(data)); err != nil {
		slog.Error("catalog_ingest_handler_failed", "batch_id", string(data), "error", err)
	}
}
