package push

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/dukerupert/pacto/internal/metrics"
)

type job struct {
	ctx     context.Context
	userIDs []string
	msg     Message
}

// Queue hands messages to a background worker so callers never wait on
// delivery. When the buffer is full new messages are dropped.
type Queue struct {
	mu      sync.RWMutex
	next    Notifier
	jobs    chan job
	closed  bool
	timeout time.Duration
	metrics *metrics.Metrics
	logger  *slog.Logger
	done    chan struct{}
}

// NewQueue starts the worker. Call Close to drain and stop it.
func NewQueue(next Notifier, size int, m *metrics.Metrics, logger *slog.Logger) *Queue {
	if size < 1 {
		size = 1
	}
	q := &Queue{
		next:    next,
		jobs:    make(chan job, size),
		timeout: 30 * time.Second,
		metrics: m,
		logger:  logger,
		done:    make(chan struct{}),
	}
	go q.run()
	return q
}

func (q *Queue) Notify(ctx context.Context, userIDs []string, msg Message) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		q.logger.Warn("notify queue closed, dropping message", "title", msg.Title)
		q.metrics.NotificationsDropped.Inc()
		return
	}

	ids := append([]string(nil), userIDs...)
	select {
	case q.jobs <- job{ctx: context.WithoutCancel(ctx), userIDs: ids, msg: msg}:
	default:
		q.logger.Warn("notify queue full, dropping message", "title", msg.Title, "users", len(ids))
		q.metrics.NotificationsDropped.Inc()
	}
}

// Close stops accepting messages and waits for queued ones to be delivered.
func (q *Queue) Close() {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.jobs)
	}
	q.mu.Unlock()
	<-q.done
}

func (q *Queue) run() {
	defer close(q.done)
	for j := range q.jobs {
		ctx, cancel := context.WithTimeout(j.ctx, q.timeout)
		q.next.Notify(ctx, j.userIDs, j.msg)
		cancel()
	}
}
