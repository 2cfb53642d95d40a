package audit

import (
	"context"
	"sync"
	"time"

	"github.com/maestroapp/maestro/pkg/auth"
	"github.com/maestroapp/maestro/pkg/contextkeys"
	"github.com/maestroapp/maestro/pkg/observability"
)

// writeTimeout bounds a single audit insert. Workers use a fresh context so
// a canceled request cannot abort the write of its own trail.
const writeTimeout = 5 * time.Second

// Recorder accepts audit entries from request handlers and persists them
// asynchronously. Submission never blocks and never returns an error: when
// the queue is full the entry is dropped and counted, because a slow audit
// store must not slow down or fail the request that triggered it.
//
// Entries are enriched from the caller's context (actor, request ID) at
// submission time, before the request context is released.
type Recorder struct {
	store   *Store
	logger  *observability.Logger
	metrics *observability.Metrics

	queue chan *Entry
	wg    sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// NewRecorder creates a recorder and starts its write workers. queueSize and
// workers must be positive; cfg validation enforces that upstream.
func NewRecorder(store *Store, logger *observability.Logger, metrics *observability.Metrics, queueSize, workers int) *Recorder {
	if queueSize < 1 {
		queueSize = 1
	}
	if workers < 1 {
		workers = 1
	}

	r := &Recorder{
		store:   store,
		logger:  logger,
		metrics: metrics,
		queue:   make(chan *Entry, queueSize),
	}

	r.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go r.worker()
	}

	return r
}

// Log submits an entry with default severity INFO
func (r *Recorder) Log(ctx context.Context, e Entry) {
	if e.Severity == "" {
		e.Severity = SeverityInfo
	}
	r.submit(ctx, e)
}

// LogWarning submits an entry with severity WARNING
func (r *Recorder) LogWarning(ctx context.Context, e Entry) {
	e.Severity = SeverityWarning
	r.submit(ctx, e)
}

// LogCritical submits an entry with severity CRITICAL
func (r *Recorder) LogCritical(ctx context.Context, e Entry) {
	e.Severity = SeverityCritical
	r.submit(ctx, e)
}

func (r *Recorder) submit(ctx context.Context, e Entry) {
	r.enrich(ctx, &e)

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		r.metrics.RecordAuditDrop("closed")
		return
	}

	select {
	case r.queue <- &e:
		r.metrics.SetAuditQueueDepth(len(r.queue))
		r.mu.Unlock()
	default:
		r.mu.Unlock()
		r.metrics.RecordAuditDrop("queue_full")
		r.logger.WithFields(map[string]interface{}{
			"action":   e.Action,
			"severity": string(e.Severity),
		}).Warn("audit queue full, dropping entry")
	}
}

// enrich fills actor and request fields from the submission context when the
// caller did not set them explicitly.
func (r *Recorder) enrich(ctx context.Context, e *Entry) {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	if e.RequestID == "" {
		e.RequestID = contextkeys.GetRequestID(ctx)
	}
	if e.ActorID == nil {
		if ac, ok := auth.FromContext(ctx); ok {
			id := ac.UserID
			e.ActorID = &id
			if e.ActorRole == "" {
				e.ActorRole = ac.Role
			}
		}
	}
}

func (r *Recorder) worker() {
	defer r.wg.Done()
	for e := range r.queue {
		r.write(e)
		r.metrics.SetAuditQueueDepth(len(r.queue))
	}
}

func (r *Recorder) write(e *Entry) {
	defer observability.RecoverPanic(r.logger, "audit recorder worker")

	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	if err := r.store.Insert(ctx, e); err != nil {
		r.metrics.RecordAuditEntry(ctx, string(e.Severity), false)
		r.logger.WithError(err).WithFields(map[string]interface{}{
			"action":   e.Action,
			"severity": string(e.Severity),
		}).Error("failed to persist audit entry")
		return
	}
	r.metrics.RecordAuditEntry(ctx, string(e.Severity), true)
}

// Close stops accepting new entries, drains the queue, and waits for the
// workers to finish. Entries submitted after Close are dropped.
func (r *Recorder) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	close(r.queue)
	r.mu.Unlock()

	r.wg.Wait()
	r.metrics.SetAuditQueueDepth(0)
}
