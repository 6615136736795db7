package audit

import (
	"context"
	"sync"
)

// DefaultQueueSize is the number of entries a Recorder buffers.
// Entries beyond this are dropped rather than blocking the caller.
const DefaultQueueSize = 256

// Logger defines the logging interface used by the Recorder.
type Logger interface {
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Recorder queues audit entries and writes them serially.
type Recorder struct {
	repo   Repository
	queue  chan *AuditLog
	logger Logger
	done   chan struct{}
	once   sync.Once
}

// NewRecorder creates a recorder writing to repo. Call Run to start draining.
func NewRecorder(repo Repository, queueSize int) *Recorder {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Recorder{
		repo:   repo,
		queue:  make(chan *AuditLog, queueSize),
		logger: noopLogger{},
		done:   make(chan struct{}),
	}
}

// SetLogger sets the logger for dropped entries and write failures.
func (r *Recorder) SetLogger(logger Logger) {
	if logger == nil {
		logger = noopLogger{}
	}
	r.logger = logger
}

// Record enqueues an entry. It never blocks: a full queue drops the entry.
func (r *Recorder) Record(entry *AuditLog) {
	select {
	case r.queue <- entry:
	default:
		r.logger.Warn("audit queue full, dropping entry",
			"action", entry.Action,
			"entity_id", entry.EntityID,
		)
	}
}

// Run writes queued entries until ctx is cancelled, then drains what is
// left and returns.
func (r *Recorder) Run(ctx context.Context) {
	defer r.once.Do(func() { close(r.done) })

	for {
		select {
		case entry := <-r.queue:
			r.write(entry)
		case <-ctx.Done():
			for {
				select {
				case entry := <-r.queue:
					r.write(entry)
				default:
					return
				}
			}
		}
	}
}

// Done is closed when Run has returned.
func (r *Recorder) Done() <-chan struct{} {
	return r.done
}

func (r *Recorder) write(entry *AuditLog) {
	// The request context is gone by now; the write must outlive it.
	if err := r.repo.Create(context.Background(), entry); err != nil {
		r.logger.Error("audit log write failed",
			"action", entry.Action,
			"entity_type", entry.EntityType,
			"error", err,
		)
	}
}
