package trace

import (
	"log/slog"
	"sync"
	"time"

	"inkboard/internal/stage"
)

const (
	// DefaultBatchSize is how many decisions wake the writer early.
	DefaultBatchSize = 64

	// DefaultMaxPending bounds the decisions buffered while the writer is
	// busy. Decisions beyond it are dropped.
	DefaultMaxPending = 4096

	// DefaultFlushInterval is how often the writer flushes a partial batch.
	DefaultFlushInterval = 250 * time.Millisecond
)

// Sink is where a Recorder writes. *Store implements it.
type Sink interface {
	BeginSession(name string, started time.Time) error
	EndSession(name string, ended time.Time) error
	Insert(samples []Sample) error
}

// Recorder buffers decisions for one session and writes them from a
// background goroutine. It implements stage.Recorder; Record never touches
// the database, so it is safe to call from input callbacks. Write failures
// are logged and the batch is dropped.
type Recorder struct {
	sink    Sink
	session string
	logger  *slog.Logger

	mu         sync.Mutex
	pending    []Sample
	batch      int
	maxPending int
	dropped    int
	closed     bool

	writeMu sync.Mutex
	wake    chan struct{}
	stop    chan struct{}
	done    chan struct{}
}

// NewRecorder starts session in sink and the background writer. An empty
// session name is replaced by the start time.
func NewRecorder(sink Sink, session string, logger *slog.Logger) (*Recorder, error) {
	if logger == nil {
		logger = slog.Default().With("component", "trace")
	}
	now := time.Now()
	if session == "" {
		session = now.Format("20060102-150405")
	}
	if err := sink.BeginSession(session, now); err != nil {
		return nil, err
	}
	r := &Recorder{
		sink:       sink,
		session:    session,
		logger:     logger,
		batch:      DefaultBatchSize,
		maxPending: DefaultMaxPending,
		wake:       make(chan struct{}, 1),
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
	go r.writeLoop(DefaultFlushInterval)
	return r, nil
}

// Session returns the session name.
func (r *Recorder) Session() string { return r.session }

// SetBatchSize changes how many buffered decisions wake the writer.
func (r *Recorder) SetBatchSize(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batch = max(n, 1)
}

// SetMaxPending changes the buffer bound.
func (r *Recorder) SetMaxPending(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.maxPending = max(n, 1)
}

// Record implements stage.Recorder. It only appends to the buffer.
func (r *Recorder) Record(d stage.Decision) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	if len(r.pending) >= r.maxPending {
		r.dropped++
		return
	}
	r.pending = append(r.pending, fromDecision(r.session, d))
	if len(r.pending) >= r.batch {
		select {
		case r.wake <- struct{}{}:
		default:
		}
	}
}

func (r *Recorder) writeLoop(interval time.Duration) {
	defer close(r.done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stop:
			r.Flush()
			return
		case <-r.wake:
			r.Flush()
		case <-ticker.C:
			r.Flush()
		}
	}
}

// Flush writes buffered decisions and waits for the write to finish.
func (r *Recorder) Flush() {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	r.mu.Lock()
	samples := r.pending
	r.pending = nil
	r.mu.Unlock()
	if len(samples) == 0 {
		return
	}

	if err := r.sink.Insert(samples); err != nil {
		r.mu.Lock()
		r.dropped += len(samples)
		r.mu.Unlock()
		r.logger.Warn("trace write failed", "session", r.session, "samples", len(samples), "error", err)
	}
}

// Pending returns how many decisions are waiting to be written.
func (r *Recorder) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}

// Dropped returns how many decisions were lost to a full buffer or to
// write failures.
func (r *Recorder) Dropped() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dropped
}

// Close stops the writer, flushes what is buffered and ends the session.
// The sink stays open.
func (r *Recorder) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	r.mu.Unlock()

	close(r.stop)
	<-r.done
	return r.sink.EndSession(r.session, time.Now())
}
