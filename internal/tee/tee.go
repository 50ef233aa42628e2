// Package tee implements TeeStream: best-effort asynchronous
// replication of completed request/response envelopes to configured sinks.
package tee

import (
	"context"
	"sync"
	"time"
)

// Envelope is one completed request/response pair queued for replication.
type Envelope struct {
	ChannelName string
	Request     []byte
	Response    []byte
	Success     bool
	Error       string
	Timestamp   time.Time
}

// Filter decides whether a destination wants a given envelope.
type Filter func(env Envelope) bool

// Destination is one configured replication target.
type Destination struct {
	Name      string
	Sink      Sink
	Filter    Filter
	Retries   int // default 3
	QueuePath string
}

// Sink dispatches one payload to a concrete transport (http/webhook/file/custom).
type Sink interface {
	Send(ctx context.Context, env Envelope) error
}

// Stats is the backpressure signal exposed to operators.
type Stats struct {
	QueueSize      int
	Dispatched     int64
	Failed         int64
	FailedTerminal int64
}

type queued struct {
	dest Destination
	env  Envelope
}

// Stream is one TeeStream instance: a single background flusher draining an
// unbounded in-memory queue on a fixed interval.
type Stream struct {
	mu           sync.Mutex
	destinations []Destination
	queue        []queued
	processing   bool

	flushInterval time.Duration
	batchSize     int
	maxRetries    int
	dispatchWait  time.Duration

	dispatched int64
	failed     int64
	terminal   int64

	stopCh chan struct{}
	doneCh chan struct{}
}

// Config parameterizes a Stream.
type Config struct {
	FlushInterval time.Duration
	BatchSize     int
	MaxRetries    int
	DispatchWait  time.Duration
}

// DefaultConfig returns the documented default tuning.
func DefaultConfig() Config {
	return Config{
		FlushInterval: time.Second,
		BatchSize:     10,
		MaxRetries:    3,
		DispatchWait:  10 * time.Second,
	}
}

// New constructs a Stream with the given destinations and starts its
// background flusher.
func New(cfg Config, destinations ...Destination) *Stream {
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 10
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.DispatchWait <= 0 {
		cfg.DispatchWait = 10 * time.Second
	}
	s := &Stream{
		destinations:  destinations,
		flushInterval: cfg.FlushInterval,
		batchSize:     cfg.BatchSize,
		maxRetries:    cfg.MaxRetries,
		dispatchWait:  cfg.DispatchWait,
		stopCh:        make(chan struct{}),
		doneCh:        make(chan struct{}),
	}
	go s.run()
	return s
}

// Tee enqueues one (destination, payload) per destination whose filter
// passes.
func (s *Stream) Tee(env Envelope) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range s.destinations {
		if d.Filter != nil && !d.Filter(env) {
			continue
		}
		s.queue = append(s.queue, queued{dest: d, env: env})
	}
}

// Stats returns a point-in-time snapshot of queue/dispatch counters.
func (s *Stream) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{
		QueueSize:      len(s.queue),
		Dispatched:     s.dispatched,
		Failed:         s.failed,
		FailedTerminal: s.terminal,
	}
}

func (s *Stream) run() {
	defer close(s.doneCh)
	ticker := time.NewTicker(s.flushInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.flushOnce()
		case <-s.stopCh:
			s.Flush()
			return
		}
	}
}

// Flush drains the entire queue, dispatching in batches of at most
// batchSize concurrently with an all-settled wait per batch.
func (s *Stream) Flush() {
	for {
		n := s.flushOnce()
		if n == 0 {
			return
		}
	}
}

// flushOnce drains up to batchSize items and dispatches them concurrently
// with an all-settled wait, guarded against
// re-entrant runs by the processing flag. Returns the number of items
// dispatched.
func (s *Stream) flushOnce() int {
	s.mu.Lock()
	if s.processing {
		s.mu.Unlock()
		return 0
	}
	s.processing = true
	n := s.batchSize
	if n > len(s.queue) {
		n = len(s.queue)
	}
	batch := append([]queued(nil), s.queue[:n]...)
	s.queue = s.queue[n:]
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.processing = false
		s.mu.Unlock()
	}()

	if len(batch) == 0 {
		return 0
	}

	var wg sync.WaitGroup
	for _, item := range batch {
		wg.Add(1)
		go func(it queued) {
			defer wg.Done()
			s.dispatchWithRetry(it)
		}(item)
	}
	wg.Wait()
	return len(batch)
}

func (s *Stream) dispatchWithRetry(it queued) {
	retries := it.dest.Retries
	if retries <= 0 {
		retries = s.maxRetries
	}

	var err error
	for attempt := 1; attempt <= retries; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), s.dispatchWait)
		err = it.dest.Sink.Send(ctx, it.env)
		cancel()
		if err == nil {
			s.mu.Lock()
			s.dispatched++
			s.mu.Unlock()
			return
		}
		if attempt < retries {
			time.Sleep(time.Duration(attempt) * time.Second)
		}
	}

	s.mu.Lock()
	s.failed++
	s.terminal++
	s.mu.Unlock()
}

// Shutdown stops the background timer then performs a final flush.
func (s *Stream) Shutdown() {
	close(s.stopCh)
	<-s.doneCh
}
