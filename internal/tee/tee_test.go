package tee

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	calls int32
	fail  int32 // number of leading calls to fail
}

func (s *recordingSink) Send(_ context.Context, _ Envelope) error {
	n := atomic.AddInt32(&s.calls, 1)
	if n <= atomic.LoadInt32(&s.fail) {
		return errors.New("boom")
	}
	return nil
}

func TestTeeEnqueuesOnlyToMatchingFilters(t *testing.T) {
	matched := &recordingSink{}
	unmatched := &recordingSink{}
	stream := New(Config{FlushInterval: time.Hour, BatchSize: 10, MaxRetries: 1},
		Destination{Name: "a", Sink: matched, Filter: func(Envelope) bool { return true }},
		Destination{Name: "b", Sink: unmatched, Filter: func(Envelope) bool { return false }},
	)
	defer stream.Shutdown()

	stream.Tee(Envelope{ChannelName: "c1", Success: true})
	stream.Flush()

	require.Equal(t, int32(1), atomic.LoadInt32(&matched.calls))
	require.Equal(t, int32(0), atomic.LoadInt32(&unmatched.calls))
}

func TestFlushDrainsEntireQueueAcrossBatches(t *testing.T) {
	sink := &recordingSink{}
	stream := New(Config{FlushInterval: time.Hour, BatchSize: 2, MaxRetries: 1},
		Destination{Name: "a", Sink: sink},
	)
	defer stream.Shutdown()

	for i := 0; i < 7; i++ {
		stream.Tee(Envelope{ChannelName: "c1"})
	}
	stream.Flush()

	require.Equal(t, int32(7), atomic.LoadInt32(&sink.calls))
	require.Equal(t, 0, stream.Stats().QueueSize)
}

func TestDispatchRetriesThenSucceeds(t *testing.T) {
	sink := &recordingSink{fail: 2}
	stream := New(Config{FlushInterval: time.Hour, BatchSize: 10, MaxRetries: 3, DispatchWait: time.Second},
		Destination{Name: "a", Sink: sink, Retries: 3},
	)
	defer stream.Shutdown()

	stream.Tee(Envelope{})
	stream.Flush()

	stats := stream.Stats()
	require.Equal(t, int64(1), stats.Dispatched)
	require.Equal(t, int64(0), stats.FailedTerminal)
}

func TestDispatchExhaustsRetriesAndRecordsTerminalFailure(t *testing.T) {
	sink := &recordingSink{fail: 99}
	stream := New(Config{FlushInterval: time.Hour, BatchSize: 10, MaxRetries: 2, DispatchWait: time.Second},
		Destination{Name: "a", Sink: sink, Retries: 2},
	)
	defer stream.Shutdown()

	stream.Tee(Envelope{})
	stream.Flush()

	stats := stream.Stats()
	require.Equal(t, int64(0), stats.Dispatched)
	require.Equal(t, int64(1), stats.FailedTerminal)
}

func TestFileSinkAppendsNewlineDelimitedJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "tee.log")
	sink := NewFileSink(path)

	require.NoError(t, sink.Send(context.Background(), Envelope{ChannelName: "c1", Success: true}))
	require.NoError(t, sink.Send(context.Background(), Envelope{ChannelName: "c2", Success: false}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	lines := splitLines(data)
	require.Len(t, lines, 2)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &decoded))
	require.Equal(t, "c1", decoded["channel"])
}

func splitLines(data []byte) [][]byte {
	var out [][]byte
	start := 0
	for i, b := range data {
		if b == '\n' {
			if i > start {
				out = append(out, data[start:i])
			}
			start = i + 1
		}
	}
	return out
}

func TestCustomSinkInvokesHandler(t *testing.T) {
	var got Envelope
	sink := NewCustomSink("notify", func(_ context.Context, env Envelope) error {
		got = env
		return nil
	})
	require.NoError(t, sink.Send(context.Background(), Envelope{ChannelName: "c3"}))
	require.Equal(t, "c3", got.ChannelName)
}

func TestCustomSinkWithoutHandlerErrors(t *testing.T) {
	sink := NewCustomSink("missing", nil)
	require.Error(t, sink.Send(context.Background(), Envelope{}))
}
