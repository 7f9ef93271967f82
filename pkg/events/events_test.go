package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	events []*TransactionEvent
	err    error
}

func (r *recordingSink) Publish(_ context.Context, ev *TransactionEvent) error {
	r.events = append(r.events, ev)
	return r.err
}

func TestMultiSink(t *testing.T) {
	a := &recordingSink{}
	b := &recordingSink{err: errors.New("down")}
	ev := &TransactionEvent{Signature: "sig", Slot: 3, Success: true}

	err := MultiSink{a, LogSink{}, b}.Publish(context.Background(), ev)
	assert.ErrorContains(t, err, "down")
	assert.Equal(t, []*TransactionEvent{ev}, a.events)
	assert.Equal(t, []*TransactionEvent{ev}, b.events)
}

func TestMultiSinkEmpty(t *testing.T) {
	assert.NoError(t, MultiSink{}.Publish(context.Background(), &TransactionEvent{}))
}

func TestRedisSinkDefaults(t *testing.T) {
	sink := NewRedisSink("127.0.0.1:0", "")
	defer sink.Close()
	assert.Equal(t, DefaultChannel, sink.Channel())
}

func TestRedisSinkPublishSubscribe(t *testing.T) {
	mr := miniredis.RunT(t)
	sink := NewRedisSink(mr.Addr(), "")
	defer sink.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events, err := sink.Subscribe(ctx)
	require.NoError(t, err)

	ev := &TransactionEvent{
		Signature:    "5VERv8NMvzbJMEkV8xnrLkEaWRtSz9CosKDYjCJjBRnbJLgp8uirBgmQpjKhoR4tjF3ZpRzrFmBV6UjKdiSZkQUW",
		Slot:         9,
		Success:      false,
		Err:          "custom program error: 0x1777",
		Logs:         []string{"Program log: Instruction: CancelJob"},
		Fee:          5000,
		ComputeUnits: 1400,
	}
	require.NoError(t, sink.Publish(ctx, ev))

	select {
	case got := <-events:
		assert.Equal(t, ev, got)
	case <-time.After(5 * time.Second):
		t.Fatal("no event received")
	}

	// Malformed payloads are dropped without ending the stream.
	mr.Publish(DefaultChannel, "not json")
	ev.Slot = 10
	require.NoError(t, sink.Publish(ctx, ev))
	select {
	case got := <-events:
		assert.Equal(t, uint64(10), got.Slot)
	case <-time.After(5 * time.Second):
		t.Fatal("no event received")
	}

	cancel()
	select {
	case _, ok := <-events:
		assert.False(t, ok, "channel still open after cancel")
	case <-time.After(5 * time.Second):
		t.Fatal("channel not closed after cancel")
	}
}

func TestRedisSinkPublishUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	sink := NewRedisSink(mr.Addr(), "")
	defer sink.Close()
	mr.Close()

	err := sink.Publish(context.Background(), &TransactionEvent{Signature: "sig"})
	assert.Error(t, err)
}
