package events

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/redis/go-redis/v9"
	"go.firedancer.io/lp/pkg/metrics"
	"k8s.io/klog/v2"
)

const DefaultChannel = "lp:transactions"

// TransactionEvent describes a processed transaction.
type TransactionEvent struct {
	Signature    string   `json:"signature"`
	Slot         uint64   `json:"slot"`
	Success      bool     `json:"success"`
	Err          string   `json:"err,omitempty"`
	Logs         []string `json:"logs"`
	Fee          uint64   `json:"fee"`
	ComputeUnits uint64   `json:"computeUnits"`
}

type Sink interface {
	Publish(ctx context.Context, ev *TransactionEvent) error
}

// LogSink writes events to the klog info log.
type LogSink struct{}

func (LogSink) Publish(_ context.Context, ev *TransactionEvent) error {
	if ev.Success {
		klog.Infof("tx %s slot=%d fee=%d cu=%d ok", ev.Signature, ev.Slot, ev.Fee, ev.ComputeUnits)
	} else {
		klog.Infof("tx %s slot=%d fee=%d cu=%d failed: %s", ev.Signature, ev.Slot, ev.Fee, ev.ComputeUnits, ev.Err)
	}
	for _, line := range ev.Logs {
		klog.V(2).Infof("  %s", line)
	}
	metrics.EventsPublished.WithLabelValues("log", "ok").Inc()
	return nil
}

// RedisSink publishes events as JSON on a redis pub/sub channel.
type RedisSink struct {
	rdb     *redis.Client
	channel string
}

func NewRedisSink(addr string, channel string) *RedisSink {
	if channel == "" {
		channel = DefaultChannel
	}
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
	})
	return &RedisSink{rdb: rdb, channel: channel}
}

func (r *RedisSink) Channel() string {
	return r.channel
}

func (r *RedisSink) Publish(ctx context.Context, ev *TransactionEvent) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if err = r.rdb.Publish(ctx, r.channel, b).Err(); err != nil {
		metrics.EventsPublished.WithLabelValues("redis", "error").Inc()
		return err
	}
	metrics.EventsPublished.WithLabelValues("redis", "ok").Inc()
	return nil
}

// Subscribe streams events published on the sink's channel until ctx is done.
func (r *RedisSink) Subscribe(ctx context.Context) (<-chan *TransactionEvent, error) {
	sub := r.rdb.Subscribe(ctx, r.channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, err
	}

	out := make(chan *TransactionEvent)
	go func() {
		defer close(out)
		defer sub.Close()
		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				ev := new(TransactionEvent)
				if err := json.Unmarshal([]byte(msg.Payload), ev); err != nil {
					klog.Errorf("dropping malformed event: %s", err)
					continue
				}
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

func (r *RedisSink) Close() error {
	return r.rdb.Close()
}

// MultiSink publishes to every sink, returning the joined errors.
type MultiSink []Sink

func (m MultiSink) Publish(ctx context.Context, ev *TransactionEvent) error {
	var errs []error
	for _, sink := range m {
		if err := sink.Publish(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
