package metrics

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"k8s.io/klog/v2"
)

var (
	TransactionsProcessed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lp",
		Subsystem: "bank",
		Name:      "transactions_processed_total",
		Help:      "Transactions processed by the local bank, by result",
	}, []string{"result"})

	TransactionDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "lp",
		Subsystem: "bank",
		Name:      "transaction_duration_ms",
		Help:      "Time spent processing a transaction",
		Buckets:   prometheus.ExponentialBuckets(0.05, 2, 15),
	})

	ComputeUnits = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "lp",
		Subsystem: "bank",
		Name:      "compute_units",
		Help:      "Compute units consumed per transaction",
		Buckets:   prometheus.ExponentialBuckets(500, 2, 10),
	})

	Slot = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "lp",
		Subsystem: "bank",
		Name:      "slot",
		Help:      "Current slot of the local bank",
	})

	InstructionsExecuted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lp",
		Subsystem: "program",
		Name:      "instructions_total",
		Help:      "Escrow program instructions executed, by instruction and result",
	}, []string{"instruction", "result"})

	RPCDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "lp",
		Subsystem: "rpc",
		Name:      "request_duration_ms",
		Help:      "JSON-RPC request latency",
		Buckets:   prometheus.ExponentialBuckets(1, 2, 15),
	}, []string{"method"})

	EventsPublished = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lp",
		Subsystem: "events",
		Name:      "published_total",
		Help:      "Transaction events published, by sink and result",
	}, []string{"sink", "result"})
)

var registerOnce sync.Once

// Register adds all collectors to the default registry. It is safe to call
// more than once.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			TransactionsProcessed,
			TransactionDuration,
			ComputeUnits,
			Slot,
			InstructionsExecuted,
			RPCDuration,
			EventsPublished,
		)
	})
}

func ObserveDuration(h prometheus.Observer, start time.Time) {
	h.Observe(float64(time.Since(start).Microseconds()) / 1000)
}

// Serve exposes /metrics on addr until ctx is done.
func Serve(ctx context.Context, addr string) error {
	Register()

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	klog.Infof("serving metrics on %s", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
