package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRegisterTwice(t *testing.T) {
	assert.NotPanics(t, func() {
		Register()
		Register()
	})
}

func TestCounters(t *testing.T) {
	before := testutil.ToFloat64(TransactionsProcessed.WithLabelValues("ok"))
	TransactionsProcessed.WithLabelValues("ok").Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(TransactionsProcessed.WithLabelValues("ok")))

	InstructionsExecuted.WithLabelValues("Initialize", "success").Inc()
	assert.GreaterOrEqual(t, testutil.ToFloat64(InstructionsExecuted.WithLabelValues("Initialize", "success")), 1.0)
}

func TestObserveDuration(t *testing.T) {
	assert.NotPanics(t, func() {
		ObserveDuration(TransactionDuration, time.Now().Add(-time.Millisecond))
	})
}
