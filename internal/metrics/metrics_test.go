package metrics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"tiffin-api/internal/models"
	"tiffin-api/internal/services"
)

func TestBatchEventsUpdateCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	ctx := context.Background()

	m.OnBatchStart(ctx, services.BatchStartEvent{RunID: "r1"})
	m.OnBatchStart(ctx, services.BatchStartEvent{RunID: "r2"})
	assert.Equal(t, 2.0, testutil.ToFloat64(m.batchesActive))

	m.OnItem(ctx, services.ItemEvent{Order: &models.Order{}})
	m.OnItem(ctx, services.ItemEvent{Failure: &services.ItemFailure{Code: models.FailureNoMenuAvailable}})
	m.OnItem(ctx, services.ItemEvent{Failure: &services.ItemFailure{Code: models.FailureNoMenuAvailable}, Retry: true})

	m.OnBatchEnd(ctx, services.BatchEndEvent{
		Log:      &models.OrderCreationLog{Status: models.LogCompleted},
		Duration: 2 * time.Second,
	})
	m.OnBatchEnd(ctx, services.BatchEndEvent{
		Log: &models.OrderCreationLog{Status: models.LogFailed},
		Err: errors.New("boom"),
	})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.items.WithLabelValues("created", "", "false")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.items.WithLabelValues("failed", "NO_MENU_AVAILABLE", "false")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.items.WithLabelValues("failed", "NO_MENU_AVAILABLE", "true")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.batches.WithLabelValues("completed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.batches.WithLabelValues("failed")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.batchesActive))
	assert.Equal(t, 1, testutil.CollectAndCount(m.batchDuration))
}

func TestSweepCounters(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.OnSweep(context.Background(), services.SweepResult{Found: 4, Expired: 3, Failed: 1})

	assert.Equal(t, 3.0, testutil.ToFloat64(m.expirations.WithLabelValues("expired")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.expirations.WithLabelValues("failed")))
}

func TestNewReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first := New(reg)

	var second *Metrics
	assert.NotPanics(t, func() { second = New(reg) })

	second.OnSweep(context.Background(), services.SweepResult{Expired: 2})
	assert.Equal(t, 2.0, testutil.ToFloat64(first.expirations.WithLabelValues("expired")))
}

func TestNewExportsEveryFailureCode(t *testing.T) {
	m := New(prometheus.NewRegistry())

	assert.Equal(t, len(models.FailureCodes())+1, testutil.CollectAndCount(m.items))
	for _, code := range models.FailureCodes() {
		assert.Equal(t, 0.0, testutil.ToFloat64(m.items.WithLabelValues("failed", string(code), "false")), code)
	}
}
