package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tiffin-api/internal/models"
)

type sentEmail struct {
	subject, html, text string
}

type fakeSender struct {
	mu   sync.Mutex
	sent []sentEmail
	err  error
}

func (s *fakeSender) SendEmail(_ context.Context, subject, htmlContent, textContent string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, sentEmail{subject, htmlContent, textContent})
	return s.err
}

func TestBatchReportSkipsCleanBatches(t *testing.T) {
	sender := &fakeSender{}
	obs := NewBatchReportObserver(sender)

	obs.OnBatchEnd(context.Background(), BatchEndEvent{
		Log: &models.OrderCreationLog{Status: models.LogCompleted, TotalOrdersCreated: 3},
	})
	obs.Wait()

	assert.Empty(t, sender.sent)
}

func TestBatchReportListsFailures(t *testing.T) {
	sender := &fakeSender{}
	obs := NewBatchReportObserver(sender)

	log := &models.OrderCreationLog{RunID: "run-1", Status: models.LogCompleted}
	log.ID = 9
	log.AddFailedOrder(models.FailedOrder{
		UserSubscriptionID: 4,
		MealType:           models.MealDinner,
		FailureCode:        models.FailureNoMenuAvailable,
		Reason:             "no dinner menu <published>",
		CanRetry:           true,
	})

	obs.OnBatchEnd(context.Background(), BatchEndEvent{Log: log})
	obs.Wait()

	require.Len(t, sender.sent, 1)
	mail := sender.sent[0]
	assert.Equal(t, "Order batch 9 finished with 1 failures", mail.subject)
	assert.Contains(t, mail.text, "NO_MENU_AVAILABLE")
	assert.Contains(t, mail.html, "&lt;published&gt;")
	assert.NotContains(t, mail.html, "<published>")
}

func TestBatchReportForFailedBatch(t *testing.T) {
	sender := &fakeSender{err: errors.New("brevo down")}
	obs := NewBatchReportObserver(sender)

	log := &models.OrderCreationLog{Status: models.LogFailed, ErrorMessage: "connection reset"}
	log.ID = 3
	obs.OnBatchEnd(context.Background(), BatchEndEvent{Log: log, Err: errors.New("connection reset")})
	obs.Wait()

	require.Len(t, sender.sent, 1)
	assert.Equal(t, "Order batch 3 failed", sender.sent[0].subject)
	assert.Contains(t, sender.sent[0].text, "Error: connection reset")
}
