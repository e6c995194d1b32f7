package services

import (
	"context"
	"fmt"
	"html"
	"strings"
	"sync"
	"time"

	"tiffin-api/internal/models"
	"tiffin-api/pkg/logging"
)

// BatchReportObserver mails a summary of every batch that ends failed or with
// failed items. Sending happens in the background.
type BatchReportObserver struct {
	sender EmailSender
	wg     sync.WaitGroup
}

func NewBatchReportObserver(sender EmailSender) *BatchReportObserver {
	return &BatchReportObserver{sender: sender}
}

func (o *BatchReportObserver) OnBatchStart(context.Context, BatchStartEvent) {}

func (o *BatchReportObserver) OnItem(context.Context, ItemEvent) {}

func (o *BatchReportObserver) OnBatchEnd(_ context.Context, e BatchEndEvent) {
	if e.Err == nil && e.Log.TotalOrdersFailed == 0 {
		return
	}
	subject, htmlContent, textContent := renderBatchReport(e)

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := o.sender.SendEmail(ctx, subject, htmlContent, textContent); err != nil {
			logging.Errorf("Failed to send batch report for log %d: %v", e.Log.ID, err)
		}
	}()
}

// Wait blocks until queued reports are sent.
func (o *BatchReportObserver) Wait() {
	o.wg.Wait()
}

func renderBatchReport(e BatchEndEvent) (subject, htmlContent, textContent string) {
	log := e.Log
	if e.Err != nil {
		subject = fmt.Sprintf("Order batch %d failed", log.ID)
	} else {
		subject = fmt.Sprintf("Order batch %d finished with %d failures", log.ID, log.TotalOrdersFailed)
	}

	var text strings.Builder
	fmt.Fprintf(&text, "Run: %s\nDaily meal: %d\nPlan: %d\nStatus: %s\n", log.RunID, log.DailyMealID, log.SubscriptionID, log.Status)
	fmt.Fprintf(&text, "Subscriptions: %d, created: %d, failed: %d\n", log.TotalUsersFound, log.TotalOrdersCreated, log.TotalOrdersFailed)
	if log.ErrorMessage != "" {
		fmt.Fprintf(&text, "Error: %s\n", log.ErrorMessage)
	}

	var rows strings.Builder
	for i, f := range log.FailedOrders {
		fmt.Fprintf(&text, "#%d subscription %d %s %s retry=%t: %s\n", i, f.UserSubscriptionID, f.MealType, f.FailureCode, f.CanRetry, f.Reason)
		fmt.Fprintf(&rows, "<tr><td>%d</td><td>%d</td><td>%s</td><td>%s</td><td>%s</td><td>%s</td></tr>",
			i, f.UserSubscriptionID, f.MealType, f.FailureCode, retryLabel(f), html.EscapeString(f.Reason))
	}

	htmlContent = fmt.Sprintf(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif;">
	<h2>%s</h2>
	<pre>%s</pre>
	<table border="1" cellpadding="4" cellspacing="0">
		<tr><th>#</th><th>Subscription</th><th>Meal</th><th>Code</th><th>Retry</th><th>Reason</th></tr>
		%s
	</table>
</body>
</html>`, html.EscapeString(subject), html.EscapeString(text.String()), rows.String())

	return subject, htmlContent, text.String()
}

func retryLabel(f models.FailedOrder) string {
	if f.CanRetry {
		return "yes"
	}
	return "no"
}
