package services

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"tiffin-api/internal/models"
	"tiffin-api/pkg/logging"
)

// WebhookNotifier tells the vendor backend about created orders
type WebhookNotifier struct {
	url        string
	secret     string
	httpClient *http.Client
	newBackOff func() backoff.BackOff
	wg         sync.WaitGroup
}

// NewWebhookNotifier creates a new webhook notifier
func NewWebhookNotifier(url, secret string) *WebhookNotifier {
	return &WebhookNotifier{
		url:    url,
		secret: secret,
		httpClient: &http.Client{
			Timeout: 10 * time.Second, // 10 second timeout
		},
		// Retry schedule: about 1s, 5s, 25s (4 attempts total)
		newBackOff: func() backoff.BackOff {
			return backoff.WithMaxRetries(backoff.NewExponentialBackOff(
				backoff.WithInitialInterval(time.Second),
				backoff.WithMultiplier(5),
				backoff.WithMaxElapsedTime(2*time.Minute),
			), 3)
		},
	}
}

// WebhookPayload represents the payload sent to the vendor backend
type WebhookPayload struct {
	Event              string            `json:"event"` // order.created
	OrderID            uint              `json:"order_id"`
	OrderNumber        string            `json:"order_number"`
	UserID             uint              `json:"user_id"`
	UserSubscriptionID uint              `json:"user_subscription_id"`
	VendorID           uint              `json:"vendor_id"`
	MealType           models.MealType   `json:"meal_type"`
	DeliveryDate       string            `json:"delivery_date"` // ISO 8601 format
	DeliveryTime       string            `json:"delivery_time"`
	DeliveryAddress    models.Address    `json:"delivery_address"`
	Items              []models.MenuItem `json:"items"`
	Timestamp          string            `json:"timestamp"` // ISO 8601 format
}

// OrderCreated sends the webhook in the background so the batch never waits on it.
func (wn *WebhookNotifier) OrderCreated(_ context.Context, order *models.Order) {
	if wn.url == "" {
		// No webhook configured, skip
		return
	}

	payload := WebhookPayload{
		Event:              "order.created",
		OrderID:            order.ID,
		OrderNumber:        order.OrderNumber,
		UserID:             order.UserID,
		UserSubscriptionID: order.UserSubscriptionID,
		VendorID:           order.VendorDetails.VendorID,
		MealType:           order.MealType,
		DeliveryDate:       order.DeliveryDate.Format(time.RFC3339),
		DeliveryTime:       order.DeliveryTime,
		DeliveryAddress:    order.DeliveryAddress,
		Items:              order.SelectedMenus,
		Timestamp:          time.Now().Format(time.RFC3339),
	}

	wn.wg.Add(1)
	go func() {
		defer wn.wg.Done()
		wn.sendWithRetry(payload)
	}()
}

// Wait blocks until in-flight notifications are done.
func (wn *WebhookNotifier) Wait() {
	wn.wg.Wait()
}

func (wn *WebhookNotifier) sendWithRetry(payload WebhookPayload) {
	attempt := 0
	err := backoff.RetryNotify(func() error {
		attempt++
		return wn.sendWebhook(payload)
	}, wn.newBackOff(), func(err error, wait time.Duration) {
		logging.Errorf("Webhook notification failed - url: %s, order: %s, attempt: %d, error: %v, next in %s",
			wn.url, payload.OrderNumber, attempt, err, wait)
	})
	if err != nil {
		logging.Errorf("Webhook notification failed after %d attempts - url: %s, order: %s: %v",
			attempt, wn.url, payload.OrderNumber, err)
		return
	}
	logging.Infof("Webhook notification sent successfully - url: %s, order: %s, attempt: %d",
		wn.url, payload.OrderNumber, attempt)
}

// sendWebhook sends a single webhook request
func (wn *WebhookNotifier) sendWebhook(payload WebhookPayload) error {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return backoff.Permanent(fmt.Errorf("failed to marshal payload: %w", err))
	}

	req, err := http.NewRequest(http.MethodPost, wn.url, bytes.NewBuffer(jsonData))
	if err != nil {
		return backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Tiffin-Webhook/1.0")

	// Add signature if secret is provided
	if wn.secret != "" {
		req.Header.Set("X-Tiffin-Signature", generateSignature(jsonData, wn.secret))
	}

	resp, err := wn.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
		return backoff.Permanent(fmt.Errorf("unexpected status code: %d", resp.StatusCode))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	return nil
}

// generateSignature generates HMAC-SHA256 signature for webhook payload
func generateSignature(payload []byte, secret string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write(payload)
	return hex.EncodeToString(h.Sum(nil))
}
