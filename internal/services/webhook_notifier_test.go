package services

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tiffin-api/internal/models"
)

func fastBackOff() backoff.BackOff {
	return backoff.WithMaxRetries(backoff.NewConstantBackOff(time.Millisecond), 3)
}

func webhookOrder() *models.Order {
	order := &models.Order{
		OrderNumber:        "ORD-20250106-000001",
		UserID:             1,
		UserSubscriptionID: 2,
		MealType:           models.MealLunch,
		DeliveryDate:       time.Date(2025, 1, 5, 18, 30, 0, 0, time.UTC),
		DeliveryTime:       "12:30",
		SelectedMenus:      []models.MenuItem{dish("Dal Rice", 120)},
		VendorDetails:      models.VendorRef{VendorID: 5},
	}
	order.ID = 11
	return order
}

func TestWebhookSignsPayload(t *testing.T) {
	var (
		body      []byte
		signature string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ = io.ReadAll(r.Body)
		signature = r.Header.Get("X-Tiffin-Signature")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	wn := NewWebhookNotifier(srv.URL, "s3cret")
	wn.newBackOff = fastBackOff
	wn.OrderCreated(context.Background(), webhookOrder())
	wn.Wait()

	require.NotEmpty(t, body)
	assert.Equal(t, generateSignature(body, "s3cret"), signature)

	var payload WebhookPayload
	require.NoError(t, json.Unmarshal(body, &payload))
	assert.Equal(t, "order.created", payload.Event)
	assert.Equal(t, uint(11), payload.OrderID)
	assert.Equal(t, "ORD-20250106-000001", payload.OrderNumber)
	assert.Equal(t, uint(5), payload.VendorID)
	assert.Len(t, payload.Items, 1)
}

func TestWebhookRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	wn := NewWebhookNotifier(srv.URL, "")
	wn.newBackOff = fastBackOff
	wn.OrderCreated(context.Background(), webhookOrder())
	wn.Wait()

	assert.Equal(t, int32(3), calls.Load())
}

func TestWebhookDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Empty(t, r.Header.Get("X-Tiffin-Signature"))
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	wn := NewWebhookNotifier(srv.URL, "")
	wn.newBackOff = fastBackOff
	wn.OrderCreated(context.Background(), webhookOrder())
	wn.Wait()

	assert.Equal(t, int32(1), calls.Load())
}

func TestWebhookGivesUpAfterMaxRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	wn := NewWebhookNotifier(srv.URL, "")
	wn.newBackOff = fastBackOff
	wn.OrderCreated(context.Background(), webhookOrder())
	wn.Wait()

	assert.Equal(t, int32(4), calls.Load())
}

func TestWebhookWithoutURLIsNoop(t *testing.T) {
	wn := NewWebhookNotifier("", "")
	assert.NotPanics(t, func() {
		wn.OrderCreated(context.Background(), webhookOrder())
		wn.Wait()
	})
}
