package services

import (
	"context"

	"tiffin-api/internal/models"
)

// OrderListener is told about every created order. Implementations must not
// block the batch and must swallow their own errors.
type OrderListener interface {
	OrderCreated(ctx context.Context, order *models.Order)
}

// OrderListenerFunc adapts a function to OrderListener.
type OrderListenerFunc func(ctx context.Context, order *models.Order)

func (f OrderListenerFunc) OrderCreated(ctx context.Context, order *models.Order) {
	f(ctx, order)
}
