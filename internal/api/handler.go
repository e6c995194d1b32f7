package api

import (
	"context"
	"strconv"

	"tiffin-api/internal/services"
)

// Handler carries the services behind the admin API.
type Handler struct {
	Orders *services.OrderCreationService
	Expiry *services.SubscriptionExpiryService
	// Checks are named health probes, e.g. database and redis pings.
	Checks map[string]func(ctx context.Context) error
}

func parseUintParam(value string) (uint, bool) {
	id, err := strconv.ParseUint(value, 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}
