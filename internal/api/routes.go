package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"tiffin-api/internal/middleware"
)

// SetupRoutes sets up all routes
func SetupRoutes(r *gin.Engine, h *Handler, adminToken string) {
	// API route group
	api := r.Group("/api")
	{
		// Admin routes (require the admin token)
		admin := api.Group("/admin")
		admin.Use(middleware.AdminAuthMiddleware(adminToken))
		{
			admin.POST("/daily-meals/:id/orders", h.TriggerOrderBatch)
			admin.GET("/daily-meals/:id/orders", h.ListDailyMealOrders)

			admin.GET("/order-logs", h.ListOrderLogs)
			admin.GET("/order-logs/:id", h.GetOrderLog)
			admin.POST("/order-logs/:id/failed-orders/:index/retry", h.RetryFailedOrder)

			admin.POST("/subscriptions/expire", h.ExpireSubscriptions)
		}
	}

	// Prometheus scrape endpoint
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Health check
	r.GET("/health", h.Health)
}

// Health runs the configured checks
// GET /health
func (h *Handler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	status := http.StatusOK
	checks := make(gin.H, len(h.Checks))
	for name, check := range h.Checks {
		if err := check(ctx); err != nil {
			checks[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}

	state := "ok"
	if status != http.StatusOK {
		state = "degraded"
	}
	c.JSON(status, gin.H{
		"status":  state,
		"service": "tiffin-order-service",
		"checks":  checks,
	})
}
