package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"tiffin-api/internal/middleware"
	"tiffin-api/internal/response"
	"tiffin-api/internal/services"
)

// TriggerOrderBatch runs the order batch of one DailyMeal
// POST /api/admin/daily-meals/:id/orders
func (h *Handler) TriggerOrderBatch(c *gin.Context) {
	dailyMealID, ok := parseUintParam(c.Param("id"))
	if !ok {
		response.ErrorJSON(c, http.StatusBadRequest, "Invalid daily meal id")
		return
	}

	result, err := h.Orders.TriggerBatch(c.Request.Context(), dailyMealID, middleware.Actor(c))
	switch {
	case errors.Is(err, services.ErrDailyMealNotFound):
		response.ErrorJSON(c, http.StatusNotFound, err.Error())
		return
	case errors.Is(err, services.ErrBatchInProgress):
		response.ErrorJSON(c, http.StatusConflict, err.Error())
		return
	case err != nil:
		_ = c.Error(err)
		if result != nil {
			// The log exists and records why the batch failed.
			response.MessageJSON(c, http.StatusInternalServerError, false, result.Message, result)
			return
		}
		response.ErrorJSON(c, http.StatusInternalServerError, "Failed to run order batch: "+err.Error())
		return
	}

	response.MessageJSON(c, http.StatusOK, true, result.Message, result)
}

// ListDailyMealOrders lists the orders created from one DailyMeal
// GET /api/admin/daily-meals/:id/orders
func (h *Handler) ListDailyMealOrders(c *gin.Context) {
	dailyMealID, ok := parseUintParam(c.Param("id"))
	if !ok {
		response.ErrorJSON(c, http.StatusBadRequest, "Invalid daily meal id")
		return
	}

	orders, err := h.Orders.ListOrders(c.Request.Context(), dailyMealID)
	if err != nil {
		if errors.Is(err, services.ErrDailyMealNotFound) {
			response.ErrorJSON(c, http.StatusNotFound, err.Error())
			return
		}
		_ = c.Error(err)
		response.ErrorJSON(c, http.StatusInternalServerError, "Failed to list orders")
		return
	}
	response.SuccessJSON(c, orders)
}
