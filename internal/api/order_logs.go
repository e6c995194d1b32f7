package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"tiffin-api/internal/database"
	"tiffin-api/internal/middleware"
	"tiffin-api/internal/models"
	"tiffin-api/internal/response"
	"tiffin-api/internal/services"
)

// ListOrderLogs lists batch logs, newest first
// GET /api/admin/order-logs?daily_meal_id=&status=&limit=
func (h *Handler) ListOrderLogs(c *gin.Context) {
	var filter database.LogFilter

	if v := c.Query("daily_meal_id"); v != "" {
		id, ok := parseUintParam(v)
		if !ok {
			response.ErrorJSON(c, http.StatusBadRequest, "Invalid daily_meal_id")
			return
		}
		filter.DailyMealID = id
	}
	if v := c.Query("status"); v != "" {
		status := models.LogStatus(v)
		if status != models.LogRunning && status != models.LogCompleted && status != models.LogFailed {
			response.ErrorJSON(c, http.StatusBadRequest, "status must be one of running, completed, failed")
			return
		}
		filter.Status = status
	}
	if v := c.Query("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit <= 0 {
			response.ErrorJSON(c, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		filter.Limit = limit
	}

	logs, err := h.Orders.ListLogs(c.Request.Context(), filter)
	if err != nil {
		_ = c.Error(err)
		response.ErrorJSON(c, http.StatusInternalServerError, "Failed to list order creation logs")
		return
	}
	response.SuccessJSON(c, logs)
}

// GetOrderLog returns one log with its failed and successful entries
// GET /api/admin/order-logs/:id
func (h *Handler) GetOrderLog(c *gin.Context) {
	logID, ok := parseUintParam(c.Param("id"))
	if !ok {
		response.ErrorJSON(c, http.StatusBadRequest, "Invalid log id")
		return
	}

	log, err := h.Orders.GetLog(c.Request.Context(), logID)
	if err != nil {
		if errors.Is(err, services.ErrLogNotFound) {
			response.ErrorJSON(c, http.StatusNotFound, err.Error())
			return
		}
		_ = c.Error(err)
		response.ErrorJSON(c, http.StatusInternalServerError, "Failed to load order creation log")
		return
	}
	response.SuccessJSON(c, log)
}

// retryStatusCodes maps retry outcomes to HTTP status codes.
var retryStatusCodes = map[services.RetryStatus]int{
	services.RetryCreated:        http.StatusOK,
	services.RetryFailed:         http.StatusUnprocessableEntity,
	services.RetryNotRetryable:   http.StatusUnprocessableEntity,
	services.RetryInvalidIndex:   http.StatusBadRequest,
	services.RetryBatchRunning:   http.StatusConflict,
	services.RetryTargetNotFound: http.StatusNotFound,
}

// RetryFailedOrder retries one failed entry of a finished log
// POST /api/admin/order-logs/:id/failed-orders/:index/retry
func (h *Handler) RetryFailedOrder(c *gin.Context) {
	logID, ok := parseUintParam(c.Param("id"))
	if !ok {
		response.ErrorJSON(c, http.StatusBadRequest, "Invalid log id")
		return
	}
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		response.ErrorJSON(c, http.StatusBadRequest, "Invalid failed order index")
		return
	}

	result, err := h.Orders.RetryFailedOrder(c.Request.Context(), logID, index, middleware.Actor(c))
	switch {
	case errors.Is(err, services.ErrLogNotFound):
		response.ErrorJSON(c, http.StatusNotFound, err.Error())
		return
	case errors.Is(err, services.ErrRetryInProgress):
		response.ErrorJSON(c, http.StatusConflict, err.Error())
		return
	case err != nil:
		_ = c.Error(err)
		response.ErrorJSON(c, http.StatusInternalServerError, "Failed to retry order: "+err.Error())
		return
	}

	code, known := retryStatusCodes[result.Status]
	if !known {
		code = http.StatusInternalServerError
	}
	response.MessageJSON(c, code, result.Success(), result.Message, result)
}
