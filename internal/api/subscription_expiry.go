package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tiffin-api/internal/response"
)

// ExpireSubscriptions runs the expiry sweep now
// POST /api/admin/subscriptions/expire
func (h *Handler) ExpireSubscriptions(c *gin.Context) {
	result, err := h.Expiry.ExpireOverdue(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		response.ErrorJSON(c, http.StatusInternalServerError, "Failed to expire subscriptions: "+err.Error())
		return
	}
	response.MessageJSON(c, http.StatusOK, true, result.Status(), result)
}
