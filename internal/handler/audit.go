package handler

import (
	"net/http"

	"stockledger/internal/dto"
	"stockledger/internal/service"

	"github.com/gin-gonic/gin"
)

type AuditHandler struct{ trail service.AuditTrail }

func NewAuditHandler(trail service.AuditTrail) *AuditHandler {
	return &AuditHandler{trail: trail}
}

// List returns audit entries newest first, filtered by item_id, actor_id,
// action and an RFC3339 from/to range.
func (h *AuditHandler) List(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	var q dto.AuditQuery
	if !bindQuery(c, &q) {
		return
	}
	resp, err := h.trail.List(c.Request.Context(), a, q)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
