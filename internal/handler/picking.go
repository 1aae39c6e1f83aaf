package handler

import (
	"net/http"

	"stockledger/internal/dto"
	"stockledger/internal/service"

	"github.com/gin-gonic/gin"
)

type PickingHandler struct {
	orders      service.PickingService
	fulfillment service.FulfillmentService
}

func NewPickingHandler(orders service.PickingService, fulfillment service.FulfillmentService) *PickingHandler {
	return &PickingHandler{orders: orders, fulfillment: fulfillment}
}

// Create godoc
// @Summary  Request material, from a source location or as an acquisition
// @Tags     picking
// @Param    body body dto.CreatePickingOrderRequest true "order"
// @Success  201 {object} dto.PickingOrderResponse
// @Router   /v1/picking-orders [post]
func (h *PickingHandler) Create(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	var req dto.CreatePickingOrderRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.orders.Create(c.Request.Context(), a, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *PickingHandler) List(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	var filter dto.PickingOrderFilter
	if !bindQuery(c, &filter) {
		return
	}
	resp, err := h.orders.List(c.Request.Context(), a, filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *PickingHandler) Get(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	resp, err := h.orders.Get(c.Request.Context(), a, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *PickingHandler) UpdateStatus(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.UpdatePickingStatusRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.orders.UpdateStatus(c.Request.Context(), a, id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Fulfill godoc
// @Summary  Apply picked quantities and complete the order
// @Tags     picking
// @Param    id   path string             true "order id"
// @Param    body body dto.FulfillRequest true "picked lines"
// @Success  200 {object} dto.FulfillResponse
// @Failure  409 {object} apierror.APIError
// @Router   /v1/picking-orders/{id}/fulfill [post]
func (h *PickingHandler) Fulfill(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.FulfillRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.fulfillment.Fulfill(c.Request.Context(), a, id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *PickingHandler) Delete(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.orders.Delete(c.Request.Context(), a, id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
