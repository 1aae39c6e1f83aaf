package handler

import (
	"net/http"

	"stockledger/internal/dto"
	"stockledger/internal/service"

	"github.com/gin-gonic/gin"
)

type StockHandler struct {
	movements service.MovementService
	query     service.StockQueryService
}

func NewStockHandler(movements service.MovementService, query service.StockQueryService) *StockHandler {
	return &StockHandler{movements: movements, query: query}
}

// Place godoc
// @Summary  Put units of an item at a location
// @Tags     stock
// @Accept   json
// @Produce  json
// @Param    body body dto.PlaceStockRequest true "movement"
// @Success  200 {object} dto.ItemStockResponse
// @Router   /v1/stock/place [post]
func (h *StockHandler) Place(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	var req dto.PlaceStockRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.movements.Place(c.Request.Context(), a, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Transfer godoc
// @Summary  Move units of an item between two locations
// @Tags     stock
// @Param    body body dto.TransferStockRequest true "movement"
// @Success  200 {object} dto.ItemStockResponse
// @Router   /v1/stock/transfer [post]
func (h *StockHandler) Transfer(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	var req dto.TransferStockRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.movements.Transfer(c.Request.Context(), a, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// WriteOff godoc
// @Summary  Remove units permanently, with a reason
// @Tags     stock
// @Param    body body dto.WriteOffRequest true "movement"
// @Success  200 {object} dto.ItemStockResponse
// @Router   /v1/stock/write-off [post]
func (h *StockHandler) WriteOff(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	var req dto.WriteOffRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.movements.WriteOff(c.Request.Context(), a, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *StockHandler) ItemStock(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	resp, err := h.query.GetItemStock(c.Request.Context(), a, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *StockHandler) LocationStock(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	resp, err := h.query.ListLocationStock(c.Request.Context(), a, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
