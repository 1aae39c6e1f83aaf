package handler

import (
	"net/http"

	"stockledger/internal/dto"
	"stockledger/internal/service"

	"github.com/gin-gonic/gin"
)

type CatalogHandler struct{ svc service.CatalogService }

func NewCatalogHandler(svc service.CatalogService) *CatalogHandler {
	return &CatalogHandler{svc: svc}
}

func (h *CatalogHandler) CreateItem(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	var req dto.CreateItemRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.CreateItem(c.Request.Context(), a, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *CatalogHandler) DeleteItem(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.DeleteItem(c.Request.Context(), a, id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *CatalogHandler) CreateLocation(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	var req dto.CreateLocationRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.CreateLocation(c.Request.Context(), a, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *CatalogHandler) ListLocations(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	resp, err := h.svc.ListLocations(c.Request.Context(), a)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *CatalogHandler) DeleteLocation(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.DeleteLocation(c.Request.Context(), a, id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
