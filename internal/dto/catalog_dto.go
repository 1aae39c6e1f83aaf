package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

type CreateItemRequest struct {
	SKU   string          `json:"sku" validate:"required,max=64"`
	Name  string          `json:"name" validate:"required,max=200"`
	EAN   *string         `json:"ean" validate:"omitempty,max=32"`
	Price decimal.Decimal `json:"price" validate:"gte=0"`
}

type ItemResponse struct {
	ID        string          `json:"id"`
	SKU       string          `json:"sku"`
	Name      string          `json:"name"`
	EAN       *string         `json:"ean,omitempty"`
	Price     decimal.Decimal `json:"price"`
	CreatedAt time.Time       `json:"created_at"`
}

type CreateLocationRequest struct {
	Name string `json:"name" validate:"required,max=120"`
	Kind string `json:"kind" validate:"omitempty,oneof=warehouse vehicle site other"`
}

type LocationResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Kind      string    `json:"kind"`
	CreatedAt time.Time `json:"created_at"`
}
