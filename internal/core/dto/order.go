package dto

import "github.com/rafaelleal24/inventory/internal/core/domain"

type OrderItem struct {
	ProductID domain.ID `json:"product_id" binding:"required"`
	Quantity  int       `json:"quantity" binding:"required,gt=0"`
}

type CreateOrderRequest struct {
	Items []OrderItem `json:"items" binding:"required,min=1,dive"`
}
