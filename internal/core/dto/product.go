package dto

import "github.com/rafaelleal24/inventory/internal/core/domain"

type CreateProductRequest struct {
	Name  string        `json:"name" binding:"required,max=200"`
	Price domain.Amount `json:"price"`
	Stock int           `json:"stock" binding:"gte=0"`
}

type UpdateProductRequest struct {
	Name  string        `json:"name" binding:"required,max=200"`
	Price domain.Amount `json:"price"`
	Stock int           `json:"stock" binding:"gte=0"`
}
