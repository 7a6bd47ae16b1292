package domain

import (
	"errors"
	"time"
)

var (
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidQuantity   = errors.New("quantity must be greater than zero")
)

type Product struct {
	ID        ID
	OwnerID   ID
	Name      string
	Price     Amount
	Stock     int
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

func NewProduct(ownerID ID, name string, price Amount, stock int) *Product {
	now := time.Now().UTC().Truncate(time.Millisecond)
	return &Product{
		OwnerID:   ownerID,
		Name:      name,
		Price:     price,
		Stock:     stock,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (p *Product) IsOwnedBy(userID ID) bool {
	return p.OwnerID == userID
}

// DeductStock decrements the in-memory stock. The product is left untouched
// when the request cannot be served.
func (p *Product) DeductStock(quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	if p.Stock < quantity {
		return ErrInsufficientStock
	}
	p.Stock -= quantity
	p.UpdatedAt = time.Now().UTC().Truncate(time.Millisecond)
	return nil
}
