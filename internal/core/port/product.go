package port

import (
	"context"

	"github.com/rafaelleal24/inventory/internal/core/domain"
)

//go:generate mockgen -source=$GOFILE -destination=mock/$GOFILE -package=mock

type ProductPort interface {
	Create(ctx context.Context, product *domain.Product) error
	GetByID(ctx context.Context, id domain.ID) (*domain.Product, error)
	GetByOwner(ctx context.Context, ownerID domain.ID) ([]*domain.Product, error)
	// FindOwned loads a product owned by ownerID. Inside a transaction the row
	// is locked for update where the store supports it.
	FindOwned(ctx context.Context, ownerID, id domain.ID) (*domain.Product, error)
	// Update and SaveStock write only when the stored version still matches
	// product.Version, then advance product.Version. A mismatch is a conflict.
	Update(ctx context.Context, product *domain.Product) error
	SaveStock(ctx context.Context, products []*domain.Product) error
	Delete(ctx context.Context, id domain.ID) error
}
