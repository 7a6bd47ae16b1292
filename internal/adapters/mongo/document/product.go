package document

import (
	"time"

	"github.com/rafaelleal24/inventory/internal/core/domain"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ProductDocument struct {
	ID        primitive.ObjectID   `bson:"_id,omitempty"`
	OwnerID   primitive.ObjectID   `bson:"owner_id"`
	Name      string               `bson:"name"`
	Price     primitive.Decimal128 `bson:"price"`
	Stock     int                  `bson:"stock"`
	Version   int64                `bson:"version"`
	CreatedAt time.Time            `bson:"created_at"`
	UpdatedAt time.Time            `bson:"updated_at"`
}

func (doc ProductDocument) GetID() primitive.ObjectID {
	return doc.ID
}

func (doc *ProductDocument) ToDomain() *domain.Product {
	return &domain.Product{
		ID:        domain.ID(doc.ID.Hex()),
		OwnerID:   domain.ID(doc.OwnerID.Hex()),
		Name:      doc.Name,
		Price:     FromDecimal128(doc.Price),
		Stock:     doc.Stock,
		Version:   doc.Version,
		CreatedAt: doc.CreatedAt.UTC(),
		UpdatedAt: doc.UpdatedAt.UTC(),
	}
}

func ToProductDocument(p *domain.Product) *ProductDocument {
	return &ProductDocument{
		ID:        toObjectID(p.ID),
		OwnerID:   toObjectID(p.OwnerID),
		Name:      p.Name,
		Price:     ToDecimal128(p.Price),
		Stock:     p.Stock,
		Version:   p.Version,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}
