package document

import (
	"time"

	"github.com/rafaelleal24/inventory/internal/core/domain"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type OrderItemDocument struct {
	ID          primitive.ObjectID   `bson:"_id,omitempty"`
	ProductID   primitive.ObjectID   `bson:"product_id"`
	ProductName string               `bson:"product_name"`
	Quantity    int                  `bson:"quantity"`
	UnitPrice   primitive.Decimal128 `bson:"unit_price"`
}

type OrderDocument struct {
	ID          primitive.ObjectID   `bson:"_id,omitempty"`
	BuyerID     primitive.ObjectID   `bson:"buyer_id"`
	Items       []OrderItemDocument  `bson:"items"`
	TotalAmount primitive.Decimal128 `bson:"total_amount"`
	CreatedAt   time.Time            `bson:"created_at"`
}

func (doc OrderDocument) GetID() primitive.ObjectID {
	return doc.ID
}

func (doc *OrderDocument) ToDomain() *domain.Order {
	items := make([]domain.OrderItem, len(doc.Items))
	for i, itemDoc := range doc.Items {
		items[i] = domain.OrderItem{
			ID:          domain.ID(itemDoc.ID.Hex()),
			ProductID:   domain.ID(itemDoc.ProductID.Hex()),
			ProductName: itemDoc.ProductName,
			Quantity:    itemDoc.Quantity,
			UnitPrice:   FromDecimal128(itemDoc.UnitPrice),
		}
	}

	return &domain.Order{
		ID:          domain.ID(doc.ID.Hex()),
		BuyerID:     domain.ID(doc.BuyerID.Hex()),
		Items:       items,
		TotalAmount: FromDecimal128(doc.TotalAmount),
		CreatedAt:   doc.CreatedAt.UTC(),
	}
}

// ToDocument assigns fresh ObjectIDs to lines that do not carry one yet.
func ToDocument(order *domain.Order) *OrderDocument {
	items := make([]OrderItemDocument, len(order.Items))
	for i, item := range order.Items {
		itemDoc := OrderItemDocument{
			ProductID:   toObjectID(item.ProductID),
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			UnitPrice:   ToDecimal128(item.UnitPrice),
		}

		if item.ID != "" {
			itemDoc.ID = toObjectID(item.ID)
		} else {
			itemDoc.ID = primitive.NewObjectID()
		}

		items[i] = itemDoc
	}

	return &OrderDocument{
		ID:          toObjectID(order.ID),
		BuyerID:     toObjectID(order.BuyerID),
		Items:       items,
		TotalAmount: ToDecimal128(order.TotalAmount),
		CreatedAt:   order.CreatedAt,
	}
}
