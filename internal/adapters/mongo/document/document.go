package document

import (
	"github.com/rafaelleal24/inventory/internal/core/domain"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Document interface {
	GetID() primitive.ObjectID
}

// ToDecimal128 stores money as an exact decimal with two places.
func ToDecimal128(amount domain.Amount) primitive.Decimal128 {
	d, _ := primitive.ParseDecimal128(amount.String())
	return d
}

func FromDecimal128(d primitive.Decimal128) domain.Amount {
	amount, err := domain.ParseAmount(d.String())
	if err != nil {
		return domain.NewAmountFromCents(0)
	}
	return amount
}

func toObjectID(id domain.ID) primitive.ObjectID {
	if id == "" {
		return primitive.NilObjectID
	}
	objectID, _ := primitive.ObjectIDFromHex(string(id))
	return objectID
}
