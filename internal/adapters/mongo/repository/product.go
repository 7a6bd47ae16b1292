package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/rafaelleal24/inventory/internal/adapters/mongo/document"
	"github.com/rafaelleal24/inventory/internal/core/domain"
	"github.com/rafaelleal24/inventory/internal/core/logger"
	"github.com/rafaelleal24/inventory/internal/core/port"
	"github.com/rafaelleal24/inventory/internal/core/serviceerrors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type ProductRepository struct {
	*BaseRepository[document.ProductDocument]
	collection *mongo.Collection
}

func NewProductRepository(db *mongo.Database) port.ProductPort {
	repo := &ProductRepository{
		BaseRepository: NewBaseRepository[document.ProductDocument](db, "products"),
		collection:     db.Collection("products"),
	}

	if err := repo.createIndexes(context.Background()); err != nil {
		logger.Error(context.Background(), "failed to create indexes", err, map[string]any{
			"collection": "products",
		})
	}

	return repo
}

func (r *ProductRepository) createIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "owner_id", Value: 1}, {Key: "created_at", Value: 1}},
	})
	return err
}

func (r *ProductRepository) Create(ctx context.Context, product *domain.Product) error {
	doc := document.ToProductDocument(product)

	result, err := r.collection.InsertOne(ctx, doc)
	if err != nil {
		return parseError(err)
	}

	product.ID = domain.ID(result.InsertedID.(primitive.ObjectID).Hex())
	return nil
}

func (r *ProductRepository) GetByID(ctx context.Context, id domain.ID) (*domain.Product, error) {
	doc, err := r.FindByID(ctx, string(id))
	if err != nil {
		return nil, err
	}

	return doc.ToDomain(), nil
}

func (r *ProductRepository) GetByOwner(ctx context.Context, ownerID domain.ID) ([]*domain.Product, error) {
	ownerObjectID, err := primitive.ObjectIDFromHex(string(ownerID))
	if err != nil {
		return nil, parseError(err)
	}

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	docs, err := r.Find(ctx, bson.M{"owner_id": ownerObjectID}, opts)
	if err != nil {
		return nil, err
	}

	products := make([]*domain.Product, len(docs))
	for i := range docs {
		products[i] = docs[i].ToDomain()
	}

	return products, nil
}

// FindOwned reads inside the caller's session. Mongo has no row locks, so
// concurrent buyers are serialized by the version check in SaveStock and by
// the server's write conflict detection.
//
// An id that is not an ObjectID cannot name any product, so it is reported
// as not found rather than as a malformed request.
func (r *ProductRepository) FindOwned(ctx context.Context, ownerID, id domain.ID) (*domain.Product, error) {
	objectID, err := primitive.ObjectIDFromHex(string(id))
	if err != nil {
		return nil, serviceerrors.NewNotFoundError(fmt.Sprintf("product %s not found", id))
	}
	ownerObjectID, err := primitive.ObjectIDFromHex(string(ownerID))
	if err != nil {
		return nil, parseError(err)
	}

	doc, err := r.FindOne(ctx, bson.M{"_id": objectID, "owner_id": ownerObjectID})
	if err != nil {
		return nil, err
	}

	return doc.ToDomain(), nil
}

func (r *ProductRepository) Update(ctx context.Context, product *domain.Product) error {
	now := time.Now().UTC().Truncate(time.Millisecond)
	err := r.compareAndSet(ctx, product, bson.M{
		"name":       product.Name,
		"price":      document.ToDecimal128(product.Price),
		"stock":      product.Stock,
		"updated_at": now,
	})
	if err != nil {
		return err
	}

	product.UpdatedAt = now
	return nil
}

func (r *ProductRepository) SaveStock(ctx context.Context, products []*domain.Product) error {
	for _, product := range products {
		err := r.compareAndSet(ctx, product, bson.M{
			"stock":      product.Stock,
			"updated_at": product.UpdatedAt,
		})
		if err != nil {
			return err
		}
	}

	return nil
}

func (r *ProductRepository) compareAndSet(ctx context.Context, product *domain.Product, set bson.M) error {
	objectID, err := primitive.ObjectIDFromHex(string(product.ID))
	if err != nil {
		return parseError(err)
	}

	result, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": objectID, "version": product.Version},
		bson.M{"$set": set, "$inc": bson.M{"version": 1}},
	)
	if err != nil {
		return parseError(err)
	}

	if result.MatchedCount == 0 {
		count, err := r.collection.CountDocuments(ctx, bson.M{"_id": objectID})
		if err != nil {
			return parseError(err)
		}
		if count == 0 {
			return serviceerrors.NewNotFoundError("entity not found")
		}
		return serviceerrors.NewConflictError(fmt.Sprintf("product %s was modified concurrently", product.ID))
	}

	product.Version++
	return nil
}

func (r *ProductRepository) Delete(ctx context.Context, id domain.ID) error {
	return r.DeleteByID(ctx, string(id))
}
