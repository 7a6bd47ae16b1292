package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rafaelleal24/inventory/internal/core/domain"
	"github.com/rafaelleal24/inventory/internal/core/dto"
	"github.com/rafaelleal24/inventory/internal/core/logger"
	"github.com/rafaelleal24/inventory/internal/core/port"
	"github.com/rafaelleal24/inventory/internal/core/serviceerrors"
)

type ProductService struct {
	productRepository port.ProductPort
}

func NewProductService(productRepository port.ProductPort) *ProductService {
	return &ProductService{productRepository: productRepository}
}

func validateProductFields(name string, price domain.Amount, stock int) error {
	if strings.TrimSpace(name) == "" {
		return serviceerrors.NewInvalidRequestError("name is required")
	}
	if !price.IsPositive() {
		return serviceerrors.NewInvalidRequestError("price must be greater than zero")
	}
	if stock < 0 {
		return serviceerrors.NewInvalidRequestError("stock must not be negative")
	}
	return nil
}

func (s *ProductService) CreateProduct(ctx context.Context, ownerID domain.ID, request *dto.CreateProductRequest) (*domain.Product, error) {
	if err := validateProductFields(request.Name, request.Price, request.Stock); err != nil {
		return nil, err
	}

	product := domain.NewProduct(ownerID, strings.TrimSpace(request.Name), request.Price, request.Stock)

	if err := s.productRepository.Create(ctx, product); err != nil {
		logger.Error(ctx, "product: create failed", err, map[string]any{
			"owner_id": ownerID,
			"name":     request.Name,
			"price":    request.Price.String(),
			"stock":    request.Stock,
		})
		return nil, err
	}

	logger.Info(ctx, "Product created", map[string]any{"product_id": product.ID})
	return product, nil
}

func (s *ProductService) ListProducts(ctx context.Context, ownerID domain.ID) ([]*domain.Product, error) {
	return s.productRepository.GetByOwner(ctx, ownerID)
}

// GetProduct returns the product only to its owner.
func (s *ProductService) GetProduct(ctx context.Context, userID, id domain.ID) (*domain.Product, error) {
	product, err := s.productRepository.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !product.IsOwnedBy(userID) {
		return nil, serviceerrors.NewForbiddenError("product belongs to another user")
	}
	return product, nil
}

// UpdateProduct rewrites name and price and may raise the stock. Stock only
// goes down through orders.
func (s *ProductService) UpdateProduct(ctx context.Context, userID, id domain.ID, request *dto.UpdateProductRequest) (*domain.Product, error) {
	if err := validateProductFields(request.Name, request.Price, request.Stock); err != nil {
		return nil, err
	}

	product, err := s.GetProduct(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if request.Stock < product.Stock {
		return nil, serviceerrors.NewUnprocessableEntityError(
			fmt.Sprintf("stock can only be increased, current stock is %d", product.Stock),
		)
	}

	product.Name = strings.TrimSpace(request.Name)
	product.Price = request.Price
	product.Stock = request.Stock
	product.UpdatedAt = time.Now().UTC().Truncate(time.Millisecond)

	if err := s.productRepository.Update(ctx, product); err != nil {
		logger.Error(ctx, "product: update failed", err, map[string]any{
			"product_id": id,
		})
		return nil, err
	}

	logger.Info(ctx, "Product updated", map[string]any{"product_id": id, "version": product.Version})
	return product, nil
}

func (s *ProductService) DeleteProduct(ctx context.Context, userID, id domain.ID) error {
	if _, err := s.GetProduct(ctx, userID, id); err != nil {
		return err
	}
	if err := s.productRepository.Delete(ctx, id); err != nil {
		return err
	}

	logger.Info(ctx, "Product deleted", map[string]any{"product_id": id})
	return nil
}

// findForOrder loads a product the buyer owns. Foreign and missing products
// are reported the same way.
func (s *ProductService) findForOrder(ctx context.Context, buyerID, id domain.ID) (*domain.Product, error) {
	product, err := s.productRepository.FindOwned(ctx, buyerID, id)
	if err != nil {
		if serviceerrors.IsOfKind(err, serviceerrors.KindNotFound) {
			return nil, serviceerrors.NewNotFoundError(fmt.Sprintf("product %s not found", id))
		}
		return nil, err
	}
	return product, nil
}

func (s *ProductService) saveStock(ctx context.Context, products []*domain.Product) error {
	return s.productRepository.SaveStock(ctx, products)
}
