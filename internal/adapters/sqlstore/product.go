package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rafaelleal24/inventory/internal/core/domain"
	"github.com/rafaelleal24/inventory/internal/core/port"
	"github.com/rafaelleal24/inventory/internal/core/serviceerrors"
	"github.com/shopspring/decimal"
)

const productColumns = "id, owner_id, name, price, stock, version, created_at, updated_at"

type ProductRepository struct {
	db *DB
}

func NewProductRepository(db *DB) port.ProductPort {
	return &ProductRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (*domain.Product, error) {
	var (
		product          domain.Product
		id, ownerID      string
		price            decimal.Decimal
		created, updated time.Time
	)
	if err := row.Scan(&id, &ownerID, &product.Name, &price, &product.Stock, &product.Version, &created, &updated); err != nil {
		return nil, err
	}

	product.ID = domain.ID(id)
	product.OwnerID = domain.ID(ownerID)
	product.Price = domain.NewAmountFromDecimal(price)
	product.CreatedAt = created.UTC()
	product.UpdatedAt = updated.UTC()
	return &product, nil
}

func (r *ProductRepository) Create(ctx context.Context, product *domain.Product) error {
	id := uuid.NewString()
	_, err := r.db.exec(ctx,
		"INSERT INTO products ("+productColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		id, string(product.OwnerID), product.Name, product.Price.String(), product.Stock,
		product.Version, product.CreatedAt.UTC(), product.UpdatedAt.UTC(),
	)
	if err != nil {
		return parseError(err)
	}

	product.ID = domain.ID(id)
	return nil
}

func (r *ProductRepository) GetByID(ctx context.Context, id domain.ID) (*domain.Product, error) {
	product, err := scanProduct(r.db.queryRow(ctx,
		"SELECT "+productColumns+" FROM products WHERE id = ?", string(id)))
	if err != nil {
		return nil, parseError(err)
	}
	return product, nil
}

func (r *ProductRepository) GetByOwner(ctx context.Context, ownerID domain.ID) ([]*domain.Product, error) {
	rows, err := r.db.query(ctx,
		"SELECT "+productColumns+" FROM products WHERE owner_id = ? ORDER BY created_at, id", string(ownerID))
	if err != nil {
		return nil, parseError(err)
	}
	defer rows.Close()

	products := make([]*domain.Product, 0)
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, parseError(err)
		}
		products = append(products, product)
	}

	return products, parseError(rows.Err())
}

// FindOwned takes a row lock on Postgres when called inside a transaction.
// SQLite transactions already run one at a time.
func (r *ProductRepository) FindOwned(ctx context.Context, ownerID, id domain.ID) (*domain.Product, error) {
	query := "SELECT " + productColumns + " FROM products WHERE id = ? AND owner_id = ?"
	if _, inTx := txFromContext(ctx); inTx && r.db.dialect == DialectPostgres {
		query += " FOR UPDATE"
	}

	product, err := scanProduct(r.db.queryRow(ctx, query, string(id), string(ownerID)))
	if err != nil {
		return nil, parseError(err)
	}
	return product, nil
}

func (r *ProductRepository) Update(ctx context.Context, product *domain.Product) error {
	now := time.Now().UTC().Truncate(time.Millisecond)
	result, err := r.db.exec(ctx,
		"UPDATE products SET name = ?, price = ?, stock = ?, updated_at = ?, version = version + 1 WHERE id = ? AND version = ?",
		product.Name, product.Price.String(), product.Stock, now, string(product.ID), product.Version,
	)
	if err := r.checkVersioned(ctx, product, result, err); err != nil {
		return err
	}

	product.UpdatedAt = now
	return nil
}

func (r *ProductRepository) SaveStock(ctx context.Context, products []*domain.Product) error {
	for _, product := range products {
		result, err := r.db.exec(ctx,
			"UPDATE products SET stock = ?, updated_at = ?, version = version + 1 WHERE id = ? AND version = ?",
			product.Stock, product.UpdatedAt.UTC(), string(product.ID), product.Version,
		)
		if err := r.checkVersioned(ctx, product, result, err); err != nil {
			return err
		}
	}
	return nil
}

func (r *ProductRepository) checkVersioned(ctx context.Context, product *domain.Product, result sql.Result, err error) error {
	if err != nil {
		return parseError(err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		var exists int
		err := r.db.queryRow(ctx, "SELECT 1 FROM products WHERE id = ?", string(product.ID)).Scan(&exists)
		if err != nil {
			return parseError(err)
		}
		return serviceerrors.NewConflictError(fmt.Sprintf("product %s was modified concurrently", product.ID))
	}

	product.Version++
	return nil
}

func (r *ProductRepository) Delete(ctx context.Context, id domain.ID) error {
	result, err := r.db.exec(ctx, "DELETE FROM products WHERE id = ?", string(id))
	if err != nil {
		return parseError(err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return serviceerrors.NewNotFoundError("entity not found")
	}
	return nil
}
