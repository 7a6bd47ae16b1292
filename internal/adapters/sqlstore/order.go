package sqlstore

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rafaelleal24/inventory/internal/core/domain"
	"github.com/rafaelleal24/inventory/internal/core/port"
	"github.com/shopspring/decimal"
)

type OrderRepository struct {
	db *DB
	tx port.TransactionManager
}

func NewOrderRepository(db *DB) port.OrderPort {
	return &OrderRepository{db: db, tx: NewTransactionManager(db)}
}

// Create writes the order and its lines together, joining the caller's
// transaction when there is one.
func (r *OrderRepository) Create(ctx context.Context, order *domain.Order) error {
	if order.ID != "" {
		return errors.New("cannot create order with existing ID")
	}

	orderID := uuid.NewString()
	itemIDs := make([]string, len(order.Items))

	err := r.tx.WithTransaction(ctx, func(ctx context.Context) error {
		_, err := r.db.exec(ctx,
			"INSERT INTO orders (id, buyer_id, total_amount, created_at) VALUES (?, ?, ?, ?)",
			orderID, string(order.BuyerID), order.TotalAmount.String(), order.CreatedAt.UTC(),
		)
		if err != nil {
			return parseError(err)
		}

		for i, item := range order.Items {
			itemIDs[i] = uuid.NewString()
			_, err := r.db.exec(ctx,
				"INSERT INTO order_items (id, order_id, position, product_id, product_name, quantity, unit_price) VALUES (?, ?, ?, ?, ?, ?, ?)",
				itemIDs[i], orderID, i, string(item.ProductID), item.ProductName, item.Quantity, item.UnitPrice.String(),
			)
			if err != nil {
				return parseError(err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	order.ID = domain.ID(orderID)
	for i := range order.Items {
		order.Items[i].ID = domain.ID(itemIDs[i])
	}
	return nil
}

func (r *OrderRepository) GetByID(ctx context.Context, id domain.ID) (*domain.Order, error) {
	order, err := scanOrder(r.db.queryRow(ctx,
		"SELECT id, buyer_id, total_amount, created_at FROM orders WHERE id = ?", string(id)))
	if err != nil {
		return nil, parseError(err)
	}

	if err := r.loadItems(ctx, []*domain.Order{order}); err != nil {
		return nil, err
	}
	return order, nil
}

func (r *OrderRepository) GetByUserID(ctx context.Context, userID domain.ID, limit, offset int64) ([]*domain.Order, error) {
	rows, err := r.db.query(ctx,
		"SELECT id, buyer_id, total_amount, created_at FROM orders WHERE buyer_id = ? ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?",
		string(userID), limit, offset,
	)
	if err != nil {
		return nil, parseError(err)
	}

	orders := make([]*domain.Order, 0)
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			rows.Close()
			return nil, parseError(err)
		}
		orders = append(orders, order)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, parseError(err)
	}

	if err := r.loadItems(ctx, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func scanOrder(row rowScanner) (*domain.Order, error) {
	var (
		order       domain.Order
		id, buyerID string
		total       decimal.Decimal
		createdAt   time.Time
	)
	if err := row.Scan(&id, &buyerID, &total, &createdAt); err != nil {
		return nil, err
	}

	order.ID = domain.ID(id)
	order.BuyerID = domain.ID(buyerID)
	order.TotalAmount = domain.NewAmountFromDecimal(total)
	order.CreatedAt = createdAt.UTC()
	order.Items = []domain.OrderItem{}
	return &order, nil
}

// loadItems fetches the lines of all given orders in one query.
func (r *OrderRepository) loadItems(ctx context.Context, orders []*domain.Order) error {
	if len(orders) == 0 {
		return nil
	}

	byID := make(map[string]*domain.Order, len(orders))
	args := make([]any, len(orders))
	for i, order := range orders {
		byID[string(order.ID)] = order
		args[i] = string(order.ID)
	}

	rows, err := r.db.query(ctx,
		"SELECT id, order_id, product_id, product_name, quantity, unit_price FROM order_items WHERE order_id IN ("+
			placeholders(len(args))+") ORDER BY order_id, position",
		args...,
	)
	if err != nil {
		return parseError(err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id, orderID, productID string
			item                   domain.OrderItem
			unitPrice              decimal.Decimal
		)
		if err := rows.Scan(&id, &orderID, &productID, &item.ProductName, &item.Quantity, &unitPrice); err != nil {
			return parseError(err)
		}
		item.ID = domain.ID(id)
		item.ProductID = domain.ID(productID)
		item.UnitPrice = domain.NewAmountFromDecimal(unitPrice)

		if order, ok := byID[orderID]; ok {
			order.Items = append(order.Items, item)
		}
	}

	return parseError(rows.Err())
}
