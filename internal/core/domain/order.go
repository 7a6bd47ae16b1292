package domain

import "time"

const OrderCreatedEventName = "OrderCreated"

type Order struct {
	ID          ID
	BuyerID     ID
	Items       []OrderItem
	CreatedAt   time.Time
	TotalAmount Amount
}

type OrderItem struct {
	ID          ID
	ProductID   ID
	ProductName string
	Quantity    int
	UnitPrice   Amount
}

func (o *OrderItem) CalculateTotalAmount() Amount {
	return o.UnitPrice.Multiply(o.Quantity)
}

// NewOrderItem snapshots the product name and price at the time of the call.
func NewOrderItem(product *Product, quantity int) *OrderItem {
	return &OrderItem{
		ProductID:   product.ID,
		ProductName: product.Name,
		Quantity:    quantity,
		UnitPrice:   product.Price,
	}
}

func CalculateTotalAmount(items []OrderItem) Amount {
	var totalAmount Amount
	for _, item := range items {
		totalAmount = totalAmount.Add(item.CalculateTotalAmount())
	}
	return totalAmount
}

func NewOrder(buyerID ID) *Order {
	return &Order{
		BuyerID:   buyerID,
		Items:     []OrderItem{},
		CreatedAt: time.Now().UTC().Truncate(time.Millisecond),
	}
}

// AddItem appends a line and keeps the total in sync with the lines.
func (o *Order) AddItem(item OrderItem) {
	o.Items = append(o.Items, item)
	o.TotalAmount = CalculateTotalAmount(o.Items)
}

func (o *Order) IsOwnedBy(userID ID) bool {
	return o.BuyerID == userID
}

type OrderCreatedItem struct {
	ProductID   ID     `json:"product_id"`
	ProductName string `json:"product_name"`
	Quantity    int    `json:"quantity"`
	UnitPrice   Amount `json:"unit_price"`
}

type OrderCreatedEvent struct {
	OrderID     ID                 `json:"id"`
	BuyerID     ID                 `json:"buyer_id"`
	CreatedAt   time.Time          `json:"created_at"`
	Items       []OrderCreatedItem `json:"items"`
	TotalAmount Amount             `json:"total_amount"`
}

func (e *OrderCreatedEvent) GetName() string {
	return OrderCreatedEventName
}

func (e *OrderCreatedEvent) GetEntityName() string {
	return "order"
}

func (e *OrderCreatedEvent) GetEntityID() ID {
	return e.OrderID
}

func NewOrderCreatedEvent(order *Order) *OrderCreatedEvent {
	items := make([]OrderCreatedItem, len(order.Items))
	for i, item := range order.Items {
		items[i] = OrderCreatedItem{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
		}
	}
	return &OrderCreatedEvent{
		OrderID:     order.ID,
		BuyerID:     order.BuyerID,
		CreatedAt:   order.CreatedAt,
		Items:       items,
		TotalAmount: order.TotalAmount,
	}
}
