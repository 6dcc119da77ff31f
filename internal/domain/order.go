package domain

import "time"

// OrderStatus represents the lifecycle of an order.
// Transitions only happen from an execution port result.
type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderSubmitted OrderStatus = "submitted"
	OrderFilled    OrderStatus = "filled"
	OrderRejected  OrderStatus = "rejected"
	OrderPaper     OrderStatus = "paper"
)

// Order is an order handed to an execution port.
type Order struct {
	ID         string
	MarketID   string
	TokenID    string
	Side       Side
	Price      float64
	Size       float64 // shares
	Fee        float64
	StrategyID string
	Status     OrderStatus
	ExchangeID string // empty for paper and simulated fills
	CreatedAt  time.Time
}

// Cost returns the notional value of the order (price × size).
func (o Order) Cost() float64 {
	return o.Price * o.Size
}

// Open reports whether the order created exposure.
func (o Order) Open() bool {
	switch o.Status {
	case OrderSubmitted, OrderFilled, OrderPaper:
		return true
	}
	return false
}

// PlaceOrderRequest contains the parameters to submit an order.
type PlaceOrderRequest struct {
	ClientID   string
	MarketID   string
	TokenID    string
	Side       Side
	Price      float64
	Size       float64
	StrategyID string
}

// OrderResult is what an execution port returns after accepting an order.
type OrderResult struct {
	OrderID    string
	ExchangeID string
	Status     OrderStatus
	FillPrice  float64 // 0 = same as requested
	FilledSize float64 // 0 = same as requested
	Fee        float64
	At         time.Time // zero = wall clock at the caller
}
