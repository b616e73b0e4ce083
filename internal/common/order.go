// Package common holds the value types shared by the order book and the
// simulation world: orders, sides, order types, and time-in-force. A
// match's trade record is simply a snapshot Order (see Order.Clone).
package common

import "fmt"

// Side is the direction of an order. SideNone is only ever valid on an
// order that has not been routed yet; submitting it to a book is an error.
type Side int

const (
	SideNone Side = iota
	Buy
	Sell
)

func (s Side) String() string {
	switch s {
	case Buy:
		return "buy"
	case Sell:
		return "sell"
	default:
		return "none"
	}
}

// OrderType distinguishes resting limit orders from marketable-only orders.
type OrderType int

const (
	Limit OrderType = iota
	Market
)

func (t OrderType) String() string {
	if t == Market {
		return "market"
	}
	return "limit"
}

// TimeInForce controls how a limit order behaves when it does not fill
// immediately.
type TimeInForce int

const (
	// GTC rests indefinitely until filled or canceled.
	GTC TimeInForce = iota
	// GTX is post-only: the order is rejected if it would have crossed.
	GTX
	// FOK fills entirely or is rejected before any quantity is committed.
	FOK
	// IOC fills what it can immediately; any residual is canceled, not rested.
	IOC
)

func (t TimeInForce) String() string {
	switch t {
	case GTX:
		return "gtx"
	case FOK:
		return "fok"
	case IOC:
		return "ioc"
	default:
		return "gtc"
	}
}

// OrderStatus is the order's lifecycle state.
type OrderStatus int

const (
	StatusNone OrderStatus = iota
	StatusNew
	StatusExpired
	StatusFilled
	StatusCanceled
	StatusPartiallyFilled
	StatusRejected
	StatusUnsupported
)

func (s OrderStatus) String() string {
	switch s {
	case StatusNew:
		return "new"
	case StatusExpired:
		return "expired"
	case StatusFilled:
		return "filled"
	case StatusCanceled:
		return "canceled"
	case StatusPartiallyFilled:
		return "partially_filled"
	case StatusRejected:
		return "rejected"
	case StatusUnsupported:
		return "unsupported"
	default:
		return "none"
	}
}

// Order is the book's unit of work. It is a plain value: books store
// *Order for in-place mutation while resting, but an Order copied into an
// Event or a trade snapshot is an independent value (see Clone).
type Order struct {
	ID            uint64 // unique within the simulation
	ClientOrderID string // host-facing id (e.g. a uuid), opaque to the core
	AssetIdx      int
	Side          Side
	Type          OrderType
	TIF           TimeInForce
	Status        OrderStatus

	Price float64

	Qty     float64 // original requested quantity
	ExecQty float64 // cumulative executed quantity, 0 <= ExecQty <= Qty

	// Per-fill fields, stamped by the last match this order took part in.
	CurrentFillQty   float64
	CurrentFillPrice float64
	CurrentIsMaker   bool

	Owner string // host-assigned identifier of the submitting strategy/account

	CreateTimestamp int64 // virtual world time at creation
}

// Remaining returns the order's unfilled quantity.
func (o *Order) Remaining() float64 {
	return o.Qty - o.ExecQty
}

// Clone returns an independent copy of the order. Used whenever a live,
// still-mutable order needs to be snapshotted into a trade record or an
// event payload so later mutation of the original does not alias into it.
func (o *Order) Clone() *Order {
	clone := *o
	return &clone
}

func (o *Order) String() string {
	return fmt.Sprintf(
		"Order{id=%d side=%s type=%s tif=%s status=%s price=%g qty=%g exec=%g owner=%s}",
		o.ID, o.Side, o.Type, o.TIF, o.Status, o.Price, o.Qty, o.ExecQty, o.Owner,
	)
}
