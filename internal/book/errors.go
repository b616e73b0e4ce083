package book

import "errors"

var (
	// ErrOrderNotFound is returned by Cancel when no live order has the
	// requested id.
	ErrOrderNotFound = errors.New("order not found")
	// ErrInvalidSide is returned when an order with SideNone is submitted,
	// or an order is added to a level/side book it does not belong on.
	ErrInvalidSide = errors.New("invalid side")
	// ErrInsufficientDepth is returned by a fok order whose pre-match
	// marketable depth is less than the order's quantity. No fills are
	// committed.
	ErrInsufficientDepth = errors.New("insufficient depth for fill-or-kill order")
	// ErrInvalidPrice is returned when a limit order's price is not
	// finite or not positive.
	ErrInvalidPrice = errors.New("invalid price")
)
