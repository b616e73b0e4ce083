package book

import "github.com/lobsim/femto/internal/common"

// PriceLevel holds every live order resting at one price, in strict
// time-priority (FIFO) order. MarketQty carries aggregate anonymous
// depth for a level built from market-data snapshots rather than from
// orders the simulation itself resolved; it is zero for an ordinary
// level and is simply added on top of the resting orders' remaining
// quantity wherever depth is reported.
type PriceLevel struct {
	Price     float64
	Side      common.Side
	Orders    []*common.Order
	MarketQty float64
}

func newPriceLevel(price float64, side common.Side) *PriceLevel {
	return &PriceLevel{Price: price, Side: side}
}

// Add appends order to the tail of the level, i.e. it becomes the
// lowest time priority at this price.
func (l *PriceLevel) Add(order *common.Order) error {
	if order.Side != l.Side {
		return ErrInvalidSide
	}
	l.Orders = append(l.Orders, order)
	return nil
}

// Cancel removes the order with the given id, sets its status to
// canceled, and returns it. Removal is order-preserving (shift-down, not
// swap-remove) so the time priority of the remaining orders is never
// disturbed.
func (l *PriceLevel) Cancel(orderID uint64) (*common.Order, error) {
	for i, o := range l.Orders {
		if o.ID != orderID {
			continue
		}
		l.Orders = append(l.Orders[:i], l.Orders[i+1:]...)
		o.Status = common.StatusCanceled
		return o, nil
	}
	return nil, ErrOrderNotFound
}

// TotalQty sums the remaining quantity of every live order at this
// level, plus any anonymous market depth.
func (l *PriceLevel) TotalQty() float64 {
	total := l.MarketQty
	for _, o := range l.Orders {
		total += o.Remaining()
	}
	return total
}

// Match runs the incoming order against this level's resting orders in
// FIFO order. It mutates incoming and every resting order it touches in
// place, removes exhausted resting orders from the level, and returns
// whether the level was fully broken through (emptied with incoming
// still having residual quantity) along with a snapshot of every order
// that took part in a fill: one clone per resting order touched,
// followed by a final clone of the incoming order.
//
// Precondition: incoming is marketable against this level's price; the
// caller (SideBook.Match) is responsible for checking that.
func (l *PriceLevel) Match(incoming *common.Order) (brokenThrough bool, trades []*common.Order) {
	kept := l.Orders[:0]
	touched := false
	var levelFillQty float64
	for i, resting := range l.Orders {
		if incoming.Remaining() <= 0 {
			// Nothing left to match; keep this and all following orders.
			kept = append(kept, l.Orders[i:]...)
			break
		}

		take := min(incoming.Remaining(), resting.Remaining())
		if take <= 0 {
			kept = append(kept, resting)
			continue
		}
		touched = true

		resting.ExecQty += take
		incoming.ExecQty += take
		levelFillQty += take

		resting.CurrentFillQty = take
		resting.CurrentFillPrice = l.Price
		resting.CurrentIsMaker = true

		// CurrentFillQty is overwritten, not accumulated, so it reflects
		// only what incoming filled at this level: SideBook.Match may
		// sweep several levels in one call, and each level's snapshot of
		// incoming must describe that level's fill alone.
		incoming.CurrentFillQty = levelFillQty
		incoming.CurrentFillPrice = l.Price
		incoming.CurrentIsMaker = false

		if resting.Remaining() == 0 {
			resting.Status = common.StatusFilled
		} else {
			resting.Status = common.StatusPartiallyFilled
		}

		// Snapshot after stamping, before possible removal, so later
		// mutation of the live order never aliases into the trade log.
		trades = append(trades, resting.Clone())

		if resting.Remaining() > 0 {
			kept = append(kept, resting)
		}
	}
	l.Orders = kept

	if !touched {
		return false, nil
	}

	if incoming.Remaining() == 0 {
		incoming.Status = common.StatusFilled
	} else if incoming.ExecQty > 0 {
		incoming.Status = common.StatusPartiallyFilled
	}
	trades = append(trades, incoming.Clone())

	brokenThrough = len(l.Orders) == 0 && incoming.Remaining() > 0
	return brokenThrough, trades
}

// Empty reports whether the level has no live orders and no residual
// anonymous depth, i.e. whether it should be removed from its side book.
func (l *PriceLevel) Empty() bool {
	return len(l.Orders) == 0 && l.MarketQty == 0
}
