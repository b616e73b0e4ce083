package book

import (
	"math"

	"github.com/tidwall/btree"

	"github.com/lobsim/femto/internal/common"
)

// SideBook is one side (bid or ask) of an order book: levels keyed by a
// discretised price bucket, kept in an ordered tree so index 0 is always
// the best price, descending for buys and ascending for asks.
type SideBook struct {
	Side     common.Side
	TickSize float64

	byBucket map[int64]*PriceLevel
	ordered  *btree.BTreeG[*PriceLevel]
}

// NewSideBook builds an empty side book for the given side. Levels are
// ordered by price, descending for buys and ascending for asks; the
// ordering is chosen from side.
func NewSideBook(side common.Side, tickSize float64) *SideBook {
	var less func(a, b *PriceLevel) bool
	if side == common.Buy {
		less = func(a, b *PriceLevel) bool { return a.Price > b.Price }
	} else {
		less = func(a, b *PriceLevel) bool { return a.Price < b.Price }
	}
	return &SideBook{
		Side:     side,
		TickSize: tickSize,
		byBucket: make(map[int64]*PriceLevel),
		ordered:  btree.NewBTreeG(less),
	}
}

// bucket maps a price to its discretised integer key, eliminating
// float-equality hazards at lookup/insert time.
func (sb *SideBook) bucket(price float64) int64 {
	return int64(math.Round(price / sb.TickSize))
}

// GetOrCreateLevel returns the level at price, creating and indexing an
// empty one if none exists yet.
func (sb *SideBook) GetOrCreateLevel(price float64) *PriceLevel {
	b := sb.bucket(price)
	if lvl, ok := sb.byBucket[b]; ok {
		return lvl
	}
	lvl := newPriceLevel(price, sb.Side)
	sb.byBucket[b] = lvl
	sb.ordered.Set(lvl)
	return lvl
}

// Add inserts order into the level at its price, creating the level if
// needed.
func (sb *SideBook) Add(order *common.Order) error {
	if order.Side != sb.Side {
		return ErrInvalidSide
	}
	lvl := sb.GetOrCreateLevel(order.Price)
	return lvl.Add(order)
}

// Cancel removes the order with orderID from the level at price. Both
// the map and the ordered tree are kept consistent: an emptied level is
// removed from both.
func (sb *SideBook) Cancel(orderID uint64, price float64) (*common.Order, error) {
	b := sb.bucket(price)
	lvl, ok := sb.byBucket[b]
	if !ok {
		return nil, ErrOrderNotFound
	}
	o, err := lvl.Cancel(orderID)
	if err != nil {
		return nil, err
	}
	if lvl.Empty() {
		sb.removeLevel(b, lvl)
	}
	return o, nil
}

func (sb *SideBook) removeLevel(bucket int64, lvl *PriceLevel) {
	delete(sb.byBucket, bucket)
	sb.ordered.Delete(lvl)
}

// BestPrice returns the price of the n-th best level (0 is top of book),
// or false if there is no such level.
func (sb *SideBook) BestPrice(n int) (float64, bool) {
	lvl, ok := sb.nthLevel(n)
	if !ok {
		return 0, false
	}
	return lvl.Price, true
}

// BestQty returns the total live quantity at the n-th best level.
func (sb *SideBook) BestQty(n int) (float64, bool) {
	lvl, ok := sb.nthLevel(n)
	if !ok {
		return 0, false
	}
	return lvl.TotalQty(), true
}

// Depth returns up to n levels, best price first.
func (sb *SideBook) Depth(n int) []*PriceLevel {
	if n <= 0 {
		return nil
	}
	levels := make([]*PriceLevel, 0, min(n, sb.ordered.Len()))
	sb.ordered.Scan(func(lvl *PriceLevel) bool {
		levels = append(levels, lvl)
		return len(levels) < n
	})
	return levels
}

func (sb *SideBook) nthLevel(n int) (*PriceLevel, bool) {
	if n < 0 {
		return nil, false
	}
	var found *PriceLevel
	idx := 0
	sb.ordered.Scan(func(lvl *PriceLevel) bool {
		if idx == n {
			found = lvl
			return false
		}
		idx++
		return true
	})
	return found, found != nil
}

// marketable reports whether a level at price is crossable by an
// incoming order on the opposite side. Market orders are infinitely
// marketable.
func (sb *SideBook) marketable(incoming *common.Order, levelPrice float64) bool {
	if incoming.Type == common.Market {
		return true
	}
	if incoming.Side == common.Buy {
		// incoming buy matches resting asks at or below its price.
		return levelPrice <= incoming.Price
	}
	return levelPrice >= incoming.Price
}

// Match sweeps incoming (from the opposite side) against this side's
// best levels while they remain marketable and incoming has residual
// quantity, aggregating every trade snapshot produced and cleaning up
// any level it empties.
func (sb *SideBook) Match(incoming *common.Order) []*common.Order {
	var trades []*common.Order
	for incoming.Remaining() > 0 {
		lvl, ok := sb.nthLevel(0)
		if !ok || !sb.marketable(incoming, lvl.Price) {
			break
		}

		_, levelTrades := lvl.Match(incoming)
		trades = append(trades, levelTrades...)

		if lvl.Empty() {
			sb.removeLevel(sb.bucket(lvl.Price), lvl)
		}
	}
	return trades
}
