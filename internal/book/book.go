package book

import (
	"math"

	"github.com/lobsim/femto/internal/common"
)

// Options configures an OrderBook at construction and is immutable
// thereafter.
type Options struct {
	TickSize float64
	LotSize  float64
}

// DefaultOptions is a lot size of 1 and a tick size of 0.0001.
func DefaultOptions() Options {
	return Options{TickSize: 0.0001, LotSize: 1}
}

// OrderBook is one instrument's two-sided book: a bid side book and an
// ask side book sharing the same tick/lot configuration.
type OrderBook struct {
	Options Options
	Bids    *SideBook
	Asks    *SideBook
}

// New builds an empty order book. A zero TickSize or LotSize in opts is
// replaced by the package defaults.
func New(opts Options) *OrderBook {
	if opts.TickSize == 0 {
		opts.TickSize = DefaultOptions().TickSize
	}
	if opts.LotSize == 0 {
		opts.LotSize = DefaultOptions().LotSize
	}
	return &OrderBook{
		Options: opts,
		Bids:    NewSideBook(common.Buy, opts.TickSize),
		Asks:    NewSideBook(common.Sell, opts.TickSize),
	}
}

func (b *OrderBook) sideBook(side common.Side) (*SideBook, error) {
	switch side {
	case common.Buy:
		return b.Bids, nil
	case common.Sell:
		return b.Asks, nil
	default:
		return nil, ErrInvalidSide
	}
}

func (b *OrderBook) opposite(side common.Side) (*SideBook, error) {
	switch side {
	case common.Buy:
		return b.Asks, nil
	case common.Sell:
		return b.Bids, nil
	default:
		return nil, ErrInvalidSide
	}
}

// validatePrice requires a limit order to carry a finite, positive
// price. Market orders carry no meaningful price and are exempt.
func validatePrice(o *common.Order) error {
	if o.Type == common.Market {
		return nil
	}
	if math.IsNaN(o.Price) || math.IsInf(o.Price, 0) || o.Price <= 0 {
		return ErrInvalidPrice
	}
	return nil
}

// AddOrder routes order straight onto its own side book without
// matching. Exposed for building up resting liquidity (e.g. loading a
// market-data snapshot); ordinary order flow should use MatchOrRest.
func (b *OrderBook) AddOrder(o *common.Order) error {
	own, err := b.sideBook(o.Side)
	if err != nil {
		return err
	}
	if err := validatePrice(o); err != nil {
		return err
	}
	if o.Status == common.StatusNone {
		o.Status = common.StatusNew
	}
	return own.Add(o)
}

// marketableDepth sums the quantity available on levels of side that
// would be crossed by an order at limitPrice (or all of it, for a
// market order), used to check fok's up-front depth requirement.
func marketableDepth(side *SideBook, incomingSide common.Side, limitPrice float64, isMarket bool) float64 {
	total := 0.0
	for _, lvl := range side.Depth(math.MaxInt32) {
		marketable := isMarket
		if !marketable {
			if incomingSide == common.Buy {
				marketable = lvl.Price <= limitPrice
			} else {
				marketable = lvl.Price >= limitPrice
			}
		}
		if !marketable {
			break
		}
		total += lvl.TotalQty()
	}
	return total
}

// wouldCross reports whether o would immediately match against the
// opposite side's best price, used to enforce gtx (post-only).
func wouldCross(opposite *SideBook, o *common.Order) bool {
	best, ok := opposite.BestPrice(0)
	if !ok {
		return false
	}
	if o.Side == common.Buy {
		return best <= o.Price
	}
	return best >= o.Price
}

// MatchOrRest is the single entry point for order flow: it matches o
// against the opposite side book, then applies the time-in-force policy
// to whatever quantity remains. It returns every trade snapshot produced
// (see PriceLevel.Match) and leaves o's Status reflecting the outcome.
func (b *OrderBook) MatchOrRest(o *common.Order) ([]*common.Order, error) {
	if o.Side != common.Buy && o.Side != common.Sell {
		return nil, ErrInvalidSide
	}

	opposite, err := b.opposite(o.Side)
	if err != nil {
		return nil, err
	}
	if err := validatePrice(o); err != nil {
		o.Status = common.StatusRejected
		return nil, err
	}

	if o.Type == common.Limit && o.TIF == common.GTX {
		if wouldCross(opposite, o) {
			o.Status = common.StatusRejected
			return nil, nil
		}
	}

	if o.TIF == common.FOK {
		depth := marketableDepth(opposite, o.Side, o.Price, o.Type == common.Market)
		if depth < o.Qty {
			o.Status = common.StatusRejected
			return nil, ErrInsufficientDepth
		}
	}

	if o.Status == common.StatusNone {
		o.Status = common.StatusNew
	}

	trades := opposite.Match(o)

	if o.Remaining() == 0 {
		return trades, nil
	}

	if o.TIF == common.IOC {
		o.Status = common.StatusCanceled
		return trades, nil
	}

	if o.Type == common.Market {
		// Market orders never rest.
		if o.ExecQty > 0 {
			o.Status = common.StatusPartiallyFilled
		} else {
			o.Status = common.StatusUnsupported
		}
		return trades, nil
	}

	// gtc (and gtx, which only rejects on an up-front cross) rest the
	// residual quantity on the order's own side.
	own, err := b.sideBook(o.Side)
	if err != nil {
		return trades, err
	}
	if o.ExecQty > 0 {
		o.Status = common.StatusPartiallyFilled
	} else {
		o.Status = common.StatusNew
	}
	if err := own.Add(o); err != nil {
		return trades, err
	}
	return trades, nil
}

// CancelOrder removes the order with orderID from whichever side it
// rests on.
func (b *OrderBook) CancelOrder(side common.Side, orderID uint64, price float64) (*common.Order, error) {
	sb, err := b.sideBook(side)
	if err != nil {
		return nil, err
	}
	return sb.Cancel(orderID, price)
}

// Bid returns the price of the n-th best bid level.
func (b *OrderBook) Bid(n int) (float64, bool) { return b.Bids.BestPrice(n) }

// Ask returns the price of the n-th best ask level.
func (b *OrderBook) Ask(n int) (float64, bool) { return b.Asks.BestPrice(n) }

// BidQty returns the total quantity at the n-th best bid level.
func (b *OrderBook) BidQty(n int) (float64, bool) { return b.Bids.BestQty(n) }

// AskQty returns the total quantity at the n-th best ask level.
func (b *OrderBook) AskQty(n int) (float64, bool) { return b.Asks.BestQty(n) }

// Depth returns up to n levels on each side.
func (b *OrderBook) Depth(n int) (bids, asks []*PriceLevel) {
	return b.Bids.Depth(n), b.Asks.Depth(n)
}

// Spread returns ask(0) - bid(0), or false if either side is empty.
func (b *OrderBook) Spread() (float64, bool) {
	bid, ok := b.Bid(0)
	if !ok {
		return 0, false
	}
	ask, ok := b.Ask(0)
	if !ok {
		return 0, false
	}
	return ask - bid, true
}

// MidPrice returns (ask(0) + bid(0)) / 2, or false if either side is empty.
func (b *OrderBook) MidPrice() (float64, bool) {
	bid, ok := b.Bid(0)
	if !ok {
		return 0, false
	}
	ask, ok := b.Ask(0)
	if !ok {
		return 0, false
	}
	return (ask + bid) / 2, true
}
