package sim

import (
	"errors"

	"github.com/lobsim/femto/internal/book"
	"github.com/lobsim/femto/internal/common"
)

// ErrTimeRegression is returned by GotoTime if asked to advance to a
// time earlier than the world's current virtual time: time only ever
// moves forward.
var ErrTimeRegression = errors.New("goto_time: target precedes current world time")

// ErrUnknownAsset is returned when an operation names an asset index
// outside the configured asset array.
var ErrUnknownAsset = errors.New("unknown asset index")

// Delay models the one-way network/processing latency in each
// direction, in the same integer unit as World.Time (e.g. nanoseconds).
type Delay struct {
	Send    int64
	Receive int64
}

// Asset describes one tradable instrument's book configuration and
// latency profile.
type Asset struct {
	Name     string
	LotSize  float64
	TickSize float64
	Delay    Delay
}

// StrategyFunc is the host-provided callback invoked once per GotoTime
// advance with the batch of local-bound events delivered in that step.
type StrategyFunc func(batch []Event)

// World is the clock. It binds a Local facade and an Exchange facade
// through two directed event pools and advances virtual time. The
// Local/Exchange facades are collapsed into plain methods on World
// rather than separate objects holding back-pointers to one another.
type World struct {
	Time   int64
	Assets []Asset
	Books  []*book.OrderBook

	exEP    *EventPool // local -> exchange
	localEP *EventPool // exchange -> local

	strategy StrategyFunc

	nextOrderID uint64
}

// NewWorld builds a world with one order book per asset, using each
// asset's tick/lot size.
func NewWorld(assets []Asset) *World {
	books := make([]*book.OrderBook, len(assets))
	for i, a := range assets {
		books[i] = book.New(book.Options{TickSize: a.TickSize, LotSize: a.LotSize})
	}
	return &World{
		Assets:  assets,
		Books:   books,
		exEP:    NewEventPool(),
		localEP: NewEventPool(),
	}
}

// SetStrategy installs the callback invoked with each batch of
// local-bound events.
func (w *World) SetStrategy(fn StrategyFunc) {
	w.strategy = fn
}

// ExEPLen and LocalEPLen expose pool sizes for tests and host
// introspection.
func (w *World) ExEPLen() int    { return w.exEP.Len() }
func (w *World) LocalEPLen() int { return w.localEP.Len() }

func (w *World) assetOk(assetIdx int) error {
	if assetIdx < 0 || assetIdx >= len(w.Assets) {
		return ErrUnknownAsset
	}
	return nil
}

// NewOrder is the Local facade's order-submission entry point. It stamps
// the order's creation timestamp at the current virtual time, assigns a
// simulation-unique id if the caller left one unset, and enqueues it for
// delivery to the exchange after the asset's send delay.
func (w *World) NewOrder(assetIdx int, o *common.Order) error {
	if err := w.assetOk(assetIdx); err != nil {
		return err
	}
	if o.ID == 0 {
		w.nextOrderID++
		o.ID = w.nextOrderID
	}
	o.AssetIdx = assetIdx
	o.CreateTimestamp = w.Time
	fireTime := w.Time + w.Assets[assetIdx].Delay.Send
	w.exEP.Add(Event{
		FinishTime: fireTime,
		AssetIdx:   assetIdx,
		Kind:       KindNewOrder,
		Payload:    NewOrderPayload{Order: o},
	})
	return nil
}

// CancelOrder is the Local facade's cancel entry point, enqueued the
// same way as NewOrder.
func (w *World) CancelOrder(assetIdx int, side common.Side, orderID uint64, price float64) error {
	if err := w.assetOk(assetIdx); err != nil {
		return err
	}
	fireTime := w.Time + w.Assets[assetIdx].Delay.Send
	w.exEP.Add(Event{
		FinishTime: fireTime,
		AssetIdx:   assetIdx,
		Kind:       KindCancelOrder,
		Payload:    CancelOrderPayload{OrderID: orderID, Side: side, Price: price},
	})
	return nil
}

// GotoTime advances the clock. If t is nil, it advances to the earlier
// of the two pools' earliest finish times (a no-op if both are empty).
// Otherwise it advances to *t, which must not precede the current time.
// Both pools are drained up to the target first; then the exchange-bound
// batch is processed, then the local-bound batch. Local-bound events that
// the exchange step enqueues during this call are not part of this
// call's local batch; a later advance delivers them.
func (w *World) GotoTime(t *int64) error {
	target, ok := w.resolveTarget(t)
	if !ok {
		return nil
	}
	if target < w.Time {
		return ErrTimeRegression
	}
	w.Time = target

	exBatch := w.exEP.DrainUntil(&target)
	localBatch := w.localEP.DrainUntil(&target)

	w.processExchange(exBatch)
	w.processLocal(localBatch)
	return nil
}

func (w *World) resolveTarget(t *int64) (int64, bool) {
	if t != nil {
		return *t, true
	}
	exEarliest, exOk := w.exEP.Earliest()
	localEarliest, localOk := w.localEP.Earliest()
	switch {
	case exOk && localOk:
		if exEarliest < localEarliest {
			return exEarliest, true
		}
		return localEarliest, true
	case exOk:
		return exEarliest, true
	case localOk:
		return localEarliest, true
	default:
		return 0, false
	}
}

// processExchange dispatches every exchange-bound event to the named
// asset's order book, turning every resulting trade and policy
// rejection into a local-bound event delivered after the receive delay.
func (w *World) processExchange(batch []Event) {
	for _, e := range batch {
		receiveAt := w.Time + w.Assets[e.AssetIdx].Delay.Receive
		switch e.Kind {
		case KindNewOrder:
			p := e.Payload.(NewOrderPayload)
			w.handleNewOrder(e.AssetIdx, receiveAt, p.Order)
		case KindCancelOrder:
			p := e.Payload.(CancelOrderPayload)
			w.handleCancel(e.AssetIdx, receiveAt, p)
		}
	}
}

func (w *World) handleNewOrder(assetIdx int, receiveAt int64, order *common.Order) {
	trades, err := w.Books[assetIdx].MatchOrRest(order)
	if err != nil {
		w.localEP.Add(Event{FinishTime: receiveAt, AssetIdx: assetIdx, Kind: KindReject, Payload: RejectPayload{Order: order.Clone(), Err: err}})
		return
	}
	if order.Status == common.StatusRejected {
		w.localEP.Add(Event{FinishTime: receiveAt, AssetIdx: assetIdx, Kind: KindReject, Payload: RejectPayload{Order: order.Clone()}})
		return
	}
	for _, t := range trades {
		w.localEP.Add(Event{FinishTime: receiveAt, AssetIdx: assetIdx, Kind: KindFill, Payload: FillPayload{Order: t}})
	}
	if order.Status == common.StatusNew && order.Remaining() > 0 {
		w.localEP.Add(Event{FinishTime: receiveAt, AssetIdx: assetIdx, Kind: KindAck, Payload: AckPayload{Order: order.Clone()}})
	}
}

func (w *World) handleCancel(assetIdx int, receiveAt int64, p CancelOrderPayload) {
	canceled, err := w.Books[assetIdx].CancelOrder(p.Side, p.OrderID, p.Price)
	if err != nil {
		w.localEP.Add(Event{FinishTime: receiveAt, AssetIdx: assetIdx, Kind: KindReject, Payload: RejectPayload{Err: err}})
		return
	}
	w.localEP.Add(Event{FinishTime: receiveAt, AssetIdx: assetIdx, Kind: KindAck, Payload: AckPayload{Order: canceled}})
}

// processLocal hands the delivered local-bound batch to the strategy
// callback, if one is installed.
func (w *World) processLocal(batch []Event) {
	if w.strategy == nil || len(batch) == 0 {
		return
	}
	w.strategy(batch)
}
