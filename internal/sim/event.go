// Package sim implements the simulation world: time-tagged events shuttled
// between a Local (strategy) side and an Exchange side across two delayed
// event pools, advancing on a virtual monotonic clock.
package sim

import (
	"sort"

	"github.com/lobsim/femto/internal/common"
)

// PayloadKind tags the variant carried by an Event.
type PayloadKind int

const (
	KindNewOrder PayloadKind = iota
	KindCancelOrder
	KindFill
	KindAck
	KindReject
)

// NewOrderPayload asks the exchange to route order through
// OrderBook.MatchOrRest.
type NewOrderPayload struct {
	Order *common.Order
}

// CancelOrderPayload asks the exchange to cancel a resting order.
type CancelOrderPayload struct {
	OrderID uint64
	Side    common.Side
	Price   float64
}

// FillPayload is delivered to Local for every order (maker or taker)
// that took part in a match, carrying the stamped-and-cloned snapshot
// PriceLevel.Match produced.
type FillPayload struct {
	Order *common.Order
}

// AckPayload acknowledges that a limit order now rests in the book with
// no fill, or carries the order a cancel removed from the book.
type AckPayload struct {
	Order *common.Order
}

// RejectPayload reports an order that never reaches the matching
// engine's fill path: a time-in-force policy violation (gtx cross, fok
// under-depth) or an order the book refuses (invalid price or side). A
// cancel that fails is also reported this way, with Order left nil.
type RejectPayload struct {
	Order *common.Order
	Err   error
}

// Event is a time-tagged message held by an EventPool until its delivery
// time.
type Event struct {
	FinishTime int64
	AssetIdx   int
	Kind       PayloadKind
	Payload    any
	seq        uint64 // tie-breaker for stable FIFO delivery at equal FinishTime
}

// EventPool is an unordered bag of events plus a cached earliest finish
// time, so callers can cheaply ask "is there anything to do yet".
type EventPool struct {
	events  []Event
	nextSeq uint64
	cached  *int64
}

// NewEventPool returns an empty pool.
func NewEventPool() *EventPool {
	return &EventPool{}
}

// Add enqueues e, updating the cached earliest finish time.
func (p *EventPool) Add(e Event) {
	e.seq = p.nextSeq
	p.nextSeq++
	p.events = append(p.events, e)
	if p.cached == nil || e.FinishTime < *p.cached {
		t := e.FinishTime
		p.cached = &t
	}
}

// Len returns the number of events currently held.
func (p *EventPool) Len() int { return len(p.events) }

// IsEmpty reports whether the pool holds no events.
func (p *EventPool) IsEmpty() bool { return len(p.events) == 0 }

// Earliest returns the smallest FinishTime among held events, or false
// if the pool is empty.
func (p *EventPool) Earliest() (int64, bool) {
	if p.cached == nil {
		return 0, false
	}
	return *p.cached, true
}

// DrainUntil removes and returns every event with FinishTime <= t, in
// non-decreasing FinishTime order with ties broken by enqueue order. If
// t is nil, it drains exactly the events at the pool's earliest finish
// time (and is a no-op on an empty pool).
func (p *EventPool) DrainUntil(t *int64) []Event {
	if p.IsEmpty() {
		return nil
	}
	cutoff := *p.cached
	if t != nil {
		cutoff = *t
	}
	if cutoff < *p.cached {
		return nil
	}

	var delivered, retained []Event
	for _, e := range p.events {
		if e.FinishTime <= cutoff {
			delivered = append(delivered, e)
		} else {
			retained = append(retained, e)
		}
	}
	sort.SliceStable(delivered, func(i, j int) bool {
		if delivered[i].FinishTime != delivered[j].FinishTime {
			return delivered[i].FinishTime < delivered[j].FinishTime
		}
		return delivered[i].seq < delivered[j].seq
	})

	p.events = retained
	if len(retained) == 0 {
		p.cached = nil
	} else {
		min := retained[0].FinishTime
		for _, e := range retained[1:] {
			if e.FinishTime < min {
				min = e.FinishTime
			}
		}
		p.cached = &min
	}
	return delivered
}
