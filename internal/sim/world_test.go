package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lobsim/femto/internal/common"
)

func testAssets() []Asset {
	return []Asset{
		{Name: "A", LotSize: 1, TickSize: 0.01, Delay: Delay{Send: 1, Receive: 2}},
		{Name: "B", LotSize: 1, TickSize: 0.01, Delay: Delay{Send: 1, Receive: 1}},
	}
}

// Two orders submitted on separate assets travel through the
// local-to-exchange pool and back, each at its own asset's latency.
func TestWorld_RoundTrip(t *testing.T) {
	w := NewWorld(testAssets())

	o0 := &common.Order{Side: common.Buy, Type: common.Limit, TIF: common.GTC, Price: 10, Qty: 5}
	o1 := &common.Order{Side: common.Buy, Type: common.Limit, TIF: common.GTC, Price: 10, Qty: 5}

	require.NoError(t, w.NewOrder(0, o0))
	require.NoError(t, w.NewOrder(1, o1))
	assert.Equal(t, 2, w.ExEPLen())

	require.NoError(t, w.GotoTime(nil))
	assert.Equal(t, int64(1), w.Time)
	assert.Equal(t, 0, w.ExEPLen(), "both new_order events delivered to the exchange")
	// Both orders rested with no counterparty depth, so each produced an
	// ack destined for local.
	assert.Equal(t, 2, w.LocalEPLen())
}

func TestWorld_TimeMonotonic(t *testing.T) {
	w := NewWorld(testAssets())
	later := int64(5)
	require.NoError(t, w.GotoTime(&later))
	earlier := int64(1)
	err := w.GotoTime(&earlier)
	assert.ErrorIs(t, err, ErrTimeRegression)
}

func TestWorld_ExchangeBeforeLocal_SameTimestamp(t *testing.T) {
	w := NewWorld(testAssets())

	// Records, for each local batch, whether the ask is still resting.
	var askRestingAtLocal []bool
	w.SetStrategy(func(batch []Event) {
		_, ok := w.Books[0].Ask(0)
		askRestingAtLocal = append(askRestingAtLocal, ok)
	})

	resting := &common.Order{Side: common.Sell, Type: common.Limit, TIF: common.GTC, Price: 10, Qty: 5}
	require.NoError(t, w.NewOrder(0, resting))
	t1 := int64(1)
	require.NoError(t, w.GotoTime(&t1)) // rests the ask at t=1, ack enqueued for t=3

	t2 := int64(2)
	require.NoError(t, w.GotoTime(&t2)) // nothing is due yet
	taker := &common.Order{Side: common.Buy, Type: common.Limit, TIF: common.GTC, Price: 10, Qty: 5}
	require.NoError(t, w.NewOrder(0, taker)) // reaches the exchange at t=3

	t3 := int64(3)
	require.NoError(t, w.GotoTime(&t3)) // the taker (exchange-bound) and the ack (local-bound) are both due at t=3

	// The exchange step ran first: when the strategy sees the ack, the
	// taker has already consumed the ask.
	require.Equal(t, []bool{false}, askRestingAtLocal)
}

func TestWorld_MatchProducesFillEvents(t *testing.T) {
	w := NewWorld(testAssets())

	maker := &common.Order{Side: common.Sell, Type: common.Limit, TIF: common.GTC, Price: 10, Qty: 5}
	require.NoError(t, w.NewOrder(0, maker))
	t1 := int64(1)
	require.NoError(t, w.GotoTime(&t1)) // deliver new_order to the exchange, maker rests

	var fills int
	w.SetStrategy(func(batch []Event) {
		for _, e := range batch {
			if e.Kind == KindFill {
				fills++
			}
		}
	})

	taker := &common.Order{Side: common.Buy, Type: common.Limit, TIF: common.GTC, Price: 10, Qty: 5}
	require.NoError(t, w.NewOrder(0, taker))
	t2 := int64(2)
	require.NoError(t, w.GotoTime(&t2)) // deliver new_order to the exchange, match fires
	t4 := int64(4)
	require.NoError(t, w.GotoTime(&t4)) // advance past the receive delay, fills reach local

	assert.Equal(t, 2, fills, "one fill event per side of the match")
}

func TestWorld_UnknownAsset(t *testing.T) {
	w := NewWorld(testAssets())
	err := w.NewOrder(5, &common.Order{Side: common.Buy, Qty: 1, Price: 1})
	assert.ErrorIs(t, err, ErrUnknownAsset)
}
