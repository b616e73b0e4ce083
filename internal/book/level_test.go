package book

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lobsim/femto/internal/common"
)

func mkOrder(id uint64, side common.Side, price, qty float64) *common.Order {
	return &common.Order{ID: id, Side: side, Type: common.Limit, TIF: common.GTC, Price: price, Qty: qty}
}

// An incoming order fully consumes one resting order and partially fills
// the next, leaving the level's residual quantity and order intact.
func TestPriceLevelMatch_PartialThenFull(t *testing.T) {
	lvl := newPriceLevel(100, common.Buy)
	o1 := mkOrder(1, common.Buy, 100, 3)
	o2 := mkOrder(2, common.Buy, 100, 2)
	require.NoError(t, lvl.Add(o1))
	require.NoError(t, lvl.Add(o2))

	incoming := mkOrder(3, common.Sell, 98, 4)
	broken, trades := lvl.Match(incoming)

	assert.False(t, broken)
	require.Len(t, trades, 3)
	assert.Equal(t, uint64(1), trades[0].ID)
	assert.Equal(t, common.StatusFilled, trades[0].Status)
	assert.Equal(t, 3.0, trades[0].ExecQty)

	assert.Equal(t, uint64(2), trades[1].ID)
	assert.Equal(t, common.StatusPartiallyFilled, trades[1].Status)
	assert.Equal(t, 1.0, trades[1].ExecQty)

	assert.Equal(t, uint64(3), trades[2].ID)
	assert.Equal(t, common.StatusFilled, trades[2].Status)
	assert.Equal(t, 4.0, trades[2].ExecQty)

	require.Len(t, lvl.Orders, 1)
	assert.Equal(t, uint64(2), lvl.Orders[0].ID)
	assert.Equal(t, 1.0, lvl.Orders[0].Remaining())
	assert.Equal(t, 1.0, lvl.TotalQty())
}

// An incoming order larger than the level's total depth empties the level
// and leaves residual quantity on the incoming order.
func TestPriceLevelMatch_BreakThrough(t *testing.T) {
	lvl := newPriceLevel(100, common.Sell)
	o1 := mkOrder(1, common.Sell, 100, 5)
	require.NoError(t, lvl.Add(o1))

	incoming := mkOrder(2, common.Buy, 100, 8)
	broken, trades := lvl.Match(incoming)

	assert.True(t, broken)
	require.Len(t, trades, 2)
	assert.Equal(t, common.StatusFilled, trades[0].Status)
	assert.Equal(t, 5.0, trades[0].ExecQty)
	assert.Equal(t, common.StatusPartiallyFilled, trades[1].Status)
	assert.Equal(t, 5.0, trades[1].ExecQty)
	assert.Equal(t, 3.0, incoming.Remaining())
	assert.Empty(t, lvl.Orders)
}

func TestPriceLevelCancel_PreservesFIFO(t *testing.T) {
	lvl := newPriceLevel(100, common.Buy)
	o1 := mkOrder(1, common.Buy, 100, 1)
	o2 := mkOrder(2, common.Buy, 100, 1)
	o3 := mkOrder(3, common.Buy, 100, 1)
	require.NoError(t, lvl.Add(o1))
	require.NoError(t, lvl.Add(o2))
	require.NoError(t, lvl.Add(o3))

	canceled, err := lvl.Cancel(2)
	require.NoError(t, err)
	assert.Equal(t, common.StatusCanceled, canceled.Status)
	require.Len(t, lvl.Orders, 2)
	assert.Equal(t, uint64(1), lvl.Orders[0].ID)
	assert.Equal(t, uint64(3), lvl.Orders[1].ID)

	_, err = lvl.Cancel(99)
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestPriceLevelAdd_WrongSideRejected(t *testing.T) {
	lvl := newPriceLevel(100, common.Buy)
	err := lvl.Add(mkOrder(1, common.Sell, 100, 1))
	assert.ErrorIs(t, err, ErrInvalidSide)
}
