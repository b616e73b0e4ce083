package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Draining with no explicit cutoff delivers exactly the events at the
// pool's earliest finish time, in enqueue order, and leaves the rest.
func TestEventPool_DrainUntil(t *testing.T) {
	p := NewEventPool()
	p.Add(Event{FinishTime: 2})
	p.Add(Event{FinishTime: 1, AssetIdx: 1})
	p.Add(Event{FinishTime: 3})
	p.Add(Event{FinishTime: 1, AssetIdx: 3})

	earliest, ok := p.Earliest()
	require.True(t, ok)
	assert.Equal(t, int64(1), earliest)

	delivered := p.DrainUntil(nil)
	require.Len(t, delivered, 2)
	assert.Equal(t, int64(1), delivered[0].FinishTime)
	assert.Equal(t, int64(1), delivered[1].FinishTime)
	assert.Equal(t, 1, delivered[0].AssetIdx, "first-enqueued event comes first")
	assert.Equal(t, 3, delivered[1].AssetIdx)

	assert.Equal(t, 2, p.Len())
	newEarliest, ok := p.Earliest()
	require.True(t, ok)
	assert.Equal(t, int64(2), newEarliest)
}

// Drain idempotence (property 5): draining again at the same cutoff
// returns nothing new.
func TestEventPool_DrainUntil_Idempotent(t *testing.T) {
	p := NewEventPool()
	p.Add(Event{FinishTime: 5})
	p.Add(Event{FinishTime: 10})

	cutoff := int64(5)
	first := p.DrainUntil(&cutoff)
	require.Len(t, first, 1)

	second := p.DrainUntil(&cutoff)
	assert.Empty(t, second)
}

func TestEventPool_EmptyIffNoEarliest(t *testing.T) {
	p := NewEventPool()
	assert.True(t, p.IsEmpty())
	_, ok := p.Earliest()
	assert.False(t, ok)

	p.Add(Event{FinishTime: 1})
	assert.False(t, p.IsEmpty())
	_, ok = p.Earliest()
	assert.True(t, ok)
}

func TestEventPool_DrainUntil_EmptyPoolNoOp(t *testing.T) {
	p := NewEventPool()
	assert.Empty(t, p.DrainUntil(nil))
}
