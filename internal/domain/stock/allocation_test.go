// internal/domain/stock/allocation_test.go
package stock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func demand(itemID, orderID uint, createdAt time.Time, quantity, shipped int) Demand {
	return Demand{
		OrderItemID:     itemID,
		OrderID:         orderID,
		OrderNumber:     "WHO-TEST",
		OrderCreatedAt:  createdAt,
		Quantity:        quantity,
		ShippedQuantity: shipped,
	}
}

func TestFillForwardFIFO(t *testing.T) {
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		available int
		demands   []Demand
		want      map[uint]int // order item id -> granted
		leftover  int
	}{
		{
			name:      "earlier order wins the short pool",
			available: 4,
			demands: []Demand{
				demand(1, 1, base, 5, 0),
				demand(2, 2, base.Add(time.Hour), 3, 0),
			},
			want:     map[uint]int{1: 4},
			leftover: 0,
		},
		{
			name:      "enough stock fills everyone",
			available: 10,
			demands: []Demand{
				demand(1, 1, base, 5, 0),
				demand(2, 2, base.Add(time.Hour), 3, 0),
			},
			want:     map[uint]int{1: 5, 2: 3},
			leftover: 2,
		},
		{
			name:      "partial grants only top up the unmet remainder",
			available: 3,
			demands: []Demand{
				demand(1, 1, base, 6, 4),
				demand(2, 2, base.Add(time.Hour), 8, 0),
			},
			want:     map[uint]int{1: 2, 2: 1},
			leftover: 0,
		},
		{
			name:      "same timestamp breaks ties by item id",
			available: 5,
			demands: []Demand{
				demand(9, 9, base, 4, 0),
				demand(2, 2, base, 4, 0),
			},
			want:     map[uint]int{2: 4, 9: 1},
			leftover: 0,
		},
		{
			name:      "no stock grants nothing",
			available: 0,
			demands: []Demand{
				demand(1, 1, base, 5, 0),
			},
			want:     map[uint]int{},
			leftover: 0,
		},
		{
			name:      "fully met demand is skipped",
			available: 5,
			demands: []Demand{
				demand(1, 1, base, 4, 4),
				demand(2, 2, base.Add(time.Hour), 3, 0),
			},
			want:     map[uint]int{2: 3},
			leftover: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// fillForward expects the queue already in priority order,
			// the same contract the demand loader fulfils.
			sortByPriority(tt.demands)
			grants, leftover := fillForward(tt.available, tt.demands)

			got := make(map[uint]int, len(grants))
			for _, g := range grants {
				got[g.OrderItemID] = g.Granted
				assert.Equal(t, g.ShippedBefore+g.Granted, g.ShippedAfter)
				assert.Greater(t, g.Granted, 0, "zero grants must not be emitted")
			}
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.leftover, leftover)
		})
	}
}

// Three backorders waiting on an out-of-stock variant, then a bulk upload
// brings 20 units in. The first two orders fill completely and the third
// absorbs what is left.
func TestFillForwardAfterRestock(t *testing.T) {
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	demands := []Demand{
		demand(1, 1, base, 5, 0),
		demand(2, 2, base.Add(time.Hour), 10, 0),
		demand(3, 3, base.Add(2*time.Hour), 8, 0),
	}

	grants, leftover := fillForward(20, demands)
	require.Len(t, grants, 3)

	assert.Equal(t, 5, grants[0].Granted)
	assert.Equal(t, 10, grants[1].Granted)
	assert.Equal(t, 5, grants[2].Granted)
	assert.Equal(t, 0, leftover)
}

func TestFillForwardNeverOverAllocates(t *testing.T) {
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	demands := []Demand{
		demand(1, 1, base, 7, 0),
		demand(2, 2, base.Add(time.Minute), 9, 2),
		demand(3, 3, base.Add(2*time.Minute), 4, 0),
	}

	for available := 0; available <= 25; available++ {
		grants, leftover := fillForward(available, demands)
		granted := 0
		for _, g := range grants {
			granted += g.Granted
		}
		assert.Equal(t, available, granted+leftover)
		assert.LessOrEqual(t, granted, available)
	}
}

// The shrink scenario: two orders fully allocated against 10 units, then
// the count corrected down to 7. The earlier order is made whole first and
// the later order keeps only the remainder.
func TestResetAndRefillOnShrink(t *testing.T) {
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	demands := []Demand{
		demand(1, 1, base, 6, 6),
		demand(2, 2, base.Add(time.Hour), 8, 4),
	}

	grants, leftover := fillForward(7, resetShipped(demands))
	require.Len(t, grants, 2)

	assert.Equal(t, uint(1), grants[0].OrderItemID)
	assert.Equal(t, 6, grants[0].Granted)
	assert.Equal(t, 6, grants[0].ShippedAfter)

	assert.Equal(t, uint(2), grants[1].OrderItemID)
	assert.Equal(t, 1, grants[1].Granted)
	assert.Equal(t, 1, grants[1].ShippedAfter)

	assert.Equal(t, 0, leftover)
}

// Reset-and-refill against an unchanged pool reproduces the standing
// grants exactly, so a redundant reallocation is a no-op in effect.
func TestResetAndRefillIdempotent(t *testing.T) {
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	demands := []Demand{
		demand(1, 1, base, 6, 6),
		demand(2, 2, base.Add(time.Hour), 8, 4),
	}

	first, _ := fillForward(10, resetShipped(demands))
	require.Len(t, first, 2)

	refilled := resetShipped(demands)
	for i, g := range first {
		refilled[i].ShippedQuantity = g.ShippedAfter
	}
	second, _ := fillForward(10, resetShipped(refilled))

	assert.Equal(t, first, second)
}

func TestResetShippedLeavesInputAlone(t *testing.T) {
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	demands := []Demand{demand(1, 1, base, 6, 6)}

	reset := resetShipped(demands)

	assert.Equal(t, 0, reset[0].ShippedQuantity)
	assert.Equal(t, 6, demands[0].ShippedQuantity)
}

func TestClampFloor(t *testing.T) {
	assert.Equal(t, 0, clampFloor(-5))
	assert.Equal(t, 0, clampFloor(0))
	assert.Equal(t, 3, clampFloor(3))
}

func TestSortByPriority(t *testing.T) {
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	demands := []Demand{
		demand(5, 5, base.Add(time.Hour), 1, 0),
		demand(3, 3, base, 1, 0),
		demand(1, 1, base, 1, 0),
	}

	sortByPriority(demands)

	got := make([]uint, 0, len(demands))
	for _, d := range demands {
		got = append(got, d.OrderItemID)
	}
	assert.Equal(t, []uint{1, 3, 5}, got)
}

func TestUntouchedOrderNumbers(t *testing.T) {
	grants := []Grant{
		{OrderID: 1, OrderNumber: "WHO-1", OrderItemID: 1},
		{OrderID: 1, OrderNumber: "WHO-1", OrderItemID: 2},
		{OrderID: 2, OrderNumber: "WHO-2", OrderItemID: 3},
		{OrderID: 3, OrderNumber: "WHO-3", OrderItemID: 4},
	}

	assert.Equal(t, []string{"WHO-1", "WHO-2", "WHO-3"}, untouchedOrderNumbers(grants))
	assert.Equal(t, []string{"WHO-2", "WHO-3"}, untouchedOrderNumbers(grants[2:]))
	assert.Empty(t, untouchedOrderNumbers(nil))
}

func TestBuildOrderChanges(t *testing.T) {
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	original := []Demand{
		demand(1, 1, base, 6, 2),
		demand(2, 1, base, 4, 0),
		demand(3, 2, base.Add(time.Hour), 5, 5),
	}

	t.Run("incremental pass keeps untouched items", func(t *testing.T) {
		changes := buildOrderChanges(original, map[uint]int{2: 3}, false)
		require.Len(t, changes, 1)
		assert.Equal(t, uint(1), changes[0].OrderID)
		assert.Equal(t, 2, changes[0].AllocatedBefore)
		assert.Equal(t, 5, changes[0].AllocatedAfter)
	})

	t.Run("reset pass zeroes items not re-granted", func(t *testing.T) {
		changes := buildOrderChanges(original, map[uint]int{1: 6}, true)
		require.Len(t, changes, 2)
		assert.Equal(t, uint(1), changes[0].OrderID)
		assert.Equal(t, 2, changes[0].AllocatedBefore)
		assert.Equal(t, 6, changes[0].AllocatedAfter)
		assert.Equal(t, uint(2), changes[1].OrderID)
		assert.Equal(t, 5, changes[1].AllocatedBefore)
		assert.Equal(t, 0, changes[1].AllocatedAfter)
	})

	t.Run("unchanged orders are omitted", func(t *testing.T) {
		changes := buildOrderChanges(original, map[uint]int{}, false)
		assert.Empty(t, changes)
	})
}
