// internal/domain/stock/entity_test.go
package stock

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVariantStockHooksRecomputeAvailable(t *testing.T) {
	tests := []struct {
		name      string
		physical  int
		allocated int
		want      int
	}{
		{"simple surplus", 10, 4, 6},
		{"fully allocated", 5, 5, 0},
		{"over-allocated clamps to zero", 3, 7, 0},
		{"empty variant", 0, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := &VariantStock{PhysicalStock: tt.physical, AllocatedStock: tt.allocated}

			assert.NoError(t, v.BeforeCreate(nil))
			assert.Equal(t, tt.want, v.AvailableStock)

			v.AvailableStock = -1
			assert.NoError(t, v.BeforeUpdate(nil))
			assert.Equal(t, tt.want, v.AvailableStock)
		})
	}
}

func TestMovementTypeIsValid(t *testing.T) {
	valid := []MovementType{
		MovementTypeAdjustment,
		MovementTypeOrderAllocation,
		MovementTypeReallocation,
		MovementTypeSampleReturn,
		MovementTypeSampleReject,
		MovementTypeFulfillment,
	}
	for _, m := range valid {
		assert.True(t, m.IsValid(), string(m))
	}

	assert.False(t, MovementType("restock").IsValid())
	assert.False(t, MovementType("").IsValid())
}

func TestVariantStockKey(t *testing.T) {
	v := &VariantStock{ProductID: 7, Color: "Navy", Size: "M"}
	assert.Equal(t, "variant:7:Navy:M", v.Key())

	aggregate := &VariantStock{ProductID: 7}
	assert.Equal(t, "variant:7::", aggregate.Key())
}
