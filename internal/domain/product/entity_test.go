// internal/domain/product/entity_test.go
package product

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMeetsMinOrder(t *testing.T) {
	tests := []struct {
		name     string
		minOrder int
		quantity int
		want     bool
	}{
		{"at the minimum", 6, 6, true},
		{"above the minimum", 6, 10, true},
		{"below the minimum", 6, 5, false},
		{"unset minimum accepts any positive quantity", 0, 1, true},
		{"unset minimum rejects zero", 0, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Product{MinOrderQuantity: tt.minOrder}
			assert.Equal(t, tt.want, p.MeetsMinOrder(tt.quantity))
		})
	}
}

func TestHasOption(t *testing.T) {
	withOptions := Product{Options: []ProductOption{
		{Color: "Navy", Size: "M"},
		{Color: "Navy", Size: "L"},
	}}
	assert.True(t, withOptions.HasOption("Navy", "M"))
	assert.False(t, withOptions.HasOption("Navy", "S"))
	assert.False(t, withOptions.HasOption("", ""))

	// A product without options sells only through its aggregate variant.
	plain := Product{}
	assert.True(t, plain.HasOption("", ""))
	assert.False(t, plain.HasOption("Navy", "M"))
}

func TestGetFormattedPrice(t *testing.T) {
	p := Product{Price: 4550}
	assert.Equal(t, 45.50, p.GetFormattedPrice())
}
