// internal/domain/order/projector_test.go
package order

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func inventoryItem(productID uint, quantity, shipped int) OrderItem {
	return OrderItem{ProductID: &productID, Quantity: quantity, ShippedQuantity: shipped}
}

func feeLine() OrderItem {
	return OrderItem{Name: "Shipping fee", Quantity: 1}
}

func TestProjectStatus(t *testing.T) {
	tests := []struct {
		name  string
		items []OrderItem
		want  OrderStatus
	}{
		{
			name:  "nothing shipped is pending",
			items: []OrderItem{inventoryItem(1, 5, 0), inventoryItem(2, 3, 0)},
			want:  OrderStatusPending,
		},
		{
			name:  "everything shipped is confirmed",
			items: []OrderItem{inventoryItem(1, 5, 5), inventoryItem(2, 3, 3)},
			want:  OrderStatusConfirmed,
		},
		{
			name:  "one full line among empty ones is partial",
			items: []OrderItem{inventoryItem(1, 5, 5), inventoryItem(2, 3, 0)},
			want:  OrderStatusPartial,
		},
		{
			name:  "a partially covered line is partial",
			items: []OrderItem{inventoryItem(1, 5, 2)},
			want:  OrderStatusPartial,
		},
		{
			name:  "over-shipped still counts as confirmed",
			items: []OrderItem{inventoryItem(1, 5, 7)},
			want:  OrderStatusConfirmed,
		},
		{
			name:  "fee lines are ignored",
			items: []OrderItem{inventoryItem(1, 5, 5), feeLine()},
			want:  OrderStatusConfirmed,
		},
		{
			name:  "fee lines alone count as covered",
			items: []OrderItem{feeLine()},
			want:  OrderStatusConfirmed,
		},
		{
			name:  "no items counts as covered",
			items: nil,
			want:  OrderStatusConfirmed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ProjectStatus(tt.items))
		})
	}
}

func TestIsTerminal(t *testing.T) {
	for _, s := range NonTerminalStatuses {
		assert.False(t, s.IsTerminal(), string(s))
	}
	for _, s := range TerminalStatuses {
		assert.True(t, s.IsTerminal(), string(s))
	}
}

func TestUnmetQuantity(t *testing.T) {
	tests := []struct {
		item OrderItem
		want int
	}{
		{inventoryItem(1, 5, 2), 3},
		{inventoryItem(1, 5, 5), 0},
		{inventoryItem(1, 5, 8), 0},
		{feeLine(), 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.item.UnmetQuantity())
	}
}
