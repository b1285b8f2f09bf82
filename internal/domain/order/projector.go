// internal/domain/order/projector.go
package order

// ProjectStatus derives an order's coarse status from its items. It is a
// pure function: callers persist the result themselves, and only for
// non-terminal orders. Terminal statuses are owned by fulfillment/returns
// and must never be overwritten here.
//
// Rules:
//   - pending:   every item has shipped_quantity == 0
//   - confirmed: every item has shipped_quantity >= quantity
//   - partial:   anything in between
//
// Non-inventory lines (nil product) are ignored; an order with only
// non-inventory lines counts as fully covered.
func ProjectStatus(items []OrderItem) OrderStatus {
	anyShipped := false
	allShipped := true

	for _, item := range items {
		if !item.IsInventoryLine() {
			continue
		}
		if item.ShippedQuantity > 0 {
			anyShipped = true
		}
		if !item.IsFullyShipped() {
			allShipped = false
		}
	}

	switch {
	case allShipped:
		return OrderStatusConfirmed
	case anyShipped:
		return OrderStatusPartial
	default:
		return OrderStatusPending
	}
}
