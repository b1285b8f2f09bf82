// internal/domain/order/entity.go
package order

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// OrderStatus represents the order status
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusPartial    OrderStatus = "partial"
	OrderStatusConfirmed  OrderStatus = "confirmed"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
	OrderStatusReturned   OrderStatus = "returned"
	OrderStatusRefunded   OrderStatus = "refunded"
)

// IsTerminal reports whether the status removes the order from allocation.
// Items under terminal orders hold no allocated stock and never re-enter the
// priority queue.
func (s OrderStatus) IsTerminal() bool {
	switch s {
	case OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled,
		OrderStatusReturned, OrderStatusRefunded:
		return true
	}
	return false
}

// NonTerminalStatuses lists the statuses that still compete for stock.
var NonTerminalStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusPartial,
	OrderStatusConfirmed,
	OrderStatusProcessing,
}

// TerminalStatuses lists the statuses excluded from allocation accounting.
var TerminalStatuses = []OrderStatus{
	OrderStatusShipped,
	OrderStatusDelivered,
	OrderStatusCancelled,
	OrderStatusReturned,
	OrderStatusRefunded,
}

// Order represents the order entity. CreatedAt is the sole allocation
// priority key: earlier orders are filled first.
type Order struct {
	ID          uint        `gorm:"primaryKey" json:"id"`
	OrderNumber string      `gorm:"uniqueIndex;not null;size:50" json:"order_number"`
	CompanyID   uint        `gorm:"not null;index" json:"company_id"`
	Status      OrderStatus `gorm:"not null;default:'pending';index" json:"status"`

	// Financial Information
	TotalAmount int64 `gorm:"not null" json:"total_amount"` // In cents

	Notes         string `gorm:"type:text" json:"notes"`
	InternalNotes string `gorm:"type:text" json:"internal_notes"`

	// Timestamps
	ShippedAt   *time.Time     `json:"shipped_at"`
	DeliveredAt *time.Time     `json:"delivered_at"`
	CreatedAt   time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`

	// Relationships
	Items         []OrderItem          `gorm:"foreignKey:OrderID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"items"`
	StatusHistory []OrderStatusHistory `gorm:"foreignKey:OrderID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"status_history,omitempty"`
}

// OrderItem represents one line of an order. A nil ProductID marks a
// non-inventory line (shipping fee, manual charge) that never participates
// in allocation. ShippedQuantity is written only by the allocation engine.
type OrderItem struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	OrderID         uint      `gorm:"not null;index" json:"order_id"`
	ProductID       *uint     `gorm:"index" json:"product_id"`
	Color           string    `gorm:"size:50" json:"color"`
	Size            string    `gorm:"size:50" json:"size"`
	Name            string    `gorm:"not null;size:255" json:"name"`
	Quantity        int       `gorm:"not null" json:"quantity"`
	ShippedQuantity int       `gorm:"not null;default:0" json:"shipped_quantity"`
	Price           int64     `gorm:"not null" json:"price"`       // Price per unit in cents
	TotalPrice      int64     `gorm:"not null" json:"total_price"` // Quantity * Price
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// OrderStatusHistory tracks order status changes
type OrderStatusHistory struct {
	ID        uint        `gorm:"primaryKey" json:"id"`
	OrderID   uint        `gorm:"not null;index" json:"order_id"`
	Status    OrderStatus `gorm:"not null" json:"status"`
	Comment   string      `gorm:"type:text" json:"comment"`
	CreatedBy uint        `gorm:"index" json:"created_by"`
	CreatedAt time.Time   `json:"created_at"`
}

// TableName overrides
func (Order) TableName() string              { return "orders" }
func (OrderItem) TableName() string          { return "order_items" }
func (OrderStatusHistory) TableName() string { return "order_status_history" }

// Business methods for Order

// GenerateOrderNumber generates a unique order number
func (o *Order) GenerateOrderNumber() string {
	// Format: WHO-YYYYMMDD-XXXXX
	return fmt.Sprintf("WHO-%s-%05d", time.Now().Format("20060102"), o.ID)
}

// CanBeCancelled checks if order can be cancelled
func (o *Order) CanBeCancelled() bool {
	return !o.Status.IsTerminal()
}

// Business methods for OrderItem

// IsInventoryLine reports whether the item draws on variant stock.
func (i *OrderItem) IsInventoryLine() bool {
	return i.ProductID != nil
}

// UnmetQuantity returns the portion of the requested quantity not yet
// covered by an allocation.
func (i *OrderItem) UnmetQuantity() int {
	if !i.IsInventoryLine() {
		return 0
	}
	if remaining := i.Quantity - i.ShippedQuantity; remaining > 0 {
		return remaining
	}
	return 0
}

// IsFullyShipped reports whether the item's demand is completely covered.
func (i *OrderItem) IsFullyShipped() bool {
	return i.ShippedQuantity >= i.Quantity
}
