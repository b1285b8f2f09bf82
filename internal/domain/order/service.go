// internal/domain/order/service.go
package order

import (
	"fmt"
	"time"

	"github.com/your-org/wholesale-backend/internal/config"
	"gorm.io/gorm"
)

// Service handles order business logic
type Service struct {
	db     *gorm.DB
	config *config.Config
}

// NewService creates a new order service
func NewService(db *gorm.DB, cfg *config.Config) *Service {
	return &Service{
		db:     db,
		config: cfg,
	}
}

// CreateOrderRequest represents order creation data as bound from the API.
// Lines without a product_id are non-inventory lines (e.g. shipping fee)
// and must carry their own name and price.
type CreateOrderRequest struct {
	Items []CreateOrderItemRequest `json:"items" binding:"required,min=1,dive"`
	Notes string                   `json:"notes,omitempty"`
}

// CreateOrderItemRequest represents one requested line
type CreateOrderItemRequest struct {
	ProductID *uint  `json:"product_id"`
	Color     string `json:"color"`
	Size      string `json:"size"`
	Name      string `json:"name"`
	Price     int64  `json:"price"`
	Quantity  int    `json:"quantity" binding:"required,gt=0"`
}

// NewOrderLine is a fully resolved line ready to persist: the caller has
// already resolved product name/price and checked variant availability.
type NewOrderLine struct {
	ProductID *uint
	Color     string
	Size      string
	Name      string
	Price     int64
	Quantity  int
}

// OrderListRequest represents order list query parameters
type OrderListRequest struct {
	Page      int         `form:"page,default=1"`
	Limit     int         `form:"limit,default=20"`
	Status    OrderStatus `form:"status"`
	CompanyID uint        `form:"company_id"`
	SortBy    string      `form:"sort_by,default=created_at"`
	SortOrder string      `form:"sort_order,default=desc"`
	DateFrom  string      `form:"date_from"`
	DateTo    string      `form:"date_to"`
}

// OrderResponse represents order response with pagination
type OrderResponse struct {
	Orders     []Order    `json:"orders"`
	Pagination Pagination `json:"pagination"`
}

// Pagination represents pagination information
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
	HasPrev    bool  `json:"has_prev"`
}

// CreateOrder persists a new order with its items. Allocation is not run
// here: the caller invokes the allocation engine per inventory line once the
// rows exist, then re-reads the order for its projected status.
func (s *Service) CreateOrder(companyID uint, lines []NewOrderLine, notes string) (*Order, error) {
	if len(lines) == 0 {
		return nil, fmt.Errorf("order must contain at least one line")
	}

	var total int64
	for _, line := range lines {
		if line.Quantity <= 0 {
			return nil, fmt.Errorf("line '%s' has non-positive quantity %d", line.Name, line.Quantity)
		}
		total += line.Price * int64(line.Quantity)
	}

	// Start transaction
	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	order := Order{
		CompanyID:   companyID,
		Status:      OrderStatusPending,
		TotalAmount: total,
		Notes:       notes,
	}

	if err := tx.Create(&order).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	// Generate order number
	order.OrderNumber = order.GenerateOrderNumber()
	if err := tx.Model(&order).Update("order_number", order.OrderNumber).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to update order number: %w", err)
	}

	// Create order items in request order; item ids break allocation ties
	// between orders created in the same instant.
	for _, line := range lines {
		orderItem := OrderItem{
			OrderID:    order.ID,
			ProductID:  line.ProductID,
			Color:      line.Color,
			Size:       line.Size,
			Name:       line.Name,
			Quantity:   line.Quantity,
			Price:      line.Price,
			TotalPrice: line.Price * int64(line.Quantity),
		}

		if err := tx.Create(&orderItem).Error; err != nil {
			tx.Rollback()
			return nil, fmt.Errorf("failed to create order item: %w", err)
		}
	}

	// Add initial status history
	statusHistory := OrderStatusHistory{
		OrderID:   order.ID,
		Status:    OrderStatusPending,
		Comment:   "Order created",
		CreatedBy: companyID,
		CreatedAt: time.Now().UTC(),
	}
	if err := tx.Create(&statusHistory).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to create status history: %w", err)
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("failed to commit order transaction: %w", err)
	}

	// Load complete order with relationships
	if err := s.db.Preload("Items").First(&order, order.ID).Error; err != nil {
		return nil, fmt.Errorf("failed to load complete order: %w", err)
	}

	return &order, nil
}

// GetOrders retrieves orders with filtering and pagination
func (s *Service) GetOrders(req *OrderListRequest) (*OrderResponse, error) {
	var orders []Order
	var total int64

	query := s.db.Model(&Order{}).
		Preload("Items").
		Preload("StatusHistory", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at DESC")
		})

	// Apply filters
	if req.Status != "" {
		query = query.Where("status = ?", req.Status)
	}

	if req.CompanyID > 0 {
		query = query.Where("company_id = ?", req.CompanyID)
	}

	if req.DateFrom != "" {
		query = query.Where("created_at >= ?", req.DateFrom)
	}

	if req.DateTo != "" {
		query = query.Where("created_at <= ?", req.DateTo)
	}

	// Count total records
	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count orders: %w", err)
	}

	// Apply sorting
	query = query.Order(s.buildOrderClause(req.SortBy, req.SortOrder))

	// Apply pagination
	if req.Page < 1 {
		req.Page = 1
	}
	if req.Limit < 1 {
		req.Limit = 20
	}
	offset := (req.Page - 1) * req.Limit
	if err := query.Offset(offset).Limit(req.Limit).Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve orders: %w", err)
	}

	totalPages := int((total + int64(req.Limit) - 1) / int64(req.Limit))
	pagination := Pagination{
		Page:       req.Page,
		Limit:      req.Limit,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    req.Page < totalPages,
		HasPrev:    req.Page > 1,
	}

	return &OrderResponse{
		Orders:     orders,
		Pagination: pagination,
	}, nil
}

// GetOrder retrieves a single order by ID
func (s *Service) GetOrder(id uint) (*Order, error) {
	var order Order
	result := s.db.
		Preload("Items").
		Preload("StatusHistory", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at DESC")
		}).
		Where("id = ?", id).
		First(&order)

	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("order not found")
		}
		return nil, fmt.Errorf("failed to retrieve order: %w", result.Error)
	}

	return &order, nil
}

// UpdateOrderStatus applies a fulfillment-side status transition. Only
// terminal targets are accepted here; the non-terminal statuses are derived
// by the projector and must not be set by hand.
func (s *Service) UpdateOrderStatus(orderID uint, status OrderStatus, comment string, updatedBy uint) error {
	if !status.IsTerminal() {
		return fmt.Errorf("status %s is derived from allocation and cannot be set directly", status)
	}

	var order Order
	if err := s.db.First(&order, orderID).Error; err != nil {
		return fmt.Errorf("order not found: %w", err)
	}

	if !s.isValidStatusTransition(order.Status, status) {
		return fmt.Errorf("invalid status transition from %s to %s", order.Status, status)
	}

	updates := map[string]interface{}{
		"status": status,
	}

	now := time.Now().UTC()
	switch status {
	case OrderStatusShipped:
		updates["shipped_at"] = now
	case OrderStatusDelivered:
		updates["delivered_at"] = now
	}

	if err := s.db.Model(&order).Updates(updates).Error; err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}

	statusHistory := OrderStatusHistory{
		OrderID:   orderID,
		Status:    status,
		Comment:   comment,
		CreatedBy: updatedBy,
		CreatedAt: now,
	}

	if err := s.db.Create(&statusHistory).Error; err != nil {
		return fmt.Errorf("failed to create status history: %w", err)
	}

	return nil
}

// UpdateOrderItemQuantity applies an admin edit to a line's requested
// quantity. The caller must follow up with a reallocation pass for the
// item's variant so shipped quantities and stock totals are recomputed.
func (s *Service) UpdateOrderItemQuantity(orderID, itemID uint, quantity int, updatedBy uint) (*OrderItem, error) {
	if quantity <= 0 {
		return nil, fmt.Errorf("quantity must be positive, got %d", quantity)
	}

	var order Order
	if err := s.db.First(&order, orderID).Error; err != nil {
		return nil, fmt.Errorf("order not found: %w", err)
	}
	if order.Status.IsTerminal() {
		return nil, fmt.Errorf("cannot edit items of a %s order", order.Status)
	}

	var item OrderItem
	if err := s.db.Where("id = ? AND order_id = ?", itemID, orderID).First(&item).Error; err != nil {
		return nil, fmt.Errorf("order item not found: %w", err)
	}

	previous := item.Quantity
	item.Quantity = quantity
	item.TotalPrice = item.Price * int64(quantity)

	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	if err := tx.Model(&item).Updates(map[string]interface{}{
		"quantity":    item.Quantity,
		"total_price": item.TotalPrice,
	}).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to update order item: %w", err)
	}

	// Keep the order total in line with its items.
	if err := tx.Model(&Order{}).Where("id = ?", orderID).
		Update("total_amount", gorm.Expr("total_amount + ?", item.Price*int64(quantity-previous))).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to update order total: %w", err)
	}

	statusHistory := OrderStatusHistory{
		OrderID:   orderID,
		Status:    order.Status,
		Comment:   fmt.Sprintf("Item %d quantity changed from %d to %d", itemID, previous, quantity),
		CreatedBy: updatedBy,
		CreatedAt: time.Now().UTC(),
	}
	if err := tx.Create(&statusHistory).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to create status history: %w", err)
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("failed to commit item update: %w", err)
	}

	return &item, nil
}

// CancelOrder cancels an order. The caller should follow up with an
// allocation pass per affected variant: cancellation releases the order's
// allocated stock to the rest of the queue.
func (s *Service) CancelOrder(orderID uint, reason string, cancelledBy uint) (*Order, error) {
	var order Order
	if err := s.db.Preload("Items").First(&order, orderID).Error; err != nil {
		return nil, fmt.Errorf("order not found: %w", err)
	}

	if !order.CanBeCancelled() {
		return nil, fmt.Errorf("order cannot be cancelled in current status: %s", order.Status)
	}

	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	if err := tx.Model(&order).Update("status", OrderStatusCancelled).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to update order status: %w", err)
	}

	statusHistory := OrderStatusHistory{
		OrderID:   orderID,
		Status:    OrderStatusCancelled,
		Comment:   fmt.Sprintf("Order cancelled: %s", reason),
		CreatedBy: cancelledBy,
		CreatedAt: time.Now().UTC(),
	}

	if err := tx.Create(&statusHistory).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to create status history: %w", err)
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("failed to commit cancellation: %w", err)
	}

	order.Status = OrderStatusCancelled
	return &order, nil
}

// Private helper methods

func (s *Service) isValidStatusTransition(from, to OrderStatus) bool {
	switch from {
	case OrderStatusPending, OrderStatusPartial, OrderStatusConfirmed, OrderStatusProcessing:
		// Any terminal transition is allowed from a live order.
		return to.IsTerminal()
	case OrderStatusShipped:
		return to == OrderStatusDelivered || to == OrderStatusReturned
	case OrderStatusDelivered:
		return to == OrderStatusReturned || to == OrderStatusRefunded
	case OrderStatusReturned:
		return to == OrderStatusRefunded
	default:
		return false
	}
}

func (s *Service) buildOrderClause(sortBy, sortOrder string) string {
	allowedFields := map[string]bool{
		"created_at":   true,
		"updated_at":   true,
		"total_amount": true,
		"status":       true,
		"order_number": true,
	}

	if !allowedFields[sortBy] {
		sortBy = "created_at"
	}

	if sortOrder != "asc" && sortOrder != "desc" {
		sortOrder = "desc"
	}

	return fmt.Sprintf("%s %s", sortBy, sortOrder)
}
