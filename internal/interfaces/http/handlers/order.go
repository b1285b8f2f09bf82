// internal/interfaces/http/handlers/order.go
package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/wholesale-backend/internal/domain/order"
	"github.com/your-org/wholesale-backend/internal/domain/product"
	"github.com/your-org/wholesale-backend/internal/domain/stock"
	"github.com/your-org/wholesale-backend/internal/interfaces/http/middleware"
)

// OrderHandler handles order endpoints. It composes the order service with
// the stock engine: creation runs an allocation pass per inventory line,
// cancellation and item edits trigger the pass that redistributes or
// recomputes the affected variant's stock.
type OrderHandler struct {
	orders   *order.Service
	products *product.Service
	stock    *stock.Service
	log      *logrus.Logger
}

// NewOrderHandler creates a new order handler
func NewOrderHandler(orders *order.Service, products *product.Service, stockService *stock.Service, log *logrus.Logger) *OrderHandler {
	return &OrderHandler{
		orders:   orders,
		products: products,
		stock:    stockService,
		log:      log,
	}
}

// rejectedLine describes an order line refused at creation time.
type rejectedLine struct {
	ProductID uint   `json:"product_id"`
	Color     string `json:"color"`
	Size      string `json:"size"`
	Reason    string `json:"reason"`
}

// Create handles POST /api/v1/orders.
//
// Every inventory line must reference a variant with available stock right
// now; a single zero-available line rejects the whole order. Lines that
// pass are persisted and then allocated variant by variant, and the
// response carries the order with its projected status.
func (h *OrderHandler) Create(c *gin.Context) {
	companyID, ok := middleware.GetCompanyIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	var req order.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	lines := make([]order.NewOrderLine, 0, len(req.Items))
	rejected := make([]rejectedLine, 0)

	for _, item := range req.Items {
		if item.ProductID == nil {
			if strings.TrimSpace(item.Name) == "" || item.Price <= 0 {
				c.JSON(http.StatusBadRequest, gin.H{
					"error": "Non-inventory lines must carry a name and a positive price",
				})
				return
			}
			lines = append(lines, order.NewOrderLine{
				Name:     item.Name,
				Price:    item.Price,
				Quantity: item.Quantity,
			})
			continue
		}

		prod, err := h.products.GetProduct(*item.ProductID)
		if err != nil {
			if errors.Is(err, product.ErrProductNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to resolve product"})
			return
		}
		if !prod.IsActive {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": fmt.Sprintf("product %s is not available for ordering", prod.Code),
			})
			return
		}
		if !prod.HasOption(item.Color, item.Size) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": fmt.Sprintf("product %s has no %s/%s option", prod.Code, item.Color, item.Size),
			})
			return
		}
		if !prod.MeetsMinOrder(item.Quantity) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": fmt.Sprintf("product %s requires a minimum order of %d units", prod.Code, prod.MinOrderQuantity),
			})
			return
		}

		level, err := h.stock.ReadAvailable(prod.ID, item.Color, item.Size)
		if err != nil {
			h.respondStockError(c, err)
			return
		}
		if level.AvailableStock <= 0 {
			rejected = append(rejected, rejectedLine{
				ProductID: prod.ID,
				Color:     item.Color,
				Size:      item.Size,
				Reason:    "no available stock",
			})
			continue
		}

		lines = append(lines, order.NewOrderLine{
			ProductID: &prod.ID,
			Color:     item.Color,
			Size:      item.Size,
			Name:      prod.Name,
			Price:     prod.Price,
			Quantity:  item.Quantity,
		})
	}

	if len(rejected) > 0 {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":          "One or more lines reference variants with no available stock",
			"rejected_lines": rejected,
		})
		return
	}

	ord, err := h.orders.CreateOrder(companyID, lines, req.Notes)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create order"})
		return
	}

	// One allocation pass per distinct variant on the order.
	for _, key := range distinctVariants(ord.Items) {
		if _, err := h.stock.AllocateVariant(key.productID, key.color, key.size, companyID); err != nil {
			h.log.WithError(err).WithFields(logrus.Fields{
				"order_id":   ord.ID,
				"product_id": key.productID,
			}).Error("Allocation pass failed after order creation")
		}
	}

	// Reload for the projected status and shipped quantities.
	ord, err = h.orders.GetOrder(ord.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Order created but could not be reloaded"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Order created successfully",
		"data":    ord,
	})
}

// List handles GET /api/v1/orders. Buyers see their own orders; admins can
// list across companies with filters.
func (h *OrderHandler) List(c *gin.Context) {
	companyID, ok := middleware.GetCompanyIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	var req order.OrderListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if !middleware.IsAdminFromContext(c) {
		req.CompanyID = companyID
	}

	resp, err := h.orders.GetOrders(&req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve orders"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// Get handles GET /api/v1/orders/:id
func (h *OrderHandler) Get(c *gin.Context) {
	companyID, ok := middleware.GetCompanyIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid order ID"})
		return
	}

	ord, err := h.orders.GetOrder(uint(id))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
		return
	}

	if ord.CompanyID != companyID && !middleware.IsAdminFromContext(c) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Access denied"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": ord})
}

// UpdateStatus handles PUT /api/v1/admin/orders/:id/status. Only terminal
// fulfillment statuses are accepted; the live statuses are projected from
// allocation and cannot be set by hand.
//
// The first transition out of the allocation queue settles the ledger:
// shipping takes the granted units out of physical stock, while a return or
// refund straight from a live order keeps the goods and hands the freed
// grants back to the queue.
func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	actor, _ := middleware.GetCompanyIDFromContext(c)

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid order ID"})
		return
	}

	var req struct {
		Status  order.OrderStatus `json:"status" binding:"required"`
		Comment string            `json:"comment"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ord, err := h.orders.GetOrder(uint(id))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
		return
	}
	wasLive := !ord.Status.IsTerminal()

	if err := h.orders.UpdateOrderStatus(uint(id), req.Status, req.Comment, actor); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if wasLive {
		switch req.Status {
		case order.OrderStatusShipped, order.OrderStatusDelivered:
			if err := h.stock.ReleaseOrderShipment(ord, actor); err != nil {
				h.log.WithError(err).WithField("order_id", ord.ID).Error("Failed to release shipped stock")
			}
		default:
			for _, key := range distinctVariants(ord.Items) {
				if _, err := h.stock.AllocateVariant(key.productID, key.color, key.size, actor); err != nil {
					h.log.WithError(err).WithFields(logrus.Fields{
						"order_id":   ord.ID,
						"product_id": key.productID,
					}).Error("Allocation pass failed after terminal transition")
				}
			}
		}
	}

	c.JSON(http.StatusOK, gin.H{"message": "Order status updated successfully"})
}

// UpdateItemQuantity handles PUT /api/v1/admin/orders/:id/items/:itemId.
// After the edit, the item's variant gets a reset-and-refill pass so every
// order competing for that variant is recomputed under FIFO.
func (h *OrderHandler) UpdateItemQuantity(c *gin.Context) {
	actor, _ := middleware.GetCompanyIDFromContext(c)

	orderID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid order ID"})
		return
	}
	itemID, err := strconv.ParseUint(c.Param("itemId"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid item ID"})
		return
	}

	var req struct {
		Quantity int `json:"quantity" binding:"required,gt=0"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	item, err := h.orders.UpdateOrderItemQuantity(uint(orderID), uint(itemID), req.Quantity, actor)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var report *stock.AllocationReport
	if item.IsInventoryLine() {
		report, err = h.stock.ReallocateVariant(*item.ProductID, item.Color, item.Size, actor)
		if err != nil {
			h.respondStockError(c, err)
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Order item updated successfully",
		"data": gin.H{
			"item":         item,
			"reallocation": report,
		},
	})
}

// Cancel handles POST /api/v1/orders/:id/cancel. Cancellation frees the
// order's allocated stock, so each affected variant gets an incremental
// pass to hand the freed units to the rest of the queue.
func (h *OrderHandler) Cancel(c *gin.Context) {
	companyID, ok := middleware.GetCompanyIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid order ID"})
		return
	}

	ord, err := h.orders.GetOrder(uint(id))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
		return
	}
	if ord.CompanyID != companyID && !middleware.IsAdminFromContext(c) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Access denied"})
		return
	}

	var req struct {
		Reason string `json:"reason"`
	}
	_ = c.ShouldBindJSON(&req)

	cancelled, err := h.orders.CancelOrder(uint(id), req.Reason, companyID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	for _, key := range distinctVariants(cancelled.Items) {
		if _, err := h.stock.AllocateVariant(key.productID, key.color, key.size, companyID); err != nil {
			h.log.WithError(err).WithFields(logrus.Fields{
				"order_id":   cancelled.ID,
				"product_id": key.productID,
			}).Error("Allocation pass failed after cancellation")
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Order cancelled successfully",
		"data":    cancelled,
	})
}

// respondStockError maps engine errors onto HTTP statuses.
func (h *OrderHandler) respondStockError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, stock.ErrVariantNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, stock.ErrInvalidAdjustment):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, stock.ErrLockTimeout):
		c.JSON(http.StatusConflict, gin.H{"error": "Stock is busy, please retry"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Stock operation failed"})
	}
}

type variantRef struct {
	productID uint
	color     string
	size      string
}

// distinctVariants returns each inventory variant on the order once.
func distinctVariants(items []order.OrderItem) []variantRef {
	seen := make(map[variantRef]bool)
	refs := make([]variantRef, 0, len(items))
	for _, item := range items {
		if !item.IsInventoryLine() {
			continue
		}
		ref := variantRef{productID: *item.ProductID, color: item.Color, size: item.Size}
		if !seen[ref] {
			seen[ref] = true
			refs = append(refs, ref)
		}
	}
	return refs
}
