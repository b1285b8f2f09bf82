// internal/interfaces/http/handlers/stock.go
package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/wholesale-backend/internal/domain/product"
	"github.com/your-org/wholesale-backend/internal/domain/stock"
	"github.com/your-org/wholesale-backend/internal/interfaces/http/middleware"
)

// StockHandler handles stock ledger and allocation endpoints
type StockHandler struct {
	stock    *stock.Service
	products *product.Service
	log      *logrus.Logger
}

// NewStockHandler creates a new stock handler
func NewStockHandler(stockService *stock.Service, products *product.Service, log *logrus.Logger) *StockHandler {
	return &StockHandler{
		stock:    stockService,
		products: products,
		log:      log,
	}
}

// Adjust handles POST /api/v1/admin/stock/adjust. Exactly one of
// adjustment (relative) or absolute_value must be present; mixing them or
// omitting both is rejected before anything is written.
func (h *StockHandler) Adjust(c *gin.Context) {
	actor, _ := middleware.GetCompanyIDFromContext(c)

	var req stock.AdjustStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.stock.AdjustStock(&req, actor)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Stock adjusted successfully",
		"data":    result,
	})
}

// BulkUploadRow is one row of a bulk stock upload, keyed by product code.
type BulkUploadRow struct {
	ProductCode   string `json:"product_code" binding:"required"`
	Color         string `json:"color"`
	Size          string `json:"size"`
	PhysicalStock int    `json:"physical_stock"`
}

// BulkUpload handles POST /api/v1/admin/stock/bulk-upload. Rows are
// resolved by product code, applied as absolute targets one by one, and a
// global sweep runs at the end. The response reports every row, resolved
// or not; silent partial success is not an option here.
func (h *StockHandler) BulkUpload(c *gin.Context) {
	actor, _ := middleware.GetCompanyIDFromContext(c)

	var req struct {
		Rows []BulkUploadRow `json:"rows" binding:"required,min=1,dive"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resolved := make([]stock.BulkStockRow, 0, len(req.Rows))
	unresolved := make([]stock.BulkStockRowResult, 0)

	for _, row := range req.Rows {
		prod, err := h.products.GetProductByCode(row.ProductCode)
		if err != nil {
			unresolved = append(unresolved, stock.BulkStockRowResult{
				Row: stock.BulkStockRow{
					ProductCode:         row.ProductCode,
					Color:               row.Color,
					Size:                row.Size,
					TargetPhysicalStock: row.PhysicalStock,
				},
				Success: false,
				Error:   err.Error(),
			})
			continue
		}

		resolved = append(resolved, stock.BulkStockRow{
			ProductCode:         prod.Code,
			ProductID:           prod.ID,
			Color:               row.Color,
			Size:                row.Size,
			TargetPhysicalStock: row.PhysicalStock,
		})
	}

	report := &stock.BulkStockReport{}
	if len(resolved) > 0 {
		var err error
		report, err = h.stock.BulkSetStock(resolved, actor)
		if err != nil {
			h.respondError(c, err)
			return
		}
	}

	report.Processed += len(unresolved)
	report.Failed += len(unresolved)
	report.Rows = append(report.Rows, unresolved...)

	c.JSON(http.StatusOK, gin.H{
		"message": "Bulk stock upload processed",
		"data":    report,
	})
}

// Sweep handles POST /api/v1/admin/stock/sweep
func (h *StockHandler) Sweep(c *gin.Context) {
	actor, _ := middleware.GetCompanyIDFromContext(c)

	report, err := h.stock.Sweep(actor)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Sweep failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Global sweep completed",
		"data":    report,
	})
}

// ReallocateProduct handles POST /api/v1/admin/stock/products/:id/reallocate
func (h *StockHandler) ReallocateProduct(c *gin.Context) {
	actor, _ := middleware.GetCompanyIDFromContext(c)

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid product ID"})
		return
	}

	reports, err := h.stock.ReallocateProduct(uint(id), actor)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Product reallocated successfully",
		"data":    reports,
	})
}

// ReadAvailable handles GET /api/v1/stock/:productId
func (h *StockHandler) ReadAvailable(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("productId"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid product ID"})
		return
	}

	level, err := h.stock.ReadAvailable(uint(id), c.Query("color"), c.Query("size"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": level})
}

// Levels handles GET /api/v1/admin/stock/products/:id
func (h *StockHandler) Levels(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid product ID"})
		return
	}

	levels, err := h.stock.GetProductStock(uint(id))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": levels})
}

// Movements handles GET /api/v1/admin/stock/products/:id/movements
func (h *StockHandler) Movements(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid product ID"})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))

	movements, err := h.stock.GetMovements(uint(id), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve movements"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": movements})
}

// SampleReturn handles POST /api/v1/samples/return
func (h *StockHandler) SampleReturn(c *gin.Context) {
	actor, _ := middleware.GetCompanyIDFromContext(c)

	var req stock.SampleReturnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.stock.RecordSampleReturn(&req, actor)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Sample return recorded",
		"data":    result,
	})
}

// respondError maps engine errors onto HTTP statuses.
func (h *StockHandler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, stock.ErrVariantNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, stock.ErrInvalidAdjustment):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, stock.ErrLockTimeout):
		c.JSON(http.StatusConflict, gin.H{"error": "Stock is busy, please retry"})
	default:
		h.log.WithError(err).Error("Stock operation failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Stock operation failed"})
	}
}
