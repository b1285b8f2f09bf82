// internal/interfaces/http/handlers/product.go
package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/wholesale-backend/internal/domain/product"
	"github.com/your-org/wholesale-backend/internal/domain/stock"
)

// ProductHandler handles product catalog endpoints. Product creation also
// seeds the stock ledger: every sellable option gets its variant row so the
// engine never has to lazily invent one mid-allocation.
type ProductHandler struct {
	products *product.Service
	stock    *stock.Service
	log      *logrus.Logger
}

// NewProductHandler creates a new product handler
func NewProductHandler(products *product.Service, stockService *stock.Service, log *logrus.Logger) *ProductHandler {
	return &ProductHandler{
		products: products,
		stock:    stockService,
		log:      log,
	}
}

// Create handles POST /api/v1/admin/products
func (h *ProductHandler) Create(c *gin.Context) {
	var req product.ProductCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	prod, err := h.products.CreateProduct(&req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	options := make([]stock.VariantOption, 0, len(prod.Options))
	for _, o := range prod.Options {
		options = append(options, stock.VariantOption{Color: o.Color, Size: o.Size})
	}
	if err := h.stock.EnsureVariants(prod.ID, options); err != nil {
		h.log.WithError(err).WithField("product_id", prod.ID).Error("Failed to seed variant stock rows")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Product created but stock rows could not be initialized"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Product created successfully",
		"data":    prod,
	})
}

// List handles GET /api/v1/products
func (h *ProductHandler) List(c *gin.Context) {
	var req product.ProductListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := h.products.GetProducts(&req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve products"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// Get handles GET /api/v1/products/:id
func (h *ProductHandler) Get(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid product ID"})
		return
	}

	prod, err := h.products.GetProduct(uint(id))
	if err != nil {
		if errors.Is(err, product.ErrProductNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve product"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": prod})
}

// Update handles PUT /api/v1/admin/products/:id
func (h *ProductHandler) Update(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid product ID"})
		return
	}

	var req product.ProductUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	prod, err := h.products.UpdateProduct(uint(id), &req)
	if err != nil {
		if errors.Is(err, product.ErrProductNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// Newly added options need their stock rows before anyone orders them.
	options := make([]stock.VariantOption, 0, len(prod.Options))
	for _, o := range prod.Options {
		options = append(options, stock.VariantOption{Color: o.Color, Size: o.Size})
	}
	if err := h.stock.EnsureVariants(prod.ID, options); err != nil {
		h.log.WithError(err).WithField("product_id", prod.ID).Error("Failed to seed variant stock rows")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Product updated but stock rows could not be initialized"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Product updated successfully",
		"data":    prod,
	})
}

// Delete handles DELETE /api/v1/admin/products/:id
func (h *ProductHandler) Delete(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid product ID"})
		return
	}

	if err := h.products.DeleteProduct(uint(id)); err != nil {
		if errors.Is(err, product.ErrProductNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete product"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Product deleted successfully"})
}

// GetStock handles GET /api/v1/products/:id/stock
func (h *ProductHandler) GetStock(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid product ID"})
		return
	}

	levels, err := h.stock.GetProductStock(uint(id))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve stock levels"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": levels})
}
