// internal/interfaces/http/routes/routes.go
package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/wholesale-backend/internal/config"
	"github.com/your-org/wholesale-backend/internal/domain/company"
	"github.com/your-org/wholesale-backend/internal/domain/order"
	"github.com/your-org/wholesale-backend/internal/domain/product"
	"github.com/your-org/wholesale-backend/internal/domain/stock"
	"github.com/your-org/wholesale-backend/internal/interfaces/http/handlers"
	"github.com/your-org/wholesale-backend/internal/interfaces/http/middleware"
	"gorm.io/gorm"
)

// SetupRoutes wires all services and handlers onto the API group. The
// domain services stay independent of each other; every composition of
// order flow and stock engine happens in the handlers.
func SetupRoutes(rg *gin.RouterGroup, db *gorm.DB, cfg *config.Config, log *logrus.Logger, bus stock.EventPublisher) {
	companyService := company.NewService(db, cfg)
	productService := product.NewService(db, cfg)
	orderService := order.NewService(db, cfg)
	stockService := stock.NewService(db, cfg, log, bus)

	authHandler := handlers.NewAuthHandler(companyService)
	productHandler := handlers.NewProductHandler(productService, stockService, log)
	orderHandler := handlers.NewOrderHandler(orderService, productService, stockService, log)
	stockHandler := handlers.NewStockHandler(stockService, productService, log)

	// Public auth endpoints
	auth := rg.Group("/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.RefreshToken)

		protected := auth.Group("")
		protected.Use(middleware.AuthMiddleware(cfg))
		{
			protected.GET("/me", authHandler.Me)
		}
	}

	// Catalog browsing is open to any authenticated account
	products := rg.Group("/products")
	products.Use(middleware.AuthMiddleware(cfg))
	{
		products.GET("", productHandler.List)
		products.GET("/:id", productHandler.Get)
		products.GET("/:id/stock", productHandler.GetStock)
	}

	// Stock availability lookup for order forms
	stockGroup := rg.Group("/stock")
	stockGroup.Use(middleware.AuthMiddleware(cfg))
	{
		stockGroup.GET("/:productId", stockHandler.ReadAvailable)
	}

	// Sample returns come from showroom staff accounts, not only admins
	samples := rg.Group("/samples")
	samples.Use(middleware.AuthMiddleware(cfg))
	{
		samples.POST("/return", stockHandler.SampleReturn)
	}

	// Buyer order endpoints
	orders := rg.Group("/orders")
	orders.Use(middleware.AuthMiddleware(cfg))
	{
		orders.POST("", orderHandler.Create)
		orders.GET("", orderHandler.List)
		orders.GET("/:id", orderHandler.Get)
		orders.POST("/:id/cancel", orderHandler.Cancel)
	}

	// Admin endpoints
	admin := rg.Group("/admin")
	admin.Use(middleware.AuthMiddleware(cfg))
	admin.Use(middleware.AdminMiddleware())
	{
		admin.POST("/products", productHandler.Create)
		admin.PUT("/products/:id", productHandler.Update)
		admin.DELETE("/products/:id", productHandler.Delete)

		admin.PUT("/orders/:id/status", orderHandler.UpdateStatus)
		admin.PUT("/orders/:id/items/:itemId", orderHandler.UpdateItemQuantity)

		adminStock := admin.Group("/stock")
		{
			adminStock.POST("/adjust", stockHandler.Adjust)
			adminStock.POST("/bulk-upload", stockHandler.BulkUpload)
			adminStock.POST("/sweep", stockHandler.Sweep)
			adminStock.POST("/products/:id/reallocate", stockHandler.ReallocateProduct)
			adminStock.GET("/products/:id", stockHandler.Levels)
			adminStock.GET("/products/:id/movements", stockHandler.Movements)
		}
	}
}
