// internal/domain/product/service.go
package product

import (
	"errors"
	"fmt"
	"strings"

	"github.com/your-org/wholesale-backend/internal/config"
	"gorm.io/gorm"
)

// ErrProductNotFound is returned when a product lookup misses.
var ErrProductNotFound = errors.New("product not found")

// Service handles product business logic
type Service struct {
	db     *gorm.DB
	config *config.Config
}

// NewService creates a new product service
func NewService(db *gorm.DB, cfg *config.Config) *Service {
	return &Service{
		db:     db,
		config: cfg,
	}
}

// ProductListRequest represents product list query parameters
type ProductListRequest struct {
	Page      int    `form:"page,default=1"`
	Limit     int    `form:"limit,default=20"`
	Search    string `form:"search"`
	IsActive  *bool  `form:"is_active"`
	SortBy    string `form:"sort_by,default=created_at"`
	SortOrder string `form:"sort_order,default=desc"`
}

// ProductOptionRequest is one color/size combination in a create request.
type ProductOptionRequest struct {
	Color string `json:"color"`
	Size  string `json:"size"`
}

// ProductCreateRequest represents product creation data
type ProductCreateRequest struct {
	Code             string                 `json:"code" binding:"required"`
	Name             string                 `json:"name" binding:"required"`
	Description      string                 `json:"description"`
	Price            int64                  `json:"price" binding:"required,gt=0"`
	MinOrderQuantity int                    `json:"min_order_quantity"`
	IsActive         *bool                  `json:"is_active"`
	Options          []ProductOptionRequest `json:"options"`
}

// ProductUpdateRequest represents product update data. Options listed here
// are added to the product; existing options can never be removed because
// stock rows and order lines reference them.
type ProductUpdateRequest struct {
	Name             *string                `json:"name"`
	Description      *string                `json:"description"`
	Price            *int64                 `json:"price"`
	MinOrderQuantity *int                   `json:"min_order_quantity"`
	IsActive         *bool                  `json:"is_active"`
	Options          []ProductOptionRequest `json:"options"`
}

// ProductListResponse represents paginated product list
type ProductListResponse struct {
	Products   []Product `json:"products"`
	Total      int64     `json:"total"`
	Page       int       `json:"page"`
	Limit      int       `json:"limit"`
	TotalPages int       `json:"total_pages"`
}

// CreateProduct creates a new product with its sellable options.
func (s *Service) CreateProduct(req *ProductCreateRequest) (*Product, error) {
	var existing Product
	if err := s.db.Where("code = ?", req.Code).First(&existing).Error; err == nil {
		return nil, fmt.Errorf("product with code %s already exists", req.Code)
	}

	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}
	minOrder := req.MinOrderQuantity
	if minOrder <= 0 {
		minOrder = 1
	}

	prod := Product{
		Code:             strings.ToUpper(strings.TrimSpace(req.Code)),
		Name:             req.Name,
		Description:      req.Description,
		Price:            req.Price,
		MinOrderQuantity: minOrder,
		IsActive:         isActive,
	}
	for _, o := range req.Options {
		prod.Options = append(prod.Options, ProductOption{
			Color: strings.TrimSpace(o.Color),
			Size:  strings.TrimSpace(o.Size),
		})
	}

	if err := s.db.Create(&prod).Error; err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	return &prod, nil
}

// GetProduct retrieves a product by ID with its options.
func (s *Service) GetProduct(id uint) (*Product, error) {
	var prod Product
	err := s.db.Preload("Options").First(&prod, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: id %d", ErrProductNotFound, id)
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return &prod, nil
}

// GetProductByCode retrieves a product by its style code. Bulk stock
// uploads resolve rows through this.
func (s *Service) GetProductByCode(code string) (*Product, error) {
	var prod Product
	err := s.db.Preload("Options").
		Where("code = ?", strings.ToUpper(strings.TrimSpace(code))).
		First(&prod).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: code %s", ErrProductNotFound, code)
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return &prod, nil
}

// GetProducts retrieves products with filtering and pagination
func (s *Service) GetProducts(req *ProductListRequest) (*ProductListResponse, error) {
	var products []Product
	var total int64

	query := s.db.Model(&Product{})

	if req.Search != "" {
		search := "%" + strings.ToLower(req.Search) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(code) LIKE ?", search, search)
	}
	if req.IsActive != nil {
		query = query.Where("is_active = ?", *req.IsActive)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count products: %w", err)
	}

	sortBy := req.SortBy
	switch sortBy {
	case "name", "code", "price", "created_at":
	default:
		sortBy = "created_at"
	}
	sortOrder := "DESC"
	if strings.EqualFold(req.SortOrder, "asc") {
		sortOrder = "ASC"
	}

	if req.Page <= 0 {
		req.Page = 1
	}
	if req.Limit <= 0 || req.Limit > 100 {
		req.Limit = 20
	}
	offset := (req.Page - 1) * req.Limit

	err := query.Preload("Options").
		Order(fmt.Sprintf("%s %s", sortBy, sortOrder)).
		Offset(offset).Limit(req.Limit).
		Find(&products).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get products: %w", err)
	}

	totalPages := int((total + int64(req.Limit) - 1) / int64(req.Limit))

	return &ProductListResponse{
		Products:   products,
		Total:      total,
		Page:       req.Page,
		Limit:      req.Limit,
		TotalPages: totalPages,
	}, nil
}

// UpdateProduct updates product fields and adds any new options from the
// request. Options already on the product are left alone, and none are ever
// removed.
func (s *Service) UpdateProduct(id uint, req *ProductUpdateRequest) (*Product, error) {
	prod, err := s.GetProduct(id)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Price != nil {
		if *req.Price <= 0 {
			return nil, fmt.Errorf("price must be positive")
		}
		updates["price"] = *req.Price
	}
	if req.MinOrderQuantity != nil {
		updates["min_order_quantity"] = *req.MinOrderQuantity
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}

	if len(updates) > 0 {
		if err := s.db.Model(prod).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("failed to update product: %w", err)
		}
	}

	for _, o := range req.Options {
		color := strings.TrimSpace(o.Color)
		size := strings.TrimSpace(o.Size)
		if prod.HasOption(color, size) {
			continue
		}
		opt := ProductOption{ProductID: prod.ID, Color: color, Size: size}
		if err := s.db.Create(&opt).Error; err != nil {
			return nil, fmt.Errorf("failed to add option %s/%s: %w", color, size, err)
		}
		prod.Options = append(prod.Options, opt)
	}

	return s.GetProduct(id)
}

// DeleteProduct soft-deletes a product. Existing order lines keep their
// snapshot of name and price.
func (s *Service) DeleteProduct(id uint) error {
	prod, err := s.GetProduct(id)
	if err != nil {
		return err
	}

	if err := s.db.Delete(prod).Error; err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	return nil
}
