// internal/domain/stock/service_test.go
package stock

import (
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/wholesale-backend/internal/config"
	"github.com/your-org/wholesale-backend/internal/domain/order"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestService(t *testing.T) *Service {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&order.Order{},
		&order.OrderItem{},
		&order.OrderStatusHistory{},
		&VariantStock{},
		&StockMovement{},
	))

	cfg := &config.Config{
		Allocation: config.AllocationConfig{LockTimeout: time.Second},
	}
	log := logrus.New()
	log.SetOutput(io.Discard)

	return NewService(db, cfg, log, nil)
}

func seedVariant(t *testing.T, s *Service, productID uint, physical int) {
	t.Helper()
	variant := VariantStock{ProductID: productID, PhysicalStock: physical}
	require.NoError(t, s.db.Create(&variant).Error)
}

func seedOrder(t *testing.T, s *Service, number string, createdAt time.Time, productID uint, quantity int) *order.Order {
	t.Helper()

	ord := order.Order{
		OrderNumber: number,
		CompanyID:   1,
		Status:      order.OrderStatusPending,
		CreatedAt:   createdAt,
	}
	require.NoError(t, s.db.Create(&ord).Error)

	item := order.OrderItem{
		OrderID:    ord.ID,
		ProductID:  &productID,
		Name:       "Test Style",
		Quantity:   quantity,
		Price:      100,
		TotalPrice: int64(quantity) * 100,
	}
	require.NoError(t, s.db.Create(&item).Error)

	ord.Items = []order.OrderItem{item}
	return &ord
}

func shippedQuantity(t *testing.T, s *Service, itemID uint) int {
	t.Helper()
	var item order.OrderItem
	require.NoError(t, s.db.First(&item, itemID).Error)
	return item.ShippedQuantity
}

func loadVariant(t *testing.T, s *Service, productID uint) *VariantStock {
	t.Helper()
	var variant VariantStock
	require.NoError(t, s.db.Where("product_id = ?", productID).First(&variant).Error)
	return &variant
}

// Cancelling an order frees its grants, and the next incremental pass must
// see the freed units even though the persisted available still reads zero:
// the pool is recomputed from the live item set, never taken from the row.
func TestAllocateVariantRedistributesAfterCancel(t *testing.T) {
	s := newTestService(t)
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	seedVariant(t, s, 1, 10)
	a := seedOrder(t, s, "WHO-A", base, 1, 6)
	b := seedOrder(t, s, "WHO-B", base.Add(time.Hour), 1, 8)

	_, err := s.AllocateVariant(1, "", "", 1)
	require.NoError(t, err)
	assert.Equal(t, 6, shippedQuantity(t, s, a.Items[0].ID))
	assert.Equal(t, 4, shippedQuantity(t, s, b.Items[0].ID))

	require.NoError(t, s.db.Model(&order.Order{}).
		Where("id = ?", a.ID).
		Update("status", order.OrderStatusCancelled).Error)

	report, err := s.AllocateVariant(1, "", "", 1)
	require.NoError(t, err)

	assert.Equal(t, 4, report.GrantedTotal)
	assert.Equal(t, 8, shippedQuantity(t, s, b.Items[0].ID))

	variant := loadVariant(t, s, 1)
	assert.Equal(t, 10, variant.PhysicalStock)
	assert.Equal(t, 8, variant.AllocatedStock)
	assert.Equal(t, 2, variant.AvailableStock)
}

// Shipping an order takes its granted units out of the building: physical
// drops by the shipped total, the allocation sum loses the terminal order,
// and available stays where it was. The shipped goods must never look newly
// sellable to a later pass.
func TestReleaseOrderShipment(t *testing.T) {
	s := newTestService(t)
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	seedVariant(t, s, 1, 10)
	a := seedOrder(t, s, "WHO-A", base, 1, 6)

	_, err := s.AllocateVariant(1, "", "", 1)
	require.NoError(t, err)
	assert.Equal(t, 6, shippedQuantity(t, s, a.Items[0].ID))

	require.NoError(t, s.db.Model(&order.Order{}).
		Where("id = ?", a.ID).
		Update("status", order.OrderStatusShipped).Error)

	var shipped order.Order
	require.NoError(t, s.db.Preload("Items").First(&shipped, a.ID).Error)
	require.NoError(t, s.ReleaseOrderShipment(&shipped, 1))

	variant := loadVariant(t, s, 1)
	assert.Equal(t, 4, variant.PhysicalStock)
	assert.Equal(t, 0, variant.AllocatedStock)
	assert.Equal(t, 4, variant.AvailableStock)

	var movement StockMovement
	require.NoError(t, s.db.
		Where("product_id = ? AND movement_type = ?", 1, MovementTypeFulfillment).
		First(&movement).Error)
	assert.Equal(t, -6, movement.Quantity)
	assert.Equal(t, 10, movement.PreviousPhysical)
	assert.Equal(t, 4, movement.NewPhysical)

	// A later order only gets what physically remains.
	b := seedOrder(t, s, "WHO-B", base.Add(time.Hour), 1, 5)
	report, err := s.AllocateVariant(1, "", "", 1)
	require.NoError(t, err)
	assert.Equal(t, 4, report.GrantedTotal)
	assert.Equal(t, 4, shippedQuantity(t, s, b.Items[0].ID))
}

func TestEnsureVariants(t *testing.T) {
	s := newTestService(t)

	options := []VariantOption{
		{Color: "Navy", Size: "M"},
		{Color: "Navy", Size: "L"},
	}
	require.NoError(t, s.EnsureVariants(7, options))

	var count int64
	s.db.Model(&VariantStock{}).Where("product_id = ?", 7).Count(&count)
	assert.Equal(t, int64(2), count)

	// Re-running with an extended option set only adds the missing row.
	options = append(options, VariantOption{Color: "White", Size: "M"})
	require.NoError(t, s.EnsureVariants(7, options))
	s.db.Model(&VariantStock{}).Where("product_id = ?", 7).Count(&count)
	assert.Equal(t, int64(3), count)

	// A product without options gets the single aggregate row.
	require.NoError(t, s.EnsureVariants(8, nil))
	variant := loadVariant(t, s, 8)
	assert.Equal(t, "", variant.Color)
	assert.Equal(t, "", variant.Size)
}
