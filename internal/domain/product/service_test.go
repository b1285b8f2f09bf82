// internal/domain/product/service_test.go
package product

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/wholesale-backend/internal/config"
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
	require.NoError(t, db.AutoMigrate(&Product{}, &ProductOption{}))

	return NewService(db, &config.Config{})
}

func TestUpdateProductAddsOptions(t *testing.T) {
	s := newTestService(t)

	prod, err := s.CreateProduct(&ProductCreateRequest{
		Code:  "STY-2001",
		Name:  "Boxy Tee",
		Price: 2400,
		Options: []ProductOptionRequest{
			{Color: "White", Size: "M"},
		},
	})
	require.NoError(t, err)
	require.Len(t, prod.Options, 1)

	updated, err := s.UpdateProduct(prod.ID, &ProductUpdateRequest{
		Options: []ProductOptionRequest{
			{Color: "White", Size: "M"}, // already present, must not duplicate
			{Color: "White", Size: "L"},
			{Color: "Black", Size: "M"},
		},
	})
	require.NoError(t, err)
	assert.Len(t, updated.Options, 3)
	assert.True(t, updated.HasOption("White", "M"))
	assert.True(t, updated.HasOption("White", "L"))
	assert.True(t, updated.HasOption("Black", "M"))

	var count int64
	require.NoError(t, s.db.Model(&ProductOption{}).
		Where("product_id = ?", prod.ID).Count(&count).Error)
	assert.Equal(t, int64(3), count)
}

func TestUpdateProductFields(t *testing.T) {
	s := newTestService(t)

	prod, err := s.CreateProduct(&ProductCreateRequest{
		Code:  "STY-2002",
		Name:  "Old Name",
		Price: 1000,
	})
	require.NoError(t, err)

	name := "New Name"
	price := int64(1500)
	updated, err := s.UpdateProduct(prod.ID, &ProductUpdateRequest{
		Name:  &name,
		Price: &price,
	})
	require.NoError(t, err)
	assert.Equal(t, "New Name", updated.Name)
	assert.Equal(t, int64(1500), updated.Price)
	assert.Empty(t, updated.Options)
}
