// internal/domain/stock/service.go
package stock

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/your-org/wholesale-backend/internal/config"
	"github.com/your-org/wholesale-backend/internal/domain/order"
	"github.com/your-org/wholesale-backend/internal/pkg/keylock"
	"gorm.io/gorm"
)

// Service is the inventory allocation engine: the stock ledger plus the
// allocator, reallocator and global sweep that keep order demand and
// physical stock consistent. It is the only writer of physical_stock,
// allocated_stock and shipped_quantity.
type Service struct {
	db     *gorm.DB
	config *config.Config
	locks  *keylock.KeyLock
	log    *logrus.Logger
	bus    EventPublisher
}

// NewService creates a new stock service. bus may be nil, which disables
// event publishing.
func NewService(db *gorm.DB, cfg *config.Config, log *logrus.Logger, bus EventPublisher) *Service {
	return &Service{
		db:     db,
		config: cfg,
		locks:  keylock.New(cfg.Allocation.LockTimeout),
		log:    log,
		bus:    bus,
	}
}

// variantKey builds the lock key for a variant
func variantKey(productID uint, color, size string) string {
	return fmt.Sprintf("variant:%d:%s:%s", productID, color, size)
}

// lockVariant acquires the per-variant mutex, translating a timeout into
// the engine's retryable conflict error.
func (s *Service) lockVariant(productID uint, color, size string) (func(), error) {
	release, err := s.locks.Lock(variantKey(productID, color, size))
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrLockTimeout, variantKey(productID, color, size))
	}
	return release, nil
}

// Shared query helpers. All of them expect to run inside a transaction held
// under the variant lock.

func (s *Service) loadVariantTx(tx *gorm.DB, productID uint, color, size string) (*VariantStock, error) {
	var variant VariantStock
	err := tx.Where("product_id = ? AND color = ? AND size = ?", productID, color, size).First(&variant).Error
	if err == gorm.ErrRecordNotFound {
		return nil, fmt.Errorf("%w: product %d color %q size %q", ErrVariantNotFound, productID, color, size)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load variant stock: %w", err)
	}
	return &variant, nil
}

// loadDemandsTx builds the priority queue for a variant: order items of
// non-terminal orders, sorted by order creation time with item id breaking
// ties. With onlyUnmet, items already fully granted are excluded (allocator
// view); without it the full set is returned (reallocator view).
func (s *Service) loadDemandsTx(tx *gorm.DB, productID uint, color, size string, onlyUnmet bool) ([]Demand, error) {
	query := tx.Table("order_items").
		Select("order_items.id AS order_item_id, order_items.order_id, orders.order_number, orders.created_at AS order_created_at, order_items.quantity, order_items.shipped_quantity").
		Joins("JOIN orders ON orders.id = order_items.order_id").
		Where("order_items.product_id = ? AND order_items.color = ? AND order_items.size = ?", productID, color, size).
		Where("orders.status IN ?", order.NonTerminalStatuses).
		Where("orders.deleted_at IS NULL")

	if onlyUnmet {
		query = query.Where("order_items.quantity > order_items.shipped_quantity")
	}

	var demands []Demand
	if err := query.Order("orders.created_at ASC, order_items.id ASC").Scan(&demands).Error; err != nil {
		return nil, fmt.Errorf("failed to load demand queue: %w", err)
	}

	// The query already orders rows; sorting again keeps the walk
	// deterministic even if the select is ever rewritten.
	sortByPriority(demands)
	return demands, nil
}

// sumAllocatedTx recomputes allocated stock as the sum of shipped
// quantities over every non-terminal order item for the variant, not just
// the ones a pass touched.
func (s *Service) sumAllocatedTx(tx *gorm.DB, productID uint, color, size string) (int, error) {
	var allocated int64
	err := tx.Table("order_items").
		Joins("JOIN orders ON orders.id = order_items.order_id").
		Where("order_items.product_id = ? AND order_items.color = ? AND order_items.size = ?", productID, color, size).
		Where("orders.status IN ?", order.NonTerminalStatuses).
		Where("orders.deleted_at IS NULL").
		Select("COALESCE(SUM(order_items.shipped_quantity), 0)").
		Scan(&allocated).Error
	if err != nil {
		return 0, fmt.Errorf("failed to sum allocated stock: %w", err)
	}
	return int(allocated), nil
}

// projectOrderStatusTx re-derives and persists the status of each order.
// Terminal orders are left untouched; the projector only moves orders among
// the non-terminal statuses.
func (s *Service) projectOrderStatusTx(tx *gorm.DB, orderIDs []uint) error {
	for _, orderID := range orderIDs {
		var ord order.Order
		if err := tx.Preload("Items").First(&ord, orderID).Error; err != nil {
			return fmt.Errorf("failed to load order %d for projection: %w", orderID, err)
		}
		if ord.Status.IsTerminal() {
			continue
		}

		projected := order.ProjectStatus(ord.Items)
		if projected == ord.Status {
			continue
		}
		if err := tx.Model(&order.Order{}).Where("id = ?", orderID).Update("status", projected).Error; err != nil {
			return fmt.Errorf("failed to project status of order %d: %w", orderID, err)
		}
	}
	return nil
}

// touchedOrderIDs collects the distinct order ids of a demand set.
func touchedOrderIDs(demands []Demand) []uint {
	seen := make(map[uint]struct{}, len(demands))
	ids := make([]uint, 0, len(demands))
	for _, d := range demands {
		if _, ok := seen[d.OrderID]; ok {
			continue
		}
		seen[d.OrderID] = struct{}{}
		ids = append(ids, d.OrderID)
	}
	return ids
}
