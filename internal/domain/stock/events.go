// internal/domain/stock/events.go
package stock

import (
	"time"

	"github.com/google/uuid"
)

// EventPublisher fans stock events out to interested consumers (reporting,
// low-stock alerting). Publishing is best effort: the ledger never fails a
// committed mutation because an event could not be delivered.
type EventPublisher interface {
	Publish(routingKey string, event interface{}) error
}

// Event routing keys
const (
	RoutingKeyStockAdjusted  = "stock.adjusted"
	RoutingKeyStockAllocated = "stock.allocated"
	RoutingKeyStockSweepDone = "stock.sweep.completed"
	RoutingKeySampleReturned = "stock.sample.returned"
)

// StockEvent describes one committed ledger mutation or allocation pass.
type StockEvent struct {
	EventID        string       `json:"event_id"`
	ProductID      uint         `json:"product_id"`
	Color          string       `json:"color"`
	Size           string       `json:"size"`
	MovementType   MovementType `json:"movement_type"`
	Quantity       int          `json:"quantity"`
	PhysicalStock  int          `json:"physical_stock"`
	AllocatedStock int          `json:"allocated_stock"`
	AvailableStock int          `json:"available_stock"`
	OrdersTouched  int          `json:"orders_touched"`
	Timestamp      time.Time    `json:"timestamp"`
}

// SweepEvent summarizes a completed global sweep.
type SweepEvent struct {
	EventID         string    `json:"event_id"`
	VariantsVisited int       `json:"variants_visited"`
	GrantedTotal    int       `json:"granted_total"`
	OrdersTouched   int       `json:"orders_touched"`
	Failures        int       `json:"failures"`
	Timestamp       time.Time `json:"timestamp"`
}

// publishEvent sends a stock event if a bus is wired; failures are logged
// and swallowed.
func (s *Service) publishEvent(routingKey string, variant *VariantStock, movementType MovementType, quantity, ordersTouched int) {
	if s.bus == nil {
		return
	}

	event := StockEvent{
		EventID:        uuid.New().String(),
		ProductID:      variant.ProductID,
		Color:          variant.Color,
		Size:           variant.Size,
		MovementType:   movementType,
		Quantity:       quantity,
		PhysicalStock:  variant.PhysicalStock,
		AllocatedStock: variant.AllocatedStock,
		AvailableStock: variant.AvailableStock,
		OrdersTouched:  ordersTouched,
		Timestamp:      time.Now().UTC(),
	}

	if err := s.bus.Publish(routingKey, event); err != nil {
		s.log.WithError(err).WithField("routing_key", routingKey).Warn("Failed to publish stock event")
	}
}
