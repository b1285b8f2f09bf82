// internal/domain/stock/errors.go
package stock

import "errors"

var (
	// ErrVariantNotFound is returned when the (product, color, size) key
	// does not exist. No mutation occurs.
	ErrVariantNotFound = errors.New("variant stock not found")

	// ErrInvalidAdjustment is returned for malformed adjustment requests:
	// a negative absolute target, an unknown movement type, or a request
	// mixing relative and absolute adjustment. No mutation occurs.
	ErrInvalidAdjustment = errors.New("invalid stock adjustment")

	// ErrLockTimeout is returned when the variant lock cannot be acquired
	// in time. The operation is safe to retry as a whole.
	ErrLockTimeout = errors.New("timed out waiting for variant lock")
)
