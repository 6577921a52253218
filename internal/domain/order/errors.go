package order

import (
	"fmt"
)

// Sentinel errors for order operations.
var (
	ErrNotFound          = fmt.Errorf("order not found")
	ErrDuplicate         = fmt.Errorf("order with this idempotency key already exists")
	ErrInvalidTransition = fmt.Errorf("invalid status transition")
	ErrEmptyItems        = fmt.Errorf("items required")
	ErrInvalidQuantity   = fmt.Errorf("quantity must be greater than 0")
)

// InvalidCustomerError reports a missing or malformed customer field.
type InvalidCustomerError struct {
	Field  string
	Reason string
}

func (e *InvalidCustomerError) Error() string {
	return fmt.Sprintf("customer %s %s", e.Field, e.Reason)
}

// StockConflictError indicates that stock changed between reconciliation and
// the order write and the product can no longer cover the requested quantity.
type StockConflictError struct {
	ProductID string
	Requested int
	Available int
}

func (e *StockConflictError) Error() string {
	return fmt.Sprintf("product %s: requested %d, available %d", e.ProductID, e.Requested, e.Available)
}

// PersistenceError wraps a storage failure. Nothing was committed and the
// operation may be retried.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
