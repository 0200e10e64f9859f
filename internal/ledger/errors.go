package ledger

import "errors"

// Validation errors surfaced by the ledger and batch store. All are detected
// before any mutation; a rejected adjustment leaves state untouched.
var (
	ErrInvalidThreshold          = errors.New("invalid threshold")
	ErrInvalidQuantity           = errors.New("invalid quantity")
	ErrDuplicateBatchID          = errors.New("duplicate batch id")
	ErrBatchNotFound             = errors.New("batch not found")
	ErrInsufficientBatchQuantity = errors.New("insufficient batch quantity")
	ErrInsufficientStock         = errors.New("insufficient stock")
)
