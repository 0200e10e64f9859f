package ledger

import (
	"fmt"
	"sort"

	"github.com/CodeWithFin/warehouse-inventory/internal/models"
)

// BatchStore holds the set of batches for one product, keyed by batch id.
// Insertion order is preserved so listings are deterministic. The store is
// not safe for concurrent use; the owning StockLedger serializes access.
type BatchStore struct {
	batches map[string]*models.Batch
	order   []string
}

// NewBatchStore creates an empty batch store.
func NewBatchStore() *BatchStore {
	return &BatchStore{
		batches: make(map[string]*models.Batch),
	}
}

// NewBatchStoreFrom builds a store from existing batches, typically hydrated
// from the persistence collaborator.
func NewBatchStoreFrom(batches []models.Batch) (*BatchStore, error) {
	s := NewBatchStore()
	for _, b := range batches {
		if err := s.Add(b); err != nil {
			return nil, fmt.Errorf("hydrating batch %s: %w", b.ID, err)
		}
	}
	return s, nil
}

// Add inserts a new batch. The id must be unused and the quantity positive.
func (s *BatchStore) Add(b models.Batch) error {
	if _, exists := s.batches[b.ID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateBatchID, b.ID)
	}
	if b.Quantity <= 0 {
		return fmt.Errorf("%w: batch %s quantity %d must be positive", ErrInvalidQuantity, b.ID, b.Quantity)
	}

	copied := b
	s.batches[b.ID] = &copied
	s.order = append(s.order, b.ID)
	return nil
}

// Reduce decrements a batch's quantity by amount. The amount must be positive
// and no greater than the batch's current quantity. A batch driven to zero is
// removed from the set. Returns the batch's new quantity (0 if removed).
func (s *BatchStore) Reduce(batchID string, amount int) (int, error) {
	b, ok := s.batches[batchID]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrBatchNotFound, batchID)
	}
	if amount <= 0 || amount > b.Quantity {
		return 0, fmt.Errorf("%w: batch %s has %d, requested %d",
			ErrInsufficientBatchQuantity, batchID, b.Quantity, amount)
	}

	b.Quantity -= amount
	if b.Quantity == 0 {
		s.drop(batchID)
		return 0, nil
	}
	return b.Quantity, nil
}

// Remove deletes a batch unconditionally, e.g. when discarding spoiled stock.
// Returns the removed batch.
func (s *BatchStore) Remove(batchID string) (models.Batch, error) {
	b, ok := s.batches[batchID]
	if !ok {
		return models.Batch{}, fmt.Errorf("%w: %s", ErrBatchNotFound, batchID)
	}
	removed := *b
	s.drop(batchID)
	return removed, nil
}

func (s *BatchStore) drop(batchID string) {
	delete(s.batches, batchID)
	for i, id := range s.order {
		if id == batchID {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// Get returns a copy of the batch with the given id.
func (s *BatchStore) Get(batchID string) (models.Batch, bool) {
	b, ok := s.batches[batchID]
	if !ok {
		return models.Batch{}, false
	}
	return *b, true
}

// Len returns the number of batches currently in the set.
func (s *BatchStore) Len() int {
	return len(s.order)
}

// TotalQuantity sums the quantities of all current batches.
func (s *BatchStore) TotalQuantity() int {
	total := 0
	for _, b := range s.batches {
		total += b.Quantity
	}
	return total
}

// List returns a copy of the batches in insertion order.
func (s *BatchStore) List() []models.Batch {
	out := make([]models.Batch, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *s.batches[id])
	}
	return out
}

// ListByExpiry returns a fresh copy of the batches ordered by expiry date
// ascending, batches without an expiry date last, ties broken by batch id.
// Each call restarts from the current set, so the sequence is restartable
// and deterministic for listing.
func (s *BatchStore) ListByExpiry() []models.Batch {
	out := s.List()
	sortByExpiry(out)
	return out
}

func sortByExpiry(batches []models.Batch) {
	sort.SliceStable(batches, func(i, j int) bool {
		a, b := batches[i], batches[j]
		switch {
		case a.ExpiryDate == nil && b.ExpiryDate == nil:
			return a.ID < b.ID
		case a.ExpiryDate == nil:
			return false
		case b.ExpiryDate == nil:
			return true
		case a.ExpiryDate.Equal(*b.ExpiryDate):
			return a.ID < b.ID
		default:
			return a.ExpiryDate.Before(*b.ExpiryDate)
		}
	})
}
