package store

import (
	"context"

	"github.com/CodeWithFin/warehouse-inventory/internal/models"
)

// GetAdjustmentsByProductID retrieves a product's adjustment history in
// chronological order, oldest first, so replaying deltas from zero
// reconstructs the current quantity.
func (s *Store) GetAdjustmentsByProductID(ctx context.Context, productID string) ([]models.AdjustmentRecord, error) {
	var records []models.AdjustmentRecord
	err := s.db.SelectContext(ctx, &records,
		"SELECT * FROM adjustments WHERE product_id = $1 ORDER BY timestamp, id", productID)
	return records, err
}

// GetRecentAdjustments retrieves the most recent adjustments across all
// products, newest first, for the activity view.
func (s *Store) GetRecentAdjustments(ctx context.Context, limit int) ([]models.AdjustmentRecord, error) {
	var records []models.AdjustmentRecord
	err := s.db.SelectContext(ctx, &records,
		"SELECT * FROM adjustments ORDER BY timestamp DESC, id DESC LIMIT $1", limit)
	return records, err
}
