package ledger

import (
	"fmt"
	"time"

	"github.com/CodeWithFin/warehouse-inventory/internal/models"
)

// DefaultSoonWindow is how far ahead of now a batch expiry counts as expiring soon.
const DefaultSoonWindow = 30 * 24 * time.Hour

// ClassifyStock derives the stock status of a product from its quantity and
// low-stock threshold: 0 is out, (0, threshold] is low, above threshold is in.
func ClassifyStock(quantity, threshold int) (models.StockStatus, error) {
	if threshold < 0 {
		return "", fmt.Errorf("%w: threshold %d must not be negative", ErrInvalidThreshold, threshold)
	}

	switch {
	case quantity == 0:
		return models.StockStatusOut, nil
	case quantity <= threshold:
		return models.StockStatusLow, nil
	default:
		return models.StockStatusIn, nil
	}
}

// ClassifyBatch derives the temporal status of a batch expiry relative to now.
// The boundaries are exact: an expiry equal to now is already expired, and an
// expiry exactly at now+soonWindow is active, not expiring soon.
func ClassifyBatch(expiry *time.Time, now time.Time, soonWindow time.Duration) models.BatchTemporalStatus {
	if expiry == nil {
		return models.BatchStatusNoExpiry
	}
	if !expiry.After(now) {
		return models.BatchStatusExpired
	}
	if expiry.Before(now.Add(soonWindow)) {
		return models.BatchStatusExpiringSoon
	}
	return models.BatchStatusActive
}
