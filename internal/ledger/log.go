package ledger

import (
	"sync"

	"github.com/CodeWithFin/warehouse-inventory/internal/models"
)

// AdjustmentLog is an append-only, in-process record of applied adjustments.
// Entries are never mutated or removed once appended; corrections are
// represented by their delta, so replaying a product's history from zero
// reproduces its current quantity.
type AdjustmentLog struct {
	mu      sync.Mutex
	records map[string][]models.AdjustmentRecord
}

// NewAdjustmentLog creates an empty adjustment log.
func NewAdjustmentLog() *AdjustmentLog {
	return &AdjustmentLog{
		records: make(map[string][]models.AdjustmentRecord),
	}
}

// Append appends an immutable record to the product's history.
func (l *AdjustmentLog) Append(rec models.AdjustmentRecord) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records[rec.ProductID] = append(l.records[rec.ProductID], rec)
}

// History returns a copy of the product's records in chronological order.
// Each call returns a fresh slice, so iteration is restartable.
func (l *AdjustmentLog) History(productID string) []models.AdjustmentRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	recs := l.records[productID]
	out := make([]models.AdjustmentRecord, len(recs))
	copy(out, recs)
	return out
}

// Replay sums the delta quantities of a product's history from zero,
// reconstructing the quantity the ledger should currently hold.
func (l *AdjustmentLog) Replay(productID string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	total := 0
	for _, rec := range l.records[productID] {
		total += rec.DeltaQuantity
	}
	return total
}
