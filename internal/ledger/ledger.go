package ledger

import (
	"fmt"

	"github.com/CodeWithFin/warehouse-inventory/internal/models"
)

// ConsumptionStrategy orders a product's batches into the sequence they
// should be drawn from during consumption.
type ConsumptionStrategy func(batches []models.Batch) []models.Batch

// FEFO (first-expiring-first-out) draws from the batch with the earliest
// expiry date first, batches without an expiry last. This is the default.
func FEFO(batches []models.Batch) []models.Batch {
	sortByExpiry(batches)
	return batches
}

// FIFO draws from batches in the order they were received.
func FIFO(batches []models.Batch) []models.Batch {
	return batches
}

// BatchDraw records how much a consumption took from one batch.
type BatchDraw struct {
	BatchID     string `json:"batch_id"`
	Amount      int    `json:"amount"`
	NewQuantity int    `json:"new_quantity"`
	Removed     bool   `json:"removed"`
}

// Adjustment is the committed outcome of a ledger operation: the new product
// quantity plus the batch delta the caller must persist. Reconciled is false
// only for corrections, which change quantity without touching batches.
type Adjustment struct {
	Kind          string
	DeltaQuantity int
	NewQuantity   int
	Reconciled    bool
	Created       *models.Batch
	Draws         []BatchDraw
	Removed       *models.Batch
}

// StockLedger owns exactly one product's quantity together with its batch
// set and is the only component allowed to mutate either. Every adjustment
// is atomic: validation happens before any state change, so a rejection
// leaves both the quantity and the batch set untouched. The ledger itself
// is not safe for concurrent use; callers serialize per product.
type StockLedger struct {
	product models.Product
	batches *BatchStore
	clock   Clock
}

// NewStockLedger hydrates a ledger from a product and its current batches.
func NewStockLedger(product models.Product, batches []models.Batch, clock Clock) (*StockLedger, error) {
	store, err := NewBatchStoreFrom(batches)
	if err != nil {
		return nil, err
	}
	if clock == nil {
		clock = SystemClock()
	}
	return &StockLedger{
		product: product,
		batches: store,
		clock:   clock,
	}, nil
}

// Product returns a copy of the product in its current state.
func (l *StockLedger) Product() models.Product {
	return l.product
}

// Quantity returns the product's current on-hand total.
func (l *StockLedger) Quantity() int {
	return l.product.Quantity
}

// Status classifies the current quantity against the product's threshold.
func (l *StockLedger) Status() (models.StockStatus, error) {
	return ClassifyStock(l.product.Quantity, l.product.EffectiveThreshold())
}

// Batches returns the current batch set in expiry order.
func (l *StockLedger) Batches() []models.Batch {
	return l.batches.ListByExpiry()
}

// ApplyReceipt adds a new batch and increases the product quantity by the
// batch's quantity.
func (l *StockLedger) ApplyReceipt(batch models.Batch) (*Adjustment, error) {
	batch.ProductID = l.product.ID
	if err := l.batches.Add(batch); err != nil {
		return nil, fmt.Errorf("receipt rejected: %w", err)
	}

	l.product.Quantity += batch.Quantity
	l.product.LastUpdated = l.clock.Now()

	return &Adjustment{
		Kind:          models.AdjustmentKindReceipt,
		DeltaQuantity: batch.Quantity,
		NewQuantity:   l.product.Quantity,
		Reconciled:    true,
		Created:       &batch,
	}, nil
}

// ApplyConsumption removes amount units of stock, drawing from batches in
// the order given by strategy (FEFO when nil) and splitting across batches
// until the amount is exhausted. The full draw plan is computed before any
// batch is touched, so a rejection mutates nothing.
func (l *StockLedger) ApplyConsumption(amount int, strategy ConsumptionStrategy) (*Adjustment, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("consumption rejected: %w: amount %d must be positive", ErrInvalidQuantity, amount)
	}
	if amount > l.product.Quantity {
		return nil, fmt.Errorf("consumption rejected: %w: requested %d, on hand %d",
			ErrInsufficientStock, amount, l.product.Quantity)
	}
	if strategy == nil {
		strategy = FEFO
	}

	// Plan the draws against a snapshot first. After an unreconciled
	// correction the batch sum may be below the product quantity, in which
	// case the plan drains what the batches hold and the quantity still
	// drops by the full amount.
	var draws []BatchDraw
	remaining := amount
	for _, b := range strategy(l.batches.List()) {
		if remaining == 0 {
			break
		}
		take := b.Quantity
		if take > remaining {
			take = remaining
		}
		draws = append(draws, BatchDraw{
			BatchID:     b.ID,
			Amount:      take,
			NewQuantity: b.Quantity - take,
			Removed:     b.Quantity == take,
		})
		remaining -= take
	}

	for _, d := range draws {
		if _, err := l.batches.Reduce(d.BatchID, d.Amount); err != nil {
			// Unreachable: the plan was computed from the same snapshot.
			return nil, fmt.Errorf("consumption plan diverged on batch %s: %w", d.BatchID, err)
		}
	}

	l.product.Quantity -= amount
	l.product.LastUpdated = l.clock.Now()

	return &Adjustment{
		Kind:          models.AdjustmentKindConsumption,
		DeltaQuantity: -amount,
		NewQuantity:   l.product.Quantity,
		Reconciled:    true,
		Draws:         draws,
	}, nil
}

// ApplyCorrection sets the product quantity directly without touching the
// batch set, as in a manual stock take. The result carries Reconciled=false
// so the caller can schedule a batch-level reconciliation; the ledger never
// fabricates or destroys batch records to force agreement.
func (l *StockLedger) ApplyCorrection(newQuantity int) (*Adjustment, error) {
	if newQuantity < 0 {
		return nil, fmt.Errorf("correction rejected: %w: quantity %d must not be negative", ErrInvalidQuantity, newQuantity)
	}

	delta := newQuantity - l.product.Quantity
	l.product.Quantity = newQuantity
	l.product.LastUpdated = l.clock.Now()

	return &Adjustment{
		Kind:          models.AdjustmentKindCorrection,
		DeltaQuantity: delta,
		NewQuantity:   newQuantity,
		Reconciled:    l.VerifyInvariant(),
	}, nil
}

// RemoveBatch removes a batch and decreases the product quantity by that
// batch's quantity in one step.
func (l *StockLedger) RemoveBatch(batchID string) (*Adjustment, error) {
	removed, err := l.batches.Remove(batchID)
	if err != nil {
		return nil, fmt.Errorf("removal rejected: %w", err)
	}

	newQuantity := l.product.Quantity - removed.Quantity
	if newQuantity < 0 {
		// Only possible after an unreconciled correction understated stock.
		newQuantity = 0
	}
	delta := newQuantity - l.product.Quantity
	l.product.Quantity = newQuantity
	l.product.LastUpdated = l.clock.Now()

	return &Adjustment{
		Kind:          models.AdjustmentKindRemoval,
		DeltaQuantity: delta,
		NewQuantity:   newQuantity,
		Reconciled:    true,
		Removed:       &removed,
	}, nil
}

// VerifyInvariant reports whether the product quantity equals the sum of its
// batch quantities. Used by tests and periodic reconciliation jobs; not
// enforced inline for corrections.
func (l *StockLedger) VerifyInvariant() bool {
	return l.product.Quantity == l.batches.TotalQuantity()
}
