package ledger

import (
	"testing"
	"time"

	"github.com/CodeWithFin/warehouse-inventory/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestLedger(t *testing.T, quantity int, batches ...models.Batch) *StockLedger {
	t.Helper()
	l, err := NewStockLedger(models.Product{
		ID:                "p1",
		SKU:               "SKU-001",
		Name:              "Paracetamol 500mg",
		Quantity:          quantity,
		LowStockThreshold: 5,
	}, batches, FixedClock{Instant: testNow})
	require.NoError(t, err)
	return l
}

func TestApplyReceipt(t *testing.T) {
	l := newTestLedger(t, 0)

	adj, err := l.ApplyReceipt(models.Batch{ID: "b1", BatchNumber: "LOT-1", Quantity: 20})
	require.NoError(t, err)

	assert.Equal(t, models.AdjustmentKindReceipt, adj.Kind)
	assert.Equal(t, 20, adj.DeltaQuantity)
	assert.Equal(t, 20, adj.NewQuantity)
	assert.True(t, adj.Reconciled)
	require.NotNil(t, adj.Created)
	assert.Equal(t, "p1", adj.Created.ProductID)

	assert.Equal(t, 20, l.Quantity())
	assert.True(t, l.VerifyInvariant())
	assert.Equal(t, testNow, l.Product().LastUpdated)
}

func TestApplyReceiptRejectionLeavesStateUnchanged(t *testing.T) {
	l := newTestLedger(t, 10, models.Batch{ID: "b1", Quantity: 10})

	_, err := l.ApplyReceipt(models.Batch{ID: "b1", Quantity: 5})
	assert.ErrorIs(t, err, ErrDuplicateBatchID)
	assert.Equal(t, 10, l.Quantity())
	assert.True(t, l.VerifyInvariant())

	_, err = l.ApplyReceipt(models.Batch{ID: "b2", Quantity: 0})
	assert.ErrorIs(t, err, ErrInvalidQuantity)
	assert.Equal(t, 10, l.Quantity())
	assert.True(t, l.VerifyInvariant())
}

func TestApplyConsumptionFEFO(t *testing.T) {
	jan := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	feb := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)

	l := newTestLedger(t, 20,
		models.Batch{ID: "B", Quantity: 10, ExpiryDate: expiryAt(feb)},
		models.Batch{ID: "A", Quantity: 10, ExpiryDate: expiryAt(jan)},
	)

	adj, err := l.ApplyConsumption(15, FEFO)
	require.NoError(t, err)

	assert.Equal(t, -15, adj.DeltaQuantity)
	assert.Equal(t, 5, adj.NewQuantity)

	// Batch A expires first: fully drained and removed, then B down to 5.
	require.Len(t, adj.Draws, 2)
	assert.Equal(t, BatchDraw{BatchID: "A", Amount: 10, NewQuantity: 0, Removed: true}, adj.Draws[0])
	assert.Equal(t, BatchDraw{BatchID: "B", Amount: 5, NewQuantity: 5, Removed: false}, adj.Draws[1])

	assert.Equal(t, 5, l.Quantity())
	assert.True(t, l.VerifyInvariant())

	batches := l.Batches()
	require.Len(t, batches, 1)
	assert.Equal(t, "B", batches[0].ID)
	assert.Equal(t, 5, batches[0].Quantity)
}

func TestApplyConsumptionNoExpiryLast(t *testing.T) {
	jan := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	l := newTestLedger(t, 15,
		models.Batch{ID: "open", Quantity: 5},
		models.Batch{ID: "dated", Quantity: 10, ExpiryDate: expiryAt(jan)},
	)

	adj, err := l.ApplyConsumption(12, nil) // nil strategy defaults to FEFO
	require.NoError(t, err)

	require.Len(t, adj.Draws, 2)
	assert.Equal(t, "dated", adj.Draws[0].BatchID)
	assert.Equal(t, 10, adj.Draws[0].Amount)
	assert.Equal(t, "open", adj.Draws[1].BatchID)
	assert.Equal(t, 2, adj.Draws[1].Amount)
	assert.True(t, l.VerifyInvariant())
}

func TestApplyConsumptionFIFO(t *testing.T) {
	jan := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	l := newTestLedger(t, 15,
		models.Batch{ID: "first", Quantity: 5},
		models.Batch{ID: "second", Quantity: 10, ExpiryDate: expiryAt(jan)},
	)

	adj, err := l.ApplyConsumption(7, FIFO)
	require.NoError(t, err)

	// FIFO follows receipt order regardless of expiry.
	require.Len(t, adj.Draws, 2)
	assert.Equal(t, "first", adj.Draws[0].BatchID)
	assert.Equal(t, "second", adj.Draws[1].BatchID)
}

func TestApplyConsumptionRejections(t *testing.T) {
	l := newTestLedger(t, 10, models.Batch{ID: "b1", Quantity: 10})

	_, err := l.ApplyConsumption(11, FEFO)
	assert.ErrorIs(t, err, ErrInsufficientStock)
	assert.Equal(t, 10, l.Quantity())
	assert.True(t, l.VerifyInvariant())

	_, err = l.ApplyConsumption(0, FEFO)
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = l.ApplyConsumption(-3, FEFO)
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	assert.Equal(t, 10, l.Quantity())
	assert.True(t, l.VerifyInvariant())
}

func TestApplyCorrection(t *testing.T) {
	l := newTestLedger(t, 10, models.Batch{ID: "b1", Quantity: 10})

	adj, err := l.ApplyCorrection(7)
	require.NoError(t, err)

	assert.Equal(t, models.AdjustmentKindCorrection, adj.Kind)
	assert.Equal(t, -3, adj.DeltaQuantity)
	assert.Equal(t, 7, adj.NewQuantity)
	assert.False(t, adj.Reconciled, "correction that diverges from batch sum must be flagged")

	// Batches are untouched; only the quantity moved.
	assert.Equal(t, 7, l.Quantity())
	assert.Equal(t, 1, len(l.Batches()))
	assert.False(t, l.VerifyInvariant())
}

func TestApplyCorrectionMatchingBatchSum(t *testing.T) {
	l := newTestLedger(t, 4, models.Batch{ID: "b1", Quantity: 10})

	// A stock take that lands exactly on the batch sum restores agreement.
	adj, err := l.ApplyCorrection(10)
	require.NoError(t, err)
	assert.True(t, adj.Reconciled)
	assert.True(t, l.VerifyInvariant())
}

func TestApplyCorrectionRejectsNegative(t *testing.T) {
	l := newTestLedger(t, 10, models.Batch{ID: "b1", Quantity: 10})

	_, err := l.ApplyCorrection(-1)
	assert.ErrorIs(t, err, ErrInvalidQuantity)
	assert.Equal(t, 10, l.Quantity())
}

func TestRemoveBatch(t *testing.T) {
	l := newTestLedger(t, 15,
		models.Batch{ID: "b1", Quantity: 10},
		models.Batch{ID: "b2", Quantity: 5},
	)

	adj, err := l.RemoveBatch("b1")
	require.NoError(t, err)

	assert.Equal(t, -10, adj.DeltaQuantity)
	assert.Equal(t, 5, adj.NewQuantity)
	require.NotNil(t, adj.Removed)
	assert.Equal(t, "b1", adj.Removed.ID)

	assert.Equal(t, 5, l.Quantity())
	assert.True(t, l.VerifyInvariant())

	_, err = l.RemoveBatch("b1")
	assert.ErrorIs(t, err, ErrBatchNotFound)
	assert.Equal(t, 5, l.Quantity())
}

func TestInvariantHoldsAcrossAdjustmentSequence(t *testing.T) {
	jan := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	mar := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

	l := newTestLedger(t, 0)

	_, err := l.ApplyReceipt(models.Batch{ID: "b1", Quantity: 30, ExpiryDate: expiryAt(jan)})
	require.NoError(t, err)
	assert.True(t, l.VerifyInvariant())

	_, err = l.ApplyReceipt(models.Batch{ID: "b2", Quantity: 20, ExpiryDate: expiryAt(mar)})
	require.NoError(t, err)
	assert.True(t, l.VerifyInvariant())

	_, err = l.ApplyConsumption(35, FEFO)
	require.NoError(t, err)
	assert.True(t, l.VerifyInvariant())

	_, err = l.RemoveBatch("b2")
	require.NoError(t, err)
	assert.True(t, l.VerifyInvariant())

	assert.Equal(t, 0, l.Quantity())
	assert.Empty(t, l.Batches())
}

func TestReceiptConsumeRemoveScenario(t *testing.T) {
	// Receipt of (qty=20, expiry=today+5d) on an empty product, consume 18,
	// then remove the remainder: in -> low -> out.
	l := newTestLedger(t, 0)

	exp := testNow.Add(5 * 24 * time.Hour)
	adj, err := l.ApplyReceipt(models.Batch{ID: "b1", BatchNumber: "LOT-9", Quantity: 20, ExpiryDate: &exp})
	require.NoError(t, err)
	assert.Equal(t, 20, adj.NewQuantity)

	status, err := l.Status()
	require.NoError(t, err)
	assert.Equal(t, models.StockStatusIn, status)

	adj, err = l.ApplyConsumption(18, FEFO)
	require.NoError(t, err)
	assert.Equal(t, 2, adj.NewQuantity)
	require.Len(t, adj.Draws, 1)
	assert.Equal(t, 2, adj.Draws[0].NewQuantity)

	status, err = l.Status()
	require.NoError(t, err)
	assert.Equal(t, models.StockStatusLow, status)

	adj, err = l.RemoveBatch("b1")
	require.NoError(t, err)
	assert.Equal(t, 0, adj.NewQuantity)

	status, err = l.Status()
	require.NoError(t, err)
	assert.Equal(t, models.StockStatusOut, status)
	assert.Empty(t, l.Batches())
	assert.True(t, l.VerifyInvariant())
}
