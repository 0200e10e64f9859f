package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/CodeWithFin/warehouse-inventory/internal/ledger"
	"github.com/CodeWithFin/warehouse-inventory/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore is an in-memory InventoryStore for exercising the service
// without a database.
type fakeStore struct {
	mu          sync.Mutex
	products    map[string]models.Product
	batches     map[string][]models.Batch
	adjustments map[string][]models.AdjustmentRecord
	failWrites  bool
}

func newFakeStore(products ...models.Product) *fakeStore {
	s := &fakeStore{
		products:    make(map[string]models.Product),
		batches:     make(map[string][]models.Batch),
		adjustments: make(map[string][]models.AdjustmentRecord),
	}
	for _, p := range products {
		s.products[p.ID] = p
	}
	return s
}

func (s *fakeStore) GetProductByID(_ context.Context, id string) (*models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return nil, fmt.Errorf("product not found: %s", id)
	}
	copied := p
	return &copied, nil
}

func (s *fakeStore) GetProducts(_ context.Context) ([]models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Product, 0, len(s.products))
	for _, p := range s.products {
		out = append(out, p)
	}
	return out, nil
}

func (s *fakeStore) GetBatchesByProductID(_ context.Context, productID string) ([]models.Batch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Batch, len(s.batches[productID]))
	copy(out, s.batches[productID])
	return out, nil
}

func (s *fakeStore) ApplyAdjustmentTx(_ context.Context, product *models.Product, delta models.BatchDelta, rec *models.AdjustmentRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWrites {
		return fmt.Errorf("storage fault")
	}

	s.products[product.ID] = *product

	current := s.batches[product.ID]
	for _, u := range delta.Updated {
		for i := range current {
			if current[i].ID == u.ID {
				current[i].Quantity = u.Quantity
			}
		}
	}
	for _, id := range delta.RemovedIDs {
		kept := current[:0]
		for _, b := range current {
			if b.ID != id {
				kept = append(kept, b)
			}
		}
		current = kept
	}
	current = append(current, delta.Created...)
	s.batches[product.ID] = current

	s.adjustments[product.ID] = append(s.adjustments[product.ID], *rec)
	return nil
}

func (s *fakeStore) GetAdjustmentsByProductID(_ context.Context, productID string) ([]models.AdjustmentRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.AdjustmentRecord, len(s.adjustments[productID]))
	copy(out, s.adjustments[productID])
	return out, nil
}

func (s *fakeStore) GetRecentAdjustments(_ context.Context, limit int) ([]models.AdjustmentRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.AdjustmentRecord
	for _, recs := range s.adjustments {
		out = append(out, recs...)
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// fakePublisher records published events.
type fakePublisher struct {
	mu       sync.Mutex
	adjusted []models.StockAdjustedEvent
	expiring []models.BatchExpiringEvent
}

func (p *fakePublisher) PublishStockAdjusted(_ context.Context, event *models.StockAdjustedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.adjusted = append(p.adjusted, *event)
	return nil
}

func (p *fakePublisher) PublishBatchExpiring(_ context.Context, event *models.BatchExpiringEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.expiring = append(p.expiring, *event)
	return nil
}

var svcNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestService(store InventoryStore, publisher StockEventPublisher) *InventoryService {
	return NewInventoryService(store, nil, publisher, ledger.FixedClock{Instant: svcNow}, 0, 0)
}

func testProduct() models.Product {
	return models.Product{
		ID:                "p1",
		SKU:               "SKU-001",
		Name:              "Amoxicillin 250mg",
		Quantity:          0,
		LowStockThreshold: 5,
	}
}

func TestAdjustStockReceiptConsumptionRemoval(t *testing.T) {
	store := newFakeStore(testProduct())
	pub := &fakePublisher{}
	svc := newTestService(store, pub)
	ctx := context.Background()

	exp := svcNow.Add(5 * 24 * time.Hour)
	resp, err := svc.AdjustStock(ctx, "p1", &AdjustmentRequest{
		Kind:        models.AdjustmentKindReceipt,
		BatchNumber: "LOT-1",
		Quantity:    20,
		ExpiryDate:  &exp,
	})
	require.NoError(t, err)
	assert.Equal(t, 20, resp.Quantity)
	assert.Equal(t, models.StockStatusIn, resp.Status)
	assert.True(t, resp.Reconciled)
	require.NotNil(t, resp.CreatedBatch)
	batchID := resp.CreatedBatch.ID

	resp, err = svc.AdjustStock(ctx, "p1", &AdjustmentRequest{
		Kind:     models.AdjustmentKindConsumption,
		Quantity: 18,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Quantity)
	assert.Equal(t, models.StockStatusLow, resp.Status)
	require.Len(t, resp.Draws, 1)
	assert.Equal(t, 2, resp.Draws[0].NewQuantity)

	resp, err = svc.AdjustStock(ctx, "p1", &AdjustmentRequest{
		Kind:    models.AdjustmentKindRemoval,
		BatchID: batchID,
	})
	require.NoError(t, err)
	assert.Equal(t, 0, resp.Quantity)
	assert.Equal(t, models.StockStatusOut, resp.Status)
	assert.Equal(t, batchID, resp.RemovedBatchID)

	// Persisted state matches the ledger's view.
	product, err := store.GetProductByID(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 0, product.Quantity)
	batches, err := store.GetBatchesByProductID(ctx, "p1")
	require.NoError(t, err)
	assert.Empty(t, batches)

	// One event per committed adjustment, in order.
	require.Len(t, pub.adjusted, 3)
	assert.Equal(t, models.AdjustmentKindReceipt, pub.adjusted[0].Kind)
	assert.Equal(t, models.AdjustmentKindConsumption, pub.adjusted[1].Kind)
	assert.Equal(t, models.AdjustmentKindRemoval, pub.adjusted[2].Kind)
}

func TestAdjustStockRejectionPersistsNothing(t *testing.T) {
	p := testProduct()
	p.Quantity = 10
	store := newFakeStore(p)
	store.batches["p1"] = []models.Batch{{ID: "b1", ProductID: "p1", Quantity: 10}}
	pub := &fakePublisher{}
	svc := newTestService(store, pub)
	ctx := context.Background()

	_, err := svc.AdjustStock(ctx, "p1", &AdjustmentRequest{
		Kind:     models.AdjustmentKindConsumption,
		Quantity: 11,
	})
	assert.ErrorIs(t, err, ledger.ErrInsufficientStock)

	product, err := store.GetProductByID(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 10, product.Quantity)

	history, err := svc.GetHistory(ctx, "p1")
	require.NoError(t, err)
	assert.Empty(t, history)
	assert.Empty(t, pub.adjusted)

	ok, err := svc.VerifyProduct(ctx, "p1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestAdjustStockCorrectionFlagsUnreconciled(t *testing.T) {
	p := testProduct()
	p.Quantity = 10
	store := newFakeStore(p)
	store.batches["p1"] = []models.Batch{{ID: "b1", ProductID: "p1", Quantity: 10}}
	svc := newTestService(store, nil)
	ctx := context.Background()

	newQty := 7
	resp, err := svc.AdjustStock(ctx, "p1", &AdjustmentRequest{
		Kind:        models.AdjustmentKindCorrection,
		NewQuantity: &newQty,
	})
	require.NoError(t, err)
	assert.Equal(t, 7, resp.Quantity)
	assert.Equal(t, -3, resp.DeltaQuantity)
	assert.False(t, resp.Reconciled)

	// Batches untouched, mismatch visible to the reconciliation check.
	batches, err := store.GetBatchesByProductID(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, batches, 1)
	assert.Equal(t, 10, batches[0].Quantity)

	ok, err := svc.VerifyProduct(ctx, "p1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAdjustStockPersistenceFaultSurfaces(t *testing.T) {
	store := newFakeStore(testProduct())
	svc := newTestService(store, nil)
	ctx := context.Background()

	store.failWrites = true
	_, err := svc.AdjustStock(ctx, "p1", &AdjustmentRequest{
		Kind:     models.AdjustmentKindReceipt,
		Quantity: 5,
	})
	assert.Error(t, err)

	// Nothing durable, nothing in the audit trail.
	store.failWrites = false
	product, err := store.GetProductByID(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 0, product.Quantity)
	assert.Empty(t, svc.AuditLog().History("p1"))
}

func TestAdjustStockSerializesPerProduct(t *testing.T) {
	store := newFakeStore(testProduct())
	svc := newTestService(store, nil)
	ctx := context.Background()

	const workers = 20
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, err := svc.AdjustStock(ctx, "p1", &AdjustmentRequest{
				Kind:        models.AdjustmentKindReceipt,
				BatchNumber: fmt.Sprintf("LOT-%d", n),
				Quantity:    3,
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	product, err := store.GetProductByID(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, workers*3, product.Quantity)

	batches, err := store.GetBatchesByProductID(ctx, "p1")
	require.NoError(t, err)
	assert.Len(t, batches, workers)

	ok, err := svc.VerifyProduct(ctx, "p1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestAuditLogReplayMatchesQuantity(t *testing.T) {
	store := newFakeStore(testProduct())
	svc := newTestService(store, nil)
	ctx := context.Background()

	_, err := svc.AdjustStock(ctx, "p1", &AdjustmentRequest{Kind: models.AdjustmentKindReceipt, Quantity: 30})
	require.NoError(t, err)
	_, err = svc.AdjustStock(ctx, "p1", &AdjustmentRequest{Kind: models.AdjustmentKindConsumption, Quantity: 12})
	require.NoError(t, err)
	newQty := 25
	_, err = svc.AdjustStock(ctx, "p1", &AdjustmentRequest{Kind: models.AdjustmentKindCorrection, NewQuantity: &newQty})
	require.NoError(t, err)

	product, err := store.GetProductByID(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, product.Quantity, svc.AuditLog().Replay("p1"))
}

func TestGetProductDetail(t *testing.T) {
	p := testProduct()
	p.Quantity = 12
	store := newFakeStore(p)

	expired := svcNow.Add(-24 * time.Hour)
	soon := svcNow.Add(10 * 24 * time.Hour)
	store.batches["p1"] = []models.Batch{
		{ID: "b-soon", ProductID: "p1", Quantity: 5, ExpiryDate: &soon},
		{ID: "b-exp", ProductID: "p1", Quantity: 4, ExpiryDate: &expired},
		{ID: "b-open", ProductID: "p1", Quantity: 3},
	}

	svc := newTestService(store, nil)
	detail, err := svc.GetProduct(context.Background(), "p1")
	require.NoError(t, err)

	assert.Equal(t, models.StockStatusIn, detail.Status)
	assert.True(t, detail.Reconciled)

	// Expiry order with the no-expiry batch last, statuses derived.
	require.Len(t, detail.Batches, 3)
	assert.Equal(t, "b-exp", detail.Batches[0].ID)
	assert.Equal(t, models.BatchStatusExpired, detail.Batches[0].Status)
	assert.Equal(t, "b-soon", detail.Batches[1].ID)
	assert.Equal(t, models.BatchStatusExpiringSoon, detail.Batches[1].Status)
	assert.Equal(t, "b-open", detail.Batches[2].ID)
	assert.Equal(t, models.BatchStatusNoExpiry, detail.Batches[2].Status)
}
