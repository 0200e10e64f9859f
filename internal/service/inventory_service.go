package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/CodeWithFin/warehouse-inventory/internal/ledger"
	"github.com/CodeWithFin/warehouse-inventory/internal/models"
	"github.com/CodeWithFin/warehouse-inventory/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrAdjustmentInFlight is returned when another service instance holds the
// cross-instance lock for the product.
var ErrAdjustmentInFlight = errors.New("another adjustment is in flight for this product")

// InventoryStore is the read/write persistence collaborator. The service
// hydrates a ledger from it before every adjustment and writes the committed
// product quantity, batch delta and audit record back in one transaction.
type InventoryStore interface {
	GetProductByID(ctx context.Context, id string) (*models.Product, error)
	GetProducts(ctx context.Context) ([]models.Product, error)
	GetBatchesByProductID(ctx context.Context, productID string) ([]models.Batch, error)
	ApplyAdjustmentTx(ctx context.Context, product *models.Product, delta models.BatchDelta, rec *models.AdjustmentRecord) error
	GetAdjustmentsByProductID(ctx context.Context, productID string) ([]models.AdjustmentRecord, error)
	GetRecentAdjustments(ctx context.Context, limit int) ([]models.AdjustmentRecord, error)
}

// StockEventPublisher publishes committed adjustments to the event stream.
type StockEventPublisher interface {
	PublishStockAdjusted(ctx context.Context, event *models.StockAdjustedEvent) error
	PublishBatchExpiring(ctx context.Context, event *models.BatchExpiringEvent) error
}

// SnapshotCache caches per-product stock snapshots and guards adjustments
// across service instances.
type SnapshotCache interface {
	AcquireProductLock(ctx context.Context, productID string, ttl time.Duration) (bool, error)
	ReleaseProductLock(ctx context.Context, productID string) error
	SetStockSnapshot(ctx context.Context, productID string, quantity int, status models.StockStatus) error
	GetStockSnapshot(ctx context.Context, productID string) (int, models.StockStatus, error)
}

// InventoryService orchestrates stock adjustments: it serializes per
// product, hydrates a StockLedger, applies the adjustment, persists the
// resulting delta and publishes the outcome. The ledger itself does no I/O;
// persistence and events happen only after the in-memory commit.
type InventoryService struct {
	store      InventoryStore
	cache      SnapshotCache
	publisher  StockEventPublisher
	auditLog   *ledger.AdjustmentLog
	clock      ledger.Clock
	soonWindow time.Duration
	lockTTL    time.Duration
	locks      keyedMutex
	logger     *zap.Logger
}

// NewInventoryService creates a new inventory service. cache and publisher
// may be nil, in which case snapshot caching and event publishing are
// skipped (used in tests).
func NewInventoryService(
	store InventoryStore,
	cache SnapshotCache,
	publisher StockEventPublisher,
	clock ledger.Clock,
	soonWindow time.Duration,
	lockTTL time.Duration,
) *InventoryService {
	if clock == nil {
		clock = ledger.SystemClock()
	}
	if soonWindow <= 0 {
		soonWindow = ledger.DefaultSoonWindow
	}
	if lockTTL <= 0 {
		lockTTL = 10 * time.Second
	}
	return &InventoryService{
		store:      store,
		cache:      cache,
		publisher:  publisher,
		auditLog:   ledger.NewAdjustmentLog(),
		clock:      clock,
		soonWindow: soonWindow,
		lockTTL:    lockTTL,
		logger:     util.GetLogger(),
	}
}

// AuditLog exposes the in-process adjustment trail, used for replay checks.
func (s *InventoryService) AuditLog() *ledger.AdjustmentLog {
	return s.auditLog
}

// AdjustmentRequest represents a request to adjust a product's stock
type AdjustmentRequest struct {
	Kind        string     `json:"kind" binding:"required,oneof=receipt consumption correction removal"`
	BatchNumber string     `json:"batch_number,omitempty"`
	Quantity    int        `json:"quantity,omitempty"`
	ExpiryDate  *time.Time `json:"expiry_date,omitempty"`
	BatchID     string     `json:"batch_id,omitempty"`
	NewQuantity *int       `json:"new_quantity,omitempty"`
	Strategy    string     `json:"strategy,omitempty"`
}

// AdjustmentResponse represents the committed outcome of an adjustment
type AdjustmentResponse struct {
	AdjustmentID   string             `json:"adjustment_id"`
	ProductID      string             `json:"product_id"`
	Kind           string             `json:"kind"`
	DeltaQuantity  int                `json:"delta_quantity"`
	Quantity       int                `json:"quantity"`
	Status         models.StockStatus `json:"status"`
	Reconciled     bool               `json:"reconciled"`
	CreatedBatch   *models.Batch      `json:"created_batch,omitempty"`
	Draws          []ledger.BatchDraw `json:"draws,omitempty"`
	RemovedBatchID string             `json:"removed_batch_id,omitempty"`
}

// AdjustStock applies one stock adjustment to a product. Adjustments on the
// same product are serialized; a validation failure leaves no trace.
func (s *InventoryService) AdjustStock(ctx context.Context, productID string, req *AdjustmentRequest) (*AdjustmentResponse, error) {
	ctx, span := util.StartSpan(ctx, "InventoryService.AdjustStock")
	defer span.End()

	start := time.Now()
	defer func() {
		util.AdjustmentLatency.WithLabelValues(req.Kind).Observe(time.Since(start).Seconds())
	}()

	unlock := s.locks.Lock(productID)
	defer unlock()

	if s.cache != nil {
		acquired, err := s.cache.AcquireProductLock(ctx, productID, s.lockTTL)
		if err != nil {
			s.logger.Warn("Redis lock unavailable, relying on local serialization",
				zap.String("product_id", productID),
				zap.Error(err))
		} else if !acquired {
			util.AdjustmentsRejectedTotal.WithLabelValues(req.Kind, "in_flight").Inc()
			return nil, ErrAdjustmentInFlight
		} else {
			defer func() {
				if err := s.cache.ReleaseProductLock(ctx, productID); err != nil {
					s.logger.Warn("Failed to release product lock",
						zap.String("product_id", productID),
						zap.Error(err))
				}
			}()
		}
	}

	led, err := s.hydrate(ctx, productID)
	if err != nil {
		return nil, err
	}

	adj, err := s.apply(led, req)
	if err != nil {
		util.AdjustmentsRejectedTotal.WithLabelValues(req.Kind, rejectionReason(err)).Inc()
		return nil, err
	}

	updated := led.Product()
	status, err := ledger.ClassifyStock(updated.Quantity, updated.EffectiveThreshold())
	if err != nil {
		return nil, err
	}

	rec := &models.AdjustmentRecord{
		ID:                uuid.New().String(),
		ProductID:         productID,
		Timestamp:         s.clock.Now(),
		Kind:              adj.Kind,
		DeltaQuantity:     adj.DeltaQuantity,
		BatchID:           singleBatchID(adj),
		ResultingQuantity: adj.NewQuantity,
	}

	// Persist the delta. On failure the in-memory ledger is simply
	// discarded; the caller retries and rehydrates from the store of record.
	if err := s.store.ApplyAdjustmentTx(ctx, &updated, batchDelta(adj), rec); err != nil {
		return nil, fmt.Errorf("failed to persist adjustment: %w", err)
	}

	s.auditLog.Append(*rec)
	util.AdjustmentsAppliedTotal.WithLabelValues(adj.Kind).Inc()
	for _, d := range adj.Draws {
		if d.Removed {
			util.BatchesConsumedTotal.Inc()
		}
	}

	s.logger.Info("Stock adjusted",
		zap.String("product_id", productID),
		zap.String("kind", adj.Kind),
		zap.Int("delta", adj.DeltaQuantity),
		zap.Int("quantity", adj.NewQuantity),
		zap.String("status", string(status)),
		zap.Bool("reconciled", adj.Reconciled))

	s.afterCommit(ctx, &updated, adj, rec, status)

	return &AdjustmentResponse{
		AdjustmentID:   rec.ID,
		ProductID:      productID,
		Kind:           adj.Kind,
		DeltaQuantity:  adj.DeltaQuantity,
		Quantity:       adj.NewQuantity,
		Status:         status,
		Reconciled:     adj.Reconciled,
		CreatedBatch:   adj.Created,
		Draws:          adj.Draws,
		RemovedBatchID: removedBatchID(adj),
	}, nil
}

func (s *InventoryService) hydrate(ctx context.Context, productID string) (*ledger.StockLedger, error) {
	product, err := s.store.GetProductByID(ctx, productID)
	if err != nil {
		return nil, err
	}

	batches, err := s.store.GetBatchesByProductID(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to load batches: %w", err)
	}

	return ledger.NewStockLedger(*product, batches, s.clock)
}

func (s *InventoryService) apply(led *ledger.StockLedger, req *AdjustmentRequest) (*ledger.Adjustment, error) {
	switch req.Kind {
	case models.AdjustmentKindReceipt:
		return led.ApplyReceipt(models.Batch{
			ID:          uuid.New().String(),
			BatchNumber: req.BatchNumber,
			Quantity:    req.Quantity,
			ExpiryDate:  req.ExpiryDate,
			CreatedAt:   s.clock.Now(),
		})

	case models.AdjustmentKindConsumption:
		strategy := ledger.FEFO
		if req.Strategy == "fifo" {
			strategy = ledger.FIFO
		}
		return led.ApplyConsumption(req.Quantity, strategy)

	case models.AdjustmentKindCorrection:
		if req.NewQuantity == nil {
			return nil, fmt.Errorf("correction rejected: %w: new_quantity is required", ledger.ErrInvalidQuantity)
		}
		return led.ApplyCorrection(*req.NewQuantity)

	case models.AdjustmentKindRemoval:
		return led.RemoveBatch(req.BatchID)

	default:
		return nil, fmt.Errorf("unknown adjustment kind: %s", req.Kind)
	}
}

// afterCommit refreshes the snapshot cache and publishes events. Both are
// best effort: the store of record already holds the committed state.
func (s *InventoryService) afterCommit(ctx context.Context, product *models.Product, adj *ledger.Adjustment, rec *models.AdjustmentRecord, status models.StockStatus) {
	if s.cache != nil {
		if err := s.cache.SetStockSnapshot(ctx, product.ID, product.Quantity, status); err != nil {
			s.logger.Warn("Failed to refresh stock snapshot",
				zap.String("product_id", product.ID),
				zap.Error(err))
		}
	}

	if s.publisher != nil {
		event := &models.StockAdjustedEvent{
			BaseEvent: models.BaseEvent{
				EventID:   uuid.New().String(),
				EventType: models.EventTypeStockAdjusted,
				Timestamp: s.clock.Now(),
			},
			ProductID:         product.ID,
			SKU:               product.SKU,
			Threshold:         product.EffectiveThreshold(),
			AdjustmentID:      rec.ID,
			Kind:              adj.Kind,
			DeltaQuantity:     adj.DeltaQuantity,
			ResultingQuantity: adj.NewQuantity,
			Status:            status,
			Reconciled:        adj.Reconciled,
			Batches:           batchDeltaData(adj),
		}
		if err := s.publisher.PublishStockAdjusted(ctx, event); err != nil {
			s.logger.Error("Failed to publish StockAdjusted event", zap.Error(err))
		}
	}
}

// ProductSummary is a product with its derived stock status
type ProductSummary struct {
	models.Product
	Status models.StockStatus `json:"status"`
}

// BatchView is a batch with its derived temporal status
type BatchView struct {
	models.Batch
	Status models.BatchTemporalStatus `json:"status"`
}

// ProductDetail is a product with its batch set, both carrying derived state
type ProductDetail struct {
	ProductSummary
	Batches    []BatchView `json:"batches"`
	Reconciled bool        `json:"reconciled"`
}

// ListProducts retrieves all products with their derived stock statuses
func (s *InventoryService) ListProducts(ctx context.Context) ([]ProductSummary, error) {
	ctx, span := util.StartSpan(ctx, "InventoryService.ListProducts")
	defer span.End()

	products, err := s.store.GetProducts(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]ProductSummary, 0, len(products))
	for _, p := range products {
		status, err := ledger.ClassifyStock(p.Quantity, p.EffectiveThreshold())
		if err != nil {
			return nil, err
		}
		out = append(out, ProductSummary{Product: p, Status: status})
	}
	return out, nil
}

// GetProduct retrieves one product with its batches in expiry order, each
// batch classified against the current instant.
func (s *InventoryService) GetProduct(ctx context.Context, productID string) (*ProductDetail, error) {
	ctx, span := util.StartSpan(ctx, "InventoryService.GetProduct")
	defer span.End()

	led, err := s.hydrate(ctx, productID)
	if err != nil {
		return nil, err
	}

	product := led.Product()
	status, err := led.Status()
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	batches := led.Batches()
	views := make([]BatchView, 0, len(batches))
	for _, b := range batches {
		views = append(views, BatchView{
			Batch:  b,
			Status: ledger.ClassifyBatch(b.ExpiryDate, now, s.soonWindow),
		})
	}

	return &ProductDetail{
		ProductSummary: ProductSummary{Product: product, Status: status},
		Batches:        views,
		Reconciled:     led.VerifyInvariant(),
	}, nil
}

// GetHistory retrieves a product's durable adjustment history
func (s *InventoryService) GetHistory(ctx context.Context, productID string) ([]models.AdjustmentRecord, error) {
	return s.store.GetAdjustmentsByProductID(ctx, productID)
}

// RecentActivity retrieves the latest adjustments across all products
func (s *InventoryService) RecentActivity(ctx context.Context, limit int) ([]models.AdjustmentRecord, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.store.GetRecentAdjustments(ctx, limit)
}

// VerifyProduct reports whether a product's quantity equals the sum of its
// batch quantities, for periodic reconciliation jobs.
func (s *InventoryService) VerifyProduct(ctx context.Context, productID string) (bool, error) {
	ctx, span := util.StartSpan(ctx, "InventoryService.VerifyProduct")
	defer span.End()

	led, err := s.hydrate(ctx, productID)
	if err != nil {
		return false, err
	}

	ok := led.VerifyInvariant()
	if !ok {
		util.InvariantViolationsTotal.Inc()
		s.logger.Warn("Quantity/batch-sum mismatch",
			zap.String("product_id", productID),
			zap.Int("quantity", led.Quantity()))
	}
	return ok, nil
}

func singleBatchID(adj *ledger.Adjustment) string {
	switch {
	case adj.Created != nil:
		return adj.Created.ID
	case adj.Removed != nil:
		return adj.Removed.ID
	case len(adj.Draws) == 1:
		return adj.Draws[0].BatchID
	default:
		return ""
	}
}

func removedBatchID(adj *ledger.Adjustment) string {
	if adj.Removed != nil {
		return adj.Removed.ID
	}
	return ""
}

func batchDelta(adj *ledger.Adjustment) models.BatchDelta {
	var delta models.BatchDelta
	if adj.Created != nil {
		delta.Created = []models.Batch{*adj.Created}
	}
	for _, d := range adj.Draws {
		if d.Removed {
			delta.RemovedIDs = append(delta.RemovedIDs, d.BatchID)
		} else {
			delta.Updated = append(delta.Updated, models.Batch{ID: d.BatchID, Quantity: d.NewQuantity})
		}
	}
	if adj.Removed != nil {
		delta.RemovedIDs = append(delta.RemovedIDs, adj.Removed.ID)
	}
	return delta
}

func batchDeltaData(adj *ledger.Adjustment) []models.BatchDeltaData {
	var out []models.BatchDeltaData
	if adj.Created != nil {
		out = append(out, models.BatchDeltaData{
			BatchID:     adj.Created.ID,
			Change:      adj.Created.Quantity,
			NewQuantity: adj.Created.Quantity,
		})
	}
	for _, d := range adj.Draws {
		out = append(out, models.BatchDeltaData{
			BatchID:     d.BatchID,
			Change:      -d.Amount,
			NewQuantity: d.NewQuantity,
			Removed:     d.Removed,
		})
	}
	if adj.Removed != nil {
		out = append(out, models.BatchDeltaData{
			BatchID: adj.Removed.ID,
			Change:  -adj.Removed.Quantity,
			Removed: true,
		})
	}
	return out
}

func rejectionReason(err error) string {
	switch {
	case errors.Is(err, ledger.ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, ledger.ErrInsufficientBatchQuantity):
		return "insufficient_batch_quantity"
	case errors.Is(err, ledger.ErrDuplicateBatchID):
		return "duplicate_batch_id"
	case errors.Is(err, ledger.ErrBatchNotFound):
		return "batch_not_found"
	case errors.Is(err, ledger.ErrInvalidQuantity):
		return "invalid_quantity"
	case errors.Is(err, ledger.ErrInvalidThreshold):
		return "invalid_threshold"
	default:
		return "error"
	}
}
