package worker

import (
	"context"
	"time"

	"github.com/CodeWithFin/warehouse-inventory/internal/broker"
	"github.com/CodeWithFin/warehouse-inventory/internal/ledger"
	"github.com/CodeWithFin/warehouse-inventory/internal/models"
	"github.com/CodeWithFin/warehouse-inventory/internal/service"
	"github.com/CodeWithFin/warehouse-inventory/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// LowStockPublisher publishes low-stock alerts.
type LowStockPublisher interface {
	PublishLowStock(ctx context.Context, event *models.LowStockEvent) error
}

// LowStockWorker consumes StockAdjusted events and raises a LowStock alert
// whenever an adjustment leaves a product at or below its threshold.
type LowStockWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	publisher    LowStockPublisher
	logger       *zap.Logger
}

// NewLowStockWorker creates a new low-stock worker
func NewLowStockWorker(consumer *broker.Consumer, publisher LowStockPublisher) *LowStockWorker {
	w := &LowStockWorker{
		consumer:  consumer,
		publisher: publisher,
		logger:    util.NamedLogger("low-stock-worker"),
	}

	eventHandler := broker.NewEventHandler()
	eventHandler.OnStockAdjusted(w.handleStockAdjusted)
	w.eventHandler = eventHandler

	return w
}

func (w *LowStockWorker) handleStockAdjusted(ctx context.Context, event *models.StockAdjustedEvent) error {
	if event.Status == models.StockStatusIn {
		return nil
	}

	util.LowStockEventsTotal.Inc()
	w.logger.Warn("Product at or below threshold",
		zap.String("product_id", event.ProductID),
		zap.String("sku", event.SKU),
		zap.Int("quantity", event.ResultingQuantity),
		zap.Int("threshold", event.Threshold),
		zap.String("status", string(event.Status)))

	alert := &models.LowStockEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeLowStock,
			Timestamp: time.Now(),
		},
		ProductID: event.ProductID,
		SKU:       event.SKU,
		Quantity:  event.ResultingQuantity,
		Threshold: event.Threshold,
		Status:    event.Status,
	}
	return w.publisher.PublishLowStock(ctx, alert)
}

// Start starts the worker
func (w *LowStockWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting low-stock worker")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *LowStockWorker) Stop() error {
	w.logger.Info("Stopping low-stock worker")
	return w.consumer.Close()
}

// ExpiryWorker periodically scans every product's batches, classifies them
// against the current instant and publishes BatchExpiring events for
// batches that are expired or inside the expiring-soon window.
type ExpiryWorker struct {
	store      service.InventoryStore
	publisher  service.StockEventPublisher
	clock      ledger.Clock
	soonWindow time.Duration
	interval   time.Duration
	logger     *zap.Logger
}

// NewExpiryWorker creates a new expiry sweep worker
func NewExpiryWorker(
	store service.InventoryStore,
	publisher service.StockEventPublisher,
	clock ledger.Clock,
	soonWindow time.Duration,
	interval time.Duration,
) *ExpiryWorker {
	if clock == nil {
		clock = ledger.SystemClock()
	}
	if soonWindow <= 0 {
		soonWindow = ledger.DefaultSoonWindow
	}
	if interval <= 0 {
		interval = time.Hour
	}
	return &ExpiryWorker{
		store:      store,
		publisher:  publisher,
		clock:      clock,
		soonWindow: soonWindow,
		interval:   interval,
		logger:     util.NamedLogger("expiry-worker"),
	}
}

// Start runs the sweep loop until the context is cancelled
func (w *ExpiryWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting expiry worker", zap.Duration("interval", w.interval))

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.sweep(ctx)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Expiry worker stopping")
			return ctx.Err()
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *ExpiryWorker) sweep(ctx context.Context) {
	start := time.Now()
	defer func() {
		util.ExpirySweepLatency.Observe(time.Since(start).Seconds())
	}()

	products, err := w.store.GetProducts(ctx)
	if err != nil {
		w.logger.Error("Expiry sweep failed to list products", zap.Error(err))
		return
	}

	now := w.clock.Now()
	flagged := 0
	for _, p := range products {
		batches, err := w.store.GetBatchesByProductID(ctx, p.ID)
		if err != nil {
			w.logger.Error("Expiry sweep failed to load batches",
				zap.String("product_id", p.ID),
				zap.Error(err))
			continue
		}

		for _, b := range batches {
			status := ledger.ClassifyBatch(b.ExpiryDate, now, w.soonWindow)
			if status != models.BatchStatusExpired && status != models.BatchStatusExpiringSoon {
				continue
			}

			flagged++
			util.ExpiringBatchesTotal.WithLabelValues(string(status)).Inc()

			event := &models.BatchExpiringEvent{
				BaseEvent: models.BaseEvent{
					EventID:   uuid.New().String(),
					EventType: models.EventTypeBatchExpiring,
					Timestamp: now,
				},
				ProductID:   p.ID,
				BatchID:     b.ID,
				BatchNumber: b.BatchNumber,
				Quantity:    b.Quantity,
				ExpiryDate:  *b.ExpiryDate,
				Status:      status,
			}
			if err := w.publisher.PublishBatchExpiring(ctx, event); err != nil {
				w.logger.Error("Failed to publish BatchExpiring event",
					zap.String("batch_id", b.ID),
					zap.Error(err))
			}
		}
	}

	w.logger.Info("Expiry sweep completed",
		zap.Int("products", len(products)),
		zap.Int("flagged", flagged))
}
