package service

import (
	"context"
	"fmt"

	"github.com/CodeWithFin/warehouse-inventory/internal/ledger"
	"github.com/CodeWithFin/warehouse-inventory/internal/models"
	"github.com/CodeWithFin/warehouse-inventory/internal/util"

	"go.uber.org/zap"
)

// StockSnapshot is the cached view of a product's stock level
type StockSnapshot struct {
	ProductID string             `json:"product_id"`
	Quantity  int                `json:"quantity"`
	Status    models.StockStatus `json:"status"`
}

// GetStockSnapshot returns a product's quantity and status, preferring the
// cache and falling back to the store of record.
func (s *InventoryService) GetStockSnapshot(ctx context.Context, productID string) (*StockSnapshot, error) {
	ctx, span := util.StartSpan(ctx, "InventoryService.GetStockSnapshot")
	defer span.End()

	if s.cache != nil {
		quantity, status, err := s.cache.GetStockSnapshot(ctx, productID)
		if err == nil {
			return &StockSnapshot{ProductID: productID, Quantity: quantity, Status: status}, nil
		}
		s.logger.Debug("Snapshot cache miss, falling back to store",
			zap.String("product_id", productID),
			zap.Error(err))
	}

	product, err := s.store.GetProductByID(ctx, productID)
	if err != nil {
		return nil, err
	}

	status, err := ledger.ClassifyStock(product.Quantity, product.EffectiveThreshold())
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetStockSnapshot(ctx, productID, product.Quantity, status); err != nil {
			s.logger.Warn("Failed to backfill stock snapshot",
				zap.String("product_id", productID),
				zap.Error(err))
		}
	}

	return &StockSnapshot{ProductID: productID, Quantity: product.Quantity, Status: status}, nil
}

// SyncStockToRedis warms the snapshot cache from the store of record,
// run once on startup.
func (s *InventoryService) SyncStockToRedis(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}

	s.logger.Info("Starting stock snapshot sync to Redis")

	products, err := s.store.GetProducts(ctx)
	if err != nil {
		return fmt.Errorf("failed to get products: %w", err)
	}

	for _, p := range products {
		status, err := ledger.ClassifyStock(p.Quantity, p.EffectiveThreshold())
		if err != nil {
			s.logger.Error("Failed to classify stock",
				zap.String("product_id", p.ID),
				zap.Error(err))
			continue
		}

		if err := s.cache.SetStockSnapshot(ctx, p.ID, p.Quantity, status); err != nil {
			s.logger.Error("Failed to cache stock snapshot",
				zap.String("product_id", p.ID),
				zap.Error(err))
		}
	}

	s.logger.Info("Stock snapshot sync completed", zap.Int("count", len(products)))
	return nil
}
