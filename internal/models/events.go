package models

import "time"

// Event types
const (
	EventTypeStockAdjusted = "STOCK_ADJUSTED"
	EventTypeLowStock      = "LOW_STOCK"
	EventTypeBatchExpiring = "BATCH_EXPIRING"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// BatchDeltaData describes one batch touched by an adjustment.
type BatchDeltaData struct {
	BatchID     string `json:"batch_id"`
	Change      int    `json:"change"`
	NewQuantity int    `json:"new_quantity"`
	Removed     bool   `json:"removed"`
}

// StockAdjustedEvent published after every committed adjustment
type StockAdjustedEvent struct {
	BaseEvent
	ProductID         string           `json:"product_id"`
	SKU               string           `json:"sku"`
	Threshold         int              `json:"threshold"`
	AdjustmentID      string           `json:"adjustment_id"`
	Kind              string           `json:"kind"`
	DeltaQuantity     int              `json:"delta_quantity"`
	ResultingQuantity int              `json:"resulting_quantity"`
	Status            StockStatus      `json:"status"`
	Reconciled        bool             `json:"reconciled"`
	Batches           []BatchDeltaData `json:"batches,omitempty"`
}

// LowStockEvent published when an adjustment drives a product to low or out
type LowStockEvent struct {
	BaseEvent
	ProductID string      `json:"product_id"`
	SKU       string      `json:"sku"`
	Quantity  int         `json:"quantity"`
	Threshold int         `json:"threshold"`
	Status    StockStatus `json:"status"`
}

// BatchExpiringEvent published by the expiry sweep for batches that are
// expired or inside the expiring-soon window
type BatchExpiringEvent struct {
	BaseEvent
	ProductID   string              `json:"product_id"`
	BatchID     string              `json:"batch_id"`
	BatchNumber string              `json:"batch_number"`
	Quantity    int                 `json:"quantity"`
	ExpiryDate  time.Time           `json:"expiry_date"`
	Status      BatchTemporalStatus `json:"status"`
}
