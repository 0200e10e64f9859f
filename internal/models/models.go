package models

import "time"

// Product represents a product in the catalog. Quantity is the authoritative
// on-hand total and must equal the sum of the product's batch quantities,
// except after a manual correction (see AdjustmentKindCorrection).
type Product struct {
	ID                string    `db:"id" json:"id"`
	SKU               string    `db:"sku" json:"sku"`
	Name              string    `db:"name" json:"name"`
	Brand             string    `db:"brand" json:"brand,omitempty"`
	Category          string    `db:"category" json:"category,omitempty"`
	Unit              string    `db:"unit" json:"unit,omitempty"`
	Quantity          int       `db:"quantity" json:"quantity"`
	LowStockThreshold int       `db:"low_stock_threshold" json:"low_stock_threshold"`
	Location          string    `db:"location" json:"location,omitempty"`
	ImageURL          string    `db:"image_url" json:"image_url,omitempty"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
	LastUpdated       time.Time `db:"last_updated" json:"last_updated"`
}

// DefaultLowStockThreshold applies when a product has no threshold configured.
const DefaultLowStockThreshold = 5

// EffectiveThreshold returns the product's threshold, falling back to the default.
func (p *Product) EffectiveThreshold() int {
	if p.LowStockThreshold <= 0 {
		return DefaultLowStockThreshold
	}
	return p.LowStockThreshold
}

// Batch represents a discrete lot of a product with its own quantity and
// optional expiry date. A nil ExpiryDate means no expiry is tracked.
type Batch struct {
	ID          string     `db:"id" json:"id"`
	ProductID   string     `db:"product_id" json:"product_id"`
	BatchNumber string     `db:"batch_number" json:"batch_number"`
	Quantity    int        `db:"quantity" json:"quantity"`
	ExpiryDate  *time.Time `db:"expiry_date" json:"expiry_date,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
}

// StockStatus is the derived classification of a product's quantity
// relative to its low-stock threshold.
type StockStatus string

// Stock statuses
const (
	StockStatusIn  StockStatus = "in"
	StockStatusLow StockStatus = "low"
	StockStatusOut StockStatus = "out"
)

// BatchTemporalStatus is the derived classification of a batch's expiry
// date relative to the current instant.
type BatchTemporalStatus string

// Batch temporal statuses
const (
	BatchStatusExpired      BatchTemporalStatus = "expired"
	BatchStatusExpiringSoon BatchTemporalStatus = "expiring_soon"
	BatchStatusActive       BatchTemporalStatus = "active"
	BatchStatusNoExpiry     BatchTemporalStatus = "no_expiry"
)

// Adjustment kinds
const (
	AdjustmentKindReceipt     = "receipt"
	AdjustmentKindConsumption = "consumption"
	AdjustmentKindCorrection  = "correction"
	AdjustmentKindRemoval     = "removal"
)

// AdjustmentRecord is the immutable audit entry for an applied adjustment.
// BatchID is empty for adjustments spanning multiple batches (consumption
// split across several batches, corrections).
type AdjustmentRecord struct {
	ID                string    `db:"id" json:"id"`
	ProductID         string    `db:"product_id" json:"product_id"`
	Timestamp         time.Time `db:"timestamp" json:"timestamp"`
	Kind              string    `db:"kind" json:"kind"`
	DeltaQuantity     int       `db:"delta_quantity" json:"delta_quantity"`
	BatchID           string    `db:"batch_id" json:"batch_id,omitempty"`
	ResultingQuantity int       `db:"resulting_quantity" json:"resulting_quantity"`
}
