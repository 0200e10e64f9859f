package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/CodeWithFin/warehouse-inventory/internal/models"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// Store is the persistence collaborator for products, batches and the
// durable adjustment audit trail. The ledger itself never talks to it;
// the service layer hydrates a ledger from here and writes the committed
// delta back.
type Store struct {
	db *sqlx.DB
}

// NewStore creates a new database store
func NewStore(databaseURL string) (*Store, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// GetDB returns the underlying database connection
func (s *Store) GetDB() *sqlx.DB {
	return s.db
}

// GetProductByID retrieves a product by ID
func (s *Store) GetProductByID(ctx context.Context, id string) (*models.Product, error) {
	var product models.Product
	err := s.db.GetContext(ctx, &product, "SELECT * FROM products WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("product not found: %s", id)
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// GetProductBySKU retrieves a product by SKU
func (s *Store) GetProductBySKU(ctx context.Context, sku string) (*models.Product, error) {
	var product models.Product
	err := s.db.GetContext(ctx, &product, "SELECT * FROM products WHERE sku = $1", sku)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("product not found: %s", sku)
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// GetProducts retrieves all products ordered by name
func (s *Store) GetProducts(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	err := s.db.SelectContext(ctx, &products, "SELECT * FROM products ORDER BY name, id")
	return products, err
}

// GetBatchesByProductID retrieves the current batch set for a product in
// insertion order, which is the order the ledger preserves.
func (s *Store) GetBatchesByProductID(ctx context.Context, productID string) ([]models.Batch, error) {
	var batches []models.Batch
	err := s.db.SelectContext(ctx, &batches,
		"SELECT * FROM batches WHERE product_id = $1 ORDER BY created_at, id", productID)
	return batches, err
}

// ApplyAdjustmentTx persists a committed adjustment in a single transaction:
// the product's new quantity, the batch rows that were created, updated or
// removed, and the audit record. Either everything lands or nothing does.
func (s *Store) ApplyAdjustmentTx(ctx context.Context, product *models.Product, delta models.BatchDelta, rec *models.AdjustmentRecord) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		"UPDATE products SET quantity = $1, last_updated = $2 WHERE id = $3",
		product.Quantity, product.LastUpdated, product.ID)
	if err != nil {
		return fmt.Errorf("failed to update product quantity: %w", err)
	}

	for _, b := range delta.Created {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO batches (id, product_id, batch_number, quantity, expiry_date, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			b.ID, b.ProductID, b.BatchNumber, b.Quantity, b.ExpiryDate, b.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert batch %s: %w", b.ID, err)
		}
	}

	for _, b := range delta.Updated {
		_, err = tx.ExecContext(ctx,
			"UPDATE batches SET quantity = $1 WHERE id = $2",
			b.Quantity, b.ID)
		if err != nil {
			return fmt.Errorf("failed to update batch %s: %w", b.ID, err)
		}
	}

	for _, id := range delta.RemovedIDs {
		_, err = tx.ExecContext(ctx, "DELETE FROM batches WHERE id = $1", id)
		if err != nil {
			return fmt.Errorf("failed to delete batch %s: %w", id, err)
		}
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO adjustments (id, product_id, timestamp, kind, delta_quantity, batch_id, resulting_quantity)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		rec.ID, rec.ProductID, rec.Timestamp, rec.Kind, rec.DeltaQuantity, rec.BatchID, rec.ResultingQuantity)
	if err != nil {
		return fmt.Errorf("failed to insert adjustment record: %w", err)
	}

	return tx.Commit()
}
