package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/vbonduro/foodwatch/internal/domain"
	"github.com/vbonduro/foodwatch/internal/expiry"
)

// ErrNotFound is returned by mutations that match no row.
var ErrNotFound = domain.ErrNotFound

const productColumns = `id, name, brand, barcode, expiry, quantity, location, migration_state, created_at`

type ProductStore struct {
	db *sql.DB
}

func NewProductStore(db *sql.DB) *ProductStore {
	return &ProductStore{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (*domain.Product, error) {
	p := &domain.Product{}
	var exp sql.NullString
	var state string
	if err := row.Scan(&p.ID, &p.Name, &p.Brand, &p.Barcode, &exp, &p.Quantity, &p.Location, &state, &p.CreatedAt); err != nil {
		return nil, err
	}
	p.Migration = domain.MigrationState(state)
	if exp.Valid {
		// Rows are validated on write; a malformed date here reads as no date.
		d, err := expiry.ParseDate(exp.String)
		if err != nil {
			slog.Warn("ignoring malformed expiry", "product_id", p.ID, "expiry", exp.String)
		}
		p.Expiry = d
	}
	return p, nil
}

func nullDate(d *time.Time) sql.NullString {
	if d == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: expiry.FormatDate(d), Valid: true}
}

func (s *ProductStore) Create(ctx context.Context, p *domain.Product) (*domain.Product, error) {
	state := p.Migration
	if state == "" {
		state = domain.NotMigrated
	}
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO products (name, brand, barcode, expiry, quantity, location, migration_state)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, p.Name, p.Brand, p.Barcode, nullDate(p.Expiry), p.Quantity, p.Location, string(state))
	if err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get last insert id: %w", err)
	}

	return s.GetByID(ctx, id)
}

func (s *ProductStore) GetByID(ctx context.Context, id int64) (*domain.Product, error) {
	p, err := scanProduct(s.db.QueryRowContext(ctx, `
		SELECT `+productColumns+` FROM products WHERE id = ?
	`, id))

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}

	return p, nil
}

// List returns products ordered by expiry (undated last), then name. A
// non-empty location keeps only products whose location contains it,
// ignoring case.
func (s *ProductStore) List(ctx context.Context, location string) ([]*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products`
	var args []any
	if location != "" {
		query += ` WHERE LOWER(location) LIKE ?`
		args = append(args, "%"+strings.ToLower(location)+"%")
	}
	query += ` ORDER BY expiry IS NULL, expiry ASC, name ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("failed to close rows", "error", err)
		}
	}()

	var products []*domain.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating products: %w", err)
	}

	return products, nil
}

// Update overwrites the user-editable columns of p. It never writes the
// migration state; only MigrateExpired and ResetMigration do.
func (s *ProductStore) Update(ctx context.Context, p *domain.Product) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE products
		SET name = ?, brand = ?, barcode = ?, expiry = ?, quantity = ?, location = ?
		WHERE id = ?
	`, p.Name, p.Brand, p.Barcode, nullDate(p.Expiry), p.Quantity, p.Location, p.ID)
	if err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}

	return expectOneRow(result)
}

// ResetMigration makes a product eligible for auto-migration again.
func (s *ProductStore) ResetMigration(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE products SET migration_state = ? WHERE id = ?
	`, string(domain.NotMigrated), id)
	if err != nil {
		return fmt.Errorf("failed to reset migration state: %w", err)
	}

	return expectOneRow(result)
}

func (s *ProductStore) Delete(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM products WHERE id = ?
	`, id)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}

	return expectOneRow(result)
}

// MigrateExpired moves an expired product onto the shopping list in a single
// transaction: it flips the product from not_migrated to migrated, appends an
// expired_auto shopping item linked to it and records an audit entry. Only
// p.ID is trusted; names and dates are copied from the row as it stands in
// the transaction. It returns false without writing anything when the
// product is gone or was already migrated by someone else.
func (s *ProductStore) MigrateExpired(ctx context.Context, p *domain.Product, at time.Time) (migrated bool, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin migration: %w", err)
	}
	defer func() {
		if err != nil || !migrated {
			if rerr := tx.Rollback(); rerr != nil && !errors.Is(rerr, sql.ErrTxDone) {
				slog.Error("failed to roll back migration", "product_id", p.ID, "error", rerr)
			}
		}
	}()

	result, err := tx.ExecContext(ctx, `
		UPDATE products SET migration_state = ? WHERE id = ? AND migration_state = ?
	`, string(domain.Migrated), p.ID, string(domain.NotMigrated))
	if err != nil {
		return false, fmt.Errorf("failed to mark product migrated: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return false, nil
	}

	if _, err = tx.ExecContext(ctx, `
		INSERT INTO shopping_items (name, brand, barcode, quantity, source, status, linked_product_id, created_at)
		SELECT name, brand, barcode, 1, ?, ?, id, ? FROM products WHERE id = ?
	`, string(domain.SourceExpiredAuto), string(domain.StatusPending), at.UTC(), p.ID); err != nil {
		return false, fmt.Errorf("failed to append shopping item: %w", err)
	}

	if _, err = tx.ExecContext(ctx, `
		INSERT INTO history (type, message, product_name, product_brand, expiry, created_at)
		SELECT ?, ?, name, brand, COALESCE(expiry, ''), ? FROM products WHERE id = ?
	`, string(domain.HistoryExpiredToShopping), "Expired product moved to the shopping list",
		at.UTC(), p.ID); err != nil {
		return false, fmt.Errorf("failed to append history entry: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit migration: %w", err)
	}
	return true, nil
}

func expectOneRow(result sql.Result) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}
