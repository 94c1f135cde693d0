package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/vbonduro/foodwatch/internal/domain"
)

const shoppingColumns = `id, name, brand, barcode, quantity, source, status, linked_product_id, created_at, done_at`

type ShoppingStore struct {
	db *sql.DB
}

func NewShoppingStore(db *sql.DB) *ShoppingStore {
	return &ShoppingStore{db: db}
}

func scanShoppingItem(row rowScanner) (*domain.ShoppingItem, error) {
	item := &domain.ShoppingItem{}
	var source, status string
	var doneAt sql.NullTime
	if err := row.Scan(&item.ID, &item.Name, &item.Brand, &item.Barcode, &item.Quantity,
		&source, &status, &item.LinkedProductID, &item.CreatedAt, &doneAt); err != nil {
		return nil, err
	}
	item.Source = domain.ShoppingSource(source)
	item.Status = domain.ShoppingStatus(status)
	if doneAt.Valid {
		item.DoneAt = &doneAt.Time
	}
	return item, nil
}

// Append inserts a new pending shopping item.
func (s *ShoppingStore) Append(ctx context.Context, item *domain.ShoppingItem) (*domain.ShoppingItem, error) {
	qty := item.Quantity
	if qty <= 0 {
		qty = 1
	}
	source := item.Source
	if source == "" {
		source = domain.SourceManual
	}
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO shopping_items (name, brand, barcode, quantity, source, status, linked_product_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, item.Name, item.Brand, item.Barcode, qty, string(source), string(domain.StatusPending),
		item.LinkedProductID, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to create shopping item: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get last insert id: %w", err)
	}

	return s.GetByID(ctx, id)
}

func (s *ShoppingStore) GetByID(ctx context.Context, id int64) (*domain.ShoppingItem, error) {
	item, err := scanShoppingItem(s.db.QueryRowContext(ctx, `
		SELECT `+shoppingColumns+` FROM shopping_items WHERE id = ?
	`, id))

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get shopping item: %w", err)
	}

	return item, nil
}

// List returns pending items before done ones, each group oldest first.
func (s *ShoppingStore) List(ctx context.Context) ([]*domain.ShoppingItem, error) {
	return s.list(ctx, `SELECT `+shoppingColumns+` FROM shopping_items
		ORDER BY status = 'done', id ASC`)
}

func (s *ShoppingStore) ListPending(ctx context.Context) ([]*domain.ShoppingItem, error) {
	return s.list(ctx, `SELECT `+shoppingColumns+` FROM shopping_items
		WHERE status = ? ORDER BY id ASC`, string(domain.StatusPending))
}

func (s *ShoppingStore) list(ctx context.Context, query string, args ...any) ([]*domain.ShoppingItem, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list shopping items: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("failed to close rows", "error", err)
		}
	}()

	var items []*domain.ShoppingItem
	for rows.Next() {
		item, err := scanShoppingItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan shopping item: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating shopping items: %w", err)
	}

	return items, nil
}

// SetStatus moves an item between pending and done. doneAt is stored for
// done and cleared for pending, whatever the caller passes.
func (s *ShoppingStore) SetStatus(ctx context.Context, id int64, status domain.ShoppingStatus, doneAt time.Time) error {
	var at sql.NullTime
	if status == domain.StatusDone {
		at = sql.NullTime{Time: doneAt.UTC(), Valid: true}
	}
	result, err := s.db.ExecContext(ctx, `
		UPDATE shopping_items SET status = ?, done_at = ? WHERE id = ?
	`, string(status), at, id)
	if err != nil {
		return fmt.Errorf("failed to update shopping item: %w", err)
	}

	return expectOneRow(result)
}

func (s *ShoppingStore) Delete(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM shopping_items WHERE id = ?
	`, id)
	if err != nil {
		return fmt.Errorf("failed to delete shopping item: %w", err)
	}

	return expectOneRow(result)
}
