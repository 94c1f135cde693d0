package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/vbonduro/foodwatch/internal/domain"
)

// HistoryStore is the append-only audit log.
type HistoryStore struct {
	db *sql.DB
}

func NewHistoryStore(db *sql.DB) *HistoryStore {
	return &HistoryStore{db: db}
}

func (s *HistoryStore) Append(ctx context.Context, entry *domain.HistoryEntry) error {
	at := entry.CreatedAt
	if at.IsZero() {
		at = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO history (type, message, product_name, product_brand, expiry, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, string(entry.Type), entry.Message, entry.ProductName, entry.ProductBrand, entry.Expiry, at.UTC())
	if err != nil {
		return fmt.Errorf("failed to append history entry: %w", err)
	}
	return nil
}

// ListRecent returns up to limit entries, newest first. A non-positive limit
// returns the whole log.
func (s *HistoryStore) ListRecent(ctx context.Context, limit int) ([]*domain.HistoryEntry, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, type, message, product_name, product_brand, expiry, created_at
		FROM history ORDER BY id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("failed to close rows", "error", err)
		}
	}()

	var entries []*domain.HistoryEntry
	for rows.Next() {
		e := &domain.HistoryEntry{}
		var typ string
		if err := rows.Scan(&e.ID, &typ, &e.Message, &e.ProductName, &e.ProductBrand, &e.Expiry, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan history entry: %w", err)
		}
		e.Type = domain.HistoryType(typ)
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating history: %w", err)
	}

	return entries, nil
}

// CountByType returns how many entries of each type the log holds.
func (s *HistoryStore) CountByType(ctx context.Context) (map[domain.HistoryType]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT type, COUNT(*) FROM history GROUP BY type
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to count history: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("failed to close rows", "error", err)
		}
	}()

	counts := make(map[domain.HistoryType]int)
	for rows.Next() {
		var typ string
		var n int
		if err := rows.Scan(&typ, &n); err != nil {
			return nil, fmt.Errorf("failed to scan history count: %w", err)
		}
		counts[domain.HistoryType(typ)] = n
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating history counts: %w", err)
	}

	return counts, nil
}
