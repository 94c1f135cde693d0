package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/vbonduro/foodwatch/internal/domain"
)

// AlertStore keeps a bounded window of the most recent alert summaries.
type AlertStore struct {
	db *sql.DB
}

func NewAlertStore(db *sql.DB) *AlertStore {
	return &AlertStore{db: db}
}

// Append records entry and trims the log to the newest keep entries.
func (s *AlertStore) Append(ctx context.Context, entry domain.AlertHistoryEntry, keep int) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin alert append: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO alert_history (created_at, expired_count, soon_count) VALUES (?, ?, ?)
	`, entry.Timestamp.UTC(), entry.ExpiredCount, entry.SoonCount); err != nil {
		return fmt.Errorf("failed to append alert: %w", err)
	}

	if keep > 0 {
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM alert_history
			WHERE id NOT IN (SELECT id FROM alert_history ORDER BY id DESC LIMIT ?)
		`, keep); err != nil {
			return fmt.Errorf("failed to trim alert history: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit alert append: %w", err)
	}
	return nil
}

// List returns the retained alerts, newest first.
func (s *AlertStore) List(ctx context.Context) ([]*domain.AlertHistoryEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, created_at, expired_count, soon_count FROM alert_history ORDER BY id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list alerts: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("failed to close rows", "error", err)
		}
	}()

	var entries []*domain.AlertHistoryEntry
	for rows.Next() {
		e := &domain.AlertHistoryEntry{}
		if err := rows.Scan(&e.ID, &e.Timestamp, &e.ExpiredCount, &e.SoonCount); err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating alerts: %w", err)
	}

	return entries, nil
}
