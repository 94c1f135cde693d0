package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/vbonduro/foodwatch/internal/category"
	"github.com/vbonduro/foodwatch/internal/domain"
	"github.com/vbonduro/foodwatch/internal/expiry"
)

// ExportVersion is bumped whenever the export document changes shape.
const ExportVersion = 1

const (
	DefaultHistoryLimit = 50
	MaxHistoryLimit     = 500
)

var ErrBackupDisabled = errors.New("backups are not configured")

type Dashboard struct {
	Total    int `json:"total"`
	Soon     int `json:"soon"`
	Expired  int `json:"expired"`
	SoonDays int `json:"soonDays"`
}

// Dashboard counts products by freshness using the configured soon window.
func (s *PantryService) Dashboard(ctx context.Context) (*Dashboard, error) {
	products, err := s.products.List(ctx, "")
	if err != nil {
		return nil, err
	}
	today := s.now()
	d := &Dashboard{Total: len(products), SoonDays: s.soonDays}
	for _, p := range products {
		switch expiry.Evaluate(p.Expiry, s.soonDays, today) {
		case expiry.Expired:
			d.Expired++
		case expiry.Soon:
			d.Soon++
		}
	}
	return d, nil
}

type Stats struct {
	Added             int `json:"added"`
	UsedUp            int `json:"usedUp"`
	ExpiredToShopping int `json:"expiredToShopping"`
	Bought            int `json:"bought"`
	// ZeroWasteScore is the percentage of finished products that were used
	// up rather than left to expire.
	ZeroWasteScore int `json:"zeroWasteScore"`
}

func (s *PantryService) Stats(ctx context.Context) (*Stats, error) {
	counts, err := s.history.CountByType(ctx)
	if err != nil {
		return nil, err
	}
	st := &Stats{
		Added:             counts[domain.HistoryProductAdded],
		UsedUp:            counts[domain.HistoryProductUsedUp],
		ExpiredToShopping: counts[domain.HistoryExpiredToShopping],
		Bought:            counts[domain.HistoryShoppingBought],
	}
	st.ZeroWasteScore = zeroWasteScore(st.UsedUp, st.ExpiredToShopping)
	return st, nil
}

func zeroWasteScore(usedUp, expired int) int {
	finished := usedUp + expired
	if finished == 0 {
		return 100
	}
	return int(math.Round(float64(usedUp) / float64(finished) * 100))
}

// RecentHistory returns the newest audit entries. limit is clamped to
// [1, MaxHistoryLimit]; zero means DefaultHistoryLimit.
func (s *PantryService) RecentHistory(ctx context.Context, limit int) ([]*domain.HistoryEntry, error) {
	switch {
	case limit <= 0:
		limit = DefaultHistoryLimit
	case limit > MaxHistoryLimit:
		limit = MaxHistoryLimit
	}
	return s.history.ListRecent(ctx, limit)
}

// AlertHistory returns the retained alert summaries, newest first.
func (s *PantryService) AlertHistory(ctx context.Context) ([]*domain.AlertHistoryEntry, error) {
	return s.alerts.List(ctx)
}

func (s *PantryService) Categories() []category.Rule {
	return s.classifier.Rules()
}

func (s *PantryService) Classify(name, brand string) category.Rule {
	return s.classifier.Classify(name, brand)
}

// Export is the full pantry document.
type Export struct {
	Version    int                    `json:"version"`
	ExportedAt time.Time              `json:"exportedAt"`
	Products   []*domain.Product      `json:"products"`
	Shopping   []*domain.ShoppingItem `json:"shopping"`
	History    []*domain.HistoryEntry `json:"history"`
}

func (s *PantryService) Export(ctx context.Context) (*Export, error) {
	products, err := s.products.List(ctx, "")
	if err != nil {
		return nil, err
	}
	shopping, err := s.shopping.List(ctx)
	if err != nil {
		return nil, err
	}
	history, err := s.history.ListRecent(ctx, 0)
	if err != nil {
		return nil, err
	}

	exp := &Export{
		Version:    ExportVersion,
		ExportedAt: s.now().UTC(),
		Products:   products,
		Shopping:   shopping,
		History:    history,
	}
	// Empty collections serialize as [] rather than null.
	if exp.Products == nil {
		exp.Products = []*domain.Product{}
	}
	if exp.Shopping == nil {
		exp.Shopping = []*domain.ShoppingItem{}
	}
	if exp.History == nil {
		exp.History = []*domain.HistoryEntry{}
	}
	return exp, nil
}

// Backup writes the export to the configured backup store and returns its key.
func (s *PantryService) Backup(ctx context.Context) (string, error) {
	if s.backups == nil {
		return "", ErrBackupDisabled
	}
	exp, err := s.Export(ctx)
	if err != nil {
		return "", err
	}
	data, err := json.MarshalIndent(exp, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode export: %w", err)
	}
	key, err := s.backups.Save(ctx, "foodwatch-export", "application/json", bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to save backup: %w", err)
	}
	s.logger.Info("backup written", "key", key, "bytes", len(data))
	return key, nil
}

// OpenBackup streams a stored backup. The caller closes the reader.
func (s *PantryService) OpenBackup(ctx context.Context, key string) (io.ReadCloser, string, error) {
	if s.backups == nil {
		return nil, "", ErrBackupDisabled
	}
	return s.backups.Get(ctx, key)
}

func (s *PantryService) DeleteBackup(ctx context.Context, key string) error {
	if s.backups == nil {
		return ErrBackupDisabled
	}
	if err := s.backups.Delete(ctx, key); err != nil {
		return err
	}
	s.logger.Info("backup deleted", "key", key)
	return nil
}
