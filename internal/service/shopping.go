package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/vbonduro/foodwatch/internal/basket"
	"github.com/vbonduro/foodwatch/internal/domain"
)

type ShoppingInput struct {
	Name     string `json:"name" validate:"required,max=200"`
	Brand    string `json:"brand" validate:"max=200"`
	Barcode  string `json:"barcode" validate:"omitempty,numeric,min=8,max=14"`
	Quantity int    `json:"quantity" validate:"gte=0"`
}

func (s *PantryService) AddShoppingItem(ctx context.Context, in ShoppingInput) (*domain.ShoppingItem, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Brand = strings.TrimSpace(in.Brand)
	in.Barcode = strings.TrimSpace(in.Barcode)
	if err := s.validateInput(in); err != nil {
		return nil, err
	}
	return s.shopping.Append(ctx, &domain.ShoppingItem{
		Name:     in.Name,
		Brand:    in.Brand,
		Barcode:  in.Barcode,
		Quantity: in.Quantity,
		Source:   domain.SourceManual,
	})
}

// ListShopping returns pending items first, then done ones.
func (s *PantryService) ListShopping(ctx context.Context) ([]*domain.ShoppingItem, error) {
	return s.shopping.List(ctx)
}

// SetShoppingDone marks an item bought, or back to pending. Buying an item
// is recorded in the history; repeating the same state is a no-op.
func (s *PantryService) SetShoppingDone(ctx context.Context, id int64, done bool) (*domain.ShoppingItem, error) {
	item, err := s.shopping.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, fmt.Errorf("shopping item %d: %w", id, domain.ErrNotFound)
	}

	status := domain.StatusPending
	if done {
		status = domain.StatusDone
	}
	if item.Status == status {
		return item, nil
	}

	if err := s.shopping.SetStatus(ctx, id, status, s.now()); err != nil {
		return nil, err
	}
	if done {
		s.recordShopping(ctx, item)
	}
	return s.shopping.GetByID(ctx, id)
}

func (s *PantryService) DeleteShoppingItem(ctx context.Context, id int64) error {
	return s.shopping.Delete(ctx, id)
}

// EstimateBasket prices the pending part of the shopping list.
func (s *PantryService) EstimateBasket(ctx context.Context) (basket.Result, error) {
	items, err := s.shopping.ListPending(ctx)
	if err != nil {
		return basket.Result{}, err
	}
	lines := make([]basket.Line, 0, len(items))
	for _, item := range items {
		lines = append(lines, basket.Line{Name: item.Name, Brand: item.Brand, Quantity: item.Quantity})
	}
	return basket.Estimate(s.classifier, lines), nil
}

func (s *PantryService) recordShopping(ctx context.Context, item *domain.ShoppingItem) {
	entry := &domain.HistoryEntry{
		Type:         domain.HistoryShoppingBought,
		Message:      "Shopping item bought",
		ProductName:  item.Name,
		ProductBrand: item.Brand,
		CreatedAt:    s.now(),
	}
	if err := s.history.Append(ctx, entry); err != nil {
		s.logger.Error("failed to record history", "type", entry.Type, "error", err)
	}
}
