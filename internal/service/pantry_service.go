package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/vbonduro/foodwatch/internal/backupstore"
	"github.com/vbonduro/foodwatch/internal/category"
	"github.com/vbonduro/foodwatch/internal/domain"
	"github.com/vbonduro/foodwatch/internal/expiry"
)

// ErrInvalidInput wraps every validation failure.
var ErrInvalidInput = errors.New("invalid input")

// productRepository is the subset of store.ProductStore that PantryService requires.
type productRepository interface {
	Create(ctx context.Context, p *domain.Product) (*domain.Product, error)
	GetByID(ctx context.Context, id int64) (*domain.Product, error)
	List(ctx context.Context, location string) ([]*domain.Product, error)
	Update(ctx context.Context, p *domain.Product) error
	ResetMigration(ctx context.Context, id int64) error
	Delete(ctx context.Context, id int64) error
}

// shoppingRepository is the subset of store.ShoppingStore that PantryService requires.
type shoppingRepository interface {
	Append(ctx context.Context, item *domain.ShoppingItem) (*domain.ShoppingItem, error)
	GetByID(ctx context.Context, id int64) (*domain.ShoppingItem, error)
	List(ctx context.Context) ([]*domain.ShoppingItem, error)
	ListPending(ctx context.Context) ([]*domain.ShoppingItem, error)
	SetStatus(ctx context.Context, id int64, status domain.ShoppingStatus, doneAt time.Time) error
	Delete(ctx context.Context, id int64) error
}

// historyRepository is the subset of store.HistoryStore that PantryService requires.
type historyRepository interface {
	Append(ctx context.Context, entry *domain.HistoryEntry) error
	ListRecent(ctx context.Context, limit int) ([]*domain.HistoryEntry, error)
	CountByType(ctx context.Context) (map[domain.HistoryType]int, error)
}

// alertRepository is the subset of store.AlertStore that PantryService requires.
type alertRepository interface {
	List(ctx context.Context) ([]*domain.AlertHistoryEntry, error)
}

type PantryService struct {
	products   productRepository
	shopping   shoppingRepository
	history    historyRepository
	alerts     alertRepository
	classifier *category.Classifier
	backups    backupstore.Store
	soonDays   int
	validate   *validator.Validate
	logger     *slog.Logger
	now        func() time.Time
}

// NewPantryService wires the service. backups may be nil, in which case
// Backup fails with ErrBackupDisabled.
func NewPantryService(
	products productRepository,
	shopping shoppingRepository,
	history historyRepository,
	alerts alertRepository,
	classifier *category.Classifier,
	backups backupstore.Store,
	soonDays int,
	logger *slog.Logger,
) *PantryService {
	return &PantryService{
		products:   products,
		shopping:   shopping,
		history:    history,
		alerts:     alerts,
		classifier: classifier,
		backups:    backups,
		soonDays:   soonDays,
		validate:   validator.New(validator.WithRequiredStructEnabled()),
		logger:     logger,
		now:        time.Now,
	}
}

// ProductInput is the user-editable part of a product.
type ProductInput struct {
	Name     string `json:"name" validate:"required,max=200"`
	Brand    string `json:"brand" validate:"max=200"`
	Barcode  string `json:"barcode" validate:"omitempty,numeric,min=8,max=14"`
	Expiry   string `json:"expiry" validate:"omitempty,datetime=2006-01-02"`
	Quantity int    `json:"quantity" validate:"gte=1"`
	Location string `json:"location" validate:"required,max=100"`
}

// ProductView is a product with its freshness and category resolved.
type ProductView struct {
	*domain.Product
	Status   expiry.Status `json:"status"`
	DaysLeft *int          `json:"daysLeft,omitempty"`
	Category string        `json:"category"`
	Emoji    string        `json:"emoji"`
}

func (s *PantryService) view(p *domain.Product, today time.Time) *ProductView {
	rule := s.classifier.Classify(p.Name, p.Brand)
	v := &ProductView{
		Product:  p,
		Status:   expiry.Evaluate(p.Expiry, s.soonDays, today),
		Category: rule.Category,
		Emoji:    rule.Emoji,
	}
	if p.Expiry != nil {
		d := expiry.DaysUntil(*p.Expiry, today)
		v.DaysLeft = &d
	}
	return v
}

func (s *PantryService) validateInput(v any) error {
	if err := s.validate.Struct(v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return nil
}

// normalize trims the text fields and treats a missing quantity as one unit.
func (in *ProductInput) normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.Brand = strings.TrimSpace(in.Brand)
	in.Barcode = strings.TrimSpace(in.Barcode)
	in.Expiry = strings.TrimSpace(in.Expiry)
	in.Location = strings.TrimSpace(in.Location)
	if in.Quantity == 0 {
		in.Quantity = 1
	}
}

func (s *PantryService) AddProduct(ctx context.Context, in ProductInput) (*ProductView, error) {
	in.normalize()
	if err := s.validateInput(in); err != nil {
		return nil, err
	}
	exp, err := expiry.ParseDate(in.Expiry)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	p, err := s.products.Create(ctx, &domain.Product{
		Name:      in.Name,
		Brand:     in.Brand,
		Barcode:   in.Barcode,
		Expiry:    exp,
		Quantity:  in.Quantity,
		Location:  in.Location,
		Migration: domain.NotMigrated,
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("product added", "product_id", p.ID, "name", p.Name)
	s.record(ctx, domain.HistoryProductAdded, "Product added", p)
	return s.view(p, s.now()), nil
}

func (s *PantryService) GetProduct(ctx context.Context, id int64) (*ProductView, error) {
	p, err := s.getProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.view(p, s.now()), nil
}

func (s *PantryService) getProduct(ctx context.Context, id int64) (*domain.Product, error) {
	p, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("product %d: %w", id, domain.ErrNotFound)
	}
	return p, nil
}

// ListProducts returns products soonest-expiring first. A non-empty location
// keeps only products whose location contains it, ignoring case.
func (s *PantryService) ListProducts(ctx context.Context, location string) ([]*ProductView, error) {
	products, err := s.products.List(ctx, location)
	if err != nil {
		return nil, err
	}
	today := s.now()
	views := make([]*ProductView, 0, len(products))
	for _, p := range products {
		views = append(views, s.view(p, today))
	}
	return views, nil
}

// UpdateProduct replaces the editable fields of a product. Moving the expiry
// date so that the product is no longer expired makes it eligible for
// auto-migration again.
func (s *PantryService) UpdateProduct(ctx context.Context, id int64, in ProductInput) (*ProductView, error) {
	in.normalize()
	if err := s.validateInput(in); err != nil {
		return nil, err
	}
	exp, err := expiry.ParseDate(in.Expiry)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	p, err := s.getProduct(ctx, id)
	if err != nil {
		return nil, err
	}

	today := s.now()
	expiryChanged := expiry.FormatDate(p.Expiry) != expiry.FormatDate(exp)
	p.Name = in.Name
	p.Brand = in.Brand
	p.Barcode = in.Barcode
	p.Expiry = exp
	p.Quantity = in.Quantity
	p.Location = in.Location

	if err := s.products.Update(ctx, p); err != nil {
		return nil, err
	}
	if expiryChanged && expiry.Evaluate(exp, s.soonDays, today) != expiry.Expired {
		if err := s.products.ResetMigration(ctx, id); err != nil {
			return nil, err
		}
	}
	// Re-read so the migration state reflects any pass that ran meanwhile.
	if p, err = s.getProduct(ctx, id); err != nil {
		return nil, err
	}
	s.record(ctx, domain.HistoryProductUpdated, "Product updated", p)
	return s.view(p, today), nil
}

func (s *PantryService) DeleteProduct(ctx context.Context, id int64) error {
	p, err := s.getProduct(ctx, id)
	if err != nil {
		return err
	}
	if err := s.products.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("product deleted", "product_id", id)
	s.record(ctx, domain.HistoryProductDeleted, "Product deleted", p)
	return nil
}

// UseResult describes the pantry after a product was used.
type UseResult struct {
	Product      *ProductView         `json:"product,omitempty"`
	UsedUp       bool                 `json:"usedUp"`
	ShoppingItem *domain.ShoppingItem `json:"shoppingItem,omitempty"`
}

// UseProduct consumes amount units (at least one). Using the last unit
// removes the product from the pantry and puts it on the shopping list.
func (s *PantryService) UseProduct(ctx context.Context, id int64, amount int) (*UseResult, error) {
	if amount < 0 {
		return nil, fmt.Errorf("%w: amount must not be negative", ErrInvalidInput)
	}
	if amount == 0 {
		amount = 1
	}

	p, err := s.getProduct(ctx, id)
	if err != nil {
		return nil, err
	}

	if amount < p.Quantity {
		p.Quantity -= amount
		if err := s.products.Update(ctx, p); err != nil {
			return nil, err
		}
		if p, err = s.getProduct(ctx, id); err != nil {
			return nil, err
		}
		s.record(ctx, domain.HistoryProductUsed, fmt.Sprintf("Used %d, %d left", amount, p.Quantity), p)
		return &UseResult{Product: s.view(p, s.now())}, nil
	}

	if err := s.products.Delete(ctx, id); err != nil {
		return nil, err
	}
	linked := p.ID
	item, err := s.shopping.Append(ctx, &domain.ShoppingItem{
		Name:            p.Name,
		Brand:           p.Brand,
		Barcode:         p.Barcode,
		Quantity:        1,
		Source:          domain.SourceUsed,
		LinkedProductID: &linked,
	})
	if err != nil {
		return nil, fmt.Errorf("product %d used up but not added to shopping list: %w", id, err)
	}
	s.logger.Info("product used up", "product_id", id, "shopping_item_id", item.ID)
	s.record(ctx, domain.HistoryProductUsedUp, "Product used up and added to the shopping list", p)
	return &UseResult{UsedUp: true, ShoppingItem: item}, nil
}

// MoveToShopping puts a product on the shopping list without touching the
// pantry.
func (s *PantryService) MoveToShopping(ctx context.Context, id int64) (*domain.ShoppingItem, error) {
	p, err := s.getProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	linked := p.ID
	item, err := s.shopping.Append(ctx, &domain.ShoppingItem{
		Name:            p.Name,
		Brand:           p.Brand,
		Barcode:         p.Barcode,
		Quantity:        1,
		Source:          domain.SourceManual,
		LinkedProductID: &linked,
	})
	if err != nil {
		return nil, err
	}
	s.record(ctx, domain.HistoryProductToShopping, "Product added to the shopping list", p)
	return item, nil
}

// record appends an audit entry. A failed audit write never fails the
// operation it describes.
func (s *PantryService) record(ctx context.Context, typ domain.HistoryType, msg string, p *domain.Product) {
	entry := &domain.HistoryEntry{Type: typ, Message: msg, CreatedAt: s.now()}
	if p != nil {
		entry.ProductName = p.Name
		entry.ProductBrand = p.Brand
		entry.Expiry = expiry.FormatDate(p.Expiry)
	}
	if err := s.history.Append(ctx, entry); err != nil {
		s.logger.Error("failed to record history", "type", typ, "error", err)
	}
}
