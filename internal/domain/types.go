package domain

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a product or shopping item does not exist.
var ErrNotFound = errors.New("not found")

// MigrationState tracks whether an expired product has been moved to the
// shopping list. It only ever moves NotMigrated -> Migrated, except when the
// product's expiry date is edited.
type MigrationState string

const (
	NotMigrated MigrationState = "not_migrated"
	Migrated    MigrationState = "migrated"
)

type Product struct {
	ID        int64          `json:"id"`
	Name      string         `json:"name"`
	Brand     string         `json:"brand,omitempty"`
	Barcode   string         `json:"barcode,omitempty"`
	Expiry    *time.Time     `json:"expiry,omitempty"`
	Quantity  int            `json:"quantity"`
	Location  string         `json:"location"`
	Migration MigrationState `json:"migration"`
	CreatedAt time.Time      `json:"createdAt"`
}

// AutoMovedToShopping reports whether the product was already auto-migrated.
func (p *Product) AutoMovedToShopping() bool {
	return p.Migration == Migrated
}

type ShoppingSource string

const (
	SourceManual      ShoppingSource = "manual"
	SourceUsed        ShoppingSource = "used"
	SourceExpiredAuto ShoppingSource = "expired_auto"
)

type ShoppingStatus string

const (
	StatusPending ShoppingStatus = "pending"
	StatusDone    ShoppingStatus = "done"
)

type ShoppingItem struct {
	ID              int64          `json:"id"`
	Name            string         `json:"name"`
	Brand           string         `json:"brand,omitempty"`
	Barcode         string         `json:"barcode,omitempty"`
	Quantity        int            `json:"quantity"`
	Source          ShoppingSource `json:"source"`
	Status          ShoppingStatus `json:"status"`
	LinkedProductID *int64         `json:"linkedProductId,omitempty"`
	CreatedAt       time.Time      `json:"createdAt"`
	DoneAt          *time.Time     `json:"doneAt,omitempty"`
}

type AlertHistoryEntry struct {
	ID           int64     `json:"id"`
	Timestamp    time.Time `json:"timestamp"`
	ExpiredCount int       `json:"expired"`
	SoonCount    int       `json:"soon"`
}

type HistoryType string

const (
	HistoryProductAdded      HistoryType = "PRODUCT_ADDED"
	HistoryProductUpdated    HistoryType = "PRODUCT_UPDATED"
	HistoryProductUsed       HistoryType = "PRODUCT_USED"
	HistoryProductUsedUp     HistoryType = "PRODUCT_USED_UP"
	HistoryProductDeleted    HistoryType = "PRODUCT_DELETED"
	HistoryProductToShopping HistoryType = "PRODUCT_TO_SHOPPING"
	HistoryExpiredToShopping HistoryType = "PRODUCT_EXPIRED_TO_SHOPPING"
	HistoryShoppingBought    HistoryType = "SHOPPING_BOUGHT"
)

type HistoryEntry struct {
	ID           int64       `json:"id"`
	Type         HistoryType `json:"type"`
	Message      string      `json:"message"`
	ProductName  string      `json:"productName,omitempty"`
	ProductBrand string      `json:"productBrand,omitempty"`
	Expiry       string      `json:"expiry,omitempty"`
	CreatedAt    time.Time   `json:"timestamp"`
}
