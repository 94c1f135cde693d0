// Package lookup resolves product barcodes against the OpenFoodFacts
// database.
package lookup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const DefaultBaseURL = "https://world.openfoodfacts.org"

var (
	ErrNotFound       = errors.New("product not found")
	ErrInvalidBarcode = errors.New("invalid barcode")
)

type Product struct {
	Barcode string `json:"barcode"`
	Name    string `json:"name"`
	Brand   string `json:"brand"`
}

type Client struct {
	baseURL string
	client  *http.Client
}

func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *Client) Lookup(ctx context.Context, barcode string) (*Product, error) {
	if !validBarcode(barcode) {
		return nil, ErrInvalidBarcode
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v0/product/"+barcode+".json", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call openfoodfacts: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("openfoodfacts returned status %d", resp.StatusCode)
	}

	var body struct {
		Status  int `json:"status"`
		Product struct {
			ProductName string `json:"product_name"`
			Brands      string `json:"brands"`
		} `json:"product"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	// status 1 means found; anything else is an unknown barcode.
	if body.Status != 1 {
		return nil, ErrNotFound
	}

	return &Product{
		Barcode: barcode,
		Name:    strings.TrimSpace(body.Product.ProductName),
		Brand:   strings.TrimSpace(body.Product.Brands),
	}, nil
}

// validBarcode accepts EAN-8 through GTIN-14 style digit strings.
func validBarcode(s string) bool {
	if len(s) < 8 || len(s) > 14 {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
