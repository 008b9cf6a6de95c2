// Package catalog reads product name and price from the product service.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/ariefcatur/go-smartorder/internal/apperr"
	"github.com/ariefcatur/go-smartorder/internal/cache"
	"github.com/ariefcatur/go-smartorder/internal/httpclient"
	"github.com/ariefcatur/go-smartorder/internal/orders"
	"github.com/ariefcatur/go-smartorder/internal/redisx"
	"github.com/shopspring/decimal"
)

type Client struct {
	http *httpclient.Client
}

func NewClient(c *httpclient.Client) *Client { return &Client{http: c} }

// productDTO accepts both unitPrice and price.
type productDTO struct {
	ID        string              `json:"id"`
	Name      string              `json:"name"`
	UnitPrice decimal.NullDecimal `json:"unitPrice"`
	Price     decimal.NullDecimal `json:"price"`
}

func (d productDTO) product(id string) *orders.Product {
	p := &orders.Product{ID: d.ID, Name: d.Name}
	if p.ID == "" {
		p.ID = id
	}
	switch {
	case d.UnitPrice.Valid:
		p.UnitPrice = d.UnitPrice.Decimal
	case d.Price.Valid:
		p.UnitPrice = d.Price.Decimal
	}
	return p
}

// GetProductByID returns nil, nil when the product service answers 404.
func (c *Client) GetProductByID(ctx context.Context, productID string) (*orders.Product, error) {
	var dto productDTO
	err := c.http.Do(ctx, http.MethodGet, "/api/products/"+url.PathEscape(productID), nil, &dto)
	if err != nil {
		var se *httpclient.StatusError
		if errors.As(err, &se) && se.Code == http.StatusNotFound {
			return nil, nil
		}
		return nil, apperr.Upstream(productID, fmt.Errorf("catalog: %w", err))
	}
	p := dto.product(productID)
	if p.UnitPrice.IsNegative() {
		return nil, apperr.Upstream(productID, fmt.Errorf("catalog: negative unit price %s", p.UnitPrice))
	}
	return p, nil
}

var errUnknown = errors.New("unknown product")

// Cached reads products through the cache under product:{id}. Unknown
// products are not cached.
type Cached struct {
	Next  orders.Catalog
	Cache *cache.ReadThrough
}

func (c *Cached) GetProductByID(ctx context.Context, productID string) (*orders.Product, error) {
	key := fmt.Sprintf(redisx.KeyProduct, productID)
	p, err := cache.GetJSON(ctx, c.Cache, key, func(ctx context.Context) (*orders.Product, error) {
		p, err := c.Next.GetProductByID(ctx, productID)
		if err == nil && p == nil {
			return nil, errUnknown
		}
		return p, err
	})
	if errors.Is(err, errUnknown) {
		return nil, nil
	}
	return p, err
}
