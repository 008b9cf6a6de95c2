package inventory

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/ariefcatur/go-smartorder/internal/apperr"
	"github.com/ariefcatur/go-smartorder/internal/httpclient"
)

// Client talks to the inventory service over HTTP. It satisfies the same
// Reserve/Release contract as Ledger.
type Client struct {
	http *httpclient.Client
}

func NewClient(c *httpclient.Client) *Client { return &Client{http: c} }

type stockRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

func (c *Client) Reserve(ctx context.Context, productID string, qty int) error {
	err := c.http.Do(ctx, http.MethodPost, "/inventory/reserve", stockRequest{productID, qty}, nil)
	return mapErr(productID, err, true)
}

func (c *Client) Release(ctx context.Context, productID string, qty int) error {
	err := c.http.Do(ctx, http.MethodPost, "/inventory/release", stockRequest{productID, qty}, nil)
	return mapErr(productID, err, false)
}

func (c *Client) GetQuantity(ctx context.Context, productID string) (int, error) {
	var n int
	err := c.http.Do(ctx, http.MethodGet, "/inventory/product/"+url.PathEscape(productID), nil, &n)
	return n, mapErr(productID, err, false)
}

func (c *Client) GetAllQuantities(ctx context.Context) (map[string]int, error) {
	out := map[string]int{}
	if err := c.http.Do(ctx, http.MethodGet, "/inventory/all", nil, &out); err != nil {
		return nil, mapErr("", err, false)
	}
	return out, nil
}

// mapErr turns transport and status failures into the shared taxonomy. A 400
// from reserve means insufficient stock and a 422 a request the ledger refused
// as malformed; anything unexpected is upstream failure.
func mapErr(productID string, err error, reserve bool) error {
	if err == nil {
		return nil
	}
	var se *httpclient.StatusError
	if errors.As(err, &se) {
		switch {
		case se.Code == http.StatusNotFound:
			return apperr.NotFound(productID, "stock record not found")
		case se.Code == http.StatusBadRequest && reserve:
			return apperr.InsufficientStock(productID)
		case se.Code == http.StatusUnprocessableEntity:
			return &apperr.Error{Kind: apperr.KindInvalid, ProductID: productID, Msg: "inventory rejected the request", Err: err}
		case se.Code == http.StatusUnauthorized || se.Code == http.StatusForbidden:
			return &apperr.Error{Kind: apperr.KindUnauthorized, ProductID: productID, Msg: "inventory rejected credentials", Err: err}
		}
	}
	return apperr.Upstream(productID, err)
}
