package inventory

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ariefcatur/go-smartorder/internal/apperr"
	"github.com/ariefcatur/go-smartorder/internal/auth"
	"github.com/ariefcatur/go-smartorder/internal/httpclient"
)

func TestClientStatusMapping(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		var req stockRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		switch req.ProductID {
		case "ok":
			w.WriteHeader(http.StatusOK)
		case "missing":
			http.Error(w, "Product not found", http.StatusNotFound)
		case "short":
			http.Error(w, "Not enough stock", http.StatusBadRequest)
		case "bad":
			http.Error(w, `{"error":"quantity failed gt validation"}`, http.StatusUnprocessableEntity)
		case "denied":
			w.WriteHeader(http.StatusUnauthorized)
		default:
			w.WriteHeader(http.StatusServiceUnavailable)
		}
	}))
	defer srv.Close()

	c := NewClient(httpclient.New(srv.URL, time.Second))
	ctx := auth.WithToken(context.Background(), "tok")

	if err := c.Reserve(ctx, "ok", 1); err != nil {
		t.Fatalf("Reserve ok: %v", err)
	}
	if gotAuth != "Bearer tok" {
		t.Fatalf("Authorization = %q", gotAuth)
	}

	cases := []struct {
		product string
		reserve bool
		want    apperr.Kind
	}{
		{"missing", true, apperr.KindNotFound},
		{"short", true, apperr.KindInsufficientStock},
		{"short", false, apperr.KindUpstreamUnavailable},
		{"bad", true, apperr.KindInvalid},
		{"bad", false, apperr.KindInvalid},
		{"denied", true, apperr.KindUnauthorized},
		{"down", true, apperr.KindUpstreamUnavailable},
		{"missing", false, apperr.KindNotFound},
	}
	for _, tc := range cases {
		var err error
		if tc.reserve {
			err = c.Reserve(ctx, tc.product, 1)
		} else {
			err = c.Release(ctx, tc.product, 1)
		}
		if got := apperr.KindOf(err); got != tc.want {
			t.Errorf("%s reserve=%v: kind = %s, want %s (%v)", tc.product, tc.reserve, got, tc.want, err)
		}
	}
}

func TestClientTransportFailureIsUpstream(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewClient(httpclient.New(url, 200*time.Millisecond))
	err := c.Reserve(context.Background(), "A", 1)
	if !errors.Is(err, apperr.ErrUpstreamUnavailable) {
		t.Fatalf("err = %v", err)
	}
}

func TestClientQuantities(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/inventory/product/A":
			_, _ = w.Write([]byte("7"))
		case "/inventory/all":
			_, _ = w.Write([]byte(`{"A":7,"B":0}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := NewClient(httpclient.New(srv.URL, time.Second))
	ctx := context.Background()
	if n, err := c.GetQuantity(ctx, "A"); err != nil || n != 7 {
		t.Fatalf("GetQuantity = %d, %v", n, err)
	}
	if _, err := c.GetQuantity(ctx, "Z"); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("GetQuantity missing err = %v", err)
	}
	all, err := c.GetAllQuantities(ctx)
	if err != nil || all["A"] != 7 || len(all) != 2 {
		t.Fatalf("GetAllQuantities = %v, %v", all, err)
	}
}
