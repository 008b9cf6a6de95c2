package httpclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ariefcatur/go-smartorder/internal/auth"
)

func TestDoForwardsTokenAndDecodes(t *testing.T) {
	var gotAuth, gotCT string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotCT = r.Header.Get("Content-Type")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second)
	ctx := auth.WithToken(context.Background(), "tok-1")
	var out struct{ OK bool }
	if err := c.Do(ctx, http.MethodPost, "/x", map[string]int{"quantity": 2}, &out); err != nil {
		t.Fatalf("Do: %v", err)
	}
	if gotAuth != "Bearer tok-1" || gotCT != "application/json" || !out.OK || gotBody["quantity"] != float64(2) {
		t.Fatalf("auth=%q ct=%q out=%v body=%v", gotAuth, gotCT, out, gotBody)
	}
}

func TestDoStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "" {
			t.Errorf("unexpected Authorization header without token")
		}
		http.Error(w, "Not enough stock", http.StatusBadRequest)
	}))
	defer srv.Close()

	err := New(srv.URL, time.Second).Do(context.Background(), http.MethodPost, "/reserve", nil, nil)
	var se *StatusError
	if !errors.As(err, &se) || se.Code != http.StatusBadRequest || se.Body != "Not enough stock" {
		t.Fatalf("err = %#v", err)
	}
}
