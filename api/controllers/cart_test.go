package controllers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	cartsvc "github.com/pharmakit/pos-terminal/internal/cart"
	"github.com/pharmakit/pos-terminal/pkg/logger"
	"github.com/pharmakit/pos-terminal/pkg/posapi"
	"github.com/pharmakit/pos-terminal/pkg/types"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Level: logger.ParseLevel("error"), Output: io.Discard})
}

func decodeCart(t *testing.T, rec *httptest.ResponseRecorder) cartResponse {
	t.Helper()

	var envelope types.SuccessEnvelope
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decoding envelope: %v", err)
	}
	raw, err := json.Marshal(envelope.Data)
	if err != nil {
		t.Fatalf("re-encoding data: %v", err)
	}
	var cart cartResponse
	if err := json.Unmarshal(raw, &cart); err != nil {
		t.Fatalf("decoding cart payload: %v", err)
	}
	return cart
}

func TestCartAddItemCatalog(t *testing.T) {
	store := cartsvc.NewStore()
	handler := CartAddItem(store, testLogger())

	body := `{"type":"product","product":{"id":1,"name":"Aspirin","brand":"Bayer","price":"100","stock":5,"tax":"10"}}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	cart := decodeCart(t, rec)
	if len(cart.Items) != 1 || cart.Items[0].Quantity != 1 {
		t.Fatalf("unexpected cart: %+v", cart)
	}
	if cart.Items[0].ProductID == nil || *cart.Items[0].ProductID != 1 {
		t.Fatalf("expected product reference: %+v", cart.Items[0])
	}

	// Adding the same product again merges instead of appending.
	req = httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", strings.NewReader(body))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	cart = decodeCart(t, rec)
	if len(cart.Items) != 1 || cart.Items[0].Quantity != 2 {
		t.Fatalf("expected merged line with qty 2: %+v", cart)
	}
}

func TestCartAddItemManualValidation(t *testing.T) {
	store := cartsvc.NewStore()
	handler := CartAddItem(store, testLogger())

	cases := []struct {
		name string
		body string
		want int
	}{
		{"missing manual payload", `{"type":"manual"}`, http.StatusBadRequest},
		{"unknown type", `{"type":"voucher"}`, http.StatusBadRequest},
		{"blank name", `{"type":"manual","manual":{"name":"   ","price":"10","quantity":1}}`, http.StatusBadRequest},
		{"zero quantity", `{"type":"manual","manual":{"name":"Bag","price":"10","quantity":0}}`, http.StatusBadRequest},
		{"valid", `{"type":"manual","manual":{"name":"Bag","price":"10","quantity":1}}`, http.StatusCreated},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", strings.NewReader(tc.body))
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			if rec.Code != tc.want {
				t.Fatalf("expected %d, got %d: %s", tc.want, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestCartGetAppliesDiscount(t *testing.T) {
	store := cartsvc.NewStore()
	store.AddCatalogItem(posapi.Product{ID: 1, Name: "Aspirin", Price: decimal.NewFromInt(100), TaxPercent: decimal.NewFromInt(10)})
	store.AdjustQuantity(0, 1)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart?discount=20", nil)
	rec := httptest.NewRecorder()
	CartGet(store, testLogger()).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	cart := decodeCart(t, rec)
	if cart.SubTotal != "200.00" || cart.TaxTotal != "20.00" || cart.Discount != "20.00" || cart.GrandTotal != "200.00" {
		t.Fatalf("unexpected totals: %+v", cart)
	}
}

func TestCartGetIgnoresBadDiscount(t *testing.T) {
	store := cartsvc.NewStore()
	store.AddCatalogItem(posapi.Product{ID: 1, Name: "Aspirin", Price: decimal.NewFromInt(100)})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart?discount=banana", nil)
	rec := httptest.NewRecorder()
	CartGet(store, testLogger()).ServeHTTP(rec, req)

	cart := decodeCart(t, rec)
	if cart.Discount != "0.00" || cart.GrandTotal != "100.00" {
		t.Fatalf("bad discount should read as zero: %+v", cart)
	}
}

func adjustRequest(index, delta string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/items/"+index+"/quantity", strings.NewReader(`{"delta":`+delta+`}`))
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add("index", index)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))
}

func TestCartAdjustQuantity(t *testing.T) {
	store := cartsvc.NewStore()
	store.AddCatalogItem(posapi.Product{ID: 1, Name: "Aspirin", Price: decimal.NewFromInt(100)})
	handler := CartAdjustQuantity(store, testLogger())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, adjustRequest("0", "2"))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	cart := decodeCart(t, rec)
	if cart.Items[0].Quantity != 3 {
		t.Fatalf("expected qty 3, got %+v", cart.Items)
	}

	// Dropping to zero removes the line.
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, adjustRequest("0", "-3"))
	cart = decodeCart(t, rec)
	if len(cart.Items) != 0 {
		t.Fatalf("expected empty cart, got %+v", cart.Items)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, adjustRequest("0", "-1"))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for missing line, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, adjustRequest("abc", "-1"))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for non-numeric index, got %d", rec.Code)
	}
}

func TestCartAdjustQuantityRejectsZeroDelta(t *testing.T) {
	store := cartsvc.NewStore()
	store.AddCatalogItem(posapi.Product{ID: 1, Name: "Aspirin", Price: decimal.NewFromInt(100)})

	rec := httptest.NewRecorder()
	CartAdjustQuantity(store, testLogger()).ServeHTTP(rec, adjustRequest("0", "0"))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for zero delta, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "must not be 0") {
		t.Fatalf("expected a zero-specific message, got %s", rec.Body.String())
	}
	if store.Items()[0].Quantity != 1 {
		t.Fatal("zero delta must not mutate the cart")
	}
}

func TestCartClear(t *testing.T) {
	store := cartsvc.NewStore()
	store.AddCatalogItem(posapi.Product{ID: 1, Name: "Aspirin", Price: decimal.NewFromInt(100)})

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/cart", nil)
	rec := httptest.NewRecorder()
	CartClear(store, testLogger()).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if store.Len() != 0 {
		t.Fatalf("cart not cleared, %d items remain", store.Len())
	}
}
