package controllers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/pharmakit/pos-terminal/api/responses"
	"github.com/pharmakit/pos-terminal/api/validators"
	cartsvc "github.com/pharmakit/pos-terminal/internal/cart"
	"github.com/pharmakit/pos-terminal/internal/pricing"
	"github.com/pharmakit/pos-terminal/pkg/enums"
	pkgerrors "github.com/pharmakit/pos-terminal/pkg/errors"
	"github.com/pharmakit/pos-terminal/pkg/logger"
	"github.com/pharmakit/pos-terminal/pkg/posapi"
)

// CartGet returns the cart with totals derived for the given discount
// input. The discount is re-parsed on every read; totals are never stored.
func CartGet(store *cartsvc.Store, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if store == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart unavailable"))
			return
		}

		discount := pricing.ParseDiscount(r.URL.Query().Get("discount"))
		snapshot := pricing.Compute(store.Items(), discount)
		responses.WriteSuccess(w, newCartResponse(snapshot))
	}
}

// CartAddItem appends or merges a line item. The payload discriminates on
// type: catalog items carry the product as returned by search, manual items
// carry a name, price, and quantity.
func CartAddItem(store *cartsvc.Store, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if store == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart unavailable"))
			return
		}

		var payload addItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		kind, err := enums.ParseItemKind(payload.Type)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid item type"))
			return
		}

		switch kind {
		case enums.ItemKindCatalog:
			if payload.Product == nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "product is required for catalog items"))
				return
			}
			store.AddCatalogItem(*payload.Product)
		case enums.ItemKindManual:
			if payload.Manual == nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "manual is required for manual items"))
				return
			}
			if err := store.AddManualItem(payload.Manual.Name, payload.Manual.Price, payload.Manual.Quantity); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		snapshot := pricing.Compute(store.Items(), decimal.Zero)
		responses.WriteSuccessStatus(w, http.StatusCreated, newCartResponse(snapshot))
	}
}

// CartAdjustQuantity applies a signed delta to the line at the given index.
// The line is removed when its quantity drops to zero.
func CartAdjustQuantity(store *cartsvc.Store, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if store == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart unavailable"))
			return
		}

		index, err := strconv.Atoi(chi.URLParam(r, "index"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "index must be numeric"))
			return
		}

		var payload adjustQuantityRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := store.AdjustQuantityChecked(index, payload.Delta); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		snapshot := pricing.Compute(store.Items(), decimal.Zero)
		responses.WriteSuccess(w, newCartResponse(snapshot))
	}
}

// CartClear empties the cart.
func CartClear(store *cartsvc.Store, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if store == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart unavailable"))
			return
		}

		store.Clear()
		responses.WriteSuccess(w, newCartResponse(pricing.Compute(nil, decimal.Zero)))
	}
}

type addItemRequest struct {
	Type    string             `json:"type" validate:"required"`
	Product *posapi.Product    `json:"product,omitempty"`
	Manual  *manualItemPayload `json:"manual,omitempty"`
}

type manualItemPayload struct {
	Name     string          `json:"name" validate:"required"`
	Price    decimal.Decimal `json:"price" validate:"required"`
	Quantity int             `json:"quantity" validate:"required,min=1"`
}

type adjustQuantityRequest struct {
	Delta int `json:"delta" validate:"ne=0"`
}

type cartLineResponse struct {
	Index      int    `json:"index"`
	Type       string `json:"type"`
	ProductID  *int64 `json:"product_id,omitempty"`
	LocalID    string `json:"local_id,omitempty"`
	Name       string `json:"name"`
	Brand      string `json:"brand,omitempty"`
	UnitPrice  string `json:"unit_price"`
	Quantity   int    `json:"quantity"`
	TaxPercent string `json:"tax_percent"`
	Stock      *int   `json:"stock,omitempty"`
	LineTotal  string `json:"line_total"`
	LineTax    string `json:"line_tax"`
}

type cartResponse struct {
	Items      []cartLineResponse `json:"items"`
	SubTotal   string             `json:"sub_total"`
	TaxTotal   string             `json:"tax_total"`
	Discount   string             `json:"discount"`
	GrandTotal string             `json:"grand_total"`
}

func newCartResponse(snapshot pricing.Snapshot) cartResponse {
	out := cartResponse{
		Items:      make([]cartLineResponse, 0, len(snapshot.Lines)),
		SubTotal:   snapshot.Subtotal.StringFixed(2),
		TaxTotal:   snapshot.TaxTotal.StringFixed(2),
		Discount:   snapshot.Discount.StringFixed(2),
		GrandTotal: snapshot.GrandTotal.StringFixed(2),
	}

	for i, line := range snapshot.Lines {
		item := cartLineResponse{
			Index:      i,
			Type:       line.Item.Kind.String(),
			LocalID:    line.Item.LocalID,
			Name:       line.Item.Name,
			Brand:      line.Item.Brand,
			UnitPrice:  line.Item.UnitPrice.StringFixed(2),
			Quantity:   line.Item.Quantity,
			TaxPercent: line.Item.TaxPercent.StringFixed(2),
			LineTotal:  line.Total.StringFixed(2),
			LineTax:    line.Tax.StringFixed(2),
		}
		if line.Item.Kind == enums.ItemKindCatalog {
			id := line.Item.ProductID
			item.ProductID = &id
		}
		if line.Item.StockMode == enums.StockModeTracked {
			stock := line.Item.Stock
			item.Stock = &stock
		}
		out.Items = append(out.Items, item)
	}
	return out
}
