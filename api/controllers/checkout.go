package controllers

import (
	"net/http"

	"github.com/pharmakit/pos-terminal/api/responses"
	"github.com/pharmakit/pos-terminal/api/validators"
	cartsvc "github.com/pharmakit/pos-terminal/internal/cart"
	checkoutsvc "github.com/pharmakit/pos-terminal/internal/checkout"
	"github.com/pharmakit/pos-terminal/pkg/enums"
	pkgerrors "github.com/pharmakit/pos-terminal/pkg/errors"
	"github.com/pharmakit/pos-terminal/pkg/logger"
)

type checkoutRequest struct {
	CustomerName  string `json:"customer_name"`
	CustomerPhone string `json:"customer_phone"`
	PaymentMode   string `json:"payment_mode"`
	Discount      string `json:"discount"`
}

type checkoutResponse struct {
	InvoiceID int64 `json:"invoice_id"`
}

// Checkout submits the cart. On acceptance the cart is cleared before the
// invoice id is returned, so a fresh sale starts from an empty cart; on any
// failure the cart is left intact for an explicit retry.
func Checkout(orch *checkoutsvc.Orchestrator, store *cartsvc.Store, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if orch == nil || store == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout unavailable"))
			return
		}

		var payload checkoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		mode, err := enums.ParsePaymentMode(payload.PaymentMode)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment mode"))
			return
		}

		result, err := orch.Submit(r.Context(), checkoutsvc.SubmitInput{
			CustomerName:  payload.CustomerName,
			CustomerPhone: payload.CustomerPhone,
			PaymentMode:   mode,
			DiscountRaw:   payload.Discount,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		store.Clear()
		responses.WriteSuccessStatus(w, http.StatusCreated, checkoutResponse{InvoiceID: result.InvoiceID})
	}
}
