package controllers

import (
	"net/http"
	"strings"

	"github.com/pharmakit/pos-terminal/api/responses"
	customersvc "github.com/pharmakit/pos-terminal/internal/customers"
	pkgerrors "github.com/pharmakit/pos-terminal/pkg/errors"
	"github.com/pharmakit/pos-terminal/pkg/logger"
	"github.com/pharmakit/pos-terminal/pkg/posapi"
)

type customersResponse struct {
	Results []posapi.Customer `json:"results"`
}

// Customers serves the directory used for autofill. With ?phone= it returns
// at most one match; without it, the full list.
func Customers(dir *customersvc.Directory, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if dir == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "customer directory unavailable"))
			return
		}

		phone := strings.TrimSpace(r.URL.Query().Get("phone"))
		if phone == "" {
			responses.WriteSuccess(w, customersResponse{Results: dir.All()})
			return
		}

		customer, ok := dir.FindByPhone(phone)
		if !ok {
			responses.WriteSuccess(w, customersResponse{Results: []posapi.Customer{}})
			return
		}
		responses.WriteSuccess(w, customersResponse{Results: []posapi.Customer{customer}})
	}
}
