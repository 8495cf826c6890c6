package controllers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/pharmakit/pos-terminal/api/responses"
	catalogsvc "github.com/pharmakit/pos-terminal/internal/catalog"
	pkgerrors "github.com/pharmakit/pos-terminal/pkg/errors"
	"github.com/pharmakit/pos-terminal/pkg/logger"
	"github.com/pharmakit/pos-terminal/pkg/metrics"
	"github.com/pharmakit/pos-terminal/pkg/posapi"
)

// Search result conditions. The UI renders each differently: suppressed and
// superseded leave the current listing untouched, unavailable shows a
// degraded-search notice.
const (
	searchConditionOK          = "ok"
	searchConditionSuppressed  = "suppressed"
	searchConditionSuperseded  = "superseded"
	searchConditionUnavailable = "unavailable"
)

type catalogSearcher interface {
	Search(ctx context.Context, query string) ([]posapi.Product, error)
}

type searchResponse struct {
	Condition string           `json:"condition"`
	Results   []posapi.Product `json:"results"`
}

// CatalogSearch handles catalog lookups for the search box. Degraded
// lookups still answer 200 with an explicit condition so the terminal keeps
// working while the backend is down.
func CatalogSearch(svc catalogSearcher, logg *logger.Logger, m *metrics.SearchMetrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog unavailable"))
			return
		}

		query := strings.TrimSpace(r.URL.Query().Get("q"))
		ctx := logg.WithQuery(r.Context(), query)

		start := time.Now()
		products, err := svc.Search(ctx, query)
		elapsed := time.Since(start)

		switch {
		case err == nil:
			m.Observe(searchConditionOK, elapsed)
			responses.WriteSuccess(w, searchResponse{
				Condition: searchConditionOK,
				Results:   emptyIfNil(products),
			})
		case errors.Is(err, catalogsvc.ErrQueryTooShort):
			m.Observe(searchConditionSuppressed, elapsed)
			responses.WriteSuccess(w, searchResponse{
				Condition: searchConditionSuppressed,
				Results:   []posapi.Product{},
			})
		case errors.Is(err, catalogsvc.ErrSuperseded):
			m.Observe(searchConditionSuperseded, elapsed)
			responses.WriteSuccess(w, searchResponse{
				Condition: searchConditionSuperseded,
				Results:   []posapi.Product{},
			})
		default:
			typed := pkgerrors.As(err)
			if typed != nil && typed.Code() == pkgerrors.CodeDependency {
				m.Observe(searchConditionUnavailable, elapsed)
				logg.Warn(ctx, "catalog.search_unavailable")
				responses.WriteSuccess(w, searchResponse{
					Condition: searchConditionUnavailable,
					Results:   []posapi.Product{},
				})
				return
			}
			m.Observe("error", elapsed)
			responses.WriteError(ctx, logg, w, err)
		}
	}
}

func emptyIfNil(products []posapi.Product) []posapi.Product {
	if products == nil {
		return []posapi.Product{}
	}
	return products
}
