package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pharmakit/pos-terminal/api/controllers"
	"github.com/pharmakit/pos-terminal/api/middleware"
	cartsvc "github.com/pharmakit/pos-terminal/internal/cart"
	catalogsvc "github.com/pharmakit/pos-terminal/internal/catalog"
	checkoutsvc "github.com/pharmakit/pos-terminal/internal/checkout"
	customersvc "github.com/pharmakit/pos-terminal/internal/customers"
	"github.com/pharmakit/pos-terminal/pkg/config"
	"github.com/pharmakit/pos-terminal/pkg/logger"
	"github.com/pharmakit/pos-terminal/pkg/metrics"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	cache controllers.Pinger,
	searcher *catalogsvc.Searcher,
	cartStore *cartsvc.Store,
	orchestrator *checkoutsvc.Orchestrator,
	directory *customersvc.Directory,
	searchMetrics *metrics.SearchMetrics,
	registry *prometheus.Registry,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, cache))
	})

	if registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/catalog/search", controllers.CatalogSearch(searcher, logg, searchMetrics))
		r.Get("/customers", controllers.Customers(directory, logg))

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.CartGet(cartStore, logg))
			r.Delete("/", controllers.CartClear(cartStore, logg))
			r.Post("/items", controllers.CartAddItem(cartStore, logg))
			r.Post("/items/{index}/quantity", controllers.CartAdjustQuantity(cartStore, logg))
		})

		r.Post("/checkout", controllers.Checkout(orchestrator, cartStore, logg))
	})

	return r
}
