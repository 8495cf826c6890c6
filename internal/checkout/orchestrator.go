package checkout

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pharmakit/pos-terminal/internal/cart"
	"github.com/pharmakit/pos-terminal/internal/pricing"
	"github.com/pharmakit/pos-terminal/pkg/enums"
	pkgerrors "github.com/pharmakit/pos-terminal/pkg/errors"
	"github.com/pharmakit/pos-terminal/pkg/logger"
	"github.com/pharmakit/pos-terminal/pkg/metrics"
	"github.com/pharmakit/pos-terminal/pkg/posapi"
)

// State is the submit control's state. While Submitting the trigger is
// non-actionable, so at most one payload is ever in flight per cart.
type State string

const (
	StateIdle       State = "idle"
	StateSubmitting State = "submitting"
)

const (
	outcomeSuccess          = "success"
	outcomeRejectedLocally  = "rejected_locally"
	outcomeBusinessFailure  = "business_failure"
	outcomeTransportFailure = "transport_failure"
)

type saleCreator interface {
	CreateSale(ctx context.Context, sale posapi.SaleRequest) (*posapi.SaleResult, error)
}

// SubmitInput carries the externally supplied fields snapshotted into the
// payload at submit time.
type SubmitInput struct {
	CustomerName  string
	CustomerPhone string
	PaymentMode   enums.PaymentMode
	DiscountRaw   string
}

// Result is returned on acceptance; the caller navigates to the invoice
// view keyed by InvoiceID.
type Result struct {
	InvoiceID int64
}

// Orchestrator drives one checkout attempt at a time. Every failure mode is
// terminal for that attempt: the state re-arms to Idle and the operator
// retries explicitly, which re-snapshots whatever the cart holds by then.
type Orchestrator struct {
	mu    sync.Mutex
	state State

	cart    *cart.Store
	orders  saleCreator
	logg    *logger.Logger
	metrics *metrics.CheckoutMetrics
}

// NewOrchestrator builds a checkout orchestrator in the Idle state.
func NewOrchestrator(cartStore *cart.Store, orders saleCreator, logg *logger.Logger, m *metrics.CheckoutMetrics) (*Orchestrator, error) {
	if cartStore == nil {
		return nil, fmt.Errorf("cart store required")
	}
	if orders == nil {
		return nil, fmt.Errorf("sale creator required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Orchestrator{
		state:   StateIdle,
		cart:    cartStore,
		orders:  orders,
		logg:    logg,
		metrics: m,
	}, nil
}

// State reports the current submit-control state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Submit snapshots the cart, totals, and customer fields into one payload
// and sends it. A second call while Submitting is refused without touching
// the network.
func (o *Orchestrator) Submit(ctx context.Context, input SubmitInput) (*Result, error) {
	o.mu.Lock()
	if o.state == StateSubmitting {
		o.mu.Unlock()
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "checkout already in progress")
	}

	items := o.cart.Items()
	if len(items) == 0 {
		o.mu.Unlock()
		o.metrics.Observe(outcomeRejectedLocally, 0)
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}
	o.state = StateSubmitting
	o.mu.Unlock()

	defer func() {
		o.mu.Lock()
		o.state = StateIdle
		o.mu.Unlock()
	}()

	discount := pricing.ParseDiscount(input.DiscountRaw)
	snapshot := pricing.Compute(items, discount)
	sale := BuildSaleRequest(snapshot, input)

	ctx = o.logg.WithFields(ctx, map[string]any{
		"cart_size":    len(items),
		"grand_total":  snapshot.GrandTotal.StringFixed(2),
		"payment_mode": sale.PaymentMode,
	})
	o.logg.Info(ctx, "checkout.submit")

	start := time.Now()
	result, err := o.orders.CreateSale(ctx, sale)
	if err != nil {
		o.metrics.Observe(outcomeTransportFailure, time.Since(start))
		o.logg.Error(ctx, "checkout.transport_failure", err)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "order service unreachable")
	}
	if !result.OK() {
		o.metrics.Observe(outcomeBusinessFailure, time.Since(start))
		o.logg.Warn(o.logg.WithField(ctx, "reason", result.Message), "checkout.rejected")
		message := result.Message
		if message == "" {
			message = "sale was rejected"
		}
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, message)
	}

	o.metrics.Observe(outcomeSuccess, time.Since(start))
	o.logg.Info(o.logg.WithInvoiceID(ctx, fmt.Sprintf("%d", result.InvoiceID)), "checkout.accepted")
	return &Result{InvoiceID: result.InvoiceID}, nil
}

// BuildSaleRequest maps a pricing snapshot plus the operator-entered fields
// into the order-creation payload. Manual lines ship without a product
// reference; their session-local ids never leave the terminal.
func BuildSaleRequest(snapshot pricing.Snapshot, input SubmitInput) posapi.SaleRequest {
	mode := input.PaymentMode
	if !mode.IsValid() {
		mode = enums.PaymentModeCash
	}

	sale := posapi.SaleRequest{
		SubTotal:       snapshot.Subtotal,
		TaxTotal:       snapshot.TaxTotal,
		GrandTotal:     snapshot.GrandTotal,
		DiscountAmount: snapshot.Discount,
		CustomerName:   input.CustomerName,
		CustomerPhone:  input.CustomerPhone,
		PaymentMode:    mode.String(),
		Items:          make([]posapi.SaleItem, 0, len(snapshot.Lines)),
	}

	for _, line := range snapshot.Lines {
		item := posapi.SaleItem{
			Type:      line.Item.Kind.String(),
			Name:      line.Item.Name,
			Quantity:  line.Item.Quantity,
			Price:     line.Item.UnitPrice,
			TaxAmount: line.Tax,
			Total:     line.Total,
		}
		if line.Item.Kind == enums.ItemKindCatalog {
			id := line.Item.ProductID
			item.ProductID = &id
		}
		sale.Items = append(sale.Items, item)
	}
	return sale
}
