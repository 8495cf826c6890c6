package checkout

import (
	"context"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/pharmakit/pos-terminal/internal/cart"
	"github.com/pharmakit/pos-terminal/internal/pricing"
	"github.com/pharmakit/pos-terminal/pkg/enums"
	pkgerrors "github.com/pharmakit/pos-terminal/pkg/errors"
	"github.com/pharmakit/pos-terminal/pkg/logger"
	"github.com/pharmakit/pos-terminal/pkg/posapi"
)

type stubSaleCreator struct {
	calls   atomic.Int64
	release chan struct{}
	result  *posapi.SaleResult
	err     error
	last    posapi.SaleRequest
}

func (s *stubSaleCreator) CreateSale(ctx context.Context, sale posapi.SaleRequest) (*posapi.SaleResult, error) {
	s.calls.Add(1)
	s.last = sale
	if s.release != nil {
		<-s.release
	}
	return s.result, s.err
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "checkout-test", Output: io.Discard})
}

func filledCart(t *testing.T) *cart.Store {
	t.Helper()
	store := cart.NewStore()
	store.AddCatalogItem(posapi.Product{
		ID:         7,
		Name:       "Paracetamol 500mg",
		Price:      decimal.NewFromInt(100),
		TaxPercent: decimal.NewFromInt(10),
	})
	store.AddCatalogItem(posapi.Product{
		ID:         7,
		Name:       "Paracetamol 500mg",
		Price:      decimal.NewFromInt(100),
		TaxPercent: decimal.NewFromInt(10),
	})
	if err := store.AddManualItem("Bandage", decimal.NewFromInt(50), 1); err != nil {
		t.Fatalf("AddManualItem: %v", err)
	}
	return store
}

func TestSubmitEmptyCartNeverCallsNetwork(t *testing.T) {
	t.Parallel()

	creator := &stubSaleCreator{result: &posapi.SaleResult{Status: "success"}}
	orch, err := NewOrchestrator(cart.NewStore(), creator, testLogger(), nil)
	if err != nil {
		t.Fatalf("NewOrchestrator: %v", err)
	}

	_, err = orch.Submit(context.Background(), SubmitInput{})
	if err == nil {
		t.Fatal("expected rejection for empty cart")
	}
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected local validation error, got %v", err)
	}
	if creator.calls.Load() != 0 {
		t.Fatalf("empty cart must not reach the order endpoint, calls=%d", creator.calls.Load())
	}
	if orch.State() != StateIdle {
		t.Fatalf("state must stay idle, got %s", orch.State())
	}
}

func TestSubmitSuccessReturnsInvoiceID(t *testing.T) {
	t.Parallel()

	creator := &stubSaleCreator{result: &posapi.SaleResult{Status: "success", InvoiceID: 311}}
	orch, err := NewOrchestrator(filledCart(t), creator, testLogger(), nil)
	if err != nil {
		t.Fatalf("NewOrchestrator: %v", err)
	}

	result, err := orch.Submit(context.Background(), SubmitInput{
		CustomerName:  "Asha Verma",
		CustomerPhone: "9811001100",
		PaymentMode:   enums.PaymentModeCard,
		DiscountRaw:   "20",
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if result.InvoiceID != 311 {
		t.Fatalf("unexpected invoice id %d", result.InvoiceID)
	}
	if orch.State() != StateIdle {
		t.Fatalf("state must re-arm after success, got %s", orch.State())
	}

	sale := creator.last
	if sale.PaymentMode != "CARD" || sale.CustomerPhone != "9811001100" {
		t.Fatalf("customer fields lost: %+v", sale)
	}
	if !sale.SubTotal.Equal(decimal.NewFromInt(250)) || !sale.TaxTotal.Equal(decimal.NewFromInt(20)) || !sale.GrandTotal.Equal(decimal.NewFromInt(250)) {
		t.Fatalf("unexpected totals %s/%s/%s", sale.SubTotal, sale.TaxTotal, sale.GrandTotal)
	}
	if len(sale.Items) != 2 {
		t.Fatalf("expected two payload items, got %d", len(sale.Items))
	}
	if sale.Items[0].ProductID == nil || *sale.Items[0].ProductID != 7 {
		t.Fatalf("catalog item must carry its product reference: %+v", sale.Items[0])
	}
	if sale.Items[1].ProductID != nil {
		t.Fatalf("manual item must not carry a product reference: %+v", sale.Items[1])
	}
}

func TestSubmitBusinessFailureSurfacesBackendMessage(t *testing.T) {
	t.Parallel()

	creator := &stubSaleCreator{result: &posapi.SaleResult{Status: "error", Message: "insufficient stock"}}
	orch, err := NewOrchestrator(filledCart(t), creator, testLogger(), nil)
	if err != nil {
		t.Fatalf("NewOrchestrator: %v", err)
	}

	_, err = orch.Submit(context.Background(), SubmitInput{})
	if err == nil {
		t.Fatal("expected business failure")
	}
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
	if typed.Message() != "insufficient stock" {
		t.Fatalf("backend reason must survive verbatim, got %q", typed.Message())
	}
	if orch.State() != StateIdle {
		t.Fatalf("state must re-arm after failure, got %s", orch.State())
	}
}

func TestSubmitTransportFailureReArms(t *testing.T) {
	t.Parallel()

	creator := &stubSaleCreator{err: pkgerrors.New(pkgerrors.CodeDependency, "connection refused")}
	orch, err := NewOrchestrator(filledCart(t), creator, testLogger(), nil)
	if err != nil {
		t.Fatalf("NewOrchestrator: %v", err)
	}

	_, err = orch.Submit(context.Background(), SubmitInput{})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency error, got %v", err)
	}
	if orch.State() != StateIdle {
		t.Fatalf("state must re-arm after transport failure, got %s", orch.State())
	}

	// No automatic retry happened.
	if creator.calls.Load() != 1 {
		t.Fatalf("expected a single attempt, got %d", creator.calls.Load())
	}

	// An operator-initiated retry re-snapshots and goes through.
	creator.err = nil
	creator.result = &posapi.SaleResult{Status: "success", InvoiceID: 5}
	if _, err := orch.Submit(context.Background(), SubmitInput{}); err != nil {
		t.Fatalf("retry should succeed: %v", err)
	}
}

func TestSubmitIsSingleFlight(t *testing.T) {
	t.Parallel()

	creator := &stubSaleCreator{
		release: make(chan struct{}),
		result:  &posapi.SaleResult{Status: "success", InvoiceID: 1},
	}
	orch, err := NewOrchestrator(filledCart(t), creator, testLogger(), nil)
	if err != nil {
		t.Fatalf("NewOrchestrator: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		_, err := orch.Submit(context.Background(), SubmitInput{})
		done <- err
	}()

	// Wait for the first submission to be in flight.
	deadline := time.After(2 * time.Second)
	for orch.State() != StateSubmitting {
		select {
		case <-deadline:
			t.Fatal("first submission never entered Submitting")
		default:
			time.Sleep(time.Millisecond)
		}
	}

	_, err = orch.Submit(context.Background(), SubmitInput{})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("second click must be refused, got %v", err)
	}

	close(creator.release)
	if err := <-done; err != nil {
		t.Fatalf("first submission failed: %v", err)
	}
	if creator.calls.Load() != 1 {
		t.Fatalf("expected exactly one network submission, got %d", creator.calls.Load())
	}
}

func TestBuildSaleRequestRoundTripsTotals(t *testing.T) {
	t.Parallel()

	store := filledCart(t)
	discount := pricing.ParseDiscount("20")
	snapshot := pricing.Compute(store.Items(), discount)
	sale := BuildSaleRequest(snapshot, SubmitInput{PaymentMode: enums.PaymentModeCash, DiscountRaw: "20"})

	// Recomputing the totals from the payload's own item breakdown must
	// reproduce the snapshot exactly.
	subtotal := decimal.Zero
	taxTotal := decimal.Zero
	for _, item := range sale.Items {
		lineTotal := item.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))
		if !lineTotal.Equal(item.Total) {
			t.Fatalf("payload line total inconsistent: %s vs %s", lineTotal, item.Total)
		}
		subtotal = subtotal.Add(item.Total)
		taxTotal = taxTotal.Add(item.TaxAmount)
	}
	if !subtotal.Equal(snapshot.Subtotal) {
		t.Fatalf("subtotal mismatch: %s vs %s", subtotal, snapshot.Subtotal)
	}
	if !taxTotal.Equal(snapshot.TaxTotal) {
		t.Fatalf("tax mismatch: %s vs %s", taxTotal, snapshot.TaxTotal)
	}
	if !subtotal.Add(taxTotal).Sub(sale.DiscountAmount).Equal(snapshot.GrandTotal) {
		t.Fatalf("grand total mismatch")
	}
}

func TestSubmissionSnapshotIgnoresLaterEdits(t *testing.T) {
	t.Parallel()

	store := filledCart(t)
	creator := &stubSaleCreator{
		release: make(chan struct{}),
		result:  &posapi.SaleResult{Status: "success", InvoiceID: 9},
	}
	orch, err := NewOrchestrator(store, creator, testLogger(), nil)
	if err != nil {
		t.Fatalf("NewOrchestrator: %v", err)
	}

	done := make(chan struct{})
	go func() {
		orch.Submit(context.Background(), SubmitInput{})
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for orch.State() != StateSubmitting {
		select {
		case <-deadline:
			t.Fatal("submission never entered Submitting")
		default:
			time.Sleep(time.Millisecond)
		}
	}

	// Mutation while in flight must not alter the snapshotted payload.
	store.AdjustQuantity(0, 5)
	close(creator.release)
	<-done

	if !creator.last.SubTotal.Equal(decimal.NewFromInt(250)) {
		t.Fatalf("payload must reflect submit-time state, got %s", creator.last.SubTotal)
	}
}
