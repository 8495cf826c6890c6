package cart

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/pharmakit/pos-terminal/pkg/enums"
	pkgerrors "github.com/pharmakit/pos-terminal/pkg/errors"
	"github.com/pharmakit/pos-terminal/pkg/posapi"
)

const manualIDPrefix = "MANUAL_"

// LineItem is one cart entry. UnitPrice and TaxPercent are fixed at add
// time; later catalog changes never reprice an item already in the cart.
type LineItem struct {
	Kind       enums.ItemKind
	ProductID  int64  // catalog identity; zero for manual items
	LocalID    string // session-local identity for manual items
	Name       string
	Brand      string
	UnitPrice  decimal.Decimal
	Quantity   int
	TaxPercent decimal.Decimal
	StockMode  enums.StockMode
	Stock      int // advisory hint, only meaningful when tracked
}

// Listener observes the cart after every committed mutation. Listeners run
// synchronously, so a render triggered by one always sees the mutation that
// caused it.
type Listener func(items []LineItem)

// Store owns the terminal's in-memory cart. All mutation goes through its
// methods; callers only ever see snapshot copies.
type Store struct {
	mu        sync.Mutex
	items     []LineItem
	listeners []Listener
	now       func() time.Time
}

// NewStore builds an empty cart store.
func NewStore() *Store {
	return &Store{now: time.Now}
}

// Subscribe registers a mutation listener. Not safe to call concurrently
// with mutations; wire listeners up front.
func (s *Store) Subscribe(l Listener) {
	if l == nil {
		return
	}
	s.listeners = append(s.listeners, l)
}

// AddCatalogItem merges by product id, incrementing quantity by one, or
// appends a new line priced at the product's current price.
func (s *Store) AddCatalogItem(product posapi.Product) {
	s.mu.Lock()
	for i := range s.items {
		item := &s.items[i]
		if item.Kind == enums.ItemKindCatalog && item.ProductID == product.ID {
			item.Quantity++
			snapshot := s.snapshotLocked()
			s.mu.Unlock()
			s.notify(snapshot)
			return
		}
	}
	s.items = append(s.items, LineItem{
		Kind:       enums.ItemKindCatalog,
		ProductID:  product.ID,
		Name:       product.Name,
		Brand:      product.Brand,
		UnitPrice:  product.Price,
		Quantity:   1,
		TaxPercent: product.TaxPercent,
		StockMode:  enums.StockModeTracked,
		Stock:      product.Stock,
	})
	snapshot := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snapshot)
}

// AddManualItem validates and merges a manually priced line. Merge identity
// for manual items is the (name, unit price) pair; the session-local id is
// never sent to the backend as a product reference.
func (s *Store) AddManualItem(name string, price decimal.Decimal, quantity int) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "manual item name is required")
	}
	if price.Cmp(decimal.Zero) <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "manual item price must be positive")
	}
	if quantity <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "manual item quantity must be positive")
	}

	s.mu.Lock()
	for i := range s.items {
		item := &s.items[i]
		if item.Kind == enums.ItemKindManual && item.Name == trimmed && item.UnitPrice.Equal(price) {
			item.Quantity += quantity
			snapshot := s.snapshotLocked()
			s.mu.Unlock()
			s.notify(snapshot)
			return nil
		}
	}
	s.items = append(s.items, LineItem{
		Kind:       enums.ItemKindManual,
		LocalID:    manualIDPrefix + strconv.FormatInt(s.now().UnixNano(), 10),
		Name:       trimmed,
		UnitPrice:  price,
		Quantity:   quantity,
		TaxPercent: decimal.Zero,
		StockMode:  enums.StockModeUntracked,
	})
	snapshot := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snapshot)
	return nil
}

// AdjustQuantity applies delta to the item at index, removing the item when
// the result drops to zero or below. The index must reference a present
// item: it only ever originates from the store's own snapshots, so an
// out-of-range value is a programming error.
func (s *Store) AdjustQuantity(index, delta int) {
	s.mu.Lock()
	if index < 0 || index >= len(s.items) {
		s.mu.Unlock()
		panic(fmt.Sprintf("cart: index %d out of range (len %d)", index, len(s.items)))
	}
	snapshot := s.adjustLocked(index, delta)
	s.mu.Unlock()
	s.notify(snapshot)
}

// AdjustQuantityChecked is AdjustQuantity for externally supplied indexes.
// The bounds check happens under the same lock as the mutation, so a line
// removed by a concurrent operation reports not-found instead of panicking.
func (s *Store) AdjustQuantityChecked(index, delta int) error {
	s.mu.Lock()
	if index < 0 || index >= len(s.items) {
		s.mu.Unlock()
		return pkgerrors.New(pkgerrors.CodeNotFound, "no cart line at that index")
	}
	snapshot := s.adjustLocked(index, delta)
	s.mu.Unlock()
	s.notify(snapshot)
	return nil
}

func (s *Store) adjustLocked(index, delta int) []LineItem {
	s.items[index].Quantity += delta
	if s.items[index].Quantity <= 0 {
		s.items = append(s.items[:index], s.items[index+1:]...)
	}
	return s.snapshotLocked()
}

// Clear empties the cart.
func (s *Store) Clear() {
	s.mu.Lock()
	s.items = nil
	snapshot := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snapshot)
}

// Items returns a snapshot copy in insertion order.
func (s *Store) Items() []LineItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Len reports the number of line items.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

func (s *Store) snapshotLocked() []LineItem {
	snapshot := make([]LineItem, len(s.items))
	copy(snapshot, s.items)
	return snapshot
}

func (s *Store) notify(snapshot []LineItem) {
	for _, l := range s.listeners {
		l(snapshot)
	}
}
