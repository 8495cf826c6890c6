package customers

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/pharmakit/pos-terminal/pkg/logger"
	"github.com/pharmakit/pos-terminal/pkg/posapi"
)

type customerLister interface {
	ListCustomers(ctx context.Context) ([]posapi.Customer, error)
}

// Directory holds the customer list used for phone-number autofill. The
// list is loaded once at startup and can be refreshed; lookups never hit
// the network.
type Directory struct {
	mu      sync.RWMutex
	byPhone map[string]posapi.Customer
	all     []posapi.Customer

	backend customerLister
	logg    *logger.Logger
}

func NewDirectory(backend customerLister, logg *logger.Logger) (*Directory, error) {
	if backend == nil {
		return nil, fmt.Errorf("customer lister required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Directory{
		byPhone: map[string]posapi.Customer{},
		backend: backend,
		logg:    logg,
	}, nil
}

// Refresh replaces the directory contents with the backend's current list.
// On failure the previous contents are kept.
func (d *Directory) Refresh(ctx context.Context) error {
	customers, err := d.backend.ListCustomers(ctx)
	if err != nil {
		return err
	}

	byPhone := make(map[string]posapi.Customer, len(customers))
	for _, c := range customers {
		phone := normalizePhone(c.Phone)
		if phone == "" {
			continue
		}
		// Later entries win, matching the backend's ordering.
		byPhone[phone] = c
	}

	d.mu.Lock()
	d.all = customers
	d.byPhone = byPhone
	d.mu.Unlock()

	d.logg.Info(d.logg.WithField(ctx, "count", len(customers)), "customers.directory_refreshed")
	return nil
}

// FindByPhone returns the customer registered under the given phone number.
func (d *Directory) FindByPhone(phone string) (posapi.Customer, bool) {
	phone = normalizePhone(phone)
	if phone == "" {
		return posapi.Customer{}, false
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	c, ok := d.byPhone[phone]
	return c, ok
}

// All returns a copy of the directory contents.
func (d *Directory) All() []posapi.Customer {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]posapi.Customer, len(d.all))
	copy(out, d.all)
	return out
}

func normalizePhone(phone string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(phone) {
		if r >= '0' && r <= '9' || r == '+' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
