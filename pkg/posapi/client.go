package posapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/pharmakit/pos-terminal/pkg/config"
	pkgerrors "github.com/pharmakit/pos-terminal/pkg/errors"
	"github.com/pharmakit/pos-terminal/pkg/logger"
)

const (
	searchPath    = "/sales/api/search/"
	createPath    = "/sales/api/create/"
	customersPath = "/sales/api/customers/"

	saleStatusSuccess = "success"
)

var (
	errBaseURLRequired = errors.New("backend base url is required")
	errLoggerRequired  = errors.New("backend logger is required")
)

// Client talks to the store backend that owns the catalog, the customer
// directory, and invoice persistence. The terminal treats all three
// endpoints as opaque collaborators.
type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     *logger.Logger
}

// NewClient validates the backend configuration and builds the client.
func NewClient(cfg config.BackendConfig, logg *logger.Logger) (*Client, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, errBaseURLRequired
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("parsing backend base url: %w", err)
	}

	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    base,
		logger:     logg,
	}, nil
}

// SearchProducts runs a free-text catalog query. An empty query is valid and
// returns the backend's default listing. An empty result set is not an error.
func (c *Client) SearchProducts(ctx context.Context, query string) ([]Product, error) {
	endpoint := c.baseURL + searchPath + "?q=" + url.QueryEscape(query)

	var payload searchResponse
	if err := c.getJSON(ctx, endpoint, &payload); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "search products")
	}
	return payload.Results, nil
}

// ListCustomers fetches the customer directory once; the terminal caches it
// for the whole session.
func (c *Client) ListCustomers(ctx context.Context) ([]Customer, error) {
	var payload customersResponse
	if err := c.getJSON(ctx, c.baseURL+customersPath, &payload); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list customers")
	}
	return payload.Results, nil
}

// CreateSale submits a finished order. A well-formed response is always
// returned to the caller, including business rejections; only transport and
// decoding problems surface as errors.
func (c *Client) CreateSale(ctx context.Context, sale SaleRequest) (*SaleResult, error) {
	body, err := json.Marshal(sale)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode sale payload")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+createPath, bytes.NewReader(body))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build sale request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "submit sale")
	}
	defer drainAndClose(resp.Body)

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read sale response")
	}

	// Business rejections come back as 4xx with the same status/message
	// body as an acceptance, and the rejection reason must reach the
	// operator verbatim. Only a body that doesn't carry a status
	// discriminator is treated as a transport problem.
	var result SaleResult
	if err := json.Unmarshal(raw, &result); err != nil || result.Status == "" {
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("order endpoint returned status %d", resp.StatusCode))
		}
		if err == nil {
			return nil, pkgerrors.New(pkgerrors.CodeDependency, "sale response missing status")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode sale response")
	}
	return &result, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, dest any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("backend returned status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func drainAndClose(body io.ReadCloser) {
	io.Copy(io.Discard, body)
	body.Close()
}
