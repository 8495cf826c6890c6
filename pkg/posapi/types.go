package posapi

import "github.com/shopspring/decimal"

// Product is a catalog search result. Stock and prices are advisory for the
// terminal; prices are fixed into the cart at add time.
type Product struct {
	ID         int64           `json:"id"`
	Name       string          `json:"name"`
	Brand      string          `json:"brand"`
	Price      decimal.Decimal `json:"price"`
	Stock      int             `json:"stock"`
	TaxPercent decimal.Decimal `json:"tax"`
}

type searchResponse struct {
	Results []Product `json:"results"`
}

// Customer is a directory entry used for autofill by phone number.
type Customer struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

type customersResponse struct {
	Results []Customer `json:"results"`
}

// SaleItem is one line of the order-creation payload. ProductID is nil for
// manually priced items; the backend stores those without a product
// reference.
type SaleItem struct {
	Type               string          `json:"type"`
	ProductID          *int64          `json:"product_id"`
	Name               string          `json:"name"`
	Quantity           int             `json:"quantity"`
	Price              decimal.Decimal `json:"price"`
	DiscountPercentage decimal.Decimal `json:"discount_percentage"`
	DiscountAmount     decimal.Decimal `json:"discount_amount"`
	TaxAmount          decimal.Decimal `json:"tax_amount"`
	Total              decimal.Decimal `json:"total"`
}

// SaleRequest mirrors the order-creation endpoint's contract.
type SaleRequest struct {
	SubTotal       decimal.Decimal `json:"sub_total"`
	TaxTotal       decimal.Decimal `json:"tax_total"`
	GrandTotal     decimal.Decimal `json:"grand_total"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	Items          []SaleItem      `json:"items"`
	CustomerName   string          `json:"customer_name"`
	CustomerPhone  string          `json:"customer_phone"`
	PaymentMode    string          `json:"payment_mode"`
}

// SaleResult carries the backend's verdict. A non-success status with a
// 2xx response is a business rejection, not a transport failure.
type SaleResult struct {
	Status    string `json:"status"`
	InvoiceID int64  `json:"invoice_id,omitempty"`
	Message   string `json:"message,omitempty"`
}

// OK reports whether the sale was accepted.
func (r *SaleResult) OK() bool {
	return r != nil && r.Status == saleStatusSuccess
}
