package enums

// StockMode states whether a line item carries a meaningful stock figure.
// Manual items are untracked; the terminal never enforces stock as a hard
// limit either way.
type StockMode string

const (
	StockModeTracked   StockMode = "tracked"
	StockModeUntracked StockMode = "untracked"
)

// String implements fmt.Stringer.
func (s StockMode) String() string {
	return string(s)
}

// IsValid reports whether the value is a known StockMode.
func (s StockMode) IsValid() bool {
	return s == StockModeTracked || s == StockModeUntracked
}
