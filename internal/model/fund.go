package model

// UnknownLabel is used for category and style of funds missing from the table.
const UnknownLabel = "Unknown"

// FundInfo is static reference data for one fund.
type FundInfo struct {
	Symbol       string  `yaml:"-"`
	Name         string  `yaml:"name"`
	Category     string  `yaml:"category"`
	Style        string  `yaml:"style"`
	ExpenseRatio float64 `yaml:"expense_ratio"`
}

// FundTable maps a symbol to its metadata.
type FundTable map[string]FundInfo

// Lookup resolves symbol metadata, falling back to the symbol as name and
// "Unknown" for category and style.
func (t FundTable) Lookup(symbol string) FundInfo {
	info, ok := t[symbol]
	if !ok {
		return FundInfo{Symbol: symbol, Name: symbol, Category: UnknownLabel, Style: UnknownLabel}
	}
	info.Symbol = symbol
	if info.Name == "" {
		info.Name = symbol
	}
	if info.Category == "" {
		info.Category = UnknownLabel
	}
	if info.Style == "" {
		info.Style = UnknownLabel
	}
	return info
}
