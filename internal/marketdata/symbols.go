package marketdata

import "strings"

// SymbolMapper translates between broker-native and application symbol
// conventions (EUR_USD <-> EUR/USD)
type SymbolMapper interface {
	ToNative(canonical string) string
	ToCanonical(native string) string
}

// TableMapper is a lookup-table mapper with a structural fallback for
// symbols not present in the table
type TableMapper struct {
	toNative    map[string]string
	toCanonical map[string]string
}

// NewTableMapper builds a mapper from canonical -> native entries
func NewTableMapper(entries map[string]string) *TableMapper {
	m := &TableMapper{
		toNative:    make(map[string]string, len(entries)),
		toCanonical: make(map[string]string, len(entries)),
	}
	for canonical, native := range entries {
		m.toNative[canonical] = native
		m.toCanonical[native] = canonical
	}
	return m
}

// DefaultMapper covers the majors; unknown symbols fall back to
// slash/underscore substitution
func DefaultMapper() *TableMapper {
	return NewTableMapper(map[string]string{
		"EUR/USD": "EUR_USD",
		"GBP/USD": "GBP_USD",
		"USD/JPY": "USD_JPY",
		"USD/CHF": "USD_CHF",
		"AUD/USD": "AUD_USD",
		"USD/CAD": "USD_CAD",
		"NZD/USD": "NZD_USD",
		"EUR/GBP": "EUR_GBP",
		"EUR/JPY": "EUR_JPY",
		"GBP/JPY": "GBP_JPY",
		"XAU/USD": "XAU_USD",
	})
}

// ToNative maps an application symbol to the broker convention
func (m *TableMapper) ToNative(canonical string) string {
	if native, ok := m.toNative[canonical]; ok {
		return native
	}
	return strings.ReplaceAll(canonical, "/", "_")
}

// ToCanonical maps a broker symbol to the application convention
func (m *TableMapper) ToCanonical(native string) string {
	if canonical, ok := m.toCanonical[native]; ok {
		return canonical
	}
	return strings.ReplaceAll(native, "_", "/")
}
