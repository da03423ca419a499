package currency

// Rate maps a currency symbol to its per-USD exchange rate.
type Rate struct {
	Symbol string
	PerUSD float64
}

// DefaultRates returns the exchange-rate table in match order.
//
// The table is an ordered slice, not a map: symbols are matched front to
// back, and multi-character symbols (NT$, HK$, C$, A$) must be tried before
// any shorter symbol they could shadow. The bare "$" is deliberately not in
// the table; a plain dollar price is already canonical and is handled by the
// extractor before the table is consulted.
func DefaultRates() []Rate {
	return []Rate{
		{"NT$", 32.906}, // New Taiwan Dollar
		{"HK$", 7.8},    // Hong Kong Dollar
		{"£", 0.77},     // British Pound
		{"€", 0.91},     // Euro
		{"C$", 1.35},    // Canadian Dollar
		{"A$", 1.5},     // Australian Dollar
		{"¥", 149.0},    // Japanese Yen
		{"₩", 1350.0},   // Korean Won
		{"₹", 83.0},     // Indian Rupee
	}
}
