package currency

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	apperrors "marketscrape/listingworker/pkg/errors"
)

// CanonicalPrefix is the prefix every normalized price carries.
const CanonicalPrefix = "US $"

var numericRun = regexp.MustCompile(`[\d,.]+`)

// NumericRun returns the first run of digits, commas and decimal points in
// s, and whether one was found.
func NumericRun(s string) (string, bool) {
	m := numericRun.FindString(s)
	return m, m != ""
}

// ParseAmount parses a numeric run (thousands separators allowed) as a
// float value.
func ParseAmount(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	if err != nil {
		return 0, apperrors.NewNormalization("currency", "malformed amount "+s, err)
	}
	return v, nil
}

// FormatAmount rounds v half-up to one decimal place and formats it with
// minimal digits, so 36.46 becomes "36.5" and 10.0 becomes "10".
func FormatAmount(v float64) string {
	rounded := math.Floor(v*10+0.5) / 10
	return strconv.FormatFloat(rounded, 'f', -1, 64)
}

// Normalizer converts raw price text to the canonical currency.
type Normalizer struct {
	rates []Rate
}

// NewNormalizer creates a normalizer over the given rate table. The table's
// order is the symbol match order.
func NewNormalizer(rates []Rate) *Normalizer {
	return &Normalizer{rates: rates}
}

// HasKnownSymbol reports whether text contains any symbol from the table.
func (n *Normalizer) HasKnownSymbol(text string) bool {
	for _, r := range n.rates {
		if strings.Contains(text, r.Symbol) {
			return true
		}
	}
	return false
}

// ToCanonical converts a price containing a known currency symbol to the
// canonical "US $<amount>" form, rounded half-up to one decimal place.
// Normalization is best-effort: when no symbol matches or the numeric
// portion fails to parse, the input is returned unchanged.
func (n *Normalizer) ToCanonical(text string) string {
	for _, r := range n.rates {
		if !strings.Contains(text, r.Symbol) {
			continue
		}

		run, ok := NumericRun(text)
		if !ok {
			return text
		}
		amount, err := ParseAmount(run)
		if err != nil {
			return text
		}

		return CanonicalPrefix + FormatAmount(amount/r.PerUSD)
	}
	return text
}
