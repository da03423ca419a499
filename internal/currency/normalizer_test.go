package currency

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToCanonicalKnownSymbols(t *testing.T) {
	n := NewNormalizer(DefaultRates())

	testCases := []struct {
		input    string
		expected string
	}{
		{"NT$1,200", "US $36.5"},
		{"NT$500", "US $15.2"},
		{"HK$78", "US $10"},
		{"£77", "US $100"},
		{"€91", "US $100"},
		{"C$13.50", "US $10"},
		{"A$15", "US $10"},
		{"¥1490", "US $10"},
		{"₩13,500", "US $10"},
		{"₹830", "US $10"},
	}

	for _, tc := range testCases {
		got := n.ToCanonical(tc.input)
		assert.Equal(t, tc.expected, got, "input: "+tc.input)
		assert.True(t, strings.HasPrefix(got, CanonicalPrefix), "input: "+tc.input)
	}
}

func TestToCanonicalIdentity(t *testing.T) {
	n := NewNormalizer(DefaultRates())

	// No recognizable symbol: the input comes back unchanged.
	for _, input := range []string{"No Price", "1000 kr", "US $36.5", "$10", "free shipping"} {
		assert.Equal(t, input, n.ToCanonical(input), "input: "+input)
	}
}

func TestToCanonicalIdempotent(t *testing.T) {
	n := NewNormalizer(DefaultRates())

	once := n.ToCanonical("NT$1,200")
	assert.Equal(t, "US $36.5", once)

	// Already-canonical output must be a fixed point.
	assert.Equal(t, once, n.ToCanonical(once))
}

func TestToCanonicalMalformedNumber(t *testing.T) {
	n := NewNormalizer(DefaultRates())

	// A symbol match with an unparseable numeric run keeps the input.
	assert.Equal(t, "NT$..,", n.ToCanonical("NT$..,"))
	assert.Equal(t, "NT$ see description", n.ToCanonical("NT$ see description"))
}

func TestRateTableOrder(t *testing.T) {
	rates := DefaultRates()

	// Multi-character dollar symbols must come before any single-character
	// symbol, and the bare dollar sign must not be in the table at all.
	multis := map[string]int{}
	for i, r := range rates {
		assert.NotEqual(t, "$", r.Symbol)
		if len(r.Symbol) > 1 {
			multis[r.Symbol] = i
		}
	}
	for sym := range map[string]bool{"NT$": true, "HK$": true, "C$": true, "A$": true} {
		idx, ok := multis[sym]
		assert.True(t, ok, sym+" missing from table")
		assert.Less(t, idx, 6, sym+" must be matched early")
	}
}

func TestHasKnownSymbol(t *testing.T) {
	n := NewNormalizer(DefaultRates())

	assert.True(t, n.HasKnownSymbol("NT$1,200"))
	assert.True(t, n.HasKnownSymbol("price: £9.99"))
	assert.False(t, n.HasKnownSymbol("$10"))
	assert.False(t, n.HasKnownSymbol("No Price"))
}

func TestFormatAmount(t *testing.T) {
	testCases := []struct {
		input    float64
		expected string
	}{
		{36.4668, "36.5"},
		{10.0, "10"},
		{9.96, "10"},
		{9.94, "9.9"},
		{0.0, "0"},
		{1234.56, "1234.6"},
	}
	for _, tc := range testCases {
		assert.Equal(t, tc.expected, FormatAmount(tc.input))
	}
}

func TestNumericRun(t *testing.T) {
	run, ok := NumericRun("NT$1,234.56 each")
	assert.True(t, ok)
	assert.Equal(t, "1,234.56", run)

	_, ok = NumericRun("no digits here")
	assert.False(t, ok)
}

func TestParseAmount(t *testing.T) {
	v, err := ParseAmount("1,234.5")
	assert.NoError(t, err)
	assert.Equal(t, 1234.5, v)

	_, err = ParseAmount("..,")
	assert.Error(t, err)
}
