package enums

import "fmt"

// Currency is the ISO-4217 code a snapshot price is denominated in.
type Currency string

const (
	CurrencyUSD Currency = "USD"
	CurrencyEUR Currency = "EUR"
	CurrencyGBP Currency = "GBP"
	CurrencyJPY Currency = "JPY"
)

var currencyExponents = map[Currency]int32{
	CurrencyUSD: 2,
	CurrencyEUR: 2,
	CurrencyGBP: 2,
	CurrencyJPY: 0,
}

// String implements fmt.Stringer.
func (c Currency) String() string {
	return string(c)
}

// IsValid reports whether the value is a supported Currency.
func (c Currency) IsValid() bool {
	_, ok := currencyExponents[c]
	return ok
}

// Exponent returns the number of decimal places for the currency.
// Unknown currencies fall back to 2.
func (c Currency) Exponent() int32 {
	if exp, ok := currencyExponents[c]; ok {
		return exp
	}
	return 2
}

// ParseCurrency converts raw input into a Currency.
func ParseCurrency(value string) (Currency, error) {
	c := Currency(value)
	if !c.IsValid() {
		return "", fmt.Errorf("invalid currency %q", value)
	}
	return c, nil
}
