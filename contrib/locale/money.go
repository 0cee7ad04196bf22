package locale

import (
	"fmt"

	"golang.org/x/text/currency"

	"graphconvert/convert"
)

// Money is an amount paired with its ISO 4217 currency unit.
type Money struct {
	Amount   float64
	Currency currency.Unit
}

func (m Money) String() string {
	return fmt.Sprintf("%s %.2f", m.Currency, m.Amount)
}

// MoneyConverterOptions configure CurrencyConverterForField.
type MoneyConverterOptions struct {
	// FallbackCurrencyField, when set, is consulted for the currency
	// before HomeCurrency.
	FallbackCurrencyField string

	// HomeCurrency is the last-resort currency.
	HomeCurrency currency.Unit
}

// CurrencyConverterForField builds a whole-source converter reading an
// amount from field and its currency from "<field>_currency", falling
// back per the options. A missing amount stays missing; a nil amount
// stays nil; an existing Money value passes through.
//
// Use it with a whole-source rule:
//
//	[]any{"price", "self", locale.CurrencyConverterForField("price", opts)}
func CurrencyConverterForField(field string, opts MoneyConverterOptions) func(src any) (any, error) {
	return func(src any) (any, error) {
		amount, ok := convert.LookupPath(src, field)
		if !ok {
			return convert.Omit, nil
		}

		if m, isMoney := amount.(Money); isMoney {
			return m, nil
		}

		if amount == nil {
			return nil, nil
		}

		f, err := amountOf(amount)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", field, err)
		}

		unit, err := currencyFor(src, field, opts)
		if err != nil {
			return nil, err
		}

		return Money{Amount: f, Currency: unit}, nil
	}
}

func currencyFor(src any, field string, opts MoneyConverterOptions) (currency.Unit, error) {
	if code, ok := convert.LookupPath(src, field+"_currency"); ok && code != nil {
		return parseUnit(code)
	}

	if opts.FallbackCurrencyField != "" {
		if code, ok := convert.LookupPath(src, opts.FallbackCurrencyField); ok && code != nil && code != "" {
			return parseUnit(code)
		}
	}

	if (opts.HomeCurrency != currency.Unit{}) {
		return opts.HomeCurrency, nil
	}

	return currency.Unit{}, fmt.Errorf("no currency found for field %q and no home currency set", field)
}

func parseUnit(code any) (currency.Unit, error) {
	switch c := code.(type) {
	case currency.Unit:
		return c, nil
	case string:
		unit, err := currency.ParseISO(c)
		if err != nil {
			return currency.Unit{}, fmt.Errorf("invalid currency %q: %w", c, err)
		}

		return unit, nil
	}

	return currency.Unit{}, fmt.Errorf("invalid currency value %T", code)
}

func amountOf(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case string:
		var f float64
		if _, err := fmt.Sscanf(n, "%g", &f); err != nil {
			return 0, fmt.Errorf("cannot read amount from %q", n)
		}

		return f, nil
	}

	return 0, fmt.Errorf("cannot read amount from %T", v)
}
