package decimalx

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// MustFromString parses a decimal literal and panics on malformed input.
// Only fixtures and tests use it; exchange payloads go through Parser.
func MustFromString(s string) decimal.Decimal {
	res, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return res
}

// Float converts d to float64, dropping precision beyond what float64 holds.
func Float(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}

// Parser parses a sequence of exchange numeric strings and keeps the first
// failure, so a whole payload can be converted before checking Err once.
type Parser struct {
	err error
}

func (p *Parser) Parse(field, s string) decimal.Decimal {
	if p.err != nil {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		p.err = fmt.Errorf("parse %s %q: %w", field, s, err)
		return decimal.Zero
	}
	return d
}

func (p *Parser) Err() error {
	return p.err
}
