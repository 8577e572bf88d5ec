package core

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// Money is an amount in integer cents.
type Money struct {
	Cents int64
}

// MaxCents bounds a single amount so that month totals stay inside int64.
const MaxCents = 1_000_000_000_000_000

var (
	maxDecimal    = decimal.NewFromInt(MaxCents)
	hundred       = decimal.NewFromInt(100)
	plainDecimal  = regexp.MustCompile(`^-?(\d+(\.\d*)?|\.\d+)$`)
	currencyNoise = strings.NewReplacer("R$", "", " ", "", "\u00a0", "")
)

// FromDecimal rounds d half away from zero to cents. Amounts beyond
// ±MaxCents fail with ErrInvalidAmount.
func FromDecimal(d decimal.Decimal) (Money, error) {
	c := d.Mul(hundred).Round(0)
	if c.Abs().GreaterThan(maxDecimal) {
		return Money{}, ErrInvalidAmount
	}
	return Money{Cents: c.IntPart()}, nil
}

// ParseMoney reads amounts typed by people: "12,34", "1.234,56", "1234.56",
// optionally prefixed with "R$". A comma is the decimal separator when
// present; dots are then thousands separators. Without a comma a single dot
// is decimal and repeated dots are thousands separators.
func ParseMoney(s string) (Money, error) {
	s = currencyNoise.Replace(strings.TrimSpace(s))
	if s == "" {
		return Money{}, ErrInvalidAmount
	}

	switch strings.Count(s, ",") {
	case 0:
		if strings.Count(s, ".") > 1 {
			s = strings.ReplaceAll(s, ".", "")
		}
	case 1:
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	default:
		return Money{}, ErrInvalidAmount
	}

	if !plainDecimal.MatchString(s) {
		return Money{}, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	return FromDecimal(d)
}

func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

func (m Money) Float64() float64 {
	f, _ := m.Decimal().Float64()
	return f
}

func (m Money) IsZero() bool     { return m.Cents == 0 }
func (m Money) IsNegative() bool { return m.Cents < 0 }

func (m Money) Add(o Money) Money { return Money{Cents: m.Cents + o.Cents} }
func (m Money) Sub(o Money) Money { return Money{Cents: m.Cents - o.Cents} }

// String formats with two decimals and a decimal comma, e.g. "1234,50".
func (m Money) String() string {
	return strings.Replace(m.Decimal().StringFixed(2), ".", ",", 1)
}

// BRL formats for display, e.g. "R$ 1234,50".
func (m Money) BRL() string {
	return "R$ " + m.String()
}

// FormValue formats for form posts to the backend, e.g. "1234.50".
func (m Money) FormValue() string {
	return m.Decimal().StringFixed(2)
}

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.Decimal().StringFixed(2)), nil
}

// UnmarshalJSON accepts JSON numbers, numeric strings and null.
func (m *Money) UnmarshalJSON(b []byte) error {
	raw := strings.TrimSpace(string(b))
	if raw == "null" || raw == "" {
		*m = Money{}
		return nil
	}
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		parsed, err := ParseMoney(s)
		if err != nil {
			return err
		}
		*m = parsed
		return nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return ErrInvalidAmount
	}
	parsed, err := FromDecimal(d)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Percent returns part/total*100 rounded to two decimals, 0 when total is not positive.
func Percent(part, total Money) decimal.Decimal {
	if total.Cents <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(part.Cents).Mul(hundred).Div(decimal.NewFromInt(total.Cents)).Round(2)
}
