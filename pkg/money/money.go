// Package money parses and formats the Brazilian real amounts typed into
// campaign and donation forms.
package money

import (
	"errors"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Scale is the number of minor-unit digits kept for BRL.
const Scale = 2

// MaxAmount is the largest value a NUMERIC(14,2) goal or donation column holds.
var MaxAmount = decimal.RequireFromString("999999999999.99")

var (
	ErrInvalidAmount     = errors.New("amount is not a valid number")
	ErrNonPositiveAmount = errors.New("amount must be greater than zero")
	ErrAmountTooLarge    = errors.New("amount exceeds R$ 999.999.999.999,99")
)

var brlPrinter = message.NewPrinter(language.BrazilianPortuguese)

var (
	plainNumber    = regexp.MustCompile(`^\d+(\.\d+)?$`)
	groupedInteger = regexp.MustCompile(`^\d{1,3}(\.\d{3})+$`)
	singleGroup    = regexp.MustCompile(`^[1-9]\d{0,2}\.\d{3}$`)
)

// ParseAmount accepts both the pt-BR form ("1.234,56", "R$ 10,5") and the
// canonical form ("1234.56"). A lone dot followed by exactly three digits is
// read as a thousands separator ("1.234" is 1234). The result is rounded to
// Scale digits and must be strictly positive and at most MaxAmount.
func ParseAmount(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "R$")
	s = strings.Map(func(r rune) rune {
		if r == ' ' || r == '\u00a0' {
			return -1
		}
		return r
	}, s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}

	switch {
	case strings.Contains(s, ","):
		if strings.Count(s, ",") > 1 {
			return decimal.Zero, ErrInvalidAmount
		}
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	case strings.Count(s, ".") > 1:
		if !groupedInteger.MatchString(s) {
			return decimal.Zero, ErrInvalidAmount
		}
		s = strings.ReplaceAll(s, ".", "")
	case singleGroup.MatchString(s):
		s = strings.Replace(s, ".", "", 1)
	}

	if !plainNumber.MatchString(s) {
		return decimal.Zero, ErrInvalidAmount
	}

	amount, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	amount = amount.Round(Scale)
	if !amount.IsPositive() {
		return decimal.Zero, ErrNonPositiveAmount
	}
	if amount.GreaterThan(MaxAmount) {
		return decimal.Zero, ErrAmountTooLarge
	}
	return amount, nil
}

// Percentage is round(raised/goal*100). It is not capped at 100.
func Percentage(raised, goal decimal.Decimal) int {
	if !goal.IsPositive() {
		return 0
	}
	return int(raised.Div(goal).Mul(decimal.NewFromInt(100)).Round(0).IntPart())
}

// FormatBRL renders an amount as "R$ 1.234,56". The integer part must fit
// in an int64, which every NUMERIC(20,2) value does.
func FormatBRL(amount decimal.Decimal) string {
	abs := amount.Abs().Round(Scale)
	_, frac, _ := strings.Cut(abs.StringFixed(Scale), ".")
	grouped := brlPrinter.Sprint(number.Decimal(abs.IntPart()))

	sign := ""
	if amount.IsNegative() {
		sign = "-"
	}
	return sign + "R$ " + grouped + "," + frac
}
