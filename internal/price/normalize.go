// Package price normalizes observed package prices into comparable
// per-standard-unit prices (per kg, liter, dozen, or unit) and computes the
// aggregates the price-history views display.
package price

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Unit is the standard unit a price entry is normalized against.
type Unit string

const (
	UnitKilo  Unit = "kg"
	UnitLiter Unit = "l"
	UnitDozen Unit = "docena"
	UnitItem  Unit = "unidad"
)

// ParseUnit maps user input to a known unit, case-insensitively.
func ParseUnit(s string) (Unit, bool) {
	switch Unit(strings.ToLower(strings.TrimSpace(s))) {
	case UnitKilo:
		return UnitKilo, true
	case UnitLiter:
		return UnitLiter, true
	case UnitDozen:
		return UnitDozen, true
	case UnitItem:
		return UnitItem, true
	}
	return "", false
}

// Normalize converts a paid price and package quantity into the price per
// standard unit, rounded to cents. For kg and liters the quantity is the
// package weight/volume; for dozens and units it is the piece count, so a
// dozen scales by 12 (6 paid for 24 units is 3 per dozen). Non-positive
// quantities normalize to zero.
func Normalize(totalPrice, quantity float64, unit Unit) float64 {
	if quantity <= 0 {
		return 0
	}

	perItem := decimal.NewFromFloat(totalPrice).Div(decimal.NewFromFloat(quantity))
	if unit == UnitDozen {
		perItem = perItem.Mul(decimal.NewFromInt(12))
	}
	return perItem.Round(2).InexactFloat64()
}
