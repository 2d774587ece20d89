package models

// WageUnit is the period a declared wage is expressed in.
type WageUnit string

const (
	WageHour     WageUnit = "Hour"
	WageWeek     WageUnit = "Week"
	WageBiWeekly WageUnit = "Bi-Weekly"
	WageMonth    WageUnit = "Month"
	WageYear     WageUnit = "Year"
)

// WageUnits lists every recognized unit in a stable order.
var WageUnits = []WageUnit{WageHour, WageWeek, WageBiWeekly, WageMonth, WageYear}

// ParseWageUnit reports whether s is a recognized wage unit.
func ParseWageUnit(s string) (WageUnit, bool) {
	for _, u := range WageUnits {
		if string(u) == s {
			return u, true
		}
	}
	return "", false
}

// Multiplier converts one unit of pay into a yearly amount.
func (u WageUnit) Multiplier() float64 {
	switch u {
	case WageHour:
		return 2085.6
	case WageWeek:
		return 52.14
	case WageBiWeekly:
		return 26.07
	case WageMonth:
		return 12
	case WageYear:
		return 1
	default:
		return 0
	}
}

// AnnualizedMidpoint returns the yearly midpoint of a declared wage range.
// A missing upper bound makes the midpoint equal to from. The second
// result is false for an unrecognized unit, in which case the wage must
// not contribute to any average.
func AnnualizedMidpoint(from float64, to *float64, unit string) (float64, bool) {
	u, ok := ParseWageUnit(unit)
	if !ok {
		return 0, false
	}
	upper := from
	if to != nil {
		upper = *to
	}
	return (from + upper) / 2 * u.Multiplier(), true
}
