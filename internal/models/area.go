// internal/models/area.go
package models

// DecimalsPerAcre is the sub-acre unit: 1 acre == 100 decimals.
// Area is kept as two integer magnitudes so no floating point ever
// touches land measurements.
const DecimalsPerAcre = 100

type Area struct {
	Acres    int64 `json:"acres" gorm:"not null;default:0"`
	Decimals int64 `json:"decimals" gorm:"not null;default:0"`
}

func (a Area) IsZero() bool {
	return a.Acres == 0 && a.Decimals == 0
}

// Valid reports whether the decimal component is within range and no
// magnitude is negative.
func (a Area) Valid() bool {
	return a.Acres >= 0 && a.Decimals >= 0 && a.Decimals < DecimalsPerAcre
}

func (a Area) totalDecimals() int64 {
	return a.Acres*DecimalsPerAcre + a.Decimals
}

func (a Area) Less(b Area) bool {
	return a.totalDecimals() < b.totalDecimals()
}

// Covers reports whether a is at least as large as b.
func (a Area) Covers(b Area) bool {
	return a.totalDecimals() >= b.totalDecimals()
}

// Sub returns a minus b with decimal borrow. The caller must ensure
// a.Covers(b); the result is always a valid Area when it does.
func (a Area) Sub(b Area) Area {
	rem := a.totalDecimals() - b.totalDecimals()
	return Area{Acres: rem / DecimalsPerAcre, Decimals: rem % DecimalsPerAcre}
}
