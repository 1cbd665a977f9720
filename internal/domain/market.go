package domain

import "time"

// Outcome is the terminal resolution of a market. Unresolved markets carry no
// outcome at all (nil pointer in Market.Resolution).
type Outcome string

const (
	OutcomeYes     Outcome = "YES"
	OutcomeNo      Outcome = "NO"
	OutcomeInvalid Outcome = "INVALID"
)

// Valid reports whether o is one of the three terminal outcomes.
func (o Outcome) Valid() bool {
	switch o {
	case OutcomeYes, OutcomeNo, OutcomeInvalid:
		return true
	}
	return false
}

// Side is a draftable position on a market.
type Side string

const (
	SideYes Side = "YES"
	SideNo  Side = "NO"
)

// Valid reports whether s is YES or NO.
func (s Side) Valid() bool {
	return s == SideYes || s == SideNo
}

// Market is a forecasting question sourced from the market-data provider.
// Prices are YES/NO probability fractions in [0,1]. Resolution is set exactly
// once by the settlement pipeline.
type Market struct {
	ID              string
	Title           string
	Category        string
	EndDate         time.Time
	CurrentPriceYes *float64
	CurrentPriceNo  *float64
	Active          bool
	Resolution      *Outcome
	ResolvedAt      *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// PriceForSide returns the market's current price for the given side, or
// fallback when that price has not been synced yet.
func (m Market) PriceForSide(side Side, fallback float64) float64 {
	if side == SideYes {
		if m.CurrentPriceYes != nil {
			return *m.CurrentPriceYes
		}
		return fallback
	}
	if m.CurrentPriceNo != nil {
		return *m.CurrentPriceNo
	}
	return fallback
}

// MarketQuote is the provider's live view of a market: current prices plus
// lifecycle flags. WinningSide is non-nil only once the provider reports a
// terminal state.
type MarketQuote struct {
	MarketID    string
	PriceYes    float64
	PriceNo     float64
	Active      bool
	Closed      bool
	WinningSide *Outcome
}
