package polymarket

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/calebzhan/fflbot/internal/domain"
)

// flexBool unmarshals from JSON bool or string ("true"/"false") so Gamma API
// responses work whether "active" is sent as bool or string.
type flexBool bool

func (f *flexBool) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*f = flexBool(b)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*f = flexBool(strings.EqualFold(s, "true") || s == "1")
	return nil
}

// APIMarket represents a market as returned by the Polymarket Gamma API.
type APIMarket struct {
	ID            string   `json:"id"`
	Question      string   `json:"question"`
	Slug          string   `json:"slug"`
	Category      string   `json:"category"`
	Active        flexBool `json:"active"` // API may send bool or "true"/"false" string
	Closed        bool     `json:"closed"`
	Outcomes      string   `json:"outcomes"`      // JSON-encoded: e.g. "[\"Yes\",\"No\"]"
	OutcomePrices string   `json:"outcomePrices"` // JSON-encoded: e.g. "[\"0.5\",\"0.5\"]"
	Tokens        []Token  `json:"tokens"`
	EndDateISO    string   `json:"end_date_iso"`
	CreatedAt     string   `json:"created_at"`
	UpdatedAt     string   `json:"updated_at"`
}

// Token represents a token entry inside the Gamma API market response.
type Token struct {
	TokenID string `json:"token_id"`
	Outcome string `json:"outcome"`
	Winner  bool   `json:"winner"`
}

// prices decodes the JSON-encoded OutcomePrices field into (yes, no)
// probability fractions. Missing or malformed prices come back as (0, 0).
func (m *APIMarket) prices() (float64, float64) {
	var raw []string
	if err := json.Unmarshal([]byte(m.OutcomePrices), &raw); err != nil || len(raw) < 2 {
		return 0, 0
	}
	yes, err := strconv.ParseFloat(raw[0], 64)
	if err != nil {
		return 0, 0
	}
	no, err := strconv.ParseFloat(raw[1], 64)
	if err != nil {
		return yes, 1 - yes
	}
	return yes, no
}

// ToDomainMarket converts an APIMarket to a domain.Market.
func (m *APIMarket) ToDomainMarket() domain.Market {
	out := domain.Market{
		ID:       m.ID,
		Title:    m.Question,
		Category: m.Category,
		Active:   bool(m.Active) && !m.Closed,
	}
	yes, no := m.prices()
	out.CurrentPriceYes = &yes
	out.CurrentPriceNo = &no
	if t, err := time.Parse(time.RFC3339, m.EndDateISO); err == nil {
		out.EndDate = t
	}
	if t, err := time.Parse(time.RFC3339, m.CreatedAt); err == nil {
		out.CreatedAt = t
	}
	if t, err := time.Parse(time.RFC3339, m.UpdatedAt); err == nil {
		out.UpdatedAt = t
	}
	return out
}

// winningSide maps the provider's token winner flags to a terminal outcome.
// A closed market where no token won is treated as INVALID (voided question).
func (m *APIMarket) winningSide() *domain.Outcome {
	if !m.Closed {
		return nil
	}
	for _, t := range m.Tokens {
		if !t.Winner {
			continue
		}
		var out domain.Outcome
		switch {
		case strings.EqualFold(t.Outcome, "Yes"):
			out = domain.OutcomeYes
		case strings.EqualFold(t.Outcome, "No"):
			out = domain.OutcomeNo
		default:
			continue
		}
		return &out
	}
	invalid := domain.OutcomeInvalid
	return &invalid
}

// ToQuote converts an APIMarket to a domain.MarketQuote.
func (m *APIMarket) ToQuote() domain.MarketQuote {
	yes, no := m.prices()
	return domain.MarketQuote{
		MarketID:    m.ID,
		PriceYes:    yes,
		PriceNo:     no,
		Active:      bool(m.Active) && !m.Closed,
		Closed:      m.Closed,
		WinningSide: m.winningSide(),
	}
}
