package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// RealizedGain is one matched sale portion: a SELL consuming (part of) one
// open lot. Produced by the FIFO matcher, immutable afterwards. The
// reporting-currency fields stay nil until the rate converter fills them and
// remain nil when no rate is available.
type RealizedGain struct {
	AccountID       string          `json:"account_id"`
	Symbol          string          `json:"symbol"`
	Name            string          `json:"name"`
	Currency        string          `json:"currency"`
	SellDate        time.Time       `json:"sell_date"`
	BuyDate         time.Time       `json:"buy_date"`
	MatchedQuantity decimal.Decimal `json:"matched_quantity"`
	Proceeds        decimal.Decimal `json:"proceeds"`
	CostBasis       decimal.Decimal `json:"cost_basis"`
	Gain            decimal.Decimal `json:"gain"`

	Rate               *decimal.Decimal `json:"rate,omitempty"`
	ProceedsReporting  *decimal.Decimal `json:"proceeds_reporting,omitempty"`
	CostBasisReporting *decimal.Decimal `json:"cost_basis_reporting,omitempty"`
	GainReporting      *decimal.Decimal `json:"gain_reporting,omitempty"`
}

// SummaryRow is the per-symbol report line. Native-currency totals cover
// every realized entry for the symbol; the reporting-currency fields are nil
// when the symbol's currency had no rate.
type SummaryRow struct {
	AccountID      string          `json:"account_id"`
	Symbol         string          `json:"symbol"`
	Name           string          `json:"name"`
	Currency       string          `json:"currency"`
	TotalProceeds  decimal.Decimal `json:"total_proceeds"`
	TotalCostBasis decimal.Decimal `json:"total_cost_basis"`
	TotalGain      decimal.Decimal `json:"total_gain"`
	EstimatedTax   decimal.Decimal `json:"estimated_tax"`

	FXRate                *decimal.Decimal `json:"fx_rate,omitempty"`
	TotalGainReporting    *decimal.Decimal `json:"total_gain_reporting,omitempty"`
	EstimatedTaxReporting *decimal.Decimal `json:"estimated_tax_reporting,omitempty"`

	CostBasisMissing bool `json:"cost_basis_missing"`
}
