package processors

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/username/taxgains/src/models"
)

// RateTable maps currencies to the reporting currency with user-supplied
// year-end rates. The reporting currency itself always converts at 1.
type RateTable struct {
	reporting string
	rates     map[string]decimal.Decimal
}

func NewRateTable(reporting string) *RateTable {
	return &RateTable{
		reporting: reporting,
		rates:     make(map[string]decimal.Decimal),
	}
}

func (t *RateTable) Set(currency string, rate decimal.Decimal) {
	t.rates[currency] = rate
}

// Rate returns the conversion rate for a currency.
func (t *RateTable) Rate(currency string) (decimal.Decimal, bool) {
	if currency == t.reporting {
		return decimal.NewFromInt(1), true
	}
	rate, ok := t.rates[currency]
	return rate, ok
}

func (t *RateTable) ReportingCurrency() string {
	return t.reporting
}

// Convert augments each realized-gain entry with reporting-currency amounts.
// Entries whose currency has no rate keep nil converted fields and stay in
// the output; one MISSING_RATE warning is recorded per symbol and currency.
func (t *RateTable) Convert(entries []models.RealizedGain, warnings *models.WarningLog) []models.RealizedGain {
	warned := make(map[string]bool)
	converted := make([]models.RealizedGain, len(entries))
	for i, entry := range entries {
		rate, ok := t.Rate(entry.Currency)
		if !ok {
			key := entry.AccountID + "|" + entry.Symbol + "|" + entry.Currency
			if !warned[key] {
				warned[key] = true
				warnings.AddForAccount(models.WarnMissingRate, entry.AccountID, entry.Symbol,
					fmt.Sprintf("Missing FX rate for %s. %s fields left blank.", entry.Currency, t.reporting))
			}
			converted[i] = entry
			continue
		}
		entry.Rate = &rate
		proceeds := entry.Proceeds.Mul(rate)
		costBasis := entry.CostBasis.Mul(rate)
		gain := entry.Gain.Mul(rate)
		entry.ProceedsReporting = &proceeds
		entry.CostBasisReporting = &costBasis
		entry.GainReporting = &gain
		converted[i] = entry
	}
	return converted
}
