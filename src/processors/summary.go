package processors

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/username/taxgains/src/models"
)

// SummaryBuilder groups converted realized-gain entries into per-symbol
// report rows. Tax is estimated per symbol on positive gain only; losses in
// one symbol never offset gains in another.
type SummaryBuilder struct {
	taxRate decimal.Decimal
}

func NewSummaryBuilder(taxRate decimal.Decimal) *SummaryBuilder {
	return &SummaryBuilder{taxRate: taxRate}
}

// Build produces one row per (account, symbol), symbols ascending.
// costMissingSymbols marks symbols whose basis was padded (oversell or
// missing opening cost), keyed "account|symbol". Native totals cover every
// entry; reporting-currency totals cover only entries that were converted.
func (b *SummaryBuilder) Build(entries []models.RealizedGain, costMissingSymbols map[string]bool) []models.SummaryRow {
	type group struct {
		row          models.SummaryRow
		gainRep      decimal.Decimal
		anyConverted bool
	}
	groups := make(map[string]*group)
	var order []string

	for _, entry := range entries {
		key := entry.AccountID + "|" + entry.Symbol
		g, ok := groups[key]
		if !ok {
			g = &group{row: models.SummaryRow{
				AccountID: entry.AccountID,
				Symbol:    entry.Symbol,
				Name:      entry.Name,
				Currency:  entry.Currency,
			}}
			groups[key] = g
			order = append(order, key)
		}
		if g.row.Name == "" {
			g.row.Name = entry.Name
		}
		g.row.TotalProceeds = g.row.TotalProceeds.Add(entry.Proceeds)
		g.row.TotalCostBasis = g.row.TotalCostBasis.Add(entry.CostBasis)
		g.row.TotalGain = g.row.TotalGain.Add(entry.Gain)
		if entry.GainReporting != nil {
			g.gainRep = g.gainRep.Add(*entry.GainReporting)
			g.anyConverted = true
			g.row.FXRate = entry.Rate
		}
	}

	sort.Slice(order, func(i, j int) bool { return order[i] < order[j] })

	rows := make([]models.SummaryRow, 0, len(order))
	for _, key := range order {
		g := groups[key]

		// Losses do not generate negative tax.
		taxBase := g.row.TotalGain
		if taxBase.IsNegative() {
			taxBase = decimal.Zero
		}
		g.row.EstimatedTax = taxBase.Mul(b.taxRate)

		if g.anyConverted {
			gainRep := g.gainRep
			g.row.TotalGainReporting = &gainRep
			taxRep := g.row.EstimatedTax.Mul(*g.row.FXRate)
			g.row.EstimatedTaxReporting = &taxRep
		}
		g.row.CostBasisMissing = costMissingSymbols[key]
		rows = append(rows, g.row)
	}
	return rows
}

// Totals sums the reporting-relevant columns across rows for the report's
// grand-total line. Rows lacking converted amounts contribute nothing to the
// reporting-currency sums.
func Totals(rows []models.SummaryRow) models.SummaryRow {
	total := models.SummaryRow{AccountID: "TOTAL"}
	var gainRep, taxRep decimal.Decimal
	anyConverted := false
	for _, row := range rows {
		total.TotalProceeds = total.TotalProceeds.Add(row.TotalProceeds)
		total.TotalCostBasis = total.TotalCostBasis.Add(row.TotalCostBasis)
		total.TotalGain = total.TotalGain.Add(row.TotalGain)
		total.EstimatedTax = total.EstimatedTax.Add(row.EstimatedTax)
		if row.TotalGainReporting != nil {
			gainRep = gainRep.Add(*row.TotalGainReporting)
			anyConverted = true
		}
		if row.EstimatedTaxReporting != nil {
			taxRep = taxRep.Add(*row.EstimatedTaxReporting)
		}
	}
	if anyConverted {
		total.TotalGainReporting = &gainRep
		total.EstimatedTaxReporting = &taxRep
	}
	return total
}
