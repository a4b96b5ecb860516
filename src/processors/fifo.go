package processors

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/username/taxgains/src/models"
)

// FIFOMatcher maintains one ordered lot queue per symbol and consumes
// chronologically sorted transactions. BUYs append lots; SELLs consume the
// oldest lots first, splitting them as needed, and emit one RealizedGain per
// matched portion. A sell that outruns every tracked lot is covered by a
// synthetic lot at the symbol's fallback cost (zero when none) so that the
// matched quantity of every SELL always equals its full quantity.
//
// Each matcher instance belongs to exactly one run; nothing here is shared.
type FIFOMatcher struct {
	queues        map[string][]*models.OpenLot
	fallbackCosts map[string]decimal.Decimal
	warnings      *models.WarningLog
}

// NewFIFOMatcher seeds the per-symbol queues from the opening lots.
// fallbackCosts supplies the unit cost applied to oversold shares of symbols
// whose opening position is known only by average cost.
func NewFIFOMatcher(opening []models.OpeningLot, fallbackCosts map[string]decimal.Decimal, warnings *models.WarningLog) *FIFOMatcher {
	m := &FIFOMatcher{
		queues:        make(map[string][]*models.OpenLot),
		fallbackCosts: make(map[string]decimal.Decimal),
		warnings:      warnings,
	}
	for sym, cost := range fallbackCosts {
		m.fallbackCosts[sym] = cost
	}
	for _, ol := range opening {
		m.queues[ol.Symbol] = append(m.queues[ol.Symbol], &models.OpenLot{
			Symbol:            ol.Symbol,
			Currency:          ol.Currency,
			RemainingQuantity: ol.Quantity,
			UnitCost:          ol.AvgCost,
		})
	}
	return m
}

// Process applies every transaction in order and returns the realized-gain
// entries in emission order.
func (m *FIFOMatcher) Process(txs []models.Transaction) ([]models.RealizedGain, error) {
	var entries []models.RealizedGain
	for _, tx := range txs {
		matched, err := m.Apply(tx)
		if err != nil {
			return nil, err
		}
		entries = append(entries, matched...)
	}
	return entries, nil
}

// Apply consumes one canonical transaction. BUYs return no entries.
func (m *FIFOMatcher) Apply(tx models.Transaction) ([]models.RealizedGain, error) {
	if !tx.Quantity.IsPositive() {
		return nil, fmt.Errorf("matcher received non-positive quantity %s for %s: normalizer bug", tx.Quantity, tx.Symbol)
	}

	switch tx.Action {
	case models.ActionBuy:
		m.applyBuy(tx)
		return nil, nil
	case models.ActionSell:
		return m.applySell(tx), nil
	default:
		return nil, fmt.Errorf("matcher received unknown action %q for %s", tx.Action, tx.Symbol)
	}
}

func (m *FIFOMatcher) applyBuy(tx models.Transaction) {
	// Buy-side fees are folded into the unit cost up front.
	unitCost := tx.UnitPrice
	if !tx.Fees.IsZero() {
		unitCost = unitCost.Add(tx.Fees.Div(tx.Quantity))
	}
	m.queues[tx.Symbol] = append(m.queues[tx.Symbol], &models.OpenLot{
		Symbol:            tx.Symbol,
		Name:              tx.Name,
		Currency:          tx.Currency,
		RemainingQuantity: tx.Quantity,
		UnitCost:          unitCost,
		AcquiredDate:      tx.TradeDate,
	})
}

func (m *FIFOMatcher) applySell(tx models.Transaction) []models.RealizedGain {
	var entries []models.RealizedGain
	outstanding := tx.Quantity
	queue := m.queues[tx.Symbol]

	for outstanding.IsPositive() && len(queue) > 0 {
		head := queue[0]
		matched := decimal.Min(head.RemainingQuantity, outstanding)
		entries = append(entries, m.emit(tx, matched, head.UnitCost, head.AcquiredDate, head.Name))

		head.RemainingQuantity = head.RemainingQuantity.Sub(matched)
		outstanding = outstanding.Sub(matched)
		if head.RemainingQuantity.IsZero() {
			queue = queue[1:]
		}
	}
	m.queues[tx.Symbol] = queue

	if outstanding.IsPositive() {
		cost, hasFallback := m.fallbackCosts[tx.Symbol]
		if !hasFallback {
			cost = decimal.Zero
		}
		detail := fmt.Sprintf("Sell quantity exceeds available lots; used cost %s for %s remaining shares.",
			cost, outstanding)
		if !hasFallback {
			detail = fmt.Sprintf("Sell quantity exceeds available lots and no year-start average cost provided. Used 0 cost for %s remaining shares.",
				outstanding)
		}
		m.warnings.AddForAccount(models.WarnOversell, tx.AccountID, tx.Symbol, detail)
		entries = append(entries, m.emit(tx, outstanding, cost, time.Time{}, tx.Name))
	}

	return entries
}

// emit builds the realized-gain entry for one matched portion. The sell's
// fees are allocated pro rata to the matched quantity, so the fee shares of
// a split sell always sum to the transaction's full fee.
func (m *FIFOMatcher) emit(tx models.Transaction, matched, unitCost decimal.Decimal, buyDate time.Time, lotName string) models.RealizedGain {
	proceeds := matched.Mul(tx.UnitPrice)
	if !tx.Fees.IsZero() {
		proceeds = proceeds.Sub(tx.Fees.Mul(matched).Div(tx.Quantity))
	}
	costBasis := matched.Mul(unitCost)

	name := tx.Name
	if name == "" {
		name = lotName
	}

	return models.RealizedGain{
		AccountID:       tx.AccountID,
		Symbol:          tx.Symbol,
		Name:            name,
		Currency:        tx.Currency,
		SellDate:        tx.TradeDate,
		BuyDate:         buyDate,
		MatchedQuantity: matched,
		Proceeds:        proceeds,
		CostBasis:       costBasis,
		Gain:            proceeds.Sub(costBasis),
	}
}

// OpenLots returns the remaining holdings, symbols ascending and oldest lot
// first within a symbol.
func (m *FIFOMatcher) OpenLots() []models.OpenLot {
	symbols := make([]string, 0, len(m.queues))
	for sym := range m.queues {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)

	var lots []models.OpenLot
	for _, sym := range symbols {
		for _, lot := range m.queues[sym] {
			if lot.RemainingQuantity.IsPositive() {
				lots = append(lots, *lot)
			}
		}
	}
	return lots
}
