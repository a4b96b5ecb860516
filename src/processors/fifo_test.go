package processors

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/username/taxgains/src/models"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func day(d int) time.Time {
	return time.Date(2025, time.March, d, 0, 0, 0, 0, time.UTC)
}

func buy(symbol string, d int, qty, price string) models.Transaction {
	return models.Transaction{
		Symbol: symbol, Currency: "USD", TradeDate: day(d),
		Action: models.ActionBuy, Quantity: dec(qty), UnitPrice: dec(price),
	}
}

func sell(symbol string, d int, qty, price string) models.Transaction {
	return models.Transaction{
		Symbol: symbol, Currency: "USD", TradeDate: day(d),
		Action: models.ActionSell, Quantity: dec(qty), UnitPrice: dec(price),
	}
}

func TestFIFOMatcherConsumesOldestLotsFirst(t *testing.T) {
	warnings := models.NewWarningLog()
	m := NewFIFOMatcher(nil, nil, warnings)

	entries, err := m.Process([]models.Transaction{
		buy("ACME", 1, "10", "1"),
		buy("ACME", 2, "10", "2"),
		sell("ACME", 3, "15", "3"),
	})
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "10", entries[0].MatchedQuantity.String())
	assert.Equal(t, "10", entries[0].CostBasis.String())
	assert.Equal(t, "30", entries[0].Proceeds.String())
	assert.Equal(t, "20", entries[0].Gain.String())
	assert.Equal(t, day(1), entries[0].BuyDate)

	assert.Equal(t, "5", entries[1].MatchedQuantity.String())
	assert.Equal(t, "10", entries[1].CostBasis.String())
	assert.Equal(t, "5", entries[1].Gain.String())
	assert.Equal(t, day(2), entries[1].BuyDate)

	lots := m.OpenLots()
	require.Len(t, lots, 1)
	assert.Equal(t, "5", lots[0].RemainingQuantity.String())
	assert.Equal(t, "2", lots[0].UnitCost.String())
	assert.Equal(t, 0, warnings.Len())
}

func TestFIFOMatcherOversellWithNoLots(t *testing.T) {
	warnings := models.NewWarningLog()
	m := NewFIFOMatcher(nil, nil, warnings)

	entries, err := m.Process([]models.Transaction{
		sell("GHST", 5, "5", "10"),
	})
	require.NoError(t, err)
	require.Len(t, entries, 1)

	assert.Equal(t, "5", entries[0].MatchedQuantity.String())
	assert.True(t, entries[0].CostBasis.IsZero(), "synthetic lot must be zero cost")
	assert.Equal(t, "50", entries[0].Gain.String())

	require.Equal(t, 1, warnings.Len())
	w := warnings.Entries()[0]
	assert.Equal(t, models.WarnOversell, w.Category)
	assert.Equal(t, "GHST", w.Symbol)
}

func TestFIFOMatcherOversellUsesFallbackCost(t *testing.T) {
	warnings := models.NewWarningLog()
	fallback := map[string]decimal.Decimal{"ACME": dec("7")}
	m := NewFIFOMatcher(nil, fallback, warnings)

	entries, err := m.Process([]models.Transaction{
		sell("ACME", 5, "4", "10"),
	})
	require.NoError(t, err)
	require.Len(t, entries, 1)

	assert.Equal(t, "28", entries[0].CostBasis.String())
	assert.Equal(t, "12", entries[0].Gain.String())
	require.Equal(t, 1, warnings.Len())
	assert.Equal(t, models.WarnOversell, warnings.Entries()[0].Category)
}

func TestFIFOMatcherOpeningLotsSeedTheQueue(t *testing.T) {
	warnings := models.NewWarningLog()
	opening := []models.OpeningLot{
		{Symbol: "ACME", Currency: "USD", Quantity: dec("100"), AvgCost: dec("4")},
	}
	m := NewFIFOMatcher(opening, nil, warnings)

	entries, err := m.Process([]models.Transaction{
		buy("ACME", 2, "50", "6"),
		sell("ACME", 3, "120", "8"),
	})
	require.NoError(t, err)
	require.Len(t, entries, 2)

	// Opening lot is consumed first, then the newer purchase.
	assert.Equal(t, "100", entries[0].MatchedQuantity.String())
	assert.Equal(t, "400", entries[0].CostBasis.String())
	assert.Equal(t, "20", entries[1].MatchedQuantity.String())
	assert.Equal(t, "120", entries[1].CostBasis.String())

	lots := m.OpenLots()
	require.Len(t, lots, 1)
	assert.Equal(t, "30", lots[0].RemainingQuantity.String())
	assert.Equal(t, 0, warnings.Len())
}

func TestFIFOMatcherSellFeesProratedAcrossLots(t *testing.T) {
	warnings := models.NewWarningLog()
	m := NewFIFOMatcher(nil, nil, warnings)

	sellTx := sell("ACME", 3, "10", "2")
	sellTx.Fees = dec("1")

	entries, err := m.Process([]models.Transaction{
		buy("ACME", 1, "4", "1"),
		buy("ACME", 2, "6", "1"),
		sellTx,
	})
	require.NoError(t, err)
	require.Len(t, entries, 2)

	// Fee shares 0.4 and 0.6 follow the matched quantities.
	assert.Equal(t, "7.6", entries[0].Proceeds.String())
	assert.Equal(t, "11.4", entries[1].Proceeds.String())
	assert.Equal(t, "19", entries[0].Proceeds.Add(entries[1].Proceeds).String())
}

func TestFIFOMatcherBuyFeesFoldedIntoUnitCost(t *testing.T) {
	warnings := models.NewWarningLog()
	m := NewFIFOMatcher(nil, nil, warnings)

	buyTx := buy("ACME", 1, "10", "2")
	buyTx.Fees = dec("5")

	entries, err := m.Process([]models.Transaction{
		buyTx,
		sell("ACME", 2, "10", "3"),
	})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "25", entries[0].CostBasis.String())
	assert.Equal(t, "5", entries[0].Gain.String())
}

func TestFIFOMatcherMatchedQuantityCoversFullSell(t *testing.T) {
	tests := []struct {
		name string
		txs  []models.Transaction
	}{
		{
			name: "sell split across lots",
			txs: []models.Transaction{
				buy("ACME", 1, "3", "1"),
				buy("ACME", 2, "4", "1"),
				buy("ACME", 3, "5", "1"),
				sell("ACME", 4, "11", "2"),
			},
		},
		{
			name: "oversell padded",
			txs: []models.Transaction{
				buy("ACME", 1, "3", "1"),
				sell("ACME", 2, "10", "2"),
			},
		},
		{
			name: "no lots at all",
			txs: []models.Transaction{
				sell("ACME", 1, "7", "2"),
			},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			warnings := models.NewWarningLog()
			m := NewFIFOMatcher(nil, nil, warnings)
			entries, err := m.Process(tc.txs)
			require.NoError(t, err)

			sellQty := decimal.Zero
			for _, tx := range tc.txs {
				if tx.Action == models.ActionSell {
					sellQty = sellQty.Add(tx.Quantity)
				}
			}
			matched := decimal.Zero
			for _, e := range entries {
				matched = matched.Add(e.MatchedQuantity)
			}
			assert.True(t, matched.Equal(sellQty),
				"matched %s != sold %s", matched, sellQty)
		})
	}
}

func TestFIFOMatcherSellDatesNonDecreasingPerSymbol(t *testing.T) {
	warnings := models.NewWarningLog()
	m := NewFIFOMatcher(nil, nil, warnings)

	entries, err := m.Process([]models.Transaction{
		buy("ACME", 1, "10", "1"),
		sell("ACME", 2, "3", "2"),
		buy("ACME", 3, "5", "1"),
		sell("ACME", 4, "8", "2"),
		sell("ACME", 5, "4", "2"),
	})
	require.NoError(t, err)

	var prev time.Time
	for _, e := range entries {
		assert.False(t, e.SellDate.Before(prev), "sell dates must be non-decreasing")
		prev = e.SellDate
	}
}

func TestFIFOMatcherRejectsInvalidInput(t *testing.T) {
	warnings := models.NewWarningLog()
	m := NewFIFOMatcher(nil, nil, warnings)

	_, err := m.Apply(models.Transaction{
		Symbol: "ACME", Action: models.ActionSell, Quantity: dec("-1"),
	})
	assert.Error(t, err)

	_, err = m.Apply(models.Transaction{
		Symbol: "ACME", Action: "HOLD", Quantity: dec("1"),
	})
	assert.Error(t, err)
}
