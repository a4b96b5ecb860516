// Package positions loads the optional year-start average-cost input and
// turns it into opening lots for the matcher. Missing entries are a warning
// condition, never an error: the pipeline must not block on absent cost
// data.
package positions

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/username/taxgains/src/models"
	"github.com/username/taxgains/src/utils"
)

// AvgCostEntry is one row of the average-cost CSV. AccountID "*" applies to
// any account. Quantity is nil when the column is absent; such entries can
// only size a lot by joining against statement holdings.
type AvgCostEntry struct {
	AccountID string
	Symbol    string
	Currency  string
	AvgCost   decimal.Decimal
	Quantity  *decimal.Decimal
}

// Book indexes average-cost entries by (account, symbol, currency) with a
// wildcard-account fallback.
type Book struct {
	entries map[string]AvgCostEntry
}

func NewBook() *Book {
	return &Book{entries: make(map[string]AvgCostEntry)}
}

func bookKey(account, symbol, currency string) string {
	return account + "|" + symbol + "|" + currency
}

// ParseAvgCostCSV reads rows of symbol,currency,avg_cost with optional
// quantity and account columns. A header row is detected by the presence of
// "symbol" and "currency"; without a header only the three base columns are
// read. Rows with an unparsable cost are skipped.
func ParseAvgCostCSV(r io.Reader) (*Book, error) {
	if r == nil {
		return NewBook(), nil
	}
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read average-cost CSV: %w", err)
	}
	book := NewBook()
	if len(rows) == 0 {
		return book, nil
	}

	qtyCol, accountCol := -1, -1
	start := 0
	header := make([]string, len(rows[0]))
	for i, c := range rows[0] {
		header[i] = strings.ToLower(strings.TrimSpace(c))
	}
	if contains(header, "symbol") && contains(header, "currency") {
		start = 1
		for i, c := range header {
			switch c {
			case "quantity", "qty":
				qtyCol = i
			case "account", "account_id":
				accountCol = i
			}
		}
	}

	for _, row := range rows[start:] {
		if len(row) < 3 {
			continue
		}
		symbol := utils.NormalizeSymbol(row[0])
		currency := strings.ToUpper(strings.TrimSpace(row[1]))
		if symbol == "" || currency == "" {
			continue
		}
		avgCost, err := decimal.NewFromString(strings.TrimSpace(row[2]))
		if err != nil || avgCost.IsNegative() {
			continue
		}
		entry := AvgCostEntry{AccountID: "*", Symbol: symbol, Currency: currency, AvgCost: avgCost}
		if qtyCol >= 0 && qtyCol < len(row) {
			if qty, err := decimal.NewFromString(strings.TrimSpace(row[qtyCol])); err == nil && qty.IsPositive() {
				entry.Quantity = &qty
			}
		}
		if accountCol >= 0 && accountCol < len(row) {
			if acc := strings.TrimSpace(row[accountCol]); acc != "" {
				entry.AccountID = acc
			}
		}
		book.entries[bookKey(entry.AccountID, symbol, currency)] = entry
	}
	return book, nil
}

// Lookup finds the entry for an account/symbol/currency, falling back to the
// wildcard account.
func (b *Book) Lookup(account, symbol, currency string) (AvgCostEntry, bool) {
	if e, ok := b.entries[bookKey(account, symbol, currency)]; ok {
		return e, true
	}
	e, ok := b.entries[bookKey("*", symbol, currency)]
	return e, ok
}

// BuildOpeningLots sizes opening lots for one account from its earliest
// statement's holdings overview joined with the average-cost book. An
// explicit quantity column wins over the statement quantity. Holdings with
// no cost entry produce a MISSING_COST_BASIS warning and no lot; later
// oversells of that symbol fall back to zero cost. Returns the lots plus the
// per-symbol fallback unit costs used for oversold shares.
func (b *Book) BuildOpeningLots(accountID string, holdings []models.StatementHolding, warnings *models.WarningLog) ([]models.OpeningLot, map[string]decimal.Decimal) {
	var lots []models.OpeningLot
	fallbackCosts := make(map[string]decimal.Decimal)
	seen := make(map[string]bool)

	for _, h := range holdings {
		if !h.Quantity.IsPositive() {
			continue
		}
		sym := utils.NormalizeSymbol(h.Symbol)
		if seen[sym+"|"+h.Currency] {
			continue
		}
		seen[sym+"|"+h.Currency] = true

		entry, ok := b.Lookup(accountID, sym, h.Currency)
		if !ok {
			warnings.AddForAccount(models.WarnMissingCostBasis, accountID, sym,
				"Year-start holding detected but no average cost provided. If this stock is sold before new buys, a 0 cost will be used.")
			continue
		}
		qty := h.Quantity
		if entry.Quantity != nil {
			qty = *entry.Quantity
		}
		lots = append(lots, models.OpeningLot{
			Symbol:   sym,
			Currency: h.Currency,
			Quantity: qty,
			AvgCost:  entry.AvgCost,
		})
		fallbackCosts[sym] = entry.AvgCost
	}

	// Entries carrying their own quantity stand alone even without a
	// matching holdings row; quantity-less leftovers only seed the fallback
	// cost. Keys are sorted so lot order stays deterministic.
	keys := make([]string, 0, len(b.entries))
	for k := range b.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		entry := b.entries[k]
		if entry.AccountID != "*" && entry.AccountID != accountID {
			continue
		}
		if seen[entry.Symbol+"|"+entry.Currency] {
			continue
		}
		seen[entry.Symbol+"|"+entry.Currency] = true
		if entry.Quantity != nil {
			lots = append(lots, models.OpeningLot{
				Symbol:   entry.Symbol,
				Currency: entry.Currency,
				Quantity: *entry.Quantity,
				AvgCost:  entry.AvgCost,
			})
		}
		fallbackCosts[entry.Symbol] = entry.AvgCost
	}

	return lots, fallbackCosts
}

func contains(ss []string, want string) bool {
	for _, s := range ss {
		if s == want {
			return true
		}
	}
	return false
}
