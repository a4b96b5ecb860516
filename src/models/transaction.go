package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TradeAction classifies a canonical transaction.
type TradeAction string

const (
	ActionBuy  TradeAction = "BUY"
	ActionSell TradeAction = "SELL"
)

// RawTradeRecord is the shape produced by the statement parsers. Quantities
// may still carry the statement's sign convention (sells negative) and Side
// holds the raw, possibly untranslated side marker. Seq preserves document
// order so same-day trades keep statement order through sorting.
type RawTradeRecord struct {
	Source    string          `json:"source"`
	AccountID string          `json:"account_id"`
	Symbol    string          `json:"symbol"`
	Name      string          `json:"name"`
	Currency  string          `json:"currency"`
	TradeDate time.Time       `json:"trade_date"`
	Side      string          `json:"side"`
	Quantity  decimal.Decimal `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	Fees      decimal.Decimal `json:"fees"`
	RawText   string          `json:"raw_text"`
	Seq       int             `json:"seq"`
}

// Transaction is the canonical, normalized trade. Quantity is always
// positive; the direction lives in Action. Immutable once produced by the
// normalizer.
type Transaction struct {
	AccountID string          `json:"account_id"`
	Symbol    string          `json:"symbol"`
	Name      string          `json:"name"`
	Currency  string          `json:"currency"`
	TradeDate time.Time       `json:"trade_date"`
	Action    TradeAction     `json:"action"`
	Quantity  decimal.Decimal `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Fees      decimal.Decimal `json:"fees"`
	Seq       int             `json:"seq"`
}

// OpeningLot is a synthetic year-start lot built from the opening-position
// input, at most one per (symbol, currency).
type OpeningLot struct {
	Symbol   string          `json:"symbol"`
	Currency string          `json:"currency"`
	Quantity decimal.Decimal `json:"quantity"`
	AvgCost  decimal.Decimal `json:"avg_cost"`
}

// OpenLot is a purchase lot awaiting consumption by sells. Owned exclusively
// by the FIFO matcher; RemainingQuantity never goes negative and the sum of
// RemainingQuantity across a symbol's lots equals that symbol's held
// quantity.
type OpenLot struct {
	Symbol            string          `json:"symbol"`
	Name              string          `json:"name"`
	Currency          string          `json:"currency"`
	RemainingQuantity decimal.Decimal `json:"remaining_quantity"`
	UnitCost          decimal.Decimal `json:"unit_cost"`
	AcquiredDate      time.Time       `json:"acquired_date"`
}

// StatementHolding is a position row from a statement's opening-overview
// section. The loader joins these against the average-cost input to size
// opening lots.
type StatementHolding struct {
	AccountID string          `json:"account_id"`
	Symbol    string          `json:"symbol"`
	Name      string          `json:"name"`
	Currency  string          `json:"currency"`
	Quantity  decimal.Decimal `json:"quantity"`
}

// Statement is the parsed content of one monthly statement: the trades it
// reports, the holdings overview, and statement metadata. Year/Month are
// zero when the statement period could not be detected.
type Statement struct {
	Source    string             `json:"source"`
	AccountID string             `json:"account_id"`
	Year      int                `json:"year"`
	Month     int                `json:"month"`
	Trades    []RawTradeRecord   `json:"trades"`
	Holdings  []StatementHolding `json:"holdings"`
}
