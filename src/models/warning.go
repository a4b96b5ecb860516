package models

// WarningCategory tags the kind of data-quality issue behind a warning.
type WarningCategory string

const (
	WarnMissingCostBasis WarningCategory = "MISSING_COST_BASIS"
	WarnMissingRate      WarningCategory = "MISSING_RATE"
	WarnOversell         WarningCategory = "OVERSELL"
	WarnOther            WarningCategory = "OTHER"
)

// Warning records a non-fatal data-quality issue. Warnings accompany every
// result, they never abort a run.
type Warning struct {
	Category  WarningCategory `json:"category"`
	AccountID string          `json:"account_id,omitempty"`
	Symbol    string          `json:"symbol,omitempty"`
	Detail    string          `json:"detail"`
}

// WarningLog accumulates warnings for a single run. Each run owns its own
// log; nothing here is shared across runs.
type WarningLog struct {
	entries []Warning
}

func NewWarningLog() *WarningLog {
	return &WarningLog{}
}

func (l *WarningLog) Add(category WarningCategory, symbol, detail string) {
	l.entries = append(l.entries, Warning{Category: category, Symbol: symbol, Detail: detail})
}

func (l *WarningLog) AddForAccount(category WarningCategory, accountID, symbol, detail string) {
	l.entries = append(l.entries, Warning{Category: category, AccountID: accountID, Symbol: symbol, Detail: detail})
}

// Entries returns the accumulated warnings in insertion order. The returned
// slice is never nil so an empty list still serializes as [].
func (l *WarningLog) Entries() []Warning {
	if l.entries == nil {
		return []Warning{}
	}
	return l.entries
}

func (l *WarningLog) Len() int {
	return len(l.entries)
}
