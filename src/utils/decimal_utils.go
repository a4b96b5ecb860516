package utils

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParseStatementNumber parses a numeric token from statement text. Thousands
// separators are stripped and accounting-style parentheses mean negative.
// Returns ok=false for tokens that are not numbers at all.
func ParseStatementNumber(token string) (decimal.Decimal, bool) {
	token = strings.TrimSpace(strings.ReplaceAll(token, ",", ""))
	if token == "" {
		return decimal.Zero, false
	}
	neg := false
	if strings.HasPrefix(token, "(") && strings.HasSuffix(token, ")") {
		neg = true
		token = token[1 : len(token)-1]
	}
	d, err := decimal.NewFromString(token)
	if err != nil {
		return decimal.Zero, false
	}
	if neg {
		d = d.Neg()
	}
	return d, true
}

// DecPtr returns a pointer to d, for the optional converted-amount fields.
func DecPtr(d decimal.Decimal) *decimal.Decimal {
	return &d
}
