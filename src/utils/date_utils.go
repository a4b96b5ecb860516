package utils

import (
	"fmt"
	"strings"
	"time"
)

const DefaultDateFormat = "2006-01-02"

var statementDateFormats = []string{
	"2006-01-02",
	"2006/01/02",
}

// ParseStatementDate parses a date token as it appears in statement text.
// Both dash and slash separators occur across broker layouts.
func ParseStatementDate(token string) (time.Time, error) {
	token = strings.TrimSpace(token)
	for _, layout := range statementDateFormats {
		if t, err := time.Parse(layout, token); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date format: %q", token)
}
