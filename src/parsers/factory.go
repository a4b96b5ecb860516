package parsers

import (
	"fmt"
	"strings"

	"github.com/username/taxgains/src/parsers/futu"
	"github.com/username/taxgains/src/parsers/huatai"
)

// GetParser returns the parser for an explicitly named statement source.
func GetParser(source string) (StatementParser, error) {
	switch source {
	case "huatai":
		return huatai.NewParser(), nil
	case "futu":
		return futu.NewParser(), nil
	default:
		return nil, fmt.Errorf("no parser available for source: %s", source)
	}
}

// DetectSource inspects extracted statement text and decides which broker
// layout it is. Futu statements carry distinctive account-type headers;
// everything else is treated as the Huatai layout.
func DetectSource(text string) string {
	if strings.Contains(text, "保證金綜合帳戶") || strings.Contains(text, "證券月結單") {
		return "futu"
	}
	return "huatai"
}
