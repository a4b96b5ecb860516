// Package futu parses the extracted text of Futu securities monthly
// statements. Futu PDFs extract with doubled glyphs and wrapped trade
// headers, so the text is cleaned up before the sections are scanned.
package futu

import (
	"io"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/username/taxgains/src/models"
	"github.com/username/taxgains/src/parsers/sections"
	"github.com/username/taxgains/src/utils"
)

var (
	accountRes = []*regexp.Regexp{
		regexp.MustCompile(`賬戶號碼[:：]?\s*(\d{6,})`),
		regexp.MustCompile(`帳戶號碼[:：]?\s*(\d{6,})`),
	}
	monthRe = regexp.MustCompile(`(\d{4})/(\d{2})`)

	tradeHeaderRe = regexp.MustCompile(`(買入|賣出|賣出平倉)\s+([A-Z0-9.]+)\(([^)]*)\)`)
	// A header whose name field wrapped onto the next line.
	tradeHeaderPartialRe = regexp.MustCompile(`(買入|賣出|賣出平倉)\s+([A-Z0-9.]+)\(([^)]*)$`)

	tradeRowRe = regexp.MustCompile(
		`(SEHK|US)\s+(HKD|USD|CNH|JPY|SGD)\s+` +
			`(\d{4}/\d{2}/\d{2})\s+(\d{4}/\d{2}/\d{2})\s+` +
			`([\d,]+)\s+([\d.]+)\s+([\d,]+(?:\.\d+)?)`)

	holdingRowRe = regexp.MustCompile(
		`^([A-Z0-9.]+)\(([^)]*)\)\s+(SEHK|US)\s+(HKD|USD|CNH|JPY|SGD)\s+` +
			`([\d,]+)\s+([\d.]+)\s+-\s+([\d,]+(?:\.\d+)?)`)

	optionCodeRe = regexp.MustCompile(`\d{6,}[CP]\d{4,}`)

	wrappedHeaderRe = regexp.MustCompile(`(買入|賣出|賣出平倉)\s+[A-Z0-9.]+\([^)]*$`)
)

const (
	tradeSectionTrad = "交易--股票和股票期權"
	tradeSectionSimp = "交易--股票和股票期权"
	fundSection      = "交易--基金"
	openingSection   = "期初概覽--股票和股票期權"
	openingSectionS  = "期初概覽--股票和股票期权"
)

type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

func (p *Parser) Parse(file io.Reader) (*models.Statement, error) {
	raw, err := io.ReadAll(file)
	if err != nil {
		return nil, err
	}
	text := collapseDoubledGlyphs(string(raw))

	st := &models.Statement{Source: "futu", AccountID: accountID(text)}
	if m := monthRe.FindStringSubmatch(text); m != nil {
		st.Year, _ = strconv.Atoi(m[1])
		st.Month, _ = strconv.Atoi(m[2])
	}

	st.Trades = p.parseTrades(text, st.AccountID)
	st.Holdings = p.parseOpeningHoldings(text, st.AccountID)
	return st, nil
}

func accountID(text string) string {
	for _, re := range accountRes {
		if m := re.FindStringSubmatch(text); m != nil {
			return "FUTU-" + m[1]
		}
	}
	return "FUTU-UNKNOWN"
}

// parseTrades walks the stock-trades section. Each instrument starts with a
// header line naming side, symbol and instrument name; the fill rows that
// follow carry market, currency, dates, quantity and price.
func (p *Parser) parseTrades(text, account string) []models.RawTradeRecord {
	var trades []models.RawTradeRecord

	lines := nonEmptyLines(text)
	lines = mergeWrappedLines(lines)

	inTrades := false
	var curSymbol, curName, curSide string
	for _, line := range lines {
		if strings.Contains(line, tradeSectionTrad) || strings.Contains(line, tradeSectionSimp) {
			inTrades = true
			curSymbol, curName, curSide = "", "", ""
			continue
		}
		if inTrades && strings.Contains(line, fundSection) {
			inTrades = false
			curSymbol, curName, curSide = "", "", ""
			continue
		}
		if !inTrades {
			continue
		}

		if m := tradeHeaderRe.FindStringSubmatch(line); m != nil {
			curSide, curSymbol, curName = m[1], m[2], strings.TrimSpace(m[3])
			continue
		}
		if m := tradeHeaderPartialRe.FindStringSubmatch(line); m != nil {
			curSide, curSymbol, curName = m[1], m[2], strings.TrimSpace(m[3])
			continue
		}

		m := tradeRowRe.FindStringSubmatch(line)
		if m == nil || curSymbol == "" || curSide == "" {
			continue
		}
		// Keep plain stocks only. Market-suffixed and option-style codes
		// belong to the derivatives rows.
		if strings.HasSuffix(curSymbol, ".US") || strings.HasSuffix(curSymbol, ".HK") || optionCodeRe.MatchString(curSymbol) {
			continue
		}
		tradeDate, err := utils.ParseStatementDate(m[3])
		if err != nil {
			continue
		}
		qty, okQty := utils.ParseStatementNumber(m[5])
		price, okPrice := utils.ParseStatementNumber(m[6])
		if !okQty || !okPrice {
			continue
		}
		trades = append(trades, models.RawTradeRecord{
			Source:    "futu",
			AccountID: account,
			Symbol:    curSymbol,
			Name:      curName,
			Currency:  m[2],
			TradeDate: tradeDate,
			Side:      curSide,
			Quantity:  qty,
			Price:     price,
			RawText:   "交易:" + curSymbol,
		})
	}
	return trades
}

func (p *Parser) parseOpeningHoldings(text, account string) []models.StatementHolding {
	lines := sections.ExtractLines(text, openingSection,
		[]string{"期初概覽--基金", tradeSectionTrad, tradeSectionSimp})
	if lines == nil {
		lines = sections.ExtractLines(text, openingSectionS,
			[]string{"期初概覽--基金", tradeSectionTrad, tradeSectionSimp})
	}

	var holdings []models.StatementHolding
	for _, line := range lines {
		m := holdingRowRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		qty, ok := utils.ParseStatementNumber(m[5])
		if !ok {
			continue
		}
		holdings = append(holdings, models.StatementHolding{
			AccountID: account,
			Symbol:    m[1],
			Name:      strings.TrimSpace(m[2]),
			Currency:  m[4],
			Quantity:  qty,
		})
	}
	return holdings
}

// collapseDoubledGlyphs removes the doubled characters Futu PDF extraction
// produces. Digits and numeric punctuation are kept verbatim since amounts
// legitimately repeat digits.
func collapseDoubledGlyphs(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	var prev rune
	for _, ch := range text {
		if ch == prev && !unicode.IsDigit(ch) && !strings.ContainsRune(".,-()/", ch) {
			continue
		}
		b.WriteRune(ch)
		prev = ch
	}
	return b.String()
}

// mergeWrappedLines rejoins trade header lines whose instrument name wrapped
// across a line break, using parenthesis balance to find the end.
func mergeWrappedLines(lines []string) []string {
	var merged []string
	buffer := ""
	for _, line := range lines {
		if buffer != "" {
			buffer += line
			if strings.Count(buffer, "(") <= strings.Count(buffer, ")") {
				merged = append(merged, buffer)
				buffer = ""
			}
			continue
		}
		if wrappedHeaderRe.MatchString(line) {
			buffer = line
			continue
		}
		merged = append(merged, line)
	}
	if buffer != "" {
		merged = append(merged, buffer)
	}
	return merged
}

func nonEmptyLines(text string) []string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
