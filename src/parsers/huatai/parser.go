// Package huatai parses the extracted text of Huatai (HTSC) monthly
// statements: the trade-slip section, the account-movement section (regular
// trades plus IPO stock deposits) and the closing holdings section.
package huatai

import (
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/username/taxgains/src/models"
	"github.com/username/taxgains/src/parsers/sections"
	"github.com/username/taxgains/src/utils"
)

var (
	accountRe = regexp.MustCompile(`客户户口\s*:\s*(\d+)`)
	monthRe   = regexp.MustCompile(`月结单\s*\((\d{4})-(\d{2})\)`)

	tradeSlipRe = regexp.MustCompile(`^\d{8,}\s`)

	movementRe = regexp.MustCompile(
		`^(?P<ref>\d{8,})\s+(?P<settle>\d{4}-\d{2}-\d{2})\s+` +
			`(?P<trade>\d{4}-\d{2}-\d{2})\s+买卖交易\s+` +
			`(?P<side>买入|沽出|卖出平仓|买入开仓|卖出)\s+(?P<code>[A-Z0-9]+:(?:HK|US))\s+` +
			`(?P<name>.+?)\s+@(?P<price>[\d.]+)\s+(?P<qty>[\d,().-]+)`)

	ipoDepositRe = regexp.MustCompile(
		`^(?P<ref>\d{8,})\s+(?P<settle>\d{4}-\d{2}-\d{2})\s+现货存入\s+` +
			`(?P<code>\d{4,5})\s+(?P<name>.+?)\s+.*?@(?P<price>[\d.]+)\s+` +
			`(?P<qty>[\d,]+)`)

	holdingRowRe = regexp.MustCompile(`^[A-Z0-9]`)
	optionCodeRe = regexp.MustCompile(`\d{6,}[CP]\d{4,}`)
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
	text := string(raw)

	st := &models.Statement{Source: "huatai", AccountID: accountID(text)}
	if m := monthRe.FindStringSubmatch(text); m != nil {
		st.Year, _ = strconv.Atoi(m[1])
		st.Month, _ = strconv.Atoi(m[2])
	}

	st.Trades = append(st.Trades, p.parseTradeSlips(text, st.AccountID)...)
	st.Trades = append(st.Trades, p.parseMovements(text, st.AccountID)...)
	st.Trades = append(st.Trades, p.parseIPODeposits(text, st.AccountID)...)
	st.Holdings = p.parseHoldings(text, st.AccountID)
	return st, nil
}

func accountID(text string) string {
	if m := accountRe.FindStringSubmatch(text); m != nil {
		return "HTSC-" + m[1]
	}
	return "HTSC-UNKNOWN"
}

// parseTradeSlips reads the 成交单据 section. Columns: reference, settlement
// date, side, code, price, quantity.
func (p *Parser) parseTradeSlips(text, account string) []models.RawTradeRecord {
	var trades []models.RawTradeRecord
	lines := sections.ExtractLines(text, "成交单据", []string{"户口变动", "持货结存"})
	for _, line := range lines {
		if !tradeSlipRe.MatchString(line) {
			continue
		}
		parts := strings.Fields(line)
		if len(parts) < 9 {
			continue
		}
		settle, err := utils.ParseStatementDate(parts[1])
		if err != nil {
			continue
		}
		side := parts[2]
		code := parts[3]
		price, okPrice := utils.ParseStatementNumber(parts[4])
		qty, okQty := utils.ParseStatementNumber(parts[5])
		if !okPrice || !okQty {
			continue
		}
		currency := currencyFromCode(code)
		if currency == "" || strings.Contains(code, ":FUND") {
			continue
		}
		trades = append(trades, models.RawTradeRecord{
			Source:    "huatai",
			AccountID: account,
			Symbol:    normalizeCode(code),
			Currency:  currency,
			TradeDate: settle,
			Side:      side,
			Quantity:  qty,
			Price:     price,
			RawText:   "成交单据:" + parts[0],
		})
	}
	return trades
}

// parseMovements reads 买卖交易 rows from the 户口变动 section, which carry
// the actual trade date alongside the settlement date.
func (p *Parser) parseMovements(text, account string) []models.RawTradeRecord {
	var trades []models.RawTradeRecord
	lines := sections.ExtractLines(text, "户口变动", []string{"持货结存"})
	for _, line := range lines {
		if !strings.Contains(line, "买卖交易") {
			continue
		}
		m := movementRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		groups := groupMap(movementRe, m)
		tradeDate, err := utils.ParseStatementDate(groups["trade"])
		if err != nil {
			continue
		}
		code := groups["code"]
		currency := currencyFromCode(code)
		if currency == "" {
			continue
		}
		price, okPrice := utils.ParseStatementNumber(groups["price"])
		qty, okQty := utils.ParseStatementNumber(groups["qty"])
		if !okPrice || !okQty {
			continue
		}
		trades = append(trades, models.RawTradeRecord{
			Source:    "huatai",
			AccountID: account,
			Symbol:    normalizeCode(code),
			Name:      strings.TrimSpace(groups["name"]),
			Currency:  currency,
			TradeDate: tradeDate,
			Side:      groups["side"],
			Quantity:  qty,
			Price:     price,
			RawText:   "户口变动:" + groups["ref"],
		})
	}
	return trades
}

// parseIPODeposits reads 现货存入 rows for successful IPO allotments. The
// allotment is a HKD stock acquisition at the subscription price.
func (p *Parser) parseIPODeposits(text, account string) []models.RawTradeRecord {
	var trades []models.RawTradeRecord
	lines := sections.ExtractLines(text, "户口变动", []string{"持货结存"})
	for _, line := range lines {
		if !strings.Contains(line, "现货存入") {
			continue
		}
		if !strings.Contains(line, "Successful IPO") && !strings.Contains(line, "新股") {
			continue
		}
		m := ipoDepositRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		groups := groupMap(ipoDepositRe, m)
		settle, err := utils.ParseStatementDate(groups["settle"])
		if err != nil {
			continue
		}
		price, okPrice := utils.ParseStatementNumber(groups["price"])
		qty, okQty := utils.ParseStatementNumber(groups["qty"])
		if !okPrice || !okQty {
			continue
		}
		trades = append(trades, models.RawTradeRecord{
			Source:    "huatai",
			AccountID: account,
			Symbol:    groups["code"],
			Name:      strings.TrimSpace(groups["name"]),
			Currency:  "HKD",
			TradeDate: settle,
			Side:      "现货存入",
			Quantity:  qty,
			Price:     price,
			RawText:   "现货存入:" + groups["ref"],
		})
	}
	return trades
}

// parseHoldings reads the 持货结存 section. Market sub-headers switch the
// active currency; fund and option rows are skipped.
func (p *Parser) parseHoldings(text, account string) []models.StatementHolding {
	var holdings []models.StatementHolding
	lines := sections.ExtractLines(text, "持货结存", []string{"股票借贷资料", "重要提示"})
	currency := ""
	for _, line := range lines {
		switch {
		case strings.Contains(line, "HK - HONG KONG STOCK"):
			currency = "HKD"
			continue
		case strings.Contains(line, "US - U.S. STOCK"):
			currency = "USD"
			continue
		case strings.Contains(line, "FUND - FUND"):
			currency = ""
			continue
		}
		if currency == "" || !holdingRowRe.MatchString(line) {
			continue
		}
		tokens := strings.Fields(line)
		if len(tokens) < 3 {
			continue
		}
		code := strings.ReplaceAll(tokens[0], "*", "")
		if optionCodeRe.MatchString(code) {
			continue
		}
		numIdx := -1
		for i := 1; i < len(tokens); i++ {
			if _, ok := utils.ParseStatementNumber(tokens[i]); ok {
				numIdx = i
				break
			}
		}
		if numIdx < 0 {
			continue
		}
		name := strings.TrimSpace(strings.Join(tokens[1:numIdx], " "))
		var nums []string
		for _, tok := range tokens[numIdx:] {
			if _, ok := utils.ParseStatementNumber(tok); ok {
				nums = append(nums, tok)
			}
		}
		// Columns: opening, deposits, withdrawals, net balance.
		if len(nums) < 4 {
			continue
		}
		netQty, _ := utils.ParseStatementNumber(nums[3])
		holdings = append(holdings, models.StatementHolding{
			AccountID: account,
			Symbol:    code,
			Name:      name,
			Currency:  currency,
			Quantity:  netQty,
		})
	}
	return holdings
}

func currencyFromCode(code string) string {
	switch {
	case strings.HasSuffix(code, ":HK"):
		return "HKD"
	case strings.HasSuffix(code, ":US"):
		return "USD"
	default:
		return ""
	}
}

func normalizeCode(code string) string {
	sym := code
	if idx := strings.Index(sym, ":"); idx >= 0 {
		sym = sym[:idx]
	}
	return strings.ReplaceAll(sym, "*", "")
}

func groupMap(re *regexp.Regexp, match []string) map[string]string {
	groups := make(map[string]string)
	for i, name := range re.SubexpNames() {
		if name != "" && i < len(match) {
			groups[name] = match[i]
		}
	}
	return groups
}
