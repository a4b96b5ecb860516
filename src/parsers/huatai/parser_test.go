package huatai

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/username/taxgains/src/models"
)

const statementFixture = `华泰国际
月结单 (2025-03)
客户户口 : 12345678

成交单据
90000001 2025-03-05 买入 0700:HK 500.00 100 HKD 50,000.00 0.00
90000002 2025-03-20 卖出 0700:HK 550.00 (100) HKD 55,000.00 0.00

户口变动
80000001 2025-03-12 2025-03-10 买卖交易 买入 NVDA:US 英伟达 @120.50 50
80000002 2025-03-18 现货存入 01024 快手科技 新股 Successful IPO @115.00 200

持货结存
HK - HONG KONG STOCK
0700 TENCENT 0 0 0 100
01024 KUAISHOU 0 200 0 200
US - U.S. STOCK
NVDA NVIDIA 0 50 0 50
股票借贷资料
`

func findTrade(trades []models.RawTradeRecord, symbol, side string) *models.RawTradeRecord {
	for i := range trades {
		if trades[i].Symbol == symbol && trades[i].Side == side {
			return &trades[i]
		}
	}
	return nil
}

func TestParseStatementHeader(t *testing.T) {
	st, err := NewParser().Parse(strings.NewReader(statementFixture))
	require.NoError(t, err)

	assert.Equal(t, "huatai", st.Source)
	assert.Equal(t, "HTSC-12345678", st.AccountID)
	assert.Equal(t, 2025, st.Year)
	assert.Equal(t, 3, st.Month)
}

func TestParseTradeSlips(t *testing.T) {
	st, err := NewParser().Parse(strings.NewReader(statementFixture))
	require.NoError(t, err)

	buy := findTrade(st.Trades, "0700", "买入")
	require.NotNil(t, buy)
	assert.Equal(t, "HKD", buy.Currency)
	assert.Equal(t, "500", buy.Price.String())
	assert.Equal(t, "100", buy.Quantity.String())
	assert.Equal(t, time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC), buy.TradeDate)

	// Parenthesised quantities come through negative; the normalizer
	// resolves the sign later.
	sell := findTrade(st.Trades, "0700", "卖出")
	require.NotNil(t, sell)
	assert.Equal(t, "-100", sell.Quantity.String())
	assert.Equal(t, "550", sell.Price.String())
}

func TestParseMovementsUseTradeDate(t *testing.T) {
	st, err := NewParser().Parse(strings.NewReader(statementFixture))
	require.NoError(t, err)

	mv := findTrade(st.Trades, "NVDA", "买入")
	require.NotNil(t, mv)
	assert.Equal(t, "USD", mv.Currency)
	assert.Equal(t, "英伟达", mv.Name)
	assert.Equal(t, "120.5", mv.Price.String())
	assert.Equal(t, "50", mv.Quantity.String())
	// Trade date, not the settlement date two days later.
	assert.Equal(t, time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), mv.TradeDate)
}

func TestParseIPODepositAsAcquisition(t *testing.T) {
	st, err := NewParser().Parse(strings.NewReader(statementFixture))
	require.NoError(t, err)

	ipo := findTrade(st.Trades, "01024", "现货存入")
	require.NotNil(t, ipo)
	assert.Equal(t, "HKD", ipo.Currency)
	assert.Equal(t, "115", ipo.Price.String())
	assert.Equal(t, "200", ipo.Quantity.String())
}

func TestParseHoldingsPerMarketCurrency(t *testing.T) {
	st, err := NewParser().Parse(strings.NewReader(statementFixture))
	require.NoError(t, err)
	require.Len(t, st.Holdings, 3)

	tencent := findHolding(st.Holdings, "0700")
	require.NotNil(t, tencent)
	assert.Equal(t, "HKD", tencent.Currency)
	assert.Equal(t, "100", tencent.Quantity.String())
	assert.Equal(t, "TENCENT", tencent.Name)

	nvidia := findHolding(st.Holdings, "NVDA")
	require.NotNil(t, nvidia)
	assert.Equal(t, "USD", nvidia.Currency)
	assert.Equal(t, "50", nvidia.Quantity.String())
}

func findHolding(holdings []models.StatementHolding, symbol string) *models.StatementHolding {
	for i := range holdings {
		if holdings[i].Symbol == symbol {
			return &holdings[i]
		}
	}
	return nil
}

func TestParseSkipsFundAndMalformedLines(t *testing.T) {
	text := `月结单 (2025-03)
客户户口 : 12345678
成交单据
90000003 2025-03-06 买入 BONDFUND:FUND 100.00 10 USD 1,000.00 0.00
90000004 bad-date 买入 0700:HK 500.00 100 HKD 50,000.00 0.00
短行
持货结存
`
	st, err := NewParser().Parse(strings.NewReader(text))
	require.NoError(t, err)
	assert.Empty(t, st.Trades)
	assert.Empty(t, st.Holdings)
}
