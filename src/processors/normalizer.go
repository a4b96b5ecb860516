package processors

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/username/taxgains/src/models"
	"github.com/username/taxgains/src/utils"
)

// sideActions maps the raw side markers found across statement layouts to
// canonical actions. IPO stock deposits (现货存入) are acquisitions at the
// subscription price.
var sideActions = map[string]models.TradeAction{
	"买入":   models.ActionBuy,
	"买入开仓": models.ActionBuy,
	"買入":   models.ActionBuy,
	"现货存入": models.ActionBuy,
	"卖出":   models.ActionSell,
	"卖出平仓": models.ActionSell,
	"沽出":   models.ActionSell,
	"賣出":   models.ActionSell,
	"賣出平倉": models.ActionSell,
	"BUY":  models.ActionBuy,
	"SELL": models.ActionSell,
}

var currencyCodeRe = regexp.MustCompile(`^[A-Z]{3}$`)

// Normalizer converts raw parsed records into canonical transactions:
// resolves the action, normalizes signs, and sorts by trade date with
// document order as the tiebreak. Records that cannot be resolved are
// dropped with an OTHER warning; a record that is still invalid after
// normalization is a programming error and fails the run.
type Normalizer struct{}

func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

func (n *Normalizer) Normalize(raws []models.RawTradeRecord, warnings *models.WarningLog) ([]models.Transaction, error) {
	var txs []models.Transaction
	for i, raw := range raws {
		action, ok := sideActions[strings.ToUpper(strings.TrimSpace(raw.Side))]
		if !ok {
			warnings.AddForAccount(models.WarnOther, raw.AccountID, utils.NormalizeSymbol(raw.Symbol),
				fmt.Sprintf("Dropped record with unrecognized side %q (%s).", raw.Side, raw.RawText))
			continue
		}
		symbol := utils.NormalizeSymbol(raw.Symbol)
		if symbol == "" {
			warnings.AddForAccount(models.WarnOther, raw.AccountID, "",
				fmt.Sprintf("Dropped record with empty symbol (%s).", raw.RawText))
			continue
		}
		if raw.Quantity.IsZero() {
			warnings.AddForAccount(models.WarnOther, raw.AccountID, symbol,
				fmt.Sprintf("Dropped record with zero quantity (%s).", raw.RawText))
			continue
		}

		tx := models.Transaction{
			AccountID: raw.AccountID,
			Symbol:    symbol,
			Name:      strings.TrimSpace(raw.Name),
			Currency:  strings.ToUpper(strings.TrimSpace(raw.Currency)),
			TradeDate: raw.TradeDate,
			Action:    action,
			Quantity:  raw.Quantity.Abs(),
			UnitPrice: raw.Price.Abs(),
			Fees:      raw.Fees.Abs(),
			Seq:       i,
		}
		if err := validateTransaction(tx); err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}

	sort.SliceStable(txs, func(i, j int) bool {
		if !txs[i].TradeDate.Equal(txs[j].TradeDate) {
			return txs[i].TradeDate.Before(txs[j].TradeDate)
		}
		return txs[i].Seq < txs[j].Seq
	})
	return txs, nil
}

// validateTransaction guards the normalizer's own output. A violation here
// is a bug in normalization, not bad user data, so it aborts the run.
func validateTransaction(tx models.Transaction) error {
	if !tx.Quantity.IsPositive() {
		return fmt.Errorf("normalized transaction for %s has non-positive quantity %s", tx.Symbol, tx.Quantity)
	}
	if tx.UnitPrice.IsNegative() {
		return fmt.Errorf("normalized transaction for %s has negative unit price %s", tx.Symbol, tx.UnitPrice)
	}
	if tx.Fees.IsNegative() {
		return fmt.Errorf("normalized transaction for %s has negative fees %s", tx.Symbol, tx.Fees)
	}
	if !currencyCodeRe.MatchString(tx.Currency) {
		return fmt.Errorf("normalized transaction for %s has malformed currency code %q", tx.Symbol, tx.Currency)
	}
	if tx.TradeDate.IsZero() {
		return fmt.Errorf("normalized transaction for %s has zero trade date", tx.Symbol)
	}
	return nil
}
