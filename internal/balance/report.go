package balance

import (
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"
)

// WriteReport 输出单条记录的控制台摘要。
func WriteReport(w io.Writer, rec Record) error {
	var b strings.Builder

	fmt.Fprintf(&b, "Total Cash: %s %s\n", rec.TotalCash, rec.Currency)
	fmt.Fprintf(&b, "Net Assets: %s %s\n", rec.NetAssets, rec.Currency)
	fmt.Fprintf(&b, "Buy Power: %s %s\n", rec.BuyPower, rec.Currency)
	fmt.Fprintf(&b, "Risk Level: %s\n", rec.RiskLevel)
	fmt.Fprintf(&b, "Max Finance Amount: %s %s\n", rec.MaxFinanceAmount, rec.Currency)
	fmt.Fprintf(&b, "Remaining Finance Amount: %s %s\n", rec.RemainingFinanceAmount, rec.Currency)

	b.WriteString("\nCash Information by Currency:\n")
	if len(rec.CashInfos) == 0 {
		b.WriteString("  No detailed cash information available\n")
	}
	for _, info := range rec.CashInfos {
		fmt.Fprintf(&b, "  %s: Available: %s, Withdraw: %s, Frozen: %s, Settling: %s\n",
			info.Currency, info.AvailableCash, info.WithdrawCash, info.FrozenCash, info.SettlingCash)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// Amount 将抽取出的金额文本解析为 decimal，允许带引号；N/A 或非法值返回 false。
func Amount(value string) (decimal.Decimal, bool) {
	v := strings.TrimSpace(strings.Trim(strings.TrimSpace(value), `"`))
	if v == "" || v == NotAvailable {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// AvailableByCurrency 按现金明细币种汇总可用资金，无法解析的金额被跳过。
func AvailableByCurrency(records []Record) map[string]decimal.Decimal {
	totals := make(map[string]decimal.Decimal)
	for _, rec := range records {
		for _, info := range rec.CashInfos {
			amount, ok := Amount(info.AvailableCash)
			if !ok {
				continue
			}
			totals[info.Currency] = totals[info.Currency].Add(amount)
		}
	}
	return totals
}
