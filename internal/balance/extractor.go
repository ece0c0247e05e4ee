package balance

import (
	"regexp"
	"strings"
)

var cashInfoPattern = regexp.MustCompile(
	`CashInfo\s*\{\s*withdraw_cash:\s*([^,]+),\s*available_cash:\s*([^,]+),\s*frozen_cash:\s*([^,]+),\s*settling_cash:\s*([^,]+),\s*currency:\s*"([^"]+)"\s*\}`,
)

// TextExtractor 基于正则从调试格式文本中抽取资金字段，无内部状态，可并发使用。
type TextExtractor struct{}

var _ Extractor = TextExtractor{}

// ExtractAll 逐条解析，保持输入顺序。
func (TextExtractor) ExtractAll(records []string) []Record {
	return ExtractAll(records)
}

// ExtractScalar 返回 text 中首个 "field: " 之后、下一个逗号或右花括号之前的内容。
// 引号原样保留；字段不存在时返回 NotAvailable。
func ExtractScalar(text, field string) string {
	if field == "" {
		return NotAvailable
	}

	pattern, err := regexp.Compile(regexp.QuoteMeta(field) + `: ([^,}]+)`)
	if err != nil {
		return NotAvailable
	}

	match := pattern.FindStringSubmatch(text)
	if match == nil {
		return NotAvailable
	}

	value := strings.TrimSpace(match[1])
	if value == "" {
		return NotAvailable
	}
	return value
}

// ExtractCashInfos 按出现顺序抽取全部 CashInfo 结构，没有匹配时返回空切片。
func ExtractCashInfos(text string) []CashInfo {
	matches := cashInfoPattern.FindAllStringSubmatch(text, -1)
	infos := make([]CashInfo, 0, len(matches))
	for _, m := range matches {
		infos = append(infos, CashInfo{
			WithdrawCash:  strings.TrimSpace(m[1]),
			AvailableCash: strings.TrimSpace(m[2]),
			FrozenCash:    strings.TrimSpace(m[3]),
			SettlingCash:  strings.TrimSpace(m[4]),
			Currency:      m[5],
		})
	}
	return infos
}

// ExtractRecord 组合标量与嵌套抽取，生成一条完整记录。
func ExtractRecord(text string) Record {
	return Record{
		Currency:               unquote(ExtractScalar(text, "currency")),
		TotalCash:              ExtractScalar(text, "total_cash"),
		NetAssets:              ExtractScalar(text, "net_assets"),
		BuyPower:               ExtractScalar(text, "buy_power"),
		RiskLevel:              ExtractScalar(text, "risk_level"),
		MaxFinanceAmount:       ExtractScalar(text, "max_finance_amount"),
		RemainingFinanceAmount: ExtractScalar(text, "remaining_finance_amount"),
		CashInfos:              ExtractCashInfos(text),
	}
}

// ExtractAll 对每条文本调用 ExtractRecord；空输入返回空切片。
func ExtractAll(records []string) []Record {
	out := make([]Record, 0, len(records))
	for _, text := range records {
		out = append(out, ExtractRecord(text))
	}
	return out
}

func unquote(value string) string {
	stripped := strings.TrimSpace(strings.ReplaceAll(value, `"`, ""))
	if stripped == "" {
		return NotAvailable
	}
	return stripped
}
