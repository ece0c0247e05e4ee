package balance

// NotAvailable 为字段缺失时的占位值，用于区分“字段不存在”与“字段为零值”。
const NotAvailable = "N/A"

// Record 描述一条账户资金快照。
type Record struct {
	Currency               string     `json:"currency"`
	TotalCash              string     `json:"total_cash"`
	NetAssets              string     `json:"net_assets"`
	BuyPower               string     `json:"buy_power"`
	RiskLevel              string     `json:"risk_level"`
	MaxFinanceAmount       string     `json:"max_finance_amount"`
	RemainingFinanceAmount string     `json:"remaining_finance_amount"`
	CashInfos              []CashInfo `json:"cash_infos"`
}

// CashInfo 为单币种现金明细。
type CashInfo struct {
	WithdrawCash  string `json:"withdraw_cash"`
	AvailableCash string `json:"available_cash"`
	FrozenCash    string `json:"frozen_cash"`
	SettlingCash  string `json:"settling_cash"`
	Currency      string `json:"currency"`
}

// Extractor 将 SDK 输出的资金文本转换为结构化记录。
// 上游一旦提供结构化字段，可替换为直接取值的实现，调用方无需改动。
type Extractor interface {
	ExtractAll(records []string) []Record
}
