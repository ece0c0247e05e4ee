package longport

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// CashInfo 为账户内单币种现金明细。
type CashInfo struct {
	WithdrawCash  decimal.Decimal
	AvailableCash decimal.Decimal
	FrozenCash    decimal.Decimal
	SettlingCash  decimal.Decimal
	Currency      string
}

// AccountBalance 为 /v1/asset/account 返回的单条资金记录。
type AccountBalance struct {
	TotalCash              decimal.Decimal
	MaxFinanceAmount       decimal.Decimal
	RemainingFinanceAmount decimal.Decimal
	RiskLevel              int64
	MarginCall             decimal.Decimal
	Currency               string
	CashInfos              []CashInfo
	NetAssets              decimal.Decimal
	InitMargin             decimal.Decimal
	MaintenanceMargin      decimal.Decimal
	BuyPower               decimal.Decimal
}

// String 输出与 SDK 调试打印一致的文本。
func (b AccountBalance) String() string {
	infos := make([]string, 0, len(b.CashInfos))
	for _, info := range b.CashInfos {
		infos = append(infos, info.String())
	}

	return fmt.Sprintf(
		"AccountBalance { total_cash: %s, max_finance_amount: %s, remaining_finance_amount: %s, risk_level: %d, margin_call: %s, currency: %q, cash_infos: [%s], net_assets: %s, init_margin: %s, maintenance_margin: %s, buy_power: %s }",
		debugDecimal(b.TotalCash),
		debugDecimal(b.MaxFinanceAmount),
		debugDecimal(b.RemainingFinanceAmount),
		b.RiskLevel,
		debugDecimal(b.MarginCall),
		b.Currency,
		strings.Join(infos, ", "),
		debugDecimal(b.NetAssets),
		debugDecimal(b.InitMargin),
		debugDecimal(b.MaintenanceMargin),
		debugDecimal(b.BuyPower),
	)
}

func (c CashInfo) String() string {
	return fmt.Sprintf(
		"CashInfo { withdraw_cash: %s, available_cash: %s, frozen_cash: %s, settling_cash: %s, currency: %q }",
		debugDecimal(c.WithdrawCash),
		debugDecimal(c.AvailableCash),
		debugDecimal(c.FrozenCash),
		debugDecimal(c.SettlingCash),
		c.Currency,
	)
}

// debugDecimal 保留原始精度，1000.00 不会被折叠为 1000。
func debugDecimal(d decimal.Decimal) string {
	if exp := d.Exponent(); exp < 0 {
		return d.StringFixed(-exp)
	}
	return d.String()
}

type cashInfoWire struct {
	WithdrawCash  flexNumber `json:"withdraw_cash"`
	AvailableCash flexNumber `json:"available_cash"`
	FrozenCash    flexNumber `json:"frozen_cash"`
	SettlingCash  flexNumber `json:"settling_cash"`
	Currency      string     `json:"currency"`
}

type accountBalanceWire struct {
	TotalCash              flexNumber     `json:"total_cash"`
	MaxFinanceAmount       flexNumber     `json:"max_finance_amount"`
	RemainingFinanceAmount flexNumber     `json:"remaining_finance_amount"`
	RiskLevel              flexNumber     `json:"risk_level"`
	MarginCall             flexNumber     `json:"margin_call"`
	Currency               string         `json:"currency"`
	CashInfos              []cashInfoWire `json:"cash_infos"`
	NetAssets              flexNumber     `json:"net_assets"`
	InitMargin             flexNumber     `json:"init_margin"`
	MaintenanceMargin      flexNumber     `json:"maintenance_margin"`
	BuyPower               flexNumber     `json:"buy_power"`
}

// UnmarshalJSON 兼容数值与字符串两种金额编码，空字符串视为 0。
func (b *AccountBalance) UnmarshalJSON(data []byte) error {
	var w accountBalanceWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	var risk int64
	if w.RiskLevel != "" {
		v, err := strconv.ParseInt(string(w.RiskLevel), 10, 64)
		if err != nil {
			return fmt.Errorf("longport: risk_level 非法: %w", err)
		}
		risk = v
	}

	out := AccountBalance{
		RiskLevel: risk,
		Currency:  w.Currency,
		CashInfos: make([]CashInfo, 0, len(w.CashInfos)),
	}

	fields := []struct {
		name string
		raw  flexNumber
		dst  *decimal.Decimal
	}{
		{"total_cash", w.TotalCash, &out.TotalCash},
		{"max_finance_amount", w.MaxFinanceAmount, &out.MaxFinanceAmount},
		{"remaining_finance_amount", w.RemainingFinanceAmount, &out.RemainingFinanceAmount},
		{"margin_call", w.MarginCall, &out.MarginCall},
		{"net_assets", w.NetAssets, &out.NetAssets},
		{"init_margin", w.InitMargin, &out.InitMargin},
		{"maintenance_margin", w.MaintenanceMargin, &out.MaintenanceMargin},
		{"buy_power", w.BuyPower, &out.BuyPower},
	}
	for _, f := range fields {
		d, err := parseDecimal(f.raw)
		if err != nil {
			return fmt.Errorf("longport: %s 非法: %w", f.name, err)
		}
		*f.dst = d
	}

	for _, ci := range w.CashInfos {
		var info CashInfo
		info.Currency = ci.Currency
		var err error
		if info.WithdrawCash, err = parseDecimal(ci.WithdrawCash); err != nil {
			return fmt.Errorf("longport: withdraw_cash 非法: %w", err)
		}
		if info.AvailableCash, err = parseDecimal(ci.AvailableCash); err != nil {
			return fmt.Errorf("longport: available_cash 非法: %w", err)
		}
		if info.FrozenCash, err = parseDecimal(ci.FrozenCash); err != nil {
			return fmt.Errorf("longport: frozen_cash 非法: %w", err)
		}
		if info.SettlingCash, err = parseDecimal(ci.SettlingCash); err != nil {
			return fmt.Errorf("longport: settling_cash 非法: %w", err)
		}
		out.CashInfos = append(out.CashInfos, info)
	}

	*b = out
	return nil
}

// flexNumber 接受 JSON 数值或字符串形式的数字。
type flexNumber string

func (n *flexNumber) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" {
		*n = ""
		return nil
	}
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*n = flexNumber(strings.TrimSpace(s))
		return nil
	}
	*n = flexNumber(raw)
	return nil
}

func parseDecimal(n flexNumber) (decimal.Decimal, error) {
	if n == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(string(n))
}

// Execution 为当日成交明细。
type Execution struct {
	OrderID     string `json:"order_id"`
	TradeID     string `json:"trade_id"`
	Symbol      string `json:"symbol"`
	TradeDoneAt string `json:"trade_done_at"`
	Quantity    string `json:"quantity"`
	Price       string `json:"price"`
}

// UnmarshalJSON 允许时间、数量与价格以数值或字符串出现。
func (e *Execution) UnmarshalJSON(data []byte) error {
	var w struct {
		OrderID     string     `json:"order_id"`
		TradeID     string     `json:"trade_id"`
		Symbol      string     `json:"symbol"`
		TradeDoneAt flexNumber `json:"trade_done_at"`
		Quantity    flexNumber `json:"quantity"`
		Price       flexNumber `json:"price"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*e = Execution{
		OrderID:     w.OrderID,
		TradeID:     w.TradeID,
		Symbol:      w.Symbol,
		TradeDoneAt: string(w.TradeDoneAt),
		Quantity:    string(w.Quantity),
		Price:       string(w.Price),
	}
	return nil
}

// SubmitOrderRequest 为 /v1/trade/order 请求体，数量与价格以字符串传递以保留精度。
type SubmitOrderRequest struct {
	Symbol            string `json:"symbol"`
	OrderType         string `json:"order_type"`
	Side              string `json:"side"`
	SubmittedQuantity string `json:"submitted_quantity"`
	SubmittedPrice    string `json:"submitted_price,omitempty"`
	TimeInForce       string `json:"time_in_force"`
	Remark            string `json:"remark,omitempty"`
}

// SubmitOrderResponse 为下单结果。
type SubmitOrderResponse struct {
	OrderID string `json:"order_id"`
}

type accountBalanceData struct {
	List []AccountBalance `json:"list"`
}

type executionsData struct {
	Trades []Execution `json:"trades"`
}
