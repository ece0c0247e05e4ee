package monitor

import (
	"time"

	"longport-trader/internal/balance"
	"longport-trader/internal/execution"
)

// EventType 表示监控事件类型。
type EventType string

const (
	EventBalance EventType = "balance"
	EventOrder   EventType = "order"
	EventRequest EventType = "request"
	EventError   EventType = "error"
)

// Event 封装通用监控事件。
type Event struct {
	Type      EventType   `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// BalancePayload 记录一次资金查询的解析结果。
type BalancePayload struct {
	Currency            string            `json:"currency,omitempty"`
	Records             []balance.Record  `json:"records"`
	AvailableByCurrency map[string]string `json:"available_by_currency,omitempty"`
}

// OrderPayload 记录委托提交结果。
type OrderPayload struct {
	Result execution.Result `json:"result"`
}

// RequestPayload 记录原始 HTTP 调用。
type RequestPayload struct {
	Method string `json:"method"`
	Path   string `json:"path"`
	Bytes  int    `json:"bytes"`
}

// ErrorPayload 记录异常。
type ErrorPayload struct {
	Message string                 `json:"message"`
	Error   string                 `json:"error"`
	Context map[string]interface{} `json:"context,omitempty"`
}
