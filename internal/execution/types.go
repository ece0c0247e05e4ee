package execution

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderSide 表示下单方向。
type OrderSide string

const (
	OrderSideBuy  OrderSide = "Buy"
	OrderSideSell OrderSide = "Sell"
)

// OrderType 为网关支持的委托类型。
type OrderType string

const (
	OrderTypeLO  OrderType = "LO"  // 限价单
	OrderTypeELO OrderType = "ELO" // 增强限价单
	OrderTypeALO OrderType = "ALO" // 竞价限价单
	OrderTypeODD OrderType = "ODD" // 碎股单
	OrderTypeMO  OrderType = "MO"  // 市价单
	OrderTypeAO  OrderType = "AO"  // 竞价市价单
)

// TimeInForce 为委托有效期。
type TimeInForce string

const (
	TimeInForceDay TimeInForce = "Day"
	TimeInForceGTC TimeInForce = "GTC"
)

// OrderPlan 描述一次下单意图，字段可以为空，由 BuildOrder 补齐默认值。
type OrderPlan struct {
	Symbol      string
	OrderType   string
	Side        string
	Quantity    decimal.Decimal
	Price       decimal.Decimal
	TimeInForce string
	Remark      string
}

// OrderRequest 为校验后的委托。
type OrderRequest struct {
	Symbol      string          `json:"symbol"`
	OrderType   OrderType       `json:"order_type"`
	Side        OrderSide       `json:"side"`
	Quantity    decimal.Decimal `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
	TimeInForce TimeInForce     `json:"time_in_force"`
	Remark      string          `json:"remark"`
}

// Result 为执行结果摘要。
type Result struct {
	Order         OrderRequest `json:"order"`
	OrderID       string       `json:"order_id"`
	Executed      bool         `json:"executed"`
	ExecutionTime time.Time    `json:"execution_time"`
	Notes         []string     `json:"notes,omitempty"`
}
