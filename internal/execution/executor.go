package execution

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"longport-trader/internal/longport"
)

type orderClient interface {
	SubmitOrder(ctx context.Context, req longport.SubmitOrderRequest) (longport.SubmitOrderResponse, error)
}

// Options 控制下单默认值。
type Options struct {
	OrderType   string
	TimeInForce string
}

// Executor 将下单意图转化为网关委托。
type Executor struct {
	client orderClient
	logger *zap.Logger
	opts   Options
}

// NewExecutor 创建执行器。
func NewExecutor(client orderClient, opts Options, logger *zap.Logger) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{
		client: client,
		logger: logger,
		opts:   opts,
	}
}

// BuildOrder 校验并补齐下单参数。
func (e *Executor) BuildOrder(plan OrderPlan) (OrderRequest, error) {
	return buildOrderRequest(plan, e.opts)
}

// Execute 提交委托。网关拒单时返回错误，结果中保留失败说明。
func (e *Executor) Execute(ctx context.Context, order OrderRequest) (Result, error) {
	result := Result{
		Order:         order,
		Executed:      false,
		ExecutionTime: time.Now().UTC(),
		Notes:         make([]string, 0),
	}

	req := longport.SubmitOrderRequest{
		Symbol:            order.Symbol,
		OrderType:         string(order.OrderType),
		Side:              string(order.Side),
		SubmittedQuantity: order.Quantity.String(),
		TimeInForce:       string(order.TimeInForce),
		Remark:            order.Remark,
	}
	if requiresPrice(order.OrderType) {
		req.SubmittedPrice = order.Price.String()
	}

	resp, err := e.client.SubmitOrder(ctx, req)
	if err != nil {
		result.Notes = append(result.Notes, fmt.Sprintf("下单失败: %v", err))
		e.logger.Error("提交委托失败",
			zap.String("symbol", order.Symbol),
			zap.String("side", string(order.Side)),
			zap.Error(err),
		)
		return result, fmt.Errorf("execution: 提交委托失败: %w", err)
	}

	result.OrderID = resp.OrderID
	result.Executed = true

	e.logger.Info("委托已提交",
		zap.String("symbol", order.Symbol),
		zap.String("side", string(order.Side)),
		zap.String("order_type", string(order.OrderType)),
		zap.String("quantity", order.Quantity.String()),
		zap.String("order_id", resp.OrderID),
	)

	return result, nil
}

func buildOrderRequest(plan OrderPlan, opts Options) (OrderRequest, error) {
	symbol := strings.ToUpper(strings.TrimSpace(plan.Symbol))
	if symbol == "" {
		return OrderRequest{}, errors.New("execution: symbol 不能为空")
	}

	side, err := parseSide(plan.Side)
	if err != nil {
		return OrderRequest{}, err
	}

	orderType, err := parseOrderType(firstNonEmpty(plan.OrderType, opts.OrderType, string(OrderTypeLO)))
	if err != nil {
		return OrderRequest{}, err
	}

	tif, err := parseTimeInForce(firstNonEmpty(plan.TimeInForce, opts.TimeInForce, string(TimeInForceDay)))
	if err != nil {
		return OrderRequest{}, err
	}

	if !plan.Quantity.IsPositive() {
		return OrderRequest{}, fmt.Errorf("execution: 下单数量必须大于0, got %s", plan.Quantity.String())
	}

	if requiresPrice(orderType) {
		if !plan.Price.IsPositive() {
			return OrderRequest{}, fmt.Errorf("execution: %s 委托必须提供正的价格", orderType)
		}
	} else if !plan.Price.IsZero() {
		return OrderRequest{}, fmt.Errorf("execution: %s 委托不接受价格", orderType)
	}

	remark := strings.TrimSpace(plan.Remark)
	if remark == "" {
		remark = uuid.NewString()
	}
	if len(remark) > 64 {
		return OrderRequest{}, errors.New("execution: remark 不能超过64个字符")
	}

	return OrderRequest{
		Symbol:      symbol,
		OrderType:   orderType,
		Side:        side,
		Quantity:    plan.Quantity,
		Price:       plan.Price,
		TimeInForce: tif,
		Remark:      remark,
	}, nil
}

func requiresPrice(t OrderType) bool {
	switch t {
	case OrderTypeMO, OrderTypeAO:
		return false
	default:
		return true
	}
}

func parseSide(value string) (OrderSide, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "buy", "b":
		return OrderSideBuy, nil
	case "sell", "s":
		return OrderSideSell, nil
	default:
		return "", fmt.Errorf("execution: 不支持的下单方向 %q", value)
	}
}

func parseOrderType(value string) (OrderType, error) {
	t := OrderType(strings.ToUpper(strings.TrimSpace(value)))
	switch t {
	case OrderTypeLO, OrderTypeELO, OrderTypeALO, OrderTypeODD, OrderTypeMO, OrderTypeAO:
		return t, nil
	default:
		return "", fmt.Errorf("execution: 不支持的订单类型 %q", value)
	}
}

func parseTimeInForce(value string) (TimeInForce, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "day":
		return TimeInForceDay, nil
	case "gtc", "goodtilcanceled":
		return TimeInForceGTC, nil
	default:
		return "", fmt.Errorf("execution: 不支持的有效期 %q", value)
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
