package execution

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// DryRunExecutor 只做校验与记录，不向网关提交委托。
type DryRunExecutor struct {
	opts   Options
	logger *zap.Logger
}

var _ Trader = (*DryRunExecutor)(nil)

// NewDryRunExecutor 创建演练执行器。
func NewDryRunExecutor(opts Options, logger *zap.Logger) *DryRunExecutor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DryRunExecutor{opts: opts, logger: logger}
}

// BuildOrder 与真实执行器使用相同的校验规则。
func (d *DryRunExecutor) BuildOrder(plan OrderPlan) (OrderRequest, error) {
	return buildOrderRequest(plan, d.opts)
}

// Execute 返回未执行的结果。
func (d *DryRunExecutor) Execute(_ context.Context, order OrderRequest) (Result, error) {
	d.logger.Info("演练模式，委托未提交",
		zap.String("symbol", order.Symbol),
		zap.String("side", string(order.Side)),
		zap.String("order_type", string(order.OrderType)),
		zap.String("quantity", order.Quantity.String()),
	)
	return Result{
		Order:         order,
		Executed:      false,
		ExecutionTime: time.Now().UTC(),
		Notes:         []string{"dry run"},
	}, nil
}
