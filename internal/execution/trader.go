package execution

import "context"

// Trader 抽象执行器接口，方便替换为模拟下单。
type Trader interface {
	BuildOrder(plan OrderPlan) (OrderRequest, error)
	Execute(ctx context.Context, order OrderRequest) (Result, error)
}

var _ Trader = (*Executor)(nil)
