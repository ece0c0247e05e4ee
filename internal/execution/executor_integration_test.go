//go:build integration
// +build integration

package execution

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"longport-trader/internal/account"
	"longport-trader/internal/config"
	"longport-trader/internal/longport"
)

func TestExecutorIntegration_LongPortSubmit(t *testing.T) {
	configPath := os.Getenv("LONGPORT_CONFIG")

	cfg, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("加载配置失败: %v", err)
	}
	if missing := cfg.LongPort.Missing(); len(missing) > 0 {
		t.Skipf("缺少凭证 %v，跳过测试", missing)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	logger := zap.NewExample()
	client, err := longport.NewClient(cfg.LongPort, logger)
	if err != nil {
		t.Fatalf("创建客户端失败: %v", err)
	}

	report, err := account.NewManager(client, nil, logger).FetchReport(ctx, "")
	if err != nil {
		t.Fatalf("查询资金失败: %v", err)
	}
	if len(report.Raw) != len(report.Records) {
		t.Fatalf("原始记录与解析结果数量不一致: %d vs %d", len(report.Raw), len(report.Records))
	}

	// 真实下单需要显式开启，避免误触发
	if os.Getenv("LONGPORT_INTEGRATION_SUBMIT") != "1" {
		t.Skip("LONGPORT_INTEGRATION_SUBMIT!=1，出于安全考虑跳过真实下单测试")
	}

	exec := NewExecutor(client, Options{OrderType: cfg.Order.OrderType, TimeInForce: cfg.Order.TimeInForce}, logger)
	order, err := exec.BuildOrder(OrderPlan{
		Symbol:   "700.HK",
		Side:     "Buy",
		Quantity: decimal.NewFromInt(100),
		Price:    decimal.NewFromInt(1),
	})
	if err != nil {
		t.Fatalf("构建委托失败: %v", err)
	}

	result, err := exec.Execute(ctx, order)
	if err != nil {
		t.Fatalf("下单失败: %v", err)
	}
	t.Logf("下单成功 order_id=%s", result.OrderID)
}
