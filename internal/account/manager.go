package account

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"longport-trader/internal/balance"
	"longport-trader/internal/longport"
)

type balanceClient interface {
	AccountBalance(ctx context.Context, currency string) ([]longport.AccountBalance, error)
}

// Report 为一次资金查询的结果，Raw 与 Records 一一对应。
type Report struct {
	Raw       []string
	Records   []balance.Record
	Currency  string
	FetchedAt time.Time
}

// Manager 拉取账户资金并转换为结构化记录。
type Manager struct {
	client    balanceClient
	extractor balance.Extractor
	logger    *zap.Logger
}

// NewManager 创建资金管理器，extractor 为空时使用文本解析实现。
func NewManager(client balanceClient, extractor balance.Extractor, logger *zap.Logger) *Manager {
	if extractor == nil {
		extractor = balance.TextExtractor{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		client:    client,
		extractor: extractor,
		logger:    logger,
	}
}

// FetchReport 查询资金并解析。上游失败原样包装返回，不生成部分报告。
func (m *Manager) FetchReport(ctx context.Context, currency string) (Report, error) {
	report := Report{Currency: currency}

	balances, err := m.client.AccountBalance(ctx, currency)
	if err != nil {
		return report, fmt.Errorf("account: 获取账户资金失败: %w", err)
	}

	raw := make([]string, 0, len(balances))
	for _, b := range balances {
		raw = append(raw, b.String())
	}

	report.Raw = raw
	report.Records = m.extractor.ExtractAll(raw)
	report.FetchedAt = time.Now().UTC()

	m.logger.Debug("账户资金查询完成",
		zap.String("currency", currency),
		zap.Int("records", len(report.Records)),
	)

	return report, nil
}
