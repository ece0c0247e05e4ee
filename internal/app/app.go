package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"longport-trader/internal/account"
	"longport-trader/internal/balance"
	"longport-trader/internal/config"
	"longport-trader/internal/execution"
	"longport-trader/internal/longport"
	"longport-trader/internal/monitor"
	"longport-trader/internal/store"
)

// ErrNoSession 表示命令需要交易会话，但未提供凭证。
var ErrNoSession = errors.New("app: 未建立交易会话")

// Session 为 App 依赖的网关能力，由 *longport.Client 实现。
type Session interface {
	AccountBalance(ctx context.Context, currency string) ([]longport.AccountBalance, error)
	TodayExecutions(ctx context.Context, symbol string) ([]longport.Execution, error)
	SubmitOrder(ctx context.Context, req longport.SubmitOrderRequest) (longport.SubmitOrderResponse, error)
	Do(ctx context.Context, method, path string, query url.Values, body any) (json.RawMessage, error)
}

var _ Session = (*longport.Client)(nil)

// App 聚合核心依赖，承载各个子命令。
type App struct {
	cfg     *config.Config
	logger  *zap.Logger
	monitor *monitor.Service

	session  Session
	accounts *account.Manager
	trader   execution.Trader
}

// New 创建 App。session 为空时仅支持离线解析与监控接口。
func New(cfg *config.Config, logger *zap.Logger, store *store.Store, session Session) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	a := &App{
		cfg:     cfg,
		logger:  logger,
		session: session,
	}

	if cfg.Monitor.Enabled {
		svc, err := monitor.NewService(store, logger)
		if err != nil {
			return nil, fmt.Errorf("初始化监控服务失败: %w", err)
		}
		a.monitor = svc
	}

	opts := execution.Options{
		OrderType:   cfg.Order.OrderType,
		TimeInForce: cfg.Order.TimeInForce,
	}
	switch {
	case cfg.Order.DryRun:
		logger.Info("下单处于演练模式")
		a.trader = execution.NewDryRunExecutor(opts, logger)
	case session != nil:
		a.trader = execution.NewExecutor(session, opts, logger)
	}
	if session != nil {
		a.accounts = account.NewManager(session, balance.TextExtractor{}, logger)
	}

	return a, nil
}

// Balance 查询账户资金并输出报告。
func (a *App) Balance(ctx context.Context, w io.Writer, currency string) error {
	if a.session == nil {
		return ErrNoSession
	}

	report, err := a.accounts.FetchReport(ctx, currency)
	if err != nil {
		a.recordError(ctx, "查询账户资金失败", err, map[string]interface{}{"currency": currency})
		return err
	}
	if a.monitor != nil {
		a.monitor.RecordBalance(ctx, currency, report.Records)
	}

	return writeBalances(w, report.Raw, report.Records)
}

// SubmitOrder 校验并提交委托，输出订单号；演练模式只输出校验后的委托。
func (a *App) SubmitOrder(ctx context.Context, w io.Writer, plan execution.OrderPlan) (execution.Result, error) {
	if a.trader == nil {
		return execution.Result{}, ErrNoSession
	}

	order, err := a.trader.BuildOrder(plan)
	if err != nil {
		return execution.Result{}, err
	}

	result, err := a.trader.Execute(ctx, order)
	if err != nil {
		a.recordError(ctx, "提交委托失败", err, map[string]interface{}{"symbol": order.Symbol})
		return result, err
	}
	if a.monitor != nil {
		a.monitor.RecordOrder(ctx, result)
	}

	if !result.Executed {
		_, err = fmt.Fprintf(w, "Dry run, order not submitted: symbol=%s side=%s type=%s quantity=%s price=%s tif=%s\n",
			order.Symbol, order.Side, order.OrderType, order.Quantity, order.Price, order.TimeInForce)
		return result, err
	}
	_, err = fmt.Fprintf(w, "Order submitted: order_id=%s symbol=%s side=%s type=%s quantity=%s\n",
		result.OrderID, order.Symbol, order.Side, order.OrderType, order.Quantity)
	return result, err
}

// Request 发起任意接口调用并以缩进 JSON 输出响应。
func (a *App) Request(ctx context.Context, w io.Writer, method, path string) error {
	if a.session == nil {
		return ErrNoSession
	}

	method = strings.ToUpper(strings.TrimSpace(method))
	if method == "" {
		method = "GET"
	}

	data, err := a.session.Do(ctx, method, path, nil, nil)
	if err != nil {
		a.recordError(ctx, "接口调用失败", err, map[string]interface{}{"method": method, "path": path})
		return err
	}
	if a.monitor != nil {
		a.monitor.RecordRequest(ctx, method, path, len(data))
	}

	return writeIndentedJSON(w, data)
}

// Overview 并发拉取资金与当日成交，全部成功后依次输出。
func (a *App) Overview(ctx context.Context, w io.Writer) error {
	if a.session == nil {
		return ErrNoSession
	}

	var (
		report account.Report
		trades []longport.Execution
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		r, err := a.accounts.FetchReport(gctx, "")
		if err != nil {
			return err
		}
		report = r
		return nil
	})
	g.Go(func() error {
		t, err := a.session.TodayExecutions(gctx, "")
		if err != nil {
			return fmt.Errorf("获取当日成交失败: %w", err)
		}
		trades = t
		return nil
	})
	if err := g.Wait(); err != nil {
		a.recordError(ctx, "获取账户概览失败", err, nil)
		return err
	}

	if a.monitor != nil {
		a.monitor.RecordBalance(ctx, "", report.Records)
	}

	if err := writeBalances(w, report.Raw, report.Records); err != nil {
		return err
	}
	return writeExecutions(w, trades)
}

// Serve 启动监控接口并阻塞直到 ctx 结束。
func (a *App) Serve(ctx context.Context) error {
	if a.monitor == nil {
		return errors.New("app: 监控未启用 (monitor.enabled=false)")
	}

	a.logger.Info("监控服务启动",
		zap.String("environment", a.cfg.App.Environment),
		zap.Int("port", a.cfg.Monitor.Port),
	)
	return serveMonitor(ctx, a.monitor, a.cfg.Monitor.Port, a.logger)
}

func (a *App) recordError(ctx context.Context, msg string, err error, fields map[string]interface{}) {
	if a.monitor == nil {
		return
	}
	a.monitor.RecordError(ctx, msg, err, fields)
}
