package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"longport-trader/internal/app"
	"longport-trader/internal/config"
	"longport-trader/internal/execution"
	"longport-trader/internal/log"
	"longport-trader/internal/longport"
	"longport-trader/internal/store"
)

const usage = `Usage: longport [-config path] <command> [flags]

Commands:
  balance   查询账户资金并输出摘要
  order     提交委托
  request   调用任意 OpenAPI 接口并输出 JSON
  overview  并发查询资金与当日成交
  parse     离线解析资金调试文本
  serve     启动监控接口
`

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	global := flag.NewFlagSet("longport", flag.ContinueOnError)
	global.SetOutput(stderr)
	global.Usage = func() { fmt.Fprint(stderr, usage) }

	var configPath string
	global.StringVar(&configPath, "config", "", "配置文件路径，默认使用 configs/config.yaml")
	if err := global.Parse(args); err != nil {
		return 1
	}
	if global.NArg() == 0 {
		global.Usage()
		return 1
	}

	cmd, cmdArgs := global.Arg(0), global.Args()[1:]

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(stderr, "加载配置失败: %v\n", err)
		return 1
	}

	logger, err := log.NewLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(stderr, "初始化日志失败: %v\n", err)
		return 1
	}
	defer func(logger *zap.Logger) {
		_ = logger.Sync()
	}(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c := &cli{cfg: cfg, logger: logger, stdin: stdin, stdout: stdout, stderr: stderr}

	switch cmd {
	case "balance":
		return c.balance(ctx, cmdArgs)
	case "order":
		return c.order(ctx, cmdArgs)
	case "request":
		return c.request(ctx, cmdArgs)
	case "overview":
		return c.overview(ctx, cmdArgs)
	case "parse":
		return c.parse(cmdArgs)
	case "serve":
		return c.serve(ctx, cmdArgs)
	default:
		fmt.Fprintf(stderr, "未知命令 %q\n\n", cmd)
		global.Usage()
		return 1
	}
}

type cli struct {
	cfg    *config.Config
	logger *zap.Logger

	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

func (c *cli) flagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	return fs
}

func (c *cli) balance(ctx context.Context, args []string) int {
	fs := c.flagSet("balance")
	currency := fs.String("currency", "", "按币种查询，留空返回全部")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	return c.withApp(true, func(a *app.App) error {
		fmt.Fprintln(c.stdout, "Fetching account balance information...")
		if err := a.Balance(ctx, c.stdout, *currency); err != nil {
			return c.fail("fetching account balance", err)
		}
		return nil
	})
}

func (c *cli) order(ctx context.Context, args []string) int {
	fs := c.flagSet("order")
	symbol := fs.String("symbol", "", "证券代码，如 700.HK")
	side := fs.String("side", "", "Buy 或 Sell")
	orderType := fs.String("type", "", "订单类型，默认取配置 order.order_type")
	qty := fs.String("qty", "", "下单数量")
	price := fs.String("price", "", "委托价格，市价单留空")
	tif := fs.String("tif", "", "有效期，默认取配置 order.time_in_force")
	remark := fs.String("remark", "", "备注")
	dryRun := fs.Bool("dry-run", c.cfg.Order.DryRun, "只校验不提交")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	c.cfg.Order.DryRun = *dryRun

	plan := execution.OrderPlan{
		Symbol:      *symbol,
		OrderType:   *orderType,
		Side:        *side,
		TimeInForce: *tif,
		Remark:      *remark,
	}
	var err error
	if plan.Quantity, err = parseDecimalFlag("qty", *qty); err != nil {
		fmt.Fprintf(c.stderr, "Error: %v\n", err)
		return 1
	}
	if plan.Price, err = parseDecimalFlag("price", *price); err != nil {
		fmt.Fprintf(c.stderr, "Error: %v\n", err)
		return 1
	}

	return c.withApp(!*dryRun, func(a *app.App) error {
		if _, err := a.SubmitOrder(ctx, c.stdout, plan); err != nil {
			return c.fail("submitting order", err)
		}
		return nil
	})
}

func (c *cli) request(ctx context.Context, args []string) int {
	fs := c.flagSet("request")
	method := fs.String("method", "get", "HTTP 方法")
	path := fs.String("path", "", "接口路径，如 /v1/trade/execution/today")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if *path == "" {
		fmt.Fprintln(c.stderr, "Error: -path 不能为空")
		return 1
	}

	return c.withApp(true, func(a *app.App) error {
		if err := a.Request(ctx, c.stdout, *method, *path); err != nil {
			return c.fail("requesting "+*path, err)
		}
		return nil
	})
}

func (c *cli) overview(ctx context.Context, args []string) int {
	fs := c.flagSet("overview")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	return c.withApp(true, func(a *app.App) error {
		if err := a.Overview(ctx, c.stdout); err != nil {
			return c.fail("fetching account overview", err)
		}
		return nil
	})
}

func (c *cli) parse(args []string) int {
	fs := c.flagSet("parse")
	file := fs.String("file", "", "调试文本文件，留空读取标准输入")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	in := c.stdin
	if *file != "" {
		f, err := os.Open(*file)
		if err != nil {
			fmt.Fprintf(c.stderr, "Error opening %s: %v\n", *file, err)
			return 1
		}
		defer f.Close()
		in = f
	}

	if err := app.RenderReports(in, c.stdout, nil); err != nil {
		fmt.Fprintf(c.stderr, "Error parsing balances: %v\n", err)
		return 1
	}
	return 0
}

func (c *cli) serve(ctx context.Context, args []string) int {
	fs := c.flagSet("serve")
	port := fs.Int("port", c.cfg.Monitor.Port, "监听端口")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	c.cfg.Monitor.Port = *port

	return c.withApp(false, func(a *app.App) error {
		if err := a.Serve(ctx); err != nil {
			c.logger.Error("监控服务异常", zap.Error(err))
			return err
		}
		c.logger.Info("系统已安全退出")
		return nil
	})
}

// withApp 组装依赖后执行 fn，needSession 为 true 时先检查凭证。
func (c *cli) withApp(needSession bool, fn func(*app.App) error) int {
	var session app.Session
	if needSession {
		client, err := longport.NewClient(c.cfg.LongPort, c.logger)
		if err != nil {
			var missing *config.MissingCredentialsError
			if errors.As(err, &missing) {
				printMissing(c.stderr, missing.Vars)
				return 1
			}
			fmt.Fprintf(c.stderr, "Error loading configuration: %v\n", err)
			return 1
		}
		session = client
	}

	var sqliteStore *store.Store
	if c.cfg.Monitor.Enabled {
		s, err := store.NewSQLite(c.cfg.Database)
		if err != nil {
			c.logger.Error("初始化数据库失败", zap.Error(err))
			return 1
		}
		defer func() {
			if closeErr := s.Close(); closeErr != nil {
				c.logger.Warn("关闭数据库失败", zap.Error(closeErr))
			}
		}()
		sqliteStore = s
	}

	a, err := app.New(c.cfg, c.logger, sqliteStore, session)
	if err != nil {
		c.logger.Error("初始化应用失败", zap.Error(err))
		return 1
	}

	if err := fn(a); err != nil {
		return 1
	}
	return 0
}

// fail 输出面向用户的错误信息，凭证问题附带提示。
func (c *cli) fail(action string, err error) error {
	fmt.Fprintf(c.stderr, "Error %s: %v\n", action, err)
	if longport.IsAuthError(err) {
		fmt.Fprintln(c.stderr, "Authentication failed. Please check your API credentials.")
	}
	return err
}

func printMissing(w io.Writer, vars []string) {
	fmt.Fprintln(w, "Error: Missing required environment variables:")
	for _, v := range vars {
		fmt.Fprintf(w, "  - %s\n", v)
	}
	fmt.Fprintln(w, "\nPlease set them using:")
	for _, v := range vars {
		fmt.Fprintf(w, "  export %s=\"your_value_here\"\n", v)
	}
}

func parseDecimalFlag(name, value string) (decimal.Decimal, error) {
	if value == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("-%s 不是合法数字: %w", name, err)
	}
	return d, nil
}
