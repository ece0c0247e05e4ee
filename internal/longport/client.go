package longport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"longport-trader/internal/config"
)

// Client 负责与 LongPort OpenAPI 网关交互，幂等请求带重试。
type Client struct {
	cfg    config.LongPortConfig
	logger *zap.Logger
	http   *resty.Client
	now    func() time.Time
}

// NewClient 使用凭证配置创建客户端。
func NewClient(cfg config.LongPortConfig, logger *zap.Logger) (*Client, error) {
	if err := cfg.RequireCredentials(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	base := strings.TrimSuffix(strings.TrimSpace(cfg.HTTPURL), "/")
	if base == "" {
		return nil, errors.New("longport: http_url 不能为空")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	rc := resty.New().
		SetBaseURL(base).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")
	if cfg.Language != "" {
		rc.SetHeader("Accept-Language", cfg.Language)
	}

	return &Client{
		cfg:    cfg,
		logger: logger,
		http:   rc,
		now:    time.Now,
	}, nil
}

// AccountBalance 查询账户资金，currency 为空时返回全部币种。
func (c *Client) AccountBalance(ctx context.Context, currency string) ([]AccountBalance, error) {
	query := url.Values{}
	if currency != "" {
		query.Set("currency", currency)
	}

	var data accountBalanceData
	if err := c.getJSON(ctx, "account_balance", "/v1/asset/account", query, &data); err != nil {
		return nil, err
	}
	if data.List == nil {
		return []AccountBalance{}, nil
	}
	return data.List, nil
}

// TodayExecutions 查询当日成交，symbol 为空时返回全部标的。
func (c *Client) TodayExecutions(ctx context.Context, symbol string) ([]Execution, error) {
	query := url.Values{}
	if symbol != "" {
		query.Set("symbol", symbol)
	}

	var data executionsData
	if err := c.getJSON(ctx, "today_executions", "/v1/trade/execution/today", query, &data); err != nil {
		return nil, err
	}
	if data.Trades == nil {
		return []Execution{}, nil
	}
	return data.Trades, nil
}

// SubmitOrder 提交委托。下单不是幂等操作，失败不重试。
func (c *Client) SubmitOrder(ctx context.Context, req SubmitOrderRequest) (SubmitOrderResponse, error) {
	var resp SubmitOrderResponse

	raw, err := c.send(ctx, http.MethodPost, "/v1/trade/order", nil, req)
	if err != nil {
		return resp, err
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return resp, fmt.Errorf("longport: 解析下单响应失败: %w", err)
	}
	if resp.OrderID == "" {
		return resp, errors.New("longport: 下单响应缺少 order_id")
	}
	return resp, nil
}

// Do 发送任意请求并返回响应中的 data 字段。path 可以携带查询串。
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, body any) (json.RawMessage, error) {
	method = strings.ToUpper(strings.TrimSpace(method))
	if method == "" {
		method = http.MethodGet
	}

	path, query, err := splitPath(path, query)
	if err != nil {
		return nil, err
	}

	if method != http.MethodGet {
		return c.send(ctx, method, path, query, body)
	}

	var raw json.RawMessage
	err = c.callWithRetry(ctx, "request "+path, func() error {
		data, sendErr := c.send(ctx, method, path, query, body)
		if sendErr != nil {
			return sendErr
		}
		raw = data
		return nil
	})
	return raw, err
}

func (c *Client) getJSON(ctx context.Context, operation, path string, query url.Values, out any) error {
	return c.callWithRetry(ctx, operation, func() error {
		raw, err := c.send(ctx, http.MethodGet, path, query, nil)
		if err != nil {
			return err
		}
		if len(raw) == 0 || string(raw) == "null" {
			return nil
		}
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("longport: 解析 %s 响应失败: %w", operation, err)
		}
		return nil
	})
}

func (c *Client) send(ctx context.Context, method, path string, query url.Values, body any) (json.RawMessage, error) {
	payload, err := encodeBody(body)
	if err != nil {
		return nil, err
	}

	rawQuery := query.Encode()
	ts := strconv.FormatFloat(float64(c.now().UnixMilli())/1000, 'f', 3, 64)
	requestID := uuid.NewString()

	req := c.http.R().
		SetContext(ctx).
		SetHeader("X-Api-Key", c.cfg.AppKey).
		SetHeader("Authorization", c.cfg.AccessToken).
		SetHeader("X-Timestamp", ts).
		SetHeader("X-Request-Id", requestID)
	if rawQuery != "" {
		req.SetQueryString(rawQuery)
	}
	if len(payload) > 0 {
		req.SetHeader("Content-Type", "application/json; charset=utf-8")
		req.SetBody(payload)
	}
	req.SetHeader("X-Api-Signature", sign(signInput{
		Method:      method,
		Path:        path,
		RawQuery:    rawQuery,
		AccessToken: c.cfg.AccessToken,
		AppKey:      c.cfg.AppKey,
		Timestamp:   ts,
		Body:        payload,
	}, c.cfg.AppSecret))

	start := time.Now()
	resp, err := req.Execute(method, path)
	if err != nil {
		return nil, fmt.Errorf("longport: %s %s 请求失败: %w", method, path, err)
	}

	c.logger.Debug("网关请求完成",
		zap.String("method", method),
		zap.String("path", path),
		zap.String("request_id", requestID),
		zap.Int("status", resp.StatusCode()),
		zap.Duration("latency", time.Since(start)),
	)

	return decodeEnvelope(resp.StatusCode(), resp.Header().Get("X-Trace-Id"), resp.Body())
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func decodeEnvelope(status int, traceID string, body []byte) (json.RawMessage, error) {
	var env envelope
	parseErr := json.Unmarshal(body, &env)

	if status < 200 || status >= 300 {
		apiErr := &APIError{Status: status, TraceID: traceID}
		if parseErr == nil {
			apiErr.Code = env.Code
			apiErr.Message = env.Message
		} else {
			apiErr.Message = strings.TrimSpace(string(body))
		}
		return nil, apiErr
	}

	if parseErr != nil {
		return nil, fmt.Errorf("longport: 解析响应失败: %w", parseErr)
	}
	if env.Code != 0 {
		return nil, &APIError{Status: status, Code: env.Code, Message: env.Message, TraceID: traceID}
	}
	return env.Data, nil
}

func encodeBody(body any) ([]byte, error) {
	switch b := body.(type) {
	case nil:
		return nil, nil
	case []byte:
		return b, nil
	case json.RawMessage:
		return b, nil
	case string:
		return []byte(b), nil
	default:
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("longport: 序列化请求体失败: %w", err)
		}
		return payload, nil
	}
}

func splitPath(path string, query url.Values) (string, url.Values, error) {
	path = strings.TrimSpace(path)
	if !strings.HasPrefix(path, "/") {
		return "", nil, fmt.Errorf("longport: 请求路径必须以 / 开头: %q", path)
	}

	merged := url.Values{}
	for k, vs := range query {
		merged[k] = append([]string(nil), vs...)
	}

	idx := strings.IndexByte(path, '?')
	if idx < 0 {
		return path, merged, nil
	}

	parsed, err := url.ParseQuery(path[idx+1:])
	if err != nil {
		return "", nil, fmt.Errorf("longport: 解析查询串失败: %w", err)
	}
	for k, vs := range parsed {
		merged[k] = append(merged[k], vs...)
	}
	return path[:idx], merged, nil
}

func (c *Client) callWithRetry(ctx context.Context, operation string, fn func() error) error {
	attempt := 0
	maxAttempts := c.cfg.Retry.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	delay := c.cfg.Retry.MinDelay
	if delay <= 0 {
		delay = 500 * time.Millisecond
	}
	maxDelay := c.cfg.Retry.MaxDelay
	if maxDelay <= 0 {
		maxDelay = 5 * time.Second
	}

	for {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		attempt++
		start := time.Now()
		err := fn()
		duration := time.Since(start)
		if err == nil {
			if attempt > 1 {
				c.logger.Info("网关调用重试后成功",
					zap.String("operation", operation),
					zap.Int("attempts", attempt),
					zap.Duration("latency", duration),
				)
			}
			return nil
		}

		if !IsRetryable(err) || attempt >= maxAttempts {
			c.logger.Error("网关调用失败",
				zap.String("operation", operation),
				zap.Int("attempts", attempt),
				zap.Duration("latency", duration),
				zap.Error(err),
			)
			return err
		}

		wait := delay
		if wait > maxDelay {
			wait = maxDelay
		}

		c.logger.Warn("网关调用失败，等待重试",
			zap.String("operation", operation),
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Error(err),
		)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		delay *= 2
		if delay > maxDelay {
			delay = maxDelay
		}
	}
}
