package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"longport-trader/internal/config"
	"longport-trader/internal/execution"
	"longport-trader/internal/longport"
	"longport-trader/internal/monitor"
	"longport-trader/internal/store"
)

const sampleBalance = `AccountBalance { total_cash: 1759070010.72, max_finance_amount: 977582000, remaining_finance_amount: 977582000, risk_level: 1, margin_call: 0, currency: "HKD", cash_infos: [CashInfo { withdraw_cash: 97592.30, available_cash: 195902464.37, frozen_cash: 11579339.13, settling_cash: 0, currency: "HKD" }, CashInfo { withdraw_cash: 199893416.74, available_cash: 199893416.74, frozen_cash: 28723.76, settling_cash: -276806.51, currency: "USD" }], net_assets: 11111.12, init_margin: 0, maintenance_margin: 0, buy_power: 1759070010.72 }`

type fakeSession struct {
	mu sync.Mutex

	balances   []longport.AccountBalance
	balanceErr error
	trades     []longport.Execution
	tradesErr  error
	orders     []longport.SubmitOrderRequest
	orderErr   error
	raw        json.RawMessage
	calls      []string
}

func (f *fakeSession) AccountBalance(_ context.Context, currency string) ([]longport.AccountBalance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "balance:"+currency)
	return f.balances, f.balanceErr
}

func (f *fakeSession) TodayExecutions(_ context.Context, symbol string) ([]longport.Execution, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "executions:"+symbol)
	return f.trades, f.tradesErr
}

func (f *fakeSession) SubmitOrder(_ context.Context, req longport.SubmitOrderRequest) (longport.SubmitOrderResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orders = append(f.orders, req)
	if f.orderErr != nil {
		return longport.SubmitOrderResponse{}, f.orderErr
	}
	return longport.SubmitOrderResponse{OrderID: "709043056541253632"}, nil
}

func (f *fakeSession) Do(_ context.Context, method, path string, _ url.Values, _ any) (json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, method+" "+path)
	return f.raw, nil
}

func newTestApp(t *testing.T, session Session) (*App, *monitor.Service) {
	t.Helper()

	s, err := store.NewSQLite(config.DatabaseConfig{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	cfg := &config.Config{
		Order:   config.OrderConfig{OrderType: "LO", TimeInForce: "Day"},
		Monitor: config.MonitorConfig{Enabled: true},
	}
	a, err := New(cfg, nil, s, session)
	require.NoError(t, err)
	return a, a.monitor
}

func sampleAccountBalance(t *testing.T) longport.AccountBalance {
	t.Helper()
	var b longport.AccountBalance
	require.NoError(t, json.Unmarshal([]byte(`{
		"total_cash": "1000.50",
		"max_finance_amount": "0",
		"remaining_finance_amount": "0",
		"risk_level": 1,
		"margin_call": "0",
		"currency": "HKD",
		"net_assets": "1200.00",
		"init_margin": "0",
		"maintenance_margin": "0",
		"buy_power": "900",
		"cash_infos": [{"withdraw_cash": "10", "available_cash": "20", "frozen_cash": "0", "settling_cash": "0", "currency": "HKD"}]
	}`), &b))
	return b
}

func TestBalance_PrintsReportAndRecordsEvent(t *testing.T) {
	session := &fakeSession{balances: []longport.AccountBalance{sampleAccountBalance(t)}}
	a, svc := newTestApp(t, session)

	var out bytes.Buffer
	require.NoError(t, a.Balance(context.Background(), &out, "HKD"))

	text := out.String()
	assert.Contains(t, text, "--- Account Balance Information ---")
	assert.Contains(t, text, "AccountBalance { total_cash: 1000.50")
	assert.Contains(t, text, "Key Account Details:")
	assert.Contains(t, text, "Total Cash: 1000.50 HKD")
	assert.Contains(t, text, "Buy Power: 900 HKD")
	assert.Contains(t, text, "  HKD: Available: 20, Withdraw: 10, Frozen: 0, Settling: 0")
	assert.Equal(t, []string{"balance:HKD"}, session.calls)

	ev, err := svc.LatestEvent(context.Background(), monitor.EventBalance)
	require.NoError(t, err)
	var payload monitor.BalancePayload
	require.NoError(t, json.Unmarshal(ev.Payload.(json.RawMessage), &payload))
	assert.Equal(t, "20", payload.AvailableByCurrency["HKD"])
}

func TestBalance_Empty(t *testing.T) {
	a, _ := newTestApp(t, &fakeSession{})

	var out bytes.Buffer
	require.NoError(t, a.Balance(context.Background(), &out, ""))
	assert.Equal(t, "\n--- Account Balance Information ---\nNo account balance information found.\n", out.String())
}

func TestBalance_UpstreamFailure(t *testing.T) {
	upstream := &longport.APIError{Status: http.StatusUnauthorized, Message: "unauthorized"}
	a, svc := newTestApp(t, &fakeSession{balanceErr: upstream})

	var out bytes.Buffer
	err := a.Balance(context.Background(), &out, "")
	require.Error(t, err)
	assert.True(t, longport.IsAuthError(err))
	assert.Empty(t, out.String())

	_, err = svc.LatestEvent(context.Background(), monitor.EventError)
	assert.NoError(t, err)
}

func TestCommands_RequireSession(t *testing.T) {
	a, _ := newTestApp(t, nil)
	ctx := context.Background()

	assert.ErrorIs(t, a.Balance(ctx, &bytes.Buffer{}, ""), ErrNoSession)
	assert.ErrorIs(t, a.Overview(ctx, &bytes.Buffer{}), ErrNoSession)
	assert.ErrorIs(t, a.Request(ctx, &bytes.Buffer{}, "get", "/v1/x"), ErrNoSession)
	_, err := a.SubmitOrder(ctx, &bytes.Buffer{}, execution.OrderPlan{})
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestSubmitOrder_UsesConfiguredDefaults(t *testing.T) {
	session := &fakeSession{}
	a, svc := newTestApp(t, session)

	var out bytes.Buffer
	result, err := a.SubmitOrder(context.Background(), &out, execution.OrderPlan{
		Symbol:   "700.HK",
		Side:     "Buy",
		Quantity: decimal.NewFromInt(200),
		Price:    decimal.NewFromInt(300),
	})
	require.NoError(t, err)
	assert.Equal(t, "709043056541253632", result.OrderID)
	assert.Contains(t, out.String(), "order_id=709043056541253632")

	require.Len(t, session.orders, 1)
	assert.Equal(t, "LO", session.orders[0].OrderType)
	assert.Equal(t, "Day", session.orders[0].TimeInForce)

	events, err := svc.ListEvents(context.Background(), monitor.EventOrder, 10)
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestSubmitOrder_InvalidPlanNotSent(t *testing.T) {
	session := &fakeSession{}
	a, _ := newTestApp(t, session)

	_, err := a.SubmitOrder(context.Background(), &bytes.Buffer{}, execution.OrderPlan{Symbol: "700.HK", Side: "Buy"})
	require.Error(t, err)
	assert.Empty(t, session.orders)
}

func TestRequest_PrintsIndentedJSON(t *testing.T) {
	session := &fakeSession{raw: json.RawMessage(`{"trades":[{"symbol":"700.HK"}]}`)}
	a, _ := newTestApp(t, session)

	var out bytes.Buffer
	require.NoError(t, a.Request(context.Background(), &out, "get", "/v1/trade/execution/today"))
	assert.Equal(t, "{\n  \"trades\": [\n    {\n      \"symbol\": \"700.HK\"\n    }\n  ]\n}\n", out.String())
	assert.Equal(t, []string{"GET /v1/trade/execution/today"}, session.calls)
}

func TestOverview_PrintsBalanceAndTrades(t *testing.T) {
	session := &fakeSession{
		balances: []longport.AccountBalance{sampleAccountBalance(t)},
		trades: []longport.Execution{{
			OrderID: "1", TradeID: "2", Symbol: "700.HK", TradeDoneAt: "1700000000", Quantity: "100", Price: "300",
		}},
	}
	a, _ := newTestApp(t, session)

	var out bytes.Buffer
	require.NoError(t, a.Overview(context.Background(), &out))
	text := out.String()
	assert.Contains(t, text, "Total Cash: 1000.50 HKD")
	assert.Contains(t, text, "Today's Trades:")
	assert.Contains(t, text, "700.HK 100 @ 300")
	assert.Less(t, strings.Index(text, "Key Account Details:"), strings.Index(text, "Today's Trades:"))
}

func TestOverview_FailsWhenAnyFetchFails(t *testing.T) {
	session := &fakeSession{
		balances:  []longport.AccountBalance{sampleAccountBalance(t)},
		tradesErr: errors.New("network down"),
	}
	a, _ := newTestApp(t, session)

	var out bytes.Buffer
	err := a.Overview(context.Background(), &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "network down")
	assert.Empty(t, out.String())
}

func TestRenderReports_SkipsBlankLines(t *testing.T) {
	input := "\n" + sampleBalance + "\n   \n" + `AccountBalance { total_cash: 5, currency: "USD", cash_infos: [] }` + "\n"

	var out bytes.Buffer
	require.NoError(t, RenderReports(strings.NewReader(input), &out, nil))

	text := out.String()
	assert.Equal(t, 2, strings.Count(text, "Key Account Details:"))
	assert.Contains(t, text, "Total Cash: 1759070010.72 HKD")
	assert.Contains(t, text, "  USD: Available: 199893416.74, Withdraw: 199893416.74, Frozen: 28723.76, Settling: -276806.51")
	assert.Contains(t, text, "Total Cash: 5 USD")
	assert.Contains(t, text, "Net Assets: N/A USD")
	assert.Contains(t, text, "  No detailed cash information available")
}

func TestRenderReports_EmptyInput(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, RenderReports(strings.NewReader("\n\n"), &out, nil))
	assert.Contains(t, out.String(), "No account balance information found.")
}

func TestMonitorRouter(t *testing.T) {
	a, svc := newTestApp(t, &fakeSession{})
	router := newMonitorRouter(svc, a.logger)
	ctx := context.Background()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/balances/latest", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	svc.RecordRequest(ctx, "GET", "/v1/asset/account", 10)
	svc.RecordBalance(ctx, "USD", nil)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/balances/latest", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var latest struct {
		Type    string                 `json:"type"`
		Payload monitor.BalancePayload `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &latest))
	assert.Equal(t, "balance", latest.Type)
	assert.Equal(t, "USD", latest.Payload.Currency)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/events?type=REQUEST&limit=5000", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var events []map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &events))
	require.Len(t, events, 1)
	assert.Equal(t, "request", events[0]["type"])

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/events", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestServe_DisabledMonitor(t *testing.T) {
	a, err := New(&config.Config{}, nil, nil, nil)
	require.NoError(t, err)
	assert.Error(t, a.Serve(context.Background()))
}

func TestSubmitOrder_DryRunWithoutSession(t *testing.T) {
	s, err := store.NewSQLite(config.DatabaseConfig{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	cfg := &config.Config{
		Order:   config.OrderConfig{OrderType: "LO", TimeInForce: "Day", DryRun: true},
		Monitor: config.MonitorConfig{Enabled: true},
	}
	a, err := New(cfg, nil, s, nil)
	require.NoError(t, err)

	var out bytes.Buffer
	result, err := a.SubmitOrder(context.Background(), &out, execution.OrderPlan{
		Symbol:   "700.HK",
		Side:     "Buy",
		Quantity: decimal.NewFromInt(200),
		Price:    decimal.NewFromInt(300),
	})
	require.NoError(t, err)
	assert.False(t, result.Executed)
	assert.Equal(t, "Dry run, order not submitted: symbol=700.HK side=Buy type=LO quantity=200 price=300 tif=Day\n", out.String())
}
