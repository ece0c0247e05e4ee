package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"longport-trader/internal/balance"
	"longport-trader/internal/config"
	"longport-trader/internal/execution"
	"longport-trader/internal/store"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	s, err := store.NewSQLite(config.DatabaseConfig{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	svc, err := NewService(s, nil)
	require.NoError(t, err)
	return svc
}

func TestNewService_RequiresStore(t *testing.T) {
	_, err := NewService(nil, nil)
	require.Error(t, err)
}

func TestRecordBalance_AggregatesAvailable(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	records := []balance.Record{{
		Currency:  "HKD",
		TotalCash: "1000",
		CashInfos: []balance.CashInfo{
			{AvailableCash: "10.5", Currency: "HKD"},
			{AvailableCash: "2", Currency: "USD"},
		},
	}}
	svc.RecordBalance(ctx, "HKD", records)

	ev, err := svc.LatestEvent(ctx, EventBalance)
	require.NoError(t, err)
	assert.Equal(t, EventBalance, ev.Type)

	var payload BalancePayload
	require.NoError(t, json.Unmarshal(ev.Payload.(json.RawMessage), &payload))
	assert.Equal(t, "HKD", payload.Currency)
	require.Len(t, payload.Records, 1)
	assert.Equal(t, "1000", payload.Records[0].TotalCash)
	assert.Equal(t, map[string]string{"HKD": "10.5", "USD": "2"}, payload.AvailableByCurrency)
}

func TestListEvents_FilterAndOrder(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	svc.RecordRequest(ctx, "GET", "/v1/trade/execution/today", 12)
	svc.RecordOrder(ctx, execution.Result{
		OrderID:  "1",
		Executed: true,
		Order:    execution.OrderRequest{Symbol: "700.HK", Quantity: decimal.NewFromInt(100)},
	})
	svc.RecordError(ctx, "下单失败", errors.New("boom"), map[string]interface{}{"symbol": "700.HK"})
	svc.RecordRequest(ctx, "POST", "/v1/trade/order", 30)

	all, err := svc.ListEvents(ctx, "", 10)
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, EventRequest, all[0].Type)
	assert.Equal(t, EventError, all[1].Type)
	assert.Equal(t, EventOrder, all[2].Type)

	requests, err := svc.ListEvents(ctx, EventRequest, 10)
	require.NoError(t, err)
	require.Len(t, requests, 2)

	var latest RequestPayload
	require.NoError(t, json.Unmarshal(requests[0].Payload.(json.RawMessage), &latest))
	assert.Equal(t, RequestPayload{Method: "POST", Path: "/v1/trade/order", Bytes: 30}, latest)

	limited, err := svc.ListEvents(ctx, "", 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestLatestEvent_NoEvents(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.LatestEvent(context.Background(), EventBalance)
	assert.ErrorIs(t, err, ErrNoEvents)
}
