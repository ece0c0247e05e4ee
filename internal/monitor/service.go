package monitor

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"longport-trader/internal/balance"
	"longport-trader/internal/execution"
	"longport-trader/internal/store"
)

// ErrNoEvents 表示指定类型尚无事件。
var ErrNoEvents = errors.New("monitor: no events")

// Service 负责持久化监控事件。
type Service struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewService 初始化监控服务，创建所需表结构。
func NewService(store *store.Store, logger *zap.Logger) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("monitor: store 不能为空")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	if err := store.Migrate(context.Background(), migrations...); err != nil {
		return nil, fmt.Errorf("monitor: 初始化表失败: %w", err)
	}

	return &Service{
		db:     store.DB(),
		logger: logger,
	}, nil
}

var migrations = []store.Migration{
	{
		Name: "monitor_events_v1",
		SQL: `
CREATE TABLE IF NOT EXISTS monitor_events (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	event_type TEXT NOT NULL,
	payload TEXT NOT NULL,
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_monitor_events_type ON monitor_events(event_type);`,
	},
}

// Record 写入单个事件。
func (s *Service) Record(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event.Payload)
	if err != nil {
		return fmt.Errorf("monitor: 序列化事件失败: %w", err)
	}

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO monitor_events (event_type, payload, created_at) VALUES (?, ?, ?)`,
		string(event.Type), string(payload), event.Timestamp.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("monitor: 写入事件失败: %w", err)
	}

	return nil
}

// RecordBalance 记录资金查询结果及按币种汇总的可用资金。
func (s *Service) RecordBalance(ctx context.Context, currency string, records []balance.Record) {
	available := make(map[string]string)
	for ccy, amount := range balance.AvailableByCurrency(records) {
		available[ccy] = amount.String()
	}

	if err := s.Record(ctx, Event{
		Type:      EventBalance,
		Timestamp: time.Now().UTC(),
		Payload: BalancePayload{
			Currency:            currency,
			Records:             records,
			AvailableByCurrency: available,
		},
	}); err != nil {
		s.logger.Warn("记录资金事件失败", zap.Error(err))
	}
}

// RecordOrder 记录委托结果。
func (s *Service) RecordOrder(ctx context.Context, result execution.Result) {
	if err := s.Record(ctx, Event{
		Type:      EventOrder,
		Timestamp: time.Now().UTC(),
		Payload:   OrderPayload{Result: result},
	}); err != nil {
		s.logger.Warn("记录委托事件失败", zap.Error(err))
	}
}

// RecordRequest 记录原始请求。
func (s *Service) RecordRequest(ctx context.Context, method, path string, size int) {
	if err := s.Record(ctx, Event{
		Type:      EventRequest,
		Timestamp: time.Now().UTC(),
		Payload:   RequestPayload{Method: method, Path: path, Bytes: size},
	}); err != nil {
		s.logger.Warn("记录请求事件失败", zap.Error(err))
	}
}

// RecordError 记录异常。
func (s *Service) RecordError(ctx context.Context, msg string, err error, ctxMap map[string]interface{}) {
	payload := ErrorPayload{
		Message: msg,
		Context: ctxMap,
	}
	if err != nil {
		payload.Error = err.Error()
	}
	if recErr := s.Record(ctx, Event{
		Type:      EventError,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}); recErr != nil {
		s.logger.Warn("记录异常事件失败", zap.Error(recErr))
	}
}

// ListEvents 按类型检索最近事件，新事件在前。
func (s *Service) ListEvents(ctx context.Context, eventType EventType, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `SELECT event_type, payload, created_at FROM monitor_events`
	args := make([]interface{}, 0, 2)
	if eventType != "" {
		query += ` WHERE event_type = ?`
		args = append(args, string(eventType))
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("monitor: 查询事件失败: %w", err)
	}
	defer rows.Close()

	events := make([]Event, 0, limit)
	for rows.Next() {
		event, scanErr := scanEvent(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("monitor: 读取事件失败: %w", err)
	}

	return events, nil
}

// LatestEvent 返回指定类型的最新事件，没有时返回 ErrNoEvents。
func (s *Service) LatestEvent(ctx context.Context, eventType EventType) (Event, error) {
	events, err := s.ListEvents(ctx, eventType, 1)
	if err != nil {
		return Event{}, err
	}
	if len(events) == 0 {
		return Event{}, ErrNoEvents
	}
	return events[0], nil
}

func scanEvent(rows *sql.Rows) (Event, error) {
	var (
		typ     string
		payload string
		created string
	)
	if err := rows.Scan(&typ, &payload, &created); err != nil {
		return Event{}, fmt.Errorf("monitor: 解析事件失败: %w", err)
	}

	ts, err := time.Parse(time.RFC3339Nano, created)
	if err != nil {
		ts = time.Now().UTC()
	}

	return Event{
		Type:      EventType(typ),
		Timestamp: ts,
		Payload:   json.RawMessage(payload),
	}, nil
}
