package longport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
)

var (
	// ErrRateLimited 表示触发网关限流。
	ErrRateLimited = errors.New("longport: rate limited")
)

// APIError 描述网关返回的业务或 HTTP 错误。
type APIError struct {
	Status  int
	Code    int
	Message string
	TraceID string
}

func (e *APIError) Error() string {
	msg := strings.TrimSpace(e.Message)
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	if e.TraceID != "" {
		return fmt.Sprintf("longport: status=%d code=%d trace=%s: %s", e.Status, e.Code, e.TraceID, msg)
	}
	return fmt.Sprintf("longport: status=%d code=%d: %s", e.Status, e.Code, msg)
}

// Is 使 errors.Is(err, ErrRateLimited) 对 429 响应成立。
func (e *APIError) Is(target error) bool {
	return target == ErrRateLimited && e.Status == http.StatusTooManyRequests
}

var authHints = []string{"authentication", "unauthorized", "token", "signature", "app key", "app_key"}

// IsAuthError 判断错误是否源于凭证或签名问题。
func IsAuthError(err error) bool {
	if err == nil {
		return false
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		if apiErr.Status == http.StatusUnauthorized || apiErr.Status == http.StatusForbidden {
			return true
		}
	}

	msg := strings.ToLower(err.Error())
	for _, hint := range authHints {
		if strings.Contains(msg, hint) {
			return true
		}
	}
	return false
}

// IsRetryable 判断错误是否可重试。
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status == http.StatusTooManyRequests || apiErr.Status >= http.StatusInternalServerError
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}
