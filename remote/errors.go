package remote

import (
	"fmt"
	"net/http"

	"github.com/noghresod/shopsync/xerrors"
)

var (
	// ErrConfigNil 配置为空
	ErrConfigNil = xerrors.New("remote: config is nil")

	// ErrInvalidConfig 配置无效
	ErrInvalidConfig = xerrors.Wrap(xerrors.ErrInvalidInput, "remote: invalid config")

	// ErrGuardOpen 传输层熔断打开，请求未发出
	ErrGuardOpen = xerrors.Wrap(xerrors.ErrUnavailable, "remote: host guard open")

	// ErrDecode 响应无法解析
	ErrDecode = xerrors.New("remote: decode response")
)

// StatusError 服务端返回的非 2xx 响应或 success=false 的信封
type StatusError struct {
	Method  string
	Path    string
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	return fmt.Sprintf("remote: %s %s: %d %s", e.Method, e.Path, e.Status, msg)
}

// Unwrap 映射到通用错误类别，便于 xerrors.IsNotFound / IsUnavailable 判断
func (e *StatusError) Unwrap() error {
	switch {
	case e.Status == http.StatusNotFound:
		return xerrors.ErrNotFound
	case e.Retryable():
		return xerrors.ErrUnavailable
	case e.Status >= 400:
		return xerrors.ErrInvalidInput
	default:
		return nil
	}
}

// Retryable 429 和 5xx 视为暂时性失败，计入熔断统计
func (e *StatusError) Retryable() bool {
	return e.Status == http.StatusTooManyRequests || e.Status >= 500
}
