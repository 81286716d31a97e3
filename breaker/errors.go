package breaker

import "github.com/noghresod/shopsync/xerrors"

var (
	// ErrConfigNil 配置为空
	ErrConfigNil = xerrors.New("breaker: config is nil")

	// ErrInvalidConfig 配置取值非法
	ErrInvalidConfig = xerrors.WithCode(xerrors.ErrInvalidInput, xerrors.CodeInvalid)

	// ErrOpenState 熔断器拒绝了请求（Open，或 HalfOpen 探测名额已满）
	ErrOpenState = xerrors.WithCode(xerrors.Wrap(xerrors.ErrUnavailable, "breaker: circuit breaker is open"), xerrors.CodeUnavailable)
)

func wrapInvalid(msg string) error {
	return xerrors.Wrapf(ErrInvalidConfig, "breaker: %s", msg)
}
