package cachepolicy

import "github.com/noghresod/shopsync/xerrors"

var (
	// ErrConfigNil 配置为空
	ErrConfigNil = xerrors.New("cachepolicy: config is nil")

	// ErrKeyEmpty 缓存 key 为空
	ErrKeyEmpty = xerrors.Wrap(xerrors.ErrInvalidInput, "cachepolicy: key is empty")

	// ErrPolicyNil 策略为空
	ErrPolicyNil = xerrors.Wrap(xerrors.ErrInvalidInput, "cachepolicy: policy is nil")

	// ErrInvalidPolicy 策略参数非法
	ErrInvalidPolicy = xerrors.Wrap(xerrors.ErrInvalidInput, "cachepolicy: invalid policy")
)
