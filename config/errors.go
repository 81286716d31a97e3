package config

import "github.com/noghresod/shopsync/xerrors"

// ErrValidationFailed 配置校验失败
var ErrValidationFailed = xerrors.WithCode(xerrors.New("config: validation failed"), xerrors.CodeInvalid)

// IsInvalidInput 检查错误是否为配置格式无效或校验失败
func IsInvalidInput(err error) bool {
	return xerrors.Is(err, ErrValidationFailed) || xerrors.Is(err, xerrors.ErrInvalidInput)
}

// WrapLoadError 包装加载错误
func WrapLoadError(err error, message string) error {
	if err == nil {
		return nil
	}
	return xerrors.Wrapf(err, "config: failed to load %s", message)
}
