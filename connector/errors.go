package connector

import "github.com/noghresod/shopsync/xerrors"

// 连接器哨兵错误
var (
	ErrConfigNil   = xerrors.New("connector: config is nil")
	ErrConfig      = xerrors.Wrap(xerrors.ErrInvalidInput, "connector: invalid config")
	ErrConnection  = xerrors.WithCode(xerrors.New("connector: connection failed"), xerrors.CodeStorage)
	ErrClientNil   = xerrors.New("connector: client is nil")
	ErrHealthCheck = xerrors.New("connector: health check failed")
)
