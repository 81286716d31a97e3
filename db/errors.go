package db

import "github.com/noghresod/shopsync/xerrors"

var (
	// ErrInvalidConfig 配置无效
	ErrInvalidConfig = xerrors.Wrap(xerrors.ErrInvalidInput, "db: invalid config")

	// ErrConnectorRequired 未提供 SQLite 连接器
	ErrConnectorRequired = xerrors.New("db: sqlite connector is required")

	// ErrNotConnected 连接器尚未 Connect
	ErrNotConnected = xerrors.New("db: connector not connected")
)
