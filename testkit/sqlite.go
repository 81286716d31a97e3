package testkit

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/noghresod/shopsync/connector"
)

// NewSQLiteConfig 返回独立命名的内存数据库配置，测试之间互不可见
func NewSQLiteConfig() *connector.SQLiteConfig {
	return &connector.SQLiteConfig{
		Name: "test-sqlite",
		Path: "file:" + NewID() + "?mode=memory&cache=shared",
	}
}

// NewSQLiteConnector 返回已连接的内存 SQLite 连接器，生命周期由 t.Cleanup 管理
func NewSQLiteConnector(t *testing.T) connector.SQLiteConnector {
	t.Helper()
	return connectSQLite(t, NewSQLiteConfig())
}

// NewPersistentSQLiteConnector 数据库文件位于 t.TempDir()
func NewPersistentSQLiteConnector(t *testing.T) connector.SQLiteConnector {
	t.Helper()
	return connectSQLite(t, &connector.SQLiteConfig{
		Name: "test-sqlite-file",
		Path: t.TempDir() + "/shopsync.db",
		WAL:  true,
	})
}

// NewSQLiteDB 返回原生 *gorm.DB
func NewSQLiteDB(t *testing.T) *gorm.DB {
	t.Helper()
	return NewSQLiteConnector(t).GetClient()
}

func connectSQLite(t *testing.T, cfg *connector.SQLiteConfig) connector.SQLiteConnector {
	t.Helper()
	conn, err := connector.NewSQLite(cfg, connector.WithLogger(NewLogger()))
	require.NoError(t, err, "failed to create sqlite connector")
	require.NoError(t, conn.Connect(context.Background()), "failed to connect to sqlite")

	t.Cleanup(func() {
		_ = conn.Close()
	})
	return conn
}
