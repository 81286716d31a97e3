// Package connector 管理 shopsync 本地缓存所用的底层连接：SQLite（关系型缓存）和 Redis（共享 KV 缓存）。
//
// 约定：
//   - NewXXX() 只创建连接器，Connect() 时才建立连接，Connect 幂等
//   - Connector 拥有连接的生命周期，db、cache 等组件只借用客户端，不调用 Close()
//   - 应用层按 LIFO 顺序释放：先关闭组件，再关闭 Connector
//
// 基本使用：
//
//	conn, err := connector.NewSQLite(&connector.SQLiteConfig{Path: "shopsync.db"}, connector.WithLogger(logger))
//	if err != nil {
//		return err
//	}
//	defer conn.Close()
//	if err := conn.Connect(ctx); err != nil {
//		return err
//	}
//	gdb := conn.GetClient()
package connector

import (
	"context"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Connector 所有连接器的通用行为，方法并发安全
type Connector interface {
	// Connect 建立连接，幂等
	Connect(ctx context.Context) error

	// Close 关闭连接，幂等
	Close() error

	// HealthCheck 主动检查连接并更新 IsHealthy 的缓存结果
	HealthCheck(ctx context.Context) error

	// IsHealthy 返回最近一次检查的结果，不阻塞
	IsHealthy() bool

	// Name 连接器实例名称，用于日志
	Name() string
}

// TypedConnector 提供类型安全的客户端访问
type TypedConnector[T any] interface {
	Connector

	// GetClient 返回底层客户端，Connect 之前或 Close 之后可能为 nil
	GetClient() T
}

// RedisConnector Redis 连接器
type RedisConnector interface {
	TypedConnector[*redis.Client]
}

// SQLiteConnector SQLite 连接器，基于 GORM
type SQLiteConnector interface {
	TypedConnector[*gorm.DB]
}
