// Package db 在 SQLite 连接器之上提供 GORM 数据库组件，作为 shopsync 的关系型本地缓存。
//
// 组件借用连接器的 *gorm.DB，不负责连接生命周期；在其上挂接：
//   - clog 适配的 SQL 日志（慢查询告警阈值可配）
//   - 可选的 OpenTelemetry 追踪插件（otelgorm）
//   - 启动时的表结构同步（AutoMigrate）
//
// 基本使用：
//
//	conn, _ := connector.NewSQLite(&cfg.SQLite, connector.WithLogger(logger))
//	defer conn.Close()
//	_ = conn.Connect(ctx)
//
//	database, _ := db.New(conn, &db.Config{SlowThreshold: 200 * time.Millisecond}, db.WithLogger(logger))
//	_ = database.AutoMigrate(ctx, &model.Product{}, &model.CartItem{})
//
//	err := database.Transaction(ctx, func(ctx context.Context, tx *gorm.DB) error {
//		return tx.Create(&item).Error
//	})
package db

import (
	"context"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"gorm.io/gorm"

	"github.com/noghresod/shopsync/clog"
	"github.com/noghresod/shopsync/connector"
	"github.com/noghresod/shopsync/xerrors"
)

// DB 数据库组件
type DB interface {
	// DB 返回绑定 ctx 的 *gorm.DB
	DB(ctx context.Context) *gorm.DB

	// Transaction 执行事务，fn 中的 tx 仅在事务内有效
	Transaction(ctx context.Context, fn func(ctx context.Context, tx *gorm.DB) error) error

	// AutoMigrate 同步表结构
	AutoMigrate(ctx context.Context, models ...any) error

	// Close 连接由连接器管理，这里不关闭
	Close() error
}

type database struct {
	client *gorm.DB
	logger clog.Logger
}

// New 创建数据库组件
func New(conn connector.SQLiteConnector, cfg *Config, opts ...Option) (DB, error) {
	if conn == nil {
		return nil, ErrConnectorRequired
	}
	if cfg == nil {
		cfg = &Config{}
	}
	cfg.setDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	opt := options{logger: clog.Discard()}
	for _, o := range opts {
		o(&opt)
	}

	base := conn.GetClient()
	if base == nil {
		return nil, xerrors.Wrapf(ErrNotConnected, "sqlite connector[%s]", conn.Name())
	}

	client := base.Session(&gorm.Session{
		Logger: newGormLogger(opt.logger, cfg.parsedLevel, cfg.SlowThreshold),
	})

	if opt.tracer != nil {
		plugin := otelgorm.NewPlugin(
			otelgorm.WithTracerProvider(opt.tracer),
			otelgorm.WithDBName(conn.Name()),
			otelgorm.WithoutQueryVariables(),
		)
		if err := client.Use(plugin); err != nil {
			return nil, xerrors.Wrap(err, "db: register otelgorm plugin")
		}
	}

	return &database{client: client, logger: opt.logger}, nil
}

func (d *database) DB(ctx context.Context) *gorm.DB {
	return d.client.WithContext(ctx)
}

func (d *database) Transaction(ctx context.Context, fn func(ctx context.Context, tx *gorm.DB) error) error {
	return d.client.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, tx)
	})
}

func (d *database) AutoMigrate(ctx context.Context, models ...any) error {
	if err := d.client.WithContext(ctx).AutoMigrate(models...); err != nil {
		return xerrors.WithCode(xerrors.Wrap(err, "db: auto migrate"), xerrors.CodeStorage)
	}
	d.logger.Info("schema synchronized", clog.Int("models", len(models)))
	return nil
}

func (d *database) Close() error {
	return nil
}
