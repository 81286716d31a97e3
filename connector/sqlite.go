package connector

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/noghresod/shopsync/clog"
	"github.com/noghresod/shopsync/xerrors"
)

type sqliteConnector struct {
	cfg     *SQLiteConfig
	db      *gorm.DB
	logger  clog.Logger
	healthy atomic.Bool
	mu      sync.RWMutex
}

// NewSQLite 创建 SQLite 连接器，实际连接在 Connect() 时建立
func NewSQLite(cfg *SQLiteConfig, opts ...Option) (SQLiteConnector, error) {
	if err := cfg.validate(); err != nil {
		return nil, xerrors.Wrap(err, "invalid sqlite config")
	}
	o := applyOptions(opts...)

	return &sqliteConnector{
		cfg:    cfg,
		logger: o.logger.With(clog.String("connector", "sqlite"), clog.String("name", cfg.Name)),
	}, nil
}

// dsn 在路径后追加 busy_timeout 和 journal_mode 参数
func (c *sqliteConnector) dsn() string {
	params := []string{fmt.Sprintf("_busy_timeout=%d", c.cfg.BusyTimeout.Milliseconds())}
	if c.cfg.WAL {
		params = append(params, "_journal_mode=WAL")
	}
	sep := "?"
	if strings.Contains(c.cfg.Path, "?") {
		sep = "&"
	}
	return c.cfg.Path + sep + strings.Join(params, "&")
}

func (c *sqliteConnector) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.db != nil {
		return nil
	}

	c.logger.Info("connecting to sqlite", clog.String("path", c.cfg.Path))

	// SQL 日志由 db 组件接管，这里保持静默
	db, err := gorm.Open(sqlite.Open(c.dsn()), &gorm.Config{
		Logger: gormlogger.Discard,
	})
	if err != nil {
		c.logger.Error("failed to open sqlite", clog.Error(err))
		return xerrors.Wrapf(ErrConnection, "sqlite connector[%s]: %v", c.cfg.Name, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return xerrors.Wrapf(ErrConnection, "sqlite connector[%s]: get db instance: %v", c.cfg.Name, err)
	}
	sqlDB.SetMaxOpenConns(c.cfg.MaxOpenConns)

	if err := sqlDB.PingContext(ctx); err != nil {
		c.logger.Error("failed to ping sqlite", clog.Error(err))
		_ = sqlDB.Close()
		return xerrors.Wrapf(ErrConnection, "sqlite connector[%s]: ping: %v", c.cfg.Name, err)
	}

	c.db = db
	c.healthy.Store(true)
	c.logger.Info("connected to sqlite", clog.String("path", c.cfg.Path), clog.Bool("wal", c.cfg.WAL))
	return nil
}

func (c *sqliteConnector) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.healthy.Store(false)
	if c.db == nil {
		return nil
	}

	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}
	if err := sqlDB.Close(); err != nil {
		c.logger.Error("failed to close sqlite", clog.Error(err))
		return err
	}

	c.db = nil
	c.logger.Info("sqlite connection closed")
	return nil
}

func (c *sqliteConnector) HealthCheck(ctx context.Context) error {
	c.mu.RLock()
	db := c.db
	c.mu.RUnlock()

	if db == nil {
		c.healthy.Store(false)
		return xerrors.Wrapf(ErrClientNil, "sqlite connector[%s]", c.cfg.Name)
	}

	sqlDB, err := db.DB()
	if err == nil {
		err = sqlDB.PingContext(ctx)
	}
	if err != nil {
		c.healthy.Store(false)
		c.logger.Warn("sqlite health check failed", clog.Error(err))
		return xerrors.Wrapf(ErrHealthCheck, "sqlite connector[%s]: %v", c.cfg.Name, err)
	}

	c.healthy.Store(true)
	return nil
}

func (c *sqliteConnector) IsHealthy() bool {
	return c.healthy.Load()
}

func (c *sqliteConnector) Name() string {
	return c.cfg.Name
}

func (c *sqliteConnector) GetClient() *gorm.DB {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.db
}
