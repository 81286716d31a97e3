package db

import (
	"strings"
	"time"

	gormlogger "gorm.io/gorm/logger"

	"github.com/noghresod/shopsync/xerrors"
)

// Config DB 组件配置
type Config struct {
	// LogLevel SQL 日志级别：silent / error / warn / info (默认: warn)
	LogLevel string `mapstructure:"log_level" yaml:"log_level"`

	// SlowThreshold 慢查询阈值 (默认: 200ms)
	SlowThreshold time.Duration `mapstructure:"slow_threshold" yaml:"slow_threshold"`

	parsedLevel gormlogger.LogLevel
}

func (c *Config) setDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = "warn"
	}
	if c.SlowThreshold <= 0 {
		c.SlowThreshold = 200 * time.Millisecond
	}
}

func (c *Config) validate() error {
	switch strings.ToLower(c.LogLevel) {
	case "silent":
		c.parsedLevel = gormlogger.Silent
	case "error":
		c.parsedLevel = gormlogger.Error
	case "warn":
		c.parsedLevel = gormlogger.Warn
	case "info":
		c.parsedLevel = gormlogger.Info
	default:
		return xerrors.Wrapf(ErrInvalidConfig, "unsupported log level %q", c.LogLevel)
	}
	return nil
}
