package clog

import (
	"fmt"
	"strings"
)

// timeFormat 日志时间格式，毫秒精度
const timeFormat = "2006-01-02T15:04:05.000Z07:00"

// Config 日志配置结构
//
//	Level:  日志级别 (debug|info|warn|error|fatal)
//	Format: 输出格式 (json|console)
//	Output: 输出目标 (stdout|stderr|<文件路径>)
//
// Output 为文件路径时，通过 Rotation 控制滚动策略。
//
// 示例：
//
//	config := &clog.Config{
//	    Level:  "info",
//	    Format: "json",
//	    Output: "/var/log/shopsync/sync.log",
//	    Rotation: clog.RotationConfig{MaxSizeMB: 50, MaxBackups: 5},
//	}
type Config struct {
	Level      string         `json:"level" yaml:"level" mapstructure:"level"`
	Format     string         `json:"format" yaml:"format" mapstructure:"format"`
	Output     string         `json:"output" yaml:"output" mapstructure:"output"`
	AddSource  bool           `json:"add_source" yaml:"add_source" mapstructure:"add_source"`
	SourceRoot string         `json:"source_root" yaml:"source_root" mapstructure:"source_root"`
	Rotation   RotationConfig `json:"rotation" yaml:"rotation" mapstructure:"rotation"`
}

// RotationConfig 文件输出的滚动配置，对 stdout/stderr 无效
type RotationConfig struct {
	MaxSizeMB  int  `json:"max_size_mb" yaml:"max_size_mb" mapstructure:"max_size_mb"`
	MaxBackups int  `json:"max_backups" yaml:"max_backups" mapstructure:"max_backups"`
	MaxAgeDays int  `json:"max_age_days" yaml:"max_age_days" mapstructure:"max_age_days"`
	Compress   bool `json:"compress" yaml:"compress" mapstructure:"compress"`
}

// validate 为空值设置默认值并检查 Level 与 Format
func (c *Config) validate() error {
	if c.Level == "" {
		c.Level = "info"
	}
	if c.Format == "" {
		c.Format = "console"
	}
	if c.Output == "" {
		c.Output = "stdout"
	}
	if c.Rotation.MaxSizeMB <= 0 {
		c.Rotation.MaxSizeMB = 100
	}

	if _, err := ParseLevel(c.Level); err != nil {
		return err
	}
	format := strings.ToLower(c.Format)
	if format != "json" && format != "console" {
		return fmt.Errorf("invalid format: %s, must be json or console", c.Format)
	}
	return nil
}
