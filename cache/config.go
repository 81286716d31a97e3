package cache

// 缓存模式
const (
	ModeStandalone  = "standalone"
	ModeDistributed = "distributed"
)

// Config 缓存组件配置
type Config struct {
	// Mode "standalone" | "distributed" (默认 "standalone")
	Mode string `mapstructure:"mode" yaml:"mode"`

	// Prefix 全局 key 前缀，如 "shopsync:"
	Prefix string `mapstructure:"prefix" yaml:"prefix"`

	// Serializer "msgpack" | "json" (默认 "msgpack")
	Serializer string `mapstructure:"serializer" yaml:"serializer"`

	// Standalone 单机缓存配置
	Standalone StandaloneConfig `mapstructure:"standalone" yaml:"standalone"`
}

// StandaloneConfig 单机缓存配置
type StandaloneConfig struct {
	// Capacity 最大条目数 (默认 10000)
	Capacity int `mapstructure:"capacity" yaml:"capacity"`
}

func (c *Config) setDefaults() {
	if c.Mode == "" {
		c.Mode = ModeStandalone
	}
	if c.Serializer == "" {
		c.Serializer = "msgpack"
	}
	if c.Standalone.Capacity <= 0 {
		c.Standalone.Capacity = 10000
	}
}
