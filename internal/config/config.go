package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"RadialCore/pkg/logger"
	"RadialCore/pkg/plugin"
)

// 环境变量与默认路径。
const (
	EnvPrefix     = "RADIAL_"
	EnvConfigPath = "RADIAL_CONFIG"
	DefaultPath   = "configs/radial.yaml"
)

// Config 描述了宿主在启动阶段需要加载的全部配置。
type Config struct {
	Log           logger.Config        `yaml:"log" envPrefix:"LOG_"`
	Input         InputConfig          `yaml:"input"`
	Notifications NotificationConfig   `yaml:"notifications" envPrefix:"NOTIFY_"`
	Mods          []string             `yaml:"mods" env:"MODS" envSeparator:","`
	Plugins       plugin.ManagerConfig `yaml:"plugins"`
	Journal       JournalConfig        `yaml:"journal" envPrefix:"JOURNAL_"`
	Sink          SinkConfig           `yaml:"sink"`
	Metrics       MetricsConfig        `yaml:"metrics"`
	API           APIConfig            `yaml:"api"`
	Tracing       TracingConfig        `yaml:"tracing"`
	Alerts        AlertConfig          `yaml:"alerts"`
	Tick          TickConfig           `yaml:"tick"`
}

// InputConfig 描述菜单热键。
type InputConfig struct {
	Key      string `yaml:"key" env:"HOTKEY"`
	Modifier string `yaml:"modifier" env:"HOTKEY_MODIFIER"`
	HoldMode bool   `yaml:"holdMode" env:"HOLD_MODE"`
	Enabled  *bool  `yaml:"enabled"`
}

// IsEnabled 未显式配置时默认启用。
func (c InputConfig) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

// NotificationConfig 控制通知队列。
type NotificationConfig struct {
	MaxVisible int           `yaml:"maxVisible" env:"MAX_VISIBLE"`
	TTL        time.Duration `yaml:"ttl" env:"TTL"`
}

// JournalConfig 选择动作日志的存储后端。
type JournalConfig struct {
	Driver   string `yaml:"driver" env:"DRIVER"`
	DSN      string `yaml:"dsn" env:"DSN"`
	Capacity int    `yaml:"capacity" env:"CAPACITY"`
}

// SinkConfig 选择事件转发的目标。
type SinkConfig struct {
	Driver   string         `yaml:"driver" env:"SINK_DRIVER"`
	Topics   []string       `yaml:"topics" env:"SINK_TOPICS" envSeparator:","`
	Redis    RedisConfig    `yaml:"redis" envPrefix:"REDIS_"`
	RabbitMQ RabbitMQConfig `yaml:"rabbitmq" envPrefix:"RABBITMQ_"`
}

// RedisConfig 描述 Redis 列表目标。
type RedisConfig struct {
	Addr     string `yaml:"addr" env:"ADDR"`
	Password string `yaml:"password" env:"PASSWORD"`
	DB       int    `yaml:"db" env:"DB"`
	Key      string `yaml:"key" env:"KEY"`
}

// RabbitMQConfig 描述 RabbitMQ 队列目标。
type RabbitMQConfig struct {
	URL   string `yaml:"url" env:"URL"`
	Queue string `yaml:"queue" env:"QUEUE"`
}

// MetricsConfig 控制指标与调试 HTTP 服务，地址为空时不启动。
type MetricsConfig struct {
	Address string `yaml:"address" env:"METRICS_ADDR"`
}

// APIConfig 控制远程控制接口，地址为空时不启动。Token 为空时不校验身份。
type APIConfig struct {
	Address string `yaml:"address" env:"API_ADDR"`
	Token   string `yaml:"token" env:"API_TOKEN"`
}

// TracingConfig 控制 OTLP 追踪导出，端点为空时不导出。
type TracingConfig struct {
	Endpoint    string `yaml:"endpoint" env:"OTEL_ENDPOINT"`
	ServiceName string `yaml:"serviceName" env:"OTEL_SERVICE_NAME"`
}

// AlertConfig 控制插件告警。WebhookURL 为空时只写审计日志。
type AlertConfig struct {
	WebhookURL string `yaml:"webhookURL" env:"ALERT_WEBHOOK_URL"`
}

// TickConfig 控制无界面守护进程模拟的帧间隔。
type TickConfig struct {
	Interval time.Duration `yaml:"interval" env:"TICK_INTERVAL"`
}

// 支持的驱动。
const (
	JournalMemory = "memory"
	JournalMySQL  = "mysql"

	SinkNone     = "none"
	SinkMemory   = "memory"
	SinkRedis    = "redis"
	SinkRabbitMQ = "rabbitmq"
)

// ResolvePath 依次使用命令行参数、RADIAL_CONFIG 与默认路径。
func ResolvePath(flag string) string {
	if strings.TrimSpace(flag) != "" {
		return flag
	}
	if p := strings.TrimSpace(os.Getenv(EnvConfigPath)); p != "" {
		return p
	}
	return DefaultPath
}

// Load 解析指定路径的 YAML 配置文件并应用环境变量覆盖。文件不存在时只使用默认值。
func Load(path string) (*Config, error) {
	var cfg Config
	baseDir := "."
	if path != "" {
		baseDir = filepath.Dir(path)
		content, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		default:
			if err := yaml.Unmarshal(content, &cfg); err != nil {
				return nil, fmt.Errorf("解析配置失败: %w", err)
			}
		}
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("解析环境变量失败: %w", err)
	}

	cfg.applyDefaults(baseDir)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default 返回只包含默认值的配置。
func Default() *Config {
	var cfg Config
	cfg.applyDefaults(".")
	return &cfg
}

// applyDefaults 在用户未填写部分字段时设置合理的默认值。
func (c *Config) applyDefaults(baseDir string) {
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}

	if c.Input.Key == "" {
		c.Input.Key = "V"
	}
	if c.Input.Modifier == "" {
		c.Input.Modifier = "none"
	}

	if c.Notifications.MaxVisible <= 0 {
		c.Notifications.MaxVisible = 5
	}
	if c.Notifications.TTL <= 0 {
		c.Notifications.TTL = 3 * time.Second
	}

	if c.Plugins.PluginDir == "" {
		c.Plugins.PluginDir = filepath.Join(baseDir, "plugins")
	} else if !filepath.IsAbs(c.Plugins.PluginDir) {
		c.Plugins.PluginDir = filepath.Join(baseDir, c.Plugins.PluginDir)
	}
	for id, pc := range c.Plugins.Plugins {
		if pc.Path != "" && !filepath.IsAbs(pc.Path) {
			pc.Path = filepath.Join(c.Plugins.PluginDir, pc.Path)
		}
		if pc.Manifest != "" && !filepath.IsAbs(pc.Manifest) {
			pc.Manifest = filepath.Join(c.Plugins.PluginDir, pc.Manifest)
		}
		c.Plugins.Plugins[id] = pc
	}

	if c.Journal.Driver == "" {
		c.Journal.Driver = JournalMemory
	}
	if c.Journal.Capacity <= 0 {
		c.Journal.Capacity = 256
	}

	if c.Sink.Driver == "" {
		c.Sink.Driver = SinkNone
	}
	if c.Sink.Redis.Key == "" {
		c.Sink.Redis.Key = "radial:events"
	}
	if c.Sink.RabbitMQ.Queue == "" {
		c.Sink.RabbitMQ.Queue = "radial.events"
	}

	if c.Tracing.ServiceName == "" {
		c.Tracing.ServiceName = "radiald"
	}

	if c.Tick.Interval <= 0 {
		c.Tick.Interval = 16 * time.Millisecond
	}
}

// Validate 检查驱动取值以及驱动所需的连接参数。
func (c *Config) Validate() error {
	var errs []error
	switch c.Journal.Driver {
	case JournalMemory:
	case JournalMySQL:
		if c.Journal.DSN == "" {
			errs = append(errs, errors.New("journal.dsn 不能为空 (driver=mysql)"))
		}
	default:
		errs = append(errs, fmt.Errorf("未知的 journal.driver: %q", c.Journal.Driver))
	}

	switch c.Sink.Driver {
	case SinkNone, SinkMemory:
	case SinkRedis:
		if c.Sink.Redis.Addr == "" {
			errs = append(errs, errors.New("sink.redis.addr 不能为空 (driver=redis)"))
		}
	case SinkRabbitMQ:
		if c.Sink.RabbitMQ.URL == "" {
			errs = append(errs, errors.New("sink.rabbitmq.url 不能为空 (driver=rabbitmq)"))
		}
	default:
		errs = append(errs, fmt.Errorf("未知的 sink.driver: %q", c.Sink.Driver))
	}

	switch strings.ToLower(c.Input.Modifier) {
	case "none", "shift", "ctrl", "alt":
	default:
		errs = append(errs, fmt.Errorf("未知的 input.modifier: %q", c.Input.Modifier))
	}

	if err := c.Plugins.Validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
