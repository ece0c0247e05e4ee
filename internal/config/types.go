package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/multierr"
)

// 凭证对应的环境变量名。
const (
	EnvAppKey      = "LONGPORT_APP_KEY"
	EnvAppSecret   = "LONGPORT_APP_SECRET"
	EnvAccessToken = "LONGPORT_ACCESS_TOKEN"
	EnvHTTPURL     = "LONGPORT_HTTP_URL"
)

// Config 聚合了系统运行所需的全部配置项。
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	LongPort LongPortConfig `mapstructure:"longport"`
	Order    OrderConfig    `mapstructure:"order"`
	Database DatabaseConfig `mapstructure:"database"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Monitor  MonitorConfig  `mapstructure:"monitor"`
}

// AppConfig 控制应用级参数。
type AppConfig struct {
	Environment string `mapstructure:"environment"`
}

// LongPortConfig 描述 OpenAPI 连接与凭证。
type LongPortConfig struct {
	AppKey      string        `mapstructure:"app_key"`
	AppSecret   string        `mapstructure:"app_secret"`
	AccessToken string        `mapstructure:"access_token"`
	HTTPURL     string        `mapstructure:"http_url"`
	Language    string        `mapstructure:"language"`
	Timeout     time.Duration `mapstructure:"timeout"`
	Retry       RetryConfig   `mapstructure:"retry"`
}

// RetryConfig 统一控制重试机制。
type RetryConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	MinDelay    time.Duration `mapstructure:"min_delay"`
	MaxDelay    time.Duration `mapstructure:"max_delay"`
}

// OrderConfig 为下单命令提供默认值。
type OrderConfig struct {
	OrderType   string `mapstructure:"order_type"`
	TimeInForce string `mapstructure:"time_in_force"`
	DryRun      bool   `mapstructure:"dry_run"`
}

// DatabaseConfig 管理数据库连接。
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	InMemory        bool          `mapstructure:"in_memory"`
}

// LoggingConfig 控制日志输出。
type LoggingConfig struct {
	Level            string      `mapstructure:"level"`
	Encoding         string      `mapstructure:"encoding"`
	Development      bool        `mapstructure:"development"`
	OutputPaths      []string    `mapstructure:"output_paths"`
	ErrorOutputPaths []string    `mapstructure:"error_output_paths"`
	File             FileLogging `mapstructure:"file"`
}

// FileLogging 配置滚动日志文件，Path 为空时不写文件。
type FileLogging struct {
	Path       string `mapstructure:"path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// MonitorConfig 控制事件记录与监控接口。
type MonitorConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// MissingCredentialsError 列出缺失的凭证环境变量。
type MissingCredentialsError struct {
	Vars []string
}

func (e *MissingCredentialsError) Error() string {
	return fmt.Sprintf("缺少必需的环境变量: %s", strings.Join(e.Vars, ", "))
}

// Missing 返回未配置的凭证对应的环境变量名，顺序固定。
func (c LongPortConfig) Missing() []string {
	var missing []string
	if strings.TrimSpace(c.AppKey) == "" {
		missing = append(missing, EnvAppKey)
	}
	if strings.TrimSpace(c.AppSecret) == "" {
		missing = append(missing, EnvAppSecret)
	}
	if strings.TrimSpace(c.AccessToken) == "" {
		missing = append(missing, EnvAccessToken)
	}
	return missing
}

// RequireCredentials 在凭证不完整时返回 *MissingCredentialsError。
func (c LongPortConfig) RequireCredentials() error {
	if missing := c.Missing(); len(missing) > 0 {
		return &MissingCredentialsError{Vars: missing}
	}
	return nil
}

// Validate 对配置进行基本校验，凭证由 RequireCredentials 单独检查。
func (c *Config) Validate() error {
	var err error

	if c.App.Environment == "" {
		err = multierr.Append(err, errors.New("app.environment 不能为空"))
	}
	if c.LongPort.HTTPURL == "" {
		err = multierr.Append(err, errors.New("longport.http_url 不能为空"))
	} else if !strings.HasPrefix(c.LongPort.HTTPURL, "http://") && !strings.HasPrefix(c.LongPort.HTTPURL, "https://") {
		err = multierr.Append(err, errors.New("longport.http_url 必须以 http:// 或 https:// 开头"))
	}
	if c.LongPort.Timeout <= 0 {
		err = multierr.Append(err, errors.New("longport.timeout 必须大于0"))
	}
	if c.LongPort.Retry.MaxAttempts <= 0 {
		err = multierr.Append(err, errors.New("longport.retry.max_attempts 必须大于0"))
	}
	if c.LongPort.Retry.MinDelay <= 0 || c.LongPort.Retry.MaxDelay <= 0 {
		err = multierr.Append(err, errors.New("longport.retry.delay 必须为正"))
	}
	if c.LongPort.Retry.MinDelay > c.LongPort.Retry.MaxDelay {
		err = multierr.Append(err, errors.New("longport.retry.min_delay 不能大于 max_delay"))
	}
	if c.Order.OrderType == "" {
		err = multierr.Append(err, errors.New("order.order_type 不能为空"))
	}
	if c.Order.TimeInForce == "" {
		err = multierr.Append(err, errors.New("order.time_in_force 不能为空"))
	}
	if c.Database.Path == "" && !c.Database.InMemory {
		err = multierr.Append(err, errors.New("database.path 不能为空"))
	}
	if c.Database.MaxOpenConns <= 0 {
		err = multierr.Append(err, errors.New("database.max_open_conns 必须大于0"))
	}
	if c.Database.MaxIdleConns < 0 {
		err = multierr.Append(err, errors.New("database.max_idle_conns 不能为负"))
	}
	if c.Database.ConnMaxLifetime < 0 {
		err = multierr.Append(err, errors.New("database.conn_max_lifetime 不能为负"))
	}
	if c.Logging.Level == "" {
		err = multierr.Append(err, errors.New("logging.level 不能为空"))
	}
	if c.Logging.Encoding == "" {
		err = multierr.Append(err, errors.New("logging.encoding 不能为空"))
	}
	if len(c.Logging.OutputPaths) == 0 {
		err = multierr.Append(err, errors.New("logging.output_paths 至少包含一个输出目标"))
	}
	if len(c.Logging.ErrorOutputPaths) == 0 {
		err = multierr.Append(err, errors.New("logging.error_output_paths 至少包含一个输出目标"))
	}
	if c.Logging.File.Path != "" && c.Logging.File.MaxSizeMB <= 0 {
		err = multierr.Append(err, errors.New("logging.file.max_size_mb 必须大于0"))
	}
	if c.Monitor.Port < 0 || c.Monitor.Port > 65535 {
		err = multierr.Append(err, errors.New("monitor.port 必须位于[0,65535]"))
	}

	if err != nil {
		return fmt.Errorf("配置校验失败: %w", err)
	}

	return nil
}
