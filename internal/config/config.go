package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	mapstructure "github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	defaultConfigPath = "configs/config.yaml"
	defaultDotenvPath = ".env"
	envPrefix         = "longport"
)

// Load 读取配置文件并结合环境变量返回 Config。
// path 为空时使用默认路径，默认文件不存在则仅依赖默认值与环境变量。
func Load(path string) (*Config, error) {
	if err := loadDotenv(defaultDotenvPath); err != nil {
		return nil, err
	}

	v := viper.New()

	explicit := path != ""
	if !explicit {
		path = defaultConfigPath
	}

	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetEnvPrefix(envPrefix)
	replacer := strings.NewReplacer(".", "_")
	v.SetEnvKeyReplacer(replacer)
	v.AutomaticEnv()

	if err := bindCredentials(v); err != nil {
		return nil, err
	}

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		missing := errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist)
		switch {
		case missing && explicit:
			return nil, fmt.Errorf("未找到配置文件 %q: %w", path, err)
		case !missing:
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// loadDotenv 将 .env 中的变量写入进程环境，不覆盖已存在的变量。
func loadDotenv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("读取 %s 失败: %w", path, err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("加载 %s 失败: %w", path, err)
	}
	return nil
}

func bindCredentials(v *viper.Viper) error {
	bindings := map[string]string{
		"longport.app_key":      EnvAppKey,
		"longport.app_secret":   EnvAppSecret,
		"longport.access_token": EnvAccessToken,
		"longport.http_url":     EnvHTTPURL,
	}
	for key, env := range bindings {
		if err := v.BindEnv(key, env); err != nil {
			return fmt.Errorf("绑定环境变量 %s 失败: %w", env, err)
		}
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.environment", "development")

	v.SetDefault("longport.app_key", "")
	v.SetDefault("longport.app_secret", "")
	v.SetDefault("longport.access_token", "")
	v.SetDefault("longport.http_url", "https://openapi.longportapp.com")
	v.SetDefault("longport.language", "en")
	v.SetDefault("longport.timeout", "15s")
	v.SetDefault("longport.retry.max_attempts", 3)
	v.SetDefault("longport.retry.min_delay", "500ms")
	v.SetDefault("longport.retry.max_delay", "5s")

	v.SetDefault("order.order_type", "LO")
	v.SetDefault("order.time_in_force", "Day")
	v.SetDefault("order.dry_run", false)

	v.SetDefault("database.path", "data/longport.db")
	v.SetDefault("database.max_open_conns", 4)
	v.SetDefault("database.max_idle_conns", 4)
	v.SetDefault("database.conn_max_lifetime", "1h")
	v.SetDefault("database.in_memory", false)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.encoding", "console")
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.output_paths", []string{"stderr"})
	v.SetDefault("logging.error_output_paths", []string{"stderr"})
	v.SetDefault("logging.file.path", "")
	v.SetDefault("logging.file.max_size_mb", 50)
	v.SetDefault("logging.file.max_backups", 5)
	v.SetDefault("logging.file.max_age_days", 14)
	v.SetDefault("logging.file.compress", true)

	v.SetDefault("monitor.enabled", true)
	v.SetDefault("monitor.port", 8089)
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}
