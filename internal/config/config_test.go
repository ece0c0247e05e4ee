package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func clearCredentials(t *testing.T) {
	t.Helper()
	for _, env := range []string{EnvAppKey, EnvAppSecret, EnvAccessToken, EnvHTTPURL} {
		t.Setenv(env, "")
	}
}

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	chdir(t, t.TempDir())
	clearCredentials(t)
	t.Setenv(EnvAppKey, "key")
	t.Setenv(EnvAppSecret, "secret")
	t.Setenv(EnvAccessToken, "token")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.LongPort.AppKey != "key" || cfg.LongPort.AppSecret != "secret" || cfg.LongPort.AccessToken != "token" {
		t.Fatalf("credentials not read from env: %+v", cfg.LongPort)
	}
	if cfg.LongPort.HTTPURL != "https://openapi.longportapp.com" {
		t.Errorf("unexpected http_url %q", cfg.LongPort.HTTPURL)
	}
	if cfg.LongPort.Timeout != 15*time.Second {
		t.Errorf("unexpected timeout %v", cfg.LongPort.Timeout)
	}
	if cfg.Order.TimeInForce != "Day" || cfg.Order.OrderType != "LO" {
		t.Errorf("unexpected order defaults %+v", cfg.Order)
	}
	if err := cfg.LongPort.RequireCredentials(); err != nil {
		t.Errorf("expected complete credentials, got %v", err)
	}
}

func TestLoad_FileAndEnvOverride(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	clearCredentials(t)
	t.Setenv("LONGPORT_LOGGING_LEVEL", "debug")

	path := filepath.Join(dir, "config.yaml")
	content := `
longport:
  app_key: file-key
  timeout: 3s
  retry:
    max_attempts: 7
database:
  in_memory: true
monitor:
  port: 9000
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.LongPort.AppKey != "file-key" {
		t.Errorf("expected app_key from file, got %q", cfg.LongPort.AppKey)
	}
	if cfg.LongPort.Timeout != 3*time.Second || cfg.LongPort.Retry.MaxAttempts != 7 {
		t.Errorf("unexpected longport config %+v", cfg.LongPort)
	}
	if !cfg.Database.InMemory || cfg.Monitor.Port != 9000 {
		t.Errorf("unexpected database/monitor config %+v %+v", cfg.Database, cfg.Monitor)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected env override for logging.level, got %q", cfg.Logging.Level)
	}

	var missing *MissingCredentialsError
	if err := cfg.LongPort.RequireCredentials(); !errors.As(err, &missing) {
		t.Fatalf("expected MissingCredentialsError, got %v", err)
	}
	if strings.Join(missing.Vars, ",") != EnvAppSecret+","+EnvAccessToken {
		t.Errorf("unexpected missing vars %v", missing.Vars)
	}
}

func TestLoad_ExplicitFileMissing(t *testing.T) {
	chdir(t, t.TempDir())
	if _, err := Load("nope.yaml"); err == nil || !strings.Contains(err.Error(), "未找到配置文件") {
		t.Fatalf("expected missing file error, got %v", err)
	}
}

func TestLoad_Dotenv(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	clearCredentials(t)
	// t.Setenv 会在结束时恢复，这里先清空以便 .env 生效
	os.Unsetenv(EnvAppKey)

	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte(EnvAppKey+"=from-dotenv\n"), 0o600); err != nil {
		t.Fatalf("write .env: %v", err)
	}

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.LongPort.AppKey != "from-dotenv" {
		t.Errorf("expected app_key from .env, got %q", cfg.LongPort.AppKey)
	}
}

func TestValidate_AggregatesErrors(t *testing.T) {
	cfg := Config{}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"app.environment", "longport.http_url", "longport.timeout", "database.path", "logging.level"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("expected %q in %v", want, err)
		}
	}
}

func TestMissing_Order(t *testing.T) {
	got := LongPortConfig{AppSecret: "s"}.Missing()
	if len(got) != 2 || got[0] != EnvAppKey || got[1] != EnvAccessToken {
		t.Fatalf("unexpected missing list %v", got)
	}
	if (LongPortConfig{AppKey: "k", AppSecret: "s", AccessToken: "t"}).Missing() != nil {
		t.Fatal("expected nil when complete")
	}
}

// chdir 切换工作目录并在测试结束时恢复（等价于 Go 1.24 的 t.Chdir）。
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir %s: %v", dir, err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(prev); err != nil {
			t.Fatalf("restore wd %s: %v", prev, err)
		}
	})
}
