package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_FromFile(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
deriv:
  endpoint: "wss://test.example.com/websockets/v3"
  app_id: "9999"
  symbols:
    - frxEURUSD
    - R_50
log:
  level: debug
  file: logs/test.log
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	SetConfigPath(path)
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "wss://test.example.com/websockets/v3", cfg.Deriv.Endpoint)
	assert.Equal(t, "9999", cfg.Deriv.AppID)
	assert.Equal(t, []string{"frxEURUSD", "R_50"}, cfg.Deriv.Symbols)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "logs/test.log", cfg.LogFile)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	SetConfigPath(filepath.Join(t.TempDir(), "不存在.yaml"))
	cfg, err := Load()
	require.NoError(t, err, "配置文件缺失不应该是错误")

	assert.Equal(t, "wss://ws.derivws.com/websockets/v3", cfg.Deriv.Endpoint)
	assert.Equal(t, "1089", cfg.Deriv.AppID)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, []string{"R_100"}, cfg.Deriv.Symbols)
}

func TestLoad_EnvOverrides(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
deriv:
  endpoint: "wss://file.example.com/websockets/v3"
  app_id: "1111"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	t.Setenv("DERIV_ENDPOINT", "wss://env.example.com/websockets/v3")
	t.Setenv("DERIV_API_TOKEN", "env-token")

	SetConfigPath(path)
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "wss://env.example.com/websockets/v3", cfg.Deriv.Endpoint,
		"环境变量应该覆盖配置文件")
	assert.Equal(t, "1111", cfg.Deriv.AppID, "未设置的环境变量不应该覆盖")
	assert.Equal(t, "env-token", cfg.Deriv.APIToken, "凭证应该从环境变量读取")
}

func TestLoad_InvalidYAML(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("deriv: [这不是"), 0644))

	SetConfigPath(path)
	_, err := Load()
	assert.Error(t, err, "格式错误的配置文件应该返回错误")
}

func TestGet_CachesLoadedConfig(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	SetConfigPath(filepath.Join(t.TempDir(), "missing.yaml"))
	cfg1, err := Get()
	require.NoError(t, err)
	cfg2, err := Get()
	require.NoError(t, err)
	assert.Same(t, cfg1, cfg2, "Get 应该返回同一个配置实例")
}
