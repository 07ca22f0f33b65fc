// Package config 加载应用配置：YAML 文件 + 环境变量覆盖
// 凭证（API token）优先从环境变量读取，避免写进配置文件
package config

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// DerivConfig Deriv 连接配置
type DerivConfig struct {
	Endpoint string   // WebSocket 端点 URL
	AppID    string   // 应用 ID
	APIToken string   // 授权 token（优先环境变量 DERIV_API_TOKEN）
	Symbols  []string // 默认订阅的品种列表
}

// Config 应用配置
type Config struct {
	Deriv    DerivConfig
	LogLevel string // 日志级别
	LogFile  string // 日志文件路径（可选）
}

var globalConfig *Config
var configFilePath string

// SetConfigPath 设置配置文件路径
func SetConfigPath(path string) {
	configFilePath = path
}

// GetConfigPath 获取配置文件路径
func GetConfigPath() string {
	return configFilePath
}

// ConfigFile 配置文件结构（YAML 解析用）
type ConfigFile struct {
	Deriv struct {
		Endpoint string   `yaml:"endpoint"`
		AppID    string   `yaml:"app_id"`
		APIToken string   `yaml:"api_token"`
		Symbols  []string `yaml:"symbols"`
	} `yaml:"deriv"`
	Log struct {
		Level string `yaml:"level"`
		File  string `yaml:"file"`
	} `yaml:"log"`
}

// Load 加载配置文件并应用环境变量覆盖
func Load() (*Config, error) {
	if globalConfig != nil {
		return globalConfig, nil
	}

	path := configFilePath
	if path == "" {
		path = "config.yaml"
	}

	var file ConfigFile
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, errors.Wrapf(err, "读取配置文件失败: %s", path)
		}
		// 配置文件缺失时全部使用默认值和环境变量
	} else {
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, errors.Wrapf(err, "解析配置文件失败: %s", path)
		}
	}

	cfg := &Config{
		Deriv: DerivConfig{
			Endpoint: file.Deriv.Endpoint,
			AppID:    file.Deriv.AppID,
			APIToken: file.Deriv.APIToken,
			Symbols:  file.Deriv.Symbols,
		},
		LogLevel: file.Log.Level,
		LogFile:  file.Log.File,
	}

	// 环境变量覆盖（凭证优先走环境变量）
	if v := os.Getenv("DERIV_ENDPOINT"); v != "" {
		cfg.Deriv.Endpoint = v
	}
	if v := os.Getenv("DERIV_APP_ID"); v != "" {
		cfg.Deriv.AppID = v
	}
	if v := os.Getenv("DERIV_API_TOKEN"); v != "" {
		cfg.Deriv.APIToken = v
	}

	// 默认值
	if cfg.Deriv.Endpoint == "" {
		cfg.Deriv.Endpoint = "wss://ws.derivws.com/websockets/v3"
	}
	if cfg.Deriv.AppID == "" {
		cfg.Deriv.AppID = "1089"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if len(cfg.Deriv.Symbols) == 0 {
		cfg.Deriv.Symbols = []string{"R_100"}
	}

	globalConfig = cfg
	return cfg, nil
}

// Get 返回已加载的全局配置（未加载时先加载）
func Get() (*Config, error) {
	if globalConfig != nil {
		return globalConfig, nil
	}
	return Load()
}

// Reset 清空已加载的配置（测试用）
func Reset() {
	globalConfig = nil
	configFilePath = ""
}
