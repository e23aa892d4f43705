package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
)

// Config 聚合客户端与本地 fake API 的配置项。
type Config struct {
	API     APIConfig
	Storage StorageConfig
	Log     LogConfig
	Server  ServerConfig
	AI      AIConfig
}

// APIConfig describes how the client reaches the chat backend.
type APIConfig struct {
	BaseURL          string        `env:"GST_API_BASE" envDefault:"http://localhost:8001"`
	Timeout          time.Duration `env:"GST_HTTP_TIMEOUT" envDefault:"15s"`
	HandshakeTimeout time.Duration `env:"GST_WS_HANDSHAKE_TIMEOUT" envDefault:"10s"`
}

// StorageConfig locates the client's local storage.
type StorageConfig struct {
	Dir string `env:"GST_STATE_DIR"`
}

// LogConfig 描述日志输出。
type LogConfig struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Pretty bool   `env:"LOG_PRETTY" envDefault:"true"`
}

// ServerConfig 描述 fake API 的 HTTP 服务配置。
type ServerConfig struct {
	Addr     string
	Secret   string        `env:"FAKEAPI_SECRET" envDefault:"dev-secret-change-me"`
	TokenTTL time.Duration `env:"FAKEAPI_TOKEN_TTL" envDefault:"24h"`
}

// AIConfig 描述 fake API 可选的大模型回复配置。
type AIConfig struct {
	APIKey      string `env:"ARK_API_KEY"`
	AccessKey   string `env:"ARK_ACCESS_KEY"`
	SecretKey   string `env:"ARK_SECRET_KEY"`
	Model       string `env:"Model"`
	BaseURL     string `env:"ARK_BASE_URL" envDefault:"https://ark.cn-beijing.volces.com/api/v3"`
	Region      string `env:"ARK_REGION" envDefault:"cn-beijing"`
	Temperature *float64
	MaxTokens   *int
}

// Load 从环境变量加载配置。
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	server, err := loadServerAddr()
	if err != nil {
		return nil, err
	}
	cfg.Server.Addr = server

	if cfg.Storage.Dir == "" {
		cfg.Storage.Dir = defaultStateDir()
	}

	temperature, err := parseOptionalFloatEnv("ARK_TEMPERATURE")
	if err != nil {
		return nil, err
	}
	maxTokens, err := parseOptionalIntEnv("ARK_MAX_TOKENS")
	if err != nil {
		return nil, err
	}
	cfg.AI.Temperature = temperature
	cfg.AI.MaxTokens = maxTokens

	cfg.API.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.API.BaseURL), "/")
	if cfg.API.BaseURL == "" {
		return nil, fmt.Errorf("GST_API_BASE must not be empty")
	}

	return &cfg, nil
}

// loadServerAddr 解析 fake API 监听地址。
func loadServerAddr() (string, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8001"
	}

	if strings.Contains(port, ":") {
		// 允许用户直接传入 ":8001" 或 "127.0.0.1:8001"。
		return port, nil
	}

	if strings.Contains(port, " ") {
		return "", fmt.Errorf("invalid PORT value: %q", port)
	}

	return ":" + port, nil
}

func defaultStateDir() string {
	if dir, err := os.UserConfigDir(); err == nil && dir != "" {
		return filepath.Join(dir, "gst-chat")
	}
	return filepath.Join(os.TempDir(), "gst-chat")
}

// Enabled 表示是否提供了必需的密钥。
func (c AIConfig) Enabled() bool {
	return c.Model != "" && (c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != ""))
}

// NewChatModel 使用配置创建一个模型实例。
func (c AIConfig) NewChatModel(ctx context.Context) (model.ChatModel, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("Ark 凭证或模型配置缺失，至少提供 ARK_API_KEY + Model 或 AK/SK 组合")
	}

	var temperature *float32
	if c.Temperature != nil {
		val := float32(*c.Temperature)
		temperature = &val
	}

	cfg := &ark.ChatModelConfig{
		BaseURL:     c.BaseURL,
		Region:      c.Region,
		APIKey:      c.APIKey,
		AccessKey:   c.AccessKey,
		SecretKey:   c.SecretKey,
		Model:       c.Model,
		MaxTokens:   c.MaxTokens,
		Temperature: temperature,
	}

	return ark.NewChatModel(ctx, cfg)
}

func parseOptionalFloatEnv(key string) (*float64, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}
