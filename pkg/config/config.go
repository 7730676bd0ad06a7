package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// Config 项目配置结构体
type Config struct {
	LLM         LLMConfig         `yaml:"llm"`
	YouTube     YouTubeConfig     `yaml:"youtube"`
	Search      SearchConfig      `yaml:"search"`
	Sources     []string          `yaml:"sources"` // 启用的来源，按注册顺序参与合并排序
	Log         LogConfig         `yaml:"log"`
	Concurrency ConcurrencyConfig `yaml:"concurrency"`
	Server      ServerConfig      `yaml:"server"`
}

// LLMConfig LLM 相关配置
type LLMConfig struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
}

// YouTubeConfig YouTube Data API 配置
type YouTubeConfig struct {
	APIKey    string `yaml:"api_key"`
	MaxVideos int    `yaml:"max_videos"`
}

// SearchConfig 网页搜索相关配置
type SearchConfig struct {
	Provider   string        `yaml:"provider"`
	MaxResults int           `yaml:"max_results"`
	Tavily     TavilyConfig  `yaml:"tavily"`
	SearXNG    SearXNGConfig `yaml:"searxng"`
}

// TavilyConfig Tavily 配置
type TavilyConfig struct {
	APIKey string `yaml:"api_key"`
}

// SearXNGConfig SearXNG 配置
type SearXNGConfig struct {
	BaseURL string `yaml:"base_url"`
	Timeout int    `yaml:"timeout"`
}

// LogConfig 日志相关配置
type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// ConcurrencyConfig 并发与限流配置
type ConcurrencyConfig struct {
	QPS           int `yaml:"qps"`
	RPM           int `yaml:"rpm"`
	SourceTimeout int `yaml:"source_timeout"` // 单来源流水线超时（秒）
}

// ServerConfig HTTP 服务配置（-serve 模式）
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// LoadConfig 从指定路径加载配置，并用环境变量补全密钥类字段
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.applyEnv()
	cfg.applyDefaults()
	return &cfg, nil
}

// applyEnv 密钥优先取环境变量，便于配置文件入库时不带敏感信息
func (c *Config) applyEnv() {
	if v := os.Getenv("LLM_API_KEY"); v != "" {
		c.LLM.APIKey = v
	}
	if v := os.Getenv("UTUBE_API_KEY"); v != "" {
		c.YouTube.APIKey = v
	}
	if v := os.Getenv("TAVILY_API_KEY"); v != "" {
		c.Search.Tavily.APIKey = v
	}
}

func (c *Config) applyDefaults() {
	if c.YouTube.MaxVideos <= 0 {
		c.YouTube.MaxVideos = 5
	}
	if c.Search.MaxResults <= 0 {
		c.Search.MaxResults = 10
	}
	if len(c.Sources) == 0 {
		c.Sources = []string{"youtube", "google_search"}
	}
	if c.Concurrency.QPS <= 0 {
		c.Concurrency.QPS = 1
	}
	if c.Concurrency.RPM <= 0 {
		c.Concurrency.RPM = 30
	}
	if c.Concurrency.SourceTimeout <= 0 {
		c.Concurrency.SourceTimeout = 60
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
}
