package websearch

import (
	"fmt"

	"github.com/iWorld-y/opinion_radar/pkg/collector"
	"github.com/iWorld-y/opinion_radar/pkg/config"
)

// NewProvider 根据配置创建网页搜索提供方
func NewProvider(cfg *config.SearchConfig) (collector.ContentProvider, error) {
	provider := cfg.Provider
	if provider == "" {
		// 默认回退逻辑：有 tavily key 就用 tavily
		if cfg.Tavily.APIKey != "" {
			provider = "tavily"
		} else {
			return nil, fmt.Errorf("search provider not configured")
		}
	}

	switch provider {
	case "tavily":
		if cfg.Tavily.APIKey == "" {
			return nil, fmt.Errorf("tavily api key is missing")
		}
		return NewTavilyClient(cfg.Tavily.APIKey), nil

	case "searxng":
		if cfg.SearXNG.BaseURL == "" {
			return nil, fmt.Errorf("searxng base url is missing")
		}
		return NewSearXNGClient(cfg.SearXNG.BaseURL, cfg.SearXNG.Timeout), nil

	default:
		return nil, fmt.Errorf("unknown search provider: %s", provider)
	}
}
