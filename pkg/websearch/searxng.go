package websearch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/iWorld-y/opinion_radar/pkg/collector"
	"github.com/iWorld-y/opinion_radar/pkg/model"
)

// SearXNGClient 自建 SearXNG 实例的内容提供方
type SearXNGClient struct {
	baseURL string
	client  *http.Client
}

// NewSearXNGClient 创建一个新的 SearXNG 客户端
func NewSearXNGClient(baseURL string, timeout int) *SearXNGClient {
	t := time.Duration(timeout) * time.Second
	if t == 0 {
		t = 30 * time.Second
	}
	return &SearXNGClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: t},
	}
}

// Ensure SearXNGClient implements collector.ContentProvider
var _ collector.ContentProvider = (*SearXNGClient)(nil)

// searxngResponse SearXNG 响应结构
type searxngResponse struct {
	Query   string          `json:"query"`
	Results []searxngResult `json:"results"`
}

// searxngResult SearXNG 单条结果
type searxngResult struct {
	Title         string  `json:"title"`
	URL           string  `json:"url"`
	Content       string  `json:"content"`
	PublishedDate string  `json:"publishedDate"` // 字段名可能因版本而异
	Score         float64 `json:"score"`
}

// Source 实现 collector.ContentProvider
func (c *SearXNGClient) Source() model.SourceTag {
	return model.SourceWebSearch
}

// Search 执行搜索
func (c *SearXNGClient) Search(ctx context.Context, query string, maxItems int) ([]collector.SourceRef, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	u.Path = "/search"

	q := u.Query()
	q.Set("q", query)
	q.Set("format", "json")
	q.Set("categories", "general")
	u.RawQuery = q.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, "GET", u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request failed: %w", err)
	}
	// 添加 User-Agent 避免被简单的反爬虫策略拦截
	httpReq.Header.Set("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")

	res, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(res.Body)
		return nil, fmt.Errorf("searxng api error (status %d): %s", res.StatusCode, string(body))
	}

	var searchResp searxngResponse
	if err := json.NewDecoder(res.Body).Decode(&searchResp); err != nil {
		return nil, fmt.Errorf("decode response failed: %w", err)
	}

	refs := make([]collector.SourceRef, 0, len(searchResp.Results))
	for i, r := range searchResp.Results {
		if i >= maxItems && maxItems > 0 {
			break
		}
		refs = append(refs, collector.SourceRef{
			ID:            r.URL,
			Title:         r.Title,
			Snippet:       r.Content,
			PublishedDate: r.PublishedDate,
			Score:         r.Score,
		})
	}
	return refs, nil
}

// FetchItems 把一条检索结果转成原始条目，正文不足时抓取补全
func (c *SearXNGClient) FetchItems(ctx context.Context, ref collector.SourceRef) ([]collector.RawItem, error) {
	return refToItems(ref)
}
