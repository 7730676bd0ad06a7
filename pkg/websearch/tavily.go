// Package websearch 提供网页搜索类内容提供方（Tavily / SearXNG），
// 检索结果的正文不足时用 readability 抓取补全。
package websearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/iWorld-y/opinion_radar/pkg/collector"
	"github.com/iWorld-y/opinion_radar/pkg/model"
)

const tavilyBaseURL = "https://api.tavily.com/search"

// TavilyClient Tavily API 内容提供方
type TavilyClient struct {
	apiKey string
	client *http.Client
}

// NewTavilyClient 创建一个新的 Tavily 客户端
func NewTavilyClient(apiKey string) *TavilyClient {
	return &TavilyClient{
		apiKey: apiKey,
		client: http.DefaultClient,
	}
}

// Ensure TavilyClient implements collector.ContentProvider
var _ collector.ContentProvider = (*TavilyClient)(nil)

// tavilyRequest Tavily 搜索请求参数
type tavilyRequest struct {
	Query             string `json:"query"`
	SearchDepth       string `json:"search_depth,omitempty"` // basic or advanced
	Topic             string `json:"topic,omitempty"`        // general or news
	MaxResults        int    `json:"max_results,omitempty"`
	IncludeRawContent bool   `json:"include_raw_content,omitempty"`
}

// tavilyResponse Tavily 搜索响应
type tavilyResponse struct {
	Query   string         `json:"query"`
	Results []tavilyResult `json:"results"`
}

// tavilyResult 单个搜索结果
type tavilyResult struct {
	Title         string  `json:"title"`
	URL           string  `json:"url"`
	Content       string  `json:"content"`
	Score         float64 `json:"score"`
	PublishedDate string  `json:"published_date"`
}

// Source 实现 collector.ContentProvider
func (c *TavilyClient) Source() model.SourceTag {
	return model.SourceWebSearch
}

// Search 检索与话题相关的网页文章
func (c *TavilyClient) Search(ctx context.Context, query string, maxItems int) ([]collector.SourceRef, error) {
	if maxItems <= 0 {
		maxItems = 5
	}
	req := tavilyRequest{
		Query:       query,
		SearchDepth: "basic",
		Topic:       "general",
		MaxResults:  maxItems,
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request failed: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", tavilyBaseURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request failed: %w", err)
	}
	httpReq.Header.Add("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Add("Content-Type", "application/json")

	res, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("read body failed: %w", err)
	}
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tavily api error (status %d): %s", res.StatusCode, string(body))
	}

	var searchResp tavilyResponse
	if err := json.Unmarshal(body, &searchResp); err != nil {
		return nil, fmt.Errorf("unmarshal response failed: %w", err)
	}

	var refs []collector.SourceRef
	for _, r := range searchResp.Results {
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
func (c *TavilyClient) FetchItems(ctx context.Context, ref collector.SourceRef) ([]collector.RawItem, error) {
	return refToItems(ref)
}
