// Package youtube 基于 YouTube Data API v3 的内容提供方：
// 按话题检索视频，再抓取各视频的顶层评论。
package youtube

import (
	"context"
	"fmt"

	"google.golang.org/api/option"
	yt "google.golang.org/api/youtube/v3"

	"github.com/iWorld-y/opinion_radar/pkg/collector"
	"github.com/iWorld-y/opinion_radar/pkg/model"
)

// 单视频只取第一页顶层评论，不展开回复
const maxCommentsPerVideo = 100

// Client YouTube 内容提供方
type Client struct {
	service *yt.Service
}

// NewClient 用 API Key 创建 YouTube 客户端
func NewClient(ctx context.Context, apiKey string) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("youtube api key 未配置")
	}
	service, err := yt.NewService(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("初始化 youtube service 失败: %w", err)
	}
	return &Client{service: service}, nil
}

// Ensure Client implements collector.ContentProvider
var _ collector.ContentProvider = (*Client)(nil)

// Source 实现 collector.ContentProvider
func (c *Client) Source() model.SourceTag {
	return model.SourceYouTube
}

// Search 按话题检索视频，返回视频引用列表
func (c *Client) Search(ctx context.Context, query string, maxItems int) ([]collector.SourceRef, error) {
	resp, err := c.service.Search.List([]string{"snippet"}).
		Q(query).
		Type("video").
		MaxResults(int64(maxItems)).
		RelevanceLanguage("en").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("youtube 视频检索失败: %w", err)
	}
	return refsFromSearch(resp.Items), nil
}

// refsFromSearch 把检索结果映射为引用，残缺条目直接跳过
func refsFromSearch(items []*yt.SearchResult) []collector.SourceRef {
	var refs []collector.SourceRef
	for _, item := range items {
		if item.Id == nil || item.Id.VideoId == "" || item.Snippet == nil {
			continue
		}
		refs = append(refs, collector.SourceRef{
			ID:    item.Id.VideoId,
			Title: item.Snippet.Title,
		})
	}
	return refs
}

// FetchItems 抓取单个视频的第一页顶层评论
func (c *Client) FetchItems(ctx context.Context, ref collector.SourceRef) ([]collector.RawItem, error) {
	resp, err := c.service.CommentThreads.List([]string{"snippet"}).
		VideoId(ref.ID).
		MaxResults(maxCommentsPerVideo).
		TextFormat("plainText").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("抓取视频 [%s] 评论失败: %w", ref.ID, err)
	}

	var items []collector.RawItem
	for _, thread := range resp.Items {
		if thread.Snippet == nil || thread.Snippet.TopLevelComment == nil {
			continue
		}
		snippet := thread.Snippet.TopLevelComment.Snippet
		if snippet == nil {
			continue
		}
		items = append(items, collector.RawItem{
			Text: snippet.TextDisplay,
			Metadata: map[string]any{
				"like_count":   snippet.LikeCount,
				"published_at": snippet.PublishedAt,
				"video_title":  ref.Title,
				"is_reply":     false,
				"author_name":  snippet.AuthorDisplayName,
			},
		})
	}
	return items, nil
}
