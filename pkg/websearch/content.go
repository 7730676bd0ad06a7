package websearch

import (
	"fmt"
	"time"

	"github.com/go-shiori/go-readability"

	"github.com/iWorld-y/opinion_radar/pkg/collector"
)

const (
	// 摘要短于该长度时尝试抓取全文
	minSnippetLen = 500
	// 正文截断上限，避免超出分析器上下文
	maxContentLen = 5000
	// 正文短于该长度视为无效条目
	minContentLen = 100

	fetchTimeout = 30 * time.Second
)

// refToItems 把一条检索引用转成原始条目。
// 摘要太短就用 readability 抓取正文，正文仍然太短则丢弃该条。
func refToItems(ref collector.SourceRef) ([]collector.RawItem, error) {
	content := ref.Snippet
	if len(content) < minSnippetLen {
		fetched, err := fetchAndCleanContent(ref.ID)
		if err == nil && len(fetched) > len(content) {
			content = fetched
		}
	}
	if len(content) > maxContentLen {
		content = content[:maxContentLen]
	}
	if len(content) < minContentLen {
		return nil, nil
	}

	return []collector.RawItem{{
		Text: content,
		Metadata: map[string]any{
			"title":        ref.Title,
			"url":          ref.ID,
			"published_at": ref.PublishedDate,
			"score":        ref.Score,
		},
	}}, nil
}

// fetchAndCleanContent 抓取网页并提取可读正文
func fetchAndCleanContent(url string) (string, error) {
	article, err := readability.FromURL(url, fetchTimeout)
	if err != nil {
		return "", fmt.Errorf("readability 抓取失败 [%s]: %w", url, err)
	}
	return article.TextContent, nil
}
