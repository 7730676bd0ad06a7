// Package collector 定义内容提供方契约，并把原始条目映射为标准 Document。
package collector

import (
	"context"

	"github.com/iWorld-y/opinion_radar/pkg/logger"
	"github.com/iWorld-y/opinion_radar/pkg/model"
	"github.com/iWorld-y/opinion_radar/pkg/normalize"
)

// SourceRef 检索阶段返回的条目引用
type SourceRef struct {
	ID            string // 视频 ID 或文章 URL
	Title         string
	Snippet       string // 检索时已带回的内容摘要，可为空
	PublishedDate string
	Score         float64
}

// RawItem 抓取阶段返回的单条原始内容
type RawItem struct {
	Text     string
	Metadata map[string]any
}

// ContentProvider 外部内容提供方契约：先检索引用，再逐个抓取条目。
// 实现方被视为不可靠，任何错误都由 Collector 就地消化。
type ContentProvider interface {
	Source() model.SourceTag
	Search(ctx context.Context, query string, maxItems int) ([]SourceRef, error)
	FetchItems(ctx context.Context, ref SourceRef) ([]RawItem, error)
}

// Collector 把一个来源的原始条目收集并归一化为 Document 列表
type Collector struct {
	provider ContentProvider
}

// New 创建 Collector
func New(provider ContentProvider) *Collector {
	return &Collector{provider: provider}
}

// Source 返回底层提供方的来源标识
func (c *Collector) Source() model.SourceTag {
	return c.provider.Source()
}

// Collect 检索并归一化最多 limit 个引用下的全部条目。
// 提供方失败或无结果时返回空列表而非错误：
// 单个来源不可用不应中断整体流程。
func (c *Collector) Collect(ctx context.Context, query string, limit int) []model.Document {
	if limit <= 0 {
		limit = 5
	}
	source := c.provider.Source()

	refs, err := c.provider.Search(ctx, query, limit)
	if err != nil {
		logger.Log.Errorf("来源 [%s] 检索失败: %v", source, err)
		return nil
	}
	if len(refs) == 0 {
		logger.Log.Warnf("来源 [%s] 检索无结果: %s", source, query)
		return nil
	}

	var docs []model.Document
	for _, ref := range refs {
		items, err := c.provider.FetchItems(ctx, ref)
		if err != nil {
			logger.Log.Errorf("来源 [%s] 抓取条目失败 [%s]: %v", source, ref.ID, err)
			continue
		}
		for _, item := range items {
			docs = append(docs, normalize.NewDocument(item.Text, source, item.Metadata))
		}
	}
	logger.Log.Infof("来源 [%s] 收集到 %d 条文档", source, len(docs))
	return docs
}
