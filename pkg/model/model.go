package model

import "fmt"

// SourceTag 数据来源标识
type SourceTag string

const (
	SourceYouTube   SourceTag = "youtube"
	SourceWebSearch SourceTag = "google_search"
)

// RelevanceTag 文档相关性预筛标签
type RelevanceTag string

const (
	RelevanceProductFocused    RelevanceTag = "product_focused"
	RelevanceIrrelevantChatter RelevanceTag = "irrelevant_chatter"
)

// Confidence 结论置信度（闭集枚举）
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Valid 校验置信度是否在枚举范围内
func (c Confidence) Valid() bool {
	switch c {
	case ConfidenceHigh, ConfidenceMedium, ConfidenceLow:
		return true
	}
	return false
}

// Rank 置信度排序权重，high > medium > low
func (c Confidence) Rank() int {
	switch c {
	case ConfidenceHigh:
		return 3
	case ConfidenceMedium:
		return 2
	case ConfidenceLow:
		return 1
	}
	return 0
}

// Max 返回两个置信度中较高的一个
func (c Confidence) Max(other Confidence) Confidence {
	if other.Rank() > c.Rank() {
		return other
	}
	return c
}

// SentimentLabel 整体情感标签（闭集枚举）
type SentimentLabel string

const (
	SentimentPositive SentimentLabel = "positive"
	SentimentNegative SentimentLabel = "negative"
	SentimentMixed    SentimentLabel = "mixed"
)

// Valid 校验情感标签是否在枚举范围内
func (s SentimentLabel) Valid() bool {
	switch s {
	case SentimentPositive, SentimentNegative, SentimentMixed:
		return true
	}
	return false
}

// TrendDirection 趋势方向（闭集枚举）
type TrendDirection string

const (
	TrendIncreasing TrendDirection = "increasing"
	TrendDecreasing TrendDirection = "decreasing"
	TrendStable     TrendDirection = "stable"
)

// Valid 校验趋势方向是否在枚举范围内
func (d TrendDirection) Valid() bool {
	switch d {
	case TrendIncreasing, TrendDecreasing, TrendStable:
		return true
	}
	return false
}

// Document 归一化后的单条舆情内容
type Document struct {
	Content         string         `json:"content"`          // 清洗后的文本，供分析使用
	RawText         string         `json:"raw_text"`         // 原始文本，留作追溯
	Source          SourceTag      `json:"source"`           // 数据来源
	Timestamp       string         `json:"timestamp"`        // ISO-8601，必填，缺省回退当前时间
	EngagementScore int            `json:"engagement_score"` // 点赞/顶数权重，始终 >= 0
	RelevanceTag    RelevanceTag   `json:"relevance_tag"`    // 廉价预筛标签
	ExtraMetadata   map[string]any `json:"extra_metadata"`   // 来源特有字段（作者、标题等）
}

// PainPoint 用户痛点
type PainPoint struct {
	Text       string     `json:"text"`
	Frequency  *int       `json:"frequency,omitempty"` // 近似出现次数，可缺省
	Confidence Confidence `json:"confidence"`
}

// Insight 关键洞察
type Insight struct {
	Text       string     `json:"text"`
	Confidence Confidence `json:"confidence"`
}

// Keyword 关键词
type Keyword struct {
	Term  string `json:"term"`
	Count *int   `json:"count,omitempty"`
}

// Trend 观察到的趋势
type Trend struct {
	Text      string         `json:"text"`
	Direction TrendDirection `json:"direction"`
}

// Sentiment 整体情感
type Sentiment struct {
	Overall    SentimentLabel `json:"overall"`
	Confidence float64        `json:"confidence"` // [0.0, 1.0]
}

// Evidence 分析依据
type Evidence struct {
	ItemsAnalyzed int    `json:"items_analyzed"`
	SourceType    string `json:"source_type"`
}

// Analysis 单一来源的结构化分析结果，由外部分析器产出后不再修改
type Analysis struct {
	Source     string      `json:"source"`
	Summary    string      `json:"summary"`
	Sentiment  Sentiment   `json:"sentiment"`
	PainPoints []PainPoint `json:"pain_points"`
	Insights   []Insight   `json:"key_insights"`
	Keywords   []Keyword   `json:"keywords"`
	Trends     []Trend     `json:"trends"`
	Evidence   Evidence    `json:"evidence"`
}

// Validate 在边界处校验分析结果是否符合固定 schema。
// 枚举越界、置信度超出 [0,1]、计数为负都视为 schema 违例。
func (a *Analysis) Validate() error {
	if a.Source == "" {
		return fmt.Errorf("source 不能为空")
	}
	if !a.Sentiment.Overall.Valid() {
		return fmt.Errorf("非法情感标签: %q", a.Sentiment.Overall)
	}
	if a.Sentiment.Confidence < 0 || a.Sentiment.Confidence > 1 {
		return fmt.Errorf("情感置信度越界: %v", a.Sentiment.Confidence)
	}
	for _, p := range a.PainPoints {
		if !p.Confidence.Valid() {
			return fmt.Errorf("痛点 %q 置信度非法: %q", p.Text, p.Confidence)
		}
		if p.Frequency != nil && *p.Frequency < 0 {
			return fmt.Errorf("痛点 %q 频次为负: %d", p.Text, *p.Frequency)
		}
	}
	for _, in := range a.Insights {
		if !in.Confidence.Valid() {
			return fmt.Errorf("洞察 %q 置信度非法: %q", in.Text, in.Confidence)
		}
	}
	for _, k := range a.Keywords {
		if k.Count != nil && *k.Count < 0 {
			return fmt.Errorf("关键词 %q 计数为负: %d", k.Term, *k.Count)
		}
	}
	for _, t := range a.Trends {
		if !t.Direction.Valid() {
			return fmt.Errorf("趋势 %q 方向非法: %q", t.Text, t.Direction)
		}
	}
	if a.Evidence.ItemsAnalyzed < 0 {
		return fmt.Errorf("items_analyzed 为负: %d", a.Evidence.ItemsAnalyzed)
	}
	return nil
}

// SourceAnalysis 带来源归属的分析结果
type SourceAnalysis struct {
	Source   SourceTag `json:"source"`
	Analysis Analysis  `json:"analysis"`
}

// CombinedAnalysis 跨来源合并后的综合分析
type CombinedAnalysis struct {
	OverallSummary   string      `json:"overall_summary"`
	OverallSentiment Sentiment   `json:"overall_sentiment"`
	TopPainPoints    []PainPoint `json:"top_pain_points"`
	TopKeywords      []Keyword   `json:"top_keywords"`
	KeyTakeaways     []string    `json:"key_takeaways"`
}

// FinalReport 最终研究报告：逐源明细 + 综合视图
type FinalReport struct {
	RunID            string           `json:"run_id"`
	Query            string           `json:"query"`
	Sources          []SourceAnalysis `json:"sources"`
	CombinedAnalysis CombinedAnalysis `json:"combined_analysis"`
}
