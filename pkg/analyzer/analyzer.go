// Package analyzer 定义分析器契约，并提供基于 LLM 的实现：
// 输入某来源的归一化文档，输出严格符合固定 schema 的结构化分析。
package analyzer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"golang.org/x/time/rate"

	"github.com/iWorld-y/opinion_radar/pkg/logger"
	"github.com/iWorld-y/opinion_radar/pkg/model"
)

// Analyzer 分析器契约：任何 "文档进、固定 schema JSON 出" 的实现都可替换，
// 测试中用返回固定结果的假实现即可。
type Analyzer interface {
	Analyze(ctx context.Context, query string, docs []model.Document) (*model.Analysis, error)
}

// SchemaViolationError 分析器输出不符合固定 schema。
// 该来源的流水线以此为硬错误上报，绝不替换为猜测数据。
type SchemaViolationError struct {
	Source model.SourceTag
	Reason string
	Err    error
}

func (e *SchemaViolationError) Error() string {
	return fmt.Sprintf("来源 [%s] 分析结果违反 schema: %s: %v", e.Source, e.Reason, e.Err)
}

func (e *SchemaViolationError) Unwrap() error { return e.Err }

// sourceProfile 各来源的提示词侧写
type sourceProfile struct {
	label      string // 输出 JSON 中的 source 字段取值
	sourceType string // evidence.source_type 取值
	task       string // 任务描述
}

var profiles = map[model.SourceTag]sourceProfile{
	model.SourceYouTube: {
		label:      "youtube",
		sourceType: "youtube_comments",
		task:       "你将收到一批与话题相关的 YouTube 评论（已归一化）。只分析这些评论，从用户观点中提炼结构化的营销洞察。频次按评论中的大致重复次数估计。",
	},
	model.SourceWebSearch: {
		label:      "google_search",
		sourceType: "web_articles",
		task:       "你将收到一批与话题相关的网页文章内容（已归一化）。只分析这些内容，提炼与广告投放和用户认知相关的结构化洞察。频次按文章间的大致重复次数估计。",
	},
}

// LLM 重试参数，对齐 429 限流场景
const (
	maxRetries = 3
	baseDelay  = 2 * time.Second
)

// LLMAnalyzer 基于 eino ChatModel 的分析器实现
type LLMAnalyzer struct {
	chatModel einomodel.BaseChatModel
	limiter   *rate.Limiter
	source    model.SourceTag
	profile   sourceProfile
}

// NewLLMAnalyzer 为指定来源创建 LLM 分析器
func NewLLMAnalyzer(cm einomodel.BaseChatModel, limiter *rate.Limiter, source model.SourceTag) (*LLMAnalyzer, error) {
	profile, ok := profiles[source]
	if !ok {
		return nil, fmt.Errorf("未知来源: %s", source)
	}
	return &LLMAnalyzer{
		chatModel: cm,
		limiter:   limiter,
		source:    source,
		profile:   profile,
	}, nil
}

// Ensure LLMAnalyzer implements Analyzer
var _ Analyzer = (*LLMAnalyzer)(nil)

// Analyze 将文档交给 LLM，解析并校验其返回的固定 schema JSON。
// 对 429 与解析失败做有限次重试；重试耗尽后解析/校验失败按 schema 违例上报。
func (a *LLMAnalyzer) Analyze(ctx context.Context, query string, docs []model.Document) (*model.Analysis, error) {
	user, err := a.buildUserPrompt(query, docs)
	if err != nil {
		return nil, fmt.Errorf("构造提示词失败: %w", err)
	}

	messages := []*schema.Message{
		{Role: schema.System, Content: systemPrompt},
		{Role: schema.User, Content: user},
	}

	var lastErr error
	for i := 0; i <= maxRetries; i++ {
		if a.limiter != nil {
			if err := a.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		resp, err := a.chatModel.Generate(ctx, messages)
		if err != nil {
			if strings.Contains(err.Error(), "429") || strings.Contains(strings.ToLower(err.Error()), "too many requests") {
				lastErr = err
				if i < maxRetries {
					time.Sleep(baseDelay * time.Duration(1<<i))
					continue
				}
			}
			return nil, fmt.Errorf("来源 [%s] LLM 调用失败: %w", a.source, err)
		}

		analysis, err := decodeAnalysis(resp.Content)
		if err != nil {
			lastErr = err
			if i < maxRetries {
				logger.Log.Warnf("来源 [%s] 第 %d 次解析失败，重试: %v", a.source, i+1, err)
				continue
			}
			return nil, &SchemaViolationError{Source: a.source, Reason: "解析或校验失败", Err: err}
		}
		return analysis, nil
	}
	return nil, &SchemaViolationError{Source: a.source, Reason: "重试耗尽", Err: lastErr}
}

// decodeAnalysis 严格解析固定 schema：未知字段、枚举越界都视为违例。
// 约定输出禁止 markdown 包裹，但按惯例先剥一层代码围栏再解析。
func decodeAnalysis(content string) (*model.Analysis, error) {
	clean := strings.TrimSpace(content)
	clean = strings.TrimPrefix(clean, "```json")
	clean = strings.TrimPrefix(clean, "```")
	clean = strings.TrimSuffix(clean, "```")
	clean = strings.TrimSpace(clean)

	decoder := json.NewDecoder(strings.NewReader(clean))
	decoder.DisallowUnknownFields()

	var analysis model.Analysis
	if err := decoder.Decode(&analysis); err != nil {
		return nil, fmt.Errorf("decode JSON: %w", err)
	}
	if err := analysis.Validate(); err != nil {
		return nil, err
	}
	return &analysis, nil
}

// buildUserPrompt 组装任务描述、话题、文档与输出 schema
func (a *LLMAnalyzer) buildUserPrompt(query string, docs []model.Document) (string, error) {
	payload, err := json.Marshal(docs)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString(a.profile.task)
	sb.WriteString("\n\n约定：\n")
	sb.WriteString("- 不要反问，把话题当作研究对象而不是问题。\n")
	sb.WriteString("- 数据稀疏时返回空数组或合理缺省值，而不是省略字段。\n")
	sb.WriteString("- 只输出合法 JSON，不要用 ``` 包裹，不要加解释或 markdown。\n")
	sb.WriteString("- 严格遵循下述 schema，不得增删字段。\n\n")
	fmt.Fprintf(&sb, "研究话题：%s\n\n", query)
	fmt.Fprintf(&sb, "文档（JSON 数组，共 %d 条）：\n%s\n\n", len(docs), payload)
	fmt.Fprintf(&sb, outputSchemaTpl, a.profile.label, a.profile.sourceType)
	return sb.String(), nil
}

const systemPrompt = "你是一个 JSON 生成器。请只输出 JSON 字符串。"

// outputSchemaTpl 固定输出 schema，占位符依次为 source 与 source_type
const outputSchemaTpl = `输出 JSON SCHEMA：
{
  "source": "%s",
  "summary": "<concise overall summary>",
  "sentiment": {
    "overall": "positive | negative | mixed",
    "confidence": <number between 0 and 1>
  },
  "pain_points": [
    {"text": "<pain point>", "frequency": <approx count>, "confidence": "high | medium | low"}
  ],
  "key_insights": [
    {"text": "<insight>", "confidence": "high | medium | low"}
  ],
  "keywords": [
    {"term": "<keyword>", "count": <approx count>}
  ],
  "trends": [
    {"text": "<trend>", "direction": "increasing | decreasing | stable"}
  ],
  "evidence": {
    "items_analyzed": <number of items>,
    "source_type": "%s"
  }
}`
