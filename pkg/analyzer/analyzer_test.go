package analyzer

import (
	"context"
	"errors"
	"testing"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/iWorld-y/opinion_radar/pkg/model"
)

// fakeChatModel 返回固定内容的假 ChatModel
type fakeChatModel struct {
	content string
	err     error
	calls   int
}

func (f *fakeChatModel) Generate(ctx context.Context, in []*schema.Message, opts ...einomodel.Option) (*schema.Message, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &schema.Message{Role: schema.Assistant, Content: f.content}, nil
}

func (f *fakeChatModel) Stream(ctx context.Context, in []*schema.Message, opts ...einomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("stream not supported")
}

const validAnalysisJSON = `{
  "source": "youtube",
  "summary": "users like the product but complain about shipping",
  "sentiment": {"overall": "mixed", "confidence": 0.8},
  "pain_points": [{"text": "slow shipping", "frequency": 3, "confidence": "medium"}],
  "key_insights": [{"text": "price sensitivity is high", "confidence": "low"}],
  "keywords": [{"term": "shipping", "count": 4}],
  "trends": [{"text": "more complaints about delivery", "direction": "increasing"}],
  "evidence": {"items_analyzed": 12, "source_type": "youtube_comments"}
}`

func newTestAnalyzer(t *testing.T, cm einomodel.BaseChatModel) *LLMAnalyzer {
	t.Helper()
	a, err := NewLLMAnalyzer(cm, nil, model.SourceYouTube)
	if err != nil {
		t.Fatalf("NewLLMAnalyzer: %v", err)
	}
	return a
}

func sampleDocs() []model.Document {
	return []model.Document{{
		Content:      "slow shipping again",
		RawText:      "Slow shipping... again!",
		Source:       model.SourceYouTube,
		Timestamp:    "2024-03-01T10:00:00Z",
		RelevanceTag: model.RelevanceProductFocused,
	}}
}

func TestAnalyzeValidOutput(t *testing.T) {
	cm := &fakeChatModel{content: validAnalysisJSON}
	a := newTestAnalyzer(t, cm)

	analysis, err := a.Analyze(context.Background(), "acme phone", sampleDocs())
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if analysis.Source != "youtube" {
		t.Errorf("Source = %q", analysis.Source)
	}
	if len(analysis.PainPoints) != 1 || analysis.PainPoints[0].Text != "slow shipping" {
		t.Errorf("PainPoints = %+v", analysis.PainPoints)
	}
	if analysis.PainPoints[0].Frequency == nil || *analysis.PainPoints[0].Frequency != 3 {
		t.Errorf("Frequency = %v, want 3", analysis.PainPoints[0].Frequency)
	}
	if analysis.Sentiment.Overall != model.SentimentMixed {
		t.Errorf("Sentiment = %q", analysis.Sentiment.Overall)
	}
	if cm.calls != 1 {
		t.Errorf("calls = %d, want 1", cm.calls)
	}
}

func TestAnalyzeStripsCodeFence(t *testing.T) {
	cm := &fakeChatModel{content: "```json\n" + validAnalysisJSON + "\n```"}
	a := newTestAnalyzer(t, cm)

	analysis, err := a.Analyze(context.Background(), "acme phone", sampleDocs())
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if analysis.Summary == "" {
		t.Error("Summary 为空")
	}
}

func TestAnalyzeSchemaViolations(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{"非 JSON", "users seem mostly happy overall"},
		{"多余字段", `{"source":"youtube","summary":"s","sentiment":{"overall":"mixed","confidence":0.5},"pain_points":[],"key_insights":[],"keywords":[],"trends":[],"evidence":{"items_analyzed":1,"source_type":"youtube_comments"},"extra":"nope"}`},
		{"枚举越界", `{"source":"youtube","summary":"s","sentiment":{"overall":"neutral","confidence":0.5},"pain_points":[],"key_insights":[],"keywords":[],"trends":[],"evidence":{"items_analyzed":1,"source_type":"youtube_comments"}}`},
		{"置信度越界", `{"source":"youtube","summary":"s","sentiment":{"overall":"mixed","confidence":1.5},"pain_points":[],"key_insights":[],"keywords":[],"trends":[],"evidence":{"items_analyzed":1,"source_type":"youtube_comments"}}`},
		{"负频次", `{"source":"youtube","summary":"s","sentiment":{"overall":"mixed","confidence":0.5},"pain_points":[{"text":"p","frequency":-2,"confidence":"low"}],"key_insights":[],"keywords":[],"trends":[],"evidence":{"items_analyzed":1,"source_type":"youtube_comments"}}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cm := &fakeChatModel{content: tc.content}
			a := newTestAnalyzer(t, cm)

			_, err := a.Analyze(context.Background(), "q", sampleDocs())
			var sv *SchemaViolationError
			if !errors.As(err, &sv) {
				t.Fatalf("err = %v, want SchemaViolationError", err)
			}
			if sv.Source != model.SourceYouTube {
				t.Errorf("Source = %q", sv.Source)
			}
			// 解析失败会先重试再上报
			if cm.calls != maxRetries+1 {
				t.Errorf("calls = %d, want %d", cm.calls, maxRetries+1)
			}
		})
	}
}

func TestAnalyzeModelFailure(t *testing.T) {
	cm := &fakeChatModel{err: errors.New("connection refused")}
	a := newTestAnalyzer(t, cm)

	_, err := a.Analyze(context.Background(), "q", sampleDocs())
	if err == nil {
		t.Fatal("err = nil, want 调用失败")
	}
	var sv *SchemaViolationError
	if errors.As(err, &sv) {
		t.Errorf("非 schema 问题不应归类为 SchemaViolationError: %v", err)
	}
}

func TestNewLLMAnalyzerUnknownSource(t *testing.T) {
	if _, err := NewLLMAnalyzer(&fakeChatModel{}, nil, model.SourceTag("reddit")); err == nil {
		t.Error("未知来源应当报错")
	}
}
