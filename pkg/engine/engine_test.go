package engine

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/iWorld-y/opinion_radar/pkg/analyzer"
	"github.com/iWorld-y/opinion_radar/pkg/collector"
	"github.com/iWorld-y/opinion_radar/pkg/model"
)

// fakeProvider 模拟内容提供方
type fakeProvider struct {
	source    model.SourceTag
	texts     []string
	searchErr error
}

func (f *fakeProvider) Source() model.SourceTag { return f.source }

func (f *fakeProvider) Search(ctx context.Context, query string, maxItems int) ([]collector.SourceRef, error) {
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	if len(f.texts) == 0 {
		return nil, nil
	}
	return []collector.SourceRef{{ID: "ref"}}, nil
}

func (f *fakeProvider) FetchItems(ctx context.Context, ref collector.SourceRef) ([]collector.RawItem, error) {
	items := make([]collector.RawItem, 0, len(f.texts))
	for _, text := range f.texts {
		items = append(items, collector.RawItem{Text: text})
	}
	return items, nil
}

// fakeAnalyzer 返回固定分析结果的假分析器
type fakeAnalyzer struct {
	analysis *model.Analysis
	err      error
}

func (f *fakeAnalyzer) Analyze(ctx context.Context, query string, docs []model.Document) (*model.Analysis, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.analysis, nil
}

func cannedAnalysis(source string, sentiment model.SentimentLabel) *model.Analysis {
	freq := 3
	return &model.Analysis{
		Source:     source,
		Summary:    "summary from " + source,
		Sentiment:  model.Sentiment{Overall: sentiment, Confidence: 0.8},
		PainPoints: []model.PainPoint{{Text: "slow shipping", Frequency: &freq, Confidence: model.ConfidenceMedium}},
		Insights:   []model.Insight{{Text: "delivery matters", Confidence: model.ConfidenceMedium}},
		Keywords:   []model.Keyword{{Term: "shipping"}},
		Evidence:   model.Evidence{ItemsAnalyzed: 2, SourceType: source},
	}
}

func TestRunProducesReportFromAllSources(t *testing.T) {
	ytAnalysis := cannedAnalysis("youtube", model.SentimentPositive)
	webAnalysis := cannedAnalysis("google_search", model.SentimentNegative)

	e := New([]Pipeline{
		{Collector: collector.New(&fakeProvider{source: model.SourceYouTube, texts: []string{"comment one"}}), Analyzer: &fakeAnalyzer{analysis: ytAnalysis}, Limit: 5},
		{Collector: collector.New(&fakeProvider{source: model.SourceWebSearch, texts: []string{"article one"}}), Analyzer: &fakeAnalyzer{analysis: webAnalysis}, Limit: 5},
	}, time.Minute)

	report := e.Run(context.Background(), "acme phone")
	if report.RunID == "" {
		t.Error("RunID 为空")
	}
	if len(report.Sources) != 2 {
		t.Fatalf("Sources = %d, want 2", len(report.Sources))
	}
	// 注册顺序保持
	if report.Sources[0].Source != model.SourceYouTube || report.Sources[1].Source != model.SourceWebSearch {
		t.Errorf("来源顺序 = [%s, %s]", report.Sources[0].Source, report.Sources[1].Source)
	}
	// 情感冲突 -> mixed
	if report.CombinedAnalysis.OverallSentiment.Overall != model.SentimentMixed {
		t.Errorf("OverallSentiment = %q, want mixed", report.CombinedAnalysis.OverallSentiment.Overall)
	}
	// 同一痛点跨来源合并
	if len(report.CombinedAnalysis.TopPainPoints) != 1 {
		t.Fatalf("TopPainPoints = %d, want 1", len(report.CombinedAnalysis.TopPainPoints))
	}
	if f := report.CombinedAnalysis.TopPainPoints[0].Frequency; f == nil || *f != 6 {
		t.Errorf("Frequency = %v, want 6", f)
	}
}

func TestRunPassesAnalysesThroughUnchanged(t *testing.T) {
	orig := cannedAnalysis("youtube", model.SentimentPositive)
	e := New([]Pipeline{
		{Collector: collector.New(&fakeProvider{source: model.SourceYouTube, texts: []string{"c"}}), Analyzer: &fakeAnalyzer{analysis: orig}, Limit: 5},
	}, time.Minute)

	report := e.Run(context.Background(), "q")
	if len(report.Sources) != 1 {
		t.Fatalf("Sources = %d, want 1", len(report.Sources))
	}
	// 逐源明细必须与分析器输出逐字段一致
	if !reflect.DeepEqual(report.Sources[0].Analysis, *orig) {
		t.Errorf("分析结果被改写:\ngot  %+v\nwant %+v", report.Sources[0].Analysis, *orig)
	}
}

func TestRunSurvivesFailingSource(t *testing.T) {
	webAnalysis := cannedAnalysis("google_search", model.SentimentPositive)
	e := New([]Pipeline{
		{Collector: collector.New(&fakeProvider{source: model.SourceYouTube, searchErr: errors.New("quota")}), Analyzer: &fakeAnalyzer{analysis: cannedAnalysis("youtube", model.SentimentPositive)}, Limit: 5},
		{Collector: collector.New(&fakeProvider{source: model.SourceWebSearch, texts: []string{"a"}}), Analyzer: &fakeAnalyzer{analysis: webAnalysis}, Limit: 5},
	}, time.Minute)

	report := e.Run(context.Background(), "q")
	if len(report.Sources) != 1 {
		t.Fatalf("Sources = %d, want 1（失败来源降级，不阻塞其余来源）", len(report.Sources))
	}
	if report.Sources[0].Source != model.SourceWebSearch {
		t.Errorf("幸存来源 = %q", report.Sources[0].Source)
	}
	if report.CombinedAnalysis.OverallSentiment.Overall != model.SentimentPositive {
		t.Errorf("OverallSentiment = %q", report.CombinedAnalysis.OverallSentiment.Overall)
	}
}

func TestRunSkipsSchemaViolatingSource(t *testing.T) {
	violation := &analyzer.SchemaViolationError{Source: model.SourceYouTube, Reason: "解析失败", Err: errors.New("decode")}
	webAnalysis := cannedAnalysis("google_search", model.SentimentNegative)

	e := New([]Pipeline{
		{Collector: collector.New(&fakeProvider{source: model.SourceYouTube, texts: []string{"c"}}), Analyzer: &fakeAnalyzer{err: violation}, Limit: 5},
		{Collector: collector.New(&fakeProvider{source: model.SourceWebSearch, texts: []string{"a"}}), Analyzer: &fakeAnalyzer{analysis: webAnalysis}, Limit: 5},
	}, time.Minute)

	report := e.Run(context.Background(), "q")
	if len(report.Sources) != 1 || report.Sources[0].Source != model.SourceWebSearch {
		t.Fatalf("schema 违例来源应被丢弃，Sources = %+v", report.Sources)
	}
}

func TestRunAllSourcesFailed(t *testing.T) {
	e := New([]Pipeline{
		{Collector: collector.New(&fakeProvider{source: model.SourceYouTube, searchErr: errors.New("down")}), Analyzer: &fakeAnalyzer{}, Limit: 5},
	}, time.Minute)

	report := e.Run(context.Background(), "q")
	if report == nil {
		t.Fatal("report = nil，全失败也必须返回结构完整的报告")
	}
	if len(report.Sources) != 0 {
		t.Errorf("Sources = %d, want 0", len(report.Sources))
	}
	if report.CombinedAnalysis.OverallSentiment.Overall != model.SentimentMixed {
		t.Errorf("空报告情感 = %q, want mixed", report.CombinedAnalysis.OverallSentiment.Overall)
	}
}
