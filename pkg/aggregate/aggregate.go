// Package aggregate 把多个来源各自独立产出的分析合并为一份综合报告：
// 去重、置信度升级、情感冲突消解与排序。只合并既有结论，从不发明新结论。
package aggregate

import (
	"fmt"
	"sort"
	"strings"

	"github.com/iWorld-y/opinion_radar/pkg/model"
	"github.com/iWorld-y/opinion_radar/pkg/normalize"
)

// 综合报告最多保留的要点条数
const maxTakeaways = 5

// Aggregate 合并各来源的分析结果。
// 输入按来源注册顺序排列，排序平局时以此顺序为准。
// 空输入返回空列表与中性情感，不报错。
func Aggregate(sources []model.SourceAnalysis) model.CombinedAnalysis {
	return model.CombinedAnalysis{
		OverallSummary:   mergeSummaries(sources),
		OverallSentiment: reconcileSentiment(sources),
		TopPainPoints:    mergePainPoints(sources),
		TopKeywords:      mergeKeywords(sources),
		KeyTakeaways:     takeaways(mergeInsights(sources)),
	}
}

// BuildFinalReport 组装最终报告：逐源明细原样保留，外加综合视图。
func BuildFinalReport(runID, query string, sources []model.SourceAnalysis) *model.FinalReport {
	return &model.FinalReport{
		RunID:            runID,
		Query:            query,
		Sources:          sources,
		CombinedAnalysis: Aggregate(sources),
	}
}

// mergeSummaries 按来源拼接各自摘要，只做连接不新增内容
func mergeSummaries(sources []model.SourceAnalysis) string {
	var parts []string
	for _, s := range sources {
		if summary := strings.TrimSpace(s.Analysis.Summary); summary != "" {
			parts = append(parts, fmt.Sprintf("[%s] %s", s.Source, summary))
		}
	}
	return strings.Join(parts, " ")
}

// reconcileSentiment 情感调和：全体一致则保留该标签，
// 任何分歧都强制为 mixed。合并置信度取各来源均值。
func reconcileSentiment(sources []model.SourceAnalysis) model.Sentiment {
	if len(sources) == 0 {
		return model.Sentiment{Overall: model.SentimentMixed, Confidence: 0}
	}

	labels := make(map[model.SentimentLabel]struct{})
	var confSum float64
	for _, s := range sources {
		labels[s.Analysis.Sentiment.Overall] = struct{}{}
		confSum += s.Analysis.Sentiment.Confidence
	}

	overall := model.SentimentMixed
	if len(labels) == 1 {
		for label := range labels {
			overall = label
		}
	}
	return model.Sentiment{
		Overall:    overall,
		Confidence: confSum / float64(len(sources)),
	}
}

// painEntry 合并中的痛点累积状态
type painEntry struct {
	text  string
	freq  *int
	conf  model.Confidence
	order int
}

// mergePainPoints 痛点去重合并：
// 文本归一化后语义等价的痛点视为同一发现；
// 频次有则求和，置信度取合并各方的最高值（佐证只升不降）。
func mergePainPoints(sources []model.SourceAnalysis) []model.PainPoint {
	index := make(map[string]*painEntry)
	var entries []*painEntry

	for _, s := range sources {
		for _, p := range s.Analysis.PainPoints {
			key := matchKey(p.Text)
			entry, ok := index[key]
			if !ok {
				entry = &painEntry{
					text:  p.Text,
					freq:  cloneCount(p.Frequency),
					conf:  p.Confidence,
					order: len(entries),
				}
				index[key] = entry
				entries = append(entries, entry)
				continue
			}
			entry.freq = addCounts(entry.freq, p.Frequency)
			entry.conf = entry.conf.Max(p.Confidence)
		}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		fi, fj := countOf(entries[i].freq), countOf(entries[j].freq)
		if fi != fj {
			return fi > fj
		}
		return entries[i].order < entries[j].order
	})

	merged := make([]model.PainPoint, 0, len(entries))
	for _, e := range entries {
		merged = append(merged, model.PainPoint{Text: e.text, Frequency: e.freq, Confidence: e.conf})
	}
	return merged
}

// keywordEntry 合并中的关键词累积状态
type keywordEntry struct {
	term  string
	count *int
	order int
}

// mergeKeywords 关键词按词条（大小写不敏感）合并，计数求和
func mergeKeywords(sources []model.SourceAnalysis) []model.Keyword {
	index := make(map[string]*keywordEntry)
	var entries []*keywordEntry

	for _, s := range sources {
		for _, k := range s.Analysis.Keywords {
			key := strings.ToLower(strings.TrimSpace(k.Term))
			entry, ok := index[key]
			if !ok {
				entry = &keywordEntry{
					term:  k.Term,
					count: cloneCount(k.Count),
					order: len(entries),
				}
				index[key] = entry
				entries = append(entries, entry)
				continue
			}
			entry.count = addCounts(entry.count, k.Count)
		}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		ci, cj := countOf(entries[i].count), countOf(entries[j].count)
		if ci != cj {
			return ci > cj
		}
		return entries[i].order < entries[j].order
	})

	merged := make([]model.Keyword, 0, len(entries))
	for _, e := range entries {
		merged = append(merged, model.Keyword{Term: e.term, Count: e.count})
	}
	return merged
}

// insightEntry 合并中的洞察累积状态
type insightEntry struct {
	text  string
	conf  model.Confidence
	order int
}

// mergeInsights 洞察去重：出现在多个来源的洞察取各处的最高置信度，
// 上限即为 high，不会越级。
func mergeInsights(sources []model.SourceAnalysis) []insightEntry {
	index := make(map[string]int)
	var entries []insightEntry

	for _, s := range sources {
		for _, in := range s.Analysis.Insights {
			key := matchKey(in.Text)
			if idx, ok := index[key]; ok {
				entries[idx].conf = entries[idx].conf.Max(in.Confidence)
				continue
			}
			index[key] = len(entries)
			entries = append(entries, insightEntry{text: in.Text, conf: in.Confidence, order: len(entries)})
		}
	}
	return entries
}

// takeaways 按置信度（其次首次出现顺序）选取洞察文本作为核心要点
func takeaways(entries []insightEntry) []string {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].conf.Rank() != entries[j].conf.Rank() {
			return entries[i].conf.Rank() > entries[j].conf.Rank()
		}
		return entries[i].order < entries[j].order
	})

	var out []string
	for _, e := range entries {
		if len(out) >= maxTakeaways {
			break
		}
		out = append(out, e.text)
	}
	return out
}

// matchKey 近似重复判定键：清洗归一化后逐词做轻量词干化。
// 精确归一化匹配是符合性下限，词干化是在此之上的独立启发式。
func matchKey(text string) string {
	words := strings.Fields(normalize.Clean(text))
	for i, w := range words {
		words[i] = stem(w)
	}
	return strings.Join(words, " ")
}

// stem 去掉常见后缀，词根至少保留 3 个字符
func stem(word string) string {
	for _, suffix := range []string{"ing", "ed", "es", "s"} {
		if strings.HasSuffix(word, suffix) && len(word)-len(suffix) >= 3 {
			return strings.TrimSuffix(word, suffix)
		}
	}
	return word
}

// cloneCount 复制可空计数，避免合并结果与输入共享指针
func cloneCount(v *int) *int {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

// addCounts 可空计数求和：双方都缺省保持缺省，否则按 0 补齐相加
func addCounts(a, b *int) *int {
	if a == nil && b == nil {
		return nil
	}
	sum := countOf(a) + countOf(b)
	return &sum
}

func countOf(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}
