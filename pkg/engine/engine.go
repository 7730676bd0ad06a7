// Package engine 研究编排器：并发执行各来源的 收集->分析 流水线，
// 在汇合点把全部分析结果交给聚合器生成最终报告。
package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/iWorld-y/opinion_radar/pkg/aggregate"
	"github.com/iWorld-y/opinion_radar/pkg/analyzer"
	"github.com/iWorld-y/opinion_radar/pkg/collector"
	"github.com/iWorld-y/opinion_radar/pkg/logger"
	"github.com/iWorld-y/opinion_radar/pkg/model"
)

// Pipeline 单个来源的 收集->分析 流水线
type Pipeline struct {
	Collector *collector.Collector
	Analyzer  analyzer.Analyzer
	Limit     int // 检索条数上限
}

// Engine 研究编排器。
// 各来源流水线相互独立、顺序无关；编排器只透传分析结果，不做任何加工。
type Engine struct {
	pipelines     []Pipeline
	sourceTimeout time.Duration
}

// New 创建编排器。pipelines 的顺序即来源注册顺序，
// 聚合排序的平局会按这个顺序裁决。
func New(pipelines []Pipeline, sourceTimeout time.Duration) *Engine {
	if sourceTimeout <= 0 {
		sourceTimeout = 60 * time.Second
	}
	return &Engine{pipelines: pipelines, sourceTimeout: sourceTimeout}
}

// Run 执行一次研究任务。
// 每个来源一个 goroutine，单来源超时或失败只会使该来源降级为空，
// 不影响其余来源；全部失败时仍返回结构完整的空报告。
func (e *Engine) Run(ctx context.Context, query string) *model.FinalReport {
	runID := uuid.NewString()
	logger.Log.Infof("开始研究任务 [%s]: %q，共 %d 个来源", runID, query, len(e.pipelines))

	// 按注册顺序占位，汇合后过滤空位即可保持顺序
	results := make([]*model.SourceAnalysis, len(e.pipelines))
	var wg sync.WaitGroup

	for i, p := range e.pipelines {
		wg.Add(1)
		go func(i int, p Pipeline) {
			defer wg.Done()

			sctx, cancel := context.WithTimeout(ctx, e.sourceTimeout)
			defer cancel()

			source := p.Collector.Source()

			// 1. 收集并归一化文档（失败已在 Collector 内降级为空）
			docs := p.Collector.Collect(sctx, query, p.Limit)
			if len(docs) == 0 {
				logger.Log.Warnf("来源 [%s] 无可用文档，跳过分析", source)
				return
			}

			// 2. 结构化分析
			analysis, err := p.Analyzer.Analyze(sctx, query, docs)
			if err != nil {
				var sv *analyzer.SchemaViolationError
				if errors.As(err, &sv) {
					logger.Log.Errorf("来源 [%s] 输出违反 schema，丢弃该来源: %v", source, err)
				} else {
					logger.Log.Errorf("来源 [%s] 分析失败: %v", source, err)
				}
				return
			}

			// 3. 原样透传，不做任何改写
			results[i] = &model.SourceAnalysis{Source: source, Analysis: *analysis}
		}(i, p)
	}

	// 汇合点：所有流水线结束（或各自超时）后才进入聚合
	wg.Wait()

	sources := make([]model.SourceAnalysis, 0, len(results))
	for _, r := range results {
		if r != nil {
			sources = append(sources, *r)
		}
	}
	if len(sources) == 0 {
		logger.Log.Warnf("任务 [%s] 所有来源均失败或为空，返回空报告", runID)
	}

	report := aggregate.BuildFinalReport(runID, query, sources)
	logger.Log.Infof("任务 [%s] 完成：有效来源 %d/%d", runID, len(sources), len(e.pipelines))
	return report
}
