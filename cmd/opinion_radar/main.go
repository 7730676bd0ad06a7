package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/joho/godotenv"
	"golang.org/x/time/rate"

	transporthttp "github.com/iWorld-y/opinion_radar/internal/transport/http"
	"github.com/iWorld-y/opinion_radar/pkg/analyzer"
	"github.com/iWorld-y/opinion_radar/pkg/collector"
	"github.com/iWorld-y/opinion_radar/pkg/config"
	"github.com/iWorld-y/opinion_radar/pkg/engine"
	"github.com/iWorld-y/opinion_radar/pkg/logger"
	"github.com/iWorld-y/opinion_radar/pkg/model"
	"github.com/iWorld-y/opinion_radar/pkg/websearch"
	"github.com/iWorld-y/opinion_radar/pkg/youtube"
)

func main() {
	configPath := flag.String("config", "config.yaml", "配置文件路径")
	query := flag.String("query", "", "研究话题")
	serve := flag.Bool("serve", false, "以 HTTP 服务方式运行")
	flag.Parse()

	// .env 缺失不致命，密钥也可以直接来自环境
	_ = godotenv.Load()

	// 1. 加载配置
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("无法加载配置文件: %v", err)
	}
	if cfg.LLM.APIKey == "" {
		log.Fatal("配置错误: 未设置 llm.api_key（或 LLM_API_KEY）")
	}

	// 2. 初始化日志
	if err = logger.Init(cfg.Log.Level, cfg.Log.File); err != nil {
		log.Fatalf("无法初始化日志: %v", err)
	}
	logger.Log.Info("启动舆情雷达...")

	ctx := context.Background()

	// 3. 初始化 LLM
	chatModel, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		BaseURL: cfg.LLM.BaseURL,
		APIKey:  cfg.LLM.APIKey,
		Model:   cfg.LLM.Model,
	})
	if err != nil {
		logger.Log.Fatalf("LLM 初始化失败: %v", err)
	}

	// 4. 初始化限流器：Limit 取 RPM/60，Burst 取 QPS
	limiter := rate.NewLimiter(rate.Limit(float64(cfg.Concurrency.RPM)/60.0), cfg.Concurrency.QPS)

	// 5. 按配置组装各来源流水线
	pipelines, err := buildPipelines(ctx, cfg, chatModel, limiter)
	if err != nil {
		logger.Log.Fatalf("组装流水线失败: %v", err)
	}
	if len(pipelines) == 0 {
		logger.Log.Fatal("没有任何可用来源")
	}

	e := engine.New(pipelines, time.Duration(cfg.Concurrency.SourceTimeout)*time.Second)

	// 6. 运行：服务模式或单次执行
	if *serve {
		srv := transporthttp.NewServer(e, 3*time.Minute)
		logger.Log.Infof("HTTP 服务监听 %s", cfg.Server.Addr)
		if err := http.ListenAndServe(cfg.Server.Addr, srv.Routes()); err != nil {
			logger.Log.Fatalf("HTTP 服务退出: %v", err)
		}
		return
	}

	if *query == "" {
		log.Fatal("用法: opinion_radar -query <话题> [-config config.yaml] 或 -serve")
	}

	report := e.Run(ctx, *query)
	out, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		logger.Log.Fatalf("序列化报告失败: %v", err)
	}
	fmt.Fprintln(os.Stdout, string(out))
}

// buildPipelines 为配置中启用的每个来源创建 收集->分析 流水线。
// 单个来源缺少配置只是告警跳过，不影响其余来源。
func buildPipelines(ctx context.Context, cfg *config.Config, chatModel *openai.ChatModel, limiter *rate.Limiter) ([]engine.Pipeline, error) {
	var pipelines []engine.Pipeline
	for _, name := range cfg.Sources {
		switch model.SourceTag(name) {
		case model.SourceYouTube:
			client, err := youtube.NewClient(ctx, cfg.YouTube.APIKey)
			if err != nil {
				logger.Log.Warnf("跳过 youtube 来源: %v", err)
				continue
			}
			a, err := analyzer.NewLLMAnalyzer(chatModel, limiter, model.SourceYouTube)
			if err != nil {
				return nil, err
			}
			pipelines = append(pipelines, engine.Pipeline{
				Collector: collector.New(client),
				Analyzer:  a,
				Limit:     cfg.YouTube.MaxVideos,
			})

		case model.SourceWebSearch:
			provider, err := websearch.NewProvider(&cfg.Search)
			if err != nil {
				logger.Log.Warnf("跳过网页搜索来源: %v", err)
				continue
			}
			a, err := analyzer.NewLLMAnalyzer(chatModel, limiter, model.SourceWebSearch)
			if err != nil {
				return nil, err
			}
			pipelines = append(pipelines, engine.Pipeline{
				Collector: collector.New(provider),
				Analyzer:  a,
				Limit:     cfg.Search.MaxResults,
			})

		default:
			logger.Log.Warnf("未知来源配置: %s", name)
		}
	}
	return pipelines, nil
}
