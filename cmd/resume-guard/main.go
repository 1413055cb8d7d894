package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"resume-guard-go/internal/agent"
	"resume-guard-go/internal/api/handler"
	"resume-guard-go/internal/api/router"
	"resume-guard-go/internal/config"
	"resume-guard-go/internal/logger"
	parser2 "resume-guard-go/internal/parser"
	"resume-guard-go/internal/processor"
	"resume-guard-go/internal/storage"

	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/hlog"
	hertzzerolog "github.com/hertz-contrib/logger/zerolog"
	"github.com/spf13/pflag"
)

// @title           Resume Guard API
// @version         1.0
// @description     Resume fraud risk scoring and duplicate detection
// @BasePath  /api/v1
func main() {
	configPath := pflag.StringP("config", "c", "", "配置文件路径")
	pflag.Parse()

	// 1. 加载配置文件
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("加载配置文件失败: %v", err)
	}

	// 2. 初始化日志系统
	initLogger(cfg)

	// 3. 初始化存储管理器
	ctx := context.Background()
	storageManager, err := storage.NewStorage(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("初始化存储管理器失败")
	}
	defer storageManager.Close()

	// 4. 组装处理流水线
	pipeline, err := buildPipeline(ctx, cfg, storageManager)
	if err != nil {
		logger.Fatal().Err(err).Msg("初始化处理流水线失败")
	}
	logger.Info().Msg("处理流水线初始化成功")

	resumeHandler := handler.NewResumeHandler(pipeline, storageManager.MySQL, storageManager.MinIO)

	// 5. 创建HTTP服务器
	h := server.Default(
		server.WithHostPorts(cfg.Server.Address),
	)
	hlog.SetLogger(hertzzerolog.From(logger.Logger))

	// 6. 注册路由
	router.RegisterRoutes(h, resumeHandler)

	// 7. 启动HTTP服务器
	go func() {
		if err := h.Run(); err != nil {
			logger.Fatal().Err(err).Msg("启动HTTP服务器失败")
		}
	}()
	logger.Info().Str("address", cfg.Server.Address).Msg("HTTP服务器已启动")

	// 8. 等待终止信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("接收到终止信号，正在优雅退出...")

	// 9. 优雅关闭HTTP服务器
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := h.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("服务器关闭失败")
	}

	logger.Info().Msg("优雅退出完成")
}

// initLogger 初始化日志系统
func initLogger(cfg *config.Config) {
	isProduction := os.Getenv("ENV") == "production"

	logConfig := logger.Config{
		Level:        cfg.Logger.Level,
		Format:       cfg.Logger.Format,
		TimeFormat:   cfg.Logger.TimeFormat,
		ReportCaller: cfg.Logger.ReportCaller,
	}
	if logConfig.Level == "" {
		logConfig.Level = "info"
	}
	if logConfig.Format == "" {
		if isProduction {
			logConfig.Format = "json"
		} else {
			logConfig.Format = "pretty"
		}
	}

	logger.Init(logConfig)

	logger.Logger = logger.Logger.With().
		Str("app", "resume-guard-go").
		Str("version", "1.0.0").
		Logger()
}

// buildPipeline 从配置组装提交处理流水线
func buildPipeline(ctx context.Context, cfg *config.Config, storageManager *storage.Storage) (*processor.ResumePipeline, error) {
	if storageManager == nil {
		return nil, fmt.Errorf("存储管理器未初始化")
	}
	if storageManager.MinIO == nil {
		return nil, fmt.Errorf("MinIO实例未初始化")
	}
	if storageManager.MySQL == nil {
		return nil, fmt.Errorf("MySQL实例未初始化")
	}

	// PDF文本提取器
	pdfExtractor, err := parser2.NewEinoPDFTextExtractor(ctx,
		parser2.WithEinoLogger(log.New(io.Discard, "", 0)),
	)
	if err != nil {
		return nil, fmt.Errorf("初始化PDF提取器失败: %w", err)
	}

	// 联系方式提取器
	contacts := parser2.NewContactExtractor(cfg.Analyzer.DefaultRegion)

	// 一致性分析器；未配置API密钥时分析结论恒为空，评分只剩结构性信号
	var analyzer processor.ConsistencyAnalyzer
	if cfg.LLM.APIKey != "" {
		chatModel, err := agent.NewOpenAICompatChatModel(
			cfg.LLM.APIKey,
			cfg.LLM.Model,
			cfg.LLM.APIURL,
			cfg.Analyzer.Temperature,
		)
		if err != nil {
			logger.Warn().Err(err).Msg("初始化LLM模型失败，一致性分析按无信号处理")
			analyzer = parser2.NewLLMConsistencyAnalyzer(nil)
		} else {
			analyzer = parser2.NewLLMConsistencyAnalyzer(chatModel,
				parser2.WithAnalyzerTimeout(cfg.AnalyzerTimeout()),
			)
		}
	} else {
		logger.Warn().Msg("未配置LLM API密钥，一致性分析按无信号处理")
		analyzer = parser2.NewLLMConsistencyAnalyzer(nil)
	}

	// Redis是可选的快速路径，未初始化时流水线直接查库
	var dedupCache processor.DedupCache
	if storageManager.Redis != nil {
		dedupCache = storageManager.Redis
	}

	return processor.NewResumePipeline(
		pdfExtractor,
		contacts,
		analyzer,
		storageManager.MySQL,
		storageManager.MinIO,
		dedupCache,
	), nil
}
