package parser

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"resume-guard-go/internal/constants"

	"github.com/cloudwego/eino/components/model"
	einoschema "github.com/cloudwego/eino/schema"
)

const analyzerSystemPrompt = "You are a resume fraud detection assistant."

const analyzerPromptTemplate = `Analyze this resume for inconsistencies or suspicious patterns.

Return STRICT JSON:
{
  "inconsistencies": [],
  "suspicious_patterns": [],
  "summary": ""
}

Resume:
%s`

// LLMConsistencyAnalyzer 调用外部聊天模型对简历文本做一致性分析
// 返回值是模型响应的原始字符串；任何失败（超时、认证、响应异常）都吸收为空字符串，
// 上游把空结论当作"无信号"参与评分，单次调用不做重试
type LLMConsistencyAnalyzer struct {
	llmModel model.ToolCallingChatModel
	timeout  time.Duration
	maxChars int
	logger   *log.Logger
}

// AnalyzerOption 一致性分析器的配置选项
type AnalyzerOption func(*LLMConsistencyAnalyzer)

// WithAnalyzerLogger 配置自定义日志记录器
func WithAnalyzerLogger(logger *log.Logger) AnalyzerOption {
	return func(a *LLMConsistencyAnalyzer) {
		a.logger = logger
	}
}

// WithAnalyzerTimeout 配置单次调用超时
func WithAnalyzerTimeout(timeout time.Duration) AnalyzerOption {
	return func(a *LLMConsistencyAnalyzer) {
		a.timeout = timeout
	}
}

// WithAnalyzerMaxChars 配置送入模型的文本截断长度
func WithAnalyzerMaxChars(maxChars int) AnalyzerOption {
	return func(a *LLMConsistencyAnalyzer) {
		a.maxChars = maxChars
	}
}

// NewLLMConsistencyAnalyzer 创建一致性分析器
func NewLLMConsistencyAnalyzer(llmModel model.ToolCallingChatModel, options ...AnalyzerOption) *LLMConsistencyAnalyzer {
	analyzer := &LLMConsistencyAnalyzer{
		llmModel: llmModel,
		timeout:  30 * time.Second,
		maxChars: constants.AnalyzerMaxChars,
		logger:   log.New(io.Discard, "", 0),
	}

	for _, option := range options {
		option(analyzer)
	}

	return analyzer
}

// Analyze 对简历文本做一次性一致性分析，返回模型原始响应
// 文本先截断到maxChars个字符以控制成本和延迟；失败时返回空字符串
func (a *LLMConsistencyAnalyzer) Analyze(ctx context.Context, text string) string {
	if a.llmModel == nil {
		a.logger.Printf("[一致性分析器] 模型未配置，返回空结论")
		return ""
	}

	truncated := truncateRunes(text, a.maxChars)

	messages := []*einoschema.Message{
		{Role: "system", Content: analyzerSystemPrompt},
		{Role: "user", Content: fmt.Sprintf(analyzerPromptTemplate, truncated)},
	}

	callCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	response, err := a.llmModel.Generate(callCtx, messages)
	if err != nil {
		// 失败开放：分析服务不可用不阻断提交流程
		a.logger.Printf("[一致性分析器] LLM调用失败，按无信号处理: %v", err)
		return ""
	}

	a.logger.Printf("[一致性分析器] LLM响应: %.80s", response.Content)
	return response.Content
}

// truncateRunes 按字符数截断，避免在多字节字符中间截断
func truncateRunes(s string, maxChars int) string {
	if maxChars <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= maxChars {
		return s
	}
	return string(runes[:maxChars])
}
