package processor

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"resume-guard-go/internal/constants"
	"resume-guard-go/internal/logger"
	"resume-guard-go/internal/scorer"
	"resume-guard-go/internal/storage/models"

	"github.com/gofrs/uuid/v5"
)

// ResumePipeline 单次提交的同步处理流水线：
// 字节 → 文本提取 → 去重判定 → (新记录: 字段提取+一致性分析+评分入库 | 重复: 计数递增+重算)
type ResumePipeline struct {
	pdfExtractor PDFExtractor
	contacts     ContactExtractor
	analyzer     ConsistencyAnalyzer
	store        RecordStore
	objects      ObjectStore
	dedupCache   DedupCache // 可为nil，此时每次都直接查库
}

// NewResumePipeline 创建提交处理流水线，所有协作者通过参数注入
func NewResumePipeline(
	pdfExtractor PDFExtractor,
	contacts ContactExtractor,
	analyzer ConsistencyAnalyzer,
	store RecordStore,
	objects ObjectStore,
	dedupCache DedupCache,
) *ResumePipeline {
	return &ResumePipeline{
		pdfExtractor: pdfExtractor,
		contacts:     contacts,
		analyzer:     analyzer,
		store:        store,
		objects:      objects,
		dedupCache:   dedupCache,
	}
}

// SubmissionResult 一次提交的处理结果
type SubmissionResult struct {
	RecordID    string `json:"record_id"`
	IsDuplicate bool   `json:"is_duplicate"`
	Message     string `json:"message"`
	RiskScore   int    `json:"risk_score"`
	RiskLevel   string `json:"risk_level"`
}

// TextHash 计算提取文本的SHA-256十六进制摘要，作为记录的身份键
// 完整文本的精确哈希：任何单字符差异都会产生不同哈希，
// 重排、OCR噪声或重新排版都会绕过去重，这是本方案的既定边界
func TextHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// ProcessSubmission 执行完整的提交流水线
// declaredContentType不是PDF时返回ErrUnsupportedMediaType，不做任何提取和哈希工作；
// 文本提取失败降级为空文本继续（所有空文本提交会汇入同一条记录）；
// 存储失败向上传播，其余内部故障降级为减信号的有效评分
func (p *ResumePipeline) ProcessSubmission(ctx context.Context, filename string, declaredContentType string, data []byte) (*SubmissionResult, error) {
	if declaredContentType != constants.PDFContentType {
		return nil, ErrUnsupportedMediaType
	}

	// 1. 文本提取，失败开放
	text, err := p.pdfExtractor.ExtractTextFromBytes(ctx, data, filename)
	if err != nil {
		logger.Warn().
			Err(err).
			Str("filename", filename).
			Msg("PDF文本提取失败，降级为空文本继续处理")
		text = ""
	}

	// 2. 保存原始字节；对象键由原始字节哈希派生，字节级相同的文件覆盖写
	storagePath, err := p.objects.SaveOriginal(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("保存原始文件失败: %w", err)
	}

	textHash := TextHash(text)

	// 3. 快速去重提示（可选）；缓存故障只记警告，不影响权威判定
	cacheHit := false
	if p.dedupCache != nil {
		exists, cacheErr := p.dedupCache.CheckAndAddTextHash(ctx, textHash)
		if cacheErr != nil {
			logger.Warn().
				Err(cacheErr).
				Str("text_hash", textHash).
				Msg("查询去重缓存失败，回退到数据库判定")
		} else {
			cacheHit = exists
		}
	}

	// 4. 权威去重判定走数据库
	if cacheHit {
		result, err := p.processDuplicate(ctx, textHash)
		if err == nil {
			return result, nil
		}
		if !errors.Is(err, ErrRecordNotFound) {
			return nil, err
		}
		// 缓存有残留但库里没有记录，按新记录处理
		logger.Warn().
			Str("text_hash", textHash).
			Msg("去重缓存命中但数据库无记录，按新提交处理")
	} else {
		existing, err := p.store.FindByTextHash(ctx, textHash)
		if err == nil && existing != nil {
			return p.processDuplicate(ctx, textHash)
		}
		if err != nil && !errors.Is(err, ErrRecordNotFound) {
			return nil, fmt.Errorf("查询重复记录失败: %w", err)
		}
	}

	return p.processNew(ctx, filename, storagePath, text, textHash)
}

// processDuplicate 重复路径：只递增计数并用存量字段重算分数
// 本次提交自身的提取字段和分析结论被丢弃
func (p *ResumePipeline) processDuplicate(ctx context.Context, textHash string) (*SubmissionResult, error) {
	updated, err := p.store.IncrementDuplicateAndRescore(ctx, textHash)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("更新重复记录失败: %w", err)
	}

	logger.Info().
		Str("record_id", updated.RecordID).
		Str("text_hash", textHash).
		Int("duplicate_count", updated.DuplicateCount).
		Int("risk_score", updated.RiskScore).
		Msg("检测到重复简历")

	return &SubmissionResult{
		RecordID:    updated.RecordID,
		IsDuplicate: true,
		Message:     "Duplicate resume detected.",
		RiskScore:   updated.RiskScore,
		RiskLevel:   updated.RiskLevel,
	}, nil
}

// processNew 新记录路径：字段提取、一致性分析、初始评分、入库
func (p *ResumePipeline) processNew(ctx context.Context, filename, storagePath, text, textHash string) (*SubmissionResult, error) {
	email := p.contacts.ExtractEmail(text)
	phone := p.contacts.ExtractPhone(text)
	verdict := p.analyzer.Analyze(ctx, text)

	score := scorer.Score(0, email, phone, verdict)
	level := scorer.Level(score)

	newUUID, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("生成UUIDv7失败: %w", err)
	}

	record := &models.ResumeRecord{
		RecordID:         newUUID.String(),
		OriginalFilename: filename,
		StoragePath:      storagePath,
		TextHash:         textHash,
		DuplicateCount:   0,
		Email:            optionalString(email),
		Phone:            optionalString(phone),
		LLMVerdict:       verdict,
		VerdictJSON:      models.VerdictToJSON(verdict),
		RiskScore:        score,
		RiskLevel:        string(level),
	}

	if err := p.store.Insert(ctx, record); err != nil {
		if errors.Is(err, ErrDuplicateRecord) {
			// 并发提交竞争：另一提交先插入了同一哈希，本次改走重复路径
			logger.Info().
				Str("text_hash", textHash).
				Msg("插入竞争失败，转为重复计数路径")
			return p.processDuplicate(ctx, textHash)
		}
		return nil, fmt.Errorf("插入简历记录失败: %w", err)
	}

	logger.Info().
		Str("record_id", record.RecordID).
		Str("text_hash", textHash).
		Int("risk_score", score).
		Str("risk_level", string(level)).
		Msg("简历提交处理完成")

	return &SubmissionResult{
		RecordID:    record.RecordID,
		IsDuplicate: false,
		Message:     "Resume submitted successfully.",
		RiskScore:   score,
		RiskLevel:   string(level),
	}, nil
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
