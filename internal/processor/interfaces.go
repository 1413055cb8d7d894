package processor

import (
	"context"
	"errors"

	"resume-guard-go/internal/storage/models"
)

var (
	// ErrUnsupportedMediaType 上传内容声明的类型不是PDF，提交在进入流水线前被拒绝
	ErrUnsupportedMediaType = errors.New("只接受PDF文件")

	// ErrRecordNotFound 请求的记录不存在
	ErrRecordNotFound = errors.New("简历记录不存在")

	// ErrDuplicateRecord 插入时text_hash唯一索引冲突（并发提交同一文本）
	ErrDuplicateRecord = errors.New("相同文本哈希的记录已存在")
)

// PDFExtractor 从PDF字节内容中提取纯文本
type PDFExtractor interface {
	ExtractTextFromBytes(ctx context.Context, data []byte, uri string) (string, error)
}

// ContactExtractor 从提取文本中解析联系方式
// 两个方法都返回文档顺序的第一个匹配，未找到返回空字符串
type ContactExtractor interface {
	ExtractEmail(text string) string
	ExtractPhone(text string) string
}

// ConsistencyAnalyzer 调用外部分类服务分析简历一致性
// 返回原始响应字符串；失败开放，任何错误都表现为空字符串
type ConsistencyAnalyzer interface {
	Analyze(ctx context.Context, text string) string
}

// RecordStore 简历风险记录的持久化能力
type RecordStore interface {
	// FindByTextHash 按提取文本哈希查找，未找到返回ErrRecordNotFound
	FindByTextHash(ctx context.Context, textHash string) (*models.ResumeRecord, error)

	// Insert 插入新记录，text_hash冲突返回ErrDuplicateRecord
	Insert(ctx context.Context, record *models.ResumeRecord) error

	// IncrementDuplicateAndRescore 原子递增重复计数并重算分数/等级，
	// 两者在同一事务提交；返回更新后的记录
	IncrementDuplicateAndRescore(ctx context.Context, textHash string) (*models.ResumeRecord, error)

	// FindByID 按记录ID查找，未找到返回ErrRecordNotFound
	FindByID(ctx context.Context, recordID string) (*models.ResumeRecord, error)

	// ListAll 返回全部记录
	ListAll(ctx context.Context) ([]models.ResumeRecord, error)
}

// ObjectStore 原始PDF字节的对象存储能力
type ObjectStore interface {
	// SaveOriginal 以内容哈希派生的对象键保存原始字节，字节级相同的文件覆盖写
	SaveOriginal(ctx context.Context, data []byte) (string, error)

	// GetOriginal 按对象键取回原始字节
	GetOriginal(ctx context.Context, objectKey string) ([]byte, error)
}

// DedupCache 文本哈希的快速去重提示
// 仅作为数据库查找前的快速路径，数据库唯一索引才是去重的权威判定
type DedupCache interface {
	// CheckAndAddTextHash 原子地检查哈希是否已在集合中并将其加入，返回检查时是否已存在
	CheckAndAddTextHash(ctx context.Context, textHash string) (bool, error)
}
