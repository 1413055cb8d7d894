package storage

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log"

	"resume-guard-go/internal/config"
	"resume-guard-go/internal/constants"
	"resume-guard-go/internal/processor"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/minio/minio-go/v7/pkg/lifecycle"
)

// 确保MinIO实现了对象存储接口
var _ processor.ObjectStore = (*MinIO)(nil)

// MinIO 提供原始简历PDF的对象存储功能
// 对象键由原始字节的SHA-256哈希派生，字节级相同的文件写同一对象，
// 覆盖写是幂等的，不需要去重前置检查
type MinIO struct {
	client *minio.Client
	cfg    *config.MinIOConfig
	bucket string
	logger *log.Logger
}

// NewMinIO 创建MinIO客户端
func NewMinIO(cfg *config.MinIOConfig, logger *log.Logger) (*MinIO, error) {
	if cfg == nil {
		return nil, fmt.Errorf("MinIO配置不能为空")
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	logger.Printf("[MinIO] Initializing MinIO client with endpoint: %s, bucket: %s", cfg.Endpoint, cfg.BucketName)

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		logger.Printf("[MinIO] Initialization failed: %v", err)
		return nil, fmt.Errorf("创建MinIO客户端失败: %w", err)
	}

	bucket := cfg.BucketName
	if bucket == "" {
		bucket = "resume-originals" // 默认值
	}

	m := &MinIO{
		client: client,
		cfg:    cfg,
		bucket: bucket,
		logger: logger,
	}

	// 确保存储桶存在
	if err := m.ensureBucketExists(bucket, cfg.Location); err != nil {
		logger.Printf("[MinIO] Failed to ensure bucket %s exists: %v", bucket, err)
		return nil, fmt.Errorf("确保原始简历存储桶 %s 存在失败: %w", bucket, err)
	}

	// 设置生命周期规则
	if cfg.OriginalFileExpireDays > 0 {
		if err := m.setupLifecycleRules(context.Background()); err != nil {
			logger.Printf("[MinIO] Warning: Failed to set up lifecycle rules: %v", err)
		}
	}

	logger.Printf("[MinIO] Client initialized successfully for endpoint: %s", cfg.Endpoint)
	return m, nil
}

// ensureBucketExists 确保存储桶存在
func (m *MinIO) ensureBucketExists(bucketName, location string) error {
	m.logger.Printf("[MinIO] Ensuring bucket exists: %s (Location: %s)", bucketName, location)
	exists, err := m.client.BucketExists(context.Background(), bucketName)
	if err != nil {
		return fmt.Errorf("检查存储桶 %s 是否存在时出错: %w", bucketName, err)
	}
	if !exists {
		m.logger.Printf("[MinIO] Bucket %s does not exist, attempting to create...", bucketName)
		err = m.client.MakeBucket(context.Background(), bucketName, minio.MakeBucketOptions{Region: location})
		if err != nil {
			return fmt.Errorf("创建存储桶 %s 失败: %w", bucketName, err)
		}
		m.logger.Printf("[MinIO] Bucket %s created successfully.", bucketName)
	}
	return nil
}

// setupLifecycleRules 设置对象生命周期规则
func (m *MinIO) setupLifecycleRules(ctx context.Context) error {
	m.logger.Printf("[MinIO] Setting lifecycle rule for bucket %s: ExpiryDays=%d", m.bucket, m.cfg.OriginalFileExpireDays)
	lcConfig := lifecycle.NewConfiguration()
	lcConfig.Rules = []lifecycle.Rule{
		{
			ID:     "expire-originals",
			Status: "Enabled",
			Expiration: lifecycle.Expiration{
				Days: lifecycle.ExpirationDays(m.cfg.OriginalFileExpireDays),
			},
		},
	}

	if err := m.client.SetBucketLifecycle(ctx, m.bucket, lcConfig); err != nil {
		return fmt.Errorf("为存储桶 %s 设置生命周期失败: %w", m.bucket, err)
	}
	return nil
}

// SaveOriginal 保存原始PDF字节，返回对象键
// 键为原始字节的SHA-256十六进制值加.pdf后缀
func (m *MinIO) SaveOriginal(ctx context.Context, data []byte) (string, error) {
	sum := sha256.Sum256(data)
	objectKey := hex.EncodeToString(sum[:]) + ".pdf"

	info, err := m.client.PutObject(ctx, m.bucket, objectKey, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: constants.PDFContentType})
	if err != nil {
		return "", fmt.Errorf("上传对象 %s/%s 失败: %w", m.bucket, objectKey, err)
	}

	m.logger.Printf("[MinIO] Uploaded original: ObjectKey=%s, ETag=%s, Size=%d", objectKey, info.ETag, info.Size)
	return objectKey, nil
}

// GetOriginal 按对象键取回原始PDF字节
func (m *MinIO) GetOriginal(ctx context.Context, objectKey string) ([]byte, error) {
	obj, err := m.client.GetObject(ctx, m.bucket, objectKey, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("获取对象 %s/%s 失败: %w", m.bucket, objectKey, err)
	}
	defer obj.Close()

	// Stat确认对象确实存在，GetObject本身是惰性的
	stat, err := obj.Stat()
	if err != nil {
		return nil, fmt.Errorf("获取对象 %s/%s 状态失败: %w", m.bucket, objectKey, err)
	}
	m.logger.Printf("[MinIO] Object %s/%s stats: Size=%d, ContentType=%s", m.bucket, objectKey, stat.Size, stat.ContentType)

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("读取对象 %s/%s 数据失败: %w", m.bucket, objectKey, err)
	}
	return data, nil
}

// DeleteOriginal 删除原始PDF对象
func (m *MinIO) DeleteOriginal(ctx context.Context, objectKey string) error {
	err := m.client.RemoveObject(ctx, m.bucket, objectKey, minio.RemoveObjectOptions{})
	if err != nil {
		return fmt.Errorf("删除对象 %s 失败: %w", objectKey, err)
	}
	m.logger.Printf("[MinIO] Deleted object: %s", objectKey)
	return nil
}

// StatObject 暴露底层的StatObject方法，用于测试或特定场景
func (m *MinIO) StatObject(ctx context.Context, objectKey string, opts minio.StatObjectOptions) (minio.ObjectInfo, error) {
	return m.client.StatObject(ctx, m.bucket, objectKey, opts)
}
