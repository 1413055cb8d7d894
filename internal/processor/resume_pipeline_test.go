package processor

import (
	"context"
	"errors"
	"testing"

	"resume-guard-go/internal/scorer"
	"resume-guard-go/internal/storage/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- 测试替身 ---

type fakeExtractor struct {
	text  string
	err   error
	calls int
}

func (f *fakeExtractor) ExtractTextFromBytes(ctx context.Context, data []byte, uri string) (string, error) {
	f.calls++
	return f.text, f.err
}

type fakeContacts struct {
	email string
	phone string
}

func (f *fakeContacts) ExtractEmail(text string) string { return f.email }
func (f *fakeContacts) ExtractPhone(text string) string { return f.phone }

type fakeAnalyzer struct {
	verdict string
	calls   int
}

func (f *fakeAnalyzer) Analyze(ctx context.Context, text string) string {
	f.calls++
	return f.verdict
}

type fakeObjectStore struct {
	err   error
	calls int
}

func (f *fakeObjectStore) SaveOriginal(ctx context.Context, data []byte) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return "object-key.pdf", nil
}

func (f *fakeObjectStore) GetOriginal(ctx context.Context, objectKey string) ([]byte, error) {
	return nil, errors.New("not implemented")
}

// fakeRecordStore 按text_hash组织的内存记录存储，行为与MySQL适配器对齐
type fakeRecordStore struct {
	records     map[string]*models.ResumeRecord // text_hash -> record
	insertErr   error                           // 首次Insert强制返回的错误
	insertCalls int
	incrCalls   int
}

func newFakeRecordStore() *fakeRecordStore {
	return &fakeRecordStore{records: map[string]*models.ResumeRecord{}}
}

func (f *fakeRecordStore) FindByTextHash(ctx context.Context, textHash string) (*models.ResumeRecord, error) {
	if rec, ok := f.records[textHash]; ok {
		cp := *rec
		return &cp, nil
	}
	return nil, ErrRecordNotFound
}

func (f *fakeRecordStore) FindByID(ctx context.Context, recordID string) (*models.ResumeRecord, error) {
	for _, rec := range f.records {
		if rec.RecordID == recordID {
			cp := *rec
			return &cp, nil
		}
	}
	return nil, ErrRecordNotFound
}

func (f *fakeRecordStore) ListAll(ctx context.Context) ([]models.ResumeRecord, error) {
	out := make([]models.ResumeRecord, 0, len(f.records))
	for _, rec := range f.records {
		out = append(out, *rec)
	}
	return out, nil
}

func (f *fakeRecordStore) Insert(ctx context.Context, record *models.ResumeRecord) error {
	f.insertCalls++
	if f.insertErr != nil {
		err := f.insertErr
		f.insertErr = nil
		return err
	}
	if _, ok := f.records[record.TextHash]; ok {
		return ErrDuplicateRecord
	}
	cp := *record
	f.records[record.TextHash] = &cp
	return nil
}

func (f *fakeRecordStore) IncrementDuplicateAndRescore(ctx context.Context, textHash string) (*models.ResumeRecord, error) {
	f.incrCalls++
	rec, ok := f.records[textHash]
	if !ok {
		return nil, ErrRecordNotFound
	}
	rec.DuplicateCount++
	email, phone := "", ""
	if rec.Email != nil {
		email = *rec.Email
	}
	if rec.Phone != nil {
		phone = *rec.Phone
	}
	score := scorer.Score(rec.DuplicateCount, email, phone, rec.LLMVerdict)
	rec.RiskScore = score
	rec.RiskLevel = string(scorer.Level(score))
	cp := *rec
	return &cp, nil
}

type fakeDedupCache struct {
	seen map[string]bool
	err  error
}

func (f *fakeDedupCache) CheckAndAddTextHash(ctx context.Context, textHash string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	if f.seen == nil {
		f.seen = map[string]bool{}
	}
	existed := f.seen[textHash]
	f.seen[textHash] = true
	return existed, nil
}

func newTestPipeline(extractor *fakeExtractor, contacts *fakeContacts, analyzer *fakeAnalyzer, store *fakeRecordStore, objects *fakeObjectStore, cache DedupCache) *ResumePipeline {
	return NewResumePipeline(extractor, contacts, analyzer, store, objects, cache)
}

// --- 用例 ---

func TestProcessSubmissionRejectsNonPDF(t *testing.T) {
	extractor := &fakeExtractor{text: "ignored"}
	objects := &fakeObjectStore{}
	store := newFakeRecordStore()
	pipeline := newTestPipeline(extractor, &fakeContacts{}, &fakeAnalyzer{}, store, objects, nil)

	result, err := pipeline.ProcessSubmission(context.Background(), "r.docx", "application/msword", []byte("not a pdf"))

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsupportedMediaType)
	assert.Nil(t, result)
	// 拒绝发生在任何提取和存储之前
	assert.Equal(t, 0, extractor.calls)
	assert.Equal(t, 0, objects.calls)
	assert.Equal(t, 0, store.insertCalls)
}

func TestProcessSubmissionNewRecord(t *testing.T) {
	extractor := &fakeExtractor{text: "John Doe\njohn@example.com\n+919876543210"}
	contacts := &fakeContacts{email: "john@example.com", phone: "+919876543210"}
	analyzer := &fakeAnalyzer{verdict: `{"inconsistencies": [], "suspicious_patterns": [], "summary": "clean"}`}
	store := newFakeRecordStore()
	pipeline := newTestPipeline(extractor, contacts, analyzer, store, &fakeObjectStore{}, nil)

	result, err := pipeline.ProcessSubmission(context.Background(), "r.pdf", "application/pdf", []byte("%PDF-1.4"))

	require.NoError(t, err)
	require.NotNil(t, result)
	assert.False(t, result.IsDuplicate)
	assert.NotEmpty(t, result.RecordID)
	// 联系方式齐全，结论含"inconsistencies"和"suspicious"子串各加20分
	assert.Equal(t, 40, result.RiskScore)
	assert.Equal(t, "Medium", result.RiskLevel)

	rec, err := store.FindByTextHash(context.Background(), TextHash(extractor.text))
	require.NoError(t, err)
	assert.Equal(t, 0, rec.DuplicateCount)
	require.NotNil(t, rec.Email)
	assert.Equal(t, "john@example.com", *rec.Email)
	assert.Equal(t, "object-key.pdf", rec.StoragePath)
}

func TestProcessSubmissionDuplicateIncrements(t *testing.T) {
	extractor := &fakeExtractor{text: "same resume text"}
	contacts := &fakeContacts{email: "a@b.com", phone: "+919876543210"}
	analyzer := &fakeAnalyzer{verdict: "looks fine"}
	store := newFakeRecordStore()
	pipeline := newTestPipeline(extractor, contacts, analyzer, store, &fakeObjectStore{}, nil)

	first, err := pipeline.ProcessSubmission(context.Background(), "a.pdf", "application/pdf", []byte("%PDF-1"))
	require.NoError(t, err)
	require.False(t, first.IsDuplicate)

	second, err := pipeline.ProcessSubmission(context.Background(), "b.pdf", "application/pdf", []byte("%PDF-2"))
	require.NoError(t, err)

	assert.True(t, second.IsDuplicate)
	assert.Equal(t, first.RecordID, second.RecordID)
	// 重复一次加10分
	assert.Equal(t, first.RiskScore+10, second.RiskScore)

	rec, err := store.FindByTextHash(context.Background(), TextHash(extractor.text))
	require.NoError(t, err)
	assert.Equal(t, 1, rec.DuplicateCount)
	// 重复提交不改写存量字段
	assert.Equal(t, "a.pdf", rec.OriginalFilename)
	assert.Equal(t, "a@b.com", *rec.Email)
	// 第二次提交不再触发LLM分析
	assert.Equal(t, 1, analyzer.calls)
	assert.Equal(t, 1, store.insertCalls)
	assert.Equal(t, 1, store.incrCalls)
}

func TestProcessSubmissionExtractorFailureCollapsesToEmptyText(t *testing.T) {
	// 两个内容不同但都提取失败的PDF会汇入同一条空文本记录
	extractor := &fakeExtractor{err: errors.New("encrypted pdf")}
	store := newFakeRecordStore()
	pipeline := newTestPipeline(extractor, &fakeContacts{}, &fakeAnalyzer{}, store, &fakeObjectStore{}, nil)

	first, err := pipeline.ProcessSubmission(context.Background(), "x.pdf", "application/pdf", []byte("pdf-one"))
	require.NoError(t, err)
	assert.False(t, first.IsDuplicate)

	second, err := pipeline.ProcessSubmission(context.Background(), "y.pdf", "application/pdf", []byte("pdf-two"))
	require.NoError(t, err)
	assert.True(t, second.IsDuplicate)
	assert.Equal(t, first.RecordID, second.RecordID)

	rec, err := store.FindByTextHash(context.Background(), TextHash(""))
	require.NoError(t, err)
	assert.Equal(t, 1, rec.DuplicateCount)
}

func TestProcessSubmissionAnalyzerSilenceIsNoSignal(t *testing.T) {
	extractor := &fakeExtractor{text: "resume without contacts"}
	analyzer := &fakeAnalyzer{verdict: ""} // 分析服务不可用
	store := newFakeRecordStore()
	pipeline := newTestPipeline(extractor, &fakeContacts{}, analyzer, store, &fakeObjectStore{}, nil)

	result, err := pipeline.ProcessSubmission(context.Background(), "r.pdf", "application/pdf", []byte("%PDF"))

	require.NoError(t, err)
	// 空结论不加关键词分，只有联系方式缺失的20分
	assert.Equal(t, 20, result.RiskScore)
	assert.Equal(t, "Low", result.RiskLevel)
}

func TestProcessSubmissionObjectStoreFailurePropagates(t *testing.T) {
	extractor := &fakeExtractor{text: "text"}
	objects := &fakeObjectStore{err: errors.New("minio unavailable")}
	store := newFakeRecordStore()
	pipeline := newTestPipeline(extractor, &fakeContacts{}, &fakeAnalyzer{}, store, objects, nil)

	result, err := pipeline.ProcessSubmission(context.Background(), "r.pdf", "application/pdf", []byte("%PDF"))

	require.Error(t, err)
	assert.Nil(t, result)
	assert.Equal(t, 0, store.insertCalls)
}

func TestProcessSubmissionInsertRaceFallsBackToIncrement(t *testing.T) {
	extractor := &fakeExtractor{text: "racing resume"}
	store := newFakeRecordStore()

	// 预置"并发对手"已插入的记录，并让本次Insert返回唯一键冲突
	email := "rival@example.com"
	existing := &models.ResumeRecord{
		RecordID:       "pre-existing-id",
		TextHash:       TextHash(extractor.text),
		DuplicateCount: 0,
		Email:          &email,
		RiskScore:      10,
		RiskLevel:      "Low",
	}
	require.NoError(t, store.Insert(context.Background(), existing))
	store.insertErr = ErrDuplicateRecord
	store.insertCalls = 0

	pipeline := newTestPipeline(extractor, &fakeContacts{email: "me@example.com"}, &fakeAnalyzer{}, store, &fakeObjectStore{}, nil)

	result, err := pipeline.ProcessSubmission(context.Background(), "r.pdf", "application/pdf", []byte("%PDF"))

	require.NoError(t, err)
	assert.True(t, result.IsDuplicate)
	assert.Equal(t, "pre-existing-id", result.RecordID)
	assert.Equal(t, 1, store.incrCalls)
}

func TestProcessSubmissionCacheFailureDoesNotBlock(t *testing.T) {
	extractor := &fakeExtractor{text: "cached text"}
	cache := &fakeDedupCache{err: errors.New("redis down")}
	store := newFakeRecordStore()
	pipeline := newTestPipeline(extractor, &fakeContacts{}, &fakeAnalyzer{}, store, &fakeObjectStore{}, cache)

	result, err := pipeline.ProcessSubmission(context.Background(), "r.pdf", "application/pdf", []byte("%PDF"))

	require.NoError(t, err)
	assert.False(t, result.IsDuplicate)
}

func TestProcessSubmissionStaleCacheHitFallsBackToNew(t *testing.T) {
	extractor := &fakeExtractor{text: "text only in cache"}
	cache := &fakeDedupCache{seen: map[string]bool{TextHash("text only in cache"): true}}
	store := newFakeRecordStore() // 数据库里没有对应记录
	pipeline := newTestPipeline(extractor, &fakeContacts{}, &fakeAnalyzer{}, store, &fakeObjectStore{}, cache)

	result, err := pipeline.ProcessSubmission(context.Background(), "r.pdf", "application/pdf", []byte("%PDF"))

	require.NoError(t, err)
	assert.False(t, result.IsDuplicate)
	assert.Equal(t, 1, store.insertCalls)
}

func TestTextHashStability(t *testing.T) {
	h1 := TextHash("resume text")
	h2 := TextHash("resume text")
	h3 := TextHash("resume text ") // 单字符差异

	assert.Equal(t, h1, h2)
	assert.NotEqual(t, h1, h3)
	assert.Len(t, h1, 64)

	// 空文本的哈希是SHA-256的已知常量
	assert.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", TextHash(""))
}
