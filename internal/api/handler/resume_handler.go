package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"resume-guard-go/internal/constants"
	"resume-guard-go/internal/logger"
	"resume-guard-go/internal/processor"
	"resume-guard-go/internal/storage/models"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
)

// ResumeHandler 简历风险接口的HTTP处理器
type ResumeHandler struct {
	pipeline *processor.ResumePipeline
	store    processor.RecordStore
	objects  processor.ObjectStore
}

// NewResumeHandler 创建简历处理器
func NewResumeHandler(pipeline *processor.ResumePipeline, store processor.RecordStore, objects processor.ObjectStore) *ResumeHandler {
	return &ResumeHandler{
		pipeline: pipeline,
		store:    store,
		objects:  objects,
	}
}

// RecordResponse 记录的对外表示
type RecordResponse struct {
	RecordID         string          `json:"record_id"`
	OriginalFilename string          `json:"original_filename"`
	TextHash         string          `json:"text_hash"`
	DuplicateCount   int             `json:"duplicate_count"`
	Email            string          `json:"email"`
	Phone            string          `json:"phone"`
	LLMVerdict       string          `json:"llm_verdict"`
	VerdictJSON      json.RawMessage `json:"verdict_json,omitempty"`
	RiskScore        int             `json:"risk_score"`
	RiskLevel        string          `json:"risk_level"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

func toRecordResponse(rec *models.ResumeRecord) RecordResponse {
	resp := RecordResponse{
		RecordID:         rec.RecordID,
		OriginalFilename: rec.OriginalFilename,
		TextHash:         rec.TextHash,
		DuplicateCount:   rec.DuplicateCount,
		LLMVerdict:       rec.LLMVerdict,
		RiskScore:        rec.RiskScore,
		RiskLevel:        rec.RiskLevel,
		CreatedAt:        rec.CreatedAt,
		UpdatedAt:        rec.UpdatedAt,
	}
	if rec.Email != nil {
		resp.Email = *rec.Email
	}
	if rec.Phone != nil {
		resp.Phone = *rec.Phone
	}
	if len(rec.VerdictJSON) > 0 {
		resp.VerdictJSON = json.RawMessage(rec.VerdictJSON)
	}
	return resp
}

// HandleUpload 处理简历上传请求
// POST /api/v1/resume/upload (multipart, 字段名 file)
func (h *ResumeHandler) HandleUpload(c context.Context, ctx *app.RequestContext) {
	fileHeader, err := ctx.FormFile("file")
	if err != nil {
		ctx.JSON(consts.StatusBadRequest, utils.H{"error": "文件未找到"})
		return
	}

	declaredContentType := fileHeader.Header.Get("Content-Type")

	file, err := fileHeader.Open()
	if err != nil {
		ctx.JSON(consts.StatusInternalServerError, utils.H{"error": "打开文件失败"})
		return
	}
	defer file.Close()

	fileBytes, err := io.ReadAll(file)
	if err != nil {
		ctx.JSON(consts.StatusInternalServerError, utils.H{"error": "读取上传文件内容失败"})
		return
	}

	result, err := h.pipeline.ProcessSubmission(c, fileHeader.Filename, declaredContentType, fileBytes)
	if err != nil {
		if errors.Is(err, processor.ErrUnsupportedMediaType) {
			ctx.JSON(consts.StatusUnsupportedMediaType, utils.H{"error": "只接受PDF文件"})
			return
		}
		logger.Error().
			Err(err).
			Str("filename", fileHeader.Filename).
			Msg("处理简历提交失败")
		ctx.JSON(consts.StatusInternalServerError, utils.H{"error": "处理简历提交失败"})
		return
	}

	ctx.JSON(consts.StatusOK, result)
}

// HandleList 返回全部简历记录
// GET /api/v1/resumes
func (h *ResumeHandler) HandleList(c context.Context, ctx *app.RequestContext) {
	records, err := h.store.ListAll(c)
	if err != nil {
		logger.Error().Err(err).Msg("查询简历记录列表失败")
		ctx.JSON(consts.StatusInternalServerError, utils.H{"error": "查询记录列表失败"})
		return
	}

	resp := make([]RecordResponse, 0, len(records))
	for i := range records {
		resp = append(resp, toRecordResponse(&records[i]))
	}
	ctx.JSON(consts.StatusOK, utils.H{"records": resp, "total": len(resp)})
}

// HandleGetByID 返回单条简历记录
// GET /api/v1/resume/:id
func (h *ResumeHandler) HandleGetByID(c context.Context, ctx *app.RequestContext) {
	recordID := ctx.Param("id")
	if recordID == "" {
		ctx.JSON(consts.StatusBadRequest, utils.H{"error": "缺少记录ID"})
		return
	}

	record, err := h.store.FindByID(c, recordID)
	if err != nil {
		if errors.Is(err, processor.ErrRecordNotFound) {
			ctx.JSON(consts.StatusNotFound, utils.H{"error": "简历记录不存在"})
			return
		}
		logger.Error().Err(err).Str("record_id", recordID).Msg("查询简历记录失败")
		ctx.JSON(consts.StatusInternalServerError, utils.H{"error": "查询记录失败"})
		return
	}

	ctx.JSON(consts.StatusOK, toRecordResponse(record))
}

// HandleDownload 下载原始PDF
// GET /api/v1/resume/:id/download
func (h *ResumeHandler) HandleDownload(c context.Context, ctx *app.RequestContext) {
	recordID := ctx.Param("id")
	if recordID == "" {
		ctx.JSON(consts.StatusBadRequest, utils.H{"error": "缺少记录ID"})
		return
	}

	record, err := h.store.FindByID(c, recordID)
	if err != nil {
		if errors.Is(err, processor.ErrRecordNotFound) {
			ctx.JSON(consts.StatusNotFound, utils.H{"error": "简历记录不存在"})
			return
		}
		logger.Error().Err(err).Str("record_id", recordID).Msg("查询简历记录失败")
		ctx.JSON(consts.StatusInternalServerError, utils.H{"error": "查询记录失败"})
		return
	}

	data, err := h.objects.GetOriginal(c, record.StoragePath)
	if err != nil {
		logger.Error().
			Err(err).
			Str("record_id", recordID).
			Str("object_key", record.StoragePath).
			Msg("获取原始PDF失败")
		ctx.JSON(consts.StatusInternalServerError, utils.H{"error": "获取原始文件失败"})
		return
	}

	ctx.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", record.OriginalFilename))
	ctx.Data(consts.StatusOK, constants.PDFContentType, data)
}
