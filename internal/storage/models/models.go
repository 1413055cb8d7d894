package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// 风险等级常量
const (
	RiskLevelLow    = "Low"
	RiskLevelMedium = "Medium"
	RiskLevelHigh   = "High"
)

// ResumeRecord 简历风险记录表
// 每个提取文本哈希对应唯一一条记录；重复提交只递增duplicate_count并重算分数
type ResumeRecord struct {
	RecordID         string         `gorm:"type:char(36);primaryKey"`
	OriginalFilename string         `gorm:"type:varchar(255)"`
	StoragePath      string         `gorm:"type:varchar(1024)"` // MinIO中原始PDF的对象键
	TextHash         string         `gorm:"type:char(64);not null;uniqueIndex:idx_rr_text_hash"`
	DuplicateCount   int            `gorm:"not null;default:0"`
	Email            *string        `gorm:"type:varchar(255)"` // 未提取到则为NULL
	Phone            *string        `gorm:"type:varchar(50)"`  // E.164格式，未提取到则为NULL
	LLMVerdict       string         `gorm:"type:text"`         // 分析服务返回的原始文本，失败时为空
	VerdictJSON      datatypes.JSON `gorm:"type:json"`         // 仅用于展示的解析副本，评分不读取此字段
	RiskScore        int            `gorm:"not null;default:0"`
	RiskLevel        string         `gorm:"type:varchar(10);not null;default:'Low';index:idx_rr_risk_level"`
	CreatedAt        time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6)"`
	UpdatedAt        time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);autoUpdateTime"`
}

func (ResumeRecord) TableName() string {
	return "resume_records"
}

// VerdictToJSON 当verdict本身是合法JSON时返回其datatypes.JSON副本，否则返回nil
// 评分逻辑永远基于原始字符串，此副本只服务于展示层
func VerdictToJSON(verdict string) datatypes.JSON {
	if verdict == "" {
		return nil
	}
	if !json.Valid([]byte(verdict)) {
		return nil
	}
	return datatypes.JSON(verdict)
}
