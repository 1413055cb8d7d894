// Package scorer 实现简历风险评分的纯函数逻辑
// 评分只依赖四个输入：重复计数、邮箱、电话、LLM结论文本，方便独立测试
package scorer

import "strings"

// RiskLevel 风险等级
type RiskLevel string

const (
	LevelLow    RiskLevel = "Low"
	LevelMedium RiskLevel = "Medium"
	LevelHigh   RiskLevel = "High"
)

const (
	// MaxScore 分数上限
	MaxScore = 100

	// duplicateStep 每次重复提交的加分
	duplicateStep = 10
	// duplicateCap 重复加分的饱和值
	duplicateCap = 30

	// missingContactPenalty 单项联系方式缺失的加分
	missingContactPenalty = 10

	// keywordPenalty 结论文本命中单个关键词的加分
	keywordPenalty = 20

	// mediumThreshold / highThreshold 等级边界，含下界
	mediumThreshold = 30
	highThreshold   = 60
)

// 关键词按LLM结论原始文本做大小写不敏感的子串匹配
// 这是对分类服务自由文本输出的粗粒度词法触发，不解析其JSON结构；
// 结论中无关句子提到这些词同样会触发加分，属于已知的设计局限
var verdictKeywords = []string{"inconsistencies", "suspicious"}

// Score 计算风险分数，结果始终落在[0, MaxScore]区间
// 相同输入永远得到相同输出
func Score(duplicateCount int, email string, phone string, verdict string) int {
	score := 0

	// 重复提交加分，饱和于duplicateCap
	dup := duplicateCount * duplicateStep
	if dup > duplicateCap {
		dup = duplicateCap
	}
	if dup > 0 {
		score += dup
	}

	// 联系方式缺失加分，邮箱和电话独立计算
	if email == "" {
		score += missingContactPenalty
	}
	if phone == "" {
		score += missingContactPenalty
	}

	// 结论关键词加分
	if verdict != "" {
		lower := strings.ToLower(verdict)
		for _, kw := range verdictKeywords {
			if strings.Contains(lower, kw) {
				score += keywordPenalty
			}
		}
	}

	if score > MaxScore {
		score = MaxScore
	}
	return score
}

// Level 将分数映射为三档风险等级
// score < 30 → Low；30 ≤ score < 60 → Medium；score ≥ 60 → High
func Level(score int) RiskLevel {
	switch {
	case score < mediumThreshold:
		return LevelLow
	case score < highThreshold:
		return LevelMedium
	default:
		return LevelHigh
	}
}
