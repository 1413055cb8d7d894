package scorer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestScoreDeterministic 相同输入应得到相同分数
func TestScoreDeterministic(t *testing.T) {
	for i := 0; i < 10; i++ {
		assert.Equal(t, Score(2, "a@b.com", "+8613800001111", "all clear"), Score(2, "a@b.com", "+8613800001111", "all clear"))
	}
}

// TestScoreDuplicateCap 重复加分应在3次后饱和于30
func TestScoreDuplicateCap(t *testing.T) {
	base := Score(0, "a@b.com", "+8613800001111", "")
	assert.Equal(t, base+10, Score(1, "a@b.com", "+8613800001111", ""))
	assert.Equal(t, base+20, Score(2, "a@b.com", "+8613800001111", ""))
	assert.Equal(t, base+30, Score(3, "a@b.com", "+8613800001111", ""))

	// 超过饱和点后不再增长
	assert.Equal(t, Score(3, "a@b.com", "+8613800001111", ""), Score(100, "a@b.com", "+8613800001111", ""))
}

// TestScoreMissingContacts 邮箱和电话缺失各加10分，独立叠加
func TestScoreMissingContacts(t *testing.T) {
	both := Score(0, "a@b.com", "+8613800001111", "")
	noEmail := Score(0, "", "+8613800001111", "")
	noPhone := Score(0, "a@b.com", "", "")
	neither := Score(0, "", "", "")

	assert.Equal(t, both+10, noEmail)
	assert.Equal(t, both+10, noPhone)
	assert.Equal(t, both+20, neither, "两项都缺失应比都存在高20分")
}

// TestScoreVerdictKeywords 结论关键词的词法触发
func TestScoreVerdictKeywords(t *testing.T) {
	clean := Score(0, "a@b.com", "+8613800001111", "the resume looks fine")
	assert.Equal(t, 0, clean, "无关键词的结论不加分")

	withBoth := Score(0, "a@b.com", "+8613800001111", "found inconsistencies and suspicious patterns")
	assert.Equal(t, clean+40, withBoth, "两个关键词各加20分")

	// 大小写不敏感
	upper := Score(0, "a@b.com", "+8613800001111", "INCONSISTENCIES detected; SUSPICIOUS entries")
	assert.Equal(t, withBoth, upper)

	// 空结论视为无信号
	assert.Equal(t, 0, Score(0, "a@b.com", "+8613800001111", ""))

	// 原始响应是JSON时同样按整串做子串匹配
	jsonVerdict := `{"inconsistencies": ["dates overlap"], "suspicious_patterns": [], "summary": ""}`
	assert.Equal(t, clean+20, Score(0, "a@b.com", "+8613800001111", jsonVerdict), "JSON键名命中inconsistencies也会触发")
}

// TestScoreBounds 分数不应越界
func TestScoreBounds(t *testing.T) {
	// 所有加分项同时触发时为最坏情况：30+10+10+20+20=90
	worst := Score(1000, "", "", "inconsistencies suspicious")
	assert.Equal(t, 90, worst)
	assert.LessOrEqual(t, worst, MaxScore)

	best := Score(0, "a@b.com", "+8613800001111", "")
	assert.GreaterOrEqual(t, best, 0)
	assert.Equal(t, 0, best)
}

// TestLevelBoundaries 等级边界为含下界
func TestLevelBoundaries(t *testing.T) {
	assert.Equal(t, LevelLow, Level(0))
	assert.Equal(t, LevelLow, Level(29))
	assert.Equal(t, LevelMedium, Level(30))
	assert.Equal(t, LevelMedium, Level(59))
	assert.Equal(t, LevelHigh, Level(60))
	assert.Equal(t, LevelHigh, Level(100))
}

// TestScoreWorkedExample 规则组合示例：
// 新提交、无邮箱电话、空结论 → 20分(Low)；重复一次后 → 30分(Medium)
func TestScoreWorkedExample(t *testing.T) {
	first := Score(0, "", "", "")
	assert.Equal(t, 20, first)
	assert.Equal(t, LevelLow, Level(first))

	resubmitted := Score(1, "", "", "")
	assert.Equal(t, 30, resubmitted)
	assert.Equal(t, LevelMedium, Level(resubmitted))
}
