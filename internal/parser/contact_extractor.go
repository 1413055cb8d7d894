package parser

import (
	"regexp"

	"github.com/nyaruka/phonenumbers"
)

// 邮箱匹配：local-part允许字母数字及 ._+-，域名为字母数字和连字符且至少含一个点
var emailPattern = regexp.MustCompile(`[a-zA-Z0-9_.+-]+@[a-zA-Z0-9-]+\.[a-zA-Z0-9-.]+`)

// 电话候选串：可选+号开头，允许空格、括号、连字符和点作为分隔
// 候选串再交给libphonenumber做合法性校验，避免把日期、编号误判为号码
var phoneCandidatePattern = regexp.MustCompile(`\+?[0-9][0-9 ()\-.]{6,18}[0-9]`)

// ContactExtractor 从简历文本中提取联系方式
type ContactExtractor struct {
	defaultRegion string // 无国家码号码的默认区域，例如 "IN"、"CN"
}

// NewContactExtractor 创建联系方式提取器
func NewContactExtractor(defaultRegion string) *ContactExtractor {
	if defaultRegion == "" {
		defaultRegion = "IN"
	}
	return &ContactExtractor{defaultRegion: defaultRegion}
}

// ExtractEmail 返回文本中按出现顺序的第一个邮箱地址，没有则返回空字符串
func (c *ContactExtractor) ExtractEmail(text string) string {
	return emailPattern.FindString(text)
}

// ExtractPhone 返回文本中第一个合法电话号码，统一格式化为E.164，没有则返回空字符串
func (c *ContactExtractor) ExtractPhone(text string) string {
	for _, candidate := range phoneCandidatePattern.FindAllString(text, -1) {
		num, err := phonenumbers.Parse(candidate, c.defaultRegion)
		if err != nil {
			continue
		}
		if !phonenumbers.IsValidNumber(num) {
			continue
		}
		return phonenumbers.Format(num, phonenumbers.E164)
	}
	return ""
}
