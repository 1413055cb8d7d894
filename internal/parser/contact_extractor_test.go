package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractEmailFirstMatch(t *testing.T) {
	extractor := NewContactExtractor("IN")

	text := `Jane Doe
Contact: jane.doe+jobs@example.com
Referee: boss@company.org`

	// 多个邮箱时返回文档顺序的第一个
	assert.Equal(t, "jane.doe+jobs@example.com", extractor.ExtractEmail(text))
}

func TestExtractEmailNotFound(t *testing.T) {
	extractor := NewContactExtractor("IN")
	assert.Equal(t, "", extractor.ExtractEmail("no contact information here"))
}

func TestExtractPhoneE164(t *testing.T) {
	extractor := NewContactExtractor("IN")

	cases := []struct {
		name string
		text string
		want string
	}{
		{
			name: "带国家码",
			text: "Phone: +91 98765 43210",
			want: "+919876543210",
		},
		{
			name: "无国家码走默认区域",
			text: "Mobile: 098765 43210",
			want: "+919876543210",
		},
		{
			name: "带分隔符",
			text: "Call me at +91-98765-43210 anytime",
			want: "+919876543210",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, extractor.ExtractPhone(tc.text))
		})
	}
}

func TestExtractPhoneSkipsInvalidCandidates(t *testing.T) {
	extractor := NewContactExtractor("IN")

	// 日期和编号匹配候选正则但通不过号码合法性校验
	text := `Employee ID: 2023-0456
Joined: 01/02/2019
Phone: +91 98765 43210`

	assert.Equal(t, "+919876543210", extractor.ExtractPhone(text))
}

func TestExtractPhoneNotFound(t *testing.T) {
	extractor := NewContactExtractor("IN")
	assert.Equal(t, "", extractor.ExtractPhone("graduated in 2019, GPA 3.8"))
}

func TestNewContactExtractorDefaultRegion(t *testing.T) {
	extractor := NewContactExtractor("")
	assert.Equal(t, "IN", extractor.defaultRegion)
}
