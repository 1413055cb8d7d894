package constants

const (
	// Application-level constants
	DefaultRegion = "IN" // 电话号码解析的默认区域

	// AnalyzerMaxChars 送入LLM一致性分析的文本截断长度
	AnalyzerMaxChars = 1500

	// PDFContentType 上传接口唯一接受的声明类型
	PDFContentType = "application/pdf"
)
