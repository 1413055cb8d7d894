package constants

// Redis Key 前缀和格式常量
// 使用统一的命名规范: app:{module}:{entity}
const (
	// AppPrefix 是所有Redis Key的统一应用前缀
	AppPrefix = "app"

	// ResumeModulePrefix 简历模块
	ResumeModulePrefix = "resume"

	// EntityDedupSet 去重集合实体
	EntityDedupSet = "dedup_set"

	// KeyTextHashSet 提取文本哈希集合，用于重复提交的快速判定 (SET)
	// 格式: app:resume:dedup_set
	KeyTextHashSet = AppPrefix + ":" + ResumeModulePrefix + ":" + EntityDedupSet
)
