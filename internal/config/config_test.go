package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLoadConfigFromYAML 验证YAML配置文件能够被正确加载
func TestLoadConfigFromYAML(t *testing.T) {
	yamlContent := `
server:
  address: ":9090"
llm:
  api_url: "https://api.groq.com/openai/v1/chat/completions"
  model: "llama-3.3-70b-versatile"
analyzer:
  temperature: 0.2
  timeout_seconds: 15
  default_region: "US"
mysql:
  host: "db.internal"
  port: 3306
  database: "resume_guard"
redis:
  address: "cache.internal:6379"
  hash_record_expire_days: 30
minio:
  endpoint: "oss.internal:9000"
  bucketName: "resume-originals"
`
	tmpDir, err := os.MkdirTemp("", "config-test")
	require.NoError(t, err, "无法创建临时目录")
	defer os.RemoveAll(tmpDir)

	configPath := filepath.Join(tmpDir, "config.yaml")
	err = os.WriteFile(configPath, []byte(yamlContent), 0644)
	require.NoError(t, err, "无法写入临时配置文件")

	config, err := LoadConfig(configPath)
	require.NoError(t, err, "加载合法配置不应返回错误")
	require.NotNil(t, config, "配置对象不应为 nil")

	assert.Equal(t, ":9090", config.Server.Address)
	assert.Equal(t, "llama-3.3-70b-versatile", config.LLM.Model)
	assert.Equal(t, "US", config.Analyzer.DefaultRegion)
	assert.Equal(t, 15*time.Second, config.AnalyzerTimeout())
	assert.Equal(t, "db.internal", config.MySQL.Host)
	assert.Equal(t, 30, config.Redis.HashRecordExpireDays)
	assert.Equal(t, "resume-originals", config.MinIO.BucketName)
}

// TestLoadConfigDefaults 验证缺省字段会被填充默认值
func TestLoadConfigDefaults(t *testing.T) {
	yamlContent := `
mysql:
  host: "localhost"
`
	tmpDir, err := os.MkdirTemp("", "config-test-defaults")
	require.NoError(t, err)
	defer os.RemoveAll(tmpDir)

	configPath := filepath.Join(tmpDir, "config.yaml")
	err = os.WriteFile(configPath, []byte(yamlContent), 0644)
	require.NoError(t, err)

	config, err := LoadConfig(configPath)
	require.NoError(t, err)

	assert.Equal(t, ":8080", config.Server.Address, "服务器地址应有默认值")
	assert.Equal(t, 30*time.Second, config.AnalyzerTimeout(), "分析器超时应有默认值")
	assert.Equal(t, "IN", config.Analyzer.DefaultRegion, "默认电话区域应为IN")
	assert.InDelta(t, 0.2, config.Analyzer.Temperature, 1e-9)
}

// TestDefaultConfigInTestEnv 验证测试环境下无配置文件时返回内置默认配置
func TestDefaultConfigInTestEnv(t *testing.T) {
	config, err := LoadConfig("")
	require.NoError(t, err, "测试环境下缺少配置文件不应报错")
	require.NotNil(t, config)

	assert.NotEmpty(t, config.MySQL.Database)
	assert.NotEmpty(t, config.Redis.Address)
	assert.NotEmpty(t, config.MinIO.BucketName)
	assert.NotEmpty(t, config.LLM.Model)
}
