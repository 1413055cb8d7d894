package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config 应用程序配置
type Config struct {
	// LLM 一致性分析使用的聊天模型服务（OpenAI兼容接口）
	LLM LLMConfig `yaml:"llm"`

	// 一致性分析器配置
	Analyzer AnalyzerConfig `yaml:"analyzer"`

	// MinIO配置
	MinIO MinIOConfig `yaml:"minio"`

	// MySQL配置
	MySQL MySQLConfig `yaml:"mysql"`

	// Redis配置
	Redis RedisConfig `yaml:"redis"`

	// 服务器配置
	Server ServerConfig `yaml:"server"`

	// 日志配置
	Logger LoggerConfig `yaml:"logger"`
}

// LLMConfig 聊天模型服务配置
type LLMConfig struct {
	APIKey string `yaml:"api_key"`
	APIURL string `yaml:"api_url"`
	Model  string `yaml:"model"`
}

// AnalyzerConfig 一致性分析器配置
type AnalyzerConfig struct {
	Temperature    float64 `yaml:"temperature"`     // 采样温度
	TimeoutSeconds int     `yaml:"timeout_seconds"` // 单次调用超时(秒)，超时后按空结论处理
	DefaultRegion  string  `yaml:"default_region"`  // 电话号码解析默认区域，例如 "IN"
}

// MinIOConfig MinIO配置结构
type MinIOConfig struct {
	Endpoint        string `yaml:"endpoint"`
	AccessKeyID     string `yaml:"accessKeyID"`
	SecretAccessKey string `yaml:"secretAccessKey"`
	UseSSL          bool   `yaml:"useSSL"`
	BucketName      string `yaml:"bucketName"` // 原始简历存储桶
	Location        string `yaml:"location"`   // 可选，存储桶区域
	// 对象生命周期管理
	OriginalFileExpireDays int `yaml:"original_file_expire_days"` // 原始文件过期天数，0表示不过期
}

// MySQLConfig MySQL配置结构
type MySQLConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	// 连接池设置
	MaxIdleConns int `yaml:"max_idle_conns"` // 最大空闲连接数
	MaxOpenConns int `yaml:"max_open_conns"` // 最大打开连接数
	// 连接生命周期
	ConnMaxLifetimeMinutes int `yaml:"conn_max_lifetime_minutes"`  // 连接最大生命周期(分钟)
	ConnMaxIdleTimeMinutes int `yaml:"conn_max_idle_time_minutes"` // 空闲连接最大生命周期(分钟)
	// 超时设置
	ConnectTimeoutSeconds int `yaml:"connect_timeout_seconds"` // 连接超时(秒)
	ReadTimeoutSeconds    int `yaml:"read_timeout_seconds"`    // 读取超时(秒)
	WriteTimeoutSeconds   int `yaml:"write_timeout_seconds"`   // 写入超时(秒)
	// 日志设置
	LogLevel int `yaml:"log_level"` // 日志级别(1-4)
}

// RedisConfig Redis配置结构
type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	// 连接池设置
	PoolSize     int `yaml:"pool_size"`      // 连接池大小
	MinIdleConns int `yaml:"min_idle_conns"` // 最小空闲连接数
	// 超时设置
	DialTimeoutSeconds  int `yaml:"dial_timeout_seconds"`  // 连接超时(秒)
	ReadTimeoutSeconds  int `yaml:"read_timeout_seconds"`  // 读取超时(秒)
	WriteTimeoutSeconds int `yaml:"write_timeout_seconds"` // 写入超时(秒)
	// 哈希记录过期时间(天)
	HashRecordExpireDays int `yaml:"hash_record_expire_days"` // 文本哈希记录过期时间(天)
}

// ServerConfig 定义服务器配置
type ServerConfig struct {
	Address string `yaml:"address"` // 例如 ":8080" or "0.0.0.0:8080"
}

// LoggerConfig 日志配置
type LoggerConfig struct {
	Level        string `yaml:"level"`         // debug, info, warn, error
	Format       string `yaml:"format"`        // json, pretty
	TimeFormat   string `yaml:"time_format"`   // 时间格式
	ReportCaller bool   `yaml:"report_caller"` // 是否报告调用位置
}

// LoadConfig 从文件加载配置
func LoadConfig(configPath string) (*Config, error) {
	// 如果未指定配置文件路径，则尝试在默认位置查找
	if configPath == "" {
		searchPaths := []string{
			"config.yaml",
			"./config.yaml",
			"../config.yaml",
			"../../config.yaml",
			filepath.Join(os.Getenv("HOME"), ".resume-guard", "config.yaml"),
		}

		// 获取当前可执行文件路径
		execPath, err := os.Executable()
		if err == nil {
			execDir := filepath.Dir(execPath)
			searchPaths = append(searchPaths, filepath.Join(execDir, "config.yaml"))
			searchPaths = append(searchPaths, filepath.Join(execDir, "..", "config.yaml"))
		}

		for _, path := range searchPaths {
			if _, err := os.Stat(path); err == nil {
				configPath = path
				break
			}
		}

		// 如果仍找不到配置文件，测试环境下使用默认配置
		if configPath == "" {
			if inTestEnv() {
				return createDefaultConfig(), nil
			}
			configPath = "config.yaml"
		}
	}

	// 检查文件是否存在
	if _, err := os.Stat(configPath); err != nil {
		if inTestEnv() {
			return createDefaultConfig(), nil
		}
		return nil, fmt.Errorf("配置文件不存在: %s", configPath)
	}

	// 读取配置文件
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	// 解析配置文件
	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	// 从环境变量覆盖配置（如果存在）
	if envKey := os.Getenv("LLM_API_KEY"); envKey != "" {
		config.LLM.APIKey = envKey
	}
	if envURL := os.Getenv("LLM_API_URL"); envURL != "" {
		config.LLM.APIURL = envURL
	}
	if envModel := os.Getenv("LLM_MODEL"); envModel != "" {
		config.LLM.Model = envModel
	}

	applyDefaults(&config)

	return &config, nil
}

// inTestEnv 检测是否在go test环境中运行
func inTestEnv() bool {
	for _, arg := range os.Args {
		if strings.Contains(arg, "test") {
			return true
		}
	}
	return false
}

// applyDefaults 为缺失的配置项设置默认值
func applyDefaults(config *Config) {
	if config.Server.Address == "" {
		config.Server.Address = ":8080"
	}
	if config.Analyzer.TimeoutSeconds <= 0 {
		config.Analyzer.TimeoutSeconds = 30
	}
	if config.Analyzer.Temperature == 0 {
		config.Analyzer.Temperature = 0.2
	}
	if config.Analyzer.DefaultRegion == "" {
		config.Analyzer.DefaultRegion = "IN"
	}
}

// createDefaultConfig 创建一个默认配置，用于测试环境
func createDefaultConfig() *Config {
	config := &Config{}

	config.LLM.APIURL = "https://api.groq.com/openai/v1/chat/completions"
	config.LLM.Model = "llama-3.3-70b-versatile"

	// Analyzer默认配置
	config.Analyzer.Temperature = 0.2
	config.Analyzer.TimeoutSeconds = 30
	config.Analyzer.DefaultRegion = "IN"

	// MinIO默认配置
	config.MinIO.Endpoint = "localhost:9000"
	config.MinIO.AccessKeyID = "minioadmin"
	config.MinIO.SecretAccessKey = "minioadmin123"
	config.MinIO.UseSSL = false
	config.MinIO.BucketName = "resume-originals"
	config.MinIO.Location = ""
	config.MinIO.OriginalFileExpireDays = 0 // 默认不过期

	// MySQL默认配置
	config.MySQL.Host = "localhost"
	config.MySQL.Port = 3306
	config.MySQL.Username = "root"
	config.MySQL.Password = "password"
	config.MySQL.Database = "resume_guard"
	config.MySQL.MaxIdleConns = 10
	config.MySQL.MaxOpenConns = 100
	config.MySQL.ConnMaxLifetimeMinutes = 60
	config.MySQL.ConnMaxIdleTimeMinutes = 30
	config.MySQL.ConnectTimeoutSeconds = 10
	config.MySQL.ReadTimeoutSeconds = 30
	config.MySQL.WriteTimeoutSeconds = 30
	config.MySQL.LogLevel = 4 // Info级别

	// Redis默认配置
	config.Redis.Address = "localhost:6379"
	config.Redis.Password = ""
	config.Redis.DB = 0
	config.Redis.PoolSize = 10
	config.Redis.MinIdleConns = 2
	config.Redis.DialTimeoutSeconds = 5
	config.Redis.ReadTimeoutSeconds = 3
	config.Redis.WriteTimeoutSeconds = 3
	config.Redis.HashRecordExpireDays = 365 // 默认1年过期

	// 服务器默认配置
	config.Server.Address = ":8080"

	// 日志默认配置
	config.Logger.Level = "info"
	config.Logger.Format = "pretty"
	config.Logger.TimeFormat = "2006-01-02 15:04:05"
	config.Logger.ReportCaller = true

	// 环境变量中的API Key优先
	if envKey := os.Getenv("LLM_API_KEY"); envKey != "" {
		config.LLM.APIKey = envKey
	} else {
		config.LLM.APIKey = "test_api_key"
	}

	return config
}

// AnalyzerTimeout 返回一致性分析的单次调用超时
func (c *Config) AnalyzerTimeout() time.Duration {
	if c.Analyzer.TimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.Analyzer.TimeoutSeconds) * time.Second
}
