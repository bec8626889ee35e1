// Package config 负责加载和管理应用程序的配置。
package config

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
)

// 全局配置变量，存储从配置文件加载的所有设置。
var Conf Config

// Config 是整个应用程序的配置结构体，与 config.yaml 文件结构对应。
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Log      LogConfig      `mapstructure:"log"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Archive  ArchiveConfig  `mapstructure:"archive"`
}

// ServerConfig 存储服务器相关的配置。
type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

// DatabaseConfig 存储所有数据库连接的配置。
type DatabaseConfig struct {
	MySQL MySQLConfig `mapstructure:"mysql"`
	Redis RedisConfig `mapstructure:"redis"`
}

// MySQLConfig 存储 MySQL 数据库的配置。
type MySQLConfig struct {
	DSN string `mapstructure:"dsn"`
}

// RedisConfig 存储 Redis 的配置。
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// LogConfig 存储日志相关的配置。
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

// StorageConfig 存储文件存储后端的配置。
// Backend 取值 "local" 或 "minio"。
type StorageConfig struct {
	Backend    string      `mapstructure:"backend"`
	UploadPath string      `mapstructure:"upload_path"`
	MinIO      MinIOConfig `mapstructure:"minio"`
}

// MinIOConfig 存储 MinIO 对象存储的配置。
type MinIOConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UseSSL          bool   `mapstructure:"use_ssl"`
	BucketName      string `mapstructure:"bucket_name"`
}

// KafkaConfig 存储访问事件流（Kafka）相关的配置。
// Enabled 为 false 时不连接 Kafka，审计事件只落库。
type KafkaConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Brokers string `mapstructure:"brokers"`
	Topic   string `mapstructure:"topic"`
}

// ArchiveConfig 存储档案上传的限制参数。
type ArchiveConfig struct {
	// MaxFiles 单次请求允许的最大文件数
	MaxFiles int `mapstructure:"max_files"`
	// MaxFileSize 单个文件的最大字节数
	MaxFileSize int64 `mapstructure:"max_file_size"`
}

// Init 初始化配置加载，从指定的路径读取 YAML 文件并解析到 Conf 变量中。
// 部署环境变量（DB_USER/DB_PASSWORD/DB_SERVER/DB_NAME/UPLOAD_PATH）优先于文件配置。
func Init(configPath string) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	if err := viper.ReadInConfig(); err != nil {
		panic(fmt.Errorf("读取配置文件失败: %w", err))
	}

	if err := viper.Unmarshal(&Conf); err != nil {
		panic(fmt.Errorf("无法将配置解析到结构体中: %w", err))
	}

	applyEnvOverrides(&Conf)
	applyDefaults(&Conf)
}

// applyEnvOverrides 用部署环境变量覆盖文件配置。
// 数据库连接信息齐全时直接拼出 MySQL DSN。
func applyEnvOverrides(cfg *Config) {
	user := os.Getenv("DB_USER")
	password := os.Getenv("DB_PASSWORD")
	server := os.Getenv("DB_SERVER")
	name := os.Getenv("DB_NAME")
	if user != "" && server != "" && name != "" {
		cfg.Database.MySQL.DSN = fmt.Sprintf(
			"%s:%s@tcp(%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
			user, password, server, name,
		)
	}

	if uploadPath := os.Getenv("UPLOAD_PATH"); uploadPath != "" {
		cfg.Storage.UploadPath = uploadPath
	}
}

// applyDefaults 填充未配置项的默认值。
func applyDefaults(cfg *Config) {
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = "local"
	}
	if cfg.Storage.UploadPath == "" {
		cfg.Storage.UploadPath = "./uploads/nursing-archive"
	}
	if cfg.Archive.MaxFiles <= 0 {
		cfg.Archive.MaxFiles = 10
	}
	if cfg.Archive.MaxFileSize <= 0 {
		cfg.Archive.MaxFileSize = 50 * 1024 * 1024
	}
}
