package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port             string
	Env              string
	OutputDir        string
	UploadDir        string
	MaxFileSize      int64
	WorkerCount      int
	TranslateURL     string
	SourceLang       string
	TargetLang       string
	TranslatedHeader string
	OutputSuffix     string
	BatchSize        int
	BatchPause       time.Duration
	TaskRetention    time.Duration
	ProgressInterval time.Duration
	RedisAddr        string
	RedisPassword    string
	RedisDB          int
	KafkaBrokers     []string
	KafkaTopic       string
	DatabaseURL      string
}

// Load reads the configuration from the environment. A .env file in the
// working directory is applied first when present; real environment
// variables win over it.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:             getEnv("SERVICE_PORT", "8081"),
		Env:              getEnv("ENV", "development"),
		OutputDir:        getEnv("OUTPUT_DIR", filepath.Join(os.TempDir(), "sheet-translator")),
		UploadDir:        getEnv("UPLOAD_DIR", ""),
		MaxFileSize:      getEnvAsInt64("MAX_FILE_SIZE", 64*1024*1024),
		WorkerCount:      getEnvAsInt("WORKER_COUNT", 4),
		TranslateURL:     getEnv("TRANSLATE_URL", "https://translate.googleapis.com/translate_a/single"),
		SourceLang:       getEnv("TRANSLATE_SOURCE_LANG", "auto"),
		TargetLang:       getEnv("TRANSLATE_TARGET_LANG", "zh"),
		TranslatedHeader: getEnv("TRANSLATED_HEADER", "中文"),
		OutputSuffix:     getEnv("OUTPUT_SUFFIX", "中文翻译"),
		BatchSize:        getEnvAsInt("BATCH_SIZE", 10),
		BatchPause:       getEnvAsDuration("BATCH_PAUSE", 2*time.Second),
		TaskRetention:    getEnvAsDuration("TASK_RETENTION", 1800*time.Second),
		ProgressInterval: getEnvAsDuration("PROGRESS_INTERVAL", 200*time.Millisecond),
		RedisAddr:        getEnv("REDIS_ADDR", ""),
		RedisPassword:    getEnv("REDIS_PASSWORD", ""),
		RedisDB:          getEnvAsInt("REDIS_DB", 0),
		KafkaBrokers:     getEnvAsList("KAFKA_BROKERS"),
		KafkaTopic:       getEnv("KAFKA_TOPIC", "translation_tasks"),
		DatabaseURL:      getEnv("DATABASE_URL", ""),
	}
}

// EnsureDirs creates the output directory and, when set, the upload root.
func (c *Config) EnsureDirs() error {
	dirs := []string{c.OutputDir}
	if c.UploadDir != "" {
		dirs = append(dirs, c.UploadDir)
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvAsList(key string) []string {
	var items []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
