package bootstrap

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	ServerAddr string
	GRPCAddr   string
	LogLevel   string

	HMACKey        []byte
	CookieSecure   bool
	CookieDomain   string
	SessionTTL     time.Duration
	AccessPassword string

	ServerAPIKey          string
	TranscriptionBaseURL  string
	TranscriptionModel    string
	TranscriptionTimeout  time.Duration
	RetryMaxRetries       int
	RetryBaseDelay        time.Duration
	RetryRateLimitDelay   time.Duration
	DispatchMode          string
	DefaultMaxConcurrency int
	MaxConcurrency        int

	SilenceThreshold float64
	MinSilence       time.Duration
	MinChunkLength   time.Duration
	MaxChunkLength   time.Duration
	TargetSampleRate int
	MaxUploadBytes   int64

	DatabaseDSN string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	RateLimitRPS   float64
	RateLimitBurst int
}

// FileConfig is the optional YAML overlay named by CONFIG_FILE. It supplies
// segmentation and orchestration defaults; environment variables still win.
type FileConfig struct {
	Segmentation struct {
		SilenceThreshold float64 `yaml:"silence_threshold"`
		MinSilenceMs     int     `yaml:"min_silence_ms"`
		MinChunkMs       int     `yaml:"min_chunk_ms"`
		MaxChunkMs       int     `yaml:"max_chunk_ms"`
		TargetSampleRate int     `yaml:"target_sample_rate"`
		MaxUploadMB      int     `yaml:"max_upload_mb"`
	} `yaml:"segmentation"`
	Orchestration struct {
		Dispatch              string `yaml:"dispatch"`
		DefaultMaxConcurrency int    `yaml:"default_max_concurrency"`
		MaxConcurrency        int    `yaml:"max_concurrency"`
		MaxRetries            int    `yaml:"max_retries"`
		BaseDelayMs           int    `yaml:"base_delay_ms"`
		RateLimitDelayMs      int    `yaml:"rate_limit_delay_ms"`
	} `yaml:"orchestration"`
}

func defaultFileConfig() FileConfig {
	var fc FileConfig
	fc.Segmentation.SilenceThreshold = 0.01
	fc.Segmentation.MinSilenceMs = 500
	fc.Segmentation.MaxChunkMs = 30000
	fc.Segmentation.MaxUploadMB = 100
	fc.Orchestration.Dispatch = "batched"
	fc.Orchestration.DefaultMaxConcurrency = 4
	fc.Orchestration.MaxConcurrency = 16
	fc.Orchestration.MaxRetries = 3
	fc.Orchestration.BaseDelayMs = 1000
	fc.Orchestration.RateLimitDelayMs = 2000
	return fc
}

// LoadConfigFile overlays the YAML file at path onto the defaults. Keys absent
// from the file keep their default.
func LoadConfigFile(path string) (FileConfig, error) {
	fc := defaultFileConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return fc, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fc, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return fc, nil
}

func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	fc := defaultFileConfig()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		var err error
		if fc, err = LoadConfigFile(path); err != nil {
			return nil, err
		}
	}

	seg, orch := fc.Segmentation, fc.Orchestration
	cfg := &Config{
		ServerAddr: getEnv("SERVER_ADDR", ":8080"),
		GRPCAddr:   getEnv("GRPC_ADDR", ":50051"),
		LogLevel:   getEnv("LOG_LEVEL", "info"),

		HMACKey:        []byte(getEnv("HMAC_KEY", "change-me-in-production")),
		CookieSecure:   getEnv("COOKIE_SECURE", "false") == "true",
		CookieDomain:   getEnv("COOKIE_DOMAIN", ""),
		SessionTTL:     getEnvDuration("SESSION_TTL", 24*time.Hour),
		AccessPassword: getEnv("API_ACCESS_PASSWORD", ""),

		ServerAPIKey:          getEnv("SILICONFLOW_API_KEY", ""),
		TranscriptionBaseURL:  getEnv("TRANSCRIPTION_BASE_URL", "https://api.siliconflow.cn/v1"),
		TranscriptionModel:    getEnv("TRANSCRIPTION_MODEL", "FunAudioLLM/SenseVoiceSmall"),
		TranscriptionTimeout:  getEnvDuration("TRANSCRIPTION_TIMEOUT", 2*time.Minute),
		RetryMaxRetries:       getEnvInt("RETRY_MAX_RETRIES", orch.MaxRetries),
		RetryBaseDelay:        getEnvDuration("RETRY_BASE_DELAY", msToDuration(orch.BaseDelayMs)),
		RetryRateLimitDelay:   getEnvDuration("RETRY_RATE_LIMIT_DELAY", msToDuration(orch.RateLimitDelayMs)),
		DispatchMode:          getEnv("DISPATCH_MODE", orch.Dispatch),
		DefaultMaxConcurrency: getEnvInt("DEFAULT_MAX_CONCURRENCY", orch.DefaultMaxConcurrency),
		MaxConcurrency:        getEnvInt("MAX_CONCURRENCY", orch.MaxConcurrency),

		SilenceThreshold: getEnvFloat("SILENCE_THRESHOLD", seg.SilenceThreshold),
		MinSilence:       getEnvDuration("MIN_SILENCE", msToDuration(seg.MinSilenceMs)),
		MinChunkLength:   getEnvDuration("MIN_CHUNK_LENGTH", msToDuration(seg.MinChunkMs)),
		MaxChunkLength:   getEnvDuration("MAX_CHUNK_LENGTH", msToDuration(seg.MaxChunkMs)),
		TargetSampleRate: getEnvInt("TARGET_SAMPLE_RATE", seg.TargetSampleRate),
		MaxUploadBytes:   int64(getEnvInt("MAX_UPLOAD_MB", seg.MaxUploadMB)) << 20,

		DatabaseDSN: getEnv("DATABASE_DSN", "file:subtitles.db"),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		RateLimitRPS:   getEnvFloat("RATE_LIMIT_RPS", 5),
		RateLimitBurst: getEnvInt("RATE_LIMIT_BURST", 20),
	}
	return cfg, nil
}

func msToDuration(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
