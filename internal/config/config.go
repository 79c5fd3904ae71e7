// Package config loads service configuration from the environment.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// ServiceConfig holds process-level settings.
type ServiceConfig struct {
	Name        string
	HTTPPort    string
	MetricsAddr string
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string
	Format string
}

// KafkaConfig holds event publisher settings.
type KafkaConfig struct {
	Enabled        bool
	Brokers        []string
	TopicCreated   string
	TopicSubmitted string
	Principal      string
}

// EHRConfig holds EHR endpoint settings.
type EHRConfig struct {
	// Target selects the submission client: epic or cerner.
	Target string

	EpicBaseURL        string
	EpicTokenURL       string
	EpicClientID       string
	EpicPrivateKeyPath string

	CernerBaseURL      string
	CernerTokenURL     string
	CernerClientID     string
	CernerClientSecret string
	CernerScope        string
}

// MLLPConfig holds the HL7 transport settings.
type MLLPConfig struct {
	Addr    string
	Timeout time.Duration
}

// STTConfig holds transcription provider settings.
type STTConfig struct {
	Provider     string // mock, google
	LanguageCode string
	SampleRateHz int32
}

// Config is the full service configuration.
type Config struct {
	Service ServiceConfig
	Log     LogConfig
	Kafka   KafkaConfig
	EHR     EHRConfig
	MLLP    MLLPConfig
	STT     STTConfig
}

// Load reads configuration from environment variables with defaults.
func Load() *Config {
	return &Config{
		Service: ServiceConfig{
			Name:        envOrDefault("SERVICE_NAME", "clinical-ehr-bridge"),
			HTTPPort:    envOrDefault("HTTP_PORT", "8080"),
			MetricsAddr: envOrDefault("METRICS_ADDR", ":9090"),
		},
		Log: LogConfig{
			Level:  envOrDefault("LOG_LEVEL", "info"),
			Format: envOrDefault("LOG_FORMAT", "json"),
		},
		Kafka: KafkaConfig{
			Enabled:        envOrDefaultBool("KAFKA_ENABLED", false),
			Brokers:        envOrDefaultSlice("KAFKA_BROKERS", nil),
			TopicCreated:   envOrDefault("KAFKA_TOPIC_CREATED", "clinical.document.created"),
			TopicSubmitted: envOrDefault("KAFKA_TOPIC_SUBMITTED", "clinical.document.submitted"),
			Principal:      envOrDefault("SERVICE_PRINCIPAL", "svc-clinical-ehr-bridge"),
		},
		EHR: EHRConfig{
			Target:             envOrDefault("EHR_TARGET", "epic"),
			EpicBaseURL:        os.Getenv("EPIC_BASE_URL"),
			EpicTokenURL:       os.Getenv("EPIC_TOKEN_URL"),
			EpicClientID:       os.Getenv("EPIC_CLIENT_ID"),
			EpicPrivateKeyPath: os.Getenv("EPIC_PRIVATE_KEY_PATH"),
			CernerBaseURL:      os.Getenv("CERNER_BASE_URL"),
			CernerTokenURL:     os.Getenv("CERNER_TOKEN_URL"),
			CernerClientID:     os.Getenv("CERNER_CLIENT_ID"),
			CernerClientSecret: os.Getenv("CERNER_CLIENT_SECRET"),
			CernerScope:        os.Getenv("CERNER_SCOPE"),
		},
		MLLP: MLLPConfig{
			Addr:    os.Getenv("MLLP_ADDR"),
			Timeout: envOrDefaultDuration("MLLP_TIMEOUT", 15*time.Second),
		},
		STT: STTConfig{
			Provider:     envOrDefault("STT_PROVIDER", "mock"),
			LanguageCode: envOrDefault("STT_LANGUAGE_CODE", "en-US"),
			SampleRateHz: int32(envOrDefaultInt("STT_SAMPLE_RATE_HZ", 16000)),
		},
	}
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envOrDefaultBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func envOrDefaultInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envOrDefaultDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func envOrDefaultSlice(key string, def []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		out := parts[:0]
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out
	}
	return def
}
