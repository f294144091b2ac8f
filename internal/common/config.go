package common

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	Thresholds ThresholdConfig
	Hash       HashConfig
	OCR        OCRConfig
	Pipeline   PipelineConfig
	Store      StoreConfig
	LLM        LLMConfig
}

// ThresholdConfig holds the tunable heuristic thresholds.
type ThresholdConfig struct {
	Blur          float64 // blurScore below this flags the image blurry
	ExcessiveTip  float64 // tip percent above this flags the tip excessive
	DuplicateHash int     // max Hamming distance for duplicate grouping
	OCRTextMax    int     // chars of OCR text kept in exported rows
}

// HashConfig selects the duplicate-fingerprint strategy.
type HashConfig struct {
	// Mode is "perceptual" (average hash + Hamming grouping) or "legacy"
	// (basename+size fingerprint, 8-char prefix buckets).
	Mode string
}

// OCRConfig holds OCR-related configuration
type OCRConfig struct {
	Engine      string // "exec" | "gosseract"
	Tesseract   string // binary name or absolute path; if empty -> "tesseract"
	TessdataDir string
	Language    string
	PSM         int
	OEM         int
	Interval    time.Duration // pacing between OCR calls
}

// PipelineConfig holds batch-execution configuration.
type PipelineConfig struct {
	Workers       int
	RecordTimeout time.Duration
	KeywordsFile  string // optional YAML overriding constants.Defaults()
}

// StoreConfig holds the optional sqlite feature-store configuration.
type StoreConfig struct {
	DSN string // empty disables persistence; ":memory:" for tests
}

// LLMConfig holds the optional field-extraction service configuration.
type LLMConfig struct {
	Model       string
	APIKey      string
	BaseURL     string
	Temperature float32
	Timeout     time.Duration
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Thresholds: ThresholdConfig{
			Blur:          getEnvAsFloat64("BLUR_THRESHOLD", 100),
			ExcessiveTip:  getEnvAsFloat64("EXCESSIVE_TIP_THRESHOLD", 25),
			DuplicateHash: getEnvAsInt("DUPLICATE_HASH_THRESHOLD", 5),
			OCRTextMax:    getEnvAsInt("OCR_TEXT_MAX", 500),
		},
		Hash: HashConfig{
			Mode: getEnv("HASH_MODE", "perceptual"),
		},
		OCR: OCRConfig{
			Engine:      getEnv("OCR_ENGINE", "exec"),
			Tesseract:   getEnv("TESSERACT_BIN", "tesseract"),
			TessdataDir: getEnv("TESSDATA_PREFIX", ""),
			Language:    getEnv("OCR_LANG", "eng"),
			PSM:         getEnvAsInt("OCR_PSM", 0),
			OEM:         getEnvAsInt("OCR_OEM", 0),
			Interval:    getEnvAsDuration("OCR_INTERVAL", time.Second),
		},
		Pipeline: PipelineConfig{
			Workers:       getEnvAsInt("WORKERS", 1),
			RecordTimeout: getEnvAsDuration("RECORD_TIMEOUT", 60*time.Second),
			KeywordsFile:  getEnv("KEYWORDS_FILE", ""),
		},
		Store: StoreConfig{
			DSN: getEnv("FEATURES_DB", ""),
		},
		LLM: LLMConfig{
			Model:       getEnv("OPENAI_MODEL", "gpt-4o-mini"),
			APIKey:      getEnv("OPENAI_API_KEY", ""),
			BaseURL:     getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
			Temperature: getEnvAsFloat32("OPENAI_TEMPERATURE", 0.0),
			Timeout:     getEnvAsDuration("OPENAI_TIMEOUT", 45*time.Second),
		},
	}
}

// Helper functions for environment variable parsing
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

func getEnvAsFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// ValidateConfig validates the loaded configuration
func (c *Config) Validate() error {
	if c.Hash.Mode != "perceptual" && c.Hash.Mode != "legacy" {
		return NewAppError("CONFIG_ERROR", "HASH_MODE must be perceptual or legacy", ErrInvalidInput)
	}
	if c.OCR.Engine != "exec" && c.OCR.Engine != "gosseract" {
		return NewAppError("CONFIG_ERROR", "OCR_ENGINE must be exec or gosseract", ErrInvalidInput)
	}
	if c.Thresholds.DuplicateHash < 0 {
		return NewAppError("CONFIG_ERROR", "DUPLICATE_HASH_THRESHOLD must be >= 0", ErrInvalidInput)
	}
	if c.Pipeline.Workers < 1 {
		return NewAppError("CONFIG_ERROR", "WORKERS must be >= 1", ErrInvalidInput)
	}
	return nil
}
