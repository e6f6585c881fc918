package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"cropscout/internal/modelsel"
	"cropscout/internal/normalize"
	"cropscout/internal/infrastructure/vision"
	"cropscout/internal/quality"
)

type Config struct {
	HTTPAddr string

	DBDriver string // sqlite | postgres
	DBDSN    string

	ImageStore string // local | gcs
	UploadDir  string
	GCSBucket  string
	GCSPrefix  string

	ModelsDir        string
	ModelServerURL   string // пусто: локальный провайдер по каталогу весов
	ModelPreference  []string
	InferenceTimeout time.Duration
	FindingThreshold float64
	Quality          quality.Thresholds
	MaxImagePixels   int // 0: без ограничения

	TelegramToken string // пусто: бот не запускается

	LogLevel  string
	LogFormat string
}

func Load() (*Config, error) {
	// Загружаем .env файл (игнорируем ошибку если файла нет)
	_ = godotenv.Load()

	cfg := &Config{
		HTTPAddr:       getEnv("HTTP_ADDR", ":8080"),
		DBDriver:       getEnv("DB_DRIVER", "sqlite"),
		DBDSN:          getEnv("DB_DSN", "cropscout.db"),
		ImageStore:     getEnv("IMAGE_STORE", "local"),
		UploadDir:      getEnv("UPLOAD_DIR", "uploads"),
		GCSBucket:      os.Getenv("GCS_BUCKET"),
		GCSPrefix:      os.Getenv("GCS_PREFIX"),
		ModelsDir:      getEnv("MODELS_DIR", "models"),
		ModelServerURL: os.Getenv("MODEL_SERVER_URL"),
		TelegramToken:  os.Getenv("TELEGRAM_TOKEN"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFormat:      getEnv("LOG_FORMAT", "text"),
	}

	cfg.ModelPreference = modelsel.DefaultPreference
	if v := os.Getenv("MODEL_PREFERENCE"); v != "" {
		cfg.ModelPreference = modelsel.ParsePreference(v)
	}

	var err error
	if cfg.InferenceTimeout, err = getDuration("INFERENCE_TIMEOUT", 2*time.Minute); err != nil {
		return nil, err
	}
	if cfg.FindingThreshold, err = getFloat("FINDING_THRESHOLD", normalize.DefaultThreshold); err != nil {
		return nil, err
	}

	if cfg.MaxImagePixels, err = getInt("MAX_IMAGE_PIXELS", vision.DefaultMaxPixels); err != nil {
		return nil, err
	}

	q := quality.DefaultThresholds()
	for _, f := range []struct {
		key string
		dst *float64
	}{
		{"QUALITY_BLUR_VARIANCE", &q.BlurVariance},
		{"QUALITY_UNUSABLE_BLUR_VARIANCE", &q.UnusableBlurVariance},
		{"QUALITY_UNDEREXPOSED", &q.UnderexposedBrightness},
		{"QUALITY_OVEREXPOSED", &q.OverexposedBrightness},
		{"QUALITY_UNUSABLE_MIN_BRIGHTNESS", &q.UnusableMinBrightness},
		{"QUALITY_UNUSABLE_MAX_BRIGHTNESS", &q.UnusableMaxBrightness},
	} {
		if *f.dst, err = getFloat(f.key, *f.dst); err != nil {
			return nil, err
		}
	}
	cfg.Quality = q

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.DBDriver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("DB_DRIVER: unsupported driver %q", c.DBDriver)
	}
	switch c.ImageStore {
	case "local":
	case "gcs":
		if c.GCSBucket == "" {
			return fmt.Errorf("GCS_BUCKET is required when IMAGE_STORE=gcs")
		}
	default:
		return fmt.Errorf("IMAGE_STORE: unsupported store %q", c.ImageStore)
	}
	if c.InferenceTimeout <= 0 {
		return fmt.Errorf("INFERENCE_TIMEOUT must be positive")
	}
	if c.FindingThreshold <= 0 || c.FindingThreshold > 1 {
		return fmt.Errorf("FINDING_THRESHOLD must be in (0, 1]")
	}
	if c.MaxImagePixels < 0 {
		return fmt.Errorf("MAX_IMAGE_PIXELS must not be negative")
	}
	if len(c.ModelPreference) == 0 {
		return fmt.Errorf("MODEL_PREFERENCE must name at least one model")
	}
	return nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getFloat(key string, def float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return f, nil
}

func getInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func getDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
