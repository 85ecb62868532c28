package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Gemini     GeminiConfig
	OCR        OCRConfig
	Storage    StorageConfig
	Worker     WorkerConfig
	Extraction ExtractionConfig
	Log        LogConfig
}

type ServerConfig struct {
	Port           string
	Env            string
	AllowedOrigins string
}

type DatabaseConfig struct {
	Driver   string
	Host     string
	Port     string
	User     string
	Password string
	DBName   string

	MongoURI string
}

type GeminiConfig struct {
	APIKey      string
	Model       string
	Temperature float32
	MaxAttempts int
	Timeout     time.Duration
	// Requests per minute shared by every extraction call.
	RPM int
}

type OCRConfig struct {
	Provider    string
	APIKey      string
	URL         string
	Language    string
	Timeout     time.Duration
	MaxPDFPages int

	AzureEndpoint string
	AzureKey      string
}

type StorageConfig struct {
	Driver        string
	UploadPath    string
	PublicBaseURL string
	MaxFileSize   int64
	MaxFiles      int

	S3Bucket       string
	S3Region       string
	S3Endpoint     string
	S3AccessKey    string
	S3SecretKey    string
	S3UsePathStyle bool
}

type WorkerConfig struct {
	Concurrency  int
	PollInterval time.Duration
}

type ExtractionConfig struct {
	Concurrency       int
	FileTimeout       time.Duration
	EnablePreprocess  bool
	MaxImageDimension int
}

type LogConfig struct {
	Level  string
	Format string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found. Using default values.")
	}

	return &Config{
		Server: ServerConfig{
			Port:           getEnv("PORT", "3000"),
			Env:            getEnv("ENV", "development"),
			AllowedOrigins: getEnv("ALLOWED_ORIGINS", "*"),
		},
		Database: DatabaseConfig{
			Driver:   getEnv("DB_DRIVER", "postgres"),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "gst_invoices"),
			MongoURI: getEnv("MONGO_URI", "mongodb://localhost:27017"),
		},
		Gemini: GeminiConfig{
			APIKey:      getEnv("GEMINI_API_KEY", ""),
			Model:       getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
			Temperature: float32(getEnvAsFloat("GEMINI_TEMPERATURE", 0.1)),
			MaxAttempts: getEnvAsInt("GEMINI_MAX_ATTEMPTS", 2),
			Timeout:     getEnvAsDuration("LLM_TIMEOUT", "60s"),
			RPM:         getEnvAsInt("GEMINI_RPM", 60),
		},
		OCR: OCRConfig{
			Provider:      getEnv("OCR_PROVIDER", "ocrspace"),
			APIKey:        getEnv("OCR_API_KEY", ""),
			URL:           getEnv("OCR_URL", "https://api.ocr.space/parse/image"),
			Language:      getEnv("OCR_LANGUAGE", "eng"),
			Timeout:       getEnvAsDuration("OCR_TIMEOUT", "60s"),
			MaxPDFPages:   getEnvAsInt("OCR_MAX_PDF_PAGES", 3),
			AzureEndpoint: getEnv("AZURE_VISION_ENDPOINT", ""),
			AzureKey:      getEnv("AZURE_VISION_KEY", ""),
		},
		Storage: StorageConfig{
			Driver:         getEnv("STORAGE_DRIVER", "local"),
			UploadPath:     getEnv("UPLOAD_PATH", "./uploads"),
			PublicBaseURL:  strings.TrimRight(getEnv("PUBLIC_BASE_URL", "http://localhost:3000/files"), "/"),
			MaxFileSize:    getEnvAsInt64("MAX_FILE_SIZE", 5<<20),
			MaxFiles:       getEnvAsInt("MAX_FILES_PER_UPLOAD", 10),
			S3Bucket:       getEnv("S3_BUCKET", ""),
			S3Region:       getEnv("S3_REGION", "us-east-1"),
			S3Endpoint:     getEnv("S3_ENDPOINT", ""),
			S3AccessKey:    getEnv("S3_ACCESS_KEY", ""),
			S3SecretKey:    getEnv("S3_SECRET_KEY", ""),
			S3UsePathStyle: getEnvAsBool("S3_USE_PATH_STYLE", true),
		},
		Worker: WorkerConfig{
			Concurrency:  getEnvAsInt("WORKER_CONCURRENCY", 2),
			PollInterval: getEnvAsDuration("WORKER_POLL_INTERVAL", "15s"),
		},
		Extraction: ExtractionConfig{
			Concurrency:       getEnvAsInt("EXTRACTION_CONCURRENCY", 1),
			FileTimeout:       getEnvAsDuration("FILE_TIMEOUT", "3m"),
			EnablePreprocess:  getEnvAsBool("ENABLE_IMAGE_PREPROCESSING", true),
			MaxImageDimension: getEnvAsInt("MAX_IMAGE_DIMENSION", 2000),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}
}

// Validate reports every missing setting required by the selected drivers.
func (c *Config) Validate() error {
	var errs []error

	if c.Gemini.APIKey == "" {
		errs = append(errs, errors.New("GEMINI_API_KEY is required"))
	}

	switch c.OCR.Provider {
	case "ocrspace":
		if c.OCR.APIKey == "" {
			errs = append(errs, errors.New("OCR_API_KEY is required for the ocrspace provider"))
		}
	case "azure":
		if c.OCR.AzureEndpoint == "" || c.OCR.AzureKey == "" {
			errs = append(errs, errors.New("AZURE_VISION_ENDPOINT and AZURE_VISION_KEY are required for the azure provider"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported OCR_PROVIDER %q (supported: ocrspace, azure)", c.OCR.Provider))
	}

	switch c.Storage.Driver {
	case "local":
	case "s3":
		if c.Storage.S3Bucket == "" {
			errs = append(errs, errors.New("S3_BUCKET is required for the s3 storage driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported STORAGE_DRIVER %q (supported: local, s3)", c.Storage.Driver))
	}

	switch c.Database.Driver {
	case "postgres", "mongo":
	default:
		errs = append(errs, fmt.Errorf("unsupported DB_DRIVER %q (supported: postgres, mongo)", c.Database.Driver))
	}

	if c.Storage.MaxFiles <= 0 || c.Storage.MaxFileSize <= 0 {
		errs = append(errs, errors.New("MAX_FILES_PER_UPLOAD and MAX_FILE_SIZE must be positive"))
	}

	return errors.Join(errs...)
}

func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.DBName,
	)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseInt(valueStr, 10, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := getEnv(key, defaultValue)
	if duration, err := time.ParseDuration(valueStr); err == nil {
		return duration
	}
	duration, _ := time.ParseDuration(defaultValue)
	return duration
}
