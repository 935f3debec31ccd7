package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port           string
	MaxUploadBytes int64
	ImageMaxPixels int64
	GinMode        string

	ModelURL            string
	ModelMetadataURL    string
	ORTLibraryPath      string
	ModelLoadMaxElapsed time.Duration

	StoreDriver         string
	SQLitePath          string
	DatabaseURL         string
	FirestoreProjectID  string
	FirestoreCollection string

	AWSRegion   string
	S3Endpoint  string
	S3PathStyle bool
}

// Load reads the process environment, after applying a .env file if present.
func Load() *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: could not load .env file: %v", err)
	}

	return &Config{
		Port:           getEnv("PORT", "8080"),
		MaxUploadBytes: getEnvInt64("MAX_UPLOAD_BYTES", 1000000),
		ImageMaxPixels: getEnvInt64("IMAGE_MAX_PIXELS", 40000000),
		GinMode:        getEnv("GIN_MODE", "release"),

		ModelURL:            getEnv("MODEL_URL", "models/model.onnx"),
		ModelMetadataURL:    getEnv("MODEL_METADATA_URL", ""),
		ORTLibraryPath:      getEnv("ORT_LIBRARY_PATH", ""),
		ModelLoadMaxElapsed: getEnvDuration("MODEL_LOAD_MAX_ELAPSED", 2*time.Minute),

		StoreDriver:         getEnv("STORE_DRIVER", "memory"),
		SQLitePath:          getEnv("SQLITE_PATH", "data/predictions.db"),
		DatabaseURL:         getEnv("DATABASE_URL", ""),
		FirestoreProjectID:  getEnv("FIRESTORE_PROJECT_ID", ""),
		FirestoreCollection: getEnv("FIRESTORE_COLLECTION", "predictions"),

		AWSRegion:   getEnv("AWS_REGION", "us-east-1"),
		S3Endpoint:  getEnv("S3_ENDPOINT", ""),
		S3PathStyle: strings.EqualFold(getEnv("S3_PATH_STYLE", "false"), "true"),
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil || n <= 0 {
		log.Printf("Invalid %s=%q, using %d", key, value, fallback)
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil || d < 0 {
		log.Printf("Invalid %s=%q, using %s", key, value, fallback)
		return fallback
	}
	return d
}
