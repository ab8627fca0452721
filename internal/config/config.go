package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultHTTPPort          = "8080"
	defaultStorageBackend    = StoragePostgres
	defaultModelServerURL    = "http://localhost:5000"
	defaultModelTimeout      = time.Second
	defaultModelProbeTimeout = 3 * time.Second
	defaultStoreTimeout      = 2 * time.Second
	defaultMinioEndpoint     = "localhost:9000"
	defaultMinioBucket       = "movie-reviews"
	defaultLogLevel          = "info"
)

const (
	StoragePostgres = "postgres"
	StorageMinio    = "minio"
	StorageMemory   = "memory"
)

type Config struct {
	HTTPPort          string
	StorageBackend    string
	PostgresDSN       string
	AutoMigrate       bool
	MinioEndpoint     string
	MinioAccessKey    string
	MinioSecretKey    string
	MinioBucket       string
	MinioUseSSL       bool
	ModelServerURL    string
	ModelTimeout      time.Duration
	ModelProbeTimeout time.Duration
	StoreTimeout      time.Duration
	LogLevel          string
	Version           string

	OverloadCPUWorkers    int
	OverloadChunkBytes    int
	OverloadMaxChunks     int
	OverloadAllocInterval time.Duration
	OverloadStopTimeout   time.Duration
}

// Load reads the environment, after merging an optional .env file from the
// working directory. Variables already set win over the file.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv()
}

func FromEnv() (Config, error) {
	cfg := Config{
		HTTPPort:          getenv("HTTP_PORT", defaultHTTPPort),
		StorageBackend:    strings.ToLower(getenv("STORAGE_BACKEND", defaultStorageBackend)),
		PostgresDSN:       os.Getenv("POSTGRES_DSN"),
		AutoMigrate:       getenvBool("AUTO_MIGRATE", true),
		MinioEndpoint:     getenv("MINIO_ENDPOINT", defaultMinioEndpoint),
		MinioAccessKey:    os.Getenv("MINIO_ACCESS_KEY"),
		MinioSecretKey:    os.Getenv("MINIO_SECRET_KEY"),
		MinioBucket:       getenv("MINIO_BUCKET", defaultMinioBucket),
		MinioUseSSL:       getenvBool("MINIO_USE_SSL", false),
		ModelServerURL:    getenv("MODEL_SERVER_URL", defaultModelServerURL),
		ModelTimeout:      getenvDuration("MODEL_TIMEOUT", defaultModelTimeout),
		ModelProbeTimeout: getenvDuration("MODEL_PROBE_TIMEOUT", defaultModelProbeTimeout),
		StoreTimeout:      getenvDuration("STORE_TIMEOUT", defaultStoreTimeout),
		LogLevel:          strings.ToLower(getenv("LOG_LEVEL", defaultLogLevel)),
		Version:           getenv("APP_VERSION", "dev"),

		OverloadCPUWorkers:    getenvInt("OVERLOAD_CPU_WORKERS", 3),
		OverloadChunkBytes:    getenvInt("OVERLOAD_CHUNK_BYTES", 1<<20),
		OverloadMaxChunks:     getenvInt("OVERLOAD_MAX_CHUNKS", 50),
		OverloadAllocInterval: getenvDuration("OVERLOAD_ALLOC_INTERVAL", 100*time.Millisecond),
		OverloadStopTimeout:   getenvDuration("OVERLOAD_STOP_TIMEOUT", 2*time.Second),
	}

	switch cfg.StorageBackend {
	case StoragePostgres:
		if cfg.PostgresDSN == "" {
			return Config{}, fmt.Errorf("POSTGRES_DSN is required when STORAGE_BACKEND=%s", StoragePostgres)
		}
	case StorageMinio:
		if cfg.MinioAccessKey == "" || cfg.MinioSecretKey == "" {
			return Config{}, fmt.Errorf("MINIO_ACCESS_KEY and MINIO_SECRET_KEY are required when STORAGE_BACKEND=%s", StorageMinio)
		}
	case StorageMemory:
	default:
		return Config{}, fmt.Errorf("unsupported STORAGE_BACKEND %q", cfg.StorageBackend)
	}

	return cfg, nil
}

func getenv(key string, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getenvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

// getenvDuration accepts Go durations ("1500ms") or a bare number of milliseconds.
func getenvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	ms, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return time.Duration(ms) * time.Millisecond
}
