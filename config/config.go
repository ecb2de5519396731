package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config хранит все конфигурационные параметры шлюза.
type Config struct {
	BackendBaseURL string
	ServerPort     int
	JWTSecretKey   string

	// SessionKey — 32-байтовый ключ шифрования session store в hex.
	SessionKey  string
	SessionPath string

	// DatabaseURL опционален: без него снапшоты кэша пишутся в файл.
	DatabaseURL  string
	SnapshotPath string

	// ServiceToken — токен бэкенда для фоновых рефрешей кэша.
	ServiceToken    string
	RefreshInterval time.Duration

	R2AccountID       string
	R2AccessKeyID     string
	R2SecretAccessKey string
	R2BucketName      string
	R2PublicBaseURL   string

	AllowedOrigins []string
}

// Load загружает конфигурацию из переменных окружения.
// Опционально подгружает .env файл (полезно для локальной разработки).
func Load() (*Config, error) {
	// Загружаем .env файл, если он есть. Ошибку не считаем фатальной.
	_ = godotenv.Load()

	baseURL := os.Getenv("BACKEND_BASE_URL")
	if baseURL == "" {
		return nil, fmt.Errorf("BACKEND_BASE_URL environment variable is not set")
	}

	jwtKey := os.Getenv("JWT_SECRET_KEY")
	if jwtKey == "" {
		return nil, fmt.Errorf("JWT_SECRET_KEY environment variable is not set")
	}

	sessionKey := os.Getenv("SESSION_KEY")
	if sessionKey == "" {
		return nil, fmt.Errorf("SESSION_KEY environment variable is not set")
	}

	serviceToken := os.Getenv("BACKEND_SERVICE_TOKEN")
	if serviceToken == "" {
		return nil, fmt.Errorf("BACKEND_SERVICE_TOKEN environment variable is not set")
	}

	portStr := os.Getenv("SERVER_PORT")
	if portStr == "" {
		portStr = "8080" // Порт по умолчанию
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT environment variable: %w", err)
	}
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", port)
	}

	refreshInterval := 5 * time.Minute
	if raw := os.Getenv("REFRESH_INTERVAL"); raw != "" {
		refreshInterval, err = time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid REFRESH_INTERVAL environment variable: %w", err)
		}
		if refreshInterval < time.Second {
			return nil, fmt.Errorf("REFRESH_INTERVAL must be at least 1s, got %s", refreshInterval)
		}
	}

	sessionPath := os.Getenv("SESSION_PATH")
	if sessionPath == "" {
		sessionPath = "data/sessions.bin"
	}

	snapshotPath := os.Getenv("SNAPSHOT_PATH")
	if snapshotPath == "" {
		snapshotPath = "data/snapshot.json"
	}

	origins := []string{"*"}
	if raw := os.Getenv("ALLOWED_ORIGINS"); raw != "" {
		origins = origins[:0]
		for _, origin := range strings.Split(raw, ",") {
			if trimmed := strings.TrimSpace(origin); trimmed != "" {
				origins = append(origins, trimmed)
			}
		}
	}

	cfg := &Config{
		BackendBaseURL:    baseURL,
		ServerPort:        port,
		JWTSecretKey:      jwtKey,
		SessionKey:        sessionKey,
		SessionPath:       sessionPath,
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		SnapshotPath:      snapshotPath,
		ServiceToken:      serviceToken,
		RefreshInterval:   refreshInterval,
		R2AccountID:       os.Getenv("R2_ACCOUNT_ID"),
		R2AccessKeyID:     os.Getenv("R2_ACCESS_KEY_ID"),
		R2SecretAccessKey: os.Getenv("R2_SECRET_ACCESS_KEY"),
		R2BucketName:      os.Getenv("R2_BUCKET_NAME"),
		R2PublicBaseURL:   os.Getenv("R2_PUBLIC_BASE_URL"),
		AllowedOrigins:    origins,
	}

	if cfg.R2AccountID == "" || cfg.R2AccessKeyID == "" || cfg.R2SecretAccessKey == "" || cfg.R2BucketName == "" {
		return nil, fmt.Errorf("R2 credentials are incomplete: R2_ACCOUNT_ID, R2_ACCESS_KEY_ID, R2_SECRET_ACCESS_KEY and R2_BUCKET_NAME are required")
	}

	return cfg, nil
}
