// Package config provides configuration for the application
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	Server  ServerConfig
	Logging LoggingConfig
	CORS    CORSConfig
	JWT     JWTConfig
	Mongo   MongoConfig
	Upload  UploadConfig
	Media   MediaConfig
}

// ServerConfig holds server settings
type ServerConfig struct {
	Port int
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level string
}

// CORSConfig holds CORS settings
type CORSConfig struct {
	AllowedOrigins []string
}

// JWTConfig holds JWT token configuration
type JWTConfig struct {
	Secret            string
	AccessTokenExpiry time.Duration
}

// MongoConfig holds document store connection settings
type MongoConfig struct {
	URI      string
	Database string
}

// UploadConfig holds upload staging limits
type UploadConfig struct {
	Dir              string
	MaxFileBytes     int64
	MaxFilesPerField int
}

// MediaConfig holds remote media store credentials, configured once at startup
type MediaConfig struct {
	Endpoint      string
	AccessKey     string
	SecretKey     string
	Bucket        string
	UseSSL        bool
	PublicBaseURL string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file (optional)
	godotenv.Load()

	cfg := &Config{}

	// Server configuration
	serverPortStr := os.Getenv("SERVER_PORT")
	if serverPortStr == "" {
		serverPortStr = "8080" // default port
	}
	serverPort, err := strconv.Atoi(serverPortStr)
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT: %w", err)
	}
	cfg.Server.Port = serverPort

	// Logging configuration
	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info" // default level
	}
	cfg.Logging.Level = logLevel

	// CORS configuration
	corsOrigins := os.Getenv("CORS_ALLOWED_ORIGINS")
	if corsOrigins == "" {
		// Default to allow all origins if not specified (for development)
		cfg.CORS.AllowedOrigins = []string{"*"}
	} else {
		// Parse comma-separated origins
		origins := strings.Split(corsOrigins, ",")
		cfg.CORS.AllowedOrigins = make([]string, 0, len(origins))
		for _, origin := range origins {
			origin = strings.TrimSpace(origin)
			if origin != "" {
				cfg.CORS.AllowedOrigins = append(cfg.CORS.AllowedOrigins, origin)
			}
		}
		if len(cfg.CORS.AllowedOrigins) == 0 {
			cfg.CORS.AllowedOrigins = []string{"*"}
		}
	}

	// JWT configuration
	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	cfg.JWT.Secret = jwtSecret

	// Access token expiry (default: 24 hours)
	accessExpiryStr := os.Getenv("JWT_ACCESS_TOKEN_EXPIRY")
	if accessExpiryStr == "" {
		accessExpiryStr = "24h"
	}
	accessExpiry, err := time.ParseDuration(accessExpiryStr)
	if err != nil {
		return nil, fmt.Errorf("invalid JWT_ACCESS_TOKEN_EXPIRY: %w", err)
	}
	cfg.JWT.AccessTokenExpiry = accessExpiry

	// Document store configuration
	mongoURI := os.Getenv("MONGO_URI")
	if mongoURI == "" {
		return nil, fmt.Errorf("MONGO_URI is required")
	}
	cfg.Mongo.URI = mongoURI

	mongoDB := os.Getenv("MONGO_DB")
	if mongoDB == "" {
		mongoDB = "university" // default database name
	}
	cfg.Mongo.Database = mongoDB

	// Upload staging configuration
	uploadDir := os.Getenv("UPLOAD_PATH")
	if uploadDir == "" {
		uploadDir = "./uploads" // default staging directory
	}
	cfg.Upload.Dir = uploadDir

	maxFileSizeStr := os.Getenv("MAX_FILE_SIZE")
	if maxFileSizeStr == "" {
		maxFileSizeStr = "10485760" // 10MB
	}
	maxFileSize, err := strconv.ParseInt(maxFileSizeStr, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid MAX_FILE_SIZE: %w", err)
	}
	cfg.Upload.MaxFileBytes = maxFileSize

	maxFilesStr := os.Getenv("MAX_FILES_PER_FIELD")
	if maxFilesStr == "" {
		maxFilesStr = "10"
	}
	maxFiles, err := strconv.Atoi(maxFilesStr)
	if err != nil {
		return nil, fmt.Errorf("invalid MAX_FILES_PER_FIELD: %w", err)
	}
	cfg.Upload.MaxFilesPerField = maxFiles

	// Remote media store configuration
	mediaEndpoint := os.Getenv("MEDIA_ENDPOINT")
	if mediaEndpoint == "" {
		return nil, fmt.Errorf("MEDIA_ENDPOINT is required")
	}
	cfg.Media.Endpoint = mediaEndpoint

	mediaAccessKey := os.Getenv("MEDIA_ACCESS_KEY")
	if mediaAccessKey == "" {
		return nil, fmt.Errorf("MEDIA_ACCESS_KEY is required")
	}
	cfg.Media.AccessKey = mediaAccessKey

	mediaSecretKey := os.Getenv("MEDIA_SECRET_KEY")
	if mediaSecretKey == "" {
		return nil, fmt.Errorf("MEDIA_SECRET_KEY is required")
	}
	cfg.Media.SecretKey = mediaSecretKey

	mediaBucket := os.Getenv("MEDIA_BUCKET")
	if mediaBucket == "" {
		mediaBucket = "university-media" // default bucket
	}
	cfg.Media.Bucket = mediaBucket

	useSSLStr := os.Getenv("MEDIA_USE_SSL")
	if useSSLStr == "" {
		useSSLStr = "false"
	}
	useSSL, err := strconv.ParseBool(useSSLStr)
	if err != nil {
		return nil, fmt.Errorf("invalid MEDIA_USE_SSL: %w", err)
	}
	cfg.Media.UseSSL = useSSL

	// Optional public base URL for serving media (CDN or reverse proxy)
	cfg.Media.PublicBaseURL = os.Getenv("MEDIA_PUBLIC_BASE_URL")

	return cfg, nil
}
