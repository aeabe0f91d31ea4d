package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all service configuration loaded from environment variables.
type Config struct {
	Port           string
	LogLevel       string
	LogFile        string
	AllowedOrigins []string

	PostgresDSN string
	MongoURI    string
	MongoDB     string

	RedisAddr     string
	RedisPassword string

	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool

	JWTSecret string
	TokenTTL  time.Duration

	TMDBAPIKey   string
	TMDBBaseURL  string
	TMDBImageURL string
	TMDBRPS      float64

	AuthRPS   float64
	AuthBurst int
}

func Load() *Config {
	return &Config{
		Port:           getenv("PORT", "5000"),
		LogLevel:       getenv("LOG_LEVEL", "info"),
		LogFile:        getenv("LOG_FILE", ""),
		AllowedOrigins: splitList(getenv("CORS_ORIGINS", "http://localhost:5173,http://localhost:3000")),

		PostgresDSN: getenv("POSTGRES_DSN", ""),
		MongoURI:    getenv("MONGO_URI", ""),
		MongoDB:     getenv("MONGO_DB", "movie_tracker"),

		RedisAddr:     getenv("REDIS_ADDR", "redis:6379"),
		RedisPassword: getenv("REDIS_PASSWORD", ""),

		MinioEndpoint:  getenv("MINIO_ENDPOINT", "minio:9000"),
		MinioAccessKey: getenv("MINIO_ACCESS_KEY", ""),
		MinioSecretKey: getenv("MINIO_SECRET_KEY", ""),
		MinioBucket:    getenv("MINIO_BUCKET", "tmdb-posters"),
		MinioUseSSL:    getenv("MINIO_USE_SSL", "false") == "true",

		JWTSecret: getenv("JWT_SECRET", ""),
		TokenTTL:  getduration("TOKEN_TTL", 5*time.Hour),

		TMDBAPIKey:   getenv("TMDB_API_KEY", ""),
		TMDBBaseURL:  getenv("TMDB_API_URL", "https://api.themoviedb.org/3"),
		TMDBImageURL: getenv("TMDB_IMAGE_URL", "https://image.tmdb.org/t/p"),
		TMDBRPS:      getfloat("TMDB_RPS", 40),

		AuthRPS:   getfloat("AUTH_RPS", 5),
		AuthBurst: getint("AUTH_BURST", 10),
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getint(key string, fallback int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return n
	}
	return fallback
}

func getfloat(key string, fallback float64) float64 {
	if f, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil && f > 0 {
		return f
	}
	return fallback
}

func getduration(key string, fallback time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil && d > 0 {
		return d
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
