package config

import (
	"encoding/hex"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config stores the gateway configuration. All values are loaded once at
// startup and are immutable for the lifetime of the process.
type Config struct {
	ListenAddr string

	// Credentials which Subsonic clients must provide to authenticate.
	SubsonicUser     string
	SubsonicPassword string
	// Hex form of SubsonicPassword, precomputed so that request handling
	// never has to re-encode the secret.
	SubsonicPasswordHex string

	// MPD server settings.
	MPDAddress  string
	MPDPassword string

	// Connection pool settings for the MPD backend.
	PoolSize    int
	PoolTimeout time.Duration

	// LibraryURL locates the raw song bytes. Supported schemes: a plain
	// filesystem path, http(s)://, or s3:// (endpoint/bucket).
	LibraryURL string

	// S3 credentials, used only when LibraryURL has the s3 scheme.
	S3AccessKey string
	S3SecretKey string
	S3UseSSL    bool

	FFmpegPath string

	// ListenBrainzToken enables scrobbling when non-empty.
	ListenBrainzToken string

	LogLevel      string
	LogPath       string
	LogMaxSize    int
	LogMaxBackups int
	LogMaxAge     int
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// getEnvInt gets an environment variable as int or returns a default value.
func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return fallback
}

// getEnvBool gets an environment variable as bool or returns a default value.
func getEnvBool(key string, fallback bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return fallback
}

// getEnvDuration gets an environment variable as a duration or returns a
// default value.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

// Load loads configuration from environment variables (via .env file) or defaults.
func Load() *Config {
	// godotenv.Load() will not override existing env vars.
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on existing environment variables and defaults.")
	}

	password := os.Getenv("SUBSONIC_PASSWORD")

	return &Config{
		ListenAddr:          getEnv("LISTEN_ADDR", "127.0.0.1:3000"),
		SubsonicUser:        getEnv("SUBSONIC_USER", ""),
		SubsonicPassword:    password,
		SubsonicPasswordHex: hex.EncodeToString([]byte(password)),
		MPDAddress:          getEnv("MPD_ADDRESS", "127.0.0.1:6600"),
		MPDPassword:         os.Getenv("MPD_PASSWORD"),
		PoolSize:            getEnvInt("MPD_POOL_SIZE", 8),
		PoolTimeout:         getEnvDuration("MPD_POOL_TIMEOUT", 30*time.Second),
		LibraryURL:          getEnv("MPD_LIBRARY", ""),
		S3AccessKey:         os.Getenv("S3_ACCESS_KEY"),
		S3SecretKey:         os.Getenv("S3_SECRET_KEY"),
		S3UseSSL:            getEnvBool("S3_USE_SSL", true),
		FFmpegPath:          getEnv("FFMPEG_PATH", "ffmpeg"),
		ListenBrainzToken:   os.Getenv("LISTENBRAINZ_TOKEN"),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		LogPath:             os.Getenv("LOG_PATH"),
		LogMaxSize:          getEnvInt("LOG_MAX_SIZE", 100),
		LogMaxBackups:       getEnvInt("LOG_MAX_BACKUPS", 3),
		LogMaxAge:           getEnvInt("LOG_MAX_AGE", 28),
	}
}
