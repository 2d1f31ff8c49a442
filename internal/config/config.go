package config // package config loads application configuration from environment variables

import (
	"log"     // log is used to report configuration errors and halt execution
	"os"      // os provides access to environment variables
	"strconv" // strconv converts strings to other types
	"time"    // time is used for duration-typed settings
)

// Config holds all runtime configuration values. Each field corresponds to an
// environment variable. Required values are enforced by must() at load time;
// optional values fall back to the documented defaults.
type Config struct {
	Env      string // application environment (e.g. "dev", "prod")
	BotToken string // Telegram bot token issued by BotFather

	AdminID        int64 // Telegram user ID allowed to run privileged commands
	AdminChannelID int64 // channel that receives payment-proof notifications (0 = disabled)
	RequiredChanID int64 // channel users must join before using the bot (0 = disabled)

	DBUser string // database username
	DBPass string // database password (optional)
	DBHost string // database host address
	DBPort string // database port number
	DBName string // database name

	HTTPPort         string // operator API port ("" = operator API disabled)
	JWTSecret        string // secret used to sign operator access tokens
	AccessTTLMin     int    // operator access token time-to-live in minutes
	OperatorUser     string // operator login name
	OperatorPassHash string // bcrypt hash of the operator password

	DownloadDir     string        // directory where fetched artifacts are staged
	DeleteDelay     time.Duration // how long a delivered artifact stays on disk
	IdleWindow      time.Duration // account retention: delete after this much inactivity
	ExhaustedWindow time.Duration // account retention: delete this long after full exhaustion

	QRCodeURL string // image shown on the premium screen (optional)
	UPIID     string // payment address shown on the premium screen (optional)
}

// Load reads configuration values from environment variables and returns a
// Config. Missing required variables cause the program to exit with a fatal
// log message.
func Load() Config {
	return Config{
		Env:      getenv("APP_ENV", "dev"),
		BotToken: must("TELEGRAM_BOT_TOKEN"),

		AdminID:        mustInt64("ADMIN_ID"),
		AdminChannelID: envInt64("ADMIN_CHANNEL_ID", 0),
		RequiredChanID: envInt64("REQUIRED_CHANNEL_ID", 0),

		DBUser: must("DB_USER"),
		DBPass: os.Getenv("DB_PASS"), // empty allowed
		DBHost: must("DB_HOST"),
		DBPort: must("DB_PORT"),
		DBName: must("DB_NAME"),

		HTTPPort:         os.Getenv("HTTP_PORT"),
		JWTSecret:        os.Getenv("JWT_SECRET"),
		AccessTTLMin:     envInt("ACCESS_TOKEN_TTL_MIN", 30),
		OperatorUser:     getenv("OPERATOR_USER", "operator"),
		OperatorPassHash: os.Getenv("OPERATOR_PASS_HASH"),

		DownloadDir:     getenv("DOWNLOAD_DIR", "downloads"),
		DeleteDelay:     envDur("FILE_DELETE_DELAY", 3*time.Minute),
		IdleWindow:      envDur("IDLE_EXPIRY_WINDOW", 18*24*time.Hour),
		ExhaustedWindow: envDur("EXHAUSTED_EXPIRY_WINDOW", 2*24*time.Hour),

		QRCodeURL: os.Getenv("QR_CODE_IMAGE_URL"),
		UPIID:     os.Getenv("UPI_ID"),
	}
}

// must retrieves the value of a required environment variable. If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// mustInt64 is like must() but converts the retrieved string into an int64.
// If conversion fails, the application logs a fatal error and exits.
func mustInt64(key string) int64 {
	s := must(key)
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(k string, d int) int {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return n
	}
	return d
}

func envInt64(k string, d int64) int64 {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if n, err := strconv.ParseInt(v, 10, 64); err == nil {
		return n
	}
	return d
}

func envDur(k string, d time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if dur, err := time.ParseDuration(v); err == nil {
		return dur
	}
	return d
}
