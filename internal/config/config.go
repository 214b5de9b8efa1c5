package config // package config loads application configuration from environment variables

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration values. Each field corresponds to
// an environment variable. Required variables are enforced by must() and
// missing values cause the program to exit with a fatal log message;
// everything else falls back to a sensible default.
type Config struct {
	Env          string // application environment (e.g. "dev", "prod")
	Port         string // HTTP port to listen on
	BaseURL      string // external base URL used in verification and pagination links
	DBUser       string // database username
	DBPass       string // database password (optional)
	DBHost       string // database host address
	DBPort       string // database port number
	DBName       string // database name
	DBMaxOpen    int    // connection pool: max open connections
	DBMaxIdle    int    // connection pool: max idle connections
	DBLifeMin    int    // connection pool: max connection lifetime in minutes
	JWTSecret    string // secret used to sign JWTs
	AccessTTLMin int    // access token time-to-live in minutes
	BcryptCost   int    // bcrypt cost for password hashing

	MaxLoginAttempts int // failed logins before the account is locked

	AdminUsername string // bootstrap admin account created at startup
	AdminEmail    string
	AdminPassword string

	// Object storage (S3 / MinIO) for profile pictures.
	S3Region    string
	S3Endpoint  string // empty for real AWS; MinIO endpoint for local dev
	S3AccessKey string
	S3SecretKey string
	S3Bucket    string
	S3UseSSL    bool

	// Outbound mail for verification and role-change notices.
	SMTPHost string
	SMTPPort int
	SMTPUser string
	SMTPPass string
	SMTPFrom string

	// QR code defaults; colors are hex RGB like "#1a1a2e".
	QRDir       string
	QRFillColor string
	QRBackColor string
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first when present so local development does not need
// exported variables.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		Env:          getenv("APP_ENV", "dev"),
		Port:         getenv("APP_PORT", "8080"),
		BaseURL:      getenv("SERVER_BASE_URL", "http://localhost:8080"),
		DBUser:       must("DB_USER"),
		DBPass:       os.Getenv("DB_PASS"),
		DBHost:       must("DB_HOST"),
		DBPort:       must("DB_PORT"),
		DBName:       must("DB_NAME"),
		DBMaxOpen:    envInt("DB_MAX_OPEN_CONNS", 25),
		DBMaxIdle:    envInt("DB_MAX_IDLE_CONNS", 25),
		DBLifeMin:    envInt("DB_CONN_MAX_LIFETIME_MIN", 30),
		JWTSecret:    must("JWT_SECRET"),
		AccessTTLMin: mustInt("ACCESS_TOKEN_TTL_MIN"),
		BcryptCost:   envInt("BCRYPT_COST", 12),

		MaxLoginAttempts: envInt("MAX_LOGIN_ATTEMPTS", 3),

		AdminUsername: getenv("ADMIN_USERNAME", "admin"),
		AdminEmail:    getenv("ADMIN_EMAIL", "admin@localhost"),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),

		S3Region:    getenv("S3_REGION", "us-east-1"),
		S3Endpoint:  os.Getenv("S3_ENDPOINT"),
		S3AccessKey: os.Getenv("S3_ACCESS_KEY"),
		S3SecretKey: os.Getenv("S3_SECRET_KEY"),
		S3Bucket:    getenv("S3_BUCKET", "profile-pictures"),
		S3UseSSL:    envBool("S3_USE_SSL", false),

		SMTPHost: getenv("SMTP_HOST", "localhost"),
		SMTPPort: envInt("SMTP_PORT", 2525),
		SMTPUser: os.Getenv("SMTP_USER"),
		SMTPPass: os.Getenv("SMTP_PASS"),
		SMTPFrom: getenv("SMTP_FROM", "no-reply@evently.local"),

		QRDir:       getenv("QR_DIR", "qr_codes"),
		QRFillColor: getenv("QR_FILL_COLOR", "#000000"),
		QRBackColor: getenv("QR_BACK_COLOR", "#ffffff"),
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

// mustInt is like must() but converts the retrieved string into an integer.
func mustInt(key string) int {
	s := must(key)
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}
