package config

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/linesmerrill/dispute-case-api/apperr"
	"github.com/linesmerrill/dispute-case-api/logging"
	"github.com/linesmerrill/dispute-case-api/models"
)

// Store drivers
const (
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config holds the project config values
type Config struct {
	Env     string
	BaseURL string
	Port    string

	StoreDriver  string
	URL          string
	DatabaseName string
	PostgresDSN  string

	// Location is the office timezone every session date and time is read in
	Location          *time.Location
	DailyCapacity     int
	MinSpacingMinutes int
	ElapsedCapDays    int

	JWTSecret      string
	SendgridAPIKey string
	MailFrom       string
	CloudinaryURL  string
	DocumentDir    string
	RequestTimeout time.Duration
}

// New sets up all config related services
func New() *Config {
	// a missing .env is fine, the environment wins either way
	_ = godotenv.Load()

	env := GetEnv("ENV", "local")
	logger, err := setLogger(env)
	if err != nil {
		logger = zap.NewExample()
	}
	_ = zap.ReplaceGlobals(logger)

	return &Config{
		Env:               env,
		BaseURL:           GetEnv("BASE_URL"),
		Port:              GetEnv("PORT", "8080"),
		StoreDriver:       GetEnv("STORE_DRIVER", DriverMongo),
		URL:               GetEnv("DB_URI"),
		DatabaseName:      GetEnv("DB_NAME", "disputes"),
		PostgresDSN:       GetEnv("POSTGRES_DSN"),
		Location:          location(GetEnv("OFFICE_TIMEZONE", "Asia/Manila")),
		DailyCapacity:     intEnv("DAILY_CAPACITY", 4),
		MinSpacingMinutes: intEnv("MIN_SPACING_MINUTES", 60),
		ElapsedCapDays:    intEnv("ELAPSED_CAP_DAYS", 15),
		JWTSecret:         GetEnv("JWT_SECRET"),
		SendgridAPIKey:    GetEnv("SENDGRID_API_KEY"),
		MailFrom:          GetEnv("MAIL_FROM", "no-reply@lupon.local"),
		CloudinaryURL:     GetEnv("CLOUDINARY_URL"),
		DocumentDir:       GetEnv("DOCUMENT_DIR", "./uploads"),
		RequestTimeout:    durationEnv("REQUEST_TIMEOUT", 30*time.Second),
	}
}

// GetEnv returns the value of key, or the first default when it is unset
func GetEnv(key string, defaultValue ...string) string {
	value, exists := os.LookupEnv(key)
	if !exists && len(defaultValue) > 0 {
		return defaultValue[0]
	}
	return value
}

func setLogger(env string) (*zap.Logger, error) {
	return logging.New(env)
}

func intEnv(key string, def int) int {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		zap.S().Warnw("invalid integer setting, using default", "key", key, "value", raw, "default", def)
		return def
	}
	return n
}

func durationEnv(key string, def time.Duration) time.Duration {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		zap.S().Warnw("invalid duration setting, using default", "key", key, "value", raw, "default", def)
		return def
	}
	return d
}

func location(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		// hosts without tzdata still need a fixed office offset
		zap.S().Warnw("failed to load timezone, falling back to UTC+8", "timezone", name, "error", err)
		return time.FixedZone(name, 8*60*60)
	}
	return loc
}

// ErrorStatus is a useful function that will log, write http headers and body for a
// give message, status code and err. Classified errors also carry their kind as Code.
func ErrorStatus(message string, httpStatusCode int, w http.ResponseWriter, err error) {
	zap.S().With("error", err).Error(message)

	body := models.ErrorMessageResponse{Response: models.MessageError{Message: message}}
	if err != nil {
		body.Response.Error = err.Error()
		var ae *apperr.Error
		if errors.As(err, &ae) {
			body.Response.Code = string(ae.Kind)
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatusCode)
	_ = json.NewEncoder(w).Encode(body)
}
