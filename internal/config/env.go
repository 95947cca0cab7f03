package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"busbooking/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

// maxTransfersLimit mirrors services.MaxTransfersLimit.
const maxTransfersLimit = 5

type Env struct {
	AppAddr  string
	GinMode  string
	LogLevel string

	DBUser        string
	DBPassword    string
	DBHost        string
	DBName        string
	DBAutoMigrate bool

	JWTSecret          string
	PaymentTokenSecret string

	HoldDuration            time.Duration
	ExpirySweepInterval     time.Duration
	CompletionSweepInterval time.Duration

	SearchTimeout     time.Duration
	SearchConcurrency int
	MaxTransfers      int

	RedisAddr   string
	TicketsDir  string
	CORSOrigins []string
	Timezone    string
	Location    *time.Location
}

// LoadEnv reads configuration from the process environment. A .env file in the
// working directory is loaded first when present; real env vars win.
func LoadEnv() Env {
	_ = godotenv.Load()

	env := Env{
		AppAddr:  getEnv("APP_ADDR", ":8080"),
		GinMode:  getEnv("GIN_MODE", ""),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		DBUser:        getEnv("DB_USER", "root"),
		DBPassword:    os.Getenv("DB_PASSWORD"),
		DBHost:        getEnv("DB_HOST", "127.0.0.1:3306"),
		DBName:        getEnv("DB_NAME", "bus_booking"),
		DBAutoMigrate: getBoolEnv("DB_AUTO_MIGRATE", true),

		JWTSecret:          os.Getenv("JWT_SECRET"),
		PaymentTokenSecret: os.Getenv("PAYMENT_TOKEN_SECRET"),

		HoldDuration:            getDurationEnv("HOLD_DURATION", time.Hour),
		ExpirySweepInterval:     getDurationEnv("EXPIRY_SWEEP_INTERVAL", 5*time.Minute),
		CompletionSweepInterval: getDurationEnv("COMPLETION_SWEEP_INTERVAL", time.Minute),

		SearchTimeout:     getDurationEnv("SEARCH_TIMEOUT", 5*time.Second),
		SearchConcurrency: getIntEnv("SEARCH_CONCURRENCY", 8),
		MaxTransfers:      getIntEnv("MAX_TRANSFERS", 3),

		RedisAddr:   getEnv("REDIS_ADDR", ""),
		TicketsDir:  getEnv("TICKETS_DIR", "tickets"),
		CORSOrigins: getListEnv("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000", "http://localhost:5173"}),
		Timezone:    getEnv("APP_TIMEZONE", "Local"),
	}

	if loc, err := utils.LoadLocation(env.Timezone); err == nil {
		env.Location = loc
	}
	return env
}

func (e Env) Release() bool {
	return e.GinMode == gin.ReleaseMode
}

// Validate rejects settings the service cannot run with.
func (e Env) Validate() error {
	var errs []error
	if e.Location == nil {
		errs = append(errs, fmt.Errorf("APP_TIMEZONE %q is not a known zone", e.Timezone))
	}
	for name, d := range map[string]time.Duration{
		"HOLD_DURATION":             e.HoldDuration,
		"EXPIRY_SWEEP_INTERVAL":     e.ExpirySweepInterval,
		"COMPLETION_SWEEP_INTERVAL": e.CompletionSweepInterval,
		"SEARCH_TIMEOUT":            e.SearchTimeout,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive", name))
		}
	}
	if e.SearchConcurrency <= 0 {
		errs = append(errs, errors.New("SEARCH_CONCURRENCY must be positive"))
	}
	if e.MaxTransfers < 0 || e.MaxTransfers > maxTransfersLimit {
		errs = append(errs, fmt.Errorf("MAX_TRANSFERS must be between 0 and %d", maxTransfersLimit))
	}
	if e.Release() && e.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required in release mode"))
	}
	return errors.Join(errs...)
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getIntEnv(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getBoolEnv(key string, fallback bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func getListEnv(key string, fallback []string) []string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	out := []string{}
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
