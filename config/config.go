package config

import (
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

const (
	ModuleTickets = "tickets"
	ModuleSeats   = "seats"
	ModuleEvents  = "events"
)

type Config struct {
	HTTPAddr    string `validate:"required"`
	PostgresURL string `validate:"required"`
	RedisAddr   string `validate:"required"`

	Services []string `validate:"min=1,dive,oneof=tickets seats events"`

	EventServiceURL   string `validate:"required,url"`
	SeatServiceURL    string `validate:"required,url"`
	AuthServiceURL    string `validate:"omitempty,url"`
	PdfServiceURL     string `validate:"omitempty,url"`
	StorageServiceURL string `validate:"omitempty,url"`

	HTTPClientTimeout time.Duration `validate:"gt=0"`

	AdminEmails []string

	PaymentWindow       time.Duration `validate:"gt=0"`
	ExpirySweepInterval time.Duration `validate:"gt=0"`

	JaegerEndpoint string
}

func (c Config) Runs(module string) bool {
	return slices.Contains(c.Services, module)
}

// Load reads the configuration from the environment. A .env file in the
// working directory is loaded first when present.
func Load() (Config, error) {
	_ = godotenv.Load()

	httpAddr := getEnv("HTTP_ADDR", ":8080")
	selfURL := "http://localhost" + httpAddr
	if !strings.HasPrefix(httpAddr, ":") {
		selfURL = "http://" + httpAddr
	}

	cfg := Config{
		HTTPAddr:    httpAddr,
		PostgresURL: os.Getenv("POSTGRES_URL"),
		RedisAddr:   os.Getenv("REDIS_ADDR"),

		Services: splitList(getEnv("SERVICES", "tickets,seats,events")),

		EventServiceURL:   getEnv("EVENT_SERVICE_URL", selfURL+"/api/v1"),
		SeatServiceURL:    getEnv("SEAT_SERVICE_URL", selfURL+"/api/v1"),
		AuthServiceURL:    os.Getenv("AUTH_SERVICE_URL"),
		PdfServiceURL:     os.Getenv("PDF_SERVICE_URL"),
		StorageServiceURL: os.Getenv("STORAGE_SERVICE_URL"),

		AdminEmails: splitList(os.Getenv("ADMIN_EMAILS")),

		JaegerEndpoint: os.Getenv("JAEGER_ENDPOINT"),
	}

	var err error
	if cfg.HTTPClientTimeout, err = getDuration("HTTP_CLIENT_TIMEOUT", 5*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.PaymentWindow, err = getDuration("PAYMENT_WINDOW", 10*time.Minute); err != nil {
		return Config{}, err
	}
	if cfg.ExpirySweepInterval, err = getDuration("EXPIRY_SWEEP_INTERVAL", 60*time.Second); err != nil {
		return Config{}, err
	}

	if err := validator.New().Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	if cfg.Runs(ModuleTickets) && (cfg.AuthServiceURL == "" || cfg.PdfServiceURL == "" || cfg.StorageServiceURL == "") {
		return Config{}, fmt.Errorf("invalid configuration: tickets module needs AUTH_SERVICE_URL, PDF_SERVICE_URL and STORAGE_SERVICE_URL")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("could not parse %s: %w", key, err)
	}
	return d, nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
