package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr             string
	DatabaseURL          string
	CORSAllowedOrigins   []string
	CORSAllowCredentials bool

	JWTSecret         string
	TokenTTL          time.Duration
	AllowRegistration bool

	LogJSON  bool
	LogLevel string

	Scheduler Scheduler
	Delivery  Delivery
	Storage   Storage
	Bridge    Bridge

	// requests per second allowed on the manual trigger endpoint
	TriggerRPS float64
}

// Scheduler holds the polling and time-window knobs.
type Scheduler struct {
	Timezone       string
	PollInterval   time.Duration
	Bucket         time.Duration
	StaleAfter     time.Duration
	GraceWindow    time.Duration
	RecipientPause time.Duration
}

// Delivery holds the gateway protection knobs.
type Delivery struct {
	BreakerThreshold   int
	BreakerCooldown    time.Duration
	RateLimitPerMinute int
	Attempts           int
	AttachmentMaxBytes int64
}

type Storage struct {
	Bucket   string
	Region   string
	Endpoint string
	Prefix   string
}

type Bridge struct {
	URL   string
	Token string
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		HTTPAddr:             getenv("HTTP_ADDR", ":8080"),
		DatabaseURL:          mustGetenv("DATABASE_URL"),
		CORSAllowCredentials: getBool("CORS_ALLOW_CREDENTIALS", false),
		TokenTTL:             getDuration("JWT_TTL", 24*time.Hour),
		AllowRegistration:    getBool("ALLOW_REGISTRATION", false),
		LogJSON:              getBool("LOG_JSON", false),
		LogLevel:             getenv("LOG_LEVEL", "info"),
		TriggerRPS:           getFloat("TRIGGER_RPS", 0.2),
	}

	origins := strings.Split(getenv("CORS_ALLOWED_ORIGINS", ""), ",")
	for _, o := range origins {
		o = strings.TrimSpace(o)
		if o != "" {
			cfg.CORSAllowedOrigins = append(cfg.CORSAllowedOrigins, o)
		}
	}

	cfg.Scheduler = Scheduler{
		Timezone:       getenv("TIMEZONE", "America/Argentina/Buenos_Aires"),
		PollInterval:   getDuration("POLL_INTERVAL", 5*time.Minute),
		Bucket:         getDuration("WINDOW_BUCKET", 10*time.Minute),
		StaleAfter:     getDuration("STALE_AFTER", 60*time.Minute),
		GraceWindow:    getDuration("GRACE_WINDOW", 2*time.Minute),
		RecipientPause: getDuration("RECIPIENT_PAUSE", 1500*time.Millisecond),
	}

	cfg.Delivery = Delivery{
		BreakerThreshold:   getInt("BREAKER_THRESHOLD", 5),
		BreakerCooldown:    getDuration("BREAKER_COOLDOWN", 5*time.Minute),
		RateLimitPerMinute: getInt("RATE_LIMIT_PER_MINUTE", 20),
		Attempts:           getInt("SEND_ATTEMPTS", 3),
		AttachmentMaxBytes: int64(getInt("ATTACHMENT_MAX_BYTES", 16*1024*1024)),
	}

	cfg.Storage = Storage{
		Bucket:   getenv("S3_BUCKET", "veps"),
		Region:   getenv("S3_REGION", "us-east-1"),
		Endpoint: getenv("S3_ENDPOINT", ""),
		Prefix:   getenv("S3_PREFIX", ""),
	}

	cfg.Bridge = Bridge{
		URL:   getenv("BRIDGE_URL", "http://localhost:3000"),
		Token: getenv("BRIDGE_TOKEN", ""),
	}

	cfg.JWTSecret = mustGetenv("JWT_SECRET")
	return cfg, nil
}

// Location resolves the reference timezone, falling back to UTC-3 when the
// tz database is not available in the container.
func (s Scheduler) Location() *time.Location {
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return time.FixedZone("ART", -3*60*60)
	}
	return loc
}

func getenv(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func mustGetenv(key string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		panic("missing env: " + key)
	}
	return v
}

func getBool(key string, def bool) bool {
	v := getenv(key, "")
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getInt(key string, def int) int {
	v := getenv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func getFloat(key string, def float64) float64 {
	v := getenv(key, "")
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f <= 0 {
		return def
	}
	return f
}

func getDuration(key string, def time.Duration) time.Duration {
	v := getenv(key, "")
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
