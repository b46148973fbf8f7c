package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr        string
	LogLevel        string
	APIURL          string
	UpstreamTimeout time.Duration

	// Circuit breaker around the storefront API.
	BreakerMaxFailures uint32
	BreakerOpenTimeout time.Duration

	// CORS
	CORSAllowOrigins []string

	// Optional event forwarding; empty URL disables it.
	RabbitURL      string
	EventsExchange string

	// Optional metrics export; empty endpoint keeps metrics in-process.
	OTLPEndpoint string
	OTLPInsecure bool
	ServiceName  string
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first when present.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, err
	}
	return fromEnv(), nil
}

func fromEnv() Config {
	return Config{
		HTTPAddr:        getenv("HTTP_ADDR", ":8080"),
		LogLevel:        getenv("LOG_LEVEL", "info"),
		APIURL:          strings.TrimRight(getenv("API_URL", "http://localhost:8000/api"), "/"),
		UpstreamTimeout: parseDuration(getenv("UPSTREAM_TIMEOUT", "10s"), 10*time.Second),

		BreakerMaxFailures: parseUint32(getenv("BREAKER_MAX_FAILURES", "5"), 5),
		BreakerOpenTimeout: parseDuration(getenv("BREAKER_OPEN_TIMEOUT", "30s"), 30*time.Second),

		CORSAllowOrigins: splitCSV(getenv("CORS_ALLOW_ORIGINS", "*")),

		RabbitURL:      getenv("RABBITMQ_URL", ""),
		EventsExchange: getenv("EVENTS_EXCHANGE", "ecommerce.events"),

		OTLPEndpoint: getenv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		OTLPInsecure: parseBool(getenv("OTEL_EXPORTER_OTLP_INSECURE", "true"), true),
		ServiceName:  getenv("OTEL_SERVICE_NAME", "storefront-go"),
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); strings.TrimSpace(v) != "" {
		return v
	}
	return def
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}

func parseDuration(v string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

func parseUint32(v string, def uint32) uint32 {
	n, err := strconv.ParseUint(strings.TrimSpace(v), 10, 32)
	if err != nil || n == 0 {
		return def
	}
	return uint32(n)
}

func parseBool(v string, def bool) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes":
		return true
	case "0", "false", "no":
		return false
	default:
		return def
	}
}
