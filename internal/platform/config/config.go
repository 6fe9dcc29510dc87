package config

import (
	"os"
	"path/filepath"
	"time"
)

// Client captures configuration for the onboarding client.
type Client struct {
	GatewayURL     string
	StateDir       string
	RedisURL       string // optional; selects the redis progress store
	PostgresURL    string // optional; selects the postgres progress store
	GatewayTimeout time.Duration
}

// Gateway captures configuration for the mock verification gateway.
type Gateway struct {
	Addr          string
	JWTSigningKey string
	PostgresURL   string // optional; users go to postgres instead of memory
	KafkaBrokers  string // optional; comma-separated, enables the audit publisher
}

// ClientFromEnv builds a Client config from environment variables so main
// stays lean.
func ClientFromEnv() Client {
	gatewayURL := os.Getenv("GEMNET_GATEWAY_URL")
	if gatewayURL == "" {
		gatewayURL = "http://localhost:9091"
	}

	stateDir := os.Getenv("GEMNET_STATE_DIR")
	if stateDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			home = "."
		}
		stateDir = filepath.Join(home, ".gemnet")
	}

	return Client{
		GatewayURL:     gatewayURL,
		StateDir:       stateDir,
		RedisURL:       os.Getenv("GEMNET_REDIS_URL"),
		PostgresURL:    os.Getenv("GEMNET_POSTGRES_URL"),
		GatewayTimeout: 30 * time.Second,
	}
}

// GatewayFromEnv builds a Gateway config from environment variables.
func GatewayFromEnv() Gateway {
	addr := os.Getenv("GEMNET_GATEWAY_ADDR")
	if addr == "" {
		addr = ":9091"
	}

	jwtSigningKey := os.Getenv("GEMNET_JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Use a default for development - should be overridden in production
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	return Gateway{
		Addr:          addr,
		JWTSigningKey: jwtSigningKey,
		PostgresURL:   os.Getenv("GEMNET_GATEWAY_POSTGRES_URL"),
		KafkaBrokers:  os.Getenv("GEMNET_KAFKA_BROKERS"),
	}
}
