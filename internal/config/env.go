package config

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"strings"
)

// GatewayAddr is the fixed public listener address; it is not
// configurable.
const GatewayAddr = "127.0.0.1:3000"

// Env holds the environment-derived bootstrap configuration: where to
// find the YAML config file, how verbosely to log, and where to run
// the operational admin surface (metrics, pprof).
type Env struct {
	AppEnv    string // APP_ENV: "production" or "test"
	LogLevel  string // LOG_LEVEL
	ConfigPath string // CONFIG_PATH — path to the YAML balancer config
	AdminAddr string // ADMIN_ADDR — metrics/pprof listener
}

func (e *Env) IsProduction() bool {
	return e.AppEnv == "production"
}

// LoadEnv loads an optional .env file, then reads real environment
// variables, which always win over the file.
func LoadEnv() (*Env, error) {
	loadDotEnv()

	env := &Env{
		AppEnv:     strings.ToLower(strings.TrimSpace(envOr("APP_ENV", "test"))),
		LogLevel:   strings.ToUpper(envOr("LOG_LEVEL", "INFO")),
		ConfigPath: envOr("CONFIG_PATH", "config.yaml"),
		AdminAddr:  envOr("ADMIN_ADDR", ":9090"),
	}

	if err := env.validate(); err != nil {
		return nil, err
	}
	return env, nil
}

func (e *Env) validate() error {
	switch e.AppEnv {
	case "production", "test":
	default:
		return fmt.Errorf("APP_ENV must be 'production' or 'test', got %q", e.AppEnv)
	}
	switch e.LogLevel {
	case "DEBUG", "INFO", "WARN", "ERROR":
	default:
		return fmt.Errorf("LOG_LEVEL must be DEBUG|INFO|WARN|ERROR, got %q", e.LogLevel)
	}
	return nil
}

// ── .env file loader ────────────────────────────────────────────────
// Lightweight loader — no external dependencies. Sets env vars only if
// they are not already set (real env always wins).

func loadDotEnv() {
	candidates := []string{
		os.Getenv("ENV_FILE"),
		".env",
	}

	for _, path := range candidates {
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); err == nil {
			if err := parseDotEnv(path); err != nil {
				log.Printf("warning: failed to parse %s: %v", path, err)
			} else {
				log.Printf("loaded env from %s", path)
			}
			return
		}
	}
}

func parseDotEnv(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}

		key = strings.TrimSpace(key)
		value = strings.Trim(strings.TrimSpace(value), `"'`)

		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}

	return scanner.Err()
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
