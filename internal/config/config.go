// Package config loads configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"reflect"
	"strings"
	"sync"
)

// Config represents the application configuration
type Config struct {
	APIName                string `env:"OA_API_APP_NAME"`
	APIVersion             string `env:"OA_API_APP_VERSION"`
	ServerPort             string `env:"OA_API_SERVER_PORT"`
	ServerLogLevel         string `env:"OA_API_SERVER_LOG_LEVEL"`
	PostgresDsn            string `env:"OA_API_PG_DSN"`
	PostgresLogLevel       string `env:"OA_API_PG_LOG_LEVEL"`
	RedisURL               string `env:"OA_API_REDIS_URL"`
	KiteUserID             string `env:"OA_API_KITE_USER_ID"`
	KitePassword           string `env:"OA_API_KITE_PASSWORD"`
	KiteTotpSecret         string `env:"OA_API_KITE_TOTP_SECRET"`
	KiteAPIKey             string `env:"OA_API_KITE_API_KEY"`
	KiteAccessToken        string `env:"OA_API_KITE_ACCESS_TOKEN"`
	Timezone               string `env:"OA_API_TIMEZONE"`
	TrackedUnderlyings     string `env:"OA_API_TRACKED_UNDERLYINGS"`
	PollInterval           string `env:"OA_API_POLL_INTERVAL"`
	CatalogRefreshInterval string `env:"OA_API_CATALOG_REFRESH_INTERVAL"`
	EODDelay               string `env:"OA_API_EOD_DELAY"`
	SuppressionWindow      string `env:"OA_API_SUPPRESSION_WINDOW"`
	RetentionDays          string `env:"OA_API_RETENTION_DAYS"`
}

var (
	SingleLine string = "--------------------------------------------------"
)

var (
	instance *Config
	once     sync.Once
	err      error
)

// Get returns the application configuration
func Get() (*Config, error) {
	once.Do(func() {
		instance, err = loadConfig()
	})
	return instance, err
}

// loadConfig loads configuration from environment variables
func loadConfig() (*Config, error) {
	cfg := &Config{}
	if err := cfg.loadFromEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadFromEnv loads configuration from environment variables
func (c *Config) loadFromEnv() error {
	t := reflect.TypeOf(*c)
	v := reflect.ValueOf(c).Elem()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		envTag := field.Tag.Get("env")
		if envTag == "" {
			return fmt.Errorf("missing env tag for field %s", field.Name)
		}

		value := os.Getenv(envTag)
		if value == "" {
			return fmt.Errorf("env variable %s is required but not set", envTag)
		}

		v.Field(i).SetString(value)
	}

	return nil
}

// String returns the configuration as a string
func (c *Config) String() string {
	var sb strings.Builder
	sb.WriteString("\n--------------------------------------\n")
	sb.WriteString("Configuration:\n")
	sb.WriteString("--------------------------------------\n")

	t := reflect.TypeOf(*c)
	v := reflect.ValueOf(*c)

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		value := v.Field(i).String()

		// Mask sensitive fields
		value = maskSensitiveField(field.Name, value)
		sb.WriteString(fmt.Sprintf("  %s:  %s\n", field.Name, value))
	}

	sb.WriteString("--------------------------------------\n")

	return sb.String()
}

func maskSensitiveField(fieldName, value string) string {
	sensitiveFields := []string{"token", "dsn", "secret", "password", "url"}

	fieldNameLower := strings.ToLower(fieldName)
	for _, sensitive := range sensitiveFields {
		if strings.Contains(fieldNameLower, sensitive) {
			return maskValue(value)
		}
	}

	return value
}

func maskValue(value string) string {
	if len(value) <= 3 {
		return strings.Repeat("*", 7)
	}
	return value[:3] + strings.Repeat("*", 7)
}
