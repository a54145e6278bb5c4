package config

import (
	"fmt"
	"os"
)

const (
	portEnvVar  = "PORT"
	appNameVar  = "APP_NAME"
	baseURLVar  = "BASE_URL"
	databaseVar = "DATABASE_URL"
	redisVar    = "REDIS_URL"
	sentryVar   = "SENTRY_DSN"
)

type EnvVars struct{}

var _ EnvConfig = EnvVars{}

func (EnvVars) GetPort() string {
	port := GetEnv(portEnvVar, "8080")
	if port != "" && port[0] != ':' {
		port = fmt.Sprintf(":%s", port)
	}
	return port
}

func (EnvVars) GetAppName() string {
	return GetEnv(appNameVar, "Nexus Auth")
}

// GetBaseURL returns the public base URL of the server, used in the
// referral links handed out on registration.
func (EnvVars) GetBaseURL() string {
	return GetEnv(baseURLVar, "http://localhost:8080")
}

func (EnvVars) GetDatabaseURL() string {
	return GetEnv(databaseVar, "")
}

func (EnvVars) GetRedisURL() string {
	return GetEnv(redisVar, "")
}

func (EnvVars) GetSentryDSN() string {
	return GetEnv(sentryVar, "")
}

func (EnvVars) GetEnv() string {
	env := os.Getenv("ENV")
	if env == "" {
		return "DEV"
	}
	return env
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}
