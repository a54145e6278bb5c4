package config

import (
	"strconv"
	"time"
)

type SecurityConfig interface {
	GetMaxLoginAttempts() int
	GetLockoutDuration() time.Duration
	GetCountTwoFactorFailures() bool
	GetMaxConcurrentHashes() int
}

type Security struct{}

var _ SecurityConfig = Security{}

func (Security) GetMaxLoginAttempts() int {
	return getInt("MAX_LOGIN_ATTEMPTS", 5)
}

func (Security) GetLockoutDuration() time.Duration {
	return time.Duration(getInt("LOCKOUT_MINUTES", 30)) * time.Minute
}

// GetCountTwoFactorFailures reports whether failed 2FA codes advance
// the lockout counter the way wrong passwords do.
func (Security) GetCountTwoFactorFailures() bool {
	return GetEnv("COUNT_2FA_FAILURES", "false") == "true"
}

// GetMaxConcurrentHashes bounds parallel argon2 computations. Zero
// lets the hasher pick a default from GOMAXPROCS.
func (Security) GetMaxConcurrentHashes() int {
	return getInt("MAX_CONCURRENT_HASHES", 0)
}

func getInt(envVar string, defaultValue int) int {
	raw := GetEnv(envVar, "")
	if raw == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return defaultValue
	}
	return value
}
