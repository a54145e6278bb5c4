package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/getsentry/sentry-go"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/nexus-universe/nexus-auth/audit"
	"github.com/nexus-universe/nexus-auth/auth"
	"github.com/nexus-universe/nexus-auth/auth/codes"
	"github.com/nexus-universe/nexus-auth/internal/config"
	"github.com/nexus-universe/nexus-auth/lockout"
	"github.com/nexus-universe/nexus-auth/password"
	"github.com/nexus-universe/nexus-auth/server"
	"github.com/nexus-universe/nexus-auth/storage/postgres"
	"github.com/nexus-universe/nexus-auth/storage/redisstore"
	"github.com/nexus-universe/nexus-auth/token"
	"github.com/nexus-universe/nexus-auth/totp"
)

func main() {
	for {
		if err := run(); err != nil {
			log.Fatal().Err(err).Msg("Error running server")
			time.Sleep(1 * time.Second)
		} else {
			break
		}
	}
	log.Info().Msg("Server stopped")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("Recovered from panic")
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	_ = godotenv.Load()

	c := config.New()
	displayAppname(c.GetAppName())

	if dsn := c.GetSentryDSN(); dsn != "" {
		if err := sentry.Init(sentry.ClientOptions{Dsn: dsn, Environment: c.GetEnv()}); err != nil {
			log.Err(err).Msg("sentry init failed")
		}
		defer sentry.Flush(2 * time.Second)
	}

	authService, cleanup, err := buildAuthService(c)
	if err != nil {
		return err
	}
	defer cleanup()

	srv, err := server.New(c, authService)
	if err != nil {
		return fmt.Errorf("server.New: %w", err)
	}

	httpServer := &http.Server{Addr: c.GetPort(), Handler: srv}
	go listenAndServe(httpServer)
	waitForStopSignal()
	returnError = shutdown(httpServer)
	return returnError
}

// buildAuthService wires storage and crypto into the auth service.
// Signing secrets are loaded once here; a missing secret aborts startup.
func buildAuthService(c config.Config) (*auth.Service, func(), error) {
	ctx := context.Background()

	access, refresh, err := c.GetSigningSecrets()
	if err != nil {
		return nil, nil, err
	}

	databaseURL := c.GetDatabaseURL()
	if databaseURL == "" {
		return nil, nil, errors.New("DATABASE_URL is required")
	}
	db, err := postgres.Connect(ctx, databaseURL)
	if err != nil {
		return nil, nil, err
	}
	if err := postgres.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, nil, err
	}

	var (
		codeStore codes.Store
		denyList  token.DenyList
		closers   = []func(){func() { _ = db.Close() }}
	)
	if redisURL := c.GetRedisURL(); redisURL != "" {
		redisClient, err := redisstore.Connect(ctx, redisURL)
		if err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		closers = append(closers, func() { _ = redisClient.Close() })
		codeStore = redisstore.NewCodeStore(redisClient)
		denyList = redisstore.NewDenyList(redisClient)
	} else {
		log.Warn().Msg("REDIS_URL not set, using in-process code store and deny list")
		codeStore = codes.NewInMemoryStore()
		denyList = token.NewInMemoryDenyList()
	}

	tokens, err := token.NewService(
		token.Secrets{Access: access, Refresh: refresh},
		c.GetIssuer(), c.GetAudience(),
		token.WithTokenExpiry(c.GetAccessTokenExpiry(), c.GetRefreshTokenExpiry()),
		token.WithDenyList(denyList),
	)
	if err != nil {
		return nil, nil, err
	}

	hashConfig := password.DefaultConfig()
	hashConfig.MaxConcurrent = c.GetMaxConcurrentHashes()
	hasher, err := password.NewHasher(hashConfig)
	if err != nil {
		return nil, nil, err
	}

	dispatcher := audit.NewDispatcher(postgres.NewAuditLog(db), 256)
	closers = append([]func(){dispatcher.Close}, closers...)

	policy := lockout.Policy{
		MaxAttempts:            c.GetMaxLoginAttempts(),
		LockDuration:           c.GetLockoutDuration(),
		CountTwoFactorFailures: c.GetCountTwoFactorFailures(),
	}

	authService, err := auth.NewService(
		auth.Repos{
			Accounts:   postgres.NewAccountRepo(db),
			Clients:    postgres.NewClientRepo(db),
			Sessions:   postgres.NewSessionRepo(db),
			Affiliates: postgres.NewAffiliateRepo(db),
		},
		hasher,
		tokens,
		totp.NewVerifier(c.GetAppName()),
		codeStore,
		auth.WithLockoutPolicy(policy),
		auth.WithAuditLog(dispatcher),
		auth.WithDefaultScopes(c.GetDefaultScopes()),
	)
	if err != nil {
		return nil, nil, err
	}

	cleanup := func() {
		for _, closeFunc := range closers {
			closeFunc()
		}
	}
	return authService, cleanup, nil
}

func listenAndServe(server *http.Server) error {
	log.Info().Str("addr", server.Addr).Msg("Server listening")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func waitForStopSignal() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
