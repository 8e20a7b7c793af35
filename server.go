package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"messageboard/auth"
	"messageboard/handlers"
	"messageboard/storage"
	"messageboard/storage/in_memory"
	"messageboard/storage/persistent"
	"messageboard/storage/persistent_postgres"
	"messageboard/storage/persistent_redis"
	"messageboard/utils"
)

type StorageMode string

const (
	InMemory StorageMode = "inmemory"
	Mongo    StorageMode = "mongo"
	Redis    StorageMode = "redis"
	Postgres StorageMode = "postgres"
)

type AuthMode string

const (
	JWTAuth      AuthMode = "jwt"
	InsecureAuth AuthMode = "insecure"
)

type Config struct {
	Port        string
	StorageMode StorageMode

	MongoUrl    string
	MongoDbName string
	RedisUrl    string
	PostgresUrl string

	AuthMode      AuthMode
	JWKSUrl       string
	JWKSFile      string
	JWKSTTL       time.Duration
	JWKSRefresh   time.Duration
	Issuer        string
	Audience      string
	ClockSkew     time.Duration
	AllowedOrigin []string
}

func LoadConfig() (Config, error) {
	cfg := Config{
		Port:          utils.GetEnvVarWithDefault("SERVER_PORT", "8080"),
		StorageMode:   StorageMode(utils.GetEnvVarWithDefault("STORAGE_MODE", string(InMemory))),
		AuthMode:      AuthMode(utils.GetEnvVarWithDefault("AUTH_MODE", string(JWTAuth))),
		Issuer:        utils.GetEnvVarWithDefault("AUTH_ISSUER", ""),
		Audience:      utils.GetEnvVarWithDefault("AUTH_AUDIENCE", ""),
		AllowedOrigin: utils.GetEnvListWithDefault("CORS_ALLOWED_ORIGINS", []string{"*"}),
	}

	var err error
	switch cfg.StorageMode {
	case InMemory:
	case Mongo:
		if cfg.MongoUrl, err = utils.GetEnvVar("MONGO_URL"); err != nil {
			return Config{}, err
		}
		if cfg.MongoDbName, err = utils.GetEnvVar("MONGO_DBNAME"); err != nil {
			return Config{}, err
		}
	case Redis:
		if cfg.RedisUrl, err = utils.GetEnvVar("REDIS_URL"); err != nil {
			return Config{}, err
		}
	case Postgres:
		if cfg.PostgresUrl, err = utils.GetEnvVar("POSTGRES_URL"); err != nil {
			return Config{}, err
		}
	default:
		return Config{}, fmt.Errorf("invalid STORAGE_MODE '%s'", cfg.StorageMode)
	}

	switch cfg.AuthMode {
	case InsecureAuth:
	case JWTAuth:
		cfg.JWKSUrl = utils.GetEnvVarWithDefault("AUTH_JWKS_URL", "")
		cfg.JWKSFile = utils.GetEnvVarWithDefault("AUTH_JWKS_FILE", "")
		if (cfg.JWKSUrl == "") == (cfg.JWKSFile == "") {
			return Config{}, fmt.Errorf("AUTH_MODE 'jwt' needs exactly one of AUTH_JWKS_URL and AUTH_JWKS_FILE")
		}
		if cfg.ClockSkew, err = utils.GetEnvDurationWithDefault("AUTH_CLOCK_SKEW", 30*time.Second); err != nil {
			return Config{}, err
		}
		if cfg.JWKSTTL, err = utils.GetEnvDurationWithDefault("AUTH_JWKS_TTL", time.Hour); err != nil {
			return Config{}, err
		}
		if cfg.JWKSRefresh, err = utils.GetEnvDurationWithDefault("AUTH_JWKS_REFRESH_INTERVAL", time.Minute); err != nil {
			return Config{}, err
		}
	default:
		return Config{}, fmt.Errorf("invalid AUTH_MODE '%s'", cfg.AuthMode)
	}
	return cfg, nil
}

func createStorage(ctx context.Context, cfg Config) (storage.Storage, error) {
	switch cfg.StorageMode {
	case Mongo:
		return persistent.CreateMongoStorage(ctx, cfg.MongoUrl, cfg.MongoDbName)
	case Redis:
		return persistent_redis.CreateRedisStorage(ctx, cfg.RedisUrl)
	case Postgres:
		return persistent_postgres.CreatePostgresStorage(ctx, cfg.PostgresUrl)
	default:
		return in_memory.CreateInMemoryStorage(), nil
	}
}

func createGatekeeper(cfg Config) (auth.Gatekeeper, error) {
	if cfg.AuthMode == InsecureAuth {
		log.Printf("AUTH_MODE is 'insecure': bearer tokens are taken as email addresses without verification")
		return auth.InsecureVerifier{}, nil
	}

	var keys auth.KeySource
	if cfg.JWKSFile != "" {
		fileKeys, err := auth.NewFileKeySource(cfg.JWKSFile)
		if err != nil {
			return nil, err
		}
		keys = fileKeys
	} else {
		keys = auth.NewRemoteKeySource(cfg.JWKSUrl, cfg.JWKSTTL)
	}
	return auth.NewJWTVerifier(keys, auth.JWTConfig{
		Issuer:          cfg.Issuer,
		Audience:        cfg.Audience,
		ClockSkew:       cfg.ClockSkew,
		RefreshInterval: cfg.JWKSRefresh,
	}), nil
}

func CreateServer(ctx context.Context, cfg Config) (*http.Server, error) {
	store, err := createStorage(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create %s storage: %w", cfg.StorageMode, err)
	}
	gatekeeper, err := createGatekeeper(cfg)
	if err != nil {
		return nil, fmt.Errorf("create gatekeeper: %w", err)
	}

	handler := handlers.NewHTTPHandler(store)
	return &http.Server{
		Handler:      handlers.NewRouter(handler, gatekeeper, cfg.AllowedOrigin),
		Addr:         "0.0.0.0:" + cfg.Port,
		WriteTimeout: 15 * time.Second,
		ReadTimeout:  15 * time.Second,
	}, nil
}

func main() {
	cfg, err := LoadConfig()
	if err != nil {
		log.Fatalf("Invalid configuration: %s", err.Error())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	srv, err := CreateServer(ctx, cfg)
	cancel()
	if err != nil {
		log.Fatalf("Failed to start: %s", err.Error())
	}

	go func() {
		log.Printf("Start serving on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %s", err.Error())
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	log.Println("Shutting down")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Shutdown failed: %s", err.Error())
	}
}
