package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"time"

	"lodgeworks/pkg/client"
	"lodgeworks/pkg/logger"
)

type Config struct {
	MongoURI          string
	MongoDatabaseName string
	MongoConnTimeout  time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	Port string

	RateLimitRequests int
	RateLimitWindow   time.Duration

	RequestTimeout time.Duration
	IdempotencyTTL time.Duration
	MaxRequestSize int

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	HoldMinutes       int
	SweepInterval     time.Duration
	SearchHorizonDays int

	CacheTTL            time.Duration
	CacheTagTTL         time.Duration
	CacheErrorThreshold int

	RetryMaxAttempts    int
	RetryBackoffBase    time.Duration
	SlowOpThreshold     time.Duration
	HealthProbeInterval time.Duration

	Log    *logger.Logger
	Client *client.Client
}

func Load(serviceName string) *Config {
	cfg := &Config{
		MongoURI:          getEnvStr(EnvMongoURI, DefaultMongoURI),
		MongoDatabaseName: getEnvStr(EnvMongoDatabaseName, DefaultMongoDatabaseName),
		MongoConnTimeout:  getEnvDuration(EnvMongoConnTimeout, DefaultMongoConnTimeout),

		RedisAddr:     getEnvStr(EnvRedisAddr, DefaultRedisAddr),
		RedisPassword: getEnvStr(EnvRedisPassword, ""),
		RedisDB:       getEnvNum(EnvRedisDB, DefaultRedisDB),

		Port: getEnvStr(EnvPort, DefaultPort),

		RateLimitRequests: getEnvNum(EnvRateLimitRequests, DefaultRateLimitRequests),
		RateLimitWindow:   getEnvDuration(EnvRateLimitWindow, DefaultRateLimitWindow),

		RequestTimeout: getEnvDuration(EnvRequestTimeout, DefaultRequestTimeout),
		IdempotencyTTL: getEnvDuration(EnvIdempotencyTTL, DefaultIdempotencyTTL),
		MaxRequestSize: getEnvNum(EnvMaxRequestSize, DefaultMaxRequestSize),

		ReadTimeout:     getEnvDuration(EnvReadTimeout, DefaultReadTimeout),
		WriteTimeout:    getEnvDuration(EnvWriteTimeout, DefaultWriteTimeout),
		IdleTimeout:     getEnvDuration(EnvIdleTimeout, DefaultIdleTimeout),
		ShutdownTimeout: getEnvDuration(EnvShutdownTimeout, DefaultShutdownTimeout),

		HoldMinutes:       getEnvNum(EnvHoldMinutes, DefaultHoldMinutes),
		SweepInterval:     getEnvDuration(EnvSweepInterval, DefaultSweepInterval),
		SearchHorizonDays: getEnvNum(EnvSearchHorizonDays, DefaultSearchHorizonDays),

		CacheTTL:            getEnvDuration(EnvCacheTTL, DefaultCacheTTL),
		CacheTagTTL:         getEnvDuration(EnvCacheTagTTL, DefaultCacheTagTTL),
		CacheErrorThreshold: getEnvNum(EnvCacheErrorThreshold, DefaultCacheErrorThreshold),

		RetryMaxAttempts:    getEnvNum(EnvRetryMaxAttempts, DefaultRetryMaxAttempts),
		RetryBackoffBase:    getEnvDuration(EnvRetryBackoffBase, DefaultRetryBackoffBase),
		SlowOpThreshold:     getEnvDuration(EnvSlowOpThreshold, DefaultSlowOpThreshold),
		HealthProbeInterval: getEnvDuration(EnvHealthProbeInterval, DefaultHealthProbeInterval),

		Log: logger.New(logger.Config{
			Level:     getEnvStr(EnvLogLevel, DefaultLogLevel),
			Format:    logger.FormatJSON,
			AddSource: true,
			Service:   serviceName,
		}),
		Client: client.NewClient(),
	}

	if err := cfg.Validate(); err != nil {
		cfg.Log.Fatal(err.Error())
	}
	cfg.LogConfiguration()
	return cfg
}

func (cfg *Config) SetMongo() {
	cfg.Client.SetMongo(cfg.Log, cfg.MongoURI, cfg.MongoConnTimeout)
}

func (cfg *Config) SetRedis() {
	cfg.Client.SetRedis(cfg.Log, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
}

func (cfg *Config) Validate() error {
	var errs []string

	if port, err := strconv.Atoi(cfg.Port); err != nil || port < 1 || port > 65535 {
		errs = append(errs, fmt.Sprintf("Port must be between 1 and 65535, got: %s", cfg.Port))
	}

	if cfg.MongoURI == "" {
		errs = append(errs, "MongoURI cannot be empty")
	} else if !regexp.MustCompile(`^mongodb(\+srv)?://`).MatchString(cfg.MongoURI) {
		errs = append(errs, fmt.Sprintf("MongoURI must start with 'mongodb://' or 'mongodb+srv://', got: %s", cfg.MongoURI))
	}
	if cfg.MongoDatabaseName == "" {
		errs = append(errs, "MongoDatabaseName cannot be empty")
	}
	if cfg.MongoConnTimeout <= 0 {
		errs = append(errs, fmt.Sprintf("MongoConnTimeout must be positive, got: %s", cfg.MongoConnTimeout))
	}

	if cfg.RedisAddr == "" {
		errs = append(errs, "RedisAddr cannot be empty")
	}
	if cfg.RedisDB < 0 {
		errs = append(errs, fmt.Sprintf("RedisDB cannot be negative, got: %d", cfg.RedisDB))
	}

	for name, d := range map[string]time.Duration{
		"RateLimitWindow":     cfg.RateLimitWindow,
		"RequestTimeout":      cfg.RequestTimeout,
		"IdempotencyTTL":      cfg.IdempotencyTTL,
		"ReadTimeout":         cfg.ReadTimeout,
		"WriteTimeout":        cfg.WriteTimeout,
		"IdleTimeout":         cfg.IdleTimeout,
		"ShutdownTimeout":     cfg.ShutdownTimeout,
		"SweepInterval":       cfg.SweepInterval,
		"CacheTTL":            cfg.CacheTTL,
		"CacheTagTTL":         cfg.CacheTagTTL,
		"RetryBackoffBase":    cfg.RetryBackoffBase,
		"SlowOpThreshold":     cfg.SlowOpThreshold,
		"HealthProbeInterval": cfg.HealthProbeInterval,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Sprintf("%s must be positive, got: %s", name, d))
		}
	}

	if cfg.RateLimitRequests <= 0 {
		errs = append(errs, fmt.Sprintf("RateLimitRequests must be positive, got: %d", cfg.RateLimitRequests))
	}
	if cfg.MaxRequestSize <= 0 {
		errs = append(errs, fmt.Sprintf("MaxRequestSize must be positive, got: %d", cfg.MaxRequestSize))
	}
	if cfg.HoldMinutes <= 0 {
		errs = append(errs, fmt.Sprintf("HoldMinutes must be positive, got: %d", cfg.HoldMinutes))
	}
	if cfg.SearchHorizonDays <= 0 {
		errs = append(errs, fmt.Sprintf("SearchHorizonDays must be positive, got: %d", cfg.SearchHorizonDays))
	}
	if cfg.CacheErrorThreshold <= 0 {
		errs = append(errs, fmt.Sprintf("CacheErrorThreshold must be positive, got: %d", cfg.CacheErrorThreshold))
	}
	if cfg.RetryMaxAttempts <= 0 {
		errs = append(errs, fmt.Sprintf("RetryMaxAttempts must be positive, got: %d", cfg.RetryMaxAttempts))
	}

	if len(errs) > 0 {
		errMsg := "Configuration validation failed:\n"
		for i, e := range errs {
			errMsg += fmt.Sprintf("  %d. %s\n", i+1, e)
		}
		return fmt.Errorf("%s", errMsg)
	}

	return nil
}

func (cfg *Config) LogConfiguration() {
	cfg.Log.Info("Configuration loaded successfully",
		"mongo_uri", redactMongoURI(cfg.MongoURI),
		"mongo_database", cfg.MongoDatabaseName,
		"mongo_conn_timeout", cfg.MongoConnTimeout,
		"redis_addr", cfg.RedisAddr,
		"redis_db", cfg.RedisDB,
		"redis_password_set", cfg.RedisPassword != "",
		"port", cfg.Port,
		"rate_limit_requests", cfg.RateLimitRequests,
		"rate_limit_window", cfg.RateLimitWindow,
		"request_timeout", cfg.RequestTimeout,
		"idempotency_ttl", cfg.IdempotencyTTL,
		"max_request_size", cfg.MaxRequestSize,
		"read_timeout", cfg.ReadTimeout,
		"write_timeout", cfg.WriteTimeout,
		"idle_timeout", cfg.IdleTimeout,
		"shutdown_timeout", cfg.ShutdownTimeout,
		"hold_minutes", cfg.HoldMinutes,
		"sweep_interval", cfg.SweepInterval,
		"search_horizon_days", cfg.SearchHorizonDays,
		"cache_ttl", cfg.CacheTTL,
		"cache_tag_ttl", cfg.CacheTagTTL,
		"cache_error_threshold", cfg.CacheErrorThreshold,
		"retry_max_attempts", cfg.RetryMaxAttempts,
		"retry_backoff_base", cfg.RetryBackoffBase,
		"slow_op_threshold", cfg.SlowOpThreshold,
		"health_probe_interval", cfg.HealthProbeInterval,
	)
}

func redactMongoURI(uri string) string {
	credentialRegex := regexp.MustCompile(`(mongodb(\+srv)?://)[^:]+:[^@]+@`)
	return credentialRegex.ReplaceAllString(uri, "${1}***:***@")
}

func getEnvStr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvNum(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func (cfg *Config) GracefulShutdown() {
	cfg.Client.GracefulShutdown()
}

// HoldDuration converts the configured hold minutes to a duration.
func (cfg *Config) HoldDuration() time.Duration {
	return time.Duration(cfg.HoldMinutes) * time.Minute
}

func NormalizePaginationLimit(limit int) int {
	if limit <= 0 {
		limit = 10
	} else if limit > DefaultPaginationLimit {
		limit = DefaultPaginationLimit
	}
	return limit
}
