package config

import "time"

const (
	DefaultMongoURI          = "mongodb://localhost:27017"
	DefaultMongoDatabaseName = "lodgeworks"
	DefaultMongoConnTimeout  = 10 * time.Second

	DefaultRedisAddr = "localhost:6379"
	DefaultRedisDB   = 0

	DefaultPort     = "8080"
	DefaultLogLevel = "info"

	DefaultRateLimitRequests = 30
	DefaultRateLimitWindow   = 1 * time.Minute

	DefaultRequestTimeout = 30 * time.Second
	DefaultIdempotencyTTL = 24 * time.Hour
	DefaultMaxRequestSize = 1 * 1024 * 1024 // 1MB

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	// Holds block a window for this long ahead of payment.
	DefaultHoldMinutes = 45

	DefaultSweepInterval = 5 * time.Minute

	// Forward search bound for the next open period on an unavailable answer.
	DefaultSearchHorizonDays = 90

	DefaultCacheTTL            = 300 * time.Second
	DefaultCacheTagTTL         = 24 * time.Hour
	DefaultCacheErrorThreshold = 5

	DefaultRetryMaxAttempts    = 3
	DefaultRetryBackoffBase    = 100 * time.Millisecond
	DefaultSlowOpThreshold     = 1 * time.Second
	DefaultHealthProbeInterval = 15 * time.Second

	DefaultPaginationLimit = 100
)
