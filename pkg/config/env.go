package config

const (
	EnvMongoURI          = "MONGO_URI"
	EnvMongoDatabaseName = "MONGO_DATABASE_NAME"
	EnvMongoConnTimeout  = "MONGO_CONN_TIMEOUT"

	EnvRedisAddr     = "REDIS_ADDR"
	EnvRedisPassword = "REDIS_PASSWORD"
	EnvRedisDB       = "REDIS_DB"

	EnvPort     = "PORT"
	EnvLogLevel = "LOG_LEVEL"

	EnvRateLimitRequests = "RATE_LIMIT_REQUESTS"
	EnvRateLimitWindow   = "RATE_LIMIT_WINDOW"

	EnvRequestTimeout = "REQUEST_TIMEOUT"
	EnvIdempotencyTTL = "IDEMPOTENCY_TTL"
	EnvMaxRequestSize = "MAX_REQUEST_SIZE"

	EnvReadTimeout     = "READ_TIMEOUT"
	EnvWriteTimeout    = "WRITE_TIMEOUT"
	EnvIdleTimeout     = "IDLE_TIMEOUT"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"

	EnvHoldMinutes         = "HOLD_MINUTES"
	EnvSweepInterval       = "SWEEP_INTERVAL"
	EnvSearchHorizonDays   = "SEARCH_HORIZON_DAYS"
	EnvCacheTTL            = "CACHE_TTL"
	EnvCacheTagTTL         = "CACHE_TAG_TTL"
	EnvCacheErrorThreshold = "CACHE_ERROR_THRESHOLD"
	EnvRetryMaxAttempts    = "RETRY_MAX_ATTEMPTS"
	EnvRetryBackoffBase    = "RETRY_BACKOFF_BASE"
	EnvSlowOpThreshold     = "SLOW_OP_THRESHOLD"
	EnvHealthProbeInterval = "HEALTH_PROBE_INTERVAL"
)
