package config

const (
	EnvMongoURI          = "MONGO_URI"
	EnvMongoDatabaseName = "MONGO_DATABASE_NAME"
	EnvMongoConnTimeout  = "MONGO_CONN_TIMEOUT"

	EnvPort     = "PORT"
	EnvLogLevel = "LOG_LEVEL"

	EnvJWTSecret = "JWT_SECRET"

	EnvRateLimitRequests = "RATE_LIMIT_REQUESTS"
	EnvRateLimitWindow   = "RATE_LIMIT_WINDOW"

	EnvRequestTimeout = "REQUEST_TIMEOUT"
	EnvIdempotencyTTL = "IDEMPOTENCY_TTL"
	EnvMaxRequestSize = "MAX_REQUEST_SIZE"

	EnvReadTimeout     = "READ_TIMEOUT"
	EnvWriteTimeout    = "WRITE_TIMEOUT"
	EnvIdleTimeout     = "IDLE_TIMEOUT"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"

	EnvProximityRadiusKm = "PROXIMITY_RADIUS_KM"

	EnvVerifierURL      = "VERIFIER_URL"
	EnvVerifierTimeout  = "VERIFIER_TIMEOUT"
	EnvVerifierFailOpen = "VERIFIER_FAIL_OPEN"

	EnvKeyLookupPolicy = "KEY_LOOKUP_POLICY"

	EnvAccessSessionTTL = "ACCESS_SESSION_TTL"

	EnvPresenceHeartbeatTimeout = "PRESENCE_HEARTBEAT_TIMEOUT"
	EnvPresenceSweepInterval    = "PRESENCE_SWEEP_INTERVAL"

	EnvNudgePollInterval = "NUDGE_POLL_INTERVAL"
	EnvNotificationTTL   = "NOTIFICATION_TTL"

	EnvHistoryLimit    = "HISTORY_LIMIT"
	EnvHistoryMaxLimit = "HISTORY_MAX_LIMIT"

	EnvProfileUpdateRetries = "PROFILE_UPDATE_RETRIES"

	EnvChannelEventsTopic = "CHANNEL_EVENTS_TOPIC"
	EnvNotificationsTopic = "NOTIFICATIONS_TOPIC"
	EnvDLQTopic           = "DLQ_TOPIC"
	EnvInstanceID         = "INSTANCE_ID"

	EnvS3Region       = "S3_REGION"
	EnvS3BaseEndpoint = "S3_BASE_ENDPOINT"
	EnvS3AccessKey    = "S3_ACCESS_KEY"
	EnvS3SecretKey    = "S3_SECRET_KEY"
	EnvS3Bucket       = "S3_BUCKET"
	EnvMediaURLTTL    = "MEDIA_URL_TTL"

	EnvVenueSeedFile = "VENUE_SEED_FILE"
)
