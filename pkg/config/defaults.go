package config

import "time"

const (
	DefaultMongoURI          = "mongodb://localhost:27017/?replicaSet=rs0"
	DefaultMongoDatabaseName = "staymate"
	DefaultMongoConnTimeout  = 10 * time.Second

	DefaultPort = "8080"

	DefaultRateLimitRequests = 30
	DefaultRateLimitWindow   = 1 * time.Minute

	DefaultRequestTimeout = 30 * time.Second
	DefaultIdempotencyTTL = 24 * time.Hour
	DefaultMaxRequestSize = 8 * 1024 * 1024 // 8MB, receipt images are posted inline

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	DefaultProximityRadiusKm = 3.0

	DefaultVerifierURL      = "http://localhost:8091"
	DefaultVerifierTimeout  = 20 * time.Second
	DefaultVerifierFailOpen = false

	DefaultKeyLookupPolicy = "first_in_list"

	DefaultAccessSessionTTL = 12 * time.Hour

	DefaultPresenceHeartbeatTimeout = 30 * time.Second
	DefaultPresenceSweepInterval    = 5 * time.Second

	DefaultNudgePollInterval = 10 * time.Second
	DefaultNotificationTTL   = 5 * time.Second

	DefaultHistoryLimit    = 50
	DefaultHistoryMaxLimit = 200

	DefaultProfileUpdateRetries = 5

	DefaultChannelEventsTopic = "staymate.channel-events"
	DefaultNotificationsTopic = "staymate.notifications"
	DefaultDLQTopic           = "staymate.dlq"

	DefaultS3Region    = "us-east-1"
	DefaultS3Bucket    = "staymate-media"
	DefaultMediaURLTTL = 15 * time.Minute

	DefaultLogLevel = "info"
)
