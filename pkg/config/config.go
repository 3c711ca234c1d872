package config

import (
	"fmt"
	"os"
	"regexp"
	"staymate/pkg/client"
	"staymate/pkg/logger"
	"staymate/pkg/model"
	"strconv"
	"time"

	"github.com/google/uuid"
)

type Config struct {
	MongoURI          string
	MongoDatabaseName string
	MongoConnTimeout  time.Duration

	Port string

	JWTSecret string

	RateLimitRequests int
	RateLimitWindow   time.Duration

	RequestTimeout time.Duration
	IdempotencyTTL time.Duration
	MaxRequestSize int

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	ProximityRadiusKm float64

	VerifierURL      string
	VerifierTimeout  time.Duration
	VerifierFailOpen bool

	KeyLookupPolicy model.KeyLookupPolicy

	AccessSessionTTL time.Duration

	PresenceHeartbeatTimeout time.Duration
	PresenceSweepInterval    time.Duration

	NudgePollInterval time.Duration
	NotificationTTL   time.Duration

	HistoryLimit    int
	HistoryMaxLimit int

	ProfileUpdateRetries int

	ChannelEventsTopic string
	NotificationsTopic string
	DLQTopic           string
	InstanceID         string

	S3Region       string
	S3BaseEndpoint string
	S3AccessKey    string
	S3SecretKey    string
	S3Bucket       string
	MediaURLTTL    time.Duration

	// VenueSeedFile is a JSON array of venues upserted by the migrate job.
	VenueSeedFile string

	Log    *logger.Logger
	Client *client.Client

	requireJWT bool
}

func Load(serviceName string) *Config {
	return load(FromEnv(serviceName))
}

// LoadInternal is Load for binaries that serve no authenticated API, such as
// jobs and bus workers. They run without a JWT secret.
func LoadInternal(serviceName string) *Config {
	cfg := FromEnv(serviceName)
	cfg.requireJWT = false
	return load(cfg)
}

func load(cfg *Config) *Config {

	if err := cfg.Validate(); err != nil {
		cfg.Log.Fatal(err.Error())
	}
	cfg.LogConfiguration()
	return cfg
}

// FromEnv reads the configuration without validating it.
func FromEnv(serviceName string) *Config {
	return &Config{
		MongoURI:          getEnvStr(EnvMongoURI, DefaultMongoURI),
		MongoDatabaseName: getEnvStr(EnvMongoDatabaseName, DefaultMongoDatabaseName),
		MongoConnTimeout:  getEnvDuration(EnvMongoConnTimeout, DefaultMongoConnTimeout),

		Port: getEnvStr(EnvPort, DefaultPort),

		JWTSecret: getEnvStr(EnvJWTSecret, ""),

		RateLimitRequests: getEnvNum(EnvRateLimitRequests, DefaultRateLimitRequests),
		RateLimitWindow:   getEnvDuration(EnvRateLimitWindow, DefaultRateLimitWindow),

		RequestTimeout: getEnvDuration(EnvRequestTimeout, DefaultRequestTimeout),
		IdempotencyTTL: getEnvDuration(EnvIdempotencyTTL, DefaultIdempotencyTTL),
		MaxRequestSize: getEnvNum(EnvMaxRequestSize, DefaultMaxRequestSize),

		ReadTimeout:     getEnvDuration(EnvReadTimeout, DefaultReadTimeout),
		WriteTimeout:    getEnvDuration(EnvWriteTimeout, DefaultWriteTimeout),
		IdleTimeout:     getEnvDuration(EnvIdleTimeout, DefaultIdleTimeout),
		ShutdownTimeout: getEnvDuration(EnvShutdownTimeout, DefaultShutdownTimeout),

		ProximityRadiusKm: getEnvFloat(EnvProximityRadiusKm, DefaultProximityRadiusKm),

		VerifierURL:      getEnvStr(EnvVerifierURL, DefaultVerifierURL),
		VerifierTimeout:  getEnvDuration(EnvVerifierTimeout, DefaultVerifierTimeout),
		VerifierFailOpen: getEnvBool(EnvVerifierFailOpen, DefaultVerifierFailOpen),

		KeyLookupPolicy: model.KeyLookupPolicy(getEnvStr(EnvKeyLookupPolicy, DefaultKeyLookupPolicy)),

		AccessSessionTTL: getEnvDuration(EnvAccessSessionTTL, DefaultAccessSessionTTL),

		PresenceHeartbeatTimeout: getEnvDuration(EnvPresenceHeartbeatTimeout, DefaultPresenceHeartbeatTimeout),
		PresenceSweepInterval:    getEnvDuration(EnvPresenceSweepInterval, DefaultPresenceSweepInterval),

		NudgePollInterval: getEnvDuration(EnvNudgePollInterval, DefaultNudgePollInterval),
		NotificationTTL:   getEnvDuration(EnvNotificationTTL, DefaultNotificationTTL),

		HistoryLimit:    getEnvNum(EnvHistoryLimit, DefaultHistoryLimit),
		HistoryMaxLimit: getEnvNum(EnvHistoryMaxLimit, DefaultHistoryMaxLimit),

		ProfileUpdateRetries: getEnvNum(EnvProfileUpdateRetries, DefaultProfileUpdateRetries),

		ChannelEventsTopic: getEnvStr(EnvChannelEventsTopic, DefaultChannelEventsTopic),
		NotificationsTopic: getEnvStr(EnvNotificationsTopic, DefaultNotificationsTopic),
		DLQTopic:           getEnvStr(EnvDLQTopic, DefaultDLQTopic),
		InstanceID:         getEnvStr(EnvInstanceID, uuid.NewString()),

		S3Region:       getEnvStr(EnvS3Region, DefaultS3Region),
		S3BaseEndpoint: getEnvStr(EnvS3BaseEndpoint, ""),
		S3AccessKey:    getEnvStr(EnvS3AccessKey, ""),
		S3SecretKey:    getEnvStr(EnvS3SecretKey, ""),
		S3Bucket:       getEnvStr(EnvS3Bucket, DefaultS3Bucket),
		MediaURLTTL:    getEnvDuration(EnvMediaURLTTL, DefaultMediaURLTTL),

		VenueSeedFile: getEnvStr(EnvVenueSeedFile, ""),

		requireJWT: true,

		Log: logger.New(logger.Config{
			Level:     getEnvStr(EnvLogLevel, DefaultLogLevel),
			Format:    logger.JSON,
			AddSource: true,
			Service:   serviceName,
		}),
		Client: client.NewClient(),
	}
}

func (cfg *Config) SetMongo() {
	cfg.Client.SetMongo(cfg.Log, cfg.MongoURI, cfg.MongoConnTimeout)
}

func (cfg *Config) SetVerifier() {
	cfg.Client.SetVerifier(cfg.VerifierURL, cfg.VerifierTimeout)
}

func (cfg *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(cfg.Port); err != nil || port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("Port must be between 1 and 65535, got: %s", cfg.Port))
	}

	if cfg.MongoURI == "" {
		errors = append(errors, "MongoURI cannot be empty")
	} else if len(cfg.MongoURI) < 10 || !regexp.MustCompile(`^mongodb(\+srv)?://`).MatchString(cfg.MongoURI) {
		errors = append(errors, fmt.Sprintf("MongoURI must start with 'mongodb://' or 'mongodb+srv://', got: %s", redactMongoURI(cfg.MongoURI)))
	}
	if cfg.MongoDatabaseName == "" {
		errors = append(errors, "MongoDatabaseName cannot be empty")
	}

	if cfg.requireJWT && cfg.JWTSecret == "" {
		errors = append(errors, "JWTSecret cannot be empty")
	}

	durations := []struct {
		name  string
		value time.Duration
	}{
		{"MongoConnTimeout", cfg.MongoConnTimeout},
		{"RateLimitWindow", cfg.RateLimitWindow},
		{"RequestTimeout", cfg.RequestTimeout},
		{"IdempotencyTTL", cfg.IdempotencyTTL},
		{"ReadTimeout", cfg.ReadTimeout},
		{"WriteTimeout", cfg.WriteTimeout},
		{"IdleTimeout", cfg.IdleTimeout},
		{"ShutdownTimeout", cfg.ShutdownTimeout},
		{"VerifierTimeout", cfg.VerifierTimeout},
		{"AccessSessionTTL", cfg.AccessSessionTTL},
		{"PresenceHeartbeatTimeout", cfg.PresenceHeartbeatTimeout},
		{"PresenceSweepInterval", cfg.PresenceSweepInterval},
		{"NudgePollInterval", cfg.NudgePollInterval},
		{"NotificationTTL", cfg.NotificationTTL},
		{"MediaURLTTL", cfg.MediaURLTTL},
	}
	for _, d := range durations {
		if d.value <= 0 {
			errors = append(errors, fmt.Sprintf("%s must be positive, got: %s", d.name, d.value))
		}
	}

	if cfg.PresenceSweepInterval >= cfg.PresenceHeartbeatTimeout {
		errors = append(errors, fmt.Sprintf("PresenceSweepInterval (%s) must be shorter than PresenceHeartbeatTimeout (%s)", cfg.PresenceSweepInterval, cfg.PresenceHeartbeatTimeout))
	}

	if cfg.RateLimitRequests <= 0 {
		errors = append(errors, fmt.Sprintf("RateLimitRequests must be positive, got: %d", cfg.RateLimitRequests))
	}
	if cfg.MaxRequestSize <= 0 {
		errors = append(errors, fmt.Sprintf("MaxRequestSize must be positive, got: %d", cfg.MaxRequestSize))
	}
	if cfg.ProximityRadiusKm <= 0 {
		errors = append(errors, fmt.Sprintf("ProximityRadiusKm must be positive, got: %.2f", cfg.ProximityRadiusKm))
	}
	if !cfg.KeyLookupPolicy.Valid() {
		errors = append(errors, fmt.Sprintf("KeyLookupPolicy must be one of [%s, %s], got: %s", model.KeyLookupFirstInList, model.KeyLookupLatestCheckOut, cfg.KeyLookupPolicy))
	}
	if cfg.HistoryLimit <= 0 {
		errors = append(errors, fmt.Sprintf("HistoryLimit must be positive, got: %d", cfg.HistoryLimit))
	}
	if cfg.HistoryMaxLimit < cfg.HistoryLimit {
		errors = append(errors, fmt.Sprintf("HistoryMaxLimit (%d) must be >= HistoryLimit (%d)", cfg.HistoryMaxLimit, cfg.HistoryLimit))
	}
	if cfg.ProfileUpdateRetries <= 0 {
		errors = append(errors, fmt.Sprintf("ProfileUpdateRetries must be positive, got: %d", cfg.ProfileUpdateRetries))
	}
	if cfg.ChannelEventsTopic == "" {
		errors = append(errors, "ChannelEventsTopic cannot be empty")
	}
	if cfg.NotificationsTopic == "" {
		errors = append(errors, "NotificationsTopic cannot be empty")
	}
	if cfg.VerifierURL == "" || !regexp.MustCompile(`^https?://`).MatchString(cfg.VerifierURL) {
		errors = append(errors, fmt.Sprintf("VerifierURL must be an http(s) URL, got: %s", cfg.VerifierURL))
	}

	if len(errors) > 0 {
		errMsg := "Configuration validation failed:\n"
		for i, err := range errors {
			errMsg += fmt.Sprintf("  %d. %s\n", i+1, err)
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
		"port", cfg.Port,
		"jwt_secret_set", cfg.JWTSecret != "",
		"rate_limit_requests", cfg.RateLimitRequests,
		"rate_limit_window", cfg.RateLimitWindow,
		"request_timeout", cfg.RequestTimeout,
		"idempotency_ttl", cfg.IdempotencyTTL,
		"max_request_size", cfg.MaxRequestSize,
		"read_timeout", cfg.ReadTimeout,
		"write_timeout", cfg.WriteTimeout,
		"idle_timeout", cfg.IdleTimeout,
		"shutdown_timeout", cfg.ShutdownTimeout,
		"proximity_radius_km", cfg.ProximityRadiusKm,
		"verifier_url", cfg.VerifierURL,
		"verifier_timeout", cfg.VerifierTimeout,
		"verifier_fail_open", cfg.VerifierFailOpen,
		"key_lookup_policy", cfg.KeyLookupPolicy,
		"access_session_ttl", cfg.AccessSessionTTL,
		"presence_heartbeat_timeout", cfg.PresenceHeartbeatTimeout,
		"presence_sweep_interval", cfg.PresenceSweepInterval,
		"nudge_poll_interval", cfg.NudgePollInterval,
		"notification_ttl", cfg.NotificationTTL,
		"history_limit", cfg.HistoryLimit,
		"history_max_limit", cfg.HistoryMaxLimit,
		"channel_events_topic", cfg.ChannelEventsTopic,
		"notifications_topic", cfg.NotificationsTopic,
		"dlq_topic", cfg.DLQTopic,
		"instance_id", cfg.InstanceID,
		"s3_region", cfg.S3Region,
		"s3_endpoint", cfg.S3BaseEndpoint,
		"s3_bucket", cfg.S3Bucket,
		"s3_credentials_set", cfg.S3AccessKey != "" && cfg.S3SecretKey != "",
		"venue_seed_file", cfg.VenueSeedFile,
	)

	if cfg.VerifierFailOpen {
		cfg.Log.Warn("Receipt verifier fails open: an unreachable verifier grants access")
	}
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

func getEnvFloat(key string, fallback float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
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
	cfg.Client.GracefulShutdown(cfg.Log)
}

func NormalizeHistoryLimit(limit, maxLimit int) int {
	if maxLimit <= 0 {
		maxLimit = DefaultHistoryMaxLimit
	}
	if limit <= 0 {
		return min(DefaultHistoryLimit, maxLimit)
	}
	return min(limit, maxLimit)
}
