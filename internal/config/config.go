package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Mail failure policies applied when the confirmation email of a new account cannot be sent.
const (
	MailFailurePolicyLog      = "log"
	MailFailurePolicyFlag     = "flag"
	MailFailurePolicyRollback = "rollback"
)

type Config struct {
	Env                      string
	HTTPPort                 string
	HTTPRequestTimeout       time.Duration
	HTTPExposeInternalErrors bool

	DatabaseURL        string
	DBMaxOpenConns     int
	DBMaxIdleConns     int
	DBConnMaxLifetime  time.Duration
	DBStatementTimeout time.Duration

	JWTSecret          string
	APIBackURL         string
	APIFrontURL        string
	AccessTokenTTL     time.Duration
	RefreshTokenTTL    time.Duration
	RefreshTokenPepper string
	CookieDomain       string
	CookieSecure       bool
	CORSAllowedOrigins []string

	AuthConfirmTokenTTL       time.Duration
	AuthResetTokenTTL         time.Duration
	AuthRequireConfirmedEmail bool
	AuthExposeResetToken      bool
	AuthPasswordMinLength     int
	AuthAbuseFreeAttempts     int
	AuthAbuseBaseDelay        time.Duration
	AuthAbuseMaxDelay         time.Duration
	AuthAbuseResetWindow      time.Duration

	SMTPHost          string
	SMTPPort          int
	SMTPLogin         string
	SMTPKey           string
	SMTPSSL           bool
	MailFrom          string
	MailSendTimeout   time.Duration
	MailFailurePolicy string

	SuperAdminEmail    string
	SuperAdminPassword string

	RoleSuperAdminID  uuid.UUID
	RoleAdminID       uuid.UUID
	RoleTeacherID     uuid.UUID
	RoleStudentID     uuid.UUID
	GenderMaleID      uuid.UUID
	GenderFemaleID    uuid.UUID
	GenderOtherID     uuid.UUID
	StatusPendingID   uuid.UUID
	StatusConfirmedID uuid.UUID
	StatusBannedID    uuid.UUID

	AuthRateLimitPerMin    int
	APIRateLimitPerMin     int
	RateLimitRedisFailOpen bool

	RedisEnabled  bool
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string

	LookupCacheEnabled bool
	LookupCacheTTL     time.Duration

	StorageEnabled bool
	MinIOEndpoint  string
	MinIOAccessKey string
	MinIOSecretKey string
	MinIOBucket    string
	MinIOUseSSL    bool
	AvatarMaxBytes int64

	ReadinessProbeTimeout        time.Duration
	ServerStartGracePeriod       time.Duration
	ShutdownTimeout              time.Duration
	ShutdownHTTPDrainTimeout     time.Duration
	ShutdownObservabilityTimeout time.Duration

	OTELServiceName           string
	OTELEnvironment           string
	OTELExporterOTLPEndpoint  string
	OTELExporterOTLPInsecure  bool
	OTELMetricsExportInterval time.Duration
	OTELTraceSamplingRatio    float64
	OTELMetricsEnabled        bool
	OTELTracingEnabled        bool
	OTELLogsEnabled           bool
	OTELLogLevel              string
}

// Well-known identifiers of the seeded reference rows.
const (
	DefaultRoleSuperAdminID = "bde5556b-562d-431f-9ff9-d31a5f5cb8c5"
	DefaultRoleAdminID      = "4a5eaf2f-0496-4035-a4b7-9210da39501c"
	DefaultRoleTeacherID    = "87a0a5ed-c7bb-4394-a163-7ed7560b3703"
	DefaultRoleStudentID    = "87a0a5ed-c7bb-4394-a163-7ed7560b4a01"
)

func Load() (*Config, error) {
	env := getEnv("APP_ENV", "development")
	localLike := isLocalLikeEnv(env)

	cfg := &Config{
		Env:                      env,
		HTTPPort:                 getEnv("HTTP_PORT", "8080"),
		HTTPExposeInternalErrors: getEnvBool("HTTP_EXPOSE_INTERNAL_ERRORS", localLike),
		DatabaseURL:              os.Getenv("DATABASE_URL"),
		DBMaxOpenConns:           getEnvInt("DB_MAX_OPEN_CONNS", 20),
		DBMaxIdleConns:           getEnvInt("DB_MAX_IDLE_CONNS", 5),

		JWTSecret:          os.Getenv("JWT_KEY"),
		APIBackURL:         strings.TrimRight(getEnv("API_BACK_URL", "http://localhost:8080"), "/"),
		APIFrontURL:        strings.TrimRight(getEnv("API_FRONT_URL", "http://localhost:3000"), "/"),
		AccessTokenTTL:     time.Duration(getEnvInt("TOKEN_VALIDITY_MINUTES", 30)) * time.Minute,
		RefreshTokenTTL:    time.Duration(getEnvInt("COOKIES_VALIDITY_DAYS", 7)) * 24 * time.Hour,
		RefreshTokenPepper: os.Getenv("REFRESH_TOKEN_PEPPER"),
		CookieDomain:       os.Getenv("COOKIE_DOMAIN"),
		CookieSecure:       getEnvBool("COOKIE_SECURE", true),
		CORSAllowedOrigins: splitCSV(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000")),

		AuthRequireConfirmedEmail: getEnvBool("AUTH_REQUIRE_CONFIRMED_EMAIL", false),
		AuthExposeResetToken:      getEnvBool("AUTH_EXPOSE_RESET_TOKEN", localLike),
		AuthPasswordMinLength:     getEnvInt("AUTH_PASSWORD_MIN_LENGTH", 8),
		AuthAbuseFreeAttempts:     getEnvInt("AUTH_ABUSE_FREE_ATTEMPTS", 5),

		SMTPHost:          os.Getenv("SMTP_HOST"),
		SMTPPort:          getEnvInt("SMTP_PORT", 587),
		SMTPLogin:         os.Getenv("SMTP_LOGIN"),
		SMTPKey:           os.Getenv("SMTP_KEY"),
		SMTPSSL:           getEnvBool("SMTP_SSL", false),
		MailFrom:          getEnv("DO_NO_REPLY_MAIL", "do-not-reply@booking.local"),
		MailFailurePolicy: strings.ToLower(getEnv("MAIL_FAILURE_POLICY", MailFailurePolicyLog)),

		SuperAdminEmail:    strings.TrimSpace(strings.ToLower(getEnv("ADMIN_EMAIL", "super.admin@booking.local"))),
		SuperAdminPassword: getEnv("ADMIN_PASSWORD", "SuperPassword123!"),

		AuthRateLimitPerMin: getEnvInt("AUTH_RATE_LIMIT_PER_MIN", 30),
		APIRateLimitPerMin:  getEnvInt("API_RATE_LIMIT_PER_MIN", 120),

		// A redis outage lets API traffic through but keeps auth endpoints closed.
		RateLimitRedisFailOpen: getEnvBool("RATE_LIMIT_REDIS_FAIL_OPEN", true),

		RedisEnabled:  getEnvBool("REDIS_ENABLED", false),
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		RedisPrefix:   getEnv("REDIS_PREFIX", "booking"),

		LookupCacheEnabled: getEnvBool("LOOKUP_CACHE_ENABLED", true),

		StorageEnabled: getEnvBool("STORAGE_ENABLED", false),
		MinIOEndpoint:  getEnv("MINIO_ENDPOINT", "localhost:9000"),
		MinIOAccessKey: os.Getenv("MINIO_ACCESS_KEY"),
		MinIOSecretKey: os.Getenv("MINIO_SECRET_KEY"),
		MinIOBucket:    getEnv("MINIO_BUCKET", "avatars"),
		MinIOUseSSL:    getEnvBool("MINIO_USE_SSL", false),
		AvatarMaxBytes: int64(getEnvInt("AVATAR_MAX_BYTES", 2<<20)),

		OTELServiceName:          getEnv("OTEL_SERVICE_NAME", "booking-scheduler-backend"),
		OTELEnvironment:          getEnv("OTEL_ENVIRONMENT", env),
		OTELExporterOTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		OTELExporterOTLPInsecure: getEnvBool("OTEL_EXPORTER_OTLP_INSECURE", true),
		OTELTraceSamplingRatio:   getEnvFloat("OTEL_TRACE_SAMPLING_RATIO", 1.0),
		OTELMetricsEnabled:       getEnvBool("OTEL_METRICS_ENABLED", !localLike),
		OTELTracingEnabled:       getEnvBool("OTEL_TRACING_ENABLED", !localLike),
		OTELLogsEnabled:          getEnvBool("OTEL_LOGS_ENABLED", !localLike),
		OTELLogLevel:             strings.ToLower(getEnv("OTEL_LOG_LEVEL", "info")),
	}
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = buildDatabaseURL()
	}

	durations := []struct {
		key string
		def string
		dst *time.Duration
	}{
		{"HTTP_REQUEST_TIMEOUT", "15s", &cfg.HTTPRequestTimeout},
		{"DB_CONN_MAX_LIFETIME", "30m", &cfg.DBConnMaxLifetime},
		{"DB_STATEMENT_TIMEOUT", "5s", &cfg.DBStatementTimeout},
		{"AUTH_CONFIRM_TOKEN_TTL", "48h", &cfg.AuthConfirmTokenTTL},
		{"AUTH_RESET_TOKEN_TTL", "1h", &cfg.AuthResetTokenTTL},
		{"AUTH_ABUSE_BASE_DELAY", "2s", &cfg.AuthAbuseBaseDelay},
		{"AUTH_ABUSE_MAX_DELAY", "5m", &cfg.AuthAbuseMaxDelay},
		{"AUTH_ABUSE_RESET_WINDOW", "30m", &cfg.AuthAbuseResetWindow},
		{"MAIL_SEND_TIMEOUT", "10s", &cfg.MailSendTimeout},
		{"LOOKUP_CACHE_TTL", "5m", &cfg.LookupCacheTTL},
		{"READINESS_PROBE_TIMEOUT", "1s", &cfg.ReadinessProbeTimeout},
		{"SERVER_START_GRACE_PERIOD", "0s", &cfg.ServerStartGracePeriod},
		{"SHUTDOWN_TIMEOUT", "20s", &cfg.ShutdownTimeout},
		{"SHUTDOWN_HTTP_DRAIN_TIMEOUT", "10s", &cfg.ShutdownHTTPDrainTimeout},
		{"SHUTDOWN_OBSERVABILITY_TIMEOUT", "8s", &cfg.ShutdownObservabilityTimeout},
		{"OTEL_METRICS_EXPORT_INTERVAL", "10s", &cfg.OTELMetricsExportInterval},
	}
	for _, d := range durations {
		v, err := time.ParseDuration(getEnv(d.key, d.def))
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", d.key, err)
		}
		*d.dst = v
	}

	ids := []struct {
		key string
		def string
		dst *uuid.UUID
	}{
		{"ROLE_SUPER_ADMIN", DefaultRoleSuperAdminID, &cfg.RoleSuperAdminID},
		{"ROLE_ADMIN", DefaultRoleAdminID, &cfg.RoleAdminID},
		{"ROLE_TEACHER", DefaultRoleTeacherID, &cfg.RoleTeacherID},
		{"ROLE_STUDENT", DefaultRoleStudentID, &cfg.RoleStudentID},
		{"GENDER_MALE", "bde5556b-562d-431f-9ff9-d31a5f5cb8c5", &cfg.GenderMaleID},
		{"GENDER_FEMALE", "4a5eaf2f-0496-4035-a4b7-9210da39501c", &cfg.GenderFemaleID},
		{"GENDER_OTHER", "87a0a5ed-c7bb-4394-a163-7ed7560b3703", &cfg.GenderOtherID},
		{"STATUS_PENDING", "bde5556b-562d-431f-9ff9-d31a5f5cb8c5", &cfg.StatusPendingID},
		{"STATUS_CONFIRMED", "4a5eaf2f-0496-4035-a4b7-9210da39501c", &cfg.StatusConfirmedID},
		{"STATUS_BANNED", "87a0a5ed-c7bb-4394-a163-7ed7560b3703", &cfg.StatusBannedID},
	}
	for _, id := range ids {
		v, err := uuid.Parse(getEnv(id.key, id.def))
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", id.key, err)
		}
		*id.dst = v
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []string
	if c.DatabaseURL == "" {
		errs = append(errs, "DATABASE_URL or DB_HOST is required")
	}
	if len(c.JWTSecret) < 32 {
		errs = append(errs, "JWT_KEY must be at least 32 chars")
	}
	if !isAbsoluteURL(c.APIBackURL) {
		errs = append(errs, "API_BACK_URL must be an absolute URL")
	}
	if !isAbsoluteURL(c.APIFrontURL) {
		errs = append(errs, "API_FRONT_URL must be an absolute URL")
	}
	if c.AccessTokenTTL <= 0 || c.AccessTokenTTL > 24*time.Hour {
		errs = append(errs, "TOKEN_VALIDITY_MINUTES must be between 1 and 1440")
	}
	if c.RefreshTokenTTL <= 0 || c.RefreshTokenTTL > 90*24*time.Hour {
		errs = append(errs, "COOKIES_VALIDITY_DAYS must be between 1 and 90")
	}
	if c.AuthConfirmTokenTTL <= 0 {
		errs = append(errs, "AUTH_CONFIRM_TOKEN_TTL must be > 0")
	}
	if c.AuthResetTokenTTL <= 0 {
		errs = append(errs, "AUTH_RESET_TOKEN_TTL must be > 0")
	}
	if c.AuthPasswordMinLength < 8 {
		errs = append(errs, "AUTH_PASSWORD_MIN_LENGTH must be >= 8")
	}
	if !isValidMailFailurePolicy(c.MailFailurePolicy) {
		errs = append(errs, "MAIL_FAILURE_POLICY must be one of log, flag, rollback")
	}
	if c.MailSendTimeout <= 0 {
		errs = append(errs, "MAIL_SEND_TIMEOUT must be > 0")
	}
	if c.SMTPHost != "" && (c.SMTPPort <= 0 || c.SMTPPort > 65535) {
		errs = append(errs, "SMTP_PORT must be a valid port")
	}
	if c.SuperAdminEmail == "" || c.SuperAdminPassword == "" {
		errs = append(errs, "ADMIN_EMAIL and ADMIN_PASSWORD are required")
	}
	if c.AuthRateLimitPerMin <= 0 {
		errs = append(errs, "AUTH_RATE_LIMIT_PER_MIN must be > 0")
	}
	if c.APIRateLimitPerMin <= 0 {
		errs = append(errs, "API_RATE_LIMIT_PER_MIN must be > 0")
	}
	if c.RedisEnabled && c.RedisAddr == "" {
		errs = append(errs, "REDIS_ADDR is required when REDIS_ENABLED=true")
	}
	if c.StorageEnabled && (c.MinIOAccessKey == "" || c.MinIOSecretKey == "") {
		errs = append(errs, "MINIO_ACCESS_KEY and MINIO_SECRET_KEY are required when STORAGE_ENABLED=true")
	}
	if c.HTTPRequestTimeout <= 0 {
		errs = append(errs, "HTTP_REQUEST_TIMEOUT must be > 0")
	}
	if c.ReadinessProbeTimeout <= 0 {
		errs = append(errs, "READINESS_PROBE_TIMEOUT must be > 0")
	}
	if c.ShutdownTimeout <= 0 {
		errs = append(errs, "SHUTDOWN_TIMEOUT must be > 0")
	}
	if c.ShutdownHTTPDrainTimeout+c.ShutdownObservabilityTimeout > c.ShutdownTimeout {
		errs = append(errs, "SHUTDOWN_HTTP_DRAIN_TIMEOUT + SHUTDOWN_OBSERVABILITY_TIMEOUT must not exceed SHUTDOWN_TIMEOUT")
	}
	if !isLocalLikeEnv(c.Env) {
		if !c.CookieSecure {
			errs = append(errs, "COOKIE_SECURE must be true outside local environments")
		}
		if len(c.RefreshTokenPepper) < 16 {
			errs = append(errs, "REFRESH_TOKEN_PEPPER must be at least 16 chars outside local environments")
		}
		if c.AuthExposeResetToken {
			errs = append(errs, "AUTH_EXPOSE_RESET_TOKEN must be false outside local environments")
		}
		if c.SuperAdminPassword == "SuperPassword123!" {
			errs = append(errs, "ADMIN_PASSWORD must be changed outside local environments")
		}
	}
	if (c.OTELMetricsEnabled || c.OTELTracingEnabled || c.OTELLogsEnabled) && c.OTELExporterOTLPEndpoint == "" {
		errs = append(errs, "OTEL_EXPORTER_OTLP_ENDPOINT is required when OTel is enabled")
	}
	if c.OTELTraceSamplingRatio < 0 || c.OTELTraceSamplingRatio > 1 {
		errs = append(errs, "OTEL_TRACE_SAMPLING_RATIO must be between 0 and 1")
	}
	if c.OTELMetricsExportInterval <= 0 {
		errs = append(errs, "OTEL_METRICS_EXPORT_INTERVAL must be > 0")
	}
	if !isValidLogLevel(c.OTELLogLevel) {
		errs = append(errs, "OTEL_LOG_LEVEL must be one of debug, info, warn, error")
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

// IsLocalLike reports whether the configured environment is a developer or test one.
func (c *Config) IsLocalLike() bool {
	return isLocalLikeEnv(c.Env)
}

func buildDatabaseURL() string {
	host := os.Getenv("DB_HOST")
	if host == "" {
		return ""
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(getEnv("DB_USER", "postgres"), os.Getenv("DB_PASSWORD")),
		Host:   host + ":" + getEnv("DB_PORT", "5432"),
		Path:   "/" + getEnv("DB_NAME", "mainDB"),
	}
	q := u.Query()
	q.Set("sslmode", getEnv("DB_SSLMODE", "disable"))
	u.RawQuery = q.Encode()
	return u.String()
}

func isAbsoluteURL(raw string) bool {
	u, err := url.Parse(raw)
	return err == nil && u.Scheme != "" && u.Host != ""
}

func isValidMailFailurePolicy(v string) bool {
	switch v {
	case MailFailurePolicyLog, MailFailurePolicyFlag, MailFailurePolicyRollback:
		return true
	default:
		return false
	}
}

func isLocalLikeEnv(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "development", "dev", "local", "test":
		return true
	default:
		return false
	}
}

func isValidLogLevel(v string) bool {
	switch strings.ToLower(v) {
	case "debug", "info", "warn", "error":
		return true
	default:
		return false
	}
}

func getEnv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func getEnvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getEnvFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		trim := strings.TrimSpace(p)
		if trim != "" {
			out = append(out, trim)
		}
	}
	return out
}
