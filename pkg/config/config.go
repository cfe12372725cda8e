package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	GCP          GCPConfig
	GCS          GCSConfig
	Analysis     AnalysisConfig
	Credits      CreditsConfig
	Stripe       StripeConfig
	RateLimit    RateLimitConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"BEATVAULT_APP_ENV" required:"true"`
	Port         string `envconfig:"BEATVAULT_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"BEATVAULT_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"BEATVAULT_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"BEATVAULT_DB_DSN"`
	Driver string `envconfig:"BEATVAULT_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"BEATVAULT_DB_HOST"`
	LegacyPort     int    `envconfig:"BEATVAULT_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"BEATVAULT_DB_USER"`
	LegacyPassword string `envconfig:"BEATVAULT_DB_PASSWORD"`
	LegacyName     string `envconfig:"BEATVAULT_DB_NAME"`
	LegacySSLMode  string `envconfig:"BEATVAULT_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"BEATVAULT_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"BEATVAULT_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"BEATVAULT_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"BEATVAULT_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"BEATVAULT_REDIS_URL" required:"true"`
	Address      string        `envconfig:"BEATVAULT_REDIS_ADDR"`
	Password     string        `envconfig:"BEATVAULT_REDIS_PASSWORD"`
	DB           int           `envconfig:"BEATVAULT_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"BEATVAULT_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"BEATVAULT_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"BEATVAULT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"BEATVAULT_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"BEATVAULT_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"BEATVAULT_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"BEATVAULT_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"BEATVAULT_JWT_EXPIRATION_MINUTES" required:"true"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"BEATVAULT_AUTO_MIGRATE" default:"false"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"BEATVAULT_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"BEATVAULT_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"BEATVAULT_GOOGLE_APPLICATION_CREDENTIALS"`
}

type GCSConfig struct {
	OriginalsBucket   string        `envconfig:"BEATVAULT_GCS_ORIGINALS_BUCKET" required:"true"`
	PreviewsBucket    string        `envconfig:"BEATVAULT_GCS_PREVIEWS_BUCKET" required:"true"`
	UploadURLExpiry   time.Duration `envconfig:"BEATVAULT_GCS_UPLOAD_URL_EXPIRY" default:"60s"`
	DownloadURLExpiry time.Duration `envconfig:"BEATVAULT_GCS_DOWNLOAD_URL_EXPIRY" default:"60s"`
}

type AnalysisConfig struct {
	FFmpegPath        string `envconfig:"BEATVAULT_FFMPEG_PATH" default:"ffmpeg"`
	ScratchDir        string `envconfig:"BEATVAULT_ANALYSIS_SCRATCH_DIR"`
	PreviewMaxSeconds int    `envconfig:"BEATVAULT_PREVIEW_MAX_SECONDS" default:"30"`
	PreviewBitrate    string `envconfig:"BEATVAULT_PREVIEW_BITRATE" default:"128k"`
	BPMWindowSeconds  int    `envconfig:"BEATVAULT_BPM_WINDOW_SECONDS" default:"60"`
}

type CreditsConfig struct {
	PackageSize       int `envconfig:"BEATVAULT_CREDITS_PACKAGE_SIZE" default:"10"`
	PackagePriceCents int `envconfig:"BEATVAULT_CREDITS_PACKAGE_PRICE_CENTS" default:"1000"`
	TrackPriceCents   int `envconfig:"BEATVAULT_TRACK_PRICE_CENTS" default:"500"`
}

type RateLimitConfig struct {
	APIWindow    time.Duration `envconfig:"BEATVAULT_RATE_LIMIT_WINDOW" default:"1m"`
	APIIPLimit   int           `envconfig:"BEATVAULT_RATE_LIMIT_IP" default:"300"`
	APIUserLimit int           `envconfig:"BEATVAULT_RATE_LIMIT_USER" default:"120"`
}

type StripeConfig struct {
	APIKey     string `envconfig:"BEATVAULT_STRIPE_API_KEY"`
	Secret     string `envconfig:"BEATVAULT_STRIPE_SECRET"`
	Env        string `envconfig:"BEATVAULT_STRIPE_ENV" default:"test"`
	SuccessURL string `envconfig:"BEATVAULT_STRIPE_SUCCESS_URL"`
	CancelURL  string `envconfig:"BEATVAULT_STRIPE_CANCEL_URL"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
