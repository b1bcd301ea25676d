package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App        AppConfig
	Store      StoreConfig
	DB         DBConfig
	Airtable   AirtableConfig
	Redis      RedisConfig
	JWT        JWTConfig
	Slack      SlackConfig
	Features   FeatureFlagsConfig
	RateLimit  RateLimitConfig
	Upload     UploadConfig
	GCP        GCPConfig
	PubSub     PubSubConfig
	Hackatime  HackatimeConfig
	Hackathons HackathonsConfig
	CORS       CORSConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Store.validate(); err != nil {
		return nil, err
	}
	switch cfg.Store.Driver {
	case StoreDriverAirtable:
		if err := cfg.Airtable.validate(); err != nil {
			return nil, err
		}
	case StoreDriverPostgres:
		if err := cfg.DB.ensureDSN(); err != nil {
			return nil, err
		}
	case StoreDriverSQLite:
		if cfg.DB.DSN == "" {
			cfg.DB.DSN = defaultSQLiteDSN
		}
	}
	if err := cfg.Upload.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env             string        `envconfig:"JETFUND_APP_ENV" required:"true"`
	Port            string        `envconfig:"JETFUND_APP_PORT" default:"8080"`
	LogLevel        string        `envconfig:"JETFUND_LOG_LEVEL" default:"info"`
	LogWarnStack    bool          `envconfig:"JETFUND_LOG_WARN_STACK" default:"false"`
	LogFormat       string        `envconfig:"JETFUND_LOG_FORMAT" default:"json"`
	ShutdownTimeout time.Duration `envconfig:"JETFUND_SHUTDOWN_TIMEOUT" default:"15s"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// StoreConfig selects the backend behind the record repositories.
type StoreConfig struct {
	Driver string `envconfig:"JETFUND_STORE_DRIVER" default:"airtable"`
}

func (s *StoreConfig) validate() error {
	s.Driver = strings.ToLower(strings.TrimSpace(s.Driver))
	switch s.Driver {
	case StoreDriverAirtable, StoreDriverPostgres, StoreDriverSQLite:
		return nil
	}
	return fmt.Errorf("%s must be one of %s, %s, %s", EnvStoreDriver, StoreDriverAirtable, StoreDriverPostgres, StoreDriverSQLite)
}

// UsesSQL reports whether repositories are backed by gorm.
func (s StoreConfig) UsesSQL() bool {
	return s.Driver == StoreDriverPostgres || s.Driver == StoreDriverSQLite
}

type DBConfig struct {
	DSN         string `envconfig:"JETFUND_DB_DSN"`
	AutoMigrate bool   `envconfig:"JETFUND_DB_AUTO_MIGRATE" default:"false"`

	LegacyHost     string `envconfig:"JETFUND_DB_HOST"`
	LegacyPort     int    `envconfig:"JETFUND_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"JETFUND_DB_USER"`
	LegacyPassword string `envconfig:"JETFUND_DB_PASSWORD"`
	LegacyName     string `envconfig:"JETFUND_DB_NAME"`
	LegacySSLMode  string `envconfig:"JETFUND_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"JETFUND_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"JETFUND_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"JETFUND_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"JETFUND_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type AirtableConfig struct {
	APIKey         string        `envconfig:"JETFUND_AIRTABLE_API_KEY"`
	BaseID         string        `envconfig:"JETFUND_AIRTABLE_BASE_ID"`
	BaseURL        string        `envconfig:"JETFUND_AIRTABLE_BASE_URL" default:"https://api.airtable.com/v0"`
	UsersTable     string        `envconfig:"JETFUND_AIRTABLE_USERS_TABLE" default:"Users"`
	ProjectsTable  string        `envconfig:"JETFUND_AIRTABLE_PROJECTS_TABLE" default:"Projects"`
	SessionsTable  string        `envconfig:"JETFUND_AIRTABLE_SESSIONS_TABLE" default:"Sessions"`
	View           string        `envconfig:"JETFUND_AIRTABLE_VIEW" default:"Grid view"`
	RequestsPerSec float64       `envconfig:"JETFUND_AIRTABLE_REQUESTS_PER_SEC" default:"5"`
	Timeout        time.Duration `envconfig:"JETFUND_AIRTABLE_TIMEOUT" default:"10s"`
}

func (a AirtableConfig) validate() error {
	missing := []string{}
	if strings.TrimSpace(a.APIKey) == "" {
		missing = append(missing, EnvAirtableAPIKey)
	}
	if strings.TrimSpace(a.BaseID) == "" {
		missing = append(missing, EnvAirtableBaseID)
	}
	if len(missing) > 0 {
		return fmt.Errorf("airtable store requires %s", strings.Join(missing, ", "))
	}
	return nil
}

type RedisConfig struct {
	URL          string        `envconfig:"JETFUND_REDIS_URL"`
	Address      string        `envconfig:"JETFUND_REDIS_ADDR"`
	Password     string        `envconfig:"JETFUND_REDIS_PASSWORD"`
	DB           int           `envconfig:"JETFUND_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"JETFUND_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"JETFUND_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"JETFUND_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"JETFUND_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"JETFUND_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"JETFUND_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"JETFUND_JWT_ISSUER" default:"jetfund"`
	ExpirationMinutes      int    `envconfig:"JETFUND_JWT_EXPIRATION_MINUTES" default:"60"`
	RefreshTokenTTLMinutes int    `envconfig:"JETFUND_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

// AccessTokenTTL returns the access token lifetime.
func (j JWTConfig) AccessTokenTTL() time.Duration {
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

type SlackConfig struct {
	ClientID     string        `envconfig:"JETFUND_SLACK_CLIENT_ID" required:"true"`
	ClientSecret string        `envconfig:"JETFUND_SLACK_CLIENT_SECRET" required:"true"`
	RedirectURL  string        `envconfig:"JETFUND_SLACK_REDIRECT_URL" required:"true"`
	AuthURL      string        `envconfig:"JETFUND_SLACK_AUTH_URL" default:"https://slack.com/openid/connect/authorize"`
	TokenURL     string        `envconfig:"JETFUND_SLACK_TOKEN_URL" default:"https://slack.com/api/openid.connect.token"`
	UserInfoURL  string        `envconfig:"JETFUND_SLACK_USERINFO_URL" default:"https://slack.com/api/openid.connect.userInfo"`
	TeamID       string        `envconfig:"JETFUND_SLACK_TEAM_ID"`
	StateTTL     time.Duration `envconfig:"JETFUND_SLACK_STATE_TTL" default:"10m"`
}

type FeatureFlagsConfig struct {
	SessionStartGuard    bool          `envconfig:"JETFUND_SESSION_START_GUARD" default:"true"`
	SessionStartGuardTTL time.Duration `envconfig:"JETFUND_SESSION_START_GUARD_TTL" default:"10s"`
	ProjectAllowReopen   bool          `envconfig:"JETFUND_PROJECT_ALLOW_REOPEN" default:"false"`
}

type RateLimitConfig struct {
	GeneralPerMinute int           `envconfig:"JETFUND_RATE_LIMIT_GENERAL_PER_MINUTE" default:"120"`
	GeneralBurst     int           `envconfig:"JETFUND_RATE_LIMIT_GENERAL_BURST" default:"60"`
	UploadPerMinute  int           `envconfig:"JETFUND_RATE_LIMIT_UPLOAD_PER_MINUTE" default:"10"`
	UploadBurst      int           `envconfig:"JETFUND_RATE_LIMIT_UPLOAD_BURST" default:"5"`
	CleanupInterval  time.Duration `envconfig:"JETFUND_RATE_LIMIT_CLEANUP_INTERVAL" default:"5m"`
	AuthWindow       time.Duration `envconfig:"JETFUND_AUTH_RATE_LIMIT_WINDOW" default:"1m"`
	AuthIPLimit      int           `envconfig:"JETFUND_AUTH_RATE_LIMIT_IP_LIMIT" default:"30"`
}

type UploadConfig struct {
	FirstHop    string        `envconfig:"JETFUND_UPLOAD_FIRST_HOP" default:"bucky"`
	MaxUploadMB int           `envconfig:"JETFUND_UPLOAD_MAX_MB" default:"10"`
	Timeout     time.Duration `envconfig:"JETFUND_UPLOAD_TIMEOUT" default:"30s"`
	BuckyURL    string        `envconfig:"JETFUND_UPLOAD_BUCKY_URL" default:"https://bucky.hackclub.com/"`
	CDNURL      string        `envconfig:"JETFUND_UPLOAD_CDN_URL" default:"https://cdn.hackclub.com/api/v3/new"`
	CDNToken    string        `envconfig:"JETFUND_UPLOAD_CDN_TOKEN" default:"beans"`
	GCSBucket   string        `envconfig:"JETFUND_UPLOAD_GCS_BUCKET"`
	S3Bucket    string        `envconfig:"JETFUND_UPLOAD_S3_BUCKET"`
	S3Region    string        `envconfig:"JETFUND_UPLOAD_S3_REGION" default:"us-east-1"`
	S3Endpoint  string        `envconfig:"JETFUND_UPLOAD_S3_ENDPOINT"`
	S3PublicURL string        `envconfig:"JETFUND_UPLOAD_S3_PUBLIC_URL"`
	S3AccessKey string        `envconfig:"JETFUND_UPLOAD_S3_ACCESS_KEY_ID"`
	S3SecretKey string        `envconfig:"JETFUND_UPLOAD_S3_SECRET_ACCESS_KEY"`
	S3PathStyle bool          `envconfig:"JETFUND_UPLOAD_S3_FORCE_PATH_STYLE" default:"false"`
}

// MaxUploadBytes returns the multipart size cap.
func (u UploadConfig) MaxUploadBytes() int64 {
	if u.MaxUploadMB <= 0 {
		return 10 << 20
	}
	return int64(u.MaxUploadMB) << 20
}

func (u *UploadConfig) validate() error {
	u.FirstHop = strings.ToLower(strings.TrimSpace(u.FirstHop))
	switch u.FirstHop {
	case UploadHopBucky:
		return nil
	case UploadHopGCS:
		if u.GCSBucket == "" {
			return fmt.Errorf("%s is required when %s=%s", EnvUploadGCSBucket, EnvUploadFirstHop, UploadHopGCS)
		}
		return nil
	case UploadHopS3:
		if u.S3Bucket == "" {
			return fmt.Errorf("%s is required when %s=%s", EnvUploadS3Bucket, EnvUploadFirstHop, UploadHopS3)
		}
		return nil
	}
	return fmt.Errorf("%s must be one of %s, %s, %s", EnvUploadFirstHop, UploadHopBucky, UploadHopGCS, UploadHopS3)
}

type GCPConfig struct {
	ProjectID       string `envconfig:"JETFUND_GCP_PROJECT_ID"`
	CredentialsJSON string `envconfig:"JETFUND_GCP_CREDENTIALS_JSON"`
}

type PubSubConfig struct {
	EventsTopic string `envconfig:"JETFUND_PUBSUB_EVENTS_TOPIC"`
}

// Enabled reports whether domain events should be published.
func (p PubSubConfig) Enabled() bool {
	return strings.TrimSpace(p.EventsTopic) != ""
}

type HackatimeConfig struct {
	BaseURL string        `envconfig:"JETFUND_HACKATIME_BASE_URL" default:"https://hackatime.hackclub.com/api/v1"`
	Timeout time.Duration `envconfig:"JETFUND_HACKATIME_TIMEOUT" default:"10s"`
}

type HackathonsConfig struct {
	URL      string        `envconfig:"JETFUND_HACKATHONS_URL" default:"https://hackathons.hackclub.com/api/events/upcoming"`
	CacheTTL time.Duration `envconfig:"JETFUND_HACKATHONS_CACHE_TTL" default:"10m"`
	Timeout  time.Duration `envconfig:"JETFUND_HACKATHONS_TIMEOUT" default:"10s"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"JETFUND_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
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
