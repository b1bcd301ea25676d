package config

const EnvPrefix = "JETFUND"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	StoreDriverAirtable = "airtable"
	StoreDriverPostgres = "postgres"
	StoreDriverSQLite   = "sqlite"
)

const (
	UploadHopBucky = "bucky"
	UploadHopGCS   = "gcs"
	UploadHopS3    = "s3"
)

const defaultSQLiteDSN = "file:jetfund.db?_foreign_keys=on"

const (
	EnvAppEnv            = "JETFUND_APP_ENV"
	EnvPort              = "JETFUND_APP_PORT"
	EnvStoreDriver       = "JETFUND_STORE_DRIVER"
	EnvDBDSN             = "JETFUND_DB_DSN"
	EnvDBHost            = "JETFUND_DB_HOST"
	EnvDBUser            = "JETFUND_DB_USER"
	EnvDBName            = "JETFUND_DB_NAME"
	EnvAirtableAPIKey    = "JETFUND_AIRTABLE_API_KEY"
	EnvAirtableBaseID    = "JETFUND_AIRTABLE_BASE_ID"
	EnvRedisURL          = "JETFUND_REDIS_URL"
	EnvJWTSecret         = "JETFUND_JWT_SECRET"
	EnvJWTIssuer         = "JETFUND_JWT_ISSUER"
	EnvJWTExpMins        = "JETFUND_JWT_EXPIRATION_MINUTES"
	EnvSlackClientID     = "JETFUND_SLACK_CLIENT_ID"
	EnvSlackClientSecret = "JETFUND_SLACK_CLIENT_SECRET"
	EnvSlackRedirectURL  = "JETFUND_SLACK_REDIRECT_URL"
	EnvProjectReopen     = "JETFUND_PROJECT_ALLOW_REOPEN"
	EnvUploadFirstHop    = "JETFUND_UPLOAD_FIRST_HOP"
	EnvUploadGCSBucket   = "JETFUND_UPLOAD_GCS_BUCKET"
	EnvUploadS3Bucket    = "JETFUND_UPLOAD_S3_BUCKET"
	EnvCORSOrigins       = "JETFUND_CORS_ALLOWED_ORIGINS"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
