package config

const EnvPrefix = "beatvault"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

// Env var names referenced outside struct tags (tests, error messages).
const (
	EnvAppEnv            = "BEATVAULT_APP_ENV"
	EnvPort              = "BEATVAULT_APP_PORT"
	EnvDBDSN             = "BEATVAULT_DB_DSN"
	EnvDBHost            = "BEATVAULT_DB_HOST"
	EnvDBUser            = "BEATVAULT_DB_USER"
	EnvDBName            = "BEATVAULT_DB_NAME"
	EnvRedisURL          = "BEATVAULT_REDIS_URL"
	EnvJWTSecret         = "BEATVAULT_JWT_SECRET"
	EnvJWTIssuer         = "BEATVAULT_JWT_ISSUER"
	EnvJWTExpMins        = "BEATVAULT_JWT_EXPIRATION_MINUTES"
	EnvGCPProjectID      = "BEATVAULT_GCP_PROJECT_ID"
	EnvGCSOriginals      = "BEATVAULT_GCS_ORIGINALS_BUCKET"
	EnvGCSPreviews       = "BEATVAULT_GCS_PREVIEWS_BUCKET"
	EnvGCSUploadExpiry   = "BEATVAULT_GCS_UPLOAD_URL_EXPIRY"
	EnvGCSDownloadExpiry = "BEATVAULT_GCS_DOWNLOAD_URL_EXPIRY"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
