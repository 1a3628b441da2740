package config

// EnvPrefix is passed to envconfig; individual fields carry explicit names.
const EnvPrefix = "APEXBUILD"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv     = "APEXBUILD_APP_ENV"
	EnvPort       = "APEXBUILD_APP_PORT"
	EnvDBDSN      = "APEXBUILD_DB_DSN"
	EnvDBHost     = "APEXBUILD_DB_HOST"
	EnvDBUser     = "APEXBUILD_DB_USER"
	EnvDBName     = "APEXBUILD_DB_NAME"
	EnvRedisURL   = "APEXBUILD_REDIS_URL"
	EnvJWTSecret  = "APEXBUILD_JWT_SECRET"
	EnvJWTIssuer  = "APEXBUILD_JWT_ISSUER"
	EnvJWTExpMins = "APEXBUILD_JWT_EXPIRATION_MINUTES"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
