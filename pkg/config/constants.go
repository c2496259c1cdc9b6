package config

const (
	// EnvPrefix is passed to envconfig; the struct tags carry the full
	// TIENDA_ names so the prefix only matters for untagged fields.
	EnvPrefix = ""

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv   = "TIENDA_APP_ENV"
	EnvPort     = "TIENDA_APP_PORT"
	EnvRedisURL = "TIENDA_REDIS_URL"

	EnvDBDSN  = "TIENDA_DB_DSN"
	EnvDBHost = "TIENDA_DB_HOST"
	EnvDBUser = "TIENDA_DB_USER"
	EnvDBName = "TIENDA_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
