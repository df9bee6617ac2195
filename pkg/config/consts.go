package config

const (
	// EnvPrefix is passed to envconfig; every variable also carries the
	// SIKARS_ prefix explicitly in its struct tag.
	EnvPrefix = "SIKARS"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "SIKARS_DB_DSN"
	EnvDBHost = "SIKARS_DB_HOST"
	EnvDBUser = "SIKARS_DB_USER"
	EnvDBName = "SIKARS_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
