package config

// EnvPrefix is the envconfig prefix shared by every SupplySync binary.
const EnvPrefix = "SUPPLYSYNC"

const (
	AppEnvDev  = "development"
	AppEnvProd = "production"
)

const (
	EnvDBDSN  = "SUPPLYSYNC_DB_DSN"
	EnvDBHost = "SUPPLYSYNC_DB_HOST"
	EnvDBUser = "SUPPLYSYNC_DB_USER"
	EnvDBName = "SUPPLYSYNC_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
