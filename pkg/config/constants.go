package config

const (
	EnvPrefix = "posterm"

	AppEnvDev  = "development"
	AppEnvProd = "production"

	EnvAppEnv         = "POSTERM_APP_ENV"
	EnvPort           = "POSTERM_APP_PORT"
	EnvBackendBaseURL = "POSTERM_BACKEND_BASE_URL"
	EnvRedisURL       = "POSTERM_REDIS_URL"
)
