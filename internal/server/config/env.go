package config

import (
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// envPrefix namespaces the server's environment variables, e.g.
// MEDIAVAULT_DATABASE_DSN, MEDIAVAULT_API_KEY.
const envPrefix = "MEDIAVAULT"

// parseEnv overlays Config with values from the environment. A .env file in
// the working directory is loaded first when present; real environment
// variables win over .env entries (godotenv never overrides existing ones).
func parseEnv(cfg *Config) {
	_ = godotenv.Load()

	if err := envconfig.Process(envPrefix, cfg); err != nil {
		panic(err)
	}
}
