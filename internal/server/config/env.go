package config

import (
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/dmitrijs2005/useradmin/internal/flagx"
)

// parseEnv overlays environment variables onto config. A dotenv file given
// with -e/-env must exist; otherwise ./.env is loaded when present. Variables
// already set in the process environment win over the file.
func parseEnv(config *Config) {
	if path := flagx.EnvFileFlags(); path != "" {
		if err := godotenv.Load(path); err != nil {
			panic(err)
		}
	} else {
		_ = godotenv.Load()
	}

	if err := env.Parse(config); err != nil {
		panic(err)
	}
}
