package config

import "github.com/caarlos0/env/v11"

// parseEnv overlays SMTP settings from the environment. Variables that are
// not set leave the current values untouched. Malformed values panic.
func parseEnv(config *Config) {
	if err := env.Parse(&config.SMTP); err != nil {
		panic(err)
	}
}
