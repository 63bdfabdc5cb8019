/*
Package config loads the careline configuration with precedence
defaults -> YAML file -> environment variables.

	cfg, err := config.NewLoader().
	    WithConfigPath("careline.yaml").
	    WithEnvPrefix("CARELINE").
	    Load()

Environment keys follow the struct env tags, joined by underscores:
CARELINE_SERVER_HTTP_PORT, CARELINE_REDIS_ADDR, and so on. Watcher
optionally reloads the file on change.
*/
package config
