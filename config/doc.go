// Package config loads linkvault configuration.
//
// Values come from a YAML file, an optional .env file, and LINKVAULT_*
// environment variables, in increasing order of precedence. Nested keys map
// to upper-case, underscore-joined names:
//
//	database.dsn          -> LINKVAULT_DATABASE_DSN
//	password.bcrypt_cost  -> LINKVAULT_PASSWORD_BCRYPT_COST
//
// # Usage
//
//	cfg, err := config.Load("credctl", config.WithConfigFile("config.yml"))
package config
