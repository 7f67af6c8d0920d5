// Package config loads configuration structs from config.yml, .env files
// and environment variables using Viper.
//
// Sources are layered in this order, later ones winning:
//
//  1. config.yml (explicit path or found near the working directory)
//  2. process environment, bound to nested keys (POSTGRES_IMAGE -> postgres.image)
//  3. the .env file, loaded into the process environment
//  4. explicit overrides passed with WithOverrides
//
// Every config struct follows the same contract: mapstructure tags,
// ApplyDefaults() and Validate().
package config
