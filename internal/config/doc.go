// Package config loads the loader's configuration into an explicit Config
// value that is passed to the components that need it.
//
// # Configuration Sources
//
// Configuration is assembled from the following sources, later ones winning:
//
//	1. Default values
//	2. An optional YAML file (WEATHERISAFOG_CONFIG_FILE, or ./config.yaml)
//	3. Environment variables, including those loaded from ./.env
//
// # Environment Variables
//
// Database settings use the DB_ prefix:
//
//	DB_DRIVER=postgres      # or sqlite, in which case DB_NAME is a file path
//	DB_NAME=market
//	DB_USER=loader
//	DB_PASSWORD=secret
//	DB_HOST=localhost
//	DB_PORT=5432
//	DB_SSLMODE=disable
//
// Everything else uses WEATHERISAFOG_:
//
//	WEATHERISAFOG_STOCK_FILE=stock_data.xlsx
//	WEATHERISAFOG_WEATHER_FILE=weather_data.xlsx
//	WEATHERISAFOG_LOGGING_LEVEL=info
//	WEATHERISAFOG_LOGGING_OUTPUT=console
//	WEATHERISAFOG_TELEMETRY_TRACES=none
//	WEATHERISAFOG_TELEMETRY_METRICS_FILE=/var/lib/node_exporter/weatherisafog.prom
//
// # Validation
//
// Load validates struct tags and returns a single CONFIG error listing every
// invalid field.
package config
