// Package config loads the service configuration from the environment, optionally seeded from a
// .env file, and builds the database pools for the three supported adapters.
package config
