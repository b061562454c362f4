// Package config handles application configuration loading and validation.
//
// Configuration is read from a YAML file, overridden from the environment
// (optionally seeded from a .env file) and validated using struct tags. Each
// entry under systems describes one transit network: where its station
// topology comes from, which GTFS-RT feeds carry its arrivals and alerts, and
// how often they are refreshed.
package config
