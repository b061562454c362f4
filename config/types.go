package config

import (
	"time"

	"github.com/theoremus-urban-solutions/mtapi/stations"
)

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port int `yaml:"port" validate:"gt=0,lte=65535"`
	// CrossOrigin is sent as Access-Control-Allow-Origin when set.
	CrossOrigin     string `yaml:"crossOrigin"`
	RequestTimeoutS int    `yaml:"requestTimeoutS" validate:"gte=0"`
	// SearchLimit caps system=all keyword search results. Zero disables the cap.
	SearchLimit int `yaml:"searchLimit" validate:"gte=0"`
}

// LoggingConfig selects the slog handler
type LoggingConfig struct {
	Level  string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
	Format string `yaml:"format" validate:"omitempty,oneof=text json"`
}

// FeedConfig contains upstream GTFS-RT client configuration shared by all systems
type FeedConfig struct {
	APIKey        string  `yaml:"apiKey"`
	TimeoutS      int     `yaml:"timeoutS" validate:"gte=0"`
	RatePerSecond float64 `yaml:"ratePerSecond" validate:"gte=0"`
	Burst         int     `yaml:"burst" validate:"gte=0"`
}

// SystemConfig describes one transit network
type SystemConfig struct {
	Name string `yaml:"name" validate:"required,oneof=subway lirr mnr"`
	// StationsFile is a station JSON file; GTFSDir a static GTFS directory or zip.
	// At least one is required. When both are set the station file provides the
	// topology and the GTFS data provides routes and trip lookups.
	StationsFile string   `yaml:"stationsFile" validate:"required_without=GTFSDir"`
	GTFSDir      string   `yaml:"gtfsDir" validate:"required_without=StationsFile"`
	FeedURLs     []string `yaml:"feedURLs" validate:"dive,url"`
	AlertsURL    string   `yaml:"alertsURL" validate:"omitempty,url"`

	// RefreshIntervalS defaults to 60. Zero builds the index once at startup.
	RefreshIntervalS *int `yaml:"refreshIntervalS" validate:"omitempty,gte=0"`
	AlertsIntervalS  int  `yaml:"alertsIntervalS" validate:"gte=0"`
	MaxTrains        int  `yaml:"maxTrains" validate:"gte=0"`
	MaxMinutes       int  `yaml:"maxMinutes" validate:"gte=0"`

	// FoldChildStops and UppercaseRoutes default to true for the subway only.
	FoldChildStops  *bool `yaml:"foldChildStops"`
	UppercaseRoutes *bool `yaml:"uppercaseRoutes"`
	// DirectionHub is the stop regional trips are oriented against.
	DirectionHub string `yaml:"directionHub"`
	// StationsOnly keeps only GTFS stops with location_type 0.
	StationsOnly bool `yaml:"stationsOnly"`
}

// AppConfig is the root configuration structure
type AppConfig struct {
	Server  ServerConfig   `yaml:"server"`
	Logging LoggingConfig  `yaml:"logging"`
	Feed    FeedConfig     `yaml:"feed"`
	Systems []SystemConfig `yaml:"systems" validate:"required,min=1,unique=Name,dive"`
}

// System returns the system by name.
func (c *AppConfig) System(name string) (SystemConfig, bool) {
	for _, s := range c.Systems {
		if s.Name == name {
			return s, true
		}
	}
	return SystemConfig{}, false
}

// Interval returns the arrivals refresh period; zero means static.
func (s SystemConfig) Interval() time.Duration {
	if s.RefreshIntervalS == nil {
		return DefaultRefreshInterval
	}
	return time.Duration(*s.RefreshIntervalS) * time.Second
}

func (s SystemConfig) AlertsInterval() time.Duration {
	return time.Duration(s.AlertsIntervalS) * time.Second
}

// Index returns the query engine settings for the system.
func (s SystemConfig) Index() stations.SystemConfig {
	cfg := stations.DefaultConfig(stations.System(s.Name))
	if s.FoldChildStops != nil {
		cfg.FoldChildStops = *s.FoldChildStops
	}
	if s.UppercaseRoutes != nil {
		cfg.UppercaseRoutes = *s.UppercaseRoutes
	}
	return cfg
}

func (f FeedConfig) Timeout() time.Duration {
	return time.Duration(f.TimeoutS) * time.Second
}

func (s ServerConfig) RequestTimeout() time.Duration {
	return time.Duration(s.RequestTimeoutS) * time.Second
}
