// Package config loads run defaults from the environment. Command-line
// flags override anything set here.
package config

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Env holds the PENGU_* environment settings.
type Env struct {
	ProbeTarget       string `envconfig:"PROBE_TARGET" default:"http://httpbin.org/get"`
	TimeoutSeconds    int    `envconfig:"TIMEOUT_SECONDS" default:"10"`
	Concurrency       int    `envconfig:"CONCURRENCY" default:"0"` // 0 = size from hardware
	Retries           int    `envconfig:"RETRIES" default:"1"`
	GeoIPCityDB       string `envconfig:"GEOIP_CITY_DB"`
	GeoIPASNDB        string `envconfig:"GEOIP_ASN_DB"`
	CheckCapabilities bool   `envconfig:"CHECK_CAPABILITIES" default:"false"`
	Verbose           bool   `envconfig:"VERBOSE" default:"false"`
}

// Load reads .env if present, then the process environment.
func Load() (Env, error) {
	_ = godotenv.Load()

	var env Env
	if err := envconfig.Process("pengu", &env); err != nil {
		return Env{}, fmt.Errorf("parse environment: %w", err)
	}
	return env, nil
}
