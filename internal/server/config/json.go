package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/sessionkeeper/internal/timex"
)

// JsonConfig is the on-disk shape of the configuration file. Durations
// accept "15m" style strings or integer nanoseconds. Pointer fields let a
// file set false/zero explicitly; absent fields leave the current value.
type JsonConfig struct {
	HTTPAddr           string          `json:"http_addr"`
	Production         *bool           `json:"production"`
	LogLevel           string          `json:"log_level"`
	AccessTokenSecret  string          `json:"access_token_secret"`
	RefreshTokenSecret string          `json:"refresh_token_secret"`
	AccessTokenTTL     *timex.Duration `json:"access_token_ttl"`
	RefreshTokenTTL    *timex.Duration `json:"refresh_token_ttl"`
	RefreshRetention   *timex.Duration `json:"refresh_retention"`
	SweepInterval      *timex.Duration `json:"sweep_interval"`
	IdentityBackend    string          `json:"identity_backend"`
	RefreshBackend     string          `json:"refresh_backend"`
	DatabaseDSN        string          `json:"database_dsn"`
	RedisAddr          string          `json:"redis_addr"`
	RedisPassword      string          `json:"redis_password"`
	RedisDB            *int            `json:"redis_db"`
	IssuePolicy        string          `json:"issue_policy"`
	CORSOrigins        []string        `json:"cors_origins"`
	ShutdownTimeout    *timex.Duration `json:"shutdown_timeout"`
}

// parseJSON overlays the file at path onto config.
func parseJSON(config *Config, path string) error {
	file, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}

	setString(&config.HTTPAddr, c.HTTPAddr)
	setString(&config.LogLevel, c.LogLevel)
	setString(&config.AccessTokenSecret, c.AccessTokenSecret)
	setString(&config.RefreshTokenSecret, c.RefreshTokenSecret)
	setString(&config.IdentityBackend, c.IdentityBackend)
	setString(&config.RefreshBackend, c.RefreshBackend)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.RedisAddr, c.RedisAddr)
	setString(&config.RedisPassword, c.RedisPassword)
	setString(&config.IssuePolicy, c.IssuePolicy)

	if c.Production != nil {
		config.Production = *c.Production
	}
	if c.RedisDB != nil {
		config.RedisDB = *c.RedisDB
	}
	if c.CORSOrigins != nil {
		config.CORSOrigins = c.CORSOrigins
	}
	if c.AccessTokenTTL != nil {
		config.AccessTokenTTL = c.AccessTokenTTL.Duration
	}
	if c.RefreshTokenTTL != nil {
		config.RefreshTokenTTL = c.RefreshTokenTTL.Duration
	}
	if c.RefreshRetention != nil {
		config.RefreshRetention = c.RefreshRetention.Duration
	}
	if c.SweepInterval != nil {
		config.SweepInterval = c.SweepInterval.Duration
	}
	if c.ShutdownTimeout != nil {
		config.ShutdownTimeout = c.ShutdownTimeout.Duration
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
