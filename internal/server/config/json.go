package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/gophauth/internal/flagx"
	"github.com/dmitrijs2005/gophauth/internal/timex"
)

// JsonConfig is the on-disk shape of the JSON config file. Durations use
// timex.Duration so both "15m" and integer nanoseconds are accepted.
type JsonConfig struct {
	EndpointAddrGRPC             string         `json:"endpoint_addr_grpc"`
	EndpointAddrHTTP             string         `json:"endpoint_addr_http"`
	DatabaseDriver               string         `json:"database_driver"`
	DatabaseDSN                  string         `json:"database_dsn"`
	AccessTokenSecret            string         `json:"access_token_secret"`
	RefreshTokenSecret           string         `json:"refresh_token_secret"`
	AccessTokenValidityDuration  timex.Duration `json:"access_token_validity_duration"`
	RefreshTokenValidityDuration timex.Duration `json:"refresh_token_validity_duration"`
	PasswordHashCost             int            `json:"password_hash_cost"`
	LogFormat                    string         `json:"log_format"`
	LogLevel                     string         `json:"log_level"`
	CookieSecure                 bool           `json:"cookie_secure"`
	HTTPReadTimeout              timex.Duration `json:"http_read_timeout"`
	HTTPWriteTimeout             timex.Duration `json:"http_write_timeout"`
	RedisAddr                    string         `json:"redis_addr"`
	RedisPassword                string         `json:"redis_password"`
	RedisDB                      int            `json:"redis_db"`
	LoginAttemptsLimit           int            `json:"login_attempts_limit"`
	LoginAttemptsWindow          timex.Duration `json:"login_attempts_window"`
}

func toJson(c *Config) *JsonConfig {
	return &JsonConfig{
		EndpointAddrGRPC:             c.EndpointAddrGRPC,
		EndpointAddrHTTP:             c.EndpointAddrHTTP,
		DatabaseDriver:               c.DatabaseDriver,
		DatabaseDSN:                  c.DatabaseDSN,
		AccessTokenSecret:            c.AccessTokenSecret,
		RefreshTokenSecret:           c.RefreshTokenSecret,
		AccessTokenValidityDuration:  timex.Duration{Duration: c.AccessTokenValidityDuration},
		RefreshTokenValidityDuration: timex.Duration{Duration: c.RefreshTokenValidityDuration},
		PasswordHashCost:             c.PasswordHashCost,
		LogFormat:                    c.LogFormat,
		LogLevel:                     c.LogLevel,
		CookieSecure:                 c.CookieSecure,
		HTTPReadTimeout:              timex.Duration{Duration: c.HTTPReadTimeout},
		HTTPWriteTimeout:             timex.Duration{Duration: c.HTTPWriteTimeout},
		RedisAddr:                    c.RedisAddr,
		RedisPassword:                c.RedisPassword,
		RedisDB:                      c.RedisDB,
		LoginAttemptsLimit:           c.LoginAttemptsLimit,
		LoginAttemptsWindow:          timex.Duration{Duration: c.LoginAttemptsWindow},
	}
}

func (j *JsonConfig) apply(c *Config) {
	c.EndpointAddrGRPC = j.EndpointAddrGRPC
	c.EndpointAddrHTTP = j.EndpointAddrHTTP
	c.DatabaseDriver = j.DatabaseDriver
	c.DatabaseDSN = j.DatabaseDSN
	c.AccessTokenSecret = j.AccessTokenSecret
	c.RefreshTokenSecret = j.RefreshTokenSecret
	c.AccessTokenValidityDuration = j.AccessTokenValidityDuration.Duration
	c.RefreshTokenValidityDuration = j.RefreshTokenValidityDuration.Duration
	c.PasswordHashCost = j.PasswordHashCost
	c.LogFormat = j.LogFormat
	c.LogLevel = j.LogLevel
	c.CookieSecure = j.CookieSecure
	c.HTTPReadTimeout = j.HTTPReadTimeout.Duration
	c.HTTPWriteTimeout = j.HTTPWriteTimeout.Duration
	c.RedisAddr = j.RedisAddr
	c.RedisPassword = j.RedisPassword
	c.RedisDB = j.RedisDB
	c.LoginAttemptsLimit = j.LoginAttemptsLimit
	c.LoginAttemptsWindow = j.LoginAttemptsWindow.Duration
}

// parseJson overlays the file named by -c / -config onto config. Keys absent
// from the file keep their current values. Without the flag nothing happens.
func parseJson(config *Config) error {
	jsonConfigFile := flagx.JsonConfigFlags()

	// nothing to load
	if jsonConfigFile == "" {
		return nil
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		return err
	}

	c := toJson(config)
	if err := json.Unmarshal(file, c); err != nil {
		return err
	}

	c.apply(config)
	return nil
}
