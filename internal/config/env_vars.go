package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	apiURLKey      = "api_url"
	appNameKey     = "app_name"
	envKey         = "env"
	logLevelKey    = "log_level"
	httpTimeoutKey = "http_timeout"
)

type EnvVars struct {
	v *viper.Viper
}

var _ EnvConfig = EnvVars{}

// GetAPIURL returns the backend base URL without a trailing slash
// (e.g. "http://127.0.0.1:8000/api"). Resource paths are appended to it.
func (e EnvVars) GetAPIURL() string {
	return strings.TrimRight(e.v.GetString(apiURLKey), "/")
}

func (e EnvVars) GetAppName() string {
	return e.v.GetString(appNameKey)
}

func (e EnvVars) GetEnv() string {
	env := strings.ToUpper(e.v.GetString(envKey))
	if env == "" {
		return "DEV"
	}
	return env
}

// GetLogLevel defaults to debug in DEV and info elsewhere.
func (e EnvVars) GetLogLevel() string {
	if level := e.v.GetString(logLevelKey); level != "" {
		return strings.ToLower(level)
	}
	if e.GetEnv() == "DEV" {
		return "debug"
	}
	return "info"
}

// GetHTTPTimeout is zero unless configured: requests run until the
// transport finishes or the caller's context ends.
func (e EnvVars) GetHTTPTimeout() time.Duration {
	return e.v.GetDuration(httpTimeoutKey)
}
