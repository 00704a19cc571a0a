package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

const envPrefix = "SALSA"

type Config interface {
	EnvConfig
	StorageConfig
}

type EnvConfig interface {
	GetAPIURL() string
	GetAppName() string
	GetEnv() string
	GetLogLevel() string
	GetHTTPTimeout() time.Duration
}

type StorageConfig interface {
	GetTokenFile() string
	GetRedisURL() string
	GetRedisPrefix() string
}

type mainConfig struct {
	EnvVars
	Storage
}

// New reads configuration from SALSA_* environment variables on top of the
// defaults.
func New() Config {
	v := newViper()
	return mainConfig{EnvVars: EnvVars{v: v}, Storage: Storage{v: v}}
}

// Load reads dotEnvPath into the environment when the file exists, then
// behaves like New. A missing file is not an error.
func Load(dotEnvPath string) (Config, error) {
	if dotEnvPath != "" {
		if _, err := os.Stat(dotEnvPath); err == nil {
			if err := godotenv.Load(dotEnvPath); err != nil {
				return nil, errors.Wrapf(err, "[config.Load] godotenv(%s)", dotEnvPath)
			}
		} else if !os.IsNotExist(err) {
			return nil, errors.Wrapf(err, "[config.Load] stat(%s)", dotEnvPath)
		}
	}
	return New(), nil
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetTypeByDefaultValue(true)
	v.SetDefault(apiURLKey, "http://127.0.0.1:8000/api")
	v.SetDefault(appNameKey, "Salsa Honduras")
	v.SetDefault(envKey, "DEV")
	v.SetDefault(logLevelKey, "")
	v.SetDefault(httpTimeoutKey, time.Duration(0))
	v.SetDefault(tokenFileKey, defaultTokenFile())
	v.SetDefault(redisURLKey, "")
	v.SetDefault(redisPrefixKey, "salsa:")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func defaultTokenFile() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return filepath.Join(".salsa", "tokens.json")
	}
	return filepath.Join(home, ".salsa", "tokens.json")
}
