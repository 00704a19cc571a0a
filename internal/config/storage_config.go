package config

import "github.com/spf13/viper"

const (
	tokenFileKey   = "token_file"
	redisURLKey    = "redis_url"
	redisPrefixKey = "redis_prefix"
)

type Storage struct {
	v *viper.Viper
}

var _ StorageConfig = Storage{}

func (s Storage) GetTokenFile() string {
	return s.v.GetString(tokenFileKey)
}

// GetRedisURL selects the shared token store when not empty.
func (s Storage) GetRedisURL() string {
	return s.v.GetString(redisURLKey)
}

func (s Storage) GetRedisPrefix() string {
	return s.v.GetString(redisPrefixKey)
}
