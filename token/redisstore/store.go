// Package redisstore shares the token pair through Redis, so several
// processes on one workstation act on the same session.
package redisstore

import (
	"context"

	"github.com/lemussistemas/salsa-hn-frontend/token"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

type Store struct {
	client *redis.Client
	prefix string
}

var _ token.Store = (*Store)(nil)

// New returns a store writing <prefix>access_token and <prefix>refresh_token.
func New(client *redis.Client, prefix string) (*Store, error) {
	if client == nil {
		return nil, errors.New("[redisstore.New] client is required")
	}
	return &Store{client: client, prefix: prefix}, nil
}

// Open parses a redis:// URL and returns a store on a new client.
func Open(url, prefix string) (*Store, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, errors.Wrap(err, "[redisstore.Open] parse url")
	}
	return New(redis.NewClient(opts), prefix)
}

func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) AccessToken() (string, error) {
	return s.get(token.AccessTokenKey)
}

func (s *Store) RefreshToken() (string, error) {
	return s.get(token.RefreshTokenKey)
}

func (s *Store) SetTokens(access, refresh string) error {
	ctx := context.Background()
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.key(token.AccessTokenKey), access, 0)
		pipe.Set(ctx, s.key(token.RefreshTokenKey), refresh, 0)
		return nil
	})
	return errors.Wrap(err, "[redisstore.SetTokens]")
}

func (s *Store) Clear() error {
	ctx := context.Background()
	err := s.client.Del(ctx, s.key(token.AccessTokenKey), s.key(token.RefreshTokenKey)).Err()
	return errors.Wrap(err, "[redisstore.Clear]")
}

func (s *Store) get(name string) (string, error) {
	val, err := s.client.Get(context.Background(), s.key(name)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", errors.Wrapf(err, "[redisstore.get] %s", name)
	}
	return val, nil
}

func (s *Store) key(name string) string {
	return s.prefix + name
}
