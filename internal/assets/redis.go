package assets

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/redis/go-redis/v9"
)

// SetMemberReader is the part of a Redis client RedisCaptionStore needs.
// *redis.Client satisfies it.
type SetMemberReader interface {
	SRandMember(ctx context.Context, key string) *redis.StringCmd
}

// RedisCaptionStore reads captions from Redis sets named
// "<prefix>captions:<category>" (or "<prefix>captions" with no category) and
// delegates image lookups to Images.
type RedisCaptionStore struct {
	client SetMemberReader
	prefix string

	// Images serves RandomImage. Nil means no images.
	Images Store
}

// NewRedisCaptionStore wraps client. images may be nil.
func NewRedisCaptionStore(client SetMemberReader, prefix string, images Store) *RedisCaptionStore {
	return &RedisCaptionStore{client: client, prefix: prefix, Images: images}
}

// NewRedisClient opens a client for addr in the same way the rest of the
// service configures Redis.
func NewRedisClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

// RandomCaption implements Store. With several categories one is picked at
// random.
func (s *RedisCaptionStore) RandomCaption(ctx context.Context, categories []string) (string, error) {
	key := s.prefix + "captions"
	if len(categories) > 0 {
		key += ":" + cleanCategory(categories[rand.IntN(len(categories))])
	}

	val, err := s.client.SRandMember(ctx, key).Result()
	if errors.Is(err, redis.Nil) || (err == nil && val == "") {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to read caption set %s: %w", key, err)
	}
	return val, nil
}

// RandomImage implements Store.
func (s *RedisCaptionStore) RandomImage(ctx context.Context, kind string, ratio float64, categories []string) ([]byte, error) {
	if s.Images == nil {
		return nil, ErrNotFound
	}
	return s.Images.RandomImage(ctx, kind, ratio, categories)
}
