package cache

import (
	"context"
	"errors"
	"time"
)

// ErrCacheMiss is returned when a key is not cached
var ErrCacheMiss = errors.New("cache miss")

// Store caches JSON-encodable values under string keys
type Store interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// Nop is a Store that never holds anything
type Nop struct{}

func (Nop) Get(context.Context, string, interface{}) error { return ErrCacheMiss }

func (Nop) Set(context.Context, string, interface{}, time.Duration) error { return nil }

func (Nop) Delete(context.Context, string) error { return nil }
