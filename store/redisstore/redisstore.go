// Package redisstore implements store.Backend on top of Redis strings.
package redisstore

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/reoring/versioner/store"
)

// Options configures the Redis connection.
type Options struct {
	// URL is the Redis connection string (e.g., "redis://localhost:6379/0")
	URL string

	// KeyPrefix namespaces every key written by this backend (e.g., "records:")
	KeyPrefix string

	// TLS configuration for secure connections
	TLS *tls.Config

	// ConnectTimeout is the maximum time to wait for connection establishment
	ConnectTimeout time.Duration

	// ReadTimeout is the maximum time to wait for read operations
	ReadTimeout time.Duration

	// WriteTimeout is the maximum time to wait for write operations
	WriteTimeout time.Duration

	// ScanCount is the COUNT hint passed to SCAN when listing keys
	ScanCount int64
}

// Backend stores each record as a Redis string.
type Backend struct {
	client    redis.UniversalClient
	prefix    string
	scanCount int64
}

var _ store.Backend = (*Backend)(nil)

// New connects to Redis and verifies the connection with PING.
func New(opts Options) (*Backend, error) {
	if opts.URL == "" {
		opts.URL = "redis://localhost:6379"
	}

	if opts.ConnectTimeout == 0 {
		opts.ConnectTimeout = 5 * time.Second
	}

	if opts.ReadTimeout == 0 {
		opts.ReadTimeout = 3 * time.Second
	}

	if opts.WriteTimeout == 0 {
		opts.WriteTimeout = 3 * time.Second
	}

	redisOpts, err := redis.ParseURL(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	if opts.TLS != nil {
		redisOpts.TLSConfig = opts.TLS
	}
	redisOpts.DialTimeout = opts.ConnectTimeout
	redisOpts.ReadTimeout = opts.ReadTimeout
	redisOpts.WriteTimeout = opts.WriteTimeout

	client := redis.NewClient(redisOpts)

	ctx, cancel := context.WithTimeout(context.Background(), opts.ConnectTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewFromClient(client, opts.KeyPrefix, opts.ScanCount), nil
}

// NewFromClient wraps an existing client. The caller keeps ownership of the
// client's lifecycle unless it calls Close on the returned Backend.
func NewFromClient(client redis.UniversalClient, keyPrefix string, scanCount int64) *Backend {
	if scanCount <= 0 {
		scanCount = 100
	}
	return &Backend{client: client, prefix: keyPrefix, scanCount: scanCount}
}

func (b *Backend) Get(ctx context.Context, key string) ([]byte, error) {
	v, err := b.client.Get(ctx, b.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get %s: %w", key, err)
	}
	return v, nil
}

func (b *Backend) Put(ctx context.Context, key string, value []byte) error {
	if err := b.client.Set(ctx, b.prefix+key, value, 0).Err(); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	return nil
}

func (b *Backend) Delete(ctx context.Context, key string) error {
	if err := b.client.Del(ctx, b.prefix+key).Err(); err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

// Keys lists keys under prefix using SCAN. The backend's own KeyPrefix is
// stripped from the results.
func (b *Backend) Keys(ctx context.Context, prefix string) ([]string, error) {
	pattern := escapeGlob(b.prefix+prefix) + "*"
	var out []string
	iter := b.client.Scan(ctx, 0, pattern, b.scanCount).Iterator()
	for iter.Next(ctx) {
		out = append(out, strings.TrimPrefix(iter.Val(), b.prefix))
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", pattern, err)
	}
	return out, nil
}

// Close closes the underlying client.
func (b *Backend) Close() error { return b.client.Close() }

// escapeGlob quotes the characters SCAN MATCH treats specially.
func escapeGlob(s string) string {
	var sb strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			sb.WriteByte('\\')
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
