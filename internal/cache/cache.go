// Package cache stores small string values between build cycles, such as the
// last deployed group fingerprints.
package cache

import (
	"context"
	"sync"

	"git.home.luguber.info/inful/seriesgen/internal/foundation/errors"
)

// Backend names.
const (
	TypeNone   = "none"
	TypeMemory = "memory"
	TypeNATS   = "nats"
	TypeSQLite = "sqlite"
)

// Cache is a string key/value store. A missing key is not an error.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Close() error
}

// Options selects and configures a backend.
type Options struct {
	Type string
	// NATSURL and Bucket configure the JetStream key/value backend.
	NATSURL string
	Bucket  string
	// Path is the SQLite database file; ":memory:" is allowed.
	Path string
}

// Open returns the backend named by opts.Type. TypeNone and "" yield a nil
// Cache, meaning nothing is remembered between runs.
func Open(ctx context.Context, opts Options) (Cache, error) {
	switch opts.Type {
	case "", TypeNone:
		return nil, nil
	case TypeMemory:
		return NewMemory(), nil
	case TypeNATS:
		c, err := OpenNATS(ctx, opts.NATSURL, opts.Bucket)
		if err != nil {
			return nil, err
		}
		return c, nil
	case TypeSQLite:
		c, err := OpenSQLite(ctx, opts.Path)
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, errors.ConfigError("unknown cache type").WithContext("type", opts.Type).Build()
	}
}

// Memory is a process-local Cache.
type Memory struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemory returns an empty Memory cache.
func NewMemory() *Memory {
	return &Memory{values: map[string]string{}}
}

func (m *Memory) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *Memory) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	m.values[key] = value
	m.mu.Unlock()
	return nil
}

func (m *Memory) Close() error { return nil }
