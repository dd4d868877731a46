package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/vibematch/internal/db"
)

var _ db.Store = (*Store)(nil)

const (
	clientName     = "vibematch"
	initialBackoff = 50 * time.Millisecond
	maxBackoff     = time.Second
)

// Config holds connection parameters for a Redis or Valkey store.
type Config struct {
	// Driver is "valkey" or "redis". Empty means valkey.
	Driver   string
	Addrs    []string
	Username string
	Password string
	DB       int
}

// Store implements db.Store via rueidis. Valkey speaks the same protocol
// for every command used here, so one implementation serves both.
type Store struct {
	client rueidis.Client
	driver string
}

// NewStore creates a store via rueidis.
func NewStore(cfg Config) (*Store, error) {
	driver := cfg.Driver
	switch driver {
	case "":
		driver = "valkey"
	case "valkey", "redis":
	default:
		return nil, fmt.Errorf("unsupported driver %q", cfg.Driver)
	}
	if len(cfg.Addrs) == 0 {
		return nil, fmt.Errorf("%s: addrs is required", driver)
	}

	// Ledgers and exclusion sets change on every request: client-side caching stays off.
	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  cfg.Addrs,
		Username:     cfg.Username,
		Password:     cfg.Password,
		SelectDB:     cfg.DB,
		ClientName:   clientName,
		DisableCache: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: create client: %w", driver, err)
	}

	return &Store{client: client, driver: driver}, nil
}

// Driver reports which server flavour the store was configured for.
func (s *Store) Driver() string { return s.driver }

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.do(ctx, s.b().Ping().Build()).Error(); err != nil {
		return &db.Error{Op: db.OpPing, Err: err}
	}
	return nil
}

// Close shuts down the client.
func (s *Store) Close() {
	s.client.Close()
}

// WaitForReady pings immediately, then with doubling backoff until the
// store answers or timeout expires.
func (s *Store) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	backoff := initialBackoff
	for {
		if err := s.Ping(ctx); err == nil {
			return nil
		}

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("timeout waiting for %s: %w", s.driver, ctx.Err())
		case <-timer.C:
		}
		backoff = min(backoff*2, maxBackoff)
	}
}

func (s *Store) do(ctx context.Context, cmd rueidis.Completed) rueidis.RedisResult {
	return s.client.Do(ctx, cmd)
}

func (s *Store) b() rueidis.Builder {
	return s.client.B()
}
