package client

import (
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"

	"bitbucket.org/ConcurrentDragon/storage-market/market"
)

const DefaultRegistryMaxElapsed = 2 * time.Minute

// Factory builds a fresh client instance for the registry.
type Factory func() (*SigningClient, error)

// Registry memoizes a single shared client instance. Every Get confirms
// liveness via AwaitReady; a dead instance is discarded and recreated via
// the factory. Retries use exponential backoff bounded by maxElapsed and
// end in a terminal ConnectionError, instances are replaced, never mutated
// in place.
type Registry struct {
	mu         sync.Mutex
	factory    Factory
	maxElapsed time.Duration
	current    *SigningClient
}

// NewRegistry creates a Registry around factory. maxElapsed 0 keeps the
// default of 2 minutes.
func NewRegistry(factory Factory, maxElapsed time.Duration) *Registry {
	if maxElapsed <= 0 {
		maxElapsed = DefaultRegistryMaxElapsed
	}
	return &Registry{
		factory:    factory,
		maxElapsed: maxElapsed,
	}
}

// Get returns a live client, creating or recreating one as needed.
func (r *Registry) Get(ctx context.Context) (*SigningClient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = r.maxElapsed

	var live *SigningClient
	err := backoff.Retry(func() error {
		if r.current == nil {
			instance, err := r.factory()
			if err != nil {
				return err
			}
			r.current = instance
		}

		err := r.current.AwaitReady(ctx)
		if err != nil {
			logrus.Warnf("registry instance not ready, recreating: %v", err)
			r.current.Disconnect()
			r.current = nil
			return err
		}

		live = r.current
		return nil
	}, backoff.WithContext(b, ctx))

	if err != nil {
		return nil, &market.ConnectionError{Err: err}
	}
	return live, nil
}
