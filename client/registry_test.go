package client_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"bitbucket.org/ConcurrentDragon/storage-market/client"
	"bitbucket.org/ConcurrentDragon/storage-market/ledger/ledgertest"
	"bitbucket.org/ConcurrentDragon/storage-market/market"
)

// registryFixture hands out a fresh SigningClient per factory call and
// remembers the mock behind each one.
type registryFixture struct {
	mocks      []*ledgertest.Client
	factoryErr error
	calls      int
}

func (f *registryFixture) factory() (*client.SigningClient, error) {
	f.calls++
	if f.factoryErr != nil {
		return nil, f.factoryErr
	}
	mock := &ledgertest.Client{}
	f.mocks = append(f.mocks, mock)
	return client.NewSigning(mockOptions(mock))
}

func TestRegistryMemoizesLiveInstance(t *testing.T) {
	ctx := context.Background()
	fixture := &registryFixture{}
	registry := client.NewRegistry(fixture.factory, 0)

	first, err := registry.Get(ctx)
	if err != nil {
		t.Fatalf("failed to get client: %+v", err)
	}
	second, err := registry.Get(ctx)
	if err != nil {
		t.Fatalf("failed to get client: %+v", err)
	}

	if first != second {
		t.Errorf("expected memoized instance")
	}
	if fixture.calls != 1 {
		t.Errorf("expected one factory call, got %d", fixture.calls)
	}
}

func TestRegistryRecreatesAfterFailedReady(t *testing.T) {
	ctx := context.Background()
	fixture := &registryFixture{}
	registry := client.NewRegistry(fixture.factory, 0)

	first, err := registry.Get(ctx)
	if err != nil {
		t.Fatalf("failed to get client: %+v", err)
	}

	fixture.mocks[0].ReadyErr = fmt.Errorf("connection reset")

	second, err := registry.Get(ctx)
	if err != nil {
		t.Fatalf("failed to get replacement client: %+v", err)
	}
	if second == first {
		t.Errorf("expected a distinct replacement instance")
	}
	if len(fixture.mocks) != 2 {
		t.Fatalf("expected two created instances, got %d", len(fixture.mocks))
	}
	if fixture.mocks[1].ReadyCalls() == 0 {
		t.Errorf("expected the replacement's readiness to be checked")
	}
	if fixture.mocks[0].IsConnected() {
		t.Errorf("expected the dead instance to be disconnected")
	}
}

func TestRegistryTerminalConnectionError(t *testing.T) {
	ctx := context.Background()
	fixture := &registryFixture{factoryErr: fmt.Errorf("dns failure")}
	registry := client.NewRegistry(fixture.factory, 100*time.Millisecond)

	_, err := registry.Get(ctx)
	if err == nil {
		t.Fatalf("expected error after exhausted retries")
	}
	var connErr *market.ConnectionError
	if !errors.As(err, &connErr) {
		t.Errorf("expected ConnectionError, got %+v", err)
	}
	if fixture.calls < 2 {
		t.Errorf("expected retries before giving up, got %d factory calls", fixture.calls)
	}
}
