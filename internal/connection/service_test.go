package connection_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"bitbucket.org/ConcurrentDragon/storage-market/internal/connection"
	"bitbucket.org/ConcurrentDragon/storage-market/ledger/ledgertest"
	"bitbucket.org/ConcurrentDragon/storage-market/market"
)

func TestConnectIsIdempotent(t *testing.T) {
	ctx := context.Background()
	mock := &ledgertest.Client{}
	connectionService := connection.New(mock, "wss://test", 0)

	err := connectionService.Connect(ctx)
	if err != nil {
		t.Fatalf("failed to connect: %+v", err)
	}
	err = connectionService.Connect(ctx)
	if err != nil {
		t.Fatalf("failed to connect twice: %+v", err)
	}
	if mock.ConnectCalls() != 1 {
		t.Errorf("expected one transport connect, got %d", mock.ConnectCalls())
	}
}

func TestConnectFailureIsConnectionError(t *testing.T) {
	ctx := context.Background()
	mock := &ledgertest.Client{ConnectErr: fmt.Errorf("refused")}
	connectionService := connection.New(mock, "wss://test", 0)

	err := connectionService.Connect(ctx)
	var connErr *market.ConnectionError
	if !errors.As(err, &connErr) {
		t.Fatalf("expected ConnectionError, got %+v", err)
	}
	if connErr.Endpoint != "wss://test" {
		t.Errorf("expected endpoint wss://test, got %s", connErr.Endpoint)
	}
}

func TestDisconnectWhenNotConnected(t *testing.T) {
	mock := &ledgertest.Client{}
	connectionService := connection.New(mock, "wss://test", 0)

	err := connectionService.Disconnect()
	if err != nil {
		t.Errorf("expected disconnect to be safe when not connected, got %+v", err)
	}
}

func TestAwaitReadyConnectsFirst(t *testing.T) {
	ctx := context.Background()
	mock := &ledgertest.Client{}
	connectionService := connection.New(mock, "wss://test", 0)

	err := connectionService.AwaitReady(ctx)
	if err != nil {
		t.Fatalf("failed to await ready: %+v", err)
	}
	if !connectionService.IsConnected() {
		t.Errorf("expected connected after AwaitReady")
	}
	if mock.ReadyCalls() != 1 {
		t.Errorf("expected one readiness check, got %d", mock.ReadyCalls())
	}
}

func TestAwaitReadyFailureIsConnectionError(t *testing.T) {
	ctx := context.Background()
	mock := &ledgertest.Client{ReadyErr: fmt.Errorf("not ready")}
	connectionService := connection.New(mock, "wss://test", 0)

	err := connectionService.AwaitReady(ctx)
	var connErr *market.ConnectionError
	if !errors.As(err, &connErr) {
		t.Fatalf("expected ConnectionError, got %+v", err)
	}
}

func TestIdleTimeoutDisconnectsAndAwaitReadyReconnects(t *testing.T) {
	ctx := context.Background()
	mock := &ledgertest.Client{}
	connectionService := connection.New(mock, "wss://test", 50*time.Millisecond)

	err := connectionService.AwaitReady(ctx)
	if err != nil {
		t.Fatalf("failed to await ready: %+v", err)
	}
	if !connectionService.IsConnected() {
		t.Fatalf("expected connected after AwaitReady")
	}

	deadline := time.Now().Add(2 * time.Second)
	for connectionService.IsConnected() && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if connectionService.IsConnected() {
		t.Fatalf("expected idle timer to disconnect")
	}

	err = connectionService.AwaitReady(ctx)
	if err != nil {
		t.Fatalf("failed to reconnect: %+v", err)
	}
	if !connectionService.IsConnected() {
		t.Errorf("expected connected after second AwaitReady")
	}
	if mock.ConnectCalls() != 2 {
		t.Errorf("expected two transport connects, got %d", mock.ConnectCalls())
	}
}

func TestAwaitReadyKeepsConnectionAliveWhileUsed(t *testing.T) {
	ctx := context.Background()
	mock := &ledgertest.Client{}
	connectionService := connection.New(mock, "wss://test", 80*time.Millisecond)

	err := connectionService.AwaitReady(ctx)
	if err != nil {
		t.Fatalf("failed to await ready: %+v", err)
	}

	// keep resetting the idle timer before it can fire
	for i := 0; i < 4; i++ {
		time.Sleep(40 * time.Millisecond)
		err = connectionService.AwaitReady(ctx)
		if err != nil {
			t.Fatalf("failed to await ready on use %d: %+v", i, err)
		}
	}

	if !connectionService.IsConnected() {
		t.Errorf("expected connection to stay up while in use")
	}
	if mock.ConnectCalls() != 1 {
		t.Errorf("expected a single transport connect, got %d", mock.ConnectCalls())
	}
}

func TestDisconnectCancelsIdleTimer(t *testing.T) {
	ctx := context.Background()
	mock := &ledgertest.Client{}
	connectionService := connection.New(mock, "wss://test", 50*time.Millisecond)

	err := connectionService.AwaitReady(ctx)
	if err != nil {
		t.Fatalf("failed to await ready: %+v", err)
	}
	err = connectionService.Disconnect()
	if err != nil {
		t.Fatalf("failed to disconnect: %+v", err)
	}

	// reconnect and make sure the old timer does not tear it down
	err = connectionService.Connect(ctx)
	if err != nil {
		t.Fatalf("failed to reconnect: %+v", err)
	}
	time.Sleep(80 * time.Millisecond)
	if !connectionService.IsConnected() {
		t.Errorf("expected stale idle timer to be cancelled by Disconnect")
	}
}
