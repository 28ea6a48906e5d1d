package connection

import (
	"context"
)

type Service interface {
	Connect(ctx context.Context) error
	Disconnect() error
	IsConnected() bool
	// AwaitReady connects if necessary, confirms readiness, and arms the
	// idle-disconnect timer.
	AwaitReady(ctx context.Context) error
}
