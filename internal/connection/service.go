package connection

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	prometheus_monitoring "bitbucket.org/ConcurrentDragon/storage-market/internal/monitoring"
	"bitbucket.org/ConcurrentDragon/storage-market/ledger"
	"bitbucket.org/ConcurrentDragon/storage-market/market"
)

const DefaultIdleTimeout = 60 * time.Second

type ServiceImpl struct {
	client      ledger.Client
	endpoint    string
	idleTimeout time.Duration

	mu        sync.Mutex
	idleTimer *time.Timer
	everUp    bool
}

// New creates a connection manager over client. idleTimeout 0 disables the
// idle-disconnect timer.
func New(client ledger.Client, endpoint string, idleTimeout time.Duration) *ServiceImpl {
	return &ServiceImpl{
		client:      client,
		endpoint:    endpoint,
		idleTimeout: idleTimeout,
	}
}

func (s *ServiceImpl) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connectLocked(ctx)
}

func (s *ServiceImpl) connectLocked(ctx context.Context) error {
	if s.client.IsConnected() {
		return nil
	}

	err := s.client.Connect(ctx)
	if err != nil {
		prometheus_monitoring.SetConnectionStatus(0)
		return &market.ConnectionError{Endpoint: s.endpoint, Err: err}
	}

	prometheus_monitoring.SetConnectionStatus(1)
	if s.everUp {
		prometheus_monitoring.TickReconnect()
		logrus.WithField("endpoint", s.endpoint).Info("reconnected to ledger")
	} else {
		logrus.WithField("endpoint", s.endpoint).Info("connected to ledger")
	}
	s.everUp = true
	return nil
}

func (s *ServiceImpl) Disconnect() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.disconnectLocked()
}

func (s *ServiceImpl) disconnectLocked() error {
	if s.idleTimer != nil {
		s.idleTimer.Stop()
		s.idleTimer = nil
	}
	if !s.client.IsConnected() {
		return nil
	}

	err := s.client.Disconnect()
	prometheus_monitoring.SetConnectionStatus(0)
	if err != nil {
		return &market.ConnectionError{Endpoint: s.endpoint, Err: err}
	}
	return nil
}

func (s *ServiceImpl) IsConnected() bool {
	return s.client.IsConnected()
}

func (s *ServiceImpl) AwaitReady(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.connectLocked(ctx)
	if err != nil {
		return err
	}

	err = s.client.Ready(ctx)
	if err != nil {
		prometheus_monitoring.SetConnectionStatus(0)
		return &market.ConnectionError{Endpoint: s.endpoint, Err: err}
	}

	s.resetIdleTimerLocked()
	return nil
}

// resetIdleTimerLocked keeps the invariant of at most one pending idle
// timer per manager.
func (s *ServiceImpl) resetIdleTimerLocked() {
	if s.idleTimer != nil {
		s.idleTimer.Stop()
		s.idleTimer = nil
	}
	if s.idleTimeout <= 0 {
		return
	}
	s.idleTimer = time.AfterFunc(s.idleTimeout, s.idleDisconnect)
}

func (s *ServiceImpl) idleDisconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.idleTimer = nil
	if !s.client.IsConnected() {
		return
	}

	logrus.WithFields(logrus.Fields{
		"endpoint":     s.endpoint,
		"idle_timeout": s.idleTimeout,
	}).Info("disconnecting idle ledger connection")
	prometheus_monitoring.TickIdleDisconnect()

	err := s.client.Disconnect()
	prometheus_monitoring.SetConnectionStatus(0)
	if err != nil {
		logrus.WithField("endpoint", s.endpoint).Warnf("idle disconnect failed: %v", err)
	}
}
