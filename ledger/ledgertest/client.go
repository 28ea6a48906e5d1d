// Package ledgertest provides a scripted in-memory ledger.Client for tests.
package ledgertest

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"bitbucket.org/ConcurrentDragon/storage-market/ledger"
)

// Subscription replays a fixed sequence of status updates.
type Subscription struct {
	ch   chan ledger.StatusUpdate
	err  error
	once sync.Once
	done chan struct{}
}

func NewSubscription(updates []ledger.StatusUpdate, err error) *Subscription {
	s := &Subscription{
		ch:   make(chan ledger.StatusUpdate, len(updates)),
		err:  err,
		done: make(chan struct{}),
	}
	for _, u := range updates {
		s.ch <- u
	}
	close(s.ch)
	return s
}

func (s *Subscription) Updates() <-chan ledger.StatusUpdate {
	return s.ch
}

func (s *Subscription) Err() error {
	return s.err
}

func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		close(s.done)
	})
}

// Unsubscribed reports whether Unsubscribe has been called.
func (s *Subscription) Unsubscribed() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// Client is a scripted ledger.Client. Zero value is usable; fields
// customize behavior per test.
type Client struct {
	mu sync.Mutex

	ConnectErr error
	ReadyErr   error

	// Updates is the scripted stream handed to the next Broadcast call.
	Updates      []ledger.StatusUpdate
	BroadcastErr error
	StreamErr    error

	// Storage maps "module/item/key" to a JSON value for QueryStorage.
	Storage map[string][]byte

	connected     bool
	connectCalls  int
	readyCalls    int
	broadcasts    int
	subscriptions []*Subscription
}

var _ ledger.Client = (*Client)(nil)

func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connectCalls++
	if c.ConnectErr != nil {
		return c.ConnectErr
	}
	c.connected = true
	return nil
}

func (c *Client) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = false
	return nil
}

func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

func (c *Client) Ready(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.readyCalls++
	if c.ReadyErr != nil {
		return c.ReadyErr
	}
	if !c.connected {
		return fmt.Errorf("not connected")
	}
	return nil
}

// envelope is the mock's payload encoding.
type envelope struct {
	Method string        `json:"method"`
	Args   []interface{} `json:"args"`
	Signed bool          `json:"signed,omitempty"`
	Signer string        `json:"signer,omitempty"`
}

func (c *Client) BuildCall(ctx context.Context, method string, args ...interface{}) (ledger.Payload, error) {
	if args == nil {
		args = []interface{}{}
	}
	return json.Marshal(envelope{Method: method, Args: args})
}

func (c *Client) DecodeCall(payload ledger.Payload) (*ledger.Call, error) {
	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, fmt.Errorf("failed to decode payload: %v", err)
	}
	return &ledger.Call{Method: env.Method, Args: env.Args}, nil
}

func (c *Client) Broadcast(ctx context.Context, payload ledger.Payload) (ledger.Subscription, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.broadcasts++
	if c.BroadcastErr != nil {
		return nil, c.BroadcastErr
	}
	sub := NewSubscription(c.Updates, c.StreamErr)
	c.subscriptions = append(c.subscriptions, sub)
	return sub, nil
}

func (c *Client) QueryStorage(ctx context.Context, module string, item string, key []byte) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Storage == nil {
		return nil, nil
	}
	return c.Storage[module+"/"+item+"/"+string(key)], nil
}

// Broadcasts reports how many times Broadcast was called.
func (c *Client) Broadcasts() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.broadcasts
}

// ConnectCalls reports how many times Connect was called.
func (c *Client) ConnectCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connectCalls
}

// ReadyCalls reports how many times Ready was called.
func (c *Client) ReadyCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.readyCalls
}

// LastSubscription returns the subscription handed out by the most recent
// Broadcast, or nil.
func (c *Client) LastSubscription() *Subscription {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.subscriptions) == 0 {
		return nil
	}
	return c.subscriptions[len(c.subscriptions)-1]
}

// Signer is a fake ledger.Signer that marks payloads as signed.
type Signer struct {
	Addr    string
	SignErr error
}

var _ ledger.Signer = (*Signer)(nil)

func (s *Signer) Address() string {
	return s.Addr
}

func (s *Signer) Sign(payload ledger.Payload) (ledger.Payload, error) {
	if s.SignErr != nil {
		return nil, s.SignErr
	}
	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, fmt.Errorf("failed to decode payload: %v", err)
	}
	env.Signed = true
	env.Signer = s.Addr
	return json.Marshal(env)
}
