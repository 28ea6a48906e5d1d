// Package client is the public facade for submitting and tracking
// storage-market transactions. Client accepts externally signed payloads;
// SigningClient additionally holds a key and signs locally.
package client

import (
	"context"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"bitbucket.org/ConcurrentDragon/storage-market/internal/builder"
	"bitbucket.org/ConcurrentDragon/storage-market/internal/connection"
	"bitbucket.org/ConcurrentDragon/storage-market/internal/orders"
	"bitbucket.org/ConcurrentDragon/storage-market/internal/submitter"
	"bitbucket.org/ConcurrentDragon/storage-market/ledger"
	"bitbucket.org/ConcurrentDragon/storage-market/market"
)

// Client is the unsigned variant: it builds unsigned payloads for
// external signing and submits externally signed ones.
type Client struct {
	ledgerClient      ledger.Client
	connectionService connection.Service
	builderService    builder.Service
	submitterService  submitter.Service
	ordersService     orders.Service
	endpoint          string
}

// New creates a Client against the endpoint selected by opts.
func New(opts Options) (*Client, error) {
	endpoint, err := opts.endpoint()
	if err != nil {
		return nil, err
	}

	ledgerClient, err := opts.newLedger(endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create ledger client: %v", err)
	}

	connectionService := connection.New(ledgerClient, endpoint, opts.idleTimeout())

	return &Client{
		ledgerClient:      ledgerClient,
		connectionService: connectionService,
		builderService:    builder.New(connectionService, ledgerClient),
		submitterService:  submitter.New(connectionService, ledgerClient, opts.SubmissionTimeout),
		ordersService:     orders.New(connectionService, ledgerClient),
		endpoint:          endpoint,
	}, nil
}

func (c *Client) Connect(ctx context.Context) error {
	return c.connectionService.Connect(ctx)
}

func (c *Client) Disconnect() error {
	return c.connectionService.Disconnect()
}

func (c *Client) IsConnected() bool {
	return c.connectionService.IsConnected()
}

func (c *Client) AwaitReady(ctx context.Context) error {
	return c.connectionService.AwaitReady(ctx)
}

// Endpoint returns the endpoint this client talks to.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// GetPlaceStorageOrderRaw builds an unsigned placeStorageOrder payload and
// returns it hex-encoded for external signing. size may be 0 when only the
// cid is known.
func (c *Client) GetPlaceStorageOrderRaw(ctx context.Context, cid string, size uint64, tips *big.Int, isDirectory bool) (string, error) {
	payload, err := c.builderService.BuildPlaceOrder(ctx, cid, size, tips, isDirectory)
	if err != nil {
		return "", err
	}
	return encodePayload(payload), nil
}

// GetAddPrepaidAmountRaw builds an unsigned addPrepaid payload and returns
// it hex-encoded for external signing.
func (c *Client) GetAddPrepaidAmountRaw(ctx context.Context, cid string, amount *big.Int) (string, error) {
	payload, err := c.builderService.BuildAddPrepaid(ctx, cid, amount)
	if err != nil {
		return "", err
	}
	return encodePayload(payload), nil
}

// SendPlaceStorageOrder submits an externally signed placeStorageOrder
// payload and awaits its result.
func (c *Client) SendPlaceStorageOrder(ctx context.Context, signedPayload string) (*market.StoredResource, error) {
	payload, err := decodePayload(signedPayload)
	if err != nil {
		return nil, err
	}
	return c.submitterService.Submit(ctx, payload, market.MethodPlaceStorageOrder, "")
}

// SendAddPrepaidAmount submits an externally signed addPrepaid payload.
// The cid is taken from the payload itself.
func (c *Client) SendAddPrepaidAmount(ctx context.Context, signedPayload string) (*market.StoredResource, error) {
	payload, err := decodePayload(signedPayload)
	if err != nil {
		return nil, err
	}
	return c.submitterService.Submit(ctx, payload, market.MethodAddPrepaid, "")
}

// GetOrderStatus returns the current on-chain order state for cid, or nil
// when no order exists.
func (c *Client) GetOrderStatus(ctx context.Context, cid string) (*market.OrderStatus, error) {
	return c.ordersService.GetOrderStatus(ctx, cid)
}

func encodePayload(payload ledger.Payload) string {
	return "0x" + hex.EncodeToString(payload)
}

func decodePayload(payload string) (ledger.Payload, error) {
	trimmed := strings.TrimPrefix(payload, "0x")
	bytes, err := hex.DecodeString(trimmed)
	if err != nil {
		return nil, fmt.Errorf("failed to decode payload hex: %v", err)
	}
	return bytes, nil
}
