// Package substrate implements the ledger interfaces over a Substrate
// chain RPC node using go-substrate-rpc-client.
package substrate

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	gsrpc "github.com/centrifuge/go-substrate-rpc-client/v4"
	"github.com/centrifuge/go-substrate-rpc-client/v4/registry"
	"github.com/centrifuge/go-substrate-rpc-client/v4/types"
	"github.com/centrifuge/go-substrate-rpc-client/v4/types/codec"
	"golang.org/x/crypto/blake2b"

	"bitbucket.org/ConcurrentDragon/storage-market/ledger"
	"bitbucket.org/ConcurrentDragon/storage-market/market"
)

// Substrate call names for the canonical methods.
const (
	placeStorageOrderCall = "Market.place_storage_order"
	addPrepaidCall        = "Market.add_prepaid"
)

type Client struct {
	endpoint string

	mu            sync.Mutex
	api           *gsrpc.SubstrateAPI
	meta          *types.Metadata
	genesisHash   types.Hash
	runtime       *types.RuntimeVersion
	eventRegistry registry.EventRegistry
}

var _ ledger.Client = (*Client)(nil)

// New creates a disconnected Client for endpoint.
func New(endpoint string) (*Client, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("endpoint is required")
	}
	return &Client{endpoint: endpoint}, nil
}

func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.api != nil {
		return nil
	}

	api, err := gsrpc.NewSubstrateAPI(c.endpoint)
	if err != nil {
		return fmt.Errorf("failed to dial %s: %v", c.endpoint, err)
	}

	meta, err := api.RPC.State.GetMetadataLatest()
	if err != nil {
		api.Client.Close()
		return fmt.Errorf("failed to fetch metadata: %v", err)
	}
	genesisHash, err := api.RPC.Chain.GetBlockHash(0)
	if err != nil {
		api.Client.Close()
		return fmt.Errorf("failed to fetch genesis hash: %v", err)
	}
	runtime, err := api.RPC.State.GetRuntimeVersionLatest()
	if err != nil {
		api.Client.Close()
		return fmt.Errorf("failed to fetch runtime version: %v", err)
	}
	eventRegistry, err := registry.NewFactory().CreateEventRegistry(meta)
	if err != nil {
		api.Client.Close()
		return fmt.Errorf("failed to build event registry: %v", err)
	}

	c.api = api
	c.meta = meta
	c.genesisHash = genesisHash
	c.runtime = runtime
	c.eventRegistry = eventRegistry
	return nil
}

func (c *Client) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.api == nil {
		return nil
	}
	c.api.Client.Close()
	c.api = nil
	c.meta = nil
	c.runtime = nil
	c.eventRegistry = nil
	return nil
}

func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.api != nil
}

func (c *Client) Ready(ctx context.Context) error {
	api, _, err := c.session()
	if err != nil {
		return err
	}
	_, err = api.RPC.System.Health()
	if err != nil {
		return fmt.Errorf("health check failed: %v", err)
	}
	return nil
}

// session snapshots the live API handle and metadata under the lock.
func (c *Client) session() (*gsrpc.SubstrateAPI, *types.Metadata, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.api == nil {
		return nil, nil, fmt.Errorf("not connected to %s", c.endpoint)
	}
	return c.api, c.meta, nil
}

// envelope is the payload encoding this client produces and consumes: the
// canonical call with string arguments, the SCALE-encoded call for
// external signers, and the SCALE-encoded signed extrinsic once signed.
type envelope struct {
	Method    string   `json:"method"`
	Args      []string `json:"args"`
	CallHex   string   `json:"call"`
	SignedHex string   `json:"signed,omitempty"`
}

func (c *Client) BuildCall(ctx context.Context, method string, args ...interface{}) (ledger.Payload, error) {
	_, meta, err := c.session()
	if err != nil {
		return nil, err
	}

	stringArgs := make([]string, 0, len(args))
	for _, arg := range args {
		stringArgs = append(stringArgs, fmt.Sprintf("%v", arg))
	}

	call, err := newCall(meta, method, stringArgs)
	if err != nil {
		return nil, err
	}
	callHex, err := codec.EncodeToHex(call)
	if err != nil {
		return nil, fmt.Errorf("failed to encode call: %v", err)
	}

	return json.Marshal(envelope{
		Method:  method,
		Args:    stringArgs,
		CallHex: callHex,
	})
}

// newCall maps a canonical method and its string arguments onto the
// chain's call shape.
func newCall(meta *types.Metadata, method string, args []string) (types.Call, error) {
	switch method {
	case market.MethodPlaceStorageOrder:
		if len(args) != 4 {
			return types.Call{}, fmt.Errorf("%s takes 4 arguments, got %d", method, len(args))
		}
		size, err := parseUint(args[1])
		if err != nil {
			return types.Call{}, fmt.Errorf("invalid size %q: %v", args[1], err)
		}
		tips, err := parseBig(args[2])
		if err != nil {
			return types.Call{}, fmt.Errorf("invalid tips %q: %v", args[2], err)
		}
		return types.NewCall(meta, placeStorageOrderCall,
			types.NewBytes([]byte(args[0])),
			types.NewU64(size),
			types.NewUCompact(tips),
			types.NewBytes([]byte(args[3])),
		)
	case market.MethodAddPrepaid:
		if len(args) != 2 {
			return types.Call{}, fmt.Errorf("%s takes 2 arguments, got %d", method, len(args))
		}
		amount, err := parseBig(args[1])
		if err != nil {
			return types.Call{}, fmt.Errorf("invalid amount %q: %v", args[1], err)
		}
		return types.NewCall(meta, addPrepaidCall,
			types.NewBytes([]byte(args[0])),
			types.NewUCompact(amount),
		)
	}
	return types.Call{}, fmt.Errorf("unsupported call %q", method)
}

func (c *Client) DecodeCall(payload ledger.Payload) (*ledger.Call, error) {
	env, err := decodeEnvelope(payload)
	if err != nil {
		return nil, err
	}
	args := make([]interface{}, 0, len(env.Args))
	for _, arg := range env.Args {
		args = append(args, arg)
	}
	return &ledger.Call{Method: env.Method, Args: args}, nil
}

func (c *Client) Broadcast(ctx context.Context, payload ledger.Payload) (ledger.Subscription, error) {
	env, err := decodeEnvelope(payload)
	if err != nil {
		return nil, err
	}
	if env.SignedHex == "" {
		return nil, fmt.Errorf("payload is not signed")
	}

	api, _, err := c.session()
	if err != nil {
		return nil, err
	}

	var ext types.Extrinsic
	err = codec.DecodeFromHex(env.SignedHex, &ext)
	if err != nil {
		return nil, fmt.Errorf("failed to decode signed extrinsic: %v", err)
	}

	extBytes, err := codec.Encode(ext)
	if err != nil {
		return nil, fmt.Errorf("failed to encode extrinsic: %v", err)
	}
	txHashHex := hashHex(blake2b.Sum256(extBytes))

	raw, err := api.RPC.Author.SubmitAndWatchExtrinsic(ext)
	if err != nil {
		return nil, fmt.Errorf("failed to submit extrinsic: %v", err)
	}

	return newSubscription(c, raw, txHashHex), nil
}

func decodeEnvelope(payload ledger.Payload) (*envelope, error) {
	var env envelope
	err := json.Unmarshal(payload, &env)
	if err != nil {
		return nil, fmt.Errorf("failed to decode payload: %v", err)
	}
	return &env, nil
}
