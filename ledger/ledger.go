package ledger

import (
	"context"
)

// Payload is an opaque transaction payload as produced by a Client
// implementation. The client that built a payload is the only party that
// can decode or broadcast it; everything above the Client interface treats
// it as bytes.
type Payload []byte

// Call is the decoded view of a payload: the canonical call name and its
// arguments in call order.
type Call struct {
	Method string
	Args   []interface{}
}

// Event is a single chain event emitted for a transaction.
type Event struct {
	Module string
	Method string
	Args   []interface{}
}

// StatusKind enumerates the lifecycle states a broadcast transaction
// reports before and after inclusion.
type StatusKind int

const (
	StatusPending StatusKind = iota
	StatusBroadcast
	StatusInBlock
	StatusFinalized
	StatusDropped
	StatusInvalid
)

func (k StatusKind) String() string {
	switch k {
	case StatusPending:
		return "pending"
	case StatusBroadcast:
		return "broadcast"
	case StatusInBlock:
		return "inBlock"
	case StatusFinalized:
		return "finalized"
	case StatusDropped:
		return "dropped"
	case StatusInvalid:
		return "invalid"
	}
	return "unknown"
}

// Terminal reports whether no further updates can follow this status.
func (k StatusKind) Terminal() bool {
	return k == StatusDropped || k == StatusInvalid
}

// TxStatus is one status report for a broadcast transaction. BlockHash is
// set for in-block and finalized statuses.
type TxStatus struct {
	Kind      StatusKind
	BlockHash string
}

// StatusUpdate is one element of a broadcast subscription stream. Events
// holds the events emitted for this transaction and is populated on
// in-block updates.
type StatusUpdate struct {
	TxHash string
	Status TxStatus
	Events []Event
}

// Subscription is a stream of status updates for one broadcast
// transaction. Updates is closed when the stream ends; Err reports why.
// Unsubscribe releases the stream and is safe to call more than once.
type Subscription interface {
	Updates() <-chan StatusUpdate
	Err() error
	Unsubscribe()
}

// Client is the chain transport. Implementations own connection state,
// call encoding, and event decoding; callers own when to connect and
// disconnect.
type Client interface {
	Connect(ctx context.Context) error
	Disconnect() error
	IsConnected() bool
	// Ready confirms the connected transport answers requests.
	Ready(ctx context.Context) error

	BuildCall(ctx context.Context, method string, args ...interface{}) (Payload, error)
	DecodeCall(payload Payload) (*Call, error)
	Broadcast(ctx context.Context, payload Payload) (Subscription, error)
	// QueryStorage reads one storage value and returns it JSON-encoded,
	// or an empty slice when no entry exists.
	QueryStorage(ctx context.Context, module string, item string, key []byte) ([]byte, error)
}

// Signer signs payloads with a key derived once at construction.
type Signer interface {
	Address() string
	Sign(payload Payload) (Payload, error)
}
