package substrate

import (
	"encoding/hex"
	"fmt"
	"sync"

	gsrpc "github.com/centrifuge/go-substrate-rpc-client/v4"
	"github.com/centrifuge/go-substrate-rpc-client/v4/registry"
	"github.com/centrifuge/go-substrate-rpc-client/v4/registry/parser"
	"github.com/centrifuge/go-substrate-rpc-client/v4/rpc/author"
	"github.com/centrifuge/go-substrate-rpc-client/v4/types"
	"github.com/centrifuge/go-substrate-rpc-client/v4/types/codec"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/blake2b"

	"bitbucket.org/ConcurrentDragon/storage-market/ledger"
	"bitbucket.org/ConcurrentDragon/storage-market/market"
)

// Chain event names scanned for during submission.
const (
	chainEventFileSuccess      = "Market.FileSuccess"
	chainEventExtrinsicSuccess = "System.ExtrinsicSuccess"
	chainEventExtrinsicFailed  = "System.ExtrinsicFailed"
)

var eventParser = parser.NewEventParser()

// subscription adapts an extrinsic watch to the generic stream shape.
type subscription struct {
	updates chan ledger.StatusUpdate
	raw     *author.ExtrinsicStatusSubscription

	mu   sync.Mutex
	err  error
	once sync.Once
	done chan struct{}
}

var _ ledger.Subscription = (*subscription)(nil)

func newSubscription(client *Client, raw *author.ExtrinsicStatusSubscription, txHash string) *subscription {
	s := &subscription{
		updates: make(chan ledger.StatusUpdate),
		raw:     raw,
		done:    make(chan struct{}),
	}
	go s.pump(client, txHash)
	return s
}

func (s *subscription) pump(client *Client, txHash string) {
	defer close(s.updates)
	for {
		select {
		case <-s.done:
			return
		case err := <-s.raw.Err():
			s.setErr(err)
			return
		case status, ok := <-s.raw.Chan():
			if !ok {
				return
			}
			update := ledger.StatusUpdate{
				TxHash: txHash,
				Status: mapStatus(status),
			}
			// events are fetched on finalization too, so a failed read at
			// inclusion gets a second chance before the stream ends
			if status.IsInBlock || status.IsFinalized {
				blockHash := status.AsInBlock
				if status.IsFinalized {
					blockHash = status.AsFinalized
				}
				events, err := client.eventsForExtrinsic(blockHash, txHash)
				if err != nil {
					logrus.WithField("block", blockHash.Hex()).
						Warnf("failed to load events: %v", err)
				}
				update.Events = events
			}
			select {
			case s.updates <- update:
			case <-s.done:
				return
			}
		}
	}
}

func (s *subscription) Updates() <-chan ledger.StatusUpdate {
	return s.updates
}

func (s *subscription) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *subscription) setErr(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

func (s *subscription) Unsubscribe() {
	s.once.Do(func() {
		close(s.done)
		s.raw.Unsubscribe()
	})
}

func mapStatus(status types.ExtrinsicStatus) ledger.TxStatus {
	switch {
	case status.IsInBlock:
		return ledger.TxStatus{Kind: ledger.StatusInBlock, BlockHash: status.AsInBlock.Hex()}
	case status.IsFinalized:
		return ledger.TxStatus{Kind: ledger.StatusFinalized, BlockHash: status.AsFinalized.Hex()}
	case status.IsDropped:
		return ledger.TxStatus{Kind: ledger.StatusDropped}
	case status.IsInvalid, status.IsUsurped:
		return ledger.TxStatus{Kind: ledger.StatusInvalid}
	case status.IsBroadcast:
		return ledger.TxStatus{Kind: ledger.StatusBroadcast}
	}
	return ledger.TxStatus{Kind: ledger.StatusPending}
}

// eventsForExtrinsic loads the block's events and returns the ones
// belonging to the transaction with txHash. Decoding is driven by the
// runtime metadata, so events from pallets this module does not know
// about still decode and are skipped by name.
func (c *Client) eventsForExtrinsic(blockHash types.Hash, txHash string) ([]ledger.Event, error) {
	api, meta, err := c.session()
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	eventRegistry := c.eventRegistry
	c.mu.Unlock()

	index, err := extrinsicIndex(api, blockHash, txHash)
	if err != nil {
		return nil, err
	}

	key, err := types.CreateStorageKey(meta, "System", "Events")
	if err != nil {
		return nil, fmt.Errorf("failed to create events key: %v", err)
	}
	raw, err := api.RPC.State.GetStorageRaw(key, blockHash)
	if err != nil {
		return nil, fmt.Errorf("failed to read events: %v", err)
	}

	parsed, err := eventParser.ParseEvents(eventRegistry, raw)
	if err != nil {
		return nil, fmt.Errorf("failed to decode events: %v", err)
	}

	var events []ledger.Event
	for _, event := range parsed {
		if event.Phase == nil || !appliesTo(*event.Phase, index) {
			continue
		}
		switch event.Name {
		case chainEventFileSuccess:
			events = append(events, ledger.Event{
				Module: "market",
				Method: market.EventFileSuccess,
				Args:   eventArgs(event.Fields),
			})
		case chainEventExtrinsicSuccess:
			events = append(events, ledger.Event{
				Module: "system",
				Method: market.EventExtrinsicSuccess,
			})
		case chainEventExtrinsicFailed:
			events = append(events, ledger.Event{
				Module: "system",
				Method: market.EventExtrinsicFailed,
			})
		}
	}
	return events, nil
}

// eventArgs converts decoded event fields to plain values in field order.
// Byte-sequence fields become strings; FileSuccess carries the cid as its
// last field.
func eventArgs(fields registry.DecodedFields) []interface{} {
	args := make([]interface{}, 0, len(fields))
	for _, field := range fields {
		if bytes, ok := fieldBytes(field.Value); ok {
			args = append(args, string(bytes))
			continue
		}
		args = append(args, fmt.Sprintf("%v", field.Value))
	}
	return args
}

// fieldBytes unwraps the byte-sequence shapes the registry decoder
// produces.
func fieldBytes(value interface{}) ([]byte, bool) {
	switch v := value.(type) {
	case []byte:
		return v, true
	case types.Bytes:
		return v, true
	case []interface{}:
		bytes := make([]byte, 0, len(v))
		for _, item := range v {
			u, ok := item.(types.U8)
			if !ok {
				return nil, false
			}
			bytes = append(bytes, byte(u))
		}
		return bytes, true
	}
	return nil, false
}

func appliesTo(phase types.Phase, index uint32) bool {
	return phase.IsApplyExtrinsic && phase.AsApplyExtrinsic == index
}

// extrinsicIndex locates the transaction inside the block by hash.
func extrinsicIndex(api *gsrpc.SubstrateAPI, blockHash types.Hash, txHash string) (uint32, error) {
	block, err := api.RPC.Chain.GetBlock(blockHash)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch block %s: %v", blockHash.Hex(), err)
	}
	for i, ext := range block.Block.Extrinsics {
		encoded, err := codec.Encode(ext)
		if err != nil {
			continue
		}
		sum := blake2b.Sum256(encoded)
		if hashHex(sum) == txHash {
			return uint32(i), nil
		}
	}
	return 0, fmt.Errorf("transaction %s not found in block %s", txHash, blockHash.Hex())
}

func hashHex(sum [32]byte) string {
	return "0x" + hex.EncodeToString(sum[:])
}
