package submitter

import (
	"context"

	"bitbucket.org/ConcurrentDragon/storage-market/ledger"
	"bitbucket.org/ConcurrentDragon/storage-market/market"
)

type Service interface {
	// Submit broadcasts payload, awaits inclusion, and extracts the typed
	// result. expectedMethod names the call kind the payload must carry.
	// knownCid may be empty for the raw addPrepaid flow, in which case the
	// cid is taken from the payload itself.
	Submit(ctx context.Context, payload ledger.Payload, expectedMethod string, knownCid string) (*market.StoredResource, error)
}
