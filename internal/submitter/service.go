package submitter

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"

	"bitbucket.org/ConcurrentDragon/storage-market/internal/connection"
	prometheus_monitoring "bitbucket.org/ConcurrentDragon/storage-market/internal/monitoring"
	"bitbucket.org/ConcurrentDragon/storage-market/ledger"
	"bitbucket.org/ConcurrentDragon/storage-market/market"
)

const (
	DefaultSubmissionTimeout = 10 * time.Minute

	// Updates tolerated after inclusion without a success event before the
	// submission is failed instead of waiting forever.
	maxPostInclusionUpdates = 3
)

type ServiceImpl struct {
	connectionService connection.Service
	client            ledger.Client
	timeout           time.Duration

	entropyMu   sync.Mutex
	ulidEntropy *ulid.MonotonicEntropy
}

// New creates a new ServiceImpl. timeout bounds one submission end to end;
// 0 keeps the default.
func New(connectionService connection.Service, client ledger.Client, timeout time.Duration) *ServiceImpl {
	if timeout <= 0 {
		timeout = DefaultSubmissionTimeout
	}
	t := time.Now().UTC()
	return &ServiceImpl{
		connectionService: connectionService,
		client:            client,
		timeout:           timeout,
		ulidEntropy:       ulid.Monotonic(rand.New(rand.NewSource(t.UnixNano())), 0),
	}
}

func (s *ServiceImpl) generateULID() string {
	s.entropyMu.Lock()
	defer s.entropyMu.Unlock()
	t := time.Now().UTC()
	return ulid.MustNew(ulid.Timestamp(t), s.ulidEntropy).String()
}

func (s *ServiceImpl) Submit(ctx context.Context, payload ledger.Payload, expectedMethod string, knownCid string) (*market.StoredResource, error) {
	call, err := s.client.DecodeCall(payload)
	if err != nil {
		return nil, &market.SubmissionError{Err: fmt.Errorf("failed to decode payload: %v", err)}
	}

	if call.Method != expectedMethod {
		prometheus_monitoring.TickWrongMethod()
		return nil, &market.WrongMethodError{Expected: expectedMethod, Got: call.Method}
	}

	cid := knownCid
	if expectedMethod == market.MethodAddPrepaid && cid == "" {
		cid, err = cidFromCall(call)
		if err != nil {
			return nil, err
		}
	}

	err = s.connectionService.AwaitReady(ctx)
	if err != nil {
		return nil, err
	}

	submissionID := s.generateULID()
	log := logrus.WithFields(logrus.Fields{
		"submission": submissionID,
		"method":     expectedMethod,
		"cid":        cid,
	})

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	sub, err := s.client.Broadcast(ctx, payload)
	if err != nil {
		prometheus_monitoring.TickSubmissionFailed()
		return nil, &market.SubmissionError{Err: err}
	}
	defer sub.Unsubscribe()

	log.Info("broadcast transaction, awaiting inclusion")

	resource, err := s.awaitResult(ctx, sub, expectedMethod, cid, log)
	if err != nil {
		prometheus_monitoring.TickSubmissionFailed()
		return nil, err
	}

	switch expectedMethod {
	case market.MethodPlaceStorageOrder:
		prometheus_monitoring.TickPlacedOrder()
	case market.MethodAddPrepaid:
		prometheus_monitoring.TickAddedPrepaid()
	}
	log.WithFields(logrus.Fields{
		"hash":       resource.Hash,
		"result_cid": resource.Cid,
	}).Info("transaction included")

	return resource, nil
}

// awaitResult consumes status updates until the submission resolves or
// fails. It returns on exactly one update; later updates are never read
// because the subscription is released by the caller.
func (s *ServiceImpl) awaitResult(ctx context.Context, sub ledger.Subscription, expectedMethod string, cid string, log *logrus.Entry) (*market.StoredResource, error) {
	var (
		txHash            string
		includedBlock     string
		includedNoSuccess bool
		postInclusion     int
		fileCid           string
		hasFileCid        bool
	)

	for {
		select {
		case <-ctx.Done():
			return nil, &market.SubmissionError{TxHash: txHash, Err: ctx.Err()}
		case update, ok := <-sub.Updates():
			if !ok {
				err := sub.Err()
				if err == nil {
					err = fmt.Errorf("status stream ended before inclusion")
				}
				return nil, &market.SubmissionError{TxHash: txHash, Err: err}
			}
			if update.TxHash != "" {
				txHash = update.TxHash
			}
			log.WithField("status", update.Status.Kind.String()).Debug("status update")

			if update.Status.Kind.Terminal() {
				return nil, &market.SubmissionError{
					TxHash: txHash,
					Err:    fmt.Errorf("transaction %s by the network", update.Status.Kind),
				}
			}

			if includedNoSuccess {
				postInclusion++
			}

			included := update.Status.Kind == ledger.StatusInBlock || update.Status.Kind == ledger.StatusFinalized
			if included {
				if expectedMethod == market.MethodAddPrepaid {
					return &market.StoredResource{Hash: update.Status.BlockHash, Cid: cid}, nil
				}

				outcome := foldEvents(update.Events)
				if outcome.hasCid {
					fileCid = outcome.cid
					hasFileCid = true
				}
				if outcome.failed {
					return nil, &market.SubmissionError{
						TxHash: txHash,
						Err:    fmt.Errorf("extrinsic failed in block %s", update.Status.BlockHash),
					}
				}
				if outcome.success {
					if !hasFileCid {
						log.Warn("extrinsic succeeded without a file success event, resolving without cid")
					}
					return &market.StoredResource{Hash: txHash, Cid: fileCid}, nil
				}

				if includedBlock == "" {
					includedBlock = update.Status.BlockHash
				}
				includedNoSuccess = true
			}

			if includedNoSuccess && (postInclusion >= maxPostInclusionUpdates || update.Status.Kind == ledger.StatusFinalized) {
				return nil, &market.UnexpectedChainStateError{TxHash: txHash, BlockHash: includedBlock}
			}
		}
	}
}

// cidFromCall extracts the content identifier argument carried by an
// addPrepaid payload. The cid is the first call argument.
func cidFromCall(call *ledger.Call) (string, error) {
	if len(call.Args) == 0 {
		return "", &market.InvalidCidError{Value: nil}
	}
	cid, ok := call.Args[0].(string)
	if !ok {
		return "", &market.InvalidCidError{Value: call.Args[0]}
	}
	return cid, nil
}
