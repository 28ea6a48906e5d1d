package submitter

import (
	"bitbucket.org/ConcurrentDragon/storage-market/ledger"
	"bitbucket.org/ConcurrentDragon/storage-market/market"
)

// eventOutcome is the folded view of the events one status update carried.
type eventOutcome struct {
	success bool
	failed  bool
	cid     string
	hasCid  bool
}

// foldEvents reduces emitted events to an outcome. FileSuccess contributes
// its last argument as the resulting cid; ExtrinsicSuccess and
// ExtrinsicFailed mark the dispatch result. Unknown events are ignored.
func foldEvents(events []ledger.Event) eventOutcome {
	var out eventOutcome
	for _, event := range events {
		switch event.Method {
		case market.EventFileSuccess:
			if len(event.Args) == 0 {
				continue
			}
			last := event.Args[len(event.Args)-1]
			if cid, ok := last.(string); ok {
				out.cid = cid
				out.hasCid = true
			}
		case market.EventExtrinsicSuccess:
			out.success = true
		case market.EventExtrinsicFailed:
			out.failed = true
		}
	}
	return out
}
