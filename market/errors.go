package market

import "fmt"

// ConnectionError reports a transport that could not be reached or whose
// readiness could not be confirmed. Use errors.As for structured handling.
type ConnectionError struct {
	Endpoint string
	Err      error
}

func (e *ConnectionError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("connection to %s failed", e.Endpoint)
	}
	return fmt.Sprintf("connection to %s failed: %v", e.Endpoint, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// WrongMethodError reports a payload whose embedded call name does not
// match the operation it was submitted through. Raised before any
// broadcast happens.
type WrongMethodError struct {
	Expected string
	Got      string
}

func (e *WrongMethodError) Error() string {
	return fmt.Sprintf("payload call is %q, expected %q", e.Got, e.Expected)
}

// InvalidCidError reports a content identifier that is not a well-formed
// string. Raised before any broadcast happens.
type InvalidCidError struct {
	Value interface{}
}

func (e *InvalidCidError) Error() string {
	return fmt.Sprintf("invalid cid: %v (%T)", e.Value, e.Value)
}

// SubmissionError reports a broadcast or subscription failure. TxHash is
// empty when the transaction never reached the transport.
type SubmissionError struct {
	TxHash string
	Err    error
}

func (e *SubmissionError) Error() string {
	if e.TxHash == "" {
		return fmt.Sprintf("submission failed: %v", e.Err)
	}
	return fmt.Sprintf("submission of %s failed: %v", e.TxHash, e.Err)
}

func (e *SubmissionError) Unwrap() error {
	return e.Err
}

// UnexpectedChainStateError reports a transaction that was included in a
// block but whose expected success event never appeared.
type UnexpectedChainStateError struct {
	TxHash    string
	BlockHash string
}

func (e *UnexpectedChainStateError) Error() string {
	return fmt.Sprintf("transaction %s included in block %s without a success event", e.TxHash, e.BlockHash)
}
