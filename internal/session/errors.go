package session

import "fmt"

// MediaAcquisitionError reports that the media device adapter refused or
// failed to provide a capture stream. The session stays idle.
type MediaAcquisitionError struct {
	Err error
}

func (e *MediaAcquisitionError) Error() string {
	return fmt.Sprintf("media acquisition failed: %v", e.Err)
}

func (e *MediaAcquisitionError) Unwrap() error { return e.Err }

// NegotiationError reports a failed handshake stage. Stage failures are
// logged at their origin and do not roll back prior successful stages.
type NegotiationError struct {
	Stage string // e.g. "local.setLocalDescription"
	Err   error
}

func (e *NegotiationError) Error() string {
	return fmt.Sprintf("negotiation failed at %s: %v", e.Stage, e.Err)
}

func (e *NegotiationError) Unwrap() error { return e.Err }

// CandidateRelayError reports a candidate that failed to apply on the
// receiving endpoint. Non-fatal: the ICE agent tolerates partial candidate
// loss, so the session continues.
type CandidateRelayError struct {
	Source EndpointID // the endpoint that discovered the candidate
	Err    error
}

func (e *CandidateRelayError) Error() string {
	return fmt.Sprintf("relay from %s: candidate rejected: %v", e.Source, e.Err)
}

func (e *CandidateRelayError) Unwrap() error { return e.Err }

// PreconditionError reports an operation invoked out of valid state order
// (e.g. connect before start). The operation is a no-op.
type PreconditionError struct {
	Op    string
	State State
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("%s not allowed in session state %s", e.Op, e.State)
}
