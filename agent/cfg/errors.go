package cfg

import "errors"

// Error taxonomy of the whole agency. Every fault crossing the service
// boundary wraps exactly one of these so that callers and handlers can
// classify with errors.Is.
var (
	// ErrConfig marks invalid or missing registration input: unknown
	// references, duplicate IDs, missing required fields. Always recovered
	// at the service boundary.
	ErrConfig = errors.New("configuration error")

	// ErrSync marks a ledger-facing failure during bootstrap, DID
	// registration, schema/cred def publishing or connection sync. The
	// current sync pass fails, entity flags stay at their last good state
	// and a later pass retries.
	ErrSync = errors.New("sync error")

	// ErrPipeline marks a failure inside credential issuance. No partial
	// credential is ever considered issued.
	ErrPipeline = errors.New("issue pipeline error")
)
