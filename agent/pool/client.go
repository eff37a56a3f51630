// Package pool defines the ledger collaborator boundary. The sync engine
// and the issue pipeline talk to the ledger only through the Client
// interface; the production implementation lives in the indy package, tests
// use the mem package.
package pool

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Absent signals from the ledger. The engine's publish steps are get before
// send: check the ledger first and send only when the read reports absent.
var (
	ErrAbsentNym     = errors.New("nym not found on ledger")
	ErrAbsentSchema  = errors.New("schema not found on ledger")
	ErrAbsentCredDef = errors.New("cred def not found on ledger")
)

// Client is the ledger collaborator. One shared instance per process; Open
// is called at most once and every later sync pass reuses the open pool.
// All calls block until the ledger round trip finishes.
type Client interface {
	// Open opens the ledger connection pool using the genesis transaction
	// file at genesisPath.
	Open(name, genesisPath string) error
	Close() error

	// CreateWallet is idempotent: an already existing wallet is not an
	// error.
	CreateWallet(id, key string) error
	OpenWallet(id, key string) (handle int, err error)
	CloseWallet(handle int) error

	// CreateDID creates and stores a DID into the wallet. An empty seed
	// generates a random DID.
	CreateDID(wallet int, seed string) (did, verkey string, err error)

	// GetNym resolves the verkey of a DID from the ledger. Reports
	// ErrAbsentNym when the DID has no nym on the ledger.
	GetNym(wallet int, did string) (verkey string, err error)

	// GetSchema reads a schema by ID, reporting ErrAbsentSchema when the
	// ledger doesn't have it. SendSchema publishes and returns the ledger
	// copy which carries the sequence number.
	GetSchema(did, schemaID string) (schemaJSON string, err error)
	SendSchema(wallet int, did, name, version string, attrNames []string) (schemaJSON string, err error)

	// GetCredDef reads a credential definition by ID, reporting
	// ErrAbsentCredDef when absent. SendCredDef publishes a definition for
	// the given ledger schema.
	GetCredDef(did, credDefID string) (credDefJSON string, err error)
	SendCredDef(wallet int, did, schemaJSON, tag string) (id, credDefJSON string, err error)

	// Issuance round trips. Each result is the input of the next one.
	CreateCredOffer(wallet int, credDefID string) (offerJSON string, err error)
	CreateMasterSecret(wallet int, id string) (secretID string, err error)
	CreateCredRequest(wallet int, proverDID, offerJSON, credDefJSON, masterSecretID string) (reqJSON, reqMetaJSON string, err error)
	CreateCred(wallet int, offerJSON, reqJSON, valuesJSON string) (credJSON string, err error)
	StoreCred(wallet int, reqMetaJSON, credJSON, credDefJSON string) (credID string, err error)

	VerifyProof(proofReqJSON, proofJSON, schemasJSON, credDefsJSON string) (valid bool, err error)
}

// SchemaID builds the ledger schema identifier from its key parts.
func SchemaID(did, name, version string) string {
	return fmt.Sprintf("%s:2:%s:%s", did, name, version)
}

// CredDefID builds the ledger credential definition identifier.
func CredDefID(did string, seqNo int, tag string) string {
	return fmt.Sprintf("%s:3:CL:%d:%s", did, seqNo, tag)
}

// SchemaKey splits a schema ID back to origin DID, name and version. The
// boolean reports a well formed ID.
func SchemaKey(schemaID string) (did, name, version string, ok bool) {
	parts := strings.Split(schemaID, ":")
	if len(parts) != 4 || parts[1] != "2" {
		return "", "", "", false
	}
	return parts[0], parts[2], parts[3], true
}

// SchemaSeqNo digs the ledger sequence number out of a ledger schema JSON.
// A published schema always has one; its absence means the publish did not
// reach the ledger.
func SchemaSeqNo(schemaJSON string) (seqNo int, err error) {
	var schema struct {
		SeqNo int `json:"seqNo"`
	}
	if err := json.Unmarshal([]byte(schemaJSON), &schema); err != nil {
		return 0, fmt.Errorf("parse ledger schema: %w", err)
	}
	if schema.SeqNo == 0 {
		return 0, errors.New("ledger schema has no seqNo")
	}
	return schema.SeqNo, nil
}
