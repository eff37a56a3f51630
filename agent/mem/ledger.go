// Package mem is an in-memory ledger implementing the pool.Client
// collaborator. It serves unit tests and local development the way the
// wrapper's memory ledger plugin serves the real pool: same contract, no
// network. Counters record every send so tests can assert the engine's
// get-before-send discipline.
package mem

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/vanir-network/vanir-agency/agent/didauth"
	"github.com/vanir-network/vanir-agency/agent/pool"
	"github.com/vanir-network/vanir-agency/agent/utils"
)

// Counters tally ledger writes for test assertions.
type Counters struct {
	WalletCreates int
	SchemaSends   int
	CredDefSends  int
	CredStores    int
}

type memWallet struct {
	id  string
	key string
}

type storedCred struct {
	id   string
	cred string
}

// Ledger is safe for concurrent use. Zero value is not usable, call New.
type Ledger struct {
	mu sync.Mutex

	opened  bool
	wallets map[string]*memWallet
	handles map[int]*memWallet
	next    int

	nyms     map[string]string // did -> verkey
	schemas  map[string]string // schema id -> ledger schema JSON
	credDefs map[string]string // cred def id -> cred def JSON
	seqNo    int

	secrets map[int]map[string]bool // wallet handle -> master secret ids
	creds   map[int][]storedCred

	counters Counters

	// FailCreateCred makes the next CreateCred call fail, for testing
	// issuance atomicity.
	FailCreateCred bool

	// FailCreateWallet makes CreateWallet calls fail, for testing sync
	// deferral while the wallet backend is unavailable.
	FailCreateWallet bool
}

func New() *Ledger {
	return &Ledger{
		wallets:  make(map[string]*memWallet),
		handles:  make(map[int]*memWallet),
		nyms:     make(map[string]string),
		schemas:  make(map[string]string),
		credDefs: make(map[string]string),
		secrets:  make(map[int]map[string]bool),
		creds:    make(map[int][]storedCred),
	}
}

// Counters returns a snapshot of the write tallies.
func (l *Ledger) Counters() Counters {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.counters
}

// RegisterNym writes a nym directly, the way the ledger server's register
// endpoint would. Test servers backing <ledger_url>/register call this.
func (l *Ledger) RegisterNym(did, verkey string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.nyms[did] = verkey
}

// StoredCreds lists credentials stored into a wallet, newest last.
func (l *Ledger) StoredCreds(wallet int) []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, 0, len(l.creds[wallet]))
	for _, c := range l.creds[wallet] {
		out = append(out, c.cred)
	}
	return out
}

func (l *Ledger) Open(_, _ string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.opened = true
	return nil
}

func (l *Ledger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.opened = false
	return nil
}

func (l *Ledger) CreateWallet(id, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.FailCreateWallet {
		return fmt.Errorf("wallet creation rejected: %s", id)
	}
	if _, ok := l.wallets[id]; ok {
		return nil // already exists, not an error
	}
	l.counters.WalletCreates++
	l.wallets[id] = &memWallet{id: id, key: key}
	return nil
}

func (l *Ledger) OpenWallet(id, key string) (handle int, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	w, ok := l.wallets[id]
	if !ok {
		return 0, fmt.Errorf("unknown wallet: %s", id)
	}
	if w.key != key {
		return 0, fmt.Errorf("bad wallet key: %s", id)
	}
	l.next++
	l.handles[l.next] = w
	return l.next, nil
}

func (l *Ledger) CloseWallet(handle int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.handles, handle)
	return nil
}

func (l *Ledger) CreateDID(wallet int, seed string) (did, verkey string, err error) {
	l.mu.Lock()
	ok := l.handles[wallet] != nil
	l.mu.Unlock()
	if !ok {
		return "", "", fmt.Errorf("invalid wallet handle: %d", wallet)
	}
	if seed == "" {
		seed = utils.NewSeed()
	}
	return didauth.DIDFromSeed(seed)
}

func (l *Ledger) GetNym(_ int, did string) (verkey string, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	vk, ok := l.nyms[did]
	if !ok {
		return "", pool.ErrAbsentNym
	}
	return vk, nil
}

func (l *Ledger) GetSchema(_, schemaID string) (schemaJSON string, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.schemas[schemaID]
	if !ok {
		return "", pool.ErrAbsentSchema
	}
	return s, nil
}

func (l *Ledger) SendSchema(_ int, did, name, version string, attrNames []string) (schemaJSON string, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	id := pool.SchemaID(did, name, version)
	if s, ok := l.schemas[id]; ok {
		return s, nil
	}
	l.seqNo++
	l.counters.SchemaSends++
	data, err := json.Marshal(map[string]interface{}{
		"id":        id,
		"name":      name,
		"version":   version,
		"attrNames": attrNames,
		"seqNo":     l.seqNo,
	})
	if err != nil {
		return "", err
	}
	l.schemas[id] = string(data)
	return string(data), nil
}

func (l *Ledger) GetCredDef(_, credDefID string) (credDefJSON string, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	cd, ok := l.credDefs[credDefID]
	if !ok {
		return "", pool.ErrAbsentCredDef
	}
	return cd, nil
}

func (l *Ledger) SendCredDef(_ int, did, schemaJSON, tag string) (id, credDefJSON string, err error) {
	seqNo, err := pool.SchemaSeqNo(schemaJSON)
	if err != nil {
		return "", "", err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	id = pool.CredDefID(did, seqNo, tag)
	if cd, ok := l.credDefs[id]; ok {
		return id, cd, nil
	}
	l.counters.CredDefSends++
	data, jsonErr := json.Marshal(map[string]interface{}{
		"id":        id,
		"schemaId":  fmt.Sprintf("%d", seqNo),
		"type":      "CL",
		"tag":       tag,
		"origin":    did,
		"value":     map[string]string{"primary": "..."},
		"ver":       "1.0",
		"signature": utils.UUID(),
	})
	if jsonErr != nil {
		return "", "", jsonErr
	}
	l.credDefs[id] = string(data)
	return id, string(data), nil
}

func (l *Ledger) CreateCredOffer(_ int, credDefID string) (offerJSON string, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.credDefs[credDefID]; !ok {
		return "", fmt.Errorf("unknown cred def: %s", credDefID)
	}
	data, err := json.Marshal(map[string]string{
		"cred_def_id": credDefID,
		"nonce":       utils.UUID(),
	})
	return string(data), err
}

func (l *Ledger) CreateMasterSecret(wallet int, id string) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.handles[wallet] == nil {
		return "", fmt.Errorf("invalid wallet handle: %d", wallet)
	}
	if l.secrets[wallet] == nil {
		l.secrets[wallet] = make(map[string]bool)
	}
	l.secrets[wallet][id] = true
	return id, nil
}

func (l *Ledger) CreateCredRequest(wallet int, proverDID, offerJSON, _, masterSecretID string) (reqJSON, reqMetaJSON string, err error) {
	l.mu.Lock()
	hasSecret := l.secrets[wallet][masterSecretID]
	l.mu.Unlock()
	if !hasSecret {
		return "", "", fmt.Errorf("unknown master secret: %s", masterSecretID)
	}
	var offer map[string]string
	if err := json.Unmarshal([]byte(offerJSON), &offer); err != nil {
		return "", "", fmt.Errorf("parse cred offer: %w", err)
	}
	req, err := json.Marshal(map[string]string{
		"prover_did":  proverDID,
		"cred_def_id": offer["cred_def_id"],
		"nonce":       offer["nonce"],
	})
	if err != nil {
		return "", "", err
	}
	meta, err := json.Marshal(map[string]string{
		"master_secret": masterSecretID,
	})
	return string(req), string(meta), err
}

func (l *Ledger) CreateCred(_ int, offerJSON, reqJSON, valuesJSON string) (credJSON string, err error) {
	l.mu.Lock()
	fail := l.FailCreateCred
	l.mu.Unlock()
	if fail {
		return "", fmt.Errorf("cred creation rejected")
	}
	var offer, req map[string]string
	if err := json.Unmarshal([]byte(offerJSON), &offer); err != nil {
		return "", fmt.Errorf("parse cred offer: %w", err)
	}
	if err := json.Unmarshal([]byte(reqJSON), &req); err != nil {
		return "", fmt.Errorf("parse cred request: %w", err)
	}
	var values map[string]interface{}
	if err := json.Unmarshal([]byte(valuesJSON), &values); err != nil {
		return "", fmt.Errorf("parse cred values: %w", err)
	}
	data, err := json.Marshal(map[string]interface{}{
		"cred_def_id": offer["cred_def_id"],
		"values":      values,
	})
	return string(data), err
}

func (l *Ledger) StoreCred(wallet int, _, credJSON, _ string) (credID string, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.handles[wallet] == nil {
		return "", fmt.Errorf("invalid wallet handle: %d", wallet)
	}
	id := utils.UUID()
	l.counters.CredStores++
	l.creds[wallet] = append(l.creds[wallet], storedCred{id: id, cred: credJSON})
	return id, nil
}

func (l *Ledger) VerifyProof(proofReqJSON, proofJSON, _, _ string) (valid bool, err error) {
	var req, proof map[string]interface{}
	if err := json.Unmarshal([]byte(proofReqJSON), &req); err != nil {
		return false, fmt.Errorf("parse proof request: %w", err)
	}
	if err := json.Unmarshal([]byte(proofJSON), &proof); err != nil {
		return false, fmt.Errorf("parse proof: %w", err)
	}
	return len(proof) > 0, nil
}

var _ pool.Client = (*Ledger)(nil)
