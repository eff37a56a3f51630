// Package indy implements the pool.Client collaborator on top of the indy
// SDK through the findy Go wrapper. One Client per process; the pool handle
// is opened once and shared by every sync pass.
package indy

import (
	"encoding/json"
	"fmt"
	"sync"

	findy "github.com/findy-network/findy-wrapper-go"
	_ "github.com/findy-network/findy-wrapper-go/addons" // install ledger plugins
	"github.com/findy-network/findy-wrapper-go/anoncreds"
	"github.com/findy-network/findy-wrapper-go/did"
	"github.com/findy-network/findy-wrapper-go/ledger"
	indypool "github.com/findy-network/findy-wrapper-go/pool"
	"github.com/findy-network/findy-wrapper-go/wallet"
	"github.com/golang/glog"
	"github.com/lainio/err2"
	"github.com/lainio/err2/try"

	"github.com/vanir-network/vanir-agency/agent/pool"
)

const (
	walletAlreadyExistsError = 203
	poolProtocolVersion      = 2
)

// Client keeps the single shared pool handle. Safe for concurrent use.
type Client struct {
	mu     sync.Mutex
	handle int
}

func New() *Client {
	return &Client{}
}

func (c *Client) pool() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.handle
}

// Open opens the ledger connection. A pool config is created from the
// genesis file first; an existing config by the same name is reused.
func (c *Client) Open(name, genesisPath string) (err error) {
	defer err2.Handle(&err, "open pool")

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.handle != 0 {
		return nil
	}

	r := <-indypool.SetProtocolVersion(poolProtocolVersion)
	try.To(r.Err())

	r = <-indypool.CreateConfig(name, indypool.Config{GenesisTxn: genesisPath})
	if r.Err() != nil {
		// config exists from an earlier run, reuse it
		glog.V(3).Infoln("pool config:", r.Err())
	}

	r = <-indypool.OpenLedger(name)
	try.To(r.Err())
	c.handle = r.Handle()
	glog.V(1).Infoln("pool open, handle:", c.handle)
	return nil
}

func (c *Client) Close() (err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.handle == 0 {
		return nil
	}
	r := <-indypool.CloseLedger(c.handle)
	c.handle = 0
	return r.Err()
}

func (c *Client) CreateWallet(id, key string) (err error) {
	r := <-wallet.Create(cfgOf(id), credsOf(key))
	if r.Err() != nil && r.ErrCode() != walletAlreadyExistsError {
		return fmt.Errorf("create wallet %s: %w", id, r.Err())
	}
	return nil
}

func (c *Client) OpenWallet(id, key string) (handle int, err error) {
	r := <-wallet.Open(cfgOf(id), credsOf(key))
	if r.Err() != nil {
		return 0, fmt.Errorf("open wallet %s: %w", id, r.Err())
	}
	return r.Handle(), nil
}

func (c *Client) CloseWallet(handle int) error {
	r := <-wallet.Close(handle)
	return r.Err()
}

func (c *Client) CreateDID(w int, seed string) (didStr, verkey string, err error) {
	r := <-did.CreateAndStore(w, did.Did{Seed: seed})
	if r.Err() != nil {
		return "", "", fmt.Errorf("create DID: %w", r.Err())
	}
	return r.Str1(), r.Str2(), nil
}

func (c *Client) GetNym(w int, didStr string) (verkey string, err error) {
	r := <-did.Key(c.pool(), w, didStr)
	if r.Err() != nil || r.Str1() == "" {
		return "", fmt.Errorf("%w: %s", pool.ErrAbsentNym, didStr)
	}
	return r.Str1(), nil
}

func (c *Client) GetSchema(didStr, schemaID string) (schemaJSON string, err error) {
	_, schemaJSON, err = ledger.ReadSchema(c.pool(), didStr, schemaID)
	if err != nil || schemaJSON == "" {
		return "", fmt.Errorf("%w: %s", pool.ErrAbsentSchema, schemaID)
	}
	return schemaJSON, nil
}

func (c *Client) SendSchema(w int, didStr, name, version string, attrNames []string) (schemaJSON string, err error) {
	defer err2.Handle(&err, "send schema")

	attrs := try.To1(json.Marshal(attrNames))

	r := <-anoncreds.IssuerCreateSchema(didStr, name, version, string(attrs))
	try.To(r.Err())
	schemaID, schema := r.Str1(), r.Str2()

	try.To(ledger.WriteSchema(c.pool(), w, didStr, schema))

	// read back the ledger copy, it carries the sequence number
	_, schemaJSON = try.To2(ledger.ReadSchema(c.pool(), didStr, schemaID))
	return schemaJSON, nil
}

func (c *Client) GetCredDef(didStr, credDefID string) (credDefJSON string, err error) {
	_, credDefJSON, err = ledger.ReadCredDef(c.pool(), didStr, credDefID)
	if err != nil || credDefJSON == "" {
		return "", fmt.Errorf("%w: %s", pool.ErrAbsentCredDef, credDefID)
	}
	return credDefJSON, nil
}

func (c *Client) SendCredDef(w int, didStr, schemaJSON, tag string) (id, credDefJSON string, err error) {
	defer err2.Handle(&err, "send cred def")

	r := <-anoncreds.IssuerCreateAndStoreCredentialDef(
		w, didStr, schemaJSON, tag, findy.NullString, findy.NullString)
	try.To(r.Err())
	id, credDefJSON = r.Str1(), r.Str2()

	try.To(ledger.WriteCredDef(c.pool(), w, didStr, credDefJSON))
	return id, credDefJSON, nil
}

func (c *Client) CreateCredOffer(w int, credDefID string) (offerJSON string, err error) {
	r := <-anoncreds.IssuerCreateCredentialOffer(w, credDefID)
	if r.Err() != nil {
		return "", fmt.Errorf("create cred offer: %w", r.Err())
	}
	return r.Str1(), nil
}

func (c *Client) CreateMasterSecret(w int, id string) (secretID string, err error) {
	r := <-anoncreds.ProverCreateMasterSecret(w, id)
	if r.Err() != nil {
		return "", fmt.Errorf("create master secret: %w", r.Err())
	}
	return r.Str1(), nil
}

func (c *Client) CreateCredRequest(w int, proverDID, offerJSON, credDefJSON, masterSecretID string) (reqJSON, reqMetaJSON string, err error) {
	r := <-anoncreds.ProverCreateCredentialReq(
		w, proverDID, offerJSON, credDefJSON, masterSecretID)
	if r.Err() != nil {
		return "", "", fmt.Errorf("create cred request: %w", r.Err())
	}
	return r.Str1(), r.Str2(), nil
}

func (c *Client) CreateCred(w int, offerJSON, reqJSON, valuesJSON string) (credJSON string, err error) {
	r := <-anoncreds.IssuerCreateCredential(
		w, offerJSON, reqJSON, valuesJSON, findy.NullString, findy.NullHandle)
	if r.Err() != nil {
		return "", fmt.Errorf("create cred: %w", r.Err())
	}
	return r.Str1(), nil
}

func (c *Client) StoreCred(w int, reqMetaJSON, credJSON, credDefJSON string) (credID string, err error) {
	r := <-anoncreds.ProverStoreCredential(
		w, findy.NullString, reqMetaJSON, credJSON, credDefJSON, findy.NullString)
	if r.Err() != nil {
		return "", fmt.Errorf("store cred: %w", r.Err())
	}
	return r.Str1(), nil
}

func (c *Client) VerifyProof(proofReqJSON, proofJSON, schemasJSON, credDefsJSON string) (valid bool, err error) {
	r := <-anoncreds.VerifierVerifyProof(
		proofReqJSON, proofJSON, schemasJSON, credDefsJSON, "{}", "{}")
	if r.Err() != nil {
		return false, fmt.Errorf("verify proof: %w", r.Err())
	}
	return r.Yes(), nil
}

func cfgOf(id string) wallet.Config {
	return wallet.Config{ID: id}
}

func credsOf(key string) wallet.Credentials {
	return wallet.Credentials{Key: key, KeyDerivationMethod: "RAW"}
}

var _ pool.Client = (*Client)(nil)
