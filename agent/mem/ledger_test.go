package mem

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vanir-network/vanir-agency/agent/pool"
)

const testSeed = "000000000000000000000000Wallet01"

func newWallet(t *testing.T, l *Ledger, id string) int {
	t.Helper()
	require.NoError(t, l.CreateWallet(id, "key"))
	handle, err := l.OpenWallet(id, "key")
	require.NoError(t, err)
	return handle
}

func TestWalletLifecycle(t *testing.T) {
	l := New()
	require.NoError(t, l.CreateWallet("w1", "key"))
	require.NoError(t, l.CreateWallet("w1", "key")) // existing is not an error

	_, err := l.OpenWallet("w1", "wrong")
	assert.Error(t, err)
	_, err = l.OpenWallet("missing", "key")
	assert.Error(t, err)

	handle, err := l.OpenWallet("w1", "key")
	require.NoError(t, err)
	assert.Greater(t, handle, 0)
	assert.NoError(t, l.CloseWallet(handle))
}

func TestCreateDID(t *testing.T) {
	l := New()
	handle := newWallet(t, l, "w1")

	did, verkey, err := l.CreateDID(handle, testSeed)
	require.NoError(t, err)
	assert.NotEmpty(t, did)
	assert.NotEmpty(t, verkey)

	// same seed derives the same identity
	did2, _, err := l.CreateDID(handle, testSeed)
	require.NoError(t, err)
	assert.Equal(t, did, did2)

	_, _, err = l.CreateDID(999, testSeed)
	assert.Error(t, err)
}

func TestNyms(t *testing.T) {
	l := New()
	_, err := l.GetNym(0, "Th7MpTaRZVRYnPiabds81Y")
	assert.True(t, errors.Is(err, pool.ErrAbsentNym))

	l.RegisterNym("Th7MpTaRZVRYnPiabds81Y", "verkey")
	vk, err := l.GetNym(0, "Th7MpTaRZVRYnPiabds81Y")
	require.NoError(t, err)
	assert.Equal(t, "verkey", vk)
}

func TestSchemaRoundTrip(t *testing.T) {
	l := New()
	handle := newWallet(t, l, "w1")
	did, _, err := l.CreateDID(handle, testSeed)
	require.NoError(t, err)

	id := pool.SchemaID(did, "email", "1.0")
	_, err = l.GetSchema(did, id)
	assert.True(t, errors.Is(err, pool.ErrAbsentSchema))

	schemaJSON, err := l.SendSchema(handle, did, "email", "1.0", []string{"email"})
	require.NoError(t, err)
	seqNo, err := pool.SchemaSeqNo(schemaJSON)
	require.NoError(t, err)
	assert.Greater(t, seqNo, 0)

	got, err := l.GetSchema(did, id)
	require.NoError(t, err)
	assert.Equal(t, schemaJSON, got)
	assert.Equal(t, 1, l.Counters().SchemaSends)
}

func TestCredDefRoundTrip(t *testing.T) {
	l := New()
	handle := newWallet(t, l, "w1")
	did, _, err := l.CreateDID(handle, testSeed)
	require.NoError(t, err)
	schemaJSON, err := l.SendSchema(handle, did, "email", "1.0", []string{"email"})
	require.NoError(t, err)

	id, credDefJSON, err := l.SendCredDef(handle, did, schemaJSON, "tag1")
	require.NoError(t, err)
	assert.NotEmpty(t, credDefJSON)

	got, err := l.GetCredDef(did, id)
	require.NoError(t, err)
	assert.Equal(t, credDefJSON, got)

	_, err = l.GetCredDef(did, "missing")
	assert.True(t, errors.Is(err, pool.ErrAbsentCredDef))
}

func TestIssuanceFlow(t *testing.T) {
	l := New()
	issuer := newWallet(t, l, "issuer")
	holder := newWallet(t, l, "holder")

	did, _, err := l.CreateDID(issuer, testSeed)
	require.NoError(t, err)
	holderDID, _, err := l.CreateDID(holder, "000000000000000000000000Holder01")
	require.NoError(t, err)

	schemaJSON, err := l.SendSchema(issuer, did, "email", "1.0", []string{"email"})
	require.NoError(t, err)
	credDefID, credDef, err := l.SendCredDef(issuer, did, schemaJSON, "tag1")
	require.NoError(t, err)

	secret, err := l.CreateMasterSecret(holder, "secret1")
	require.NoError(t, err)

	offer, err := l.CreateCredOffer(issuer, credDefID)
	require.NoError(t, err)
	req, meta, err := l.CreateCredRequest(holder, holderDID, offer, credDef, secret)
	require.NoError(t, err)
	cred, err := l.CreateCred(issuer, offer, req, `{"email":{"raw":"x","encoded":"1"}}`)
	require.NoError(t, err)
	credID, err := l.StoreCred(holder, meta, cred, credDef)
	require.NoError(t, err)
	assert.NotEmpty(t, credID)

	stored := l.StoredCreds(holder)
	require.Len(t, stored, 1)
	var parsed map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(stored[0]), &parsed))
	assert.Equal(t, credDefID, parsed["cred_def_id"])
	assert.Equal(t, 1, l.Counters().CredStores)
}

func TestCreateCredRequestNeedsSecret(t *testing.T) {
	l := New()
	holder := newWallet(t, l, "holder")
	_, _, err := l.CreateCredRequest(holder, "did", `{}`, `{}`, "nope")
	assert.Error(t, err)
}

func TestFailCreateWallet(t *testing.T) {
	l := New()
	l.FailCreateWallet = true
	assert.Error(t, l.CreateWallet("w1", "key"))
	assert.Equal(t, 0, l.Counters().WalletCreates)

	l.FailCreateWallet = false
	require.NoError(t, l.CreateWallet("w1", "key"))
	require.NoError(t, l.CreateWallet("w1", "key")) // existing is not recounted
	assert.Equal(t, 1, l.Counters().WalletCreates)
}

func TestFailCreateCred(t *testing.T) {
	l := New()
	l.FailCreateCred = true
	_, err := l.CreateCred(0, `{}`, `{}`, `{}`)
	assert.Error(t, err)
}
