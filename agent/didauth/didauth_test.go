package didauth

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSeed = "000000000000000000000000Steward1"

func TestDIDFromSeed(t *testing.T) {
	did, verkey, err := DIDFromSeed(testSeed)
	require.NoError(t, err)
	assert.NotEmpty(t, did)
	assert.NotEmpty(t, verkey)

	// derivation is deterministic
	did2, verkey2, err := DIDFromSeed(testSeed)
	require.NoError(t, err)
	assert.Equal(t, did, did2)
	assert.Equal(t, verkey, verkey2)

	// different seed, different identity
	did3, _, err := DIDFromSeed("000000000000000000000000Steward2")
	require.NoError(t, err)
	assert.NotEqual(t, did, did3)
}

func TestKeyPairSeedLength(t *testing.T) {
	_, err := KeyPair("too-short")
	assert.Error(t, err)

	_, _, err = DIDFromSeed("")
	assert.Error(t, err)
}

func TestSignAndVerify(t *testing.T) {
	did, verkey, err := DIDFromSeed(testSeed)
	require.NoError(t, err)
	signer, err := NewSigner(did, testSeed)
	require.NoError(t, err)
	assert.Equal(t, "did:sov:"+did, signer.KeyID)

	req := httptest.NewRequest(http.MethodGet, "http://agency/status", nil)
	require.NoError(t, signer.Sign(req))
	assert.NotEmpty(t, req.Header.Get("Date"))
	assert.True(t, strings.HasPrefix(req.Header.Get("Authorization"), "Signature "))

	ok, err := Verify(req, verkey)
	require.NoError(t, err)
	assert.True(t, ok)

	// a tampered request no longer verifies
	req.Header.Set("Date", "Mon, 02 Jan 2006 15:04:05 GMT")
	ok, err = Verify(req, verkey)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerifyRejectsUnsigned(t *testing.T) {
	_, verkey, err := DIDFromSeed(testSeed)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "http://agency/status", nil)
	_, err = Verify(req, verkey)
	assert.Error(t, err)
}

func TestClientSignsRequests(t *testing.T) {
	did, verkey, err := DIDFromSeed(testSeed)
	require.NoError(t, err)
	signer, err := NewSigner(did, testSeed)
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			ok, err := Verify(r, verkey)
			require.NoError(t, err)
			assert.True(t, ok)
			w.WriteHeader(http.StatusOK)
		}))
	defer srv.Close()

	client := Client(signer, 5*time.Second)
	resp, err := client.Get(srv.URL + "/sync")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
