// Package didauth implements the per agent signed HTTP transport. Outgoing
// requests carry an HTTP Signature built from the agent's ed25519 key,
// which is derived from the owning wallet's seed the same way the agent's
// ledger DID is. The counterpart can resolve the key ID (did:sov:<did>) to
// the agent's verkey on the ledger and verify.
package didauth

import (
	"crypto/ed25519"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/lainio/err2"
	"github.com/lainio/err2/try"
	"github.com/mr-tron/base58"
)

const (
	// SeedLength is the required key material length, bytes.
	SeedLength = 32

	signedHeaders = "(request-target) date"
)

// KeyPair derives the agent's ed25519 key pair from wallet seed material.
func KeyPair(seed string) (priv ed25519.PrivateKey, err error) {
	if len(seed) != SeedLength {
		return nil, fmt.Errorf("seed must be %d characters, got %d",
			SeedLength, len(seed))
	}
	return ed25519.NewKeyFromSeed([]byte(seed)), nil
}

// DIDFromSeed derives the DID and verkey the ledger will know this seed by:
// the DID is the base58 of the first 16 bytes of the public key, the verkey
// the base58 of the whole key.
func DIDFromSeed(seed string) (did, verkey string, err error) {
	defer err2.Handle(&err, "derive did")

	priv := try.To1(KeyPair(seed))
	pub := priv.Public().(ed25519.PublicKey)
	return base58.Encode(pub[:16]), base58.Encode(pub), nil
}

// Signer signs outgoing HTTP requests with an agent identity.
type Signer struct {
	KeyID string // did:sov:<did>
	priv  ed25519.PrivateKey
}

// NewSigner builds a Signer for the agent DID from its wallet seed.
func NewSigner(did, seed string) (s *Signer, err error) {
	defer err2.Handle(&err, "new signer")

	priv := try.To1(KeyPair(seed))
	return &Signer{KeyID: "did:sov:" + did, priv: priv}, nil
}

// Sign adds the Date header when missing and attaches the Signature
// authorization header covering the request target and date.
func (s *Signer) Sign(req *http.Request) error {
	if req.Header.Get("Date") == "" {
		req.Header.Set("Date", time.Now().UTC().Format(http.TimeFormat))
	}
	sig := ed25519.Sign(s.priv, []byte(signingString(req)))
	req.Header.Set("Authorization", fmt.Sprintf(
		`Signature keyId="%s",algorithm="ed25519",headers="%s",signature="%s"`,
		s.KeyID, signedHeaders, base64.StdEncoding.EncodeToString(sig)))
	return nil
}

// Verify checks a signature produced by Sign against the agent's verkey.
// Used by tests and by counterpart services consuming our requests.
func Verify(req *http.Request, verkey string) (ok bool, err error) {
	defer err2.Handle(&err, "verify signature")

	pub := try.To1(base58.Decode(verkey))
	auth := req.Header.Get("Authorization")
	const mark = `signature="`
	i := strings.Index(auth, mark)
	if i < 0 {
		return false, fmt.Errorf("no signature in request")
	}
	sigB64 := strings.TrimSuffix(auth[i+len(mark):], `"`)
	sig := try.To1(base64.StdEncoding.DecodeString(sigB64))
	return ed25519.Verify(pub, []byte(signingString(req)), sig), nil
}

func signingString(req *http.Request) string {
	target := strings.ToLower(req.Method) + " " + req.URL.RequestURI()
	return "(request-target): " + target + "\ndate: " + req.Header.Get("Date")
}

type transport struct {
	base   http.RoundTripper
	signer *Signer
}

func (t *transport) RoundTrip(req *http.Request) (*http.Response, error) {
	signed := req.Clone(req.Context())
	if err := t.signer.Sign(signed); err != nil {
		return nil, err
	}
	return t.base.RoundTrip(signed)
}

// Client returns an HTTP client which signs every request with the given
// agent identity.
func Client(signer *Signer, timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: &transport{base: http.DefaultTransport, signer: signer},
	}
}
