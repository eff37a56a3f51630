package utils

import (
	"crypto/rand"
	"encoding/hex"

	"github.com/google/uuid"
	"github.com/lainio/err2/try"
	"github.com/mr-tron/base58"
)

// Version is the current version of the agency.
var Version = "0.1.0"

// UUID generates a new unique ID with Go's crypto package, and returns the
// value as string.
func UUID() string {
	return uuid.New().String()
}

// NewSeed returns fresh 32 character key material for wallet and DID
// creation.
func NewSeed() string {
	b := make([]byte, 16)
	try.To1(rand.Read(b))
	return hex.EncodeToString(b)
}

// NewWalletKey returns a fresh raw wallet key in the base58 form the
// wallet's RAW key derivation expects.
func NewWalletKey() string {
	b := make([]byte, 32)
	try.To1(rand.Read(b))
	return base58.Encode(b)
}
