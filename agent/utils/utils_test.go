package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewSeed(t *testing.T) {
	s := NewSeed()
	assert.Len(t, s, 32)
	assert.NotEqual(t, s, NewSeed())
}

func TestNewWalletKey(t *testing.T) {
	k := NewWalletKey()
	assert.NotEmpty(t, k)
	assert.NotEqual(t, k, NewWalletKey())
}
