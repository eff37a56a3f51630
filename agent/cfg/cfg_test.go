package cfg

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAgentType(t *testing.T) {
	tests := []struct {
		in   string
		want AgentType
	}{
		{"issuer", Issuer},
		{"holder", Holder},
		{"verifier", Verifier},
	}
	for _, tt := range tests {
		got, err := ParseAgentType(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
		assert.Equal(t, tt.in, got.String())
	}

	_, err := ParseAgentType("steward")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConfig))
}

func TestParseConnectionType(t *testing.T) {
	got, err := ParseConnectionType("holder")
	require.NoError(t, err)
	assert.Equal(t, HolderConnection, got)

	got, err = ParseConnectionType("http")
	require.NoError(t, err)
	assert.Equal(t, HTTPConnection, got)

	_, err = ParseConnectionType("smtp")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConfig))
}

func TestAddCredType(t *testing.T) {
	a := &AgentCfg{ID: "a1", Type: Issuer}
	schema := SchemaCfg{
		Name:      "email",
		Version:   "1.0",
		AttrNames: []string{"email"},
	}

	require.NoError(t, a.AddCredType(schema, ""))
	require.Len(t, a.CredTypes, 1)
	assert.Equal(t, "tag1", a.CredTypes[0].Tag)

	err := a.AddCredType(schema, "tag2")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConfig))

	holder := &AgentCfg{ID: "a2", Type: Holder}
	err = holder.AddCredType(schema, "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConfig))
}

func TestFindCredType(t *testing.T) {
	a := &AgentCfg{ID: "a1", Type: Issuer}
	require.NoError(t, a.AddCredType(SchemaCfg{
		Name:      "email",
		Version:   "1.0",
		AttrNames: []string{"email"},
		OriginDID: "V4SGRU86Z58d6TV7PBUe6f",
	}, ""))

	assert.NotNil(t, a.FindCredType("email", "1.0", ""))
	assert.NotNil(t, a.FindCredType("email", "1.0", "V4SGRU86Z58d6TV7PBUe6f"))
	assert.Nil(t, a.FindCredType("email", "2.0", ""))
	assert.Nil(t, a.FindCredType("email", "1.0", "other"))
}

func TestCredTypePublished(t *testing.T) {
	ct := &CredTypeCfg{}
	assert.False(t, ct.Published())

	ct.LedgerSchema = `{"seqNo":12}`
	assert.False(t, ct.Published())

	ct.CredDef = `{"id":"x"}`
	assert.True(t, ct.Published())
}

func TestStatusSnapshots(t *testing.T) {
	w := &WalletCfg{ID: "w1", Created: true, LastError: "boom"}
	ws := w.Status()
	assert.True(t, ws.Created)
	assert.Equal(t, "boom", ws.Error)

	a := &AgentCfg{ID: "a1", Created: true, Registered: true, DID: "did"}
	as := a.Status()
	assert.True(t, as.Created)
	assert.True(t, as.Registered)
	assert.False(t, as.Synced)
	assert.Equal(t, "did", as.DID)

	c := &ConnectionCfg{ID: "c1", Created: true, Opened: true, Synced: true}
	cs := c.Status()
	assert.True(t, cs.Created && cs.Opened && cs.Synced)
}
