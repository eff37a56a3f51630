package pool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchemaID(t *testing.T) {
	id := SchemaID("V4SGRU86Z58d6TV7PBUe6f", "email", "1.0")
	assert.Equal(t, "V4SGRU86Z58d6TV7PBUe6f:2:email:1.0", id)
}

func TestCredDefID(t *testing.T) {
	id := CredDefID("V4SGRU86Z58d6TV7PBUe6f", 15, "tag1")
	assert.Equal(t, "V4SGRU86Z58d6TV7PBUe6f:3:CL:15:tag1", id)
}

func TestSchemaKey(t *testing.T) {
	did, name, version, ok := SchemaKey("V4SGRU86Z58d6TV7PBUe6f:2:email:1.0")
	require.True(t, ok)
	assert.Equal(t, "V4SGRU86Z58d6TV7PBUe6f", did)
	assert.Equal(t, "email", name)
	assert.Equal(t, "1.0", version)

	_, _, _, ok = SchemaKey("V4SGRU86Z58d6TV7PBUe6f:3:CL:15:tag1")
	assert.False(t, ok)

	_, _, _, ok = SchemaKey("not-a-schema-id")
	assert.False(t, ok)
}

func TestSchemaSeqNo(t *testing.T) {
	seqNo, err := SchemaSeqNo(`{"id":"x","seqNo":42}`)
	require.NoError(t, err)
	assert.Equal(t, 42, seqNo)

	_, err = SchemaSeqNo(`{"id":"x"}`)
	assert.Error(t, err)

	_, err = SchemaSeqNo(`not json`)
	assert.Error(t, err)
}
