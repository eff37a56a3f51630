package bootstrap

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vanir-network/vanir-agency/agent/cfg"
)

const genesisTxn = `{"reqSignature":{},"txn":{"data":{"data":{"alias":"Node1"}},"type":"0"},"ver":"1"}`

func ledgerServer(t *testing.T, genesis string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/genesis", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, genesis)
	})
	mux.HandleFunc("/status", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, "von-network ready")
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestEnsureGenesisMissingPath(t *testing.T) {
	_, err := EnsureGenesis("", "http://localhost:9000", time.Second)
	require.Error(t, err)
	assert.True(t, errors.Is(err, cfg.ErrConfig))
}

func TestEnsureGenesisDirPath(t *testing.T) {
	_, err := EnsureGenesis(t.TempDir(), "http://localhost:9000", time.Second)
	require.Error(t, err)
	assert.True(t, errors.Is(err, cfg.ErrConfig))
}

func TestEnsureGenesisExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "genesis.txt")
	require.NoError(t, os.WriteFile(path, []byte(genesisTxn), 0o644))

	// no ledger URL needed when the file already exists
	got, err := EnsureGenesis(path, "", time.Second)
	require.NoError(t, err)
	assert.Equal(t, path, got)
}

func TestEnsureGenesisNoURL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "genesis.txt")
	_, err := EnsureGenesis(path, "", time.Second)
	require.Error(t, err)
	assert.True(t, errors.Is(err, cfg.ErrConfig))
}

func TestEnsureGenesisFetches(t *testing.T) {
	srv := ledgerServer(t, genesisTxn)
	path := filepath.Join(t.TempDir(), "ledger", "genesis.txt")

	got, err := EnsureGenesis(path, srv.URL, time.Second)
	require.NoError(t, err)
	assert.Equal(t, path, got)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, genesisTxn, string(data))
}

func TestFetchGenesisRejectsBadBody(t *testing.T) {
	srv := ledgerServer(t, "<html>not a ledger</html>")
	path := filepath.Join(t.TempDir(), "genesis.txt")

	err := FetchGenesis(srv.URL, path, time.Second)
	require.Error(t, err)
	assert.True(t, errors.Is(err, cfg.ErrSync))

	// nothing is left behind
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestFetchGenesisRejectsBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
	defer srv.Close()

	err := FetchGenesis(srv.URL, filepath.Join(t.TempDir(), "g.txt"), time.Second)
	require.Error(t, err)
	assert.True(t, errors.Is(err, cfg.ErrSync))
}

func TestFetchGenesisTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, _ *http.Request) {
			time.Sleep(200 * time.Millisecond)
		}))
	defer srv.Close()

	err := FetchGenesis(srv.URL, filepath.Join(t.TempDir(), "g.txt"),
		10*time.Millisecond)
	require.Error(t, err)
	assert.True(t, errors.Is(err, cfg.ErrSync))
}

func TestFetchGenesisNeverOverwrites(t *testing.T) {
	srv := ledgerServer(t, genesisTxn)
	path := filepath.Join(t.TempDir(), "genesis.txt")
	require.NoError(t, os.WriteFile(path, []byte("original"), 0o644))

	err := FetchGenesis(srv.URL, path, time.Second)
	require.Error(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "original", string(data))
}

func TestRegisterDID(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/register", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"did":"Th7MpTaRZVRYnPiabds81Y","seed":null}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	err := RegisterDID(srv.URL, "Th7MpTaRZVRYnPiabds81Y", "verkey",
		"TRUST_ANCHOR", time.Second)
	assert.NoError(t, err)
}

func TestRegisterDIDRejectsBadReply(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/register", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `ledger is read only`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	err := RegisterDID(srv.URL, "Th7MpTaRZVRYnPiabds81Y", "verkey", "", time.Second)
	require.Error(t, err)
	assert.True(t, errors.Is(err, cfg.ErrSync))
}

func TestRegisterDIDWithoutURL(t *testing.T) {
	err := RegisterDID("", "did", "verkey", "", time.Second)
	require.Error(t, err)
	assert.True(t, errors.Is(err, cfg.ErrConfig))
}

func TestLedgerStatus(t *testing.T) {
	srv := ledgerServer(t, genesisTxn)

	text, err := LedgerStatus(srv.URL, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "von-network ready", text)

	_, err = LedgerStatus("", time.Second)
	require.Error(t, err)
	assert.True(t, errors.Is(err, cfg.ErrConfig))
}
