// Package bootstrap joins the process to the ledger network: it makes sure
// the genesis transaction file exists locally (downloading it from the
// ledger server when needed) and implements the check-and-register protocol
// for agent DIDs against the ledger server's HTTP endpoints.
package bootstrap

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang/glog"
	"github.com/lainio/err2"
	"github.com/lainio/err2/try"
	"github.com/vanir-network/vanir-agency/agent/cfg"
)

// EnsureGenesis makes sure the genesis path is usable, downloading the
// transaction file from the ledger server when it doesn't exist yet. It
// returns the path the pool can be opened with.
func EnsureGenesis(path, ledgerURL string, timeout time.Duration) (genesisPath string, err error) {
	if path == "" {
		return "", fmt.Errorf("%w: missing genesis_path", cfg.ErrConfig)
	}
	info, statErr := os.Stat(path)
	switch {
	case statErr == nil && info.IsDir():
		return "", fmt.Errorf("%w: genesis_path must not point to a directory: %s",
			cfg.ErrConfig, path)
	case statErr == nil:
		return path, nil
	case !os.IsNotExist(statErr):
		return "", fmt.Errorf("%w: genesis_path: %v", cfg.ErrConfig, statErr)
	}
	if ledgerURL == "" {
		return "", fmt.Errorf(
			"%w: cannot retrieve genesis transactions without ledger_url",
			cfg.ErrConfig)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("%w: genesis dir: %v", cfg.ErrConfig, err)
	}
	if err := FetchGenesis(ledgerURL, path, timeout); err != nil {
		return "", err
	}
	return path, nil
}

// FetchGenesis downloads the genesis transaction file to target. The first
// response line must parse as JSON, a structural sanity check only. The
// file is written with O_EXCL: an existing file is never overwritten, and a
// partial write is removed so no torn file is left behind.
func FetchGenesis(ledgerURL, target string, timeout time.Duration) (err error) {
	defer err2.Handle(&err)

	url := strings.TrimSuffix(ledgerURL, "/") + "/genesis"
	glog.V(1).Infoln("fetching genesis transactions from", url)

	client := &http.Client{Timeout: timeout}
	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("%w: downloading genesis transactions: %v",
			cfg.ErrSync, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: downloading genesis transactions: status %d",
			cfg.ErrSync, resp.StatusCode)
	}
	data := try.To1(io.ReadAll(resp.Body))

	if !firstLineIsJSON(data) {
		return fmt.Errorf("%w: genesis transactions are not valid JSON",
			cfg.ErrSync)
	}

	f, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("%w: genesis file: %v", cfg.ErrSync, err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(target)
		return fmt.Errorf("%w: writing genesis file: %v", cfg.ErrSync, err)
	}
	return f.Close()
}

func firstLineIsJSON(data []byte) bool {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 1<<20), 1<<20)
	if !scanner.Scan() {
		return false
	}
	var txn map[string]interface{}
	if err := json.Unmarshal(scanner.Bytes(), &txn); err != nil {
		return false
	}
	return len(txn) > 0
}

// RegisterDID submits a DID, its verification key and role to the ledger
// server's registration endpoint. The ledger must echo the DID back,
// anything else fails the registration.
func RegisterDID(ledgerURL, did, verkey, role string, timeout time.Duration) (err error) {
	defer err2.Handle(&err)

	if ledgerURL == "" {
		return fmt.Errorf("%w: cannot register DID without ledger_url",
			cfg.ErrConfig)
	}
	glog.V(1).Infoln("registering DID", did)

	body := try.To1(json.Marshal(map[string]string{
		"did":    did,
		"verkey": verkey,
		"role":   role,
	}))

	client := &http.Client{Timeout: timeout}
	resp, err := client.Post(strings.TrimSuffix(ledgerURL, "/")+"/register",
		"application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: DID registration: %v", cfg.ErrSync, err)
	}
	defer resp.Body.Close()

	text := try.To1(io.ReadAll(resp.Body))
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: DID registration failed: %s",
			cfg.ErrSync, string(text))
	}
	var nym map[string]interface{}
	if err := json.Unmarshal(text, &nym); err != nil || nym["did"] == nil {
		return fmt.Errorf("%w: DID registration failed: %s",
			cfg.ErrSync, string(text))
	}
	glog.V(3).Infoln("registration response:", string(text))
	return nil
}

// LedgerStatus downloads the ledger server's status page as raw text.
func LedgerStatus(ledgerURL string, timeout time.Duration) (text string, err error) {
	defer err2.Handle(&err)

	if ledgerURL == "" {
		return "", fmt.Errorf("%w: missing ledger_url", cfg.ErrConfig)
	}
	client := &http.Client{Timeout: timeout}
	resp, err := client.Get(strings.TrimSuffix(ledgerURL, "/") + "/status")
	if err != nil {
		return "", fmt.Errorf("%w: ledger status: %v", cfg.ErrSync, err)
	}
	defer resp.Body.Close()

	data := try.To1(io.ReadAll(resp.Body))
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: ledger status: status %d",
			cfg.ErrSync, resp.StatusCode)
	}
	return string(data), nil
}
