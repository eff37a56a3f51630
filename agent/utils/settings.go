package utils

import (
	"time"

	"github.com/golang/glog"
)

const HTTPReqTimeout = 30 * time.Second

var Settings = &Hub{}

// Hub is the process wide settings store. It is filled once at startup from
// the CLI/config layer and read everywhere else.
type Hub struct {
	serviceName string // name of this service, used as pool name and actor address

	ledgerURL   string // root address of the ledger server
	genesisPath string // filesystem path of the genesis transaction file

	autoRegister bool          // register missing DIDs on the ledger automatically
	timeout      time.Duration // timeout for ledger server HTTP requests

	syncInterval time.Duration // scheduled re-sync interval, zero disables
	versionInfo  string
}

func (h *Hub) SetServiceName(n string) {
	h.serviceName = n
}

func (h *Hub) ServiceName() string {
	if h.serviceName == "" && glog.V(3) {
		glog.Info("warning service name is empty")
	}
	return h.serviceName
}

func (h *Hub) SetLedgerURL(u string) {
	h.ledgerURL = u
}

func (h *Hub) LedgerURL() string {
	return h.ledgerURL
}

func (h *Hub) SetGenesisPath(p string) {
	h.genesisPath = p
}

func (h *Hub) GenesisPath() string {
	return h.genesisPath
}

func (h *Hub) SetAutoRegister(b bool) {
	h.autoRegister = b
}

func (h *Hub) AutoRegister() bool {
	return h.autoRegister
}

// SetTimeout sets the default timeout for ledger server HTTP requests.
func (h *Hub) SetTimeout(to time.Duration) {
	h.timeout = to
}

func (h *Hub) Timeout() time.Duration {
	if h.timeout == 0 {
		return HTTPReqTimeout
	}
	return h.timeout
}

func (h *Hub) SetSyncInterval(d time.Duration) {
	h.syncInterval = d
}

func (h *Hub) SyncInterval() time.Duration {
	return h.syncInterval
}

// SetVersionInfo sets current version info of this agency.
func (h *Hub) SetVersionInfo(info string) {
	h.versionInfo = info
}

func (h *Hub) VersionInfo() string {
	return h.versionInfo
}
