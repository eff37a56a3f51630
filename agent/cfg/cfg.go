// Package cfg holds the resource configurations the agency coordinates:
// wallets, agents, connections and the credential types an issuer agent
// publishes. The configs are plain state holders with monotonic lifecycle
// flags; all ledger I/O that materializes them lives in the service's sync
// engine. A config is added fast and in-memory when a registration request
// is handled, and advanced towards synced by later sync passes.
package cfg

import (
	"fmt"
)

// AgentType enumerates the capabilities of an agent. Capability checks are
// done against the type, never against attribute presence.
type AgentType int

const (
	NoAgent AgentType = iota
	Issuer
	Holder
	Verifier
)

func (t AgentType) String() string {
	return [...]string{"none", "issuer", "holder", "verifier"}[t]
}

// ParseAgentType converts the wire level agent type string to AgentType.
func ParseAgentType(s string) (t AgentType, err error) {
	switch s {
	case "issuer":
		return Issuer, nil
	case "holder":
		return Holder, nil
	case "verifier":
		return Verifier, nil
	}
	return NoAgent, fmt.Errorf("%w: unknown agent type: %s", ErrConfig, s)
}

// ConnectionType selects the connection's protocol implementation.
type ConnectionType int

const (
	NoConnection ConnectionType = iota

	// HolderConnection is a process local holder: its own wallet, DID and
	// master secret, able to run the holder side of issuance.
	HolderConnection

	// HTTPConnection is a remote counterpart reached over the agent's
	// signed HTTP transport.
	HTTPConnection
)

func (t ConnectionType) String() string {
	return [...]string{"none", "holder", "http"}[t]
}

func ParseConnectionType(s string) (t ConnectionType, err error) {
	switch s {
	case "holder":
		return HolderConnection, nil
	case "http":
		return HTTPConnection, nil
	}
	return NoConnection, fmt.Errorf("%w: unknown connection type: %s", ErrConfig, s)
}

// WalletCfg is a secret holding container config. Owned exclusively by the
// service's wallet registry. Never re-created once Created is set.
type WalletCfg struct {
	ID   string
	Name string
	Seed string // 32 character key material, used to derive the agent DID
	Key  string // wallet encryption key

	Created bool
	Handle  int // open wallet handle, valid only when Created

	LastError string
}

// WalletStatus is an immutable snapshot for status queries.
type WalletStatus struct {
	Created bool   `json:"created"`
	Error   string `json:"error,omitempty"`
}

func (w *WalletCfg) Status() WalletStatus {
	return WalletStatus{Created: w.Created, Error: w.LastError}
}

// SchemaCfg names a schema and its attributes. Immutable once registered.
type SchemaCfg struct {
	Name      string   `json:"name"`
	Version   string   `json:"version"`
	AttrNames []string `json:"attr_names"`
	OriginDID string   `json:"origin_did,omitempty"`
}

func (s SchemaCfg) Matches(name, version, originDID string) bool {
	if s.Name != name || s.Version != version {
		return false
	}
	return originDID == "" || s.OriginDID == "" || s.OriginDID == originDID
}

// CredTypeCfg is a schema definition plus its published ledger artifacts.
// LedgerSchema and CredDef start empty and are set exactly once by the sync
// engine, either found on the ledger or published there.
type CredTypeCfg struct {
	Definition SchemaCfg
	Tag        string

	LedgerSchema string // ledger schema JSON, includes seqNo
	CredDefID    string
	CredDef      string // ledger cred def JSON
}

// Published tells if both ledger artifacts exist for this credential type.
func (c *CredTypeCfg) Published() bool {
	return c.LedgerSchema != "" && c.CredDef != ""
}

// AgentCfg is an identity backed by a wallet. Creation order is strict:
// the wallet must be Created before the agent, the agent Registered before
// Synced, and Synced requires every credential type published.
type AgentCfg struct {
	ID       string
	Type     AgentType
	WalletID string
	Role     string
	Endpoint string // optional, HTTP connections default to it

	DID    string
	VerKey string

	CredTypes []*CredTypeCfg

	Created    bool
	Registered bool
	Synced     bool

	WalletHandle int // open handle of the owning wallet

	LastError string
}

// AgentStatus is an immutable snapshot for status queries.
type AgentStatus struct {
	Created    bool   `json:"created"`
	Registered bool   `json:"registered"`
	Synced     bool   `json:"synced"`
	DID        string `json:"did,omitempty"`
	Error      string `json:"error,omitempty"`
}

func (a *AgentCfg) Status() AgentStatus {
	return AgentStatus{
		Created:    a.Created,
		Registered: a.Registered,
		Synced:     a.Synced,
		DID:        a.DID,
		Error:      a.LastError,
	}
}

// AddCredType attaches a credential type to its issuer. The agent must be
// of issuer type; a duplicate schema reference is a configuration error.
func (a *AgentCfg) AddCredType(schema SchemaCfg, tag string) (err error) {
	if a.Type != Issuer {
		return fmt.Errorf("%w: cannot add credential type to %s agent: %s",
			ErrConfig, a.Type, a.ID)
	}
	if a.FindCredType(schema.Name, schema.Version, schema.OriginDID) != nil {
		return fmt.Errorf("%w: duplicate credential type: %s/%s",
			ErrConfig, schema.Name, schema.Version)
	}
	if tag == "" {
		tag = "tag1"
	}
	a.CredTypes = append(a.CredTypes, &CredTypeCfg{Definition: schema, Tag: tag})
	return nil
}

// FindCredType returns the credential type matching the schema reference,
// nil when not found.
func (a *AgentCfg) FindCredType(name, version, originDID string) *CredTypeCfg {
	for _, ct := range a.CredTypes {
		if ct.Definition.Matches(name, version, originDID) {
			return ct
		}
	}
	return nil
}

// ConnectionCfg is a relationship between a registered agent and a
// counterpart. It cannot be created before the owning agent is synced.
type ConnectionCfg struct {
	ID       string
	Type     ConnectionType
	AgentID  string
	Endpoint string // HTTP connections only
	Seed     string // holder connections: seed for the holder DID
	Key      string // holder connections: holder wallet key

	Created bool
	Opened  bool
	Synced  bool

	// holder side state, set during create/open of a holder connection
	HolderWallet int
	HolderDID    string
	MasterSecret string

	LastError string
}

// ConnectionStatus is an immutable snapshot for status queries.
type ConnectionStatus struct {
	Created bool   `json:"created"`
	Opened  bool   `json:"opened"`
	Synced  bool   `json:"synced"`
	Error   string `json:"error,omitempty"`
}

func (c *ConnectionCfg) Status() ConnectionStatus {
	return ConnectionStatus{
		Created: c.Created,
		Opened:  c.Opened,
		Synced:  c.Synced,
		Error:   c.LastError,
	}
}
