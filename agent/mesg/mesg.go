// Package mesg declares the typed request/response protocol of the agency
// service. The variant sets are closed: both interfaces carry an unexported
// marker method, so the dispatcher's type switch covers every possible
// variant at compile time. Each request maps to exactly one response or one
// Fail, never both and never neither; the lone exception is an unknown
// variant which yields no reply at all.
package mesg

// Request is the closed set of messages a service accepts.
type Request interface {
	request()
}

// Response is the closed set of messages a service replies with.
type Response interface {
	response()
}

// Ack acknowledges a request with no other payload.
type Ack struct{}

// Fail carries a human readable failure message. There are no structured
// error codes at this layer; callers match on the response variant.
type Fail struct {
	Msg string `json:"msg"`
}

// RegisterWalletReq adds a wallet configuration. The slow ledger
// materialization happens in background sync passes.
type RegisterWalletReq struct {
	ID   string `json:"id,omitempty"` // generated when empty
	Name string `json:"name"`
	Seed string `json:"seed"`
	Key  string `json:"key"`
}

// WalletStatus is the reply to wallet registrations and status queries.
type WalletStatus struct {
	ID      string `json:"id"`
	Created bool   `json:"created"`
	Error   string `json:"error,omitempty"`
}

// RegisterAgentReq adds an agent configuration on a registered wallet.
type RegisterAgentReq struct {
	ID        string `json:"id,omitempty"` // generated when empty
	AgentType string `json:"agent_type"`   // issuer, holder or verifier
	WalletID  string `json:"wallet_id"`
	Role      string `json:"role,omitempty"`
	Endpoint  string `json:"endpoint,omitempty"`
}

// AgentStatus is the reply to agent registrations and status queries.
type AgentStatus struct {
	ID         string `json:"id"`
	Created    bool   `json:"created"`
	Registered bool   `json:"registered"`
	Synced     bool   `json:"synced"`
	DID        string `json:"did,omitempty"`
	Error      string `json:"error,omitempty"`
}

// RegisterConnectionReq adds a connection configuration on a registered
// agent.
type RegisterConnectionReq struct {
	ID             string `json:"id,omitempty"` // generated when empty
	ConnectionType string `json:"connection_type"`
	AgentID        string `json:"agent_id"`
	Endpoint       string `json:"endpoint,omitempty"`
	Seed           string `json:"seed,omitempty"`
	Key            string `json:"key,omitempty"`
}

// ConnectionStatus is the reply to connection registrations and status
// queries.
type ConnectionStatus struct {
	ID      string `json:"id"`
	Created bool   `json:"created"`
	Opened  bool   `json:"opened"`
	Synced  bool   `json:"synced"`
	Error   string `json:"error,omitempty"`
}

// RegisterCredentialTypeReq attaches a schema to an issuer agent.
type RegisterCredentialTypeReq struct {
	IssuerID      string   `json:"issuer_id"`
	SchemaName    string   `json:"schema_name"`
	SchemaVersion string   `json:"schema_version"`
	OriginDID     string   `json:"origin_did,omitempty"`
	AttrNames     []string `json:"attr_names"`
	Tag           string   `json:"tag,omitempty"`
}

// Status queries. Callers poll these until the resource reports synced.
type (
	WalletStatusReq     struct{ ID string }
	AgentStatusReq      struct{ ID string }
	ConnectionStatusReq struct{ ID string }
)

// SyncReq triggers a full sync pass explicitly. Registrations schedule one
// on their own; this is the external retry mechanism.
type SyncReq struct{}

// IssueCredentialReq drives offer, request, issuance and storage of one
// credential over a synced connection.
type IssueCredentialReq struct {
	ConnectionID  string            `json:"connection_id"`
	SchemaName    string            `json:"schema_name"`
	SchemaVersion string            `json:"schema_version"`
	OriginDID     string            `json:"origin_did,omitempty"`
	CredData      map[string]string `json:"cred_data"`
}

// StoredCredential is the storage acknowledgment of the final issuance
// step.
type StoredCredential struct {
	ConnectionID  string `json:"connection_id"`
	SchemaName    string `json:"schema_name"`
	SchemaVersion string `json:"schema_version"`
	CredDefID     string `json:"cred_def_id"`
	CredID        string `json:"cred_id"`
	Cred          string `json:"cred"` // credential JSON as stored
}

// VerifyProofReq verifies a proof against a proof request with the
// service's generic verifier agent.
type VerifyProofReq struct {
	ProofReq string `json:"proof_req"` // proof request JSON
	Proof    string `json:"proof"`     // proof JSON
}

// VerifiedProof carries the verification verdict.
type VerifiedProof struct {
	Verified bool   `json:"verified"`
	Proof    string `json:"proof"`
}

// LedgerStatusReq fetches the ledger server's status page.
type LedgerStatusReq struct{}

// LedgerStatus carries the raw status payload.
type LedgerStatus struct {
	Text string `json:"text"`
}

func (RegisterWalletReq) request()         {}
func (RegisterAgentReq) request()          {}
func (RegisterConnectionReq) request()     {}
func (RegisterCredentialTypeReq) request() {}
func (WalletStatusReq) request()           {}
func (AgentStatusReq) request()            {}
func (ConnectionStatusReq) request()       {}
func (SyncReq) request()                   {}
func (IssueCredentialReq) request()        {}
func (VerifyProofReq) request()            {}
func (LedgerStatusReq) request()           {}

func (Ack) response()              {}
func (Fail) response()             {}
func (WalletStatus) response()     {}
func (AgentStatus) response()      {}
func (ConnectionStatus) response() {}
func (StoredCredential) response() {}
func (VerifiedProof) response()    {}
func (LedgerStatus) response()     {}
