package service

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/findy-network/findy-common-go/dto"
	"github.com/golang/glog"

	"github.com/vanir-network/vanir-agency/agent/bootstrap"
	"github.com/vanir-network/vanir-agency/agent/cfg"
	"github.com/vanir-network/vanir-agency/agent/pool"
)

// Sync runs one full synchronization pass: pool, wallets, agents,
// connections, in dependency order. Every step checks current entity flags
// before acting, so the pass is idempotent and safe to re-run or overlap.
// It returns true only when every resource reached fully synced state; an
// incomplete pass (a deferred dependency) is not an error. The first sync
// error is returned after the pass has visited every resource, so one
// failing agent doesn't starve the rest.
func (s *Service) Sync() (synced bool, err error) {
	if err := s.setupPool(); err != nil {
		return false, err
	}

	synced = true
	for _, w := range s.walletList() {
		if !w.Created {
			werr := s.createWallet(w)
			s.noteWalletError(w, werr)
			if werr != nil {
				synced = false
				if err == nil {
					err = werr
				}
			}
		}
	}
	for _, a := range s.agentList() {
		ok, aerr := s.syncAgent(a)
		s.noteAgentError(a, aerr)
		if aerr != nil && err == nil {
			err = aerr
		}
		synced = synced && ok && aerr == nil
	}
	for _, c := range s.connectionList() {
		ok, cerr := s.syncConnection(c)
		s.noteConnectionError(c, cerr)
		if cerr != nil && err == nil {
			err = cerr
		}
		synced = synced && ok && cerr == nil
	}
	glog.V(1).Infoln("sync pass done, all synced:", synced)
	return synced, err
}

// setupPool resolves the genesis transaction file and opens the ledger
// pool. Done at most once per process; later passes reuse the open pool.
func (s *Service) setupPool() (err error) {
	s.mu.Lock()
	opened := s.opened
	s.mu.Unlock()
	if opened {
		return nil
	}

	genesisPath, err := bootstrap.EnsureGenesis(
		s.conf.GenesisPath, s.conf.LedgerURL, s.conf.Timeout)
	if err != nil {
		return err
	}
	if err := s.client.Open(s.conf.Name, genesisPath); err != nil {
		return fmt.Errorf("%w: open pool: %v", cfg.ErrSync, err)
	}

	s.mu.Lock()
	s.opened = true
	s.genesisPath = genesisPath
	s.mu.Unlock()
	return nil
}

func (s *Service) createWallet(w *cfg.WalletCfg) (err error) {
	s.mu.Lock()
	name, key := w.Name, w.Key
	s.mu.Unlock()

	if err := s.client.CreateWallet(name, key); err != nil {
		return fmt.Errorf("%w: wallet %s: %v", cfg.ErrSync, w.ID, err)
	}
	handle, err := s.client.OpenWallet(name, key)
	if err != nil {
		return fmt.Errorf("%w: wallet %s: %v", cfg.ErrSync, w.ID, err)
	}

	s.mu.Lock()
	w.Created = true
	w.Handle = handle
	s.mu.Unlock()
	glog.V(1).Infoln("wallet created:", w.ID)
	return nil
}

// syncAgent advances one agent towards synced: create its DID from the
// wallet seed, check or register its nym, publish every credential type.
// A missing wallet defers the agent to a later pass.
func (s *Service) syncAgent(a *cfg.AgentCfg) (done bool, err error) {
	s.mu.Lock()
	if a.Synced {
		s.mu.Unlock()
		return true, nil
	}
	created, registered := a.Created, a.Registered
	wallet := s.wallets[a.WalletID]
	s.mu.Unlock()

	if !created {
		s.mu.Lock()
		walletReady := wallet != nil && wallet.Created
		s.mu.Unlock()
		if !walletReady {
			glog.V(2).Infoln("deferring agent, wallet not ready:", a.ID)
			return false, nil
		}
		did, verkey, err := s.client.CreateDID(wallet.Handle, wallet.Seed)
		if err != nil {
			return false, fmt.Errorf("%w: create agent %s: %v",
				cfg.ErrSync, a.ID, err)
		}
		s.mu.Lock()
		a.DID, a.VerKey = did, verkey
		a.WalletHandle = wallet.Handle
		a.Created = true
		s.mu.Unlock()
	}

	// open: make sure we hold a live wallet handle
	s.mu.Lock()
	if a.WalletHandle == 0 && wallet != nil {
		a.WalletHandle = wallet.Handle
	}
	handle, did, verkey, role := a.WalletHandle, a.DID, a.VerKey, a.Role
	s.mu.Unlock()

	if !registered {
		if err := s.checkRegistration(handle, did, verkey, role); err != nil {
			return false, err
		}
		s.mu.Lock()
		a.Registered = true
		s.mu.Unlock()
	}

	for _, ct := range s.credTypeList(a) {
		if err := s.publishCredType(a, ct); err != nil {
			return false, err
		}
	}

	s.mu.Lock()
	a.Synced = true
	s.mu.Unlock()
	glog.V(1).Infoln("agent synced:", a.ID)
	return true, nil
}

// checkRegistration looks our nym up on the ledger and registers it through
// the ledger server when absent and auto-registration is enabled.
func (s *Service) checkRegistration(wallet int, did, verkey, role string) (err error) {
	glog.V(3).Infoln("checking DID registration:", did)

	_, err = s.client.GetNym(wallet, did)
	switch {
	case err == nil:
		return nil
	case !errors.Is(err, pool.ErrAbsentNym):
		return fmt.Errorf("%w: get nym %s: %v", cfg.ErrSync, did, err)
	case !s.conf.AutoRegister:
		return fmt.Errorf(
			"%w: DID %s is not registered on the ledger and auto-registration disabled",
			cfg.ErrSync, did)
	}
	return bootstrap.RegisterDID(s.conf.LedgerURL, did, verkey, role, s.conf.Timeout)
}

// publishCredType checks the ledger for the credential type's schema and
// definition, publishing whichever is absent. Both artifacts are written to
// the config exactly once; a later pass with both present does nothing.
func (s *Service) publishCredType(a *cfg.AgentCfg, ct *cfg.CredTypeCfg) (err error) {
	s.mu.Lock()
	if ct.Definition.OriginDID == "" {
		ct.Definition.OriginDID = a.DID
	}
	def := ct.Definition
	ledgerSchema, credDef := ct.LedgerSchema, ct.CredDef
	handle, did := a.WalletHandle, a.DID
	tag := ct.Tag
	s.mu.Unlock()

	if ledgerSchema == "" {
		glog.V(1).Infof("checking for schema: %s (%s)", def.Name, def.Version)
		schemaID := pool.SchemaID(def.OriginDID, def.Name, def.Version)
		ledgerSchema, err = s.client.GetSchema(did, schemaID)
		if errors.Is(err, pool.ErrAbsentSchema) {
			glog.V(1).Infof("publishing schema: %s (%s)", def.Name, def.Version)
			ledgerSchema, err = s.client.SendSchema(
				handle, did, def.Name, def.Version, def.AttrNames)
		}
		if err != nil {
			return fmt.Errorf("%w: schema %s/%s: %v",
				cfg.ErrSync, def.Name, def.Version, err)
		}
		if _, err := pool.SchemaSeqNo(ledgerSchema); err != nil {
			return fmt.Errorf("%w: schema was not published to ledger: %v",
				cfg.ErrSync, err)
		}
		s.mu.Lock()
		ct.LedgerSchema = ledgerSchema
		s.mu.Unlock()
	}

	if credDef == "" {
		glog.V(1).Infof("checking for cred def: %s (%s)", def.Name, def.Version)
		seqNo, err := pool.SchemaSeqNo(ledgerSchema)
		if err != nil {
			return fmt.Errorf("%w: %v", cfg.ErrSync, err)
		}
		credDefID := pool.CredDefID(did, seqNo, tag)
		credDef, err = s.client.GetCredDef(did, credDefID)
		if errors.Is(err, pool.ErrAbsentCredDef) {
			glog.V(1).Infof("publishing cred def: %s (%s)", def.Name, def.Version)
			credDefID, credDef, err = s.client.SendCredDef(
				handle, did, ledgerSchema, tag)
		}
		if err != nil {
			return fmt.Errorf("%w: cred def %s/%s: %v",
				cfg.ErrSync, def.Name, def.Version, err)
		}
		s.mu.Lock()
		ct.CredDefID = credDefID
		ct.CredDef = credDef
		s.mu.Unlock()
	}
	return nil
}

// syncConnection advances one connection: created when its owning agent is
// synced, opened, then the connection type's own sync step. An unsynced
// agent defers the connection to a later pass.
func (s *Service) syncConnection(c *cfg.ConnectionCfg) (done bool, err error) {
	s.mu.Lock()
	if c.Synced {
		s.mu.Unlock()
		return true, nil
	}
	agent := s.agents[c.AgentID]
	agentSynced := agent != nil && agent.Synced
	created, opened := c.Created, c.Opened
	s.mu.Unlock()

	if agent == nil {
		return false, fmt.Errorf("%w: agent ID not registered: %s",
			cfg.ErrConfig, c.AgentID)
	}

	if !created {
		if !agentSynced {
			glog.V(2).Infoln("deferring connection, agent not synced:", c.ID)
			return false, nil
		}
		if err := s.createConnection(c); err != nil {
			return false, err
		}
	}
	if !opened {
		if err := s.openConnection(c, agent); err != nil {
			return false, err
		}
	}
	if err := s.finishConnectionSync(c, agent); err != nil {
		return false, err
	}
	glog.V(1).Infoln("connection synced:", c.ID)
	return true, nil
}

func (s *Service) createConnection(c *cfg.ConnectionCfg) (err error) {
	switch c.Type {
	case cfg.HolderConnection:
		walletID := c.ID + "-holder"
		if err := s.client.CreateWallet(walletID, c.Key); err != nil {
			return fmt.Errorf("%w: %v", cfg.ErrSync, err)
		}
		handle, err := s.client.OpenWallet(walletID, c.Key)
		if err != nil {
			return fmt.Errorf("%w: %v", cfg.ErrSync, err)
		}
		did, _, err := s.client.CreateDID(handle, c.Seed)
		if err != nil {
			return fmt.Errorf("%w: %v", cfg.ErrSync, err)
		}
		s.mu.Lock()
		c.HolderWallet = handle
		c.HolderDID = did
		c.Created = true
		s.mu.Unlock()

	case cfg.HTTPConnection:
		s.mu.Lock()
		c.Created = true
		s.mu.Unlock()
	}
	return nil
}

func (s *Service) openConnection(c *cfg.ConnectionCfg, agent *cfg.AgentCfg) (err error) {
	switch c.Type {
	case cfg.HolderConnection:
		secretID, err := s.client.CreateMasterSecret(c.HolderWallet, c.ID)
		if err != nil {
			return fmt.Errorf("%w: %v", cfg.ErrSync, err)
		}
		s.mu.Lock()
		c.MasterSecret = secretID
		c.Opened = true
		s.mu.Unlock()

	case cfg.HTTPConnection:
		client, err := s.agentHTTPClient(agent.ID)
		if err != nil {
			return err
		}
		resp, err := client.Get(strings.TrimSuffix(c.Endpoint, "/") + "/status")
		if err != nil {
			return fmt.Errorf("%w: connection endpoint: %v", cfg.ErrSync, err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("%w: connection endpoint: status %d",
				cfg.ErrSync, resp.StatusCode)
		}
		s.mu.Lock()
		c.Opened = true
		s.mu.Unlock()
	}
	return nil
}

// connectionCatalog is the issuer metadata an HTTP counterpart receives
// during connection sync.
type connectionCatalog struct {
	ConnectionID string              `json:"connection_id"`
	IssuerDID    string              `json:"issuer_did"`
	CredTypes    []connectionCatItem `json:"credential_types"`
}

type connectionCatItem struct {
	SchemaName    string `json:"schema_name"`
	SchemaVersion string `json:"schema_version"`
	OriginDID     string `json:"origin_did"`
	CredDefID     string `json:"cred_def_id"`
}

func (s *Service) finishConnectionSync(c *cfg.ConnectionCfg, agent *cfg.AgentCfg) (err error) {
	switch c.Type {
	case cfg.HolderConnection:
		// nothing protocol specific for a local holder

	case cfg.HTTPConnection:
		catalog := connectionCatalog{ConnectionID: c.ID}
		s.mu.Lock()
		catalog.IssuerDID = agent.DID
		for _, ct := range agent.CredTypes {
			catalog.CredTypes = append(catalog.CredTypes, connectionCatItem{
				SchemaName:    ct.Definition.Name,
				SchemaVersion: ct.Definition.Version,
				OriginDID:     ct.Definition.OriginDID,
				CredDefID:     ct.CredDefID,
			})
		}
		endpoint := strings.TrimSuffix(c.Endpoint, "/")
		s.mu.Unlock()

		client, err := s.agentHTTPClient(agent.ID)
		if err != nil {
			return err
		}
		resp, err := client.Post(endpoint+"/sync", "application/json",
			strings.NewReader(dto.ToJSON(catalog)))
		if err != nil {
			return fmt.Errorf("%w: connection sync: %v", cfg.ErrSync, err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("%w: connection sync: status %d",
				cfg.ErrSync, resp.StatusCode)
		}
	}

	s.mu.Lock()
	c.Synced = true
	s.mu.Unlock()
	return nil
}

// MARK: registry snapshots and error notes

func (s *Service) walletList() []*cfg.WalletCfg {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*cfg.WalletCfg, 0, len(s.wallets))
	for _, w := range s.wallets {
		out = append(out, w)
	}
	return out
}

func (s *Service) agentList() []*cfg.AgentCfg {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*cfg.AgentCfg, 0, len(s.agents))
	for _, a := range s.agents {
		out = append(out, a)
	}
	return out
}

func (s *Service) connectionList() []*cfg.ConnectionCfg {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*cfg.ConnectionCfg, 0, len(s.conns))
	for _, c := range s.conns {
		out = append(out, c)
	}
	return out
}

func (s *Service) credTypeList(a *cfg.AgentCfg) []*cfg.CredTypeCfg {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*cfg.CredTypeCfg, len(a.CredTypes))
	copy(out, a.CredTypes)
	return out
}

func (s *Service) noteWalletError(w *cfg.WalletCfg, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w.LastError = errText(err)
}

func (s *Service) noteAgentError(a *cfg.AgentCfg, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a.LastError = errText(err)
}

func (s *Service) noteConnectionError(c *cfg.ConnectionCfg, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.LastError = errText(err)
}

func errText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
