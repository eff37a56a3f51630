// Package service implements the agency's service actor: the single entry
// point for all domain operations. It owns the resource registries, the
// synchronization engine advancing them against the ledger, and the
// credential issuance pipeline. Requests arrive through the exchange, are
// dispatched on their concrete variant and answered with exactly one
// response or Fail; registrations additionally signal the background sync
// worker, which is the only consumer of sync work.
package service

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/golang/glog"

	"github.com/vanir-network/vanir-agency/agent/bootstrap"
	"github.com/vanir-network/vanir-agency/agent/cfg"
	"github.com/vanir-network/vanir-agency/agent/didauth"
	"github.com/vanir-network/vanir-agency/agent/mesg"
	"github.com/vanir-network/vanir-agency/agent/pool"
	"github.com/vanir-network/vanir-agency/agent/utils"
)

// Config is the service's static configuration.
type Config struct {
	Name         string // service and pool name
	LedgerURL    string
	GenesisPath  string
	AutoRegister bool
	Timeout      time.Duration // ledger server HTTP timeout
}

// Service is the actor instance. Create with New, then Start the sync
// worker before sending requests through the exchange.
type Service struct {
	conf   Config
	client pool.Client

	mu      sync.Mutex
	wallets map[string]*cfg.WalletCfg
	agents  map[string]*cfg.AgentCfg
	conns   map[string]*cfg.ConnectionCfg

	opened      bool // pool opened, at most once per process
	genesisPath string

	syncCh chan struct{}
	done   chan struct{}
	once   sync.Once
}

func New(conf Config, client pool.Client) *Service {
	if conf.Timeout == 0 {
		conf.Timeout = utils.Settings.Timeout()
	}
	return &Service{
		conf:    conf,
		client:  client,
		wallets: make(map[string]*cfg.WalletCfg),
		agents:  make(map[string]*cfg.AgentCfg),
		conns:   make(map[string]*cfg.ConnectionCfg),
		syncCh:  make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
}

// Start launches the sync worker, the single consumer of scheduled sync
// passes.
func (s *Service) Start() {
	go s.syncWorker()
}

// Stop terminates the sync worker.
func (s *Service) Stop() {
	s.once.Do(func() { close(s.done) })
}

func (s *Service) syncWorker() {
	for {
		select {
		case <-s.done:
			return
		case <-s.syncCh:
			if _, err := s.Sync(); err != nil {
				glog.Warning("sync pass: ", err)
			}
		}
	}
}

// ScheduleSync requests a background sync pass without blocking. A pass
// already pending absorbs the request; every step re-checks entity state so
// coalescing is safe.
func (s *Service) ScheduleSync() {
	select {
	case s.syncCh <- struct{}{}:
	default:
	}
}

// Process dispatches one request to its handler. The request set is
// closed; an unknown variant returns nil which the exchange turns into a
// silent no-op.
func (s *Service) Process(req mesg.Request) mesg.Response {
	switch req := req.(type) {
	case mesg.RegisterWalletReq:
		return s.registerWallet(req)
	case mesg.RegisterAgentReq:
		return s.registerAgent(req)
	case mesg.RegisterConnectionReq:
		return s.registerConnection(req)
	case mesg.RegisterCredentialTypeReq:
		return s.registerCredType(req)
	case mesg.WalletStatusReq:
		return s.walletStatus(req.ID)
	case mesg.AgentStatusReq:
		return s.agentStatus(req.ID)
	case mesg.ConnectionStatusReq:
		return s.connectionStatus(req.ID)
	case mesg.SyncReq:
		s.ScheduleSync()
		return mesg.Ack{}
	case mesg.IssueCredentialReq:
		stored, err := s.issueCredential(req)
		if err != nil {
			return failOf(err)
		}
		return stored
	case mesg.VerifyProofReq:
		verified, err := s.verifyProof(req)
		if err != nil {
			return failOf(err)
		}
		return verified
	case mesg.LedgerStatusReq:
		text, err := bootstrap.LedgerStatus(s.conf.LedgerURL, s.conf.Timeout)
		if err != nil {
			return failOf(err)
		}
		return mesg.LedgerStatus{Text: text}
	}
	return nil
}

func failOf(err error) mesg.Fail {
	return mesg.Fail{Msg: err.Error()}
}

// MARK: registrations, the fast ledger-free path

func (s *Service) registerWallet(req mesg.RegisterWalletReq) mesg.Response {
	id, err := s.addWallet(req)
	if err != nil {
		return failOf(err)
	}
	s.ScheduleSync()
	return s.walletStatus(id)
}

func (s *Service) addWallet(req mesg.RegisterWalletReq) (id string, err error) {
	if req.Seed == "" {
		return "", fmt.Errorf("%w: wallet seed is required", cfg.ErrConfig)
	}
	if len(req.Seed) != didauth.SeedLength {
		return "", fmt.Errorf("%w: wallet seed must be %d characters",
			cfg.ErrConfig, didauth.SeedLength)
	}
	w := &cfg.WalletCfg{
		ID:   req.ID,
		Name: req.Name,
		Seed: req.Seed,
		Key:  req.Key,
	}
	if w.ID == "" {
		w.ID = "wallet-" + utils.UUID()
	}
	if w.Name == "" {
		w.Name = w.ID
	}
	if w.Key == "" {
		w.Key = utils.NewWalletKey()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.wallets[w.ID]; ok {
		return "", fmt.Errorf("%w: duplicate wallet ID: %s", cfg.ErrConfig, w.ID)
	}
	s.wallets[w.ID] = w
	glog.V(1).Infoln("registered wallet:", w.ID)
	return w.ID, nil
}

func (s *Service) registerAgent(req mesg.RegisterAgentReq) mesg.Response {
	id, err := s.addAgent(req)
	if err != nil {
		return failOf(err)
	}
	s.ScheduleSync()
	return s.agentStatus(id)
}

func (s *Service) addAgent(req mesg.RegisterAgentReq) (id string, err error) {
	agentType, err := cfg.ParseAgentType(req.AgentType)
	if err != nil {
		return "", err
	}
	a := &cfg.AgentCfg{
		ID:       req.ID,
		Type:     agentType,
		WalletID: req.WalletID,
		Role:     req.Role,
		Endpoint: req.Endpoint,
	}
	if a.ID == "" {
		a.ID = "agent-" + utils.UUID()
	}
	if a.Role == "" && a.Type == cfg.Issuer {
		a.Role = "TRUST_ANCHOR"
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.wallets[req.WalletID]; !ok {
		return "", fmt.Errorf("%w: wallet ID not registered: %s",
			cfg.ErrConfig, req.WalletID)
	}
	if _, ok := s.agents[a.ID]; ok {
		return "", fmt.Errorf("%w: duplicate agent ID: %s", cfg.ErrConfig, a.ID)
	}
	s.agents[a.ID] = a
	glog.V(1).Infoln("registered agent:", a.ID)
	return a.ID, nil
}

func (s *Service) registerConnection(req mesg.RegisterConnectionReq) mesg.Response {
	id, err := s.addConnection(req)
	if err != nil {
		return failOf(err)
	}
	s.ScheduleSync()
	return s.connectionStatus(id)
}

func (s *Service) addConnection(req mesg.RegisterConnectionReq) (id string, err error) {
	connType, err := cfg.ParseConnectionType(req.ConnectionType)
	if err != nil {
		return "", err
	}
	c := &cfg.ConnectionCfg{
		ID:       req.ID,
		Type:     connType,
		AgentID:  req.AgentID,
		Endpoint: req.Endpoint,
		Seed:     req.Seed,
		Key:      req.Key,
	}
	if c.ID == "" {
		c.ID = "connection-" + utils.UUID()
	}
	if c.Seed == "" {
		c.Seed = utils.NewSeed()
	}
	if c.Key == "" {
		c.Key = utils.NewWalletKey()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	agent, ok := s.agents[req.AgentID]
	if !ok {
		return "", fmt.Errorf("%w: agent ID not registered: %s",
			cfg.ErrConfig, req.AgentID)
	}
	if c.Type == cfg.HTTPConnection && c.Endpoint == "" {
		if agent.Endpoint == "" {
			return "", fmt.Errorf("%w: connection %s needs an endpoint",
				cfg.ErrConfig, c.ID)
		}
		c.Endpoint = agent.Endpoint
	}
	if _, ok := s.conns[c.ID]; ok {
		return "", fmt.Errorf("%w: duplicate connection ID: %s",
			cfg.ErrConfig, c.ID)
	}
	s.conns[c.ID] = c
	glog.V(1).Infoln("registered connection:", c.ID)
	return c.ID, nil
}

func (s *Service) registerCredType(req mesg.RegisterCredentialTypeReq) mesg.Response {
	if err := s.addCredType(req); err != nil {
		return failOf(err)
	}
	s.ScheduleSync()
	return mesg.Ack{}
}

func (s *Service) addCredType(req mesg.RegisterCredentialTypeReq) (err error) {
	if req.SchemaName == "" || req.SchemaVersion == "" {
		return fmt.Errorf("%w: schema name and version are required",
			cfg.ErrConfig)
	}
	if len(req.AttrNames) == 0 {
		return fmt.Errorf("%w: schema needs at least one attribute",
			cfg.ErrConfig)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	agent, ok := s.agents[req.IssuerID]
	if !ok {
		return fmt.Errorf("%w: agent ID not registered: %s",
			cfg.ErrConfig, req.IssuerID)
	}
	schema := cfg.SchemaCfg{
		Name:      req.SchemaName,
		Version:   req.SchemaVersion,
		AttrNames: req.AttrNames,
		OriginDID: req.OriginDID,
	}
	if err := agent.AddCredType(schema, req.Tag); err != nil {
		return err
	}
	glog.V(1).Infof("registered credential type %s/%s on %s",
		req.SchemaName, req.SchemaVersion, req.IssuerID)
	return nil
}

// MARK: status queries, always the last durably reached state

func (s *Service) walletStatus(id string) mesg.Response {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.wallets[id]
	if !ok {
		return mesg.Fail{Msg: "Unregistered wallet: " + id}
	}
	st := w.Status()
	return mesg.WalletStatus{ID: id, Created: st.Created, Error: st.Error}
}

func (s *Service) agentStatus(id string) mesg.Response {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.agents[id]
	if !ok {
		return mesg.Fail{Msg: "Unregistered agent: " + id}
	}
	st := a.Status()
	return mesg.AgentStatus{
		ID:         id,
		Created:    st.Created,
		Registered: st.Registered,
		Synced:     st.Synced,
		DID:        st.DID,
		Error:      st.Error,
	}
}

func (s *Service) connectionStatus(id string) mesg.Response {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.conns[id]
	if !ok {
		return mesg.Fail{Msg: "Unregistered connection: " + id}
	}
	st := c.Status()
	return mesg.ConnectionStatus{
		ID:      id,
		Created: st.Created,
		Opened:  st.Opened,
		Synced:  st.Synced,
		Error:   st.Error,
	}
}

// agentHTTPClient builds an HTTP client signing every request with the
// agent's identity key.
func (s *Service) agentHTTPClient(agentID string) (client *http.Client, err error) {
	s.mu.Lock()
	agent, ok := s.agents[agentID]
	var wallet *cfg.WalletCfg
	if ok {
		wallet = s.wallets[agent.WalletID]
	}
	s.mu.Unlock()

	if !ok || wallet == nil {
		return nil, fmt.Errorf("%w: unknown agent ID: %s", cfg.ErrConfig, agentID)
	}
	signer, err := didauth.NewSigner(agent.DID, wallet.Seed)
	if err != nil {
		return nil, err
	}
	return didauth.Client(signer, s.conf.Timeout), nil
}
