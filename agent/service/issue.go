package service

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"math/big"
	"strconv"

	"github.com/golang/glog"

	"github.com/vanir-network/vanir-agency/agent/cfg"
	"github.com/vanir-network/vanir-agency/agent/mesg"
	"github.com/vanir-network/vanir-agency/agent/pool"
)

// issueCredential runs the four step anoncreds pipeline over a holder
// connection: offer, request, create, store. Configuration problems are
// rejected before any ledger work starts; once the pipeline is running a
// failing step aborts the whole issuance, nothing is stored.
func (s *Service) issueCredential(req mesg.IssueCredentialReq) (stored mesg.StoredCredential, err error) {
	s.mu.Lock()
	conn, ok := s.conns[req.ConnectionID]
	var agent *cfg.AgentCfg
	if ok {
		agent = s.agents[conn.AgentID]
	}
	s.mu.Unlock()

	if !ok {
		return stored, fmt.Errorf("%w: connection ID not registered: %s",
			cfg.ErrConfig, req.ConnectionID)
	}
	if conn.Type != cfg.HolderConnection {
		return stored, fmt.Errorf("%w: connection %s cannot hold credentials",
			cfg.ErrConfig, req.ConnectionID)
	}

	s.mu.Lock()
	issuerOK := agent != nil && agent.Type == cfg.Issuer
	issuerSynced := agent != nil && agent.Synced
	connSynced := conn.Synced
	s.mu.Unlock()

	switch {
	case !issuerOK:
		return stored, fmt.Errorf("%w: agent %s is not an issuer",
			cfg.ErrConfig, conn.AgentID)
	case !issuerSynced:
		return stored, fmt.Errorf("%w: issuer %s is not synced",
			cfg.ErrConfig, conn.AgentID)
	case !connSynced:
		return stored, fmt.Errorf("%w: connection %s is not synced",
			cfg.ErrConfig, req.ConnectionID)
	}

	s.mu.Lock()
	ct := agent.FindCredType(req.SchemaName, req.SchemaVersion, req.OriginDID)
	var issuerWallet int
	if agent != nil {
		issuerWallet = agent.WalletHandle
	}
	holderWallet, holderDID, masterSecret :=
		conn.HolderWallet, conn.HolderDID, conn.MasterSecret
	s.mu.Unlock()

	if ct == nil || !ct.Published() {
		return stored, fmt.Errorf(
			"%w: no published credential type for schema %s (%s)",
			cfg.ErrConfig, req.SchemaName, req.SchemaVersion)
	}

	values, err := encodeCredValues(req.CredData)
	if err != nil {
		return stored, fmt.Errorf("%w: %v", cfg.ErrConfig, err)
	}

	glog.V(1).Infof("issuing %s (%s) over %s",
		req.SchemaName, req.SchemaVersion, req.ConnectionID)

	offer, err := s.client.CreateCredOffer(issuerWallet, ct.CredDefID)
	if err != nil {
		return stored, fmt.Errorf("%w: create offer: %v", cfg.ErrPipeline, err)
	}
	credReq, reqMeta, err := s.client.CreateCredRequest(
		holderWallet, holderDID, offer, ct.CredDef, masterSecret)
	if err != nil {
		return stored, fmt.Errorf("%w: create request: %v", cfg.ErrPipeline, err)
	}
	cred, err := s.client.CreateCred(issuerWallet, offer, credReq, values)
	if err != nil {
		return stored, fmt.Errorf("%w: create credential: %v", cfg.ErrPipeline, err)
	}
	credID, err := s.client.StoreCred(holderWallet, reqMeta, cred, ct.CredDef)
	if err != nil {
		return stored, fmt.Errorf("%w: store credential: %v", cfg.ErrPipeline, err)
	}

	glog.V(1).Infoln("issued credential:", credID)
	return mesg.StoredCredential{
		ConnectionID:  req.ConnectionID,
		SchemaName:    req.SchemaName,
		SchemaVersion: req.SchemaVersion,
		CredDefID:     ct.CredDefID,
		CredID:        credID,
		Cred:          cred,
	}, nil
}

// encodeCredValues turns plain attribute data into the raw plus encoded
// value form the anoncreds credential format requires. Integers in string
// form encode as themselves, everything else as the integer form of its
// SHA-256 digest.
func encodeCredValues(data map[string]string) (valuesJSON string, err error) {
	if len(data) == 0 {
		return "", fmt.Errorf("credential data is empty")
	}
	values := make(map[string]map[string]string, len(data))
	for name, raw := range data {
		values[name] = map[string]string{
			"raw":     raw,
			"encoded": encodeCredValue(raw),
		}
	}
	out, err := json.Marshal(values)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func encodeCredValue(raw string) string {
	if i, err := strconv.ParseInt(raw, 10, 32); err == nil {
		return strconv.FormatInt(i, 10)
	}
	digest := sha256.Sum256([]byte(raw))
	return new(big.Int).SetBytes(digest[:]).String()
}

// verifyProof checks a presented proof against its proof request, resolving
// referenced schemas and credential definitions from the registered
// credential types.
func (s *Service) verifyProof(req mesg.VerifyProofReq) (verified mesg.VerifiedProof, err error) {
	if req.ProofReq == "" || req.Proof == "" {
		return verified, fmt.Errorf("%w: proof request and proof are required",
			cfg.ErrConfig)
	}

	schemas, credDefs, err := s.knownArtifacts()
	if err != nil {
		return verified, err
	}

	valid, err := s.client.VerifyProof(req.ProofReq, req.Proof, schemas, credDefs)
	if err != nil {
		return verified, fmt.Errorf("%w: verify proof: %v", cfg.ErrPipeline, err)
	}
	glog.V(1).Infoln("proof verified:", valid)
	return mesg.VerifiedProof{Verified: valid, Proof: req.Proof}, nil
}

// knownArtifacts collects every published schema and credential definition
// into the ID keyed JSON maps the verifier call expects.
func (s *Service) knownArtifacts() (schemasJSON, credDefsJSON string, err error) {
	schemas := make(map[string]json.RawMessage)
	credDefs := make(map[string]json.RawMessage)

	s.mu.Lock()
	for _, a := range s.agents {
		for _, ct := range a.CredTypes {
			if !ct.Published() {
				continue
			}
			def := ct.Definition
			id := pool.SchemaID(def.OriginDID, def.Name, def.Version)
			schemas[id] = json.RawMessage(ct.LedgerSchema)
			credDefs[ct.CredDefID] = json.RawMessage(ct.CredDef)
		}
	}
	s.mu.Unlock()

	sOut, err := json.Marshal(schemas)
	if err != nil {
		return "", "", err
	}
	cdOut, err := json.Marshal(credDefs)
	if err != nil {
		return "", "", err
	}
	return string(sOut), string(cdOut), nil
}
