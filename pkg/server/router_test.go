package server

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/StuartF303/sorcha/pkg/governance"
	"github.com/StuartF303/sorcha/pkg/ledger"
	"github.com/StuartF303/sorcha/pkg/registration"
	"github.com/StuartF303/sorcha/pkg/sorchacrypto"
	"github.com/StuartF303/sorcha/pkg/validator"
)

type fakeSigner struct {
	pub  ed25519.PublicKey
	priv ed25519.PrivateKey
}

func newFakeSigner(t *testing.T) *fakeSigner {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return &fakeSigner{pub: pub, priv: priv}
}

func (s *fakeSigner) Sign(ctx context.Context, digest []byte) ([]byte, string, error) {
	return ed25519.Sign(s.priv, digest), string(sorchacrypto.ED25519), nil
}

func (s *fakeSigner) PublicKey(ctx context.Context) (string, []byte, error) {
	return string(sorchacrypto.ED25519), s.pub, nil
}

func newTestRouter(t *testing.T) (chi.Router, *fakeSigner, *validator.DocketBuilder) {
	t.Helper()
	repo := ledger.NewMemStore()
	mempool := validator.NewMempool()
	signer := newFakeSigner(t)
	orchestrator := registration.NewOrchestrator(signer, mempool, repo, nil)

	router := NewRouter(Dependencies{
		Repo:         repo,
		Orchestrator: orchestrator,
		Mempool:      mempool,
	})
	return router, signer, validator.NewDocketBuilder(mempool, repo)
}

func TestHealthEndpoint(t *testing.T) {
	router, _, _ := newTestRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestRegisterInitiateAndFinalize(t *testing.T) {
	router, signer, _ := newTestRouter(t)

	body, _ := json.Marshal(initiateRequest{OwnerDID: "w:owner1"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/registers/", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}

	var pending ledger.PendingRegistration
	if err := json.Unmarshal(rec.Body.Bytes(), &pending); err != nil {
		t.Fatalf("decode pending registration: %v", err)
	}

	digest, err := hex.DecodeString(strings.TrimPrefix(pending.CanonicalHash, "0x"))
	if err != nil {
		t.Fatalf("decode canonical hash: %v", err)
	}
	sig, alg, err := signer.Sign(context.Background(), digest)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	finBody, _ := json.Marshal(finalizeRequest{Signature: sig, Algorithm: alg})
	finReq := httptest.NewRequest(http.MethodPost, "/api/v1/registers/"+pending.RegisterID+"/finalize", bytes.NewReader(finBody))
	finRec := httptest.NewRecorder()
	router.ServeHTTP(finRec, finReq)
	if finRec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", finRec.Code, finRec.Body.String())
	}
}

// finalizeNewRegister drives a full initiate/finalize round trip, exercising
// the same path TestRegisterInitiateAndFinalize checks directly, then seals
// the genesis transaction into the register's first docket and returns the
// registerId, so governance tests can start from a real genesis roster
// rather than hand-built fixtures.
func finalizeNewRegister(t *testing.T, router chi.Router, signer *fakeSigner, builder *validator.DocketBuilder, ownerDID string) string {
	t.Helper()
	body, _ := json.Marshal(initiateRequest{OwnerDID: ledger.DID(ownerDID)})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/registers/", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}

	var pending ledger.PendingRegistration
	if err := json.Unmarshal(rec.Body.Bytes(), &pending); err != nil {
		t.Fatalf("decode pending registration: %v", err)
	}

	digest, err := hex.DecodeString(strings.TrimPrefix(pending.CanonicalHash, "0x"))
	if err != nil {
		t.Fatalf("decode canonical hash: %v", err)
	}
	sig, alg, err := signer.Sign(context.Background(), digest)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	finBody, _ := json.Marshal(finalizeRequest{Signature: sig, Algorithm: alg})
	finReq := httptest.NewRequest(http.MethodPost, "/api/v1/registers/"+pending.RegisterID+"/finalize", bytes.NewReader(finBody))
	finRec := httptest.NewRecorder()
	router.ServeHTTP(finRec, finReq)
	if finRec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", finRec.Code, finRec.Body.String())
	}
	if _, err := builder.Seal(context.Background(), pending.RegisterID); err != nil {
		t.Fatalf("seal genesis docket: %v", err)
	}
	return pending.RegisterID
}

func TestGovernanceGetRoster(t *testing.T) {
	router, signer, builder := newTestRouter(t)
	registerID := finalizeNewRegister(t, router, signer, builder, "w:owner1")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/governance/"+registerID+"/roster", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var roster ledger.AdminRoster
	if err := json.Unmarshal(rec.Body.Bytes(), &roster); err != nil {
		t.Fatalf("decode roster: %v", err)
	}
	owner, ok := roster.ControlRecord.Owner()
	if !ok || owner.Subject != "w:owner1" {
		t.Fatalf("expected w:owner1 as owner, got %+v", roster.ControlRecord)
	}
}

func TestGovernanceProposalOwnerOverrideAddsMember(t *testing.T) {
	router, signer, builder := newTestRouter(t)
	registerID := finalizeNewRegister(t, router, signer, builder, "w:owner1")

	now := time.Now()
	op := ledger.GovernanceOperation{
		OperationType: ledger.OpAdd,
		ProposerDID:   "w:owner1",
		TargetDID:     "w:admin1",
		TargetRole:    ledger.RoleAdmin,
		ProposedAt:    now,
		ExpiresAt:     now.Add(24 * time.Hour),
	}
	attestation := ledger.RegisterAttestation{Role: ledger.RoleAdmin, Subject: "w:admin1", GrantedAt: now}

	body, _ := json.Marshal(map[string]interface{}{
		"operation":   op,
		"approvals":   []ledger.ApprovalSignature{},
		"attestation": attestation,
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/governance/"+registerID+"/proposals", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Quorum governance.QuorumResult       `json:"quorum"`
		Roster *ledger.RegisterControlRecord `json:"roster"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode proposal response: %v", err)
	}
	if !resp.Quorum.IsOwnerOverride || !resp.Quorum.IsQuorumMet {
		t.Fatalf("expected owner override to satisfy quorum, got %+v", resp.Quorum)
	}
	if resp.Roster == nil || !resp.Roster.IsMember("w:admin1") {
		t.Fatalf("expected w:admin1 to be a roster member, got %+v", resp.Roster)
	}
}
