package registration

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"testing"
	"time"

	"github.com/StuartF303/sorcha/pkg/ledger"
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
	return ed25519.Sign(s.priv, digest), "ED25519", nil
}

func (s *fakeSigner) PublicKey(ctx context.Context) (string, []byte, error) {
	return "ED25519", []byte(s.pub), nil
}

type fakeSubmitter struct {
	submitted []ledger.Transaction
}

func (s *fakeSubmitter) Submit(ctx context.Context, tx ledger.Transaction) error {
	s.submitted = append(s.submitted, tx)
	return nil
}

func TestInitiateThenFinalizeHappyPath(t *testing.T) {
	ctx := context.Background()
	signer := newFakeSigner(t)
	submitter := &fakeSubmitter{}
	repo := ledger.NewMemStore()
	orch := NewOrchestrator(signer, submitter, repo, nil)

	pending, err := orch.Initiate(ctx, "w:owner", []ledger.DID{"w:alice"})
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}

	digest, err := canonicalHashToDigest(pending.CanonicalHash)
	if err != nil {
		t.Fatalf("decode hash: %v", err)
	}
	sig := ed25519.Sign(signer.priv, digest)

	reg, err := orch.Finalize(ctx, pending.RegisterID, sig, "ED25519")
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if reg.ID != pending.RegisterID {
		t.Fatalf("unexpected register id: %v", reg.ID)
	}
	if len(submitter.submitted) != 1 {
		t.Fatalf("expected 1 submitted genesis tx, got %d", len(submitter.submitted))
	}
	if submitter.submitted[0].Type != ledger.TxGenesis {
		t.Fatalf("expected genesis transaction, got %v", submitter.submitted[0].Type)
	}
}

func TestFinalizeRejectsTamperedSignature(t *testing.T) {
	ctx := context.Background()
	signer := newFakeSigner(t)
	orch := NewOrchestrator(signer, &fakeSubmitter{}, ledger.NewMemStore(), nil)

	pending, err := orch.Initiate(ctx, "w:owner", nil)
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}

	badSig := make([]byte, ed25519.SignatureSize)
	if _, err := orch.Finalize(ctx, pending.RegisterID, badSig, "ED25519"); err != ErrSignatureInvalid {
		t.Fatalf("expected ErrSignatureInvalid, got %v", err)
	}
}

func TestFinalizeUnknownPending(t *testing.T) {
	ctx := context.Background()
	orch := NewOrchestrator(newFakeSigner(t), &fakeSubmitter{}, ledger.NewMemStore(), nil)
	if _, err := orch.Finalize(ctx, "does-not-exist", nil, "ED25519"); err != ErrUnknownPending {
		t.Fatalf("expected ErrUnknownPending, got %v", err)
	}
}

func TestFinalizeExpiredPending(t *testing.T) {
	ctx := context.Background()
	signer := newFakeSigner(t)
	orch := NewOrchestrator(signer, &fakeSubmitter{}, ledger.NewMemStore(), &Config{TTL: time.Millisecond})

	pending, err := orch.Initiate(ctx, "w:owner", nil)
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}
	time.Sleep(5 * time.Millisecond)

	digest, _ := canonicalHashToDigest(pending.CanonicalHash)
	sig := ed25519.Sign(signer.priv, digest)
	if _, err := orch.Finalize(ctx, pending.RegisterID, sig, "ED25519"); err != ErrPendingExpired {
		t.Fatalf("expected ErrPendingExpired, got %v", err)
	}
}

func TestFinalizeConsumesPendingEvenOnFailure(t *testing.T) {
	ctx := context.Background()
	signer := newFakeSigner(t)
	orch := NewOrchestrator(signer, &fakeSubmitter{}, ledger.NewMemStore(), nil)

	pending, _ := orch.Initiate(ctx, "w:owner", nil)
	badSig := make([]byte, ed25519.SignatureSize)
	_, _ = orch.Finalize(ctx, pending.RegisterID, badSig, "ED25519")

	if _, ok := orch.Pending(pending.RegisterID); ok {
		t.Fatal("expected pending registration to be consumed even after a failed finalize")
	}
}

func TestCleanupExpiredSweepsPastTTL(t *testing.T) {
	ctx := context.Background()
	orch := NewOrchestrator(newFakeSigner(t), &fakeSubmitter{}, ledger.NewMemStore(), &Config{TTL: time.Millisecond})
	if _, err := orch.Initiate(ctx, "w:owner", nil); err != nil {
		t.Fatalf("initiate: %v", err)
	}
	time.Sleep(5 * time.Millisecond)

	removed := orch.CleanupExpired(time.Now())
	if removed != 1 {
		t.Fatalf("expected 1 expired entry swept, got %d", removed)
	}
}
