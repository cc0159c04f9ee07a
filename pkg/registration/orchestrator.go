// Package registration implements the two-phase register creation protocol:
// Initiate builds a canonical control record, hashes it, and holds both in a
// short-lived PendingRegistration; Finalize verifies a caller-supplied
// signature over that exact hash against the system wallet's public key and,
// only then, submits the register's genesis transaction.
package registration

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/StuartF303/sorcha/pkg/canon"
	"github.com/StuartF303/sorcha/pkg/ledger"
	"github.com/StuartF303/sorcha/pkg/sorchacrypto"
)

// canonicalHashToDigest decodes a "0x"-prefixed hex hash (as produced by
// canon.HashCanonical) back into the raw 32-byte SHA-256 digest the system
// wallet actually signs.
func canonicalHashToDigest(hash string) ([]byte, error) {
	return hex.DecodeString(strings.TrimPrefix(hash, "0x"))
}

const defaultTTL = 5 * time.Minute

var (
	ErrUnknownPending     = errors.New("registration: no pending registration for that id")
	ErrPendingExpired     = errors.New("registration: pending registration has expired")
	ErrHashMismatch       = errors.New("registration: attestation hash does not match the one signed at initiate")
	ErrSignatureInvalid   = errors.New("registration: system wallet signature failed verification")
	ErrNonceReplayed      = errors.New("registration: nonce has already been used for this register")
)

// SystemSigner is the external collaborator that holds the system wallet's
// private key material and signs on Sorcha's behalf; the orchestrator never
// sees raw key bytes.
type SystemSigner interface {
	Sign(ctx context.Context, digest []byte) (signature []byte, algorithm string, err error)
	PublicKey(ctx context.Context) (algorithm string, publicKey []byte, err error)
}

// Submitter hands a sealed genesis transaction to the validator's mempool;
// implemented by pkg/validator.Mempool in production wiring.
type Submitter interface {
	Submit(ctx context.Context, tx ledger.Transaction) error
}

// FinalizeObserver is notified after a register is successfully finalized;
// pkg/metrics implements this to drive its Prometheus counter without this
// package importing metrics.
type FinalizeObserver interface {
	ObserveRegistrationFinalized()
}

// Orchestrator runs the Initiate/Finalize protocol for one validator node.
// Per-register concurrency is unnecessary here because each pending
// registration is keyed by its own registerId; the shared map itself is
// guarded by a single mutex, following the mutex-guarded-map idiom used
// throughout this module's concurrency-sensitive components.
type Orchestrator struct {
	mu      sync.Mutex
	pending map[string]ledger.PendingRegistration
	usedNonces map[string]bool

	signer    SystemSigner
	submitter Submitter
	repo      ledger.RegisterRepository
	ttl       time.Duration
	logger    *log.Logger
	observer  FinalizeObserver
}

// WithObserver attaches a FinalizeObserver notified after each successful
// Finalize call.
func (o *Orchestrator) WithObserver(observer FinalizeObserver) *Orchestrator {
	o.observer = observer
	return o
}

type Config struct {
	TTL    time.Duration
	Logger *log.Logger
}

func NewOrchestrator(signer SystemSigner, submitter Submitter, repo ledger.RegisterRepository, cfg *Config) *Orchestrator {
	if cfg == nil {
		cfg = &Config{}
	}
	ttl := cfg.TTL
	if ttl == 0 {
		ttl = defaultTTL
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(log.Writer(), "[registration] ", log.LstdFlags)
	}
	return &Orchestrator{
		pending:    make(map[string]ledger.PendingRegistration),
		usedNonces: make(map[string]bool),
		signer:     signer,
		submitter:  submitter,
		repo:       repo,
		ttl:        ttl,
		logger:     logger,
	}
}

// Initiate builds the canonical control record for a new register (owner
// plus initial admins), computes its canonical hash, and holds both as a
// PendingRegistration until Finalize arrives or the TTL elapses. Nothing is
// signed here; the signature over the hash is supplied to Finalize.
func (o *Orchestrator) Initiate(ctx context.Context, ownerDID ledger.DID, initialAdmins []ledger.DID) (ledger.PendingRegistration, error) {
	if err := ctx.Err(); err != nil {
		return ledger.PendingRegistration{}, err
	}

	idBytes := make([]byte, 16)
	if _, err := rand.Read(idBytes); err != nil {
		return ledger.PendingRegistration{}, fmt.Errorf("registration: generate register id: %w", err)
	}
	registerID := hex.EncodeToString(idBytes)
	nonce := uuid.NewString()
	now := time.Now()

	attestations := make([]ledger.RegisterAttestation, 0, 1+len(initialAdmins))
	attestations = append(attestations, ledger.RegisterAttestation{Role: ledger.RoleOwner, Subject: ownerDID, GrantedAt: now})
	for _, admin := range initialAdmins {
		attestations = append(attestations, ledger.RegisterAttestation{Role: ledger.RoleAdmin, Subject: admin, GrantedAt: now})
	}

	record := ledger.RegisterControlRecord{
		RegisterID:   registerID,
		CreatedAt:    now,
		Attestations: attestations,
	}
	if err := record.Validate(); err != nil {
		return ledger.PendingRegistration{}, fmt.Errorf("registration: invalid control record: %w", err)
	}

	canonicalHash, err := canon.HashCanonical(record)
	if err != nil {
		return ledger.PendingRegistration{}, fmt.Errorf("registration: hash control record: %w", err)
	}

	o.mu.Lock()
	if o.usedNonces[nonce] {
		o.mu.Unlock()
		return ledger.PendingRegistration{}, ErrNonceReplayed
	}
	o.usedNonces[nonce] = true
	o.mu.Unlock()

	p := ledger.PendingRegistration{
		RegisterID:    registerID,
		Nonce:         nonce,
		ControlRecord: record,
		CanonicalHash: canonicalHash,
		CreatedAt:     now,
		ExpiresAt:     now.Add(o.ttl),
	}

	o.mu.Lock()
	o.pending[registerID] = p
	o.mu.Unlock()

	o.logger.Printf("initiated register %s (expires %s)", registerID, p.ExpiresAt.Format(time.RFC3339))
	return p, nil
}

// Finalize verifies the supplied signature, against the system wallet's
// public key, over the exact canonical hash produced at Initiate — the attestation bytes are never
// re-derived or re-canonicalized here, only looked up — and on success
// assembles and submits the genesis transaction, then discards the pending
// entry whether it succeeds or fails (a failed finalize cannot be retried
// with a mutated attestation).
func (o *Orchestrator) Finalize(ctx context.Context, registerID string, signature []byte, algorithm string) (ledger.Register, error) {
	if err := ctx.Err(); err != nil {
		return ledger.Register{}, err
	}

	o.mu.Lock()
	p, ok := o.pending[registerID]
	if ok {
		delete(o.pending, registerID)
	}
	o.mu.Unlock()

	if !ok {
		return ledger.Register{}, ErrUnknownPending
	}
	if time.Now().After(p.ExpiresAt) {
		return ledger.Register{}, ErrPendingExpired
	}

	_, systemPubKey, err := o.signer.PublicKey(ctx)
	if err != nil {
		return ledger.Register{}, fmt.Errorf("registration: load system wallet public key: %w", err)
	}

	digest, err := canonicalHashToDigest(p.CanonicalHash)
	if err != nil {
		return ledger.Register{}, fmt.Errorf("registration: decode canonical hash: %w", err)
	}
	// An ED25519 signature is made over the 32-byte digest itself, so the
	// digest is its message; the other algorithms check it as a pre-hash.
	preHashed := sorchacrypto.Algorithm(algorithm) != sorchacrypto.ED25519
	ok2, err := sorchacrypto.Verify(sorchacrypto.Algorithm(algorithm), systemPubKey, digest, signature, preHashed)
	if err != nil {
		return ledger.Register{}, fmt.Errorf("%w: %v", ErrSignatureInvalid, err)
	}
	if !ok2 {
		return ledger.Register{}, ErrSignatureInvalid
	}

	owner, ok := p.ControlRecord.Owner()
	if !ok {
		return ledger.Register{}, fmt.Errorf("registration: pending control record has no owner")
	}

	genesisTx := ledger.Transaction{
		ID:            uuid.NewString(),
		RegisterID:    registerID,
		Type:          ledger.TxGenesis,
		Priority:      ledger.PriorityHigh,
		SubmitterDID:  owner.Subject,
		ControlRecord: &p.ControlRecord,
		Signatures: []ledger.TransactionSignature{{
			SignerDID: owner.Subject,
			Algorithm: algorithm,
			Signature: signature,
			SignedAt:  time.Now(),
		}},
		SubmittedAt: time.Now(),
	}

	reg := ledger.Register{
		ID:        registerID,
		OwnerDID:  owner.Subject,
		CreatedAt: p.CreatedAt,
	}
	if err := o.repo.CreateRegister(ctx, reg); err != nil {
		return ledger.Register{}, fmt.Errorf("registration: create register: %w", err)
	}
	if err := o.submitter.Submit(ctx, genesisTx); err != nil {
		return ledger.Register{}, fmt.Errorf("registration: submit genesis transaction: %w", err)
	}

	if o.observer != nil {
		o.observer.ObserveRegistrationFinalized()
	}

	o.logger.Printf("finalized register %s", registerID)
	return reg, nil
}

// CleanupExpired removes pending registrations past their TTL and returns
// how many were swept, mirroring the periodic best-effort sweep this
// module's concurrency model calls for.
func (o *Orchestrator) CleanupExpired(now time.Time) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	removed := 0
	for id, p := range o.pending {
		if now.After(p.ExpiresAt) {
			delete(o.pending, id)
			removed++
		}
	}
	return removed
}

// Pending returns a snapshot of a still-live pending registration, mainly
// for tests and operator tooling.
func (o *Orchestrator) Pending(registerID string) (ledger.PendingRegistration, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	p, ok := o.pending[registerID]
	return p, ok
}
