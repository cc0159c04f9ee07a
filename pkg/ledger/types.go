// Package ledger defines Sorcha's core data model — registers, the
// governance roster that controls them, transactions, and the hash-chained
// dockets that seal them — along with the repository contract every storage
// backend (in-memory or Postgres) must satisfy.
package ledger

import (
	"errors"
	"fmt"
	"time"
)

// DID identifies either a wallet ("w:<address>") or a specific register
// transaction ("r:<registerId>:t:<txId>"). Resolution is handled by
// pkg/did; this type is just the wire/storage representation.
type DID string

// Priority classes transactions are admitted and ordered under in the
// mempool. Genesis transactions are always High priority.
type Priority int

const (
	PriorityLow Priority = iota
	PriorityNormal
	PriorityHigh
)

// Role is the authority an attestation grants its subject over a register.
// Owner and Admin may propose and approve governance operations; Auditor is
// read-only and never counts toward quorum.
type Role string

const (
	RoleOwner   Role = "Owner"
	RoleAdmin   Role = "Admin"
	RoleAuditor Role = "Auditor"
)

// maxAttestations bounds a register's roster size (spec invariant 4).
const maxAttestations = 25

// RegisterAttestation binds one subject DID to a role, the key material that
// authorizes it to sign future control transactions, and the signature that
// granted it.
type RegisterAttestation struct {
	Role      Role      `json:"role"`
	Subject   DID       `json:"subject"`
	PublicKey []byte    `json:"publicKey"`
	Algorithm string    `json:"algorithm"`
	Signature []byte    `json:"signature"`
	GrantedAt time.Time `json:"grantedAt"`
}

// RegisterControlRecord is the governance roster snapshot embedded in a
// register's genesis transaction and every subsequent Control transaction.
// The chain records full snapshots, not diffs — reconstruction always takes
// the latest one (pkg/governance.GetCurrentRoster).
type RegisterControlRecord struct {
	RegisterID   string                 `json:"registerId"`
	Name         string                 `json:"name"`
	TenantID     string                 `json:"tenantId"`
	CreatedAt    time.Time              `json:"createdAt"`
	Attestations []RegisterAttestation  `json:"attestations"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
}

// Owner returns the attestation holding role Owner, if one exists. A valid
// record has exactly one.
func (r RegisterControlRecord) Owner() (RegisterAttestation, bool) {
	for _, a := range r.Attestations {
		if a.Role == RoleOwner {
			return a, true
		}
	}
	return RegisterAttestation{}, false
}

// AttestationFor returns the attestation for subject, if any.
func (r RegisterControlRecord) AttestationFor(subject DID) (RegisterAttestation, bool) {
	for _, a := range r.Attestations {
		if a.Subject == subject {
			return a, true
		}
	}
	return RegisterAttestation{}, false
}

// IsMember reports whether subject currently holds any attestation.
func (r RegisterControlRecord) IsMember(subject DID) bool {
	_, ok := r.AttestationFor(subject)
	return ok
}

// VotingPool returns the attestations eligible to vote on governance
// operations: Owner and Admin, never Auditor.
func (r RegisterControlRecord) VotingPool() []RegisterAttestation {
	pool := make([]RegisterAttestation, 0, len(r.Attestations))
	for _, a := range r.Attestations {
		if a.Role == RoleOwner || a.Role == RoleAdmin {
			pool = append(pool, a)
		}
	}
	return pool
}

// Validate enforces spec invariant 3 and 4: at most one Owner, roster size
// capped at 25, and pairwise-distinct subjects.
func (r RegisterControlRecord) Validate() error {
	if len(r.Attestations) > maxAttestations {
		return fmt.Errorf("ledger: roster exceeds maximum of %d attestations", maxAttestations)
	}
	owners := 0
	seen := make(map[DID]bool, len(r.Attestations))
	for _, a := range r.Attestations {
		if seen[a.Subject] {
			return fmt.Errorf("ledger: duplicate attestation subject %q", a.Subject)
		}
		seen[a.Subject] = true
		if a.Role == RoleOwner {
			owners++
		}
	}
	if owners > 1 {
		return errors.New("ledger: roster has more than one Owner")
	}
	return nil
}

// OperationKind enumerates the governance roster mutations spec.md defines.
type OperationKind string

const (
	OpAdd      OperationKind = "ADD"
	OpRemove   OperationKind = "REMOVE"
	OpTransfer OperationKind = "TRANSFER"
)

// GovernanceOperation describes a proposed change to a register's admin
// roster: adding a participant, removing one, or transferring ownership.
// ExpiresAt must be within 7 days of ProposedAt; a proposal is no longer
// valid once now reaches ExpiresAt.
type GovernanceOperation struct {
	OperationType OperationKind          `json:"operationType"`
	ProposerDID   DID                    `json:"proposerDid"`
	TargetDID     DID                    `json:"targetDid"`
	TargetRole    Role                   `json:"targetRole,omitempty"`
	ProposedAt    time.Time              `json:"proposedAt"`
	ExpiresAt     time.Time              `json:"expiresAt"`
	Metadata      map[string]interface{} `json:"metadata,omitempty"`
}

// ApprovalSignature is one voting member's ballot over a GovernanceOperation.
// SignatureOverProposalHash is the raw signature bytes; verifying it against
// the proposer-supplied public key is a concern of the surrounding
// authentication layer, not this package.
type ApprovalSignature struct {
	ApproverDID               DID       `json:"approverDid"`
	IsApproval                bool      `json:"isApproval"`
	VotedAt                   time.Time `json:"votedAt"`
	SignatureOverProposalHash []byte    `json:"signatureOverProposalHash"`
}

// AdminRoster is the authoritative governance state of a register,
// reconstructed from its control-transaction chain rather than stored as a
// standalone record: the chain is the source of truth, this is a cache of
// the latest snapshot plus bookkeeping about how it was derived.
type AdminRoster struct {
	RegisterID              string                `json:"registerId"`
	ControlRecord           RegisterControlRecord `json:"controlRecord"`
	ControlTransactionCount int                   `json:"controlTransactionCount"`
	LastControlTxID         string                `json:"lastControlTxId"`
}

// TransactionType distinguishes genesis/control transactions (which carry
// governance semantics) from ordinary application transactions.
type TransactionType string

const (
	TxGenesis TransactionType = "GENESIS"
	TxControl TransactionType = "CONTROL"
	TxData    TransactionType = "DATA"
)

// TransactionSignature is the submitter's signature over a transaction,
// distinct from ApprovalSignature (a governance vote): a transaction carries
// exactly the signature(s) that authorized it, not a ballot.
type TransactionSignature struct {
	SignerDID DID       `json:"signerDid"`
	Algorithm string    `json:"algorithm"`
	Signature []byte    `json:"signature"`
	SignedAt  time.Time `json:"signedAt"`
}

// Transaction is a single operation submitted against a register. Exactly
// one of ControlRecord or Data is populated, depending on Type.
type Transaction struct {
	ID           string          `json:"id"`
	RegisterID   string          `json:"registerId"`
	Type         TransactionType `json:"type"`
	Priority     Priority        `json:"priority"`
	SubmitterDID DID             `json:"submitterDid"`
	// PrevTxID, if set, must reference a transaction already stored under
	// the same register; the chain validator checks this.
	PrevTxID string `json:"prevTxId,omitempty"`
	// ControlRecord carries the roster snapshot on a Genesis or Control
	// transaction only; governance roster reconstruction always takes the
	// snapshot embedded in the latest such transaction.
	ControlRecord *RegisterControlRecord `json:"controlRecord,omitempty"`
	GovernanceOp  *GovernanceOperation   `json:"governanceOp,omitempty"`
	Data          map[string]interface{} `json:"data,omitempty"`
	Metadata      map[string]interface{} `json:"metadata,omitempty"`
	Signatures    []TransactionSignature `json:"signatures"`
	SubmittedAt   time.Time              `json:"submittedAt"`
	DocketID      string                 `json:"docketId,omitempty"`
}

// DocketState is the lifecycle stage of a Docket. Only Sealed dockets are
// part of the hash chain and count toward a register's height.
type DocketState string

const (
	DocketProposed DocketState = "Proposed"
	DocketAccepted DocketState = "Accepted"
	DocketSealed   DocketState = "Sealed"
)

// Docket is a sealed, hash-chained batch of transactions for one register.
// ID is the decimal string of its height: an unsigned integer starting at 1
// and contiguous within a register.
// Hash = H(id || previousHash || concat(sorted(transactionIds)) || timestamp),
// computed exclusively by the docket builder (pkg/validator).
type Docket struct {
	ID             string      `json:"id"`
	RegisterID     string      `json:"registerId"`
	Height         uint64      `json:"height"`
	PreviousHash   string      `json:"previousHash"`
	Hash           string      `json:"hash"`
	TransactionIDs []string    `json:"transactionIds"`
	State          DocketState `json:"state"`
	SealedAt       time.Time   `json:"sealedAt"`
}

// Register is the top-level tenant-owned ledger object: an append-only,
// docket-chained sequence of transactions governed by an AdminRoster that is
// reconstructed from the latest Control transaction rather than stored
// redundantly. Invariant: LatestHeight equals the highest Sealed docket id,
// or 0 if none has been sealed yet.
type Register struct {
	ID           string    `json:"id"`
	OwnerDID     DID       `json:"ownerDid"`
	CreatedAt    time.Time `json:"createdAt"`
	LatestHeight uint64    `json:"latestHeight"`
	LatestHash   string    `json:"latestHash"`
}

// PendingRegistration is the canonical control record and its hash held
// between Initiate and Finalize of the two-phase register creation protocol. It is
// never persisted to the repository — only kept in the orchestrator's
// in-memory map until Finalize consumes it or it expires (default TTL 5m).
type PendingRegistration struct {
	RegisterID    string                `json:"registerId"`
	Nonce         string                `json:"nonce"`
	ControlRecord RegisterControlRecord `json:"controlRecord"`
	CanonicalHash string                `json:"canonicalHash"`
	CreatedAt     time.Time             `json:"createdAt"`
	ExpiresAt     time.Time             `json:"expiresAt"`
}

// Organization and Blueprint are referenced by register control metadata and
// transaction metadata respectively; their own lifecycle (creation,
// publication, execution) is out of scope, so only the identifying shape is
// modeled here.
type Organization struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	TenantID string `json:"tenantId"`
}

type Blueprint struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	TenantID    string   `json:"tenantId"`
	ActionRoles []string `json:"actionRoles"`
}
