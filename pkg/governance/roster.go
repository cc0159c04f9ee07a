// Package governance implements the admin-roster state machine: quorum
// voting over Add/Remove/Transfer operations and pure application of an
// approved operation to produce the roster's next state.
package governance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/StuartF303/sorcha/pkg/ledger"
)

var (
	ErrInvalidOperation         = errors.New("governance: operation is structurally invalid")
	ErrProposalExpired          = errors.New("governance: proposal has expired")
	ErrProposerNotMember        = errors.New("governance: proposer is not a roster member")
	ErrProposerNotAuthorized    = errors.New("governance: proposer's role may not propose this operation")
	ErrTargetIsMember           = errors.New("governance: add target is already a roster member")
	ErrRosterFull               = errors.New("governance: roster already holds the maximum attestations")
	ErrInvalidTargetRole        = errors.New("governance: target role must be Admin or Auditor")
	ErrTargetNotMember          = errors.New("governance: remove target is not a roster member")
	ErrCannotRemoveOwner        = errors.New("governance: cannot remove the current owner")
	ErrTransferProposerNotOwner = errors.New("governance: transfer proposer is not the current owner")
	ErrTransferTargetNotMember  = errors.New("governance: transfer target is not a roster member")
	ErrTransferTargetNotAdmin   = errors.New("governance: transfer target does not hold the Admin role")
)

// maxProposalWindow is the longest a governance proposal may remain valid
// (spec invariant: expiresAt - proposedAt <= 7 days).
const maxProposalWindow = 7 * 24 * time.Hour

// ValidateProposal checks op against the roster's current state and now,
// applying the common preconditions (expiry, proposer membership) and then
// the per-operation-kind rules spec.md §4.4 defines.
func ValidateProposal(roster ledger.AdminRoster, op ledger.GovernanceOperation, now time.Time) error {
	if op.OperationType != ledger.OpAdd && op.OperationType != ledger.OpRemove && op.OperationType != ledger.OpTransfer {
		return fmt.Errorf("%w: unknown operation type %q", ErrInvalidOperation, op.OperationType)
	}
	if op.TargetDID == "" {
		return fmt.Errorf("%w: missing target", ErrInvalidOperation)
	}
	if op.ExpiresAt.Sub(op.ProposedAt) > maxProposalWindow {
		return fmt.Errorf("%w: expiresAt exceeds proposedAt+7d", ErrInvalidOperation)
	}
	if now.Before(op.ProposedAt) {
		return fmt.Errorf("%w: proposedAt is in the future", ErrInvalidOperation)
	}
	// proposedAt == expiresAt is an empty validity window: expired for every
	// now at or after proposedAt (spec §8 boundary).
	if !now.Before(op.ExpiresAt) {
		return ErrProposalExpired
	}

	proposer, isProposerMember := roster.ControlRecord.AttestationFor(op.ProposerDID)
	if !isProposerMember {
		return ErrProposerNotMember
	}

	switch op.OperationType {
	case ledger.OpAdd:
		if roster.ControlRecord.IsMember(op.TargetDID) {
			return ErrTargetIsMember
		}
		if len(roster.ControlRecord.Attestations) >= maxAttestations {
			return ErrRosterFull
		}
		if op.TargetRole != ledger.RoleAdmin && op.TargetRole != ledger.RoleAuditor {
			return ErrInvalidTargetRole
		}
		if proposer.Role != ledger.RoleOwner && proposer.Role != ledger.RoleAdmin {
			return ErrProposerNotAuthorized
		}
	case ledger.OpRemove:
		target, isTargetMember := roster.ControlRecord.AttestationFor(op.TargetDID)
		if !isTargetMember {
			return ErrTargetNotMember
		}
		if target.Role == ledger.RoleOwner {
			return ErrCannotRemoveOwner
		}
		if proposer.Role != ledger.RoleOwner && proposer.Role != ledger.RoleAdmin {
			return ErrProposerNotAuthorized
		}
	case ledger.OpTransfer:
		if proposer.Role != ledger.RoleOwner {
			return ErrTransferProposerNotOwner
		}
		target, isTargetMember := roster.ControlRecord.AttestationFor(op.TargetDID)
		if !isTargetMember {
			return ErrTransferTargetNotMember
		}
		if target.Role != ledger.RoleAdmin {
			return ErrTransferTargetNotAdmin
		}
		if op.TargetRole != ledger.RoleOwner {
			return fmt.Errorf("%w: transfer must set targetRole=Owner", ErrInvalidOperation)
		}
	}
	return nil
}

// maxAttestations mirrors ledger's unexported cap so this package's roster
// checks stay in lockstep with RegisterControlRecord.Validate.
const maxAttestations = 25

// QuorumResult is the structured outcome of ValidateQuorum — spec.md treats
// an unmet quorum as a normal result, not an error.
type QuorumResult struct {
	VotesRequired   int          `json:"votesRequired"`
	VotesReceived   int          `json:"votesReceived"`
	VotingPool      []ledger.DID `json:"votingPool"`
	IsQuorumMet     bool         `json:"isQuorumMet"`
	IsOwnerOverride bool         `json:"isOwnerOverride"`
}

// ValidateQuorum computes the voting pool (Owner+Admin, excluding the
// removal target when applicable), counts distinct pool approvals, and
// applies owner-override — which fires only when the proposer is the
// current Owner and the operation is Add or Remove, never Transfer.
func ValidateQuorum(roster ledger.AdminRoster, op ledger.GovernanceOperation, approvals []ledger.ApprovalSignature) QuorumResult {
	pool := roster.ControlRecord.VotingPool()
	if op.OperationType == ledger.OpRemove {
		filtered := pool[:0:0]
		for _, a := range pool {
			if a.Subject != op.TargetDID {
				filtered = append(filtered, a)
			}
		}
		pool = filtered
	}

	inPool := make(map[ledger.DID]bool, len(pool))
	poolDIDs := make([]ledger.DID, 0, len(pool))
	for _, a := range pool {
		inPool[a.Subject] = true
		poolDIDs = append(poolDIDs, a.Subject)
	}

	seen := make(map[ledger.DID]bool, len(approvals))
	votesReceived := 0
	for _, a := range approvals {
		if !a.IsApproval || seen[a.ApproverDID] || !inPool[a.ApproverDID] {
			continue
		}
		seen[a.ApproverDID] = true
		votesReceived++
	}

	isOwnerOverride := false
	if op.OperationType == ledger.OpAdd || op.OperationType == ledger.OpRemove {
		if owner, ok := roster.ControlRecord.Owner(); ok && owner.Subject == op.ProposerDID {
			isOwnerOverride = true
		}
	}

	votesRequired := len(pool)/2 + 1
	return QuorumResult{
		VotesRequired:   votesRequired,
		VotesReceived:   votesReceived,
		VotingPool:      poolDIDs,
		IsQuorumMet:     isOwnerOverride || votesReceived >= votesRequired,
		IsOwnerOverride: isOwnerOverride,
	}
}

// ApplyOperation is a pure function producing the control record that
// results from applying a validated operation. It performs no authorization
// checks itself — callers must have already run ValidateProposal and
// ValidateQuorum. For Add, attestation must be non-nil and match the
// operation's target/role; Remove and Transfer ignore it.
func ApplyOperation(record ledger.RegisterControlRecord, op ledger.GovernanceOperation, attestation *ledger.RegisterAttestation) (ledger.RegisterControlRecord, error) {
	next := ledger.RegisterControlRecord{
		RegisterID:   record.RegisterID,
		Name:         record.Name,
		TenantID:     record.TenantID,
		CreatedAt:    record.CreatedAt,
		Metadata:     record.Metadata,
		Attestations: append([]ledger.RegisterAttestation{}, record.Attestations...),
	}

	switch op.OperationType {
	case ledger.OpAdd:
		if attestation == nil {
			return ledger.RegisterControlRecord{}, fmt.Errorf("%w: add requires an attestation", ErrInvalidOperation)
		}
		if attestation.Subject != op.TargetDID || attestation.Role != op.TargetRole {
			return ledger.RegisterControlRecord{}, fmt.Errorf("%w: attestation does not match operation target/role", ErrInvalidOperation)
		}
		next.Attestations = append(next.Attestations, *attestation)
	case ledger.OpRemove:
		filtered := next.Attestations[:0:0]
		for _, a := range next.Attestations {
			if a.Subject != op.TargetDID {
				filtered = append(filtered, a)
			}
		}
		next.Attestations = filtered
	case ledger.OpTransfer:
		for i := range next.Attestations {
			switch next.Attestations[i].Subject {
			case op.ProposerDID:
				next.Attestations[i].Role = ledger.RoleAdmin
			case op.TargetDID:
				next.Attestations[i].Role = ledger.RoleOwner
			}
		}
	default:
		return ledger.RegisterControlRecord{}, fmt.Errorf("%w: unknown operation type %q", ErrInvalidOperation, op.OperationType)
	}

	if err := next.Validate(); err != nil {
		return ledger.RegisterControlRecord{}, fmt.Errorf("%w: %v", ErrInvalidOperation, err)
	}
	return next, nil
}

// GetCurrentRoster reconstructs a register's authoritative roster by
// fetching its Genesis and Control transactions in submission order and
// taking the snapshot embedded in the latest one — the chain records full
// snapshots, not diffs, so reconstruction never replays an operation.
func GetCurrentRoster(ctx context.Context, repo ledger.RegisterRepository, registerID string) (ledger.AdminRoster, error) {
	controls, err := repo.ListControlTransactions(ctx, registerID)
	if err != nil {
		return ledger.AdminRoster{}, fmt.Errorf("governance: list control transactions: %w", err)
	}
	if len(controls) == 0 {
		return ledger.AdminRoster{}, fmt.Errorf("governance: register %q has no genesis transaction", registerID)
	}

	var record ledger.RegisterControlRecord
	var lastControlTxID string
	for _, tx := range controls {
		if tx.ControlRecord != nil {
			record = *tx.ControlRecord
			lastControlTxID = tx.ID
		}
	}

	return ledger.AdminRoster{
		RegisterID:              registerID,
		ControlRecord:           record,
		ControlTransactionCount: len(controls),
		LastControlTxID:         lastControlTxID,
	}, nil
}
