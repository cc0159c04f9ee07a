package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/StuartF303/sorcha/pkg/ledger"
)

var rosterCmd = &cobra.Command{
	Use:   "roster",
	Short: "Inspect and propose changes to a register's admin roster",
}

var rosterGetRegisterID string

var rosterGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Fetch a register's current admin roster",
	RunE: func(cmd *cobra.Command, args []string) error {
		var roster ledger.AdminRoster
		path := fmt.Sprintf("/api/v1/governance/%s/roster", rosterGetRegisterID)
		if err := newAPIClient(addr).do("GET", path, nil, &roster); err != nil {
			return err
		}
		return printJSON(roster)
	},
}

var (
	proposeRegisterID string
	proposeKind       string
	proposeTarget     string
	proposeTargetRole string
	proposeProposedBy string
	proposeWindow     time.Duration
)

var rosterProposeCmd = &cobra.Command{
	Use:   "propose",
	Short: "Validate a governance operation against the current roster (no approvals)",
	RunE: func(cmd *cobra.Command, args []string) error {
		now := time.Now()
		op := ledger.GovernanceOperation{
			OperationType: ledger.OperationKind(proposeKind),
			ProposerDID:   ledger.DID(proposeProposedBy),
			TargetDID:     ledger.DID(proposeTarget),
			TargetRole:    ledger.Role(proposeTargetRole),
			ProposedAt:    now,
			ExpiresAt:     now.Add(proposeWindow),
		}
		req := map[string]interface{}{"operation": op, "approvals": []ledger.ApprovalSignature{}}

		var resp map[string]interface{}
		path := fmt.Sprintf("/api/v1/governance/%s/proposals", proposeRegisterID)
		if err := newAPIClient(addr).do("POST", path, req, &resp); err != nil {
			return err
		}
		return printJSON(resp)
	},
}

func init() {
	rosterGetCmd.Flags().StringVar(&rosterGetRegisterID, "register-id", "", "register id")
	rosterGetCmd.MarkFlagRequired("register-id")

	rosterProposeCmd.Flags().StringVar(&proposeRegisterID, "register-id", "", "register id")
	rosterProposeCmd.Flags().StringVar(&proposeKind, "kind", "ADD", "ADD, REMOVE, or TRANSFER")
	rosterProposeCmd.Flags().StringVar(&proposeTarget, "target", "", "target DID")
	rosterProposeCmd.Flags().StringVar(&proposeTargetRole, "target-role", "Admin", "target role: Owner, Admin, or Auditor")
	rosterProposeCmd.Flags().StringVar(&proposeProposedBy, "proposed-by", "", "proposer DID")
	rosterProposeCmd.Flags().DurationVar(&proposeWindow, "window", 24*time.Hour, "validity window from now (max 7d)")
	rosterProposeCmd.MarkFlagRequired("register-id")
	rosterProposeCmd.MarkFlagRequired("target")
	rosterProposeCmd.MarkFlagRequired("proposed-by")

	rosterCmd.AddCommand(rosterGetCmd, rosterProposeCmd)
}
