package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/StuartF303/sorcha/pkg/chainaudit"
	"github.com/StuartF303/sorcha/pkg/ledger"
)

var chainCmd = &cobra.Command{
	Use:   "chain",
	Short: "Audit a register's hash chain and inspect its dockets",
}

var chainAuditRegisterID string

var chainAuditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Run the docket and transaction chain audits for a register",
	RunE: func(cmd *cobra.Command, args []string) error {
		var result chainaudit.Result
		path := fmt.Sprintf("/api/v1/chain/%s/audit", chainAuditRegisterID)
		if err := newAPIClient(addr).do("GET", path, nil, &result); err != nil {
			return err
		}
		return printJSON(result)
	},
}

var chainDocketRegisterID string

var chainLatestDocketCmd = &cobra.Command{
	Use:   "latest-docket",
	Short: "Fetch a register's most recently sealed docket",
	RunE: func(cmd *cobra.Command, args []string) error {
		var docket ledger.Docket
		path := fmt.Sprintf("/api/v1/chain/%s/dockets/latest", chainDocketRegisterID)
		if err := newAPIClient(addr).do("GET", path, nil, &docket); err != nil {
			return err
		}
		return printJSON(docket)
	},
}

func init() {
	chainAuditCmd.Flags().StringVar(&chainAuditRegisterID, "register-id", "", "register id")
	chainAuditCmd.MarkFlagRequired("register-id")

	chainLatestDocketCmd.Flags().StringVar(&chainDocketRegisterID, "register-id", "", "register id")
	chainLatestDocketCmd.MarkFlagRequired("register-id")

	chainCmd.AddCommand(chainAuditCmd, chainLatestDocketCmd)
}
