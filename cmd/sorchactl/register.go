package main

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/StuartF303/sorcha/pkg/ledger"
	"github.com/StuartF303/sorcha/pkg/registration"
)

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create and inspect registers",
}

var (
	initOwner  string
	initAdmins []string
)

var registerInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initiate a new register, returning the canonical hash to sign",
	RunE: func(cmd *cobra.Command, args []string) error {
		admins := make([]ledger.DID, 0, len(initAdmins))
		for _, a := range initAdmins {
			admins = append(admins, ledger.DID(a))
		}
		req := map[string]interface{}{"ownerDid": initOwner, "initialAdmins": admins}

		var pending ledger.PendingRegistration
		if err := newAPIClient(addr).do("POST", "/api/v1/registers/", req, &pending); err != nil {
			return err
		}
		return printJSON(pending)
	},
}

var (
	finalizeRegisterID string
	finalizeSignature  string
	finalizeAlgorithm  string
)

var registerFinalizeCmd = &cobra.Command{
	Use:   "finalize",
	Short: "Finalize a pending register with an already-produced signature",
	RunE: func(cmd *cobra.Command, args []string) error {
		req := map[string]string{"signature": finalizeSignature, "algorithm": finalizeAlgorithm}
		var reg ledger.Register
		path := fmt.Sprintf("/api/v1/registers/%s/finalize", finalizeRegisterID)
		if err := newAPIClient(addr).do("POST", path, req, &reg); err != nil {
			return err
		}
		return printJSON(reg)
	},
}

var (
	signFinalizeOwner    string
	signFinalizeAdmins   []string
	signFinalizeKeyPath  string
)

// registerSignAndFinalizeCmd chains init → local ED25519 sign → finalize in
// one call, using the same FileSigner sorchad itself uses for its system
// wallet — convenient for local development and demos where the operator
// controls both the owner key and the validator.
var registerSignAndFinalizeCmd = &cobra.Command{
	Use:   "sign-and-finalize",
	Short: "Initiate, sign the canonical hash locally, and finalize a register",
	RunE: func(cmd *cobra.Command, args []string) error {
		admins := make([]ledger.DID, 0, len(signFinalizeAdmins))
		for _, a := range signFinalizeAdmins {
			admins = append(admins, ledger.DID(a))
		}
		req := map[string]interface{}{"ownerDid": signFinalizeOwner, "initialAdmins": admins}

		var pending ledger.PendingRegistration
		client := newAPIClient(addr)
		if err := client.do("POST", "/api/v1/registers/", req, &pending); err != nil {
			return err
		}

		signer, err := registration.LoadOrGenerateFileSigner(signFinalizeKeyPath)
		if err != nil {
			return fmt.Errorf("load signing key: %w", err)
		}
		digest, err := hex.DecodeString(strings.TrimPrefix(pending.CanonicalHash, "0x"))
		if err != nil {
			return fmt.Errorf("decode canonical hash: %w", err)
		}
		signature, algorithm, err := signer.Sign(cmd.Context(), digest)
		if err != nil {
			return fmt.Errorf("sign canonical hash: %w", err)
		}

		finalizeReq := map[string]string{
			"signature": base64.StdEncoding.EncodeToString(signature),
			"algorithm": algorithm,
		}
		var reg ledger.Register
		path := fmt.Sprintf("/api/v1/registers/%s/finalize", pending.RegisterID)
		if err := client.do("POST", path, finalizeReq, &reg); err != nil {
			return err
		}
		return printJSON(reg)
	},
}

var getRegisterID string

var registerGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Fetch a register by id",
	RunE: func(cmd *cobra.Command, args []string) error {
		var reg ledger.Register
		path := fmt.Sprintf("/api/v1/registers/%s", getRegisterID)
		if err := newAPIClient(addr).do("GET", path, nil, &reg); err != nil {
			return err
		}
		return printJSON(reg)
	},
}

func init() {
	registerInitCmd.Flags().StringVar(&initOwner, "owner", "", "owner DID (w:<address>)")
	registerInitCmd.Flags().StringSliceVar(&initAdmins, "admin", nil, "initial admin DID (repeatable)")
	registerInitCmd.MarkFlagRequired("owner")

	registerFinalizeCmd.Flags().StringVar(&finalizeRegisterID, "register-id", "", "pending register id")
	registerFinalizeCmd.Flags().StringVar(&finalizeSignature, "signature", "", "base64-encoded signature over the canonical hash")
	registerFinalizeCmd.Flags().StringVar(&finalizeAlgorithm, "algorithm", "ED25519", "signature algorithm")
	registerFinalizeCmd.MarkFlagRequired("register-id")
	registerFinalizeCmd.MarkFlagRequired("signature")

	registerSignAndFinalizeCmd.Flags().StringVar(&signFinalizeOwner, "owner", "", "owner DID (w:<address>)")
	registerSignAndFinalizeCmd.Flags().StringSliceVar(&signFinalizeAdmins, "admin", nil, "initial admin DID (repeatable)")
	registerSignAndFinalizeCmd.Flags().StringVar(&signFinalizeKeyPath, "key", "", "path to the ED25519 key signing as owner")
	registerSignAndFinalizeCmd.MarkFlagRequired("owner")
	registerSignAndFinalizeCmd.MarkFlagRequired("key")

	registerGetCmd.Flags().StringVar(&getRegisterID, "register-id", "", "register id")
	registerGetCmd.MarkFlagRequired("register-id")

	registerCmd.AddCommand(registerInitCmd, registerFinalizeCmd, registerSignAndFinalizeCmd, registerGetCmd)
}
