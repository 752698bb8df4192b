package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tradepanel/devicetrust"
)

func uuidCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "uuid <token>",
		Short: "Print the UUID bound to a token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), devicetrust.GenerateUUIDFromToken(args[0]))
			return nil
		},
	}
}

type verifyOutput struct {
	Success      bool   `json:"success"`
	Valid        bool   `json:"valid"`
	ExpectedUUID string `json:"expectedUuid"`
	Payload      string `json:"payload,omitempty"`
	Error        string `json:"error,omitempty"`
}

func verifyCmd(a *app) *cobra.Command {
	var secret, id string
	cmd := &cobra.Command{
		Use:   "verify <token>",
		Short: "Decrypt a token and check its UUID binding",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res := a.cipher.DecodeAndVerify(args[0], id, secret)
			out := verifyOutput{
				Success:      res.Success,
				Valid:        res.Valid,
				ExpectedUUID: res.ExpectedUUID,
				Payload:      res.Payload,
			}
			if res.Err != nil {
				out.Error = res.Err.Error()
			}
			if err := printJSON(cmd, out); err != nil {
				return err
			}
			if !res.Success || !res.Valid {
				return fmt.Errorf("verification failed")
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&secret, "secret", "s", "", "password (default DEVICETRUST_DEFAULT_SECRET)")
	cmd.Flags().StringVar(&id, "uuid", "", "UUID claimed for the token")
	cmd.MarkFlagRequired("uuid")
	return cmd
}
