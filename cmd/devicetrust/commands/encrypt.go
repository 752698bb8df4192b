package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func encryptCmd(a *app) *cobra.Command {
	var secret, data string
	cmd := &cobra.Command{
		Use:   "encrypt",
		Short: "Encrypt data into a combined token",
		Long:  "Encrypt --data (or stdin) under a password and print a combined token. Valid JSON input is encrypted as-is.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := readInput(cmd, data)
			if err != nil {
				return err
			}
			var payload any = in
			if json.Valid([]byte(in)) {
				payload = json.RawMessage(in)
			}
			token, err := a.cipher.EncryptCombined(payload, secret)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVarP(&secret, "secret", "s", "", "password (default DEVICETRUST_DEFAULT_SECRET)")
	cmd.Flags().StringVarP(&data, "data", "d", "", "payload; read from stdin when empty")
	return cmd
}

func decryptCmd(a *app) *cobra.Command {
	var secret string
	cmd := &cobra.Command{
		Use:   "decrypt [token]",
		Short: "Decrypt a combined token",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var token string
			if len(args) == 1 {
				token = args[0]
			}
			token, err := readInput(cmd, token)
			if err != nil {
				return err
			}
			plaintext, err := a.cipher.DecryptCombined(token, secret)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), plaintext)
			return nil
		},
	}
	cmd.Flags().StringVarP(&secret, "secret", "s", "", "password (default DEVICETRUST_DEFAULT_SECRET)")
	return cmd
}
