package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tradepanel/devicetrust"
)

func hybridCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hybrid",
		Short: "Encrypt or decrypt RSA/hybrid envelopes",
	}
	cmd.AddCommand(hybridEncryptCmd(a), hybridDecryptCmd(a))
	return cmd
}

func hybridEncryptCmd(a *app) *cobra.Command {
	var publicKey, data string
	cmd := &cobra.Command{
		Use:   "encrypt",
		Short: "Encrypt data for the holder of a public key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := readKey(publicKey)
			if err != nil {
				return err
			}
			in, err := readInput(cmd, data)
			if err != nil {
				return err
			}
			env, err := a.cipher.EncryptHybrid(in, key)
			if err != nil {
				return err
			}
			out, err := json.Marshal(env)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}
	cmd.Flags().StringVar(&publicKey, "public-key", "", "PEM public key or path to one")
	cmd.Flags().StringVarP(&data, "data", "d", "", "payload; read from stdin when empty")
	cmd.MarkFlagRequired("public-key")
	return cmd
}

func hybridDecryptCmd(a *app) *cobra.Command {
	var privateKey, data string
	cmd := &cobra.Command{
		Use:   "decrypt",
		Short: "Decrypt an envelope with a private key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := readKey(privateKey)
			if err != nil {
				return err
			}
			in, err := readInput(cmd, data)
			if err != nil {
				return err
			}
			env, err := devicetrust.ParseEnvelope([]byte(in))
			if err != nil {
				return err
			}
			plaintext, err := a.cipher.DecryptHybrid(env, key)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), plaintext)
			return nil
		},
	}
	cmd.Flags().StringVar(&privateKey, "private-key", "", "PEM private key or path to one")
	cmd.Flags().StringVarP(&data, "data", "d", "", "envelope; read from stdin when empty")
	cmd.MarkFlagRequired("private-key")
	return cmd
}
