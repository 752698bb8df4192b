package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

type keygenOutput struct {
	PublicKey   string `json:"publicKey"`
	PrivateKey  string `json:"privateKey,omitempty"`
	Fingerprint string `json:"fingerprint"`
}

func keygenCmd(a *app) *cobra.Command {
	var (
		bits   int
		outDir string
	)
	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate an RSA key pair",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			kp, err := a.cipher.GenerateKeyPair(cmd.Context(), bits)
			if err != nil {
				return err
			}
			out := keygenOutput{PublicKey: kp.PublicKey, PrivateKey: kp.PrivateKey, Fingerprint: kp.Fingerprint()}
			if outDir == "" {
				return printJSON(cmd, out)
			}

			if err := os.MkdirAll(outDir, 0o700); err != nil {
				return err
			}
			if err := os.WriteFile(filepath.Join(outDir, "public.pem"), []byte(kp.PublicKey), 0o644); err != nil {
				return err
			}
			if err := os.WriteFile(filepath.Join(outDir, "private.pem"), []byte(kp.PrivateKey), 0o600); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Fingerprint: %s\n", out.Fingerprint)
			return nil
		},
	}
	cmd.Flags().IntVar(&bits, "bits", 0, "modulus size: 1024, 2048 or 4096 (default from config)")
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "write public.pem and private.pem to this directory")
	return cmd
}
