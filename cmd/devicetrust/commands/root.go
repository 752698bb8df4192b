package commands

import (
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/tradepanel/devicetrust"
)

// app is the state shared by every subcommand after PersistentPreRunE.
type app struct {
	configPath string
	envFile    string
	verbose    bool

	cfg    *devicetrust.Config
	cipher *devicetrust.Cipher
	logger *slog.Logger
}

// Execute runs the CLI with os.Args.
func Execute() error {
	return NewRootCommand().Execute()
}

// NewRootCommand builds the command tree. Each call returns an independent
// tree, so tests can run commands side by side.
func NewRootCommand() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "devicetrust",
		Short:         "Envelope encryption and device registration tool",
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
	}

	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "YAML config file")
	root.PersistentFlags().StringVar(&a.envFile, "env-file", ".env", "dotenv file loaded before reading DEVICETRUST_* variables")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "log debug output to stderr")

	root.AddCommand(
		keygenCmd(a),
		encryptCmd(a),
		decryptCmd(a),
		uuidCmd(),
		verifyCmd(a),
		hybridCmd(a),
		registerCmd(a),
	)
	return root
}

func (a *app) init(cmd *cobra.Command) error {
	if a.envFile != "" {
		// Existing variables win over the file.
		if err := godotenv.Load(a.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}

	cfg, err := devicetrust.LoadConfig(a.configPath)
	if err != nil {
		return err
	}
	cipher, err := cfg.NewCipher()
	if err != nil {
		return err
	}

	level := slog.LevelWarn
	if a.verbose {
		level = slog.LevelDebug
	}
	a.cfg = cfg
	a.cipher = cipher
	a.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	return nil
}

// readInput returns value when set, otherwise everything on stdin.
func readInput(cmd *cobra.Command, value string) (string, error) {
	if value != "" {
		return value, nil
	}
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", err
	}
	return strings.TrimRight(string(data), "\r\n"), nil
}

// readKey accepts a PEM literal or a path to a PEM file.
func readKey(value string) (string, error) {
	if strings.Contains(value, "-----BEGIN") {
		return value, nil
	}
	data, err := os.ReadFile(value)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
