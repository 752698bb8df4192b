package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tradepanel/devicetrust"
)

func registerCmd(a *app) *cobra.Command {
	var (
		identity   devicetrust.DeviceIdentity
		regenerate int
	)
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register this device with the trust server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := a.cfg.ClientOptions()
			if err != nil {
				return err
			}
			opts = append(opts, devicetrust.WithLogger(a.logger))
			client, err := devicetrust.New(opts...)
			if err != nil {
				return err
			}

			if regenerate == 0 {
				reg, err := client.RegisterDevice(cmd.Context(), identity)
				if errors.Is(err, devicetrust.ErrDeviceIDUnreadable) {
					return fmt.Errorf("%w (rerun with --regenerate to retry with a new key)", err)
				}
				if err != nil {
					return err
				}
				return printJSON(cmd, reg)
			}

			reg, err := registerWithRegenerate(cmd, a, client, identity, regenerate)
			if err != nil {
				return err
			}
			return printJSON(cmd, reg)
		},
	}
	f := cmd.Flags()
	f.StringVar(&identity.LocalID, "local-id", "", "installation id used to de-duplicate registrations")
	f.StringVar(&identity.Descriptor.Platform, "platform", "", "device platform, e.g. ios or android")
	f.StringVar(&identity.Descriptor.Model, "model", "", "device model")
	f.StringVar(&identity.Descriptor.OSVersion, "os-version", "", "operating system version")
	f.StringVar(&identity.Descriptor.AppVersion, "app-version", "", "application version")
	f.StringVar(&identity.Descriptor.Name, "name", "", "human readable device name")
	f.StringVar(&identity.AttestationToken, "attestation", "", "platform attestation token")
	f.IntVar(&regenerate, "regenerate", 0, "regenerate the device key up to N times when the device id cannot be decrypted")
	cmd.MarkFlagRequired("platform")
	return cmd
}

// registerWithRegenerate drives one handshake, regenerating its key pair
// after an unreadable device id until attempts run out.
func registerWithRegenerate(cmd *cobra.Command, a *app, client *devicetrust.Client, identity devicetrust.DeviceIdentity, attempts int) (*devicetrust.Registration, error) {
	ctx := cmd.Context()
	h := client.NewDeviceHandshake(identity.LocalID)
	for {
		reg, err := h.Run(ctx, identity)
		if err == nil {
			return reg, nil
		}
		if !errors.Is(err, devicetrust.ErrDeviceIDUnreadable) || attempts == 0 {
			if derr := h.Discard(ctx); derr != nil {
				a.logger.Warn("discard device key", "error", derr)
			}
			return nil, err
		}
		attempts--
		a.logger.Warn("device id unreadable, regenerating key pair", "remaining", attempts)
		if err := h.Regenerate(ctx); err != nil {
			return nil, err
		}
	}
}
