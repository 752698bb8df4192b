// Package devicetrust provides the cryptographic envelopes and the device
// handshake used to enroll a client device with a trust server.
//
// The envelope layer is exposed through [Cipher]:
//
//   - password-based symmetric envelopes (PBKDF2-HMAC-SHA-512 with AES-GCM
//     or AES-CBC) and their single-string combined token form,
//   - RSA-OAEP encryption and PKCS#1 v1.5 signatures,
//   - hybrid envelopes that switch to an RSA-wrapped AES key once a payload
//     outgrows the RSA ceiling,
//   - UUIDs bound to combined tokens.
//
// [Session] establishes an end-to-end encrypted channel over P-256 or
// X25519 ECDH.
//
// [Client] runs the device handshake:
//
//	client, err := devicetrust.New(
//	    devicetrust.WithBaseURL("https://trust.example.com"),
//	    devicetrust.WithAPIKey(os.Getenv("DEVICETRUST_API_KEY")),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	reg, err := client.RegisterDevice(ctx, devicetrust.DeviceIdentity{
//	    Descriptor:       devicetrust.DeviceDescriptor{Platform: "ios", Model: "iPhone15,2"},
//	    AttestationToken: pushToken,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println("device id:", reg.DeviceID)
//
// Callers that need to drive or resume the steps themselves use
// [Client.NewHandshake] and call GenerateKeyPair, Initiate, Complete and
// Resolve in order.
package devicetrust
