// Package commands implements the devicetrust command line: key
// generation, combined-token encryption, hybrid envelopes, UUID binding
// and device registration against a trust server.
package commands
