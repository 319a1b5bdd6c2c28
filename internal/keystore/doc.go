// Package keystore provides the key backends behind the device identity:
// a hardware security module backend selected when a TPM is usable, and a
// software backend that keeps the private keys in process memory and
// persists them encrypted at rest.
//
// Callers go through Open, which picks the first usable backend; everything
// above the identity service is unaware which variant is active.
package keystore
