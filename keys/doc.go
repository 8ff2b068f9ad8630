// Package keys provides signing identities for the key-custody protocol.
//
// Stable:
//   - Pure, deterministic primitives: signer-key formatting, identity
//     derivation, role-seed derivation, signing and verification.
//
// Experimental:
//   - Filesystem-backed key storage (KeyStore). Local-first convenience,
//     not part of the protocol contract.
package keys
