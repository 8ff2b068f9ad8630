// Package storage defines the content-addressed store that holds sealed
// envelopes. Handles are CIDv1 (raw + sha2-256) identifiers derived from the
// canonical envelope bytes; the same handles are what the decryption
// handshake scopes its authorization statements to.
package storage

import "github.com/ipfs/go-cid"

// Store is a minimal content-addressable envelope store.
//
// Contract:
// - Put MUST be idempotent.
// - Stored objects MUST be immutable.
// - Handles MUST be derived from the bytes written (callers supply canonical bytes).
// - Get MUST return ErrNotFound when the handle is absent.
type Store interface {
	Put(bytes []byte) (cid.Cid, error)
	Get(id cid.Cid) ([]byte, error)
	Has(id cid.Cid) bool
}
