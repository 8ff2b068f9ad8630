package storage

import (
	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
)

// HandleFor returns the CIDv1 (raw multicodec + sha2-256 multihash) handle
// for the given bytes.
func HandleFor(data []byte) (cid.Cid, error) {
	sum, err := multihash.Sum(data, multihash.SHA2_256, -1)
	if err != nil {
		return cid.Undef, err
	}
	return cid.NewCidV1(cid.Raw, sum), nil
}

// ParseHandle decodes a handle string into a defined CID.
func ParseHandle(s string) (cid.Cid, error) {
	id, err := cid.Decode(s)
	if err != nil {
		return cid.Undef, ErrInvalidHandle
	}
	if !id.Defined() {
		return cid.Undef, ErrInvalidHandle
	}
	return id, nil
}

// HandleString is HandleFor rendered as a string. It returns "" only on
// inputs multihash cannot digest, which cannot happen for sha2-256.
func HandleString(data []byte) string {
	id, err := HandleFor(data)
	if err != nil {
		return ""
	}
	return id.String()
}
