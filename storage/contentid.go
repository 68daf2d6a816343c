package storage

import (
	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
)

// ContentID returns the CIDv1 string (raw multicodec, sha2-256 multihash)
// of a file payload. Asset metadata records these ids so peers can verify
// file content independently of where it was stored.
func ContentID(data []byte) string {
	sum, err := multihash.Sum(data, multihash.SHA2_256, -1)
	if err != nil {
		// multihash.Sum only errors for invalid inputs; with SHA2_256 and
		// default length this is unreachable.
		return ""
	}
	return cid.NewCidV1(cid.Raw, sum).String()
}

// VerifyContentID reports whether data hashes to the given content id.
func VerifyContentID(id string, data []byte) bool {
	want, err := cid.Decode(id)
	if err != nil {
		return false
	}
	sum, err := multihash.Sum(data, multihash.SHA2_256, -1)
	if err != nil {
		return false
	}
	return cid.NewCidV1(cid.Raw, sum).Equals(want)
}
