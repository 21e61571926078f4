package bsync

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/pkg/errors"
)

// Sig is the signature of a block: the sha256 hash of its content.
type Sig [sha256.Size]byte

// Zero is the zero value of a Sig.
var Zero Sig

// Sum computes the Sig of some data.
func Sum(data []byte) Sig {
	return sha256.Sum256(data)
}

func (s Sig) String() string {
	return hex.EncodeToString(s[:])
}

// SigFromHex parses the hex encoding of a Sig.
func SigFromHex(h string) (Sig, error) {
	var out Sig
	if len(h) != 2*sha256.Size {
		return out, errors.New("wrong length")
	}
	_, err := hex.Decode(out[:], []byte(h))
	return out, err
}
