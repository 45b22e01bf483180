package ecert

import (
	"encoding/binary"

	"golang.org/x/crypto/blake2b"
)

// DigestSize is the width of the canonical digest (BLAKE2b-512).
const DigestSize = 64

// canonicalHash computes the deterministic digest of the signed portion
// of a certificate. Records carrying FlagNoSign are excluded, and the
// CRYPTSK bit is masked out of the hashed flags byte so that
// locking/unlocking the secret key never invalidates an existing
// signature.
//
// This requires both PublicKey() and SignerID() to be present, mirroring
// the original's two-field precondition: a certificate reaches this
// point only once it is being signed or verified, at which point both
// fields must already exist.
func canonicalHash(c *Certificate) ([DigestSize]byte, error) {
	var digest [DigestSize]byte

	if c.PublicKey() == nil || c.SignerID() == nil {
		return digest, ENoPK
	}

	h, err := blake2b.New512(nil)
	if err != nil {
		return digest, ENoMem
	}

	var u16 [2]byte
	binary.LittleEndian.PutUint16(u16[:], c.Version)
	h.Write(u16[:])

	h.Write([]byte{byte(c.Flags &^ FlagCryptSK)})

	var i64 [8]byte
	binary.LittleEndian.PutUint64(i64[:], uint64(c.ValidFrom))
	h.Write(i64[:])
	binary.LittleEndian.PutUint64(i64[:], uint64(c.ValidUntil))
	h.Write(i64[:])

	for _, r := range c.store.Records() {
		if r.Flags&FlagNoSign != 0 {
			continue
		}
		data := r.Data()
		h.Write(r.Key)
		h.Write(data)
		binary.LittleEndian.PutUint16(u16[:], uint16(len(r.Key)))
		h.Write(u16[:])
		binary.LittleEndian.PutUint16(u16[:], uint16(len(data)))
		h.Write(u16[:])
		h.Write([]byte{byte(r.Flags)})
	}

	copy(digest[:], h.Sum(nil))
	return digest, nil
}
