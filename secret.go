package ecert

import "github.com/awnumar/memguard"

// secretBuffer is a scoped wrapper around a locked, zero-on-release
// memory region: the Go rendition of the original's
// sodium_mlock/sodium_munlock pairing around the secret key buffer.
// Its drop path unconditionally zeros.
type secretBuffer struct {
	buf *memguard.LockedBuffer
}

// newSecretBuffer allocates a zeroed, mlocked buffer of n bytes.
func newSecretBuffer(n int) *secretBuffer {
	return &secretBuffer{buf: memguard.NewBuffer(n)}
}

// Bytes returns a mutable view into the locked region. The caller must
// not retain it past Wipe.
func (s *secretBuffer) Bytes() []byte {
	if s.buf == nil {
		return nil
	}
	return s.buf.Bytes()
}

// Wipe unconditionally zeroes and munlocks the buffer. Safe to call
// more than once.
func (s *secretBuffer) Wipe() {
	if s.buf == nil {
		return
	}
	s.buf.Destroy()
	s.buf = nil
}
