package ecert

import "golang.org/x/crypto/scrypt"

// Interactive scrypt cost parameters, matching libsodium's
// crypto_pwhash_scryptsalsa208sha256 under OPSLIMIT_INTERACTIVE /
// MEMLIMIT_INTERACTIVE.
const (
	scryptN = 16384
	scryptR = 8
	scryptP = 1
)

// scryptInteractive derives an n-byte key stream from password and
// salt using the interactive cost parameters.
func scryptInteractive(password string, salt []byte, n int) ([]byte, error) {
	return scrypt.Key([]byte(password), salt, scryptN, scryptR, scryptP, n)
}

// wipeBytes zeroes b in place. Used for password-derived key material
// that lives only on the stack/heap of a single operation and must not
// linger.
func wipeBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
