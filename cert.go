package ecert

import (
	"crypto/ed25519"
	"crypto/rand"
	"time"
)

// LayoutVersion is the compiled-in certificate layout version. A
// certificate whose Version differs fails validation with EVersion.
const LayoutVersion uint16 = 1

// CertIDBytes is the width of a certificate's identity (its public
// key). Asserted against ed25519.PublicKeySize at package init, the Go
// rendition of the original's ec_abort(EC_CERT_ID_BYTES ==
// crypto_sign_PUBLICKEYBYTES).
const CertIDBytes = 32

func init() {
	if CertIDBytes != ed25519.PublicKeySize {
		panic("ecert: CertIDBytes does not match ed25519.PublicKeySize")
	}
}

const saltSize = 32 // crypto_pwhash_scryptsalsa208sha256_SALTBYTES

// CertFlag is the certificate-level bitset. It is one byte wide because
// the canonical hash feeds it verbatim (masked) as a single byte.
type CertFlag uint8

const (
	// FlagTrusted marks a certificate as a locally-anchored trust
	// anchor; chain validation terminates successfully here.
	FlagTrusted CertFlag = 1 << iota
	// FlagCryptSK marks the secret key as currently XORed with a
	// password-derived stream.
	FlagCryptSK
)

// StripFlag selects which material Strip removes from a certificate.
type StripFlag int

const (
	// StripSecret removes the sk and salt records.
	StripSecret StripFlag = 1 << iota
	// StripRecord removes every NOSIGN record except sk, salt, and
	// signature.
	StripRecord
	// StripSign removes the signer_id and signature records.
	StripSign
)

const certSection = "_cert"

// Certificate is the root entity: a versioned, time-bounded, signed
// record container keyed by an Ed25519 public key.
//
// pk/sk/salt/signer_id/signature are not cached struct fields; they are
// looked up lazily from the record store by the accessor methods below,
// which keeps the store the single source of truth and avoids aliasing
// a second, separately-mutable copy of the same bytes.
type Certificate struct {
	Version    uint16
	Flags      CertFlag
	ValidFrom  int64
	ValidUntil int64

	store     *Store
	destroyed bool
}

// PublicKey returns the certificate's 32-byte Ed25519 public key, or
// nil if absent.
func (c *Certificate) PublicKey() []byte {
	return fieldBytes(c.store.MatchIn(certSection, []byte("pk"), nil))
}

// SecretKey returns the certificate's 64-byte Ed25519 secret key, or
// nil if absent. While FlagCryptSK is set, this holds the XORed stream,
// not the true key.
func (c *Certificate) SecretKey() []byte {
	return fieldBytes(c.store.MatchIn(certSection, []byte("sk"), nil))
}

// Salt returns the certificate's 32-byte password-derivation salt, or
// nil if absent.
func (c *Certificate) Salt() []byte {
	return fieldBytes(c.store.MatchIn(certSection, []byte("salt"), nil))
}

// SignerID returns the 32-byte identity of the signing certificate, or
// nil if absent.
func (c *Certificate) SignerID() []byte {
	return fieldBytes(c.store.MatchIn(certSection, []byte("signer_id"), nil))
}

// Signature returns the 64-byte detached Ed25519 signature over the
// canonical digest, or nil if absent.
func (c *Certificate) Signature() []byte {
	return fieldBytes(c.store.MatchIn(certSection, []byte("signature"), nil))
}

func fieldBytes(r *Record) []byte {
	if r == nil {
		return nil
	}
	return r.Data()
}

// Records returns the certificate's record store, for read-only
// inspection (validation) or record-store operations (CreateBuf on the
// caller's own sections).
func (c *Certificate) Records() *Store {
	return c.store
}

// ID returns the certificate's unique identity: its 32-byte public key.
// cert == nil or without a public key yields a zero ID.
func (c *Certificate) ID() [CertIDBytes]byte {
	var id [CertIDBytes]byte
	if c == nil {
		return id
	}
	copy(id[:], c.PublicKey())
	return id
}

// Create allocates a fresh certificate: a new Ed25519 keypair in locked
// memory, a random salt, and the given validity bounds. validFrom == 0
// means "now"; validUntil == 0 means "never expires".
func Create(validFrom, validUntil int64) (*Certificate, error) {
	c := &Certificate{store: &Store{}}

	pkRec := c.store.CreateBuf(certSection, "pk", ed25519.PublicKeySize, 0)
	skRec := c.store.CreateSecretBuf(certSection, "sk", ed25519.PrivateKeySize, FlagNoSign)
	saltRec := c.store.CreateBuf(certSection, "salt", saltSize, FlagNoSign)

	if _, err := rand.Read(saltRec.Data()); err != nil {
		return nil, wrap(ENoMem, err.Error())
	}

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, wrap(ENoMem, err.Error())
	}
	copy(pkRec.Data(), pub)
	copy(skRec.Data(), priv)

	if validFrom == 0 {
		validFrom = time.Now().Unix()
	}
	if validUntil == 0 {
		validUntil = int64(^uint64(0) >> 1) // max int64: "never expires"
	}

	c.Version = LayoutVersion
	c.ValidFrom = validFrom
	c.ValidUntil = validUntil
	return c, nil
}

// Sign signs child with signer, filling in child's signer_id and
// signature records.
//
// Note both clamps below only ever lower child's bounds: valid_from can
// only be pulled earlier to match signer, never raised to it, which is
// asymmetric with the valid_until clamp. Preserved as-is rather than
// "fixed" pending a decision from whoever owns the wire format.
func Sign(child, signer *Certificate) error {
	if err := Check(nil, child, CheckCert); err != nil {
		return err
	}
	if err := Check(nil, signer, CheckCert|CheckSecret); err != nil {
		return err
	}
	if signer.Flags&FlagCryptSK != 0 {
		return ELocked
	}

	if child.ValidFrom > signer.ValidFrom {
		child.ValidFrom = signer.ValidFrom
	}
	if child.ValidUntil > signer.ValidUntil {
		child.ValidUntil = signer.ValidUntil
	}

	signerIDRec := child.store.MatchIn(certSection, []byte("signer_id"), nil)
	if signerIDRec == nil {
		signerIDRec = child.store.CreateBuf(certSection, "signer_id", CertIDBytes, 0)
	}
	copy(signerIDRec.Data(), signer.PublicKey())

	digest, err := canonicalHash(child)
	if err != nil {
		return err
	}

	sigRec := child.store.MatchIn(certSection, []byte("signature"), nil)
	if sigRec == nil {
		sigRec = child.store.CreateBuf(certSection, "signature", ed25519.SignatureSize, FlagNoSign)
	}
	sig := ed25519.Sign(ed25519.PrivateKey(signer.SecretKey()), digest[:])
	copy(sigRec.Data(), sig)

	if !ed25519.Verify(ed25519.PublicKey(signer.PublicKey()), digest[:], sigRec.Data()) {
		return ESign
	}
	return nil
}

// cryptskToggle derives the scrypt key-stream and XORs it into sk,
// toggling FlagCryptSK. Used by both Lock and Unlock.
func cryptskToggle(c *Certificate, password string) error {
	sk := c.SecretKey()
	if sk == nil {
		return ENoSK
	}
	salt := c.Salt()
	if salt == nil {
		return ENoSalt
	}

	key, err := scryptInteractive(password, salt, len(sk))
	if err != nil {
		return wrap(ENoMem, err.Error())
	}
	defer wipeBytes(key)

	for i := range sk {
		sk[i] ^= key[i]
	}
	c.Flags ^= FlagCryptSK
	return nil
}

// Lock XORs the certificate's secret key with a password-derived
// stream, so a copy of the certificate leaks no usable key material.
// Signing with a locked certificate is forbidden (ELocked).
func Lock(c *Certificate, password string) error {
	if c.Flags&FlagCryptSK != 0 {
		return ELocked
	}
	return cryptskToggle(c, password)
}

// Unlock reverses Lock. It is a no-op (returns nil) if the certificate
// is not currently locked.
func Unlock(c *Certificate, password string) error {
	if c.Flags&FlagCryptSK == 0 {
		return nil
	}
	return cryptskToggle(c, password)
}

// Strip removes material selected by what. Order is fixed
// (StripSecret, then StripRecord, then StripSign) so that StripRecord
// does not delete records that StripSecret still needs to find by
// identity.
func Strip(c *Certificate, what StripFlag) {
	sk := c.store.MatchIn(certSection, []byte("sk"), nil)
	salt := c.store.MatchIn(certSection, []byte("salt"), nil)
	signature := c.store.MatchIn(certSection, []byte("signature"), nil)

	if what&StripSecret != 0 {
		c.store.Remove(sk)
		c.store.Remove(salt)
	}

	if what&StripRecord != 0 {
		for _, r := range append([]*Record{}, c.store.Records()...) {
			if r.Flags&FlagNoSign != 0 && r != sk && r != salt && r != signature {
				c.store.Remove(r)
			}
		}
	}

	if what&StripSign != 0 {
		signerID := c.store.MatchIn(certSection, []byte("signer_id"), nil)
		c.store.Remove(signerID)
		c.store.Remove(signature)
	}
}

// Copy produces a canonical duplicate of c by round-tripping it through
// the export/import codec (including the secret key), rather than
// hand-rolling a second construction path that could drift from it.
func Copy(c *Certificate) (*Certificate, error) {
	buf := make([]byte, ExportLen(c, ExportSecret))
	if err := Export(buf, c, ExportSecret); err != nil {
		return nil, err
	}
	return Import(buf, nil)
}

// Destroy releases the certificate's locked secret-key memory. It is
// idempotent, mirroring the original's destructor-hook-cleared-before-free
// guard against double destruction.
func (c *Certificate) Destroy() {
	if c.destroyed {
		return
	}
	c.destroyed = true
	for _, r := range c.store.Records() {
		r.wipe()
	}
}
