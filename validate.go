package ecert

import (
	"crypto/ed25519"
	"time"
	"unicode"
)

// CheckFlag selects which layers of the validator run. Flags imply
// others: ROLE implies CHAIN; CHAIN implies SIGN. CERT is always forced
// on.
type CheckFlag int

const (
	CheckCert CheckFlag = 1 << iota
	CheckSecret
	CheckSign
	CheckChain
	CheckRole
	CheckRequire
)

// now is overridable in tests so time-dependent scenarios can drive the
// clock without sleeping.
var now = func() int64 { return time.Now().Unix() }

// Check runs the layered validation pipeline in fixed order, returning
// the first failure encountered. It never mutates cert or ctx.
func Check(ctx Context, cert *Certificate, flags CheckFlag) error {
	if cert == nil {
		return EUndefined
	}

	flags |= CheckCert
	if flags&CheckRole != 0 {
		flags |= CheckChain
	}
	if flags&CheckChain != 0 {
		flags |= CheckSign
	}
	if flags&(CheckChain|CheckRole|CheckRequire) != 0 && ctx == nil {
		return ENoCtx
	}

	if flags&CheckCert != 0 {
		if err := checkCert(cert); err != nil {
			return err
		}
	}

	if flags&CheckSecret != 0 {
		if cert.SecretKey() == nil {
			return ENoSK
		}
	}

	var digest [DigestSize]byte
	var signer *Certificate

	if flags&CheckSign != 0 {
		signerID := cert.SignerID()
		if signerID == nil {
			return ESigner
		}
		if cert.Signature() == nil {
			return ENoSign
		}

		var err error
		digest, err = canonicalHash(cert)
		if err != nil {
			return err
		}

		id := cert.ID()
		var sid [CertIDBytes]byte
		copy(sid[:], signerID)
		if sid == id {
			signer = cert
		} else if ctx != nil {
			var ok bool
			signer, ok = ctx.Lookup(sid)
			if !ok {
				signer = nil
			}
		}
		if signer == nil {
			return ESigner
		}

		if cert.ValidFrom < signer.ValidFrom || cert.ValidUntil > signer.ValidUntil {
			return EValidity
		}

		if !ed25519.Verify(ed25519.PublicKey(signer.PublicKey()), digest[:], cert.Signature()) {
			return ESign
		}
	}

	if flags&CheckChain != 0 && cert.Flags&FlagTrusted == 0 {
		id := cert.ID()
		var sid [CertIDBytes]byte
		copy(sid[:], cert.SignerID())
		if sid == id {
			return ESelf
		}
		parent, ok := ctx.Lookup(sid)
		if !ok || Check(ctx, parent, flags&^CheckSecret) != nil {
			return EChain
		}
	}

	if flags&CheckRole != 0 {
		signerID := cert.SignerID()
		var sid [CertIDBytes]byte
		copy(sid[:], signerID)
		roleSigner, _ := ctx.Lookup(sid)

		for _, r := range cert.store.SectionMembers("$_grant") {
			if !isPrintableKey(r.Key) {
				return ERecord
			}
			if cert.Flags&FlagTrusted == 0 && !roleHasGrant(roleSigner, r.Key) {
				return EGrant
			}
		}
		for _, r := range cert.store.SectionMembers("$_role") {
			if !isPrintableKey(r.Key) {
				return EType
			}
			if cert.Flags&FlagTrusted == 0 && !roleHasGrant(roleSigner, r.Key) {
				return EGrant
			}
		}
	}

	if flags&CheckRequire != 0 {
		validator := ctx.Validator()
		if validator == nil {
			return ENoValidator
		}
		for _, r := range cert.store.Records() {
			if r.Flags&FlagRequire == 0 {
				continue
			}
			if err := validator(ctx, cert, r); err != nil {
				return wrap(ERequired, err.Error())
			}
		}
	}

	return nil
}

func checkCert(c *Certificate) error {
	if c.Version != LayoutVersion {
		return EVersion
	}
	if c.ValidFrom > now() {
		return EFuture
	}
	if c.ValidUntil < now() {
		return EExpired
	}
	if c.PublicKey() == nil {
		return ENoPK
	}

	records := c.store.Records()
	if len(records) > 0 && records[0].Flags&FlagSection == 0 {
		return ERecord
	}

	section := ""
	for _, r := range records {
		if len(r.Key) > KMAX || len(r.Data()) > DMAX {
			return ERecord
		}
		if r.Flags&FlagSection != 0 {
			if !isPrintableKey(r.Key) {
				return ERecord
			}
			section = string(r.Key)
		}
		if len(section) > 0 && section[0] == '$' && r.Flags&FlagNoSign != 0 {
			return ERecord
		}
	}
	return nil
}

// isPrintableKey reports whether key is a NUL-free, printable string
// suitable for use as a section name or a $_grant/$_role key.
func isPrintableKey(key []byte) bool {
	if len(key) == 0 {
		return false
	}
	for _, b := range key {
		if b == 0 || !unicode.IsPrint(rune(b)) {
			return false
		}
	}
	return true
}

// roleHasGrant reports whether signer itself grants or holds the named
// capability, searching both the $_grant and $_role sections. A grant
// is valid only when the signer also holds it.
func roleHasGrant(signer *Certificate, key []byte) bool {
	if signer == nil {
		return false
	}
	if signer.store.MatchIn("$_grant", key, nil) != nil {
		return true
	}
	if signer.store.MatchIn("$_role", key, nil) != nil {
		return true
	}
	return false
}
