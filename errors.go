package ecert

// Kind is a sum-typed error code. Validation and certificate operations
// return the first Kind they encounter rather than accumulating a list.
type Kind int

const (
	OK Kind = iota
	ENoMem
	EUndefined
	EVersion
	EFuture
	EExpired
	ENoPK
	ENoSK
	ENoSign
	ESigner
	ESign
	ESelf
	EChain
	EValidity
	ERecord
	EType
	EGrant
	ERequired
	ENoValidator
	ENoCtx
	ELocked
	ENoSalt
	ESize
)

var kindStrings = [...]string{
	OK:           "ok",
	ENoMem:       "out of memory",
	EUndefined:   "certificate is undefined",
	EVersion:     "unsupported layout version",
	EFuture:      "certificate is not yet valid",
	EExpired:     "certificate has expired",
	ENoPK:        "certificate has no public key",
	ENoSK:        "certificate has no secret key",
	ENoSign:      "certificate has no signature",
	ESigner:      "signer certificate is unavailable",
	ESign:        "signature verification failed",
	ESelf:        "self-signed certificate is not a trust anchor",
	EChain:       "trust chain validation failed",
	EValidity:    "validity period is not within signer's validity period",
	ERecord:      "record is structurally invalid",
	EType:        "record has the wrong type",
	EGrant:       "signer does not hold the required grant",
	ERequired:    "a required record failed application validation",
	ENoValidator: "no application validator is configured",
	ENoCtx:       "a context is required for this check",
	ELocked:      "secret key is locked",
	ENoSalt:      "certificate has no salt",
	ESize:        "value has the wrong size",
}

// String implements fmt.Stringer.
func (k Kind) String() string {
	if int(k) >= 0 && int(k) < len(kindStrings) && kindStrings[k] != "" {
		return kindStrings[k]
	}
	return "unknown error"
}

// Error implements the error interface, so a bare Kind can be returned
// and compared directly by callers that don't need extra context.
func (k Kind) Error() string {
	return k.String()
}

// Error wraps a Kind with operation-specific context, e.g. which record
// or section triggered the failure. Callers that only care about the
// Kind can still compare via errors.Is/errors.As against the Kind type.
type Error struct {
	Kind    Kind
	Context string
}

func (e *Error) Error() string {
	if e.Context == "" {
		return e.Kind.Error()
	}
	return e.Kind.Error() + ": " + e.Context
}

func (e *Error) Unwrap() error {
	return e.Kind
}

// wrap builds an *Error with context, or returns nil for OK.
func wrap(k Kind, context string) error {
	if k == OK {
		return nil
	}
	return &Error{Kind: k, Context: context}
}
