package ecert

// RecordValidator is the application-supplied hook invoked once per
// FlagRequire record during a REQUIRE check. A non-nil return aborts
// validation with ERequired.
type RecordValidator func(ctx Context, cert *Certificate, record *Record) error

// Context is the external, per-process collaborator that maps
// certificate IDs to loaded certificates and optionally supplies a
// RecordValidator. The core never mutates it and never caches beyond a
// single Check call: callers must guarantee the store doesn't mutate
// under an in-flight validation.
type Context interface {
	// Lookup returns the certificate with the given 32-byte public-key
	// identity, or ok=false if it isn't known to this context.
	Lookup(id [32]byte) (cert *Certificate, ok bool)

	// Validator returns the configured RecordValidator, or nil if none
	// is set.
	Validator() RecordValidator
}
