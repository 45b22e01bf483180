package ecert

import "bytes"

// RecordFlag is a per-record bitset controlling section, signing, and
// application-validation semantics.
type RecordFlag uint8

const (
	// FlagSection marks a record as the header of a new section; its
	// Key is the section name.
	FlagSection RecordFlag = 1 << iota
	// FlagNoSign excludes a record from the canonical digest.
	FlagNoSign
	// FlagRequire marks a record that must pass the ambient validator.
	FlagRequire
)

const (
	// KMAX is the maximum record key length.
	KMAX = 256
	// DMAX is the maximum record data length.
	DMAX = 65535
)

// Record is a single key/value entry in a certificate's payload list.
// The zero value is not valid; construct records via Store.CreateBuf or
// Store.CreateSecretBuf.
type Record struct {
	Key   []byte
	Flags RecordFlag

	data   []byte
	secret *secretBuffer
}

// Data returns the record's current backing bytes. For a secret-backed
// record this is a view into locked memory and must not be retained
// past the owning certificate's Destroy.
func (r *Record) Data() []byte {
	if r.secret != nil {
		return r.secret.Bytes()
	}
	return r.data
}

// wipe releases any locked-memory backing. It is a no-op for plain
// records.
func (r *Record) wipe() {
	if r.secret != nil {
		r.secret.Wipe()
		r.secret = nil
	}
}

// Store is the certificate's ordered, sectioned record list. Insertion
// order is preserved and is part of the canonical form the hasher
// depends on; Store intentionally models this as a slice of pointers
// rather than the original arena-owned linked list (see DESIGN.md) —
// each *Record remains a stable, directly-mutable view for as long as
// it stays in the store.
type Store struct {
	records []*Record
}

// Head returns the first record, or nil if the store is empty.
func (s *Store) Head() *Record {
	if len(s.records) == 0 {
		return nil
	}
	return s.records[0]
}

// Records returns the store's records in insertion order. The returned
// slice must not be mutated directly; use CreateBuf/Remove.
func (s *Store) Records() []*Record {
	return s.records
}

// sectionBounds returns [start, end) indices for the named section,
// including its header record, or (-1, -1) if the section doesn't
// exist.
func (s *Store) sectionBounds(section string) (int, int) {
	start := -1
	for i, r := range s.records {
		if r.Flags&FlagSection != 0 {
			if start >= 0 {
				return start, i
			}
			if bytes.Equal(r.Key, []byte(section)) {
				start = i
			}
		}
	}
	if start < 0 {
		return -1, -1
	}
	return start, len(s.records)
}

// CreateBuf inserts a new plain record at the tail of the named
// section, creating the section header if it doesn't yet exist, and
// returns a view into its zeroed length-byte data buffer.
func (s *Store) CreateBuf(section, key string, length int, flags RecordFlag) *Record {
	r := &Record{Key: []byte(key), Flags: flags, data: make([]byte, length)}
	s.insertInSection(section, r)
	return r
}

// CreateSecretBuf is like CreateBuf, but backs the record with locked,
// wipe-on-release memory (see secret.go). Used only for the sk record.
func (s *Store) CreateSecretBuf(section, key string, length int, flags RecordFlag) *Record {
	r := &Record{Key: []byte(key), Flags: flags, secret: newSecretBuffer(length)}
	s.insertInSection(section, r)
	return r
}

func (s *Store) insertInSection(section string, r *Record) {
	start, end := s.sectionBounds(section)
	if start < 0 {
		// Section doesn't exist: create its header at the tail, then
		// append the new record immediately after.
		header := &Record{Key: []byte(section), Flags: FlagSection}
		s.records = append(s.records, header, r)
		return
	}
	// Insert just before the next section's header (or at the store's
	// end if this is the last section).
	tail := append([]*Record{}, s.records[end:]...)
	s.records = append(s.records[:end], r)
	s.records = append(s.records, tail...)
}

// MatchIn returns the first record within the named section whose key
// equals key (when non-nil) and whose data has dataPrefix as a prefix
// (when non-nil). The section's own header record is eligible.
func (s *Store) MatchIn(section string, key, dataPrefix []byte) *Record {
	start, end := s.sectionBounds(section)
	if start < 0 {
		return nil
	}
	return matchRange(s.records[start:end], key, dataPrefix)
}

// MatchAny scans the whole store, ignoring section boundaries.
func (s *Store) MatchAny(key, dataPrefix []byte) *Record {
	return matchRange(s.records, key, dataPrefix)
}

// SectionMembers returns the records that belong to the named section,
// excluding its header record. Returns nil if the section doesn't
// exist or is empty.
func (s *Store) SectionMembers(section string) []*Record {
	start, end := s.sectionBounds(section)
	if start < 0 || end-start <= 1 {
		return nil
	}
	return s.records[start+1 : end]
}

func matchRange(records []*Record, key, dataPrefix []byte) *Record {
	for _, r := range records {
		if key != nil && !bytes.Equal(r.Key, key) {
			continue
		}
		if dataPrefix != nil {
			data := r.Data()
			if len(data) < len(dataPrefix) || !bytes.Equal(data[:len(dataPrefix)], dataPrefix) {
				continue
			}
		}
		return r
	}
	return nil
}

// appendRaw appends r to the tail of the store verbatim, without
// section-aware insertion. Used by Import, where the wire format
// already encodes the certificate's canonical record order.
func (s *Store) appendRaw(r *Record) {
	s.records = append(s.records, r)
}

// Remove splices r out of the store, preserving the order of the
// remaining records, and wipes any locked-memory backing it held. It is
// a no-op if r is nil or not present.
func (s *Store) Remove(r *Record) {
	if r == nil {
		return
	}
	for i, rec := range s.records {
		if rec == r {
			s.records = append(s.records[:i], s.records[i+1:]...)
			rec.wipe()
			return
		}
	}
}
