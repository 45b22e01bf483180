package ecert

import "encoding/binary"

// ExportMode selects whether Export includes the secret key record.
type ExportMode int

const (
	// ExportPublic omits the sk record.
	ExportPublic ExportMode = iota
	// ExportSecret includes every record, sk included.
	ExportSecret
)

const (
	headerSize    = 2 + 1 + 8 + 8 + 4 // version, flags, valid_from, valid_until, record count
	recordOverhead = 2 + 4 + 1        // key_len, data_len, flags
)

func exportedRecords(c *Certificate, mode ExportMode) []*Record {
	all := c.store.Records()
	if mode == ExportSecret {
		return all
	}
	sk := c.store.MatchIn(certSection, []byte("sk"), nil)
	out := make([]*Record, 0, len(all))
	for _, r := range all {
		if r == sk {
			continue
		}
		out = append(out, r)
	}
	return out
}

// ExportLen returns the exact number of bytes Export will write for
// cert under mode.
func ExportLen(cert *Certificate, mode ExportMode) int {
	n := headerSize
	for _, r := range exportedRecords(cert, mode) {
		n += recordOverhead + len(r.Key) + len(r.Data())
	}
	return n
}

// Export serializes cert into buf in canonical record order, so that
// importing it back and recomputing the canonical digest reproduces the
// same digest. buf must be at least ExportLen(cert, mode) bytes.
func Export(buf []byte, cert *Certificate, mode ExportMode) error {
	need := ExportLen(cert, mode)
	if len(buf) < need {
		return ESize
	}

	off := 0
	binary.LittleEndian.PutUint16(buf[off:], cert.Version)
	off += 2
	buf[off] = byte(cert.Flags)
	off++
	binary.LittleEndian.PutUint64(buf[off:], uint64(cert.ValidFrom))
	off += 8
	binary.LittleEndian.PutUint64(buf[off:], uint64(cert.ValidUntil))
	off += 8

	records := exportedRecords(cert, mode)
	binary.LittleEndian.PutUint32(buf[off:], uint32(len(records)))
	off += 4

	for _, r := range records {
		binary.LittleEndian.PutUint16(buf[off:], uint16(len(r.Key)))
		off += 2
		binary.LittleEndian.PutUint32(buf[off:], uint32(len(r.Data())))
		off += 4
		buf[off] = byte(r.Flags)
		off++
		off += copy(buf[off:], r.Key)
		off += copy(buf[off:], r.Data())
	}
	return nil
}

// Import deserializes a certificate previously produced by Export. ctx
// is accepted for signature symmetry with the rest of the package's
// external interfaces but is not otherwise consulted — Import performs
// no validation of its own; callers should run Check afterward.
func Import(buf []byte, ctx Context) (*Certificate, error) {
	if len(buf) < headerSize {
		return nil, ESize
	}

	c := &Certificate{store: &Store{}}
	off := 0
	c.Version = binary.LittleEndian.Uint16(buf[off:])
	off += 2
	c.Flags = CertFlag(buf[off])
	off++
	c.ValidFrom = int64(binary.LittleEndian.Uint64(buf[off:]))
	off += 8
	c.ValidUntil = int64(binary.LittleEndian.Uint64(buf[off:]))
	off += 8
	count := binary.LittleEndian.Uint32(buf[off:])
	off += 4

	for i := uint32(0); i < count; i++ {
		if off+recordOverhead > len(buf) {
			return nil, ESize
		}
		keyLen := int(binary.LittleEndian.Uint16(buf[off:]))
		off += 2
		dataLen := int(binary.LittleEndian.Uint32(buf[off:]))
		off += 4
		flags := RecordFlag(buf[off])
		off++
		if off+keyLen+dataLen > len(buf) {
			return nil, ESize
		}
		key := append([]byte{}, buf[off:off+keyLen]...)
		off += keyLen
		data := append([]byte{}, buf[off:off+dataLen]...)
		off += dataLen

		if string(key) == "sk" && flags&FlagSection == 0 {
			r := &Record{Key: key, Flags: flags, secret: newSecretBuffer(len(data))}
			copy(r.Data(), data)
			c.store.appendRaw(r)
			continue
		}
		c.store.appendRaw(&Record{Key: key, Flags: flags, data: data})
	}

	return c, nil
}
