package ecert

import "testing"

func TestStoreCreateBufCreatesSection(t *testing.T) {
	s := &Store{}
	r := s.CreateBuf("_cert", "pk", 4, 0)
	copy(r.Data(), []byte{1, 2, 3, 4})

	records := s.Records()
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2 (section header + record)", len(records))
	}
	if records[0].Flags&FlagSection == 0 {
		t.Fatalf("first record should be the section header")
	}
	if string(records[0].Key) != "_cert" {
		t.Fatalf("section header key = %q, want _cert", records[0].Key)
	}
	if records[1] != r {
		t.Fatalf("second record should be the one just created")
	}
}

func TestStoreCreateBufAppendsWithinExistingSection(t *testing.T) {
	s := &Store{}
	s.CreateBuf("_cert", "pk", 4, 0)
	s.CreateBuf("_cert", "sk", 8, FlagNoSign)

	records := s.Records()
	if len(records) != 3 {
		t.Fatalf("got %d records, want 3", len(records))
	}
	if string(records[2].Key) != "sk" {
		t.Fatalf("records[2].Key = %q, want sk", records[2].Key)
	}
}

func TestStoreCreateBufInsertsBeforeNextSection(t *testing.T) {
	s := &Store{}
	s.CreateBuf("_cert", "pk", 4, 0)
	s.CreateBuf("_subject", "cn", 4, 0)
	s.CreateBuf("_cert", "sk", 8, FlagNoSign)

	start, end := s.sectionBounds("_cert")
	if end-start != 3 {
		t.Fatalf("_cert section has %d members, want 3 (header + pk + sk)", end-start)
	}
	if string(s.records[start+2].Key) != "sk" {
		t.Fatalf("sk should land at the tail of the _cert section, not after _subject")
	}
}

func TestStoreMatchIn(t *testing.T) {
	s := &Store{}
	pk := s.CreateBuf("_cert", "pk", 4, 0)
	copy(pk.Data(), []byte{9, 9, 9, 9})

	if got := s.MatchIn("_cert", []byte("pk"), nil); got != pk {
		t.Fatalf("MatchIn did not find pk by key")
	}
	if got := s.MatchIn("_cert", []byte("pk"), []byte{9, 9}); got != pk {
		t.Fatalf("MatchIn did not find pk by key+prefix")
	}
	if got := s.MatchIn("_cert", []byte("pk"), []byte{1}); got != nil {
		t.Fatalf("MatchIn matched on a wrong prefix")
	}
	if got := s.MatchIn("_subject", []byte("pk"), nil); got != nil {
		t.Fatalf("MatchIn found a record outside its section")
	}
}

func TestStoreMatchAnyIgnoresSections(t *testing.T) {
	s := &Store{}
	s.CreateBuf("_cert", "pk", 4, 0)
	r := s.CreateBuf("_subject", "cn", 4, 0)
	copy(r.Data(), []byte("acme"))

	if got := s.MatchAny([]byte("cn"), nil); got != r {
		t.Fatalf("MatchAny did not find a record in a different section")
	}
}

func TestStoreSectionMembersExcludesHeader(t *testing.T) {
	s := &Store{}
	r1 := s.CreateBuf("$_grant", "admin", 0, 0)
	r2 := s.CreateBuf("$_grant", "backup", 0, 0)

	members := s.SectionMembers("$_grant")
	if len(members) != 2 || members[0] != r1 || members[1] != r2 {
		t.Fatalf("SectionMembers = %v, want [admin, backup]", members)
	}
}

func TestStoreSectionMembersEmptyForMissingSection(t *testing.T) {
	s := &Store{}
	if got := s.SectionMembers("nope"); got != nil {
		t.Fatalf("SectionMembers for a missing section = %v, want nil", got)
	}
}

func TestStoreRemoveSplicesAndWipes(t *testing.T) {
	s := &Store{}
	s.CreateBuf("_cert", "pk", 4, 0)
	sk := s.CreateSecretBuf("_cert", "sk", 8, FlagNoSign)

	s.Remove(sk)
	if len(s.Records()) != 2 {
		t.Fatalf("got %d records after Remove, want 2 (section header + pk)", len(s.Records()))
	}
	if sk.secret != nil {
		t.Fatalf("Remove did not wipe the secret-backed record")
	}
}

func TestStoreRemoveNilIsNoop(t *testing.T) {
	s := &Store{}
	s.CreateBuf("_cert", "pk", 4, 0)
	s.Remove(nil)
	if len(s.Records()) != 2 {
		t.Fatalf("Remove(nil) mutated the store")
	}
}

func TestRecordSecretDataRoundTrips(t *testing.T) {
	s := &Store{}
	r := s.CreateSecretBuf("_cert", "sk", 4, FlagNoSign)
	copy(r.Data(), []byte{1, 2, 3, 4})

	if got := r.Data(); got[0] != 1 || got[3] != 4 {
		t.Fatalf("secret record data = %v, want [1 2 3 4]", got)
	}
	r.wipe()
	if r.secret != nil {
		t.Fatalf("wipe did not clear the secret buffer")
	}
}
