// Package diskctx is a reference, directory-backed implementation of
// ecert.Context: a context store is an external collaborator, not part
// of the certificate library's core, but cmd/eccert needs a realistic
// one to exercise against.
package diskctx

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-logr/logr"

	ecert "github.com/erayd/go-ecert"
)

// ManifestEntry records one certificate known to a Store, independent
// of the certificate's own record payload — it's a lookup index, not
// authoritative data.
type ManifestEntry struct {
	ID         string `json:"id"` // hex-encoded public key
	ValidFrom  int64  `json:"valid_from"`
	ValidUntil int64  `json:"valid_until"`
	Trusted    bool   `json:"trusted"`
}

// Store is a directory-backed ecert.Context: one file per certificate,
// named by its hex-encoded public key, plus a manifest.json index.
type Store struct {
	dir       string
	log       logr.Logger
	validator ecert.RecordValidator
}

// New opens (without requiring it to yet exist) a Store rooted at dir.
func New(dir string, log logr.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("diskctx: create store dir: %w", err)
	}
	return &Store{dir: dir, log: log}, nil
}

// SetValidator installs the RecordValidator returned by Validator().
func (s *Store) SetValidator(v ecert.RecordValidator) {
	s.validator = v
}

// Validator implements ecert.Context.
func (s *Store) Validator() ecert.RecordValidator {
	return s.validator
}

func (s *Store) certPath(id [32]byte) string {
	return filepath.Join(s.dir, hex.EncodeToString(id[:])+".ecert")
}

func (s *Store) manifestPath() string {
	return filepath.Join(s.dir, "manifest.json")
}

// Lookup implements ecert.Context by reading the certificate file named
// for id, if present.
func (s *Store) Lookup(id [32]byte) (*ecert.Certificate, bool) {
	data, err := os.ReadFile(s.certPath(id))
	if err != nil {
		s.log.V(1).Info("certificate not found", "id", hex.EncodeToString(id[:]))
		return nil, false
	}
	cert, err := ecert.Import(data, s)
	if err != nil {
		s.log.Error(err, "failed to decode stored certificate", "id", hex.EncodeToString(id[:]))
		return nil, false
	}
	return cert, true
}

// Put exports cert (including its secret key, if present) and writes it
// into the store, staging to a temp file and renaming atomically, then
// updates the manifest the same way. Each file is committed on its own:
// if the manifest update fails, the certificate file already written
// stays in place.
func (s *Store) Put(cert *ecert.Certificate) error {
	id := cert.ID()

	buf := make([]byte, ecert.ExportLen(cert, ecert.ExportSecret))
	if err := ecert.Export(buf, cert, ecert.ExportSecret); err != nil {
		return fmt.Errorf("diskctx: export: %w", err)
	}
	if err := writeFileAtomic(s.certPath(id), buf, 0o600); err != nil {
		return err
	}

	manifest, err := s.loadManifest()
	if err != nil {
		return err
	}
	entry := ManifestEntry{
		ID:         hex.EncodeToString(id[:]),
		ValidFrom:  cert.ValidFrom,
		ValidUntil: cert.ValidUntil,
		Trusted:    cert.Flags&ecert.FlagTrusted != 0,
	}
	replaced := false
	for i, e := range manifest {
		if e.ID == entry.ID {
			manifest[i] = entry
			replaced = true
			break
		}
	}
	if !replaced {
		manifest = append(manifest, entry)
	}
	if err := s.saveManifest(manifest); err != nil {
		return err
	}

	s.log.Info("stored certificate", "id", entry.ID, "trusted", entry.Trusted)
	return nil
}

// List returns the manifest entries for every certificate currently
// known to the store.
func (s *Store) List() ([]ManifestEntry, error) {
	return s.loadManifest()
}

func (s *Store) loadManifest() ([]ManifestEntry, error) {
	data, err := os.ReadFile(s.manifestPath())
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("diskctx: read manifest: %w", err)
	}
	var entries []ManifestEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("diskctx: parse manifest: %w", err)
	}
	return entries, nil
}

func (s *Store) saveManifest(entries []ManifestEntry) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("diskctx: marshal manifest: %w", err)
	}
	data = append(data, '\n')
	return writeFileAtomic(s.manifestPath(), data, 0o644)
}

// writeFileAtomic writes data to a temporary file then renames it into
// place, so a reader never observes a partially-written file.
func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, perm); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("diskctx: write %s: %w", path, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("diskctx: rename %s: %w", path, err)
	}
	return nil
}
