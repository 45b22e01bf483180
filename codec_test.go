package ecert

import (
	"bytes"
	"testing"
)

func TestExportImportRoundTripPreservesDigest(t *testing.T) {
	parent, err := Create(0, 0)
	if err != nil {
		t.Fatalf("Create parent: %v", err)
	}
	defer parent.Destroy()

	child, err := Create(0, 0)
	if err != nil {
		t.Fatalf("Create child: %v", err)
	}
	defer child.Destroy()
	if err := Sign(child, parent); err != nil {
		t.Fatalf("Sign: %v", err)
	}

	buf := make([]byte, ExportLen(child, ExportSecret))
	if err := Export(buf, child, ExportSecret); err != nil {
		t.Fatalf("Export: %v", err)
	}

	imported, err := Import(buf, nil)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	defer imported.Destroy()

	want, err := canonicalHash(child)
	if err != nil {
		t.Fatalf("canonicalHash(original): %v", err)
	}
	got, err := canonicalHash(imported)
	if err != nil {
		t.Fatalf("canonicalHash(imported): %v", err)
	}
	if want != got {
		t.Fatalf("Export/Import round trip changed the canonical digest")
	}
	if !bytes.Equal(imported.SecretKey(), child.SecretKey()) {
		t.Fatalf("Export/Import with ExportSecret dropped the secret key")
	}
}

func TestExportPublicOmitsSecretKey(t *testing.T) {
	c, err := Create(0, 0)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer c.Destroy()

	buf := make([]byte, ExportLen(c, ExportPublic))
	if err := Export(buf, c, ExportPublic); err != nil {
		t.Fatalf("Export: %v", err)
	}

	imported, err := Import(buf, nil)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	defer imported.Destroy()

	if imported.SecretKey() != nil {
		t.Fatalf("ExportPublic leaked the secret key")
	}
	if !bytes.Equal(imported.PublicKey(), c.PublicKey()) {
		t.Fatalf("ExportPublic did not preserve the public key")
	}
}

func TestExportLenMatchesWrittenSize(t *testing.T) {
	c, err := Create(0, 0)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer c.Destroy()

	need := ExportLen(c, ExportSecret)
	buf := make([]byte, need)
	if err := Export(buf, c, ExportSecret); err != nil {
		t.Fatalf("Export: %v", err)
	}

	tooSmall := make([]byte, need-1)
	if err := Export(tooSmall, c, ExportSecret); err != ESize {
		t.Fatalf("Export into an undersized buffer = %v, want ESize", err)
	}
}

func TestImportRejectsTruncatedInput(t *testing.T) {
	c, err := Create(0, 0)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer c.Destroy()

	buf := make([]byte, ExportLen(c, ExportSecret))
	if err := Export(buf, c, ExportSecret); err != nil {
		t.Fatalf("Export: %v", err)
	}

	if _, err := Import(buf[:len(buf)-1], nil); err != ESize {
		t.Fatalf("Import on truncated input = %v, want ESize", err)
	}
}
