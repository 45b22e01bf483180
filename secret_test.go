package ecert

import "testing"

func TestSecretBufferWipeReleasesBuffer(t *testing.T) {
	sb := newSecretBuffer(8)
	copy(sb.Bytes(), []byte{1, 2, 3, 4, 5, 6, 7, 8})

	sb.Wipe()
	if sb.buf != nil {
		t.Fatalf("Wipe did not release the underlying locked buffer")
	}
	if sb.Bytes() != nil {
		t.Fatalf("Bytes() after Wipe = %v, want nil", sb.Bytes())
	}
}

func TestSecretBufferWipeIsIdempotent(t *testing.T) {
	sb := newSecretBuffer(4)
	sb.Wipe()
	sb.Wipe() // must not panic
}

func TestScryptInteractiveIsDeterministic(t *testing.T) {
	salt := bytesOf(32, 0x42)
	a, err := scryptInteractive("hunter2", salt, 64)
	if err != nil {
		t.Fatalf("scryptInteractive: %v", err)
	}
	b, err := scryptInteractive("hunter2", salt, 64)
	if err != nil {
		t.Fatalf("scryptInteractive: %v", err)
	}
	if string(a) != string(b) {
		t.Fatalf("scryptInteractive is not deterministic for the same password/salt")
	}

	c, err := scryptInteractive("different", salt, 64)
	if err != nil {
		t.Fatalf("scryptInteractive: %v", err)
	}
	if string(a) == string(c) {
		t.Fatalf("scryptInteractive produced the same stream for different passwords")
	}
}

func bytesOf(n int, b byte) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = b
	}
	return out
}
