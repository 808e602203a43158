package common

import (
	"strings"
	"testing"
)

// ---------- WipeByteArray ----------

func TestWipeByteArray_ZerosBuffer(t *testing.T) {
	buf := []byte{1, 2, 3, 4, 5}
	WipeByteArray(buf)
	for i, v := range buf {
		if v != 0 {
			t.Fatalf("expected buf[%d]==0, got %d", i, v)
		}
	}
}

func TestWipeByteArray_NilSafe(t *testing.T) {
	WipeByteArray(nil)
}

// ---------- NewID ----------

func TestNewID_Format(t *testing.T) {
	id := NewID()
	if len(id) != IDLength {
		t.Fatalf("expected id length %d, got %d (%q)", IDLength, len(id), id)
	}
	if !IsValidID(id) {
		t.Fatalf("expected %q to be a valid id", id)
	}
	if strings.ToLower(id) != id {
		t.Fatalf("expected lowercase id, got %q", id)
	}
}

func TestNewID_Unique(t *testing.T) {
	seen := make(map[string]struct{}, 100)
	for i := 0; i < 100; i++ {
		id := NewID()
		if _, ok := seen[id]; ok {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = struct{}{}
	}
}

func TestIsValidID_Rejects(t *testing.T) {
	for _, s := range []string{"", "abc", "zz2d4c3a5e6b1a7d9f2d4c3a5e6b1a7d", "9f2d4c3a5e6b1a7d9f2d4c3a5e6b1a7d.md"} {
		if IsValidID(s) {
			t.Fatalf("expected %q to be rejected", s)
		}
	}
}

// ---------- GenerateRandByteArray ----------

func TestGenerateRandByteArray_Basic(t *testing.T) {
	const n = 24
	buf := GenerateRandByteArray(n)
	if buf == nil {
		t.Fatalf("expected non-nil slice")
	}
	if len(buf) != n {
		t.Fatalf("expected length %d, got %d", n, len(buf))
	}
}

func TestGenerateRandByteArray_EntropyHint(t *testing.T) {
	const n = 32
	a := GenerateRandByteArray(n)
	b := GenerateRandByteArray(n)

	if len(a) != n || len(b) != n {
		t.Fatalf("unexpected lengths: %d, %d", len(a), len(b))
	}

	identical := true
	for i := range a {
		if a[i] != b[i] {
			identical = false
			break
		}
	}
	if identical {
		t.Logf("warning: two GenerateRandByteArray(%d) results are identical; extremely unlikely", n)
	}
}
