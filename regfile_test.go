package apb

import "testing"

func TestRegisterFileIndexMapping(t *testing.T) {
	f := NewRegisterFile(make([]uint64, 4), 32)
	cases := []struct {
		address uint64
		index   int
		ok      bool
	}{
		{0x0, 0, true},
		{0x4, 1, true},
		{0xC, 3, true},
		{0x10, 4, false},
		{0xFFC, 1023, false},
	}
	for _, tc := range cases {
		idx, ok := f.Index(tc.address)
		if idx != tc.index || ok != tc.ok {
			t.Fatalf("Index(0x%X): got (%d,%v), want (%d,%v)", tc.address, idx, ok, tc.index, tc.ok)
		}
	}
}

func TestRegisterFileWriteMasked(t *testing.T) {
	f := NewRegisterFile([]uint64{0x11223344}, 32)

	// Lanes 1 and 3 enabled: bytes 0 and 2 keep their old content.
	if !f.WriteMasked(0, 0xAABBCCDD, 0xA) {
		t.Fatalf("in-range write rejected")
	}
	word, _ := f.Read(0)
	if word != 0xAA22CC44 {
		t.Fatalf("masked write: got 0x%08X, want 0xAA22CC44", word)
	}

	if !f.WriteMasked(0, 0xDEADBEEF, 0xF) {
		t.Fatalf("full write rejected")
	}
	word, _ = f.Read(0)
	if word != 0xDEADBEEF {
		t.Fatalf("full write: got 0x%08X", word)
	}

	if f.WriteMasked(1, 0, 0xF) {
		t.Fatalf("out-of-range write must be rejected")
	}
	if !f.WriteMasked(0, 0x1, 0x0) {
		t.Fatalf("zero strobe write should still be accepted")
	}
	word, _ = f.Read(0)
	if word != 0xDEADBEEF {
		t.Fatalf("zero strobe must leave register untouched, got 0x%08X", word)
	}
}

func TestRegisterFileResetAndSnapshot(t *testing.T) {
	f := NewRegisterFile([]uint64{0x1, 0x2}, 32)
	f.WriteMasked(0, 0xFF, 0xF)

	snap := f.Snapshot()
	if snap[0] != 0xFF || snap[1] != 0x2 {
		t.Fatalf("snapshot wrong: %v", snap)
	}
	snap[1] = 0x99
	if word, _ := f.Read(1); word != 0x2 {
		t.Fatalf("snapshot must be a copy")
	}

	f.Reset()
	if word, _ := f.Read(0); word != 0x1 {
		t.Fatalf("reset did not restore initial image: 0x%X", word)
	}
}

func TestRegisterFileTruncatesInitialWords(t *testing.T) {
	f := NewRegisterFile([]uint64{0x1_FFFF_FFFF}, 32)
	if word, _ := f.Read(0); word != 0xFFFF_FFFF {
		t.Fatalf("initial word not truncated: 0x%X", word)
	}
}
