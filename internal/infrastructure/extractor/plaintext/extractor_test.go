package plaintext

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSupports(t *testing.T) {
	e := New()
	if !e.Supports("kb/defects.txt") || !e.Supports("kb/SOP.MD") {
		t.Fatal("expected txt and md to be supported")
	}
	if e.Supports("kb/manual.pdf") || e.Supports("kb/image.jpg") {
		t.Fatal("expected non-text formats to be rejected")
	}
}

func TestExtractTrimsContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "note.txt")
	if err := os.WriteFile(path, []byte("  Dusty panels lose 15% output.\n\n"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	e := New()
	text, err := e.Extract(path)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if text != "Dusty panels lose 15% output." {
		t.Fatalf("unexpected text: %q", text)
	}
}

func TestExtractRejectsBinary(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blob.txt")
	if err := os.WriteFile(path, []byte{0xff, 0xfe, 0x00, 0x80}, 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	e := New()
	if _, err := e.Extract(path); err == nil {
		t.Fatal("expected error for invalid utf-8")
	}
}
