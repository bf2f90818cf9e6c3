package session

import "testing"

func TestHolderSetGetClear(t *testing.T) {
	h := NewHolder[string]()

	if _, ok := h.Get("s1"); ok {
		t.Fatalf("expected no value before Set")
	}

	h.Set("s1", "first")
	h.Set("s1", "second")
	if got, ok := h.Get("s1"); !ok || got != "second" {
		t.Fatalf("expected last write to win, got %q ok=%v", got, ok)
	}

	if _, ok := h.Get("s2"); ok {
		t.Fatalf("expected sessions to be isolated")
	}

	h.Clear("s1")
	if _, ok := h.Get("s1"); ok {
		t.Fatalf("expected value cleared")
	}
}

func TestHolderIgnoresEmptySessionID(t *testing.T) {
	h := NewHolder[int]()
	h.Set("", 42)
	if _, ok := h.Get(""); ok {
		t.Fatalf("expected empty session ID to be ignored")
	}
}
