package ids

import "testing"

func TestNewIsSortableAndValid(t *testing.T) {
	a := New()
	b := New()
	if !Valid(a) || !Valid(b) {
		t.Fatalf("expected generated ids to be valid: %q %q", a, b)
	}
	if a >= b {
		t.Fatalf("expected monotonic ids, got %q then %q", a, b)
	}
}

func TestValidRejectsGarbage(t *testing.T) {
	for _, s := range []string{"", "  ", "42", "not-an-id", "01HZZZZZZZZZZZZZZZZZZZZZZZZ"} {
		if Valid(s) {
			t.Fatalf("expected %q to be invalid", s)
		}
	}
}
