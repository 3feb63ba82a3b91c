package keypool

import "testing"

func TestAdvanceCyclesBackToOrigin(t *testing.T) {
	p := New([]string{"key-a", "key-b", "key-c"})

	origin := p.Current()
	for i := 0; i < p.Size(); i++ {
		p.Advance()
	}
	if got := p.Current(); got != origin {
		t.Fatalf("expected to cycle back to %q, got %q", origin, got)
	}
}

func TestAdvanceNeverRepeatsWhenAllConfigured(t *testing.T) {
	p := New([]string{"key-a", "key-b", "key-c"})

	prev := p.Current()
	for i := 0; i < 10; i++ {
		next := p.Advance()
		if next == prev {
			t.Fatalf("advance returned %q twice in a row", next)
		}
		prev = next
	}
}

func TestAdvanceSkipsEmptySlots(t *testing.T) {
	p := New([]string{"key-a", "", "key-c"})

	if got := p.Current(); got != "key-a" {
		t.Fatalf("expected key-a current, got %q", got)
	}
	if got := p.Advance(); got != "key-c" {
		t.Fatalf("expected key-c after advance, got %q", got)
	}
	if got := p.Advance(); got != "key-a" {
		t.Fatalf("expected wrap to key-a, got %q", got)
	}
}

func TestEmptyPool(t *testing.T) {
	p := New([]string{"", "  ", ""})

	if p.HasCredentials() {
		t.Fatalf("expected no credentials")
	}
	if got := p.Current(); got != "" {
		t.Fatalf("expected empty current, got %q", got)
	}
	// Bounded: must terminate and keep returning "".
	for i := 0; i < 5; i++ {
		if got := p.Advance(); got != "" {
			t.Fatalf("expected empty advance, got %q", got)
		}
	}
}

func TestCursorStartsAtFirstConfiguredSlot(t *testing.T) {
	p := New([]string{"", "key-b", "key-c"})
	if got := p.Current(); got != "key-b" {
		t.Fatalf("expected key-b, got %q", got)
	}
}

func TestAudit(t *testing.T) {
	p := New([]string{"key-a", "", "key-c"})
	audit := p.Audit()
	if len(audit) != 3 {
		t.Fatalf("expected 3 slots, got %d", len(audit))
	}
	if !audit[0].Configured || audit[1].Configured || !audit[2].Configured {
		t.Fatalf("wrong configured flags: %+v", audit)
	}
	if !audit[0].Active {
		t.Fatalf("expected slot 1 active: %+v", audit)
	}
	if audit[0].Slot != 1 || audit[2].Slot != 3 {
		t.Fatalf("expected 1-based slot numbers: %+v", audit)
	}
}
