package event

import (
	"testing"
)

func TestNew(t *testing.T) {
	ev, err := New("order_paid", "checkout", "k1", []byte(`{"a":1}`))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if ev.ID == "" {
		t.Error("expected generated id")
	}
	if ev.SentAt.IsZero() {
		t.Error("expected sent_at to be set")
	}
	if string(ev.Value) != `{"a":1}` {
		t.Errorf("unexpected value %q", ev.Value)
	}
}

func TestNew_RequiresNames(t *testing.T) {
	if _, err := New("", "checkout", "k", nil); err == nil {
		t.Error("expected error for empty signal name")
	}
	if _, err := New("sig", "", "k", nil); err == nil {
		t.Error("expected error for empty case name")
	}
}

func TestClone_DoesNotShareValue(t *testing.T) {
	ev, _ := New("sig", "case", "k", []byte("abc"))
	c := ev.Clone()
	c.Value[0] = 'z'
	if string(ev.Value) != "abc" {
		t.Fatalf("clone mutated source: %q", ev.Value)
	}
	if (*Event)(nil).Clone() != nil {
		t.Fatal("expected nil clone of nil event")
	}
}
