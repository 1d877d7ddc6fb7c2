package clock

import (
	"testing"
	"time"
)

func TestManualFiresInOrder(t *testing.T) {
	m := NewManual(time.Unix(0, 0))
	var order []string

	m.AfterFunc(2*time.Second, func() { order = append(order, "b") })
	m.AfterFunc(time.Second, func() {
		order = append(order, "a")
		m.AfterFunc(500*time.Millisecond, func() { order = append(order, "a2") })
	})
	stopped := m.AfterFunc(1500*time.Millisecond, func() { order = append(order, "never") })
	if !stopped.Stop() {
		t.Fatalf("expected stop to report armed timer")
	}
	if stopped.Stop() {
		t.Fatalf("expected second stop to report false")
	}

	m.Advance(1900 * time.Millisecond)
	if len(order) != 2 || order[0] != "a" || order[1] != "a2" {
		t.Fatalf("unexpected order %v", order)
	}
	if m.Pending() != 1 {
		t.Fatalf("expected 1 pending timer, got %d", m.Pending())
	}

	m.Advance(100 * time.Millisecond)
	if len(order) != 3 || order[2] != "b" {
		t.Fatalf("unexpected order %v", order)
	}
	if got := m.Now(); !got.Equal(time.Unix(2, 0)) {
		t.Fatalf("expected now at 2s, got %s", got)
	}
}
