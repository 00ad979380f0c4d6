package featureflags

import (
	"errors"
	"sync"
	"testing"
)

func TestEnabled_BooleanValues(t *testing.T) {
	m := NewManager("a=on,b=off,c=true,d=false,e=1,f=0")

	if !m.Enabled("a", 1) || !m.Enabled("c", 1) || !m.Enabled("e", 1) {
		t.Fatal("expected enabled boolean values to evaluate true")
	}
	if m.Enabled("b", 1) || m.Enabled("d", 1) || m.Enabled("f", 1) {
		t.Fatal("expected disabled boolean values to evaluate false")
	}
	if m.Enabled("missing", 1) {
		t.Fatal("unknown flags are off")
	}
}

func TestEnabled_PercentageValues(t *testing.T) {
	m := NewManager("always=100%,never=0%,canary=25%")

	if !m.Enabled("always", 1) {
		t.Fatal("100% rollout should always be enabled")
	}
	if m.Enabled("never", 1) {
		t.Fatal("0% rollout should always be disabled")
	}

	first := m.Enabled("canary", 42)
	for i := 0; i < 5; i++ {
		if got := m.Enabled("canary", 42); got != first {
			t.Fatal("rollout evaluation must be deterministic per user")
		}
	}

	if m.Enabled("canary", 0) {
		t.Fatal("percentage rollout requires non-zero userID")
	}
}

func TestParseAndSnapshot(t *testing.T) {
	m := NewManager(" bad ,x=on, y = 20% ,z=off,w=150%,v=maybe ")

	raw := m.Raw()
	if len(raw) != 3 {
		t.Fatalf("expected 3 parsed flags, got %d", len(raw))
	}
	if raw["x"] != "on" || raw["y"] != "20%" || raw["z"] != "off" {
		t.Fatalf("unexpected raw flags: %#v", raw)
	}

	snap := m.Snapshot(123)
	if len(snap) != 3 || !snap["x"] || snap["z"] {
		t.Fatalf("unexpected snapshot: %#v", snap)
	}
}

func TestSetAndDelete(t *testing.T) {
	m := NewManager("")

	if err := m.Set("File_Previews", " ON "); err != nil {
		t.Fatalf("set: %v", err)
	}
	if !m.Enabled("file_previews", 7) {
		t.Fatal("flag set at runtime should be enabled")
	}
	if err := m.Set("file_previews", "sometimes"); !errors.Is(err, ErrInvalidValue) {
		t.Fatalf("expected ErrInvalidValue, got %v", err)
	}
	if !m.Enabled("file_previews", 7) {
		t.Fatal("rejected value must not replace the old one")
	}

	m.Delete("file_previews")
	if m.Enabled("file_previews", 7) {
		t.Fatal("deleted flag should be off")
	}
}

func TestConcurrentAccess(t *testing.T) {
	m := NewManager("file_previews=50%")
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if i%2 == 0 {
					_ = m.Set("file_previews", "on")
				} else {
					_ = m.Enabled("file_previews", uint(j+1))
					_ = m.Snapshot(uint(j + 1))
				}
			}
		}(i)
	}
	wg.Wait()
}

func TestNilManager(t *testing.T) {
	var m *Manager
	if m.Enabled("x", 1) || len(m.Raw()) != 0 {
		t.Fatal("nil manager has no flags")
	}
}
