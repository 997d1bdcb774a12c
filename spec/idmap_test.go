package spec

import (
	"strings"
	"testing"
)

func mustPanic(t *testing.T, substr string, f func()) {
	t.Helper()
	defer func() {
		r := recover()
		if r == nil {
			t.Fatalf("expected panic containing %q", substr)
		}
		if msg, ok := r.(string); ok && !strings.Contains(msg, substr) {
			t.Errorf("panic = %q, want it to contain %q", msg, substr)
		}
	}()
	f()
}

func TestIDNameMap_GetOrCreateIdempotent(t *testing.T) {
	m := NewIDNameMap[PropertyID](1)

	names := []string{"color", "margin-top", "color", "margin-top", "width"}
	seen := map[string]PropertyID{}
	for _, n := range names {
		before := m.Len()
		id := m.GetOrCreateID(n)
		if old, ok := seen[n]; ok {
			if id != old {
				t.Errorf("GetOrCreateID(%q) = %d, previously %d", n, id, old)
			}
			if m.Len() != before {
				t.Errorf("GetOrCreateID(%q) grew map for existing name", n)
			}
			continue
		}
		if m.Len() != before+1 {
			t.Errorf("GetOrCreateID(%q) grew map by %d, want 1", n, m.Len()-before)
		}
		seen[n] = id
	}
	if m.Len() != 4 {
		t.Errorf("Len() = %d, want 4", m.Len())
	}
}

func TestIDNameMap_Lookups(t *testing.T) {
	m := NewIDNameMap[ShorthandID](3)
	m.AddPair(2, "margin")
	m.AddPair(1, "padding")
	created := m.GetOrCreateID("border")

	if created != 3 {
		t.Errorf("GetOrCreateID() = %d, want 3 (first id past reserve)", created)
	}

	tests := []struct {
		name string
		id   ShorthandID
	}{
		{"padding", 1},
		{"margin", 2},
		{"border", 3},
	}
	for _, tt := range tests {
		if got := m.GetID(tt.name); got != tt.id {
			t.Errorf("GetID(%q) = %d, want %d", tt.name, got, tt.id)
		}
		if got := m.GetName(m.GetID(tt.name)); got != tt.name {
			t.Errorf("GetName(GetID(%q)) = %q", tt.name, got)
		}
	}

	if got := m.GetID("undefined-name"); got != 0 {
		t.Errorf("GetID(undefined) = %d, want 0", got)
	}
	if got := m.GetName(0); got != InvalidName {
		t.Errorf("GetName(0) = %q, want %q", got, InvalidName)
	}
	if got := m.GetName(1000); got != InvalidName {
		t.Errorf("GetName(1000) = %q, want %q", got, InvalidName)
	}
}

func TestIDNameMap_AddPairViolations(t *testing.T) {
	m := NewIDNameMap[PropertyID](3)
	m.AddPair(1, "color")

	mustPanic(t, "out of reserved range", func() { m.AddPair(3, "width") })
	mustPanic(t, "already used", func() { m.AddPair(1, "width") })
	mustPanic(t, "already registered", func() { m.AddPair(2, "color") })
	mustPanic(t, "empty name", func() { m.AddPair(2, "") })
}

func TestIDNameMap_GetOrCreateEmpty(t *testing.T) {
	m := NewIDNameMap[PropertyID](1)
	m.GetOrCreateID("color")

	mustPanic(t, "empty name", func() { m.GetOrCreateID("") })
	if m.Len() != 2 || m.Cap() != 2 {
		t.Errorf("Len() = %d, Cap() = %d after rejected name, want 2, 2", m.Len(), m.Cap())
	}
	m.AssertAllInserted(2)
}

func TestIDNameMap_AssertAllInserted(t *testing.T) {
	m := NewIDNameMap[PropertyID](3)
	m.AddPair(1, "color")

	mustPanic(t, "", func() { m.AssertAllInserted(3) })

	m.AddPair(2, "width")
	m.AssertAllInserted(3)
}

func TestIDNameMap_Exhausted(t *testing.T) {
	type tiny uint8
	m := NewIDNameMap[tiny](256)
	for i := 1; i < 256; i++ {
		m.AddPair(tiny(i), "n"+strings.Repeat("x", i))
	}
	mustPanic(t, "exhausted", func() { m.GetOrCreateID("overflow") })
}
