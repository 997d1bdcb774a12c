package spec

import (
	"fmt"
)

// IDNameMap is a dense bidirectional mapping between identifiers and names.
// Identifiers are indexes into the name slice, slot 0 is always named
// "invalid". Capacity reserved at construction is available for explicit
// identifiers (AddPair), GetOrCreateID allocates past whatever is used.
//
// Not safe for concurrent modification.
type IDNameMap[T ID] struct {
	names   []string
	reverse map[string]T
}

// NewIDNameMap creates map with reserve slots available for explicit ids.
// Reserve is at least one - for the invalid slot.
func NewIDNameMap[T ID](reserve int) *IDNameMap[T] {
	reserve = max(reserve, 1)
	m := &IDNameMap[T]{
		names:   make([]string, reserve),
		reverse: make(map[string]T, reserve),
	}
	m.AddPair(0, InvalidName)
	return m
}

// AddPair names an id which must be inside reserved capacity and not named
// yet. The name must not be used by another id. Violations are programming
// errors and panic.
func (m *IDNameMap[T]) AddPair(id T, name string) {
	if int(id) >= len(m.names) {
		panic(fmt.Sprintf("id %d for '%s' is out of reserved range [0, %d)", id, name, len(m.names)))
	}
	if m.names[id] != "" {
		panic(fmt.Sprintf("id %d is already used by '%s', unable to assign it to '%s'", id, m.names[id], name))
	}
	if name == "" {
		panic(fmt.Sprintf("empty name for id %d", id))
	}
	if old, exists := m.reverse[name]; exists {
		panic(fmt.Sprintf("name '%s' is already registered with id %d", name, old))
	}
	m.names[id] = name
	m.reverse[name] = id
}

// GetOrCreateID returns id of the name, allocating next sequential id when
// the name is new. Empty name panics.
func (m *IDNameMap[T]) GetOrCreateID(name string) T {
	if id, exists := m.reverse[name]; exists {
		return id
	}
	if name == "" {
		panic("unable to allocate id for empty name")
	}
	if len(m.names) > int(^T(0)) {
		panic(fmt.Sprintf("identifier space exhausted, unable to add '%s'", name))
	}
	id := T(len(m.names))
	m.names = append(m.names, name)
	m.reverse[name] = id
	return id
}

// GetID returns id of the name or invalid id (0) when name is unknown.
func (m *IDNameMap[T]) GetID(name string) T {
	if id, exists := m.reverse[name]; exists {
		return id
	}
	return 0
}

// GetName returns name of the id or "invalid" when id is out of range. An
// unused reserved slot has empty name.
func (m *IDNameMap[T]) GetName(id T) string {
	if int(id) < len(m.names) {
		return m.names[id]
	}
	return m.names[0]
}

// Len returns number of named slots including the invalid one.
func (m *IDNameMap[T]) Len() int {
	return len(m.reverse)
}

// Cap returns size of the id space - next id GetOrCreateID would allocate.
func (m *IDNameMap[T]) Cap() int {
	return len(m.names)
}

// AssertAllInserted panics unless both the number of named slots and the
// number of reverse entries are equal to expected. Invalid slot is counted.
func (m *IDNameMap[T]) AssertAllInserted(expected int) {
	named := 0
	for _, n := range m.names {
		if n != "" {
			named++
		}
	}
	if named != expected || len(m.reverse) != expected {
		panic(fmt.Sprintf("identifier map is incomplete: %d named slots, %d names, expected %d", named, len(m.reverse), expected))
	}
}
