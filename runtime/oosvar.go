package mruntime

import (
	"errors"
	"iter"
)

// ErrTerminalInPath is returned when a path walks through a terminal where a
// map level was required.
var ErrTerminalInPath = errors.New("path descends through a terminal value")

// MapValue is one node of the variable tree: either a terminal holding a
// scalar or an insertion-ordered map of child nodes. Each node has exactly
// one owner.
type MapValue struct {
	terminal bool
	value    Value
	entries  []*mapEntry
	index    map[string]int
}

type mapEntry struct {
	key  Value
	node *MapValue
}

func NewTerminal(v Value) *MapValue {
	return &MapValue{terminal: true, value: v}
}

func NewMap() *MapValue {
	return &MapValue{index: map[string]int{}}
}

func (m *MapValue) IsTerminal() bool {
	return m.terminal
}

// Value returns the terminal scalar, or Absent for a map.
func (m *MapValue) Value() Value {
	if !m.terminal {
		return Absent()
	}
	return m.value
}

func (m *MapValue) Len() int {
	return len(m.entries)
}

// Entries yields map children in insertion order.
func (m *MapValue) Entries() iter.Seq2[Value, *MapValue] {
	return func(yield func(Value, *MapValue) bool) {
		for _, e := range m.entries {
			if !yield(e.key, e.node) {
				return
			}
		}
	}
}

func (m *MapValue) Child(key Value) *MapValue {
	if m.terminal {
		return nil
	}
	if i, ok := m.index[key.keyString()]; ok {
		return m.entries[i].node
	}
	return nil
}

// Put stores child under key, keeping the slot position of an existing key.
func (m *MapValue) Put(key Value, child *MapValue) {
	if m.terminal {
		m.becomeMap()
	}
	ks := key.keyString()
	if i, ok := m.index[ks]; ok {
		m.entries[i].node = child
		return
	}
	m.index[ks] = len(m.entries)
	m.entries = append(m.entries, &mapEntry{key: key, node: child})
}

func (m *MapValue) Remove(key Value) {
	if m.terminal {
		return
	}
	ks := key.keyString()
	i, ok := m.index[ks]
	if !ok {
		return
	}
	m.entries = append(m.entries[:i], m.entries[i+1:]...)
	delete(m.index, ks)
	for j := i; j < len(m.entries); j++ {
		m.index[m.entries[j].key.keyString()] = j
	}
}

func (m *MapValue) Clear() {
	m.terminal = false
	m.value = Value{}
	m.entries = nil
	m.index = map[string]int{}
}

func (m *MapValue) becomeMap() {
	m.Clear()
}

// Copy returns a deep, independent copy.
func (m *MapValue) Copy() *MapValue {
	if m == nil {
		return nil
	}
	if m.terminal {
		return NewTerminal(m.value)
	}
	cp := &MapValue{
		entries: make([]*mapEntry, len(m.entries)),
		index:   make(map[string]int, len(m.entries)),
	}
	for i, e := range m.entries {
		cp.entries[i] = &mapEntry{key: e.key, node: e.node.Copy()}
		cp.index[e.key.keyString()] = i
	}
	return cp
}

// VariableTree is the out-of-stream variable store. Paths start with the
// variable name.
type VariableTree struct {
	root *MapValue
}

func NewVariableTree() *VariableTree {
	return &VariableTree{root: NewMap()}
}

func (t *VariableTree) Root() *MapValue {
	return t.root
}

func (t *VariableTree) IsEmpty() bool {
	return t.root.Len() == 0
}

// PutTerminal stores v at path, creating map levels as needed and replacing
// whatever was at the final position.
func (t *VariableTree) PutTerminal(path []Value, v Value) {
	if len(path) == 0 {
		return
	}
	level := t.root
	for _, k := range path[:len(path)-1] {
		next := level.Child(k)
		if next == nil || next.terminal {
			next = NewMap()
			level.Put(k, next)
		}
		level = next
	}
	level.Put(path[len(path)-1], NewTerminal(v))
}

// Node returns the node at path, or nil.
func (t *VariableTree) Node(path []Value) *MapValue {
	node := t.root
	for _, k := range path {
		if node.terminal {
			return nil
		}
		node = node.Child(k)
		if node == nil {
			return nil
		}
	}
	return node
}

// Get returns the terminal at path, or Absent when the path is missing or
// names a map.
func (t *VariableTree) Get(path []Value) Value {
	node := t.Node(path)
	if node == nil {
		return Absent()
	}
	return node.Value()
}

// GetLevel returns the map level at path. A missing path yields nil with no
// error; a terminal anywhere on the path is an error.
func (t *VariableTree) GetLevel(path []Value) (*MapValue, error) {
	node := t.root
	for _, k := range path {
		if node.terminal {
			return nil, ErrTerminalInPath
		}
		node = node.Child(k)
		if node == nil {
			return nil, nil
		}
	}
	if node.terminal {
		return nil, ErrTerminalInPath
	}
	return node, nil
}

// GetOrCreateLevel returns the map level at path, creating missing levels and
// replacing terminals with empty maps.
func (t *VariableTree) GetOrCreateLevel(path []Value) *MapValue {
	level := t.root
	for _, k := range path {
		next := level.Child(k)
		if next == nil || next.terminal {
			next = NewMap()
			level.Put(k, next)
		}
		level = next
	}
	return level
}

// CopySubmap returns a deep copy of the node at path, or nil.
func (t *VariableTree) CopySubmap(path []Value) *MapValue {
	return t.Node(path).Copy()
}

// Copy replaces the node at dst with a deep copy of the node at src. A
// missing src leaves the tree unchanged.
func (t *VariableTree) Copy(dst, src []Value) {
	if len(dst) == 0 {
		return
	}
	sub := t.CopySubmap(src)
	if sub == nil {
		return
	}
	if sub.terminal {
		t.PutTerminal(dst, sub.value)
		return
	}
	parent := t.GetOrCreateLevel(dst[:len(dst)-1])
	parent.Put(dst[len(dst)-1], sub)
}

// Remove deletes the node at path. An empty path clears the whole tree.
func (t *VariableTree) Remove(path []Value) {
	if len(path) == 0 {
		t.root.Clear()
		return
	}
	parent := t.Node(path[:len(path)-1])
	if parent == nil || parent.terminal {
		return
	}
	parent.Remove(path[len(path)-1])
}

func (t *VariableTree) Clear() {
	t.root.Clear()
}
