package mruntime

import "strings"

// ToRecords flattens the subtree at path into output records.
//
// Each entry of names consumes one map level, binding that level's key to a
// field of the given name. Once names run out, remaining map levels are
// either joined into prefixed field names with sep (prefixed, emitp) or
// split into one record per leaf map with bare key names (emit). When
// prefixed, keys consumed by names also stay in the field prefix. Branches
// shallower than names produce nothing.
func (t *VariableTree) ToRecords(path []Value, names []string, prefixed bool, sep string) []*Record {
	if len(path) == 0 {
		return nil
	}
	node := t.Node(path)
	if node == nil {
		return nil
	}
	prefix := emitPrefix(path, prefixed, sep)
	if node.terminal {
		rec := NewRecord()
		rec.Put(prefix, node.value.String())
		return []*Record{rec}
	}
	var out []*Record
	acrossRecords(node, prefix, names, NewRecord(), prefixed, sep, &out)
	return out
}

// AllToRecords applies ToRecords to every top-level variable in order.
func (t *VariableTree) AllToRecords(names []string, prefixed bool, sep string) []*Record {
	var out []*Record
	for key := range t.root.Entries() {
		out = append(out, t.ToRecords([]Value{key}, names, prefixed, sep)...)
	}
	return out
}

// LashedToRecords walks several subtrees in lock-step, joining their
// contributions into shared records. Keys are taken from the first subtree;
// a key missing from any other subtree is skipped.
func (t *VariableTree) LashedToRecords(paths [][]Value, names []string, prefixed bool, sep string) []*Record {
	if len(paths) == 0 {
		return nil
	}
	nodes := make([]*MapValue, len(paths))
	prefixes := make([]string, len(paths))
	for i, path := range paths {
		if len(path) == 0 {
			return nil
		}
		nodes[i] = t.Node(path)
		if nodes[i] == nil {
			return nil
		}
		prefixes[i] = emitPrefix(path, prefixed, sep)
	}
	if nodes[0].terminal {
		rec := NewRecord()
		for i, n := range nodes {
			if n.terminal {
				rec.Put(prefixes[i], n.value.String())
			}
		}
		return []*Record{rec}
	}
	for _, n := range nodes[1:] {
		if n.terminal {
			return nil
		}
	}
	var out []*Record
	lashedAcrossRecords(nodes, prefixes, names, NewRecord(), prefixed, sep, &out)
	return out
}

func emitPrefix(path []Value, prefixed bool, sep string) string {
	if !prefixed {
		return path[len(path)-1].String()
	}
	parts := make([]string, len(path))
	for i, k := range path {
		parts[i] = k.String()
	}
	return strings.Join(parts, sep)
}

func acrossRecords(level *MapValue, prefix string, names []string, template *Record, prefixed bool, sep string, out *[]*Record) {
	if len(names) > 0 {
		for key, child := range level.Entries() {
			next := template.Copy()
			next.Put(names[0], key.String())
			childPrefix := prefix
			if prefixed {
				childPrefix = prefix + sep + key.String()
			}
			if child.terminal {
				if len(names) == 1 {
					next.Put(childPrefix, child.value.String())
					*out = append(*out, next)
				}
				continue
			}
			acrossRecords(child, childPrefix, names[1:], next, prefixed, sep, out)
		}
		return
	}

	rec := template.Copy()
	emit := true
	for key, child := range level.Entries() {
		switch {
		case child.terminal:
			name := key.String()
			if prefixed {
				name = prefix + sep + name
			}
			rec.Put(name, child.value.String())
		case prefixed:
			withinRecord(child, prefix+sep+key.String(), rec, sep)
		default:
			acrossRecords(child, key.String(), nil, rec, prefixed, sep, out)
			emit = false
		}
	}
	if emit && rec.Len() > 0 {
		*out = append(*out, rec)
	}
}

func withinRecord(level *MapValue, prefix string, rec *Record, sep string) {
	for key, child := range level.Entries() {
		name := prefix + sep + key.String()
		if child.terminal {
			rec.Put(name, child.value.String())
			continue
		}
		withinRecord(child, name, rec, sep)
	}
}

func lashedChildren(levels []*MapValue, key Value) []*MapValue {
	children := make([]*MapValue, len(levels))
	for i, l := range levels {
		children[i] = l.Child(key)
		if children[i] == nil {
			return nil
		}
	}
	return children
}

func allMaps(nodes []*MapValue) bool {
	for _, n := range nodes {
		if n.terminal {
			return false
		}
	}
	return true
}

func lashedAcrossRecords(levels []*MapValue, prefixes []string, names []string, template *Record, prefixed bool, sep string, out *[]*Record) {
	if len(names) > 0 {
		for key, first := range levels[0].Entries() {
			children := lashedChildren(levels, key)
			if children == nil {
				continue
			}
			next := template.Copy()
			next.Put(names[0], key.String())
			childPrefixes := prefixes
			if prefixed {
				childPrefixes = make([]string, len(prefixes))
				for i, p := range prefixes {
					childPrefixes[i] = p + sep + key.String()
				}
			}
			if first.terminal {
				if len(names) > 1 {
					continue
				}
				for i, c := range children {
					if c.terminal {
						next.Put(childPrefixes[i], c.value.String())
					}
				}
				*out = append(*out, next)
				continue
			}
			if !allMaps(children) {
				continue
			}
			lashedAcrossRecords(children, childPrefixes, names[1:], next, prefixed, sep, out)
		}
		return
	}

	rec := template.Copy()
	emit := true
	for key, first := range levels[0].Entries() {
		children := lashedChildren(levels, key)
		if children == nil {
			continue
		}
		switch {
		case first.terminal:
			for i, c := range children {
				if !c.terminal {
					continue
				}
				name := key.String()
				if prefixed {
					name = prefixes[i] + sep + name
				}
				rec.Put(name, c.value.String())
			}
		case prefixed:
			for i, c := range children {
				if !c.terminal {
					withinRecord(c, prefixes[i]+sep+key.String(), rec, sep)
				}
			}
		default:
			if !allMaps(children) {
				continue
			}
			next := make([]string, len(children))
			for i := range next {
				next[i] = key.String()
			}
			lashedAcrossRecords(children, next, nil, rec, prefixed, sep, out)
			emit = false
		}
	}
	if emit && rec.Len() > 0 {
		*out = append(*out, rec)
	}
}
