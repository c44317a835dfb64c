package mruntime

import "strings"

type Field struct {
	Key   string
	Value string
}

// Record is an ordered string-keyed field list. Lookups are linear; records
// are short.
type Record struct {
	fields []Field
}

func NewRecord() *Record {
	return &Record{}
}

// RecordFrom builds a record from alternating key/value strings.
func RecordFrom(kv ...string) *Record {
	r := &Record{fields: make([]Field, 0, len(kv)/2)}
	for i := 0; i+1 < len(kv); i += 2 {
		r.Put(kv[i], kv[i+1])
	}
	return r
}

func (r *Record) index(key string) int {
	for i := range r.fields {
		if r.fields[i].Key == key {
			return i
		}
	}
	return -1
}

func (r *Record) Get(key string) (string, bool) {
	if i := r.index(key); i >= 0 {
		return r.fields[i].Value, true
	}
	return "", false
}

func (r *Record) Has(key string) bool {
	return r.index(key) >= 0
}

// Put replaces an existing field in place or appends a new one.
func (r *Record) Put(key, value string) {
	if i := r.index(key); i >= 0 {
		r.fields[i].Value = value
		return
	}
	r.fields = append(r.fields, Field{Key: key, Value: value})
}

func (r *Record) Remove(key string) {
	if i := r.index(key); i >= 0 {
		r.fields = append(r.fields[:i], r.fields[i+1:]...)
	}
}

func (r *Record) Clear() {
	r.fields = r.fields[:0]
}

func (r *Record) Copy() *Record {
	cp := &Record{fields: make([]Field, len(r.fields))}
	copy(cp.fields, r.fields)
	return cp
}

func (r *Record) Len() int {
	return len(r.fields)
}

// Fields returns the backing slice; callers must not modify it.
func (r *Record) Fields() []Field {
	return r.fields
}

func (r *Record) Keys() []string {
	keys := make([]string, len(r.fields))
	for i, f := range r.fields {
		keys[i] = f.Key
	}
	return keys
}

// String renders the record as DKVP.
func (r *Record) String() string {
	var b strings.Builder
	for i, f := range r.fields {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(f.Key)
		b.WriteByte('=')
		b.WriteString(f.Value)
	}
	return b.String()
}
