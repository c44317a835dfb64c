package mruntime

// Context carries the per-record stream position visible to expressions.
type Context struct {
	NR       int64
	FNR      int64
	Filename string
}

type loopFlag uint8

const (
	loopNone loopFlag = iota
	loopBroken
	loopContinued
)

// ScopeFrame holds the bound variables of one active for-loop. Each for
// statement owns one frame and reuses it on every execution.
type ScopeFrame struct {
	vars map[string]Value
}

func newScopeFrame() *ScopeFrame {
	return &ScopeFrame{vars: map[string]Value{}}
}

func (f *ScopeFrame) Bind(name string, v Value) {
	f.vars[name] = v
}

func (f *ScopeFrame) reset() {
	clear(f.vars)
}

// State is the mutable context of one run: the current record and its
// typed overlay, the variable tree, and the scope and loop-control stacks.
type State struct {
	Record  *Record
	Overlay map[string]Value
	Vars    *VariableTree
	Context Context

	scopes []*ScopeFrame
	loops  []loopFlag
}

func NewState() *State {
	return &State{
		Record:  NewRecord(),
		Overlay: map[string]Value{},
		Vars:    NewVariableTree(),
	}
}

// SetRecord installs rec as the current record and drops the overlay.
func (st *State) SetRecord(rec *Record, ctx Context) {
	if rec == nil {
		rec = NewRecord()
	}
	st.Record = rec
	clear(st.Overlay)
	st.Context = ctx
}

// Field reads a field, preferring the typed overlay.
func (st *State) Field(name string, mode InferMode) Value {
	if v, ok := st.Overlay[name]; ok {
		return v
	}
	if s, ok := st.Record.Get(name); ok {
		return Infer(s, mode)
	}
	return Absent()
}

// SetField writes a typed value to the overlay and reserves the field's
// position in the record.
func (st *State) SetField(name string, v Value) {
	st.Overlay[name] = v
	if !st.Record.Has(name) {
		st.Record.Put(name, "")
	}
}

func (st *State) UnsetField(name string) {
	st.Record.Remove(name)
	delete(st.Overlay, name)
}

func (st *State) ClearRecord() {
	st.Record.Clear()
	clear(st.Overlay)
}

// FlushOverlay formats overlay values into the record's string fields.
func (st *State) FlushOverlay() {
	for i := range st.Record.fields {
		f := &st.Record.fields[i]
		if v, ok := st.Overlay[f.Key]; ok {
			f.Value = v.String()
		}
	}
	clear(st.Overlay)
}

// Bound looks a bound variable up from the innermost scope outwards.
func (st *State) Bound(name string) Value {
	for i := len(st.scopes) - 1; i >= 0; i-- {
		if v, ok := st.scopes[i].vars[name]; ok {
			return v
		}
	}
	return Absent()
}

func (st *State) pushScope(f *ScopeFrame) {
	f.reset()
	st.scopes = append(st.scopes, f)
}

func (st *State) popScope() {
	st.scopes[len(st.scopes)-1].reset()
	st.scopes = st.scopes[:len(st.scopes)-1]
}

func (st *State) pushLoop() {
	st.loops = append(st.loops, loopNone)
}

func (st *State) popLoop() {
	st.loops = st.loops[:len(st.loops)-1]
}

func (st *State) loopState() loopFlag {
	if len(st.loops) == 0 {
		return loopNone
	}
	return st.loops[len(st.loops)-1]
}

func (st *State) setLoop(f loopFlag) {
	if len(st.loops) == 0 {
		return
	}
	st.loops[len(st.loops)-1] = f
}

// Depth reports the number of active loop and scope frames.
func (st *State) Depth() (loops, scopes int) {
	return len(st.loops), len(st.scopes)
}

// Sink collects the records emitted while running one statement list.
type Sink struct {
	Records    []*Record
	EmitRecord bool
	FlattenSep string
}

func NewSink(sep string) *Sink {
	if sep == "" {
		sep = ":"
	}
	return &Sink{EmitRecord: true, FlattenSep: sep}
}

func (s *Sink) emit(recs ...*Record) {
	s.Records = append(s.Records, recs...)
}
