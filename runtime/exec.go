package mruntime

import (
	"fmt"
	"maps"
)

func (in *Interpreter) execList(stmts []Statement, out *Sink) error {
	for _, s := range stmts {
		if err := in.exec(s, out); err != nil {
			return err
		}
	}
	return nil
}

func (in *Interpreter) execBlock(b Block, out *Sink) error {
	if !b.Breakable {
		return in.execList(b.Statements, out)
	}
	for _, s := range b.Statements {
		if err := in.exec(s, out); err != nil {
			return err
		}
		if in.state.loopState() != loopNone {
			break
		}
	}
	return nil
}

func (in *Interpreter) exec(s Statement, out *Sink) error {
	st := in.state
	switch s := s.(type) {
	case *SrecAssign:
		if v := s.RHS.Evaluate(st); v.IsPresent() {
			st.SetField(s.Name, v)
		}
	case *IndirectSrecAssign:
		name := s.Name.Evaluate(st)
		if name.IsAbsent() || name.IsError() {
			return nil
		}
		if v := s.RHS.Evaluate(st); v.IsPresent() {
			st.SetField(name.String(), v)
		}
	case *OosvarAssign:
		v := s.RHS.Evaluate(st)
		if v.IsAbsent() {
			return nil
		}
		if path, ok := evalKeys(s.Path, st); ok {
			st.Vars.PutTerminal(path, v)
		}
	case *OosvarCopy:
		dst, ok := evalKeys(s.Dst, st)
		if !ok {
			return nil
		}
		if src, ok := evalKeys(s.Src, st); ok {
			st.Vars.Copy(dst, src)
		}
	case *OosvarFromFullSrec:
		path, ok := evalKeys(s.Path, st)
		if !ok {
			return nil
		}
		level := st.Vars.GetOrCreateLevel(path)
		level.Clear()
		for _, f := range st.Record.Fields() {
			v, ok := st.Overlay[f.Key]
			if !ok {
				v = Infer(f.Value, s.Mode)
			}
			level.Put(Str(f.Key), NewTerminal(v))
		}
	case *FullSrecFromOosvar:
		st.ClearRecord()
		path, ok := evalKeys(s.Path, st)
		if !ok {
			return nil
		}
		level, err := st.Vars.GetLevel(path)
		if err != nil {
			in.logger.Debug("record assignment from oosvar skipped", "error", err)
			return nil
		}
		if level == nil {
			return nil
		}
		for key, child := range level.Entries() {
			if child.IsTerminal() {
				st.SetField(key.String(), child.Value())
			}
		}
	case *Unset:
		for _, t := range s.Targets {
			in.unset(t)
		}
	case *UnsetAll:
		st.Vars.Clear()

	case *CondBlock:
		ok, err := condition(s.Cond.Evaluate(st), "conditional expression")
		if err != nil || !ok {
			return err
		}
		return in.execBlock(s.Body, out)
	case *IfChain:
		for _, item := range s.Items {
			if item.Cond != nil {
				ok, err := condition(item.Cond.Evaluate(st), "conditional expression")
				if err != nil {
					return err
				}
				if !ok {
					continue
				}
			}
			return in.execBlock(item.Body, out)
		}
	case *While:
		st.pushLoop()
		defer st.popLoop()
		for {
			ok, err := condition(s.Cond.Evaluate(st), "while condition")
			if err != nil || !ok {
				return err
			}
			if err := in.execBlock(s.Body, out); err != nil {
				return err
			}
			if in.loopDone() {
				return nil
			}
		}
	case *DoWhile:
		st.pushLoop()
		defer st.popLoop()
		for {
			if err := in.execBlock(s.Body, out); err != nil {
				return err
			}
			if in.loopDone() {
				return nil
			}
			ok, err := condition(s.Cond.Evaluate(st), "do-while condition")
			if err != nil || !ok {
				return err
			}
		}
	case *ForSrec:
		return in.forSrec(s, out)
	case *ForOosvar:
		return in.forOosvar(s, out)
	case *Break:
		st.setLoop(loopBroken)
	case *Continue:
		st.setLoop(loopContinued)

	case *Emitf:
		rec := NewRecord()
		for _, t := range s.Targets {
			rec.Put(t.Name, st.Vars.Get([]Value{Str(t.Name)}).String())
		}
		return in.deliver([]*Record{rec}, s.Redirect, out)
	case *Emit:
		names, ok := evalNames(s.Names, st)
		if !ok {
			return nil
		}
		if s.All {
			return in.deliver(st.Vars.AllToRecords(names, s.Prefixed, out.FlattenSep), s.Redirect, out)
		}
		path, ok := evalKeys(s.Path, st)
		if !ok {
			return nil
		}
		return in.deliver(st.Vars.ToRecords(path, names, s.Prefixed, out.FlattenSep), s.Redirect, out)
	case *EmitLashed:
		names, ok := evalNames(s.Names, st)
		if !ok {
			return nil
		}
		paths := make([][]Value, len(s.Paths))
		for i, p := range s.Paths {
			if paths[i], ok = evalKeys(p, st); !ok {
				return nil
			}
		}
		return in.deliver(st.Vars.LashedToRecords(paths, names, s.Prefixed, out.FlattenSep), s.Redirect, out)

	case *Print:
		text := s.Value.Evaluate(st).String()
		if s.Newline {
			text += "\n"
		}
		if s.Redirect != nil {
			name, err := in.target(s.Redirect)
			if err != nil {
				return err
			}
			return in.outputs.WriteString(name, s.Redirect.Append, text)
		}
		w := in.opts.Stdout
		if s.Stderr {
			w = in.opts.Stderr
		}
		_, err := fmt.Fprint(w, text)
		return err
	case *Dump:
		if s.Redirect != nil {
			name, err := in.target(s.Redirect)
			if err != nil {
				return err
			}
			return in.outputs.WriteString(name, s.Redirect.Append, st.Vars.JSON())
		}
		w := in.opts.Stdout
		if s.Stderr {
			w = in.opts.Stderr
		}
		return st.Vars.WriteJSON(w)
	case *Tee:
		if st.Record.Len() == 0 {
			return nil
		}
		rec := st.Record.Copy()
		for i := range rec.fields {
			if v, ok := st.Overlay[rec.fields[i].Key]; ok {
				rec.fields[i].Value = v.String()
			}
		}
		r := s.Redirect
		return in.deliver([]*Record{rec}, &r, out)

	case *Filter:
		v := s.Cond.Evaluate(st)
		if v.IsNull() || v.IsError() {
			out.EmitRecord = false
			return nil
		}
		ok, err := condition(v, "filter expression")
		if err != nil {
			return err
		}
		out.EmitRecord = ok
	case *BareBoolean:
		v := s.Expr.Evaluate(st)
		if v.IsNull() || v.IsError() {
			if in.opts.FilterMode {
				out.EmitRecord = false
			}
			return nil
		}
		ok, err := condition(v, "bare-boolean statement")
		if err != nil {
			return err
		}
		if in.opts.FilterMode {
			out.EmitRecord = ok
		}
	default:
		return fmt.Errorf("unhandled statement type %T", s)
	}
	return nil
}

// condition applies the strict boolean rule. Absent, empty and error
// values are false; any other non-boolean is an error.
func condition(v Value, what string) (bool, error) {
	if v.IsNull() || v.IsError() {
		return false, nil
	}
	b, ok := v.AsBool()
	if !ok {
		return false, fmt.Errorf("%s: expected boolean, got %s %q", what, v.Kind(), v.String())
	}
	return b, nil
}

// loopDone consumes the loop-control flag raised by the last body pass and
// reports whether the loop should exit.
func (in *Interpreter) loopDone() bool {
	switch in.state.loopState() {
	case loopBroken:
		in.state.setLoop(loopNone)
		return true
	case loopContinued:
		in.state.setLoop(loopNone)
	}
	return false
}

func (in *Interpreter) unset(t VarArg) {
	st := in.state
	switch t.Kind {
	case VarFullRecord:
		st.ClearRecord()
	case VarFieldName:
		st.UnsetField(t.Name)
	case VarComputedField:
		name := t.Expr.Evaluate(st)
		if !name.IsAbsent() && !name.IsError() {
			st.UnsetField(name.String())
		}
	case VarOosvarPath:
		if path, ok := evalKeys(t.Path, st); ok {
			st.Vars.Remove(path)
		}
	}
}

func (in *Interpreter) forSrec(s *ForSrec, out *Sink) error {
	st := in.state
	st.pushScope(s.frame)
	defer st.popScope()
	st.pushLoop()
	defer st.popLoop()

	rec := st.Record.Copy()
	overlay := maps.Clone(st.Overlay)
	for _, f := range rec.Fields() {
		v, ok := overlay[f.Key]
		if !ok {
			v = Infer(f.Value, s.Mode)
		}
		s.frame.Bind(s.KeyName, Str(f.Key))
		s.frame.Bind(s.ValueName, v)
		if err := in.execBlock(s.Body, out); err != nil {
			return err
		}
		if in.loopDone() {
			break
		}
	}
	return nil
}

func (in *Interpreter) forOosvar(s *ForOosvar, out *Sink) error {
	st := in.state
	st.pushScope(s.frame)
	defer st.popScope()
	st.pushLoop()
	defer st.popLoop()

	path, ok := evalKeys(s.Path, st)
	if !ok {
		return nil
	}
	sub := st.Vars.CopySubmap(path)
	if sub == nil || sub.IsTerminal() {
		return nil
	}
	_, err := in.forOosvarLevel(s, sub, s.KeyNames, out)
	return err
}

// forOosvarLevel binds one key name per map level and runs the body at
// terminals. Levels that are too shallow or too deep for the key names are
// skipped. It reports whether the loop was broken.
func (in *Interpreter) forOosvarLevel(s *ForOosvar, node *MapValue, names []string, out *Sink) (bool, error) {
	if len(names) == 0 {
		if !node.IsTerminal() {
			return false, nil
		}
		s.frame.Bind(s.ValueName, node.Value())
		if err := in.execBlock(s.Body, out); err != nil {
			return false, err
		}
		return in.loopDone(), nil
	}
	if node.IsTerminal() {
		return false, nil
	}
	for key, child := range node.Entries() {
		s.frame.Bind(names[0], key)
		broken, err := in.forOosvarLevel(s, child, names[1:], out)
		if err != nil || broken {
			return broken, err
		}
	}
	return false, nil
}

func (in *Interpreter) target(r *Redirect) (string, error) {
	v := r.Target.Evaluate(in.state)
	if v.IsAbsent() || v.IsError() || v.String() == "" {
		return "", fmt.Errorf("output redirection yielded %s filename", v.Kind())
	}
	return v.String(), nil
}

// deliver sends records to the stream or, when redirected, to a file.
func (in *Interpreter) deliver(recs []*Record, r *Redirect, out *Sink) error {
	if r == nil {
		out.emit(recs...)
		return nil
	}
	if len(recs) == 0 {
		return nil
	}
	name, err := in.target(r)
	if err != nil {
		return err
	}
	return in.outputs.WriteRecords(name, r.Append, recs)
}
