package lumen

// Cons allocates a new pair, retaining both car and cdr.
func (s *State) Cons(car, cdr Value) Value {
	s.Retain(car)
	s.Retain(cdr)
	return s.alloc(TagPair, &pairObj{Car: car, Cdr: cdr})
}

// Car returns the car of a pair, or nil for nil (matching the original's
// "car/cdr of nil is nil" rule). Calling Car on anything else panics with a
// *LumenError, to be caught and rendered by the evaluator.
func (s *State) Car(v Value) Value {
	if v.IsNil() {
		return Nil
	}
	if v.IsNumber() || v.Type() != TagPair {
		panic(s.errorf(v, "attempt to take car of a non-pair"))
	}
	return s.pairAt(v).Car
}

func (s *State) Cdr(v Value) Value {
	if v.IsNil() {
		return Nil
	}
	if v.IsNumber() || v.Type() != TagPair {
		panic(s.errorf(v, "attempt to take cdr of a non-pair"))
	}
	return s.pairAt(v).Cdr
}

func (s *State) SetCar(v, x Value) {
	if v.IsNumber() || v.Type() != TagPair {
		panic(s.errorf(v, "setcar: not a pair"))
	}
	p := s.pairAt(v)
	s.Retain(x)
	s.Release(p.Car)
	p.Car = x
}

func (s *State) SetCdr(v, x Value) {
	if v.IsNumber() || v.Type() != TagPair {
		panic(s.errorf(v, "setcdr: not a pair"))
	}
	p := s.pairAt(v)
	s.Retain(x)
	s.Release(p.Cdr)
	p.Cdr = x
}

// ListOf builds a proper list from items, retaining each element.
func (s *State) ListOf(items ...Value) Value {
	head := Nil
	tail := &head
	for _, it := range items {
		cell := s.Cons(it, Nil)
		*tail = cell
		tail = &s.pairAt(cell).Cdr
	}
	return head
}

// ListToSlice walks a proper list into a Go slice without retaining
// (borrowed references valid only as long as the list itself is alive).
func (s *State) ListToSlice(v Value) []Value {
	var out []Value
	for !v.IsNil() {
		if v.IsNumber() || v.Type() != TagPair {
			panic(s.errorf(v, "improper list"))
		}
		p := s.pairAt(v)
		out = append(out, p.Car)
		v = p.Cdr
	}
	return out
}

func (s *State) ValueEqual(a, b Value) bool {
	if a == b {
		return true
	}
	if a.IsNumber() != b.IsNumber() {
		return false
	}
	if a.IsNumber() {
		return a.Number() == b.Number()
	}
	if a.Type() != b.Type() {
		return false
	}
	switch a.Type() {
	case TagString:
		return s.stringAt(a).S == s.stringAt(b).S
	case TagSymbol:
		return s.symbolAt(a).Name == s.symbolAt(b).Name
	case TagPair:
		pa, pb := s.pairAt(a), s.pairAt(b)
		return s.ValueEqual(pa.Car, pb.Car) && s.ValueEqual(pa.Cdr, pb.Cdr)
	default:
		return a == b
	}
}
