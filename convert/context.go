package convert

// Scope is the stack-scoped context slot shared by one conversion tree.
// Entering a conversion installs a merge of {previous context, built
// context, caller-supplied context}; exiting restores the previous
// value, including on error unwind.
//
// A conversion tree runs single-threaded and depth-first, so a Scope
// needs no locking; each top-level Convert call creates its own Scope
// unless an explicit parent threads one in. Scopes are never shared
// across goroutines.
type Scope struct {
	stack []map[string]any
}

// NewScope creates a scope with an empty current context.
func NewScope() *Scope {
	return &Scope{}
}

// Current returns the innermost active context. The returned map must
// not be mutated.
func (s *Scope) Current() map[string]any {
	if len(s.stack) == 0 {
		return map[string]any{}
	}

	return s.stack[len(s.stack)-1]
}

// enter installs merge(current, built, supplied), later sources
// overriding earlier keys, and returns the restore function. Callers
// must defer the restore so the previous context survives panics and
// error returns.
func (s *Scope) enter(built, supplied map[string]any) func() {
	merged := make(map[string]any, len(s.Current())+len(built)+len(supplied))

	for k, v := range s.Current() {
		merged[k] = v
	}

	for k, v := range built {
		merged[k] = v
	}

	for k, v := range supplied {
		merged[k] = v
	}

	s.stack = append(s.stack, merged)

	return func() {
		s.stack = s.stack[:len(s.stack)-1]
	}
}
