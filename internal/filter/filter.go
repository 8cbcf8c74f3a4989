package filter

import (
	"sort"
	"strings"
	"sync"
)

// Mode controls how a multi-tag selection matches tasks.
// ModeAny is the server default and is never sent on the wire.
type Mode string

const (
	ModeAny Mode = "any"
	ModeAll Mode = "all"
)

// Selection is the set of tag names a task list is filtered by.
// It is a value type: mutating methods return a new Selection, so a
// Selection can safely serve as part of a cache key.
type Selection struct {
	names []string // sorted, no duplicates
	mode  Mode
}

func NewSelection(names ...string) Selection {
	var s Selection
	for _, n := range names {
		s = s.Toggle(n)
	}
	return s
}

// Toggle adds the tag if absent, removes it if present.
func (s Selection) Toggle(name string) Selection {
	name = strings.TrimSpace(name)
	if name == "" {
		return s
	}

	out := make([]string, 0, len(s.names)+1)
	removed := false
	for _, n := range s.names {
		if n == name {
			removed = true
			continue
		}
		out = append(out, n)
	}
	if !removed {
		out = append(out, name)
		sort.Strings(out)
	}
	return Selection{names: out, mode: s.mode}
}

func (s Selection) Has(name string) bool {
	for _, n := range s.names {
		if n == name {
			return true
		}
	}
	return false
}

func (s Selection) Empty() bool {
	return len(s.names) == 0
}

func (s Selection) Names() []string {
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

// CSV serializes the selection the way the list endpoint expects it.
func (s Selection) CSV() string {
	return strings.Join(s.names, ",")
}

func (s Selection) Mode() Mode {
	if s.mode == "" {
		return ModeAny
	}
	return s.mode
}

func (s Selection) WithMode(m Mode) Selection {
	return Selection{names: s.names, mode: m}
}

// Params is the canonical, order-independent cache-key form of the
// selection. An empty selection yields the empty string.
func (s Selection) Params() string {
	if s.Empty() {
		return ""
	}
	if s.Mode() == ModeAll {
		return "tags=" + s.CSV() + "&mode=all"
	}
	return "tags=" + s.CSV()
}

// State holds the active selection. Every discrete change reports the new
// selection to onChange, which recomputes the task-list cache key.
type State struct {
	mu       sync.Mutex
	sel      Selection
	onChange func(Selection)
}

func NewState(onChange func(Selection)) *State {
	return &State{onChange: onChange}
}

func (st *State) Selection() Selection {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.sel
}

func (st *State) Toggle(name string) Selection {
	st.mu.Lock()
	st.sel = st.sel.Toggle(name)
	sel := st.sel
	st.mu.Unlock()

	if st.onChange != nil {
		st.onChange(sel)
	}
	return sel
}

func (st *State) SetMode(m Mode) Selection {
	st.mu.Lock()
	changed := st.sel.Mode() != m
	st.sel = st.sel.WithMode(m)
	sel := st.sel
	st.mu.Unlock()

	if changed && !sel.Empty() && st.onChange != nil {
		st.onChange(sel)
	}
	return sel
}
