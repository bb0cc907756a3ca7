package callback

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

var ErrVarConflict = errors.New("variable already published")

// Vars is the variable collector of one request. Values published during a
// batch stay pending and become readable after Commit, so callbacks of one
// batch never observe each other.
type Vars struct {
	mu        sync.RWMutex
	committed map[string]any
	pending   map[string]any
}

func NewVars() *Vars {
	return &Vars{committed: map[string]any{}, pending: map[string]any{}}
}

// Get reads a committed value.
func (v *Vars) Get(name string) (any, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	val, ok := v.committed[name]
	return val, ok
}

// Publish stages a value. Each name can be published once per request.
func (v *Vars) Publish(name string, val any) error {
	if name == "" {
		return errors.New("publish: empty variable name")
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if _, ok := v.committed[name]; ok {
		return fmt.Errorf("publish %q: %w", name, ErrVarConflict)
	}
	if _, ok := v.pending[name]; ok {
		return fmt.Errorf("publish %q: %w", name, ErrVarConflict)
	}
	v.pending[name] = val
	return nil
}

// Commit makes pending values readable and returns their names sorted.
func (v *Vars) Commit() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	names := make([]string, 0, len(v.pending))
	for k, val := range v.pending {
		v.committed[k] = val
		names = append(names, k)
	}
	v.pending = map[string]any{}
	sort.Strings(names)
	return names
}

// Snapshot copies the committed values.
func (v *Vars) Snapshot() map[string]any {
	v.mu.RLock()
	defer v.mu.RUnlock()
	out := make(map[string]any, len(v.committed))
	for k, val := range v.committed {
		out[k] = val
	}
	return out
}
