// Package console holds the client-side editing state of the operator
// console: the persona form that feeds live sessions and the local agent
// version editor.
package console

import (
	"errors"
	"sync"
)

// ErrFormFrozen is returned when a persona edit arrives while a session
// or call is using the form's values.
var ErrFormFrozen = errors.New("persona form is locked while a session is in progress")

// PersonaForm is the free-form key/value form the operator fills in
// before starting a session. It freezes for the duration of a session so
// the persisted inputs match what the agent actually saw.
type PersonaForm struct {
	mu     sync.Mutex
	keys   []string
	values map[string]string
	frozen bool
}

func NewPersonaForm() *PersonaForm {
	return &PersonaForm{values: make(map[string]string)}
}

// Set adds or updates a field. Field order follows first insertion.
func (f *PersonaForm) Set(key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.frozen {
		return ErrFormFrozen
	}
	if _, ok := f.values[key]; !ok {
		f.keys = append(f.keys, key)
	}
	f.values[key] = value
	return nil
}

// Delete removes a field.
func (f *PersonaForm) Delete(key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.frozen {
		return ErrFormFrozen
	}
	if _, ok := f.values[key]; !ok {
		return nil
	}
	delete(f.values, key)
	for i, k := range f.keys {
		if k == key {
			f.keys = append(f.keys[:i], f.keys[i+1:]...)
			break
		}
	}
	return nil
}

// Values returns a copy of the current form contents.
func (f *PersonaForm) Values() map[string]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	values := make(map[string]string, len(f.values))
	for k, v := range f.values {
		values[k] = v
	}
	return values
}

// Keys returns the field names in insertion order.
func (f *PersonaForm) Keys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	keys := make([]string, len(f.keys))
	copy(keys, f.keys)
	return keys
}

// Freeze locks the form against edits and returns a snapshot of its
// values for the session about to start.
func (f *PersonaForm) Freeze() map[string]string {
	f.mu.Lock()
	f.frozen = true
	f.mu.Unlock()
	return f.Values()
}

// Unfreeze re-enables edits after the session ends.
func (f *PersonaForm) Unfreeze() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frozen = false
}

// Frozen reports whether the form is locked.
func (f *PersonaForm) Frozen() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.frozen
}
