// Package registry provides thread-safe plugin tables and extractor selection.
package registry

import (
	"cmp"
	"reflect"
	"slices"
	"strings"
	"sync"
	"unicode"

	"github.com/fwojciec/docint"
)

// Handle is one registered plugin.
//
// Handles are immutable once registered. A handle retrieved from a table
// stays valid after the name is unregistered or replaced, so an in-flight
// invocation can keep using it.
type Handle[T docint.Plugin] struct {
	Name     string
	Family   docint.Family
	Priority int
	Stage    docint.ProcessingStage
	Plugin   T

	seq uint64
}

// Seq returns the handle's registration sequence number. Later
// registrations have larger numbers.
func (h *Handle[T]) Seq() uint64 {
	return h.seq
}

// Option overrides a plugin's declared defaults at registration.
type Option func(*options)

type options struct {
	priority *int
	stage    *docint.ProcessingStage
}

// WithPriority overrides the plugin's declared priority.
func WithPriority(p int) Option {
	return func(o *options) {
		o.priority = &p
	}
}

// WithStage overrides the post-processor's declared stage.
func WithStage(s docint.ProcessingStage) Option {
	return func(o *options) {
		o.stage = &s
	}
}

// Table is a name to handle map for one plugin family.
//
// Readers run concurrently with each other. Writers hold the table
// exclusively for the duration of the map mutation only; plugins are never
// invoked while the lock is held.
type Table[T docint.Plugin] struct {
	family   docint.Family
	defaults func(T) (priority int, stage docint.ProcessingStage)

	mu      sync.RWMutex
	entries map[string]*Handle[T]
	retired []*Handle[T] // displaced handles awaiting Set.Close
	seq     uint64
}

// NewTable creates an empty table for family. The defaults function, if
// non-nil, supplies a plugin's declared priority and stage.
func NewTable[T docint.Plugin](family docint.Family, defaults func(T) (int, docint.ProcessingStage)) *Table[T] {
	return &Table[T]{
		family:   family,
		defaults: defaults,
		entries:  make(map[string]*Handle[T]),
	}
}

// Family returns the plugin family stored in the table.
func (t *Table[T]) Family() docint.Family {
	return t.family
}

// Register adds plugin under name, replacing any existing entry atomically.
// A replaced or re-registered name counts as a new registration: it moves
// to the end of the registration order.
//
// If the plugin implements docint.Initializer, Initialize is called before
// the table is locked; an error rejects the registration. A replaced plugin
// is not shut down here, since in-flight runs may still hold its handle; it
// is retired and shut down by Set.Close.
func (t *Table[T]) Register(name string, plugin T, opts ...Option) (*Handle[T], error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	h := &Handle[T]{
		Name:   name,
		Family: t.family,
		Plugin: plugin,
	}
	if t.defaults != nil {
		h.Priority, h.Stage = t.defaults(plugin)
	}
	if o.priority != nil {
		h.Priority = *o.priority
	}
	if o.stage != nil {
		h.Stage = *o.stage
	}

	if init, ok := any(plugin).(docint.Initializer); ok {
		if err := init.Initialize(); err != nil {
			return nil, docint.PluginError(docint.EINVALID, name, err)
		}
	}

	t.mu.Lock()
	t.seq++
	h.seq = t.seq
	if old, ok := t.entries[name]; ok && !samePlugin(old.Plugin, plugin) {
		t.retired = append(t.retired, old)
	}
	t.entries[name] = h
	t.mu.Unlock()

	return h, nil
}

// Unregister removes the entry for name. It is a no-op if name is absent.
// The removed plugin is retired until Set.Close.
func (t *Table[T]) Unregister(name string) {
	t.mu.Lock()
	if old, ok := t.entries[name]; ok {
		t.retired = append(t.retired, old)
		delete(t.entries, name)
	}
	t.mu.Unlock()
}

// Get returns the handle registered under name.
// The bool result is false if no such handle exists.
func (t *Table[T]) Get(name string) (*Handle[T], bool) {
	t.mu.RLock()
	h, ok := t.entries[name]
	t.mu.RUnlock()
	return h, ok
}

// List returns registered names in registration order.
func (t *Table[T]) List() []string {
	handles := t.Snapshot()
	names := make([]string, len(handles))
	for i, h := range handles {
		names[i] = h.Name
	}
	return names
}

// Snapshot returns the current handles in registration order.
// The returned slice is owned by the caller.
func (t *Table[T]) Snapshot() []*Handle[T] {
	t.mu.RLock()
	handles := make([]*Handle[T], 0, len(t.entries))
	for _, h := range t.entries {
		handles = append(handles, h)
	}
	t.mu.RUnlock()

	slices.SortFunc(handles, func(a, b *Handle[T]) int {
		return cmp.Compare(a.seq, b.seq)
	})
	return handles
}

// Len returns the number of registered handles.
func (t *Table[T]) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

// Clear removes all entries. The removed plugins are retired until
// Set.Close.
func (t *Table[T]) Clear() {
	t.mu.Lock()
	for _, h := range t.entries {
		t.retired = append(t.retired, h)
	}
	t.entries = make(map[string]*Handle[T])
	t.mu.Unlock()
}

// drain empties the table and returns the retired handles followed by the
// live ones in registration order.
func (t *Table[T]) drain() []*Handle[T] {
	t.mu.Lock()
	retired := t.retired
	live := make([]*Handle[T], 0, len(t.entries))
	for _, h := range t.entries {
		live = append(live, h)
	}
	t.retired = nil
	t.entries = make(map[string]*Handle[T])
	t.mu.Unlock()

	slices.SortFunc(live, func(a, b *Handle[T]) int {
		return cmp.Compare(a.seq, b.seq)
	})
	return append(retired, live...)
}

// samePlugin reports whether a and b are the same plugin value.
func samePlugin(a, b any) bool {
	ta := reflect.TypeOf(a)
	if ta == nil || ta != reflect.TypeOf(b) || !ta.Comparable() {
		return false
	}
	return a == b
}

// ValidateName returns EINVALID if name is empty or contains whitespace.
func ValidateName(name string) error {
	if name == "" {
		return docint.Errorf(docint.EINVALID, "plugin name required")
	}
	if strings.IndexFunc(name, unicode.IsSpace) >= 0 {
		return docint.Errorf(docint.EINVALID, "plugin name %q must not contain whitespace", name)
	}
	return nil
}
