package state

import (
	"github.com/tgienger/taskhq/internal/api"
)

// Ticket identifies one load issued for a binding. Only the binding's
// newest ticket may update it; anything older arrived too late.
type Ticket struct {
	Binding string
	Key     string
	Seq     uint64
}

// Binding is one view's data dependency: a request and whatever it last
// produced. A request with a missing required variable leaves the binding
// inert, never loading and never failing.
type Binding[T any] struct {
	name    string
	req     api.Request
	bound   bool
	seq     uint64
	loading bool
	loaded  bool
	missing bool
	data    T
	err     error
}

// NewBinding creates an unbound binding.
func NewBinding[T any](name string) *Binding[T] {
	return &Binding[T]{name: name}
}

func (b *Binding[T]) Name() string { return b.name }

// Bind points the binding at req and issues a ticket for loading it. When
// req is for a different key the previous data is dropped. ok is false
// when the request is inert.
func (b *Binding[T]) Bind(req api.Request) (t Ticket, ok bool) {
	if !b.bound || req.Key() != b.req.Key() {
		b.reset()
	}
	b.req = req
	b.bound = true
	b.seq++
	if req.Inert() {
		b.loading = false
		return Ticket{}, false
	}
	b.loading = true
	return Ticket{Binding: b.name, Key: req.Key(), Seq: b.seq}, true
}

// Reload issues a new ticket for the current request.
func (b *Binding[T]) Reload() (Ticket, bool) {
	if !b.bound {
		return Ticket{}, false
	}
	return b.Bind(b.req)
}

// Unbind drops the request and its data. Outstanding tickets are void.
func (b *Binding[T]) Unbind() {
	b.reset()
	b.req = api.Request{}
	b.bound = false
	b.seq++
}

func (b *Binding[T]) reset() {
	var zero T
	b.data = zero
	b.loaded = false
	b.loading = false
	b.missing = false
	b.err = nil
}

// Current reports whether t is the newest ticket for this binding.
func (b *Binding[T]) Current(t Ticket) bool {
	return b.bound && t.Binding == b.name && t.Seq == b.seq && t.Key == b.req.Key()
}

// Resolve applies a finished load. It returns false, changing nothing,
// when t has been superseded. A failure keeps previously loaded data; a
// not-found result clears it.
func (b *Binding[T]) Resolve(t Ticket, data T, loaded bool, err error) bool {
	if !b.Current(t) {
		return false
	}
	b.loading = false
	switch {
	case api.IsNotFound(err):
		var zero T
		b.data = zero
		b.loaded = false
		b.missing = true
		b.err = err
	case err != nil:
		b.err = err
	case !loaded:
		// skipped by the client
	default:
		b.data = data
		b.loaded = true
		b.missing = false
		b.err = nil
	}
	return true
}

func (b *Binding[T]) Request() api.Request { return b.req }
func (b *Binding[T]) Bound() bool          { return b.bound }
func (b *Binding[T]) Inert() bool          { return !b.bound || b.req.Inert() }
func (b *Binding[T]) Loading() bool        { return b.loading }
func (b *Binding[T]) Loaded() bool         { return b.loaded }
func (b *Binding[T]) Missing() bool        { return b.missing }
func (b *Binding[T]) Err() error           { return b.err }

// Data returns the loaded value.
func (b *Binding[T]) Data() (T, bool) { return b.data, b.loaded }

// Value returns the loaded value or the zero value.
func (b *Binding[T]) Value() T { return b.data }
