// Package forms holds the input state of the create/edit modals. A form
// validates locally, hands out one immutable Submission at a time and keeps
// every entered value when the server rejects it.
package forms

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/tgienger/taskhq/internal/api"
)

var (
	// ErrSubmitPending is returned by Begin while an earlier submission has
	// not finished.
	ErrSubmitPending = errors.New("a submission is already pending")
	// ErrInvalid wraps local validation failures.
	ErrInvalid = errors.New("form has invalid fields")
)

// Kind says which entity a form edits.
type Kind int

const (
	KindOrganization Kind = iota
	KindProject
	KindTask
	KindComment
)

func (k Kind) String() string {
	switch k {
	case KindOrganization:
		return "organization"
	case KindProject:
		return "project"
	case KindTask:
		return "task"
	case KindComment:
		return "comment"
	}
	return "unknown"
}

// Field is one input.
type Field struct {
	Key       string
	Label     string
	Value     string
	Required  bool
	Email     bool
	Multiline bool
	Choices   []string // the value must be one of these
	Hint      string
}

// Mutator is the part of the data-access client a submission needs.
type Mutator interface {
	Mutate(ctx context.Context, op *api.Operation, vars api.Vars) (json.RawMessage, error)
}

// Submission is a validated snapshot of a form, ready to send.
type Submission struct {
	Kind    Kind
	Editing bool
	Op      *api.Operation
	Vars    api.Vars
}

// Run performs the mutation. It does not touch the form; pass the error to
// Form.Finish.
func (s *Submission) Run(ctx context.Context, m Mutator) (json.RawMessage, error) {
	return m.Mutate(ctx, s.Op, s.Vars)
}

// Form is the local state of one open modal.
type Form struct {
	kind    Kind
	editing bool
	fields  []Field
	build   func(f *Form) (*api.Operation, api.Vars, []string)

	pending bool
	errors  []string
}

func (f *Form) Kind() Kind         { return f.kind }
func (f *Form) Editing() bool      { return f.editing }
func (f *Form) Pending() bool      { return f.pending }
func (f *Form) Errors() []string   { return f.errors }
func (f *Form) Fields() []Field    { return f.fields }
func (f *Form) Field(i int) *Field { return &f.fields[i] }

// Value returns the raw value of a field.
func (f *Form) Value(key string) string {
	if fd := f.lookup(key); fd != nil {
		return fd.Value
	}
	return ""
}

// Set changes a field. Input is ignored while a submission is pending.
func (f *Form) Set(key, value string) {
	if f.pending {
		return
	}
	if fd := f.lookup(key); fd != nil {
		fd.Value = value
	}
}

// Cycle moves a choice field by delta, wrapping around.
func (f *Form) Cycle(key string, delta int) {
	fd := f.lookup(key)
	if fd == nil || len(fd.Choices) == 0 || f.pending {
		return
	}
	idx := 0
	for i, c := range fd.Choices {
		if c == fd.Value {
			idx = i
			break
		}
	}
	n := len(fd.Choices)
	fd.Value = fd.Choices[((idx+delta)%n+n)%n]
}

func (f *Form) lookup(key string) *Field {
	for i := range f.fields {
		if f.fields[i].Key == key {
			return &f.fields[i]
		}
	}
	return nil
}

func (f *Form) trimmed(key string) string {
	return strings.TrimSpace(f.Value(key))
}

// Begin validates the form and, if it is valid, marks it pending and
// returns the submission. Invalid input never produces a submission.
func (f *Form) Begin() (*Submission, error) {
	if f.pending {
		return nil, ErrSubmitPending
	}
	msgs := f.validate()
	var (
		op   *api.Operation
		vars api.Vars
	)
	if len(msgs) == 0 {
		op, vars, msgs = f.build(f)
	}
	if len(msgs) > 0 {
		f.errors = msgs
		return nil, fmt.Errorf("%w: %s", ErrInvalid, strings.Join(msgs, "; "))
	}
	f.errors = nil
	f.pending = true
	return &Submission{Kind: f.kind, Editing: f.editing, Op: op, Vars: vars}, nil
}

// Finish ends the pending submission. On failure the entered values stay
// and the server's messages become the form's errors.
func (f *Form) Finish(err error) {
	f.pending = false
	f.errors = api.ErrorMessages(err)
}

func (f *Form) validate() []string {
	var msgs []string
	for _, fd := range f.fields {
		v := strings.TrimSpace(fd.Value)
		switch {
		case fd.Required && v == "":
			msgs = append(msgs, fd.Label+" is required")
		case v == "":
		case fd.Email && !strings.Contains(v, "@"):
			msgs = append(msgs, fd.Label+" must be an email address")
		case len(fd.Choices) > 0 && !slices.Contains(fd.Choices, v):
			msgs = append(msgs, fmt.Sprintf("%s must be one of %s", fd.Label, strings.Join(fd.Choices, ", ")))
		}
	}
	return msgs
}

// optional maps a blank value to JSON null.
func optional(v string) any {
	if v == "" {
		return nil
	}
	return v
}
