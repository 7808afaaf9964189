package dashboard

import (
	"context"
	"encoding/json"

	"github.com/tgienger/taskhq/internal/api"
	"github.com/tgienger/taskhq/internal/forms"
	"github.com/tgienger/taskhq/internal/models"
	"github.com/tgienger/taskhq/internal/state"
)

// Load is one unit of asynchronous work: a query for a binding or a
// mutation. Run it anywhere; hand the Result back to Apply on the
// goroutine that owns the Dashboard.
type Load struct {
	client *api.Client

	// fetch
	ticket state.Ticket
	req    api.Request
	force  bool

	// mutation
	sub        *forms.Submission
	form       *forms.Form
	statusTask models.ID
}

// Result is a finished Load.
type Result struct {
	Load   Load
	Data   json.RawMessage
	Loaded bool
	Err    error
}

// IsMutation reports whether the load changes server state.
func (l Load) IsMutation() bool { return l.sub != nil }

// Name describes the load for logs.
func (l Load) Name() string {
	if l.sub != nil {
		return l.sub.Op.Name
	}
	return l.req.Key()
}

// Run performs the load. It never panics on failure; errors travel in the
// Result.
func (l Load) Run(ctx context.Context) Result {
	if l.sub != nil {
		entity, err := l.sub.Run(ctx, l.client)
		return Result{Load: l, Data: entity, Loaded: err == nil, Err: err}
	}
	var (
		res api.Result
		err error
	)
	if l.force {
		res, err = l.client.Refetch(ctx, l.req)
	} else {
		res, err = l.client.Fetch(ctx, l.req)
	}
	return Result{Load: l, Data: res.Data, Loaded: res.Loaded, Err: err}
}
