package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"slices"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// refetchLimit bounds concurrent post-mutation refetches.
const refetchLimit = 4

// Client is the data-access handle shared by every view. It owns the
// response cache.
type Client struct {
	transport Transport
	cache     *cache
	flights   singleflight.Group

	mu     sync.Mutex
	active map[string]Request
}

// NewClient creates a client on top of a transport.
func NewClient(t Transport) *Client {
	return &Client{
		transport: t,
		cache:     newCache(),
		active:    make(map[string]Request),
	}
}

// Result is the outcome of a query. Loaded is false for skipped requests.
type Result struct {
	Data      json.RawMessage
	Loaded    bool
	Seq       uint64
	FromCache bool
}

// Decode unmarshals the payload into v.
func (r Result) Decode(v any) error {
	if !r.Loaded || len(r.Data) == 0 {
		return nil
	}
	return json.Unmarshal(r.Data, v)
}

// Fetch returns the cached payload for req when it is fresh, joins an
// identical request already in flight, or issues a new one. A request with
// a missing required variable is skipped: no error, Loaded is false.
func (c *Client) Fetch(ctx context.Context, req Request) (Result, error) {
	if err := checkQuery(req); err != nil {
		return Result{}, err
	}
	if name := req.Missing(); name != "" {
		log.Printf("api: %s skipped, %s not set", req.Op.Name, name)
		return Result{}, nil
	}
	if data, seq, ok := c.cache.fresh(req); ok {
		return Result{Data: data, Loaded: true, Seq: seq, FromCache: true}, nil
	}
	return c.load(ctx, req, false)
}

// Refetch always issues a new request, even if an identical one is in
// flight. The newer request's result wins regardless of arrival order.
func (c *Client) Refetch(ctx context.Context, req Request) (Result, error) {
	if err := checkQuery(req); err != nil {
		return Result{}, err
	}
	if name := req.Missing(); name != "" {
		log.Printf("api: %s skipped, %s not set", req.Op.Name, name)
		return Result{}, nil
	}
	c.flights.Forget(req.Key())
	return c.load(ctx, req, true)
}

// Cached returns whatever is stored for req, stale or not.
func (c *Client) Cached(req Request) (json.RawMessage, bool) {
	return c.cache.peek(req)
}

// IsStale reports whether req's cached payload was invalidated by a
// mutation and not yet reloaded.
func (c *Client) IsStale(req Request) bool {
	return c.cache.isStale(req)
}

// SetActive replaces the set of requests currently rendered. Only active
// requests are refetched eagerly after a mutation; the rest reload on
// their next Fetch.
func (c *Client) SetActive(reqs ...Request) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.active = make(map[string]Request, len(reqs))
	for _, r := range reqs {
		if r.Op == nil || r.Inert() {
			continue
		}
		c.active[r.Key()] = r
	}
}

func (c *Client) isActive(req Request) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.active[req.Key()]
	return ok
}

// Mutate runs a mutation and returns the entity from its payload. On
// success the related queries are invalidated and the active ones are
// reloaded before Mutate returns. On failure nothing in the cache changes
// and nothing is retried.
func (c *Client) Mutate(ctx context.Context, op *Operation, vars Vars) (json.RawMessage, error) {
	if op == nil || !op.IsMutation() {
		return nil, fmt.Errorf("api: %v is not a mutation", opName(op))
	}
	resp, err := c.transport.Execute(ctx, op, vars)
	if err != nil {
		return nil, &NetworkError{Op: op.Name, Err: err}
	}
	entity, err := resolveMutation(op, resp)
	if err != nil {
		return nil, err
	}

	stale := c.cache.invalidate(op.Refetches, refsOf(op.Typename, entity))
	// Later fetches must not join a flight that started before the mutation.
	for _, r := range stale {
		c.flights.Forget(r.Key())
	}
	c.refetchActive(ctx, stale)
	return entity, nil
}

func (c *Client) refetchActive(ctx context.Context, stale []Request) {
	var reqs []Request
	for _, r := range stale {
		if c.isActive(r) {
			reqs = append(reqs, r)
		}
	}
	if len(reqs) == 0 {
		return
	}
	sort.Slice(reqs, func(i, j int) bool { return reqs[i].Key() < reqs[j].Key() })

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(refetchLimit)
	for _, r := range reqs {
		r := r
		g.Go(func() error {
			if _, err := c.Refetch(gctx, r); err != nil {
				// The view keeps its stale data and reloads on its own.
				log.Printf("api: refetch of %s after mutation failed: %v", r.Key(), err)
			}
			return nil
		})
	}
	_ = g.Wait()
}

func (c *Client) load(ctx context.Context, req Request, force bool) (Result, error) {
	// Numbered here, not in the flight, so calls are ordered as they were made.
	seq := c.cache.begin(req)
	ch := c.flights.DoChan(req.Key(), func() (any, error) {
		// A flight that just finished may have filled the cache between
		// the caller's lookup and this one.
		if !force {
			if data, seq, ok := c.cache.fresh(req); ok {
				return Result{Data: data, Loaded: true, Seq: seq, FromCache: true}, nil
			}
		}
		// Shared by every caller of this key, so one caller's cancellation
		// must not abort it for the others.
		return c.roundTrip(context.WithoutCancel(ctx), req, seq)
	})
	select {
	case <-ctx.Done():
		return Result{}, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return Result{}, r.Err
		}
		return r.Val.(Result), nil
	}
}

func (c *Client) roundTrip(ctx context.Context, req Request, seq uint64) (Result, error) {
	resp, err := c.transport.Execute(ctx, req.Op, req.Vars)
	if err != nil {
		return Result{}, &NetworkError{Op: req.Op.Name, Err: err}
	}
	data, err := resolveQuery(req, resp)
	if err != nil {
		return Result{}, err
	}
	held, heldSeq, applied := c.cache.store(req, seq, data, refsOf(req.Op.Typename, data))
	if !applied {
		log.Printf("api: %s result #%d discarded, #%d is newer", req.Key(), seq, heldSeq)
	}
	return Result{Data: held, Loaded: true, Seq: heldSeq}, nil
}

func resolveQuery(req Request, resp *Response) (json.RawMessage, error) {
	op := req.Op
	if op.Kind == KindREST {
		p, err := decodePayload(resp.Data)
		if err != nil {
			return nil, &NetworkError{Op: op.Name, Err: err}
		}
		if !p.success() {
			return nil, &NetworkError{Op: op.Name, Err: errors.New(strings.Join(p.messages(), "; "))}
		}
		return p.field(op.Field), nil
	}

	var data map[string]json.RawMessage
	if len(resp.Data) > 0 && !isNull(resp.Data) {
		if err := json.Unmarshal(resp.Data, &data); err != nil {
			return nil, &NetworkError{Op: op.Name, Err: fmt.Errorf("failed to decode data: %w", err)}
		}
	}
	value, ok := data[op.Field]
	if op.Single && (!ok || isNull(value)) {
		nf := &NotFoundError{Op: op.Name, Vars: req.Vars}
		if len(resp.Errors) > 0 {
			nf.Message = resp.Errors.Error()
		}
		return nil, nf
	}
	if len(resp.Errors) > 0 {
		return nil, &NetworkError{Op: op.Name, Err: resp.Errors}
	}
	if !ok {
		return nil, &NetworkError{Op: op.Name, Err: fmt.Errorf("response has no %q field", op.Field)}
	}
	return value, nil
}

func resolveMutation(op *Operation, resp *Response) (json.RawMessage, error) {
	raw := resp.Data
	if op.Kind != KindREST {
		if len(resp.Errors) > 0 {
			return nil, &ValidationError{Op: op.Name, Messages: resp.Errors.Messages()}
		}
		var data map[string]json.RawMessage
		if err := json.Unmarshal(resp.Data, &data); err != nil {
			return nil, &NetworkError{Op: op.Name, Err: fmt.Errorf("failed to decode data: %w", err)}
		}
		raw = data[op.Field]
	}
	p, err := decodePayload(raw)
	if err != nil {
		return nil, &NetworkError{Op: op.Name, Err: err}
	}
	if !p.success() {
		return nil, &ValidationError{Op: op.Name, Messages: p.messages()}
	}
	return p.field(op.Entity), nil
}

// payload is a mutation result or REST envelope: {success, errors, error, <entity>}.
type payload map[string]json.RawMessage

func decodePayload(raw json.RawMessage) (payload, error) {
	if len(raw) == 0 || isNull(raw) {
		return nil, errors.New("empty payload")
	}
	var p payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("failed to decode payload: %w", err)
	}
	return p, nil
}

func (p payload) success() bool {
	var ok bool
	_ = json.Unmarshal(p["success"], &ok)
	return ok
}

func (p payload) field(name string) json.RawMessage {
	if name == "" {
		return nil
	}
	v := p[name]
	if isNull(v) {
		return nil
	}
	return v
}

// messages collects the server's error texts. "errors" may be a list of
// strings, a map of field to messages, or a single string; "error" is a
// summary used only when there is nothing more specific.
func (p payload) messages() []string {
	msgs := flattenMessages(p["errors"], "")
	if len(msgs) == 0 {
		var summary string
		if err := json.Unmarshal(p["error"], &summary); err == nil && summary != "" {
			msgs = append(msgs, summary)
		}
	}
	if len(msgs) == 0 {
		msgs = []string{"request failed"}
	}
	return msgs
}

func flattenMessages(raw json.RawMessage, prefix string) []string {
	if len(raw) == 0 || isNull(raw) {
		return nil
	}
	label := func(s string) string {
		if prefix == "" || prefix == "detail" || prefix == "__all__" {
			return s
		}
		return prefix + ": " + s
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if s == "" {
			return nil
		}
		return []string{label(s)}
	}
	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err == nil {
		var out []string
		for _, item := range list {
			out = append(out, flattenMessages(item, prefix)...)
		}
		return out
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err == nil {
		if m, ok := obj["message"]; ok {
			return flattenMessages(m, prefix)
		}
		keys := make([]string, 0, len(obj))
		for k := range obj {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		var out []string
		for _, k := range keys {
			out = append(out, flattenMessages(obj[k], k)...)
		}
		return out
	}
	return nil
}

func checkQuery(req Request) error {
	if req.Op == nil || req.Op.IsMutation() {
		return fmt.Errorf("api: %v is not a query", opName(req.Op))
	}
	return nil
}

func opName(op *Operation) string {
	if op == nil {
		return "<nil>"
	}
	return op.Name
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// FetchAs fetches req and decodes the payload into T.
func FetchAs[T any](ctx context.Context, c *Client, req Request) (T, bool, error) {
	var v T
	res, err := c.Fetch(ctx, req)
	if err != nil || !res.Loaded {
		return v, false, err
	}
	if err := res.Decode(&v); err != nil {
		return v, false, &NetworkError{Op: req.Op.Name, Err: fmt.Errorf("failed to decode %s: %w", req.Op.Field, err)}
	}
	return v, true, nil
}

// MutateAs runs a mutation and decodes the returned entity into T.
func MutateAs[T any](ctx context.Context, c *Client, op *Operation, vars Vars) (T, error) {
	var v T
	raw, err := c.Mutate(ctx, op, vars)
	if err != nil {
		return v, err
	}
	if len(raw) == 0 {
		return v, nil
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, &NetworkError{Op: op.Name, Err: fmt.Errorf("failed to decode %s: %w", op.Entity, err)}
	}
	return v, nil
}
