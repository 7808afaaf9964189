package api

import (
	"bytes"
	"encoding/json"
	"slices"
	"sync"

	"github.com/tgienger/taskhq/internal/models"
)

// EntityRef identifies a server entity inside cached payloads, e.g. Task:5.
type EntityRef struct {
	Typename string
	ID       models.ID
}

type entry struct {
	req     Request
	data    json.RawMessage
	loaded  bool
	stale   bool
	written uint64 // sequence number of the request whose data is stored
	// requests started at or before invalidAt may carry pre-mutation data
	invalidAt uint64
	refs      []EntityRef
}

// cache stores query payloads by request key. A write only lands when it
// comes from a request started after the one currently stored, so a slow
// older response can never replace a newer one.
type cache struct {
	mu      sync.Mutex
	seq     uint64
	entries map[string]*entry
}

func newCache() *cache {
	return &cache{entries: make(map[string]*entry)}
}

func (c *cache) entryLocked(req Request) *entry {
	key := req.Key()
	e, ok := c.entries[key]
	if !ok {
		e = &entry{req: req}
		c.entries[key] = e
	}
	return e
}

// fresh returns the stored payload when it is loaded and not stale.
func (c *cache) fresh(req Request) (json.RawMessage, uint64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[req.Key()]
	if !ok || !e.loaded || e.stale {
		return nil, 0, false
	}
	return e.data, e.written, true
}

// peek returns whatever is stored, stale or not.
func (c *cache) peek(req Request) (json.RawMessage, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[req.Key()]
	if !ok || !e.loaded {
		return nil, false
	}
	return e.data, true
}

// begin allocates the sequence number for a new network request.
func (c *cache) begin(req Request) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	c.entryLocked(req)
	return c.seq
}

// store writes data for the request started with seq. It returns the payload
// now held for the key, its sequence number and whether this write landed.
func (c *cache) store(req Request, seq uint64, data json.RawMessage, refs []EntityRef) (json.RawMessage, uint64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := c.entryLocked(req)
	if seq <= e.written {
		return e.data, e.written, false
	}
	e.data = data
	e.loaded = true
	e.written = seq
	e.refs = refs
	e.stale = seq <= e.invalidAt
	return data, seq, true
}

// invalidate marks entries for the named operations, or containing any of
// the refs, as stale and returns their requests. Entries whose first load
// is still in flight match by operation and land stale when it completes.
func (c *cache) invalidate(ops []string, refs []EntityRef) []Request {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []Request
	for _, e := range c.entries {
		if slices.Contains(ops, e.req.Op.Name) || sharesRef(e.refs, refs) {
			e.stale = true
			e.invalidAt = c.seq
			out = append(out, e.req)
		}
	}
	return out
}

func (c *cache) isStale(req Request) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[req.Key()]
	return ok && e.stale
}

func (c *cache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func sharesRef(a, b []EntityRef) bool {
	for _, x := range a {
		if slices.Contains(b, x) {
			return true
		}
	}
	return false
}

// refsOf extracts the ids at the top level of a payload: the object itself
// or each element of a list.
func refsOf(typename string, data json.RawMessage) []EntityRef {
	if typename == "" || len(data) == 0 {
		return nil
	}
	type idOnly struct {
		ID models.ID `json:"id"`
	}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil
	}
	switch trimmed[0] {
	case '{':
		var one idOnly
		if err := json.Unmarshal(trimmed, &one); err != nil || one.ID.IsZero() {
			return nil
		}
		return []EntityRef{{Typename: typename, ID: one.ID}}
	case '[':
		var many []idOnly
		if err := json.Unmarshal(trimmed, &many); err != nil {
			return nil
		}
		refs := make([]EntityRef, 0, len(many))
		for _, m := range many {
			if !m.ID.IsZero() {
				refs = append(refs, EntityRef{Typename: typename, ID: m.ID})
			}
		}
		return refs
	}
	return nil
}
