package api

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tgienger/taskhq/internal/models"
)

func TestCacheKeepsNewestRequest(t *testing.T) {
	c := newCache()
	req := NewRequest(ListTasksByProject, Vars{"projectId": models.ID(1)})

	older := c.begin(req)
	newer := c.begin(req)

	data, seq, applied := c.store(req, newer, json.RawMessage(`["new"]`), nil)
	require.True(t, applied)
	assert.Equal(t, newer, seq)
	assert.JSONEq(t, `["new"]`, string(data))

	data, seq, applied = c.store(req, older, json.RawMessage(`["old"]`), nil)
	assert.False(t, applied)
	assert.Equal(t, newer, seq)
	assert.JSONEq(t, `["new"]`, string(data))

	held, ok := c.peek(req)
	require.True(t, ok)
	assert.JSONEq(t, `["new"]`, string(held))
}

func TestCacheKeyIgnoresVariableOrder(t *testing.T) {
	a := NewRequest(UpdateTask, Vars{"taskId": 1, "input": map[string]any{"title": "x", "status": "todo"}})
	b := NewRequest(UpdateTask, Vars{"input": map[string]any{"status": "todo", "title": "x"}, "taskId": 1})
	assert.Equal(t, a.Key(), b.Key())
	assert.NotEqual(t, a.Key(), NewRequest(UpdateTask, Vars{"taskId": 2}).Key())
}

func TestCacheInvalidateByTagAndRef(t *testing.T) {
	c := newCache()
	list := NewRequest(ListProjectsByOrganization, Vars{"organizationId": models.ID(1)})
	stats := NewRequest(GetProjectStatistics, Vars{"organizationId": models.ID(1)})
	task := NewRequest(GetTask, Vars{"taskId": models.ID(9)})
	pending := NewRequest(ListTasksByProject, Vars{"projectId": models.ID(4)})

	store := func(req Request, payload string) {
		data := json.RawMessage(payload)
		c.store(req, c.begin(req), data, refsOf(req.Op.Typename, data))
	}
	store(list, `[{"id":"3"},{"id":"4"}]`)
	store(stats, `{"totalProjects":2}`)
	store(task, `{"id":"9"}`)
	c.begin(pending) // in flight, nothing loaded yet

	stale := c.invalidate([]string{"GetProjectStatistics", "ListTasksByProject"}, []EntityRef{{Typename: "Project", ID: 4}})
	keys := make([]string, 0, len(stale))
	for _, r := range stale {
		keys = append(keys, r.Key())
	}
	assert.ElementsMatch(t, []string{list.Key(), stats.Key(), pending.Key()}, keys)

	assert.True(t, c.isStale(list))
	assert.True(t, c.isStale(stats))
	assert.False(t, c.isStale(task))
	assert.True(t, c.isStale(pending))

	_, _, ok := c.fresh(list)
	assert.False(t, ok)
	_, ok = c.peek(list)
	assert.True(t, ok, "stale data stays readable")
}

func TestCacheResponseStartedBeforeInvalidationStaysStale(t *testing.T) {
	c := newCache()
	req := NewRequest(GetProject, Vars{"projectId": models.ID(2)})
	c.store(req, c.begin(req), json.RawMessage(`{"id":"2","name":"before"}`), nil)

	inFlight := c.begin(req)
	c.invalidate([]string{"GetProject"}, nil)

	_, _, applied := c.store(req, inFlight, json.RawMessage(`{"id":"2","name":"racing"}`), nil)
	require.True(t, applied)
	assert.True(t, c.isStale(req))

	c.store(req, c.begin(req), json.RawMessage(`{"id":"2","name":"after"}`), nil)
	data, _, ok := c.fresh(req)
	require.True(t, ok)
	assert.Contains(t, string(data), "after")
}

func TestCacheFirstLoadInFlightDuringInvalidationLandsStale(t *testing.T) {
	c := newCache()
	req := NewRequest(ListProjectsByOrganization, Vars{"organizationId": models.ID(1)})

	inFlight := c.begin(req)
	stale := c.invalidate([]string{"ListProjectsByOrganization"}, nil)
	require.Len(t, stale, 1)
	assert.Equal(t, req.Key(), stale[0].Key())

	_, _, applied := c.store(req, inFlight, json.RawMessage(`[]`), nil)
	require.True(t, applied)
	_, _, ok := c.fresh(req)
	assert.False(t, ok, "a list requested before the mutation is not fresh")

	c.store(req, c.begin(req), json.RawMessage(`[{"id":"10"}]`), nil)
	data, _, ok := c.fresh(req)
	require.True(t, ok)
	assert.JSONEq(t, `[{"id":"10"}]`, string(data))
}

func TestRefsOf(t *testing.T) {
	assert.Equal(t, []EntityRef{{"Task", 5}}, refsOf("Task", json.RawMessage(`{"id":"5","title":"x"}`)))
	assert.Equal(t, []EntityRef{{"Organization", 1}, {"Organization", 2}}, refsOf("Organization", json.RawMessage(` [{"id":1},{"id":2},{"name":"no id"}]`)))
	assert.Nil(t, refsOf("", json.RawMessage(`{"id":"5"}`)))
	assert.Nil(t, refsOf("Task", json.RawMessage(`null`)))
	assert.Nil(t, refsOf("Task", nil))
}
