package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIDDecodesStringsAndNumbers(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want ID
	}{
		{name: "graphql string", in: `"42"`, want: 42},
		{name: "rest number", in: `7`, want: 7},
		{name: "null", in: `null`, want: 0},
		{name: "empty string", in: `""`, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var id ID
			require.NoError(t, json.Unmarshal([]byte(tt.in), &id))
			assert.Equal(t, tt.want, id)
		})
	}

	var id ID
	assert.Error(t, json.Unmarshal([]byte(`"abc"`), &id))
}

func TestIDMarshalsAsNumber(t *testing.T) {
	b, err := json.Marshal(map[string]ID{"projectId": 9})
	require.NoError(t, err)
	assert.JSONEq(t, `{"projectId":9}`, string(b))
}

func TestStatusDecodingNormalisesServerEnums(t *testing.T) {
	var task Task
	require.NoError(t, json.Unmarshal([]byte(`{"id":"3","status":"IN_PROGRESS","project":{"id":"2"}}`), &task))
	assert.Equal(t, TaskInProgress, task.Status)
	assert.Equal(t, ID(2), task.ProjectID())

	var project Project
	require.NoError(t, json.Unmarshal([]byte(`{"id":"5","status":"ON_HOLD","organization":{"id":"1"}}`), &project))
	assert.Equal(t, ProjectOnHold, project.Status)
	assert.Equal(t, ID(1), project.OrganizationID())
}

func TestUnknownStatusesDecodeButAreInvalid(t *testing.T) {
	var task Task
	require.NoError(t, json.Unmarshal([]byte(`{"id":"3","status":"ARCHIVED"}`), &task))
	assert.Equal(t, TaskStatus("archived"), task.Status)
	assert.False(t, task.Status.Valid())

	_, ok := ParseProjectStatus("paused")
	assert.False(t, ok)
	s, ok := ParseProjectStatus(" On Hold ")
	assert.True(t, ok)
	assert.Equal(t, ProjectOnHold, s)
}

func TestTaskStatusNextCycles(t *testing.T) {
	assert.Equal(t, TaskInProgress, TaskTodo.Next())
	assert.Equal(t, TaskDone, TaskInProgress.Next())
	assert.Equal(t, TaskTodo, TaskDone.Next())
	assert.Equal(t, TaskTodo, TaskStatus("weird").Next())
}
