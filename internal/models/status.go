package models

import (
	"encoding/json"
	"strings"
)

// ProjectStatus is the closed set of project states.
type ProjectStatus string

const (
	ProjectActive    ProjectStatus = "active"
	ProjectCompleted ProjectStatus = "completed"
	ProjectOnHold    ProjectStatus = "on_hold"
)

// ProjectStatuses lists the valid project states in display order.
var ProjectStatuses = []ProjectStatus{ProjectActive, ProjectCompleted, ProjectOnHold}

// Valid reports whether s is one of the known project states.
func (s ProjectStatus) Valid() bool {
	switch s {
	case ProjectActive, ProjectCompleted, ProjectOnHold:
		return true
	}
	return false
}

// ParseProjectStatus normalises a wire or user value. The boolean is false
// when the value is outside the closed set.
func ParseProjectStatus(v string) (ProjectStatus, bool) {
	s := ProjectStatus(normalizeStatus(v))
	return s, s.Valid()
}

func (s *ProjectStatus) UnmarshalJSON(b []byte) error {
	var raw *string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if raw == nil {
		*s = ""
		return nil
	}
	*s = ProjectStatus(normalizeStatus(*raw))
	return nil
}

// TaskStatus is the closed set of task states.
type TaskStatus string

const (
	TaskTodo       TaskStatus = "todo"
	TaskInProgress TaskStatus = "in_progress"
	TaskDone       TaskStatus = "done"
)

// TaskStatuses lists the valid task states in board order.
var TaskStatuses = []TaskStatus{TaskTodo, TaskInProgress, TaskDone}

// Valid reports whether s is one of the known task states.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskTodo, TaskInProgress, TaskDone:
		return true
	}
	return false
}

// Next cycles todo -> in_progress -> done -> todo. Unknown states restart at todo.
func (s TaskStatus) Next() TaskStatus {
	switch s {
	case TaskTodo:
		return TaskInProgress
	case TaskInProgress:
		return TaskDone
	default:
		return TaskTodo
	}
}

// ParseTaskStatus normalises a wire or user value. The boolean is false
// when the value is outside the closed set.
func ParseTaskStatus(v string) (TaskStatus, bool) {
	s := TaskStatus(normalizeStatus(v))
	return s, s.Valid()
}

func (s *TaskStatus) UnmarshalJSON(b []byte) error {
	var raw *string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if raw == nil {
		*s = ""
		return nil
	}
	*s = TaskStatus(normalizeStatus(*raw))
	return nil
}

// The server's enum serialiser emits upper-case names (IN_PROGRESS), forms
// use the lower-case values.
func normalizeStatus(v string) string {
	v = strings.ToLower(strings.TrimSpace(v))
	return strings.ReplaceAll(v, " ", "_")
}
