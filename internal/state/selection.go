// Package state holds the dashboard's view state: the organization →
// project → task drill-down, the open modal and per-view data bindings.
package state

import (
	"errors"
	"fmt"

	"github.com/tgienger/taskhq/internal/models"
)

// ErrNotInSelection is returned when an entity does not belong to the
// currently selected parent.
var ErrNotInSelection = errors.New("entity does not belong to the current selection")

// Level is a depth in the drill-down.
type Level int

const (
	LevelNone Level = iota
	LevelOrganization
	LevelProject
	LevelTask
)

func (l Level) String() string {
	switch l {
	case LevelOrganization:
		return "organization"
	case LevelProject:
		return "project"
	case LevelTask:
		return "task"
	}
	return "none"
}

// Selection is the active organization, project and task. Setting a level
// always clears every level below it, so a selected task belongs to the
// selected project, which belongs to the selected organization.
type Selection struct {
	organization models.ID
	project      models.ID
	task         models.ID
}

func (s Selection) OrganizationID() models.ID { return s.organization }
func (s Selection) ProjectID() models.ID      { return s.project }
func (s Selection) TaskID() models.ID         { return s.task }

// Level returns the deepest selected level.
func (s Selection) Level() Level {
	switch {
	case !s.task.IsZero():
		return LevelTask
	case !s.project.IsZero():
		return LevelProject
	case !s.organization.IsZero():
		return LevelOrganization
	}
	return LevelNone
}

// SelectOrganization makes id the active organization and clears the
// project and task, even when id is already selected.
func (s *Selection) SelectOrganization(id models.ID) {
	s.organization = id
	s.project = 0
	s.task = 0
}

// SelectProject makes p the active project and clears the task.
func (s *Selection) SelectProject(p models.Project) error {
	if p.ID.IsZero() {
		return fmt.Errorf("select project: missing id")
	}
	if s.organization.IsZero() || p.OrganizationID() != s.organization {
		return fmt.Errorf("select project %s: %w", p.ID, ErrNotInSelection)
	}
	s.project = p.ID
	s.task = 0
	return nil
}

// SelectTask makes t the active task.
func (s *Selection) SelectTask(t models.Task) error {
	if t.ID.IsZero() {
		return fmt.Errorf("select task: missing id")
	}
	if s.project.IsZero() || t.ProjectID() != s.project {
		return fmt.Errorf("select task %s: %w", t.ID, ErrNotInSelection)
	}
	s.task = t.ID
	return nil
}

// ClearOrganization clears everything.
func (s *Selection) ClearOrganization() { *s = Selection{} }

// ClearProject clears the project and task.
func (s *Selection) ClearProject() {
	s.project = 0
	s.task = 0
}

// ClearTask clears the task.
func (s *Selection) ClearTask() { s.task = 0 }

// Back clears the deepest selected level and returns it.
func (s *Selection) Back() Level {
	l := s.Level()
	switch l {
	case LevelTask:
		s.ClearTask()
	case LevelProject:
		s.ClearProject()
	case LevelOrganization:
		s.ClearOrganization()
	}
	return l
}
