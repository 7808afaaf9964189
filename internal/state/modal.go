package state

import "github.com/tgienger/taskhq/internal/models"

// Modal is the open form, if any. The variants carry exactly what their
// form needs, so an edit modal always has its target.
type Modal interface {
	isModal()
}

type (
	// Closed means no form is open.
	Closed struct{}
	// CreatingOrganization opens a blank organization form.
	CreatingOrganization struct{}
	// CreatingProject opens a blank project form under an organization.
	CreatingProject struct{ OrganizationID models.ID }
	// EditingProject opens the project form seeded from Project.
	EditingProject struct{ Project models.Project }
	// CreatingTask opens a blank task form under a project.
	CreatingTask struct{ ProjectID models.ID }
	// EditingTask opens the task form seeded from Task.
	EditingTask struct{ Task models.Task }
	// AddingComment opens the comment form for a task.
	AddingComment struct{ TaskID models.ID }
)

func (Closed) isModal()               {}
func (CreatingOrganization) isModal() {}
func (CreatingProject) isModal()      {}
func (EditingProject) isModal()       {}
func (CreatingTask) isModal()         {}
func (EditingTask) isModal()          {}
func (AddingComment) isModal()        {}

// IsOpen reports whether m is a form.
func IsOpen(m Modal) bool {
	switch m.(type) {
	case nil, Closed:
		return false
	}
	return true
}

// ModalTitle is the heading shown above the form.
func ModalTitle(m Modal) string {
	switch m := m.(type) {
	case CreatingOrganization:
		return "New Organization"
	case CreatingProject:
		return "New Project"
	case EditingProject:
		return "Edit Project: " + m.Project.Name
	case CreatingTask:
		return "New Task"
	case EditingTask:
		return "Edit Task: " + m.Task.Title
	case AddingComment:
		return "Add Comment"
	}
	return ""
}
