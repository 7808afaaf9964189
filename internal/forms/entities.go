package forms

import (
	"strings"
	"time"

	"github.com/tgienger/taskhq/internal/api"
	"github.com/tgienger/taskhq/internal/models"
	"github.com/tgienger/taskhq/internal/state"
	"github.com/tgienger/taskhq/internal/viewmodel"
)

const (
	dateLayout     = "2006-01-02"
	dateTimeLayout = "2006-01-02 15:04"
)

func projectStatusChoices() []string {
	out := make([]string, 0, len(models.ProjectStatuses))
	for _, s := range models.ProjectStatuses {
		out = append(out, string(s))
	}
	return out
}

func taskStatusChoices() []string {
	out := make([]string, 0, len(models.TaskStatuses))
	for _, s := range models.TaskStatuses {
		out = append(out, string(s))
	}
	return out
}

// NewOrganizationForm returns a blank organization form.
func NewOrganizationForm() *Form {
	return &Form{
		kind: KindOrganization,
		fields: []Field{
			{Key: "name", Label: "Name", Required: true},
			{Key: "contact_email", Label: "Contact email", Required: true, Email: true},
			{Key: "slug", Label: "Slug", Hint: "optional, derived from the name"},
		},
		build: func(f *Form) (*api.Operation, api.Vars, []string) {
			vars := api.Vars{
				"name":          f.trimmed("name"),
				"contact_email": f.trimmed("contact_email"),
			}
			if slug := f.trimmed("slug"); slug != "" {
				vars["slug"] = slug
			}
			return api.CreateOrganization, vars, nil
		},
	}
}

func projectFields() []Field {
	return []Field{
		{Key: "name", Label: "Name", Required: true},
		{Key: "description", Label: "Description", Multiline: true},
		{Key: "status", Label: "Status", Required: true, Choices: projectStatusChoices(), Value: string(models.ProjectActive)},
		{Key: "due_date", Label: "Due date", Hint: "YYYY-MM-DD"},
	}
}

func projectInput(f *Form, orgID models.ID) (map[string]any, []string) {
	due := f.trimmed("due_date")
	if due != "" {
		if _, err := time.Parse(dateLayout, due); err != nil {
			return nil, []string{"Due date must look like YYYY-MM-DD"}
		}
	}
	return map[string]any{
		"organizationId": orgID,
		"name":           f.trimmed("name"),
		"description":    f.trimmed("description"),
		"status":         f.trimmed("status"),
		"dueDate":        optional(due),
	}, nil
}

// NewProjectForm returns a blank project form for an organization.
func NewProjectForm(orgID models.ID) *Form {
	return &Form{
		kind:   KindProject,
		fields: projectFields(),
		build: func(f *Form) (*api.Operation, api.Vars, []string) {
			input, msgs := projectInput(f, orgID)
			if msgs != nil {
				return nil, nil, msgs
			}
			return api.CreateProject, api.Vars{"input": input}, nil
		},
	}
}

// EditProjectForm returns a project form seeded from p.
func EditProjectForm(p models.Project) *Form {
	f := &Form{
		kind:    KindProject,
		editing: true,
		fields:  projectFields(),
		build: func(f *Form) (*api.Operation, api.Vars, []string) {
			input, msgs := projectInput(f, p.OrganizationID())
			if msgs != nil {
				return nil, nil, msgs
			}
			return api.UpdateProject, api.Vars{"projectId": p.ID, "input": input}, nil
		},
	}
	f.Set("name", p.Name)
	f.Set("description", p.Description)
	f.Set("status", string(p.Status))
	f.Set("due_date", seedDate(p.DueDate, dateLayout))
	return f
}

func taskFields() []Field {
	return []Field{
		{Key: "title", Label: "Title", Required: true},
		{Key: "description", Label: "Description", Multiline: true},
		{Key: "status", Label: "Status", Required: true, Choices: taskStatusChoices(), Value: string(models.TaskTodo)},
		{Key: "assignee_email", Label: "Assignee email", Email: true},
		{Key: "due_date", Label: "Due date", Hint: "YYYY-MM-DD or YYYY-MM-DD HH:MM"},
	}
}

func taskInput(f *Form, projectID models.ID) (map[string]any, []string) {
	var due any
	if v := f.trimmed("due_date"); v != "" {
		t, err := time.Parse(dateTimeLayout, v)
		if err != nil {
			t, err = time.Parse(dateLayout, v)
		}
		if err != nil {
			return nil, []string{"Due date must look like YYYY-MM-DD or YYYY-MM-DD HH:MM"}
		}
		due = t.Format("2006-01-02T15:04:05")
	}
	return map[string]any{
		"projectId":     projectID,
		"title":         f.trimmed("title"),
		"description":   f.trimmed("description"),
		"status":        f.trimmed("status"),
		"assigneeEmail": f.trimmed("assignee_email"),
		"dueDate":       due,
	}, nil
}

// NewTaskForm returns a blank task form for a project.
func NewTaskForm(projectID models.ID) *Form {
	return &Form{
		kind:   KindTask,
		fields: taskFields(),
		build: func(f *Form) (*api.Operation, api.Vars, []string) {
			input, msgs := taskInput(f, projectID)
			if msgs != nil {
				return nil, nil, msgs
			}
			return api.CreateTask, api.Vars{"input": input}, nil
		},
	}
}

// EditTaskForm returns a task form seeded from t.
func EditTaskForm(t models.Task) *Form {
	f := &Form{
		kind:    KindTask,
		editing: true,
		fields:  taskFields(),
		build: func(f *Form) (*api.Operation, api.Vars, []string) {
			input, msgs := taskInput(f, t.ProjectID())
			if msgs != nil {
				return nil, nil, msgs
			}
			return api.UpdateTask, api.Vars{"taskId": t.ID, "input": input}, nil
		},
	}
	f.Set("title", t.Title)
	f.Set("description", t.Description)
	f.Set("status", string(t.Status))
	f.Set("assignee_email", t.AssigneeEmail)
	f.Set("due_date", seedDate(t.DueDate, dateTimeLayout))
	return f
}

// seedDate formats a stored due date for editing. A value that does not
// parse is kept as is so validation reports it.
func seedDate(raw, layout string) string {
	if t, ok := viewmodel.ParseTime(raw); ok {
		return t.Format(layout)
	}
	return strings.TrimSpace(raw)
}

// NewCommentForm returns a comment form with the author pre-filled.
func NewCommentForm(taskID models.ID, author string) *Form {
	f := &Form{
		kind: KindComment,
		fields: []Field{
			{Key: "content", Label: "Comment", Required: true, Multiline: true},
			{Key: "author_email", Label: "Author email", Required: true, Email: true},
		},
		build: func(f *Form) (*api.Operation, api.Vars, []string) {
			return api.AddTaskComment, api.Vars{"input": map[string]any{
				"taskId":      taskID,
				"content":     f.trimmed("content"),
				"authorEmail": f.trimmed("author_email"),
			}}, nil
		},
	}
	f.Set("author_email", author)
	return f
}

// ForModal returns the form a modal opens, or nil when it is closed.
func ForModal(m state.Modal, author string) *Form {
	switch m := m.(type) {
	case state.CreatingOrganization:
		return NewOrganizationForm()
	case state.CreatingProject:
		return NewProjectForm(m.OrganizationID)
	case state.EditingProject:
		return EditProjectForm(m.Project)
	case state.CreatingTask:
		return NewTaskForm(m.ProjectID)
	case state.EditingTask:
		return EditTaskForm(m.Task)
	case state.AddingComment:
		return NewCommentForm(m.TaskID, author)
	}
	return nil
}

// QuickStatus builds the inline status change for a task. It is separate
// from the edit form and sends only the status.
func QuickStatus(taskID models.ID, status models.TaskStatus) (*Submission, error) {
	if taskID.IsZero() {
		return nil, ErrInvalid
	}
	if !status.Valid() {
		return nil, ErrInvalid
	}
	return &Submission{
		Kind:    KindTask,
		Editing: true,
		Op:      api.UpdateTask,
		Vars:    api.Vars{"taskId": taskID, "input": map[string]any{"status": string(status)}},
	}, nil
}
