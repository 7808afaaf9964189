package api

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/tgienger/taskhq/internal/models"
)

// Kind says how an operation travels.
type Kind int

const (
	KindQuery Kind = iota
	KindMutation
	KindREST
)

// Operation describes one named request the client knows how to issue.
type Operation struct {
	Name     string
	Kind     Kind
	Document string // GraphQL document; empty for REST

	// REST only.
	Method string
	Path   string

	// Field is the response field holding the result (the root field for
	// GraphQL, "data" for REST lists, empty when the whole body is the payload).
	Field string
	// Entity is the field inside a mutation payload holding the entity.
	Entity string
	// Typename is used to build entity refs for cache invalidation.
	Typename string

	// Required variables; a fetch with any of them absent is not issued.
	Required []string
	// Single marks queries for one entity by id: a null result is NotFound.
	Single bool
	// Refetches lists the query names a successful mutation invalidates.
	Refetches []string
	// Mutates marks REST operations that change server state.
	Mutates bool
}

// IsMutation reports whether the operation changes server state.
func (op *Operation) IsMutation() bool {
	return op.Kind == KindMutation || (op.Kind == KindREST && op.Mutates)
}

// Vars are operation variables.
type Vars map[string]any

// Request is an operation plus its variables; it is the cache and
// de-duplication key.
type Request struct {
	Op   *Operation
	Vars Vars
}

// NewRequest builds a request.
func NewRequest(op *Operation, vars Vars) Request {
	return Request{Op: op, Vars: vars}
}

// Key is the operation name followed by the canonical JSON of the variables.
// encoding/json sorts map keys, so equal variable sets give equal keys.
func (r Request) Key() string {
	if r.Op == nil {
		return ""
	}
	if len(r.Vars) == 0 {
		return r.Op.Name
	}
	b, err := json.Marshal(r.Vars)
	if err != nil {
		return fmt.Sprintf("%s:%v", r.Op.Name, r.Vars)
	}
	return r.Op.Name + ":" + string(b)
}

// Missing returns the first required variable that is absent, or "".
func (r Request) Missing() string {
	if r.Op == nil {
		return "operation"
	}
	for _, name := range r.Op.Required {
		v, ok := r.Vars[name]
		if !ok || isZero(v) {
			return name
		}
	}
	return ""
}

// Inert reports whether the request must not be issued.
func (r Request) Inert() bool { return r.Missing() != "" }

func isZero(v any) bool {
	if v == nil {
		return true
	}
	switch x := v.(type) {
	case models.ID:
		return x.IsZero()
	case string:
		return x == ""
	}
	rv := reflect.ValueOf(v)
	return rv.IsZero()
}

const projectFields = `
      id
      organization { id }
      name
      description
      status
      dueDate
      createdAt
      taskCount
      completedTaskCount
      completionRate`

const taskFields = `
      id
      project { id }
      title
      description
      status
      assigneeEmail
      dueDate
      createdAt
      commentCount`

const commentFields = `
      id
      task { id }
      content
      authorEmail
      timestamp`

var (
	ListProjectsByOrganization = &Operation{
		Name: "ListProjectsByOrganization",
		Kind: KindQuery,
		Document: `query ListProjectsByOrganization($organizationId: Int!) {
  projectsByOrganization(organizationId: $organizationId) {` + projectFields + `
  }
}`,
		Field:    "projectsByOrganization",
		Typename: "Project",
		Required: []string{"organizationId"},
	}

	GetProjectStatistics = &Operation{
		Name: "GetProjectStatistics",
		Kind: KindQuery,
		Document: `query GetProjectStatistics($organizationId: Int!) {
  projectStatistics(organizationId: $organizationId) {
    totalProjects
    activeProjects
    completedProjects
    onHoldProjects
    totalTasks
    completedTasks
    inProgressTasks
    todoTasks
    overallCompletionRate
  }
}`,
		Field:    "projectStatistics",
		Required: []string{"organizationId"},
	}

	GetProject = &Operation{
		Name: "GetProject",
		Kind: KindQuery,
		Document: `query GetProject($projectId: Int!) {
  project(projectId: $projectId) {` + projectFields + `
  }
}`,
		Field:    "project",
		Typename: "Project",
		Required: []string{"projectId"},
		Single:   true,
	}

	ListTasksByProject = &Operation{
		Name: "ListTasksByProject",
		Kind: KindQuery,
		Document: `query ListTasksByProject($projectId: Int!) {
  tasksByProject(projectId: $projectId) {` + taskFields + `
  }
}`,
		Field:    "tasksByProject",
		Typename: "Task",
		Required: []string{"projectId"},
	}

	GetTask = &Operation{
		Name: "GetTask",
		Kind: KindQuery,
		Document: `query GetTask($taskId: Int!) {
  task(taskId: $taskId) {` + taskFields + `
      comments {` + commentFields + `
      }
  }
}`,
		Field:    "task",
		Typename: "Task",
		Required: []string{"taskId"},
		Single:   true,
	}

	CreateProject = &Operation{
		Name: "CreateProject",
		Kind: KindMutation,
		Document: `mutation CreateProject($input: ProjectInput!) {
  createProject(input: $input) {
    project {` + projectFields + `
    }
    success
    errors
  }
}`,
		Field:     "createProject",
		Entity:    "project",
		Typename:  "Project",
		Refetches: []string{"ListProjectsByOrganization", "GetProjectStatistics"},
	}

	UpdateProject = &Operation{
		Name: "UpdateProject",
		Kind: KindMutation,
		Document: `mutation UpdateProject($projectId: Int!, $input: ProjectUpdateInput!) {
  updateProject(projectId: $projectId, input: $input) {
    project {` + projectFields + `
    }
    success
    errors
  }
}`,
		Field:     "updateProject",
		Entity:    "project",
		Typename:  "Project",
		Refetches: []string{"ListProjectsByOrganization", "GetProject", "GetProjectStatistics"},
	}

	CreateTask = &Operation{
		Name: "CreateTask",
		Kind: KindMutation,
		Document: `mutation CreateTask($input: TaskInput!) {
  createTask(input: $input) {
    task {` + taskFields + `
    }
    success
    errors
  }
}`,
		Field:     "createTask",
		Entity:    "task",
		Typename:  "Task",
		Refetches: []string{"GetProject", "GetTask", "ListTasksByProject", "GetProjectStatistics", "ListProjectsByOrganization"},
	}

	UpdateTask = &Operation{
		Name: "UpdateTask",
		Kind: KindMutation,
		Document: `mutation UpdateTask($taskId: Int!, $input: TaskUpdateInput!) {
  updateTask(taskId: $taskId, input: $input) {
    task {` + taskFields + `
    }
    success
    errors
  }
}`,
		Field:     "updateTask",
		Entity:    "task",
		Typename:  "Task",
		Refetches: []string{"GetTask", "GetProject", "ListTasksByProject", "GetProjectStatistics", "ListProjectsByOrganization"},
	}

	AddTaskComment = &Operation{
		Name: "AddTaskComment",
		Kind: KindMutation,
		Document: `mutation AddTaskComment($input: TaskCommentInput!) {
  addTaskComment(input: $input) {
    comment {` + commentFields + `
    }
    success
    errors
  }
}`,
		Field:     "addTaskComment",
		Entity:    "comment",
		Typename:  "Comment",
		Refetches: []string{"GetTask", "ListTasksByProject"},
	}

	ListOrganizations = &Operation{
		Name:     "ListOrganizations",
		Kind:     KindREST,
		Method:   "GET",
		Path:     "/api/organizations/",
		Field:    "data",
		Typename: "Organization",
	}

	CreateOrganization = &Operation{
		Name:      "CreateOrganization",
		Kind:      KindREST,
		Method:    "POST",
		Path:      "/api/organizations/",
		Entity:    "data",
		Typename:  "Organization",
		Refetches: []string{"ListOrganizations"},
		Mutates:   true,
	}
)

// Operations is every operation the dashboard consumes, by name.
var Operations = map[string]*Operation{
	ListProjectsByOrganization.Name: ListProjectsByOrganization,
	GetProjectStatistics.Name:       GetProjectStatistics,
	GetProject.Name:                 GetProject,
	ListTasksByProject.Name:         ListTasksByProject,
	GetTask.Name:                    GetTask,
	CreateProject.Name:              CreateProject,
	UpdateProject.Name:              UpdateProject,
	CreateTask.Name:                 CreateTask,
	UpdateTask.Name:                 UpdateTask,
	AddTaskComment.Name:             AddTaskComment,
	ListOrganizations.Name:          ListOrganizations,
	CreateOrganization.Name:         CreateOrganization,
}
