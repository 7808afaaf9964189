// Package testutil provides an in-memory backend that speaks the same
// GraphQL and REST wire shapes as the real server.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tgienger/taskhq/internal/models"
)

type organization struct {
	ID           models.ID `json:"id"`
	Name         string    `json:"name"`
	Slug         string    `json:"slug"`
	ContactEmail string    `json:"contact_email"`
	CreatedAt    string    `json:"created_at"`
}

type project struct {
	id          models.ID
	orgID       models.ID
	name        string
	description string
	status      string
	dueDate     string
	createdAt   string
}

type task struct {
	id            models.ID
	projectID     models.ID
	title         string
	description   string
	status        string
	assigneeEmail string
	dueDate       string
	createdAt     string
}

type comment struct {
	id          models.ID
	taskID      models.ID
	content     string
	authorEmail string
	timestamp   string
}

// FakeBackend is a gin router serving /graphql/ and /api/organizations/
// from memory. It counts calls per operation name.
type FakeBackend struct {
	mu       sync.Mutex
	nextID   models.ID
	orgs     []*organization
	projects []*project
	tasks    []*task
	comments []*comment
	calls    map[string]int
	down     map[string]bool

	// Now stamps created entities.
	Now func() time.Time

	router *gin.Engine
}

type graphQLRequest struct {
	Query         string                     `json:"query"`
	OperationName string                     `json:"operationName"`
	Variables     map[string]json.RawMessage `json:"variables"`
}

// NewFakeBackend returns an empty backend.
func NewFakeBackend() *FakeBackend {
	gin.SetMode(gin.TestMode)
	b := &FakeBackend{
		calls: make(map[string]int),
		down:  make(map[string]bool),
		Now: func() time.Time {
			return time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)
		},
	}

	r := gin.New()
	r.POST("/graphql", b.handleGraphQL)
	r.POST("/graphql/", b.handleGraphQL)
	r.GET("/api/organizations/", b.listOrganizations)
	r.POST("/api/organizations/", b.createOrganization)
	b.router = r
	return b
}

// Handler exposes the router.
func (b *FakeBackend) Handler() http.Handler { return b.router }

// Start serves the backend until the test ends and returns the GraphQL
// endpoint and the REST base URL.
func (b *FakeBackend) Start(t testing.TB) (endpoint, backendURL string) {
	t.Helper()
	srv := httptest.NewServer(b.router)
	t.Cleanup(srv.Close)
	return srv.URL + "/graphql/", srv.URL
}

// Calls returns how many times an operation was requested.
func (b *FakeBackend) Calls(op string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[op]
}

// TotalCalls returns the number of requests served.
func (b *FakeBackend) TotalCalls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, c := range b.calls {
		n += c
	}
	return n
}

// SetDown makes an operation answer 503 until cleared.
func (b *FakeBackend) SetDown(op string, down bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.down[op] = down
}

func (b *FakeBackend) id() models.ID {
	b.nextID++
	return b.nextID
}

func (b *FakeBackend) stamp() string {
	return b.Now().UTC().Format(time.RFC3339)
}

// AddOrganization seeds an organization.
func (b *FakeBackend) AddOrganization(name, email string) models.Organization {
	b.mu.Lock()
	defer b.mu.Unlock()
	o := &organization{ID: b.id(), Name: name, Slug: slugify(name), ContactEmail: email, CreatedAt: b.stamp()}
	b.orgs = append(b.orgs, o)
	return models.Organization(*o)
}

// AddProject seeds a project.
func (b *FakeBackend) AddProject(orgID models.ID, name string, status models.ProjectStatus) models.ID {
	b.mu.Lock()
	defer b.mu.Unlock()
	p := &project{id: b.id(), orgID: orgID, name: name, status: string(status), createdAt: b.stamp()}
	b.projects = append(b.projects, p)
	return p.id
}

// AddTask seeds a task.
func (b *FakeBackend) AddTask(projectID models.ID, title string, status models.TaskStatus) models.ID {
	b.mu.Lock()
	defer b.mu.Unlock()
	t := &task{id: b.id(), projectID: projectID, title: title, status: string(status), createdAt: b.stamp()}
	b.tasks = append(b.tasks, t)
	return t.id
}

// AddComment seeds a comment.
func (b *FakeBackend) AddComment(taskID models.ID, content, author string) models.ID {
	b.mu.Lock()
	defer b.mu.Unlock()
	c := &comment{id: b.id(), taskID: taskID, content: content, authorEmail: author, timestamp: b.stamp()}
	b.comments = append(b.comments, c)
	return c.id
}

// DeleteTask removes a task behind the client's back.
func (b *FakeBackend) DeleteTask(id models.ID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tasks = slices.DeleteFunc(b.tasks, func(t *task) bool { return t.id == id })
}

func (b *FakeBackend) count(op string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls[op]++
	return !b.down[op]
}

func (b *FakeBackend) listOrganizations(c *gin.Context) {
	if !b.count("ListOrganizations") {
		c.JSON(http.StatusServiceUnavailable, gin.H{"success": false, "error": "service unavailable"})
		return
	}
	b.mu.Lock()
	data := make([]organization, 0, len(b.orgs))
	for _, o := range b.orgs {
		data = append(data, *o)
	}
	b.mu.Unlock()
	c.JSON(http.StatusOK, gin.H{"success": true, "data": data, "count": len(data)})
}

func (b *FakeBackend) createOrganization(c *gin.Context) {
	if !b.count("CreateOrganization") {
		c.JSON(http.StatusServiceUnavailable, gin.H{"success": false, "error": "service unavailable"})
		return
	}
	var in struct {
		Name         string `json:"name"`
		Slug         string `json:"slug"`
		ContactEmail string `json:"contact_email"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid JSON in request body."})
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	errs := map[string][]string{}
	if strings.TrimSpace(in.Name) == "" {
		errs["name"] = append(errs["name"], "This field is required.")
	}
	if strings.TrimSpace(in.ContactEmail) == "" {
		errs["contact_email"] = append(errs["contact_email"], "This field is required.")
	}
	for _, o := range b.orgs {
		if strings.EqualFold(o.Name, in.Name) {
			errs["name"] = append(errs["name"], "Organization with this name already exists.")
		}
	}
	if len(errs) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Validation failed.", "errors": errs})
		return
	}
	slug := in.Slug
	if slug == "" {
		slug = slugify(in.Name)
	}
	o := &organization{ID: b.id(), Name: in.Name, Slug: slug, ContactEmail: in.ContactEmail, CreatedAt: b.stamp()}
	b.orgs = append(b.orgs, o)
	c.JSON(http.StatusCreated, gin.H{"success": true, "data": o, "message": "Organization created successfully."})
}

func (b *FakeBackend) handleGraphQL(c *gin.Context) {
	var req graphQLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": []gin.H{{"message": "invalid request body"}}})
		return
	}
	if !b.count(req.OperationName) {
		c.String(http.StatusServiceUnavailable, "service unavailable")
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	field, value, err := b.resolve(req.OperationName, req.Variables)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{
			"data":   gin.H{field: nil},
			"errors": []gin.H{{"message": err.Error(), "path": []string{field}}},
		})
		return
	}
	if field == "" {
		c.JSON(http.StatusBadRequest, gin.H{"errors": []gin.H{{"message": fmt.Sprintf("Unknown operation named %q.", req.OperationName)}}})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{field: value}})
}

func (b *FakeBackend) resolve(op string, vars map[string]json.RawMessage) (string, any, error) {
	switch op {
	case "ListProjectsByOrganization":
		orgID := idVar(vars, "organizationId")
		out := []gin.H{}
		for _, p := range b.projects {
			if p.orgID == orgID {
				out = append(out, b.projectJSON(p))
			}
		}
		return "projectsByOrganization", out, nil

	case "GetProjectStatistics":
		return "projectStatistics", b.statistics(idVar(vars, "organizationId")), nil

	case "GetProject":
		id := idVar(vars, "projectId")
		p := b.findProject(id)
		if p == nil {
			return "project", nil, fmt.Errorf("Error fetching project: Project with ID %s not found", id)
		}
		return "project", b.projectJSON(p), nil

	case "ListTasksByProject":
		projectID := idVar(vars, "projectId")
		out := []gin.H{}
		for _, t := range b.tasks {
			if t.projectID == projectID {
				out = append(out, b.taskJSON(t, false))
			}
		}
		return "tasksByProject", out, nil

	case "GetTask":
		id := idVar(vars, "taskId")
		t := b.findTask(id)
		if t == nil {
			return "task", nil, fmt.Errorf("Error fetching task: Task with ID %s not found", id)
		}
		return "task", b.taskJSON(t, true), nil

	case "CreateProject":
		return "createProject", b.createProject(vars), nil
	case "UpdateProject":
		return "updateProject", b.updateProject(vars), nil
	case "CreateTask":
		return "createTask", b.createTask(vars), nil
	case "UpdateTask":
		return "updateTask", b.updateTask(vars), nil
	case "AddTaskComment":
		return "addTaskComment", b.addComment(vars), nil
	}
	return "", nil, nil
}

type projectInput struct {
	OrganizationID *models.ID `json:"organizationId"`
	Name           *string    `json:"name"`
	Description    *string    `json:"description"`
	Status         *string    `json:"status"`
	DueDate        *string    `json:"dueDate"`
}

type taskInput struct {
	ProjectID     *models.ID `json:"projectId"`
	Title         *string    `json:"title"`
	Description   *string    `json:"description"`
	Status        *string    `json:"status"`
	AssigneeEmail *string    `json:"assigneeEmail"`
	DueDate       *string    `json:"dueDate"`
}

func failed(entity string, msgs ...string) gin.H {
	return gin.H{entity: nil, "success": false, "errors": msgs}
}

func (b *FakeBackend) createProject(vars map[string]json.RawMessage) gin.H {
	var in projectInput
	_ = json.Unmarshal(vars["input"], &in)
	if in.OrganizationID == nil || b.findOrg(*in.OrganizationID) == nil {
		return failed("project", "organization not found")
	}
	name := strings.TrimSpace(deref(in.Name))
	if name == "" {
		return failed("project", "name is required")
	}
	if b.projectNameTaken(*in.OrganizationID, name, 0) {
		return failed("project", "name already exists")
	}
	status, ok := models.ParseProjectStatus(deref(in.Status))
	if !ok {
		return failed("project", fmt.Sprintf("invalid status %q", deref(in.Status)))
	}
	p := &project{
		id:          b.id(),
		orgID:       *in.OrganizationID,
		name:        name,
		description: deref(in.Description),
		status:      string(status),
		dueDate:     deref(in.DueDate),
		createdAt:   b.stamp(),
	}
	b.projects = append(b.projects, p)
	return gin.H{"project": b.projectJSON(p), "success": true, "errors": []string{}}
}

func (b *FakeBackend) updateProject(vars map[string]json.RawMessage) gin.H {
	id := idVar(vars, "projectId")
	p := b.findProject(id)
	if p == nil {
		return failed("project", fmt.Sprintf("Project with ID %s not found", id))
	}
	var in projectInput
	_ = json.Unmarshal(vars["input"], &in)
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return failed("project", "name is required")
		}
		if b.projectNameTaken(p.orgID, name, p.id) {
			return failed("project", "name already exists")
		}
		p.name = name
	}
	if in.Status != nil {
		status, ok := models.ParseProjectStatus(*in.Status)
		if !ok {
			return failed("project", fmt.Sprintf("invalid status %q", *in.Status))
		}
		p.status = string(status)
	}
	if in.Description != nil {
		p.description = *in.Description
	}
	if in.DueDate != nil {
		p.dueDate = *in.DueDate
	}
	return gin.H{"project": b.projectJSON(p), "success": true, "errors": []string{}}
}

func (b *FakeBackend) createTask(vars map[string]json.RawMessage) gin.H {
	var in taskInput
	_ = json.Unmarshal(vars["input"], &in)
	if in.ProjectID == nil || b.findProject(*in.ProjectID) == nil {
		return failed("task", "project not found")
	}
	title := strings.TrimSpace(deref(in.Title))
	if title == "" {
		return failed("task", "title is required")
	}
	status, ok := models.ParseTaskStatus(deref(in.Status))
	if !ok {
		return failed("task", fmt.Sprintf("invalid status %q", deref(in.Status)))
	}
	t := &task{
		id:            b.id(),
		projectID:     *in.ProjectID,
		title:         title,
		description:   deref(in.Description),
		status:        string(status),
		assigneeEmail: deref(in.AssigneeEmail),
		dueDate:       deref(in.DueDate),
		createdAt:     b.stamp(),
	}
	b.tasks = append(b.tasks, t)
	return gin.H{"task": b.taskJSON(t, false), "success": true, "errors": []string{}}
}

func (b *FakeBackend) updateTask(vars map[string]json.RawMessage) gin.H {
	id := idVar(vars, "taskId")
	t := b.findTask(id)
	if t == nil {
		return failed("task", fmt.Sprintf("Task with ID %s not found", id))
	}
	var in taskInput
	_ = json.Unmarshal(vars["input"], &in)
	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			return failed("task", "title is required")
		}
		t.title = title
	}
	if in.Status != nil {
		status, ok := models.ParseTaskStatus(*in.Status)
		if !ok {
			return failed("task", fmt.Sprintf("invalid status %q", *in.Status))
		}
		t.status = string(status)
	}
	if in.Description != nil {
		t.description = *in.Description
	}
	if in.AssigneeEmail != nil {
		t.assigneeEmail = *in.AssigneeEmail
	}
	if in.DueDate != nil {
		t.dueDate = *in.DueDate
	}
	return gin.H{"task": b.taskJSON(t, false), "success": true, "errors": []string{}}
}

func (b *FakeBackend) addComment(vars map[string]json.RawMessage) gin.H {
	var in struct {
		TaskID      models.ID `json:"taskId"`
		Content     string    `json:"content"`
		AuthorEmail string    `json:"authorEmail"`
	}
	_ = json.Unmarshal(vars["input"], &in)
	if b.findTask(in.TaskID) == nil {
		return failed("comment", fmt.Sprintf("Task with ID %s not found", in.TaskID))
	}
	if strings.TrimSpace(in.Content) == "" {
		return failed("comment", "content is required")
	}
	cm := &comment{id: b.id(), taskID: in.TaskID, content: in.Content, authorEmail: in.AuthorEmail, timestamp: b.stamp()}
	b.comments = append(b.comments, cm)
	return gin.H{"comment": commentJSON(cm), "success": true, "errors": []string{}}
}

func (b *FakeBackend) projectJSON(p *project) gin.H {
	total, done := 0, 0
	for _, t := range b.tasks {
		if t.projectID != p.id {
			continue
		}
		total++
		if t.status == string(models.TaskDone) {
			done++
		}
	}
	rate := 0.0
	if total > 0 {
		rate = float64(done) / float64(total) * 100
	}
	return gin.H{
		"id":                 p.id.String(),
		"organization":       gin.H{"id": p.orgID.String()},
		"name":               p.name,
		"description":        p.description,
		"status":             strings.ToUpper(p.status),
		"dueDate":            nullable(p.dueDate),
		"createdAt":          p.createdAt,
		"taskCount":          total,
		"completedTaskCount": done,
		"completionRate":     rate,
	}
}

func (b *FakeBackend) taskJSON(t *task, withComments bool) gin.H {
	var comments []gin.H
	for _, c := range b.comments {
		if c.taskID == t.id {
			comments = append(comments, commentJSON(c))
		}
	}
	out := gin.H{
		"id":            t.id.String(),
		"project":       gin.H{"id": t.projectID.String()},
		"title":         t.title,
		"description":   t.description,
		"status":        strings.ToUpper(t.status),
		"assigneeEmail": t.assigneeEmail,
		"dueDate":       nullable(t.dueDate),
		"createdAt":     t.createdAt,
		"commentCount":  len(comments),
	}
	if withComments {
		if comments == nil {
			comments = []gin.H{}
		}
		out["comments"] = comments
	}
	return out
}

func commentJSON(c *comment) gin.H {
	return gin.H{
		"id":          c.id.String(),
		"task":        gin.H{"id": c.taskID.String()},
		"content":     c.content,
		"authorEmail": c.authorEmail,
		"timestamp":   c.timestamp,
	}
}

func (b *FakeBackend) statistics(orgID models.ID) gin.H {
	st := models.Statistics{}
	for _, p := range b.projects {
		if p.orgID != orgID {
			continue
		}
		st.TotalProjects++
		switch models.ProjectStatus(p.status) {
		case models.ProjectActive:
			st.ActiveProjects++
		case models.ProjectCompleted:
			st.CompletedProjects++
		case models.ProjectOnHold:
			st.OnHoldProjects++
		}
		for _, t := range b.tasks {
			if t.projectID != p.id {
				continue
			}
			st.TotalTasks++
			switch models.TaskStatus(t.status) {
			case models.TaskDone:
				st.CompletedTasks++
			case models.TaskInProgress:
				st.InProgressTasks++
			case models.TaskTodo:
				st.TodoTasks++
			}
		}
	}
	if st.TotalTasks > 0 {
		st.OverallCompletionRate = float64(st.CompletedTasks) / float64(st.TotalTasks) * 100
	}
	return gin.H{
		"totalProjects":         st.TotalProjects,
		"activeProjects":        st.ActiveProjects,
		"completedProjects":     st.CompletedProjects,
		"onHoldProjects":        st.OnHoldProjects,
		"totalTasks":            st.TotalTasks,
		"completedTasks":        st.CompletedTasks,
		"inProgressTasks":       st.InProgressTasks,
		"todoTasks":             st.TodoTasks,
		"overallCompletionRate": st.OverallCompletionRate,
	}
}

func (b *FakeBackend) findOrg(id models.ID) *organization {
	for _, o := range b.orgs {
		if o.ID == id {
			return o
		}
	}
	return nil
}

func (b *FakeBackend) findProject(id models.ID) *project {
	for _, p := range b.projects {
		if p.id == id {
			return p
		}
	}
	return nil
}

func (b *FakeBackend) findTask(id models.ID) *task {
	for _, t := range b.tasks {
		if t.id == id {
			return t
		}
	}
	return nil
}

func (b *FakeBackend) projectNameTaken(orgID models.ID, name string, except models.ID) bool {
	for _, p := range b.projects {
		if p.orgID == orgID && p.id != except && strings.EqualFold(p.name, name) {
			return true
		}
	}
	return false
}

func idVar(vars map[string]json.RawMessage, name string) models.ID {
	var id models.ID
	_ = json.Unmarshal(vars[name], &id)
	return id
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func slugify(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "-")
}
