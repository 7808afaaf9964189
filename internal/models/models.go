package models

// Organization is the top-level workspace that owns projects.
type Organization struct {
	ID           ID     `json:"id"`
	Name         string `json:"name"`
	Slug         string `json:"slug"`
	ContactEmail string `json:"contact_email"`
	CreatedAt    string `json:"created_at"`
}

// Ref points at an owning entity. The API only returns its id.
type Ref struct {
	ID ID `json:"id"`
}

// Project represents a project within an organization.
// TaskCount, CompletedTaskCount and CompletionRate are computed server-side.
type Project struct {
	ID                 ID            `json:"id"`
	Organization       Ref           `json:"organization"`
	Name               string        `json:"name"`
	Description        string        `json:"description"`
	Status             ProjectStatus `json:"status"`
	DueDate            string        `json:"dueDate"`
	CreatedAt          string        `json:"createdAt"`
	TaskCount          int           `json:"taskCount"`
	CompletedTaskCount int           `json:"completedTaskCount"`
	CompletionRate     float64       `json:"completionRate"`
}

// OrganizationID returns the owning organization's id.
func (p Project) OrganizationID() ID { return p.Organization.ID }

// Comment represents a comment on a task. Comments are append-only.
type Comment struct {
	ID          ID     `json:"id"`
	Task        Ref    `json:"task"`
	Content     string `json:"content"`
	AuthorEmail string `json:"authorEmail"`
	Timestamp   string `json:"timestamp"`
}

// Task represents a single task
type Task struct {
	ID            ID         `json:"id"`
	Project       Ref        `json:"project"`
	Title         string     `json:"title"`
	Description   string     `json:"description"`
	Status        TaskStatus `json:"status"`
	AssigneeEmail string     `json:"assigneeEmail"`
	DueDate       string     `json:"dueDate"`
	CreatedAt     string     `json:"createdAt"`
	CommentCount  int        `json:"commentCount"`
	Comments      []Comment  `json:"comments"` // populated by the task detail query
}

// ProjectID returns the owning project's id.
func (t Task) ProjectID() ID { return t.Project.ID }

// Statistics is an organization-wide snapshot. It has no identity of its own.
type Statistics struct {
	TotalProjects         int     `json:"totalProjects"`
	ActiveProjects        int     `json:"activeProjects"`
	CompletedProjects     int     `json:"completedProjects"`
	OnHoldProjects        int     `json:"onHoldProjects"`
	TotalTasks            int     `json:"totalTasks"`
	CompletedTasks        int     `json:"completedTasks"`
	InProgressTasks       int     `json:"inProgressTasks"`
	TodoTasks             int     `json:"todoTasks"`
	OverallCompletionRate float64 `json:"overallCompletionRate"`
}
