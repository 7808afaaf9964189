package viewmodel

import (
	"fmt"

	"github.com/tgienger/taskhq/internal/models"
)

// ProjectCard is one entry of the project list. Empty strings mean the
// field is not shown.
type ProjectCard struct {
	ID          models.ID
	Name        string
	Description string
	Badge       Badge
	Due         string
	Tasks       string
	Completion  string
	Rate        float64
}

// ProjectCards projects a project list.
func ProjectCards(projects []models.Project) []ProjectCard {
	out := make([]ProjectCard, 0, len(projects))
	for _, p := range projects {
		out = append(out, NewProjectCard(p))
	}
	return out
}

// NewProjectCard projects one project.
func NewProjectCard(p models.Project) ProjectCard {
	due, _ := FormatDate(p.DueDate)
	return ProjectCard{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Badge:       ProjectBadge(p.Status),
		Due:         due,
		Tasks:       fmt.Sprintf("%d/%d tasks", p.CompletedTaskCount, p.TaskCount),
		Completion:  FormatPercent(p.CompletionRate),
		Rate:        p.CompletionRate,
	}
}

// TaskCard is one entry on the task board.
type TaskCard struct {
	ID       models.ID
	Title    string
	Status   models.TaskStatus
	Badge    Badge
	Assignee string
	Due      string
	Comments int
}

// NewTaskCard projects one task.
func NewTaskCard(t models.Task) TaskCard {
	due, _ := FormatDate(t.DueDate)
	return TaskCard{
		ID:       t.ID,
		Title:    t.Title,
		Status:   t.Status,
		Badge:    TaskBadge(t.Status),
		Assignee: t.AssigneeEmail,
		Due:      due,
		Comments: t.CommentCount,
	}
}

// Column is one status lane of the board.
type Column struct {
	Title string
	Tone  Tone
	// Status is empty for the column of unrecognised states.
	Status models.TaskStatus
	Tasks  []TaskCard
}

// Board groups tasks by status, in server order within a column.
type Board struct {
	Columns []Column
}

// TaskBoard builds the board. The column for unknown states only appears
// when it has tasks.
func TaskBoard(tasks []models.Task) Board {
	cols := make([]Column, 0, len(models.TaskStatuses)+1)
	index := make(map[models.TaskStatus]int, len(models.TaskStatuses))
	for i, s := range models.TaskStatuses {
		b := TaskBadge(s)
		cols = append(cols, Column{Title: b.Label, Tone: b.Tone, Status: s})
		index[s] = i
	}
	var other []TaskCard
	for _, t := range tasks {
		card := NewTaskCard(t)
		if i, ok := index[t.Status]; ok {
			cols[i].Tasks = append(cols[i].Tasks, card)
			continue
		}
		other = append(other, card)
	}
	if len(other) > 0 {
		cols = append(cols, Column{Title: "Other", Tone: ToneNeutral, Tasks: other})
	}
	return Board{Columns: cols}
}

// Column returns the lane for a known status.
func (b Board) Column(s models.TaskStatus) (Column, bool) {
	for _, c := range b.Columns {
		if c.Status == s && s != "" {
			return c, true
		}
	}
	return Column{}, false
}

// Find returns the column index and position of a task.
func (b Board) Find(id models.ID) (col, row int, ok bool) {
	for ci, c := range b.Columns {
		for ri, t := range c.Tasks {
			if t.ID == id {
				return ci, ri, true
			}
		}
	}
	return 0, 0, false
}

// CommentView is one comment line.
type CommentView struct {
	Author  string
	Content string
	When    string
}

// TaskDetail is the task detail screen.
type TaskDetail struct {
	Card        TaskCard
	Description string
	Created     string
	DueAt       string
	Comments    []CommentView
}

// TaskDetailView projects a task with its comments.
func TaskDetailView(t models.Task) TaskDetail {
	created, _ := FormatDateTime(t.CreatedAt)
	dueAt, _ := FormatDateTime(t.DueDate)
	d := TaskDetail{
		Card:        NewTaskCard(t),
		Description: t.Description,
		Created:     created,
		DueAt:       dueAt,
	}
	for _, c := range t.Comments {
		when, _ := FormatDateTime(c.Timestamp)
		d.Comments = append(d.Comments, CommentView{Author: c.AuthorEmail, Content: c.Content, When: when})
	}
	return d
}

// StatRow is one labelled number.
type StatRow struct {
	Label string
	Value int
	Tone  Tone
}

// Statistics is the organization summary panel.
type Statistics struct {
	Projects   []StatRow
	Tasks      []StatRow
	Completion string
	Rate       float64
}

// StatisticsPanel projects a statistics snapshot.
func StatisticsPanel(s models.Statistics) Statistics {
	return Statistics{
		Projects: []StatRow{
			{Label: "Projects", Value: s.TotalProjects},
			{Label: "Active", Value: s.ActiveProjects, Tone: ToneInfo},
			{Label: "Completed", Value: s.CompletedProjects, Tone: ToneSuccess},
			{Label: "On Hold", Value: s.OnHoldProjects, Tone: ToneWarning},
		},
		Tasks: []StatRow{
			{Label: "Tasks", Value: s.TotalTasks},
			{Label: "To Do", Value: s.TodoTasks, Tone: ToneWarning},
			{Label: "In Progress", Value: s.InProgressTasks, Tone: ToneInfo},
			{Label: "Done", Value: s.CompletedTasks, Tone: ToneSuccess},
		},
		Completion: FormatPercent(s.OverallCompletionRate),
		Rate:       s.OverallCompletionRate,
	}
}
