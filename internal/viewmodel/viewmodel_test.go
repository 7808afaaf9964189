package viewmodel

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tgienger/taskhq/internal/models"
)

func TestFormatDate(t *testing.T) {
	tests := []struct {
		in     string
		want   string
		wantOK bool
	}{
		{in: "2025-03-14", want: "Mar 14, 2025", wantOK: true},
		{in: "2025-03-14T09:30:00Z", want: "Mar 14, 2025", wantOK: true},
		{in: "2025-03-14T09:30:00.123456+00:00", want: "Mar 14, 2025", wantOK: true},
		{in: "2025-03-14T09:30:00.123456", want: "Mar 14, 2025", wantOK: true},
		{in: "", wantOK: false},
		{in: "soon", wantOK: false},
		{in: "2025-13-40", wantOK: false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := FormatDate(tt.in)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormatDateTime(t *testing.T) {
	got, ok := FormatDateTime("2025-03-14T15:04:00Z")
	require.True(t, ok)
	assert.Equal(t, "Mar 14, 2025 3:04 PM", got)

	_, ok = FormatDateTime("not a date")
	assert.False(t, ok)
}

func TestFormatPercent(t *testing.T) {
	assert.Equal(t, "42.5%", FormatPercent(42.456))
	assert.Equal(t, "0.0%", FormatPercent(0))
	assert.Equal(t, "100.0%", FormatPercent(100))
	assert.Equal(t, "0.0%", FormatPercent(math.NaN()))
}

func TestProgressBar(t *testing.T) {
	assert.Equal(t, "█████░░░░░", ProgressBar(50, 10))
	assert.Equal(t, "░░░░", ProgressBar(-5, 4))
	assert.Equal(t, "████", ProgressBar(250, 4))
	assert.Empty(t, ProgressBar(50, 0))
}

func TestBadgesFallBackToNeutral(t *testing.T) {
	assert.Equal(t, Badge{Label: "On Hold", Tone: ToneWarning}, ProjectBadge(models.ProjectOnHold))
	assert.Equal(t, Badge{Label: "In Progress", Tone: ToneInfo}, TaskBadge(models.TaskInProgress))

	assert.Equal(t, Badge{Label: "archived", Tone: ToneNeutral}, ProjectBadge("archived"))
	assert.Equal(t, Badge{Label: "blocked by vendor", Tone: ToneNeutral}, TaskBadge("blocked_by_vendor"))
	assert.Equal(t, Badge{Label: "Unknown", Tone: ToneNeutral}, TaskBadge(""))
}

func TestProjectCardsOmitBadDates(t *testing.T) {
	cards := ProjectCards([]models.Project{
		{ID: 1, Name: "Site", Status: models.ProjectActive, DueDate: "2025-06-30", TaskCount: 4, CompletedTaskCount: 1, CompletionRate: 25},
		{ID: 2, Name: "Legacy", Status: "weird", DueDate: "whenever"},
	})
	require.Len(t, cards, 2)
	assert.Equal(t, "Jun 30, 2025", cards[0].Due)
	assert.Equal(t, "1/4 tasks", cards[0].Tasks)
	assert.Equal(t, "25.0%", cards[0].Completion)
	assert.Empty(t, cards[1].Due)
	assert.Equal(t, ToneNeutral, cards[1].Badge.Tone)
}

func TestTaskBoardGroupsByStatus(t *testing.T) {
	board := TaskBoard([]models.Task{
		{ID: 1, Title: "a", Status: models.TaskTodo},
		{ID: 2, Title: "b", Status: models.TaskInProgress},
		{ID: 3, Title: "c", Status: models.TaskTodo},
		{ID: 4, Title: "d", Status: models.TaskDone},
	})
	require.Len(t, board.Columns, 3, "no column for unknown states when none exist")

	todo, ok := board.Column(models.TaskTodo)
	require.True(t, ok)
	require.Len(t, todo.Tasks, 2)
	assert.Equal(t, models.ID(1), todo.Tasks[0].ID)
	assert.Equal(t, models.ID(3), todo.Tasks[1].ID)

	col, row, ok := board.Find(4)
	require.True(t, ok)
	assert.Equal(t, 2, col)
	assert.Equal(t, 0, row)

	board = TaskBoard([]models.Task{{ID: 9, Status: "archived"}})
	require.Len(t, board.Columns, 4)
	assert.Equal(t, "Other", board.Columns[3].Title)
	assert.Len(t, board.Columns[3].Tasks, 1)
}

func TestTaskDetailView(t *testing.T) {
	d := TaskDetailView(models.Task{
		ID:          5,
		Title:       "Ship",
		Status:      models.TaskDone,
		Description: "Release **v1**",
		CreatedAt:   "2025-03-14T09:30:00Z",
		DueDate:     "garbage",
		Comments: []models.Comment{
			{ID: 1, Content: "done!", AuthorEmail: "a@b.test", Timestamp: "2025-03-15T10:00:00Z"},
			{ID: 2, Content: "no time", AuthorEmail: "c@d.test", Timestamp: "???"},
		},
	})
	assert.Equal(t, "Mar 14, 2025 9:30 AM", d.Created)
	assert.Empty(t, d.DueAt)
	require.Len(t, d.Comments, 2)
	assert.Equal(t, "Mar 15, 2025 10:00 AM", d.Comments[0].When)
	assert.Empty(t, d.Comments[1].When)
	assert.Equal(t, ToneSuccess, d.Card.Badge.Tone)
}

func TestStatisticsPanel(t *testing.T) {
	p := StatisticsPanel(models.Statistics{TotalProjects: 3, ActiveProjects: 2, OnHoldProjects: 1, TotalTasks: 8, CompletedTasks: 3, OverallCompletionRate: 37.5})
	assert.Equal(t, "37.5%", p.Completion)
	assert.Equal(t, 2, p.Projects[1].Value)
	assert.Equal(t, 3, p.Tasks[3].Value)
}

func TestRenderMarkdown(t *testing.T) {
	assert.Empty(t, RenderMarkdown("   ", 40))
	out := RenderMarkdown("Release **v1**", 40)
	assert.Contains(t, out, "v1")
}

func TestCommentCount(t *testing.T) {
	assert.Equal(t, "1 comment", CommentCount(1))
	assert.Equal(t, "0 comments", CommentCount(0))
}
