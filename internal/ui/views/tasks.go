package views

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tgienger/taskhq/internal/models"
	"github.com/tgienger/taskhq/internal/ui/keys"
	"github.com/tgienger/taskhq/internal/ui/styles"
	"github.com/tgienger/taskhq/internal/viewmodel"
)

// TaskBoardView shows a project and its tasks grouped by status.
type TaskBoardView struct {
	styles *styles.Styles
	keys   keys.KeyMap

	project       viewmodel.ProjectCard
	projectStatus Status
	board         viewmodel.Board
	status        Status
	pending       func(models.ID) bool

	width  int
	height int

	col     int
	row     int
	scrollY int
}

func NewTaskBoardView() *TaskBoardView {
	return &TaskBoardView{
		styles:  styles.NewStyles(),
		keys:    keys.DefaultKeyMap(),
		pending: func(models.ID) bool { return false },
	}
}

func (v *TaskBoardView) Init() tea.Cmd { return nil }

func (v *TaskBoardView) SetProject(p models.Project, st Status) {
	if p.ID != v.project.ID {
		v.col, v.row, v.scrollY = 0, 0, 0
	}
	v.project = viewmodel.NewProjectCard(p)
	v.projectStatus = st
}

// SetTasks regroups the board. The cursor follows the highlighted task to
// its new lane.
func (v *TaskBoardView) SetTasks(tasks []models.Task, st Status, pending func(models.ID) bool) {
	current, had := v.Highlighted()
	v.board = viewmodel.TaskBoard(tasks)
	v.status = st
	if pending != nil {
		v.pending = pending
	}
	if had {
		if col, row, ok := v.board.Find(current); ok {
			v.col, v.row = col, row
		}
	}
	v.fixCursor()
}

// Highlighted returns the task under the cursor.
func (v *TaskBoardView) Highlighted() (models.ID, bool) {
	if v.col >= len(v.board.Columns) {
		return 0, false
	}
	tasks := v.board.Columns[v.col].Tasks
	if v.row >= len(tasks) {
		return 0, false
	}
	return tasks[v.row].ID, true
}

func (v *TaskBoardView) fixCursor() {
	if len(v.board.Columns) == 0 {
		v.col, v.row = 0, 0
		return
	}
	v.col = clamp(v.col, 0, len(v.board.Columns)-1)
	v.row = clamp(v.row, 0, max(len(v.board.Columns[v.col].Tasks)-1, 0))
	v.ensureVisible()
}

func (v *TaskBoardView) visibleRows() int {
	// each card is three lines plus a gap
	return max((v.height-14)/4, 1)
}

func (v *TaskBoardView) ensureVisible() {
	visible := v.visibleRows()
	if v.row < v.scrollY {
		v.scrollY = v.row
	}
	if v.row >= v.scrollY+visible {
		v.scrollY = v.row - visible + 1
	}
}

func (v *TaskBoardView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.width = msg.Width
		v.height = msg.Height
		v.ensureVisible()
		return v, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, v.keys.Up):
			if v.row > 0 {
				v.row--
				v.ensureVisible()
			}
		case key.Matches(msg, v.keys.Down):
			v.row++
			v.fixCursor()
		case key.Matches(msg, v.keys.Left):
			if v.col > 0 {
				v.col--
				v.fixCursor()
			}
		case key.Matches(msg, v.keys.Right):
			v.col++
			v.fixCursor()
		case key.Matches(msg, v.keys.Enter):
			if id, ok := v.Highlighted(); ok {
				return v, func() tea.Msg { return TaskChosen{ID: id} }
			}
		case key.Matches(msg, v.keys.Edit):
			if id, ok := v.Highlighted(); ok {
				return v, func() tea.Msg { return TaskEditChosen{ID: id} }
			}
		case key.Matches(msg, v.keys.Status):
			if id, ok := v.Highlighted(); ok {
				return v, func() tea.Msg { return StatusCycled{ID: id} }
			}
		}
	}
	return v, nil
}

func (v *TaskBoardView) View() string {
	s := v.styles
	content := joinNonEmpty(
		v.renderHeader(),
		banner(s, "project", v.projectStatus),
		banner(s, "tasks", v.status),
		v.renderBoard(),
		helpLine(s, "↵", "open", "n", "new task", "e", "edit", "s", "status", "E", "edit project", "esc", "projects", "q", "quit"),
	)
	return styles.CenterView(content, v.width, v.height)
}

func (v *TaskBoardView) renderHeader() string {
	s := v.styles
	p := v.project
	if p.ID.IsZero() {
		return ""
	}
	title := s.Title.Render(p.Name) + " " + s.RenderBadge(p.Badge)

	meta := []string{p.Tasks, viewmodel.ProgressBar(p.Rate, 10) + " " + p.Completion}
	if p.Due != "" {
		meta = append(meta, "due "+p.Due)
	}
	line := s.TitleMuted.Render(fmt.Sprintf("%s · %s", meta[0], meta[1]))
	if len(meta) > 2 {
		line += s.TitleMuted.Render(" · " + meta[2])
	}

	desc := ""
	if p.Description != "" {
		width := clamp(styles.ContentWidth(v.width)-4, 20, styles.MaxWidth)
		desc = viewmodel.RenderMarkdown(p.Description, width)
	}
	return joinNonEmpty(title, line, desc)
}

func (v *TaskBoardView) renderBoard() string {
	s := v.styles
	if v.status.Loaded && len(v.board.Columns) > 0 && v.empty() {
		return s.TitleMuted.Render("No tasks. Press 'n' to create one.")
	}

	n := max(len(v.board.Columns), 1)
	colWidth := max((styles.ContentWidth(v.width)-2*n)/n, 16)

	var lanes []string
	for i, col := range v.board.Columns {
		lanes = append(lanes, v.renderColumn(i, col, colWidth))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, lanes...)
}

func (v *TaskBoardView) empty() bool {
	for _, c := range v.board.Columns {
		if len(c.Tasks) > 0 {
			return false
		}
	}
	return true
}

func (v *TaskBoardView) renderColumn(idx int, col viewmodel.Column, width int) string {
	s := v.styles
	header := lipgloss.NewStyle().
		Bold(true).
		Foreground(styles.ToneColor(col.Tone)).
		Render(fmt.Sprintf("%s (%d)", col.Title, len(col.Tasks)))

	items := []string{header}
	end := min(v.scrollY+v.visibleRows(), len(col.Tasks))
	for i := v.scrollY; i < end; i++ {
		items = append(items, v.renderTaskItem(col.Tasks[i], idx == v.col && i == v.row, width-4))
	}
	if end < len(col.Tasks) {
		items = append(items, s.TitleMuted.Render(fmt.Sprintf("+%d more", len(col.Tasks)-end)))
	}

	panel := s.Panel
	if idx == v.col {
		panel = s.PanelFocus
	}
	return panel.Width(width).Render(lipgloss.JoinVertical(lipgloss.Left, items...))
}

func (v *TaskBoardView) renderTaskItem(t viewmodel.TaskCard, selected bool, width int) string {
	s := v.styles
	titleStyle := lipgloss.NewStyle().Foreground(styles.Current.Foreground).Width(width)
	metaStyle := s.TitleMuted.Width(width)
	if selected {
		titleStyle = titleStyle.Foreground(styles.Current.Primary).Background(styles.Current.Selection).Bold(true)
		metaStyle = metaStyle.Background(styles.Current.Selection)
	}

	title := t.Title
	if v.pending(t.ID) {
		title += " …"
	}

	meta := viewmodel.CommentCount(t.Comments)
	if t.Due != "" {
		meta = "due " + t.Due + " · " + meta
	}
	assignee := t.Assignee
	if assignee == "" {
		assignee = "unassigned"
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render(title),
		metaStyle.Render(assignee),
		metaStyle.Render(meta),
	)
}
