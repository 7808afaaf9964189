package views

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tgienger/taskhq/internal/models"
	"github.com/tgienger/taskhq/internal/ui/keys"
	"github.com/tgienger/taskhq/internal/ui/styles"
	"github.com/tgienger/taskhq/internal/viewmodel"
)

// TaskDetailView is the read-only task screen with its comments.
type TaskDetailView struct {
	styles *styles.Styles
	keys   keys.KeyMap

	detail  viewmodel.TaskDetail
	status  Status
	pending bool

	width   int
	height  int
	scrollY int
}

func NewTaskDetailView() *TaskDetailView {
	return &TaskDetailView{styles: styles.NewStyles(), keys: keys.DefaultKeyMap()}
}

func (v *TaskDetailView) Init() tea.Cmd { return nil }

// SetTask replaces the shown task. pending marks a status change in flight.
func (v *TaskDetailView) SetTask(t models.Task, st Status, pending bool) {
	if t.ID != v.detail.Card.ID {
		v.scrollY = 0
	}
	v.detail = viewmodel.TaskDetailView(t)
	v.status = st
	v.pending = pending
}

func (v *TaskDetailView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.width = msg.Width
		v.height = msg.Height
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, v.keys.Up):
			v.scrollY = max(v.scrollY-1, 0)
		case key.Matches(msg, v.keys.Down):
			v.scrollY++
		}
	}
	return v, nil
}

func (v *TaskDetailView) View() string {
	s := v.styles
	d := v.detail
	textWidth := clamp(styles.ContentWidth(v.width)-10, 20, 90)

	if d.Card.ID.IsZero() {
		return joinNonEmpty(banner(s, "task", v.status), helpLine(s, "esc", "back", "q", "quit"))
	}

	badge := s.RenderBadge(d.Card.Badge)
	if v.pending {
		badge += s.TitleMuted.Render(" saving…")
	}

	labelStyle := s.TitleMuted
	field := func(label, value string) string {
		if value == "" {
			value = s.TitleMuted.Render("None")
		}
		return labelStyle.Render(label+": ") + value
	}

	descText := viewmodel.RenderMarkdown(d.Description, textWidth)
	if descText == "" {
		descText = s.TitleMuted.Render("No description")
	}

	var commentsContent string
	if len(d.Comments) == 0 {
		commentsContent = s.TitleMuted.Render("No comments yet")
	} else {
		var lines []string
		for _, c := range d.Comments {
			head := s.Breadcrumb.Render(c.Author)
			if c.When != "" {
				head += s.TitleMuted.Render(" · " + c.When)
			}
			lines = append(lines, head, lipgloss.NewStyle().Width(textWidth).Render(c.Content), "")
		}
		commentsContent = lipgloss.JoinVertical(lipgloss.Left, lines...)
	}

	body := lipgloss.JoinVertical(lipgloss.Left,
		s.Title.Render(d.Card.Title)+" "+badge,
		"",
		field("Assignee", d.Card.Assignee),
		field("Due", d.DueAt),
		field("Created", d.Created),
		"",
		labelStyle.Render("Description"),
		descText,
		"",
		labelStyle.Render(viewmodel.CommentCount(len(d.Comments))),
		commentsContent,
	)

	lines := strings.Split(body, "\n")
	visible := max(v.height-6, 5)
	v.scrollY = clamp(v.scrollY, 0, max(len(lines)-visible, 0))
	end := min(v.scrollY+visible, len(lines))
	body = strings.Join(lines[v.scrollY:end], "\n")

	content := joinNonEmpty(
		banner(s, "task", v.status),
		body,
		helpLine(s, "e", "edit", "s", "status", "c", "comment", "↑/↓", "scroll", "esc", "back"),
	)
	padded := lipgloss.NewStyle().Padding(0, 2).Render(content)
	return styles.CenterView(padded, v.width, v.height)
}
