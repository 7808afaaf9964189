package views

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tgienger/taskhq/internal/models"
	"github.com/tgienger/taskhq/internal/ui/keys"
	"github.com/tgienger/taskhq/internal/ui/styles"
	"github.com/tgienger/taskhq/internal/viewmodel"
)

type projectItem struct {
	card viewmodel.ProjectCard
}

func (i projectItem) Title() string       { return i.card.Name }
func (i projectItem) Description() string { return i.card.Description }
func (i projectItem) FilterValue() string { return i.card.Name }

type projectDelegate struct {
	styles *styles.Styles
	width  int
}

func (d projectDelegate) Height() int                               { return 2 }
func (d projectDelegate) Spacing() int                              { return 1 }
func (d projectDelegate) Update(msg tea.Msg, m *list.Model) tea.Cmd { return nil }

func (d projectDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	p, ok := item.(projectItem)
	if !ok {
		return
	}

	width := max(d.width-4, 20)
	titleStyle := d.styles.ListItem.Width(width)
	descStyle := d.styles.ListItem.Foreground(styles.Current.ForegroundDim).Width(width)
	if index == m.Index() {
		titleStyle = d.styles.ListSelected.Width(width)
		descStyle = d.styles.ListSelected.Foreground(styles.Current.ForegroundDim).Width(width)
	}

	c := p.card
	title := c.Name + " " + d.styles.RenderBadge(c.Badge)

	meta := []string{c.Tasks}
	if c.Due != "" {
		meta = append(meta, "due "+c.Due)
	}
	meta = append(meta, viewmodel.ProgressBar(c.Rate, 10)+" "+c.Completion)

	fmt.Fprintf(w, "%s\n%s", titleStyle.Render(title), descStyle.Render(strings.Join(meta, " · ")))
}

// ProjectPortfolioView shows an organization's statistics and projects.
type ProjectPortfolioView struct {
	list     list.Model
	delegate *projectDelegate
	styles   *styles.Styles
	keys     keys.KeyMap

	organization models.Organization
	stats        viewmodel.Statistics
	statsStatus  Status
	status       Status

	width  int
	height int
}

func NewProjectPortfolioView() *ProjectPortfolioView {
	s := styles.NewStyles()
	delegate := &projectDelegate{styles: s, width: styles.MaxWidth}

	l := list.New([]list.Item{}, delegate, 0, 0)
	l.Title = "Projects"
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(true)
	l.Styles.Title = s.Title
	l.SetShowHelp(false)

	return &ProjectPortfolioView{
		list:     l,
		delegate: delegate,
		styles:   s,
		keys:     keys.DefaultKeyMap(),
	}
}

func (v *ProjectPortfolioView) Init() tea.Cmd { return nil }

func (v *ProjectPortfolioView) SetOrganization(o models.Organization) {
	if o.ID != v.organization.ID {
		v.list.ResetSelected()
		v.list.ResetFilter()
	}
	v.organization = o
}

func (v *ProjectPortfolioView) SetStatistics(s models.Statistics, st Status) {
	v.stats = viewmodel.StatisticsPanel(s)
	v.statsStatus = st
}

// SetProjects replaces the list, keeping the cursor on the same project.
func (v *ProjectPortfolioView) SetProjects(projects []models.Project, st Status) {
	v.status = st
	current := v.highlighted()
	cards := viewmodel.ProjectCards(projects)
	items := make([]list.Item, len(cards))
	cursor := -1
	for i, c := range cards {
		items[i] = projectItem{card: c}
		if c.ID == current {
			cursor = i
		}
	}
	v.list.SetItems(items)
	if cursor >= 0 {
		v.list.Select(cursor)
	}
}

func (v *ProjectPortfolioView) highlighted() models.ID {
	if item, ok := v.list.SelectedItem().(projectItem); ok {
		return item.card.ID
	}
	return 0
}

func (v *ProjectPortfolioView) Filtering() bool {
	return v.list.FilterState() == list.Filtering
}

func (v *ProjectPortfolioView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.width = msg.Width
		v.height = msg.Height
		contentWidth := styles.ContentWidth(msg.Width)
		v.delegate.width = contentWidth
		// statistics panel takes six lines
		v.list.SetSize(contentWidth-4, max(msg.Height-14, 4))
		return v, nil

	case tea.KeyMsg:
		if !v.Filtering() && key.Matches(msg, v.keys.Enter) {
			if id := v.highlighted(); !id.IsZero() {
				return v, func() tea.Msg { return ProjectChosen{ID: id} }
			}
			return v, nil
		}
	}

	var cmd tea.Cmd
	v.list, cmd = v.list.Update(msg)
	return v, cmd
}

func (v *ProjectPortfolioView) View() string {
	s := v.styles

	header := s.Breadcrumb.Render(v.organization.Name)
	body := v.list.View()
	if v.status.Loaded && len(v.list.Items()) == 0 {
		body = s.TitleMuted.Render("No projects yet. Press 'n' to create one.")
	}

	content := joinNonEmpty(
		header,
		v.renderStatistics(),
		banner(s, "projects", v.status),
		body,
		helpLine(s, "↵", "open", "n", "new project", "/", "filter", "esc", "organizations", "R", "refresh", "q", "quit"),
	)
	return styles.CenterView(content, v.width, v.height)
}

func (v *ProjectPortfolioView) renderStatistics() string {
	s := v.styles
	if b := banner(s, "statistics", v.statsStatus); b != "" && !v.statsStatus.Loaded {
		return s.Panel.Render(b)
	}

	row := func(rows []viewmodel.StatRow) string {
		var cells []string
		for _, r := range rows {
			value := lipgloss.NewStyle().Bold(true).Foreground(styles.ToneColor(r.Tone)).Render(fmt.Sprint(r.Value))
			cells = append(cells, s.Label.Render(r.Label+" ")+value)
		}
		return strings.Join(cells, "   ")
	}

	contentWidth := styles.ContentWidth(v.width)
	barWidth := clamp(contentWidth-30, 10, 40)
	lines := []string{
		row(v.stats.Projects),
		row(v.stats.Tasks),
		s.Label.Render("Overall ") + viewmodel.ProgressBar(v.stats.Rate, barWidth) + " " + v.stats.Completion,
	}
	if v.statsStatus.Err != nil {
		lines = append(lines, banner(s, "statistics", v.statsStatus))
	}
	return s.Panel.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}
