package views

import (
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tgienger/taskhq/internal/models"
	"github.com/tgienger/taskhq/internal/ui/keys"
	"github.com/tgienger/taskhq/internal/ui/styles"
)

type organizationItem struct {
	org      models.Organization
	selected bool
}

func (i organizationItem) Title() string       { return i.org.Name }
func (i organizationItem) Description() string { return i.org.ContactEmail }
func (i organizationItem) FilterValue() string { return i.org.Name }

type organizationDelegate struct {
	styles *styles.Styles
	width  int
}

func (d organizationDelegate) Height() int                               { return 2 }
func (d organizationDelegate) Spacing() int                              { return 1 }
func (d organizationDelegate) Update(msg tea.Msg, m *list.Model) tea.Cmd { return nil }

func (d organizationDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	o, ok := item.(organizationItem)
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

	title := o.Title()
	if o.selected {
		title += " ●"
	}
	desc := o.org.Slug
	if o.Description() != "" {
		desc += " · " + o.Description()
	}

	fmt.Fprintf(w, "%s\n%s", titleStyle.Render(title), descStyle.Render(desc))
}

// OrganizationListView is the organization picker.
type OrganizationListView struct {
	list     list.Model
	delegate *organizationDelegate
	styles   *styles.Styles
	keys     keys.KeyMap
	status   Status
	width    int
	height   int
}

func NewOrganizationListView() *OrganizationListView {
	s := styles.NewStyles()
	delegate := &organizationDelegate{styles: s, width: styles.MaxWidth}

	l := list.New([]list.Item{}, delegate, 0, 0)
	l.Title = "Organizations"
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(true)
	l.Styles.Title = s.Title
	l.SetShowHelp(false)

	return &OrganizationListView{
		list:     l,
		delegate: delegate,
		styles:   s,
		keys:     keys.DefaultKeyMap(),
	}
}

func (v *OrganizationListView) Init() tea.Cmd { return nil }

// SetOrganizations replaces the listed organizations, keeping the cursor on
// the same organization when it is still present.
func (v *OrganizationListView) SetOrganizations(orgs []models.Organization, selected models.ID, st Status) {
	v.status = st
	current := v.highlighted()
	items := make([]list.Item, len(orgs))
	cursor := -1
	for i, o := range orgs {
		items[i] = organizationItem{org: o, selected: o.ID == selected}
		if o.ID == current || (cursor < 0 && o.ID == selected) {
			cursor = i
		}
	}
	v.list.SetItems(items)
	if cursor >= 0 {
		v.list.Select(cursor)
	}
}

func (v *OrganizationListView) highlighted() models.ID {
	if item, ok := v.list.SelectedItem().(organizationItem); ok {
		return item.org.ID
	}
	return 0
}

// Filtering reports whether the list is capturing keys for its filter.
func (v *OrganizationListView) Filtering() bool {
	return v.list.FilterState() == list.Filtering
}

func (v *OrganizationListView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.width = msg.Width
		v.height = msg.Height
		contentWidth := styles.ContentWidth(msg.Width)
		v.delegate.width = contentWidth
		v.list.SetSize(contentWidth-4, max(msg.Height-8, 4))
		return v, nil

	case tea.KeyMsg:
		if !v.Filtering() && key.Matches(msg, v.keys.Enter) {
			if id := v.highlighted(); !id.IsZero() {
				return v, func() tea.Msg { return OrganizationChosen{ID: id} }
			}
			return v, nil
		}
	}

	var cmd tea.Cmd
	v.list, cmd = v.list.Update(msg)
	return v, cmd
}

func (v *OrganizationListView) View() string {
	s := v.styles
	if v.status.Loaded && len(v.list.Items()) == 0 {
		return v.renderEmpty()
	}
	content := joinNonEmpty(
		banner(s, "organizations", v.status),
		v.list.View(),
		helpLine(s, "↵", "select", "o", "new organization", "/", "filter", "q", "quit"),
	)
	return styles.CenterView(content, v.width, v.height)
}

func (v *OrganizationListView) renderEmpty() string {
	s := v.styles
	contentWidth := styles.ContentWidth(v.width)

	content := lipgloss.JoinVertical(lipgloss.Center,
		s.Title.Render("No Organizations"),
		"",
		s.TitleMuted.Render("Press 'o' to create your first organization"),
		"",
		s.ButtonPrimary.Render(" New Organization "),
	)

	centered := lipgloss.Place(contentWidth, max(v.height, 10),
		lipgloss.Center, lipgloss.Center,
		content,
	)
	return styles.CenterView(centered, v.width, v.height)
}
