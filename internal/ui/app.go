// Package ui renders the dashboard with Bubble Tea. Every state change
// goes through dashboard intents; the views only draw and emit messages.
package ui

import (
	"context"
	"errors"
	"log"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tgienger/taskhq/internal/dashboard"
	"github.com/tgienger/taskhq/internal/forms"
	"github.com/tgienger/taskhq/internal/state"
	"github.com/tgienger/taskhq/internal/ui/keys"
	"github.com/tgienger/taskhq/internal/ui/styles"
	"github.com/tgienger/taskhq/internal/ui/views"
)

// loadDone carries a finished load back to the update loop.
type loadDone struct {
	result dashboard.Result
}

type App struct {
	ctx    context.Context
	dash   *dashboard.Dashboard
	keys   keys.KeyMap
	styles *styles.Styles

	organizations *views.OrganizationListView
	portfolio     *views.ProjectPortfolioView
	board         *views.TaskBoardView
	detail        *views.TaskDetailView
	form          *views.FormView

	notice string
	width  int
	height int
}

// NewApp creates the root model. Loads run under ctx.
func NewApp(ctx context.Context, dash *dashboard.Dashboard) *App {
	return &App{
		ctx:           ctx,
		dash:          dash,
		keys:          keys.DefaultKeyMap(),
		styles:        styles.NewStyles(),
		organizations: views.NewOrganizationListView(),
		portfolio:     views.NewProjectPortfolioView(),
		board:         views.NewTaskBoardView(),
		detail:        views.NewTaskDetailView(),
	}
}

func (a *App) Init() tea.Cmd {
	cmd := a.run(a.dash.Start())
	a.sync()
	return cmd
}

// run turns loads into commands. Each load runs on its own goroutine.
func (a *App) run(loads []dashboard.Load) tea.Cmd {
	if len(loads) == 0 {
		return nil
	}
	cmds := make([]tea.Cmd, 0, len(loads))
	for _, l := range loads {
		l := l
		cmds = append(cmds, func() tea.Msg {
			return loadDone{result: l.Run(a.ctx)}
		})
	}
	return tea.Batch(cmds...)
}

// intent runs the loads of an intent that may fail.
func (a *App) intent(loads []dashboard.Load, err error) tea.Cmd {
	a.report(err)
	cmd := a.run(loads)
	a.sync()
	return cmd
}

func (a *App) report(err error) {
	switch {
	case err == nil:
		a.notice = ""
	case errors.Is(err, forms.ErrInvalid), errors.Is(err, forms.ErrSubmitPending):
		// the form shows these itself
	default:
		log.Printf("ui: %v", err)
		a.notice = err.Error()
	}
}

func (a *App) resize() {
	msg := tea.WindowSizeMsg{Width: a.width, Height: a.height}
	a.organizations.Update(msg)
	a.portfolio.Update(msg)
	a.board.Update(msg)
	a.detail.Update(msg)
	if a.form != nil {
		a.form.Update(msg)
	}
}

// sync copies dashboard state into the views.
func (a *App) sync() {
	d := a.dash
	sel := d.Selection()

	a.organizations.SetOrganizations(d.Organizations.Value(), sel.OrganizationID(), views.StatusOf(d.Organizations))
	for _, o := range d.Organizations.Value() {
		if o.ID == sel.OrganizationID() {
			a.portfolio.SetOrganization(o)
		}
	}
	a.portfolio.SetStatistics(d.Statistics.Value(), views.StatusOf(d.Statistics))
	a.portfolio.SetProjects(d.Projects.Value(), views.StatusOf(d.Projects))
	a.board.SetProject(d.Project.Value(), views.StatusOf(d.Project))
	a.board.SetTasks(d.Tasks.Value(), views.StatusOf(d.Tasks), d.StatusPending)
	a.detail.SetTask(d.Task.Value(), views.StatusOf(d.Task), d.StatusPending(sel.TaskID()))

	switch f := d.Form(); {
	case f == nil:
		a.form = nil
	case a.form == nil || a.form.Form() != f:
		a.form = views.NewFormView(f, state.ModalTitle(d.Modal()))
		if a.width > 0 {
			a.form.Update(tea.WindowSizeMsg{Width: a.width, Height: a.height})
		}
	}
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	d := a.dash
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.resize()
		return a, nil

	case loadDone:
		follow := d.Apply(msg.result)
		if msg.result.Load.IsMutation() && msg.result.Err == nil {
			a.notice = ""
		}
		cmd := a.run(follow)
		a.sync()
		return a, cmd

	case views.OrganizationChosen:
		return a, a.intent(d.SelectOrganization(msg.ID))
	case views.ProjectChosen:
		return a, a.intent(d.SelectProject(msg.ID))
	case views.TaskChosen:
		return a, a.intent(d.SelectTask(msg.ID))
	case views.TaskEditChosen:
		return a, a.intent(nil, d.EditTask(msg.ID))
	case views.StatusCycled:
		return a, a.intent(d.CycleTaskStatus(msg.ID))
	case views.FormSubmitted:
		return a, a.intent(d.Submit())
	case views.FormCancelled:
		d.CloseModal()
		a.sync()
		return a, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return a, tea.Quit
		}
		if a.form != nil {
			_, cmd := a.form.Update(msg)
			return a, cmd
		}
		if a.filtering() {
			return a, a.forward(msg)
		}
		if cmd, ok := a.handleKey(msg); ok {
			return a, cmd
		}
		return a, a.forward(msg)
	}

	return a, a.forward(msg)
}

func (a *App) filtering() bool {
	switch a.dash.Screen() {
	case dashboard.ScreenOrganizations:
		return a.organizations.Filtering()
	case dashboard.ScreenProjects:
		return a.portfolio.Filtering()
	}
	return false
}

// handleKey maps global keys to dashboard intents.
func (a *App) handleKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	d := a.dash
	screen := d.Screen()
	switch {
	case key.Matches(msg, a.keys.Quit):
		return tea.Quit, true
	case key.Matches(msg, a.keys.Back):
		if screen == dashboard.ScreenOrganizations {
			return nil, true
		}
		return a.intent(d.Back(), nil), true
	case key.Matches(msg, a.keys.Retry):
		return a.intent(d.Retry(), nil), true
	case key.Matches(msg, a.keys.Refresh):
		return a.intent(d.Refresh(), nil), true
	case key.Matches(msg, a.keys.Clear):
		return a.intent(d.ClearStale(), nil), true
	case key.Matches(msg, a.keys.NewOrg):
		return a.intent(nil, d.NewOrganization()), true
	case key.Matches(msg, a.keys.New):
		switch screen {
		case dashboard.ScreenOrganizations:
			return a.intent(nil, d.NewOrganization()), true
		case dashboard.ScreenProjects:
			return a.intent(nil, d.NewProject()), true
		case dashboard.ScreenTasks:
			return a.intent(nil, d.NewTask()), true
		}
	case key.Matches(msg, a.keys.EditPrj):
		if screen == dashboard.ScreenTasks || screen == dashboard.ScreenTask {
			return a.intent(nil, d.EditProject()), true
		}
	}

	if screen != dashboard.ScreenTask {
		return nil, false
	}
	task := d.Selection().TaskID()
	switch {
	case key.Matches(msg, a.keys.Edit):
		return a.intent(nil, d.EditTask(task)), true
	case key.Matches(msg, a.keys.Status):
		return a.intent(d.CycleTaskStatus(task)), true
	case key.Matches(msg, a.keys.Comment):
		return a.intent(nil, d.AddComment()), true
	}
	return nil, false
}

func (a *App) forward(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	switch a.dash.Screen() {
	case dashboard.ScreenOrganizations:
		_, cmd = a.organizations.Update(msg)
	case dashboard.ScreenProjects:
		_, cmd = a.portfolio.Update(msg)
	case dashboard.ScreenTasks:
		_, cmd = a.board.Update(msg)
	case dashboard.ScreenTask:
		_, cmd = a.detail.Update(msg)
	}
	return cmd
}

func (a *App) View() string {
	if a.form != nil {
		return a.form.View()
	}

	var body string
	switch a.dash.Screen() {
	case dashboard.ScreenProjects:
		body = a.portfolio.View()
	case dashboard.ScreenTasks:
		body = a.board.View()
	case dashboard.ScreenTask:
		body = a.detail.View()
	default:
		body = a.organizations.View()
	}
	return lipgloss.JoinVertical(lipgloss.Left, body, a.statusBar())
}

func (a *App) statusBar() string {
	s := a.styles
	switch {
	case a.notice != "":
		return s.StatusBar.Inherit(s.Error).Render(a.notice)
	case a.dash.StatusErr() != nil:
		return s.StatusBar.Inherit(s.Error).Render("Status change failed: " + a.dash.StatusErr().Error())
	}
	return s.StatusBar.Render(a.breadcrumb())
}

func (a *App) breadcrumb() string {
	d := a.dash
	sel := d.Selection()
	var parts []string
	for _, o := range d.Organizations.Value() {
		if o.ID == sel.OrganizationID() {
			parts = append(parts, o.Name)
		}
	}
	if p, ok := d.Project.Data(); ok && !sel.ProjectID().IsZero() {
		parts = append(parts, p.Name)
	}
	if t, ok := d.Task.Data(); ok && !sel.TaskID().IsZero() {
		parts = append(parts, t.Title)
	}
	return strings.Join(parts, " › ")
}
