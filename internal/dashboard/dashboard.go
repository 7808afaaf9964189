// Package dashboard composes selection, bindings, forms and the data
// client into the screens of the dashboard. It knows nothing about the
// terminal: intents return Loads, and Apply folds their Results back in.
package dashboard

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/tgienger/taskhq/internal/api"
	"github.com/tgienger/taskhq/internal/forms"
	"github.com/tgienger/taskhq/internal/models"
	"github.com/tgienger/taskhq/internal/state"
)

// Preference keys.
const (
	PrefLastOrganization = "last_organization_id"
	PrefLastProject      = "last_project_id"
	PrefCommentAuthor    = "comment_author"
)

// Binding names.
const (
	bindOrganizations = "organizations"
	bindProjects      = "projects"
	bindStatistics    = "statistics"
	bindProject       = "project"
	bindTasks         = "tasks"
	bindTask          = "task"
)

// ErrUnknownEntity is returned when an intent names an entity that is not
// in the loaded data.
var ErrUnknownEntity = errors.New("entity is not loaded")

// ErrNoSelection is returned when an intent needs a selection that is absent.
var ErrNoSelection = errors.New("nothing selected")

// Preferences persists small settings between runs.
type Preferences interface {
	GetSetting(key string) (string, error)
	SetSetting(key, value string) error
}

// Screen is what the dashboard shows, derived from the selection.
type Screen int

const (
	ScreenOrganizations Screen = iota
	ScreenProjects
	ScreenTasks
	ScreenTask
)

// Dashboard is the view-state coordinator. It is not safe for concurrent
// use; only Load.Run may happen elsewhere.
type Dashboard struct {
	client *api.Client
	prefs  Preferences

	sel   state.Selection
	modal state.Modal
	form  *forms.Form

	Organizations *state.Binding[[]models.Organization]
	Projects      *state.Binding[[]models.Project]
	Statistics    *state.Binding[models.Statistics]
	Project       *state.Binding[models.Project]
	Tasks         *state.Binding[[]models.Task]
	Task          *state.Binding[models.Task]

	author         string
	restoreOrg     models.ID
	restoreProject models.ID
	autoSelected   bool

	statusPending map[models.ID]bool
	statusErr     error
}

// New creates a dashboard. prefs may be nil.
func New(client *api.Client, prefs Preferences) *Dashboard {
	return &Dashboard{
		client:        client,
		prefs:         prefs,
		modal:         state.Closed{},
		Organizations: state.NewBinding[[]models.Organization](bindOrganizations),
		Projects:      state.NewBinding[[]models.Project](bindProjects),
		Statistics:    state.NewBinding[models.Statistics](bindStatistics),
		Project:       state.NewBinding[models.Project](bindProject),
		Tasks:         state.NewBinding[[]models.Task](bindTasks),
		Task:          state.NewBinding[models.Task](bindTask),
		statusPending: make(map[models.ID]bool),
	}
}

func (d *Dashboard) Selection() state.Selection { return d.sel }
func (d *Dashboard) Modal() state.Modal         { return d.modal }
func (d *Dashboard) Form() *forms.Form          { return d.form }
func (d *Dashboard) Author() string             { return d.author }

// StatusPending reports whether a quick status change for the task is in flight.
func (d *Dashboard) StatusPending(id models.ID) bool { return d.statusPending[id] }

// StatusErr is the last quick status failure.
func (d *Dashboard) StatusErr() error { return d.statusErr }

// Screen derives the current screen from the selection.
func (d *Dashboard) Screen() Screen {
	switch d.sel.Level() {
	case state.LevelOrganization:
		return ScreenProjects
	case state.LevelProject:
		return ScreenTasks
	case state.LevelTask:
		return ScreenTask
	}
	return ScreenOrganizations
}

// Start restores preferences and loads the organization list.
func (d *Dashboard) Start() []Load {
	d.restoreOrg = d.prefID(PrefLastOrganization)
	d.restoreProject = d.prefID(PrefLastProject)
	d.author = d.pref(PrefCommentAuthor)

	loads := bind(d, nil, d.Organizations, api.NewRequest(api.ListOrganizations, nil))
	d.activate()
	return loads
}

// SelectOrganization makes a listed organization active. Project and task
// are cleared even when the organization is already selected.
func (d *Dashboard) SelectOrganization(id models.ID) ([]Load, error) {
	if _, ok := d.organization(id); !ok {
		return nil, fmt.Errorf("select organization %s: %w", id, ErrUnknownEntity)
	}
	d.sel.SelectOrganization(id)
	d.restoreProject = 0
	d.savePref(PrefLastOrganization, id.String())
	d.savePref(PrefLastProject, "")
	return d.rebind(), nil
}

// SelectProject makes a listed project of the active organization active.
func (d *Dashboard) SelectProject(id models.ID) ([]Load, error) {
	p, ok := d.projectInList(id)
	if !ok {
		return nil, fmt.Errorf("select project %s: %w", id, ErrUnknownEntity)
	}
	if err := d.sel.SelectProject(p); err != nil {
		return nil, err
	}
	d.savePref(PrefLastProject, id.String())
	return d.rebind(), nil
}

// SelectTask makes a listed task of the active project active.
func (d *Dashboard) SelectTask(id models.ID) ([]Load, error) {
	t, ok := d.taskInList(id)
	if !ok {
		return nil, fmt.Errorf("select task %s: %w", id, ErrUnknownEntity)
	}
	if err := d.sel.SelectTask(t); err != nil {
		return nil, err
	}
	return d.rebind(), nil
}

// Back clears the deepest selection level.
func (d *Dashboard) Back() []Load {
	switch d.sel.Back() {
	case state.LevelProject:
		d.savePref(PrefLastProject, "")
	case state.LevelOrganization:
		d.savePref(PrefLastOrganization, "")
	}
	return d.rebind()
}

// ClearStale drops a selected project or task the server no longer knows.
func (d *Dashboard) ClearStale() []Load {
	switch {
	case d.Project.Missing():
		d.sel.ClearProject()
		d.savePref(PrefLastProject, "")
	case d.Task.Missing():
		d.sel.ClearTask()
	default:
		return nil
	}
	return d.rebind()
}

// Retry reloads, from the network, every binding whose last load failed.
func (d *Dashboard) Retry() []Load {
	var loads []Load
	loads = retry(d, loads, d.Organizations)
	loads = retry(d, loads, d.Projects)
	loads = retry(d, loads, d.Statistics)
	loads = retry(d, loads, d.Project)
	loads = retry(d, loads, d.Tasks)
	loads = retry(d, loads, d.Task)
	return loads
}

// Refresh reloads every bound view from the network.
func (d *Dashboard) Refresh() []Load {
	return d.syncAll(true)
}

// OpenModal opens a form. Create modals start blank; edit modals are
// seeded from their entity.
func (d *Dashboard) OpenModal(m state.Modal) error {
	if d.form != nil && d.form.Pending() {
		return forms.ErrSubmitPending
	}
	f := forms.ForModal(m, d.author)
	if f == nil {
		d.CloseModal()
		return nil
	}
	d.modal = m
	d.form = f
	return nil
}

// CloseModal discards the open form and its input.
func (d *Dashboard) CloseModal() {
	d.modal = state.Closed{}
	d.form = nil
}

// NewOrganization opens the organization form.
func (d *Dashboard) NewOrganization() error {
	return d.OpenModal(state.CreatingOrganization{})
}

// NewProject opens the project form for the active organization.
func (d *Dashboard) NewProject() error {
	if d.sel.OrganizationID().IsZero() {
		return ErrNoSelection
	}
	return d.OpenModal(state.CreatingProject{OrganizationID: d.sel.OrganizationID()})
}

// EditProject opens the project form for the active project.
func (d *Dashboard) EditProject() error {
	p, ok := d.Project.Data()
	if !ok || p.ID != d.sel.ProjectID() {
		return ErrNoSelection
	}
	return d.OpenModal(state.EditingProject{Project: p})
}

// NewTask opens the task form for the active project.
func (d *Dashboard) NewTask() error {
	if d.sel.ProjectID().IsZero() {
		return ErrNoSelection
	}
	return d.OpenModal(state.CreatingTask{ProjectID: d.sel.ProjectID()})
}

// EditTask opens the task form for a task of the active project.
func (d *Dashboard) EditTask(id models.ID) error {
	if t, ok := d.Task.Data(); ok && t.ID == id {
		return d.OpenModal(state.EditingTask{Task: t})
	}
	t, ok := d.taskInList(id)
	if !ok {
		return fmt.Errorf("edit task %s: %w", id, ErrUnknownEntity)
	}
	return d.OpenModal(state.EditingTask{Task: t})
}

// AddComment opens the comment form for the active task.
func (d *Dashboard) AddComment() error {
	if d.sel.TaskID().IsZero() {
		return ErrNoSelection
	}
	return d.OpenModal(state.AddingComment{TaskID: d.sel.TaskID()})
}

// Submit validates the open form and returns its mutation. Invalid input
// and repeated submits return an error and no load.
func (d *Dashboard) Submit() ([]Load, error) {
	if d.form == nil {
		return nil, ErrNoSelection
	}
	sub, err := d.form.Begin()
	if err != nil {
		return nil, err
	}
	return []Load{{client: d.client, sub: sub, form: d.form}}, nil
}

// SetTaskStatus changes a task's status outside the edit form. Only one
// change per task may be in flight.
func (d *Dashboard) SetTaskStatus(id models.ID, status models.TaskStatus) ([]Load, error) {
	if d.statusPending[id] {
		return nil, forms.ErrSubmitPending
	}
	if _, ok := d.knownTask(id); !ok {
		return nil, fmt.Errorf("set status of task %s: %w", id, ErrUnknownEntity)
	}
	sub, err := forms.QuickStatus(id, status)
	if err != nil {
		return nil, err
	}
	d.statusPending[id] = true
	d.statusErr = nil
	return []Load{{client: d.client, sub: sub, statusTask: id}}, nil
}

// CycleTaskStatus moves a task to its next status.
func (d *Dashboard) CycleTaskStatus(id models.ID) ([]Load, error) {
	t, ok := d.knownTask(id)
	if !ok {
		return nil, fmt.Errorf("cycle status of task %s: %w", id, ErrUnknownEntity)
	}
	return d.SetTaskStatus(id, t.Status.Next())
}

// Apply folds a finished load into the dashboard and returns follow-ups.
func (d *Dashboard) Apply(r Result) []Load {
	if r.Load.IsMutation() {
		return d.applyMutation(r)
	}
	applied := false
	switch r.Load.ticket.Binding {
	case bindOrganizations:
		applied = resolve(d.Organizations, r)
	case bindProjects:
		applied = resolve(d.Projects, r)
	case bindStatistics:
		applied = resolve(d.Statistics, r)
	case bindProject:
		applied = resolve(d.Project, r)
	case bindTasks:
		applied = resolve(d.Tasks, r)
	case bindTask:
		applied = resolve(d.Task, r)
	}
	if !applied {
		log.Printf("dashboard: dropped result for %s, view moved on", r.Load.Name())
		return nil
	}
	if r.Err != nil {
		log.Printf("dashboard: %s failed: %v", r.Load.Name(), r.Err)
	}

	switch r.Load.ticket.Binding {
	case bindOrganizations:
		return d.autoSelectOrganization()
	case bindProjects:
		return d.restoreProjectSelection()
	}
	return nil
}

func resolve[T any](b *state.Binding[T], r Result) bool {
	var v T
	err := r.Err
	if err == nil && r.Loaded && len(r.Data) > 0 {
		if derr := json.Unmarshal(r.Data, &v); derr != nil {
			err = &api.NetworkError{Op: r.Load.req.Op.Name, Err: fmt.Errorf("failed to decode response: %w", derr)}
		}
	}
	return b.Resolve(r.Load.ticket, v, r.Loaded && err == nil, err)
}

func (d *Dashboard) applyMutation(r Result) []Load {
	l := r.Load
	if !l.statusTask.IsZero() {
		delete(d.statusPending, l.statusTask)
		if r.Err != nil {
			d.statusErr = r.Err
			log.Printf("dashboard: status change for task %s failed: %v", l.statusTask, r.Err)
			return nil
		}
		return d.syncAll(false)
	}

	// The form may have been closed while the request was running.
	current := l.form != nil && l.form == d.form
	if l.form != nil {
		l.form.Finish(r.Err)
	}
	if r.Err != nil {
		return nil
	}

	if current {
		d.CloseModal()
	}
	switch l.sub.Kind {
	case forms.KindOrganization:
		var org models.Organization
		if err := json.Unmarshal(r.Data, &org); err == nil && !org.ID.IsZero() && current {
			// Select before the list reloads so auto-selection stays out of the way.
			d.autoSelected = true
			d.sel.SelectOrganization(org.ID)
			d.savePref(PrefLastOrganization, org.ID.String())
			d.savePref(PrefLastProject, "")
			d.restoreProject = 0
			return reload(d, d.rebind(), d.Organizations, false)
		}
	case forms.KindComment:
		if input, ok := l.sub.Vars["input"].(map[string]any); ok {
			if author, ok := input["authorEmail"].(string); ok && author != "" && author != d.author {
				d.author = author
				d.savePref(PrefCommentAuthor, author)
			}
		}
	}
	return d.syncAll(false)
}

// autoSelectOrganization picks an organization the first time the list
// arrives with nothing selected: the remembered one if it is still
// listed, otherwise the first.
func (d *Dashboard) autoSelectOrganization() []Load {
	if d.autoSelected || !d.sel.OrganizationID().IsZero() {
		return nil
	}
	orgs, ok := d.Organizations.Data()
	if !ok || len(orgs) == 0 {
		return nil
	}
	d.autoSelected = true
	pick := orgs[0].ID
	if _, listed := d.organization(d.restoreOrg); listed {
		pick = d.restoreOrg
	} else {
		d.restoreProject = 0
	}
	d.restoreOrg = 0
	d.sel.SelectOrganization(pick)
	d.savePref(PrefLastOrganization, pick.String())
	return d.rebind()
}

func (d *Dashboard) restoreProjectSelection() []Load {
	id := d.restoreProject
	if id.IsZero() || !d.sel.ProjectID().IsZero() {
		return nil
	}
	d.restoreProject = 0
	p, ok := d.projectInList(id)
	if !ok {
		return nil
	}
	if err := d.sel.SelectProject(p); err != nil {
		return nil
	}
	return d.rebind()
}

// rebind points every binding at the requests the selection implies and
// returns loads for the ones whose request changed.
func (d *Dashboard) rebind() []Load {
	var loads []Load
	org, project, task := d.sel.OrganizationID(), d.sel.ProjectID(), d.sel.TaskID()

	loads = follow(d, loads, d.Projects, org, api.NewRequest(api.ListProjectsByOrganization, api.Vars{"organizationId": org}))
	loads = follow(d, loads, d.Statistics, org, api.NewRequest(api.GetProjectStatistics, api.Vars{"organizationId": org}))
	loads = follow(d, loads, d.Project, project, api.NewRequest(api.GetProject, api.Vars{"projectId": project}))
	loads = follow(d, loads, d.Tasks, project, api.NewRequest(api.ListTasksByProject, api.Vars{"projectId": project}))
	loads = follow(d, loads, d.Task, task, api.NewRequest(api.GetTask, api.Vars{"taskId": task}))
	d.activate()
	return loads
}

func follow[T any](d *Dashboard, loads []Load, b *state.Binding[T], id models.ID, req api.Request) []Load {
	if id.IsZero() {
		if b.Bound() {
			b.Unbind()
		}
		return loads
	}
	if b.Bound() && b.Request().Key() == req.Key() && (b.Loaded() || b.Loading()) {
		return loads
	}
	return bind(d, loads, b, req)
}

func bind[T any](d *Dashboard, loads []Load, b *state.Binding[T], req api.Request) []Load {
	t, ok := b.Bind(req)
	if !ok {
		return loads
	}
	return append(loads, Load{client: d.client, ticket: t, req: req})
}

func reload[T any](d *Dashboard, loads []Load, b *state.Binding[T], force bool) []Load {
	if b.Inert() {
		return loads
	}
	t, ok := b.Reload()
	if !ok {
		return loads
	}
	return append(loads, Load{client: d.client, ticket: t, req: b.Request(), force: force})
}

func retry[T any](d *Dashboard, loads []Load, b *state.Binding[T]) []Load {
	if !b.Bound() || b.Err() == nil || b.Missing() {
		return loads
	}
	return reload(d, loads, b, true)
}

// syncAll issues a load for every bound binding. With force the network
// is always used; otherwise fresh cache entries answer immediately.
func (d *Dashboard) syncAll(force bool) []Load {
	var loads []Load
	loads = reload(d, loads, d.Organizations, force)
	loads = reload(d, loads, d.Projects, force)
	loads = reload(d, loads, d.Statistics, force)
	loads = reload(d, loads, d.Project, force)
	loads = reload(d, loads, d.Tasks, force)
	loads = reload(d, loads, d.Task, force)
	return loads
}

func (d *Dashboard) activate() {
	var reqs []api.Request
	for _, r := range []struct {
		bound bool
		req   api.Request
	}{
		{d.Organizations.Bound(), d.Organizations.Request()},
		{d.Projects.Bound(), d.Projects.Request()},
		{d.Statistics.Bound(), d.Statistics.Request()},
		{d.Project.Bound(), d.Project.Request()},
		{d.Tasks.Bound(), d.Tasks.Request()},
		{d.Task.Bound(), d.Task.Request()},
	} {
		if r.bound {
			reqs = append(reqs, r.req)
		}
	}
	d.client.SetActive(reqs...)
}

func (d *Dashboard) organization(id models.ID) (models.Organization, bool) {
	if id.IsZero() {
		return models.Organization{}, false
	}
	orgs, _ := d.Organizations.Data()
	for _, o := range orgs {
		if o.ID == id {
			return o, true
		}
	}
	return models.Organization{}, false
}

func (d *Dashboard) projectInList(id models.ID) (models.Project, bool) {
	projects, _ := d.Projects.Data()
	for _, p := range projects {
		if p.ID == id {
			return p, true
		}
	}
	return models.Project{}, false
}

func (d *Dashboard) taskInList(id models.ID) (models.Task, bool) {
	tasks, _ := d.Tasks.Data()
	for _, t := range tasks {
		if t.ID == id {
			return t, true
		}
	}
	return models.Task{}, false
}

// knownTask looks in the detail view first, then the board.
func (d *Dashboard) knownTask(id models.ID) (models.Task, bool) {
	if t, ok := d.Task.Data(); ok && t.ID == id {
		return t, true
	}
	return d.taskInList(id)
}

func (d *Dashboard) pref(key string) string {
	if d.prefs == nil {
		return ""
	}
	v, err := d.prefs.GetSetting(key)
	if err != nil {
		log.Printf("dashboard: reading %s: %v", key, err)
		return ""
	}
	return v
}

func (d *Dashboard) prefID(key string) models.ID {
	v := d.pref(key)
	if v == "" {
		return 0
	}
	id, err := models.ParseID(v)
	if err != nil {
		log.Printf("dashboard: ignoring %s: %v", key, err)
		return 0
	}
	return id
}

func (d *Dashboard) savePref(key, value string) {
	if d.prefs == nil {
		return
	}
	if err := d.prefs.SetSetting(key, value); err != nil {
		log.Printf("dashboard: saving %s: %v", key, err)
	}
}
