package dashboard

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tgienger/taskhq/internal/api"
	"github.com/tgienger/taskhq/internal/forms"
	"github.com/tgienger/taskhq/internal/models"
	"github.com/tgienger/taskhq/internal/state"
	"github.com/tgienger/taskhq/internal/testutil"
	"github.com/tgienger/taskhq/internal/viewmodel"
)

type memPrefs struct {
	mu sync.Mutex
	m  map[string]string
}

func newMemPrefs() *memPrefs { return &memPrefs{m: map[string]string{}} }

func (p *memPrefs) GetSetting(key string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.m[key], nil
}

func (p *memPrefs) SetSetting(key, value string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.m[key] = value
	return nil
}

type harness struct {
	t       *testing.T
	backend *testutil.FakeBackend
	prefs   *memPrefs
	dash    *Dashboard
}

func newHarness(t *testing.T, seed func(b *testutil.FakeBackend)) *harness {
	t.Helper()
	backend := testutil.NewFakeBackend()
	if seed != nil {
		seed(backend)
	}
	endpoint, backendURL := backend.Start(t)
	client := api.NewClient(api.NewHTTPTransport(endpoint, backendURL, 5*time.Second))
	prefs := newMemPrefs()
	return &harness{t: t, backend: backend, prefs: prefs, dash: New(client, prefs)}
}

// drain runs loads one by one, applying each result and queueing follow-ups.
func (h *harness) drain(loads []Load) {
	h.t.Helper()
	for i := 0; len(loads) > 0; i++ {
		require.Less(h.t, i, 100, "loads never settled")
		l := loads[0]
		loads = append(loads[1:], h.dash.Apply(l.Run(context.Background()))...)
	}
}

func (h *harness) must(loads []Load, err error) []Load {
	h.t.Helper()
	require.NoError(h.t, err)
	return loads
}

func (h *harness) start() { h.drain(h.dash.Start()) }

func taskIDs(col viewmodel.Column) []models.ID {
	var ids []models.ID
	for _, c := range col.Tasks {
		ids = append(ids, c.ID)
	}
	return ids
}

func TestScenarioSingleOrganizationIsAutoSelected(t *testing.T) {
	h := newHarness(t, func(b *testutil.FakeBackend) {
		b.AddOrganization("Acme", "ops@acme.test")
	})
	h.start()

	sel := h.dash.Selection()
	assert.Equal(t, models.ID(1), sel.OrganizationID())
	assert.True(t, sel.ProjectID().IsZero())
	assert.True(t, sel.TaskID().IsZero())
	assert.Equal(t, ScreenProjects, h.dash.Screen())
	assert.True(t, h.dash.Projects.Loaded())
	assert.True(t, h.dash.Statistics.Loaded())
	assert.Equal(t, "1", h.prefs.m[PrefLastOrganization])
}

func TestScenarioCreateProjectRefetchesProjectList(t *testing.T) {
	h := newHarness(t, func(b *testutil.FakeBackend) {
		b.AddOrganization("Acme", "ops@acme.test")
	})
	h.start()
	listCalls := h.backend.Calls("ListProjectsByOrganization")

	require.NoError(t, h.dash.NewProject())
	assert.IsType(t, state.CreatingProject{}, h.dash.Modal())
	h.dash.Form().Set("name", "Launch")
	h.drain(h.must(h.dash.Submit()))

	assert.Equal(t, 1, h.backend.Calls("CreateProject"))
	assert.Equal(t, listCalls+1, h.backend.Calls("ListProjectsByOrganization"))
	assert.False(t, state.IsOpen(h.dash.Modal()))
	assert.Nil(t, h.dash.Form())

	projects, ok := h.dash.Projects.Data()
	require.True(t, ok)
	require.Len(t, projects, 1)
	assert.Equal(t, "Launch", projects[0].Name)
	assert.Equal(t, models.ProjectActive, projects[0].Status)
	assert.Equal(t, 1, h.dash.Statistics.Value().TotalProjects)
	assert.True(t, h.dash.Selection().ProjectID().IsZero(), "creating does not select")
}

func TestScenarioBlankProjectNameNeverReachesTheServer(t *testing.T) {
	h := newHarness(t, func(b *testutil.FakeBackend) {
		b.AddOrganization("Acme", "ops@acme.test")
	})
	h.start()

	require.NoError(t, h.dash.NewProject())
	h.dash.Form().Set("name", "")
	h.dash.Form().Set("status", "active")
	loads, err := h.dash.Submit()
	assert.ErrorIs(t, err, forms.ErrInvalid)
	assert.Empty(t, loads)

	assert.Equal(t, 0, h.backend.Calls("CreateProject"))
	assert.True(t, state.IsOpen(h.dash.Modal()))
	assert.Contains(t, h.dash.Form().Errors(), "Name is required")
}

func TestScenarioQuickStatusMovesTaskOnTheBoard(t *testing.T) {
	var projectID, taskID models.ID
	h := newHarness(t, func(b *testutil.FakeBackend) {
		org := b.AddOrganization("Acme", "ops@acme.test")
		projectID = b.AddProject(org.ID, "Website", models.ProjectActive)
		taskID = b.AddTask(projectID, "Draft copy", models.TaskTodo)
	})
	h.start()
	h.drain(h.must(h.dash.SelectProject(projectID)))
	h.drain(h.must(h.dash.SelectTask(taskID)))

	todo, _ := viewmodel.TaskBoard(h.dash.Tasks.Value()).Column(models.TaskTodo)
	require.Equal(t, []models.ID{taskID}, taskIDs(todo))
	detailCalls := h.backend.Calls("GetTask")
	listCalls := h.backend.Calls("ListTasksByProject")

	loads := h.must(h.dash.SetTaskStatus(taskID, models.TaskInProgress))
	assert.True(t, h.dash.StatusPending(taskID))
	h.drain(loads)
	assert.False(t, h.dash.StatusPending(taskID))

	assert.Equal(t, detailCalls+1, h.backend.Calls("GetTask"))
	assert.Equal(t, listCalls+1, h.backend.Calls("ListTasksByProject"))
	assert.Equal(t, 0, h.backend.Calls("UpdateProject"))

	board := viewmodel.TaskBoard(h.dash.Tasks.Value())
	todo, _ = board.Column(models.TaskTodo)
	inProgress, _ := board.Column(models.TaskInProgress)
	assert.Empty(t, todo.Tasks)
	assert.Equal(t, []models.ID{taskID}, taskIDs(inProgress))
	assert.Equal(t, models.TaskInProgress, h.dash.Task.Value().Status)
}

func TestScenarioServerValidationKeepsFormOpen(t *testing.T) {
	h := newHarness(t, func(b *testutil.FakeBackend) {
		org := b.AddOrganization("Acme", "ops@acme.test")
		b.AddProject(org.ID, "Launch", models.ProjectActive)
	})
	h.start()

	require.NoError(t, h.dash.NewProject())
	f := h.dash.Form()
	f.Set("name", "Launch")
	f.Set("description", "second try")
	h.drain(h.must(h.dash.Submit()))

	assert.Equal(t, 1, h.backend.Calls("CreateProject"))
	require.Same(t, f, h.dash.Form())
	assert.IsType(t, state.CreatingProject{}, h.dash.Modal())
	assert.Equal(t, []string{"name already exists"}, f.Errors())
	assert.Equal(t, "Launch", f.Value("name"))
	assert.Equal(t, "second try", f.Value("description"))
	assert.False(t, f.Pending())
}

func TestScenarioMissingTaskOffersToClearSelection(t *testing.T) {
	var projectID, taskID models.ID
	h := newHarness(t, func(b *testutil.FakeBackend) {
		org := b.AddOrganization("Acme", "ops@acme.test")
		projectID = b.AddProject(org.ID, "Website", models.ProjectActive)
		taskID = b.AddTask(projectID, "Gone soon", models.TaskTodo)
	})
	h.start()
	h.drain(h.must(h.dash.SelectProject(projectID)))

	loads := h.must(h.dash.SelectTask(taskID))
	h.backend.DeleteTask(taskID)
	h.drain(loads)

	assert.True(t, h.dash.Task.Missing())
	assert.False(t, h.dash.Task.Loaded())
	assert.True(t, api.IsNotFound(h.dash.Task.Err()))
	assert.True(t, h.dash.Project.Loaded(), "the project header is unaffected")

	h.drain(h.dash.ClearStale())
	assert.True(t, h.dash.Selection().TaskID().IsZero())
	assert.Equal(t, projectID, h.dash.Selection().ProjectID())
	assert.Equal(t, ScreenTasks, h.dash.Screen())
	assert.False(t, h.dash.Task.Bound())
}

func TestNoOrganizationsMeansNoDependentRequests(t *testing.T) {
	h := newHarness(t, nil)
	h.start()

	assert.True(t, h.dash.Organizations.Loaded())
	assert.True(t, h.dash.Projects.Inert())
	assert.Equal(t, 0, h.backend.Calls("ListProjectsByOrganization"))
	assert.Equal(t, 0, h.backend.Calls("GetProjectStatistics"))
	assert.Equal(t, ScreenOrganizations, h.dash.Screen())
}

func TestLastSelectionWinsWhenResultsArriveOutOfOrder(t *testing.T) {
	var first, second models.ID
	h := newHarness(t, func(b *testutil.FakeBackend) {
		org := b.AddOrganization("Acme", "ops@acme.test")
		first = b.AddProject(org.ID, "First", models.ProjectActive)
		second = b.AddProject(org.ID, "Second", models.ProjectActive)
		b.AddTask(first, "from first", models.TaskTodo)
		b.AddTask(second, "from second", models.TaskTodo)
	})
	h.start()

	stale := h.must(h.dash.SelectProject(first))
	h.dash.Back()
	fresh := h.must(h.dash.SelectProject(second))

	h.drain(fresh)
	h.drain(stale)

	assert.Equal(t, second, h.dash.Selection().ProjectID())
	tasks := h.dash.Tasks.Value()
	require.Len(t, tasks, 1)
	assert.Equal(t, "from second", tasks[0].Title)
	assert.Equal(t, "Second", h.dash.Project.Value().Name)
}

func TestLeavingAViewDiscardsItsInFlightResult(t *testing.T) {
	var projectID models.ID
	h := newHarness(t, func(b *testutil.FakeBackend) {
		org := b.AddOrganization("Acme", "ops@acme.test")
		projectID = b.AddProject(org.ID, "Website", models.ProjectActive)
		b.AddTask(projectID, "t", models.TaskTodo)
	})
	h.start()

	loads := h.must(h.dash.SelectProject(projectID))
	h.drain(h.dash.Back())
	h.drain(loads)

	assert.True(t, h.dash.Selection().ProjectID().IsZero())
	assert.False(t, h.dash.Tasks.Bound())
	assert.False(t, h.dash.Tasks.Loaded())
	assert.False(t, h.dash.Project.Loaded())
}

func TestFailedListKeepsSiblingsAndCanBeRetried(t *testing.T) {
	var projectID models.ID
	h := newHarness(t, func(b *testutil.FakeBackend) {
		org := b.AddOrganization("Acme", "ops@acme.test")
		projectID = b.AddProject(org.ID, "Website", models.ProjectActive)
		b.AddTask(projectID, "t", models.TaskTodo)
	})
	h.start()
	h.backend.SetDown("ListTasksByProject", true)
	h.drain(h.must(h.dash.SelectProject(projectID)))

	require.Error(t, h.dash.Tasks.Err())
	assert.True(t, api.IsNetwork(h.dash.Tasks.Err()))
	assert.False(t, h.dash.Tasks.Loading())
	assert.True(t, h.dash.Project.Loaded())
	assert.True(t, h.dash.Projects.Loaded())

	h.backend.SetDown("ListTasksByProject", false)
	loads := h.dash.Retry()
	require.Len(t, loads, 1, "only the failed view is retried")
	h.drain(loads)
	assert.NoError(t, h.dash.Tasks.Err())
	assert.Len(t, h.dash.Tasks.Value(), 1)
}

func TestRememberedSelectionIsRestoredWhenStillValid(t *testing.T) {
	var projectID models.ID
	h := newHarness(t, func(b *testutil.FakeBackend) {
		b.AddOrganization("Acme", "ops@acme.test")
		globex := b.AddOrganization("Globex", "hq@globex.test")
		projectID = b.AddProject(globex.ID, "Merger", models.ProjectOnHold)
	})
	h.prefs.m[PrefLastOrganization] = "2"
	h.prefs.m[PrefLastProject] = projectID.String()
	h.prefs.m[PrefCommentAuthor] = "me@acme.test"
	h.start()

	assert.Equal(t, models.ID(2), h.dash.Selection().OrganizationID())
	assert.Equal(t, projectID, h.dash.Selection().ProjectID())
	assert.Equal(t, ScreenTasks, h.dash.Screen())
	assert.Equal(t, "me@acme.test", h.dash.Author())
}

func TestRememberedOrganizationThatVanishedFallsBackToFirst(t *testing.T) {
	h := newHarness(t, func(b *testutil.FakeBackend) {
		b.AddOrganization("Acme", "ops@acme.test")
	})
	h.prefs.m[PrefLastOrganization] = "42"
	h.prefs.m[PrefLastProject] = "43"
	h.start()

	assert.Equal(t, models.ID(1), h.dash.Selection().OrganizationID())
	assert.True(t, h.dash.Selection().ProjectID().IsZero())
}

func TestSelectingUnknownEntitiesFails(t *testing.T) {
	h := newHarness(t, func(b *testutil.FakeBackend) {
		b.AddOrganization("Acme", "ops@acme.test")
	})
	h.start()

	_, err := h.dash.SelectOrganization(99)
	assert.ErrorIs(t, err, ErrUnknownEntity)
	_, err = h.dash.SelectProject(99)
	assert.ErrorIs(t, err, ErrUnknownEntity)
	_, err = h.dash.SelectTask(99)
	assert.ErrorIs(t, err, ErrUnknownEntity)
	assert.Equal(t, models.ID(1), h.dash.Selection().OrganizationID())
}

func TestReselectingOrganizationClearsProjectAndTask(t *testing.T) {
	var projectID, taskID models.ID
	h := newHarness(t, func(b *testutil.FakeBackend) {
		org := b.AddOrganization("Acme", "ops@acme.test")
		projectID = b.AddProject(org.ID, "Website", models.ProjectActive)
		taskID = b.AddTask(projectID, "t", models.TaskTodo)
	})
	h.start()
	h.drain(h.must(h.dash.SelectProject(projectID)))
	h.drain(h.must(h.dash.SelectTask(taskID)))

	h.drain(h.must(h.dash.SelectOrganization(1)))
	sel := h.dash.Selection()
	assert.True(t, sel.ProjectID().IsZero())
	assert.True(t, sel.TaskID().IsZero())
	assert.False(t, h.dash.Tasks.Bound())
	assert.False(t, h.dash.Task.Bound())
	assert.Equal(t, "", h.prefs.m[PrefLastProject])
}

func TestQuickStatusRejectsConcurrentChange(t *testing.T) {
	var projectID, taskID models.ID
	h := newHarness(t, func(b *testutil.FakeBackend) {
		org := b.AddOrganization("Acme", "ops@acme.test")
		projectID = b.AddProject(org.ID, "Website", models.ProjectActive)
		taskID = b.AddTask(projectID, "t", models.TaskTodo)
	})
	h.start()
	h.drain(h.must(h.dash.SelectProject(projectID)))

	loads := h.must(h.dash.CycleTaskStatus(taskID))
	_, err := h.dash.CycleTaskStatus(taskID)
	assert.ErrorIs(t, err, forms.ErrSubmitPending)
	h.drain(loads)

	assert.Equal(t, 1, h.backend.Calls("UpdateTask"))
	assert.Equal(t, models.TaskInProgress, h.dash.Tasks.Value()[0].Status)
}

func TestCreatingOrganizationSelectsIt(t *testing.T) {
	h := newHarness(t, func(b *testutil.FakeBackend) {
		b.AddOrganization("Acme", "ops@acme.test")
	})
	h.start()

	require.NoError(t, h.dash.NewOrganization())
	h.dash.Form().Set("name", "Globex")
	h.dash.Form().Set("contact_email", "hq@globex.test")
	h.drain(h.must(h.dash.Submit()))

	assert.Equal(t, models.ID(2), h.dash.Selection().OrganizationID())
	assert.False(t, state.IsOpen(h.dash.Modal()))
	assert.Len(t, h.dash.Organizations.Value(), 2)
	assert.Equal(t, "2", h.prefs.m[PrefLastOrganization])
	assert.Equal(t, 2, h.backend.Calls("ListOrganizations"))
}

func TestDuplicateOrganizationShowsServerMessage(t *testing.T) {
	h := newHarness(t, func(b *testutil.FakeBackend) {
		b.AddOrganization("Acme", "ops@acme.test")
	})
	h.start()

	require.NoError(t, h.dash.NewOrganization())
	h.dash.Form().Set("name", "Acme")
	h.dash.Form().Set("contact_email", "other@acme.test")
	h.drain(h.must(h.dash.Submit()))

	require.NotNil(t, h.dash.Form())
	assert.Equal(t, []string{"name: Organization with this name already exists."}, h.dash.Form().Errors())
	assert.Equal(t, models.ID(1), h.dash.Selection().OrganizationID())
}

func TestAddingCommentRemembersAuthor(t *testing.T) {
	var projectID, taskID models.ID
	h := newHarness(t, func(b *testutil.FakeBackend) {
		org := b.AddOrganization("Acme", "ops@acme.test")
		projectID = b.AddProject(org.ID, "Website", models.ProjectActive)
		taskID = b.AddTask(projectID, "t", models.TaskTodo)
	})
	h.start()
	h.drain(h.must(h.dash.SelectProject(projectID)))
	h.drain(h.must(h.dash.SelectTask(taskID)))

	require.NoError(t, h.dash.AddComment())
	h.dash.Form().Set("content", "Looks good")
	h.dash.Form().Set("author_email", "rev@acme.test")
	h.drain(h.must(h.dash.Submit()))

	task := h.dash.Task.Value()
	require.Len(t, task.Comments, 1)
	assert.Equal(t, "Looks good", task.Comments[0].Content)
	assert.Equal(t, "rev@acme.test", h.prefs.m[PrefCommentAuthor])

	require.NoError(t, h.dash.AddComment())
	assert.Equal(t, "rev@acme.test", h.dash.Form().Value("author_email"))
}

func TestEditProjectKeepsSelection(t *testing.T) {
	var projectID models.ID
	h := newHarness(t, func(b *testutil.FakeBackend) {
		org := b.AddOrganization("Acme", "ops@acme.test")
		projectID = b.AddProject(org.ID, "Website", models.ProjectActive)
	})
	h.start()
	h.drain(h.must(h.dash.SelectProject(projectID)))

	require.NoError(t, h.dash.EditProject())
	assert.Equal(t, "Website", h.dash.Form().Value("name"))
	h.dash.Form().Cycle("status", 1)
	h.drain(h.must(h.dash.Submit()))

	assert.Equal(t, projectID, h.dash.Selection().ProjectID())
	assert.Equal(t, models.ProjectCompleted, h.dash.Project.Value().Status)
	assert.Equal(t, 1, h.dash.Statistics.Value().CompletedProjects)
}

func TestClosingModalDiscardsInput(t *testing.T) {
	h := newHarness(t, func(b *testutil.FakeBackend) {
		b.AddOrganization("Acme", "ops@acme.test")
	})
	h.start()

	require.NoError(t, h.dash.NewProject())
	h.dash.Form().Set("name", "draft")
	h.dash.CloseModal()
	require.NoError(t, h.dash.NewProject())
	assert.Empty(t, h.dash.Form().Value("name"))
}
