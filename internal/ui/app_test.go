package ui

import (
	"context"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tgienger/taskhq/internal/api"
	"github.com/tgienger/taskhq/internal/dashboard"
	"github.com/tgienger/taskhq/internal/models"
	"github.com/tgienger/taskhq/internal/testutil"
)

type fixture struct {
	t       *testing.T
	backend *testutil.FakeBackend
	app     *App
	project models.ID
	task    models.ID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{t: t, backend: testutil.NewFakeBackend()}
	org := f.backend.AddOrganization("Acme", "ops@acme.test")
	f.project = f.backend.AddProject(org.ID, "Website", models.ProjectActive)
	f.task = f.backend.AddTask(f.project, "Draft copy", models.TaskTodo)
	f.backend.AddTask(f.project, "Ship", models.TaskDone)

	endpoint, backendURL := f.backend.Start(t)
	client := api.NewClient(api.NewHTTPTransport(endpoint, backendURL, 5*time.Second))
	f.app = NewApp(context.Background(), dashboard.New(client, nil))
	f.app.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	f.drain(f.app.Init())
	return f
}

// drain executes commands synchronously and feeds their messages back
// until nothing is left.
func (f *fixture) drain(cmd tea.Cmd) {
	f.t.Helper()
	queue := []tea.Cmd{cmd}
	for i := 0; len(queue) > 0; i++ {
		require.Less(f.t, i, 200, "commands never settled")
		c := queue[0]
		queue = queue[1:]
		if c == nil {
			continue
		}
		switch msg := c().(type) {
		case tea.BatchMsg:
			queue = append(queue, msg...)
		case tea.QuitMsg:
			return
		default:
			_, next := f.app.Update(msg)
			queue = append(queue, next)
		}
	}
}

func (f *fixture) press(k tea.KeyMsg) {
	f.t.Helper()
	_, cmd := f.app.Update(k)
	f.drain(cmd)
}

func (f *fixture) key(s string) {
	f.t.Helper()
	f.press(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)})
}

// typeText sends runes to the open form. Input commands only blink the
// cursor, so they are dropped.
func (f *fixture) typeText(s string) {
	for _, r := range s {
		f.app.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
}

func TestStartsOnFirstOrganization(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, dashboard.ScreenProjects, f.app.dash.Screen())
	view := f.app.View()
	assert.Contains(t, view, "Website")
	assert.Contains(t, view, "Acme")
	assert.Contains(t, view, "1/2 tasks")
}

func TestNavigateToTaskAndBack(t *testing.T) {
	f := newFixture(t)

	f.press(tea.KeyMsg{Type: tea.KeyEnter})
	require.Equal(t, dashboard.ScreenTasks, f.app.dash.Screen())
	assert.Contains(t, f.app.View(), "Draft copy")
	assert.Contains(t, f.app.View(), "To Do (1)")

	f.press(tea.KeyMsg{Type: tea.KeyEnter})
	require.Equal(t, dashboard.ScreenTask, f.app.dash.Screen())
	assert.Equal(t, f.task, f.app.dash.Selection().TaskID())
	assert.Contains(t, f.app.View(), "No comments yet")

	f.press(tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, dashboard.ScreenTasks, f.app.dash.Screen())
	f.press(tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, dashboard.ScreenProjects, f.app.dash.Screen())
}

func TestStatusKeyMovesTaskToNextLane(t *testing.T) {
	f := newFixture(t)
	f.press(tea.KeyMsg{Type: tea.KeyEnter})

	f.key("s")
	assert.Equal(t, 1, f.backend.Calls("UpdateTask"))
	assert.Contains(t, f.app.View(), "In Progress (1)")
	assert.False(t, f.app.dash.StatusPending(f.task))

	id, ok := f.app.board.Highlighted()
	require.True(t, ok)
	assert.Equal(t, f.task, id, "cursor follows the task to its new lane")
}

func TestBlankFormShowsErrorsWithoutRequest(t *testing.T) {
	f := newFixture(t)

	f.key("n")
	require.NotNil(t, f.app.form)
	assert.Contains(t, f.app.View(), "New Project")

	f.press(tea.KeyMsg{Type: tea.KeyCtrlS})
	assert.Contains(t, f.app.View(), "Name is required")
	assert.Zero(t, f.backend.Calls("CreateProject"))

	f.press(tea.KeyMsg{Type: tea.KeyEsc})
	assert.Nil(t, f.app.form)
}

func TestCreateProjectThroughForm(t *testing.T) {
	f := newFixture(t)

	f.key("n")
	f.typeText("Launch")
	f.press(tea.KeyMsg{Type: tea.KeyCtrlS})

	assert.Equal(t, 1, f.backend.Calls("CreateProject"))
	assert.Nil(t, f.app.form, "modal closes on success")
	assert.Contains(t, f.app.View(), "Launch")
}

func TestServerRejectionKeepsFormOpen(t *testing.T) {
	f := newFixture(t)

	f.key("n")
	f.typeText("Website")
	f.press(tea.KeyMsg{Type: tea.KeyCtrlS})

	require.NotNil(t, f.app.form)
	assert.Equal(t, "Website", f.app.form.Form().Value("name"))
	assert.Contains(t, f.app.View(), "already exists")
}

func TestCommentOnTask(t *testing.T) {
	f := newFixture(t)
	f.press(tea.KeyMsg{Type: tea.KeyEnter})
	f.press(tea.KeyMsg{Type: tea.KeyEnter})

	f.key("c")
	require.NotNil(t, f.app.form)
	f.typeText("Looks good")
	f.press(tea.KeyMsg{Type: tea.KeyTab})
	f.typeText("me@acme.test")
	f.press(tea.KeyMsg{Type: tea.KeyCtrlS})

	assert.Nil(t, f.app.form)
	assert.Equal(t, "me@acme.test", f.app.dash.Author())
	view := f.app.View()
	assert.Contains(t, view, "Looks good")
	assert.Contains(t, view, "1 comment")
}

func TestFailedLoadOffersRetry(t *testing.T) {
	f := newFixture(t)
	f.backend.SetDown("ListTasksByProject", true)

	f.press(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Contains(t, f.app.View(), "Press r to retry")

	f.backend.SetDown("ListTasksByProject", false)
	f.key("r")
	assert.Contains(t, f.app.View(), "Draft copy")
	assert.NotContains(t, f.app.View(), "Press r to retry")
}

func TestDeletedTaskIsClearable(t *testing.T) {
	f := newFixture(t)
	f.press(tea.KeyMsg{Type: tea.KeyEnter})
	f.backend.DeleteTask(f.task)
	f.press(tea.KeyMsg{Type: tea.KeyEnter})

	require.True(t, f.app.dash.Task.Missing())
	assert.Contains(t, f.app.View(), "no longer exists")

	f.key("x")
	assert.Equal(t, dashboard.ScreenTasks, f.app.dash.Screen())
}

func TestQuit(t *testing.T) {
	f := newFixture(t)
	_, cmd := f.app.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}
