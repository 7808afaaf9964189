package views

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/tgienger/taskhq/internal/api"
	"github.com/tgienger/taskhq/internal/models"
	"github.com/tgienger/taskhq/internal/state"
	"github.com/tgienger/taskhq/internal/ui/styles"
)

// Messages the views send to the app.
type (
	OrganizationChosen struct{ ID models.ID }
	ProjectChosen      struct{ ID models.ID }
	TaskChosen         struct{ ID models.ID }
	TaskEditChosen     struct{ ID models.ID }
	StatusCycled       struct{ ID models.ID }
	FormSubmitted      struct{}
	FormCancelled      struct{}
)

// Status is the load state of one binding as a view sees it.
type Status struct {
	Loading bool
	Loaded  bool
	Missing bool
	Err     error
}

// StatusOf snapshots a binding.
func StatusOf[T any](b *state.Binding[T]) Status {
	return Status{Loading: b.Loading(), Loaded: b.Loaded(), Missing: b.Missing(), Err: b.Err()}
}

// clamp returns val clamped between minVal and maxVal
func clamp(val, minVal, maxVal int) int {
	if val < minVal {
		return minVal
	}
	if val > maxVal {
		return maxVal
	}
	return val
}

// helpLine renders "key desc • key desc" pairs.
func helpLine(s *styles.Styles, pairs ...string) string {
	var parts []string
	for i := 0; i+1 < len(pairs); i += 2 {
		parts = append(parts, s.HelpKey.Render(pairs[i])+" "+s.HelpDesc.Render(pairs[i+1]))
	}
	return s.Help.Render(strings.Join(parts, " • "))
}

// banner renders the load state above a view's content. It is empty once
// data has loaded cleanly.
func banner(s *styles.Styles, what string, st Status) string {
	switch {
	case st.Missing:
		return s.Error.Render(fmt.Sprintf("This %s no longer exists.", what)) + " " +
			s.TitleMuted.Render("Press x to clear it.")
	case st.Err != nil:
		return s.Error.Render(fmt.Sprintf("Could not load %s: %s", what, errorText(st.Err))) + " " +
			s.TitleMuted.Render("Press r to retry.")
	case st.Loading && !st.Loaded:
		return s.TitleMuted.Render("Loading " + what + "...")
	case st.Loading:
		return s.TitleMuted.Render("Refreshing...")
	}
	return ""
}

// errorText is the user-facing text of an error.
func errorText(err error) string {
	if api.IsNetwork(err) {
		return "the server could not be reached"
	}
	if msgs := api.ErrorMessages(err); len(msgs) > 0 {
		return strings.Join(msgs, "; ")
	}
	return err.Error()
}

// joinNonEmpty stacks the non-empty blocks.
func joinNonEmpty(blocks ...string) string {
	var out []string
	for _, b := range blocks {
		if b != "" {
			out = append(out, b)
		}
	}
	return lipgloss.JoinVertical(lipgloss.Left, out...)
}
