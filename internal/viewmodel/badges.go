package viewmodel

import (
	"strings"

	"github.com/tgienger/taskhq/internal/models"
)

// Tone is a semantic colour; the theme decides what it looks like.
type Tone int

const (
	ToneNeutral Tone = iota
	ToneInfo
	ToneSuccess
	ToneWarning
)

// Badge is a status label and its tone.
type Badge struct {
	Label string
	Tone  Tone
}

// ProjectBadge maps a project status. Values outside the closed set get a
// neutral badge showing the raw value.
func ProjectBadge(s models.ProjectStatus) Badge {
	switch s {
	case models.ProjectActive:
		return Badge{Label: "Active", Tone: ToneInfo}
	case models.ProjectCompleted:
		return Badge{Label: "Completed", Tone: ToneSuccess}
	case models.ProjectOnHold:
		return Badge{Label: "On Hold", Tone: ToneWarning}
	}
	return Badge{Label: fallbackLabel(string(s)), Tone: ToneNeutral}
}

// TaskBadge maps a task status.
func TaskBadge(s models.TaskStatus) Badge {
	switch s {
	case models.TaskTodo:
		return Badge{Label: "To Do", Tone: ToneWarning}
	case models.TaskInProgress:
		return Badge{Label: "In Progress", Tone: ToneInfo}
	case models.TaskDone:
		return Badge{Label: "Done", Tone: ToneSuccess}
	}
	return Badge{Label: fallbackLabel(string(s)), Tone: ToneNeutral}
}

func fallbackLabel(raw string) string {
	raw = strings.TrimSpace(strings.ReplaceAll(raw, "_", " "))
	if raw == "" {
		return "Unknown"
	}
	return raw
}
