// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package tui

import (
	"strings"
	"sync"
	"time"

	progressbar "github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/lipgloss"
	"github.com/matt-FFFFFF/deflake/internal/config"
	"github.com/matt-FFFFFF/deflake/internal/deflaker"
)

// RunStatus is the display state of a single run.
type RunStatus int

const (
	StatusPending RunStatus = iota
	StatusRunning
	StatusPassed
	StatusFailed
)

// String returns a string representation of the run status.
func (s RunStatus) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusRunning:
		return "running"
	case StatusPassed:
		return "passed"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// RunRow is one line of the run list.
type RunRow struct {
	Index     int
	Status    RunStatus
	Message   string
	StartTime time.Time
	Duration  time.Duration
}

// Model is the TUI application state.
type Model struct {
	command  string
	maxRuns  int
	poolSize int

	rows     []RunRow // Indexed by run index - 1
	running  int
	passed   int
	failed   int
	width    int
	height   int
	quitting bool

	completed bool
	result    *deflaker.Result
	err       error

	progress progressbar.Model
	spinner  spinner.Model
	viewport viewport.Model
	styles   *Styles
	mutex    sync.RWMutex
}

// Styles contains all the styling for the TUI.
type Styles struct {
	Title   lipgloss.Style
	Pending lipgloss.Style
	Running lipgloss.Style
	Passed  lipgloss.Style
	Failed  lipgloss.Style
	Detail  lipgloss.Style
	Help    lipgloss.Style
	Border  lipgloss.Style
}

// NewStyles creates the default styling for the TUI.
func NewStyles() *Styles {
	return &Styles{
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("12")),
		Pending: lipgloss.NewStyle().
			Foreground(lipgloss.Color("8")),
		Running: lipgloss.NewStyle().
			Foreground(lipgloss.Color("11")).
			Bold(true),
		Passed: lipgloss.NewStyle().
			Foreground(lipgloss.Color("10")),
		Failed: lipgloss.NewStyle().
			Foreground(lipgloss.Color("9")).
			Bold(true),
		Detail: lipgloss.NewStyle().
			Foreground(lipgloss.Color("7")).
			Italic(true),
		Help: lipgloss.NewStyle().
			Foreground(lipgloss.Color("8")),
		Border: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("8")),
	}
}

// NewModel creates a model for a session run with cfg.
func NewModel(cfg *config.Config) *Model {
	rows := make([]RunRow, cfg.MaxRuns)
	for i := range rows {
		rows[i].Index = i + 1
	}

	sp := spinner.New(spinner.WithSpinner(spinner.Dot))

	return &Model{
		command:  cfg.Command,
		maxRuns:  cfg.MaxRuns,
		poolSize: cfg.PoolSize,
		rows:     rows,
		progress: progressbar.New(progressbar.WithDefaultGradient()),
		spinner:  sp,
		viewport: viewport.New(defaultWidth, defaultViewportHeight),
		styles:   NewStyles(),
	}
}

// Counts returns the number of running, passed and failed runs.
func (m *Model) Counts() (running, passed, failed int) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	return m.running, m.passed, m.failed
}

// Row returns the row for the run with the given index.
func (m *Model) Row(index int) (RunRow, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	if index < 1 || index > len(m.rows) {
		return RunRow{}, false
	}

	return m.rows[index-1], true
}

// Completed reports whether the session has finished.
func (m *Model) Completed() bool {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	return m.completed
}

// firstLine returns the first line of s.
func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}

// lastLine returns the last non-empty line of s.
func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}
