// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package tui

import (
	"fmt"
	"strings"
	"time"

	progressbar "github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/matt-FFFFFF/deflake/internal/deflaker"
	"github.com/matt-FFFFFF/deflake/internal/progress"
	"github.com/matt-FFFFFF/deflake/internal/scheduler"
)

const (
	defaultWidth          = 80
	defaultViewportHeight = 10
	reservedLines         = 9 // title, counters, progress bar, border and help
	minViewportHeight     = 3
	durationRounding      = 10 * time.Millisecond
	ellipsis              = "…"
)

// ProgressEventMsg wraps a progress event for the tea framework.
type ProgressEventMsg struct {
	Event progress.Event
}

// SessionCompletedMsg indicates that the session has finished.
type SessionCompletedMsg struct {
	Result *deflaker.Result
	Err    error
}

// Init implements bubbletea.Model.Init.
func (m *Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update implements bubbletea.Model.Update.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.mutex.Lock()
		m.width = msg.Width
		m.height = msg.Height
		m.updateSizes()
		m.mutex.Unlock()

		return m, nil

	case ProgressEventMsg:
		return m, m.processProgressEvent(msg.Event)

	case SessionCompletedMsg:
		return m, m.complete(msg.Result, msg.Err)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)

		return m, cmd

	case progressbar.FrameMsg:
		pm, cmd := m.progress.Update(msg)
		if p, ok := pm.(progressbar.Model); ok {
			m.progress = p
		}

		return m, cmd
	}

	return m, nil
}

func (m *Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.mutex.Lock()
		m.quitting = true
		m.mutex.Unlock()

		return m, tea.Quit
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)

	return m, cmd
}

func (m *Model) updateSizes() {
	m.viewport.Width = max(m.width-2, 1)
	m.viewport.Height = max(m.height-reservedLines, minViewportHeight)
	m.progress.Width = max(m.width-4, 10) //nolint:mnd
}

// processProgressEvent applies an event to the run rows and counters.
func (m *Model) processProgressEvent(event progress.Event) tea.Cmd {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if event.Index < 1 || event.Index > len(m.rows) {
		return nil
	}

	row := &m.rows[event.Index-1]

	switch event.Type {
	case progress.EventStarted:
		if row.Status == StatusPending {
			row.Status = StatusRunning
			row.StartTime = event.Timestamp
			m.running++
		}

		return nil

	case progress.EventPassed, progress.EventFailed:
		if row.Status == StatusRunning {
			m.running--
		}

		if row.Status == StatusPassed || row.Status == StatusFailed {
			return nil
		}

		row.Message = event.Message
		row.Duration = event.Data.Duration

		if event.Type == progress.EventPassed {
			row.Status = StatusPassed
			m.passed++
		} else {
			row.Status = StatusFailed
			m.failed++
		}

		return m.progress.SetPercent(m.percentLocked())
	}

	return nil
}

func (m *Model) complete(res *deflaker.Result, err error) tea.Cmd {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.completed = true
	m.result = res
	m.err = err
	m.running = 0

	if res != nil {
		// Events can be dropped under load; the result is authoritative.
		for _, o := range res.Outcomes {
			if o.Index < 1 || o.Index > len(m.rows) {
				continue
			}

			row := &m.rows[o.Index-1]
			row.Message = o.Message
			row.Duration = o.Duration
			row.Status = StatusFailed

			if o.Passed {
				row.Status = StatusPassed
			}
		}

		for i := range m.rows {
			if m.rows[i].Status == StatusRunning {
				m.rows[i].Status = StatusPending
			}
		}

		m.passed = res.Summary.Passed
		m.failed = res.Summary.Failed
	}

	return m.progress.SetPercent(m.percentLocked())
}

func (m *Model) percentLocked() float64 {
	if m.maxRuns == 0 {
		return 0
	}

	return float64(m.passed+m.failed) / float64(m.maxRuns)
}

// View implements bubbletea.Model.View.
func (m *Model) View() string {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.quitting {
		return "Shutting down...\n"
	}

	var content strings.Builder

	for _, row := range m.rows {
		if row.Status == StatusPending {
			continue
		}

		m.renderRow(&content, row)
	}

	m.viewport.SetContent(content.String())

	var view strings.Builder

	view.WriteString(m.styles.Title.Render("deflake " + truncate(m.command, max(m.width-10, 20)))) //nolint:mnd
	view.WriteString("\n")
	view.WriteString(m.renderCounters())
	view.WriteString("\n")
	view.WriteString(m.progress.View())
	view.WriteString("\n")
	view.WriteString(m.styles.Border.Render(m.viewport.View()))
	view.WriteString("\n")
	view.WriteString(m.renderFooter())

	return view.String()
}

func (m *Model) renderCounters() string {
	done := m.passed + m.failed
	counters := fmt.Sprintf("runs %d/%d  pool %d  ", done, m.maxRuns, m.poolSize)
	counters += m.styles.Passed.Render(fmt.Sprintf("passed %d", m.passed)) + "  "
	counters += m.styles.Failed.Render(fmt.Sprintf("failed %d", m.failed))

	if m.running > 0 && !m.completed {
		counters += "  " + m.spinner.View() + m.styles.Running.Render(fmt.Sprintf("running %d", m.running))
	}

	return counters
}

func (m *Model) renderRow(b *strings.Builder, row RunRow) {
	var status string

	switch row.Status {
	case StatusRunning:
		status = m.styles.Running.Render("RUN ")
	case StatusPassed:
		status = m.styles.Passed.Render("PASS")
	case StatusFailed:
		status = m.styles.Failed.Render("FAIL")
	default:
		status = m.styles.Pending.Render("----")
	}

	fmt.Fprintf(b, "%4d %s", row.Index, status)

	switch row.Status {
	case StatusRunning:
		if !row.StartTime.IsZero() {
			b.WriteString(m.styles.Detail.Render(fmt.Sprintf(" (%v)", time.Since(row.StartTime).Round(durationRounding))))
		}
	case StatusPassed, StatusFailed:
		b.WriteString(m.styles.Detail.Render(fmt.Sprintf(" (%v)", row.Duration.Round(durationRounding))))
	}

	if row.Status == StatusFailed {
		if _, detail, ok := strings.Cut(row.Message, "\n"); ok && strings.TrimSpace(detail) != "" {
			b.WriteString(" ")
			b.WriteString(m.styles.Failed.Render(truncate(lastLine(detail), max(m.viewport.Width-30, 20)))) //nolint:mnd
		}
	}

	b.WriteString("\n")
}

func (m *Model) renderFooter() string {
	if !m.completed {
		return m.styles.Help.Render("↑/↓ or j/k to scroll, 'q' to quit")
	}

	var status string

	switch {
	case m.result == nil:
		status = m.styles.Failed.Render("session did not run")
	case m.result.State == scheduler.StateCancelled:
		status = m.styles.Failed.Render("cancelled")
	case m.result.HasFailure():
		first, _ := m.result.FirstFailure()
		status = m.styles.Failed.Render(fmt.Sprintf("%s: %s", m.result.State, firstLine(first.Message)))
	default:
		status = m.styles.Passed.Render(fmt.Sprintf("%s: all %d runs passed", m.result.State, m.result.Summary.Total))
	}

	return status + "\n" + m.styles.Help.Render("'q' to quit and return to terminal")
}

func truncate(s string, width int) string {
	r := []rune(s)
	if len(r) <= width {
		return s
	}

	if width <= 1 {
		return string(r[:width])
	}

	return string(r[:width-1]) + ellipsis
}
