package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"shellpure/internal/driver"
)

const maxVisibleItems = 15

// stageWeight is the share of a file's work done when a stage starts.
var stageWeight = map[driver.Stage]float64{
	driver.StageLoad:   0.05,
	driver.StageParse:  0.1,
	driver.StageLint:   0.3,
	driver.StagePurify: 0.6,
	driver.StageVerify: 0.85,
}

var stageVerb = map[driver.Stage]string{
	driver.StageLoad:   "loading",
	driver.StageParse:  "parsing",
	driver.StageLint:   "linting",
	driver.StagePurify: "purifying",
	driver.StageVerify: "verifying",
}

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("7"))
	doneStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	workingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	idleStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("7"))
	mutedStyle   = lipgloss.NewStyle().Faint(true)
)

type progressModel struct {
	title   string
	events  <-chan driver.Event
	spinner spinner.Model
	bar     progress.Model
	files   []fileState
	index   map[string]int
	ended   int
	failed  int
	width   int
	done    bool
}

type fileState struct {
	path    string
	status  driver.Status
	stage   driver.Stage
	elapsed time.Duration
}

// label is what the status column shows for the file.
func (f fileState) label() string {
	if f.status == driver.StatusWorking {
		return stageVerb[f.stage]
	}
	return string(f.status)
}

func (f fileState) finished() bool {
	return f.status == driver.StatusDone || f.status == driver.StatusError
}

type eventMsg driver.Event
type doneMsg struct{}

// NewProgressModel returns a Bubble Tea model that renders batch progress.
// The model quits when events is closed.
func NewProgressModel(title string, files []string, events <-chan driver.Event) tea.Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = workingStyle

	bar := progress.New(progress.WithDefaultGradient())
	bar.Width = 76

	states := make([]fileState, len(files))
	index := make(map[string]int, len(files))
	for i, file := range files {
		states[i] = fileState{path: file, status: driver.StatusQueued}
		index[file] = i
	}
	return &progressModel{
		title:   title,
		events:  events,
		spinner: sp,
		bar:     bar,
		files:   states,
		index:   index,
		width:   80,
	}
}

func (m *progressModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.listenForEvent())
}

func (m *progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case eventMsg:
		return m, tea.Batch(m.applyEvent(driver.Event(msg)), m.listenForEvent())
	case doneMsg:
		m.done = true
		return m, tea.Quit
	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.WindowSizeMsg:
		if msg.Width > 0 {
			m.width = msg.Width
			m.bar.Width = msg.Width - 4
		}
		return m, nil
	case progress.FrameMsg:
		bar, cmd := m.bar.Update(msg)
		m.bar = bar.(progress.Model)
		return m, cmd
	}
	return m, nil
}

func (m *progressModel) View() string {
	if len(m.files) == 0 {
		return ""
	}
	header := fmt.Sprintf("%s %d/%d", m.title, m.ended, len(m.files))
	if m.failed > 0 {
		header += fmt.Sprintf(", %d with errors", m.failed)
	}
	if m.done {
		header = "done: " + header
	} else {
		header = m.spinner.View() + " " + header
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(header))
	b.WriteString("\n\n")

	nameWidth := max(m.width-16-12, 20)
	shown, hidden := m.visibleItems()
	for _, f := range shown {
		status := statusStyle(f).Render(fmt.Sprintf("%12s", f.label()))
		line := "  " + status + " " + truncate(f.path, nameWidth)
		if f.finished() && f.elapsed > 0 {
			line += mutedStyle.Render(fmt.Sprintf("  %s", f.elapsed.Round(time.Millisecond)))
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	if hidden > 0 {
		fmt.Fprintf(&b, "  %12s ... %d more (%d/%d finished)\n", "", hidden, m.finished(), len(m.files))
	}

	b.WriteByte('\n')
	if m.done {
		b.WriteString(m.bar.ViewAs(1.0))
	} else {
		b.WriteString(m.bar.View())
	}
	b.WriteByte('\n')
	return b.String()
}

// visibleItems lists everything for small batches. Larger ones show the
// files in progress and the failed ones, up to maxVisibleItems.
func (m *progressModel) visibleItems() (visible []fileState, hidden int) {
	if len(m.files) <= maxVisibleItems {
		return m.files, 0
	}
	for _, f := range m.files {
		if f.status == driver.StatusQueued || f.status == driver.StatusDone {
			continue
		}
		if len(visible) == maxVisibleItems {
			break
		}
		visible = append(visible, f)
	}
	return visible, len(m.files) - len(visible)
}

func (m *progressModel) finished() int {
	return m.ended
}

func (m *progressModel) listenForEvent() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-m.events
		if !ok {
			return doneMsg{}
		}
		return eventMsg(ev)
	}
}

// applyEvent updates one file; a file finishes once, later events for it
// are ignored.
func (m *progressModel) applyEvent(ev driver.Event) tea.Cmd {
	idx, ok := m.index[ev.File]
	if !ok || ev.Status == "" {
		return nil
	}
	f := &m.files[idx]
	if f.finished() {
		return nil
	}
	f.status = ev.Status
	if ev.Stage != "" {
		f.stage = ev.Stage
	}
	if f.finished() {
		f.elapsed = ev.Elapsed
		m.ended++
		if f.status == driver.StatusError {
			m.failed++
		}
	}
	return m.bar.SetPercent(m.percent())
}

func (m *progressModel) percent() float64 {
	var total float64
	for _, f := range m.files {
		switch {
		case f.finished():
			total++
		case f.status == driver.StatusWorking:
			total += stageWeight[f.stage]
		}
	}
	return total / float64(len(m.files))
}

func statusStyle(f fileState) lipgloss.Style {
	switch f.status {
	case driver.StatusDone:
		return doneStyle
	case driver.StatusError:
		return errorStyle
	case driver.StatusWorking:
		return workingStyle
	}
	return idleStyle
}

func truncate(value string, width int) string {
	if width <= 0 || runewidth.StringWidth(value) <= width {
		return value
	}
	if width <= 3 {
		return runewidth.Truncate(value, width, "")
	}
	return runewidth.Truncate(value, width-3, "...")
}
