package tui

import (
	"sort"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/JoseManuelPS/KuLo/internal/color"
	"github.com/JoseManuelPS/KuLo/internal/model"
	"github.com/JoseManuelPS/KuLo/internal/render"
)

const sidebarWidth = 32

// logLineMsg, warnMsg, and errorMsg carry lines pushed in from the
// concurrency core (a goroutine outside Bubble Tea's event loop) into the
// program's Update loop via (*tea.Program).Send.
type logLineMsg struct{ text string }
type warnMsg struct{ text string }
type errorMsg struct{ text string }

// Model is the interactive renderer: a Bubble Tea program with a
// fuzzy-filterable pod legend sidebar and a scrolling, searchable log
// pane. It implements render.Renderer so the manager can drive it exactly
// as it drives SnapshotRenderer (spec.md §4.7).
type Model struct {
	viewer  LogViewer
	sidebar FuzzyList

	program *tea.Program

	mu                sync.Mutex
	colors            *color.Assigner
	alignmentWidth    int
	singleNamespace   bool
	podContainerCount map[string]int
	colorLogs         bool

	width, height int
	sidebarFocus  bool
}

// NewModel constructs the interactive renderer and starts its Bubble Tea
// program in the background. colors must already be uninitialized or
// initialized with the run's pod set; podContainerCount drives the same
// smart-omission rule the snapshot renderer uses.
func NewModel(colors *color.Assigner, alignmentWidth int, singleNamespace bool, podContainerCount map[string]int, colorLogs bool) *Model {
	names := make([]string, 0, len(podContainerCount))
	for pod := range podContainerCount {
		names = append(names, pod)
	}
	sort.Strings(names)

	viewer := NewLogViewer()
	viewer.SetStreaming(true)

	sidebar := NewFuzzyList("Pods")
	sidebar.SetItems(names)

	m := &Model{
		viewer:            viewer,
		sidebar:           sidebar,
		colors:            colors,
		alignmentWidth:    alignmentWidth,
		singleNamespace:   singleNamespace,
		podContainerCount: podContainerCount,
		colorLogs:         colorLogs,
	}

	m.program = tea.NewProgram(m, tea.WithAltScreen())
	go func() {
		_, _ = m.program.Run()
	}()

	return m
}

// EnsureAlignment grows the prefix alignment width for a rotated
// container, mirroring SnapshotRenderer.EnsureAlignment (spec.md §4.6).
func (m *Model) EnsureAlignment(width int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if width > m.alignmentWidth {
		m.alignmentWidth = width
	}
}

// Render formats entry exactly as SnapshotRenderer does and feeds the
// styled line into the running program.
func (m *Model) Render(entry model.LogEntry) {
	m.mu.Lock()
	width := m.alignmentWidth
	noColor := !m.colorLogs
	m.mu.Unlock()

	line := render.FormatEntry(entry, m.colors, width, m.singleNamespace, m.podContainerCount, noColor)
	m.program.Send(logLineMsg{text: line})
}

// Warn feeds a warning line into the log pane.
func (m *Model) Warn(text string) {
	m.program.Send(warnMsg{text: text})
}

// Error feeds an error line into the log pane.
func (m *Model) Error(text string) {
	m.program.Send(errorMsg{text: text})
}

// Init satisfies tea.Model.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update satisfies tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.viewer.SetSize(msg.Width-sidebarWidth, msg.Height)
		return m, nil

	case logLineMsg:
		m.viewer.AppendLog(msg.text)
		return m, nil

	case warnMsg:
		m.viewer.AppendLog(WarningStyle.Render("[WARN] ") + msg.text)
		return m, nil

	case errorMsg:
		m.viewer.AppendLog(RenderError(msg.text))
		return m, nil

	case tea.KeyMsg:
		if !m.viewer.IsFocused() && !m.sidebar.textInput.Focused() {
			switch msg.String() {
			case "ctrl+c", "q":
				return m, tea.Quit
			case "tab":
				m.sidebarFocus = !m.sidebarFocus
				if m.sidebarFocus {
					m.sidebar.Focus()
				} else {
					m.sidebar.Blur()
				}
				return m, nil
			}
		}

		if m.sidebarFocus {
			switch msg.String() {
			case "esc":
				m.sidebarFocus = false
				m.sidebar.Blur()
				return m, nil
			case "enter":
				if pod := m.sidebar.GetSelected(); pod != "" {
					m.viewer.SetSearchQuery(pod)
				}
				m.sidebarFocus = false
				m.sidebar.Blur()
				return m, nil
			}
			var cmd tea.Cmd
			m.sidebar, cmd = m.sidebar.Update(msg)
			return m, cmd
		}

		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.viewer, cmd = m.viewer.Update(msg)
	return m, cmd
}

// View satisfies tea.Model.
func (m *Model) View() string {
	sidebarStyle := lipgloss.NewStyle().Width(sidebarWidth).MaxWidth(sidebarWidth)
	help := HelpStyle.Render("tab: pods • /: search • q: quit")

	return lipgloss.JoinHorizontal(lipgloss.Top,
		sidebarStyle.Render(m.sidebar.View()),
		lipgloss.JoinVertical(lipgloss.Left, m.viewer.View(), help),
	)
}
