// Package ui is the terminal front end: a bubbletea program hosting a
// graphviewport.Component that draws into a term.Screen.
package ui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/recera/voyager/pkg/components/graphviewport"
	"github.com/recera/voyager/pkg/graph"
	"github.com/recera/voyager/pkg/viewport/term"
)

// footerHeight is the number of lines below the screen
const footerHeight = 2

// taskMsg carries work posted through the component's Dispatcher
type taskMsg func()

// mountMsg mounts the component once the program is running
type mountMsg struct{}

// GraphMsg replaces the shown graph, e.g. after the schema file changed
type GraphMsg struct {
	Graph *graph.TypeGraph
}

// Config holds what the model shows
type Config struct {
	Context  context.Context
	Producer graphviewport.Producer
	Graph    *graph.TypeGraph
	Options  *graph.DisplayOptions
}

// Model is the bubbletea model. The component runs on the program's
// goroutine: render results come back as taskMsg.
type Model struct {
	comp   *graphviewport.Component
	screen *term.Screen
	props  graphviewport.Props
	send   func(tea.Msg)

	spinner  spinner.Model
	help     help.Model
	keys     KeyMap
	width    int
	height   int
	err      error
	quitting bool
}

// NewModel creates the model. Bind must be called before the program runs.
func NewModel(cfg Config) *Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = spinnerStyle

	m := &Model{
		screen:  term.NewScreen(80, 24-footerHeight),
		spinner: s,
		help:    help.New(),
		keys:    DefaultKeyMap,
	}
	m.props = graphviewport.Props{
		Graph:        cfg.Graph,
		Options:      cfg.Options,
		OnSelectNode: m.selectNode,
		OnSelectEdge: m.selectEdge,
	}
	m.comp = graphviewport.NewComponent(graphviewport.Options{
		Context:       cfg.Context,
		Producer:      cfg.Producer,
		Factory:       term.Factory,
		Container:     m.screen,
		Dispatcher:    graphviewport.DispatcherFunc(m.post),
		ErrorBoundary: m.fail,
	})
	return m
}

// Bind sets where posted work is delivered, normally tea.Program.Send
func (m *Model) Bind(send func(tea.Msg)) {
	m.send = send
}

func (m *Model) post(fn func()) {
	m.send(taskMsg(fn))
}

// Err returns the render failure that stopped the model, if any
func (m *Model) Err() error {
	return m.err
}

// Init starts the spinner and mounts the component
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, func() tea.Msg { return mountMsg{} })
}

// Update handles messages and updates the model
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case mountMsg:
		m.comp.Mount(m.props)
		return m, nil

	case taskMsg:
		msg()
		if m.err != nil {
			return m, tea.Quit
		}
		return m, nil

	case GraphMsg:
		m.props.Graph = msg.Graph
		m.comp.Update(m.props)
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.screen.SetSize(msg.Width, max(msg.Height-footerHeight, 1))
		m.comp.Resize()
		return m, nil

	case tea.KeyMsg:
		return m, m.handleKey(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		m.comp.Unmount()
		return tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll

	case key.Matches(msg, m.keys.Clear):
		m.props.SelectedNodeID = ""
		m.props.SelectedEdgeID = ""
		m.comp.Update(m.props)

	case key.Matches(msg, m.keys.Focus):
		if id := m.props.SelectedNodeID; id != "" {
			m.comp.FocusNode(id)
		}

	case key.Matches(msg, m.keys.Next):
		m.comp.Step(1)

	case key.Matches(msg, m.keys.Prev):
		m.comp.Step(-1)

	case key.Matches(msg, m.keys.Follow):
		m.comp.Follow()
	}
	return nil
}

func (m *Model) selectNode(id string) {
	m.props.SelectedNodeID = id
	m.props.SelectedEdgeID = ""
	m.comp.Update(m.props)
}

func (m *Model) selectEdge(id string) {
	m.props.SelectedEdgeID = id
	m.comp.Update(m.props)
}

func (m *Model) fail(err error) {
	m.err = err
}

// View renders the screen and the footer
func (m *Model) View() string {
	if m.quitting {
		return ""
	}
	if m.err != nil {
		return errorBoxStyle.Render(errorStyle.Render("Render failed") + "\n\n" + m.err.Error())
	}

	var b strings.Builder
	if m.comp.Ready() {
		b.WriteString(m.screen.View())
	} else {
		b.WriteString(m.spinner.View() + " Laying out schema...")
	}

	_, height := m.screen.Size()
	if lines := strings.Count(b.String(), "\n") + 1; lines < height {
		b.WriteString(strings.Repeat("\n", height-lines))
	}
	b.WriteString("\n")
	b.WriteString(m.status())
	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m *Model) status() string {
	if m.props.SelectedNodeID == "" {
		return statusStyle.Render("nothing selected")
	}
	parts := []string{selectionStyle.Render(m.props.SelectedNodeID)}
	if m.props.SelectedEdgeID != "" {
		parts = append(parts, selectionStyle.Render(m.props.SelectedEdgeID))
	}
	return strings.Join(parts, statusStyle.Render(" → "))
}
