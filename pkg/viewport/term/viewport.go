package term

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/recera/voyager/pkg/components/graphviewport"
	"github.com/recera/voyager/pkg/graph"
)

var (
	primaryColor = lipgloss.Color("#3b82f6")
	mutedColor   = lipgloss.Color("#94a3b8")
	warningColor = lipgloss.Color("#f59e0b")

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(mutedColor).
			Padding(0, 1)

	selectedBoxStyle = boxStyle.
				BorderForeground(primaryColor)

	titleStyle = lipgloss.NewStyle().
			Bold(true)

	rowStyle = lipgloss.NewStyle().
			Foreground(mutedColor)

	selectedRowStyle = lipgloss.NewStyle().
				Foreground(warningColor).
				Bold(true)

	columnGap = "   "
)

// Viewport renders one layout as bordered boxes laid out in columns.
type Viewport struct {
	layout  *graph.Layout
	screen  *Screen
	columns [][]graph.Box

	node, edge string
	scroll     int

	onSelectNode func(id string)
	onSelectEdge func(id string)
	destroyed    bool
}

// New takes ownership of screen and draws layout on it
func New(layout *graph.Layout, screen *Screen, onSelectNode, onSelectEdge func(id string)) (*Viewport, error) {
	if layout == nil {
		return nil, fmt.Errorf("term: nil layout")
	}
	v := &Viewport{
		layout:       layout,
		screen:       screen,
		columns:      columns(layout),
		onSelectNode: onSelectNode,
		onSelectEdge: onSelectEdge,
	}
	if err := screen.claim(v); err != nil {
		return nil, err
	}
	v.draw()
	return v, nil
}

var _ graphviewport.Navigator = (*Viewport)(nil)

// Factory is a ViewportFactory for *Screen containers
func Factory(layout *graph.Layout, container graphviewport.Container, onSelectNode, onSelectEdge func(string)) (graphviewport.Viewport, error) {
	screen, ok := container.(*Screen)
	if !ok {
		return nil, fmt.Errorf("term: container is %T, want *term.Screen", container)
	}
	return New(layout, screen, onSelectNode, onSelectEdge)
}

// columns groups boxes by x position, top to bottom
func columns(l *graph.Layout) [][]graph.Box {
	byX := map[float64][]graph.Box{}
	var xs []float64
	for _, b := range l.Boxes {
		if _, ok := byX[b.X]; !ok {
			xs = append(xs, b.X)
		}
		byX[b.X] = append(byX[b.X], b)
	}
	sort.Float64s(xs)

	cols := make([][]graph.Box, 0, len(xs))
	for _, x := range xs {
		col := byX[x]
		sort.Slice(col, func(i, j int) bool { return col[i].Y < col[j].Y })
		cols = append(cols, col)
	}
	return cols
}

func (v *Viewport) SelectNodeByID(id string) {
	v.node = id
	v.draw()
}

func (v *Viewport) SelectEdgeByID(id string) {
	v.edge = id
	v.draw()
}

// FocusElement scrolls so the box holding id is at the top of the screen
func (v *Viewport) FocusElement(id string) {
	if l, ok := v.layout.Link(id); ok {
		id = l.From
	}
	for _, col := range v.columns {
		line := 0
		for _, b := range col {
			if b.ID == id {
				v.scroll = line
				v.draw()
				return
			}
			line += lipgloss.Height(v.renderBox(b))
		}
	}
}

func (v *Viewport) Resize() {
	v.draw()
}

// Destroy blanks the screen and gives it up. Later calls are no-ops.
func (v *Viewport) Destroy() {
	if v.destroyed {
		return
	}
	v.destroyed = true
	v.screen.release(v)
}

// Step moves the node selection delta boxes forward in reading order and
// reports the new selection through onSelectNode.
func (v *Viewport) Step(delta int) {
	var ids []string
	for _, col := range v.columns {
		for _, b := range col {
			ids = append(ids, b.ID)
		}
	}
	if len(ids) == 0 || v.onSelectNode == nil {
		return
	}

	i := -1
	for k, id := range ids {
		if id == v.node {
			i = k
		}
	}
	if i < 0 && delta < 0 {
		i = 0
	}
	next := ((i+delta)%len(ids) + len(ids)) % len(ids)
	v.onSelectNode(ids[next])
}

// Follow reports the first edge leaving the selected node through
// onSelectEdge
func (v *Viewport) Follow() {
	b, ok := v.layout.Box(v.node)
	if !ok || v.onSelectEdge == nil {
		return
	}
	for _, r := range b.Rows {
		if r.EdgeID != "" && r.EdgeID != v.edge {
			v.onSelectEdge(r.EdgeID)
			return
		}
	}
}

func (v *Viewport) draw() {
	if v.destroyed {
		return
	}
	rendered := make([]string, 0, len(v.columns)*2)
	for i, col := range v.columns {
		boxes := make([]string, 0, len(col))
		for _, b := range col {
			boxes = append(boxes, v.renderBox(b))
		}
		if i > 0 {
			rendered = append(rendered, columnGap)
		}
		rendered = append(rendered, lipgloss.JoinVertical(lipgloss.Left, boxes...))
	}
	content := lipgloss.JoinHorizontal(lipgloss.Top, rendered...)

	if v.scroll > 0 {
		lines := strings.Split(content, "\n")
		if v.scroll < len(lines) {
			content = strings.Join(lines[v.scroll:], "\n")
		}
	}
	v.screen.show(v, content)
}

func (v *Viewport) renderBox(b graph.Box) string {
	title := b.Title
	if b.ID == v.node {
		title = "* " + title
	}
	lines := []string{titleStyle.Render(title)}
	for _, r := range b.Rows {
		if r.EdgeID != "" && r.EdgeID == v.edge {
			lines = append(lines, selectedRowStyle.Render("> "+r.Text))
			continue
		}
		lines = append(lines, rowStyle.Render("  "+r.Text))
	}

	style := boxStyle
	if b.ID == v.node {
		style = selectedBoxStyle
	}
	return style.Render(strings.Join(lines, "\n"))
}
