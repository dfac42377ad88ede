package raster

import (
	"bytes"
	"errors"
	"image/color"
	"testing"

	"github.com/gogpu/gg"
	"github.com/stretchr/testify/require"

	"github.com/recera/voyager/pkg/graph"
)

func testLayout() *graph.Layout {
	return graph.NewLayout(280, 60,
		[]graph.Box{
			{ID: "TYPE::A", Title: "A", X: 0, Y: 0, W: 100, H: 60, Rows: []graph.Row{
				{ID: "FIELD::A::b", Text: "b: B", EdgeID: "FIELD_EDGE::A::b", Y: 24},
			}},
			{ID: "TYPE::B", Title: "B", X: 180, Y: 0, W: 100, H: 60},
		},
		[]graph.Link{
			{ID: "FIELD_EDGE::A::b", From: "TYPE::A", To: "TYPE::B", X1: 100, Y1: 33, X2: 180, Y2: 12},
		},
	)
}

func pixel(t *testing.T, s *Surface, x, y int) color.NRGBA {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	return color.NRGBAModel.Convert(s.dc.Image().At(x, y)).(color.NRGBA)
}

func requireColor(t *testing.T, want string, got color.NRGBA) {
	t.Helper()
	w := gg.Hex(want).Color().(color.NRGBA)
	near := func(a, b uint8) bool {
		d := int(a) - int(b)
		return d >= -2 && d <= 2
	}
	if !near(w.R, got.R) || !near(w.G, got.G) || !near(w.B, got.B) {
		t.Fatalf("pixel = %v, want %s", got, want)
	}
}

func newSurface(t *testing.T, w, h int) *Surface {
	t.Helper()
	s, err := NewSurface(w, h)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestViewport_DrawsAndSelects(t *testing.T) {
	s := newSurface(t, 300, 100)
	theme := DefaultTheme()

	v, err := New(testLayout(), s, theme, nil, nil)
	require.NoError(t, err)

	// Layout is centered: offset (10, 20) at scale 1.
	requireColor(t, theme.Background, pixel(t, s, 5, 5))
	requireColor(t, theme.Box, pixel(t, s, 60, 30))

	v.SelectNodeByID("TYPE::A")
	requireColor(t, theme.Selected, pixel(t, s, 60, 30))
	node, _ := v.Selection()
	require.Equal(t, "TYPE::A", node)

	v.SelectNodeByID("")
	requireColor(t, theme.Box, pixel(t, s, 60, 30))

	v.SelectEdgeByID("TYPE::missing")
	_, edge := v.Selection()
	require.Empty(t, edge)
}

func TestViewport_Click(t *testing.T) {
	s := newSurface(t, 300, 100)
	var nodes, edges []string
	v, err := New(testLayout(), s, DefaultTheme(),
		func(id string) { nodes = append(nodes, id) },
		func(id string) { edges = append(edges, id) },
	)
	require.NoError(t, err)

	v.Click(60, 30)  // header of A
	v.Click(60, 50)  // row b of A
	v.Click(240, 40) // B
	v.Click(5, 5)    // background

	require.Equal(t, []string{"TYPE::A", "TYPE::B", ""}, nodes)
	require.Equal(t, []string{"FIELD_EDGE::A::b"}, edges)

	v.Destroy()
	v.Click(60, 30)
	require.Len(t, nodes, 3)
}

func TestViewport_ExclusiveSurface(t *testing.T) {
	s := newSurface(t, 300, 100)

	first, err := New(testLayout(), s, DefaultTheme(), nil, nil)
	require.NoError(t, err)

	_, err = New(testLayout(), s, DefaultTheme(), nil, nil)
	require.True(t, errors.Is(err, ErrSurfaceBusy))

	first.Destroy()
	first.Destroy()
	// Released surfaces are cleared to transparent.
	require.Zero(t, pixel(t, s, 60, 30).A)

	second, err := New(testLayout(), s, DefaultTheme(), nil, nil)
	require.NoError(t, err)

	// A destroyed Viewport can no longer draw over its successor.
	first.SelectNodeByID("TYPE::A")
	requireColor(t, DefaultTheme().Box, pixel(t, s, 60, 30))
	second.Destroy()
}

func TestViewport_ResizeAndFocus(t *testing.T) {
	s := newSurface(t, 300, 100)
	theme := DefaultTheme()
	v, err := New(testLayout(), s, theme, nil, nil)
	require.NoError(t, err)

	require.NoError(t, s.Resize(600, 200))
	v.Resize()
	// Offset is now (160, 70).
	requireColor(t, theme.Box, pixel(t, s, 210, 80))

	v.FocusElement("TYPE::B")
	// B's center (230, 30) moves to (300, 100).
	requireColor(t, theme.Box, pixel(t, s, 300, 100))

	v.FocusElement("TYPE::nothing")
	requireColor(t, theme.Box, pixel(t, s, 300, 100))
}

func TestFactory(t *testing.T) {
	factory := Factory(DefaultTheme())

	_, err := factory(testLayout(), "not a surface", nil, nil)
	require.Error(t, err)

	s := newSurface(t, 300, 100)
	vp, err := factory(testLayout(), s, nil, nil)
	require.NoError(t, err)
	vp.Destroy()
}

func TestSurface_EncodePNG(t *testing.T) {
	s := newSurface(t, 300, 100)
	_, err := New(testLayout(), s, DefaultTheme(), nil, nil)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, s.EncodePNG(&buf))
	require.True(t, bytes.HasPrefix(buf.Bytes(), []byte("\x89PNG")))

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	require.ErrorIs(t, s.EncodePNG(&buf), ErrSurfaceClosed)
	require.ErrorIs(t, s.Resize(10, 10), ErrSurfaceClosed)
}

func TestNewSurface_InvalidSize(t *testing.T) {
	_, err := NewSurface(0, 10)
	require.Error(t, err)
}
