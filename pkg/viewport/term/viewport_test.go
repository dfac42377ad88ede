package term

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/recera/voyager/pkg/graph"
)

func testLayout() *graph.Layout {
	return graph.NewLayout(280, 120,
		[]graph.Box{
			{ID: "TYPE::Query", Title: "Query", X: 0, Y: 0, Rows: []graph.Row{
				{ID: "FIELD::Query::user", Text: "user: User", EdgeID: "FIELD_EDGE::Query::user"},
				{ID: "FIELD::Query::version", Text: "version: String"},
			}},
			{ID: "TYPE::User", Title: "User", X: 180, Y: 0, Rows: []graph.Row{
				{ID: "FIELD::User::id", Text: "id: ID!"},
			}},
			{ID: "TYPE::Post", Title: "Post", X: 180, Y: 60},
		},
		[]graph.Link{
			{ID: "FIELD_EDGE::Query::user", From: "TYPE::Query", To: "TYPE::User"},
		},
	)
}

func TestViewport_Draw(t *testing.T) {
	screen := NewScreen(0, 0)
	v, err := New(testLayout(), screen, nil, nil)
	require.NoError(t, err)

	out := screen.View()
	for _, want := range []string{"Query", "user: User", "version: String", "User", "id: ID!", "Post"} {
		require.Contains(t, out, want)
	}
	require.NotContains(t, out, "* ")
	require.NotContains(t, out, "> ")

	v.SelectNodeByID("TYPE::User")
	v.SelectEdgeByID("FIELD_EDGE::Query::user")
	out = screen.View()
	require.Contains(t, out, "* User")
	require.Contains(t, out, "> user: User")

	// Query's column comes first on every line it shares.
	first := strings.Split(out, "\n")[1]
	require.Less(t, strings.Index(first, "Query"), strings.Index(first, "User"))
}

func TestViewport_FocusScrolls(t *testing.T) {
	screen := NewScreen(0, 0)
	v, err := New(testLayout(), screen, nil, nil)
	require.NoError(t, err)

	v.FocusElement("TYPE::Post")
	require.True(t, strings.Contains(strings.Split(screen.View(), "\n")[1], "Post"))

	v.FocusElement("TYPE::Query")
	require.Contains(t, strings.Split(screen.View(), "\n")[1], "Query")
}

func TestViewport_ResizeClips(t *testing.T) {
	screen := NewScreen(0, 0)
	v, err := New(testLayout(), screen, nil, nil)
	require.NoError(t, err)

	screen.SetSize(10, 2)
	v.Resize()
	lines := strings.Split(screen.View(), "\n")
	require.Len(t, lines, 2)
	for _, l := range lines {
		require.LessOrEqual(t, len([]rune(l)), 10)
	}
}

func TestViewport_StepAndFollow(t *testing.T) {
	screen := NewScreen(0, 0)
	var nodes, edges []string
	v, err := New(testLayout(), screen,
		func(id string) { nodes = append(nodes, id) },
		func(id string) { edges = append(edges, id) },
	)
	require.NoError(t, err)

	v.Step(1)
	v.SelectNodeByID("TYPE::Query")
	v.Step(1)
	v.Step(-1)
	v.Follow()

	require.Equal(t, []string{"TYPE::Query", "TYPE::User", "TYPE::Post"}, nodes)
	require.Equal(t, []string{"FIELD_EDGE::Query::user"}, edges)
}

func TestViewport_Ownership(t *testing.T) {
	screen := NewScreen(0, 0)
	first, err := New(testLayout(), screen, nil, nil)
	require.NoError(t, err)

	_, err = New(testLayout(), screen, nil, nil)
	require.ErrorIs(t, err, ErrScreenBusy)

	first.Destroy()
	first.Destroy()
	require.Empty(t, screen.View())

	second, err := Factory(testLayout(), screen, nil, nil)
	require.NoError(t, err)
	first.SelectNodeByID("TYPE::User")
	require.NotContains(t, screen.View(), "* User")
	second.Destroy()

	_, err = Factory(testLayout(), "stdout", nil, nil)
	require.Error(t, err)
}
