package graph

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/recera/voyager/internal/cache"
)

func TestArrange(t *testing.T) {
	g := buildTest(t, nil)
	l, err := Arrange(g, nil)
	require.NoError(t, err)

	require.Len(t, l.Boxes, len(g.Nodes))
	query, ok := l.Box("TYPE::Query")
	require.True(t, ok)
	user, _ := l.Box("TYPE::User")
	post, _ := l.Box("TYPE::Post")

	// One column per depth
	require.Zero(t, query.X)
	require.Greater(t, user.X, query.X+query.W)
	require.Greater(t, post.X, user.X+user.W)
	require.Len(t, query.Rows, 4)

	for _, b := range l.Boxes {
		require.GreaterOrEqual(t, b.W, minBoxWidth)
		require.LessOrEqual(t, b.X+b.W, l.Width)
		require.LessOrEqual(t, b.Y+b.H, l.Height)
	}

	// Field links start on their row
	link, ok := l.Link("FIELD_EDGE::Query::users")
	require.True(t, ok)
	require.Equal(t, query.X+query.W, link.X1)
	require.Equal(t, query.Rows[1].Y+RowHeight/2, link.Y1)
	require.Equal(t, user.X, link.X2)
	require.Len(t, l.Links, len(g.Edges))
	require.True(t, l.Has("TYPE::Post"))
	require.True(t, l.Has("POSSIBLE_TYPE_EDGE::SearchResult::User"))
	require.False(t, l.Has("TYPE::Nope"))
}

func TestArrange_Options(t *testing.T) {
	g := buildTest(t, nil)

	opts := DefaultDisplayOptions()
	opts.ShowLeafFields = false
	l, err := Arrange(g, opts)
	require.NoError(t, err)
	query, _ := l.Box("TYPE::Query")
	require.Len(t, query.Rows, 3)

	opts = DefaultDisplayOptions()
	opts.HideRoot = true
	l, err = Arrange(g, opts)
	require.NoError(t, err)
	require.False(t, l.Has("TYPE::Query"))
	require.False(t, l.Has("FIELD_EDGE::Query::user"))
	user, _ := l.Box("TYPE::User")
	require.Zero(t, user.X)
}

func TestArrange_Empty(t *testing.T) {
	g := &TypeGraph{RootID: "TYPE::Query", Nodes: []*Node{{ID: "TYPE::Query", Name: "Query"}}}
	_, err := Arrange(g, &DisplayOptions{HideRoot: true})
	require.ErrorIs(t, err, ErrEmptyGraph)
}

func TestLayoutRenderer_Produce(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	c, err := cache.New(cache.Config{Dir: t.TempDir()})
	require.NoError(t, err)

	r := NewLayoutRenderer(WithCache(c), WithTracer(tp.Tracer("test")))
	g := buildTest(t, nil)
	opts := DefaultDisplayOptions()

	first, err := r.Produce(context.Background(), g, opts)
	require.NoError(t, err)
	second, err := r.Produce(context.Background(), g, opts)
	require.NoError(t, err)

	require.NotSame(t, first, second)
	if diff := cmp.Diff(first, second, cmp.AllowUnexported(Layout{})); diff != "" {
		t.Errorf("cached layout mismatch (-want +got):\n%s", diff)
	}
	require.Equal(t, int64(1), c.GetStats().Hits)

	spans := sr.Ended()
	require.Len(t, spans, 2)
	require.Equal(t, "graph.Layout", spans[0].Name())
	require.Contains(t, spans[0].Attributes(), attribute.Int("graph.nodes", 4))
	require.Contains(t, spans[1].Attributes(), attribute.Bool("layout.cached", true))

	// Different options miss the cache
	other := opts.Clone()
	other.HideRoot = true
	_, err = r.Produce(context.Background(), g, other)
	require.NoError(t, err)
	require.Equal(t, int64(1), c.GetStats().Hits)
}

func TestLayoutRenderer_Errors(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	r := NewLayoutRenderer(WithTracer(tp.Tracer("test")))

	_, err := r.Produce(context.Background(), nil, nil)
	require.ErrorIs(t, err, ErrEmptyGraph)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = r.Produce(ctx, buildTest(t, nil), nil)
	require.True(t, errors.Is(err, context.Canceled))

	spans := sr.Ended()
	require.Len(t, spans, 1)
	require.Equal(t, codes.Error, spans[0].Status().Code)
}
