package graph

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"github.com/vektah/gqlparser/v2/ast"
)

const testSDL = `
type Query {
  user(id: ID!): User
  users(first: Int): UserConnection!
  search(text: String!): [SearchResult!]!
  version: String
  legacy: Post @deprecated(reason: "use search")
}

type Mutation {
  addPost(title: String!): Post
}

interface Node {
  id: ID!
}

type User implements Node {
  id: ID!
  name: String
  posts: [Post!]!
}

type Post implements Node {
  id: ID!
  title: String
  author: User
}

union SearchResult = User | Post

type UserConnection {
  edges: [UserEdge!]!
  pageInfo: PageInfo!
}

type UserEdge {
  node: User!
  cursor: String!
}

type PageInfo {
  hasNextPage: Boolean!
}
`

func buildTest(t *testing.T, opts *DisplayOptions) *TypeGraph {
	t.Helper()
	schema, err := LoadSchema("test.graphql", testSDL)
	require.NoError(t, err)
	g, err := Build(schema, opts)
	require.NoError(t, err)
	return g
}

func nodeIDs(g *TypeGraph) []string {
	ids := make([]string, 0, len(g.Nodes))
	for _, n := range g.Nodes {
		ids = append(ids, n.ID)
	}
	return ids
}

func edgeIDs(g *TypeGraph) []string {
	ids := make([]string, 0, len(g.Edges))
	for _, e := range g.Edges {
		ids = append(ids, e.ID)
	}
	return ids
}

func TestBuild_Defaults(t *testing.T) {
	g := buildTest(t, nil)

	require.Equal(t, "TYPE::Query", g.RootID)
	if diff := cmp.Diff([]string{"TYPE::Query", "TYPE::User", "TYPE::SearchResult", "TYPE::Post"}, nodeIDs(g)); diff != "" {
		t.Errorf("nodes mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{
		"FIELD_EDGE::Query::user",
		"FIELD_EDGE::Query::users",
		"FIELD_EDGE::Query::search",
		"FIELD_EDGE::User::posts",
		"POSSIBLE_TYPE_EDGE::SearchResult::Post",
		"POSSIBLE_TYPE_EDGE::SearchResult::User",
		"FIELD_EDGE::Post::author",
	}, edgeIDs(g)); diff != "" {
		t.Errorf("edges mismatch (-want +got):\n%s", diff)
	}

	query, ok := g.Node("TYPE::Query")
	require.True(t, ok)
	require.Equal(t, ast.Object, query.Kind)
	want := []Field{
		{ID: "FIELD::Query::user", Name: "user", TypeName: "User", Signature: "User", Args: 1, EdgeID: "FIELD_EDGE::Query::user"},
		{ID: "FIELD::Query::users", Name: "users", TypeName: "User", Signature: "UserConnection!", Args: 1, IsRelay: true, EdgeID: "FIELD_EDGE::Query::users"},
		{ID: "FIELD::Query::search", Name: "search", TypeName: "SearchResult", Signature: "[SearchResult!]!", Args: 1, EdgeID: "FIELD_EDGE::Query::search"},
		{ID: "FIELD::Query::version", Name: "version", TypeName: "String", Signature: "String", IsLeaf: true},
	}
	if diff := cmp.Diff(want, query.Fields); diff != "" {
		t.Errorf("Query fields mismatch (-want +got):\n%s", diff)
	}

	post, _ := g.Node("TYPE::Post")
	require.Equal(t, 2, post.Depth)

	edge, ok := g.Edge("FIELD_EDGE::Query::users")
	require.True(t, ok)
	require.Equal(t, Edge{ID: "FIELD_EDGE::Query::users", Kind: EdgeField, From: "TYPE::Query", To: "TYPE::User", Label: "users"}, *edge)

	_, ok = g.Node("TYPE::UserConnection")
	require.False(t, ok)
}

func TestBuild_Options(t *testing.T) {
	t.Run("keep relay types", func(t *testing.T) {
		opts := DefaultDisplayOptions()
		opts.SkipRelay = false
		g := buildTest(t, opts)
		for _, id := range []string{"TYPE::UserConnection", "TYPE::UserEdge", "TYPE::PageInfo"} {
			_, ok := g.Node(id)
			require.True(t, ok, id)
		}
	})

	t.Run("keep deprecated", func(t *testing.T) {
		opts := DefaultDisplayOptions()
		opts.SkipDeprecated = false
		g := buildTest(t, opts)
		query, _ := g.Node("TYPE::Query")
		last := query.Fields[len(query.Fields)-1]
		require.Equal(t, "legacy", last.Name)
		require.True(t, last.Deprecated)
	})

	t.Run("sort", func(t *testing.T) {
		opts := DefaultDisplayOptions()
		opts.SortByAlphabet = true
		g := buildTest(t, opts)
		require.Equal(t, []string{"TYPE::Query", "TYPE::SearchResult", "TYPE::User", "TYPE::Post"}, nodeIDs(g))
		query, _ := g.Node("TYPE::Query")
		var names []string
		for _, f := range query.Fields {
			names = append(names, f.Name)
		}
		require.Equal(t, []string{"search", "user", "users", "version"}, names)
	})

	t.Run("root type", func(t *testing.T) {
		opts := DefaultDisplayOptions()
		opts.RootType = "Mutation"
		g := buildTest(t, opts)
		require.Equal(t, "TYPE::Mutation", g.RootID)
		require.Equal(t, []string{"TYPE::Mutation", "TYPE::Post", "TYPE::User"}, nodeIDs(g))
	})
}

func TestBuild_UnknownRoot(t *testing.T) {
	schema, err := LoadSchema("test.graphql", testSDL)
	require.NoError(t, err)

	for _, root := range []string{"Nope", "String"} {
		_, err := Build(schema, &DisplayOptions{RootType: root})
		require.True(t, errors.Is(err, ErrUnknownRoot), "root %s: %v", root, err)
	}
}

func TestBuild_Fingerprint(t *testing.T) {
	a := buildTest(t, nil)
	b := buildTest(t, nil)
	require.Equal(t, a.Fingerprint, b.Fingerprint)
	require.NotSame(t, a, b)

	opts := DefaultDisplayOptions()
	opts.SkipRelay = false
	require.NotEqual(t, a.Fingerprint, buildTest(t, opts).Fingerprint)
}

func TestLoadSchema_Invalid(t *testing.T) {
	_, err := LoadSchema("bad.graphql", "type Query { user: Missing }")
	require.Error(t, err)
}

func TestDisplayOptions_Clone(t *testing.T) {
	opts := DefaultDisplayOptions()
	c := opts.Clone()
	require.Equal(t, opts, c)
	require.NotSame(t, opts, c)
	c.HideRoot = true
	require.NotEqual(t, opts.fingerprint(), c.fingerprint())

	var none *DisplayOptions
	require.Nil(t, none.Clone())
}
