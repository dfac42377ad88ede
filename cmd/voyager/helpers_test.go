package main

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/recera/voyager/internal/config"
)

const testSDL = `
type Query {
  user(id: ID!): User
  posts: [Post!]!
}

type User {
  id: ID!
  name: String
  posts: [Post!]!
}

type Post {
  id: ID!
  title: String
  author: User
}
`

func testOptions(t *testing.T) *rootOptions {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Cache.Enabled = false
	return &rootOptions{config: cfg, logger: slog.New(slog.DiscardHandler)}
}

func writeSchema(t *testing.T, path, sdl string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(sdl), 0644))
}

func tempSchema(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "schema.graphql")
	writeSchema(t, path, testSDL)
	return path
}
