package main

import (
	"context"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRunRender(t *testing.T) {
	opts := testOptions(t)
	out := filepath.Join(t.TempDir(), "graph.png")

	err := runRender(context.Background(), opts, tempSchema(t), renderFlags{
		out:    out,
		width:  400,
		height: 300,
		node:   "TYPE::User",
		focus:  "TYPE::Post",
	})
	require.NoError(t, err)

	f, err := os.Open(out)
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)
	require.Equal(t, 400, img.Bounds().Dx())
	require.Equal(t, 300, img.Bounds().Dy())
}

func TestRunRender_Errors(t *testing.T) {
	opts := testOptions(t)
	dir := t.TempDir()

	bad := filepath.Join(dir, "bad.graphql")
	writeSchema(t, bad, "type Query { user: Missing }")
	err := runRender(context.Background(), opts, bad, renderFlags{out: filepath.Join(dir, "x.png"), width: 10, height: 10})
	require.Error(t, err)

	err = runRender(context.Background(), opts, filepath.Join(dir, "missing.graphql"), renderFlags{width: 10, height: 10})
	require.ErrorContains(t, err, "failed to read schema")

	err = runRender(context.Background(), opts, tempSchema(t), renderFlags{out: filepath.Join(dir, "x.png")})
	require.Error(t, err, "zero-sized surface")
}

func TestRenderFlags_Defaults(t *testing.T) {
	opts := testOptions(t)
	flags := renderFlags{width: 50}
	flags.applyDefaults(opts)
	require.Equal(t, renderFlags{out: "schema.png", width: 50, height: 1000}, flags)
}

func TestSchemaPath(t *testing.T) {
	opts := testOptions(t)
	_, err := opts.schemaPath(nil)
	require.Error(t, err)

	opts.config.Schema = "api.graphql"
	path, err := opts.schemaPath(nil)
	require.NoError(t, err)
	require.Equal(t, "api.graphql", path)

	path, err = opts.schemaPath([]string{"other.graphql"})
	require.NoError(t, err)
	require.Equal(t, "other.graphql", path)
}
