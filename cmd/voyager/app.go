package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"

	"github.com/recera/voyager/internal/cache"
	"github.com/recera/voyager/internal/config"
	"github.com/recera/voyager/pkg/components/graphviewport"
	"github.com/recera/voyager/pkg/debug"
	"github.com/recera/voyager/pkg/graph"
)

const tracerName = "github.com/recera/voyager/cmd/voyager"

// rootOptions holds the persistent flags and what setup derives from them
type rootOptions struct {
	configPath string
	logLevel   string
	logFormat  string
	noCache    bool

	config *config.Config
	logger *slog.Logger
}

// setup loads voyager.yaml and installs the logger every command shares
func (o *rootOptions) setup(cmd *cobra.Command, _ []string) error {
	var (
		cfg *config.Config
		err error
	)
	if o.configPath != "" {
		cfg, err = config.LoadFile(o.configPath)
	} else {
		cfg, err = config.Load(".")
	}
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	if o.logFormat != "" {
		cfg.Log.Format = o.logFormat
	}
	if o.noCache {
		cfg.Cache.Enabled = false
	}

	logger, err := debug.NewLogger(cmd.ErrOrStderr(), cfg.Log.Format, cfg.Log.Level)
	if err != nil {
		return err
	}
	debug.EnableLogging(logger)

	o.config = cfg
	o.logger = logger
	return nil
}

// schemaPath picks the positional argument over the configured schema
func (o *rootOptions) schemaPath(args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	if o.config.Schema != "" {
		return o.config.Schema, nil
	}
	return "", fmt.Errorf("no schema given: pass a file or set schema in %s", config.FileName)
}

// newProducer builds the layout renderer, backed by the on-disk cache when
// it is enabled. The returned func releases the cache.
func (o *rootOptions) newProducer() (*graph.LayoutRenderer, func(), error) {
	opts := []graph.RendererOption{
		graph.WithTracer(otel.Tracer(tracerName)),
	}
	closeFn := func() {}

	if o.config.Cache.Enabled {
		cacheOpts, err := o.config.Cache.CacheOptions()
		if err != nil {
			return nil, nil, err
		}
		c, err := cache.New(cacheOpts)
		if err != nil {
			// Rendering works without it
			o.logger.Warn("layout cache unavailable", "dir", cacheOpts.Dir, "err", err)
		} else {
			opts = append(opts, graph.WithCache(c))
			closeFn = func() {
				if err := c.Close(); err != nil {
					o.logger.Warn("failed to close layout cache", "err", err)
				}
			}
		}
	}
	return graph.NewLayoutRenderer(opts...), closeFn, nil
}

// loadGraph reads and validates the SDL at path and builds its type graph
func loadGraph(path string, opts *graph.DisplayOptions) (*graph.TypeGraph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema: %w", err)
	}
	schema, err := graph.LoadSchema(path, string(data))
	if err != nil {
		return nil, err
	}
	return graph.Build(schema, opts)
}

// componentOptions fills what every command shares
func (o *rootOptions) componentOptions(ctx context.Context, producer graphviewport.Producer, dispatcher graphviewport.Dispatcher) graphviewport.Options {
	return graphviewport.Options{
		Context:     ctx,
		Producer:    producer,
		Dispatcher:  dispatcher,
		LoadingText: "Laying out schema...",
	}
}
